package services

import "errors"

type ErrorCode string

const (
	ErrorInvalid          ErrorCode = "invalid"
	ErrorUnauthorized     ErrorCode = "unauthorized"
	ErrorNotFound         ErrorCode = "not_found"
	ErrorConflict         ErrorCode = "conflict"
	ErrorAlreadySubmitted ErrorCode = "already_submitted"
	ErrorQuotaExceeded    ErrorCode = "quota_exceeded"
	ErrorInvalidState     ErrorCode = "invalid_state"
	ErrorBadGateway       ErrorCode = "bad_gateway"
	ErrorInternal         ErrorCode = "internal"
)

type ServiceError struct {
	Code    ErrorCode
	Message string
	// Limit names which quota was hit ("weekly" or "concurrent") for
	// quota_exceeded errors; empty otherwise.
	Limit string
}

func (e *ServiceError) Error() string { return e.Message }

func NewInvalidError(msg string) error      { return &ServiceError{Code: ErrorInvalid, Message: msg} }
func NewNotFoundError(msg string) error     { return &ServiceError{Code: ErrorNotFound, Message: msg} }
func NewConflictError(msg string) error     { return &ServiceError{Code: ErrorConflict, Message: msg} }
func NewInvalidStateError(msg string) error { return &ServiceError{Code: ErrorInvalidState, Message: msg} }

func NewAlreadySubmittedError(msg string) error {
	return &ServiceError{Code: ErrorAlreadySubmitted, Message: msg}
}

func NewQuotaExceededError(limit, msg string) error {
	return &ServiceError{Code: ErrorQuotaExceeded, Message: msg, Limit: limit}
}

func NewUnauthorizedError(msg string) error {
	return &ServiceError{Code: ErrorUnauthorized, Message: msg}
}

func NewBadGatewayError(msg string) error { return &ServiceError{Code: ErrorBadGateway, Message: msg} }

func NewInternalError(msg string) error { return &ServiceError{Code: ErrorInternal, Message: msg} }

func AsServiceError(err error) (*ServiceError, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
