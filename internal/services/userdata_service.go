package services

import "time"

// UserDataStore abstracts the privacy operations on user records.
type UserDataStore interface {
	GetUser(id string) (*User, error)
	GetCouple(id string) (*Couple, error)
	ListCyclesByCouple(coupleID string) ([]*Cycle, error)
	DeleteUser(id string) (bool, error)
	AddAudit(entry AuditEntry)
}

// UserDataService implements data export and deletion for a single user.
type UserDataService struct {
	store UserDataStore
	now   func() time.Time
}

func NewUserDataService(store UserDataStore) *UserDataService {
	return &UserDataService{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

type UserExport struct {
	User        *User         `json:"user"`
	Submissions []*Submission `json:"submissions"`
}

// ExportUser returns the stored profile plus every submission the user made
// in their couple's cycles.
func (s *UserDataService) ExportUser(userID string) (*UserExport, error) {
	u, err := s.store.GetUser(userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, NewNotFoundError("user not found")
	}
	export := &UserExport{User: u, Submissions: []*Submission{}}
	if u.CoupleID != "" {
		couple, err := s.store.GetCouple(u.CoupleID)
		if err != nil {
			return nil, err
		}
		cycles, err := s.store.ListCyclesByCouple(u.CoupleID)
		if err != nil {
			return nil, err
		}
		slot := ""
		if couple != nil {
			slot = couple.MemberSlot(userID)
		}
		for _, c := range cycles {
			if !c.Completed(userID) {
				continue
			}
			var sub *Submission
			if slot == "a" {
				sub = c.SubmissionA
			} else if slot == "b" {
				sub = c.SubmissionB
			}
			if sub != nil {
				export.Submissions = append(export.Submissions, sub)
			}
		}
	}
	s.store.AddAudit(AuditEntry{Time: s.now(), Actor: userID, Action: "self_export", Target: userID})
	return export, nil
}

// DeleteUser removes an unpaired user's profile. Coupled users must be
// unpaired first; shared cycle history belongs to both partners.
func (s *UserDataService) DeleteUser(userID string) error {
	u, err := s.store.GetUser(userID)
	if err != nil {
		return err
	}
	if u == nil {
		return NewNotFoundError("user not found")
	}
	if u.CoupleID != "" {
		return NewConflictError("user is paired; shared history cannot be deleted unilaterally")
	}
	ok, err := s.store.DeleteUser(userID)
	if err != nil {
		return err
	}
	if !ok {
		return NewNotFoundError("user not found")
	}
	s.store.AddAudit(AuditEntry{Time: s.now(), Actor: userID, Action: "self_delete", Target: userID})
	return nil
}
