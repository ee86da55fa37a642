package services

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
)

//go:embed quizzes.json
var embeddedQuizzes []byte

// CatalogStore abstracts the quiz definition storage read/seeded by the
// catalog service. Definitions are immutable once loaded.
type CatalogStore interface {
	AddQuiz(q *Quiz) error
	GetQuiz(id string) (*Quiz, error)
	ListQuizzes() ([]*Quiz, error)
}

type CatalogService struct {
	store CatalogStore
}

func NewCatalogService(store CatalogStore) *CatalogService {
	return &CatalogService{store: store}
}

// ValidateQuiz rejects malformed definitions at load time so a broken quiz
// fails startup instead of silently producing partial scores on submit.
func ValidateQuiz(q *Quiz) error {
	if q == nil || strings.TrimSpace(q.ID) == "" {
		return NewInvalidError("quiz id required")
	}
	if !KnownCluster(q.HiddenCluster) {
		return NewInvalidError(fmt.Sprintf("quiz %s: unknown hidden cluster %q", q.ID, q.HiddenCluster))
	}
	if len(q.Questions) == 0 {
		return NewInvalidError(fmt.Sprintf("quiz %s: no questions", q.ID))
	}
	seenQ := map[string]bool{}
	for _, question := range q.Questions {
		if strings.TrimSpace(question.ID) == "" {
			return NewInvalidError(fmt.Sprintf("quiz %s: question id required", q.ID))
		}
		if seenQ[question.ID] {
			return NewInvalidError(fmt.Sprintf("quiz %s: duplicate question id %s", q.ID, question.ID))
		}
		seenQ[question.ID] = true
		if len(question.Options) == 0 {
			return NewInvalidError(fmt.Sprintf("quiz %s: question %s has no options", q.ID, question.ID))
		}
		seenO := map[string]bool{}
		for _, opt := range question.Options {
			if strings.TrimSpace(opt.ID) == "" {
				return NewInvalidError(fmt.Sprintf("quiz %s: option id required in question %s", q.ID, question.ID))
			}
			if seenO[opt.ID] {
				return NewInvalidError(fmt.Sprintf("quiz %s: duplicate option id %s in question %s", q.ID, opt.ID, question.ID))
			}
			seenO[opt.ID] = true
			for cluster := range opt.ClusterScores {
				if !KnownCluster(cluster) {
					return NewInvalidError(fmt.Sprintf("quiz %s: option %s scores unknown cluster %q", q.ID, opt.ID, cluster))
				}
			}
		}
	}
	return nil
}

// LoadEmbeddedQuizzes decodes and validates the built-in quiz definitions.
func LoadEmbeddedQuizzes() ([]*Quiz, error) {
	var payload struct {
		Quizzes []*Quiz `json:"quizzes"`
	}
	if err := json.Unmarshal(embeddedQuizzes, &payload); err != nil {
		return nil, fmt.Errorf("decode embedded quizzes: %w", err)
	}
	for _, q := range payload.Quizzes {
		if err := ValidateQuiz(q); err != nil {
			return nil, err
		}
	}
	return payload.Quizzes, nil
}

// Seed loads the embedded definitions into an empty store. An already
// seeded store is left untouched.
func (s *CatalogService) Seed() (int, error) {
	existing, err := s.store.ListQuizzes()
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}
	quizzes, err := LoadEmbeddedQuizzes()
	if err != nil {
		return 0, err
	}
	for _, q := range quizzes {
		if err := s.store.AddQuiz(q); err != nil {
			return 0, err
		}
	}
	return len(quizzes), nil
}

// QuizSummary is the questionless listing shape for wheel and list views.
type QuizSummary struct {
	ID            string            `json:"id"`
	HiddenCluster string            `json:"hidden_cluster"`
	FacetLabel    map[string]string `json:"facet_label,omitempty"`
	Tone          string            `json:"tone,omitempty"`
	Sector        string            `json:"sector"`
	QuestionCount int               `json:"question_count"`
}

func (s *CatalogService) ListQuizzes() ([]QuizSummary, error) {
	quizzes, err := s.store.ListQuizzes()
	if err != nil {
		return nil, err
	}
	out := make([]QuizSummary, 0, len(quizzes))
	for _, q := range quizzes {
		out = append(out, QuizSummary{
			ID:            q.ID,
			HiddenCluster: q.HiddenCluster,
			FacetLabel:    q.FacetLabel,
			Tone:          q.Tone,
			Sector:        SectorForCluster(q.HiddenCluster),
			QuestionCount: len(q.Questions),
		})
	}
	return out, nil
}

func (s *CatalogService) GetQuiz(id string) (*Quiz, error) {
	q, err := s.store.GetQuiz(id)
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, NewNotFoundError("quiz not found")
	}
	return q, nil
}
