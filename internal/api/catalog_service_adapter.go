package api

import "github.com/quissme/resonance/internal/services"

type catalogStoreAdapter struct{ store Store }

func (a *catalogStoreAdapter) AddQuiz(q *services.Quiz) error {
	a.store.AddQuiz(quizToAPI(q))
	return nil
}

func (a *catalogStoreAdapter) GetQuiz(id string) (*services.Quiz, error) {
	return quizFromAPI(a.store.GetQuiz(id)), nil
}

func (a *catalogStoreAdapter) ListQuizzes() ([]*services.Quiz, error) {
	rows := a.store.ListQuizzes()
	out := make([]*services.Quiz, 0, len(rows))
	for _, q := range rows {
		out = append(out, quizFromAPI(q))
	}
	return out, nil
}

var _ services.CatalogStore = (*catalogStoreAdapter)(nil)
