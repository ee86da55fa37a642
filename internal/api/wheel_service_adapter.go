package api

import (
	"fmt"
	"time"

	"github.com/quissme/resonance/internal/services"
)

type wheelStoreAdapter struct{ store Store }

func (a *wheelStoreAdapter) ListQuizzes() ([]*services.Quiz, error) {
	rows := a.store.ListQuizzes()
	out := make([]*services.Quiz, 0, len(rows))
	for _, q := range rows {
		out = append(out, quizFromAPI(q))
	}
	return out, nil
}

func (a *wheelStoreAdapter) ListCyclesByCouple(coupleID string) ([]*services.Cycle, error) {
	rows := a.store.ListCyclesByCouple(coupleID)
	out := make([]*services.Cycle, 0, len(rows))
	for _, c := range rows {
		out = append(out, cycleFromAPI(c))
	}
	return out, nil
}

func (a *wheelStoreAdapter) GetUser(id string) (*services.User, error) {
	return userFromAPI(a.store.GetUser(id)), nil
}

func (a *wheelStoreAdapter) ResetWeeklyWindow(userID string, weekStart time.Time) error {
	if !a.store.ResetWeeklyWindow(userID, weekStart) {
		return fmt.Errorf("reset weekly window: user %s not found", userID)
	}
	return nil
}

var _ services.WheelStore = (*wheelStoreAdapter)(nil)
