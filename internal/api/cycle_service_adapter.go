package api

import (
	"fmt"
	"time"

	"github.com/quissme/resonance/internal/services"
)

// cycleStoreAdapter exposes the shared Store through the narrow interface
// the cycle service consumes.
type cycleStoreAdapter struct{ store Store }

func (a *cycleStoreAdapter) GetQuiz(id string) (*services.Quiz, error) {
	return quizFromAPI(a.store.GetQuiz(id)), nil
}

func (a *cycleStoreAdapter) GetUser(id string) (*services.User, error) {
	return userFromAPI(a.store.GetUser(id)), nil
}

func (a *cycleStoreAdapter) GetCouple(id string) (*services.Couple, error) {
	return coupleFromAPI(a.store.GetCouple(id)), nil
}

func (a *cycleStoreAdapter) ResetWeeklyWindow(userID string, weekStart time.Time) error {
	if !a.store.ResetWeeklyWindow(userID, weekStart) {
		return fmt.Errorf("reset weekly window: user %s not found", userID)
	}
	return nil
}

func (a *cycleStoreAdapter) IncrementWeeklyActivations(userID string) error {
	if !a.store.IncrementWeeklyActivations(userID) {
		return fmt.Errorf("increment activations: user %s not found", userID)
	}
	return nil
}

func (a *cycleStoreAdapter) CreateCycle(c *services.Cycle) error {
	a.store.AddCycle(cycleToAPI(c))
	return nil
}

func (a *cycleStoreAdapter) GetCycle(id string) (*services.Cycle, error) {
	return cycleFromAPI(a.store.GetCycle(id)), nil
}

func (a *cycleStoreAdapter) ListCyclesByCouple(coupleID string) ([]*services.Cycle, error) {
	rows := a.store.ListCyclesByCouple(coupleID)
	out := make([]*services.Cycle, 0, len(rows))
	for _, c := range rows {
		out = append(out, cycleFromAPI(c))
	}
	return out, nil
}

func (a *cycleStoreAdapter) UpdateCycleIf(c *services.Cycle, fromState services.CycleState) (bool, error) {
	return a.store.UpdateCycleIf(cycleToAPI(c), string(fromState)), nil
}

var _ services.CycleStore = (*cycleStoreAdapter)(nil)
