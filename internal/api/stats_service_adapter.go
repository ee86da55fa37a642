package api

import "github.com/quissme/resonance/internal/services"

type statsStoreAdapter struct{ store Store }

func (a *statsStoreAdapter) GetCouple(id string) (*services.Couple, error) {
	return coupleFromAPI(a.store.GetCouple(id)), nil
}

func (a *statsStoreAdapter) ListCyclesByCouple(coupleID string) ([]*services.Cycle, error) {
	rows := a.store.ListCyclesByCouple(coupleID)
	out := make([]*services.Cycle, 0, len(rows))
	for _, c := range rows {
		out = append(out, cycleFromAPI(c))
	}
	return out, nil
}

var _ services.StatsStore = (*statsStoreAdapter)(nil)
