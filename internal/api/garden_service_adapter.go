package api

import (
	"fmt"

	"github.com/quissme/resonance/internal/services"
)

type gardenStoreAdapter struct{ store Store }

func (a *gardenStoreAdapter) GetCouple(id string) (*services.Couple, error) {
	return coupleFromAPI(a.store.GetCouple(id)), nil
}

func (a *gardenStoreAdapter) AppendGardenItem(coupleID string, item services.GardenItem) error {
	if !a.store.AppendGardenItem(coupleID, GardenItem(item)) {
		return fmt.Errorf("append garden item: couple %s not found", coupleID)
	}
	return nil
}

var _ services.GardenStore = (*gardenStoreAdapter)(nil)
