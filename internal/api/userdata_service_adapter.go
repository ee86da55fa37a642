package api

import "github.com/quissme/resonance/internal/services"

type userDataStoreAdapter struct{ store Store }

func (a *userDataStoreAdapter) GetUser(id string) (*services.User, error) {
	return userFromAPI(a.store.GetUser(id)), nil
}

func (a *userDataStoreAdapter) GetCouple(id string) (*services.Couple, error) {
	return coupleFromAPI(a.store.GetCouple(id)), nil
}

func (a *userDataStoreAdapter) ListCyclesByCouple(coupleID string) ([]*services.Cycle, error) {
	rows := a.store.ListCyclesByCouple(coupleID)
	out := make([]*services.Cycle, 0, len(rows))
	for _, c := range rows {
		out = append(out, cycleFromAPI(c))
	}
	return out, nil
}

func (a *userDataStoreAdapter) DeleteUser(id string) (bool, error) {
	return a.store.DeleteUser(id), nil
}

func (a *userDataStoreAdapter) AddAudit(entry services.AuditEntry) {
	a.store.AddAudit(auditToAPI(entry))
}

var _ services.UserDataStore = (*userDataStoreAdapter)(nil)
