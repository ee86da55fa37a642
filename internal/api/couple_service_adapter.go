package api

import (
	"fmt"

	"github.com/quissme/resonance/internal/services"
)

type coupleStoreAdapter struct{ store Store }

func (a *coupleStoreAdapter) AddUser(u *services.User) error {
	a.store.AddUser(userToAPI(u))
	return nil
}

func (a *coupleStoreAdapter) GetUser(id string) (*services.User, error) {
	return userFromAPI(a.store.GetUser(id)), nil
}

func (a *coupleStoreAdapter) FindUserByInviteCode(code string) (*services.User, error) {
	return userFromAPI(a.store.FindUserByInviteCode(code)), nil
}

func (a *coupleStoreAdapter) SetUserCouple(userID, coupleID string) error {
	if !a.store.SetUserCouple(userID, coupleID) {
		return fmt.Errorf("set couple: user %s not found", userID)
	}
	return nil
}

func (a *coupleStoreAdapter) AddCouple(c *services.Couple) error {
	a.store.AddCouple(coupleToAPI(c))
	return nil
}

func (a *coupleStoreAdapter) GetCouple(id string) (*services.Couple, error) {
	return coupleFromAPI(a.store.GetCouple(id)), nil
}

func (a *coupleStoreAdapter) AddAudit(entry services.AuditEntry) {
	a.store.AddAudit(auditToAPI(entry))
}

var _ services.CoupleStore = (*coupleStoreAdapter)(nil)
