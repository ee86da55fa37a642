package api

import "time"

// Store is the persistence surface the HTTP layer builds its service
// adapters on. Implementations: memoryStore here and db.SQLiteStore.
type Store interface {
	// quizzes
	AddQuiz(q *Quiz)
	GetQuiz(id string) *Quiz
	ListQuizzes() []*Quiz

	// users
	AddUser(u *User)
	GetUser(id string) *User
	FindUserByInviteCode(code string) *User
	SetUserCouple(userID, coupleID string) bool
	ResetWeeklyWindow(userID string, weekStart time.Time) bool
	IncrementWeeklyActivations(userID string) bool
	DeleteUser(id string) bool

	// couples
	AddCouple(c *Couple)
	GetCouple(id string) *Couple
	AppendGardenItem(coupleID string, item GardenItem) bool

	// cycles
	AddCycle(c *Cycle)
	GetCycle(id string) *Cycle
	ListCyclesByCouple(coupleID string) []*Cycle
	UpdateCycleIf(c *Cycle, fromState string) bool

	// audit
	AddAudit(e AuditEntry)
	ListAudit() []AuditEntry
}

var _ Store = (*memoryStore)(nil)
