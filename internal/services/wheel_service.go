package services

import "time"

// WheelStore abstracts the reads behind the per-viewer wheel projection.
type WheelStore interface {
	ListQuizzes() ([]*Quiz, error)
	ListCyclesByCouple(coupleID string) ([]*Cycle, error)
	GetUser(id string) (*User, error)
	ResetWeeklyWindow(userID string, weekStart time.Time) error
}

// WheelService computes the read-only quiz wheel: every quiz with its
// viewer-relative state plus the remaining quota counters.
type WheelService struct {
	store WheelStore
	now   func() time.Time
}

func NewWheelService(store WheelStore) *WheelService {
	return &WheelService{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

type WheelNode struct {
	QuizID         string            `json:"quiz_id"`
	Cluster        string            `json:"cluster"`
	FacetLabel     map[string]string `json:"facet_label,omitempty"`
	Sector         string            `json:"sector"`
	SectorTint     SectorTint        `json:"sector_tint"`
	State          string            `json:"state"`
	CycleID        string            `json:"cycle_id,omitempty"`
	QuestionCount  int               `json:"question_count"`
	TimesCompleted int               `json:"times_completed"`
}

type WheelProjection struct {
	Nodes             []WheelNode `json:"nodes"`
	WeeklyActivations int         `json:"weekly_activations"`
	ActiveCount       int         `json:"active_count"`
	CanActivate       bool        `json:"can_activate"`
	SeedsRemaining    int         `json:"seeds_remaining"`
	SlotsRemaining    int         `json:"slots_remaining"`
}

// viewState projects an engine state onto a viewer-relative label.
func viewState(c *Cycle, viewerID string) string {
	switch c.State {
	case StateActivated:
		if c.ActivatedBy == viewerID {
			return ViewActivatedByMe
		}
		return ViewActivatedByPartner
	case StateOneCompleted:
		if c.Completed(viewerID) {
			return ViewCompletedByMeWaiting
		}
		return ViewCompletedByPartnerWaiting
	case StateReadyToReveal:
		return ViewReadyToReveal
	case StateRevealed:
		return ViewRevealed
	}
	return ViewAvailable
}

// ProjectWheel builds the wheel for one viewer. The weekly reset is applied
// inline so stale counters never mislead the client.
func (s *WheelService) ProjectWheel(coupleID, viewerID string) (*WheelProjection, error) {
	user, err := s.store.GetUser(viewerID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, NewNotFoundError("user not found")
	}
	quizzes, err := s.store.ListQuizzes()
	if err != nil {
		return nil, err
	}
	cycles, err := s.store.ListCyclesByCouple(coupleID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if resetWeekIfDue(user, now) {
		if err := s.store.ResetWeeklyWindow(viewerID, now); err != nil {
			return nil, err
		}
	}

	active := 0
	activeByQuiz := map[string]*Cycle{}
	revealedByQuiz := map[string]int{}
	for _, c := range cycles {
		if nonTerminal(c.State) {
			active++
			activeByQuiz[c.QuizID] = c
		} else {
			revealedByQuiz[c.QuizID]++
		}
	}

	nodes := make([]WheelNode, 0, len(quizzes))
	for _, q := range quizzes {
		sector := SectorForCluster(q.HiddenCluster)
		node := WheelNode{
			QuizID:         q.ID,
			Cluster:        q.HiddenCluster,
			FacetLabel:     q.FacetLabel,
			Sector:         sector,
			SectorTint:     TintForSector(sector),
			State:          ViewAvailable,
			QuestionCount:  len(q.Questions),
			TimesCompleted: revealedByQuiz[q.ID],
		}
		if c := activeByQuiz[q.ID]; c != nil {
			node.State = viewState(c, viewerID)
			node.CycleID = c.ID
		}
		nodes = append(nodes, node)
	}

	return &WheelProjection{
		Nodes:             nodes,
		WeeklyActivations: user.WeeklyActivations,
		ActiveCount:       active,
		CanActivate:       user.WeeklyActivations < WeeklyActivationLimit && active < ConcurrentCycleLimit,
		SeedsRemaining:    WeeklyActivationLimit - user.WeeklyActivations,
		SlotsRemaining:    ConcurrentCycleLimit - active,
	}, nil
}
