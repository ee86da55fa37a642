package services

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// WeeklyActivationLimit caps how many cycles one user may activate per
	// rolling 7-day window.
	WeeklyActivationLimit = 3
	// ConcurrentCycleLimit caps a couple's simultaneously active cycles.
	ConcurrentCycleLimit = 3

	weekLength            = 7 * 24 * time.Hour
	defaultInsightTimeout = 10 * time.Second
)

// CycleStore abstracts persistence for the cycle state machine. UpdateCycleIf
// must be a conditional write keyed on (id, fromState) so a lost submit race
// cannot apply on top of a state it did not read.
type CycleStore interface {
	GetQuiz(id string) (*Quiz, error)
	GetUser(id string) (*User, error)
	GetCouple(id string) (*Couple, error)
	ResetWeeklyWindow(userID string, weekStart time.Time) error
	IncrementWeeklyActivations(userID string) error
	CreateCycle(c *Cycle) error
	GetCycle(id string) (*Cycle, error)
	ListCyclesByCouple(coupleID string) ([]*Cycle, error)
	UpdateCycleIf(c *Cycle, fromState CycleState) (bool, error)
}

// CycleService owns the lifecycle of quiz attempts: activation gating,
// submission scoring, and reveal.
type CycleService struct {
	store          CycleStore
	insight        InsightProvider
	insightTimeout time.Duration
	rewards        *RewardSelector
	rng            *rand.Rand

	now   func() time.Time
	idGen func() string

	coupleLocks lockTable
	cycleLocks  lockTable
}

func NewCycleService(store CycleStore, insight InsightProvider, rng *rand.Rand) *CycleService {
	rng = NewLockedRand(rng)
	return &CycleService{
		store:          store,
		insight:        insight,
		insightTimeout: defaultInsightTimeout,
		rewards:        NewRewardSelector(rng),
		rng:            rng,
		now:            func() time.Time { return time.Now().UTC() },
		idGen:          uuid.NewString,
	}
}

// lockTable hands out one mutex per key so unrelated couples and cycles
// never contend with each other.
type lockTable struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (t *lockTable) get(key string) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.locks == nil {
		t.locks = map[string]*sync.Mutex{}
	}
	l, ok := t.locks[key]
	if !ok {
		l = &sync.Mutex{}
		t.locks[key] = l
	}
	return l
}

func nonTerminal(state CycleState) bool { return state != StateRevealed }

// resetWeekIfDue applies the rolling-window reset to a user in place and
// reports whether a reset happened (and must be persisted).
func resetWeekIfDue(u *User, now time.Time) bool {
	if u.WeekStart.IsZero() || now.Sub(u.WeekStart) >= weekLength {
		u.WeeklyActivations = 0
		u.WeekStart = now
		return true
	}
	return false
}

// Activate creates a new cycle for (couple, quiz) after the gate checks
// pass. The checks run under a per-couple lock against one snapshot, in
// order: weekly quota, concurrent quota, duplicate activation.
func (s *CycleService) Activate(coupleID, quizID, userID string) (*Cycle, error) {
	couple, err := s.store.GetCouple(coupleID)
	if err != nil {
		return nil, err
	}
	if couple == nil {
		return nil, NewNotFoundError("couple not found")
	}
	if couple.MemberSlot(userID) == "" {
		return nil, NewNotFoundError("user is not part of this couple")
	}
	quiz, err := s.store.GetQuiz(quizID)
	if err != nil {
		return nil, err
	}
	if quiz == nil {
		return nil, NewNotFoundError("quiz not found")
	}

	lock := s.coupleLocks.get(coupleID)
	lock.Lock()
	defer lock.Unlock()

	// The quota snapshot must be read under the lock: a read taken outside
	// lets two activations pass the weekly check on the same counter.
	user, err := s.store.GetUser(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, NewNotFoundError("user not found")
	}

	now := s.now()
	if resetWeekIfDue(user, now) {
		if err := s.store.ResetWeeklyWindow(userID, now); err != nil {
			return nil, err
		}
	}
	if user.WeeklyActivations >= WeeklyActivationLimit {
		return nil, NewQuotaExceededError("weekly", "weekly activation limit reached")
	}

	cycles, err := s.store.ListCyclesByCouple(coupleID)
	if err != nil {
		return nil, err
	}
	active := 0
	for _, c := range cycles {
		if !nonTerminal(c.State) {
			continue
		}
		active++
		if c.QuizID == quizID {
			return nil, NewConflictError("quiz already active for this couple")
		}
	}
	if active >= ConcurrentCycleLimit {
		return nil, NewQuotaExceededError("concurrent", "too many active cycles")
	}

	// Counter before the cycle row: a failed cycle write must never leave
	// an activation the counter did not account for.
	if err := s.store.IncrementWeeklyActivations(userID); err != nil {
		return nil, err
	}
	cycle := &Cycle{
		ID:          s.idGen(),
		CoupleID:    coupleID,
		QuizID:      quizID,
		State:       StateActivated,
		ActivatedBy: userID,
		CompletedBy: []string{},
		CreatedAt:   now,
	}
	if err := s.store.CreateCycle(cycle); err != nil {
		return nil, err
	}
	return cycle, nil
}

// Submit records one partner's answers. The first submission moves the cycle
// to one_completed; the second computes the combined result and moves it to
// ready_to_reveal. The append-and-check runs under a per-cycle lock plus a
// conditional store write, so the combine step fires exactly once even when
// both partners submit at the same moment.
func (s *CycleService) Submit(cycleID, userID string, answers []Answer) (*Cycle, error) {
	lock := s.cycleLocks.get(cycleID)
	lock.Lock()
	defer lock.Unlock()

	cycle, err := s.store.GetCycle(cycleID)
	if err != nil {
		return nil, err
	}
	if cycle == nil {
		return nil, NewNotFoundError("cycle not found")
	}
	if cycle.Completed(userID) {
		return nil, NewAlreadySubmittedError("quiz already completed by this user")
	}
	if cycle.State != StateActivated && cycle.State != StateOneCompleted {
		return nil, NewInvalidStateError("cycle no longer accepts submissions")
	}
	couple, err := s.store.GetCouple(cycle.CoupleID)
	if err != nil {
		return nil, err
	}
	if couple == nil {
		return nil, NewNotFoundError("couple not found")
	}
	slot := couple.MemberSlot(userID)
	if slot == "" {
		return nil, NewNotFoundError("user is not part of this couple")
	}
	quiz, err := s.store.GetQuiz(cycle.QuizID)
	if err != nil {
		return nil, err
	}
	if quiz == nil {
		return nil, NewNotFoundError("quiz not found")
	}

	prevState := cycle.State
	sub := &Submission{Answers: answers, ClusterSums: ScoreAnswers(quiz, answers)}
	if slot == "a" {
		cycle.SubmissionA = sub
	} else {
		cycle.SubmissionB = sub
	}
	cycle.CompletedBy = append(cycle.CompletedBy, userID)

	if len(cycle.CompletedBy) < 2 {
		cycle.State = StateOneCompleted
	} else {
		s.finishCycle(cycle)
	}

	ok, err := s.store.UpdateCycleIf(cycle, prevState)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, NewConflictError("cycle changed concurrently, refresh and retry")
	}
	return cycle, nil
}

// finishCycle computes the combined result once both submissions are in.
func (s *CycleService) finishCycle(cycle *Cycle) {
	var sumsA, sumsB map[string]int
	if cycle.SubmissionA != nil {
		sumsA = cycle.SubmissionA.ClusterSums
	}
	if cycle.SubmissionB != nil {
		sumsB = cycle.SubmissionB.ClusterSums
	}
	combined := CombineScores(sumsA, sumsB)
	normalized := NormalizeScores(combined)
	tendencies := Tendencies(normalized)
	primary := PrimaryCluster(combined)
	zone := DetermineZone(combined)
	sector := SectorForCluster(primary)

	insight := s.generateInsight(zone, primary, tendencies)
	buff := s.rewards.PickBuff()

	cycle.Result = &CycleResult{
		CombinedScores:   combined,
		NormalizedScores: normalized,
		Tendencies:       tendencies,
		PrimaryCluster:   primary,
		Zone:             zone,
		ZonePalette:      PaletteForZone(zone),
		ZoneSentence:     ZoneSentence(zone, s.rng),
		InsightText:      insight,
		Sector:           sector,
		SectorTint:       TintForSector(sector),
	}
	cycle.Zone = zone
	cycle.Buff = &buff
	cycle.State = StateReadyToReveal
}

// generateInsight asks the provider within a bounded timeout and falls back
// to a local sentence on any failure. Provider errors never surface.
func (s *CycleService) generateInsight(zone Zone, primary string, tendencies map[string]string) string {
	if s.insight != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.insightTimeout)
		defer cancel()
		if text, err := s.insight.Generate(ctx, zone, primary, tendencies); err == nil && strings.TrimSpace(text) != "" {
			return text
		}
	}
	return FallbackInsight(zone, s.rng)
}

// Reveal transitions a ready cycle to its terminal state and draws the three
// reward choices, one per category, tagged with zone and sector.
func (s *CycleService) Reveal(cycleID string) (*Cycle, error) {
	lock := s.cycleLocks.get(cycleID)
	lock.Lock()
	defer lock.Unlock()

	cycle, err := s.store.GetCycle(cycleID)
	if err != nil {
		return nil, err
	}
	if cycle == nil {
		return nil, NewNotFoundError("cycle not found")
	}
	if cycle.State != StateReadyToReveal {
		return nil, NewInvalidStateError("cycle is not ready to reveal")
	}

	sector := "passion"
	if cycle.Result != nil {
		sector = cycle.Result.Sector
	}
	cycle.RewardChoices = s.rewards.PickRewards(cycle.Zone, sector)
	cycle.State = StateRevealed

	ok, err := s.store.UpdateCycleIf(cycle, StateReadyToReveal)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, NewConflictError("cycle changed concurrently, refresh and retry")
	}
	return cycle, nil
}

func (s *CycleService) GetCycle(cycleID string) (*Cycle, error) {
	cycle, err := s.store.GetCycle(cycleID)
	if err != nil {
		return nil, err
	}
	if cycle == nil {
		return nil, NewNotFoundError("cycle not found")
	}
	return cycle, nil
}

func (s *CycleService) ListCycles(coupleID string) ([]*Cycle, error) {
	return s.store.ListCyclesByCouple(coupleID)
}
