package services

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"
)

type stubCycleStore struct {
	mu      sync.Mutex
	quizzes map[string]*Quiz
	users   map[string]*User
	couples map[string]*Couple
	cycles  map[string]*Cycle
}

func newStubCycleStore() *stubCycleStore {
	return &stubCycleStore{
		quizzes: map[string]*Quiz{},
		users:   map[string]*User{},
		couples: map[string]*Couple{},
		cycles:  map[string]*Cycle{},
	}
}

func (s *stubCycleStore) GetQuiz(id string) (*Quiz, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quizzes[id], nil
}

func (s *stubCycleStore) GetUser(id string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (s *stubCycleStore) GetCouple(id string) (*Couple, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.couples[id], nil
}

func (s *stubCycleStore) ResetWeeklyWindow(userID string, weekStart time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[userID]
	u.WeeklyActivations = 0
	u.WeekStart = weekStart
	return nil
}

func (s *stubCycleStore) IncrementWeeklyActivations(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[userID].WeeklyActivations++
	return nil
}

func copyCycle(c *Cycle) *Cycle {
	cp := *c
	cp.CompletedBy = append([]string(nil), c.CompletedBy...)
	return &cp
}

func (s *stubCycleStore) CreateCycle(c *Cycle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cycles[c.ID] = copyCycle(c)
	return nil
}

func (s *stubCycleStore) GetCycle(id string) (*Cycle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cycles[id]
	if !ok {
		return nil, nil
	}
	return copyCycle(c), nil
}

func (s *stubCycleStore) ListCyclesByCouple(coupleID string) ([]*Cycle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Cycle
	for _, c := range s.cycles {
		if c.CoupleID == coupleID {
			out = append(out, copyCycle(c))
		}
	}
	return out, nil
}

func (s *stubCycleStore) UpdateCycleIf(c *Cycle, fromState CycleState) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.cycles[c.ID]
	if !ok || cur.State != fromState {
		return false, nil
	}
	s.cycles[c.ID] = copyCycle(c)
	return true, nil
}

var testBase = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestCycleService(t *testing.T) (*CycleService, *stubCycleStore) {
	t.Helper()
	store := newStubCycleStore()
	store.quizzes["words_test"] = testQuiz()
	store.users["u1"] = &User{ID: "u1", Name: "Ava", CoupleID: "c1", WeekStart: testBase}
	store.users["u2"] = &User{ID: "u2", Name: "Ben", CoupleID: "c1", WeekStart: testBase}
	store.couples["c1"] = &Couple{ID: "c1", UserAID: "u1", UserBID: "u2"}

	svc := NewCycleService(store, nil, rand.New(rand.NewSource(1)))
	svc.now = func() time.Time { return testBase }
	n := 0
	svc.idGen = func() string { n++; return fmt.Sprintf("cycle-%d", n) }
	return svc, store
}

func mustBeServiceError(t *testing.T, err error, code ErrorCode) *ServiceError {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	se, ok := AsServiceError(err)
	if !ok {
		t.Fatalf("expected ServiceError, got %T: %v", err, err)
	}
	if se.Code != code {
		t.Fatalf("error code = %s, want %s (%v)", se.Code, code, err)
	}
	return se
}

func TestActivateCreatesCycle(t *testing.T) {
	svc, store := newTestCycleService(t)
	cycle, err := svc.Activate("c1", "words_test", "u1")
	if err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if cycle.State != StateActivated {
		t.Errorf("state = %s, want activated", cycle.State)
	}
	if cycle.ActivatedBy != "u1" {
		t.Errorf("activated_by = %s", cycle.ActivatedBy)
	}
	if store.users["u1"].WeeklyActivations != 1 {
		t.Errorf("weekly activations = %d, want 1", store.users["u1"].WeeklyActivations)
	}
}

func TestActivateUnknownRefs(t *testing.T) {
	svc, _ := newTestCycleService(t)
	if _, err := svc.Activate("c1", "nope", "u1"); err == nil {
		t.Fatal("expected error for unknown quiz")
	}
	if _, err := svc.Activate("nope", "words_test", "u1"); err == nil {
		t.Fatal("expected error for unknown couple")
	}
	_, err := svc.Activate("c1", "words_test", "stranger")
	mustBeServiceError(t, err, ErrorNotFound)
}

func TestActivateDuplicateQuiz(t *testing.T) {
	svc, _ := newTestCycleService(t)
	if _, err := svc.Activate("c1", "words_test", "u1"); err != nil {
		t.Fatalf("first Activate: %v", err)
	}
	_, err := svc.Activate("c1", "words_test", "u2")
	mustBeServiceError(t, err, ErrorConflict)
}

func TestActivateWeeklyQuotaAndReset(t *testing.T) {
	svc, store := newTestCycleService(t)
	store.users["u1"].WeeklyActivations = WeeklyActivationLimit

	_, err := svc.Activate("c1", "words_test", "u1")
	se := mustBeServiceError(t, err, ErrorQuotaExceeded)
	if se.Limit != "weekly" {
		t.Fatalf("limit = %s, want weekly", se.Limit)
	}

	// the partner's own counter is untouched
	if _, err := svc.Activate("c1", "words_test", "u2"); err != nil {
		t.Fatalf("partner Activate: %v", err)
	}

	// seven days later the window rolls over
	svc.now = func() time.Time { return testBase.Add(7 * 24 * time.Hour) }
	store.quizzes["touch_test"] = &Quiz{ID: "touch_test", HiddenCluster: "touch", Questions: testQuiz().Questions}
	if _, err := svc.Activate("c1", "touch_test", "u1"); err != nil {
		t.Fatalf("Activate after reset: %v", err)
	}
	if store.users["u1"].WeeklyActivations != 1 {
		t.Errorf("weekly activations after reset = %d, want 1", store.users["u1"].WeeklyActivations)
	}
}

func TestActivateConcurrentLimit(t *testing.T) {
	svc, store := newTestCycleService(t)
	for i := 0; i < ConcurrentCycleLimit; i++ {
		id := fmt.Sprintf("quiz-%d", i)
		store.quizzes[id] = &Quiz{ID: id, HiddenCluster: "time", Questions: testQuiz().Questions}
		store.cycles[fmt.Sprintf("active-%d", i)] = &Cycle{
			ID: fmt.Sprintf("active-%d", i), CoupleID: "c1", QuizID: id, State: StateActivated,
		}
	}

	_, err := svc.Activate("c1", "words_test", "u1")
	se := mustBeServiceError(t, err, ErrorQuotaExceeded)
	if se.Limit != "concurrent" {
		t.Fatalf("limit = %s, want concurrent", se.Limit)
	}

	// a revealed cycle frees its slot
	store.cycles["active-0"].State = StateRevealed
	if _, err := svc.Activate("c1", "words_test", "u1"); err != nil {
		t.Fatalf("Activate after slot freed: %v", err)
	}
}

func TestActivateWeeklyQuotaConcurrent(t *testing.T) {
	svc, store := newTestCycleService(t)
	const attempts = 8
	for i := 0; i < attempts; i++ {
		id := fmt.Sprintf("quiz-%d", i)
		store.quizzes[id] = &Quiz{ID: id, HiddenCluster: "time", Questions: testQuiz().Questions}
	}

	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Activate("c1", fmt.Sprintf("quiz-%d", i), "u1")
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		se := mustBeServiceError(t, err, ErrorQuotaExceeded)
		if se.Limit != "weekly" {
			t.Fatalf("limit = %s, want weekly", se.Limit)
		}
	}
	if successes != WeeklyActivationLimit {
		t.Fatalf("successes = %d, want %d", successes, WeeklyActivationLimit)
	}
	if got := store.users["u1"].WeeklyActivations; got != WeeklyActivationLimit {
		t.Fatalf("weekly activations = %d, want %d", got, WeeklyActivationLimit)
	}
	if got := len(store.cycles); got != WeeklyActivationLimit {
		t.Fatalf("cycles created = %d, want %d", got, WeeklyActivationLimit)
	}
}

type failingIncrementStore struct {
	*stubCycleStore
}

func (s *failingIncrementStore) IncrementWeeklyActivations(userID string) error {
	return fmt.Errorf("disk full")
}

func TestActivateCounterFailureCreatesNoCycle(t *testing.T) {
	svc, store := newTestCycleService(t)
	svc.store = &failingIncrementStore{stubCycleStore: store}

	if _, err := svc.Activate("c1", "words_test", "u1"); err == nil {
		t.Fatal("expected error from counter write")
	}
	if got := len(store.cycles); got != 0 {
		t.Fatalf("cycles created = %d, want none", got)
	}
}

func TestSubmitLifecycle(t *testing.T) {
	svc, _ := newTestCycleService(t)
	cycle, err := svc.Activate("c1", "words_test", "u1")
	if err != nil {
		t.Fatalf("Activate: %v", err)
	}

	answers := []Answer{{QuestionID: "q1", OptionID: "a"}, {QuestionID: "q2", OptionID: "a"}}
	c, err := svc.Submit(cycle.ID, "u1", answers)
	if err != nil {
		t.Fatalf("first Submit: %v", err)
	}
	if c.State != StateOneCompleted {
		t.Fatalf("state = %s, want one_completed", c.State)
	}
	if c.SubmissionA == nil || c.SubmissionA.ClusterSums["words"] != 20 {
		t.Fatalf("submission a = %+v", c.SubmissionA)
	}
	if c.Result != nil {
		t.Fatal("result must not exist before both submitted")
	}

	c, err = svc.Submit(cycle.ID, "u2", []Answer{{QuestionID: "q1", OptionID: "b"}, {QuestionID: "q2", OptionID: "b"}})
	if err != nil {
		t.Fatalf("second Submit: %v", err)
	}
	if c.State != StateReadyToReveal {
		t.Fatalf("state = %s, want ready_to_reveal", c.State)
	}
	if c.Result == nil {
		t.Fatal("missing result")
	}
	if c.Result.CombinedScores["words"] != 20 || c.Result.CombinedScores["gifts"] != 8 {
		t.Errorf("combined = %v", c.Result.CombinedScores)
	}
	if c.Result.NormalizedScores["words"] != 100 {
		t.Errorf("normalized = %v", c.Result.NormalizedScores)
	}
	if c.Result.PrimaryCluster != "words" {
		t.Errorf("primary = %s", c.Result.PrimaryCluster)
	}
	if c.Result.InsightText == "" || c.Result.ZoneSentence == "" {
		t.Error("insight and zone sentence must be filled locally")
	}
	if c.Buff == nil {
		t.Error("missing buff")
	}
	if c.Zone == "" {
		t.Error("missing zone")
	}

	c, err = svc.Reveal(cycle.ID)
	if err != nil {
		t.Fatalf("Reveal: %v", err)
	}
	if c.State != StateRevealed {
		t.Fatalf("state = %s, want revealed", c.State)
	}
	if len(c.RewardChoices) != len(RewardCategories) {
		t.Fatalf("rewards = %d, want %d", len(c.RewardChoices), len(RewardCategories))
	}
	seen := map[string]bool{}
	for _, r := range c.RewardChoices {
		seen[r.Category] = true
		if r.Zone != c.Zone {
			t.Errorf("reward zone = %s, want %s", r.Zone, c.Zone)
		}
	}
	for _, cat := range RewardCategories {
		if !seen[cat] {
			t.Errorf("missing reward category %s", cat)
		}
	}
}

func TestSubmitTwiceRejected(t *testing.T) {
	svc, _ := newTestCycleService(t)
	cycle, _ := svc.Activate("c1", "words_test", "u1")
	if _, err := svc.Submit(cycle.ID, "u1", []Answer{{QuestionID: "q1", OptionID: "a"}}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	_, err := svc.Submit(cycle.ID, "u1", []Answer{{QuestionID: "q1", OptionID: "b"}})
	mustBeServiceError(t, err, ErrorAlreadySubmitted)
}

func TestSubmitNonMemberRejected(t *testing.T) {
	svc, store := newTestCycleService(t)
	store.users["u3"] = &User{ID: "u3", Name: "Eve", WeekStart: testBase}
	cycle, _ := svc.Activate("c1", "words_test", "u1")
	_, err := svc.Submit(cycle.ID, "u3", []Answer{{QuestionID: "q1", OptionID: "a"}})
	mustBeServiceError(t, err, ErrorNotFound)
}

func TestSubmitAfterRevealRejected(t *testing.T) {
	svc, _ := newTestCycleService(t)
	cycle, _ := svc.Activate("c1", "words_test", "u1")
	svcSubmitBoth(t, svc, cycle.ID)
	if _, err := svc.Reveal(cycle.ID); err != nil {
		t.Fatalf("Reveal: %v", err)
	}
	_, err := svc.Submit(cycle.ID, "u1", []Answer{{QuestionID: "q1", OptionID: "a"}})
	mustBeServiceError(t, err, ErrorAlreadySubmitted)
}

func svcSubmitBoth(t *testing.T, svc *CycleService, cycleID string) {
	t.Helper()
	if _, err := svc.Submit(cycleID, "u1", []Answer{{QuestionID: "q1", OptionID: "a"}}); err != nil {
		t.Fatalf("Submit u1: %v", err)
	}
	if _, err := svc.Submit(cycleID, "u2", []Answer{{QuestionID: "q1", OptionID: "b"}}); err != nil {
		t.Fatalf("Submit u2: %v", err)
	}
}

func TestRevealRequiresReadyState(t *testing.T) {
	svc, _ := newTestCycleService(t)
	cycle, _ := svc.Activate("c1", "words_test", "u1")
	_, err := svc.Reveal(cycle.ID)
	mustBeServiceError(t, err, ErrorInvalidState)

	if _, err := svc.Submit(cycle.ID, "u1", []Answer{{QuestionID: "q1", OptionID: "a"}}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	_, err = svc.Reveal(cycle.ID)
	mustBeServiceError(t, err, ErrorInvalidState)
}

func TestConcurrentSubmitsCombineOnce(t *testing.T) {
	svc, store := newTestCycleService(t)
	cycle, err := svc.Activate("c1", "words_test", "u1")
	if err != nil {
		t.Fatalf("Activate: %v", err)
	}

	var wg sync.WaitGroup
	for _, uid := range []string{"u1", "u2"} {
		wg.Add(1)
		go func(uid string) {
			defer wg.Done()
			if _, err := svc.Submit(cycle.ID, uid, []Answer{{QuestionID: "q1", OptionID: "a"}}); err != nil {
				t.Errorf("Submit %s: %v", uid, err)
			}
		}(uid)
	}
	wg.Wait()

	final, _ := store.GetCycle(cycle.ID)
	if final.State != StateReadyToReveal {
		t.Fatalf("state = %s, want ready_to_reveal", final.State)
	}
	if final.SubmissionA == nil || final.SubmissionB == nil {
		t.Fatal("both submissions must be stored")
	}
	if len(final.CompletedBy) != 2 {
		t.Fatalf("completed_by = %v", final.CompletedBy)
	}
}

func TestConcurrentFinishesAcrossCycles(t *testing.T) {
	svc, store := newTestCycleService(t)
	const n = 16
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("open-%d", i)
		store.cycles[id] = &Cycle{
			ID:          id,
			CoupleID:    "c1",
			QuizID:      "words_test",
			State:       StateOneCompleted,
			ActivatedBy: "u1",
			CompletedBy: []string{"u1"},
			SubmissionA: &Submission{ClusterSums: map[string]int{"words": 20}},
			CreatedAt:   testBase,
		}
	}

	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Submit(fmt.Sprintf("open-%d", i), "u2", []Answer{{QuestionID: "q1", OptionID: "b"}})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("Submit open-%d: %v", i, err)
		}
	}
	for i := 0; i < n; i++ {
		c, _ := store.GetCycle(fmt.Sprintf("open-%d", i))
		if c.State != StateReadyToReveal || c.Result == nil || c.Buff == nil {
			t.Fatalf("cycle open-%d: state=%s result=%v buff=%v", i, c.State, c.Result, c.Buff)
		}
	}
}

func TestRevealIdempotenceRejected(t *testing.T) {
	svc, _ := newTestCycleService(t)
	cycle, _ := svc.Activate("c1", "words_test", "u1")
	svcSubmitBoth(t, svc, cycle.ID)
	if _, err := svc.Reveal(cycle.ID); err != nil {
		t.Fatalf("Reveal: %v", err)
	}
	_, err := svc.Reveal(cycle.ID)
	mustBeServiceError(t, err, ErrorInvalidState)
}
