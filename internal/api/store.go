package api

import (
	"sort"
	"strings"
	"sync"
	"time"
)

type Quiz struct {
	ID            string            `json:"id"`
	HiddenCluster string            `json:"hidden_cluster"`
	FacetLabel    map[string]string `json:"facet_label,omitempty"`
	Tone          string            `json:"tone,omitempty"`
	Questions     []Question        `json:"questions,omitempty"`
}

type Question struct {
	ID      string   `json:"id"`
	Prompt  string   `json:"prompt"`
	Options []Option `json:"options"`
}

type Option struct {
	ID            string         `json:"id"`
	Label         string         `json:"label"`
	ClusterScores map[string]int `json:"cluster_scores,omitempty"`
}

type User struct {
	ID                string         `json:"id"`
	Name              string         `json:"name"`
	BirthDate         string         `json:"birth_date"`
	BirthTime         string         `json:"birth_time"`
	BirthLocation     string         `json:"birth_location"`
	AstroData         map[string]any `json:"astro_data,omitempty"`
	InviteCode        string         `json:"invite_code,omitempty"`
	CoupleID          string         `json:"couple_id,omitempty"`
	WeeklyActivations int            `json:"weekly_activations"`
	WeekStart         time.Time      `json:"week_start"`
	CreatedAt         time.Time      `json:"created_at"`
}

type Couple struct {
	ID             string    `json:"id"`
	UserAID        string    `json:"user_a_id"`
	UserBID        string    `json:"user_b_id"`
	Interpretation string    `json:"interpretation,omitempty"`
	Garden         *Garden   `json:"garden,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type Garden struct {
	Items []GardenItem `json:"items"`
	Level int          `json:"level"`
}

type GardenItem struct {
	ID        string    `json:"id"`
	ItemID    string    `json:"item_id"`
	PlacedBy  string    `json:"placed_by"`
	PositionX float64   `json:"position_x"`
	PositionY float64   `json:"position_y"`
	PlacedAt  time.Time `json:"placed_at"`
}

type Answer struct {
	QuestionID string `json:"question_id"`
	OptionID   string `json:"option_id"`
}

type Submission struct {
	Answers     []Answer       `json:"answers"`
	ClusterSums map[string]int `json:"cluster_sums"`
}

type Buff struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Line1 string `json:"line1"`
	Line2 string `json:"line2"`
}

type RewardChoice struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Category string `json:"category"`
	Zone     string `json:"zone"`
	Sector   string `json:"sector"`
}

// CycleResult carries the persisted part of a combined outcome. Display
// palettes and tints derive from zone and sector and are recomputed on read.
type CycleResult struct {
	CombinedScores   map[string]int    `json:"combined_scores"`
	NormalizedScores map[string]int    `json:"normalized_scores"`
	Tendencies       map[string]string `json:"tendencies"`
	PrimaryCluster   string            `json:"primary_cluster"`
	Zone             string            `json:"zone"`
	ZoneSentence     string            `json:"zone_sentence"`
	InsightText      string            `json:"insight_text"`
	Sector           string            `json:"sector"`
}

type Cycle struct {
	ID            string         `json:"id"`
	CoupleID      string         `json:"couple_id"`
	QuizID        string         `json:"quiz_id"`
	State         string         `json:"state"`
	ActivatedBy   string         `json:"activated_by"`
	CompletedBy   []string       `json:"completed_by"`
	SubmissionA   *Submission    `json:"submission_a,omitempty"`
	SubmissionB   *Submission    `json:"submission_b,omitempty"`
	Result        *CycleResult   `json:"result,omitempty"`
	Zone          string         `json:"zone,omitempty"`
	Buff          *Buff          `json:"buff,omitempty"`
	RewardChoices []RewardChoice `json:"reward_choices,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

type AuditEntry struct {
	Time   time.Time `json:"time"`
	Actor  string    `json:"actor"`
	Action string    `json:"action"`
	Target string    `json:"target"`
	Note   string    `json:"note,omitempty"`
}

type memoryStore struct {
	mu      sync.RWMutex
	quizzes map[string]*Quiz
	quizIDs []string
	users   map[string]*User
	couples map[string]*Couple
	cycles  map[string]*Cycle
	audit   []AuditEntry
}

// NewMemoryStore returns an in-process Store, used when no sqlite path is
// configured and in tests.
func NewMemoryStore() Store {
	return newMemoryStore()
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		quizzes: map[string]*Quiz{},
		users:   map[string]*User{},
		couples: map[string]*Couple{},
		cycles:  map[string]*Cycle{},
	}
}

func cloneUser(u *User) *User {
	if u == nil {
		return nil
	}
	cp := *u
	return &cp
}

func cloneCouple(c *Couple) *Couple {
	if c == nil {
		return nil
	}
	cp := *c
	if c.Garden != nil {
		g := *c.Garden
		g.Items = append([]GardenItem(nil), c.Garden.Items...)
		cp.Garden = &g
	}
	return &cp
}

func cloneCycle(c *Cycle) *Cycle {
	if c == nil {
		return nil
	}
	cp := *c
	cp.CompletedBy = append([]string(nil), c.CompletedBy...)
	cp.RewardChoices = append([]RewardChoice(nil), c.RewardChoices...)
	if c.SubmissionA != nil {
		sub := *c.SubmissionA
		cp.SubmissionA = &sub
	}
	if c.SubmissionB != nil {
		sub := *c.SubmissionB
		cp.SubmissionB = &sub
	}
	if c.Result != nil {
		res := *c.Result
		cp.Result = &res
	}
	return &cp
}

// --- quizzes ---

func (s *memoryStore) AddQuiz(q *Quiz) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[q.ID]; !ok {
		s.quizIDs = append(s.quizIDs, q.ID)
		sort.Strings(s.quizIDs)
	}
	s.quizzes[q.ID] = q
}

func (s *memoryStore) GetQuiz(id string) *Quiz {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.quizzes[id]
}

func (s *memoryStore) ListQuizzes() []*Quiz {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Quiz, 0, len(s.quizIDs))
	for _, id := range s.quizIDs {
		out = append(out, s.quizzes[id])
	}
	return out
}

// --- users ---

func (s *memoryStore) AddUser(u *User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = cloneUser(u)
}

func (s *memoryStore) GetUser(id string) *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneUser(s.users[id])
}

func (s *memoryStore) FindUserByInviteCode(code string) *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.InviteCode != "" && strings.EqualFold(u.InviteCode, code) {
			return cloneUser(u)
		}
	}
	return nil
}

func (s *memoryStore) SetUserCouple(userID, coupleID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return false
	}
	u.CoupleID = coupleID
	return true
}

func (s *memoryStore) ResetWeeklyWindow(userID string, weekStart time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return false
	}
	u.WeeklyActivations = 0
	u.WeekStart = weekStart
	return true
}

func (s *memoryStore) IncrementWeeklyActivations(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return false
	}
	u.WeeklyActivations++
	return true
}

func (s *memoryStore) DeleteUser(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return false
	}
	delete(s.users, id)
	return true
}

// --- couples ---

func (s *memoryStore) AddCouple(c *Couple) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.couples[c.ID] = cloneCouple(c)
}

func (s *memoryStore) GetCouple(id string) *Couple {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneCouple(s.couples[id])
}

func (s *memoryStore) AppendGardenItem(coupleID string, item GardenItem) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.couples[coupleID]
	if !ok {
		return false
	}
	if c.Garden == nil {
		c.Garden = &Garden{Items: []GardenItem{}, Level: 1}
	}
	c.Garden.Items = append(c.Garden.Items, item)
	return true
}

// --- cycles ---

func (s *memoryStore) AddCycle(c *Cycle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cycles[c.ID] = cloneCycle(c)
}

func (s *memoryStore) GetCycle(id string) *Cycle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneCycle(s.cycles[id])
}

func (s *memoryStore) ListCyclesByCouple(coupleID string) []*Cycle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*Cycle{}
	for _, c := range s.cycles {
		if c.CoupleID == coupleID {
			out = append(out, cloneCycle(c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// UpdateCycleIf replaces the stored cycle only when its current state still
// matches fromState. This is the single-writer guarantee the submit race
// relies on.
func (s *memoryStore) UpdateCycleIf(c *Cycle, fromState string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.cycles[c.ID]
	if !ok || cur.State != fromState {
		return false
	}
	s.cycles[c.ID] = cloneCycle(c)
	return true
}

// --- audit ---

func (s *memoryStore) AddAudit(e AuditEntry) {
	s.mu.Lock()
	s.audit = append(s.audit, e)
	s.mu.Unlock()
}

func (s *memoryStore) ListAudit() []AuditEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]AuditEntry, len(s.audit))
	copy(out, s.audit)
	return out
}
