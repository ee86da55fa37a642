package services

import "time"

// Zone is the qualitative resonance classification of a combined result.
type Zone string

const (
	ZoneFlow  Zone = "flow"
	ZoneSpark Zone = "spark"
	ZoneTalk  Zone = "talk"
)

// CycleState is the lifecycle state of one quiz attempt. "available" never
// exists as a stored state; it is the absence of a cycle.
type CycleState string

const (
	StateActivated     CycleState = "activated"
	StateOneCompleted  CycleState = "one_completed"
	StateReadyToReveal CycleState = "ready_to_reveal"
	StateRevealed      CycleState = "revealed"
)

// Per-viewer projections of a cycle state, computed at read time.
const (
	ViewAvailable                 = "available"
	ViewActivatedByMe             = "activated_by_me"
	ViewActivatedByPartner        = "activated_by_partner"
	ViewCompletedByMeWaiting      = "completed_by_me_waiting"
	ViewCompletedByPartnerWaiting = "completed_by_partner_waiting"
	ViewReadyToReveal             = "ready_to_reveal"
	ViewRevealed                  = "revealed"
)

// Tendency labels for a normalized cluster score.
const (
	TendencyHigh     = "high"
	TendencyMedium   = "medium"
	TendencyBuilding = "building"
)

// clusterToSector maps every known cluster onto its cosmetic sector.
// Catalog validation rejects quizzes whose options score outside this set.
var clusterToSector = map[string]string{
	"words":     "passion",
	"touch":     "passion",
	"passion":   "passion",
	"time":      "stability",
	"service":   "stability",
	"stability": "stability",
	"gifts":     "future",
	"future":    "future",
}

// SectorForCluster returns the sector a cluster belongs to, defaulting to
// "passion" for unknown names so read paths never fail on legacy data.
func SectorForCluster(cluster string) string {
	if s, ok := clusterToSector[cluster]; ok {
		return s
	}
	return "passion"
}

// KnownCluster reports whether a cluster name is part of the validated set.
func KnownCluster(cluster string) bool {
	_, ok := clusterToSector[cluster]
	return ok
}

type SectorTint struct {
	Base string `json:"base"`
	Name string `json:"name"`
}

var sectorTints = map[string]SectorTint{
	"passion":   {Base: "#E8457A", Name: "Rose-Magenta"},
	"stability": {Base: "#2DD4BF", Name: "Teal-Grün"},
	"future":    {Base: "#A78BFA", Name: "Gold-Violett"},
}

// TintForSector returns the display tint for a sector.
func TintForSector(sector string) SectorTint { return sectorTints[sector] }

type ZonePalette struct {
	Hue            string `json:"hue"`
	Saturation     string `json:"saturation"`
	Highlight      string `json:"highlight"`
	FacetSharpness string `json:"facet_sharpness"`
	Glow           string `json:"glow"`
}

var zonePalettes = map[Zone]ZonePalette{
	ZoneFlow:  {Hue: "lilac-violet-blue", Saturation: "medium", Highlight: "moonlit-silver", FacetSharpness: "low", Glow: "subtle"},
	ZoneSpark: {Hue: "amber-orange-gold", Saturation: "high", Highlight: "warm-gold", FacetSharpness: "high", Glow: "subtle"},
	ZoneTalk:  {Hue: "mauve-teal-stone", Saturation: "low", Highlight: "cool-sage", FacetSharpness: "medium", Glow: "none"},
}

// PaletteForZone returns the display palette for a zone.
func PaletteForZone(z Zone) ZonePalette { return zonePalettes[z] }

// Quiz is an immutable quiz definition from the catalog.
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

// Answer is one submitted (question, option) pair.
type Answer struct {
	QuestionID string `json:"question_id"`
	OptionID   string `json:"option_id"`
}

// Submission holds one partner's raw answers and derived per-cluster sums.
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
	Zone     Zone   `json:"zone"`
	Sector   string `json:"sector"`
}

// CycleResult is the combined outcome, present only once both partners have
// submitted.
type CycleResult struct {
	CombinedScores   map[string]int    `json:"combined_scores"`
	NormalizedScores map[string]int    `json:"normalized_scores"`
	Tendencies       map[string]string `json:"tendencies"`
	PrimaryCluster   string            `json:"primary_cluster"`
	Zone             Zone              `json:"zone"`
	ZonePalette      ZonePalette       `json:"zone_palette"`
	ZoneSentence     string            `json:"zone_sentence"`
	InsightText      string            `json:"insight_text"`
	Sector           string            `json:"sector"`
	SectorTint       SectorTint        `json:"sector_tint"`
}

// Cycle is one quiz attempt scoped to a couple and a quiz.
type Cycle struct {
	ID            string         `json:"id"`
	CoupleID      string         `json:"couple_id"`
	QuizID        string         `json:"quiz_id"`
	State         CycleState     `json:"state"`
	ActivatedBy   string         `json:"activated_by"`
	CompletedBy   []string       `json:"completed_by"`
	SubmissionA   *Submission    `json:"submission_a,omitempty"`
	SubmissionB   *Submission    `json:"submission_b,omitempty"`
	Result        *CycleResult   `json:"result,omitempty"`
	Zone          Zone           `json:"zone,omitempty"`
	Buff          *Buff          `json:"buff,omitempty"`
	RewardChoices []RewardChoice `json:"reward_choices,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// Completed reports whether the given user already submitted for this cycle.
func (c *Cycle) Completed(userID string) bool {
	for _, id := range c.CompletedBy {
		if id == userID {
			return true
		}
	}
	return false
}

// User is one half of a couple, including weekly activation quota state.
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

// MemberSlot reports which couple slot a user occupies: "a", "b", or "" if
// the user is not part of the couple.
func (c *Couple) MemberSlot(userID string) string {
	switch userID {
	case c.UserAID:
		return "a"
	case c.UserBID:
		return "b"
	}
	return ""
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

type AuditEntry struct {
	Time   time.Time
	Actor  string
	Action string
	Target string
	Note   string
}
