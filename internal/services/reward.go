package services

import "math/rand"

// BuffLibrary is the fixed set of relationship buffs. Selection is uniform
// and independent of zone: buffs are mood-lifters, not graded feedback.
var BuffLibrary = []Buff{
	{ID: "repair_gentle", Name: "Sanfter Anker", Line1: "Manchmal ist es okay, kurz zu pausieren.", Line2: "Atmet einmal gemeinsam durch – ohne Worte."},
	{ID: "clarity_mirror", Name: "Klarheitsspiegel", Line1: "Ihr seht einander ein bisschen deutlicher.", Line2: "Fragt heute: Was hast du heute gefühlt, aber nicht gesagt?"},
	{ID: "ritual_spark", Name: "Ritualfunke", Line1: "Kleine Rituale halten euch verbunden.", Line2: "Startet den Morgen mit einer kurzen Berührung."},
	{ID: "trust_bloom", Name: "Vertrauensblüte", Line1: "Vertrauen wächst in kleinen Momenten.", Line2: "Teilt heute eine Erinnerung, die euch zum Lächeln bringt."},
	{ID: "play_wave", Name: "Spielwelle", Line1: "Leichtigkeit ist eine Superkraft.", Line2: "Tut heute etwas Albernes zusammen – nur für euch."},
}

type rewardItem struct {
	ID   string
	Name string
	Type string
}

// RewardCategories is the fixed category order; every reveal yields exactly
// one item per category.
var RewardCategories = []string{"plant", "land", "deco"}

var rewardItems = map[string][]rewardItem{
	"plant": {
		{ID: "crystal_lily", Name: "Kristalllilie", Type: "plant"},
		{ID: "prism_rose", Name: "Prismenrose", Type: "plant"},
		{ID: "facet_fern", Name: "Facettenfarn", Type: "plant"},
	},
	"land": {
		{ID: "moss_tile", Name: "Moosstein", Type: "land"},
		{ID: "water_shard", Name: "Wassersplitter", Type: "land"},
		{ID: "earth_chunk", Name: "Erdstück", Type: "land"},
	},
	"deco": {
		{ID: "glow_lantern", Name: "Leuchtlaterne", Type: "deco"},
		{ID: "star_stone", Name: "Sternstein", Type: "deco"},
		{ID: "crystal_shard", Name: "Kristallsplitter", Type: "deco"},
	},
}

// RewardSelector draws buffs and reward choices from the fixed libraries.
// The random source is injected so callers (and tests) control seeding.
type RewardSelector struct {
	rng *rand.Rand
}

func NewRewardSelector(rng *rand.Rand) *RewardSelector {
	return &RewardSelector{rng: rng}
}

// PickBuff selects one buff uniformly from the library.
func (s *RewardSelector) PickBuff() Buff {
	return BuffLibrary[s.rng.Intn(len(BuffLibrary))]
}

// PickRewards selects one candidate per category, tagged with the resolved
// zone and sector. The result always has exactly one item per category.
func (s *RewardSelector) PickRewards(zone Zone, sector string) []RewardChoice {
	out := make([]RewardChoice, 0, len(RewardCategories))
	for _, cat := range RewardCategories {
		pool := rewardItems[cat]
		item := pool[s.rng.Intn(len(pool))]
		out = append(out, RewardChoice{
			ID:       item.ID,
			Name:     item.Name,
			Type:     item.Type,
			Category: cat,
			Zone:     zone,
			Sector:   sector,
		})
	}
	return out
}
