package services

// StatsStore abstracts the reads behind couple statistics.
type StatsStore interface {
	GetCouple(id string) (*Couple, error)
	ListCyclesByCouple(coupleID string) ([]*Cycle, error)
}

// StatsService aggregates revealed cycles into a couple summary.
type StatsService struct {
	store StatsStore
}

func NewStatsService(store StatsStore) *StatsService {
	return &StatsService{store: store}
}

type CoupleStats struct {
	CoupleID      string         `json:"couple_id"`
	RevealedCount int            `json:"revealed_count"`
	ActiveCount   int            `json:"active_count"`
	ZoneCounts    map[Zone]int   `json:"zone_counts"`
	ClusterTotals map[string]int `json:"cluster_totals"`
}

// Summary tallies zone distribution and per-cluster combined totals over all
// revealed cycles. Active cycles only contribute to the active count.
func (s *StatsService) Summary(coupleID string) (*CoupleStats, error) {
	couple, err := s.store.GetCouple(coupleID)
	if err != nil {
		return nil, err
	}
	if couple == nil {
		return nil, NewNotFoundError("couple not found")
	}
	cycles, err := s.store.ListCyclesByCouple(coupleID)
	if err != nil {
		return nil, err
	}
	stats := &CoupleStats{
		CoupleID:      coupleID,
		ZoneCounts:    map[Zone]int{},
		ClusterTotals: map[string]int{},
	}
	for _, c := range cycles {
		if c.State != StateRevealed {
			stats.ActiveCount++
			continue
		}
		stats.RevealedCount++
		if c.Result == nil {
			continue
		}
		stats.ZoneCounts[c.Result.Zone]++
		for cluster, v := range c.Result.CombinedScores {
			stats.ClusterTotals[cluster] += v
		}
	}
	return stats, nil
}
