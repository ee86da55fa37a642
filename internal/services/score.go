package services

import (
	"math"
	"sort"
)

// ScoreAnswers folds one partner's answers into per-cluster integer sums.
// Answers that reference an unknown question or option are skipped rather
// than rejected, so partial or stale submissions still score what they can.
func ScoreAnswers(quiz *Quiz, answers []Answer) map[string]int {
	sums := map[string]int{}
	if quiz == nil {
		return sums
	}
	byQuestion := make(map[string]*Question, len(quiz.Questions))
	for i := range quiz.Questions {
		q := &quiz.Questions[i]
		if _, ok := byQuestion[q.ID]; !ok {
			byQuestion[q.ID] = q
		}
	}
	for _, ans := range answers {
		q := byQuestion[ans.QuestionID]
		if q == nil {
			continue
		}
		for i := range q.Options {
			if q.Options[i].ID != ans.OptionID {
				continue
			}
			for cluster, w := range q.Options[i].ClusterScores {
				sums[cluster] += w
			}
			break
		}
	}
	return sums
}

// CombineScores merges both partners' per-cluster sums over the union of
// keys. Absent keys count as zero; the operation is commutative.
func CombineScores(a, b map[string]int) map[string]int {
	combined := make(map[string]int, len(a)+len(b))
	for k, v := range a {
		combined[k] += v
	}
	for k, v := range b {
		combined[k] += v
	}
	return combined
}

// NormalizeScores rescales combined sums so the highest cluster lands at
// exactly 100. This is peak-relative, not a share of the total.
func NormalizeScores(combined map[string]int) map[string]int {
	maxV := 0
	for _, v := range combined {
		if v > maxV {
			maxV = v
		}
	}
	if maxV < 1 {
		maxV = 1
	}
	out := make(map[string]int, len(combined))
	for k, v := range combined {
		out[k] = int(math.Round(float64(v) * 100 / float64(maxV)))
	}
	return out
}

// PrimaryCluster picks the cluster with the highest combined sum. Ties are
// broken by the lexicographically smallest cluster name so the result is
// stable across runs. Empty input yields "".
func PrimaryCluster(combined map[string]int) string {
	keys := make([]string, 0, len(combined))
	for k := range combined {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	primary := ""
	best := 0
	for _, k := range keys {
		if primary == "" || combined[k] > best {
			primary = k
			best = combined[k]
		}
	}
	return primary
}

// Tendency maps a normalized score onto a qualitative label. The bands are
// exhaustive and non-overlapping over [0,100].
func Tendency(score int) string {
	switch {
	case score >= 70:
		return TendencyHigh
	case score >= 40:
		return TendencyMedium
	default:
		return TendencyBuilding
	}
}

// Tendencies labels every cluster of a normalized score map.
func Tendencies(normalized map[string]int) map[string]string {
	out := make(map[string]string, len(normalized))
	for k, v := range normalized {
		out[k] = Tendency(v)
	}
	return out
}

// DetermineZone classifies combined (not normalized) sums by dispersion:
// spread below 0.3x the average reads as aligned (flow), above 0.6x as
// divergent (talk), the band between as productive contrast (spark).
// No clusters at all defaults to flow. All-zero sums are classified as
// spark explicitly instead of leaning on 0<0 comparison fallthrough.
func DetermineZone(combined map[string]int) Zone {
	if len(combined) == 0 {
		return ZoneFlow
	}
	first := true
	minV, maxV, total := 0, 0, 0
	for _, v := range combined {
		if first {
			minV, maxV = v, v
			first = false
		} else {
			if v < minV {
				minV = v
			}
			if v > maxV {
				maxV = v
			}
		}
		total += v
	}
	if total == 0 {
		return ZoneSpark
	}
	spread := float64(maxV - minV)
	avg := float64(total) / float64(len(combined))
	switch {
	case spread < avg*0.3:
		return ZoneFlow
	case spread > avg*0.6:
		return ZoneTalk
	default:
		return ZoneSpark
	}
}
