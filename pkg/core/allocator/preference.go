package allocator

import (
	"github.com/jakechorley/thesis-allocator/pkg/core/model"
)

// ForcedCost is the sentinel cost of a forced (student, topic) edge.
// It is negative and large enough to dominate any admissible alternative,
// guaranteeing the solvers always pick the forced topic.
const ForcedCost = -10000

// PreferenceConfig holds the preference cost parameters
type PreferenceConfig struct {
	AllowUnranked bool
	Tier2Cost     int
	Tier3Cost     int
	UnrankedCost  int
	Top2Bias      bool
}

// DefaultPreferenceConfig returns the standard cost parameters
func DefaultPreferenceConfig() PreferenceConfig {
	return PreferenceConfig{
		AllowUnranked: true,
		Tier2Cost:     1,
		Tier3Cost:     5,
		UnrankedCost:  200,
		Top2Bias:      true,
	}
}

// CostEntry is one admissible (student, topic) edge
type CostEntry struct {
	Topic int // dense topic index
	Cost  int
}

// CostMatrix is the sparse cost matrix: per student index, the admissible
// topic edges in ascending topic-index order
type CostMatrix struct {
	entries [][]CostEntry
}

// Admissible returns the admissible edges for the given student index
func (cm *CostMatrix) Admissible(student int) []CostEntry {
	return cm.entries[student]
}

// Lookup returns the cost of the (student, topic) edge, if admissible
func (cm *CostMatrix) Lookup(student, topic int) (int, bool) {
	for _, e := range cm.entries[student] {
		if e.Topic == topic {
			return e.Cost, true
		}
	}
	return 0, false
}

// NumEdges returns the total number of admissible edges
func (cm *CostMatrix) NumEdges() int {
	var n int
	for _, es := range cm.entries {
		n += len(es)
	}
	return n
}

// ComputeCosts builds the sparse cost matrix for every planning student.
// Edge decision follows a strict precedence, first match wins:
// forced topic, banned, override, tier membership, ranked-list
// membership, unranked fallback. Students whose entry comes out empty
// are unassignable and simply carry no edges.
func ComputeCosts(inst *Instance, overrides map[model.OverrideKey]int, cfg PreferenceConfig) *CostMatrix {
	cm := &CostMatrix{entries: make([][]CostEntry, len(inst.Students))}

	for si, s := range inst.Students {
		// Forced topic preempts everything: a single edge with the
		// sentinel cost, unless the forced topic is banned or unknown.
		if s.ForcedTopic != "" {
			if ti, ok := inst.TopicIndex(s.ForcedTopic); ok && !s.IsBanned(s.ForcedTopic) {
				cm.entries[si] = []CostEntry{{Topic: ti, Cost: ForcedCost}}
			}
			continue
		}

		rankIndex := make(map[string]int, len(s.Ranks))
		for i, tid := range s.Ranks {
			rankIndex[tid] = i + 1
		}

		for ti, t := range inst.Topics {
			if s.IsBanned(t.ID) {
				continue
			}
			if cost, ok := overrides[model.OverrideKey{StudentID: s.ID, TopicID: t.ID}]; ok {
				cm.entries[si] = append(cm.entries[si], CostEntry{Topic: ti, Cost: cost})
				continue
			}
			if tier, ok := tierOf(s, t.ID); ok {
				cm.entries[si] = append(cm.entries[si], CostEntry{Topic: ti, Cost: tierCost(cfg, tier)})
				continue
			}
			if rank, ok := rankIndex[t.ID]; ok {
				cm.entries[si] = append(cm.entries[si], CostEntry{Topic: ti, Cost: rankCost(cfg, rank)})
				continue
			}
			if cfg.AllowUnranked {
				cm.entries[si] = append(cm.entries[si], CostEntry{Topic: ti, Cost: cfg.UnrankedCost})
			}
		}
	}

	return cm
}

func tierOf(s *model.Student, topicID string) (int, bool) {
	for tier := 1; tier <= 3; tier++ {
		for _, tid := range s.Tiers[tier] {
			if tid == topicID {
				return tier, true
			}
		}
	}
	return 0, false
}

func tierCost(cfg PreferenceConfig, tier int) int {
	switch tier {
	case 1:
		return 0
	case 2:
		return cfg.Tier2Cost
	default:
		return cfg.Tier3Cost
	}
}

// rankCost maps a 1-based ranked-list position to a cost. With top-2
// bias the first two choices stay cheap and everything from the third
// choice on jumps past 100.
func rankCost(cfg PreferenceConfig, rank int) int {
	if !cfg.Top2Bias {
		return rank - 1
	}
	switch rank {
	case 1:
		return 0
	case 2:
		return 1
	default:
		return 100 + (rank - 3)
	}
}

// DerivePreferenceRank classifies an assignment for reporting using the
// model.Rank* codes
func DerivePreferenceRank(s *model.Student, topicID string) int {
	if s.ForcedTopic != "" && topicID == s.ForcedTopic {
		return model.RankForced
	}
	if tier, ok := tierOf(s, topicID); ok {
		switch tier {
		case 1:
			return model.RankTier1
		case 2:
			return model.RankTier2
		default:
			return model.RankTier3
		}
	}
	for i, tid := range s.Ranks {
		if tid == topicID {
			return model.RankChoice1 + i
		}
	}
	return model.RankUnranked
}
