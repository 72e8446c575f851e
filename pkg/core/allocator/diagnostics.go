package allocator

import (
	"errors"
	"time"

	"github.com/jakechorley/thesis-allocator/pkg/core/model"
)

// ErrNotBuilt is returned when Solve is called before Build
var ErrNotBuilt = errors.New("allocator: model not built, call Build first")

// Department minimum enforcement modes
const (
	DeptMinSoft = "soft"
	DeptMinHard = "hard"
)

// CapacityConfig holds the capacity and constraint parameters shared by
// both solvers. Overflow toggles only affect the exact solver; the flow
// solver always treats capacities as hard ceilings.
type CapacityConfig struct {
	EnableTopicOverflow  bool
	EnableCoachOverflow  bool
	DeptMinMode          string // DeptMinSoft or DeptMinHard
	DeptShortfallPenalty int
	TopicOverflowPenalty int
	CoachOverflowPenalty int
}

// DefaultCapacityConfig returns the standard capacity parameters
func DefaultCapacityConfig() CapacityConfig {
	return CapacityConfig{
		EnableTopicOverflow:  true,
		EnableCoachOverflow:  true,
		DeptMinMode:          DeptMinSoft,
		DeptShortfallPenalty: 1000,
		TopicOverflowPenalty: 800,
		CoachOverflowPenalty: 600,
	}
}

// SolveConfig holds the solver execution parameters
type SolveConfig struct {
	TimeLimit time.Duration // zero means no limit
	Seed      int64
	// Epsilon, when set, triggers a re-solve bounded to
	// (1+epsilon) times the optimal objective. The re-solve may surface
	// an alternate near-optimal solution; it is not guaranteed to.
	Epsilon *float64
}

// TiedStudent is a non-uniqueness witness: the assigned topic plus at
// least one alternative admissible topic at the same cost
type TiedStudent struct {
	StudentID    string
	TopicID      string
	Cost         int
	Alternatives []string
}

// Diagnostics describes a completed solve
type Diagnostics struct {
	Status               string
	Algorithm            string
	ObjectiveValue       float64
	UnassignableStudents []string
	UnassignedAfterSolve []string
	TopicOverflow        map[string]int
	CoachOverflow        map[string]int
	DepartmentShortfall  map[string]int
	TiedStudents         []TiedStudent
}

// Result is a solved allocation: assignment rows plus diagnostics
type Result struct {
	Rows        []model.AssignmentRow
	Diagnostics Diagnostics
}

// unassignableStudents lists the ids of planning students that have no
// admissible edge in the cost matrix
func unassignableStudents(inst *Instance, costs *CostMatrix) []string {
	var ids []string
	for si, s := range inst.Students {
		if len(costs.Admissible(si)) == 0 {
			ids = append(ids, s.ID)
		}
	}
	return ids
}

// unassignedAfterSolve lists planning students that had admissible
// topics but received no assignment
func unassignedAfterSolve(inst *Instance, costs *CostMatrix, assigned map[int]int) []string {
	var ids []string
	for si, s := range inst.Students {
		if len(costs.Admissible(si)) == 0 {
			continue
		}
		if _, ok := assigned[si]; !ok {
			ids = append(ids, s.ID)
		}
	}
	return ids
}

// detectTies scans, for each assigned student, all admissible topics
// with cost equal to the assigned topic's cost. Any match means the
// optimum is potentially non-unique.
func detectTies(inst *Instance, costs *CostMatrix, assigned map[int]int) []TiedStudent {
	var ties []TiedStudent
	for si, s := range inst.Students {
		ti, ok := assigned[si]
		if !ok {
			continue
		}
		assignedCost, ok := costs.Lookup(si, ti)
		if !ok {
			continue
		}
		var alternatives []string
		for _, e := range costs.Admissible(si) {
			if e.Topic != ti && e.Cost == assignedCost {
				alternatives = append(alternatives, inst.Topics[e.Topic].ID)
			}
		}
		if len(alternatives) > 0 {
			ties = append(ties, TiedStudent{
				StudentID:    s.ID,
				TopicID:      inst.Topics[ti].ID,
				Cost:         assignedCost,
				Alternatives: alternatives,
			})
		}
	}
	return ties
}

// buildRows turns a student->topic assignment into output rows
func buildRows(inst *Instance, costs *CostMatrix, assigned map[int]int, topicOverflow, coachOverflow map[string]int) []model.AssignmentRow {
	rows := make([]model.AssignmentRow, 0, len(assigned))
	for si, s := range inst.Students {
		ti, ok := assigned[si]
		if !ok {
			continue
		}
		topic := inst.Topics[ti]
		cost, _ := costs.Lookup(si, ti)
		rows = append(rows, model.AssignmentRow{
			StudentID:        s.ID,
			TopicID:          topic.ID,
			CoachID:          topic.CoachID,
			DepartmentID:     topic.DepartmentID,
			PreferenceRank:   DerivePreferenceRank(s, topic.ID),
			EffectiveCost:    cost,
			ViaTopicOverflow: topicOverflow[topic.ID] > 0,
			ViaCoachOverflow: coachOverflow[topic.CoachID] > 0,
		})
	}
	return rows
}
