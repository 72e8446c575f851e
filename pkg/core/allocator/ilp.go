package allocator

import (
	"context"
	"fmt"
	"math"

	"github.com/jakechorley/thesis-allocator/pkg/mip"
)

// edgeVar ties an admissible (student, topic) pair to its model column
type edgeVar struct {
	student int
	topic   int
	cost    int
	col     int
}

// ExactSolver formulates the allocation as a 0/1 integer program:
//
//	min  sum cost[s,t]*x[s,t] + P_topic*sum ov_topic + P_coach*sum ov_coach + P_dept*sum shortfall
//	s.t. every assignable student picks exactly one topic,
//	     topic and coach capacities hold (minus overflow when enabled),
//	     department minimums hold (plus shortfall in soft mode).
//
// The integer-program backend is pluggable; see pkg/mip.
type ExactSolver struct {
	inst     *Instance
	costs    *CostMatrix
	capacity CapacityConfig
	solve    SolveConfig
	backend  mip.Backend

	model         *mip.Model
	edges         []edgeVar
	edgesByStud   [][]int // student index -> indices into edges
	edgesByTopic  [][]int
	ovTopicCols   []int // -1 when topic overflow disabled
	ovCoachCols   []int
	shortfallCols []int // -1 when hard mode
	built         bool
}

// NewExactSolver creates an exact solver over the given instance and
// cost matrix. The backend defaults to the bundled branch-and-bound.
func NewExactSolver(inst *Instance, costs *CostMatrix, capacity CapacityConfig, solve SolveConfig, backend mip.Backend) *ExactSolver {
	if backend == nil {
		backend = &mip.BranchAndBound{}
	}
	return &ExactSolver{
		inst:     inst,
		costs:    costs,
		capacity: capacity,
		solve:    solve,
		backend:  backend,
	}
}

// Build assembles the integer program. It must be called before Solve.
func (s *ExactSolver) Build() error {
	m := mip.NewModel()
	inst := s.inst

	s.edges = nil
	s.edgesByStud = make([][]int, len(inst.Students))
	s.edgesByTopic = make([][]int, len(inst.Topics))

	for si, stud := range inst.Students {
		for _, e := range s.costs.Admissible(si) {
			col := m.AddBinary(fmt.Sprintf("x__%s__%s", stud.ID, inst.Topics[e.Topic].ID), float64(e.Cost))
			idx := len(s.edges)
			s.edges = append(s.edges, edgeVar{student: si, topic: e.Topic, cost: e.Cost, col: col})
			s.edgesByStud[si] = append(s.edgesByStud[si], idx)
			s.edgesByTopic[e.Topic] = append(s.edgesByTopic[e.Topic], idx)
		}
	}

	s.ovTopicCols = fillCols(len(inst.Topics), -1)
	if s.capacity.EnableTopicOverflow {
		for ti, t := range inst.Topics {
			s.ovTopicCols[ti] = m.AddInteger("ov_topic__"+t.ID, float64(s.capacity.TopicOverflowPenalty))
		}
	}
	s.ovCoachCols = fillCols(len(inst.Coaches), -1)
	if s.capacity.EnableCoachOverflow {
		for ci, c := range inst.Coaches {
			s.ovCoachCols[ci] = m.AddInteger("ov_coach__"+c.ID, float64(s.capacity.CoachOverflowPenalty))
		}
	}
	s.shortfallCols = fillCols(len(inst.Departments), -1)
	if s.capacity.DeptMinMode == DeptMinSoft {
		for di, d := range inst.Departments {
			s.shortfallCols[di] = m.AddInteger("shortfall__"+d.ID, float64(s.capacity.DeptShortfallPenalty))
		}
	}

	// One topic per student with admissible options.
	for si, stud := range inst.Students {
		if len(s.edgesByStud[si]) == 0 {
			continue
		}
		terms := make([]mip.Term, 0, len(s.edgesByStud[si]))
		for _, ei := range s.edgesByStud[si] {
			terms = append(terms, mip.Term{Col: s.edges[ei].col, Coef: 1})
		}
		m.AddConstraint("one_topic__"+stud.ID, terms, mip.EQ, 1)
	}

	// Topic capacities: sum x - overflow <= cap.
	for ti, t := range inst.Topics {
		terms := make([]mip.Term, 0, len(s.edgesByTopic[ti])+1)
		for _, ei := range s.edgesByTopic[ti] {
			terms = append(terms, mip.Term{Col: s.edges[ei].col, Coef: 1})
		}
		if s.ovTopicCols[ti] >= 0 {
			terms = append(terms, mip.Term{Col: s.ovTopicCols[ti], Coef: -1})
		}
		m.AddConstraint("topic_cap__"+t.ID, terms, mip.LE, float64(t.Capacity))
	}

	// Coach capacities across all owned topics.
	for ci, c := range inst.Coaches {
		var terms []mip.Term
		for _, ti := range inst.TopicsByCoach[ci] {
			for _, ei := range s.edgesByTopic[ti] {
				terms = append(terms, mip.Term{Col: s.edges[ei].col, Coef: 1})
			}
		}
		if s.ovCoachCols[ci] >= 0 {
			terms = append(terms, mip.Term{Col: s.ovCoachCols[ci], Coef: -1})
		}
		m.AddConstraint("coach_cap__"+c.ID, terms, mip.LE, float64(c.Capacity))
	}

	// Department desired minimums.
	for di, d := range inst.Departments {
		if d.DesiredMin <= 0 {
			continue
		}
		var terms []mip.Term
		for _, ti := range inst.TopicsByDept[di] {
			for _, ei := range s.edgesByTopic[ti] {
				terms = append(terms, mip.Term{Col: s.edges[ei].col, Coef: 1})
			}
		}
		if s.shortfallCols[di] >= 0 {
			terms = append(terms, mip.Term{Col: s.shortfallCols[di], Coef: 1})
		}
		m.AddConstraint("dept_min__"+d.ID, terms, mip.GE, float64(d.DesiredMin))
	}

	s.model = m
	s.built = true
	return nil
}

// Solve runs the backend and extracts assignment rows and diagnostics.
// Infeasibility or time-limit truncation is not an error: the status
// string reports it and the rows cover whatever was solved.
func (s *ExactSolver) Solve(ctx context.Context) (*Result, error) {
	if !s.built {
		return nil, ErrNotBuilt
	}

	opts := mip.Options{TimeLimit: s.solve.TimeLimit, Seed: s.solve.Seed}
	sol, err := s.backend.Solve(ctx, s.model, opts)
	if err != nil {
		return nil, fmt.Errorf("exact solve: %w", err)
	}

	// Epsilon-suboptimal re-solve: bound the objective near the optimum
	// and solve again on a copy, so the built model stays reusable.
	// Depending on the backend's tie-breaking this may simply reconfirm
	// the same optimum.
	if s.solve.Epsilon != nil && sol.Status == mip.StatusOptimal {
		bound := sol.Objective * (1 + *s.solve.Epsilon)
		bounded := s.model.Clone()
		bounded.AddConstraint("epsilon_suboptimal", s.model.ObjectiveTerms(), mip.LE, bound)
		resol, err := s.backend.Solve(ctx, bounded, opts)
		if err == nil && resol.Values != nil {
			sol = resol
		}
	}

	assigned := make(map[int]int)
	topicOverflow := make(map[string]int)
	coachOverflow := make(map[string]int)
	shortfall := make(map[string]int)

	if sol.Values != nil {
		for _, e := range s.edges {
			if sol.Values[e.col] > 0.5 {
				assigned[e.student] = e.topic
			}
		}
		for ti, col := range s.ovTopicCols {
			if col >= 0 {
				topicOverflow[s.inst.Topics[ti].ID] = int(math.Round(sol.Values[col]))
			}
		}
		for ci, col := range s.ovCoachCols {
			if col >= 0 {
				coachOverflow[s.inst.Coaches[ci].ID] = int(math.Round(sol.Values[col]))
			}
		}
		for di, col := range s.shortfallCols {
			if col >= 0 {
				shortfall[s.inst.Departments[di].ID] = int(math.Round(sol.Values[col]))
			}
		}
	}

	return &Result{
		Rows: buildRows(s.inst, s.costs, assigned, topicOverflow, coachOverflow),
		Diagnostics: Diagnostics{
			Status:               sol.Status.String(),
			Algorithm:            "ilp",
			ObjectiveValue:       sol.Objective,
			UnassignableStudents: unassignableStudents(s.inst, s.costs),
			UnassignedAfterSolve: unassignedAfterSolve(s.inst, s.costs, assigned),
			TopicOverflow:        topicOverflow,
			CoachOverflow:        coachOverflow,
			DepartmentShortfall:  shortfall,
			TiedStudents:         detectTies(s.inst, s.costs, assigned),
		},
	}, nil
}

func fillCols(n, v int) []int {
	cols := make([]int, n)
	for i := range cols {
		cols[i] = v
	}
	return cols
}
