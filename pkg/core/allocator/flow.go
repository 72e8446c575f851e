package allocator

import (
	"fmt"

	"github.com/jakechorley/thesis-allocator/pkg/mincostflow"
)

// Flow solver status strings
const (
	flowStatusOptimal    = "Optimal"
	flowStatusSuboptimal = "Suboptimal"
)

// FlowSolver models the allocation as a min-cost max-flow network:
//
//	source -> students (capacity 1)
//	students -> topics (admissible edges, capacity 1, weight = cost)
//	topics -> coaches (capacity = topic cap, weight 0)
//	coaches -> sink (capacity = coach cap, weight 0)
//
// Capacities are strictly enforced: this formulation supports no
// overflow and no soft department minimum. That asymmetry with the
// exact solver is intentional.
type FlowSolver struct {
	inst  *Instance
	costs *CostMatrix

	graph    *mincostflow.Graph
	edgeArcs []flowArc
	built    bool
}

type flowArc struct {
	student int
	topic   int
	arcID   int
}

// NewFlowSolver creates a flow solver over the given instance and cost
// matrix
func NewFlowSolver(inst *Instance, costs *CostMatrix) *FlowSolver {
	return &FlowSolver{inst: inst, costs: costs}
}

// node layout: 0 = source, then students, topics, coaches, sink last
func (s *FlowSolver) studentNode(si int) int { return 1 + si }
func (s *FlowSolver) topicNode(ti int) int   { return 1 + len(s.inst.Students) + ti }
func (s *FlowSolver) coachNode(ci int) int {
	return 1 + len(s.inst.Students) + len(s.inst.Topics) + ci
}
func (s *FlowSolver) sinkNode() int {
	return 1 + len(s.inst.Students) + len(s.inst.Topics) + len(s.inst.Coaches)
}

// Build assembles the flow network. It must be called before Solve.
func (s *FlowSolver) Build() error {
	inst := s.inst
	g := mincostflow.New(s.sinkNode() + 1)
	s.edgeArcs = nil

	for si := range inst.Students {
		if len(s.costs.Admissible(si)) == 0 {
			continue // unassignable, no source edge
		}
		if _, err := g.AddArc(0, s.studentNode(si), 1, 0); err != nil {
			return fmt.Errorf("flow build: %w", err)
		}
		for _, e := range s.costs.Admissible(si) {
			arcID, err := g.AddArc(s.studentNode(si), s.topicNode(e.Topic), 1, e.Cost)
			if err != nil {
				return fmt.Errorf("flow build: %w", err)
			}
			s.edgeArcs = append(s.edgeArcs, flowArc{student: si, topic: e.Topic, arcID: arcID})
		}
	}

	for ti, t := range inst.Topics {
		ci, ok := inst.CoachIndex(t.CoachID)
		if !ok {
			return fmt.Errorf("flow build: topic %s references unknown coach %s", t.ID, t.CoachID)
		}
		if _, err := g.AddArc(s.topicNode(ti), s.coachNode(ci), t.Capacity, 0); err != nil {
			return fmt.Errorf("flow build: %w", err)
		}
	}
	for ci, c := range inst.Coaches {
		if _, err := g.AddArc(s.coachNode(ci), s.sinkNode(), c.Capacity, 0); err != nil {
			return fmt.Errorf("flow build: %w", err)
		}
	}

	s.graph = g
	s.built = true
	return nil
}

// Solve runs min-cost max-flow and extracts the assignment by locating,
// per student, the single admissible edge carrying positive flow
func (s *FlowSolver) Solve() (*Result, error) {
	if !s.built {
		return nil, ErrNotBuilt
	}

	_, totalCost, err := s.graph.Solve(0, s.sinkNode())
	if err != nil {
		return nil, fmt.Errorf("flow solve: %w", err)
	}

	assigned := make(map[int]int)
	for _, a := range s.edgeArcs {
		if s.graph.Flow(a.arcID) > 0 {
			assigned[a.student] = a.topic
		}
	}

	unassignable := unassignableStudents(s.inst, s.costs)
	status := flowStatusSuboptimal
	if len(assigned) == len(s.inst.Students)-len(unassignable) {
		status = flowStatusOptimal
	}

	// No overflow or shortfall can occur in this formulation, and tie
	// information is not recoverable from network extraction alone.
	return &Result{
		Rows: buildRows(s.inst, s.costs, assigned, nil, nil),
		Diagnostics: Diagnostics{
			Status:               status,
			Algorithm:            "flow",
			ObjectiveValue:       float64(totalCost),
			UnassignableStudents: unassignable,
			UnassignedAfterSolve: unassignedAfterSolve(s.inst, s.costs, assigned),
			TopicOverflow:        map[string]int{},
			CoachOverflow:        map[string]int{},
			DepartmentShortfall:  map[string]int{},
		},
	}, nil
}
