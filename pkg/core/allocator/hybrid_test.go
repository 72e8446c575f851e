package allocator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/thesis-allocator/pkg/core/model"
)

func TestSolveHybrid_ExactAndFlowAgree(t *testing.T) {
	// Distinct costs per student and ample capacity: both strategies must
	// find the same assignment, and the tie goes to the exact solver.
	inst := buildInstance(
		[]*model.Student{
			newStudent("S1", "A", "B"),
			newStudent("S2", "B", "A"),
		},
		[]*model.Topic{
			{ID: "A", CoachID: "c1", DepartmentID: "d1", Capacity: 1},
			{ID: "B", CoachID: "c1", DepartmentID: "d1", Capacity: 1},
		},
		[]*model.Coach{{ID: "c1", DepartmentID: "d1", Capacity: 2}},
		[]*model.Department{{ID: "d1"}},
	)
	pref, capacity := strictConfig()
	costs := ComputeCosts(inst, nil, pref)

	exact := NewExactSolver(inst, costs, capacity, SolveConfig{}, nil)
	require.NoError(t, exact.Build())
	exactResult, err := exact.Solve(context.Background())
	require.NoError(t, err)

	flow := NewFlowSolver(inst, costs)
	require.NoError(t, flow.Build())
	flowResult, err := flow.Solve()
	require.NoError(t, err)

	assert.Equal(t, assignmentSet(exactResult), assignmentSet(flowResult),
		"exact and flow must agree when there is no overflow and no ties")

	hybrid, err := SolveHybrid(context.Background(), inst, costs, capacity, SolveConfig{}, nil)
	require.NoError(t, err)
	assert.Equal(t, HybridILPBetter, hybrid.Diagnostics.Algorithm, "equal objectives go to the exact solver")
	assert.Equal(t, assignmentSet(exactResult), assignmentSet(hybrid))
}

func TestSolveHybrid_FlowWinsWhenExactInfeasible(t *testing.T) {
	// A hard department minimum the exact model cannot meet makes its
	// solve infeasible; the flow solver ignores minimums and still
	// produces an assignment, so it wins.
	inst := buildInstance(
		[]*model.Student{newStudent("S1", "A")},
		[]*model.Topic{{ID: "A", CoachID: "c1", DepartmentID: "d1", Capacity: 1}},
		[]*model.Coach{{ID: "c1", DepartmentID: "d1", Capacity: 1}},
		[]*model.Department{{ID: "d1", DesiredMin: 3}},
	)
	pref, capacity := strictConfig()
	capacity.DeptMinMode = DeptMinHard
	costs := ComputeCosts(inst, nil, pref)

	result, err := SolveHybrid(context.Background(), inst, costs, capacity, SolveConfig{}, nil)
	require.NoError(t, err)

	assert.Equal(t, HybridFlowBetter, result.Diagnostics.Algorithm)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, "A", result.Rows[0].TopicID)
}

func assignmentSet(r *Result) map[string]string {
	set := make(map[string]string, len(r.Rows))
	for _, row := range r.Rows {
		set[row.StudentID] = row.TopicID
	}
	return set
}
