package allocator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/thesis-allocator/pkg/core/model"
)

func TestFlowSolver_RankedScenario(t *testing.T) {
	inst := rankedScenario()
	pref, _ := strictConfig()
	costs := ComputeCosts(inst, nil, pref)

	solver := NewFlowSolver(inst, costs)
	require.NoError(t, solver.Build())
	result, err := solver.Solve()
	require.NoError(t, err)

	assert.Equal(t, "Optimal", result.Diagnostics.Status)
	assert.Equal(t, "flow", result.Diagnostics.Algorithm)
	require.Len(t, result.Rows, 3)
	assert.Empty(t, result.Diagnostics.UnassignedAfterSolve)

	counts := make(map[string]int)
	for _, row := range result.Rows {
		counts[row.TopicID]++
	}
	assert.Equal(t, 2, counts["A"])
	assert.Equal(t, 1, counts["B"])
	assert.InDelta(t, 1.0, result.Diagnostics.ObjectiveValue, 1e-6)
}

func TestFlowSolver_HardCapacityLeavesUnassigned(t *testing.T) {
	// Two students, one seat, no fallback: the flow formulation has no
	// overflow so one student must stay unassigned.
	inst := buildInstance(
		[]*model.Student{newStudent("S1", "A"), newStudent("S2", "A")},
		[]*model.Topic{{ID: "A", CoachID: "c1", DepartmentID: "d1", Capacity: 1}},
		[]*model.Coach{{ID: "c1", DepartmentID: "d1", Capacity: 1}},
		[]*model.Department{{ID: "d1"}},
	)
	pref, _ := strictConfig()
	costs := ComputeCosts(inst, nil, pref)

	solver := NewFlowSolver(inst, costs)
	require.NoError(t, solver.Build())
	result, err := solver.Solve()
	require.NoError(t, err)

	assert.Equal(t, "Suboptimal", result.Diagnostics.Status)
	assert.Len(t, result.Rows, 1)
	assert.Len(t, result.Diagnostics.UnassignedAfterSolve, 1)
	assert.Empty(t, result.Diagnostics.TopicOverflow)
}

func TestFlowSolver_ForcedTopic(t *testing.T) {
	// Forced edges carry a large negative cost; the shortest-path search
	// must handle it and route the forced student to their topic.
	forced := newStudent("S1", "A")
	forced.ForcedTopic = "B"
	other := newStudent("S2", "A")

	inst := buildInstance(
		[]*model.Student{forced, other},
		[]*model.Topic{
			{ID: "A", CoachID: "c1", DepartmentID: "d1", Capacity: 1},
			{ID: "B", CoachID: "c1", DepartmentID: "d1", Capacity: 1},
		},
		[]*model.Coach{{ID: "c1", DepartmentID: "d1", Capacity: 2}},
		[]*model.Department{{ID: "d1"}},
	)
	pref, _ := strictConfig()
	costs := ComputeCosts(inst, nil, pref)

	solver := NewFlowSolver(inst, costs)
	require.NoError(t, solver.Build())
	result, err := solver.Solve()
	require.NoError(t, err)

	assert.Equal(t, "Optimal", result.Diagnostics.Status)
	require.Len(t, result.Rows, 2)
	byStudent := make(map[string]string)
	for _, row := range result.Rows {
		byStudent[row.StudentID] = row.TopicID
	}
	assert.Equal(t, "B", byStudent["S1"])
	assert.Equal(t, "A", byStudent["S2"])
}

func TestFlowSolver_UnassignableStudentSkipped(t *testing.T) {
	// A student with no admissible edges gets no source arc and must not
	// count against the optimal status.
	blocked := newStudent("S1")
	blocked.Banned["A"] = struct{}{}
	fine := newStudent("S2", "A")

	inst := buildInstance(
		[]*model.Student{blocked, fine},
		[]*model.Topic{{ID: "A", CoachID: "c1", DepartmentID: "d1", Capacity: 1}},
		[]*model.Coach{{ID: "c1", DepartmentID: "d1", Capacity: 1}},
		[]*model.Department{{ID: "d1"}},
	)
	pref, _ := strictConfig()
	costs := ComputeCosts(inst, nil, pref)

	solver := NewFlowSolver(inst, costs)
	require.NoError(t, solver.Build())
	result, err := solver.Solve()
	require.NoError(t, err)

	assert.Equal(t, "Optimal", result.Diagnostics.Status)
	assert.Len(t, result.Rows, 1)
	assert.Equal(t, []string{"S1"}, result.Diagnostics.UnassignableStudents)
	assert.Empty(t, result.Diagnostics.UnassignedAfterSolve)
}

func TestFlowSolver_SolveBeforeBuild(t *testing.T) {
	inst := rankedScenario()
	pref, _ := strictConfig()
	costs := ComputeCosts(inst, nil, pref)

	solver := NewFlowSolver(inst, costs)
	_, err := solver.Solve()
	assert.ErrorIs(t, err, ErrNotBuilt)
}
