package mip

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBranchAndBound_Knapsack(t *testing.T) {
	// Minimize the negated value of a tiny knapsack: items worth 5, 4, 3
	// with weights 2, 3, 1 under capacity 3. Best pick is items 1 and 3.
	m := NewModel()
	x1 := m.AddBinary("x1", -5)
	x2 := m.AddBinary("x2", -4)
	x3 := m.AddBinary("x3", -3)
	m.AddConstraint("weight", []Term{{Col: x1, Coef: 2}, {Col: x2, Coef: 3}, {Col: x3, Coef: 1}}, LE, 3)

	sol, err := (&BranchAndBound{}).Solve(context.Background(), m, Options{})
	require.NoError(t, err)

	assert.Equal(t, StatusOptimal, sol.Status)
	assert.InDelta(t, -8, sol.Objective, 1e-6)
	require.Len(t, sol.Values, 3)
	assert.InDelta(t, 1, sol.Values[x1], 1e-6)
	assert.InDelta(t, 0, sol.Values[x2], 1e-6)
	assert.InDelta(t, 1, sol.Values[x3], 1e-6)
}

func TestBranchAndBound_FractionalRelaxation(t *testing.T) {
	// The relaxation puts 1.5 units across two binaries; branching must
	// recover the integer optimum of a single unit.
	m := NewModel()
	x1 := m.AddBinary("x1", -1)
	x2 := m.AddBinary("x2", -1)
	m.AddConstraint("budget", []Term{{Col: x1, Coef: 1}, {Col: x2, Coef: 1}}, LE, 1.5)

	sol, err := (&BranchAndBound{}).Solve(context.Background(), m, Options{})
	require.NoError(t, err)

	assert.Equal(t, StatusOptimal, sol.Status)
	assert.InDelta(t, -1, sol.Objective, 1e-6)
	assert.InDelta(t, 1, sol.Values[x1]+sol.Values[x2], 1e-6, "exactly one binary can be on")
}

func TestBranchAndBound_Equality(t *testing.T) {
	m := NewModel()
	x1 := m.AddBinary("x1", 1)
	x2 := m.AddBinary("x2", 1)
	m.AddConstraint("both", []Term{{Col: x1, Coef: 1}, {Col: x2, Coef: 1}}, EQ, 2)

	sol, err := (&BranchAndBound{}).Solve(context.Background(), m, Options{})
	require.NoError(t, err)

	assert.Equal(t, StatusOptimal, sol.Status)
	assert.InDelta(t, 2, sol.Objective, 1e-6)
	assert.InDelta(t, 1, sol.Values[x1], 1e-6)
	assert.InDelta(t, 1, sol.Values[x2], 1e-6)
}

func TestBranchAndBound_IntegerLowerBound(t *testing.T) {
	m := NewModel()
	y := m.AddInteger("y", 1)
	m.AddConstraint("min", []Term{{Col: y, Coef: 1}}, GE, 3)

	sol, err := (&BranchAndBound{}).Solve(context.Background(), m, Options{})
	require.NoError(t, err)

	assert.Equal(t, StatusOptimal, sol.Status)
	assert.InDelta(t, 3, sol.Objective, 1e-6)
	assert.InDelta(t, 3, sol.Values[y], 1e-6)
}

func TestBranchAndBound_Infeasible(t *testing.T) {
	m := NewModel()
	x := m.AddBinary("x", 1)
	m.AddConstraint("impossible", []Term{{Col: x, Coef: 1}}, GE, 2)

	sol, err := (&BranchAndBound{}).Solve(context.Background(), m, Options{})
	require.NoError(t, err)

	assert.Equal(t, StatusInfeasible, sol.Status)
	assert.Nil(t, sol.Values)
}

func TestBranchAndBound_CancelledContext(t *testing.T) {
	m := NewModel()
	m.AddBinary("x", -1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sol, err := (&BranchAndBound{}).Solve(ctx, m, Options{})
	require.NoError(t, err, "truncation is a status, not an error")
	assert.Equal(t, StatusTimeLimit, sol.Status)
	assert.Nil(t, sol.Values)
}

func TestBranchAndBound_TimeLimitExpired(t *testing.T) {
	m := NewModel()
	m.AddBinary("x", -1)

	sol, err := (&BranchAndBound{}).Solve(context.Background(), m, Options{TimeLimit: time.Nanosecond})
	require.NoError(t, err)
	assert.Equal(t, StatusTimeLimit, sol.Status)
	assert.Nil(t, sol.Values)
}

func TestBranchAndBound_IterationLimitIsNotInfeasible(t *testing.T) {
	// The model is perfectly feasible; with a one-iteration simplex cap
	// the root relaxation cannot finish and the outcome is unknown, not
	// infeasible.
	m := NewModel()
	x1 := m.AddBinary("x1", -5)
	x2 := m.AddBinary("x2", -4)
	x3 := m.AddBinary("x3", -3)
	m.AddConstraint("weight", []Term{{Col: x1, Coef: 2}, {Col: x2, Coef: 3}, {Col: x3, Coef: 1}}, LE, 3)

	sol, err := (&BranchAndBound{MaxIterations: 1}).Solve(context.Background(), m, Options{})
	require.NoError(t, err)
	assert.Equal(t, StatusNotSolved, sol.Status)
	assert.Nil(t, sol.Values)
}

func TestBranchAndBound_EmptyModel(t *testing.T) {
	sol, err := (&BranchAndBound{}).Solve(context.Background(), NewModel(), Options{})
	require.NoError(t, err)
	assert.Equal(t, StatusOptimal, sol.Status)
	assert.Empty(t, sol.Values)
}

func TestModel_ObjectiveTerms(t *testing.T) {
	m := NewModel()
	x1 := m.AddBinary("x1", 3)
	m.AddBinary("x2", 0)
	x3 := m.AddInteger("x3", 7)

	terms := m.ObjectiveTerms()
	assert.Equal(t, []Term{{Col: x1, Coef: 3}, {Col: x3, Coef: 7}}, terms, "zero-cost columns are omitted")
	assert.InDelta(t, 13, m.Objective([]float64{1, 1, 1}), 1e-9)
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "Optimal", StatusOptimal.String())
	assert.Equal(t, "Infeasible", StatusInfeasible.String())
	assert.Equal(t, "TimeLimit", StatusTimeLimit.String())
	assert.Equal(t, "NotSolved", StatusNotSolved.String())
}
