package allocator

import (
	"context"
	"fmt"
	"math"

	"github.com/jakechorley/thesis-allocator/pkg/mip"
)

// Hybrid algorithm tags
const (
	HybridILPBetter  = "hybrid (ilp better)"
	HybridFlowBetter = "hybrid (flow better)"
)

// SolveHybrid runs the exact solver and the flow solver sequentially on
// identical inputs and returns whichever reports the lower objective,
// tagging the winner. The comparison is over each solver's own raw
// objective: the flow objective can never include overflow or shortfall
// penalties because that solver cannot incur them, so the two values are
// not always commensurable. This is a documented limitation.
func SolveHybrid(ctx context.Context, inst *Instance, costs *CostMatrix, capacity CapacityConfig, solve SolveConfig, backend mip.Backend) (*Result, error) {
	exact := NewExactSolver(inst, costs, capacity, solve, backend)
	if err := exact.Build(); err != nil {
		return nil, fmt.Errorf("hybrid: %w", err)
	}
	exactResult, err := exact.Solve(ctx)
	if err != nil {
		return nil, fmt.Errorf("hybrid: %w", err)
	}

	flow := NewFlowSolver(inst, costs)
	if err := flow.Build(); err != nil {
		return nil, fmt.Errorf("hybrid: %w", err)
	}
	flowResult, err := flow.Solve()
	if err != nil {
		return nil, fmt.Errorf("hybrid: %w", err)
	}

	if comparableObjective(exactResult) <= comparableObjective(flowResult) {
		exactResult.Diagnostics.Algorithm = HybridILPBetter
		return exactResult, nil
	}
	flowResult.Diagnostics.Algorithm = HybridFlowBetter
	return flowResult, nil
}

// comparableObjective treats a solve that produced nothing as infinitely
// bad so the other strategy wins the comparison
func comparableObjective(r *Result) float64 {
	if len(r.Rows) == 0 {
		return math.Inf(1)
	}
	return r.Diagnostics.ObjectiveValue
}
