package mip

import (
	"context"
	"fmt"
	"math"

	"github.com/lanl/highs"
)

// HiGHS is a Backend delegating to the HiGHS solver via its cgo binding.
// The binding runs the solve to completion, so Options.TimeLimit and
// Options.Seed are not forwarded; use BranchAndBound when truncated
// solves are required.
type HiGHS struct{}

// Solve implements Backend
func (h *HiGHS) Solve(ctx context.Context, m *Model, opts Options) (Solution, error) {
	if err := ctx.Err(); err != nil {
		return Solution{Status: StatusNotSolved}, err
	}
	n := m.NumVars()
	if n == 0 {
		return Solution{Status: StatusOptimal, Values: []float64{}}, nil
	}

	lp := new(highs.Model)
	lp.VarTypes = make([]highs.VariableType, n)
	lp.ColLower = make([]float64, n)
	lp.ColUpper = make([]float64, n)
	lp.ColCosts = make([]float64, n)

	for i, v := range m.vars {
		if v.Type == Continuous {
			lp.VarTypes[i] = highs.ContinuousType
		} else {
			lp.VarTypes[i] = highs.IntegerType
		}
		lp.ColLower[i] = v.Lower
		lp.ColUpper[i] = v.Upper
		lp.ColCosts[i] = v.Cost
	}

	infinity := math.Inf(1)
	for row, con := range m.cons {
		for _, t := range con.Terms {
			lp.ConstMatrix = append(lp.ConstMatrix, highs.Nonzero{Row: row, Col: t.Col, Val: t.Coef})
		}
		switch con.Sense {
		case LE:
			lp.RowLower = append(lp.RowLower, -infinity)
			lp.RowUpper = append(lp.RowUpper, con.RHS)
		case GE:
			lp.RowLower = append(lp.RowLower, con.RHS)
			lp.RowUpper = append(lp.RowUpper, infinity)
		case EQ:
			lp.RowLower = append(lp.RowLower, con.RHS)
			lp.RowUpper = append(lp.RowUpper, con.RHS)
		}
	}

	solution, err := lp.Solve()
	if err != nil {
		return Solution{Status: StatusNotSolved}, fmt.Errorf("highs solve: %w", err)
	}

	switch solution.Status {
	case highs.Optimal:
		return Solution{
			Status:    StatusOptimal,
			Objective: solution.Objective,
			Values:    solution.ColumnPrimal[:n],
		}, nil
	case highs.Infeasible:
		return Solution{Status: StatusInfeasible}, nil
	case highs.Unbounded, highs.UnboundedOrInfeasible:
		return Solution{Status: StatusUnbounded}, nil
	default:
		return Solution{Status: StatusNotSolved}, fmt.Errorf("highs status: %s", solution.Status.String())
	}
}
