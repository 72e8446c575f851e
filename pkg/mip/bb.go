package mip

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/willauld/lpsimplex"
)

const (
	intTol   = 1e-6
	boundTol = 1e-9
)

// lpsimplex status codes (scipy linprog convention)
const (
	lpOK         = 0
	lpIterLimit  = 1
	lpInfeasible = 2
	lpUnbounded  = 3
)

// BranchAndBound is the bundled Backend. It solves LP relaxations with the
// lpsimplex solver and branches on fractional variables. The assignment
// models built by the allocator have network structure, so the relaxation
// is almost always integral at the root and branching is rare.
type BranchAndBound struct {
	// MaxIterations caps simplex iterations per LP relaxation.
	// Zero picks a default scaled to the model size.
	MaxIterations int
}

// branch is one bound fixing applied below the root node
type branch struct {
	col   int
	le    bool // true: x <= bound, false: x >= bound
	bound float64
}

type bbNode struct {
	branches []branch
}

// Solve implements Backend
func (b *BranchAndBound) Solve(ctx context.Context, m *Model, opts Options) (Solution, error) {
	n := m.NumVars()
	if n == 0 {
		return Solution{Status: StatusOptimal, Values: []float64{}}, nil
	}

	c := make([]float64, n)
	for i, v := range m.vars {
		c[i] = v.Cost
	}

	// Base inequality and equality rows from the model constraints.
	// lpsimplex assumes x >= 0, so finite upper bounds become rows.
	var aub [][]float64
	var bub []float64
	var aeq [][]float64
	var beq []float64

	for _, con := range m.cons {
		row := make([]float64, n)
		for _, t := range con.Terms {
			row[t.Col] += t.Coef
		}
		switch con.Sense {
		case LE:
			aub = append(aub, row)
			bub = append(bub, con.RHS)
		case GE:
			neg := make([]float64, n)
			for i, v := range row {
				neg[i] = -v
			}
			aub = append(aub, neg)
			bub = append(bub, -con.RHS)
		case EQ:
			aeq = append(aeq, row)
			beq = append(beq, con.RHS)
		}
	}
	for i, v := range m.vars {
		if !math.IsInf(v.Upper, 1) {
			row := make([]float64, n)
			row[i] = 1
			aub = append(aub, row)
			bub = append(bub, v.Upper)
		}
	}

	maxIter := b.MaxIterations
	if maxIter == 0 {
		maxIter = 4000 + 50*(n+len(aub)+len(aeq))
	}

	var deadline time.Time
	if opts.TimeLimit > 0 {
		deadline = time.Now().Add(opts.TimeLimit)
	}
	rng := rand.New(rand.NewSource(opts.Seed))

	solveLP := func(node bbNode) (x []float64, obj float64, status int) {
		a := aub
		rhs := bub
		if len(node.branches) > 0 {
			a = make([][]float64, len(aub), len(aub)+len(node.branches))
			copy(a, aub)
			rhs = make([]float64, len(bub), len(bub)+len(node.branches))
			copy(rhs, bub)
			for _, br := range node.branches {
				row := make([]float64, n)
				if br.le {
					row[br.col] = 1
					a = append(a, row)
					rhs = append(rhs, br.bound)
				} else {
					row[br.col] = -1
					a = append(a, row)
					rhs = append(rhs, -br.bound)
				}
			}
		}
		res := lpsimplex.LPSimplex(c, a, rhs, aeq, beq, nil, lpsimplex.Callbackfunc(nil), false, maxIter, 1e-12, false)
		return res.X, res.Fun, res.Status
	}

	var (
		incumbent    []float64
		incumbentObj = math.Inf(1)
		truncated    bool
		exhausted    bool // a node was pruned on the LP iteration limit
	)

	stack := []bbNode{{}}
	root := true

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			truncated = true
			break
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			truncated = true
			break
		}

		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		x, obj, status := solveLP(node)
		switch status {
		case lpInfeasible:
			if root {
				return Solution{Status: StatusInfeasible}, nil
			}
			root = false
			continue
		case lpUnbounded:
			if root {
				return Solution{Status: StatusUnbounded}, nil
			}
			root = false
			continue
		case lpIterLimit:
			exhausted = true
			root = false
			continue
		case lpOK:
			// fall through
		default:
			if root {
				return Solution{Status: StatusNotSolved}, fmt.Errorf("lp relaxation failed with status %d", status)
			}
			root = false
			continue
		}
		root = false

		// Bound: the relaxation cannot beat the incumbent.
		if obj >= incumbentObj-boundTol {
			continue
		}

		frac := fractionalColumn(m, x)
		if frac < 0 {
			vals := roundIntegral(m, x)
			objVal := m.Objective(vals)
			if objVal < incumbentObj {
				incumbent = vals
				incumbentObj = objVal
			}
			continue
		}

		down := bbNode{branches: appendBranch(node.branches, branch{col: frac, le: true, bound: math.Floor(x[frac])})}
		up := bbNode{branches: appendBranch(node.branches, branch{col: frac, le: false, bound: math.Ceil(x[frac])})}
		// Seeded order decides which side is explored first on ties.
		if rng.Intn(2) == 0 {
			stack = append(stack, up, down)
		} else {
			stack = append(stack, down, up)
		}
	}

	if incumbent == nil {
		if truncated {
			return Solution{Status: StatusTimeLimit}, nil
		}
		if exhausted {
			// Iteration-limited prunes left parts of the tree unexplored,
			// so infeasibility is not proven.
			return Solution{Status: StatusNotSolved}, nil
		}
		return Solution{Status: StatusInfeasible}, nil
	}
	status := StatusOptimal
	if truncated || exhausted {
		status = StatusFeasible
	}
	return Solution{Status: status, Objective: incumbentObj, Values: incumbent}, nil
}

// fractionalColumn returns the most fractional integer-typed column,
// or -1 if the point is integral
func fractionalColumn(m *Model, x []float64) int {
	best := -1
	bestDist := intTol
	for i, v := range m.vars {
		if v.Type == Continuous {
			continue
		}
		_, f := math.Modf(x[i])
		dist := math.Min(f, 1-f)
		if dist > bestDist {
			best = i
			bestDist = dist
		}
	}
	return best
}

// roundIntegral snaps integer-typed columns to the nearest integer
func roundIntegral(m *Model, x []float64) []float64 {
	vals := make([]float64, len(x))
	copy(vals, x)
	for i, v := range m.vars {
		if v.Type != Continuous {
			vals[i] = math.Round(vals[i])
		}
	}
	return vals
}

func appendBranch(branches []branch, br branch) []branch {
	out := make([]branch, len(branches), len(branches)+1)
	copy(out, branches)
	return append(out, br)
}
