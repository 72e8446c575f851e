// Package mip provides a small mixed-integer programming layer: a Model
// describing integer variables, linear constraints and a linear objective,
// and pluggable Backend implementations that solve it.
package mip

import (
	"context"
	"math"
	"time"
)

// Status describes the outcome of a solve
type Status int

const (
	StatusNotSolved Status = iota
	StatusOptimal
	StatusFeasible // a feasible but not proven-optimal solution (e.g. time limit)
	StatusInfeasible
	StatusUnbounded
	StatusTimeLimit // time limit hit with no feasible solution found
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "Optimal"
	case StatusFeasible:
		return "Feasible"
	case StatusInfeasible:
		return "Infeasible"
	case StatusUnbounded:
		return "Unbounded"
	case StatusTimeLimit:
		return "TimeLimit"
	default:
		return "NotSolved"
	}
}

// VarType is the domain of a decision variable
type VarType int

const (
	Continuous VarType = iota
	Integer
	Binary
)

// Variable is a single decision variable with bounds and objective cost
type Variable struct {
	Name  string
	Type  VarType
	Lower float64
	Upper float64
	Cost  float64
}

// Term is one coefficient of a linear constraint
type Term struct {
	Col  int
	Coef float64
}

// Sense is the relation of a constraint to its right-hand side
type Sense int

const (
	LE Sense = iota
	GE
	EQ
)

// Constraint is a linear constraint sum(Terms) Sense RHS
type Constraint struct {
	Name  string
	Terms []Term
	Sense Sense
	RHS   float64
}

// Model is a minimization problem over integer/continuous variables
type Model struct {
	vars []Variable
	cons []Constraint
}

// NewModel creates an empty minimization model
func NewModel() *Model {
	return &Model{}
}

// AddBinary adds a 0/1 variable with the given objective cost and
// returns its column index
func (m *Model) AddBinary(name string, cost float64) int {
	m.vars = append(m.vars, Variable{Name: name, Type: Binary, Lower: 0, Upper: 1, Cost: cost})
	return len(m.vars) - 1
}

// AddInteger adds a non-negative unbounded integer variable with the
// given objective cost and returns its column index
func (m *Model) AddInteger(name string, cost float64) int {
	m.vars = append(m.vars, Variable{Name: name, Type: Integer, Lower: 0, Upper: math.Inf(1), Cost: cost})
	return len(m.vars) - 1
}

// Clone returns a copy of the model that can take extra constraints
// without mutating the original
func (m *Model) Clone() *Model {
	return &Model{
		vars: append([]Variable(nil), m.vars...),
		cons: append([]Constraint(nil), m.cons...),
	}
}

// AddConstraint appends a linear constraint to the model
func (m *Model) AddConstraint(name string, terms []Term, sense Sense, rhs float64) {
	m.cons = append(m.cons, Constraint{Name: name, Terms: terms, Sense: sense, RHS: rhs})
}

// NumVars returns the number of variables in the model
func (m *Model) NumVars() int { return len(m.vars) }

// NumConstraints returns the number of constraints in the model
func (m *Model) NumConstraints() int { return len(m.cons) }

// ObjectiveTerms returns the objective as constraint terms, one per
// variable with a nonzero cost. Useful for bounding the objective with
// an additional constraint.
func (m *Model) ObjectiveTerms() []Term {
	var terms []Term
	for i, v := range m.vars {
		if v.Cost != 0 {
			terms = append(terms, Term{Col: i, Coef: v.Cost})
		}
	}
	return terms
}

// Objective evaluates the objective for the given variable values
func (m *Model) Objective(values []float64) float64 {
	var total float64
	for i, v := range m.vars {
		total += v.Cost * values[i]
	}
	return total
}

// Solution is the result of solving a Model
type Solution struct {
	Status    Status
	Objective float64
	Values    []float64 // one entry per variable column; nil if no solution found
}

// Options controls a single solve
type Options struct {
	// TimeLimit bounds the wall-clock time of the solve; zero means no limit.
	TimeLimit time.Duration
	// Seed influences the backend's internal search order where supported.
	Seed int64
}

// Backend solves a Model. Implementations must be safe to reuse across
// independent solves but need not be safe for concurrent use.
type Backend interface {
	Solve(ctx context.Context, m *Model, opts Options) (Solution, error)
}
