// Package solver minimizes a model numerically with the mayfly algorithm.
// Constraints enter the objective as quadratic penalties, so the backend only
// needs function evaluation, not derivatives.
package solver

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"

	"github.com/cwbudde/mayfly"

	"github.com/bridgeopt/bridgeopt/internal/expr"
	"github.com/bridgeopt/bridgeopt/internal/model"
)

// Options tune the mayfly run. PopulationSize must be at least 20 for mayfly
// v0.1.0.
type Options struct {
	MaxIterations  int
	PopulationSize int
	Seed           int64
	PenaltyWeight  float64
}

// DefaultOptions returns settings that converge on small models.
func DefaultOptions() Options {
	return Options{
		MaxIterations:  200,
		PopulationSize: 20,
		Seed:           42,
		PenaltyWeight:  1e4,
	}
}

// Result is the outcome of a solve. Primals are also written back into the
// model, keyed by the model's own variable indices.
type Result struct {
	Objective float64
	Primals   map[expr.VariableIndex]float64
}

// Solve minimizes (or maximizes, per the model's sense) the model's objective
// subject to its constraints and writes the best primals back via
// SetVariablePrimal. The model must accept primal writes on every listed
// variable, so bridged wrappers should hand their downstream model here and
// let callers read bridged primals back through the wrapper.
func Solve(m model.API, opts Options) (*Result, error) {
	vars := m.ListOfVariableIndices()
	if len(vars) == 0 {
		return nil, fmt.Errorf("solve: model has no variables")
	}
	pos := make(map[expr.VariableIndex]int, len(vars))
	for i, v := range vars {
		pos[v] = i
	}

	var objective expr.Function
	sense := m.ObjectiveSense()
	if sense != model.FeasibilitySense {
		f, err := m.ObjectiveFunction()
		if err != nil {
			return nil, fmt.Errorf("solve: %w", err)
		}
		objective = f
	}

	cons, err := collectConstraints(m)
	if err != nil {
		return nil, err
	}
	lower, upper := bounds(cons, pos, len(vars))

	weight := opts.PenaltyWeight
	if weight <= 0 {
		weight = DefaultOptions().PenaltyWeight
	}
	eval := func(x []float64) float64 {
		at := func(v expr.VariableIndex) float64 { return x[pos[v]] }
		cost := 0.0
		if objective != nil {
			cost = expr.Value(objective, at)
			if sense == model.MaxSense {
				cost = -cost
			}
		}
		for _, c := range cons {
			for _, viol := range c.violations(at) {
				cost += weight * viol * viol
			}
		}
		return cost
	}

	config := mayfly.NewDefaultConfig()
	config.ObjectiveFunc = eval
	config.ProblemSize = len(vars)
	config.MaxIterations = opts.MaxIterations
	config.NPop = opts.PopulationSize
	// The library takes scalar bounds; use the widest box that covers every
	// per-variable bound.
	config.LowerBound = minOf(lower)
	config.UpperBound = maxOf(upper)
	config.Rand = rand.New(rand.NewSource(opts.Seed))

	result, err := mayfly.Optimize(config)
	if err != nil {
		return nil, fmt.Errorf("mayfly: %w", err)
	}
	best := result.GlobalBest.Position

	primals := make(map[expr.VariableIndex]float64, len(vars))
	for i, v := range vars {
		if err := m.SetVariablePrimal(v, best[i]); err != nil {
			return nil, fmt.Errorf("write primal for %s: %w", v, err)
		}
		primals[v] = best[i]
	}

	objValue := 0.0
	if objective != nil {
		objValue = expr.Value(objective, func(v expr.VariableIndex) float64 { return best[pos[v]] })
	}
	slog.Debug("Solve finished", "variables", len(vars), "constraints", len(cons), "objective", objValue, "penalized_cost", result.GlobalBest.Cost)
	return &Result{Objective: objValue, Primals: primals}, nil
}

type constraint struct {
	f expr.Function
	s expr.Set
}

func collectConstraints(m model.API) ([]constraint, error) {
	var out []constraint
	for _, node := range m.ListOfConstraintTypes() {
		for _, ci := range m.ListOfConstraintIndices(node.F, node.S) {
			f, err := m.ConstraintFunction(ci)
			if err != nil {
				return nil, fmt.Errorf("solve: read %s: %w", ci, err)
			}
			s, err := m.ConstraintSet(ci)
			if err != nil {
				return nil, fmt.Errorf("solve: read %s: %w", ci, err)
			}
			out = append(out, constraint{f: f, s: s})
		}
	}
	return out, nil
}

// violations returns one nonnegative residual per violated coordinate; an
// empty slice means the constraint holds at x.
func (c constraint) violations(at func(expr.VariableIndex) float64) []float64 {
	values := c.values(at)
	var out []float64
	add := func(v float64) {
		if v > 0 {
			out = append(out, v)
		}
	}
	switch s := c.s.(type) {
	case expr.EqualTo:
		add(math.Abs(values[0] - s.Value))
	case expr.GreaterThan:
		add(s.Lower - values[0])
	case expr.LessThan:
		add(values[0] - s.Upper)
	case expr.Interval:
		add(s.Lower - values[0])
		add(values[0] - s.Upper)
	case expr.Nonnegatives:
		for _, v := range values {
			add(-v)
		}
	case expr.Nonpositives:
		for _, v := range values {
			add(v)
		}
	case expr.Zeros:
		for _, v := range values {
			add(math.Abs(v))
		}
	}
	return out
}

func (c constraint) values(at func(expr.VariableIndex) float64) []float64 {
	if vov, ok := c.f.(expr.VectorOfVariables); ok {
		out := make([]float64, len(vov.Vars))
		for i, v := range vov.Vars {
			out[i] = at(v)
		}
		return out
	}
	return []float64{expr.Value(c.f, at)}
}

// bounds derives per-variable boxes from single-variable bound constraints
// (a bare variable or a one-term affine), defaulting to [-1e3, 1e3] where a
// variable carries none.
func bounds(cons []constraint, pos map[expr.VariableIndex]int, dim int) ([]float64, []float64) {
	const defaultBound = 1e3
	lower := make([]float64, dim)
	upper := make([]float64, dim)
	for i := range lower {
		lower[i] = -defaultBound
		upper[i] = defaultBound
	}
	for _, c := range cons {
		coef, vi, offset, ok := singleVariable(c.f)
		if !ok {
			continue
		}
		i, ok := pos[vi]
		if !ok {
			continue
		}
		// coef*v + offset in set; translate the set's bounds onto v.
		apply := func(lo, hi float64) {
			lo, hi = (lo-offset)/coef, (hi-offset)/coef
			if coef < 0 {
				lo, hi = hi, lo
			}
			if !math.IsInf(lo, 0) {
				lower[i] = math.Max(lower[i], lo)
			}
			if !math.IsInf(hi, 0) {
				upper[i] = math.Min(upper[i], hi)
			}
		}
		switch s := c.s.(type) {
		case expr.EqualTo:
			apply(s.Value, s.Value)
		case expr.GreaterThan:
			apply(s.Lower, math.Inf(1))
		case expr.LessThan:
			apply(math.Inf(-1), s.Upper)
		case expr.Interval:
			apply(s.Lower, s.Upper)
		}
	}
	return lower, upper
}

func singleVariable(f expr.Function) (coef float64, vi expr.VariableIndex, offset float64, ok bool) {
	switch g := f.(type) {
	case expr.Variable:
		return 1, g.Index, 0, true
	case expr.Affine:
		canon := expr.CanonicalAffine(g)
		if len(canon.Terms) != 1 || canon.Terms[0].Coefficient == 0 {
			return 0, expr.VariableIndex{}, 0, false
		}
		return canon.Terms[0].Coefficient, canon.Terms[0].Variable, canon.Constant, true
	default:
		return 0, expr.VariableIndex{}, 0, false
	}
}

func minOf(xs []float64) float64 {
	out := xs[0]
	for _, x := range xs[1:] {
		out = math.Min(out, x)
	}
	return out
}

func maxOf(xs []float64) float64 {
	out := xs[0]
	for _, x := range xs[1:] {
		out = math.Max(out, x)
	}
	return out
}
