package bridge

import (
	"fmt"

	"github.com/bridgeopt/bridgeopt/internal/expr"
	"github.com/bridgeopt/bridgeopt/internal/model"
)

// SplitInterval rewrites f-in-Interval(l, u) as f >= l plus f <= u. The
// function is shared between the two downstream constraints, constants
// included, so reads reconstruct the original exactly.
type SplitInterval struct{}

func (SplitInterval) Name() string { return "SplitInterval" }

func (SplitInterval) SupportsConstraint(f expr.FunctionType, s expr.SetType) bool {
	if s != expr.SetInterval {
		return false
	}
	return f == expr.FunctionVariable || f == expr.FunctionAffine || f == expr.FunctionQuadratic
}

func (SplitInterval) AddedConstraintTypes(f expr.FunctionType, s expr.SetType) []expr.Node {
	return []expr.Node{
		expr.ConstraintNode(f, expr.SetGreaterThan),
		expr.ConstraintNode(f, expr.SetLessThan),
	}
}

func (SplitInterval) AddedConstrainedVariableTypes(f expr.FunctionType, s expr.SetType) []expr.SetType {
	return nil
}

func (SplitInterval) Cost() int { return 1 }

func (SplitInterval) Bridge(m model.API, f expr.Function, s expr.Set) (ConstraintBridge, error) {
	iv, ok := s.(expr.Interval)
	if !ok {
		return nil, fmt.Errorf("SplitInterval requires an Interval set, got %s", s.SetType())
	}
	lower, err := m.AddConstraint(f, expr.GreaterThan{Lower: iv.Lower})
	if err != nil {
		return nil, fmt.Errorf("add lower half: %w", err)
	}
	upper, err := m.AddConstraint(f, expr.LessThan{Upper: iv.Upper})
	if err != nil {
		return nil, fmt.Errorf("add upper half: %w", err)
	}
	return &splitIntervalInstance{set: iv, lower: lower, upper: upper}, nil
}

type splitIntervalInstance struct {
	set   expr.Interval
	lower expr.ConstraintIndex
	upper expr.ConstraintIndex
}

func (b *splitIntervalInstance) ConstraintFunction(m model.API) (expr.Function, error) {
	return m.ConstraintFunction(b.lower)
}

func (b *splitIntervalInstance) ConstraintSet() expr.Set { return b.set }

// ConstraintDual sums the two halves: at most one is active, and the signs
// already agree with the interval's dual convention.
func (b *splitIntervalInstance) ConstraintDual(m model.API) ([]float64, error) {
	dl, err := m.ConstraintDual(b.lower)
	if err != nil {
		return nil, err
	}
	du, err := m.ConstraintDual(b.upper)
	if err != nil {
		return nil, err
	}
	return []float64{dl[0] + du[0]}, nil
}

func (b *splitIntervalInstance) Delete(m model.API) error {
	if err := m.DeleteConstraint(b.lower); err != nil {
		return err
	}
	return m.DeleteConstraint(b.upper)
}

func (b *splitIntervalInstance) OwnedConstraints() []expr.ConstraintIndex {
	return []expr.ConstraintIndex{b.lower, b.upper}
}

func (b *splitIntervalInstance) OwnedVariables() []expr.VariableIndex { return nil }
