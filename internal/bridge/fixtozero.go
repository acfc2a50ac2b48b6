package bridge

import (
	"fmt"

	"github.com/bridgeopt/bridgeopt/internal/expr"
	"github.com/bridgeopt/bridgeopt/internal/model"
)

// FixToZero realizes variables constrained to Zeros as free downstream
// variables pinned by one EqualTo(0) constraint each. Zeros is not
// dimension-updatable, so the group can only be deleted whole.
type FixToZero struct{}

func (FixToZero) Name() string { return "FixToZero" }

func (FixToZero) SupportsSet(s expr.SetType) bool { return s == expr.SetZeros }

func (FixToZero) AddedConstraintTypes(s expr.SetType) []expr.Node {
	return []expr.Node{expr.ConstraintNode(expr.FunctionVariable, expr.SetEqualTo)}
}

func (FixToZero) AddedConstrainedVariableTypes(s expr.SetType) []expr.SetType { return nil }

func (FixToZero) Cost() int { return 1 }

func (FixToZero) BridgeConstrainedVariables(m model.API, s expr.Set, outputs []expr.VariableIndex) (VariableBridge, error) {
	if s.SetType() != expr.SetZeros {
		return nil, fmt.Errorf("FixToZero requires a Zeros set, got %s", s.SetType())
	}
	xs, err := m.AddVariables(s.Dimension())
	if err != nil {
		return nil, fmt.Errorf("add fixed variables: %w", err)
	}
	cis := make([]expr.ConstraintIndex, len(xs))
	for i, x := range xs {
		ci, err := m.AddConstraint(expr.Variable{Index: x}, expr.EqualTo{Value: 0})
		if err != nil {
			return nil, fmt.Errorf("fix variable %d: %w", i, err)
		}
		cis[i] = ci
	}
	return &fixToZeroInstance{xs: xs, cis: cis, outputs: append([]expr.VariableIndex(nil), outputs...)}, nil
}

type fixToZeroInstance struct {
	xs      []expr.VariableIndex
	cis     []expr.ConstraintIndex
	outputs []expr.VariableIndex
}

func (b *fixToZeroInstance) DefiningExpressions() []expr.Function {
	out := make([]expr.Function, len(b.xs))
	for i, x := range b.xs {
		out[i] = expr.Variable{Index: x}
	}
	return out
}

func (b *fixToZeroInstance) ReverseExpressions() map[expr.VariableIndex]expr.Function {
	out := make(map[expr.VariableIndex]expr.Function, len(b.xs))
	for i, x := range b.xs {
		out[x] = expr.Variable{Index: b.outputs[i]}
	}
	return out
}

func (b *fixToZeroInstance) ConstraintSet() expr.Set {
	return expr.Zeros{Dim: len(b.xs)}
}

func (b *fixToZeroInstance) ConstraintDual(m model.API) ([]float64, error) {
	out := make([]float64, len(b.cis))
	for i, ci := range b.cis {
		d, err := m.ConstraintDual(ci)
		if err != nil {
			return nil, err
		}
		out[i] = d[0]
	}
	return out, nil
}

func (b *fixToZeroInstance) Delete(m model.API) error {
	for _, ci := range b.cis {
		if err := m.DeleteConstraint(ci); err != nil {
			return err
		}
	}
	return m.DeleteVariables(b.xs)
}

func (b *fixToZeroInstance) DeleteCoordinates(m model.API, positions []int) error {
	return fmt.Errorf("a Zeros group is not dimension-updatable")
}

func (b *fixToZeroInstance) OwnedConstraints() []expr.ConstraintIndex {
	return append([]expr.ConstraintIndex(nil), b.cis...)
}

func (b *fixToZeroInstance) OwnedVariables() []expr.VariableIndex {
	return append([]expr.VariableIndex(nil), b.xs...)
}
