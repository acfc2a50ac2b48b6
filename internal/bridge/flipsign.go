package bridge

import (
	"fmt"

	"github.com/bridgeopt/bridgeopt/internal/expr"
	"github.com/bridgeopt/bridgeopt/internal/model"
)

// FlipSign realizes variables constrained to Nonpositives as negated
// Nonnegatives variables: each user variable x_i is -y_i for a downstream
// y_i >= 0. Nonpositives is dimension-updatable, so partial deletes shrink
// the group in place.
type FlipSign struct{}

func (FlipSign) Name() string { return "FlipSign" }

func (FlipSign) SupportsSet(s expr.SetType) bool { return s == expr.SetNonpositives }

func (FlipSign) AddedConstraintTypes(s expr.SetType) []expr.Node { return nil }

func (FlipSign) AddedConstrainedVariableTypes(s expr.SetType) []expr.SetType {
	return []expr.SetType{expr.SetNonnegatives}
}

func (FlipSign) Cost() int { return 1 }

func (FlipSign) BridgeConstrainedVariables(m model.API, s expr.Set, outputs []expr.VariableIndex) (VariableBridge, error) {
	if s.SetType() != expr.SetNonpositives {
		return nil, fmt.Errorf("FlipSign requires a Nonpositives set, got %s", s.SetType())
	}
	ys, ci, err := m.AddConstrainedVariables(expr.Nonnegatives{Dim: s.Dimension()})
	if err != nil {
		return nil, fmt.Errorf("add flipped group: %w", err)
	}
	return &flipSignInstance{ys: ys, ci: ci, outputs: append([]expr.VariableIndex(nil), outputs...)}, nil
}

type flipSignInstance struct {
	ys      []expr.VariableIndex
	ci      expr.ConstraintIndex
	outputs []expr.VariableIndex
}

func negated(v expr.VariableIndex) expr.Function {
	return expr.Affine{Terms: []expr.Term{{Coefficient: -1, Variable: v}}}
}

func (b *flipSignInstance) DefiningExpressions() []expr.Function {
	out := make([]expr.Function, len(b.ys))
	for i, y := range b.ys {
		out[i] = negated(y)
	}
	return out
}

func (b *flipSignInstance) ReverseExpressions() map[expr.VariableIndex]expr.Function {
	out := make(map[expr.VariableIndex]expr.Function, len(b.ys))
	for i, y := range b.ys {
		out[y] = negated(b.outputs[i])
	}
	return out
}

func (b *flipSignInstance) ConstraintSet() expr.Set {
	return expr.Nonpositives{Dim: len(b.ys)}
}

// ConstraintDual negates the downstream dual: the flip x = -y carries the
// dual cone of Nonnegatives onto the dual cone of Nonpositives.
func (b *flipSignInstance) ConstraintDual(m model.API) ([]float64, error) {
	dual, err := m.ConstraintDual(b.ci)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(dual))
	for i, d := range dual {
		out[i] = -d
	}
	return out, nil
}

func (b *flipSignInstance) Delete(m model.API) error {
	return m.DeleteVariables(b.ys)
}

func (b *flipSignInstance) DeleteCoordinates(m model.API, positions []int) error {
	del := make(map[int]bool, len(positions))
	var group []expr.VariableIndex
	for _, p := range positions {
		if p < 0 || p >= len(b.ys) {
			return fmt.Errorf("coordinate %d out of range for group of %d", p, len(b.ys))
		}
		del[p] = true
		group = append(group, b.ys[p])
	}
	if err := m.DeleteVariables(group); err != nil {
		return err
	}
	var ys []expr.VariableIndex
	var outs []expr.VariableIndex
	for i := range b.ys {
		if !del[i] {
			ys = append(ys, b.ys[i])
			outs = append(outs, b.outputs[i])
		}
	}
	b.ys, b.outputs = ys, outs
	return nil
}

func (b *flipSignInstance) OwnedConstraints() []expr.ConstraintIndex {
	return []expr.ConstraintIndex{b.ci}
}

func (b *flipSignInstance) OwnedVariables() []expr.VariableIndex {
	return append([]expr.VariableIndex(nil), b.ys...)
}
