package bridge

import (
	"fmt"

	"github.com/bridgeopt/bridgeopt/internal/expr"
	"github.com/bridgeopt/bridgeopt/internal/model"
)

// Functionize rewrites a single-variable objective as the equivalent affine
// objective 1*x + 0, for downstream models that only take functional
// objectives.
type Functionize struct{}

func (Functionize) Name() string { return "Functionize" }

func (Functionize) SupportsFunction(f expr.FunctionType) bool {
	return f == expr.FunctionVariable
}

func (Functionize) DownstreamObjectiveType(f expr.FunctionType) expr.FunctionType {
	return expr.FunctionAffine
}

func (Functionize) AddedConstraintTypes(f expr.FunctionType) []expr.Node { return nil }

func (Functionize) AddedConstrainedVariableTypes(f expr.FunctionType) []expr.SetType { return nil }

func (Functionize) Cost() int { return 1 }

func (Functionize) BridgeObjective(m model.API, f expr.Function) (ObjectiveBridge, error) {
	v, ok := f.(expr.Variable)
	if !ok {
		return nil, fmt.Errorf("Functionize requires a Variable objective, got %s", f.FunctionType())
	}
	affine := expr.Affine{Terms: []expr.Term{{Coefficient: 1, Variable: v.Index}}}
	if err := m.SetObjectiveFunction(affine); err != nil {
		return nil, fmt.Errorf("set functionized objective: %w", err)
	}
	return &functionizeInstance{v: v}, nil
}

type functionizeInstance struct {
	v expr.Variable
}

func (b *functionizeInstance) ObjectiveFunction(m model.API) (expr.Function, error) {
	return b.v, nil
}

func (b *functionizeInstance) Delete(m model.API) error { return nil }

func (b *functionizeInstance) OwnedConstraints() []expr.ConstraintIndex { return nil }

func (b *functionizeInstance) OwnedVariables() []expr.VariableIndex { return nil }
