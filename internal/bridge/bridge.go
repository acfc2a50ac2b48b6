// Package bridge rewrites unsupported function/set combinations into
// combinations a downstream model natively accepts. It provides the contracts
// a transformation unit implements, the graph that selects the cheapest chain
// of units for a node, and the Optimizer that wraps a downstream model and
// routes every operation to the right place.
package bridge

import (
	"github.com/bridgeopt/bridgeopt/internal/expr"
	"github.com/bridgeopt/bridgeopt/internal/model"
)

// ConstraintBridgeType describes a constraint transformation unit: which
// (function, set) nodes it can consume and which downstream nodes it needs.
// The declarations are static; they drive graph construction only. Bridge is
// only invoked for pairs SupportsConstraint accepts.
type ConstraintBridgeType interface {
	Name() string
	SupportsConstraint(f expr.FunctionType, s expr.SetType) bool
	// AddedConstraintTypes lists the constraint nodes the bridge creates.
	AddedConstraintTypes(f expr.FunctionType, s expr.SetType) []expr.Node
	// AddedConstrainedVariableTypes lists the sets of variable groups the
	// bridge creates.
	AddedConstrainedVariableTypes(f expr.FunctionType, s expr.SetType) []expr.SetType
	// Cost is the edge weight, at least 1.
	Cost() int
	// Bridge consumes the constraint and produces its replacement objects
	// on m. The function is already in downstream space.
	Bridge(m model.API, f expr.Function, s expr.Set) (ConstraintBridge, error)
}

// ConstraintBridge is one bridged constraint instance. It owns the downstream
// objects it created and answers attribute queries by reading them. Functions
// it returns are in downstream space; the Optimizer reverse-substitutes them.
type ConstraintBridge interface {
	ConstraintFunction(m model.API) (expr.Function, error)
	ConstraintSet() expr.Set
	ConstraintDual(m model.API) ([]float64, error)
	// Delete removes every owned downstream object, leaving no residue.
	Delete(m model.API) error
	OwnedConstraints() []expr.ConstraintIndex
	OwnedVariables() []expr.VariableIndex
}

// VariableBridgeType describes a constrained-variable transformation unit,
// keyed by set node alone.
type VariableBridgeType interface {
	Name() string
	SupportsSet(s expr.SetType) bool
	AddedConstraintTypes(s expr.SetType) []expr.Node
	AddedConstrainedVariableTypes(s expr.SetType) []expr.SetType
	Cost() int
	// BridgeConstrainedVariables produces the group. outputs are the
	// user-facing indices the caller allocated, one per set dimension; the
	// bridge uses them to express its reverse substitutions.
	BridgeConstrainedVariables(m model.API, s expr.Set, outputs []expr.VariableIndex) (VariableBridge, error)
}

// VariableBridge is one bridged variable group together with its certifying
// constraint.
type VariableBridge interface {
	// DefiningExpressions returns, per output variable, its value as an
	// expression over downstream variables. Used to substitute bridged
	// variables out of any function before the downstream model sees it.
	DefiningExpressions() []expr.Function
	// ReverseExpressions maps each downstream variable the bridge created
	// to its user-space expression over the output variables. Used to
	// translate downstream reads back.
	ReverseExpressions() map[expr.VariableIndex]expr.Function
	ConstraintSet() expr.Set
	ConstraintDual(m model.API) ([]float64, error)
	Delete(m model.API) error
	// DeleteCoordinates removes the given output positions. Only invoked
	// when the set is dimension-updatable.
	DeleteCoordinates(m model.API, positions []int) error
	OwnedConstraints() []expr.ConstraintIndex
	OwnedVariables() []expr.VariableIndex
}

// ObjectiveBridgeType describes an objective transformation unit, keyed by
// function node alone.
type ObjectiveBridgeType interface {
	Name() string
	SupportsFunction(f expr.FunctionType) bool
	// DownstreamObjectiveType is the objective node the bridge sets on the
	// downstream model.
	DownstreamObjectiveType(f expr.FunctionType) expr.FunctionType
	AddedConstraintTypes(f expr.FunctionType) []expr.Node
	AddedConstrainedVariableTypes(f expr.FunctionType) []expr.SetType
	Cost() int
	BridgeObjective(m model.API, f expr.Function) (ObjectiveBridge, error)
}

// ObjectiveBridge is one bridged objective instance.
type ObjectiveBridge interface {
	ObjectiveFunction(m model.API) (expr.Function, error)
	Delete(m model.API) error
	OwnedConstraints() []expr.ConstraintIndex
	OwnedVariables() []expr.VariableIndex
}
