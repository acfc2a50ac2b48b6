// Package model defines the structural contract a downstream optimization
// model must satisfy, plus an in-memory backend implementing it. The bridging
// layer wraps any API implementation and satisfies API itself.
package model

import (
	"fmt"

	"github.com/bridgeopt/bridgeopt/internal/expr"
)

// Sense is the optimization direction.
type Sense uint8

const (
	// FeasibilitySense means no objective; setting it clears any objective.
	FeasibilitySense Sense = iota
	MinSense
	MaxSense
)

func (s Sense) String() string {
	switch s {
	case FeasibilitySense:
		return "feasibility"
	case MinSense:
		return "min"
	case MaxSense:
		return "max"
	default:
		return fmt.Sprintf("Sense(%d)", uint8(s))
	}
}

// ParseSense resolves a sense by name.
func ParseSense(name string) (Sense, error) {
	switch name {
	case "feasibility":
		return FeasibilitySense, nil
	case "min":
		return MinSense, nil
	case "max":
		return MaxSense, nil
	default:
		return FeasibilitySense, fmt.Errorf("unknown sense %q", name)
	}
}

// API is the full surface of an optimization model.
//
// Error handling conventions:
//   - Return nil error on success
//   - Operations on unknown or deleted indices return an invalid-index error
//   - Unsupported function/set pairs are reported, never silently accepted
//   - Wrap underlying errors with context using fmt.Errorf("context: %w", err)
type API interface {
	// AddVariable adds one free variable.
	AddVariable() (expr.VariableIndex, error)
	// AddVariables adds n free variables.
	AddVariables(n int) ([]expr.VariableIndex, error)
	// AddConstrainedVariable adds one variable together with its certifying
	// scalar constraint.
	AddConstrainedVariable(s expr.Set) (expr.VariableIndex, expr.ConstraintIndex, error)
	// AddConstrainedVariables adds set.Dimension() variables together with
	// the certifying vector constraint.
	AddConstrainedVariables(s expr.Set) ([]expr.VariableIndex, expr.ConstraintIndex, error)
	// AddConstraint adds the constraint f(x) in s.
	AddConstraint(f expr.Function, s expr.Set) (expr.ConstraintIndex, error)

	SupportsConstraint(f expr.FunctionType, s expr.SetType) bool
	SupportsConstrainedVariables(s expr.SetType) bool
	SupportsObjectiveFunction(f expr.FunctionType) bool

	// DeleteVariable removes one variable. Deleting a variable that other
	// constraints reference, or a strict subset of a vector group, fails.
	DeleteVariable(v expr.VariableIndex) error
	// DeleteVariables removes a group of variables together.
	DeleteVariables(vs []expr.VariableIndex) error
	DeleteConstraint(c expr.ConstraintIndex) error

	ConstraintFunction(c expr.ConstraintIndex) (expr.Function, error)
	ConstraintSet(c expr.ConstraintIndex) (expr.Set, error)
	ConstraintName(c expr.ConstraintIndex) (string, error)
	SetConstraintName(c expr.ConstraintIndex, name string) error
	// ConstraintDual returns one value per set dimension.
	ConstraintDual(c expr.ConstraintIndex) ([]float64, error)
	SetConstraintDual(c expr.ConstraintIndex, dual []float64) error

	VariableName(v expr.VariableIndex) (string, error)
	SetVariableName(v expr.VariableIndex, name string) error
	VariablePrimal(v expr.VariableIndex) (float64, error)
	SetVariablePrimal(v expr.VariableIndex, value float64) error

	ObjectiveFunction() (expr.Function, error)
	SetObjectiveFunction(f expr.Function) error
	ObjectiveSense() Sense
	SetObjectiveSense(s Sense) error

	NumberOfVariables() int
	ListOfVariableIndices() []expr.VariableIndex
	NumberOfConstraints(f expr.FunctionType, s expr.SetType) int
	ListOfConstraintIndices(f expr.FunctionType, s expr.SetType) []expr.ConstraintIndex
	ListOfConstraintTypes() []expr.Node

	// VariableByName reports the variable with the given name, if any.
	// Duplicate names are an error at lookup time.
	VariableByName(name string) (expr.VariableIndex, bool, error)
	ConstraintByName(name string) (expr.ConstraintIndex, bool, error)

	// Empty removes everything, returning the model to its initial state.
	Empty() error
	IsEmpty() bool
}
