package model

import (
	"errors"
	"testing"

	"github.com/bridgeopt/bridgeopt/internal/expr"
)

func TestAddConstraintRejectsUnsupportedPair(t *testing.T) {
	m := New()
	v, _ := m.AddVariable()

	_, err := m.AddConstraint(
		expr.Affine{Terms: []expr.Term{{Coefficient: 1, Variable: v}}},
		expr.Interval{Lower: 0, Upper: 1},
	)
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("Expected UnsupportedError, got %v", err)
	}
}

func TestAddConstraintRejectsUnknownVariable(t *testing.T) {
	m := New()

	_, err := m.AddConstraint(
		expr.Variable{Index: expr.VariableIndex{Kind: expr.Native, Value: 99}},
		expr.EqualTo{Value: 0},
	)
	if !errors.Is(err, ErrInvalidIndex) {
		t.Fatalf("Expected InvalidIndexError, got %v", err)
	}

	// Virtual indices are foreign to the backend by definition.
	_, err = m.AddConstraint(
		expr.Variable{Index: expr.VariableIndex{Kind: expr.Virtual, Value: 0}},
		expr.EqualTo{Value: 0},
	)
	if !errors.Is(err, ErrInvalidIndex) {
		t.Fatalf("Expected InvalidIndexError for virtual index, got %v", err)
	}
}

func TestConstrainedVariablesGroupLifecycle(t *testing.T) {
	m := New()
	vis, ci, err := m.AddConstrainedVariables(expr.Nonnegatives{Dim: 3})
	if err != nil {
		t.Fatalf("AddConstrainedVariables failed: %v", err)
	}
	if len(vis) != 3 {
		t.Fatalf("Expected 3 variables, got %d", len(vis))
	}
	if got := m.NumberOfConstraints(expr.FunctionVectorOfVariables, expr.SetNonnegatives); got != 1 {
		t.Errorf("Expected 1 group constraint, got %d", got)
	}

	// Nonnegatives is dimension-updatable: deleting one variable shrinks the group.
	if err := m.DeleteVariable(vis[1]); err != nil {
		t.Fatalf("Partial delete failed: %v", err)
	}
	f, err := m.ConstraintFunction(ci)
	if err != nil {
		t.Fatalf("ConstraintFunction failed: %v", err)
	}
	if got := len(f.(expr.VectorOfVariables).Vars); got != 2 {
		t.Errorf("Expected group of 2 after shrink, got %d", got)
	}
	s, _ := m.ConstraintSet(ci)
	if s.Dimension() != 2 {
		t.Errorf("Expected set dimension 2, got %d", s.Dimension())
	}

	// Deleting the rest removes the certifying constraint.
	if err := m.DeleteVariables([]expr.VariableIndex{vis[0], vis[2]}); err != nil {
		t.Fatalf("Group delete failed: %v", err)
	}
	if _, err := m.ConstraintFunction(ci); !errors.Is(err, ErrInvalidIndex) {
		t.Errorf("Expected constraint gone, got %v", err)
	}
	if m.NumberOfVariables() != 0 {
		t.Errorf("Expected no variables, got %d", m.NumberOfVariables())
	}
}

func TestDeleteVariableReferencedByConstraintFails(t *testing.T) {
	m := New()
	v, _ := m.AddVariable()
	_, err := m.AddConstraint(
		expr.Affine{Terms: []expr.Term{{Coefficient: 1, Variable: v}}},
		expr.LessThan{Upper: 1},
	)
	if err != nil {
		t.Fatalf("AddConstraint failed: %v", err)
	}

	if err := m.DeleteVariable(v); err == nil {
		t.Error("Expected delete of referenced variable to fail")
	}
}

func TestNameLookupCacheInvalidation(t *testing.T) {
	m := New()
	v, _ := m.AddVariable()
	if err := m.SetVariableName(v, "x"); err != nil {
		t.Fatalf("SetVariableName failed: %v", err)
	}

	got, ok, err := m.VariableByName("x")
	if err != nil || !ok || got != v {
		t.Fatalf("Expected to find x, got %v ok=%v err=%v", got, ok, err)
	}

	// Rename after the cache is built; lookup must see the change.
	if err := m.SetVariableName(v, "y"); err != nil {
		t.Fatalf("SetVariableName failed: %v", err)
	}
	if _, ok, _ := m.VariableByName("x"); ok {
		t.Error("Expected stale name x to be gone")
	}
	if _, ok, _ := m.VariableByName("y"); !ok {
		t.Error("Expected new name y to resolve")
	}

	// Duplicates are an error at lookup time.
	w, _ := m.AddVariable()
	m.SetVariableName(w, "y")
	if _, _, err := m.VariableByName("y"); err == nil {
		t.Error("Expected duplicate name error")
	}
}

func TestObjectiveAndSense(t *testing.T) {
	m := New()
	v, _ := m.AddVariable()

	if err := m.SetObjectiveSense(MinSense); err != nil {
		t.Fatalf("SetObjectiveSense failed: %v", err)
	}
	obj := expr.Affine{Terms: []expr.Term{{Coefficient: 2, Variable: v}}, Constant: 1}
	if err := m.SetObjectiveFunction(obj); err != nil {
		t.Fatalf("SetObjectiveFunction failed: %v", err)
	}

	got, err := m.ObjectiveFunction()
	if err != nil {
		t.Fatalf("ObjectiveFunction failed: %v", err)
	}
	if !expr.Equal(got, obj) {
		t.Errorf("Expected %v, got %v", obj, got)
	}

	// Feasibility sense clears the objective.
	m.SetObjectiveSense(FeasibilitySense)
	if _, err := m.ObjectiveFunction(); err == nil {
		t.Error("Expected no objective after clearing")
	}
}

func TestCopyToRebuildsModel(t *testing.T) {
	src := New()
	vis, _, err := src.AddConstrainedVariables(expr.Nonnegatives{Dim: 2})
	if err != nil {
		t.Fatalf("AddConstrainedVariables failed: %v", err)
	}
	free, _ := src.AddVariable()
	src.SetVariableName(free, "slack")
	ci, err := src.AddConstraint(
		expr.Affine{Terms: []expr.Term{
			{Coefficient: 1, Variable: vis[0]},
			{Coefficient: 1, Variable: vis[1]},
			{Coefficient: -1, Variable: free},
		}},
		expr.EqualTo{Value: 4},
	)
	if err != nil {
		t.Fatalf("AddConstraint failed: %v", err)
	}
	src.SetConstraintName(ci, "balance")
	src.SetObjectiveSense(MinSense)
	src.SetObjectiveFunction(expr.Variable{Index: free})

	dst := New()
	im, err := CopyTo(dst, src)
	if err != nil {
		t.Fatalf("CopyTo failed: %v", err)
	}

	if dst.NumberOfVariables() != 3 {
		t.Errorf("Expected 3 variables, got %d", dst.NumberOfVariables())
	}
	if got := dst.NumberOfConstraints(expr.FunctionVectorOfVariables, expr.SetNonnegatives); got != 1 {
		t.Errorf("Expected copied group, got %d", got)
	}
	dstCI, ok := im.Constraints[ci]
	if !ok {
		t.Fatal("Expected constraint in index map")
	}
	name, err := dst.ConstraintName(dstCI)
	if err != nil || name != "balance" {
		t.Errorf("Expected name balance, got %q err=%v", name, err)
	}
	if _, ok, _ := dst.VariableByName("slack"); !ok {
		t.Error("Expected variable name to be copied")
	}
	if dst.ObjectiveSense() != MinSense {
		t.Errorf("Expected min sense, got %s", dst.ObjectiveSense())
	}
}
