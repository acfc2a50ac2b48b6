package store

import (
	"reflect"
	"testing"

	"github.com/bridgeopt/bridgeopt/internal/bridge"
	"github.com/bridgeopt/bridgeopt/internal/expr"
	"github.com/bridgeopt/bridgeopt/internal/model"
)

func buildSampleModel(t *testing.T) *model.Model {
	t.Helper()
	m := model.New()
	group, gci, err := m.AddConstrainedVariables(expr.Nonnegatives{Dim: 2})
	if err != nil {
		t.Fatalf("AddConstrainedVariables failed: %v", err)
	}
	if err := m.SetConstraintName(gci, "box"); err != nil {
		t.Fatalf("SetConstraintName failed: %v", err)
	}
	x, _ := m.AddVariable()
	if err := m.SetVariableName(x, "x"); err != nil {
		t.Fatalf("SetVariableName failed: %v", err)
	}
	ci, err := m.AddConstraint(expr.Affine{
		Terms:    []expr.Term{{Coefficient: 1, Variable: x}, {Coefficient: 2, Variable: group[0]}},
		Constant: -1,
	}, expr.LessThan{Upper: 4})
	if err != nil {
		t.Fatalf("AddConstraint failed: %v", err)
	}
	if err := m.SetConstraintName(ci, "budget"); err != nil {
		t.Fatalf("SetConstraintName failed: %v", err)
	}
	if err := m.SetObjectiveSense(model.MinSense); err != nil {
		t.Fatalf("SetObjectiveSense failed: %v", err)
	}
	obj := expr.Quadratic{
		QuadTerms: []expr.QuadTerm{{Coefficient: 1, Variable1: x, Variable2: x}},
		Terms:     []expr.Term{{Coefficient: 1, Variable: group[1]}},
	}
	if err := m.SetObjectiveFunction(obj); err != nil {
		t.Fatalf("SetObjectiveFunction failed: %v", err)
	}
	return m
}

func TestSnapshotBuildRoundTrip(t *testing.T) {
	doc, err := Snapshot(buildSampleModel(t))
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if err := doc.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if len(doc.Variables) != 3 || len(doc.Groups) != 1 || len(doc.Constraints) != 1 {
		t.Fatalf("Unexpected document shape: %d vars, %d groups, %d constraints",
			len(doc.Variables), len(doc.Groups), len(doc.Constraints))
	}
	if doc.Sense != "min" || doc.Objective == nil {
		t.Fatalf("Expected min objective in document, got sense %q", doc.Sense)
	}

	rebuilt := model.New()
	vars, err := Build(doc, rebuilt)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(vars) != 3 {
		t.Fatalf("Expected 3 variables, got %d", len(vars))
	}
	x, ok, err := rebuilt.VariableByName("x")
	if err != nil || !ok {
		t.Fatalf("Expected variable x in rebuilt model, ok=%v err=%v", ok, err)
	}
	if x != vars[2] {
		t.Errorf("Expected x at position 2, got %s", x)
	}
	if _, ok, _ := rebuilt.ConstraintByName("budget"); !ok {
		t.Error("Expected constraint budget in rebuilt model")
	}
	if _, ok, _ := rebuilt.ConstraintByName("box"); !ok {
		t.Error("Expected group constraint box in rebuilt model")
	}

	again, err := Snapshot(rebuilt)
	if err != nil {
		t.Fatalf("Snapshot of rebuilt model failed: %v", err)
	}
	if !reflect.DeepEqual(doc, again) {
		t.Errorf("Round trip changed the document:\nfirst:  %+v\nsecond: %+v", doc, again)
	}
}

func TestSnapshotThroughBridgedWrapper(t *testing.T) {
	m := model.New()
	o, err := bridge.NewDefault(m)
	if err != nil {
		t.Fatalf("NewDefault failed: %v", err)
	}
	outs, _, err := o.AddConstrainedVariables(expr.Nonpositives{Dim: 2})
	if err != nil {
		t.Fatalf("AddConstrainedVariables failed: %v", err)
	}
	if _, err := o.AddConstraint(expr.Affine{Terms: []expr.Term{{Coefficient: 1, Variable: outs[0]}}}, expr.Interval{Lower: -3, Upper: 0}); err != nil {
		t.Fatalf("AddConstraint failed: %v", err)
	}

	doc, err := Snapshot(o)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	// The wrapper presents the bridged shape, not the downstream one.
	if len(doc.Groups) != 1 || doc.Groups[0].Set.Type != "Nonpositives" {
		t.Fatalf("Expected one Nonpositives group, got %+v", doc.Groups)
	}
	if len(doc.Constraints) != 1 || doc.Constraints[0].Set.Type != "Interval" {
		t.Fatalf("Expected one Interval constraint, got %+v", doc.Constraints)
	}

	// The document replays through a fresh bridged wrapper.
	o2, err := bridge.NewDefault(model.New())
	if err != nil {
		t.Fatalf("NewDefault failed: %v", err)
	}
	if _, err := Build(doc, o2); err != nil {
		t.Fatalf("Build through wrapper failed: %v", err)
	}
	if n := o2.NumberOfConstraints(expr.FunctionVectorOfVariables, expr.SetNonpositives); n != 1 {
		t.Errorf("Expected 1 Nonpositives group after rebuild, got %d", n)
	}
}

func TestValidateRejectsBadReferences(t *testing.T) {
	doc := &ModelDoc{
		Variables: []VariableDoc{{}},
		Constraints: []ConstraintDoc{{
			Function: FunctionDoc{Type: "Variable", Variable: 5},
			Set:      SetDoc{Type: "EqualTo", Value: 0},
		}},
		Sense: "feasibility",
	}
	if err := doc.Validate(); err == nil {
		t.Error("Expected out-of-range reference to fail validation")
	}

	doc = &ModelDoc{Variables: []VariableDoc{{}}, Sense: "sideways"}
	if err := doc.Validate(); err == nil {
		t.Error("Expected unknown sense to fail validation")
	}

	doc = &ModelDoc{
		Variables: []VariableDoc{{}, {}},
		Groups:    []GroupDoc{{Set: SetDoc{Type: "Zeros", Dim: 3}, Vars: []int{0, 1}}},
		Sense:     "feasibility",
	}
	if err := doc.Validate(); err == nil {
		t.Error("Expected dimension mismatch to fail validation")
	}
}
