package bridge

import (
	"errors"
	"fmt"
	"testing"

	"github.com/bridgeopt/bridgeopt/internal/expr"
	"github.com/bridgeopt/bridgeopt/internal/model"
)

// fakeCaps declares a fixed native surface without a real model.
type fakeCaps struct {
	cons map[expr.Node]bool
	vars map[expr.SetType]bool
	objs map[expr.FunctionType]bool
}

func (c fakeCaps) SupportsConstraint(f expr.FunctionType, s expr.SetType) bool {
	return c.cons[expr.ConstraintNode(f, s)]
}
func (c fakeCaps) SupportsConstrainedVariables(s expr.SetType) bool { return c.vars[s] }
func (c fakeCaps) SupportsObjectiveFunction(f expr.FunctionType) bool { return c.objs[f] }

// stubBridge is a constraint bridge descriptor for exactly one node; graph
// tests never instantiate it.
type stubBridge struct {
	name     string
	produces expr.Node
	requires []expr.Node
	cost     int
}

func (b stubBridge) Name() string { return b.name }
func (b stubBridge) SupportsConstraint(f expr.FunctionType, s expr.SetType) bool {
	return expr.ConstraintNode(f, s) == b.produces
}
func (b stubBridge) AddedConstraintTypes(f expr.FunctionType, s expr.SetType) []expr.Node {
	return b.requires
}
func (b stubBridge) AddedConstrainedVariableTypes(f expr.FunctionType, s expr.SetType) []expr.SetType {
	return nil
}
func (b stubBridge) Cost() int { return b.cost }
func (b stubBridge) Bridge(m model.API, f expr.Function, s expr.Set) (ConstraintBridge, error) {
	return nil, fmt.Errorf("stub bridge %s cannot build", b.name)
}

var (
	nodeA  = expr.ConstraintNode(expr.FunctionAffine, expr.SetGreaterThan) // native in these tests
	nodeN1 = expr.ConstraintNode(expr.FunctionAffine, expr.SetLessThan)
	nodeN2 = expr.ConstraintNode(expr.FunctionAffine, expr.SetInterval)
)

func newTestGraph() *Graph {
	return NewGraph(fakeCaps{cons: map[expr.Node]bool{nodeA: true}})
}

func TestNativeNodeCostsZero(t *testing.T) {
	g := newTestGraph()
	if !g.SupportsConstraint(nodeA.F, nodeA.S) {
		t.Fatal("Expected native node to be supported")
	}
	cost, ok := g.Cost(nodeA)
	if !ok || cost != 0 {
		t.Errorf("Expected native cost 0, got %d ok=%v", cost, ok)
	}
	if !g.IsNative(nodeA) {
		t.Error("Expected node to be native")
	}
	if g.SupportsConstraint(nodeN2.F, nodeN2.S) {
		t.Error("Expected unregistered node to be unsupported")
	}
}

func TestChainCostAndCheaperBridgeWins(t *testing.T) {
	g := newTestGraph()
	// R1 realizes N1 from native A; R2 realizes N2 from N1.
	r1 := stubBridge{name: "R1", produces: nodeN1, requires: []expr.Node{nodeA}, cost: 1}
	r2 := stubBridge{name: "R2", produces: nodeN2, requires: []expr.Node{nodeN1}, cost: 1}
	if err := g.AddConstraintBridge(r1); err != nil {
		t.Fatalf("AddConstraintBridge failed: %v", err)
	}
	if err := g.AddConstraintBridge(r2); err != nil {
		t.Fatalf("AddConstraintBridge failed: %v", err)
	}

	cost, ok := g.Cost(nodeN2)
	if !ok || cost != 2 {
		t.Fatalf("Expected chain cost 2, got %d ok=%v", cost, ok)
	}
	bt, err := g.ConstraintBridgeType(nodeN2.F, nodeN2.S)
	if err != nil {
		t.Fatalf("ConstraintBridgeType failed: %v", err)
	}
	if bt.Name() != "R2" {
		t.Errorf("Expected R2 selected, got %s", bt.Name())
	}
	chain, err := g.Chain(nodeN2)
	if err != nil {
		t.Fatalf("Chain failed: %v", err)
	}
	if len(chain) != 2 || chain[0] != "R2" || chain[1] != "R1" {
		t.Errorf("Expected chain [R2 R1], got %v", chain)
	}

	// A direct bridge for N2 undercuts the chain and takes over.
	r3 := stubBridge{name: "R3", produces: nodeN2, requires: []expr.Node{nodeA}, cost: 1}
	if err := g.AddConstraintBridge(r3); err != nil {
		t.Fatalf("AddConstraintBridge failed: %v", err)
	}
	cost, ok = g.Cost(nodeN2)
	if !ok || cost != 1 {
		t.Fatalf("Expected direct cost 1 after R3, got %d ok=%v", cost, ok)
	}
	bt, err = g.ConstraintBridgeType(nodeN2.F, nodeN2.S)
	if err != nil {
		t.Fatalf("ConstraintBridgeType failed: %v", err)
	}
	if bt.Name() != "R3" {
		t.Errorf("Expected R3 selected, got %s", bt.Name())
	}
}

func TestTieBreaksByRegistrationOrder(t *testing.T) {
	g := newTestGraph()
	first := stubBridge{name: "First", produces: nodeN1, requires: []expr.Node{nodeA}, cost: 1}
	second := stubBridge{name: "Second", produces: nodeN1, requires: []expr.Node{nodeA}, cost: 1}
	g.AddConstraintBridge(first)
	g.AddConstraintBridge(second)

	bt, err := g.ConstraintBridgeType(nodeN1.F, nodeN1.S)
	if err != nil {
		t.Fatalf("ConstraintBridgeType failed: %v", err)
	}
	if bt.Name() != "First" {
		t.Errorf("Expected first registration to win the tie, got %s", bt.Name())
	}
}

func TestMutualDependencyReportsUnsupported(t *testing.T) {
	g := newTestGraph()
	// N1 needs N2 and N2 needs N1; neither is native. Both must report
	// unsupported without spinning.
	g.AddConstraintBridge(stubBridge{name: "CycleA", produces: nodeN1, requires: []expr.Node{nodeN2}, cost: 1})
	g.AddConstraintBridge(stubBridge{name: "CycleB", produces: nodeN2, requires: []expr.Node{nodeN1}, cost: 1})

	if g.SupportsConstraint(nodeN1.F, nodeN1.S) {
		t.Error("Expected N1 unsupported in a cycle")
	}
	if g.SupportsConstraint(nodeN2.F, nodeN2.S) {
		t.Error("Expected N2 unsupported in a cycle")
	}
	_, err := g.ConstraintBridgeType(nodeN1.F, nodeN1.S)
	if !errors.Is(err, model.ErrUnsupported) {
		t.Errorf("Expected UnsupportedError, got %v", err)
	}
}

func TestCostFloorIsEnforced(t *testing.T) {
	g := newTestGraph()
	err := g.AddConstraintBridge(stubBridge{name: "Free", produces: nodeN1, requires: nil, cost: 0})
	if err == nil {
		t.Fatal("Expected zero-cost bridge to be rejected")
	}
}

func TestRegistrationInvalidatesDistances(t *testing.T) {
	g := newTestGraph()
	if g.SupportsConstraint(nodeN1.F, nodeN1.S) {
		t.Fatal("Expected N1 unsupported before registration")
	}
	g.AddConstraintBridge(stubBridge{name: "R1", produces: nodeN1, requires: []expr.Node{nodeA}, cost: 1})
	if !g.SupportsConstraint(nodeN1.F, nodeN1.S) {
		t.Error("Expected N1 supported after registration")
	}
}

func TestDefaultCatalogOverInMemoryModel(t *testing.T) {
	m := model.New()
	g := NewGraph(m)
	if err := Defaults(g); err != nil {
		t.Fatalf("Defaults failed: %v", err)
	}

	// Interval constraints bridge through SplitInterval.
	if !g.SupportsConstraint(expr.FunctionAffine, expr.SetInterval) {
		t.Error("Expected affine interval support via SplitInterval")
	}
	bt, err := g.ConstraintBridgeType(expr.FunctionAffine, expr.SetInterval)
	if err != nil || bt.Name() != "SplitInterval" {
		t.Errorf("Expected SplitInterval, got %v err=%v", bt, err)
	}

	// Nonpositives groups bridge through FlipSign onto native Nonnegatives.
	if !g.SupportsConstrainedVariables(expr.SetNonpositives) {
		t.Error("Expected Nonpositives support via FlipSign")
	}
	vb, err := g.VariableBridgeType(expr.SetNonpositives)
	if err != nil || vb.Name() != "FlipSign" {
		t.Errorf("Expected FlipSign, got %v err=%v", vb, err)
	}

	// Zeros groups bridge through FixToZero.
	vb, err = g.VariableBridgeType(expr.SetZeros)
	if err != nil || vb.Name() != "FixToZero" {
		t.Errorf("Expected FixToZero, got %v err=%v", vb, err)
	}

	// Vector functional constraints stay unsupported: no bridge covers them.
	if g.SupportsConstraint(expr.FunctionVectorOfVariables, expr.SetInterval) {
		t.Error("Expected vector interval to stay unsupported")
	}
}
