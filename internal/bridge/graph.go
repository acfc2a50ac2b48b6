package bridge

import (
	"fmt"
	"log/slog"

	"github.com/bridgeopt/bridgeopt/internal/expr"
	"github.com/bridgeopt/bridgeopt/internal/model"
)

// Capabilities is the slice of the downstream model the graph consults for
// zero-cost (native) nodes.
type Capabilities interface {
	SupportsConstraint(f expr.FunctionType, s expr.SetType) bool
	SupportsConstrainedVariables(s expr.SetType) bool
	SupportsObjectiveFunction(f expr.FunctionType) bool
}

// Graph is the bridge registry plus the shortest-path selector over it.
// Nodes are function/set type pairs; edges are registered bridge types,
// weighted by cost plus the distances of their requirements. Distances are
// recomputed lazily after every registration.
type Graph struct {
	caps  Capabilities
	edges []edge
	dist  map[expr.Node]nodeDist
	dirty bool
}

type edge struct {
	ord      int
	produces expr.Node
	requires []expr.Node
	cost     int

	constraint ConstraintBridgeType
	variable   VariableBridgeType
	objective  ObjectiveBridgeType
}

func (e edge) name() string {
	switch {
	case e.constraint != nil:
		return e.constraint.Name()
	case e.variable != nil:
		return e.variable.Name()
	default:
		return e.objective.Name()
	}
}

type nodeDist struct {
	cost int
	edge int // index into edges, -1 for native nodes
}

// NewGraph creates an empty registry over the given native capabilities.
func NewGraph(caps Capabilities) *Graph {
	return &Graph{caps: caps, dirty: true}
}

// AddConstraintBridge registers a constraint bridge type. Registration order
// breaks cost ties: earlier wins. Edges are never removed.
func (g *Graph) AddConstraintBridge(bt ConstraintBridgeType) error {
	if err := checkCost(bt.Name(), bt.Cost()); err != nil {
		return err
	}
	for _, f := range expr.AllFunctionTypes() {
		for _, s := range expr.AllSetTypes() {
			if !bt.SupportsConstraint(f, s) {
				continue
			}
			g.edges = append(g.edges, edge{
				ord:        len(g.edges),
				produces:   expr.ConstraintNode(f, s),
				requires:   requirements(bt.AddedConstraintTypes(f, s), bt.AddedConstrainedVariableTypes(f, s)),
				cost:       bt.Cost(),
				constraint: bt,
			})
		}
	}
	g.dirty = true
	return nil
}

// AddVariableBridge registers a constrained-variable bridge type.
func (g *Graph) AddVariableBridge(bt VariableBridgeType) error {
	if err := checkCost(bt.Name(), bt.Cost()); err != nil {
		return err
	}
	for _, s := range expr.AllSetTypes() {
		if !bt.SupportsSet(s) {
			continue
		}
		g.edges = append(g.edges, edge{
			ord:      len(g.edges),
			produces: expr.VariableNode(s),
			requires: requirements(bt.AddedConstraintTypes(s), bt.AddedConstrainedVariableTypes(s)),
			cost:     bt.Cost(),
			variable: bt,
		})
	}
	g.dirty = true
	return nil
}

// AddObjectiveBridge registers an objective bridge type.
func (g *Graph) AddObjectiveBridge(bt ObjectiveBridgeType) error {
	if err := checkCost(bt.Name(), bt.Cost()); err != nil {
		return err
	}
	for _, f := range expr.AllFunctionTypes() {
		if !bt.SupportsFunction(f) {
			continue
		}
		req := requirements(bt.AddedConstraintTypes(f), bt.AddedConstrainedVariableTypes(f))
		req = append(req, expr.ObjectiveNode(bt.DownstreamObjectiveType(f)))
		g.edges = append(g.edges, edge{
			ord:       len(g.edges),
			produces:  expr.ObjectiveNode(f),
			requires:  req,
			cost:      bt.Cost(),
			objective: bt,
		})
	}
	g.dirty = true
	return nil
}

func checkCost(name string, cost int) error {
	if cost < 1 {
		return fmt.Errorf("bridge %s declares cost %d; the floor is 1", name, cost)
	}
	return nil
}

func requirements(cons []expr.Node, varSets []expr.SetType) []expr.Node {
	out := make([]expr.Node, 0, len(cons)+len(varSets))
	out = append(out, cons...)
	for _, s := range varSets {
		out = append(out, expr.VariableNode(s))
	}
	return out
}

func (g *Graph) isNative(n expr.Node) bool {
	switch {
	case n.IsVariable():
		return g.caps.SupportsConstrainedVariables(n.S)
	case n.IsObjective():
		return g.caps.SupportsObjectiveFunction(n.F)
	default:
		return g.caps.SupportsConstraint(n.F, n.S)
	}
}

// ensure recomputes the distance table if a registration invalidated it.
// Label-correcting relaxation: a sweep proposes, for every edge whose
// requirements all have finite distance, cost(edge) + sum of requirement
// distances, keeping strict improvements. Strictness makes registration order
// the tie-break. The sweep count is bounded by the node universe; with the
// cost floor of 1 a run past the bound means a broken registration, not a
// longer path.
func (g *Graph) ensure() error {
	if !g.dirty && g.dist != nil {
		return nil
	}
	universe := expr.AllNodes()
	dist := make(map[expr.Node]nodeDist, len(universe))
	for _, n := range universe {
		if g.isNative(n) {
			dist[n] = nodeDist{cost: 0, edge: -1}
		}
	}
	maxSweeps := len(universe) + 1
	for sweep := 0; ; sweep++ {
		changed := false
		for i, e := range g.edges {
			total := e.cost
			feasible := true
			for _, r := range e.requires {
				d, ok := dist[r]
				if !ok {
					feasible = false
					break
				}
				total += d.cost
			}
			if !feasible {
				continue
			}
			cur, ok := dist[e.produces]
			if !ok || total < cur.cost {
				dist[e.produces] = nodeDist{cost: total, edge: i}
				changed = true
			}
		}
		if !changed {
			break
		}
		if sweep >= maxSweeps {
			return &ContractViolationError{Reason: "bridge graph relaxation did not converge; a registered bridge undercuts the cost floor"}
		}
	}
	g.dist = dist
	g.dirty = false
	slog.Debug("Bridge graph recomputed", "edges", len(g.edges), "reachable", len(dist))
	return nil
}

func (g *Graph) lookup(n expr.Node) (nodeDist, bool) {
	if err := g.ensure(); err != nil {
		// Unreachable with the cost floor enforced at registration.
		panic(err)
	}
	d, ok := g.dist[n]
	return d, ok
}

// SupportsConstraint reports whether the pair is native or reachable through
// some finite bridge chain. Cyclic dependencies with no native base report
// false, never an error.
func (g *Graph) SupportsConstraint(f expr.FunctionType, s expr.SetType) bool {
	_, ok := g.lookup(expr.ConstraintNode(f, s))
	return ok
}

// SupportsConstrainedVariables is SupportsConstraint for variable nodes.
func (g *Graph) SupportsConstrainedVariables(s expr.SetType) bool {
	_, ok := g.lookup(expr.VariableNode(s))
	return ok
}

// SupportsObjectiveFunction is SupportsConstraint for objective nodes.
func (g *Graph) SupportsObjectiveFunction(f expr.FunctionType) bool {
	_, ok := g.lookup(expr.ObjectiveNode(f))
	return ok
}

// Cost returns the node's shortest-chain cost; native nodes cost 0.
func (g *Graph) Cost(n expr.Node) (int, bool) {
	d, ok := g.lookup(n)
	if !ok {
		return 0, false
	}
	return d.cost, true
}

// IsNative reports whether the downstream model accepts the node directly.
func (g *Graph) IsNative(n expr.Node) bool {
	d, ok := g.lookup(n)
	return ok && d.edge == -1
}

// ConstraintBridgeType returns the bridge selected for the pair, or an
// UnsupportedError when no finite chain exists (including the native case,
// where no bridge is involved).
func (g *Graph) ConstraintBridgeType(f expr.FunctionType, s expr.SetType) (ConstraintBridgeType, error) {
	n := expr.ConstraintNode(f, s)
	d, ok := g.lookup(n)
	if !ok || d.edge < 0 || g.edges[d.edge].constraint == nil {
		return nil, &model.UnsupportedError{Node: n}
	}
	return g.edges[d.edge].constraint, nil
}

// VariableBridgeType is ConstraintBridgeType for variable nodes.
func (g *Graph) VariableBridgeType(s expr.SetType) (VariableBridgeType, error) {
	n := expr.VariableNode(s)
	d, ok := g.lookup(n)
	if !ok || d.edge < 0 || g.edges[d.edge].variable == nil {
		return nil, &model.UnsupportedError{Node: n}
	}
	return g.edges[d.edge].variable, nil
}

// ObjectiveBridgeType is ConstraintBridgeType for objective nodes.
func (g *Graph) ObjectiveBridgeType(f expr.FunctionType) (ObjectiveBridgeType, error) {
	n := expr.ObjectiveNode(f)
	d, ok := g.lookup(n)
	if !ok || d.edge < 0 || g.edges[d.edge].objective == nil {
		return nil, &model.UnsupportedError{Node: n}
	}
	return g.edges[d.edge].objective, nil
}

// Chain returns the bridge names realizing the node, outermost first. Native
// nodes yield an empty chain. Shared requirements appear once.
func (g *Graph) Chain(n expr.Node) ([]string, error) {
	d, ok := g.lookup(n)
	if !ok {
		return nil, &model.UnsupportedError{Node: n}
	}
	var names []string
	seen := make(map[expr.Node]bool)
	var walk func(expr.Node, nodeDist)
	walk = func(node expr.Node, nd nodeDist) {
		if nd.edge < 0 || seen[node] {
			return
		}
		seen[node] = true
		e := g.edges[nd.edge]
		names = append(names, e.name())
		for _, r := range e.requires {
			if rd, ok := g.dist[r]; ok {
				walk(r, rd)
			}
		}
	}
	walk(n, d)
	return names, nil
}
