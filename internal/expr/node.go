package expr

import "fmt"

// Node is a vertex of the transformation graph: a (function, set) pair for
// constraints, a bare set for constrained variables (F is FunctionNone), or a
// bare function for objectives (S is SetNone). Nodes compare by type tags.
type Node struct {
	F FunctionType
	S SetType
}

// ConstraintNode is the node for constraints of the given pair.
func ConstraintNode(f FunctionType, s SetType) Node { return Node{F: f, S: s} }

// VariableNode is the node for variables constrained to the given set.
func VariableNode(s SetType) Node { return Node{F: FunctionNone, S: s} }

// ObjectiveNode is the node for objectives of the given function type.
func ObjectiveNode(f FunctionType) Node { return Node{F: f, S: SetNone} }

// IsVariable reports whether the node is a constrained-variable node.
func (n Node) IsVariable() bool { return n.F == FunctionNone && n.S != SetNone }

// IsObjective reports whether the node is an objective node.
func (n Node) IsObjective() bool { return n.S == SetNone && n.F != FunctionNone }

func (n Node) String() string {
	switch {
	case n.IsVariable():
		return fmt.Sprintf("[variables-in-%s]", n.S)
	case n.IsObjective():
		return fmt.Sprintf("[objective-%s]", n.F)
	default:
		return fmt.Sprintf("[%s-in-%s]", n.F, n.S)
	}
}

// AllNodes enumerates the closed node universe: every constraint pair, every
// constrained-variable set and every objective function type.
func AllNodes() []Node {
	var out []Node
	for _, f := range AllFunctionTypes() {
		for _, s := range AllSetTypes() {
			out = append(out, ConstraintNode(f, s))
		}
	}
	for _, s := range AllSetTypes() {
		out = append(out, VariableNode(s))
	}
	for _, f := range AllFunctionTypes() {
		out = append(out, ObjectiveNode(f))
	}
	return out
}
