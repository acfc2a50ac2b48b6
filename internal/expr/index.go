package expr

import "fmt"

// IndexKind distinguishes indices allocated by the downstream model from
// indices allocated by the bridging layer. The two spaces never overlap.
type IndexKind uint8

const (
	// Native indices belong to the downstream model.
	Native IndexKind = iota
	// Virtual indices belong to bridged objects and are only meaningful
	// to the bridging layer that allocated them.
	Virtual
)

// VariableIndex identifies a decision variable.
type VariableIndex struct {
	Kind  IndexKind
	Value int64
}

func (v VariableIndex) String() string {
	if v.Kind == Virtual {
		return fmt.Sprintf("bv%d", v.Value)
	}
	return fmt.Sprintf("v%d", v.Value)
}

// ConstraintIndex identifies a constraint.
type ConstraintIndex struct {
	Kind  IndexKind
	Value int64
}

func (c ConstraintIndex) String() string {
	if c.Kind == Virtual {
		return fmt.Sprintf("bc%d", c.Value)
	}
	return fmt.Sprintf("c%d", c.Value)
}
