package model

import (
	"fmt"

	"github.com/bridgeopt/bridgeopt/internal/expr"
)

// IndexMap translates source indices to destination indices after a CopyTo.
type IndexMap struct {
	Variables   map[expr.VariableIndex]expr.VariableIndex
	Constraints map[expr.ConstraintIndex]expr.ConstraintIndex
}

// CopyTo bulk-constructs src's content inside dst and returns the index
// translation. Variable groups added through constrained-variable operations
// are recreated the same way so dst sees them as groups, not free variables.
// dst is expected to support (directly or through bridging) everything src
// holds; the first unsupported object aborts the copy.
func CopyTo(dst, src API) (*IndexMap, error) {
	im := &IndexMap{
		Variables:   make(map[expr.VariableIndex]expr.VariableIndex),
		Constraints: make(map[expr.ConstraintIndex]expr.ConstraintIndex),
	}

	// Vector groups first, so their variables exist as groups in dst.
	for _, node := range src.ListOfConstraintTypes() {
		if node.F != expr.FunctionVectorOfVariables {
			continue
		}
		for _, ci := range src.ListOfConstraintIndices(node.F, node.S) {
			f, err := src.ConstraintFunction(ci)
			if err != nil {
				return nil, fmt.Errorf("copy: %w", err)
			}
			s, err := src.ConstraintSet(ci)
			if err != nil {
				return nil, fmt.Errorf("copy: %w", err)
			}
			srcVars := f.(expr.VectorOfVariables).Vars
			dstVars, dstCI, err := dst.AddConstrainedVariables(s)
			if err != nil {
				return nil, fmt.Errorf("copy group %s: %w", ci, err)
			}
			for i, v := range srcVars {
				im.Variables[v] = dstVars[i]
			}
			im.Constraints[ci] = dstCI
		}
	}

	// Remaining variables are free.
	for _, v := range src.ListOfVariableIndices() {
		if _, done := im.Variables[v]; done {
			continue
		}
		dv, err := dst.AddVariable()
		if err != nil {
			return nil, fmt.Errorf("copy variable %s: %w", v, err)
		}
		im.Variables[v] = dv
	}
	for _, v := range src.ListOfVariableIndices() {
		name, err := src.VariableName(v)
		if err != nil {
			return nil, fmt.Errorf("copy: %w", err)
		}
		if name != "" {
			if err := dst.SetVariableName(im.Variables[v], name); err != nil {
				return nil, fmt.Errorf("copy variable name: %w", err)
			}
		}
	}

	subs := make(map[expr.VariableIndex]expr.Function, len(im.Variables))
	for s, d := range im.Variables {
		subs[s] = expr.Variable{Index: d}
	}

	for _, node := range src.ListOfConstraintTypes() {
		if node.F == expr.FunctionVectorOfVariables {
			continue
		}
		for _, ci := range src.ListOfConstraintIndices(node.F, node.S) {
			f, err := src.ConstraintFunction(ci)
			if err != nil {
				return nil, fmt.Errorf("copy: %w", err)
			}
			s, err := src.ConstraintSet(ci)
			if err != nil {
				return nil, fmt.Errorf("copy: %w", err)
			}
			tf, err := expr.Substitute(f, subs)
			if err != nil {
				return nil, fmt.Errorf("copy constraint %s: %w", ci, err)
			}
			dstCI, err := dst.AddConstraint(tf, s)
			if err != nil {
				return nil, fmt.Errorf("copy constraint %s: %w", ci, err)
			}
			im.Constraints[ci] = dstCI
		}
	}
	for srcCI, dstCI := range im.Constraints {
		name, err := src.ConstraintName(srcCI)
		if err != nil {
			return nil, fmt.Errorf("copy: %w", err)
		}
		if name != "" {
			if err := dst.SetConstraintName(dstCI, name); err != nil {
				return nil, fmt.Errorf("copy constraint name: %w", err)
			}
		}
	}

	if sense := src.ObjectiveSense(); sense != FeasibilitySense {
		if err := dst.SetObjectiveSense(sense); err != nil {
			return nil, fmt.Errorf("copy sense: %w", err)
		}
		obj, err := src.ObjectiveFunction()
		if err == nil && obj != nil {
			tf, err := expr.Substitute(obj, subs)
			if err != nil {
				return nil, fmt.Errorf("copy objective: %w", err)
			}
			if err := dst.SetObjectiveFunction(tf); err != nil {
				return nil, fmt.Errorf("copy objective: %w", err)
			}
		}
	}

	return im, nil
}
