package store

import (
	"fmt"

	"github.com/bridgeopt/bridgeopt/internal/expr"
	"github.com/bridgeopt/bridgeopt/internal/model"
)

// ModelDoc is the JSON form of a model. Variables are referenced by their
// position in Variables; Groups are constrained-variable groups and are
// rebuilt through AddConstrainedVariables, everything else through
// AddConstraint.
type ModelDoc struct {
	Variables   []VariableDoc   `json:"variables"`
	Groups      []GroupDoc      `json:"groups,omitempty"`
	Constraints []ConstraintDoc `json:"constraints,omitempty"`
	Objective   *FunctionDoc    `json:"objective,omitempty"`
	Sense       string          `json:"sense"`
}

type VariableDoc struct {
	Name string `json:"name,omitempty"`
}

type GroupDoc struct {
	Set  SetDoc `json:"set"`
	Vars []int  `json:"vars"`
	Name string `json:"name,omitempty"`
}

type ConstraintDoc struct {
	Function FunctionDoc `json:"function"`
	Set      SetDoc      `json:"set"`
	Name     string      `json:"name,omitempty"`
}

// FunctionDoc is a tagged union over the function types; only the fields of
// the tagged type are meaningful.
type FunctionDoc struct {
	Type      string        `json:"type"`
	Variable  int           `json:"variable,omitempty"`
	Terms     []TermDoc     `json:"terms,omitempty"`
	QuadTerms []QuadTermDoc `json:"quadTerms,omitempty"`
	Constant  float64       `json:"constant,omitempty"`
	Vars      []int         `json:"vars,omitempty"`
}

type TermDoc struct {
	Coefficient float64 `json:"coefficient"`
	Variable    int     `json:"variable"`
}

type QuadTermDoc struct {
	Coefficient float64 `json:"coefficient"`
	Variable1   int     `json:"variable1"`
	Variable2   int     `json:"variable2"`
}

// SetDoc is a tagged union over the set types.
type SetDoc struct {
	Type  string  `json:"type"`
	Value float64 `json:"value,omitempty"`
	Lower float64 `json:"lower,omitempty"`
	Upper float64 `json:"upper,omitempty"`
	Dim   int     `json:"dim,omitempty"`
}

// Validate checks variable references and tags without touching a model.
func (d *ModelDoc) Validate() error {
	n := len(d.Variables)
	checkRef := func(i int) error {
		if i < 0 || i >= n {
			return &ValidationError{Field: "variable reference", Reason: fmt.Sprintf("%d out of range [0, %d)", i, n)}
		}
		return nil
	}
	for gi, g := range d.Groups {
		if _, err := ParseSet(g.Set); err != nil {
			return fmt.Errorf("group %d: %w", gi, err)
		}
		if g.Set.Dim != len(g.Vars) {
			return &ValidationError{Field: "group", Reason: fmt.Sprintf("set dimension %d does not match %d variables", g.Set.Dim, len(g.Vars))}
		}
		for _, v := range g.Vars {
			if err := checkRef(v); err != nil {
				return fmt.Errorf("group %d: %w", gi, err)
			}
		}
	}
	for ci, c := range d.Constraints {
		if _, err := ParseSet(c.Set); err != nil {
			return fmt.Errorf("constraint %d: %w", ci, err)
		}
		if err := checkFunctionRefs(c.Function, checkRef); err != nil {
			return fmt.Errorf("constraint %d: %w", ci, err)
		}
	}
	if d.Objective != nil {
		if err := checkFunctionRefs(*d.Objective, checkRef); err != nil {
			return fmt.Errorf("objective: %w", err)
		}
	}
	if _, err := model.ParseSense(d.Sense); err != nil {
		return err
	}
	return nil
}

func checkFunctionRefs(f FunctionDoc, checkRef func(int) error) error {
	if _, err := expr.ParseFunctionType(f.Type); err != nil {
		return err
	}
	switch f.Type {
	case expr.FunctionVariable.String():
		return checkRef(f.Variable)
	case expr.FunctionVectorOfVariables.String():
		for _, v := range f.Vars {
			if err := checkRef(v); err != nil {
				return err
			}
		}
	default:
		for _, t := range f.Terms {
			if err := checkRef(t.Variable); err != nil {
				return err
			}
		}
		for _, t := range f.QuadTerms {
			if err := checkRef(t.Variable1); err != nil {
				return err
			}
			if err := checkRef(t.Variable2); err != nil {
				return err
			}
		}
	}
	return nil
}

// Snapshot captures the model as seen through the given API: variables in
// listing order, constrained-variable groups, functional constraints, the
// objective, and the sense.
func Snapshot(m model.API) (*ModelDoc, error) {
	vars := m.ListOfVariableIndices()
	pos := make(map[expr.VariableIndex]int, len(vars))
	doc := &ModelDoc{Sense: m.ObjectiveSense().String()}
	for i, v := range vars {
		pos[v] = i
		name, err := m.VariableName(v)
		if err != nil {
			return nil, fmt.Errorf("snapshot: %w", err)
		}
		doc.Variables = append(doc.Variables, VariableDoc{Name: name})
	}

	for _, node := range m.ListOfConstraintTypes() {
		for _, ci := range m.ListOfConstraintIndices(node.F, node.S) {
			f, err := m.ConstraintFunction(ci)
			if err != nil {
				return nil, fmt.Errorf("snapshot: read %s: %w", ci, err)
			}
			s, err := m.ConstraintSet(ci)
			if err != nil {
				return nil, fmt.Errorf("snapshot: read %s: %w", ci, err)
			}
			name, err := m.ConstraintName(ci)
			if err != nil {
				return nil, fmt.Errorf("snapshot: read %s: %w", ci, err)
			}
			vov, isVec := f.(expr.VectorOfVariables)
			if _, isVecSet := s.(expr.VectorSet); isVec && isVecSet {
				refs, err := encodeRefs(vov.Vars, pos)
				if err != nil {
					return nil, fmt.Errorf("snapshot %s: %w", ci, err)
				}
				doc.Groups = append(doc.Groups, GroupDoc{Set: EncodeSet(s), Vars: refs, Name: name})
				continue
			}
			fd, err := EncodeFunction(f, pos)
			if err != nil {
				return nil, fmt.Errorf("snapshot %s: %w", ci, err)
			}
			doc.Constraints = append(doc.Constraints, ConstraintDoc{Function: fd, Set: EncodeSet(s), Name: name})
		}
	}

	if m.ObjectiveSense() != model.FeasibilitySense {
		obj, err := m.ObjectiveFunction()
		if err != nil {
			return nil, fmt.Errorf("snapshot: %w", err)
		}
		fd, err := EncodeFunction(obj, pos)
		if err != nil {
			return nil, fmt.Errorf("snapshot objective: %w", err)
		}
		doc.Objective = &fd
	}
	return doc, nil
}

// Build replays the document into the model: groups first (so their variables
// carry the certifying constraint), then free variables, names, constraints,
// sense, and objective. Returns the created variable indices, aligned with
// doc.Variables.
func Build(doc *ModelDoc, m model.API) ([]expr.VariableIndex, error) {
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("build model: %w", err)
	}
	vars := make([]expr.VariableIndex, len(doc.Variables))
	created := make([]bool, len(doc.Variables))

	for gi, g := range doc.Groups {
		s, err := ParseSet(g.Set)
		if err != nil {
			return nil, fmt.Errorf("build group %d: %w", gi, err)
		}
		outs, ci, err := m.AddConstrainedVariables(s)
		if err != nil {
			return nil, fmt.Errorf("build group %d: %w", gi, err)
		}
		for i, ref := range g.Vars {
			if created[ref] {
				return nil, &ValidationError{Field: "group", Reason: fmt.Sprintf("variable %d appears in more than one group", ref)}
			}
			vars[ref] = outs[i]
			created[ref] = true
		}
		if g.Name != "" {
			if err := m.SetConstraintName(ci, g.Name); err != nil {
				return nil, fmt.Errorf("build group %d: %w", gi, err)
			}
		}
	}
	for i := range vars {
		if created[i] {
			continue
		}
		v, err := m.AddVariable()
		if err != nil {
			return nil, fmt.Errorf("build variable %d: %w", i, err)
		}
		vars[i] = v
	}
	for i, vd := range doc.Variables {
		if vd.Name == "" {
			continue
		}
		if err := m.SetVariableName(vars[i], vd.Name); err != nil {
			return nil, fmt.Errorf("build variable %d: %w", i, err)
		}
	}

	for ci, cd := range doc.Constraints {
		f, err := ParseFunction(cd.Function, vars)
		if err != nil {
			return nil, fmt.Errorf("build constraint %d: %w", ci, err)
		}
		s, err := ParseSet(cd.Set)
		if err != nil {
			return nil, fmt.Errorf("build constraint %d: %w", ci, err)
		}
		idx, err := m.AddConstraint(f, s)
		if err != nil {
			return nil, fmt.Errorf("build constraint %d: %w", ci, err)
		}
		if cd.Name != "" {
			if err := m.SetConstraintName(idx, cd.Name); err != nil {
				return nil, fmt.Errorf("build constraint %d: %w", ci, err)
			}
		}
	}

	sense, err := model.ParseSense(doc.Sense)
	if err != nil {
		return nil, fmt.Errorf("build model: %w", err)
	}
	if err := m.SetObjectiveSense(sense); err != nil {
		return nil, fmt.Errorf("build model: %w", err)
	}
	if doc.Objective != nil {
		obj, err := ParseFunction(*doc.Objective, vars)
		if err != nil {
			return nil, fmt.Errorf("build objective: %w", err)
		}
		if err := m.SetObjectiveFunction(obj); err != nil {
			return nil, fmt.Errorf("build objective: %w", err)
		}
	}
	return vars, nil
}

// EncodeFunction converts a function into its document form, mapping variable
// indices through pos.
func EncodeFunction(f expr.Function, pos map[expr.VariableIndex]int) (FunctionDoc, error) {
	ref := func(v expr.VariableIndex) (int, error) {
		i, ok := pos[v]
		if !ok {
			return 0, fmt.Errorf("variable %s is not part of the snapshot", v)
		}
		return i, nil
	}
	doc := FunctionDoc{Type: f.FunctionType().String()}
	switch g := f.(type) {
	case expr.Variable:
		i, err := ref(g.Index)
		if err != nil {
			return FunctionDoc{}, err
		}
		doc.Variable = i
	case expr.Affine:
		doc.Constant = g.Constant
		for _, t := range g.Terms {
			i, err := ref(t.Variable)
			if err != nil {
				return FunctionDoc{}, err
			}
			doc.Terms = append(doc.Terms, TermDoc{Coefficient: t.Coefficient, Variable: i})
		}
	case expr.Quadratic:
		doc.Constant = g.Constant
		for _, t := range g.Terms {
			i, err := ref(t.Variable)
			if err != nil {
				return FunctionDoc{}, err
			}
			doc.Terms = append(doc.Terms, TermDoc{Coefficient: t.Coefficient, Variable: i})
		}
		for _, t := range g.QuadTerms {
			i1, err := ref(t.Variable1)
			if err != nil {
				return FunctionDoc{}, err
			}
			i2, err := ref(t.Variable2)
			if err != nil {
				return FunctionDoc{}, err
			}
			doc.QuadTerms = append(doc.QuadTerms, QuadTermDoc{Coefficient: t.Coefficient, Variable1: i1, Variable2: i2})
		}
	case expr.VectorOfVariables:
		refs, err := encodeRefs(g.Vars, pos)
		if err != nil {
			return FunctionDoc{}, err
		}
		doc.Vars = refs
	default:
		return FunctionDoc{}, fmt.Errorf("unsupported function type %s", f.FunctionType())
	}
	return doc, nil
}

func encodeRefs(vs []expr.VariableIndex, pos map[expr.VariableIndex]int) ([]int, error) {
	out := make([]int, len(vs))
	for i, v := range vs {
		p, ok := pos[v]
		if !ok {
			return nil, fmt.Errorf("variable %s is not part of the snapshot", v)
		}
		out[i] = p
	}
	return out, nil
}

// ParseFunction converts a document function back, resolving references
// through vars.
func ParseFunction(doc FunctionDoc, vars []expr.VariableIndex) (expr.Function, error) {
	ft, err := expr.ParseFunctionType(doc.Type)
	if err != nil {
		return nil, err
	}
	switch ft {
	case expr.FunctionVariable:
		return expr.Variable{Index: vars[doc.Variable]}, nil
	case expr.FunctionAffine:
		out := expr.Affine{Constant: doc.Constant}
		for _, t := range doc.Terms {
			out.Terms = append(out.Terms, expr.Term{Coefficient: t.Coefficient, Variable: vars[t.Variable]})
		}
		return out, nil
	case expr.FunctionQuadratic:
		out := expr.Quadratic{Constant: doc.Constant}
		for _, t := range doc.Terms {
			out.Terms = append(out.Terms, expr.Term{Coefficient: t.Coefficient, Variable: vars[t.Variable]})
		}
		for _, t := range doc.QuadTerms {
			out.QuadTerms = append(out.QuadTerms, expr.QuadTerm{Coefficient: t.Coefficient, Variable1: vars[t.Variable1], Variable2: vars[t.Variable2]})
		}
		return out, nil
	case expr.FunctionVectorOfVariables:
		out := expr.VectorOfVariables{Vars: make([]expr.VariableIndex, len(doc.Vars))}
		for i, r := range doc.Vars {
			out.Vars[i] = vars[r]
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported function type %s", doc.Type)
	}
}

// EncodeSet converts a set into its document form.
func EncodeSet(s expr.Set) SetDoc {
	doc := SetDoc{Type: s.SetType().String()}
	switch g := s.(type) {
	case expr.EqualTo:
		doc.Value = g.Value
	case expr.GreaterThan:
		doc.Lower = g.Lower
	case expr.LessThan:
		doc.Upper = g.Upper
	case expr.Interval:
		doc.Lower, doc.Upper = g.Lower, g.Upper
	default:
		doc.Dim = s.Dimension()
	}
	return doc
}

// ParseSet converts a document set back.
func ParseSet(doc SetDoc) (expr.Set, error) {
	st, err := expr.ParseSetType(doc.Type)
	if err != nil {
		return nil, err
	}
	switch st {
	case expr.SetEqualTo:
		return expr.EqualTo{Value: doc.Value}, nil
	case expr.SetGreaterThan:
		return expr.GreaterThan{Lower: doc.Lower}, nil
	case expr.SetLessThan:
		return expr.LessThan{Upper: doc.Upper}, nil
	case expr.SetInterval:
		return expr.Interval{Lower: doc.Lower, Upper: doc.Upper}, nil
	case expr.SetNonnegatives:
		return expr.Nonnegatives{Dim: doc.Dim}, nil
	case expr.SetNonpositives:
		return expr.Nonpositives{Dim: doc.Dim}, nil
	case expr.SetZeros:
		return expr.Zeros{Dim: doc.Dim}, nil
	default:
		return nil, fmt.Errorf("unsupported set type %s", doc.Type)
	}
}
