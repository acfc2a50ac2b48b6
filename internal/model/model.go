package model

import (
	"fmt"

	"github.com/bridgeopt/bridgeopt/internal/expr"
)

// Model is an in-memory backend. It natively accepts scalar functional
// constraints against EqualTo/GreaterThan/LessThan, variables constrained to
// Nonnegatives, and Variable/Affine/Quadratic objectives. Everything else is
// left to the bridging layer.
//
// Model is not safe for concurrent use; callers serialize access.
type Model struct {
	nextVar int64
	nextCon int64

	vars     map[int64]*variableData
	varOrder []int64
	cons     map[int64]*constraintData
	conOrder []int64

	objective expr.Function
	sense     Sense

	// Name lookups are cached and invalidated by any name mutation.
	varNames      map[string][]expr.VariableIndex
	conNames      map[string][]expr.ConstraintIndex
	varNamesDirty bool
	conNamesDirty bool
}

type variableData struct {
	name      string
	primal    float64
	hasPrimal bool
}

type constraintData struct {
	f    expr.Function
	s    expr.Set
	name string
	dual []float64
}

// New creates an empty in-memory model.
func New() *Model {
	return &Model{
		vars:          make(map[int64]*variableData),
		cons:          make(map[int64]*constraintData),
		varNamesDirty: true,
		conNamesDirty: true,
	}
}

func (m *Model) SupportsConstraint(f expr.FunctionType, s expr.SetType) bool {
	switch f {
	case expr.FunctionVariable, expr.FunctionAffine, expr.FunctionQuadratic:
		return s == expr.SetEqualTo || s == expr.SetGreaterThan || s == expr.SetLessThan
	default:
		return false
	}
}

func (m *Model) SupportsConstrainedVariables(s expr.SetType) bool {
	return s == expr.SetNonnegatives
}

func (m *Model) SupportsObjectiveFunction(f expr.FunctionType) bool {
	switch f {
	case expr.FunctionVariable, expr.FunctionAffine, expr.FunctionQuadratic:
		return true
	default:
		return false
	}
}

func (m *Model) AddVariable() (expr.VariableIndex, error) {
	vi := expr.VariableIndex{Kind: expr.Native, Value: m.nextVar}
	m.nextVar++
	m.vars[vi.Value] = &variableData{}
	m.varOrder = append(m.varOrder, vi.Value)
	return vi, nil
}

func (m *Model) AddVariables(n int) ([]expr.VariableIndex, error) {
	out := make([]expr.VariableIndex, n)
	for i := range out {
		vi, err := m.AddVariable()
		if err != nil {
			return nil, err
		}
		out[i] = vi
	}
	return out, nil
}

func (m *Model) AddConstrainedVariable(s expr.Set) (expr.VariableIndex, expr.ConstraintIndex, error) {
	if s.Dimension() != 1 {
		return expr.VariableIndex{}, expr.ConstraintIndex{}, fmt.Errorf("scalar set required, got %s of dimension %d", s.SetType(), s.Dimension())
	}
	if !m.SupportsConstraint(expr.FunctionVariable, s.SetType()) {
		return expr.VariableIndex{}, expr.ConstraintIndex{}, &UnsupportedError{Node: expr.ConstraintNode(expr.FunctionVariable, s.SetType())}
	}
	vi, err := m.AddVariable()
	if err != nil {
		return expr.VariableIndex{}, expr.ConstraintIndex{}, err
	}
	ci, err := m.AddConstraint(expr.Variable{Index: vi}, s)
	if err != nil {
		return expr.VariableIndex{}, expr.ConstraintIndex{}, err
	}
	return vi, ci, nil
}

func (m *Model) AddConstrainedVariables(s expr.Set) ([]expr.VariableIndex, expr.ConstraintIndex, error) {
	if !m.SupportsConstrainedVariables(s.SetType()) {
		return nil, expr.ConstraintIndex{}, &UnsupportedError{Node: expr.VariableNode(s.SetType())}
	}
	vis, err := m.AddVariables(s.Dimension())
	if err != nil {
		return nil, expr.ConstraintIndex{}, err
	}
	ci := expr.ConstraintIndex{Kind: expr.Native, Value: m.nextCon}
	m.nextCon++
	m.cons[ci.Value] = &constraintData{f: expr.VectorOfVariables{Vars: vis}, s: s}
	m.conOrder = append(m.conOrder, ci.Value)
	return vis, ci, nil
}

func (m *Model) AddConstraint(f expr.Function, s expr.Set) (expr.ConstraintIndex, error) {
	if !m.SupportsConstraint(f.FunctionType(), s.SetType()) {
		return expr.ConstraintIndex{}, &UnsupportedError{Node: expr.ConstraintNode(f.FunctionType(), s.SetType())}
	}
	for _, v := range f.Variables() {
		if err := m.checkVariable(v); err != nil {
			return expr.ConstraintIndex{}, fmt.Errorf("add constraint: %w", err)
		}
	}
	ci := expr.ConstraintIndex{Kind: expr.Native, Value: m.nextCon}
	m.nextCon++
	m.cons[ci.Value] = &constraintData{f: f.Clone(), s: s}
	m.conOrder = append(m.conOrder, ci.Value)
	return ci, nil
}

func (m *Model) checkVariable(v expr.VariableIndex) error {
	if v.Kind != expr.Native {
		return &InvalidIndexError{Index: v}
	}
	if _, ok := m.vars[v.Value]; !ok {
		return &InvalidIndexError{Index: v}
	}
	return nil
}

func (m *Model) variable(v expr.VariableIndex) (*variableData, error) {
	if err := m.checkVariable(v); err != nil {
		return nil, err
	}
	return m.vars[v.Value], nil
}

func (m *Model) constraint(c expr.ConstraintIndex) (*constraintData, error) {
	if c.Kind != expr.Native {
		return nil, &InvalidIndexError{Index: c}
	}
	cd, ok := m.cons[c.Value]
	if !ok {
		return nil, &InvalidIndexError{Index: c}
	}
	return cd, nil
}

func (m *Model) DeleteVariable(v expr.VariableIndex) error {
	return m.DeleteVariables([]expr.VariableIndex{v})
}

// DeleteVariables removes a group of variables together. If the group is
// exactly the output of a vector constraint, the certifying constraint is
// removed with it; a strict subset is only allowed when the constraint's set
// is dimension-updatable. Variables referenced by other constraints or the
// objective cannot be deleted.
func (m *Model) DeleteVariables(vs []expr.VariableIndex) error {
	if len(vs) == 0 {
		return nil
	}
	group := make(map[expr.VariableIndex]bool, len(vs))
	for _, v := range vs {
		if err := m.checkVariable(v); err != nil {
			return err
		}
		group[v] = true
	}

	// Locate vector constraints the group intersects and reject any other use.
	type shrink struct {
		id   int64
		keep []expr.VariableIndex
	}
	var shrinks []shrink
	var removeCons []int64
	for _, id := range m.conOrder {
		cd := m.cons[id]
		vov, isVec := cd.f.(expr.VectorOfVariables)
		if !isVec {
			for _, v := range cd.f.Variables() {
				if group[v] {
					return fmt.Errorf("cannot delete %s: referenced by constraint c%d", v, id)
				}
			}
			continue
		}
		hit := 0
		var keep []expr.VariableIndex
		for _, v := range vov.Vars {
			if group[v] {
				hit++
			} else {
				keep = append(keep, v)
			}
		}
		if hit == 0 {
			continue
		}
		if len(keep) == 0 {
			removeCons = append(removeCons, id)
			continue
		}
		vset, ok := cd.s.(expr.VectorSet)
		if !ok || !vset.DimensionUpdatable() {
			return fmt.Errorf("cannot delete %d of the %d variables constrained to %s: set is not dimension-updatable", hit, len(vov.Vars), cd.s.SetType())
		}
		shrinks = append(shrinks, shrink{id: id, keep: keep})
	}
	if m.objective != nil {
		for _, v := range m.objective.Variables() {
			if group[v] {
				return fmt.Errorf("cannot delete %s: referenced by the objective", v)
			}
		}
	}

	for _, id := range removeCons {
		m.removeConstraint(id)
	}
	for _, sh := range shrinks {
		cd := m.cons[sh.id]
		cd.f = expr.VectorOfVariables{Vars: sh.keep}
		cd.s = cd.s.(expr.VectorSet).WithDimension(len(sh.keep))
		if cd.dual != nil {
			cd.dual = nil
		}
	}
	for _, v := range vs {
		delete(m.vars, v.Value)
	}
	m.varOrder = filterIDs(m.varOrder, func(id int64) bool {
		_, ok := m.vars[id]
		return ok
	})
	m.varNamesDirty = true
	return nil
}

func (m *Model) DeleteConstraint(c expr.ConstraintIndex) error {
	if _, err := m.constraint(c); err != nil {
		return err
	}
	m.removeConstraint(c.Value)
	return nil
}

func (m *Model) removeConstraint(id int64) {
	delete(m.cons, id)
	m.conOrder = filterIDs(m.conOrder, func(i int64) bool {
		_, ok := m.cons[i]
		return ok
	})
	m.conNamesDirty = true
}

func filterIDs(ids []int64, keep func(int64) bool) []int64 {
	out := ids[:0]
	for _, id := range ids {
		if keep(id) {
			out = append(out, id)
		}
	}
	return out
}

func (m *Model) ConstraintFunction(c expr.ConstraintIndex) (expr.Function, error) {
	cd, err := m.constraint(c)
	if err != nil {
		return nil, err
	}
	return cd.f.Clone(), nil
}

func (m *Model) ConstraintSet(c expr.ConstraintIndex) (expr.Set, error) {
	cd, err := m.constraint(c)
	if err != nil {
		return nil, err
	}
	return cd.s, nil
}

func (m *Model) ConstraintName(c expr.ConstraintIndex) (string, error) {
	cd, err := m.constraint(c)
	if err != nil {
		return "", err
	}
	return cd.name, nil
}

func (m *Model) SetConstraintName(c expr.ConstraintIndex, name string) error {
	cd, err := m.constraint(c)
	if err != nil {
		return err
	}
	cd.name = name
	m.conNamesDirty = true
	return nil
}

func (m *Model) ConstraintDual(c expr.ConstraintIndex) ([]float64, error) {
	cd, err := m.constraint(c)
	if err != nil {
		return nil, err
	}
	if cd.dual == nil {
		return nil, fmt.Errorf("no dual available for %s", c)
	}
	out := make([]float64, len(cd.dual))
	copy(out, cd.dual)
	return out, nil
}

func (m *Model) SetConstraintDual(c expr.ConstraintIndex, dual []float64) error {
	cd, err := m.constraint(c)
	if err != nil {
		return err
	}
	if len(dual) != cd.s.Dimension() {
		return fmt.Errorf("dual length %d does not match %s dimension %d", len(dual), cd.s.SetType(), cd.s.Dimension())
	}
	cd.dual = make([]float64, len(dual))
	copy(cd.dual, dual)
	return nil
}

func (m *Model) VariableName(v expr.VariableIndex) (string, error) {
	vd, err := m.variable(v)
	if err != nil {
		return "", err
	}
	return vd.name, nil
}

func (m *Model) SetVariableName(v expr.VariableIndex, name string) error {
	vd, err := m.variable(v)
	if err != nil {
		return err
	}
	vd.name = name
	m.varNamesDirty = true
	return nil
}

func (m *Model) VariablePrimal(v expr.VariableIndex) (float64, error) {
	vd, err := m.variable(v)
	if err != nil {
		return 0, err
	}
	if !vd.hasPrimal {
		return 0, fmt.Errorf("no primal available for %s", v)
	}
	return vd.primal, nil
}

func (m *Model) SetVariablePrimal(v expr.VariableIndex, value float64) error {
	vd, err := m.variable(v)
	if err != nil {
		return err
	}
	vd.primal = value
	vd.hasPrimal = true
	return nil
}

func (m *Model) ObjectiveFunction() (expr.Function, error) {
	if m.objective == nil {
		return nil, fmt.Errorf("no objective function set")
	}
	return m.objective.Clone(), nil
}

func (m *Model) SetObjectiveFunction(f expr.Function) error {
	if !m.SupportsObjectiveFunction(f.FunctionType()) {
		return &UnsupportedError{Node: expr.ObjectiveNode(f.FunctionType())}
	}
	for _, v := range f.Variables() {
		if err := m.checkVariable(v); err != nil {
			return fmt.Errorf("set objective: %w", err)
		}
	}
	m.objective = f.Clone()
	return nil
}

func (m *Model) ObjectiveSense() Sense { return m.sense }

func (m *Model) SetObjectiveSense(s Sense) error {
	if s == FeasibilitySense {
		m.objective = nil
	}
	m.sense = s
	return nil
}

func (m *Model) NumberOfVariables() int { return len(m.vars) }

func (m *Model) ListOfVariableIndices() []expr.VariableIndex {
	out := make([]expr.VariableIndex, 0, len(m.varOrder))
	for _, id := range m.varOrder {
		out = append(out, expr.VariableIndex{Kind: expr.Native, Value: id})
	}
	return out
}

func (m *Model) NumberOfConstraints(f expr.FunctionType, s expr.SetType) int {
	n := 0
	for _, cd := range m.cons {
		if cd.f.FunctionType() == f && cd.s.SetType() == s {
			n++
		}
	}
	return n
}

func (m *Model) ListOfConstraintIndices(f expr.FunctionType, s expr.SetType) []expr.ConstraintIndex {
	var out []expr.ConstraintIndex
	for _, id := range m.conOrder {
		cd := m.cons[id]
		if cd.f.FunctionType() == f && cd.s.SetType() == s {
			out = append(out, expr.ConstraintIndex{Kind: expr.Native, Value: id})
		}
	}
	return out
}

func (m *Model) ListOfConstraintTypes() []expr.Node {
	seen := make(map[expr.Node]bool)
	var out []expr.Node
	for _, id := range m.conOrder {
		cd := m.cons[id]
		n := expr.ConstraintNode(cd.f.FunctionType(), cd.s.SetType())
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

func (m *Model) VariableByName(name string) (expr.VariableIndex, bool, error) {
	if m.varNamesDirty {
		m.varNames = make(map[string][]expr.VariableIndex)
		for _, id := range m.varOrder {
			if n := m.vars[id].name; n != "" {
				m.varNames[n] = append(m.varNames[n], expr.VariableIndex{Kind: expr.Native, Value: id})
			}
		}
		m.varNamesDirty = false
	}
	hits := m.varNames[name]
	switch len(hits) {
	case 0:
		return expr.VariableIndex{}, false, nil
	case 1:
		return hits[0], true, nil
	default:
		return expr.VariableIndex{}, false, fmt.Errorf("duplicate variable name %q", name)
	}
}

func (m *Model) ConstraintByName(name string) (expr.ConstraintIndex, bool, error) {
	if m.conNamesDirty {
		m.conNames = make(map[string][]expr.ConstraintIndex)
		for _, id := range m.conOrder {
			if n := m.cons[id].name; n != "" {
				m.conNames[n] = append(m.conNames[n], expr.ConstraintIndex{Kind: expr.Native, Value: id})
			}
		}
		m.conNamesDirty = false
	}
	hits := m.conNames[name]
	switch len(hits) {
	case 0:
		return expr.ConstraintIndex{}, false, nil
	case 1:
		return hits[0], true, nil
	default:
		return expr.ConstraintIndex{}, false, fmt.Errorf("duplicate constraint name %q", name)
	}
}

func (m *Model) Empty() error {
	m.nextVar = 0
	m.nextCon = 0
	m.vars = make(map[int64]*variableData)
	m.varOrder = nil
	m.cons = make(map[int64]*constraintData)
	m.conOrder = nil
	m.objective = nil
	m.sense = FeasibilitySense
	m.varNamesDirty = true
	m.conNamesDirty = true
	return nil
}

func (m *Model) IsEmpty() bool {
	return len(m.vars) == 0 && len(m.cons) == 0 && m.objective == nil && m.sense == FeasibilitySense
}
