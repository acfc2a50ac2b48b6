package bridge

import (
	"fmt"
	"log/slog"

	"github.com/bridgeopt/bridgeopt/internal/expr"
	"github.com/bridgeopt/bridgeopt/internal/model"
)

// Optimizer wraps a downstream model and satisfies model.API itself. Every
// operation keyed by an index is routed by the index kind: native indices
// forward unchanged, virtual indices resolve to the bridge instance that
// backs them. Functions are substituted on the way down so the downstream
// model never observes a virtual variable, and reverse-substituted on the way
// up so callers never observe a bridge-created one.
//
// Ownership is strictly hierarchical: the Optimizer owns the bridge maps;
// each bridge owns the downstream objects it created. Teardown runs in
// reverse creation order.
type Optimizer struct {
	inner model.API
	graph *Graph

	nextVar int64
	nextCon int64

	virtualCons map[int64]*virtualCon
	conOrder    []int64

	blocks     []*variableBlock
	varToBlock map[expr.VariableIndex]*variableBlock

	// defining maps a virtual variable to its fully resolved downstream
	// expression; reverse maps a bridge-created downstream variable to its
	// user-space expression.
	defining map[expr.VariableIndex]expr.Function
	reverse  map[expr.VariableIndex]expr.Function

	// Objects created while a bridge is being built are artifacts: listed
	// nowhere, subtracted from every count.
	ownedCons    map[expr.ConstraintIndex]expr.Node
	ownedVars    map[expr.VariableIndex]bool
	captureDepth int

	objBridge     ObjectiveBridge
	objBridgeType ObjectiveBridgeType

	virtualVarNames map[expr.VariableIndex]string

	// Cached name lookups over virtual objects, invalidated by any name
	// mutation and rebuilt on demand.
	varNameLookup map[string][]expr.VariableIndex
	conNameLookup map[string][]int64
	varNamesDirty bool
	conNamesDirty bool
}

type virtualCon struct {
	value int64
	node  expr.Node
	name  string

	// Exactly one of the two is set.
	bridge     ConstraintBridge
	bridgeType ConstraintBridgeType
	block      *variableBlock
}

type variableBlock struct {
	bt          VariableBridgeType
	br          VariableBridge
	set         expr.Set
	outputs     []expr.VariableIndex
	reverseKeys []expr.VariableIndex
	conValue    int64
}

// NewOptimizer wraps inner with the given bridge graph. The graph's
// capabilities must be inner's.
func NewOptimizer(inner model.API, g *Graph) *Optimizer {
	return &Optimizer{
		inner:           inner,
		graph:           g,
		virtualCons:     make(map[int64]*virtualCon),
		varToBlock:      make(map[expr.VariableIndex]*variableBlock),
		defining:        make(map[expr.VariableIndex]expr.Function),
		reverse:         make(map[expr.VariableIndex]expr.Function),
		ownedCons:       make(map[expr.ConstraintIndex]expr.Node),
		ownedVars:       make(map[expr.VariableIndex]bool),
		virtualVarNames: make(map[expr.VariableIndex]string),
		varNamesDirty:   true,
		conNamesDirty:   true,
	}
}

// NewDefault wraps inner with the full default bridge catalog.
func NewDefault(inner model.API) (*Optimizer, error) {
	g := NewGraph(inner)
	if err := Defaults(g); err != nil {
		return nil, err
	}
	return NewOptimizer(inner, g), nil
}

// Graph exposes the underlying registry, e.g. to register further bridges.
func (o *Optimizer) Graph() *Graph { return o.graph }

// --- capability queries -------------------------------------------------

func (o *Optimizer) SupportsConstraint(f expr.FunctionType, s expr.SetType) bool {
	return o.graph.SupportsConstraint(f, s)
}

func (o *Optimizer) SupportsConstrainedVariables(s expr.SetType) bool {
	return o.graph.SupportsConstrainedVariables(s)
}

func (o *Optimizer) SupportsObjectiveFunction(f expr.FunctionType) bool {
	return o.graph.SupportsObjectiveFunction(f)
}

// --- substitution -------------------------------------------------------

// substituteOut rewrites f so that no virtual variable remains. Defining
// expressions are stored fully resolved, so one pass suffices even for
// nested chains.
func (o *Optimizer) substituteOut(f expr.Function) (expr.Function, error) {
	var subs map[expr.VariableIndex]expr.Function
	for _, v := range f.Variables() {
		if v.Kind != expr.Virtual {
			continue
		}
		d, ok := o.defining[v]
		if !ok {
			return nil, &model.InvalidIndexError{Index: v}
		}
		if subs == nil {
			subs = make(map[expr.VariableIndex]expr.Function)
		}
		subs[v] = d
	}
	if subs == nil {
		return f, nil
	}
	out, err := expr.Substitute(f, subs)
	if err != nil {
		return nil, fmt.Errorf("substitute bridged variables: %w", err)
	}
	return out, nil
}

// reverseSubstitute rewrites a downstream-space function into user space.
// A bridge-created variable with no registered inverse is a contract
// violation in the bridge that created it.
func (o *Optimizer) reverseSubstitute(f expr.Function) (expr.Function, error) {
	for iter := 0; ; iter++ {
		var subs map[expr.VariableIndex]expr.Function
		for _, v := range f.Variables() {
			if r, ok := o.reverse[v]; ok {
				if subs == nil {
					subs = make(map[expr.VariableIndex]expr.Function)
				}
				subs[v] = r
			} else if o.ownedVars[v] {
				return nil, &ContractViolationError{Reason: fmt.Sprintf("downstream variable %s has no registered inverse", v)}
			}
		}
		if subs == nil {
			return f, nil
		}
		out, err := expr.Substitute(f, subs)
		if err != nil {
			return nil, &ContractViolationError{Reason: fmt.Sprintf("reverse substitution failed: %v", err)}
		}
		f = out
		if iter > len(o.reverse) {
			return nil, &ContractViolationError{Reason: "reverse substitution did not terminate"}
		}
	}
}

// --- creation -----------------------------------------------------------

func (o *Optimizer) AddVariable() (expr.VariableIndex, error) {
	vi, err := o.inner.AddVariable()
	if err != nil {
		return expr.VariableIndex{}, err
	}
	o.recordVar(vi)
	return vi, nil
}

func (o *Optimizer) AddVariables(n int) ([]expr.VariableIndex, error) {
	out := make([]expr.VariableIndex, n)
	for i := range out {
		vi, err := o.AddVariable()
		if err != nil {
			return nil, err
		}
		out[i] = vi
	}
	return out, nil
}

func (o *Optimizer) AddConstrainedVariable(s expr.Set) (expr.VariableIndex, expr.ConstraintIndex, error) {
	if s.Dimension() != 1 {
		return expr.VariableIndex{}, expr.ConstraintIndex{}, fmt.Errorf("scalar set required, got %s of dimension %d", s.SetType(), s.Dimension())
	}
	if o.inner.SupportsConstraint(expr.FunctionVariable, s.SetType()) {
		vi, ci, err := o.inner.AddConstrainedVariable(s)
		if err != nil {
			return expr.VariableIndex{}, expr.ConstraintIndex{}, err
		}
		o.recordVar(vi)
		o.recordCon(ci, expr.ConstraintNode(expr.FunctionVariable, s.SetType()))
		return vi, ci, nil
	}
	// The variable itself is free; only its certifying constraint bridges.
	vi, err := o.AddVariable()
	if err != nil {
		return expr.VariableIndex{}, expr.ConstraintIndex{}, err
	}
	ci, err := o.AddConstraint(expr.Variable{Index: vi}, s)
	if err != nil {
		return expr.VariableIndex{}, expr.ConstraintIndex{}, err
	}
	return vi, ci, nil
}

func (o *Optimizer) AddConstrainedVariables(s expr.Set) ([]expr.VariableIndex, expr.ConstraintIndex, error) {
	st := s.SetType()
	if o.inner.SupportsConstrainedVariables(st) {
		vis, ci, err := o.inner.AddConstrainedVariables(s)
		if err != nil {
			return nil, expr.ConstraintIndex{}, err
		}
		for _, v := range vis {
			o.recordVar(v)
		}
		o.recordCon(ci, expr.ConstraintNode(expr.FunctionVectorOfVariables, st))
		return vis, ci, nil
	}

	bt, err := o.graph.VariableBridgeType(st)
	if err != nil {
		return nil, expr.ConstraintIndex{}, err
	}
	outputs := make([]expr.VariableIndex, s.Dimension())
	for i := range outputs {
		outputs[i] = expr.VariableIndex{Kind: expr.Virtual, Value: o.nextVar}
		o.nextVar++
	}

	o.captureDepth++
	br, err := bt.BridgeConstrainedVariables(o, s, outputs)
	o.captureDepth--
	if err != nil {
		return nil, expr.ConstraintIndex{}, fmt.Errorf("bridge %s: %w", bt.Name(), err)
	}

	block := &variableBlock{bt: bt, br: br, set: s, outputs: outputs}
	defs := br.DefiningExpressions()
	if len(defs) != len(outputs) {
		return nil, expr.ConstraintIndex{}, &ContractViolationError{Reason: fmt.Sprintf("bridge %s yielded %d defining expressions for dimension %d", bt.Name(), len(defs), len(outputs))}
	}
	for i, out := range outputs {
		resolved, err := o.substituteOut(defs[i])
		if err != nil {
			return nil, expr.ConstraintIndex{}, &ContractViolationError{Reason: fmt.Sprintf("bridge %s defining expression: %v", bt.Name(), err)}
		}
		o.defining[out] = resolved
		o.varToBlock[out] = block
		o.recordVar(out)
	}
	for dv, userExpr := range br.ReverseExpressions() {
		o.reverse[dv] = userExpr
		block.reverseKeys = append(block.reverseKeys, dv)
	}

	ci := o.newVirtualCon(&virtualCon{
		node:  expr.ConstraintNode(expr.FunctionVectorOfVariables, st),
		block: block,
	})
	block.conValue = ci.Value
	o.blocks = append(o.blocks, block)
	o.varNamesDirty = true

	slog.Debug("Bridged constrained variables", "set", st.String(), "bridge", bt.Name(), "dimension", s.Dimension())
	return outputs, ci, nil
}

func (o *Optimizer) AddConstraint(f expr.Function, s expr.Set) (expr.ConstraintIndex, error) {
	fsub, err := o.substituteOut(f)
	if err != nil {
		return expr.ConstraintIndex{}, fmt.Errorf("add %s-in-%s constraint: %w", f.FunctionType(), s.SetType(), err)
	}
	ft := fsub.FunctionType()
	if o.inner.SupportsConstraint(ft, s.SetType()) {
		ci, err := o.inner.AddConstraint(fsub, s)
		if err != nil {
			return expr.ConstraintIndex{}, err
		}
		o.recordCon(ci, expr.ConstraintNode(ft, s.SetType()))
		return ci, nil
	}

	bt, err := o.graph.ConstraintBridgeType(ft, s.SetType())
	if err != nil {
		return expr.ConstraintIndex{}, err
	}
	o.captureDepth++
	br, err := bt.Bridge(o, fsub, s)
	o.captureDepth--
	if err != nil {
		return expr.ConstraintIndex{}, fmt.Errorf("bridge %s: %w", bt.Name(), err)
	}
	ci := o.newVirtualCon(&virtualCon{
		node:       expr.ConstraintNode(ft, s.SetType()),
		bridge:     br,
		bridgeType: bt,
	})
	slog.Debug("Bridged constraint", "node", expr.ConstraintNode(ft, s.SetType()).String(), "bridge", bt.Name())
	return ci, nil
}

func (o *Optimizer) newVirtualCon(vc *virtualCon) expr.ConstraintIndex {
	vc.value = o.nextCon
	o.nextCon++
	o.virtualCons[vc.value] = vc
	o.conOrder = append(o.conOrder, vc.value)
	ci := expr.ConstraintIndex{Kind: expr.Virtual, Value: vc.value}
	o.recordCon(ci, vc.node)
	o.conNamesDirty = true
	return ci
}

func (o *Optimizer) recordVar(v expr.VariableIndex) {
	if o.captureDepth > 0 {
		o.ownedVars[v] = true
	}
}

func (o *Optimizer) recordCon(c expr.ConstraintIndex, node expr.Node) {
	if o.captureDepth > 0 {
		o.ownedCons[c] = node
	}
}

func (o *Optimizer) virtualCon(c expr.ConstraintIndex) (*virtualCon, error) {
	if c.Kind != expr.Virtual {
		return nil, &model.InvalidIndexError{Index: c}
	}
	vc, ok := o.virtualCons[c.Value]
	if !ok {
		return nil, &model.InvalidIndexError{Index: c}
	}
	return vc, nil
}

// --- deletion -----------------------------------------------------------

func (o *Optimizer) DeleteConstraint(c expr.ConstraintIndex) error {
	if c.Kind == expr.Native {
		if err := o.inner.DeleteConstraint(c); err != nil {
			return err
		}
		delete(o.ownedCons, c)
		return nil
	}
	vc, err := o.virtualCon(c)
	if err != nil {
		return err
	}
	if vc.block != nil {
		return fmt.Errorf("%s certifies a variable group; delete its variables instead", c)
	}
	// The bridge releases its downstream objects first; only then is the
	// map entry removed.
	if err := vc.bridge.Delete(o); err != nil {
		return fmt.Errorf("delete bridged constraint %s: %w", c, err)
	}
	o.removeVirtualCon(vc.value)
	delete(o.ownedCons, c)
	slog.Debug("Deleted bridged constraint", "index", c.String(), "bridge", vc.bridgeType.Name())
	return nil
}

func (o *Optimizer) removeVirtualCon(value int64) {
	delete(o.virtualCons, value)
	kept := o.conOrder[:0]
	for _, v := range o.conOrder {
		if v != value {
			kept = append(kept, v)
		}
	}
	o.conOrder = kept
	o.conNamesDirty = true
}

func (o *Optimizer) DeleteVariable(v expr.VariableIndex) error {
	return o.DeleteVariables([]expr.VariableIndex{v})
}

// DeleteVariables deletes a group of variables together. Virtual variables
// must cover whole bridge groups unless their set is dimension-updatable, in
// which case the bridge shrinks in place.
func (o *Optimizer) DeleteVariables(vs []expr.VariableIndex) error {
	if len(vs) == 0 {
		return nil
	}
	var native []expr.VariableIndex
	byBlock := make(map[*variableBlock][]expr.VariableIndex)
	for _, v := range vs {
		if v.Kind == expr.Native {
			native = append(native, v)
			continue
		}
		b, ok := o.varToBlock[v]
		if !ok {
			return &model.InvalidIndexError{Index: v}
		}
		byBlock[b] = append(byBlock[b], v)
	}
	if len(native) > 0 && len(byBlock) > 0 {
		return fmt.Errorf("cannot delete native and bridged variables in one operation")
	}
	if len(native) > 0 {
		if err := o.inner.DeleteVariables(native); err != nil {
			return err
		}
		for _, v := range native {
			delete(o.ownedVars, v)
		}
		return nil
	}

	for b, group := range byBlock {
		if len(group) == len(b.outputs) {
			if err := o.deleteBlock(b); err != nil {
				return err
			}
			continue
		}
		vset, ok := b.set.(expr.VectorSet)
		if !ok || !vset.DimensionUpdatable() {
			return &PartialDeleteError{Set: b.set.SetType(), Requested: len(group), Dimension: len(b.outputs)}
		}
		if err := o.shrinkBlock(b, group); err != nil {
			return err
		}
	}
	return nil
}

func (o *Optimizer) deleteBlock(b *variableBlock) error {
	if err := b.br.Delete(o); err != nil {
		return fmt.Errorf("delete bridged variable group: %w", err)
	}
	for _, out := range b.outputs {
		delete(o.defining, out)
		delete(o.varToBlock, out)
		delete(o.ownedVars, out)
		delete(o.virtualVarNames, out)
	}
	for _, k := range b.reverseKeys {
		delete(o.reverse, k)
	}
	o.removeVirtualCon(b.conValue)
	kept := o.blocks[:0]
	for _, bb := range o.blocks {
		if bb != b {
			kept = append(kept, bb)
		}
	}
	o.blocks = kept
	o.varNamesDirty = true
	slog.Debug("Deleted bridged variable group", "set", b.set.SetType().String(), "bridge", b.bt.Name())
	return nil
}

func (o *Optimizer) shrinkBlock(b *variableBlock, group []expr.VariableIndex) error {
	del := make(map[expr.VariableIndex]bool, len(group))
	for _, v := range group {
		del[v] = true
	}
	var positions []int
	for i, out := range b.outputs {
		if del[out] {
			positions = append(positions, i)
		}
	}
	if err := b.br.DeleteCoordinates(o, positions); err != nil {
		return fmt.Errorf("shrink bridged variable group: %w", err)
	}
	for _, k := range b.reverseKeys {
		delete(o.reverse, k)
	}
	b.reverseKeys = nil
	kept := b.outputs[:0]
	for _, out := range b.outputs {
		if del[out] {
			delete(o.defining, out)
			delete(o.varToBlock, out)
			delete(o.ownedVars, out)
			delete(o.virtualVarNames, out)
		} else {
			kept = append(kept, out)
		}
	}
	b.outputs = kept
	b.set = b.set.(expr.VectorSet).WithDimension(len(kept))
	if vc := o.virtualCons[b.conValue]; vc != nil {
		vc.node = expr.ConstraintNode(expr.FunctionVectorOfVariables, b.set.SetType())
	}
	for i, out := range b.outputs {
		resolved, err := o.substituteOut(b.br.DefiningExpressions()[i])
		if err != nil {
			return &ContractViolationError{Reason: fmt.Sprintf("bridge %s defining expression after shrink: %v", b.bt.Name(), err)}
		}
		o.defining[out] = resolved
	}
	for dv, userExpr := range b.br.ReverseExpressions() {
		o.reverse[dv] = userExpr
		b.reverseKeys = append(b.reverseKeys, dv)
	}
	o.varNamesDirty = true
	return nil
}

// --- constraint attributes ----------------------------------------------

func (o *Optimizer) ConstraintFunction(c expr.ConstraintIndex) (expr.Function, error) {
	if c.Kind == expr.Native {
		f, err := o.inner.ConstraintFunction(c)
		if err != nil {
			return nil, err
		}
		return o.reverseSubstitute(f)
	}
	vc, err := o.virtualCon(c)
	if err != nil {
		return nil, err
	}
	if vc.block != nil {
		return expr.VectorOfVariables{Vars: append([]expr.VariableIndex(nil), vc.block.outputs...)}, nil
	}
	f, err := vc.bridge.ConstraintFunction(o)
	if err != nil {
		return nil, err
	}
	return o.reverseSubstitute(f)
}

func (o *Optimizer) ConstraintSet(c expr.ConstraintIndex) (expr.Set, error) {
	if c.Kind == expr.Native {
		return o.inner.ConstraintSet(c)
	}
	vc, err := o.virtualCon(c)
	if err != nil {
		return nil, err
	}
	if vc.block != nil {
		return vc.block.set, nil
	}
	return vc.bridge.ConstraintSet(), nil
}

func (o *Optimizer) ConstraintDual(c expr.ConstraintIndex) ([]float64, error) {
	if c.Kind == expr.Native {
		return o.inner.ConstraintDual(c)
	}
	vc, err := o.virtualCon(c)
	if err != nil {
		return nil, err
	}
	if vc.block != nil {
		return vc.block.br.ConstraintDual(o)
	}
	return vc.bridge.ConstraintDual(o)
}

func (o *Optimizer) SetConstraintDual(c expr.ConstraintIndex, dual []float64) error {
	if c.Kind == expr.Native {
		return o.inner.SetConstraintDual(c, dual)
	}
	return fmt.Errorf("cannot set a dual on bridged constraint %s; set it on the bridge's downstream constraints", c)
}

func (o *Optimizer) ConstraintName(c expr.ConstraintIndex) (string, error) {
	if c.Kind == expr.Native {
		return o.inner.ConstraintName(c)
	}
	vc, err := o.virtualCon(c)
	if err != nil {
		return "", err
	}
	return vc.name, nil
}

func (o *Optimizer) SetConstraintName(c expr.ConstraintIndex, name string) error {
	if c.Kind == expr.Native {
		if err := o.inner.SetConstraintName(c, name); err != nil {
			return err
		}
		o.conNamesDirty = true
		return nil
	}
	vc, err := o.virtualCon(c)
	if err != nil {
		return err
	}
	vc.name = name
	o.conNamesDirty = true
	return nil
}

// --- variable attributes ------------------------------------------------

func (o *Optimizer) VariableName(v expr.VariableIndex) (string, error) {
	if v.Kind == expr.Native {
		return o.inner.VariableName(v)
	}
	if _, ok := o.varToBlock[v]; !ok {
		return "", &model.InvalidIndexError{Index: v}
	}
	return o.virtualVarNames[v], nil
}

func (o *Optimizer) SetVariableName(v expr.VariableIndex, name string) error {
	if v.Kind == expr.Native {
		if err := o.inner.SetVariableName(v, name); err != nil {
			return err
		}
		o.varNamesDirty = true
		return nil
	}
	if _, ok := o.varToBlock[v]; !ok {
		return &model.InvalidIndexError{Index: v}
	}
	o.virtualVarNames[v] = name
	o.varNamesDirty = true
	return nil
}

// VariablePrimal evaluates bridged variables through their defining
// expressions under downstream primals.
func (o *Optimizer) VariablePrimal(v expr.VariableIndex) (float64, error) {
	if v.Kind == expr.Native {
		return o.inner.VariablePrimal(v)
	}
	d, ok := o.defining[v]
	if !ok {
		return 0, &model.InvalidIndexError{Index: v}
	}
	var firstErr error
	value := expr.Value(d, func(dv expr.VariableIndex) float64 {
		p, err := o.inner.VariablePrimal(dv)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		return p
	})
	if firstErr != nil {
		return 0, firstErr
	}
	return value, nil
}

func (o *Optimizer) SetVariablePrimal(v expr.VariableIndex, value float64) error {
	if v.Kind == expr.Native {
		return o.inner.SetVariablePrimal(v, value)
	}
	return fmt.Errorf("cannot set a primal on bridged variable %s; set downstream primals instead", v)
}

// --- objective ----------------------------------------------------------

func (o *Optimizer) ObjectiveFunction() (expr.Function, error) {
	if o.objBridge != nil {
		f, err := o.objBridge.ObjectiveFunction(o)
		if err != nil {
			return nil, err
		}
		return o.reverseSubstitute(f)
	}
	f, err := o.inner.ObjectiveFunction()
	if err != nil {
		return nil, err
	}
	return o.reverseSubstitute(f)
}

func (o *Optimizer) SetObjectiveFunction(f expr.Function) error {
	fsub, err := o.substituteOut(f)
	if err != nil {
		return fmt.Errorf("set objective: %w", err)
	}
	if o.objBridge != nil {
		if err := o.dropObjectiveBridge(); err != nil {
			return err
		}
	}
	ft := fsub.FunctionType()
	if o.inner.SupportsObjectiveFunction(ft) {
		return o.inner.SetObjectiveFunction(fsub)
	}
	bt, err := o.graph.ObjectiveBridgeType(ft)
	if err != nil {
		return err
	}
	o.captureDepth++
	br, err := bt.BridgeObjective(o, fsub)
	o.captureDepth--
	if err != nil {
		return fmt.Errorf("bridge %s: %w", bt.Name(), err)
	}
	o.objBridge = br
	o.objBridgeType = bt
	slog.Debug("Bridged objective", "function", ft.String(), "bridge", bt.Name())
	return nil
}

func (o *Optimizer) dropObjectiveBridge() error {
	if err := o.objBridge.Delete(o); err != nil {
		return fmt.Errorf("delete bridged objective: %w", err)
	}
	o.objBridge = nil
	o.objBridgeType = nil
	return nil
}

func (o *Optimizer) ObjectiveSense() model.Sense { return o.inner.ObjectiveSense() }

// SetObjectiveSense forbids sense changes while the objective is bridged;
// clearing through FeasibilitySense is the sanctioned way out.
func (o *Optimizer) SetObjectiveSense(s model.Sense) error {
	if s == model.FeasibilitySense {
		if o.objBridge != nil {
			if err := o.dropObjectiveBridge(); err != nil {
				return err
			}
		}
		return o.inner.SetObjectiveSense(s)
	}
	if o.objBridge != nil && s != o.inner.ObjectiveSense() {
		return &ContractViolationError{Reason: fmt.Sprintf("objective sense change to %s on a %s-bridged objective; clear the objective first", s, o.objBridgeType.Name())}
	}
	return o.inner.SetObjectiveSense(s)
}

// --- counts, listings, names --------------------------------------------

func (o *Optimizer) NumberOfVariables() int {
	n := o.inner.NumberOfVariables()
	for v := range o.ownedVars {
		if v.Kind == expr.Native {
			n--
		}
	}
	for _, b := range o.blocks {
		for _, out := range b.outputs {
			if !o.ownedVars[out] {
				n++
			}
		}
	}
	return n
}

func (o *Optimizer) ListOfVariableIndices() []expr.VariableIndex {
	var out []expr.VariableIndex
	for _, v := range o.inner.ListOfVariableIndices() {
		if !o.ownedVars[v] {
			out = append(out, v)
		}
	}
	for _, b := range o.blocks {
		for _, v := range b.outputs {
			if !o.ownedVars[v] {
				out = append(out, v)
			}
		}
	}
	return out
}

// NumberOfConstraints combines the native count, the bridged constraints of
// the node, and subtracts bridge-owned artifacts so nothing double-counts.
func (o *Optimizer) NumberOfConstraints(f expr.FunctionType, s expr.SetType) int {
	node := expr.ConstraintNode(f, s)
	n := o.inner.NumberOfConstraints(f, s)
	for c, cnode := range o.ownedCons {
		if c.Kind == expr.Native && cnode == node {
			n--
		}
	}
	for _, value := range o.conOrder {
		vc := o.virtualCons[value]
		ci := expr.ConstraintIndex{Kind: expr.Virtual, Value: value}
		if vc.node == node {
			if _, owned := o.ownedCons[ci]; !owned {
				n++
			}
		}
	}
	return n
}

func (o *Optimizer) ListOfConstraintIndices(f expr.FunctionType, s expr.SetType) []expr.ConstraintIndex {
	node := expr.ConstraintNode(f, s)
	var out []expr.ConstraintIndex
	for _, c := range o.inner.ListOfConstraintIndices(f, s) {
		if _, owned := o.ownedCons[c]; !owned {
			out = append(out, c)
		}
	}
	for _, value := range o.conOrder {
		vc := o.virtualCons[value]
		ci := expr.ConstraintIndex{Kind: expr.Virtual, Value: value}
		if vc.node == node {
			if _, owned := o.ownedCons[ci]; !owned {
				out = append(out, ci)
			}
		}
	}
	return out
}

func (o *Optimizer) ListOfConstraintTypes() []expr.Node {
	seen := make(map[expr.Node]bool)
	var out []expr.Node
	consider := func(n expr.Node) {
		if !seen[n] && o.NumberOfConstraints(n.F, n.S) > 0 {
			seen[n] = true
			out = append(out, n)
		}
	}
	for _, n := range o.inner.ListOfConstraintTypes() {
		consider(n)
	}
	for _, value := range o.conOrder {
		consider(o.virtualCons[value].node)
	}
	return out
}

func (o *Optimizer) VariableByName(name string) (expr.VariableIndex, bool, error) {
	if o.varNamesDirty {
		o.varNameLookup = make(map[string][]expr.VariableIndex)
		for v, n := range o.virtualVarNames {
			if n != "" {
				o.varNameLookup[n] = append(o.varNameLookup[n], v)
			}
		}
		o.varNamesDirty = false
	}
	innerV, innerOK, err := o.inner.VariableByName(name)
	if err != nil {
		return expr.VariableIndex{}, false, err
	}
	local := o.varNameLookup[name]
	switch {
	case innerOK && len(local) > 0:
		return expr.VariableIndex{}, false, fmt.Errorf("duplicate variable name %q", name)
	case innerOK:
		return innerV, true, nil
	case len(local) == 1:
		return local[0], true, nil
	case len(local) > 1:
		return expr.VariableIndex{}, false, fmt.Errorf("duplicate variable name %q", name)
	default:
		return expr.VariableIndex{}, false, nil
	}
}

func (o *Optimizer) ConstraintByName(name string) (expr.ConstraintIndex, bool, error) {
	if o.conNamesDirty {
		o.conNameLookup = make(map[string][]int64)
		for _, value := range o.conOrder {
			if n := o.virtualCons[value].name; n != "" {
				o.conNameLookup[n] = append(o.conNameLookup[n], value)
			}
		}
		o.conNamesDirty = false
	}
	innerC, innerOK, err := o.inner.ConstraintByName(name)
	if err != nil {
		return expr.ConstraintIndex{}, false, err
	}
	local := o.conNameLookup[name]
	switch {
	case innerOK && len(local) > 0:
		return expr.ConstraintIndex{}, false, fmt.Errorf("duplicate constraint name %q", name)
	case innerOK:
		return innerC, true, nil
	case len(local) == 1:
		return expr.ConstraintIndex{Kind: expr.Virtual, Value: local[0]}, true, nil
	case len(local) > 1:
		return expr.ConstraintIndex{}, false, fmt.Errorf("duplicate constraint name %q", name)
	default:
		return expr.ConstraintIndex{}, false, nil
	}
}

// --- lifecycle ----------------------------------------------------------

// Empty tears bridges down in reverse creation order before clearing the
// downstream model, then resets the virtual index space.
func (o *Optimizer) Empty() error {
	if o.objBridge != nil {
		if err := o.dropObjectiveBridge(); err != nil {
			return err
		}
	}
	order := append([]int64(nil), o.conOrder...)
	for i := len(order) - 1; i >= 0; i-- {
		value := order[i]
		vc, ok := o.virtualCons[value]
		if !ok || vc.block != nil {
			continue
		}
		if err := o.DeleteConstraint(expr.ConstraintIndex{Kind: expr.Virtual, Value: value}); err != nil {
			return fmt.Errorf("empty: %w", err)
		}
	}
	blocks := append([]*variableBlock(nil), o.blocks...)
	for i := len(blocks) - 1; i >= 0; i-- {
		if err := o.deleteBlock(blocks[i]); err != nil {
			return fmt.Errorf("empty: %w", err)
		}
	}
	if err := o.inner.Empty(); err != nil {
		return err
	}
	o.nextVar = 0
	o.nextCon = 0
	o.virtualCons = make(map[int64]*virtualCon)
	o.conOrder = nil
	o.blocks = nil
	o.varToBlock = make(map[expr.VariableIndex]*variableBlock)
	o.defining = make(map[expr.VariableIndex]expr.Function)
	o.reverse = make(map[expr.VariableIndex]expr.Function)
	o.ownedCons = make(map[expr.ConstraintIndex]expr.Node)
	o.ownedVars = make(map[expr.VariableIndex]bool)
	o.virtualVarNames = make(map[expr.VariableIndex]string)
	o.varNamesDirty = true
	o.conNamesDirty = true
	return nil
}

func (o *Optimizer) IsEmpty() bool {
	return o.inner.IsEmpty() && len(o.virtualCons) == 0 && len(o.blocks) == 0 && o.objBridge == nil
}
