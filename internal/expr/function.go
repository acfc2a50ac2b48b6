// Package expr defines the function and set vocabulary the engine rewrites,
// together with the substitution utility used by the bridging layer.
//
// Functions and sets are closed tagged variants: every implementation reports
// a FunctionType or SetType constant, and graph nodes are compared by those
// type tags, never by value.
package expr

import (
	"fmt"
	"sort"
)

// FunctionType tags a function implementation.
type FunctionType uint8

const (
	FunctionNone FunctionType = iota
	FunctionVariable
	FunctionAffine
	FunctionQuadratic
	FunctionVectorOfVariables
)

func (t FunctionType) String() string {
	switch t {
	case FunctionNone:
		return "None"
	case FunctionVariable:
		return "Variable"
	case FunctionAffine:
		return "Affine"
	case FunctionQuadratic:
		return "Quadratic"
	case FunctionVectorOfVariables:
		return "VectorOfVariables"
	default:
		return fmt.Sprintf("FunctionType(%d)", uint8(t))
	}
}

// AllFunctionTypes lists every concrete function type, in tag order.
func AllFunctionTypes() []FunctionType {
	return []FunctionType{FunctionVariable, FunctionAffine, FunctionQuadratic, FunctionVectorOfVariables}
}

// ParseFunctionType resolves a function type by name.
func ParseFunctionType(name string) (FunctionType, error) {
	for _, t := range AllFunctionTypes() {
		if t.String() == name {
			return t, nil
		}
	}
	return FunctionNone, fmt.Errorf("unknown function type %q", name)
}

// Function is an expression over decision variables.
type Function interface {
	FunctionType() FunctionType
	// Variables returns every variable the function references, in order
	// of first appearance.
	Variables() []VariableIndex
	// Clone returns a deep copy.
	Clone() Function
}

// Variable is the function consisting of a single variable.
type Variable struct {
	Index VariableIndex
}

func (Variable) FunctionType() FunctionType { return FunctionVariable }
func (f Variable) Variables() []VariableIndex { return []VariableIndex{f.Index} }
func (f Variable) Clone() Function { return f }

// Term is one coefficient-variable product of an affine function.
type Term struct {
	Coefficient float64
	Variable    VariableIndex
}

// Affine is sum(terms) + constant.
type Affine struct {
	Terms    []Term
	Constant float64
}

func (Affine) FunctionType() FunctionType { return FunctionAffine }

func (f Affine) Variables() []VariableIndex {
	seen := make(map[VariableIndex]bool, len(f.Terms))
	var out []VariableIndex
	for _, t := range f.Terms {
		if !seen[t.Variable] {
			seen[t.Variable] = true
			out = append(out, t.Variable)
		}
	}
	return out
}

func (f Affine) Clone() Function {
	terms := make([]Term, len(f.Terms))
	copy(terms, f.Terms)
	return Affine{Terms: terms, Constant: f.Constant}
}

// QuadTerm is one coefficient*v1*v2 product of a quadratic function.
type QuadTerm struct {
	Coefficient float64
	Variable1   VariableIndex
	Variable2   VariableIndex
}

// Quadratic is sum(quad terms) + sum(affine terms) + constant.
type Quadratic struct {
	QuadTerms []QuadTerm
	Terms     []Term
	Constant  float64
}

func (Quadratic) FunctionType() FunctionType { return FunctionQuadratic }

func (f Quadratic) Variables() []VariableIndex {
	seen := make(map[VariableIndex]bool)
	var out []VariableIndex
	add := func(v VariableIndex) {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	for _, t := range f.QuadTerms {
		add(t.Variable1)
		add(t.Variable2)
	}
	for _, t := range f.Terms {
		add(t.Variable)
	}
	return out
}

func (f Quadratic) Clone() Function {
	qt := make([]QuadTerm, len(f.QuadTerms))
	copy(qt, f.QuadTerms)
	terms := make([]Term, len(f.Terms))
	copy(terms, f.Terms)
	return Quadratic{QuadTerms: qt, Terms: terms, Constant: f.Constant}
}

// VectorOfVariables is an ordered tuple of distinct variables.
type VectorOfVariables struct {
	Vars []VariableIndex
}

func (VectorOfVariables) FunctionType() FunctionType { return FunctionVectorOfVariables }

func (f VectorOfVariables) Variables() []VariableIndex {
	out := make([]VariableIndex, len(f.Vars))
	copy(out, f.Vars)
	return out
}

func (f VectorOfVariables) Clone() Function {
	return VectorOfVariables{Vars: f.Variables()}
}

// CanonicalAffine merges duplicate terms, drops zero coefficients and orders
// terms deterministically. Constants are carried exactly.
func CanonicalAffine(f Affine) Affine {
	coeffs := make(map[VariableIndex]float64, len(f.Terms))
	order := make([]VariableIndex, 0, len(f.Terms))
	for _, t := range f.Terms {
		if _, ok := coeffs[t.Variable]; !ok {
			order = append(order, t.Variable)
		}
		coeffs[t.Variable] += t.Coefficient
	}
	sort.Slice(order, func(i, j int) bool {
		if order[i].Kind != order[j].Kind {
			return order[i].Kind < order[j].Kind
		}
		return order[i].Value < order[j].Value
	})
	out := Affine{Constant: f.Constant}
	for _, v := range order {
		if c := coeffs[v]; c != 0 {
			out.Terms = append(out.Terms, Term{Coefficient: c, Variable: v})
		}
	}
	return out
}

// CanonicalQuadratic is CanonicalAffine extended to quadratic terms; the two
// variables of each product are ordered so that x*y and y*x merge.
func CanonicalQuadratic(f Quadratic) Quadratic {
	type pair struct{ a, b VariableIndex }
	norm := func(t QuadTerm) pair {
		a, b := t.Variable1, t.Variable2
		if b.Kind < a.Kind || (b.Kind == a.Kind && b.Value < a.Value) {
			a, b = b, a
		}
		return pair{a, b}
	}
	coeffs := make(map[pair]float64, len(f.QuadTerms))
	order := make([]pair, 0, len(f.QuadTerms))
	for _, t := range f.QuadTerms {
		p := norm(t)
		if _, ok := coeffs[p]; !ok {
			order = append(order, p)
		}
		coeffs[p] += t.Coefficient
	}
	sort.Slice(order, func(i, j int) bool {
		pi, pj := order[i], order[j]
		if pi.a != pj.a {
			if pi.a.Kind != pj.a.Kind {
				return pi.a.Kind < pj.a.Kind
			}
			return pi.a.Value < pj.a.Value
		}
		if pi.b.Kind != pj.b.Kind {
			return pi.b.Kind < pj.b.Kind
		}
		return pi.b.Value < pj.b.Value
	})
	affine := CanonicalAffine(Affine{Terms: f.Terms, Constant: f.Constant})
	out := Quadratic{Terms: affine.Terms, Constant: affine.Constant}
	for _, p := range order {
		if c := coeffs[p]; c != 0 {
			out.QuadTerms = append(out.QuadTerms, QuadTerm{Coefficient: c, Variable1: p.a, Variable2: p.b})
		}
	}
	return out
}

// Equal reports whether two functions are semantically identical after
// canonicalization. A Variable and the equivalent one-term Affine compare
// equal.
func Equal(a, b Function) bool {
	qa, oka := toQuadratic(a)
	qb, okb := toQuadratic(b)
	if oka && okb {
		qa, qb = CanonicalQuadratic(qa), CanonicalQuadratic(qb)
		if len(qa.QuadTerms) != len(qb.QuadTerms) || len(qa.Terms) != len(qb.Terms) || qa.Constant != qb.Constant {
			return false
		}
		for i := range qa.QuadTerms {
			if qa.QuadTerms[i] != qb.QuadTerms[i] {
				return false
			}
		}
		for i := range qa.Terms {
			if qa.Terms[i] != qb.Terms[i] {
				return false
			}
		}
		return true
	}
	va, oka := a.(VectorOfVariables)
	vb, okb := b.(VectorOfVariables)
	if oka && okb {
		if len(va.Vars) != len(vb.Vars) {
			return false
		}
		for i := range va.Vars {
			if va.Vars[i] != vb.Vars[i] {
				return false
			}
		}
		return true
	}
	return false
}

func toQuadratic(f Function) (Quadratic, bool) {
	switch g := f.(type) {
	case Variable:
		return Quadratic{Terms: []Term{{Coefficient: 1, Variable: g.Index}}}, true
	case Affine:
		return Quadratic{Terms: g.Terms, Constant: g.Constant}, true
	case Quadratic:
		return g, true
	default:
		return Quadratic{}, false
	}
}

// Value evaluates a scalar function under an assignment. VectorOfVariables
// has no scalar value and panics; callers evaluate its coordinates directly.
func Value(f Function, at func(VariableIndex) float64) float64 {
	switch g := f.(type) {
	case Variable:
		return at(g.Index)
	case Affine:
		v := g.Constant
		for _, t := range g.Terms {
			v += t.Coefficient * at(t.Variable)
		}
		return v
	case Quadratic:
		v := g.Constant
		for _, t := range g.Terms {
			v += t.Coefficient * at(t.Variable)
		}
		for _, t := range g.QuadTerms {
			v += t.Coefficient * at(t.Variable1) * at(t.Variable2)
		}
		return v
	default:
		panic(fmt.Sprintf("expr: no scalar value for %s function", f.FunctionType()))
	}
}
