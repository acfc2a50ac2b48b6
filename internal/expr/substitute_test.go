package expr

import (
	"math"
	"testing"
)

func nv(i int64) VariableIndex { return VariableIndex{Kind: Native, Value: i} }
func bv(i int64) VariableIndex { return VariableIndex{Kind: Virtual, Value: i} }

func TestSubstituteVariable(t *testing.T) {
	subs := map[VariableIndex]Function{
		bv(0): Affine{Terms: []Term{{Coefficient: -1, Variable: nv(0)}}},
	}

	got, err := Substitute(Variable{Index: bv(0)}, subs)
	if err != nil {
		t.Fatalf("Substitute failed: %v", err)
	}
	want := Affine{Terms: []Term{{Coefficient: -1, Variable: nv(0)}}}
	if !Equal(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}

	// Unmapped variables pass through untouched.
	got, err = Substitute(Variable{Index: nv(3)}, subs)
	if err != nil {
		t.Fatalf("Substitute failed: %v", err)
	}
	if !Equal(got, Variable{Index: nv(3)}) {
		t.Errorf("Expected identity, got %v", got)
	}
}

func TestSubstituteAffineFoldsConstantsExactly(t *testing.T) {
	// 2*b0 + 3*v1 + 0.5, with b0 := v0 - 0.25
	f := Affine{
		Terms:    []Term{{Coefficient: 2, Variable: bv(0)}, {Coefficient: 3, Variable: nv(1)}},
		Constant: 0.5,
	}
	subs := map[VariableIndex]Function{
		bv(0): Affine{Terms: []Term{{Coefficient: 1, Variable: nv(0)}}, Constant: -0.25},
	}

	got, err := Substitute(f, subs)
	if err != nil {
		t.Fatalf("Substitute failed: %v", err)
	}
	want := Affine{
		Terms:    []Term{{Coefficient: 2, Variable: nv(0)}, {Coefficient: 3, Variable: nv(1)}},
		Constant: 0,
	}
	if !Equal(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestSubstituteMergesDuplicateTerms(t *testing.T) {
	// b0 + v0, with b0 := 2*v0: expect 3*v0 as a single term.
	f := Affine{Terms: []Term{{Coefficient: 1, Variable: bv(0)}, {Coefficient: 1, Variable: nv(0)}}}
	subs := map[VariableIndex]Function{
		bv(0): Affine{Terms: []Term{{Coefficient: 2, Variable: nv(0)}}},
	}

	got, err := Substitute(f, subs)
	if err != nil {
		t.Fatalf("Substitute failed: %v", err)
	}
	aff, ok := got.(Affine)
	if !ok {
		t.Fatalf("Expected affine result, got %T", got)
	}
	if len(aff.Terms) != 1 || aff.Terms[0].Coefficient != 3 || aff.Terms[0].Variable != nv(0) {
		t.Errorf("Expected 3*v0, got %v", aff)
	}
}

func TestSubstituteQuadraticExpandsProducts(t *testing.T) {
	// b0^2 with b0 := v0 + 1 expands to v0^2 + 2*v0 + 1.
	f := Quadratic{QuadTerms: []QuadTerm{{Coefficient: 1, Variable1: bv(0), Variable2: bv(0)}}}
	subs := map[VariableIndex]Function{
		bv(0): Affine{Terms: []Term{{Coefficient: 1, Variable: nv(0)}}, Constant: 1},
	}

	got, err := Substitute(f, subs)
	if err != nil {
		t.Fatalf("Substitute failed: %v", err)
	}
	want := Quadratic{
		QuadTerms: []QuadTerm{{Coefficient: 1, Variable1: nv(0), Variable2: nv(0)}},
		Terms:     []Term{{Coefficient: 2, Variable: nv(0)}},
		Constant:  1,
	}
	if !Equal(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestSubstituteVectorOfVariables(t *testing.T) {
	f := VectorOfVariables{Vars: []VariableIndex{bv(0), nv(1)}}

	// Renames are fine.
	got, err := Substitute(f, map[VariableIndex]Function{bv(0): Variable{Index: nv(7)}})
	if err != nil {
		t.Fatalf("Substitute failed: %v", err)
	}
	if !Equal(got, VectorOfVariables{Vars: []VariableIndex{nv(7), nv(1)}}) {
		t.Errorf("Expected rename, got %v", got)
	}

	// Affine replacements are not representable.
	_, err = Substitute(f, map[VariableIndex]Function{
		bv(0): Affine{Terms: []Term{{Coefficient: -1, Variable: nv(0)}}},
	})
	if err == nil {
		t.Error("Expected error substituting affine into vector of variables")
	}
}

func TestSubstituteDoesNotMutateInput(t *testing.T) {
	f := Affine{Terms: []Term{{Coefficient: 1, Variable: bv(0)}}, Constant: 2}
	_, err := Substitute(f, map[VariableIndex]Function{
		bv(0): Affine{Terms: []Term{{Coefficient: -1, Variable: nv(0)}}},
	})
	if err != nil {
		t.Fatalf("Substitute failed: %v", err)
	}
	if f.Terms[0].Variable != bv(0) || f.Constant != 2 {
		t.Errorf("Input mutated: %v", f)
	}
}

func TestValueEvaluatesFunctions(t *testing.T) {
	at := func(v VariableIndex) float64 {
		return float64(v.Value + 1) // v0=1, v1=2
	}
	q := Quadratic{
		QuadTerms: []QuadTerm{{Coefficient: 2, Variable1: nv(0), Variable2: nv(1)}},
		Terms:     []Term{{Coefficient: 3, Variable: nv(0)}},
		Constant:  -1,
	}
	// 2*1*2 + 3*1 - 1 = 6
	if got := Value(q, at); math.Abs(got-6) > 1e-12 {
		t.Errorf("Expected 6, got %f", got)
	}
}
