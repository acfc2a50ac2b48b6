package expr

import "fmt"

// Substitute returns f with every variable that appears in subs replaced by
// its expression. Replacement expressions must be affine (Variable or Affine);
// constants fold exactly. The input is never mutated.
//
// Substituting a non-variable expression into a VectorOfVariables function is
// an error: the vector form has no representation for it. Variable-to-variable
// renames are allowed.
func Substitute(f Function, subs map[VariableIndex]Function) (Function, error) {
	if len(subs) == 0 {
		return f.Clone(), nil
	}
	switch g := f.(type) {
	case Variable:
		r, ok := subs[g.Index]
		if !ok {
			return g, nil
		}
		return r.Clone(), nil
	case Affine:
		out := Affine{Constant: g.Constant}
		for _, t := range g.Terms {
			a, err := replacementAffine(t.Variable, subs)
			if err != nil {
				return nil, err
			}
			out.Constant += t.Coefficient * a.Constant
			for _, rt := range a.Terms {
				out.Terms = append(out.Terms, Term{Coefficient: t.Coefficient * rt.Coefficient, Variable: rt.Variable})
			}
		}
		return CanonicalAffine(out), nil
	case Quadratic:
		out := Quadratic{Constant: g.Constant}
		for _, t := range g.Terms {
			a, err := replacementAffine(t.Variable, subs)
			if err != nil {
				return nil, err
			}
			out.Constant += t.Coefficient * a.Constant
			for _, rt := range a.Terms {
				out.Terms = append(out.Terms, Term{Coefficient: t.Coefficient * rt.Coefficient, Variable: rt.Variable})
			}
		}
		for _, t := range g.QuadTerms {
			a1, err := replacementAffine(t.Variable1, subs)
			if err != nil {
				return nil, err
			}
			a2, err := replacementAffine(t.Variable2, subs)
			if err != nil {
				return nil, err
			}
			// (a1.terms + a1.c) * (a2.terms + a2.c), scaled by the coefficient.
			out.Constant += t.Coefficient * a1.Constant * a2.Constant
			for _, u := range a1.Terms {
				out.Terms = append(out.Terms, Term{Coefficient: t.Coefficient * u.Coefficient * a2.Constant, Variable: u.Variable})
			}
			for _, w := range a2.Terms {
				out.Terms = append(out.Terms, Term{Coefficient: t.Coefficient * w.Coefficient * a1.Constant, Variable: w.Variable})
			}
			for _, u := range a1.Terms {
				for _, w := range a2.Terms {
					out.QuadTerms = append(out.QuadTerms, QuadTerm{
						Coefficient: t.Coefficient * u.Coefficient * w.Coefficient,
						Variable1:   u.Variable,
						Variable2:   w.Variable,
					})
				}
			}
		}
		return CanonicalQuadratic(out), nil
	case VectorOfVariables:
		out := VectorOfVariables{Vars: make([]VariableIndex, len(g.Vars))}
		for i, v := range g.Vars {
			r, ok := subs[v]
			if !ok {
				out.Vars[i] = v
				continue
			}
			rv, ok := r.(Variable)
			if !ok {
				return nil, fmt.Errorf("cannot substitute %s expression for %s inside a vector of variables", r.FunctionType(), v)
			}
			out.Vars[i] = rv.Index
		}
		return out, nil
	default:
		return nil, fmt.Errorf("substitution not defined for %s functions", f.FunctionType())
	}
}

func replacementAffine(v VariableIndex, subs map[VariableIndex]Function) (Affine, error) {
	r, ok := subs[v]
	if !ok {
		return Affine{Terms: []Term{{Coefficient: 1, Variable: v}}}, nil
	}
	switch a := r.(type) {
	case Variable:
		return Affine{Terms: []Term{{Coefficient: 1, Variable: a.Index}}}, nil
	case Affine:
		return a, nil
	default:
		return Affine{}, fmt.Errorf("replacement for %s must be affine, got %s", v, r.FunctionType())
	}
}
