package expr

import "fmt"

// SetType tags a set implementation.
type SetType uint8

const (
	SetNone SetType = iota
	SetEqualTo
	SetGreaterThan
	SetLessThan
	SetInterval
	SetNonnegatives
	SetNonpositives
	SetZeros
)

func (t SetType) String() string {
	switch t {
	case SetNone:
		return "None"
	case SetEqualTo:
		return "EqualTo"
	case SetGreaterThan:
		return "GreaterThan"
	case SetLessThan:
		return "LessThan"
	case SetInterval:
		return "Interval"
	case SetNonnegatives:
		return "Nonnegatives"
	case SetNonpositives:
		return "Nonpositives"
	case SetZeros:
		return "Zeros"
	default:
		return fmt.Sprintf("SetType(%d)", uint8(t))
	}
}

// AllSetTypes lists every concrete set type, in tag order.
func AllSetTypes() []SetType {
	return []SetType{SetEqualTo, SetGreaterThan, SetLessThan, SetInterval, SetNonnegatives, SetNonpositives, SetZeros}
}

// ParseSetType resolves a set type by name.
func ParseSetType(name string) (SetType, error) {
	for _, t := range AllSetTypes() {
		if t.String() == name {
			return t, nil
		}
	}
	return SetNone, fmt.Errorf("unknown set type %q", name)
}

// Set is the right-hand side of a constraint. Scalar sets have dimension 1.
type Set interface {
	SetType() SetType
	Dimension() int
}

// VectorSet is a set whose dimension is part of its value. Dimension-updatable
// sets allow removing coordinates from an existing constrained-variable group.
type VectorSet interface {
	Set
	DimensionUpdatable() bool
	WithDimension(d int) Set
}

// EqualTo is {x : x == Value}.
type EqualTo struct {
	Value float64
}

func (EqualTo) SetType() SetType { return SetEqualTo }
func (EqualTo) Dimension() int { return 1 }

// GreaterThan is {x : x >= Lower}.
type GreaterThan struct {
	Lower float64
}

func (GreaterThan) SetType() SetType { return SetGreaterThan }
func (GreaterThan) Dimension() int { return 1 }

// LessThan is {x : x <= Upper}.
type LessThan struct {
	Upper float64
}

func (LessThan) SetType() SetType { return SetLessThan }
func (LessThan) Dimension() int { return 1 }

// Interval is {x : Lower <= x <= Upper}.
type Interval struct {
	Lower float64
	Upper float64
}

func (Interval) SetType() SetType { return SetInterval }
func (Interval) Dimension() int { return 1 }

// Nonnegatives is {x in R^d : x >= 0}.
type Nonnegatives struct {
	Dim int
}

func (Nonnegatives) SetType() SetType { return SetNonnegatives }
func (s Nonnegatives) Dimension() int { return s.Dim }
func (Nonnegatives) DimensionUpdatable() bool { return true }
func (s Nonnegatives) WithDimension(d int) Set { return Nonnegatives{Dim: d} }

// Nonpositives is {x in R^d : x <= 0}.
type Nonpositives struct {
	Dim int
}

func (Nonpositives) SetType() SetType { return SetNonpositives }
func (s Nonpositives) Dimension() int { return s.Dim }
func (Nonpositives) DimensionUpdatable() bool { return true }
func (s Nonpositives) WithDimension(d int) Set { return Nonpositives{Dim: d} }

// Zeros is {x in R^d : x == 0}. Not dimension-updatable: a group constrained
// to Zeros can only be deleted whole.
type Zeros struct {
	Dim int
}

func (Zeros) SetType() SetType { return SetZeros }
func (s Zeros) Dimension() int { return s.Dim }
func (Zeros) DimensionUpdatable() bool { return false }
func (s Zeros) WithDimension(d int) Set { return Zeros{Dim: d} }

// SetsEqual compares two sets by type and value.
func SetsEqual(a, b Set) bool {
	return a == b
}
