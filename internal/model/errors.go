package model

import (
	"fmt"

	"github.com/bridgeopt/bridgeopt/internal/expr"
)

// ErrUnsupported matches any UnsupportedError via errors.Is.
var ErrUnsupported = &UnsupportedError{}

// UnsupportedError reports a function/set, constrained-variable set or
// objective node that neither the downstream model nor any bridge chain can
// realize.
type UnsupportedError struct {
	Node expr.Node
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("unsupported: %s", e.Node)
}

func (e *UnsupportedError) Is(target error) bool {
	_, ok := target.(*UnsupportedError)
	return ok
}

// ErrInvalidIndex matches any InvalidIndexError via errors.Is.
var ErrInvalidIndex = &InvalidIndexError{}

// InvalidIndexError reports an operation on a deleted or foreign index.
type InvalidIndexError struct {
	Index fmt.Stringer
}

func (e *InvalidIndexError) Error() string {
	if e.Index == nil {
		return "invalid index"
	}
	return fmt.Sprintf("invalid index %s", e.Index)
}

func (e *InvalidIndexError) Is(target error) bool {
	_, ok := target.(*InvalidIndexError)
	return ok
}
