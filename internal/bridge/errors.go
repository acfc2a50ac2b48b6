package bridge

import (
	"fmt"

	"github.com/bridgeopt/bridgeopt/internal/expr"
)

// ErrPartialDelete matches any PartialDeleteError via errors.Is.
var ErrPartialDelete = &PartialDeleteError{}

// PartialDeleteError reports an attempt to delete a strict subset of a
// variable group whose set is not dimension-updatable.
type PartialDeleteError struct {
	Set       expr.SetType
	Requested int
	Dimension int
}

func (e *PartialDeleteError) Error() string {
	return fmt.Sprintf("cannot delete %d of the %d variables constrained to %s: the group is only deletable as a whole", e.Requested, e.Dimension, e.Set)
}

func (e *PartialDeleteError) Is(target error) bool {
	_, ok := target.(*PartialDeleteError)
	return ok
}

// ErrContractViolation matches any ContractViolationError via errors.Is.
var ErrContractViolation = &ContractViolationError{}

// ContractViolationError reports a bug in a bridge implementation: a
// downstream variable with no registered inverse, a forbidden objective sense
// change, or a non-converging bridge graph. These are never retried or
// degraded; they surface loudly.
type ContractViolationError struct {
	Reason string
}

func (e *ContractViolationError) Error() string {
	return "bridge contract violation: " + e.Reason
}

func (e *ContractViolationError) Is(target error) bool {
	_, ok := target.(*ContractViolationError)
	return ok
}
