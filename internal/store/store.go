// Package store persists solve runs on the filesystem and defines the JSON
// representation of models, so the core packages stay persistence-free.
package store

// Store defines the interface for run persistence operations.
// Implementations must be thread-safe and handle concurrent access gracefully.
//
// Error handling conventions:
//   - Return nil error on success
//   - Return ErrNotFound if the run doesn't exist (for Load/Delete)
//   - Wrap underlying errors with context using fmt.Errorf("context: %w", err)
type Store interface {
	// SaveRun atomically saves a run. If a run already exists under the same
	// ID, it is overwritten. Implementations should use atomic write
	// strategies (e.g., temp file + rename) to prevent corruption.
	SaveRun(run *Run) error

	// LoadRun retrieves the run with the given ID.
	// Returns ErrNotFound if no such run exists.
	LoadRun(runID string) (*Run, error)

	// ListRuns returns metadata for all available runs. The returned slice
	// may be empty if no runs exist.
	ListRuns() ([]RunInfo, error)

	// DeleteRun removes the run and all associated artifacts.
	// Returns ErrNotFound if no such run exists.
	DeleteRun(runID string) error
}

// ErrNotFound is returned when a requested run does not exist.
// Use errors.Is(err, ErrNotFound) to check for this error.
var ErrNotFound = &NotFoundError{}

// NotFoundError represents a missing run error.
type NotFoundError struct {
	RunID string
}

func (e *NotFoundError) Error() string {
	if e.RunID != "" {
		return "run not found: " + e.RunID
	}
	return "run not found"
}

func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}
