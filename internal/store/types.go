package store

import (
	"time"

	"github.com/google/uuid"
)

// Run is one persisted solve: the model as submitted, the solver settings,
// and the solution found. All fields are serialized to JSON.
type Run struct {
	// RunID is the unique identifier for this run.
	RunID string `json:"runId"`

	// CreatedAt records when this run was saved.
	CreatedAt time.Time `json:"createdAt"`

	// Model is the JSON snapshot of the model that was solved.
	Model ModelDoc `json:"model"`

	// Solution holds one primal per Model.Variables entry, in order. Empty
	// when the solve did not finish.
	Solution []float64 `json:"solution,omitempty"`

	// Objective is the objective value achieved by Solution.
	Objective float64 `json:"objective"`

	// Iterations, PopulationSize, and Seed are the solver settings, kept so
	// a run can be reproduced.
	Iterations     int   `json:"iterations"`
	PopulationSize int   `json:"populationSize"`
	Seed           int64 `json:"seed"`
}

// RunInfo contains metadata about a run without the model or solution data.
// Used for listing runs efficiently.
type RunInfo struct {
	RunID       string    `json:"runId"`
	CreatedAt   time.Time `json:"createdAt"`
	Objective   float64   `json:"objective"`
	Variables   int       `json:"variables"`
	Constraints int       `json:"constraints"`
	Sense       string    `json:"sense"`
}

// NewRun creates a run with a fresh ID and timestamp.
func NewRun(doc ModelDoc) *Run {
	return &Run{
		RunID:     uuid.NewString(),
		CreatedAt: time.Now(),
		Model:     doc,
	}
}

// ToInfo converts a full Run to RunInfo (metadata only).
func (r *Run) ToInfo() RunInfo {
	return RunInfo{
		RunID:       r.RunID,
		CreatedAt:   r.CreatedAt,
		Objective:   r.Objective,
		Variables:   len(r.Model.Variables),
		Constraints: len(r.Model.Constraints) + len(r.Model.Groups),
		Sense:       r.Model.Sense,
	}
}

// Validate checks if the run has consistent data.
func (r *Run) Validate() error {
	if r.RunID == "" {
		return &ValidationError{Field: "RunID", Reason: "cannot be empty"}
	}
	if r.CreatedAt.IsZero() {
		return &ValidationError{Field: "CreatedAt", Reason: "cannot be zero"}
	}
	if len(r.Solution) != 0 && len(r.Solution) != len(r.Model.Variables) {
		return &ValidationError{Field: "Solution", Reason: "length must match the model's variable count"}
	}
	return r.Model.Validate()
}

// ValidationError represents a run validation error.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}
