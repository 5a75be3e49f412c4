// Package bulk models batch operations that fan a serial range out into
// individual records on the warranty backend.
package bulk

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/marv/gateway/internal/domain/shared"
)

// RunKind is the type of record a bulk run creates
type RunKind string

const (
	RunKindDevices RunKind = "devices"
	RunKindTests   RunKind = "tests"
)

// IsValid checks if the kind is valid
func (k RunKind) IsValid() bool {
	return k == RunKindDevices || k == RunKindTests
}

// RunStatus represents the status of a bulk run
type RunStatus string

const (
	RunStatusPending    RunStatus = "pending"
	RunStatusProcessing RunStatus = "processing"
	RunStatusCompleted  RunStatus = "completed"
	RunStatusPartial    RunStatus = "partial"
	RunStatusFailed     RunStatus = "failed"
)

// IsValid checks if the status is valid
func (s RunStatus) IsValid() bool {
	switch s {
	case RunStatusPending, RunStatusProcessing, RunStatusCompleted,
		RunStatusPartial, RunStatusFailed:
		return true
	}
	return false
}

// IsTerminal returns true if this is a terminal state
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusCompleted || s == RunStatusPartial || s == RunStatusFailed
}

// Failure records why a single serial could not be processed
type Failure struct {
	Serial  string `json:"serial"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Run tracks one bulk operation over a serial range
type Run struct {
	shared.BaseAggregateRoot
	Kind        RunKind    `json:"kind"`
	StartSerial string     `json:"start_serial"`
	EndSerial   string     `json:"end_serial"`
	Prefix      string     `json:"prefix,omitempty"`
	Total       int        `json:"total"`
	Succeeded   int        `json:"succeeded"`
	FailedCount int        `json:"failed"`
	Status      RunStatus  `json:"status"`
	Failures    []Failure  `json:"failures,omitempty"`
	RequestedBy string     `json:"requested_by,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewRun creates a pending run
func NewRun(kind RunKind, startSerial, endSerial, prefix, requestedBy string) (*Run, error) {
	if !kind.IsValid() {
		return nil, shared.NewDomainError("INVALID_RUN_KIND", fmt.Sprintf("Invalid run kind: %s", kind))
	}
	if startSerial == "" || endSerial == "" {
		return nil, shared.NewDomainError("INVALID_SERIAL_RANGE", "Start and end serials are required")
	}

	return &Run{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Kind:              kind,
		StartSerial:       startSerial,
		EndSerial:         endSerial,
		Prefix:            prefix,
		Status:            RunStatusPending,
		Failures:          make([]Failure, 0),
		RequestedBy:       requestedBy,
	}, nil
}

// Start marks the run as processing total serials
func (r *Run) Start(total int) error {
	if r.Status != RunStatusPending {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot start processing from state: %s", r.Status))
	}
	if total < 0 {
		return shared.NewDomainError("INVALID_TOTAL", "Total cannot be negative")
	}

	r.Status = RunStatusProcessing
	r.Total = total
	now := time.Now()
	r.StartedAt = &now
	r.UpdatedAt = now
	r.IncrementVersion()

	return nil
}

// Complete records the outcome. Any failure with at least one success is partial.
func (r *Run) Complete(succeeded int, failures []Failure) error {
	if r.Status != RunStatusProcessing {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot complete from state: %s", r.Status))
	}
	if failures == nil {
		failures = make([]Failure, 0)
	}

	status := RunStatusCompleted
	switch {
	case len(failures) > 0 && succeeded == 0:
		status = RunStatusFailed
	case len(failures) > 0:
		status = RunStatusPartial
	}

	r.Status = status
	r.Succeeded = succeeded
	r.FailedCount = len(failures)
	r.Failures = failures
	now := time.Now()
	r.CompletedAt = &now
	r.UpdatedAt = now
	r.IncrementVersion()

	return nil
}

// Fail aborts the run as a whole
func (r *Run) Fail(failures []Failure) error {
	if r.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot fail from terminal state: %s", r.Status))
	}
	if failures == nil {
		failures = make([]Failure, 0)
	}

	r.Status = RunStatusFailed
	r.Succeeded = 0
	r.FailedCount = r.Total
	r.Failures = failures
	now := time.Now()
	r.CompletedAt = &now
	r.UpdatedAt = now
	r.IncrementVersion()

	return nil
}

// HasFailures returns true if any serial failed
func (r *Run) HasFailures() bool {
	return len(r.Failures) > 0
}

// FailuresJSON returns the failures as a JSON string
func (r *Run) FailuresJSON() (string, error) {
	if len(r.Failures) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(r.Failures)
	if err != nil {
		return "", fmt.Errorf("failed to marshal failures: %w", err)
	}
	return string(data), nil
}

// SetFailuresFromJSON parses failures from a JSON string
func (r *Run) SetFailuresFromJSON(jsonStr string) error {
	if jsonStr == "" || jsonStr == "[]" {
		r.Failures = make([]Failure, 0)
		return nil
	}
	var failures []Failure
	if err := json.Unmarshal([]byte(jsonStr), &failures); err != nil {
		return fmt.Errorf("failed to unmarshal failures: %w", err)
	}
	r.Failures = failures
	return nil
}

// SuccessRate returns the success rate as a percentage (0-100)
func (r *Run) SuccessRate() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Succeeded) / float64(r.Total) * 100
}

// Duration returns how long the run took, or has taken so far
func (r *Run) Duration() time.Duration {
	if r.StartedAt == nil {
		return 0
	}
	end := time.Now()
	if r.CompletedAt != nil {
		end = *r.CompletedAt
	}
	return end.Sub(*r.StartedAt)
}
