package bulk

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RunFilter defines the filters for querying runs
type RunFilter struct {
	Kind        *RunKind
	Status      *RunStatus
	RequestedBy string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	OrderBy     string
	OrderDir    string
}

// RunListResult represents a paginated list of runs
type RunListResult struct {
	Items      []*Run
	TotalCount int64
	Page       int
	PageSize   int
}

// RunRepository defines the interface for run persistence
type RunRepository interface {
	// FindByID finds a run by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Run, error)

	// FindAll returns runs newest first, with pagination and filtering
	FindAll(ctx context.Context, filter RunFilter, page, pageSize int) (*RunListResult, error)

	// FindUnfinished finds runs that never reached a terminal state
	FindUnfinished(ctx context.Context) ([]*Run, error)

	// Save saves a run (create or update)
	Save(ctx context.Context, run *Run) error

	// Delete deletes a run by ID
	Delete(ctx context.Context, id uuid.UUID) error
}
