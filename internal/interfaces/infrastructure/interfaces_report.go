package interfaces

import (
	"context"

	domain "elective-allocation/internal/domain/allocation"

	"github.com/google/uuid"
)

// Reporter renders the finalized allocation list of a run and returns a
// handle the caller can use to fetch the report.
type Reporter interface {
	Generate(ctx context.Context, runID uuid.UUID, allocs []*domain.Allocation) (string, error)
}
