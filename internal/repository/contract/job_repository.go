package contract

import (
	"context"
	"time"

	"doc-rag-be/internal/entity"
	"doc-rag-be/internal/repository/specification"

	"github.com/google/uuid"
)

type JobRepository interface {
	Create(ctx context.Context, job *entity.ProcessingJob) error
	Update(ctx context.Context, job *entity.ProcessingJob) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ProcessingJob, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ProcessingJob, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)

	// WaitingPosition returns the job's 0-based index within the current
	// waiting set under the canonical queue ordering, or -1 when the job is
	// no longer waiting. Recomputed on every call, never cached.
	WaitingPosition(ctx context.Context, jobId uuid.UUID) (int, error)

	// PruneFinished hard-deletes completed/failed rows older than cutoff.
	PruneFinished(ctx context.Context, cutoff time.Time) (int64, error)
}
