package contract

import (
	"context"

	"doc-rag-be/internal/entity"

	"github.com/google/uuid"
)

type CollectionRepository interface {
	// FindOrCreate resolves the user's collection of the given kind, lazily
	// creating it on first write.
	FindOrCreate(ctx context.Context, userId uuid.UUID, kind string) (*entity.Collection, error)

	// Find returns nil (not an error) when the user has no collection of
	// that kind yet.
	Find(ctx context.Context, userId uuid.UUID, kind string) (*entity.Collection, error)

	FindAllByUserId(ctx context.Context, userId uuid.UUID) ([]*entity.Collection, error)
	FindAllByKind(ctx context.Context, kind string) ([]*entity.Collection, error)
}
