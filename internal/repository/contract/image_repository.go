package contract

import (
	"context"

	"doc-rag-be/internal/entity"
	"doc-rag-be/internal/repository/specification"

	"github.com/google/uuid"
)

type ImageRepository interface {
	CreateBulk(ctx context.Context, records []*entity.ImageRecord) error
	DeleteByDocumentId(ctx context.Context, documentId uuid.UUID) error
	DeleteByCollectionId(ctx context.Context, collectionId uuid.UUID) error
	FindByCollectionId(ctx context.Context, collectionId uuid.UUID) ([]*entity.ImageRecord, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ImageRecord, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
