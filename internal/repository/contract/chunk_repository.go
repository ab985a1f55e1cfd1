package contract

import (
	"context"

	"doc-rag-be/internal/entity"
	"doc-rag-be/internal/repository/specification"

	"github.com/google/uuid"
)

// ScoredChunk pairs a chunk with its cosine similarity to a query vector.
type ScoredChunk struct {
	Chunk      *entity.Chunk
	Similarity float64
}

type ChunkRepository interface {
	CreateBulk(ctx context.Context, chunks []*entity.Chunk) error
	DeleteByDocumentId(ctx context.Context, documentId uuid.UUID) error
	DeleteByCollectionId(ctx context.Context, collectionId uuid.UUID) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Chunk, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	CountDocuments(ctx context.Context, collectionIds []uuid.UUID) (int64, error)

	// SearchSimilarWithScore runs a cosine-distance search strictly inside
	// one collection. Caller resolves the collection from the user first, so
	// cross-user reads are impossible by construction.
	SearchSimilarWithScore(ctx context.Context, collectionId uuid.UUID, embedding []float32, limit int) ([]*ScoredChunk, error)
}
