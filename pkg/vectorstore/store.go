package vectorstore

import (
	"context"

	"github.com/google/uuid"

	"doc-rag-be/internal/apperror"
	"doc-rag-be/internal/constant"
	"doc-rag-be/internal/dto"
	"doc-rag-be/internal/entity"
	"doc-rag-be/internal/pkg/logger"
	"doc-rag-be/internal/repository/contract"
	"doc-rag-be/internal/repository/specification"
	"doc-rag-be/internal/repository/unitofwork"
)

// Store is the persistence face of the pipeline. Every operation resolves
// the caller's collection first and scopes all reads and writes to it, so
// one user's vectors are unreachable from another user's queries by
// construction, not by filtering discipline.
type Store struct {
	factory unitofwork.RepositoryFactory
	log     logger.ILogger
}

func NewStore(factory unitofwork.RepositoryFactory, log logger.ILogger) *Store {
	return &Store{factory: factory, log: log}
}

// UpsertChunks replaces a document's chunks atomically: delete then bulk
// insert inside one transaction. Re-running a job therefore converges to
// the same state instead of duplicating rows.
func (s *Store) UpsertChunks(ctx context.Context, userId, documentId uuid.UUID, chunks []*entity.Chunk) error {
	uow := s.factory.NewUnitOfWork(ctx)

	collection, err := uow.CollectionRepository().FindOrCreate(ctx, userId, constant.CollectionKindText)
	if err != nil {
		return apperror.VectorStore("failed to resolve text collection", err)
	}
	for _, chunk := range chunks {
		chunk.CollectionId = collection.Id
		chunk.DocumentId = documentId
	}

	if err := uow.Begin(ctx); err != nil {
		return apperror.VectorStore("failed to begin transaction", err)
	}
	defer uow.Rollback()

	if err := uow.ChunkRepository().DeleteByDocumentId(ctx, documentId); err != nil {
		return apperror.VectorStore("failed to delete previous chunks", err)
	}
	if len(chunks) > 0 {
		if err := uow.ChunkRepository().CreateBulk(ctx, chunks); err != nil {
			return apperror.VectorStore("failed to insert chunks", err)
		}
	}
	if err := uow.Commit(); err != nil {
		return apperror.VectorStore("failed to commit chunk upsert", err)
	}

	s.log.Info("VectorStore", "chunks upserted", map[string]interface{}{
		"documentId": documentId.String(),
		"count":      len(chunks),
	})
	return nil
}

// UpsertImages is the image-side twin of UpsertChunks.
func (s *Store) UpsertImages(ctx context.Context, userId, documentId uuid.UUID, records []*entity.ImageRecord) error {
	uow := s.factory.NewUnitOfWork(ctx)

	collection, err := uow.CollectionRepository().FindOrCreate(ctx, userId, constant.CollectionKindImage)
	if err != nil {
		return apperror.VectorStore("failed to resolve image collection", err)
	}
	for _, record := range records {
		record.CollectionId = collection.Id
		record.DocumentId = documentId
	}

	if err := uow.Begin(ctx); err != nil {
		return apperror.VectorStore("failed to begin transaction", err)
	}
	defer uow.Rollback()

	if err := uow.ImageRepository().DeleteByDocumentId(ctx, documentId); err != nil {
		return apperror.VectorStore("failed to delete previous images", err)
	}
	if len(records) > 0 {
		if err := uow.ImageRepository().CreateBulk(ctx, records); err != nil {
			return apperror.VectorStore("failed to insert images", err)
		}
	}
	if err := uow.Commit(); err != nil {
		return apperror.VectorStore("failed to commit image upsert", err)
	}

	s.log.Info("VectorStore", "images upserted", map[string]interface{}{
		"documentId": documentId.String(),
		"count":      len(records),
	})
	return nil
}

// SearchChunks runs a cosine search inside the user's text collection. A
// user with no collection yet gets an empty result, not an error.
func (s *Store) SearchChunks(ctx context.Context, userId uuid.UUID, embedding []float32, limit int) ([]*contract.ScoredChunk, error) {
	uow := s.factory.NewUnitOfWork(ctx)

	collection, err := uow.CollectionRepository().Find(ctx, userId, constant.CollectionKindText)
	if err != nil {
		return nil, apperror.VectorStore("failed to resolve text collection", err)
	}
	if collection == nil {
		return nil, nil
	}

	scored, err := uow.ChunkRepository().SearchSimilarWithScore(ctx, collection.Id, embedding, limit)
	if err != nil {
		return nil, apperror.VectorStore("similarity search failed", err)
	}
	return scored, nil
}

// ScoredImage pairs an image record with its keyword-overlap score.
type ScoredImage struct {
	Record *entity.ImageRecord
	Score  float64
}

// SearchImages ranks the user's images by keyword overlap with the query.
// Images carry dummy vectors until a real visual embedder exists, so
// lexical overlap is the ranking signal.
func (s *Store) SearchImages(ctx context.Context, userId uuid.UUID, query string, limit int) ([]ScoredImage, error) {
	uow := s.factory.NewUnitOfWork(ctx)

	collection, err := uow.CollectionRepository().Find(ctx, userId, constant.CollectionKindImage)
	if err != nil {
		return nil, apperror.VectorStore("failed to resolve image collection", err)
	}
	if collection == nil {
		return nil, nil
	}

	records, err := uow.ImageRepository().FindByCollectionId(ctx, collection.Id)
	if err != nil {
		return nil, apperror.VectorStore("failed to list images", err)
	}

	queryTerms := ExtractKeywords(query)
	var scored []ScoredImage
	for _, record := range records {
		score := keywordOverlapScore(record.Keywords, queryTerms)
		if score > 0 {
			scored = append(scored, ScoredImage{Record: record, Score: score})
		}
	}
	sortScoredImages(scored)
	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

// DeleteDocument removes a document's chunks and images in one transaction.
func (s *Store) DeleteDocument(ctx context.Context, documentId uuid.UUID) error {
	uow := s.factory.NewUnitOfWork(ctx)

	if err := uow.Begin(ctx); err != nil {
		return apperror.VectorStore("failed to begin transaction", err)
	}
	defer uow.Rollback()

	if err := uow.ChunkRepository().DeleteByDocumentId(ctx, documentId); err != nil {
		return apperror.VectorStore("failed to delete chunks", err)
	}
	if err := uow.ImageRepository().DeleteByDocumentId(ctx, documentId); err != nil {
		return apperror.VectorStore("failed to delete images", err)
	}
	if err := uow.Commit(); err != nil {
		return apperror.VectorStore("failed to commit document delete", err)
	}
	return nil
}

// Purge wipes every collection the user owns.
func (s *Store) Purge(ctx context.Context, userId uuid.UUID) error {
	uow := s.factory.NewUnitOfWork(ctx)

	collections, err := uow.CollectionRepository().FindAllByUserId(ctx, userId)
	if err != nil {
		return apperror.VectorStore("failed to list collections", err)
	}

	if err := uow.Begin(ctx); err != nil {
		return apperror.VectorStore("failed to begin transaction", err)
	}
	defer uow.Rollback()

	for _, collection := range collections {
		switch collection.Kind {
		case constant.CollectionKindText:
			if err := uow.ChunkRepository().DeleteByCollectionId(ctx, collection.Id); err != nil {
				return apperror.VectorStore("failed to purge chunks", err)
			}
		case constant.CollectionKindImage:
			if err := uow.ImageRepository().DeleteByCollectionId(ctx, collection.Id); err != nil {
				return apperror.VectorStore("failed to purge images", err)
			}
		}
	}
	if err := uow.Commit(); err != nil {
		return apperror.VectorStore("failed to commit purge", err)
	}

	s.log.Info("VectorStore", "user data purged", map[string]interface{}{
		"userId":      userId.String(),
		"collections": len(collections),
	})
	return nil
}

func collectionScope(collectionId uuid.UUID) specification.Specification {
	return specification.Filter("collection_id", collectionId)
}

// Stats reports the user's store footprint.
func (s *Store) Stats(ctx context.Context, userId uuid.UUID) (*dto.StoreStatsResponse, error) {
	uow := s.factory.NewUnitOfWork(ctx)

	stats := &dto.StoreStatsResponse{}
	textCollection, err := uow.CollectionRepository().Find(ctx, userId, constant.CollectionKindText)
	if err != nil {
		return nil, apperror.VectorStore("failed to resolve text collection", err)
	}
	if textCollection != nil {
		count, err := uow.ChunkRepository().Count(ctx, collectionScope(textCollection.Id))
		if err != nil {
			return nil, apperror.VectorStore("failed to count chunks", err)
		}
		stats.TotalChunks = count

		docs, err := uow.ChunkRepository().CountDocuments(ctx, []uuid.UUID{textCollection.Id})
		if err != nil {
			return nil, apperror.VectorStore("failed to count documents", err)
		}
		stats.TotalDocuments = docs
	}

	imageCollection, err := uow.CollectionRepository().Find(ctx, userId, constant.CollectionKindImage)
	if err != nil {
		return nil, apperror.VectorStore("failed to resolve image collection", err)
	}
	if imageCollection != nil {
		count, err := uow.ImageRepository().Count(ctx, collectionScope(imageCollection.Id))
		if err != nil {
			return nil, apperror.VectorStore("failed to count images", err)
		}
		stats.TotalImages = count
	}

	return stats, nil
}
