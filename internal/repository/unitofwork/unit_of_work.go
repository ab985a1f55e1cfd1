package unitofwork

import (
	"context"

	"doc-rag-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	DocumentRepository() contract.DocumentRepository
	JobRepository() contract.JobRepository
	CollectionRepository() contract.CollectionRepository
	ChunkRepository() contract.ChunkRepository
	ImageRepository() contract.ImageRepository
}
