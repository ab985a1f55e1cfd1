package service

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"time"

	"github.com/google/uuid"

	"doc-rag-be/internal/constant"
	"doc-rag-be/internal/dto"
	"doc-rag-be/internal/entity"
	"doc-rag-be/internal/pkg/logger"
	"doc-rag-be/internal/repository/specification"
	"doc-rag-be/internal/repository/unitofwork"
	"doc-rag-be/pkg/chunking"
	"doc-rag-be/pkg/embedding"
	"doc-rag-be/pkg/extraction"
	"doc-rag-be/pkg/images"
	"doc-rag-be/pkg/lifecycle"
	"doc-rag-be/pkg/progress"
	"doc-rag-be/pkg/queue"
	"doc-rag-be/pkg/vectorstore"
)

type IProcessorService interface {
	// Handle runs one document through extract, chunk, embed and store. It
	// is installed as the worker pool's handler. finalAttempt marks the
	// last attempt the pool will make; only then does a failure become
	// terminal for the document.
	Handle(ctx context.Context, msg *dto.ProcessDocumentMessage, finalAttempt bool) error
}

type processorService struct {
	uowFactory     unitofwork.RepositoryFactory
	chain          *extraction.Chain
	chunker        *chunking.Engine
	generator      *embedding.Generator
	store          *vectorstore.Store
	imageExtractor *images.Extractor
	files          *lifecycle.Manager
	hub            *progress.Hub
	registry       *queue.Registry
	chunkSize      int
	chunkOverlap   int
	log            logger.ILogger
}

func NewProcessorService(
	uowFactory unitofwork.RepositoryFactory,
	chain *extraction.Chain,
	chunker *chunking.Engine,
	generator *embedding.Generator,
	store *vectorstore.Store,
	imageExtractor *images.Extractor,
	files *lifecycle.Manager,
	hub *progress.Hub,
	registry *queue.Registry,
	chunkSize, chunkOverlap int,
	log logger.ILogger,
) IProcessorService {
	return &processorService{
		uowFactory:     uowFactory,
		chain:          chain,
		chunker:        chunker,
		generator:      generator,
		store:          store,
		imageExtractor: imageExtractor,
		files:          files,
		hub:            hub,
		registry:       registry,
		chunkSize:      chunkSize,
		chunkOverlap:   chunkOverlap,
		log:            log,
	}
}

func (s *processorService) Handle(ctx context.Context, msg *dto.ProcessDocumentMessage, finalAttempt bool) error {
	document, err := s.markProcessing(ctx, msg)
	if err != nil {
		return err
	}

	if err := s.run(ctx, msg, document); err != nil {
		// a retriable failure keeps the document in processing; the next
		// attempt picks it back up, and only the last one is terminal
		if finalAttempt {
			s.finishFailure(ctx, msg, document, err)
		}
		return err
	}
	return nil
}

func (s *processorService) run(ctx context.Context, msg *dto.ProcessDocumentMessage, document *entity.Document) error {
	// extract
	if err := s.checkpoint(ctx, msg, constant.ProgressExtracting, "extracting"); err != nil {
		return err
	}
	extracted, err := s.chain.Extract(ctx, msg.FilePath, msg.FileType)
	if err != nil {
		return err
	}

	// chunk
	if err := s.checkpoint(ctx, msg, constant.ProgressChunking, "chunking"); err != nil {
		return err
	}
	chunkSize := msg.Options.ChunkSize
	if chunkSize <= 0 {
		chunkSize = s.chunkSize
	}
	chunkOverlap := msg.Options.ChunkOverlap
	if chunkOverlap <= 0 {
		chunkOverlap = s.chunkOverlap
	}
	chunks, err := s.chunker.Chunk(extracted.Text, msg.FileType, chunkSize, chunkOverlap)
	if err != nil {
		return err
	}

	// embed
	if err := s.checkpoint(ctx, msg, constant.ProgressEmbedding, "embedding"); err != nil {
		return err
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	batch, err := s.generator.EmbedBatch(ctx, texts)
	if err != nil {
		return err
	}
	s.log.Info("Processor", "embedded chunks", map[string]interface{}{
		"document_id": msg.DocumentId.String(),
		"successful":  batch.Successful,
		"failed":      batch.Failed,
		"cache_hits":  batch.CacheHits,
	})

	records := make([]*entity.Chunk, len(chunks))
	now := time.Now()
	for i, c := range chunks {
		records[i] = &entity.Chunk{
			Id:             uuid.New(),
			DocumentId:     msg.DocumentId,
			ChunkIndex:     c.Index,
			Text:           c.Text,
			CharLength:     c.CharLength,
			SectionTitle:   c.SectionTitle,
			Page:           pageOf(c.Text),
			EmbeddingValue: batch.Embeddings[i].Vector,
			EmbeddingModel: batch.Embeddings[i].Model,
			Placeholder:    batch.Embeddings[i].Placeholder,
			CreatedAt:      now,
		}
	}

	// store
	if err := s.checkpoint(ctx, msg, constant.ProgressStoring, "storing"); err != nil {
		return err
	}
	if err := s.store.UpsertChunks(ctx, msg.UserId, msg.DocumentId, records); err != nil {
		return err
	}

	if msg.Options.ExtractImages {
		s.storeImages(ctx, msg)
	}

	s.finishSuccess(ctx, msg, document, len(records))
	return nil
}

// storeImages is best-effort: a document without its figures is still
// searchable, so image trouble is logged and swallowed.
func (s *processorService) storeImages(ctx context.Context, msg *dto.ProcessDocumentMessage) {
	records, err := s.imageExtractor.Extract(ctx, msg.FilePath, msg.FileType, msg.FileName)
	if err != nil {
		s.log.Warn("Processor", "image extraction failed", map[string]interface{}{
			"documentId": msg.DocumentId.String(),
			"error":      err.Error(),
		})
		return
	}
	if len(records) == 0 {
		return
	}
	if err := s.store.UpsertImages(ctx, msg.UserId, msg.DocumentId, records); err != nil {
		s.log.Warn("Processor", "image upsert failed", map[string]interface{}{
			"documentId": msg.DocumentId.String(),
			"error":      err.Error(),
		})
	}
}

// checkpoint publishes a phase transition and honors pending cancellation.
// Cancellation is only observed here, between phases, never mid-phase.
func (s *processorService) checkpoint(ctx context.Context, msg *dto.ProcessDocumentMessage, percent int, phase string) error {
	if s.registry.IsCancelled(msg.JobId) {
		s.markCancelled(ctx, msg)
		return queue.ErrJobCancelled
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.hub.Publish(ctx, dto.ProgressEvent{
		Type:       constant.EventTypeProgress,
		DocumentId: msg.DocumentId,
		JobId:      msg.JobId,
		Progress:   percent,
		Phase:      phase,
		Status:     constant.DocumentStatusProcessing,
	})
	return nil
}

func (s *processorService) markProcessing(ctx context.Context, msg *dto.ProcessDocumentMessage) (*entity.Document, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	document, err := uow.DocumentRepository().FindOne(ctx, specification.ByID{ID: msg.DocumentId})
	if err != nil {
		return nil, err
	}
	if document == nil {
		// document deleted while the job waited; treat as cancelled
		return nil, queue.ErrJobCancelled
	}

	now := time.Now()
	document.Status = constant.DocumentStatusProcessing
	document.StartedAt = &now
	if err := uow.DocumentRepository().Update(ctx, document); err != nil {
		return nil, err
	}
	return document, nil
}

func (s *processorService) finishSuccess(ctx context.Context, msg *dto.ProcessDocumentMessage, document *entity.Document, chunkCount int) {
	now := time.Now()
	document.Status = constant.DocumentStatusCompleted
	document.ErrorMessage = ""
	document.ChunkCount = chunkCount
	document.CompletedAt = &now

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.DocumentRepository().Update(ctx, document); err != nil {
		s.log.Error("Processor", "failed to mark document completed", map[string]interface{}{
			"documentId": document.Id.String(),
			"error":      err.Error(),
		})
	}

	s.hub.Publish(ctx, dto.ProgressEvent{
		Type:       constant.EventTypeCompleted,
		DocumentId: document.Id,
		JobId:      msg.JobId,
		Progress:   constant.ProgressDone,
		Status:     constant.DocumentStatusCompleted,
	})

	if err := s.files.ScheduleCleanup(ctx, msg.FilePath, false); err != nil {
		s.log.Warn("Processor", "cleanup scheduling failed", map[string]interface{}{
			"documentId": document.Id.String(),
			"error":      err.Error(),
		})
	}

	s.log.Info("Processor", "document processed", map[string]interface{}{
		"documentId": document.Id.String(),
		"chunks":     chunkCount,
	})
}

func (s *processorService) finishFailure(ctx context.Context, msg *dto.ProcessDocumentMessage, document *entity.Document, cause error) {
	if errors.Is(cause, queue.ErrJobCancelled) {
		return
	}

	document.Status = constant.DocumentStatusFailed
	document.ErrorMessage = cause.Error()

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.DocumentRepository().Update(ctx, document); err != nil {
		s.log.Error("Processor", "failed to mark document failed", map[string]interface{}{
			"documentId": document.Id.String(),
			"error":      err.Error(),
		})
	}

	s.hub.Publish(ctx, dto.ProgressEvent{
		Type:       constant.EventTypeFailed,
		DocumentId: document.Id,
		JobId:      msg.JobId,
		Status:     constant.DocumentStatusFailed,
		Error:      cause.Error(),
	})

	if err := s.files.ScheduleCleanup(ctx, msg.FilePath, true); err != nil {
		s.log.Warn("Processor", "cleanup scheduling failed", map[string]interface{}{
			"documentId": document.Id.String(),
			"error":      err.Error(),
		})
	}
}

func (s *processorService) markCancelled(ctx context.Context, msg *dto.ProcessDocumentMessage) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	document, err := uow.DocumentRepository().FindOne(ctx, specification.ByID{ID: msg.DocumentId})
	if err != nil || document == nil {
		return
	}

	document.Status = constant.DocumentStatusCancelled
	if err := uow.DocumentRepository().Update(ctx, document); err != nil {
		s.log.Error("Processor", "failed to mark document cancelled", map[string]interface{}{
			"documentId": document.Id.String(),
			"error":      err.Error(),
		})
	}

	s.hub.Publish(ctx, dto.ProgressEvent{
		Type:       constant.EventTypeCancelled,
		DocumentId: document.Id,
		JobId:      msg.JobId,
		Status:     constant.DocumentStatusCancelled,
	})
}

var pageMarker = regexp.MustCompile(`\[Page (\d+) of \d+\]`)

// pageOf recovers the page a chunk came from via the extraction markers,
// 0 when the text carries none.
func pageOf(text string) int {
	match := pageMarker.FindStringSubmatch(text)
	if len(match) == 2 {
		if page, err := strconv.Atoi(match[1]); err == nil {
			return page
		}
	}
	return 0
}
