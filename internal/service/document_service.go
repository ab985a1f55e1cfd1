package service

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"doc-rag-be/internal/apperror"
	"doc-rag-be/internal/constant"
	"doc-rag-be/internal/dto"
	"doc-rag-be/internal/entity"
	"doc-rag-be/internal/pkg/logger"
	"doc-rag-be/internal/repository/specification"
	"doc-rag-be/internal/repository/unitofwork"
	"doc-rag-be/pkg/lifecycle"
	"doc-rag-be/pkg/progress"
	"doc-rag-be/pkg/queue"
	"doc-rag-be/pkg/vectorstore"
)

type IDocumentService interface {
	Upload(ctx context.Context, userId uuid.UUID, req *dto.UploadDocumentRequest) (*dto.UploadDocumentResponse, error)
	Show(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.ShowDocumentResponse, error)
	List(ctx context.Context, userId uuid.UUID, sessionId string) ([]*dto.ShowDocumentResponse, error)
	Delete(ctx context.Context, userId uuid.UUID, id uuid.UUID) error
	DeleteSession(ctx context.Context, userId uuid.UUID, sessionId string) (int, error)
	Reprocess(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.UploadDocumentResponse, error)
	Cancel(ctx context.Context, userId uuid.UUID, jobId uuid.UUID) (*dto.CancelResult, error)
	QueueStatus(ctx context.Context, userId uuid.UUID) (*dto.QueueStatusResponse, error)
	Progress(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.ProgressEvent, error)
	Stats(ctx context.Context, userId uuid.UUID) (*dto.StoreStatsResponse, error)
}

type documentService struct {
	uowFactory unitofwork.RepositoryFactory
	jobQueue   *queue.Queue
	store      *vectorstore.Store
	files      *lifecycle.Manager
	hub        *progress.Hub
	log        logger.ILogger
}

func NewDocumentService(
	uowFactory unitofwork.RepositoryFactory,
	jobQueue *queue.Queue,
	store *vectorstore.Store,
	files *lifecycle.Manager,
	hub *progress.Hub,
	log logger.ILogger,
) IDocumentService {
	return &documentService{
		uowFactory: uowFactory,
		jobQueue:   jobQueue,
		store:      store,
		files:      files,
		hub:        hub,
		log:        log,
	}
}

func (s *documentService) Upload(ctx context.Context, userId uuid.UUID, req *dto.UploadDocumentRequest) (*dto.UploadDocumentResponse, error) {
	fileType := normalizeFileType(req.FileName)
	if !constant.IsSupportedFileType(fileType) {
		// reject before anything is persisted, the transport removes the file
		return nil, apperror.UnsupportedType(fileType)
	}

	now := time.Now()
	jobId := uuid.New()
	document := &entity.Document{
		Id:        uuid.New(),
		UserId:    userId,
		SessionId: req.SessionId,
		FileName:  req.FileName,
		FilePath:  req.FilePath,
		FileType:  fileType,
		Status:    constant.DocumentStatusQueued,
		JobId:     &jobId,
		QueuedAt:  &now,
		CreatedAt: now,
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.DocumentRepository().Create(ctx, document); err != nil {
		return nil, err
	}

	result, err := s.enqueue(ctx, document, req.Priority, req.Options)
	if err != nil {
		document.Status = constant.DocumentStatusFailed
		document.ErrorMessage = err.Error()
		_ = uow.DocumentRepository().Update(ctx, document)
		return nil, err
	}

	s.log.Info("DocumentService", "document uploaded", map[string]interface{}{
		"documentId": document.Id.String(),
		"userId":     userId.String(),
		"fileType":   fileType,
		"position":   result.QueuePosition,
	})
	return &dto.UploadDocumentResponse{
		DocumentId:    document.Id,
		JobId:         result.JobId,
		QueuePosition: result.QueuePosition,
	}, nil
}

func (s *documentService) enqueue(ctx context.Context, document *entity.Document, priority int, options dto.ProcessingOptions) (*dto.EnqueueResult, error) {
	msg := &dto.ProcessDocumentMessage{
		JobId:      *document.JobId,
		DocumentId: document.Id,
		UserId:     document.UserId,
		SessionId:  document.SessionId,
		FilePath:   document.FilePath,
		FileName:   document.FileName,
		FileType:   document.FileType,
		Options:    options,
	}
	result, err := s.jobQueue.Enqueue(ctx, msg, dto.EnqueueOptions{Priority: priority})
	if err != nil {
		return nil, err
	}

	s.hub.Publish(ctx, dto.ProgressEvent{
		Type:          constant.EventTypeQueued,
		DocumentId:    document.Id,
		JobId:         result.JobId,
		Status:        constant.DocumentStatusQueued,
		QueuePosition: result.QueuePosition,
	})
	return result, nil
}

func (s *documentService) Show(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.ShowDocumentResponse, error) {
	document, err := s.ownedDocument(ctx, userId, id)
	if err != nil {
		return nil, err
	}
	return toShowResponse(document), nil
}

func (s *documentService) List(ctx context.Context, userId uuid.UUID, sessionId string) ([]*dto.ShowDocumentResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	specs := []specification.Specification{
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "created_at", Desc: true},
	}
	if sessionId != "" {
		specs = append(specs, specification.Filter("session_id", sessionId))
	}

	documents, err := uow.DocumentRepository().FindAll(ctx, specs...)
	if err != nil {
		return nil, err
	}

	out := make([]*dto.ShowDocumentResponse, 0, len(documents))
	for _, document := range documents {
		out = append(out, toShowResponse(document))
	}
	return out, nil
}

// Delete removes the document row, its vectors and its source file. The
// store delete and the row delete run first; a file that refuses to go only
// leaves a stray upload, never a stray search result.
func (s *documentService) Delete(ctx context.Context, userId uuid.UUID, id uuid.UUID) error {
	document, err := s.ownedDocument(ctx, userId, id)
	if err != nil {
		return err
	}

	if err := s.store.DeleteDocument(ctx, document.Id); err != nil {
		return err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.DocumentRepository().Delete(ctx, document.Id); err != nil {
		return err
	}

	if err := s.files.DeleteNow(document.FilePath); err != nil {
		s.log.Warn("DocumentService", "source file delete failed", map[string]interface{}{
			"documentId": document.Id.String(),
			"error":      err.Error(),
		})
	}
	s.hub.Forget(document.Id)

	s.log.Info("DocumentService", "document deleted", map[string]interface{}{
		"documentId": document.Id.String(),
		"userId":     userId.String(),
	})
	return nil
}

func (s *documentService) DeleteSession(ctx context.Context, userId uuid.UUID, sessionId string) (int, error) {
	if sessionId == "" {
		return 0, apperror.New(apperror.KindValidation, "session id is required")
	}

	documents, err := s.List(ctx, userId, sessionId)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, document := range documents {
		if err := s.Delete(ctx, userId, document.Id); err != nil {
			s.log.Warn("DocumentService", "session delete skipped a document", map[string]interface{}{
				"documentId": document.Id.String(),
				"error":      err.Error(),
			})
			continue
		}
		deleted++
	}
	return deleted, nil
}

// Reprocess re-runs the pipeline for a document whose file is still on
// disk. A document already queued or processing keeps its in-flight job;
// two concurrent runs over the same document would race on the upsert.
func (s *documentService) Reprocess(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.UploadDocumentResponse, error) {
	document, err := s.ownedDocument(ctx, userId, id)
	if err != nil {
		return nil, err
	}
	if document.Status == constant.DocumentStatusQueued || document.Status == constant.DocumentStatusProcessing {
		return nil, apperror.Queue("document already has a job in flight", nil)
	}

	now := time.Now()
	jobId := uuid.New()
	document.JobId = &jobId
	document.Status = constant.DocumentStatusQueued
	document.ErrorMessage = ""
	document.QueuedAt = &now
	document.StartedAt = nil
	document.CompletedAt = nil

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.DocumentRepository().Update(ctx, document); err != nil {
		return nil, err
	}

	result, err := s.enqueue(ctx, document, 0, dto.ProcessingOptions{ExtractImages: true})
	if err != nil {
		return nil, err
	}
	return &dto.UploadDocumentResponse{
		DocumentId:    document.Id,
		JobId:         result.JobId,
		QueuePosition: result.QueuePosition,
	}, nil
}

func (s *documentService) Cancel(ctx context.Context, userId uuid.UUID, jobId uuid.UUID) (*dto.CancelResult, error) {
	result, err := s.jobQueue.Cancel(ctx, jobId, userId)
	if err != nil {
		return nil, err
	}
	if result.Cancelled {
		s.markDocumentCancelled(ctx, userId, jobId)
	}
	return result, nil
}

// markDocumentCancelled moves the job's document to its terminal cancelled
// state and announces it. Without this a waiting job's cancellation would
// only touch the job row and the document would report queued forever.
func (s *documentService) markDocumentCancelled(ctx context.Context, userId uuid.UUID, jobId uuid.UUID) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	document, err := uow.DocumentRepository().FindOne(ctx,
		specification.Filter("job_id", jobId),
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil || document == nil {
		s.log.Warn("DocumentService", "cancelled job has no document", map[string]interface{}{
			"jobId": jobId.String(),
		})
		return
	}
	switch document.Status {
	case constant.DocumentStatusCompleted, constant.DocumentStatusFailed, constant.DocumentStatusCancelled:
		return
	}

	document.Status = constant.DocumentStatusCancelled
	if err := uow.DocumentRepository().Update(ctx, document); err != nil {
		s.log.Error("DocumentService", "failed to mark document cancelled", map[string]interface{}{
			"documentId": document.Id.String(),
			"error":      err.Error(),
		})
		return
	}

	s.hub.Publish(ctx, dto.ProgressEvent{
		Type:       constant.EventTypeCancelled,
		DocumentId: document.Id,
		JobId:      jobId,
		Status:     constant.DocumentStatusCancelled,
	})
}

func (s *documentService) QueueStatus(ctx context.Context, userId uuid.UUID) (*dto.QueueStatusResponse, error) {
	return s.jobQueue.Status(ctx, userId)
}

// Progress answers from the hub's latest snapshot first and reconstructs
// from the document row when the snapshot is gone (restart, pruned job).
func (s *documentService) Progress(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.ProgressEvent, error) {
	document, err := s.ownedDocument(ctx, userId, id)
	if err != nil {
		return nil, err
	}

	if event, found := s.hub.Latest(document.Id); found {
		return &event, nil
	}

	event := dto.ProgressEvent{
		DocumentId: document.Id,
		Status:     document.Status,
		Timestamp:  document.CreatedAt,
	}
	if document.JobId != nil {
		event.JobId = *document.JobId
	}
	switch document.Status {
	case constant.DocumentStatusCompleted:
		event.Type = constant.EventTypeCompleted
		event.Progress = constant.ProgressDone
	case constant.DocumentStatusFailed:
		event.Type = constant.EventTypeFailed
		event.Error = document.ErrorMessage
	case constant.DocumentStatusCancelled:
		event.Type = constant.EventTypeCancelled
	default:
		event.Type = constant.EventTypeQueued
	}
	return &event, nil
}

func (s *documentService) Stats(ctx context.Context, userId uuid.UUID) (*dto.StoreStatsResponse, error) {
	return s.store.Stats(ctx, userId)
}

func (s *documentService) ownedDocument(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*entity.Document, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	document, err := uow.DocumentRepository().FindOne(ctx,
		specification.ByID{ID: id},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if document == nil {
		return nil, apperror.NotFound("document not found")
	}
	return document, nil
}

func normalizeFileType(fileName string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(fileName)), ".")
}

func toShowResponse(document *entity.Document) *dto.ShowDocumentResponse {
	return &dto.ShowDocumentResponse{
		Id:           document.Id,
		FileName:     document.FileName,
		FileType:     document.FileType,
		Status:       document.Status,
		JobId:        document.JobId,
		ErrorMessage: document.ErrorMessage,
		ChunkCount:   document.ChunkCount,
		QueuedAt:     document.QueuedAt,
		StartedAt:    document.StartedAt,
		CompletedAt:  document.CompletedAt,
		CreatedAt:    document.CreatedAt,
	}
}
