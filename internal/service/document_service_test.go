package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doc-rag-be/internal/constant"
	"doc-rag-be/internal/dto"
	"doc-rag-be/internal/entity"
	"doc-rag-be/internal/repository/contract"
	"doc-rag-be/internal/repository/specification"
	"doc-rag-be/internal/repository/unitofwork"
	"doc-rag-be/pkg/extraction"
	"doc-rag-be/pkg/lifecycle"
	"doc-rag-be/pkg/progress"
	"doc-rag-be/pkg/queue"
)

type nopLogger struct{}

func (nopLogger) Debug(string, string, map[string]interface{}) {}
func (nopLogger) Info(string, string, map[string]interface{})  {}
func (nopLogger) Warn(string, string, map[string]interface{})  {}
func (nopLogger) Error(string, string, map[string]interface{}) {}
func (nopLogger) Sync() error                                  { return nil }

type fakeDocumentRepository struct {
	mu   sync.Mutex
	docs map[uuid.UUID]*entity.Document
}

func newFakeDocumentRepository() *fakeDocumentRepository {
	return &fakeDocumentRepository{docs: map[uuid.UUID]*entity.Document{}}
}

func (r *fakeDocumentRepository) Create(ctx context.Context, document *entity.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *document
	r.docs[document.Id] = &copied
	return nil
}

func (r *fakeDocumentRepository) Update(ctx context.Context, document *entity.Document) error {
	return r.Create(ctx, document)
}

func (r *fakeDocumentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.docs, id)
	return nil
}

func (r *fakeDocumentRepository) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, document := range r.docs {
		if matchesDocument(document, specs) {
			copied := *document
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeDocumentRepository) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Document
	for _, document := range r.docs {
		if matchesDocument(document, specs) {
			copied := *document
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeDocumentRepository) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	docs, _ := r.FindAll(ctx, specs...)
	return int64(len(docs)), nil
}

func matchesDocument(document *entity.Document, specs []specification.Specification) bool {
	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.ByID:
			if document.Id != s.ID {
				return false
			}
		case specification.UserOwnedBy:
			if document.UserId != s.UserID {
				return false
			}
		case specification.FilterBy:
			if s.Field == "job_id" {
				jobId, ok := s.Value.(uuid.UUID)
				if !ok || document.JobId == nil || *document.JobId != jobId {
					return false
				}
			}
		}
	}
	return true
}

type fakeJobRepository struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*entity.ProcessingJob
}

func newFakeJobRepository() *fakeJobRepository {
	return &fakeJobRepository{jobs: map[uuid.UUID]*entity.ProcessingJob{}}
}

func (r *fakeJobRepository) Create(ctx context.Context, job *entity.ProcessingJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *job
	r.jobs[job.Id] = &copied
	return nil
}

func (r *fakeJobRepository) Update(ctx context.Context, job *entity.ProcessingJob) error {
	return r.Create(ctx, job)
}

func (r *fakeJobRepository) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ProcessingJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, spec := range specs {
		if byID, ok := spec.(specification.ByID); ok {
			if job, found := r.jobs[byID.ID]; found {
				copied := *job
				return &copied, nil
			}
		}
	}
	return nil, nil
}

func (r *fakeJobRepository) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ProcessingJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.ProcessingJob
	for _, job := range r.jobs {
		copied := *job
		out = append(out, &copied)
	}
	return out, nil
}

func (r *fakeJobRepository) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	jobs, _ := r.FindAll(ctx, specs...)
	return int64(len(jobs)), nil
}

func (r *fakeJobRepository) WaitingPosition(ctx context.Context, jobId uuid.UUID) (int, error) {
	return 0, nil
}

func (r *fakeJobRepository) PruneFinished(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

type fakeUow struct {
	docs *fakeDocumentRepository
	jobs *fakeJobRepository
}

func (u *fakeUow) Begin(ctx context.Context) error                      { return nil }
func (u *fakeUow) Commit() error                                        { return nil }
func (u *fakeUow) Rollback() error                                      { return nil }
func (u *fakeUow) DocumentRepository() contract.DocumentRepository      { return u.docs }
func (u *fakeUow) JobRepository() contract.JobRepository                { return u.jobs }
func (u *fakeUow) CollectionRepository() contract.CollectionRepository  { return nil }
func (u *fakeUow) ChunkRepository() contract.ChunkRepository            { return nil }
func (u *fakeUow) ImageRepository() contract.ImageRepository            { return nil }

type fakeFactory struct {
	docs *fakeDocumentRepository
	jobs *fakeJobRepository
}

func (f *fakeFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &fakeUow{docs: f.docs, jobs: f.jobs}
}

func newTestDocumentService(t *testing.T) (IDocumentService, *fakeDocumentRepository, *progress.Hub) {
	t.Helper()
	docs := newFakeDocumentRepository()
	factory := &fakeFactory{docs: docs, jobs: newFakeJobRepository()}
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	jobQueue := queue.NewQueue(pubSub, "PROCESS_DOCUMENT", factory, queue.NewRegistry(), 3, nopLogger{})
	hub := progress.NewHub(nil, nil, nopLogger{})
	svc := NewDocumentService(factory, jobQueue, nil, nil, hub, nopLogger{})
	return svc, docs, hub
}

func TestCancelWaitingJobMarksDocumentCancelled(t *testing.T) {
	svc, docs, hub := newTestDocumentService(t)
	userId := uuid.New()
	ctx := context.Background()

	// no worker pool is running, so the job stays waiting
	uploaded, err := svc.Upload(ctx, userId, &dto.UploadDocumentRequest{
		FileName: "manual.pdf",
		FilePath: "/uploads/manual.pdf",
	})
	require.NoError(t, err)

	result, err := svc.Cancel(ctx, userId, uploaded.JobId)
	require.NoError(t, err)
	assert.True(t, result.Cancelled)

	document, err := docs.FindOne(ctx, specification.ByID{ID: uploaded.DocumentId})
	require.NoError(t, err)
	require.NotNil(t, document)
	assert.Equal(t, constant.DocumentStatusCancelled, document.Status)

	event, found := hub.Latest(uploaded.DocumentId)
	require.True(t, found)
	assert.Equal(t, constant.EventTypeCancelled, event.Type)
	assert.Equal(t, constant.DocumentStatusCancelled, event.Status)
}

func TestCancelLeavesCompletedDocumentAlone(t *testing.T) {
	svc, docs, _ := newTestDocumentService(t)
	userId := uuid.New()
	ctx := context.Background()

	uploaded, err := svc.Upload(ctx, userId, &dto.UploadDocumentRequest{
		FileName: "manual.pdf",
		FilePath: "/uploads/manual.pdf",
	})
	require.NoError(t, err)

	// document finished between the status read and the cancel request
	document, err := docs.FindOne(ctx, specification.ByID{ID: uploaded.DocumentId})
	require.NoError(t, err)
	document.Status = constant.DocumentStatusCompleted
	require.NoError(t, docs.Update(ctx, document))

	_, err = svc.Cancel(ctx, userId, uploaded.JobId)
	require.NoError(t, err)

	document, err = docs.FindOne(ctx, specification.ByID{ID: uploaded.DocumentId})
	require.NoError(t, err)
	assert.Equal(t, constant.DocumentStatusCompleted, document.Status)
}

func newTestProcessor(t *testing.T, docs *fakeDocumentRepository, hub *progress.Hub) IProcessorService {
	t.Helper()
	factory := &fakeFactory{docs: docs, jobs: newFakeJobRepository()}
	files, err := lifecycle.NewManager(t.TempDir(), false, 0, false, 3, nopLogger{})
	require.NoError(t, err)
	// a chain with no strategies fails every extraction
	return NewProcessorService(
		factory,
		extraction.NewChain(nopLogger{}),
		nil, nil, nil, nil,
		files,
		hub,
		queue.NewRegistry(),
		1000, 100,
		nopLogger{},
	)
}

func TestHandleFailureIsTerminalOnlyOnFinalAttempt(t *testing.T) {
	docs := newFakeDocumentRepository()
	hub := progress.NewHub(nil, nil, nopLogger{})
	processor := newTestProcessor(t, docs, hub)
	ctx := context.Background()

	jobId := uuid.New()
	documentId := uuid.New()
	userId := uuid.New()
	require.NoError(t, docs.Create(ctx, &entity.Document{
		Id:        documentId,
		UserId:    userId,
		FileName:  "broken.pdf",
		FilePath:  "/uploads/broken.pdf",
		FileType:  constant.FileTypePDF,
		Status:    constant.DocumentStatusQueued,
		JobId:     &jobId,
		CreatedAt: time.Now(),
	}))
	msg := &dto.ProcessDocumentMessage{
		JobId:      jobId,
		DocumentId: documentId,
		UserId:     userId,
		FilePath:   "/uploads/broken.pdf",
		FileName:   "broken.pdf",
		FileType:   constant.FileTypePDF,
	}

	// a non-final attempt fails without condemning the document
	err := processor.Handle(ctx, msg, false)
	require.Error(t, err)

	document, findErr := docs.FindOne(ctx, specification.ByID{ID: documentId})
	require.NoError(t, findErr)
	assert.Equal(t, constant.DocumentStatusProcessing, document.Status)
	assert.Empty(t, document.ErrorMessage)

	event, found := hub.Latest(documentId)
	require.True(t, found)
	assert.NotEqual(t, constant.EventTypeFailed, event.Type)

	// the final attempt makes the same failure terminal
	err = processor.Handle(ctx, msg, true)
	require.Error(t, err)

	document, findErr = docs.FindOne(ctx, specification.ByID{ID: documentId})
	require.NoError(t, findErr)
	assert.Equal(t, constant.DocumentStatusFailed, document.Status)
	assert.NotEmpty(t, document.ErrorMessage)

	event, found = hub.Latest(documentId)
	require.True(t, found)
	assert.Equal(t, constant.EventTypeFailed, event.Type)
}
