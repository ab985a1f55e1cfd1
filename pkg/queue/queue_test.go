package queue

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doc-rag-be/internal/apperror"
	"doc-rag-be/internal/constant"
	"doc-rag-be/internal/dto"
	"doc-rag-be/internal/entity"
	"doc-rag-be/internal/repository/contract"
	"doc-rag-be/internal/repository/specification"
	"doc-rag-be/internal/repository/unitofwork"
)

type nopLogger struct{}

func (nopLogger) Debug(string, string, map[string]interface{}) {}
func (nopLogger) Info(string, string, map[string]interface{})  {}
func (nopLogger) Warn(string, string, map[string]interface{})  {}
func (nopLogger) Error(string, string, map[string]interface{}) {}
func (nopLogger) Sync() error                                  { return nil }

// memJobRepository is an in-memory JobRepository honoring the canonical
// waiting order, enough to exercise queue semantics without a database.
type memJobRepository struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*entity.ProcessingJob
}

func newMemJobRepository() *memJobRepository {
	return &memJobRepository{jobs: map[uuid.UUID]*entity.ProcessingJob{}}
}

func (r *memJobRepository) Create(ctx context.Context, job *entity.ProcessingJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *job
	r.jobs[job.Id] = &copied
	return nil
}

func (r *memJobRepository) Update(ctx context.Context, job *entity.ProcessingJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *job
	r.jobs[job.Id] = &copied
	return nil
}

func (r *memJobRepository) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ProcessingJob, error) {
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

func (r *memJobRepository) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ProcessingJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var userId *uuid.UUID
	var state string
	var states []string
	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.UserOwnedBy:
			id := s.UserID
			userId = &id
		case specification.InState:
			state = s.State
		case specification.InStates:
			states = s.States
		}
	}

	inStates := func(job *entity.ProcessingJob) bool {
		if len(states) == 0 {
			return true
		}
		for _, s := range states {
			if job.State == s {
				return true
			}
		}
		return false
	}

	var out []*entity.ProcessingJob
	for _, job := range r.jobs {
		if userId != nil && job.UserId != *userId {
			continue
		}
		if state != "" && job.State != state {
			continue
		}
		if !inStates(job) {
			continue
		}
		copied := *job
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *memJobRepository) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	jobs, _ := r.FindAll(ctx, specs...)
	return int64(len(jobs)), nil
}

func (r *memJobRepository) WaitingPosition(ctx context.Context, jobId uuid.UUID) (int, error) {
	waiting, _ := r.FindAll(ctx, specification.InState{State: constant.JobStateWaiting})
	for i, job := range waiting {
		if job.Id == jobId {
			return i, nil
		}
	}
	return -1, nil
}

func (r *memJobRepository) PruneFinished(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var pruned int64
	for id, job := range r.jobs {
		finished := job.State == constant.JobStateCompleted || job.State == constant.JobStateFailed
		if finished && job.FinishedAt != nil && job.FinishedAt.Before(cutoff) {
			delete(r.jobs, id)
			pruned++
		}
	}
	return pruned, nil
}

type memFactory struct {
	jobs *memJobRepository
}

func (f *memFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &memUow{jobs: f.jobs}
}

type memUow struct {
	jobs *memJobRepository
}

func (u *memUow) Begin(ctx context.Context) error                      { return nil }
func (u *memUow) Commit() error                                        { return nil }
func (u *memUow) Rollback() error                                      { return nil }
func (u *memUow) DocumentRepository() contract.DocumentRepository      { return nil }
func (u *memUow) JobRepository() contract.JobRepository                { return u.jobs }
func (u *memUow) CollectionRepository() contract.CollectionRepository  { return nil }
func (u *memUow) ChunkRepository() contract.ChunkRepository            { return nil }
func (u *memUow) ImageRepository() contract.ImageRepository            { return nil }

func newTestQueue(t *testing.T) (*Queue, *memJobRepository, *gochannel.GoChannel) {
	t.Helper()
	jobs := newMemJobRepository()
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	q := NewQueue(pubSub, "PROCESS_DOCUMENT", &memFactory{jobs: jobs}, NewRegistry(), 3, nopLogger{})
	return q, jobs, pubSub
}

func testMessage(userId uuid.UUID) *dto.ProcessDocumentMessage {
	return &dto.ProcessDocumentMessage{
		JobId:      uuid.New(),
		DocumentId: uuid.New(),
		UserId:     userId,
		FilePath:   "/uploads/report.pdf",
		FileName:   "report.pdf",
		FileType:   constant.FileTypePDF,
	}
}

func TestEnqueueCreatesWaitingJob(t *testing.T) {
	q, jobs, _ := newTestQueue(t)
	userId := uuid.New()

	res, err := q.Enqueue(context.Background(), testMessage(userId), dto.EnqueueOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, res.QueuePosition)

	job, err := jobs.FindOne(context.Background(), specification.ByID{ID: res.JobId})
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, constant.JobStateWaiting, job.State)
	assert.Equal(t, 3, job.MaxAttempts)
}

func TestEnqueueRejectsInvalidPayload(t *testing.T) {
	q, _, _ := newTestQueue(t)

	msg := testMessage(uuid.New())
	msg.FilePath = ""
	_, err := q.Enqueue(context.Background(), msg, dto.EnqueueOptions{})
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestEnqueuePriorityOrdersPositions(t *testing.T) {
	q, _, _ := newTestQueue(t)
	userId := uuid.New()

	first, err := q.Enqueue(context.Background(), testMessage(userId), dto.EnqueueOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, first.QueuePosition)

	// a high-priority job jumps ahead of the earlier one
	urgent, err := q.Enqueue(context.Background(), testMessage(userId), dto.EnqueueOptions{Priority: 10})
	require.NoError(t, err)
	assert.Equal(t, 0, urgent.QueuePosition)

	status, err := q.Status(context.Background(), userId)
	require.NoError(t, err)
	require.Len(t, status.Jobs.Waiting, 2)
	assert.Equal(t, urgent.JobId, status.Jobs.Waiting[0].JobId)
	assert.Equal(t, 1, status.Jobs.Waiting[1].QueuePosition)
}

func TestCancelWaitingJob(t *testing.T) {
	q, jobs, _ := newTestQueue(t)
	userId := uuid.New()

	res, err := q.Enqueue(context.Background(), testMessage(userId), dto.EnqueueOptions{})
	require.NoError(t, err)

	cancel, err := q.Cancel(context.Background(), res.JobId, userId)
	require.NoError(t, err)
	assert.True(t, cancel.Cancelled)

	job, _ := jobs.FindOne(context.Background(), specification.ByID{ID: res.JobId})
	assert.Equal(t, constant.JobStateFailed, job.State)
	assert.Equal(t, "cancelled by user", job.LastError)
}

func TestCancelRejectsOtherUsersJob(t *testing.T) {
	q, _, _ := newTestQueue(t)
	owner := uuid.New()

	res, err := q.Enqueue(context.Background(), testMessage(owner), dto.EnqueueOptions{})
	require.NoError(t, err)

	_, err = q.Cancel(context.Background(), res.JobId, uuid.New())
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindUnauthorized))
}

func TestCancelUnknownJob(t *testing.T) {
	q, _, _ := newTestQueue(t)

	_, err := q.Cancel(context.Background(), uuid.New(), uuid.New())
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestCancelFinishedJobIsNoop(t *testing.T) {
	q, jobs, _ := newTestQueue(t)
	userId := uuid.New()

	res, err := q.Enqueue(context.Background(), testMessage(userId), dto.EnqueueOptions{})
	require.NoError(t, err)

	job, _ := jobs.FindOne(context.Background(), specification.ByID{ID: res.JobId})
	now := time.Now()
	job.State = constant.JobStateCompleted
	job.FinishedAt = &now
	require.NoError(t, jobs.Update(context.Background(), job))

	cancel, err := q.Cancel(context.Background(), res.JobId, userId)
	require.NoError(t, err)
	assert.False(t, cancel.Cancelled)
}

func TestStatusCountsAndFileNames(t *testing.T) {
	q, _, _ := newTestQueue(t)
	userId := uuid.New()

	msg := testMessage(userId)
	_, err := q.Enqueue(context.Background(), msg, dto.EnqueueOptions{})
	require.NoError(t, err)

	status, err := q.Status(context.Background(), userId)
	require.NoError(t, err)
	assert.Equal(t, int64(1), status.Queue.Waiting)
	require.Len(t, status.Jobs.Waiting, 1)
	assert.Equal(t, "report.pdf", status.Jobs.Waiting[0].FileName)

	// another user sees none of it
	other, err := q.Status(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, int64(0), other.Queue.Waiting)
	assert.Empty(t, other.Jobs.Waiting)
}

func TestWorkerPoolProcessesJob(t *testing.T) {
	jobs := newMemJobRepository()
	factory := &memFactory{jobs: jobs}
	registry := NewRegistry()
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	q := NewQueue(pubSub, "PROCESS_DOCUMENT", factory, registry, 3, nopLogger{})

	done := make(chan uuid.UUID, 1)
	pool := NewWorkerPool(pubSub, "PROCESS_DOCUMENT", 2, time.Millisecond, factory, registry,
		func(ctx context.Context, msg *dto.ProcessDocumentMessage, finalAttempt bool) error {
			done <- msg.JobId
			return nil
		}, nopLogger{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, pool.Start(ctx))

	res, err := q.Enqueue(ctx, testMessage(uuid.New()), dto.EnqueueOptions{})
	require.NoError(t, err)

	select {
	case got := <-done:
		assert.Equal(t, res.JobId, got)
	case <-time.After(5 * time.Second):
		t.Fatal("handler never ran")
	}

	assert.Eventually(t, func() bool {
		job, _ := jobs.FindOne(ctx, specification.ByID{ID: res.JobId})
		return job != nil && job.State == constant.JobStateCompleted
	}, 5*time.Second, 10*time.Millisecond)
}

func TestWorkerPoolRetriesThenFails(t *testing.T) {
	jobs := newMemJobRepository()
	factory := &memFactory{jobs: jobs}
	registry := NewRegistry()
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	q := NewQueue(pubSub, "PROCESS_DOCUMENT", factory, registry, 2, nopLogger{})

	var mu sync.Mutex
	var finalFlags []bool
	pool := NewWorkerPool(pubSub, "PROCESS_DOCUMENT", 1, time.Millisecond, factory, registry,
		func(ctx context.Context, msg *dto.ProcessDocumentMessage, finalAttempt bool) error {
			mu.Lock()
			finalFlags = append(finalFlags, finalAttempt)
			mu.Unlock()
			return apperror.Extraction("always fails", nil)
		}, nopLogger{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, pool.Start(ctx))

	res, err := q.Enqueue(ctx, testMessage(uuid.New()), dto.EnqueueOptions{})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		job, _ := jobs.FindOne(ctx, specification.ByID{ID: res.JobId})
		return job != nil && job.State == constant.JobStateFailed
	}, 5*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []bool{false, true}, finalFlags)

	job, _ := jobs.FindOne(ctx, specification.ByID{ID: res.JobId})
	assert.Contains(t, job.LastError, "always fails")
}

func TestJanitorPrunesOldFinishedJobs(t *testing.T) {
	jobs := newMemJobRepository()
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, jobs.Create(context.Background(), &entity.ProcessingJob{
		Id:         uuid.New(),
		State:      constant.JobStateCompleted,
		FinishedAt: &old,
	}))
	fresh := time.Now()
	keep := uuid.New()
	require.NoError(t, jobs.Create(context.Background(), &entity.ProcessingJob{
		Id:         keep,
		State:      constant.JobStateCompleted,
		FinishedAt: &fresh,
	}))

	janitor := NewJanitor(&memFactory{jobs: jobs}, time.Hour, nopLogger{})
	janitor.sweep(context.Background())

	remaining, _ := jobs.FindAll(context.Background())
	require.Len(t, remaining, 1)
	assert.Equal(t, keep, remaining[0].Id)
}

func TestRecoverRepublishesStrandedJobs(t *testing.T) {
	jobs := newMemJobRepository()
	factory := &memFactory{jobs: jobs}
	registry := NewRegistry()
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	q := NewQueue(pubSub, "PROCESS_DOCUMENT", factory, registry, 3, nopLogger{})

	// rows written by a previous process whose broker messages are gone
	userId := uuid.New()
	seed := func(state string) uuid.UUID {
		msg := testMessage(userId)
		payload, err := json.Marshal(msg)
		require.NoError(t, err)
		job := &entity.ProcessingJob{
			Id:          msg.JobId,
			DocumentId:  msg.DocumentId,
			UserId:      userId,
			Payload:     payload,
			MaxAttempts: 3,
			State:       state,
			CreatedAt:   time.Now(),
		}
		if state == constant.JobStateActive {
			now := time.Now()
			job.StartedAt = &now
		}
		require.NoError(t, jobs.Create(context.Background(), job))
		return msg.JobId
	}
	waitingId := seed(constant.JobStateWaiting)
	activeId := seed(constant.JobStateActive)

	var mu sync.Mutex
	seen := map[uuid.UUID]bool{}
	pool := NewWorkerPool(pubSub, "PROCESS_DOCUMENT", 2, time.Millisecond, factory, registry,
		func(ctx context.Context, msg *dto.ProcessDocumentMessage, finalAttempt bool) error {
			mu.Lock()
			seen[msg.JobId] = true
			mu.Unlock()
			return nil
		}, nopLogger{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, pool.Start(ctx))

	recovered, err := q.Recover(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, recovered)

	assert.Eventually(t, func() bool {
		w, _ := jobs.FindOne(ctx, specification.ByID{ID: waitingId})
		a, _ := jobs.FindOne(ctx, specification.ByID{ID: activeId})
		return w != nil && w.State == constant.JobStateCompleted &&
			a != nil && a.State == constant.JobStateCompleted
	}, 5*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, seen[waitingId])
	assert.True(t, seen[activeId])
}

func TestRecoverWithNoStrandedJobsIsNoop(t *testing.T) {
	q, jobs, _ := newTestQueue(t)
	now := time.Now()
	require.NoError(t, jobs.Create(context.Background(), &entity.ProcessingJob{
		Id:         uuid.New(),
		State:      constant.JobStateCompleted,
		FinishedAt: &now,
	}))

	recovered, err := q.Recover(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, recovered)
}
