package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"doc-rag-be/internal/apperror"
	"doc-rag-be/internal/constant"
	"doc-rag-be/internal/dto"
	"doc-rag-be/internal/entity"
	"doc-rag-be/internal/pkg/logger"
	"doc-rag-be/internal/repository/specification"
	"doc-rag-be/internal/repository/unitofwork"
)

// Queue fronts the watermill broker with durable job rows. The broker moves
// messages; the rows carry state, attempts and ordering, so queue position
// and status survive what the in-memory broker forgets.
type Queue struct {
	pubSub      *gochannel.GoChannel
	topic       string
	factory     unitofwork.RepositoryFactory
	validate    *validator.Validate
	registry    *Registry
	maxAttempts int
	log         logger.ILogger
}

func NewQueue(
	pubSub *gochannel.GoChannel,
	topic string,
	factory unitofwork.RepositoryFactory,
	registry *Registry,
	maxAttempts int,
	log logger.ILogger,
) *Queue {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Queue{
		pubSub:      pubSub,
		topic:       topic,
		factory:     factory,
		validate:    validator.New(),
		registry:    registry,
		maxAttempts: maxAttempts,
		log:         log,
	}
}

// Enqueue validates the payload, persists a waiting job row and publishes
// the message, honoring an optional delay. The returned queue position is
// computed against the canonical waiting order at this instant.
func (q *Queue) Enqueue(ctx context.Context, msg *dto.ProcessDocumentMessage, opts dto.EnqueueOptions) (*dto.EnqueueResult, error) {
	if err := q.validate.Struct(msg); err != nil {
		return nil, apperror.Wrap(apperror.KindValidation, "invalid enqueue payload", err)
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, apperror.Queue("failed to marshal job payload", err)
	}

	job := &entity.ProcessingJob{
		Id:          msg.JobId,
		DocumentId:  msg.DocumentId,
		UserId:      msg.UserId,
		Payload:     payload,
		Priority:    opts.Priority,
		DelayMs:     opts.Delay.Milliseconds(),
		MaxAttempts: q.maxAttempts,
		State:       constant.JobStateWaiting,
		CreatedAt:   time.Now(),
	}

	uow := q.factory.NewUnitOfWork(ctx)
	if err := uow.JobRepository().Create(ctx, job); err != nil {
		return nil, apperror.Queue("failed to persist job", err)
	}

	publish := func() {
		wmMsg := message.NewMessage(watermill.NewUUID(), payload)
		if err := q.pubSub.Publish(q.topic, wmMsg); err != nil {
			q.log.Error("Queue", "failed to publish job", map[string]interface{}{
				"jobId": msg.JobId.String(),
				"error": err.Error(),
			})
		}
	}
	if opts.Delay > 0 {
		time.AfterFunc(opts.Delay, publish)
	} else {
		publish()
	}

	position, err := uow.JobRepository().WaitingPosition(ctx, job.Id)
	if err != nil {
		position = -1
	}

	q.log.Info("Queue", "job enqueued", map[string]interface{}{
		"jobId":      msg.JobId.String(),
		"documentId": msg.DocumentId.String(),
		"priority":   opts.Priority,
		"position":   position,
	})
	return &dto.EnqueueResult{
		JobId:         job.Id,
		DocumentId:    msg.DocumentId,
		QueuePosition: position,
	}, nil
}

// Recover republishes jobs stranded by a restart. The broker is in-memory,
// so waiting rows lose their message and active rows lose their worker when
// the process dies; both are put back on the wire from their durable
// payloads, active ones reset to waiting first. Returns how many jobs were
// republished.
func (q *Queue) Recover(ctx context.Context) (int, error) {
	uow := q.factory.NewUnitOfWork(ctx)
	jobs := uow.JobRepository()

	stranded, err := jobs.FindAll(ctx,
		specification.InStates{States: []string{constant.JobStateWaiting, constant.JobStateActive}},
		specification.WaitingOrder{},
	)
	if err != nil {
		return 0, apperror.Queue("failed to list stranded jobs", err)
	}

	recovered := 0
	for _, job := range stranded {
		if job.State == constant.JobStateActive {
			job.State = constant.JobStateWaiting
			job.StartedAt = nil
			if err := jobs.Update(ctx, job); err != nil {
				q.log.Error("Queue", "failed to reset stranded active job", map[string]interface{}{
					"jobId": job.Id.String(),
					"error": err.Error(),
				})
				continue
			}
		}

		wmMsg := message.NewMessage(watermill.NewUUID(), job.Payload)
		if err := q.pubSub.Publish(q.topic, wmMsg); err != nil {
			q.log.Error("Queue", "failed to republish stranded job", map[string]interface{}{
				"jobId": job.Id.String(),
				"error": err.Error(),
			})
			continue
		}
		recovered++
	}

	if recovered > 0 {
		q.log.Info("Queue", "recovered stranded jobs", map[string]interface{}{
			"count": recovered,
		})
	}
	return recovered, nil
}

// Cancel marks a job for cancellation. A waiting job is finished on the
// spot; an active one only gets the cancellation flag, which the worker
// observes at its next phase checkpoint. Ownership is enforced before any
// state is touched.
func (q *Queue) Cancel(ctx context.Context, jobId, userId uuid.UUID) (*dto.CancelResult, error) {
	uow := q.factory.NewUnitOfWork(ctx)
	job, err := uow.JobRepository().FindOne(ctx, specification.ByID{ID: jobId})
	if err != nil {
		return nil, apperror.Queue("failed to load job", err)
	}
	if job == nil {
		return nil, apperror.NotFound("job not found")
	}
	if job.UserId != userId {
		return nil, apperror.Unauthorized("job belongs to another user")
	}

	switch job.State {
	case constant.JobStateCompleted, constant.JobStateFailed:
		return &dto.CancelResult{Cancelled: false, Reason: "job already finished"}, nil
	case constant.JobStateActive:
		q.registry.MarkCancelled(jobId)
		q.log.Info("Queue", "cancellation requested for active job", map[string]interface{}{
			"jobId": jobId.String(),
		})
		return &dto.CancelResult{Cancelled: true, Reason: "cancellation requested, stopping at next checkpoint"}, nil
	}

	// waiting: finish the row now so it never starts
	q.registry.MarkCancelled(jobId)
	now := time.Now()
	job.State = constant.JobStateFailed
	job.LastError = "cancelled by user"
	job.FinishedAt = &now
	if err := uow.JobRepository().Update(ctx, job); err != nil {
		return nil, apperror.Queue("failed to cancel waiting job", err)
	}

	q.log.Info("Queue", "waiting job cancelled", map[string]interface{}{
		"jobId": jobId.String(),
	})
	return &dto.CancelResult{Cancelled: true, Reason: "removed from queue"}, nil
}

// Status reports per-state counts plus the caller's active and waiting
// jobs. Waiting positions are recomputed on every call; they are an index
// into the live ordering, not a stored value.
func (q *Queue) Status(ctx context.Context, userId uuid.UUID) (*dto.QueueStatusResponse, error) {
	uow := q.factory.NewUnitOfWork(ctx)
	jobs := uow.JobRepository()

	resp := &dto.QueueStatusResponse{}
	owned := specification.UserOwnedBy{UserID: userId}

	states := []struct {
		state string
		dst   *int64
	}{
		{constant.JobStateWaiting, &resp.Queue.Waiting},
		{constant.JobStateActive, &resp.Queue.Active},
		{constant.JobStateCompleted, &resp.Queue.Completed},
		{constant.JobStateFailed, &resp.Queue.Failed},
	}
	for _, s := range states {
		count, err := jobs.Count(ctx, owned, specification.InState{State: s.state})
		if err != nil {
			return nil, apperror.Queue("failed to count jobs", err)
		}
		*s.dst = count
	}

	active, err := jobs.FindAll(ctx, owned, specification.InState{State: constant.JobStateActive})
	if err != nil {
		return nil, apperror.Queue("failed to list active jobs", err)
	}
	for _, job := range active {
		resp.Jobs.Active = append(resp.Jobs.Active, q.toEntry(job, -1))
	}

	waiting, err := jobs.FindAll(ctx, owned,
		specification.InState{State: constant.JobStateWaiting},
		specification.WaitingOrder{},
	)
	if err != nil {
		return nil, apperror.Queue("failed to list waiting jobs", err)
	}
	for _, job := range waiting {
		position, err := jobs.WaitingPosition(ctx, job.Id)
		if err != nil {
			position = -1
		}
		resp.Jobs.Waiting = append(resp.Jobs.Waiting, q.toEntry(job, position))
	}

	return resp, nil
}

func (q *Queue) toEntry(job *entity.ProcessingJob, position int) dto.JobStatusEntry {
	entry := dto.JobStatusEntry{
		JobId:      job.Id,
		DocumentId: job.DocumentId,
		Status:     job.State,
		Error:      job.LastError,
		Timestamp:  job.CreatedAt,
	}
	if position >= 0 {
		entry.QueuePosition = position
	}

	var payload dto.ProcessDocumentMessage
	if err := json.Unmarshal(job.Payload, &payload); err == nil {
		entry.FileName = payload.FileName
	}
	return entry
}
