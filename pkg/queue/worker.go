package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"doc-rag-be/internal/constant"
	"doc-rag-be/internal/dto"
	"doc-rag-be/internal/pkg/logger"
	"doc-rag-be/internal/repository/specification"
	"doc-rag-be/internal/repository/unitofwork"
)

// Handler runs one document through the pipeline. A returned error is
// retriable unless the context was cancelled. finalAttempt tells the
// handler the attempt budget is spent, so terminal bookkeeping runs once
// instead of on attempts the pool is about to retry.
type Handler func(ctx context.Context, msg *dto.ProcessDocumentMessage, finalAttempt bool) error

// ErrJobCancelled is returned by handlers that observed a cancellation mark
// at a checkpoint. The pool finishes the job without burning a retry.
var ErrJobCancelled = errors.New("job cancelled")

// WorkerPool subscribes N workers to the pipeline topic. Retries happen
// in-process with exponential backoff; a worker never dies with its job, the
// failure lands on the row and the worker moves on.
type WorkerPool struct {
	pubSub       *gochannel.GoChannel
	topic        string
	workers      int
	retryBackoff time.Duration
	factory      unitofwork.RepositoryFactory
	registry     *Registry
	handler      Handler
	validate     *validator.Validate
	log          logger.ILogger
}

func NewWorkerPool(
	pubSub *gochannel.GoChannel,
	topic string,
	workers int,
	retryBackoff time.Duration,
	factory unitofwork.RepositoryFactory,
	registry *Registry,
	handler Handler,
	log logger.ILogger,
) *WorkerPool {
	if workers <= 0 {
		workers = 3
	}
	if retryBackoff <= 0 {
		retryBackoff = 2 * time.Second
	}
	return &WorkerPool{
		pubSub:       pubSub,
		topic:        topic,
		workers:      workers,
		retryBackoff: retryBackoff,
		factory:      factory,
		registry:     registry,
		handler:      handler,
		validate:     validator.New(),
		log:          log,
	}
}

// Start subscribes and launches the workers. It returns after the
// subscription is live; workers drain until the context is cancelled and the
// broker closes the channel.
func (wp *WorkerPool) Start(ctx context.Context) error {
	messages, err := wp.pubSub.Subscribe(ctx, wp.topic)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < wp.workers; i++ {
		worker := i
		g.Go(func() error {
			for msg := range messages {
				wp.processMessage(gctx, worker, msg)
			}
			return nil
		})
	}

	go func() {
		if err := g.Wait(); err != nil {
			wp.log.Error("WorkerPool", "worker group exited with error", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	wp.log.Info("WorkerPool", "workers started", map[string]interface{}{
		"workers": wp.workers,
		"topic":   wp.topic,
	})
	return nil
}

func (wp *WorkerPool) processMessage(ctx context.Context, worker int, msg *message.Message) {
	// malformed payloads are acked away, never retried
	var payload dto.ProcessDocumentMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		wp.log.Error("WorkerPool", "failed to unmarshal message", map[string]interface{}{
			"error": err.Error(),
		})
		msg.Ack()
		return
	}
	if err := wp.validate.Struct(&payload); err != nil {
		wp.log.Error("WorkerPool", "message failed validation", map[string]interface{}{
			"jobId": payload.JobId.String(),
			"error": err.Error(),
		})
		msg.Ack()
		return
	}
	defer msg.Ack()

	uow := wp.factory.NewUnitOfWork(ctx)
	job, err := uow.JobRepository().FindOne(ctx, specification.ByID{ID: payload.JobId})
	if err != nil || job == nil {
		wp.log.Error("WorkerPool", "job row missing for message", map[string]interface{}{
			"jobId": payload.JobId.String(),
		})
		return
	}
	if job.State != constant.JobStateWaiting {
		// cancelled or already handled
		return
	}
	if wp.registry.IsCancelled(job.Id) {
		wp.finishJob(ctx, job.Id, constant.JobStateFailed, "cancelled before start")
		return
	}

	now := time.Now()
	job.State = constant.JobStateActive
	job.StartedAt = &now
	if err := uow.JobRepository().Update(ctx, job); err != nil {
		wp.log.Error("WorkerPool", "failed to mark job active", map[string]interface{}{
			"jobId": job.Id.String(),
			"error": err.Error(),
		})
		return
	}

	maxAttempts := job.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		wp.bumpAttempts(ctx, job.Id, attempt)

		lastErr = wp.handler(ctx, &payload, attempt == maxAttempts)
		if lastErr == nil {
			wp.registry.Clear(job.Id)
			wp.finishJob(ctx, job.Id, constant.JobStateCompleted, "")
			wp.log.Info("WorkerPool", "job completed", map[string]interface{}{
				"worker":   worker,
				"jobId":    job.Id.String(),
				"attempts": attempt,
			})
			return
		}
		if errors.Is(lastErr, ErrJobCancelled) || ctx.Err() != nil {
			wp.finishJob(ctx, job.Id, constant.JobStateFailed, "cancelled")
			return
		}

		wp.log.Warn("WorkerPool", "attempt failed", map[string]interface{}{
			"worker":  worker,
			"jobId":   job.Id.String(),
			"attempt": attempt,
			"error":   lastErr.Error(),
		})
		if attempt < maxAttempts {
			backoff := wp.retryBackoff << (attempt - 1)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				wp.finishJob(ctx, job.Id, constant.JobStateFailed, "shutdown during retry wait")
				return
			}
		}
	}

	wp.finishJob(ctx, job.Id, constant.JobStateFailed, lastErr.Error())
	wp.log.Error("WorkerPool", "job exhausted retries", map[string]interface{}{
		"worker": worker,
		"jobId":  job.Id.String(),
		"error":  lastErr.Error(),
	})
}

func (wp *WorkerPool) bumpAttempts(ctx context.Context, jobId uuid.UUID, attempt int) {
	uow := wp.factory.NewUnitOfWork(ctx)
	job, err := uow.JobRepository().FindOne(ctx, specification.ByID{ID: jobId})
	if err != nil || job == nil {
		return
	}
	job.Attempts = attempt
	if err := uow.JobRepository().Update(ctx, job); err != nil {
		wp.log.Warn("WorkerPool", "failed to record attempt", map[string]interface{}{
			"jobId": jobId.String(),
			"error": err.Error(),
		})
	}
}

func (wp *WorkerPool) finishJob(ctx context.Context, jobId uuid.UUID, state, lastError string) {
	uow := wp.factory.NewUnitOfWork(ctx)
	job, err := uow.JobRepository().FindOne(ctx, specification.ByID{ID: jobId})
	if err != nil || job == nil {
		return
	}
	now := time.Now()
	job.State = state
	job.LastError = lastError
	job.FinishedAt = &now
	if err := uow.JobRepository().Update(ctx, job); err != nil {
		wp.log.Error("WorkerPool", "failed to finish job", map[string]interface{}{
			"jobId": jobId.String(),
			"error": err.Error(),
		})
	}
}
