package queue

import (
	"context"
	"time"

	"doc-rag-be/internal/pkg/logger"
	"doc-rag-be/internal/repository/unitofwork"
)

// Janitor prunes finished job rows past their retention window so status
// listings stay bounded. It runs until the context is cancelled.
type Janitor struct {
	factory   unitofwork.RepositoryFactory
	retention time.Duration
	interval  time.Duration
	log       logger.ILogger
}

func NewJanitor(factory unitofwork.RepositoryFactory, retention time.Duration, log logger.ILogger) *Janitor {
	if retention <= 0 {
		retention = time.Hour
	}
	return &Janitor{
		factory:   factory,
		retention: retention,
		interval:  retention / 4,
		log:       log,
	}
}

func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

func (j *Janitor) sweep(ctx context.Context) {
	uow := j.factory.NewUnitOfWork(ctx)
	cutoff := time.Now().Add(-j.retention)

	pruned, err := uow.JobRepository().PruneFinished(ctx, cutoff)
	if err != nil {
		j.log.Warn("Janitor", "prune failed", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if pruned > 0 {
		j.log.Info("Janitor", "pruned finished jobs", map[string]interface{}{
			"count":  pruned,
			"cutoff": cutoff.Format(time.RFC3339),
		})
	}
}
