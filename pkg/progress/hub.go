package progress

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"doc-rag-be/internal/dto"
	"doc-rag-be/internal/pkg/logger"
	"doc-rag-be/pkg/events"
	natspub "doc-rag-be/pkg/nats"
)

const redisChannel = "pipeline_events"

// Hub fans pipeline progress out to in-process subscribers, the NATS event
// stream and the redis channel other instances listen on. Delivery is
// fire-and-forget everywhere: a slow or absent listener never stalls a
// worker. Only the latest event per document is retained for polling.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[uuid.UUID]map[int]chan dto.ProgressEvent
	latest      map[uuid.UUID]dto.ProgressEvent
	nextSubId   int

	nats *natspub.Publisher
	rdb  *redis.Client
	log  logger.ILogger
}

func NewHub(nats *natspub.Publisher, rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		subscribers: make(map[uuid.UUID]map[int]chan dto.ProgressEvent),
		latest:      make(map[uuid.UUID]dto.ProgressEvent),
		nats:        nats,
		rdb:         rdb,
		log:         log,
	}
}

// Publish records the event as the document's latest and pushes it to every
// collaborator. Local subscribers with full buffers miss the event rather
// than block; they can recover via Latest.
func (h *Hub) Publish(ctx context.Context, event dto.ProgressEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	h.mu.Lock()
	h.latest[event.DocumentId] = event
	subs := h.subscribers[event.DocumentId]
	for _, ch := range subs {
		select {
		case ch <- event:
		default:
		}
	}
	h.mu.Unlock()

	h.forward(ctx, event)
}

// Subscribe returns a channel of events for one document plus a release
// function. The channel is buffered; callers poll Latest after a missed
// delivery.
func (h *Hub) Subscribe(documentId uuid.UUID) (<-chan dto.ProgressEvent, func()) {
	ch := make(chan dto.ProgressEvent, 16)

	h.mu.Lock()
	id := h.nextSubId
	h.nextSubId++
	if h.subscribers[documentId] == nil {
		h.subscribers[documentId] = make(map[int]chan dto.ProgressEvent)
	}
	h.subscribers[documentId][id] = ch
	h.mu.Unlock()

	release := func() {
		h.mu.Lock()
		if subs, found := h.subscribers[documentId]; found {
			delete(subs, id)
			if len(subs) == 0 {
				delete(h.subscribers, documentId)
			}
		}
		h.mu.Unlock()
	}
	return ch, release
}

// Latest returns the most recent event for a document, if any.
func (h *Hub) Latest(documentId uuid.UUID) (dto.ProgressEvent, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	event, found := h.latest[documentId]
	return event, found
}

// Forget drops the retained snapshot once the document itself is gone.
func (h *Hub) Forget(documentId uuid.UUID) {
	h.mu.Lock()
	delete(h.latest, documentId)
	h.mu.Unlock()
}

func (h *Hub) forward(ctx context.Context, event dto.ProgressEvent) {
	if h.nats != nil {
		natsEvent := events.BaseEvent{
			Type: event.Type,
			Data: map[string]interface{}{
				"document_id": event.DocumentId.String(),
				"job_id":      event.JobId.String(),
				"progress":    event.Progress,
				"phase":       event.Phase,
				"status":      event.Status,
				"message":     event.Message,
				"error":       event.Error,
			},
			OccurredAt: event.Timestamp,
		}
		if err := h.nats.Publish(ctx, natsEvent); err != nil {
			h.log.Warn("ProgressHub", "nats publish failed", map[string]interface{}{
				"documentId": event.DocumentId.String(),
				"error":      err.Error(),
			})
		}
	}

	if h.rdb != nil {
		payload, err := json.Marshal(event)
		if err == nil {
			if err := h.rdb.Publish(ctx, redisChannel, payload).Err(); err != nil {
				h.log.Warn("ProgressHub", "redis publish failed", map[string]interface{}{
					"documentId": event.DocumentId.String(),
					"error":      err.Error(),
				})
			}
		}
	}
}
