package dto

import (
	"time"

	"github.com/google/uuid"
)

// ProgressEvent is the payload pushed per pipeline phase. Only the latest
// value per document is retained; the stream itself is fire-and-forget.
type ProgressEvent struct {
	Type          string    `json:"type"` // queued, progress, completed, failed, cancelled
	DocumentId    uuid.UUID `json:"document_id"`
	JobId         uuid.UUID `json:"job_id"`
	Progress      int       `json:"progress,omitempty"`
	Phase         string    `json:"phase,omitempty"`
	Message       string    `json:"message,omitempty"`
	Status        string    `json:"status,omitempty"`
	Error         string    `json:"error,omitempty"`
	QueuePosition int       `json:"queue_position,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}
