package dto

import (
	"time"

	"github.com/google/uuid"
)

// ProcessDocumentMessage is the broker payload for one document's pipeline
// run. It is validated before publish and again after decode, so malformed
// messages never reach a worker.
type ProcessDocumentMessage struct {
	JobId      uuid.UUID         `json:"job_id" validate:"required"`
	DocumentId uuid.UUID         `json:"document_id" validate:"required"`
	UserId     uuid.UUID         `json:"user_id" validate:"required"`
	SessionId  string            `json:"session_id"`
	FilePath   string            `json:"file_path" validate:"required"`
	FileName   string            `json:"file_name" validate:"required"`
	FileType   string            `json:"file_type" validate:"required"`
	Options    ProcessingOptions `json:"options"`
}

type ProcessingOptions struct {
	ChunkSize     int  `json:"chunk_size"`
	ChunkOverlap  int  `json:"chunk_overlap"`
	ExtractImages bool `json:"extract_images"`
}

type EnqueueOptions struct {
	Priority int           `json:"priority"`
	Delay    time.Duration `json:"delay"`
}

type EnqueueResult struct {
	JobId         uuid.UUID `json:"job_id"`
	DocumentId    uuid.UUID `json:"document_id"`
	QueuePosition int       `json:"queue_position"`
}

type CancelResult struct {
	Cancelled bool   `json:"cancelled"`
	Reason    string `json:"reason,omitempty"`
}

type QueueCounts struct {
	Waiting   int64 `json:"waiting"`
	Active    int64 `json:"active"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
}

type JobStatusEntry struct {
	JobId         uuid.UUID `json:"job_id"`
	DocumentId    uuid.UUID `json:"document_id"`
	FileName      string    `json:"file_name"`
	Status        string    `json:"status"`
	Progress      int       `json:"progress,omitempty"`
	QueuePosition int       `json:"queue_position,omitempty"`
	Message       string    `json:"message,omitempty"`
	Error         string    `json:"error,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

type QueueStatusResponse struct {
	Queue QueueCounts `json:"queue"`
	Jobs  struct {
		Active  []JobStatusEntry `json:"active"`
		Waiting []JobStatusEntry `json:"waiting"`
	} `json:"jobs"`
}
