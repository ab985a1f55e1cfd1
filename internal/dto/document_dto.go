package dto

import (
	"time"

	"github.com/google/uuid"
)

// UploadDocumentRequest describes a file already written to the documents
// root by the transport layer. The service owns everything after the write.
type UploadDocumentRequest struct {
	SessionId string            `json:"session_id"`
	FileName  string            `json:"file_name" validate:"required"`
	FilePath  string            `json:"file_path" validate:"required"`
	Priority  int               `json:"priority"`
	Options   ProcessingOptions `json:"options"`
}

type UploadDocumentResponse struct {
	DocumentId    uuid.UUID `json:"document_id"`
	JobId         uuid.UUID `json:"job_id"`
	QueuePosition int       `json:"queue_position"`
}

type ShowDocumentResponse struct {
	Id           uuid.UUID  `json:"id"`
	FileName     string     `json:"file_name"`
	FileType     string     `json:"file_type"`
	Status       string     `json:"status"`
	JobId        *uuid.UUID `json:"job_id,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	ChunkCount   int        `json:"chunk_count"`
	QueuedAt     *time.Time `json:"queued_at,omitempty"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

type StoreStatsResponse struct {
	TotalChunks    int64 `json:"total_chunks"`
	TotalDocuments int64 `json:"total_documents"`
	TotalImages    int64 `json:"total_images"`
}
