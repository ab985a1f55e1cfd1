package entity

import (
	"time"

	"github.com/google/uuid"
)

type Document struct {
	Id           uuid.UUID
	UserId       uuid.UUID
	SessionId    string
	FileName     string
	FilePath     string
	FileType     string
	Status       string
	JobId        *uuid.UUID
	ErrorMessage string
	ChunkCount   int
	QueuedAt     *time.Time
	StartedAt    *time.Time
	CompletedAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    *time.Time
	DeletedAt    *time.Time
	IsDeleted    bool
}
