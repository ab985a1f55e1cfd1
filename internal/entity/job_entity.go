package entity

import (
	"time"

	"github.com/google/uuid"
)

type ProcessingJob struct {
	Id          uuid.UUID
	DocumentId  uuid.UUID
	UserId      uuid.UUID
	Payload     []byte
	Priority    int
	DelayMs     int64
	Attempts    int
	MaxAttempts int
	State       string
	LastError   string
	CreatedAt   time.Time
	StartedAt   *time.Time
	FinishedAt  *time.Time
}
