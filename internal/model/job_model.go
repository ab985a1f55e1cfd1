package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ProcessingJob mirrors the broker message durably so queue status, queue
// position and retry accounting survive the in-memory pub/sub.
type ProcessingJob struct {
	Id          uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	DocumentId  uuid.UUID      `gorm:"type:uuid;not null;index"`
	UserId      uuid.UUID      `gorm:"type:uuid;not null;index"`
	Payload     datatypes.JSON `gorm:"type:jsonb"`
	Priority    int            `gorm:"default:0"`
	DelayMs     int64          `gorm:"default:0"`
	Attempts    int            `gorm:"default:0"`
	MaxAttempts int            `gorm:"default:3"`
	State       string         `gorm:"type:varchar(16);not null;default:'waiting';index"`
	LastError   string         `gorm:"type:text"`
	CreatedAt   time.Time      `gorm:"autoCreateTime"`
	StartedAt   *time.Time     ``
	FinishedAt  *time.Time     ``
}

func (ProcessingJob) TableName() string {
	return "processing_jobs"
}
