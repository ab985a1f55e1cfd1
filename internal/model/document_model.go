package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Document struct {
	Id           uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId       uuid.UUID      `gorm:"type:uuid;not null;index"`
	SessionId    string         `gorm:"type:varchar(64);index"`
	FileName     string         `gorm:"type:varchar(255);not null"`
	FilePath     string         `gorm:"type:text;not null"`
	FileType     string         `gorm:"type:varchar(16);not null"`
	Status       string         `gorm:"type:varchar(16);not null;default:'uploaded';index"`
	JobId        *uuid.UUID     `gorm:"type:uuid;index"`
	ErrorMessage string         `gorm:"type:text"`
	ChunkCount   int            `gorm:"default:0"`
	QueuedAt     *time.Time     ``
	StartedAt    *time.Time     ``
	CompletedAt  *time.Time     ``
	CreatedAt    time.Time      `gorm:"autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime"`
	DeletedAt    gorm.DeletedAt `gorm:"index"`
}

func (Document) TableName() string {
	return "documents"
}
