package entity

import (
	"time"

	"github.com/google/uuid"
)

type ImageRecord struct {
	Id             uuid.UUID
	CollectionId   uuid.UUID
	DocumentId     uuid.UUID
	ImageId        string
	Page           int
	ImageIndex     int
	Format         string
	SizeKB         float64
	Width          int
	Height         int
	Base64Data     string
	Keywords       string
	EmbeddingValue []float32
	CreatedAt      time.Time
	DeletedAt      *time.Time
	IsDeleted      bool
}
