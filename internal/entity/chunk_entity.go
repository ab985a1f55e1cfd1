package entity

import (
	"time"

	"github.com/google/uuid"
)

type Chunk struct {
	Id             uuid.UUID
	CollectionId   uuid.UUID
	DocumentId     uuid.UUID
	ChunkIndex     int
	Text           string
	CharLength     int
	SectionTitle   string
	Page           int
	EmbeddingValue []float32
	EmbeddingModel string
	Placeholder    bool
	CreatedAt      time.Time
	DeletedAt      *time.Time
	IsDeleted      bool
}
