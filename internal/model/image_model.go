package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

// ImageRecord lives in the user's image collection. The embedding column is a
// dummy vector so the table shape matches chunks; image retrieval scores by
// keyword overlap, not vector distance.
type ImageRecord struct {
	Id             uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CollectionId   uuid.UUID       `gorm:"type:uuid;not null;index"`
	DocumentId     uuid.UUID       `gorm:"type:uuid;not null;index"`
	ImageId        string          `gorm:"type:varchar(64);not null"`
	Page           int             `gorm:"default:0"`
	ImageIndex     int             `gorm:"default:0"`
	Format         string          `gorm:"type:varchar(8)"`
	SizeKB         float64         `gorm:"default:0"`
	Width          int             `gorm:"default:0"`
	Height         int             `gorm:"default:0"`
	Base64Data     string          `gorm:"type:text"`
	Keywords       string          `gorm:"type:text"`
	EmbeddingValue pgvector.Vector `gorm:"type:vector(768)"`
	CreatedAt      time.Time       `gorm:"autoCreateTime"`
	DeletedAt      gorm.DeletedAt  `gorm:"index"`
}

func (ImageRecord) TableName() string {
	return "image_records"
}
