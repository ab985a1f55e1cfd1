package model

import (
	"time"

	"github.com/google/uuid"
)

// Collection is a per-user vector-store partition. Every chunk and image row
// references exactly one collection, so a query scoped by collection id can
// never cross user boundaries.
type Collection struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_collections_user_kind"`
	Kind      string    `gorm:"type:varchar(8);not null;uniqueIndex:idx_collections_user_kind"`
	Name      string    `gorm:"type:varchar(128);not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (Collection) TableName() string {
	return "collections"
}
