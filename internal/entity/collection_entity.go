package entity

import (
	"time"

	"github.com/google/uuid"
)

type Collection struct {
	Id        uuid.UUID
	UserId    uuid.UUID
	Kind      string
	Name      string
	CreatedAt time.Time
}
