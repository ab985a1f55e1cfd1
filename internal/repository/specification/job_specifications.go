package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InState filters jobs by broker state.
type InState struct {
	State string
}

func (s InState) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("state = ?", s.State)
}

// InStates filters jobs by a set of broker states.
type InStates struct {
	States []string
}

func (s InStates) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("state IN ?", s.States)
}

// ByDocumentID filters rows belonging to one document.
type ByDocumentID struct {
	DocumentID uuid.UUID
}

func (s ByDocumentID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("document_id = ?", s.DocumentID)
}

// WaitingOrder applies the queue's canonical ordering: highest priority
// first, oldest first within a priority. Queue position is an index into
// this ordering, so it must stay consistent everywhere it is computed.
type WaitingOrder struct{}

func (s WaitingOrder) Apply(db *gorm.DB) *gorm.DB {
	return db.Order("priority DESC, created_at ASC")
}
