package mapper

import (
	"time"

	"doc-rag-be/internal/entity"
	"doc-rag-be/internal/model"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type ImageMapper struct{}

func NewImageMapper() *ImageMapper {
	return &ImageMapper{}
}

func (m *ImageMapper) ToEntity(r *model.ImageRecord) *entity.ImageRecord {
	if r == nil {
		return nil
	}

	var deletedAt *time.Time
	if r.DeletedAt.Valid {
		t := r.DeletedAt.Time
		deletedAt = &t
	}

	return &entity.ImageRecord{
		Id:             r.Id,
		CollectionId:   r.CollectionId,
		DocumentId:     r.DocumentId,
		ImageId:        r.ImageId,
		Page:           r.Page,
		ImageIndex:     r.ImageIndex,
		Format:         r.Format,
		SizeKB:         r.SizeKB,
		Width:          r.Width,
		Height:         r.Height,
		Base64Data:     r.Base64Data,
		Keywords:       r.Keywords,
		EmbeddingValue: r.EmbeddingValue.Slice(),
		CreatedAt:      r.CreatedAt,
		DeletedAt:      deletedAt,
		IsDeleted:      r.DeletedAt.Valid,
	}
}

func (m *ImageMapper) ToModel(r *entity.ImageRecord) *model.ImageRecord {
	if r == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if r.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *r.DeletedAt, Valid: true}
	} else if r.IsDeleted {
		deletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}

	return &model.ImageRecord{
		Id:             r.Id,
		CollectionId:   r.CollectionId,
		DocumentId:     r.DocumentId,
		ImageId:        r.ImageId,
		Page:           r.Page,
		ImageIndex:     r.ImageIndex,
		Format:         r.Format,
		SizeKB:         r.SizeKB,
		Width:          r.Width,
		Height:         r.Height,
		Base64Data:     r.Base64Data,
		Keywords:       r.Keywords,
		EmbeddingValue: pgvector.NewVector(r.EmbeddingValue),
		CreatedAt:      r.CreatedAt,
		DeletedAt:      deletedAt,
	}
}

func (m *ImageMapper) ToEntities(records []*model.ImageRecord) []*entity.ImageRecord {
	entities := make([]*entity.ImageRecord, len(records))
	for i, r := range records {
		entities[i] = m.ToEntity(r)
	}
	return entities
}

func (m *ImageMapper) ToModels(records []*entity.ImageRecord) []*model.ImageRecord {
	models := make([]*model.ImageRecord, len(records))
	for i, r := range records {
		models[i] = m.ToModel(r)
	}
	return models
}
