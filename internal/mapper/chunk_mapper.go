package mapper

import (
	"time"

	"doc-rag-be/internal/entity"
	"doc-rag-be/internal/model"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type ChunkMapper struct{}

func NewChunkMapper() *ChunkMapper {
	return &ChunkMapper{}
}

func (m *ChunkMapper) ToEntity(c *model.Chunk) *entity.Chunk {
	if c == nil {
		return nil
	}

	var deletedAt *time.Time
	if c.DeletedAt.Valid {
		t := c.DeletedAt.Time
		deletedAt = &t
	}

	return &entity.Chunk{
		Id:             c.Id,
		CollectionId:   c.CollectionId,
		DocumentId:     c.DocumentId,
		ChunkIndex:     c.ChunkIndex,
		Text:           c.Text,
		CharLength:     c.CharLength,
		SectionTitle:   c.SectionTitle,
		Page:           c.Page,
		EmbeddingValue: c.EmbeddingValue.Slice(),
		EmbeddingModel: c.EmbeddingModel,
		Placeholder:    c.Placeholder,
		CreatedAt:      c.CreatedAt,
		DeletedAt:      deletedAt,
		IsDeleted:      c.DeletedAt.Valid,
	}
}

func (m *ChunkMapper) ToModel(c *entity.Chunk) *model.Chunk {
	if c == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if c.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *c.DeletedAt, Valid: true}
	} else if c.IsDeleted {
		deletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}

	return &model.Chunk{
		Id:             c.Id,
		CollectionId:   c.CollectionId,
		DocumentId:     c.DocumentId,
		ChunkIndex:     c.ChunkIndex,
		Text:           c.Text,
		CharLength:     c.CharLength,
		SectionTitle:   c.SectionTitle,
		Page:           c.Page,
		EmbeddingValue: pgvector.NewVector(c.EmbeddingValue),
		EmbeddingModel: c.EmbeddingModel,
		Placeholder:    c.Placeholder,
		CreatedAt:      c.CreatedAt,
		DeletedAt:      deletedAt,
	}
}

func (m *ChunkMapper) ToEntities(chunks []*model.Chunk) []*entity.Chunk {
	entities := make([]*entity.Chunk, len(chunks))
	for i, c := range chunks {
		entities[i] = m.ToEntity(c)
	}
	return entities
}

func (m *ChunkMapper) ToModels(chunks []*entity.Chunk) []*model.Chunk {
	models := make([]*model.Chunk, len(chunks))
	for i, c := range chunks {
		models[i] = m.ToModel(c)
	}
	return models
}
