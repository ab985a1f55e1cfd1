package mapper

import (
	"doc-rag-be/internal/entity"
	"doc-rag-be/internal/model"
)

type CollectionMapper struct{}

func NewCollectionMapper() *CollectionMapper {
	return &CollectionMapper{}
}

func (m *CollectionMapper) ToEntity(c *model.Collection) *entity.Collection {
	if c == nil {
		return nil
	}
	return &entity.Collection{
		Id:        c.Id,
		UserId:    c.UserId,
		Kind:      c.Kind,
		Name:      c.Name,
		CreatedAt: c.CreatedAt,
	}
}

func (m *CollectionMapper) ToModel(c *entity.Collection) *model.Collection {
	if c == nil {
		return nil
	}
	return &model.Collection{
		Id:        c.Id,
		UserId:    c.UserId,
		Kind:      c.Kind,
		Name:      c.Name,
		CreatedAt: c.CreatedAt,
	}
}
