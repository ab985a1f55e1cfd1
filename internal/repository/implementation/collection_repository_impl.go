package implementation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"doc-rag-be/internal/entity"
	"doc-rag-be/internal/mapper"
	"doc-rag-be/internal/model"
	"doc-rag-be/internal/repository/contract"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CollectionRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.CollectionMapper
}

func NewCollectionRepository(db *gorm.DB) contract.CollectionRepository {
	return &CollectionRepositoryImpl{
		db:     db,
		mapper: mapper.NewCollectionMapper(),
	}
}

func (r *CollectionRepositoryImpl) FindOrCreate(ctx context.Context, userId uuid.UUID, kind string) (*entity.Collection, error) {
	m := &model.Collection{
		Id:        uuid.New(),
		UserId:    userId,
		Kind:      kind,
		Name:      fmt.Sprintf("user_%s_%s", userId, kind),
		CreatedAt: time.Now(),
	}

	// ON CONFLICT DO NOTHING keeps concurrent first writes race-free; the
	// follow-up read resolves whichever row won.
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "kind"}},
			DoNothing: true,
		}).
		Create(m).Error
	if err != nil {
		return nil, err
	}

	var found model.Collection
	err = r.db.WithContext(ctx).
		Where("user_id = ? AND kind = ?", userId, kind).
		First(&found).Error
	if err != nil {
		return nil, err
	}
	return r.mapper.ToEntity(&found), nil
}

func (r *CollectionRepositoryImpl) Find(ctx context.Context, userId uuid.UUID, kind string) (*entity.Collection, error) {
	var m model.Collection
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND kind = ?", userId, kind).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *CollectionRepositoryImpl) FindAllByUserId(ctx context.Context, userId uuid.UUID) ([]*entity.Collection, error) {
	var models []*model.Collection
	if err := r.db.WithContext(ctx).Where("user_id = ?", userId).Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.Collection, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ToEntity(m)
	}
	return entities, nil
}

func (r *CollectionRepositoryImpl) FindAllByKind(ctx context.Context, kind string) ([]*entity.Collection, error) {
	var models []*model.Collection
	if err := r.db.WithContext(ctx).Where("kind = ?", kind).Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.Collection, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ToEntity(m)
	}
	return entities, nil
}
