package implementation

import (
	"context"
	"errors"
	"time"

	"doc-rag-be/internal/constant"
	"doc-rag-be/internal/entity"
	"doc-rag-be/internal/mapper"
	"doc-rag-be/internal/model"
	"doc-rag-be/internal/repository/contract"
	"doc-rag-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type JobRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.JobMapper
}

func NewJobRepository(db *gorm.DB) contract.JobRepository {
	return &JobRepositoryImpl{
		db:     db,
		mapper: mapper.NewJobMapper(),
	}
}

func (r *JobRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *JobRepositoryImpl) Create(ctx context.Context, job *entity.ProcessingJob) error {
	m := r.mapper.ToModel(job)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*job = *r.mapper.ToEntity(m)
	return nil
}

func (r *JobRepositoryImpl) Update(ctx context.Context, job *entity.ProcessingJob) error {
	m := r.mapper.ToModel(job)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*job = *r.mapper.ToEntity(m)
	return nil
}

func (r *JobRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ProcessingJob, error) {
	var m model.ProcessingJob
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *JobRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ProcessingJob, error) {
	var models []*model.ProcessingJob
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *JobRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	err := query.Model(&model.ProcessingJob{}).Count(&count).Error
	return count, err
}

func (r *JobRepositoryImpl) WaitingPosition(ctx context.Context, jobId uuid.UUID) (int, error) {
	var models []*model.ProcessingJob
	err := r.db.WithContext(ctx).
		Select("id").
		Where("state = ?", constant.JobStateWaiting).
		Order("priority DESC, created_at ASC").
		Find(&models).Error
	if err != nil {
		return -1, err
	}
	for i, m := range models {
		if m.Id == jobId {
			return i, nil
		}
	}
	return -1, nil
}

func (r *JobRepositoryImpl) PruneFinished(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("state IN ?", []string{constant.JobStateCompleted, constant.JobStateFailed}).
		Where("finished_at IS NOT NULL AND finished_at < ?", cutoff).
		Delete(&model.ProcessingJob{})
	return res.RowsAffected, res.Error
}
