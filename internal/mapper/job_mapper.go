package mapper

import (
	"doc-rag-be/internal/entity"
	"doc-rag-be/internal/model"

	"gorm.io/datatypes"
)

type JobMapper struct{}

func NewJobMapper() *JobMapper {
	return &JobMapper{}
}

func (m *JobMapper) ToEntity(j *model.ProcessingJob) *entity.ProcessingJob {
	if j == nil {
		return nil
	}

	return &entity.ProcessingJob{
		Id:          j.Id,
		DocumentId:  j.DocumentId,
		UserId:      j.UserId,
		Payload:     []byte(j.Payload),
		Priority:    j.Priority,
		DelayMs:     j.DelayMs,
		Attempts:    j.Attempts,
		MaxAttempts: j.MaxAttempts,
		State:       j.State,
		LastError:   j.LastError,
		CreatedAt:   j.CreatedAt,
		StartedAt:   j.StartedAt,
		FinishedAt:  j.FinishedAt,
	}
}

func (m *JobMapper) ToModel(j *entity.ProcessingJob) *model.ProcessingJob {
	if j == nil {
		return nil
	}

	return &model.ProcessingJob{
		Id:          j.Id,
		DocumentId:  j.DocumentId,
		UserId:      j.UserId,
		Payload:     datatypes.JSON(j.Payload),
		Priority:    j.Priority,
		DelayMs:     j.DelayMs,
		Attempts:    j.Attempts,
		MaxAttempts: j.MaxAttempts,
		State:       j.State,
		LastError:   j.LastError,
		CreatedAt:   j.CreatedAt,
		StartedAt:   j.StartedAt,
		FinishedAt:  j.FinishedAt,
	}
}

func (m *JobMapper) ToEntities(jobs []*model.ProcessingJob) []*entity.ProcessingJob {
	entities := make([]*entity.ProcessingJob, len(jobs))
	for i, j := range jobs {
		entities[i] = m.ToEntity(j)
	}
	return entities
}
