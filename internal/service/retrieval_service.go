package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"doc-rag-be/internal/apperror"
	"doc-rag-be/internal/dto"
	"doc-rag-be/pkg/retrieval"
)

type IRetrievalService interface {
	Retrieve(ctx context.Context, userId uuid.UUID, req *dto.RetrieveRequest) (*dto.RetrieveResponse, error)
}

type retrievalService struct {
	engine *retrieval.Engine
}

func NewRetrievalService(engine *retrieval.Engine) IRetrievalService {
	return &retrievalService{engine: engine}
}

func (s *retrievalService) Retrieve(ctx context.Context, userId uuid.UUID, req *dto.RetrieveRequest) (*dto.RetrieveResponse, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, apperror.New(apperror.KindValidation, "query must not be empty")
	}
	return s.engine.Retrieve(ctx, userId, req)
}
