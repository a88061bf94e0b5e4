package service

import (
	"context"

	"controlling_poolspa/internal/models"
	"controlling_poolspa/internal/repository"
)

// HistoryService serves the recorded water temperature samples.
type HistoryService struct {
	repo repository.HistoryRepo
}

func NewHistoryService(repo repository.HistoryRepo) *HistoryService {
	return &HistoryService{repo: repo}
}

func (s *HistoryService) List(ctx context.Context, f HistoryFilter) ([]models.TempSample, error) {
	from, to, err := normalizeRange(f.From, f.To)
	if err != nil {
		return nil, err
	}
	return s.repo.List(ctx, from, to, clampLimit(f.Limit))
}
