package service

import (
	"context"

	"controlling_poolspa/internal/models"
	"controlling_poolspa/internal/status"
)

// MonitoringService reads the snapshot the control loop last published.
type MonitoringService struct {
	store *status.Store
}

func NewMonitoringService(store *status.Store) *MonitoringService {
	return &MonitoringService{store: store}
}

func (s *MonitoringService) GetState(ctx context.Context) (models.PoolState, error) {
	if err := ctx.Err(); err != nil {
		return models.PoolState{}, err
	}
	return *s.store.Load(), nil
}
