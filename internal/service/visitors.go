package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"controlling_poolspa/internal/models"
	"controlling_poolspa/internal/repository"
)

var errEmptyIP = errors.New("visitor ip is empty")

type VisitorService struct {
	repo repository.VisitorRepo
	now  func() time.Time
}

func NewVisitorService(repo repository.VisitorRepo, now func() time.Time) *VisitorService {
	if now == nil {
		now = time.Now
	}
	return &VisitorService{repo: repo, now: now}
}

// Touch records one request from ip.
func (s *VisitorService) Touch(ctx context.Context, ip, path string) error {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return errEmptyIP
	}
	return s.repo.Touch(ctx, ip, path, s.now().UTC())
}

func (s *VisitorService) List(ctx context.Context, limit int) ([]models.Visitor, error) {
	return s.repo.List(ctx, clampLimit(limit))
}
