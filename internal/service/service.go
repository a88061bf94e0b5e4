package service

import (
	"context"
	"time"

	"controlling_poolspa/internal/config"
	"controlling_poolspa/internal/input"
	"controlling_poolspa/internal/models"
	"controlling_poolspa/internal/repository"
	"controlling_poolspa/internal/status"
)

type Authorization interface {
	SignUp(ctx context.Context, username, password string) (int, error)
	GenerateToken(ctx context.Context, username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Control forwards remote requests to the control loop. Requests are
// queued; they take effect on a later tick.
type Control interface {
	PressButton(ctx context.Context, button int, source string) error
	AdjustTemp(ctx context.Context, direction string, source string) error
	Stop(ctx context.Context, source string) error
}

// Monitoring exposes the latest published snapshot.
type Monitoring interface {
	GetState(ctx context.Context) (models.PoolState, error)
}

// EventLog exposes the event log with filtering.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.PoolEvent, error)
}

// History exposes the temperature history.
type History interface {
	List(ctx context.Context, f HistoryFilter) ([]models.TempSample, error)
}

// Visitors records and lists API clients.
type Visitors interface {
	Touch(ctx context.Context, ip, path string) error
	List(ctx context.Context, limit int) ([]models.Visitor, error)
}

// Service aggregates the sub-services the HTTP layer uses.
type Service struct {
	Control
	Monitoring
	EventLog
	History
	Visitors
	Authorization
}

// NewService wires the repositories, the snapshot store and the remote
// queue into concrete services.
func NewService(repos *repository.Repository, store *status.Store, queue *input.Queue, auth config.AuthConfig) *Service {
	return &Service{
		Control:       NewControlService(queue),
		Monitoring:    NewMonitoringService(store),
		EventLog:      NewEventLogService(repos.Events),
		History:       NewHistoryService(repos.History),
		Visitors:      NewVisitorService(repos.Visitors, time.Now),
		Authorization: NewAuthService(repos.Auth, auth),
	}
}
