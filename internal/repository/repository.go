package repository

import (
	"context"
	"database/sql"
	"time"

	"controlling_poolspa/internal/models"
)

type Authorization interface {
	Create(ctx context.Context, username, hash string) (int, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

// SettingsRepo persists the user setpoints between restarts.
type SettingsRepo interface {
	Save(ctx context.Context, s models.Settings) error
	Load(ctx context.Context) (models.Settings, bool, error)
}

type EventRepo interface {
	Append(ctx context.Context, e models.PoolEvent) error
	List(ctx context.Context, from, to time.Time, typ string, limit int) ([]models.PoolEvent, error)
}

// HistoryRepo stores the once-a-minute temperature samples.
type HistoryRepo interface {
	Append(ctx context.Context, s models.TempSample) error
	List(ctx context.Context, from, to time.Time, limit int) ([]models.TempSample, error)
}

// VisitorRepo tracks the remote clients that reached the API.
type VisitorRepo interface {
	Touch(ctx context.Context, ip, path string, at time.Time) error
	List(ctx context.Context, limit int) ([]models.Visitor, error)
}

type Repository struct {
	Settings SettingsRepo
	Events   EventRepo
	History  HistoryRepo
	Visitors VisitorRepo
	Auth     Authorization
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		Settings: NewSettingsSQLite(db),
		Events:   NewEventSQLite(db),
		History:  NewHistorySQLite(db),
		Visitors: NewVisitorSQLite(db),
		Auth:     NewUserRepository(db),
	}
}
