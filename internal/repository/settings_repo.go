package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"controlling_poolspa/internal/models"
)

type SettingsSQLite struct {
	db *sql.DB
}

func NewSettingsSQLite(db *sql.DB) *SettingsSQLite {
	return &SettingsSQLite{db: db}
}

const (
	settingsRowID = 1

	upsertSettingsSQL = `
		INSERT INTO settings (id, pool_setpoint_f, spa_setpoint_f, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			pool_setpoint_f=excluded.pool_setpoint_f,
			spa_setpoint_f=excluded.spa_setpoint_f,
			updated_at=excluded.updated_at
	`

	selectSettingsSQL = `SELECT pool_setpoint_f, spa_setpoint_f, updated_at FROM settings WHERE id=?`
)

// Save upserts the single settings row.
func (r *SettingsSQLite) Save(ctx context.Context, s models.Settings) error {
	ts := s.UpdatedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	if _, err := r.db.ExecContext(ctx, upsertSettingsSQL, settingsRowID, s.PoolSetpointF, s.SpaSetpointF, ts.UTC()); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// Load returns the stored settings; ok is false when nothing was saved yet.
func (r *SettingsSQLite) Load(ctx context.Context) (models.Settings, bool, error) {
	var s models.Settings
	err := r.db.QueryRowContext(ctx, selectSettingsSQL, settingsRowID).Scan(&s.PoolSetpointF, &s.SpaSetpointF, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Settings{}, false, nil
		}
		return models.Settings{}, false, fmt.Errorf("load settings: %w", err)
	}
	s.UpdatedAt = s.UpdatedAt.UTC()
	return s, true, nil
}
