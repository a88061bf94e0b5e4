package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"controlling_poolspa/internal/models"
)

type HistorySQLite struct {
	db *sql.DB
}

func NewHistorySQLite(db *sql.DB) *HistorySQLite { return &HistorySQLite{db: db} }

const insertSampleSQL = `INSERT INTO temp_history (taken_at, water_f, setpoint_f, mode, heater_on) VALUES (?, ?, ?, ?, ?)`

func (r *HistorySQLite) Append(ctx context.Context, s models.TempSample) error {
	if s.TakenAt.IsZero() {
		s.TakenAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, insertSampleSQL, s.TakenAt.UTC(), s.WaterF, s.SetpointF, s.Mode, s.HeaterOn)
	if err != nil {
		return fmt.Errorf("insert temperature sample: %w", err)
	}
	return nil
}

// List returns samples in [from, to], oldest first. A positive limit keeps
// the most recent ones.
func (r *HistorySQLite) List(ctx context.Context, from, to time.Time, limit int) ([]models.TempSample, error) {
	var (
		conds []string
		args  []any
	)
	if !from.IsZero() {
		conds = append(conds, "taken_at >= ?")
		args = append(args, from.UTC())
	}
	if !to.IsZero() {
		conds = append(conds, "taken_at <= ?")
		args = append(args, to.UTC())
	}

	q := `SELECT taken_at, water_f, setpoint_f, mode, heater_on FROM temp_history`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY taken_at DESC"
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query temperature history: %w", err)
	}
	defer rows.Close()

	var out []models.TempSample
	for rows.Next() {
		var s models.TempSample
		if err := rows.Scan(&s.TakenAt, &s.WaterF, &s.SetpointF, &s.Mode, &s.HeaterOn); err != nil {
			return nil, fmt.Errorf("scan temperature sample: %w", err)
		}
		s.TakenAt = s.TakenAt.UTC()
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
