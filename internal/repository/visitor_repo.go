package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"controlling_poolspa/internal/models"
)

type VisitorSQLite struct {
	db *sql.DB
}

func NewVisitorSQLite(db *sql.DB) *VisitorSQLite { return &VisitorSQLite{db: db} }

const (
	touchVisitorSQL = `
		INSERT INTO visitors (ip, first_seen, last_seen, hits, last_path)
		VALUES (?, ?, ?, 1, ?)
		ON CONFLICT(ip) DO UPDATE SET
			last_seen=excluded.last_seen,
			hits=visitors.hits + 1,
			last_path=excluded.last_path
	`
	listVisitorsSQL = `SELECT ip, first_seen, last_seen, hits, last_path FROM visitors ORDER BY last_seen DESC`
)

// Touch records one request from ip.
func (r *VisitorSQLite) Touch(ctx context.Context, ip, path string, at time.Time) error {
	at = at.UTC()
	if _, err := r.db.ExecContext(ctx, touchVisitorSQL, ip, at, at, path); err != nil {
		return fmt.Errorf("touch visitor %s: %w", ip, err)
	}
	return nil
}

// List returns visitors, most recent first.
func (r *VisitorSQLite) List(ctx context.Context, limit int) ([]models.Visitor, error) {
	q := listVisitorsSQL
	var args []any
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query visitors: %w", err)
	}
	defer rows.Close()

	var out []models.Visitor
	for rows.Next() {
		var v models.Visitor
		var path sql.NullString
		if err := rows.Scan(&v.IP, &v.FirstSeen, &v.LastSeen, &v.Count, &path); err != nil {
			return nil, fmt.Errorf("scan visitor: %w", err)
		}
		v.FirstSeen = v.FirstSeen.UTC()
		v.LastSeen = v.LastSeen.UTC()
		v.LastPath = path.String
		out = append(out, v)
	}
	return out, rows.Err()
}
