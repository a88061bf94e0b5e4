package repository

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"controlling_poolspa/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
)

func ctx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	t.Cleanup(cancel)
	return c
}

func newMock(t *testing.T) (sqlmock.Sqlmock, func() *EventSQLite) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("mock expectations: %v", err)
		}
		_ = db.Close()
	})
	return mock, func() *EventSQLite { return NewEventSQLite(db) }
}

func TestEventAppend_FillsDefaults(t *testing.T) {
	t.Parallel()
	mock, repo := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta(insertEventSQL)).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "REJECTED", "HEAT_POOL", "HEAT_SPA pressed during HEAT_POOL", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo().Append(ctx(t), models.PoolEvent{
		Type:        " rejected ",
		Mode:        "HEAT_POOL",
		Description: "HEAT_SPA pressed during HEAT_POOL",
		Metadata:    map[string]any{"button": "HEAT_SPA"},
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
}

func TestEventAppend_DBError(t *testing.T) {
	t.Parallel()
	mock, repo := newMock(t)

	mock.ExpectExec("INSERT INTO pool_events").WillReturnError(errors.New("disk I/O error"))

	err := repo().Append(ctx(t), models.PoolEvent{Type: models.EventFault, Description: "x"})
	if err == nil || !strings.Contains(err.Error(), "disk I/O error") {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestEventList_NoFilters_MetadataAndOrder(t *testing.T) {
	t.Parallel()
	mock, repo := newMock(t)

	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	js, _ := json.Marshal(map[string]any{"a": "b"})

	// newest first from the DB, oldest first to the caller
	rows := sqlmock.NewRows([]string{"id", "occurred_at", "type", "mode", "message", "meta"}).
		AddRow("2", now.Add(time.Hour), "FAULT", "IDLE", "m2", nil).
		AddRow("1", now, "MODE_CHANGE", "FILTER_POOL", "m1", string(js))

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, occurred_at, type, mode, message, meta FROM pool_events ORDER BY occurred_at DESC`)).
		WillReturnRows(rows)

	got, err := repo().List(ctx(t), time.Time{}, time.Time{}, "", 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 || got[0].EventID != "1" || got[1].EventID != "2" {
		t.Fatalf("unexpected order: %+v", got)
	}
	if got[0].Mode != "FILTER_POOL" {
		t.Fatalf("mode not scanned: %+v", got[0])
	}
	b, _ := json.Marshal(got[0].Metadata)
	if string(b) != string(js) {
		t.Fatalf("metadata mismatch: %s vs %s", b, js)
	}
	if got[1].Metadata != nil {
		t.Fatalf("expected nil meta, got %#v", got[1].Metadata)
	}
}

func TestEventList_FiltersAndLimit(t *testing.T) {
	t.Parallel()
	mock, repo := newMock(t)

	from := time.Date(2026, 1, 1, 11, 0, 0, 0, time.UTC)
	to := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	query := `SELECT id, occurred_at, type, mode, message, meta FROM pool_events WHERE occurred_at >= ? AND occurred_at <= ? AND type = ? ORDER BY occurred_at DESC LIMIT ?`
	rows := sqlmock.NewRows([]string{"id", "occurred_at", "type", "mode", "message", "meta"}).
		AddRow("3", to, "REJECTED", "HEAT_POOL", "c", nil)

	mock.ExpectQuery(regexp.QuoteMeta(query)).
		WithArgs(from, to, "REJECTED", 5).
		WillReturnRows(rows)

	got, err := repo().List(ctx(t), from, to, " rejected ", 5)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 || got[0].EventID != "3" {
		t.Fatalf("unexpected results: %+v", got)
	}
}

func TestEventList_ScanError(t *testing.T) {
	t.Parallel()
	mock, repo := newMock(t)

	rows := sqlmock.NewRows([]string{"id", "occurred_at", "type", "mode", "message", "meta"}).
		AddRow("x", 123, "STOP", "IDLE", "msg", nil)
	mock.ExpectQuery("SELECT id, occurred_at").WillReturnRows(rows)

	if _, err := repo().List(ctx(t), time.Time{}, time.Time{}, "", 0); err == nil {
		t.Fatalf("expected scan error, got nil")
	}
}
