package repository

import (
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestVisitorTouchAndList(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()
	repo := NewVisitorSQLite(db)

	at := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta(touchVisitorSQL)).
		WithArgs("192.168.1.20", at, at, "/api/v1/pool/state").
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Touch(ctx(t), "192.168.1.20", "/api/v1/pool/state", at); err != nil {
		t.Fatalf("Touch: %v", err)
	}

	mock.ExpectQuery(regexp.QuoteMeta(listVisitorsSQL + " LIMIT ?")).
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{"ip", "first_seen", "last_seen", "hits", "last_path"}).
			AddRow("192.168.1.20", at.Add(-time.Hour), at, 7, "/api/v1/pool/state").
			AddRow("192.168.1.21", at.Add(-2*time.Hour), at.Add(-time.Hour), 1, nil))

	got, err := repo.List(ctx(t), 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 || got[0].Count != 7 || got[1].LastPath != "" {
		t.Fatalf("unexpected visitors: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}
