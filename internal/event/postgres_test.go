package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

var eventRowColumns = []string{
	"id", "name", "info", "location", "start_at", "end_at",
	"rsvp", "status", "created_by", "created_at", "updated_at",
}

func eventRow(id string, rsvp string) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows(eventRowColumns).AddRow(
		id, "Launch", "info", "HQ", now, now.Add(time.Hour),
		[]byte(rsvp), StatusEnabled, "owner-1", now, now,
	)
}

func TestPGStoreFindDecodesRSVP(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	store := NewPGStore(db)

	mock.ExpectQuery("select .* from events where id=").
		WithArgs("ev-1").
		WillReturnRows(eventRow("ev-1", `["u-1","u-2"]`))

	e, err := store.Find(context.Background(), "ev-1")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(e.RSVP) != 2 || e.RSVP[0] != "u-1" {
		t.Fatalf("unexpected rsvp: %v", e.RSVP)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestPGStoreFindEmptyRSVPIsEmptySlice(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	store := NewPGStore(db)

	mock.ExpectQuery("select .* from events where id=").
		WithArgs("ev-1").
		WillReturnRows(eventRow("ev-1", `[]`))

	e, err := store.Find(context.Background(), "ev-1")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if e.RSVP == nil || len(e.RSVP) != 0 {
		t.Fatalf("rsvp must decode to an empty slice, got %#v", e.RSVP)
	}
}

func TestPGStoreFindNotFound(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	store := NewPGStore(db)

	mock.ExpectQuery("select .* from events where id=").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(eventRowColumns))

	if _, err := store.Find(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGStoreAddRSVPGuardsDuplicates(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	store := NewPGStore(db)

	// the containment guard keeps the append conditional inside one statement
	mock.ExpectQuery(`update events\s+set rsvp = case when rsvp @> to_jsonb`).
		WithArgs("ev-1", "u-1").
		WillReturnRows(eventRow("ev-1", `["u-1"]`))

	e, err := store.AddRSVP(context.Background(), "ev-1", "u-1")
	if err != nil {
		t.Fatalf("AddRSVP: %v", err)
	}
	if len(e.RSVP) != 1 {
		t.Fatalf("unexpected rsvp: %v", e.RSVP)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestPGStoreDeleteMissing(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	store := NewPGStore(db)

	mock.ExpectExec("delete from events where id=").
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.Delete(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGStoreListUpcomingWindow(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	store := NewPGStore(db)

	from := time.Now().UTC()
	mock.ExpectQuery(`select .* from events where end_at >= \$1 order by start_at asc limit \$2 offset \$3`).
		WithArgs(from, 10, 10).
		WillReturnRows(eventRow("ev-1", `[]`))

	events, err := store.List(context.Background(), Filter{From: &from, Limit: 10, Page: 2})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected one event, got %d", len(events))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestPGStoreListBoundedWindowIsContainment(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	store := NewPGStore(db)

	from := time.Now().UTC()
	to := from.Add(24 * time.Hour)
	mock.ExpectQuery(`select .* from events where start_at >= \$1 and end_at < \$2 order by start_at asc`).
		WithArgs(from, to).
		WillReturnRows(eventRow("ev-1", `[]`))

	events, err := store.List(context.Background(), Filter{From: &from, To: &to})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected one event, got %d", len(events))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
