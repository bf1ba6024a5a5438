package user

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
)

var userRowColumns = []string{
	"id", "email", "name", "password_hash", "role", "status",
	"android_token", "ios_token", "created_at", "updated_at",
}

func TestPGStoreCreateDuplicateEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("insert into users").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	store := NewPGStore(db)
	err = store.Create(context.Background(), &User{
		Email:        "a@b.co",
		Name:         "A",
		PasswordHash: "hash",
		Role:         RoleUser,
		Status:       StatusEnabled,
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestPGStoreFindNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("select id, email, name, password_hash").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(userRowColumns))

	_, err = NewPGStore(db).Find(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGStoreSetDeviceToken(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("update users set android_token=").
		WithArgs("tok-1", "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := NewPGStore(db).SetDeviceToken(context.Background(), "user-1", PlatformAndroid, "tok-1"); err != nil {
		t.Fatalf("SetDeviceToken: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGStoreFind(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows(userRowColumns).
		AddRow("user-1", "a@b.co", "A", "hash", "admin", StatusEnabled, "and-1", "", now, now)
	mock.ExpectQuery("select id, email, name, password_hash").
		WithArgs("user-1").
		WillReturnRows(rows)

	u, err := NewPGStore(db).Find(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if u.Role != RoleAdmin || u.AndroidToken != "and-1" {
		t.Fatalf("unexpected user: %+v", u)
	}
}
