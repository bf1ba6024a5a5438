package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/gatherly/apiserver/internal/ids"
)

const pgErrUniqueViolation = "23505"

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

const userColumns = `id, email, name, password_hash, role, status, android_token, ios_token, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Role, &u.Status,
		&u.AndroidToken, &u.IOSToken, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *PGStore) Create(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = ids.New()
	}
	row := s.db.QueryRowContext(ctx,
		`insert into users(id, email, name, password_hash, role, status)
		 values($1,$2,$3,$4,$5,$6)
		 returning `+userColumns,
		u.ID, u.Email, u.Name, u.PasswordHash, u.Role, u.Status,
	)
	created, err := scanUser(row)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return ErrConflict
		}
		return err
	}
	*u = *created
	return nil
}

func (s *PGStore) Find(ctx context.Context, id string) (*User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where id=$1`, id))
}

func (s *PGStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where email=$1`, email))
}

func (s *PGStore) List(ctx context.Context, f Filter) ([]*User, error) {
	query := `select ` + userColumns + ` from users`
	var (
		conds []string
		args  []any
	)
	if f.Role != nil {
		args = append(args, *f.Role)
		conds = append(conds, fmt.Sprintf("role=$%d", len(args)))
	}
	if f.Status != nil {
		args = append(args, *f.Status)
		conds = append(conds, fmt.Sprintf("status=$%d", len(args)))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		conds = append(conds, fmt.Sprintf("(name ilike $%d or email ilike $%d)", len(args), len(args)))
	}
	if len(conds) > 0 {
		query += " where " + strings.Join(conds, " and ")
	}
	query += " order by created_at asc"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" limit $%d", len(args))
		page := f.Page
		if page < 1 {
			page = 1
		}
		args = append(args, (page-1)*f.Limit)
		query += fmt.Sprintf(" offset $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *PGStore) ListByRole(ctx context.Context, role Role) ([]*User, error) {
	return s.List(ctx, Filter{Role: &role})
}

func (s *PGStore) Update(ctx context.Context, id string, upd Update) (*User, error) {
	sets := []string{"updated_at=now()"}
	var args []any
	if upd.Email != nil {
		args = append(args, *upd.Email)
		sets = append(sets, fmt.Sprintf("email=$%d", len(args)))
	}
	if upd.Name != nil {
		args = append(args, *upd.Name)
		sets = append(sets, fmt.Sprintf("name=$%d", len(args)))
	}
	args = append(args, id)
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`update users set %s where id=$%d returning %s`,
			strings.Join(sets, ", "), len(args), userColumns),
		args...,
	)
	u, err := scanUser(row)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return nil, ErrConflict
		}
		return nil, err
	}
	return u, nil
}

func (s *PGStore) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	res, err := s.db.ExecContext(ctx,
		`update users set password_hash=$1, updated_at=now() where id=$2`, passwordHash, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *PGStore) SetStatus(ctx context.Context, id string, status int) (*User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`update users set status=$1, updated_at=now() where id=$2 returning `+userColumns,
		status, id))
}

func (s *PGStore) SetRole(ctx context.Context, id string, role Role, status int) (*User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`update users set role=$1, status=$2, updated_at=now() where id=$3 returning `+userColumns,
		role, status, id))
}

func (s *PGStore) SetDeviceToken(ctx context.Context, id string, p Platform, token string) error {
	column := "android_token"
	if p == PlatformIOS {
		column = "ios_token"
	}
	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`update users set %s=$1, updated_at=now() where id=$2`, column), token, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *PGStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from users where id=$1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}
