package auth

import (
	"context"
	"database/sql"
	"errors"

	"github.com/gatherly/apiserver/internal/ids"
)

var _ TokenStore = (*PGTokens)(nil)

// PGTokens implements TokenStore using PostgreSQL. The signed string is the
// lookup key; Consume relies on the single-statement delete being atomic.
type PGTokens struct {
	db *sql.DB
}

func NewPGTokens(db *sql.DB) *PGTokens {
	return &PGTokens{db: db}
}

func (s *PGTokens) Save(ctx context.Context, rec *TokenRecord) error {
	if rec.ID == "" {
		rec.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx,
		`insert into tokens(id, token, user_id, purpose, expires_at, created_at)
		 values($1,$2,$3,$4,$5,$6)`,
		rec.ID, rec.Token, rec.UserID, rec.Purpose, rec.ExpiresAt, rec.CreatedAt,
	)
	return err
}

func (s *PGTokens) Find(ctx context.Context, token string, purpose Purpose) (*TokenRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, token, user_id, purpose, expires_at, created_at
		 from tokens where token=$1 and purpose=$2`, token, purpose)
	var rec TokenRecord
	if err := row.Scan(&rec.ID, &rec.Token, &rec.UserID, &rec.Purpose, &rec.ExpiresAt, &rec.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAuthentication
		}
		return nil, err
	}
	return &rec, nil
}

func (s *PGTokens) Consume(ctx context.Context, token string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `delete from tokens where token=$1`, token)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (s *PGTokens) DeleteByUserPurpose(ctx context.Context, userID string, purpose Purpose) error {
	_, err := s.db.ExecContext(ctx,
		`delete from tokens where user_id=$1 and purpose=$2`, userID, purpose)
	return err
}
