package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/gatherly/apiserver/internal/ids"
)

// Purpose tags what a token may be used for, so a token valid for one flow
// cannot be replayed in another.
type Purpose string

const (
	PurposeAccess        Purpose = "access"
	PurposeRefresh       Purpose = "refresh"
	PurposeResetPassword Purpose = "resetPassword"
)

// persisted reports whether tokens of this purpose are single-use and backed
// by a store record. Access tokens are stateless and never persisted.
func (p Purpose) persisted() bool {
	return p == PurposeRefresh || p == PurposeResetPassword
}

// TokenRecord correlates a signed token string with its owner and validity
// window. Records exist only for persisted purposes.
type TokenRecord struct {
	ID        string
	Token     string
	UserID    string
	Purpose   Purpose
	ExpiresAt time.Time
	CreatedAt time.Time
}

// TokenStore persists single-use token records. Consume must be an atomic
// delete-if-matches so two concurrent exchanges of the same token cannot
// both succeed.
type TokenStore interface {
	Save(ctx context.Context, rec *TokenRecord) error
	Find(ctx context.Context, token string, purpose Purpose) (*TokenRecord, error)
	Consume(ctx context.Context, token string) (bool, error)
	DeleteByUserPurpose(ctx context.Context, userID string, purpose Purpose) error
}

// Claims are the JWT claims carried by every issued token.
type Claims struct {
	Purpose string `json:"token_type"`
	jwt.RegisteredClaims
}

// Tokens issues and verifies signed tokens and owns the persisted records
// backing the single-use purposes.
type Tokens struct {
	store  TokenStore
	secret []byte
	issuer string
	now    func() time.Time
}

// TokensOption configures Tokens.
type TokensOption func(*Tokens)

// WithTokenClock overrides the time source, useful for expiry tests.
func WithTokenClock(fn func() time.Time) TokensOption {
	return func(t *Tokens) {
		if fn != nil {
			t.now = fn
		}
	}
}

// WithTokenIssuer overrides the issuer claim.
func WithTokenIssuer(issuer string) TokensOption {
	return func(t *Tokens) {
		if issuer = strings.TrimSpace(issuer); issuer != "" {
			t.issuer = issuer
		}
	}
}

// NewTokens constructs the token service with a process-wide HS256 secret.
func NewTokens(store TokenStore, secret string, opts ...TokensOption) (*Tokens, error) {
	if store == nil {
		return nil, errors.New("token store is required")
	}
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("token secret is required")
	}
	t := &Tokens{
		store:  store,
		secret: []byte(secret),
		issuer: "gatherly",
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Generate signs a self-contained token encoding subject, purpose and expiry.
// Pure function of its inputs, the secret and the clock; no side effects.
func (t *Tokens) Generate(subjectID string, purpose Purpose, expiresAt time.Time) (string, error) {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return "", errors.New("subject id is required")
	}
	now := t.now().UTC()
	claims := Claims{
		Purpose: string(purpose),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Save persists a token record so a later Verify can require an unconsumed
// record. Only refresh and resetPassword tokens are ever saved.
func (t *Tokens) Save(ctx context.Context, signed, userID string, purpose Purpose, expiresAt time.Time) error {
	if !purpose.persisted() {
		return errors.New("only refresh and resetPassword tokens are persisted")
	}
	return t.store.Save(ctx, &TokenRecord{
		ID:        ids.New(),
		Token:     signed,
		UserID:    userID,
		Purpose:   purpose,
		ExpiresAt: expiresAt,
		CreatedAt: t.now().UTC(),
	})
}

// Verify checks signature, expiry and purpose, and for persisted purposes
// requires a live store record. Verification never consumes the record; the
// caller decides when to burn it. Every failure is ErrAuthentication.
func (t *Tokens) Verify(ctx context.Context, signed string, purpose Purpose) (*TokenRecord, error) {
	claims, err := t.parse(signed)
	if err != nil {
		return nil, ErrAuthentication
	}
	if claims.Purpose != string(purpose) {
		return nil, ErrAuthentication
	}
	if !purpose.persisted() {
		return &TokenRecord{
			Token:     signed,
			UserID:    claims.Subject,
			Purpose:   purpose,
			ExpiresAt: claims.ExpiresAt.Time,
		}, nil
	}
	rec, err := t.store.Find(ctx, signed, purpose)
	if err != nil {
		return nil, ErrAuthentication
	}
	if t.now().After(rec.ExpiresAt) {
		return nil, ErrAuthentication
	}
	return rec, nil
}

// Consume deletes the persisted record exactly once. When two callers race on
// the same token the store's conditional delete lets only one of them win;
// the loser gets ErrAuthentication.
func (t *Tokens) Consume(ctx context.Context, signed string) error {
	deleted, err := t.store.Consume(ctx, signed)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrAuthentication
	}
	return nil
}

// RevokeAll removes every outstanding record of the given purpose for a user.
func (t *Tokens) RevokeAll(ctx context.Context, userID string, purpose Purpose) error {
	return t.store.DeleteByUserPurpose(ctx, userID, purpose)
}

func (t *Tokens) parse(signed string) (*Claims, error) {
	signed = strings.TrimSpace(signed)
	if signed == "" {
		return nil, errors.New("empty token")
	}
	parsed, err := jwt.ParseWithClaims(signed, &Claims{}, func(tok *jwt.Token) (any, error) {
		if tok.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now), jwt.WithIssuer(t.issuer))
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	if strings.TrimSpace(claims.Subject) == "" || claims.ExpiresAt == nil {
		return nil, errors.New("missing claims")
	}
	return claims, nil
}
