package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestTokens(t *testing.T, opts ...TokensOption) *Tokens {
	t.Helper()
	tokens, err := NewTokens(NewInMemoryTokens(), "test-secret", opts...)
	if err != nil {
		t.Fatalf("NewTokens: %v", err)
	}
	return tokens
}

func TestAccessTokenRoundTrip(t *testing.T) {
	tokens := newTestTokens(t)
	ctx := context.Background()

	signed, err := tokens.Generate("user-1", PurposeAccess, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	rec, err := tokens.Verify(ctx, signed, PurposeAccess)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if rec.UserID != "user-1" {
		t.Fatalf("unexpected subject: %s", rec.UserID)
	}
}

func TestVerifyRejectsWrongPurpose(t *testing.T) {
	tokens := newTestTokens(t)
	ctx := context.Background()

	signed, err := tokens.Generate("user-1", PurposeAccess, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, err := tokens.Verify(ctx, signed, PurposeRefresh); !errors.Is(err, ErrAuthentication) {
		t.Fatalf("expected ErrAuthentication, got %v", err)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	tokens := newTestTokens(t, WithTokenClock(clock))
	ctx := context.Background()

	signed, err := tokens.Generate("user-1", PurposeAccess, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := tokens.Verify(ctx, signed, PurposeAccess); !errors.Is(err, ErrAuthentication) {
		t.Fatalf("expected ErrAuthentication after expiry, got %v", err)
	}
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	tokens := newTestTokens(t)
	other := newTestTokens(t)
	other.secret = []byte("different-secret")
	ctx := context.Background()

	signed, err := other.Generate("user-1", PurposeAccess, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, err := tokens.Verify(ctx, signed, PurposeAccess); !errors.Is(err, ErrAuthentication) {
		t.Fatalf("expected ErrAuthentication for foreign signature, got %v", err)
	}
}

func TestPersistedTokenRequiresRecord(t *testing.T) {
	tokens := newTestTokens(t)
	ctx := context.Background()

	// generated but never saved: signature is fine, record is missing
	signed, err := tokens.Generate("user-1", PurposeRefresh, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, err := tokens.Verify(ctx, signed, PurposeRefresh); !errors.Is(err, ErrAuthentication) {
		t.Fatalf("expected ErrAuthentication without a record, got %v", err)
	}

	expires := time.Now().Add(time.Hour)
	if err := tokens.Save(ctx, signed, "user-1", PurposeRefresh, expires); err != nil {
		t.Fatalf("Save: %v", err)
	}
	rec, err := tokens.Verify(ctx, signed, PurposeRefresh)
	if err != nil {
		t.Fatalf("Verify after save: %v", err)
	}
	if rec.UserID != "user-1" {
		t.Fatalf("unexpected user: %s", rec.UserID)
	}
}

func TestVerifyDoesNotConsume(t *testing.T) {
	tokens := newTestTokens(t)
	ctx := context.Background()

	signed, err := tokens.Generate("user-1", PurposeRefresh, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if err := tokens.Save(ctx, signed, "user-1", PurposeRefresh, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := tokens.Verify(ctx, signed, PurposeRefresh); err != nil {
			t.Fatalf("Verify #%d: %v", i+1, err)
		}
	}

	if err := tokens.Consume(ctx, signed); err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if err := tokens.Consume(ctx, signed); !errors.Is(err, ErrAuthentication) {
		t.Fatalf("expected second consume to fail, got %v", err)
	}
	if _, err := tokens.Verify(ctx, signed, PurposeRefresh); !errors.Is(err, ErrAuthentication) {
		t.Fatalf("expected verify after consume to fail, got %v", err)
	}
}

func TestSaveRejectsAccessPurpose(t *testing.T) {
	tokens := newTestTokens(t)
	if err := tokens.Save(context.Background(), "tok", "user-1", PurposeAccess, time.Now()); err == nil {
		t.Fatal("expected an error persisting an access token")
	}
}
