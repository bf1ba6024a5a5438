package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gatherly/apiserver/internal/user"
)

func newTestAuth(t *testing.T, opts ...ServiceOption) (*Service, *user.Service) {
	t.Helper()
	accounts, err := user.NewService(user.NewInMemory())
	if err != nil {
		t.Fatalf("user.NewService: %v", err)
	}
	tokens, err := NewTokens(NewInMemoryTokens(), "test-secret")
	if err != nil {
		t.Fatalf("NewTokens: %v", err)
	}
	svc, err := NewService(accounts, tokens, opts...)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, accounts
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newTestAuth(t)
	ctx := context.Background()

	account, pair, err := svc.Register(ctx, RegisterInput{
		Email:    "Ada@Example.com",
		Name:     "Ada",
		Password: "s3cret-pw",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if account.Email != "ada@example.com" {
		t.Fatalf("email not normalised: %s", account.Email)
	}
	if account.Role != user.RoleUser {
		t.Fatalf("registration must not grant elevated roles, got %s", account.Role)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected a full token pair")
	}

	logged, err := svc.Login(ctx, "ada@example.com", "s3cret-pw", "", "")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if logged.ID != account.ID {
		t.Fatalf("login returned a different account")
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	svc, _ := newTestAuth(t)
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, RegisterInput{Email: "a@b.co", Name: "A", Password: "correct-pw"}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	_, unknownErr := svc.Login(ctx, "nobody@b.co", "whatever", "", "")
	_, wrongErr := svc.Login(ctx, "a@b.co", "wrong-pw", "", "")

	if !errors.Is(unknownErr, ErrAuthentication) || !errors.Is(wrongErr, ErrAuthentication) {
		t.Fatalf("expected ErrAuthentication for both, got %v and %v", unknownErr, wrongErr)
	}
	if unknownErr.Error() != wrongErr.Error() {
		t.Fatalf("unknown email and wrong password must read the same: %q vs %q",
			unknownErr.Error(), wrongErr.Error())
	}
}

func TestLoginRejectsDisabledAccountAfterPasswordCheck(t *testing.T) {
	svc, accounts := newTestAuth(t)
	ctx := context.Background()

	account, _, err := svc.Register(ctx, RegisterInput{Email: "a@b.co", Name: "A", Password: "correct-pw"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := accounts.SetStatus(ctx, account.ID, user.StatusDisabled); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	// the wrong password must still yield the generic error, not the
	// disabled one
	if _, err := svc.Login(ctx, "a@b.co", "wrong-pw", "", ""); !errors.Is(err, ErrAuthentication) {
		t.Fatalf("expected ErrAuthentication, got %v", err)
	}
	if _, err := svc.Login(ctx, "a@b.co", "correct-pw", "", ""); !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("expected ErrAccountDisabled, got %v", err)
	}
}

func TestLoginOverwritesOnlyOnePlatformSlot(t *testing.T) {
	svc, accounts := newTestAuth(t)
	ctx := context.Background()

	account, _, err := svc.Register(ctx, RegisterInput{Email: "a@b.co", Name: "A", Password: "pw-123456"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, err := svc.Login(ctx, "a@b.co", "pw-123456", "android-1", user.PlatformAndroid); err != nil {
		t.Fatalf("android login: %v", err)
	}
	if _, err := svc.Login(ctx, "a@b.co", "pw-123456", "ios-1", user.PlatformIOS); err != nil {
		t.Fatalf("ios login: %v", err)
	}
	if _, err := svc.Login(ctx, "a@b.co", "pw-123456", "android-2", user.PlatformAndroid); err != nil {
		t.Fatalf("second android login: %v", err)
	}

	got, err := accounts.GetByID(ctx, account.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.AndroidToken != "android-2" {
		t.Fatalf("android slot should hold the latest token, got %q", got.AndroidToken)
	}
	if got.IOSToken != "ios-1" {
		t.Fatalf("ios slot must survive android logins, got %q", got.IOSToken)
	}
}

func TestRefreshRotationIsSingleUse(t *testing.T) {
	svc, _ := newTestAuth(t)
	ctx := context.Background()

	_, pair, err := svc.Register(ctx, RegisterInput{Email: "a@b.co", Name: "A", Password: "pw-123456"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	next, err := svc.RefreshAuthTokens(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("RefreshAuthTokens: %v", err)
	}
	if next.RefreshToken == pair.RefreshToken {
		t.Fatal("rotation must issue a new refresh token")
	}

	// the consumed token is dead
	if _, err := svc.RefreshAuthTokens(ctx, pair.RefreshToken); !errors.Is(err, ErrAuthentication) {
		t.Fatalf("expected replay to fail with ErrAuthentication, got %v", err)
	}
	// the freshly issued one still works
	if _, err := svc.RefreshAuthTokens(ctx, next.RefreshToken); err != nil {
		t.Fatalf("refresh with rotated token: %v", err)
	}
}

func TestRefreshRejectsGarbage(t *testing.T) {
	svc, _ := newTestAuth(t)
	if _, err := svc.RefreshAuthTokens(context.Background(), "not-a-token"); !errors.Is(err, ErrAuthentication) {
		t.Fatalf("expected ErrAuthentication, got %v", err)
	}
}

func TestResetPasswordInvalidatesEveryResetToken(t *testing.T) {
	svc, _ := newTestAuth(t)
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, RegisterInput{Email: "a@b.co", Name: "A", Password: "old-pw-123"}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	first, err := svc.GenerateResetPasswordToken(ctx, "a@b.co")
	if err != nil {
		t.Fatalf("first reset token: %v", err)
	}
	second, err := svc.GenerateResetPasswordToken(ctx, "a@b.co")
	if err != nil {
		t.Fatalf("second reset token: %v", err)
	}

	if err := svc.ResetPassword(ctx, second, "new-pw-123"); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}

	// the other outstanding reset link must be dead too
	if err := svc.ResetPassword(ctx, first, "evil-pw-123"); !errors.Is(err, ErrAuthentication) {
		t.Fatalf("expected stale reset token to fail, got %v", err)
	}

	if _, err := svc.Login(ctx, "a@b.co", "old-pw-123", "", ""); !errors.Is(err, ErrAuthentication) {
		t.Fatalf("old password must no longer work, got %v", err)
	}
	if _, err := svc.Login(ctx, "a@b.co", "new-pw-123", "", ""); err != nil {
		t.Fatalf("new password login: %v", err)
	}
}

func TestResetTokenForUnknownEmail(t *testing.T) {
	svc, _ := newTestAuth(t)
	if _, err := svc.GenerateResetPasswordToken(context.Background(), "nobody@b.co"); !errors.Is(err, user.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResetTokenExpires(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }

	accounts, err := user.NewService(user.NewInMemory())
	if err != nil {
		t.Fatalf("user.NewService: %v", err)
	}
	tokens, err := NewTokens(NewInMemoryTokens(), "test-secret", WithTokenClock(clock))
	if err != nil {
		t.Fatalf("NewTokens: %v", err)
	}
	svc, err := NewService(accounts, tokens, WithClock(clock), WithResetTTL(10*time.Minute))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, RegisterInput{Email: "a@b.co", Name: "A", Password: "pw-123456"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	token, err := svc.GenerateResetPasswordToken(ctx, "a@b.co")
	if err != nil {
		t.Fatalf("GenerateResetPasswordToken: %v", err)
	}

	now = now.Add(11 * time.Minute)
	if err := svc.ResetPassword(ctx, token, "new-pw-123"); !errors.Is(err, ErrAuthentication) {
		t.Fatalf("expected expired reset token to fail, got %v", err)
	}
}

func TestLogoutClearsOnePlatform(t *testing.T) {
	svc, accounts := newTestAuth(t)
	ctx := context.Background()

	account, _, err := svc.Register(ctx, RegisterInput{Email: "a@b.co", Name: "A", Password: "pw-123456"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := svc.Login(ctx, "a@b.co", "pw-123456", "android-1", user.PlatformAndroid); err != nil {
		t.Fatalf("android login: %v", err)
	}
	if _, err := svc.Login(ctx, "a@b.co", "pw-123456", "ios-1", user.PlatformIOS); err != nil {
		t.Fatalf("ios login: %v", err)
	}

	if err := svc.Logout(ctx, account.ID, user.PlatformAndroid); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	got, err := accounts.GetByID(ctx, account.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.AndroidToken != "" {
		t.Fatalf("android slot should be cleared, got %q", got.AndroidToken)
	}
	if got.IOSToken != "ios-1" {
		t.Fatalf("ios slot must survive android logout, got %q", got.IOSToken)
	}
}
