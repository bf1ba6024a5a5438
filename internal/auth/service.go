package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gatherly/apiserver/internal/user"
)

const (
	defaultAccessTTL  = 30 * time.Minute
	defaultRefreshTTL = 24 * time.Hour * 14
	defaultResetTTL   = 10 * time.Minute
)

// TokenPair is the access and refresh token issued together on login,
// registration and refresh.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// Service orchestrates the credential store and the token service to
// implement login, logout, refresh and the password-reset flows.
type Service struct {
	accounts *user.Service
	tokens   *Tokens
	now      func() time.Time

	accessTTL  time.Duration
	refreshTTL time.Duration
	resetTTL   time.Duration
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// WithAccessTTL configures the access token lifetime.
func WithAccessTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.accessTTL = ttl
		}
	}
}

// WithRefreshTTL configures the refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.refreshTTL = ttl
		}
	}
}

// WithResetTTL configures the reset-password token lifetime.
func WithResetTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.resetTTL = ttl
		}
	}
}

// NewService constructs the auth orchestrator.
func NewService(accounts *user.Service, tokens *Tokens, opts ...ServiceOption) (*Service, error) {
	if accounts == nil {
		return nil, errors.New("account service is required")
	}
	if tokens == nil {
		return nil, errors.New("token service is required")
	}
	s := &Service{
		accounts:   accounts,
		tokens:     tokens,
		now:        time.Now,
		accessTTL:  defaultAccessTTL,
		refreshTTL: defaultRefreshTTL,
		resetTTL:   defaultResetTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// RegisterInput is a self-service registration profile.
type RegisterInput struct {
	Email    string
	Name     string
	Password string
}

// Register creates an account with the base role and issues its first token
// pair. Hashing happens in the credential store.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*user.User, TokenPair, error) {
	u, err := s.accounts.Create(ctx, user.CreateInput{
		Email:    in.Email,
		Name:     in.Name,
		Password: in.Password,
		Role:     user.RoleUser,
	})
	if err != nil {
		return nil, TokenPair{}, err
	}
	pair, err := s.GenerateAuthTokens(ctx, u.ID)
	if err != nil {
		return nil, TokenPair{}, err
	}
	return u, pair, nil
}

// Login authenticates email and password. Unknown email and wrong password
// yield the same ErrAuthentication so callers cannot probe which field was
// wrong. A supplied device token overwrites only that platform's slot.
func (s *Service) Login(ctx context.Context, email, password string, deviceToken string, platform user.Platform) (*user.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, ErrAuthentication
	}
	u, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		return nil, ErrAuthentication
	}
	if err := user.VerifyPassword(u.PasswordHash, password); err != nil {
		return nil, ErrAuthentication
	}
	if u.Status == user.StatusDisabled {
		return nil, ErrAccountDisabled
	}
	if deviceToken != "" && platform != "" {
		if err := s.accounts.SetDeviceToken(ctx, u.ID, platform, deviceToken); err != nil {
			return nil, err
		}
		switch platform {
		case user.PlatformAndroid:
			u.AndroidToken = deviceToken
		case user.PlatformIOS:
			u.IOSToken = deviceToken
		}
	}
	return u, nil
}

// GenerateAuthTokens issues a stateless access token and a persisted,
// single-use refresh token for the user.
func (s *Service) GenerateAuthTokens(ctx context.Context, userID string) (TokenPair, error) {
	now := s.now().UTC()

	accessExpires := now.Add(s.accessTTL)
	access, err := s.tokens.Generate(userID, PurposeAccess, accessExpires)
	if err != nil {
		return TokenPair{}, err
	}

	refreshExpires := now.Add(s.refreshTTL)
	refresh, err := s.tokens.Generate(userID, PurposeRefresh, refreshExpires)
	if err != nil {
		return TokenPair{}, err
	}
	if err := s.tokens.Save(ctx, refresh, userID, PurposeRefresh, refreshExpires); err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExpires,
		RefreshExpiresAt: refreshExpires,
	}, nil
}

// RefreshAuthTokens rotates a refresh token: verify, consume exactly once,
// reissue. A replayed, expired or tampered token and a vanished user all
// surface as the same ErrAuthentication; the ambiguity is deliberate.
func (s *Service) RefreshAuthTokens(ctx context.Context, refreshToken string) (TokenPair, error) {
	rec, err := s.tokens.Verify(ctx, refreshToken, PurposeRefresh)
	if err != nil {
		return TokenPair{}, ErrAuthentication
	}
	if _, err := s.accounts.GetByID(ctx, rec.UserID); err != nil {
		return TokenPair{}, ErrAuthentication
	}
	if err := s.tokens.Consume(ctx, rec.Token); err != nil {
		return TokenPair{}, err
	}
	return s.GenerateAuthTokens(ctx, rec.UserID)
}

// GenerateResetPasswordToken issues and persists a reset token for the
// account with the given email.
func (s *Service) GenerateResetPasswordToken(ctx context.Context, email string) (string, error) {
	u, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	expires := s.now().UTC().Add(s.resetTTL)
	signed, err := s.tokens.Generate(u.ID, PurposeResetPassword, expires)
	if err != nil {
		return "", err
	}
	if err := s.tokens.Save(ctx, signed, u.ID, PurposeResetPassword, expires); err != nil {
		return "", err
	}
	return signed, nil
}

// ResetPassword verifies a reset token, stores the new password hash and then
// deletes every outstanding reset token for that user, so an older unused
// reset link cannot still change the password afterwards.
func (s *Service) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	rec, err := s.tokens.Verify(ctx, resetToken, PurposeResetPassword)
	if err != nil {
		return ErrAuthentication
	}
	if err := s.accounts.SetPassword(ctx, rec.UserID, newPassword); err != nil {
		return ErrAuthentication
	}
	return s.tokens.RevokeAll(ctx, rec.UserID, PurposeResetPassword)
}

// Logout clears the device token slot for one platform. Failure here is not
// attributable to caller input, so it surfaces as an internal error.
func (s *Service) Logout(ctx context.Context, userID string, platform user.Platform) error {
	if err := s.accounts.ClearDeviceToken(ctx, userID, platform); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}
