package user

import (
	"context"
	"fmt"
	"strings"
)

// Service implements account management on top of a Store. Password hashing
// happens here; stores only ever see digests.
type Service struct {
	store Store
}

// NewService constructs a Service.
func NewService(store Store) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store is required", ErrInvalidInput)
	}
	return &Service{store: store}, nil
}

// CreateInput carries a registration or admin-created account profile.
type CreateInput struct {
	Email    string
	Name     string
	Password string
	Role     Role
}

// Create normalises and persists a new account with a hashed password.
// The zero Role defaults to RoleUser; accounts start enabled.
func (s *Service) Create(ctx context.Context, in CreateInput) (*User, error) {
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if strings.TrimSpace(in.Password) == "" {
		return nil, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	role := in.Role
	if role == "" {
		role = RoleUser
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %s", ErrInvalidInput, role)
	}
	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u := &User{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         role,
		Status:       StatusEnabled,
	}
	if err := s.store.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// GetByID loads one account.
func (s *Service) GetByID(ctx context.Context, id string) (*User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	return s.store.Find(ctx, id)
}

// GetByEmail loads one account by its unique email.
func (s *Service) GetByEmail(ctx context.Context, email string) (*User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	return s.store.FindByEmail(ctx, email)
}

// List returns accounts matching the filter.
func (s *Service) List(ctx context.Context, f Filter) ([]*User, error) {
	if f.Role != nil && !f.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %s", ErrInvalidInput, *f.Role)
	}
	return s.store.List(ctx, f)
}

// ListByRole returns every account holding the given role.
func (s *Service) ListByRole(ctx context.Context, role Role) ([]*User, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %s", ErrInvalidInput, role)
	}
	return s.store.ListByRole(ctx, role)
}

// Update applies profile changes.
func (s *Service) Update(ctx context.Context, id string, upd Update) (*User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if upd.Email != nil {
		email := strings.TrimSpace(strings.ToLower(*upd.Email))
		if email == "" || !strings.Contains(email, "@") {
			return nil, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
		}
		upd.Email = &email
	}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
		}
		upd.Name = &name
	}
	return s.store.Update(ctx, id, upd)
}

// Delete removes an account record.
func (s *Service) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	return s.store.Delete(ctx, id)
}

// SetStatus enables or disables an account.
func (s *Service) SetStatus(ctx context.Context, id string, status int) (*User, error) {
	if status != StatusEnabled && status != StatusDisabled {
		return nil, fmt.Errorf("%w: unsupported status %d", ErrInvalidInput, status)
	}
	return s.store.SetStatus(ctx, id, status)
}

// AssignRole sets a new role and re-enables the account, mirroring the admin
// flow where assigning a role also lifts a disable.
func (s *Service) AssignRole(ctx context.Context, id string, role Role) (*User, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %s", ErrInvalidInput, role)
	}
	return s.store.SetRole(ctx, id, role, StatusEnabled)
}

// ChangePassword verifies the current password before storing a new hash.
func (s *Service) ChangePassword(ctx context.Context, id, current, next string) error {
	u, err := s.store.Find(ctx, id)
	if err != nil {
		return err
	}
	if err := VerifyPassword(u.PasswordHash, current); err != nil {
		return fmt.Errorf("%w: current password does not match", ErrInvalidInput)
	}
	return s.SetPassword(ctx, id, next)
}

// SetPassword stores a new password hash without checking the old one.
// Used by the reset-password flow after token verification.
func (s *Service) SetPassword(ctx context.Context, id, password string) error {
	if strings.TrimSpace(password) == "" {
		return fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	return s.store.UpdatePassword(ctx, id, hash)
}

// SetDeviceToken stores a push token in the platform's slot, overwriting any
// previous value for that platform only.
func (s *Service) SetDeviceToken(ctx context.Context, id string, p Platform, token string) error {
	if !p.Valid() {
		return fmt.Errorf("%w: unknown platform %s", ErrInvalidInput, p)
	}
	return s.store.SetDeviceToken(ctx, id, p, token)
}

// ClearDeviceToken empties the platform's slot; the other platform keeps its token.
func (s *Service) ClearDeviceToken(ctx context.Context, id string, p Platform) error {
	if !p.Valid() {
		return fmt.Errorf("%w: unknown platform %s", ErrInvalidInput, p)
	}
	return s.store.SetDeviceToken(ctx, id, p, "")
}
