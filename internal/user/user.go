package user

import (
	"context"
	"errors"
	"time"
)

// Role is the closed set of account roles. There is no inheritance between
// roles; each role's rights are listed explicitly in the access-control table.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
	RoleStaff Role = "staff"
)

// Valid reports whether the role belongs to the closed enumeration.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleStaff:
		return true
	}
	return false
}

// Platform identifies a device push-notification platform.
type Platform string

const (
	PlatformAndroid Platform = "android"
	PlatformIOS     Platform = "ios"
)

// Valid reports whether the platform is one of the two supported slots.
func (p Platform) Valid() bool {
	return p == PlatformAndroid || p == PlatformIOS
}

// Account status values. Disabled users cannot authenticate; accounts are
// never hard-deleted on the authorization path.
const (
	StatusDisabled = 0
	StatusEnabled  = 1
)

var (
	ErrNotFound     = errors.New("user: not found")
	ErrConflict     = errors.New("user: email already registered")
	ErrInvalidInput = errors.New("user: invalid input")
)

// User is a stored account record. Each platform has exactly one device-token
// slot; a login from a new device overwrites that platform's slot only.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Status       int       `json:"status"`
	AndroidToken string    `json:"-"`
	IOSToken     string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// DeviceToken returns the token stored for the given platform slot.
func (u *User) DeviceToken(p Platform) string {
	switch p {
	case PlatformAndroid:
		return u.AndroidToken
	case PlatformIOS:
		return u.IOSToken
	}
	return ""
}

// Filter narrows List results.
type Filter struct {
	Role   *Role
	Status *int
	Search string
	Limit  int
	Page   int
}

// Update carries optional profile mutations; nil fields are left untouched.
type Update struct {
	Email *string
	Name  *string
}

// Store describes persistence operations for account records.
type Store interface {
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, f Filter) ([]*User, error)
	ListByRole(ctx context.Context, role Role) ([]*User, error)
	Update(ctx context.Context, id string, upd Update) (*User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	SetStatus(ctx context.Context, id string, status int) (*User, error)
	SetRole(ctx context.Context, id string, role Role, status int) (*User, error)
	SetDeviceToken(ctx context.Context, id string, p Platform, token string) error
	Delete(ctx context.Context, id string) error
}
