package event

import (
	"context"
	"errors"
	"time"
)

// Event status values; disabled events are hidden from listings by callers
// that filter on status.
const (
	StatusDisabled = 0
	StatusEnabled  = 1
)

var (
	ErrNotFound     = errors.New("event: not found")
	ErrInvalidInput = errors.New("event: invalid input")
)

// Event is a stored event record. RSVP has set semantics: a user id appears
// at most once regardless of how many times it was accepted.
type Event struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Info      string    `json:"info"`
	Location  string    `json:"location"`
	StartAt   time.Time `json:"start_at"`
	EndAt     time.Time `json:"end_at"`
	RSVP      []string  `json:"rsvp"`
	Status    int       `json:"status"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Filter narrows List results. A nil From defaults to "now", so past events
// drop out of listings unless explicitly requested.
type Filter struct {
	From   *time.Time
	To     *time.Time
	Status *int
	Search string
	Limit  int
	Page   int
}

// Update carries optional mutations; nil fields are left untouched.
type Update struct {
	Name     *string
	Info     *string
	Location *string
	StartAt  *time.Time
	EndAt    *time.Time
	Status   *int
}

// Store describes persistence for events. AddRSVP and RemoveRSVP must be
// atomic single-document set operations so concurrent RSVP actions on the
// same event cannot corrupt the list.
type Store interface {
	Create(ctx context.Context, e *Event) error
	Find(ctx context.Context, id string) (*Event, error)
	List(ctx context.Context, f Filter) ([]*Event, error)
	Update(ctx context.Context, id string, upd Update) (*Event, error)
	Delete(ctx context.Context, id string) error
	AddRSVP(ctx context.Context, eventID, userID string) (*Event, error)
	RemoveRSVP(ctx context.Context, eventID, userID string) (*Event, error)
	CountByOwner(ctx context.Context, eventID, ownerID string) (int, error)
}
