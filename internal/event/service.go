package event

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gatherly/apiserver/internal/obs"
	"github.com/gatherly/apiserver/internal/push"
	"github.com/gatherly/apiserver/internal/user"
)

const defaultDeliveryTimeout = 5 * time.Second

// RecipientLister enumerates notification recipients from the credential store.
type RecipientLister interface {
	ListByRole(ctx context.Context, role user.Role) ([]*user.User, error)
}

// Service implements event management, RSVP set algebra and the notification
// broadcast.
type Service struct {
	store      Store
	recipients RecipientLister
	gateway    push.Gateway
	now        func() time.Time

	deliveryTimeout time.Duration
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

// WithDeliveryTimeout bounds each push delivery so one stalled gateway call
// cannot hold up the remaining recipients.
func WithDeliveryTimeout(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.deliveryTimeout = d
		}
	}
}

// NewService constructs the event service.
func NewService(store Store, recipients RecipientLister, gateway push.Gateway, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store is required", ErrInvalidInput)
	}
	s := &Service{
		store:           store,
		recipients:      recipients,
		gateway:         gateway,
		now:             time.Now,
		deliveryTimeout: defaultDeliveryTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CreateInput carries a new event.
type CreateInput struct {
	Name      string
	Info      string
	Location  string
	StartAt   time.Time
	EndAt     time.Time
	CreatedBy string
}

// Create validates and persists a new event. The date invariant is checked
// before anything reaches the store.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Event, error) {
	name := strings.TrimSpace(in.Name)
	info := strings.TrimSpace(in.Info)
	location := strings.TrimSpace(in.Location)
	if name == "" || info == "" || location == "" {
		return nil, fmt.Errorf("%w: name, info and location are required", ErrInvalidInput)
	}
	if in.StartAt.IsZero() || in.EndAt.IsZero() {
		return nil, fmt.Errorf("%w: start and end dates are required", ErrInvalidInput)
	}
	if !in.EndAt.After(in.StartAt) {
		return nil, fmt.Errorf("%w: end date must be greater than start date", ErrInvalidInput)
	}
	if strings.TrimSpace(in.CreatedBy) == "" {
		return nil, fmt.Errorf("%w: creator is required", ErrInvalidInput)
	}
	e := &Event{
		Name:      name,
		Info:      info,
		Location:  location,
		StartAt:   in.StartAt,
		EndAt:     in.EndAt,
		RSVP:      []string{},
		Status:    StatusEnabled,
		CreatedBy: in.CreatedBy,
	}
	if err := s.store.Create(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// Get loads one event.
func (s *Service) Get(ctx context.Context, id string) (*Event, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: event id is required", ErrInvalidInput)
	}
	return s.store.Find(ctx, id)
}

// List returns events matching the filter. Without an explicit From the
// listing starts at "now", so only running and upcoming events appear.
func (s *Service) List(ctx context.Context, f Filter) ([]*Event, error) {
	if f.From == nil {
		now := s.now().UTC()
		f.From = &now
	}
	return s.store.List(ctx, f)
}

// Update applies changes, re-checking the date invariant against the merged
// record so an update cannot flip end before start.
func (s *Service) Update(ctx context.Context, id string, upd Update) (*Event, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	start, end := current.StartAt, current.EndAt
	if upd.StartAt != nil {
		start = *upd.StartAt
	}
	if upd.EndAt != nil {
		end = *upd.EndAt
	}
	if !end.After(start) {
		return nil, fmt.Errorf("%w: end date must be greater than start date", ErrInvalidInput)
	}
	if upd.Status != nil && *upd.Status != StatusEnabled && *upd.Status != StatusDisabled {
		return nil, fmt.Errorf("%w: unsupported status %d", ErrInvalidInput, *upd.Status)
	}
	return s.store.Update(ctx, id, upd)
}

// Delete removes an event record.
func (s *Service) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: event id is required", ErrInvalidInput)
	}
	return s.store.Delete(ctx, id)
}

// SetStatus enables or disables an event.
func (s *Service) SetStatus(ctx context.Context, id string, status int) (*Event, error) {
	return s.Update(ctx, id, Update{Status: &status})
}

// AcceptRSVP adds the user to the event's RSVP set. Idempotent: accepting
// twice leaves exactly one entry.
func (s *Service) AcceptRSVP(ctx context.Context, eventID, userID string) (*Event, error) {
	if strings.TrimSpace(eventID) == "" || strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: event id and user id are required", ErrInvalidInput)
	}
	return s.store.AddRSVP(ctx, eventID, userID)
}

// RejectRSVP removes the user from the event's RSVP set. Idempotent: a user
// not on the list is a no-op.
func (s *Service) RejectRSVP(ctx context.Context, eventID, userID string) (*Event, error) {
	if strings.TrimSpace(eventID) == "" || strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: event id and user id are required", ErrInvalidInput)
	}
	return s.store.RemoveRSVP(ctx, eventID, userID)
}

// CheckOwner reports whether an event exists whose creator is the given user.
// Admins never reach this check; the authorization layer lets them through.
func (s *Service) CheckOwner(ctx context.Context, eventID, userID string) (bool, error) {
	count, err := s.store.CountByOwner(ctx, eventID, userID)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// SendNotification fans the event notification out to every base-role user,
// trying whichever of the two platform slots hold a token. Each delivery is
// independent: a failure is logged and counted, never propagated, and no
// retry happens within the broadcast. Best effort over N recipients, not
// all-or-nothing.
func (s *Service) SendNotification(ctx context.Context, eventID, title, message string) error {
	if strings.TrimSpace(eventID) == "" || strings.TrimSpace(title) == "" || strings.TrimSpace(message) == "" {
		return fmt.Errorf("%w: event id, title and message are required", ErrInvalidInput)
	}
	if s.gateway == nil || s.recipients == nil {
		return fmt.Errorf("push gateway is not configured")
	}
	recipients, err := s.recipients.ListByRole(ctx, user.RoleUser)
	if err != nil {
		return err
	}
	n := push.Notification{Title: title, Body: message, EventID: eventID}
	for _, recipient := range recipients {
		if recipient.AndroidToken != "" {
			s.deliver(ctx, user.PlatformAndroid, recipient, n)
		}
		if recipient.IOSToken != "" {
			s.deliver(ctx, user.PlatformIOS, recipient, n)
		}
	}
	return nil
}

func (s *Service) deliver(ctx context.Context, platform user.Platform, recipient *user.User, n push.Notification) {
	dctx, cancel := context.WithTimeout(ctx, s.deliveryTimeout)
	defer cancel()

	var err error
	switch platform {
	case user.PlatformAndroid:
		err = s.gateway.SendAndroid(dctx, recipient.AndroidToken, n)
	case user.PlatformIOS:
		err = s.gateway.SendIOS(dctx, recipient.IOSToken, n)
	}
	if err != nil {
		obs.CountPushDelivery(string(platform), "failed")
		obs.Error("push delivery failed", map[string]any{
			"event_id": n.EventID,
			"user_id":  recipient.ID,
			"platform": string(platform),
			"error":    err.Error(),
		})
		return
	}
	obs.CountPushDelivery(string(platform), "ok")
}
