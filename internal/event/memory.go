package event

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gatherly/apiserver/internal/ids"
)

var _ Store = (*InMemory)(nil)

// InMemory implements Store with in-process concurrency safety. The RSVP
// mutations run under one lock, matching the atomicity the SQL store gets
// from single-statement updates.
type InMemory struct {
	mu     sync.RWMutex
	events map[string]*Event
}

// NewInMemory creates an empty store.
func NewInMemory() *InMemory {
	return &InMemory{events: make(map[string]*Event)}
}

func (s *InMemory) Create(ctx context.Context, e *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = ids.New()
	}
	now := time.Now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now
	cp := copyEvent(e)
	s.events[e.ID] = cp
	return nil
}

func (s *InMemory) Find(ctx context.Context, id string) (*Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyEvent(e), nil
}

func (s *InMemory) List(ctx context.Context, f Filter) ([]*Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Event
	for _, e := range s.events {
		if f.From != nil && f.To != nil {
			// both bounds: the event must lie fully inside the window
			if e.StartAt.Before(*f.From) || !e.EndAt.Before(*f.To) {
				continue
			}
		} else if f.From != nil && e.EndAt.Before(*f.From) {
			continue
		} else if f.To != nil && !e.StartAt.Before(*f.To) {
			continue
		}
		if f.Status != nil && e.Status != *f.Status {
			continue
		}
		if f.Search != "" {
			needle := strings.ToLower(f.Search)
			if !strings.Contains(strings.ToLower(e.Name), needle) &&
				!strings.Contains(strings.ToLower(e.Info), needle) &&
				!strings.Contains(strings.ToLower(e.Location), needle) {
				continue
			}
		}
		out = append(out, copyEvent(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartAt.Before(out[j].StartAt) })
	return paginateEvents(out, f.Limit, f.Page), nil
}

func (s *InMemory) Update(ctx context.Context, id string, upd Update) (*Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return nil, ErrNotFound
	}
	if upd.Name != nil {
		e.Name = *upd.Name
	}
	if upd.Info != nil {
		e.Info = *upd.Info
	}
	if upd.Location != nil {
		e.Location = *upd.Location
	}
	if upd.StartAt != nil {
		e.StartAt = *upd.StartAt
	}
	if upd.EndAt != nil {
		e.EndAt = *upd.EndAt
	}
	if upd.Status != nil {
		e.Status = *upd.Status
	}
	e.UpdatedAt = time.Now().UTC()
	return copyEvent(e), nil
}

func (s *InMemory) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[id]; !ok {
		return ErrNotFound
	}
	delete(s.events, id)
	return nil
}

func (s *InMemory) AddRSVP(ctx context.Context, eventID, userID string) (*Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[eventID]
	if !ok {
		return nil, ErrNotFound
	}
	found := false
	for _, id := range e.RSVP {
		if id == userID {
			found = true
			break
		}
	}
	if !found {
		e.RSVP = append(e.RSVP, userID)
		e.UpdatedAt = time.Now().UTC()
	}
	return copyEvent(e), nil
}

func (s *InMemory) RemoveRSVP(ctx context.Context, eventID, userID string) (*Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[eventID]
	if !ok {
		return nil, ErrNotFound
	}
	kept := e.RSVP[:0]
	removed := false
	for _, id := range e.RSVP {
		if id == userID {
			removed = true
			continue
		}
		kept = append(kept, id)
	}
	e.RSVP = kept
	if removed {
		e.UpdatedAt = time.Now().UTC()
	}
	return copyEvent(e), nil
}

func (s *InMemory) CountByOwner(ctx context.Context, eventID, ownerID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events[eventID]
	if !ok || e.CreatedBy != ownerID {
		return 0, nil
	}
	return 1, nil
}

func copyEvent(e *Event) *Event {
	cp := *e
	cp.RSVP = append([]string(nil), e.RSVP...)
	return &cp
}

func paginateEvents(in []*Event, limit, page int) []*Event {
	if limit <= 0 {
		return in
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * limit
	if start >= len(in) {
		return nil
	}
	end := start + limit
	if end > len(in) {
		end = len(in)
	}
	return in[start:end]
}
