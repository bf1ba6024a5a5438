package auth

import (
	"context"
	"sync"

	"github.com/gatherly/apiserver/internal/ids"
)

var _ TokenStore = (*InMemoryTokens)(nil)

// InMemoryTokens implements TokenStore with in-process concurrency safety.
// Consume holds the lock across lookup and delete, giving the same
// delete-if-matches semantics the SQL store gets from a conditional delete.
type InMemoryTokens struct {
	mu      sync.Mutex
	records map[string]*TokenRecord
}

// NewInMemoryTokens creates an empty token store.
func NewInMemoryTokens() *InMemoryTokens {
	return &InMemoryTokens{records: make(map[string]*TokenRecord)}
}

func (s *InMemoryTokens) Save(ctx context.Context, rec *TokenRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.ID == "" {
		rec.ID = ids.New()
	}
	cp := *rec
	s.records[rec.Token] = &cp
	return nil
}

func (s *InMemoryTokens) Find(ctx context.Context, token string, purpose Purpose) (*TokenRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[token]
	if !ok || rec.Purpose != purpose {
		return nil, ErrAuthentication
	}
	cp := *rec
	return &cp, nil
}

func (s *InMemoryTokens) Consume(ctx context.Context, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[token]; !ok {
		return false, nil
	}
	delete(s.records, token)
	return true, nil
}

func (s *InMemoryTokens) DeleteByUserPurpose(ctx context.Context, userID string, purpose Purpose) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, rec := range s.records {
		if rec.UserID == userID && rec.Purpose == purpose {
			delete(s.records, token)
		}
	}
	return nil
}
