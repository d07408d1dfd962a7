package setuptoken

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	userID    uint
	expiresAt time.Time
}

// MemoryStore keeps tokens in process memory. Expired entries are dropped when
// read and by Sweep; everything is lost on restart.
type MemoryStore struct {
	mu   sync.Mutex
	m    map[string]entry
	nowF func() time.Time
}

type MemoryOption func(*MemoryStore)

// WithClock replaces time.Now as the source for issue and expiry times.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) { s.nowF = now }
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		m:    make(map[string]entry),
		nowF: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Issue(ctx context.Context, userID uint) (string, error) {
	token, err := newToken()
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[token] = entry{userID: userID, expiresAt: s.nowF().Add(TTL)}
	return token, nil
}

func (s *MemoryStore) Consume(ctx context.Context, token string) (uint, error) {
	return s.resolve(token, true)
}

func (s *MemoryStore) Peek(ctx context.Context, token string) (uint, error) {
	return s.resolve(token, false)
}

func (s *MemoryStore) resolve(token string, consume bool) (uint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.m[token]
	if !ok {
		return 0, ErrInvalidToken
	}
	if s.nowF().After(e.expiresAt) {
		delete(s.m, token)
		return 0, ErrExpired
	}
	if consume {
		delete(s.m, token)
	}
	return e.userID, nil
}

// Sweep removes every expired entry and reports how many were dropped.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.nowF()
	n := 0
	for token, e := range s.m {
		if now.After(e.expiresAt) {
			delete(s.m, token)
			n++
		}
	}
	return n
}

// Len returns the number of stored entries, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}
