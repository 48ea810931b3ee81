// Package store provides SubmissionStore implementations.
package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/health-attestation-server/internal/domain"
)

// identityLog is the append-only submission list of one identity.
type identityLog struct {
	mu          sync.Mutex
	submissions []*domain.Submission
}

// MemoryStore keeps submissions in process memory. Appends for one identity
// are serialized by that identity's lock; different identities never contend.
type MemoryStore struct {
	mu   sync.RWMutex
	logs map[string]*identityLog
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{logs: make(map[string]*identityLog)}
}

func (s *MemoryStore) logFor(identity string, create bool) *identityLog {
	s.mu.RLock()
	l, ok := s.logs[identity]
	s.mu.RUnlock()
	if ok || !create {
		return l
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok = s.logs[identity]; !ok {
		l = &identityLog{}
		s.logs[identity] = l
	}
	return l
}

// Append adds a copy of submission to the end of identity's list.
func (s *MemoryStore) Append(ctx context.Context, identity string, submission *domain.Submission) error {
	if submission == nil {
		return fmt.Errorf("submission is required")
	}
	cp := *submission

	l := s.logFor(identity, true)
	l.mu.Lock()
	l.submissions = append(l.submissions, &cp)
	l.mu.Unlock()
	return nil
}

// List returns identity's submissions in insertion order. Unknown
// identities yield an empty slice.
func (s *MemoryStore) List(ctx context.Context, identity string) ([]*domain.Submission, error) {
	l := s.logFor(identity, false)
	if l == nil {
		return []*domain.Submission{}, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*domain.Submission, len(l.submissions))
	for i, sub := range l.submissions {
		cp := *sub
		out[i] = &cp
	}
	return out, nil
}

// Close is a no-op
func (s *MemoryStore) Close() error {
	return nil
}
