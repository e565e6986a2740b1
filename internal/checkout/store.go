package checkout

import (
	"context"
	"fmt"
	"sort"
	"sync"

	pkgerrors "github.com/ArthurDevel/agentic-payments-hackathon-example-repo/pkg/errors"
)

// SessionStore is keyed persistence for session records. Pure get/put/list;
// all business rules stay in the Service. Get after Put returns the exact
// last-written value. The store is not assumed to make read-then-write
// atomic; the Service serializes access per session.
type SessionStore interface {
	Get(ctx context.Context, id string) (*Session, error)
	Put(ctx context.Context, session *Session) error
	List(ctx context.Context) ([]Session, error)
}

// MemoryStore keeps sessions in a map, deep-copied on both sides of the
// boundary. Used in tests and in the zero-dependency demo deployment.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*Session)}
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Session, error) {
	_ = ctx

	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("checkout session %s not found", id))
	}
	return session.Clone(), nil
}

func (s *MemoryStore) Put(ctx context.Context, session *Session) error {
	_ = ctx

	if session == nil || session.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "session with id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session.Clone()
	return nil
}

func (s *MemoryStore) List(ctx context.Context) ([]Session, error) {
	_ = ctx

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		out = append(out, *session.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
