package orders

import (
	"context"
	"sort"
	"sync"

	pkgerrors "github.com/ArthurDevel/agentic-payments-hackathon-example-repo/pkg/errors"
)

// Store persists order records. No business rules live here.
type Store interface {
	Put(ctx context.Context, order *Order) error
	GetByCheckoutID(ctx context.Context, checkoutID string) (*Order, error)
	List(ctx context.Context) ([]Order, error)
}

// MemoryStore keeps orders in a map. Used by tests and the demo deployment.
type MemoryStore struct {
	mu     sync.RWMutex
	byID   map[string]Order
	byCkID map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:   make(map[string]Order),
		byCkID: make(map[string]string),
	}
}

func (s *MemoryStore) Put(ctx context.Context, order *Order) error {
	_ = ctx

	if order == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.byCkID[order.CheckoutID]; ok && existing != order.ID {
		return pkgerrors.New(pkgerrors.CodeConflict, "order already exists for checkout session")
	}

	s.byID[order.ID] = *order
	s.byCkID[order.CheckoutID] = order.ID
	return nil
}

func (s *MemoryStore) GetByCheckoutID(ctx context.Context, checkoutID string) (*Order, error) {
	_ = ctx

	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byCkID[checkoutID]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	order := s.byID[id]
	return &order, nil
}

func (s *MemoryStore) List(ctx context.Context) ([]Order, error) {
	_ = ctx

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Order, 0, len(s.byID))
	for _, order := range s.byID {
		out = append(out, order)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
