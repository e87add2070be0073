// Package memory provides an in-memory implementation of the receipts
// store, adapted in structure from registry/store/memory/memory.go (swap
// the toolset-by-name map for a receipt-by-id map, add created-at ordering
// for List/GetRecent).
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kparnell/intentd/internal/model"
	"github.com/kparnell/intentd/internal/receipts"
)

// Store is an in-memory implementation of receipts.Store. It is safe for
// concurrent use and holds no state across process restarts — a request is
// never resumed across a restart.
type Store struct {
	mu       sync.RWMutex
	receipts map[string]*model.Receipt
}

var _ receipts.Store = (*Store)(nil)

// New creates a new in-memory receipts store.
func New() *Store {
	return &Store{receipts: make(map[string]*model.Receipt)}
}

func (s *Store) Create(ctx context.Context, r *model.Receipt) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.receipts[r.ReceiptID]; exists {
		return fmt.Errorf("receipt %q already exists", r.ReceiptID)
	}
	s.receipts[r.ReceiptID] = r
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*model.Receipt, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.receipts[id]
	if !ok {
		return nil, receipts.ErrNotFound
	}
	return r, nil
}

func (s *Store) Update(ctx context.Context, r *model.Receipt) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.receipts[r.ReceiptID]; !ok {
		return receipts.ErrNotFound
	}
	s.receipts[r.ReceiptID] = r
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.receipts[id]; !ok {
		return receipts.ErrNotFound
	}
	delete(s.receipts, id)
	return nil
}

func (s *Store) List(ctx context.Context, filter receipts.ListFilter) ([]*model.Receipt, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*model.Receipt, 0, len(s.receipts))
	for _, r := range s.receipts {
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		matched = append(matched, r)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].TimestampUTC.After(matched[j].TimestampUTC)
	})

	if filter.Offset >= len(matched) {
		return []*model.Receipt{}, nil
	}
	matched = matched[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

func (s *Store) Count(ctx context.Context, status model.ReceiptStatus) (int, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	default:
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if status == "" {
		return len(s.receipts), nil
	}
	n := 0
	for _, r := range s.receipts {
		if r.Status == status {
			n++
		}
	}
	return n, nil
}

func (s *Store) GetRecent(ctx context.Context, n int) ([]*model.Receipt, error) {
	return s.List(ctx, receipts.ListFilter{Limit: n})
}

// Migrate is a no-op: the in-memory store holds no schema and no state
// survives a restart.
func (s *Store) Migrate(ctx context.Context) error { return nil }

func (s *Store) Close() error { return nil }
