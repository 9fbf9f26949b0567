// Package memory provides an in-process PaymentStore honoring the same
// version-checked write contract as the Postgres store. Used by unit tests
// and local runs without a database.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/propertyops/rentledger/internal/application"
	"github.com/propertyops/rentledger/internal/domain"
)

// Store keeps payments in a mutex-guarded map. Per-method Fn overrides let
// tests inject failures at specific points.
type Store struct {
	mu       sync.RWMutex
	payments map[string]*domain.Payment

	CreateFn            func(ctx context.Context, p *domain.Payment) error
	FindByIDFn          func(ctx context.Context, id string) (*domain.Payment, error)
	ConditionalUpdateFn func(ctx context.Context, p *domain.Payment, expectedVersion int64) error
}

var _ application.PaymentStore = (*Store)(nil)

func NewStore() *Store {
	return &Store{payments: make(map[string]*domain.Payment)}
}

// Seed inserts payments directly, bypassing overrides. Test setup helper.
func (s *Store) Seed(payments ...*domain.Payment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range payments {
		s.payments[p.ID] = p.Clone()
	}
}

// Snapshot returns a deep copy of a stored payment, or nil.
func (s *Store) Snapshot(id string) *domain.Payment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.payments[id]; ok {
		return p.Clone()
	}
	return nil
}

func (s *Store) Create(ctx context.Context, p *domain.Payment) error {
	if s.CreateFn != nil {
		return s.CreateFn(ctx, p)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments[p.ID] = p.Clone()
	return nil
}

func (s *Store) FindByID(ctx context.Context, id string) (*domain.Payment, error) {
	if s.FindByIDFn != nil {
		return s.FindByIDFn(ctx, id)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.payments[id]; ok {
		return p.Clone(), nil
	}
	return nil, domain.NewPaymentNotFoundError(id)
}

func (s *Store) FindEligible(ctx context.Context, limit int, after *application.Cursor) ([]*domain.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var eligible []*domain.Payment
	for _, p := range s.payments {
		if p.IsTerminal() || p.DueDate == nil || p.Deleted {
			continue
		}
		if after != nil && !afterCursor(p, after) {
			continue
		}
		eligible = append(eligible, p)
	}
	sort.Slice(eligible, func(i, j int) bool {
		if eligible[i].DueDate.Equal(*eligible[j].DueDate) {
			return eligible[i].ID < eligible[j].ID
		}
		return eligible[i].DueDate.Before(*eligible[j].DueDate)
	})

	if limit < len(eligible) {
		eligible = eligible[:limit]
	}
	page := make([]*domain.Payment, 0, len(eligible))
	for _, p := range eligible {
		page = append(page, p.Clone())
	}
	return page, nil
}

// afterCursor reports whether p sits strictly past the cursor in the
// (due_date, id) ordering.
func afterCursor(p *domain.Payment, after *application.Cursor) bool {
	if !p.DueDate.Equal(after.DueDate) {
		return p.DueDate.After(after.DueDate)
	}
	return p.ID > after.ID
}

func (s *Store) FindFeeChild(ctx context.Context, originID string) (*domain.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var newest *domain.Payment
	for _, p := range s.payments {
		if p.Type != domain.TypeLateFee || p.OriginPaymentID == nil || *p.OriginPaymentID != originID {
			continue
		}
		if p.Status == domain.StatusCancelled || p.Status == domain.StatusRefunded {
			continue
		}
		if newest == nil || p.CreatedAt.After(newest.CreatedAt) {
			newest = p
		}
	}
	if newest == nil {
		return nil, domain.NewPaymentNotFoundError(originID)
	}
	return newest.Clone(), nil
}

func (s *Store) ConditionalUpdate(ctx context.Context, p *domain.Payment, expectedVersion int64) error {
	if s.ConditionalUpdateFn != nil {
		return s.ConditionalUpdateFn(ctx, p, expectedVersion)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.payments[p.ID]
	if !ok {
		return domain.NewPaymentNotFoundError(p.ID)
	}
	if stored.Version != expectedVersion {
		return application.NewConcurrencyConflictError(p.ID, expectedVersion)
	}

	p.Version = expectedVersion + 1
	s.payments[p.ID] = p.Clone()
	return nil
}

// WithTx snapshots the whole map and restores it if fn fails, giving the
// same all-or-nothing scope as a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store application.PaymentStore) error) error {
	s.mu.RLock()
	backup := make(map[string]*domain.Payment, len(s.payments))
	for id, p := range s.payments {
		backup[id] = p.Clone()
	}
	s.mu.RUnlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.payments = backup
		s.mu.Unlock()
		return err
	}
	return nil
}
