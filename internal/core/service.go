package core

import (
	"time"

	"hemocore/internal/infra/persistence/memory"
	"hemocore/pkg/domain"
)

// Service exposes transactional domain operations over a persistent store.
// Every mutation runs inside a single store transaction gated by the rules
// engine; reads project over consistent snapshots.
type Service struct {
	store   PersistentStore
	metrics MetricsRecorder
	tracer  Tracer
	now     func() time.Time
}

// NewService constructs a service backed by the supplied store.
func NewService(store PersistentStore, opts ...ServiceOption) *Service {
	s := &Service{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewInMemoryService creates a service over a fresh in-memory store with the
// given rules engine. A nil engine gets the default rule set.
func NewInMemoryService(engine *RulesEngine, opts ...ServiceOption) *Service {
	if engine == nil {
		engine = DefaultRulesEngine()
	}
	return NewService(memory.NewStore(engine), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() PersistentStore {
	return s.store
}

// paginate slices a list by 1-based page and limit, returning the slice and
// the total length before paging. limit <= 0 disables paging.
func paginate[T any](items []T, page, limit int) ([]T, int) {
	total := len(items)
	if limit <= 0 {
		return items, total
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * limit
	if start >= total {
		return []T{}, total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return items[start:end], total
}

func findUserByEmail(view TransactionView, email string) (domain.User, bool) {
	for _, u := range view.ListUsers() {
		if u.Email == email {
			return u, true
		}
	}
	return domain.User{}, false
}
