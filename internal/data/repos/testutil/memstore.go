package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/yungbote/devjourney-backend/internal/data/schemacompat"
	"github.com/yungbote/devjourney-backend/internal/data/tiered"
)

// MemoryStore is an in-memory durable tier with switchable availability.
type MemoryStore struct {
	mu   sync.Mutex
	recs map[tiered.Kind]map[string]schemacompat.Record
	down bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{recs: map[tiered.Kind]map[string]schemacompat.Record{}}
}

// SetDown makes every call fail with tiered.ErrUnavailable.
func (m *MemoryStore) SetDown(down bool) {
	m.mu.Lock()
	m.down = down
	m.mu.Unlock()
}

func (m *MemoryStore) Ping(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return tiered.ErrUnavailable
	}
	return nil
}

func (m *MemoryStore) Len(kind tiered.Kind) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.recs[kind])
}

func (m *MemoryStore) Get(_ context.Context, kind tiered.Kind, id string) (schemacompat.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return nil, tiered.ErrUnavailable
	}
	rec, ok := m.recs[kind][id]
	if !ok {
		return nil, tiered.ErrNotFound
	}
	return rec.Clone(), nil
}

func (m *MemoryStore) Put(_ context.Context, kind tiered.Kind, rec schemacompat.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return tiered.ErrUnavailable
	}
	if m.recs[kind] == nil {
		m.recs[kind] = map[string]schemacompat.Record{}
	}
	m.recs[kind][rec.ID()] = rec.Clone()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, kind tiered.Kind, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return tiered.ErrUnavailable
	}
	if _, ok := m.recs[kind][id]; !ok {
		return tiered.ErrNotFound
	}
	delete(m.recs[kind], id)
	return nil
}

func (m *MemoryStore) List(_ context.Context, kind tiered.Kind, scope tiered.Scope) ([]schemacompat.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return nil, tiered.ErrUnavailable
	}
	out := make([]schemacompat.Record, 0, len(m.recs[kind]))
	for _, rec := range m.recs[kind] {
		if scope.SubjectID != "" && rec.String("subject_id") != scope.SubjectID {
			continue
		}
		if scope.UserID != "" && rec.String("user_id") != scope.UserID {
			continue
		}
		out = append(out, rec.Clone())
	}
	return out, nil
}

// Tiers is a cache, remote and local stack built from in-memory stores.
type Tiers struct {
	Cache    *tiered.MemoryCache
	Remote   *MemoryStore
	Local    *MemoryStore
	Resolver *tiered.Resolver
}

func NewTiers(tb testing.TB) *Tiers {
	tb.Helper()
	t := &Tiers{
		Cache:  tiered.NewMemoryCache(64, time.Minute),
		Remote: NewMemoryStore(),
		Local:  NewMemoryStore(),
	}
	r, err := tiered.NewResolver(Logger(tb), []tiered.Tier{
		{Name: "memory", Role: tiered.RoleCache, Store: t.Cache},
		{Name: "remote", Role: tiered.RoleRemote, Store: t.Remote},
		{Name: "local", Role: tiered.RoleLocal, Store: t.Local},
	}, tiered.Options{})
	if err != nil {
		tb.Fatalf("NewResolver: %v", err)
	}
	t.Resolver = r
	return t
}
