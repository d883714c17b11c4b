package tiered

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/yungbote/devjourney-backend/internal/data/schemacompat"
	"github.com/yungbote/devjourney-backend/internal/platform/logger"
)

type fakeStore struct {
	mu      sync.Mutex
	recs    map[string]schemacompat.Record
	down    bool
	gets    int
	puts    int
	deletes int
}

func newFakeStore() *fakeStore { return &fakeStore{recs: map[string]schemacompat.Record{}} }

func (f *fakeStore) Get(_ context.Context, kind Kind, id string) (schemacompat.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.down {
		return nil, ErrUnavailable
	}
	rec, ok := f.recs[cacheKey(kind, id)]
	if !ok {
		return nil, ErrNotFound
	}
	return rec.Clone(), nil
}

func (f *fakeStore) Put(_ context.Context, kind Kind, rec schemacompat.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++
	if f.down {
		return ErrUnavailable
	}
	f.recs[cacheKey(kind, rec.ID())] = rec.Clone()
	return nil
}

func (f *fakeStore) Delete(_ context.Context, kind Kind, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	if f.down {
		return ErrUnavailable
	}
	if _, ok := f.recs[cacheKey(kind, id)]; !ok {
		return ErrNotFound
	}
	delete(f.recs, cacheKey(kind, id))
	return nil
}

func (f *fakeStore) List(_ context.Context, kind Kind, scope Scope) ([]schemacompat.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return nil, ErrUnavailable
	}
	var out []schemacompat.Record
	for key, rec := range f.recs {
		if len(key) > len(kind) && key[:len(kind)+1] == string(kind)+"/" && matchesScope(rec, scope) {
			out = append(out, rec.Clone())
		}
	}
	return out, nil
}

type fakeBus struct {
	msgs []Invalidation
}

func (b *fakeBus) Publish(_ context.Context, msg Invalidation) error {
	b.msgs = append(b.msgs, msg)
	return nil
}

const kindSession Kind = "session"

func newTestResolver(t *testing.T, bus InvalidationPublisher) (*Resolver, *MemoryCache, *fakeStore, *fakeStore) {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	cache := NewMemoryCache(16, 0)
	remote := newFakeStore()
	local := newFakeStore()
	r, err := NewResolver(log, []Tier{
		{Name: "cache", Role: RoleCache, Store: cache},
		{Name: "remote", Role: RoleRemote, Store: remote},
		{Name: "local", Role: RoleLocal, Store: local},
	}, Options{Bus: bus})
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	return r, cache, remote, local
}

func TestResolverSaveWritesAllTiersInBothSpellings(t *testing.T) {
	r, cache, remote, local := newTestResolver(t, nil)
	ctx := context.Background()

	out, err := r.Save(ctx, kindSession, schemacompat.Record{"id": "s1", "subject_id": "child-1"})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if out["subjectId"] != "child-1" {
		t.Fatalf("Save: camel spelling missing: %v", out)
	}
	if cache.Len() != 1 || len(remote.recs) != 1 || len(local.recs) != 1 {
		t.Fatalf("Save: tiers not all written: cache=%d remote=%d local=%d", cache.Len(), len(remote.recs), len(local.recs))
	}
	if local.recs["session/s1"]["subjectId"] != "child-1" || remote.recs["session/s1"]["subject_id"] != "child-1" {
		t.Fatalf("Save: persisted shape lacks both spellings")
	}
}

func TestResolverFallbackDurability(t *testing.T) {
	r, cache, remote, _ := newTestResolver(t, nil)
	ctx := context.Background()
	remote.down = true

	if _, err := r.Save(ctx, kindSession, schemacompat.Record{"id": "s1", "status": "active"}); err != nil {
		t.Fatalf("Save with remote down: %v", err)
	}
	_ = cache.Purge(ctx)

	rec, ok, err := r.Get(ctx, kindSession, "s1")
	if err != nil || !ok {
		t.Fatalf("Get with remote down: ok=%v err=%v", ok, err)
	}
	if rec.String("status") != "active" {
		t.Fatalf("Get: want status=active got=%v", rec)
	}
	if cache.Len() != 1 {
		t.Fatalf("Get: local hit should backfill cache, len=%d", cache.Len())
	}
}

func TestResolverSaveFailsOnlyWhenLocalFails(t *testing.T) {
	r, cache, remote, local := newTestResolver(t, nil)
	ctx := context.Background()
	local.down = true

	if _, err := r.Save(ctx, kindSession, schemacompat.Record{"id": "s1"}); err == nil {
		t.Fatalf("Save: expected error when local tier fails")
	}
	if cache.Len() != 0 {
		t.Fatalf("Save: failed write must not linger in cache")
	}
	if len(remote.recs) != 1 {
		t.Fatalf("Save: remote should still have been attempted")
	}

	if _, err := r.Save(ctx, kindSession, schemacompat.Record{"status": "active"}); err == nil {
		t.Fatalf("Save: expected validation error for missing id")
	}
}

func TestResolverGetPriorityAndBackfill(t *testing.T) {
	r, cache, remote, local := newTestResolver(t, nil)
	ctx := context.Background()
	remote.recs["session/s1"] = schemacompat.Record{"id": "s1", "status": "remote"}
	local.recs["session/s1"] = schemacompat.Record{"id": "s1", "status": "local"}

	rec, ok, err := r.Get(ctx, kindSession, "s1")
	if err != nil || !ok || rec.String("status") != "remote" {
		t.Fatalf("Get: want remote copy, got ok=%v err=%v rec=%v", ok, err, rec)
	}
	if local.gets != 1 {
		t.Fatalf("Get: local copy should be compared once after a remote hit, gets=%d", local.gets)
	}
	remoteGets := remote.gets
	if _, _, err := r.Get(ctx, kindSession, "s1"); err != nil {
		t.Fatalf("Get (cached): %v", err)
	}
	if remote.gets != remoteGets {
		t.Fatalf("Get: cache hit should not reach remote")
	}
	if cache.Len() != 1 {
		t.Fatalf("Get: cache not populated")
	}

	if _, ok, err := r.Get(ctx, kindSession, "missing"); ok || err != nil {
		t.Fatalf("Get missing: want ok=false err=nil, got ok=%v err=%v", ok, err)
	}
}

func TestResolverDeleteToleratesAbsence(t *testing.T) {
	r, cache, remote, local := newTestResolver(t, nil)
	ctx := context.Background()
	if _, err := r.Save(ctx, kindSession, schemacompat.Record{"id": "s1"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	delete(remote.recs, "session/s1")

	if err := r.Delete(ctx, kindSession, "s1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if cache.Len() != 0 || len(local.recs) != 0 {
		t.Fatalf("Delete: record left behind")
	}
	if err := r.Delete(ctx, kindSession, "never-existed"); err != nil {
		t.Fatalf("Delete absent: %v", err)
	}
}

func TestResolverListAllMergesRemoteWinning(t *testing.T) {
	r, _, remote, local := newTestResolver(t, nil)
	ctx := context.Background()
	remote.recs["session/a"] = schemacompat.Record{"id": "a", "subject_id": "c1", "status": "remote"}
	local.recs["session/a"] = schemacompat.Record{"id": "a", "subject_id": "c1", "status": "local"}
	local.recs["session/b"] = schemacompat.Record{"id": "b", "subjectId": "c1", "status": "local"}
	local.recs["session/c"] = schemacompat.Record{"id": "c", "subject_id": "c2"}

	recs, err := r.ListAll(ctx, kindSession, ListOptions{Scope: Scope{SubjectID: "c1"}})
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("ListAll: want=2 got=%d (%v)", len(recs), recs)
	}
	byID := map[string]schemacompat.Record{}
	for _, rec := range recs {
		byID[rec.ID()] = rec
	}
	if byID["a"].String("status") != "remote" {
		t.Fatalf("ListAll: remote copy should win tie, got=%v", byID["a"])
	}
	if byID["b"]["subject_id"] != "c1" {
		t.Fatalf("ListAll: local-only record not normalized: %v", byID["b"])
	}

	remote.down = true
	recs, err = r.ListAll(ctx, kindSession, ListOptions{Match: func(rec schemacompat.Record) bool {
		return rec.String("status") == "local"
	}})
	if err != nil {
		t.Fatalf("ListAll remote down: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("ListAll remote down: want=2 got=%d", len(recs))
	}

	local.down = true
	if _, err := r.ListAll(ctx, kindSession, ListOptions{}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("ListAll all down: want ErrUnavailable got=%v", err)
	}
}

func TestResolverSyncLocalPushesMissingRecords(t *testing.T) {
	r, _, remote, local := newTestResolver(t, nil)
	ctx := context.Background()
	remote.down = true
	if _, err := r.Save(ctx, kindSession, schemacompat.Record{"id": "offline"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := r.SyncLocal(ctx, kindSession); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("SyncLocal remote down: want ErrUnavailable got=%v", err)
	}

	remote.down = false
	n, err := r.SyncLocal(ctx, kindSession)
	if err != nil || n != 1 {
		t.Fatalf("SyncLocal: want n=1 got n=%d err=%v", n, err)
	}
	if _, ok := remote.recs["session/offline"]; !ok {
		t.Fatalf("SyncLocal: record not pushed")
	}
	if len(local.recs) != 1 {
		t.Fatalf("SyncLocal: local copy should stay")
	}
}

func TestResolverSyncLocalPushesNewerLocalCopies(t *testing.T) {
	r, cache, remote, local := newTestResolver(t, nil)
	ctx := context.Background()
	if _, err := r.Save(ctx, kindSession, schemacompat.Record{"id": "s1", "status": "active", "updated_at": "2026-01-01T10:00:00Z"}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	remote.down = true
	if _, err := r.Save(ctx, kindSession, schemacompat.Record{"id": "s1", "status": "completed", "updated_at": "2026-01-01T11:00:00Z"}); err != nil {
		t.Fatalf("Save remote down: %v", err)
	}
	remote.down = false
	_ = cache.Purge(ctx)

	rec, ok, err := r.Get(ctx, kindSession, "s1")
	if err != nil || !ok || rec.String("status") != "completed" {
		t.Fatalf("Get before resync: want newer local copy, got ok=%v err=%v rec=%v", ok, err, rec)
	}
	recs, err := r.ListAll(ctx, kindSession, ListOptions{})
	if err != nil || len(recs) != 1 || recs[0].String("status") != "completed" {
		t.Fatalf("ListAll before resync: want completed, got err=%v recs=%v", err, recs)
	}

	n, err := r.SyncLocal(ctx, kindSession)
	if err != nil || n != 1 {
		t.Fatalf("SyncLocal: want n=1 got n=%d err=%v", n, err)
	}
	if got := remote.recs["session/s1"].String("status"); got != "completed" {
		t.Fatalf("SyncLocal: remote status want=completed got=%q", got)
	}
	if n, _ := r.SyncLocal(ctx, kindSession); n != 0 {
		t.Fatalf("SyncLocal again: want n=0 got=%d", n)
	}
}

func TestResolverInvalidationBus(t *testing.T) {
	bus := &fakeBus{}
	r, cache, _, _ := newTestResolver(t, bus)
	ctx := context.Background()
	if _, err := r.Save(ctx, kindSession, schemacompat.Record{"id": "s1"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if len(bus.msgs) != 1 || bus.msgs[0].ID != "s1" || bus.msgs[0].Origin != r.Origin() {
		t.Fatalf("publish: got=%+v", bus.msgs)
	}

	r.HandleInvalidation(ctx, Invalidation{Kind: kindSession, ID: "s1", Origin: r.Origin()})
	if cache.Len() != 1 {
		t.Fatalf("own invalidation should be ignored")
	}
	r.HandleInvalidation(ctx, Invalidation{Kind: kindSession, ID: "s1", Origin: "other"})
	if cache.Len() != 0 {
		t.Fatalf("foreign invalidation should drop cache entry")
	}
}

func TestNewResolverRequiresDurableTier(t *testing.T) {
	if _, err := NewResolver(nil, []Tier{{Name: "cache", Role: RoleCache, Store: NewMemoryCache(1, 0)}}, Options{}); err == nil {
		t.Fatalf("NewResolver: expected error without durable tier")
	}
}

type countingObserver struct {
	mu   sync.Mutex
	seen map[string]int
}

func (o *countingObserver) ObserveTier(tier, op, outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.seen[tier+"/"+op+"/"+outcome]++
}

func TestResolverObserverSeesFallback(t *testing.T) {
	log, _ := logger.New("test")
	remote, local := newFakeStore(), newFakeStore()
	obs := &countingObserver{seen: map[string]int{}}
	r, err := NewResolver(log, []Tier{
		{Name: "remote", Role: RoleRemote, Store: remote},
		{Name: "local", Role: RoleLocal, Store: local},
	}, Options{Observer: obs})
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	ctx := context.Background()
	remote.down = true
	if _, err := r.Save(ctx, kindSession, schemacompat.Record{"id": "s1"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, ok, _ := r.Get(ctx, kindSession, "s1"); !ok {
		t.Fatalf("Get: want hit")
	}
	want := map[string]int{
		"remote/save/error": 1,
		"local/save/ok":     1,
		"remote/get/error":  1,
		"local/get/hit":     1,
	}
	for k, n := range want {
		if obs.seen[k] != n {
			t.Fatalf("observer %s: want=%d got=%d (all=%v)", k, n, obs.seen[k], obs.seen)
		}
	}
}
