package tiered

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/yungbote/devjourney-backend/internal/data/schemacompat"
	"github.com/yungbote/devjourney-backend/internal/platform/apierr"
	"github.com/yungbote/devjourney-backend/internal/platform/logger"
)

const defaultRemoteTimeout = 2 * time.Second

type Options struct {
	// RemoteTimeout bounds every remote-tier call. A timed-out call degrades
	// to the next tier instead of failing the operation.
	RemoteTimeout time.Duration
	// Bus fans cache invalidations out to other instances. Optional.
	Bus InvalidationPublisher
	// Observer receives one outcome per tier call. Optional.
	Observer TierObserver
}

// TierObserver is told the outcome ("hit", "miss", "ok", "error") of every
// tier call made for op ("get", "save").
type TierObserver interface {
	ObserveTier(tier, op, outcome string)
}

// Resolver reads and writes records across a prioritized list of tiers:
// cache tiers first, then remote, then the device-local durability floor.
type Resolver struct {
	log           *logger.Logger
	tiers         []Tier
	remoteTimeout time.Duration
	bus           InvalidationPublisher
	observer      TierObserver
	origin        string
	reads         singleflight.Group
	tracer        trace.Tracer
}

func NewResolver(baseLog *logger.Logger, tiers []Tier, opts Options) (*Resolver, error) {
	if baseLog == nil {
		baseLog = logger.Nop()
	}
	durable := 0
	seen := map[string]bool{}
	for _, t := range tiers {
		if t.Store == nil {
			return nil, fmt.Errorf("tier %q has no store", t.Name)
		}
		if seen[t.Name] {
			return nil, fmt.Errorf("duplicate tier name %q", t.Name)
		}
		seen[t.Name] = true
		if t.Role != RoleCache {
			durable++
		}
	}
	if durable == 0 {
		return nil, errors.New("resolver needs at least one remote or local tier")
	}
	timeout := opts.RemoteTimeout
	if timeout <= 0 {
		timeout = defaultRemoteTimeout
	}
	return &Resolver{
		log:           baseLog.With("service", "TieredResolver"),
		tiers:         append([]Tier(nil), tiers...),
		remoteTimeout: timeout,
		bus:           opts.Bus,
		observer:      opts.Observer,
		origin:        uuid.NewString(),
		tracer:        otel.Tracer("github.com/yungbote/devjourney-backend/internal/data/tiered"),
	}, nil
}

func (r *Resolver) observe(t Tier, op, outcome string) {
	if r.observer != nil {
		r.observer.ObserveTier(t.Name, op, outcome)
	}
}

// Origin identifies this resolver on the invalidation bus.
func (r *Resolver) Origin() string { return r.origin }

func (r *Resolver) tierCtx(ctx context.Context, t Tier) (context.Context, context.CancelFunc) {
	if t.Role == RoleRemote {
		return context.WithTimeout(ctx, r.remoteTimeout)
	}
	return ctx, func() {}
}

type getResult struct {
	rec schemacompat.Record
	ok  bool
}

// Get resolves kind/id through the tiers in priority order. A record absent
// from every reachable tier yields ok=false with a nil error; an error is
// returned only when a local tier failed and nothing else had the record.
func (r *Resolver) Get(ctx context.Context, kind Kind, id string) (schemacompat.Record, bool, error) {
	if id == "" {
		return nil, false, nil
	}
	v, err, _ := r.reads.Do(cacheKey(kind, id), func() (any, error) {
		rec, ok, err := r.get(ctx, kind, id)
		return getResult{rec: rec, ok: ok}, err
	})
	if err != nil {
		return nil, false, err
	}
	res := v.(getResult)
	if !res.ok {
		return nil, false, nil
	}
	return res.rec.Clone(), true, nil
}

func (r *Resolver) get(ctx context.Context, kind Kind, id string) (schemacompat.Record, bool, error) {
	ctx, span := r.tracer.Start(ctx, "tiered.Get", trace.WithAttributes(attribute.String("record.kind", string(kind))))
	defer span.End()

	var localErr error
	for i, t := range r.tiers {
		tctx, cancel := r.tierCtx(ctx, t)
		rec, err := t.Store.Get(tctx, kind, id)
		cancel()
		switch {
		case err == nil:
			r.observe(t, "get", "hit")
			out := schemacompat.ToExternal(rec)
			if t.Role == RoleRemote {
				out = r.preferNewerLocal(ctx, kind, out, i)
			}
			span.SetAttributes(attribute.String("tier.hit", t.Name))
			r.backfill(ctx, kind, out, i)
			return out, true, nil
		case errors.Is(err, ErrNotFound):
			r.observe(t, "get", "miss")
			continue
		case t.Role == RoleLocal:
			r.observe(t, "get", "error")
			r.log.Error("local store read failed", "tier", t.Name, "kind", kind, "id", id, "error", err)
			localErr = errors.Join(localErr, err)
		default:
			r.observe(t, "get", "error")
			r.log.Warn("tier read failed, falling back", "tier", t.Name, "role", t.Role.String(), "kind", kind, "id", id, "error", err)
		}
	}
	if localErr != nil {
		return nil, false, fmt.Errorf("resolve %s/%s: %w", kind, id, localErr)
	}
	return nil, false, nil
}

// preferNewerLocal returns the local copy of rec when it carries a later
// updated_at than the remote copy. That only happens for writes the remote
// missed while it was unreachable and that no resync has pushed yet.
func (r *Resolver) preferNewerLocal(ctx context.Context, kind Kind, rec schemacompat.Record, hitIndex int) schemacompat.Record {
	best := rec
	for _, t := range r.tiers[hitIndex+1:] {
		if t.Role != RoleLocal {
			continue
		}
		got, err := t.Store.Get(ctx, kind, rec.ID())
		if err != nil {
			continue
		}
		if updatedAt(got).After(updatedAt(best)) {
			best = schemacompat.ToExternal(got)
		}
	}
	return best
}

// backfill populates the cache tiers ranked above the tier that answered.
func (r *Resolver) backfill(ctx context.Context, kind Kind, rec schemacompat.Record, hitIndex int) {
	for _, t := range r.tiers[:hitIndex] {
		if t.Role != RoleCache {
			continue
		}
		if err := t.Store.Put(ctx, kind, rec); err != nil {
			r.log.Debug("cache backfill failed", "tier", t.Name, "kind", kind, "error", err)
		}
	}
}

// Save normalizes rec, writes it to cache tiers optimistically, attempts the
// remote tiers and always writes the local tiers. Remote failures are
// logged and swallowed; the call fails only when the durability floor (local
// tiers, or remote tiers when no local tier is configured) rejects the write.
func (r *Resolver) Save(ctx context.Context, kind Kind, rec schemacompat.Record) (schemacompat.Record, error) {
	id := rec.ID()
	if id == "" {
		return nil, apierr.Validation("missing_record_id", fmt.Errorf("save %s: record has no id", kind))
	}
	ctx, span := r.tracer.Start(ctx, "tiered.Save", trace.WithAttributes(attribute.String("record.kind", string(kind))))
	defer span.End()

	out := schemacompat.ToExternal(rec)
	hasLocal := r.hasRole(RoleLocal)
	floorOK := false
	var floorErr error

	for _, t := range r.tiers {
		tctx, cancel := r.tierCtx(ctx, t)
		err := t.Store.Put(tctx, kind, out)
		cancel()
		floor := t.Role == RoleLocal || (t.Role == RoleRemote && !hasLocal)
		if err == nil {
			r.observe(t, "save", "ok")
		} else {
			r.observe(t, "save", "error")
		}
		switch {
		case err == nil:
			if floor {
				floorOK = true
			}
		case floor:
			r.log.Error("durable write failed", "tier", t.Name, "kind", kind, "id", id, "error", err)
			floorErr = errors.Join(floorErr, err)
		case t.Role == RoleRemote:
			r.log.Warn("remote store write failed, local copy kept", "tier", t.Name, "kind", kind, "id", id, "error", err)
		default:
			r.log.Debug("cache write failed", "tier", t.Name, "kind", kind, "id", id, "error", err)
		}
	}
	if !floorOK {
		r.dropFromCaches(ctx, kind, id)
		if floorErr == nil {
			floorErr = ErrUnavailable
		}
		return nil, fmt.Errorf("save %s/%s: %w", kind, id, floorErr)
	}
	r.publish(ctx, Invalidation{Kind: kind, ID: id})
	return out.Clone(), nil
}

// Delete removes kind/id from every tier. Absence is not an error; remote
// failures are logged, local failures are returned.
func (r *Resolver) Delete(ctx context.Context, kind Kind, id string) error {
	var localErr error
	for _, t := range r.tiers {
		tctx, cancel := r.tierCtx(ctx, t)
		err := t.Store.Delete(tctx, kind, id)
		cancel()
		if err == nil || errors.Is(err, ErrNotFound) {
			continue
		}
		if t.Role == RoleLocal {
			localErr = errors.Join(localErr, err)
			continue
		}
		r.log.Warn("tier delete failed", "tier", t.Name, "role", t.Role.String(), "kind", kind, "id", id, "error", err)
	}
	r.publish(ctx, Invalidation{Kind: kind, ID: id})
	if localErr != nil {
		return fmt.Errorf("delete %s/%s: %w", kind, id, localErr)
	}
	return nil
}

// ListAll enumerates kind. Remote tiers are preferred when reachable; local
// records missing from the remote result are merged in. On an id clash the
// copy with the later updated_at wins and a tie goes to the remote copy, so
// writes made while the remote was down stay visible until the next resync.
// When no remote tier answers, the local tiers are enumerated alone.
func (r *Resolver) ListAll(ctx context.Context, kind Kind, opts ListOptions) ([]schemacompat.Record, error) {
	ctx, span := r.tracer.Start(ctx, "tiered.ListAll", trace.WithAttributes(attribute.String("record.kind", string(kind))))
	defer span.End()

	remote, remoteOK := r.listRole(ctx, kind, opts.Scope, RoleRemote)
	local, localOK := r.listRole(ctx, kind, opts.Scope, RoleLocal)
	if !remoteOK && !localOK {
		return nil, fmt.Errorf("list %s: %w", kind, ErrUnavailable)
	}

	index := make(map[string]int, len(remote)+len(local))
	merged := make([]schemacompat.Record, 0, len(remote)+len(local))
	add := func(recs []schemacompat.Record) {
		for _, rec := range recs {
			id := rec.ID()
			if id == "" {
				continue
			}
			if i, ok := index[id]; ok {
				if updatedAt(rec).After(updatedAt(merged[i])) {
					merged[i] = rec
				}
				continue
			}
			index[id] = len(merged)
			merged = append(merged, rec)
		}
	}
	if remoteOK {
		add(remote)
	}
	add(local)

	out := merged[:0]
	for _, rec := range merged {
		rec = schemacompat.ToExternal(rec)
		if !matchesScope(rec, opts.Scope) {
			continue
		}
		if opts.Match != nil && !opts.Match(rec) {
			continue
		}
		out = append(out, rec)
	}
	span.SetAttributes(attribute.Bool("remote.reachable", remoteOK), attribute.Int("result.count", len(out)))
	return out, nil
}

// updatedAt reads the updated_at stamp of rec. Records without a parseable
// stamp sort before every stamped record.
func updatedAt(rec schemacompat.Record) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, rec.String("updated_at"))
	if err != nil {
		return time.Time{}
	}
	return ts
}

func (r *Resolver) listRole(ctx context.Context, kind Kind, scope Scope, role Role) ([]schemacompat.Record, bool) {
	var recs []schemacompat.Record
	ok := false
	for _, t := range r.tiers {
		if t.Role != role {
			continue
		}
		lister, can := t.Store.(Lister)
		if !can {
			continue
		}
		tctx, cancel := r.tierCtx(ctx, t)
		got, err := lister.List(tctx, kind, scope)
		cancel()
		if err != nil {
			r.log.Warn("tier list failed", "tier", t.Name, "role", role.String(), "kind", kind, "error", err)
			continue
		}
		ok = true
		recs = append(recs, got...)
	}
	return recs, ok
}

// Invalidate drops kind/id from the cache tiers and tells other instances.
func (r *Resolver) Invalidate(ctx context.Context, kind Kind, id string) {
	r.dropFromCaches(ctx, kind, id)
	r.publish(ctx, Invalidation{Kind: kind, ID: id})
}

// Purge empties every cache tier and tells other instances.
func (r *Resolver) Purge(ctx context.Context) {
	r.purgeCaches(ctx)
	r.publish(ctx, Invalidation{All: true})
}

// HandleInvalidation applies an invalidation received from the bus.
// Messages this resolver published itself are ignored.
func (r *Resolver) HandleInvalidation(ctx context.Context, msg Invalidation) {
	if msg.Origin == r.origin {
		return
	}
	if msg.All {
		r.purgeCaches(ctx)
		return
	}
	r.dropFromCaches(ctx, msg.Kind, msg.ID)
}

// SyncLocal pushes local records to the remote tiers when the remote has no
// copy or holds an older one (by updated_at). It returns the number of
// records pushed.
func (r *Resolver) SyncLocal(ctx context.Context, kind Kind) (int, error) {
	remote, remoteOK := r.listRole(ctx, kind, Scope{}, RoleRemote)
	if !remoteOK {
		return 0, fmt.Errorf("sync %s: %w", kind, ErrUnavailable)
	}
	local, _ := r.listRole(ctx, kind, Scope{}, RoleLocal)
	known := make(map[string]time.Time, len(remote))
	for _, rec := range remote {
		if ts, ok := known[rec.ID()]; !ok || updatedAt(rec).After(ts) {
			known[rec.ID()] = updatedAt(rec)
		}
	}
	pushed := 0
	for _, rec := range local {
		if ts, ok := known[rec.ID()]; ok && !updatedAt(rec).After(ts) {
			continue
		}
		ok := false
		for _, t := range r.tiers {
			if t.Role != RoleRemote {
				continue
			}
			tctx, cancel := r.tierCtx(ctx, t)
			err := t.Store.Put(tctx, kind, schemacompat.ToExternal(rec))
			cancel()
			if err != nil {
				r.log.Warn("sync push failed", "tier", t.Name, "kind", kind, "id", rec.ID(), "error", err)
				continue
			}
			ok = true
		}
		if ok {
			pushed++
			r.Invalidate(ctx, kind, rec.ID())
		}
	}
	return pushed, nil
}

// Health pings every tier that supports it.
func (r *Resolver) Health(ctx context.Context) map[string]string {
	out := make(map[string]string, len(r.tiers))
	for _, t := range r.tiers {
		p, ok := t.Store.(Pinger)
		if !ok {
			out[t.Name] = "ok"
			continue
		}
		tctx, cancel := r.tierCtx(ctx, t)
		err := p.Ping(tctx)
		cancel()
		if err != nil {
			out[t.Name] = "unavailable"
			continue
		}
		out[t.Name] = "ok"
	}
	return out
}

func (r *Resolver) hasRole(role Role) bool {
	for _, t := range r.tiers {
		if t.Role == role {
			return true
		}
	}
	return false
}

func (r *Resolver) dropFromCaches(ctx context.Context, kind Kind, id string) {
	for _, t := range r.tiers {
		if t.Role != RoleCache {
			continue
		}
		if err := t.Store.Delete(ctx, kind, id); err != nil && !errors.Is(err, ErrNotFound) {
			r.log.Debug("cache invalidate failed", "tier", t.Name, "kind", kind, "error", err)
		}
	}
}

func (r *Resolver) purgeCaches(ctx context.Context) {
	for _, t := range r.tiers {
		if t.Role != RoleCache {
			continue
		}
		if p, ok := t.Store.(Purger); ok {
			if err := p.Purge(ctx); err != nil {
				r.log.Warn("cache purge failed", "tier", t.Name, "error", err)
			}
		}
	}
}

func (r *Resolver) publish(ctx context.Context, msg Invalidation) {
	if r.bus == nil {
		return
	}
	msg.Origin = r.origin
	if err := r.bus.Publish(ctx, msg); err != nil {
		r.log.Warn("invalidation publish failed", "kind", msg.Kind, "error", err)
	}
}
