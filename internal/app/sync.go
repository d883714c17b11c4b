package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	devrepos "github.com/yungbote/devjourney-backend/internal/data/repos/development"
	"github.com/yungbote/devjourney-backend/internal/data/tiered"
	"github.com/yungbote/devjourney-backend/internal/observability"
	"github.com/yungbote/devjourney-backend/internal/platform/logger"
)

type localSyncer interface {
	SyncLocal(ctx context.Context, kind tiered.Kind) (int, error)
}

// syncAll pushes local-only records of every kind to the remote tiers.
// A failing kind does not stop the others.
func syncAll(ctx context.Context, log *logger.Logger, s localSyncer, metrics *observability.Metrics) (map[tiered.Kind]int, error) {
	pushed := make(map[tiered.Kind]int, len(devrepos.Kinds()))
	var errs []error
	for _, kind := range devrepos.Kinds() {
		if err := ctx.Err(); err != nil {
			return pushed, err
		}
		n, err := s.SyncLocal(ctx, kind)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		pushed[kind] = n
		metrics.AddSyncPushed(string(kind), n)
		if n > 0 {
			log.Info("synced local records", "kind", kind, "pushed", n)
		}
	}
	return pushed, errors.Join(errs...)
}

func runSyncLoop(ctx context.Context, log *logger.Logger, s localSyncer, metrics *observability.Metrics, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := syncAll(ctx, log, s, metrics); err != nil && ctx.Err() == nil {
				log.Debug("local sync skipped", "error", err)
			}
		}
	}
}

// SyncOnce runs one resync pass. It fails when no remote tier is configured.
func (a *App) SyncOnce(ctx context.Context) (map[tiered.Kind]int, error) {
	if a == nil || a.Repos.Resolver == nil {
		return nil, fmt.Errorf("app not initialized")
	}
	if a.Clients.Postgres == nil {
		return nil, fmt.Errorf("sync: no remote tier configured")
	}
	return syncAll(ctx, a.Log, a.Repos.Resolver, a.Metrics)
}
