package app

import (
	"fmt"

	"github.com/yungbote/devjourney-backend/internal/clients/redis"
	devrepos "github.com/yungbote/devjourney-backend/internal/data/repos/development"
	"github.com/yungbote/devjourney-backend/internal/data/repos/records"
	"github.com/yungbote/devjourney-backend/internal/data/tiered"
	"github.com/yungbote/devjourney-backend/internal/observability"
	"github.com/yungbote/devjourney-backend/internal/platform/logger"
)

const (
	TierCache  = "cache"
	TierRemote = "remote"
	TierLocal  = "local"
)

type Repos struct {
	Resolver    *tiered.Resolver
	Bus         redis.InvalidationBus
	Sessions    devrepos.SessionRepo
	Responses   devrepos.ResponseRepo
	Assessments devrepos.AssessmentRepo
}

// buildTiers orders the tiers fastest first: cache, remote, local.
func buildTiers(log *logger.Logger, cfg Config, clients Clients) []tiered.Tier {
	var tiers []tiered.Tier
	switch {
	case cfg.CacheBackend == "redis" && clients.Redis != nil:
		tiers = append(tiers, tiered.Tier{Name: TierCache, Role: tiered.RoleCache, Store: redis.NewCache(log, clients.Redis, cfg.CacheTTL)})
	case cfg.CacheBackend != "none" && cfg.CacheSize > 0:
		tiers = append(tiers, tiered.Tier{Name: TierCache, Role: tiered.RoleCache, Store: tiered.NewMemoryCache(cfg.CacheSize, cfg.CacheTTL)})
	}
	if clients.Postgres != nil {
		tiers = append(tiers, tiered.Tier{Name: TierRemote, Role: tiered.RoleRemote, Store: records.NewRecordStore(clients.Postgres.DB(), log, TierRemote)})
	}
	if clients.SQLite != nil {
		tiers = append(tiers, tiered.Tier{Name: TierLocal, Role: tiered.RoleLocal, Store: records.NewRecordStore(clients.SQLite.DB(), log, TierLocal)})
	}
	return tiers
}

func wireRepos(log *logger.Logger, cfg Config, clients Clients, metrics *observability.Metrics) (Repos, error) {
	log.Info("Wiring repos...")
	var out Repos
	opts := tiered.Options{RemoteTimeout: cfg.RemoteTimeout}
	if metrics != nil {
		opts.Observer = metrics
	}
	if clients.Redis != nil {
		bus, err := redis.NewInvalidationBus(log, clients.Redis, cfg.RedisChannel)
		if err != nil {
			return Repos{}, fmt.Errorf("init invalidation bus: %w", err)
		}
		out.Bus = bus
		opts.Bus = bus
	}

	resolver, err := tiered.NewResolver(log, buildTiers(log, cfg, clients), opts)
	if err != nil {
		return Repos{}, fmt.Errorf("init resolver: %w", err)
	}
	out.Resolver = resolver
	out.Sessions = devrepos.NewSessionRepo(resolver, log)
	out.Responses = devrepos.NewResponseRepo(resolver, log)
	out.Assessments = devrepos.NewAssessmentRepo(resolver, log)
	return out, nil
}
