package cmd

import (
	"context"
	"fmt"
	"time"

	"elective-allocation/internal/allocation"
	"elective-allocation/internal/api/handlers"
	"elective-allocation/internal/config"
	"elective-allocation/internal/infrastructure/cache"
	"elective-allocation/internal/infrastructure/database"
	"elective-allocation/internal/infrastructure/mongostore"
	"elective-allocation/internal/infrastructure/notify"
	"elective-allocation/internal/infrastructure/queue"
	"elective-allocation/internal/infrastructure/report"
	"elective-allocation/internal/infrastructure/repository"
	interfaces "elective-allocation/internal/interfaces/infrastructure"
	"elective-allocation/internal/service"
	"elective-allocation/pkg/logger"
	"elective-allocation/pkg/token"
	"elective-allocation/pkg/tracing"
)

// components is everything a command needs, built once from the config.
type components struct {
	cfg *config.Config

	repos         interfaces.Repositories
	cache         interfaces.CacheService
	notifier      interfaces.Notifier
	notifications interfaces.NotificationQueue

	allocations    *service.AllocationService
	snapshots      *service.SnapshotService
	preferences    *service.PreferenceService
	changeRequests *service.ChangeRequestService
	idempotency    *service.IdempotencyService
	tokens         *token.Manager

	health  map[string]handlers.HealthCheckFunc
	closers []func(context.Context) error
}

type buildOptions struct {
	strategy  string
	maxRounds int
}

func buildComponents(ctx context.Context, cfg *config.Config, opts buildOptions) (*components, error) {
	c := &components{
		cfg:    cfg,
		health: make(map[string]handlers.HealthCheckFunc),
	}

	if cfg.Tracing.Enabled {
		shutdown, err := tracing.Init(cfg.App.Name, cfg.App.Version, cfg.Tracing.Output)
		if err != nil {
			return nil, fmt.Errorf("failed to init tracing: %w", err)
		}
		c.closers = append(c.closers, shutdown)
	}

	if err := c.buildStore(ctx); err != nil {
		c.close()
		return nil, err
	}
	c.buildCache()
	c.buildNotifications()

	strategyName := cfg.Allocation.Strategy
	if opts.strategy != "" {
		strategyName = opts.strategy
	}
	maxRounds := cfg.Allocation.MaxRounds
	if opts.maxRounds > 0 {
		maxRounds = opts.maxRounds
	}
	strategy, err := allocation.NewStrategy(strategyName, maxRounds)
	if err != nil {
		c.close()
		return nil, err
	}

	lockTTL := cfg.Allocation.RunLockTTL()
	c.snapshots = service.NewSnapshotService(c.repos, c.cache, c.cache, lockTTL)

	allocOpts := []service.AllocationOption{
		service.WithRunLockTTL(lockTTL),
		service.WithNotifications(c.notifications),
	}
	if cfg.Report.Enabled {
		allocOpts = append(allocOpts, service.WithReporter(report.NewCSVReporter(cfg.Report.Dir)))
	}
	c.allocations = service.NewAllocationService(c.repos, c.snapshots, strategy, c.cache, c.cache, allocOpts...)
	c.preferences = service.NewPreferenceService(c.repos, cfg.Allocation.MaxPreferences)
	c.changeRequests = service.NewChangeRequestService(c.repos, c.notifications)
	c.idempotency = service.NewIdempotencyService(c.cache, cfg.Server.IdempotencyTTL())
	c.tokens = token.NewManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL())

	logger.Info("Components ready (store=%s, cache=%s, strategy=%s)",
		cfg.Database.Driver, cfg.Cache.Type, strategy.Name())
	return c, nil
}

func (c *components) buildStore(ctx context.Context) error {
	switch c.cfg.Database.Driver {
	case "postgres":
		db, err := database.NewConnection(c.cfg.Database)
		if err != nil {
			return err
		}
		c.repos = repository.NewRepositories(db)
		c.health["database"] = func(ctx context.Context) error { return database.HealthCheck(ctx, db) }
		c.closers = append(c.closers, func(context.Context) error { return database.Close(db) })
	case "mongo":
		store, err := mongostore.Connect(ctx, c.cfg.Database.URI, c.cfg.Database.Name, c.cfg.Database.MongoTransactions)
		if err != nil {
			return err
		}
		c.repos = store.Repositories()
		c.health["database"] = store.Health
		c.closers = append(c.closers, store.Close)
	case "memory":
		logger.Warn("Using in-memory store, data is lost on exit")
		c.repos = repository.NewMemoryRepositories()
	default:
		return fmt.Errorf("unknown database driver %q", c.cfg.Database.Driver)
	}
	return nil
}

func (c *components) buildCache() {
	if c.cfg.Cache.Type == "memory" {
		c.cache = cache.NewMemoryCache()
	} else {
		c.cache = cache.NewRedisCache(c.cfg.Cache.Addr(), c.cfg.Cache.Password, c.cfg.Cache.DB)
	}
	c.health["cache"] = c.cache.Health
	c.closers = append(c.closers, func(context.Context) error { return c.cache.Close() })
}

func (c *components) buildNotifications() {
	ncfg := c.cfg.Notification

	switch ncfg.Type {
	case "amqp":
		c.notifier = notify.NewAMQPNotifier(ncfg.AMQPURL, ncfg.Queue)
	case "none":
		c.notifier = notify.NopNotifier{}
	default:
		c.notifier = notify.LogNotifier{}
	}

	redisCache, isRedis := c.cache.(*cache.RedisCache)
	switch {
	case ncfg.Backend == "redis" && isRedis:
		c.notifications = queue.NewRedisQueue(redisCache.Client(), ncfg.Workers, c.notifier)
	case ncfg.Backend == "redis":
		logger.Warn("Redis notification backend needs a redis cache, falling back to memory")
		fallthrough
	default:
		c.notifications = queue.NewInMemoryQueue(ncfg.BufferSize, ncfg.Workers, c.notifier)
	}
}

// close releases resources in reverse order of acquisition.
func (c *components) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if c.notifier != nil {
		if err := c.notifier.Close(); err != nil {
			logger.Warn("Failed to close notifier: %v", err)
		}
	}
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](ctx); err != nil {
			logger.Warn("Failed to release resource: %v", err)
		}
	}
}
