// Package control wires configuration into a running engine: storage
// selection, cache tiers, the fetch orchestrator, the observability server,
// and the background workers.
package control

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"

	"github.com/vietddude/aggregator/internal/core/config"
	"github.com/vietddude/aggregator/internal/core/domain"
	"github.com/vietddude/aggregator/internal/engine/health"
	"github.com/vietddude/aggregator/internal/engine/orchestrator"
	"github.com/vietddude/aggregator/internal/engine/registry"
	"github.com/vietddude/aggregator/internal/engine/selector"
	"github.com/vietddude/aggregator/internal/engine/stats"
	"github.com/vietddude/aggregator/internal/infra/adapter"
	"github.com/vietddude/aggregator/internal/infra/cache"
	redisclient "github.com/vietddude/aggregator/internal/infra/redis"
	"github.com/vietddude/aggregator/internal/infra/storage"
	"github.com/vietddude/aggregator/internal/infra/storage/memory"
	"github.com/vietddude/aggregator/internal/infra/storage/postgres"
	"github.com/vietddude/aggregator/internal/metrics"
	"github.com/vietddude/aggregator/internal/server"
)

// Service is the main application struct that manages the engine lifecycle.
type Service struct {
	cfg          *config.AppConfig
	registry     *registry.Registry
	tracker      *health.Tracker
	orchestrator *orchestrator.Orchestrator
	ring         *stats.Ring
	attemptRepo  storage.AttemptRepository
	obsServer    *server.Server
	warmers      []*Warmer
	db           *postgres.DB
	redisClient  *redis.Client
	log          *slog.Logger
}

// NewService creates a Service with all dependencies initialized.
func NewService(cfg *config.AppConfig) (*Service, error) {
	log := slog.Default()

	// 1. Storage: Postgres journal when configured, memory otherwise.
	var attemptRepo storage.AttemptRepository
	var db *postgres.DB

	if cfg.Database.Enabled() {
		var err error
		db, err = postgres.NewDB(context.Background(), cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}

		if err := goose.SetDialect("postgres"); err != nil {
			return nil, err
		}
		if err := goose.Up(db.DB.DB, "migrations"); err != nil {
			return nil, fmt.Errorf("failed to migrate db: %w", err)
		}

		attemptRepo = postgres.NewAttemptRepo(db)
		log.Info("Using PostgreSQL attempt journal")
	} else {
		attemptRepo = memory.NewAttemptRepo(0)
		log.Info("Using memory attempt journal")
	}

	// 2. Cache tiers: in-process memory, optionally layered over Redis.
	clk := clock.New()
	memTier := cache.NewMemory(cfg.Cache.MaxEntries, clk)
	var store cache.Store = memTier
	var redisClient *redis.Client

	if cfg.Redis.Enabled() {
		var err error
		redisClient, err = redisclient.NewClient(cfg.Redis)
		if err != nil {
			log.Warn("Failed to connect to Redis, using memory cache only", "error", err)
		} else {
			l2 := cache.NewRedis(redisClient, cfg.Cache.Retention, clk)
			store = cache.NewLayered(memTier, l2, log)
			log.Info("Using layered memory+redis cache")
		}
	}

	// 3. Engine core.
	reg, err := registry.New(cfg.Resources())
	if err != nil {
		return nil, fmt.Errorf("invalid resource pool: %w", err)
	}

	tracker := health.NewTracker(health.Config{
		FailureThreshold:  cfg.Engine.FailureThreshold,
		FailureCooldown:   cfg.Engine.FailureCooldown,
		RateLimitCooldown: cfg.Engine.RateLimitCooldown,
	}, clk)

	strategy := selector.NewExploreStrategy(cfg.Engine.ExploreChance, cfg.Engine.ExploreTopN, nil)
	sel := selector.New(reg, tracker, strategy)

	ring := stats.NewRing(0)
	recorder := stats.Multi{ring, storage.NewJournal(attemptRepo, log)}

	orch := orchestrator.New(sel, tracker, store, adapter.NewHTTP(), recorder, clk, log)
	orch.Configure(categorySettings(cfg))

	// 4. Observability surface and warmers.
	obsServer := server.NewServer(reg, tracker, ring, cfg.Server.Port)

	var warmers []*Warmer
	for _, cc := range cfg.Categories {
		if cc.WarmInterval > 0 && len(cc.Warm) > 0 {
			warmers = append(warmers, NewWarmer(orch, cc.Name, cc.Warm, cc.WarmInterval, log))
		}
	}

	return &Service{
		cfg:          cfg,
		registry:     reg,
		tracker:      tracker,
		orchestrator: orch,
		ring:         ring,
		attemptRepo:  attemptRepo,
		obsServer:    obsServer,
		warmers:      warmers,
		db:           db,
		redisClient:  redisClient,
		log:          log,
	}, nil
}

func categorySettings(cfg *config.AppConfig) map[domain.Category]orchestrator.CategorySettings {
	settings := make(map[domain.Category]orchestrator.CategorySettings, len(cfg.Categories))
	for _, cc := range cfg.Categories {
		settings[cc.Name] = orchestrator.CategorySettings{
			TTL:            cc.TTL,
			AttemptTimeout: cc.AttemptTimeout,
			MaxAttempts:    cc.MaxAttempts,
		}
	}
	return settings
}

// Orchestrator exposes the fetch API to embedding callers.
func (s *Service) Orchestrator() *orchestrator.Orchestrator {
	return s.orchestrator
}

// Start starts the observability server and background workers.
func (s *Service) Start(ctx context.Context) error {
	go func() {
		if err := s.obsServer.Start(); err != nil {
			s.log.Error("Observability server failed", "error", err)
		}
	}()

	for _, w := range s.warmers {
		s.log.Info("Starting cache warmer", "category", w.Category())
		go w.Run(ctx)
	}

	go s.runCooldownGauge(ctx)
	go s.runJournalPruner(ctx)

	s.log.Info("Aggregator started",
		"resources", s.registry.Len(),
		"categories", len(s.registry.Categories()),
		"port", s.cfg.Server.Port,
	)
	return nil
}

// Stop stops the service.
func (s *Service) Stop(ctx context.Context) error {
	s.log.Info("Stopping aggregator...")

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			s.log.Warn("Failed to close Redis", "error", err)
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.log.Warn("Failed to close database", "error", err)
		}
	}

	return s.obsServer.Stop(ctx)
}

// Reload re-reads configuration from path and swaps in the new resource pool
// and per-category settings. In-flight fetches finish against the old
// snapshot; health state survives for resources that keep their IDs.
func (s *Service) Reload(path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("reload rejected: %w", err)
	}

	if err := s.registry.Swap(cfg.Resources()); err != nil {
		return fmt.Errorf("reload rejected: %w", err)
	}
	s.orchestrator.Configure(categorySettings(cfg))

	s.log.Info("Configuration reloaded",
		"resources", s.registry.Len(),
		"categories", len(s.registry.Categories()),
	)
	return nil
}

// runCooldownGauge keeps the cooldown gauge current while nothing fetches.
func (s *Service) runCooldownGauge(ctx context.Context) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.ResourcesInCooldown.Set(float64(s.tracker.InCooldown()))
		}
	}
}

// runJournalPruner bounds the durable journal to the cache retention window.
func (s *Service) runJournalPruner(ctx context.Context) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-s.cfg.Cache.Retention)
			removed, err := s.attemptRepo.Prune(ctx, cutoff)
			if err != nil {
				s.log.Warn("Journal prune failed", "error", err)
				continue
			}
			if removed > 0 {
				s.log.Debug("Pruned attempt journal", "removed", removed)
			}
		}
	}
}
