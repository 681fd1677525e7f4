package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/factdex/internal/cache"
	"github.com/kailas-cloud/factdex/internal/config"
	"github.com/kailas-cloud/factdex/internal/db/es"
	dbRedis "github.com/kailas-cloud/factdex/internal/db/redis"
	"github.com/kailas-cloud/factdex/internal/domain"
	logpkg "github.com/kailas-cloud/factdex/internal/logger"
	"github.com/kailas-cloud/factdex/internal/metrics"
	"github.com/kailas-cloud/factdex/internal/repository/factcache"
	adminuc "github.com/kailas-cloud/factdex/internal/usecase/admin"
	bulkuc "github.com/kailas-cloud/factdex/internal/usecase/bulk"
	factsuc "github.com/kailas-cloud/factdex/internal/usecase/facts"
	healthuc "github.com/kailas-cloud/factdex/internal/usecase/health"
	"github.com/kailas-cloud/factdex/internal/usecase/session"
	"github.com/kailas-cloud/factdex/internal/version"
)

// app is the composition root shared by every command.
type app struct {
	env     string
	cfg     config.Config
	logger  *zap.Logger
	backend *es.Client
	remote  *dbRedis.Store
	facts   *factsuc.Service
	bulk    *bulkuc.Service
	admin   *adminuc.Service
	health  *healthuc.Service
}

func newApp(ctx context.Context, env string) (*app, error) {
	cfg, err := config.Load(env)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	metrics.Register()

	backend, err := es.New(es.Config{
		URL:      cfg.Backend.URL,
		Username: cfg.Backend.Username,
		Password: cfg.Backend.Password,
		Timeout:  time.Duration(cfg.Backend.TimeoutSec) * time.Second,
		Compress: cfg.Backend.Compress,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create backend client: %w", err)
	}

	a := &app{env: env, cfg: cfg, logger: logger, backend: backend}

	local := cache.NewRecency(
		cache.WithLimit(cfg.Cache.MaxEntries),
		cache.WithMetrics(metrics.CacheEntries, metrics.CacheEvictionsTotal),
	)
	factOpts := []factsuc.Option{
		factsuc.WithCacheMetrics(metrics.FactCacheTotal),
		factsuc.WithLogger(logger),
	}

	// Pass a nil interface, not a typed nil store, when the remote tier is off.
	var cachePinger healthuc.Pinger
	if cfg.RemoteCache.Enabled {
		remote, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.RemoteCache.Addrs,
			Username: cfg.RemoteCache.Username,
			Password: cfg.RemoteCache.Password,
			DB:       cfg.RemoteCache.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("create remote cache: %w", err)
		}
		timeout := time.Duration(cfg.RemoteCache.ReadinessTimeout) * time.Second
		if err := remote.WaitForReady(ctx, timeout); err != nil {
			remote.Close()
			return nil, fmt.Errorf("remote cache not ready: %w", err)
		}
		a.remote = remote
		cachePinger = remote
		ttl := time.Duration(cfg.RemoteCache.TTLSec) * time.Second
		factOpts = append(factOpts, factsuc.WithRemote(
			factcache.New(remote, ttl, metrics.FactCacheTotal, logger),
		))
		logger.Info("Connected to remote cache", zap.Strings("addrs", cfg.RemoteCache.Addrs))
	}

	a.facts = factsuc.New(backend, local, factOpts...)
	a.bulk = bulkuc.New(backend,
		bulkuc.WithPageSize(cfg.Bulk.PageSize),
		bulkuc.WithMaxPagesPerSecond(cfg.Bulk.MaxPagesPerSec),
		bulkuc.WithLogger(logger),
	)
	a.admin = adminuc.New(backend, logger)
	a.health = healthuc.New(backend, cachePinger)

	logger.Debug("factdex initialized",
		zap.String("version", version.Version),
		zap.String("env", env),
		zap.String("backend", cfg.Backend.URL),
		zap.Bool("remote_cache", cfg.RemoteCache.Enabled),
	)
	return a, nil
}

// session opens a session over datasets with the configured defaults.
func (a *app) session(datasets []domain.Dataset, logger *zap.Logger) *session.Session {
	return session.New(a.backend, a.facts, a.bulk, datasets,
		session.WithDateLayout(a.cfg.Backend.DateFormat),
		session.WithScrollTTL(a.cfg.Scroll.TTL),
		session.WithLogger(logger),
	)
}

func (a *app) close() {
	if a.remote != nil {
		a.remote.Close()
	}
	_ = a.logger.Sync()
}

// withApp builds the app for one command run and releases it afterwards.
func withApp(ctx context.Context, env string, fn func(a *app) error) error {
	a, err := newApp(ctx, env)
	if err != nil {
		return err
	}
	defer a.close()
	return fn(a)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
