package factdex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/factdex/internal/cache"
	"github.com/kailas-cloud/factdex/internal/db/es"
	dbRedis "github.com/kailas-cloud/factdex/internal/db/redis"
	"github.com/kailas-cloud/factdex/internal/repository/factcache"
	adminuc "github.com/kailas-cloud/factdex/internal/usecase/admin"
	bulkuc "github.com/kailas-cloud/factdex/internal/usecase/bulk"
	factsuc "github.com/kailas-cloud/factdex/internal/usecase/facts"
	healthuc "github.com/kailas-cloud/factdex/internal/usecase/health"
	"github.com/kailas-cloud/factdex/internal/usecase/session"
)

const defaultReadinessTimeout = 10 * time.Second

// Client is the factdex SDK entry point.
type Client struct {
	backend   *es.Client
	remote    *dbRedis.Store
	local     *cache.Recency
	factsSvc  *factsuc.Service
	bulkSvc   *bulkuc.Service
	adminSvc  *adminuc.Service
	healthSvc healthUseCase
	sessOpts  []session.Option
	obs       *observer
}

// New creates a factdex Client. When a remote cache is configured the
// provided context bounds its readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.backendURL == "" {
		return nil, errors.New("factdex: backend url required (use WithBackend)")
	}

	backend, err := es.New(es.Config{
		URL:        cfg.backendURL,
		Username:   cfg.username,
		Password:   cfg.password,
		Timeout:    cfg.timeout,
		Compress:   cfg.compress,
		HTTPClient: cfg.httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("factdex: create backend client: %w", err)
	}

	var remote *dbRedis.Store
	if len(cfg.cacheAddrs) > 0 {
		remote, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.cacheAddrs,
			Password: cfg.cachePassword,
		})
		if err != nil {
			return nil, fmt.Errorf("factdex: create remote cache: %w", err)
		}
		if err := remote.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			remote.Close()
			return nil, fmt.Errorf("factdex: remote cache not ready: %w", err)
		}
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		if remote != nil {
			remote.Close()
		}
		return nil, err
	}
	return wireClient(backend, remote, cfg, obs), nil
}

func wireClient(backend *es.Client, remote *dbRedis.Store, cfg *clientConfig, obs *observer) *Client {
	var localOpts []cache.Option
	if cfg.cacheEntries > 0 {
		localOpts = append(localOpts, cache.WithLimit(cfg.cacheEntries))
	}
	local := cache.NewRecency(localOpts...)

	var factOpts []factsuc.Option
	// health takes an interface; a typed nil store must not reach it.
	var cachePinger healthuc.Pinger
	if remote != nil {
		factOpts = append(factOpts, factsuc.WithRemote(factcache.New(remote, cfg.cacheTTL, nil, nil)))
		cachePinger = remote
	}

	var bulkOpts []bulkuc.Option
	if cfg.bulkPageSize > 0 {
		bulkOpts = append(bulkOpts, bulkuc.WithPageSize(cfg.bulkPageSize))
	}
	if cfg.maxPagesPerSec > 0 {
		bulkOpts = append(bulkOpts, bulkuc.WithMaxPagesPerSecond(cfg.maxPagesPerSec))
	}

	var sessOpts []session.Option
	if cfg.dateLayout != "" {
		sessOpts = append(sessOpts, session.WithDateLayout(cfg.dateLayout))
	}
	if cfg.scrollTTL != "" {
		sessOpts = append(sessOpts, session.WithScrollTTL(cfg.scrollTTL))
	}

	return &Client{
		backend:   backend,
		remote:    remote,
		local:     local,
		factsSvc:  factsuc.New(backend, local, factOpts...),
		bulkSvc:   bulkuc.New(backend, bulkOpts...),
		adminSvc:  adminuc.New(backend, nil),
		healthSvc: healthuc.New(backend, cachePinger),
		sessOpts:  sessOpts,
		obs:       obs,
	}
}

// Close releases all resources.
func (c *Client) Close() {
	if c.remote != nil {
		c.remote.Close()
	}
}

// Ping checks backend connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, noDocs, err) }()

	if err = c.backend.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// ClearFactCache drops every in-process fact lookup.
func (c *Client) ClearFactCache() {
	c.local.Clear()
}

// Session opens a query session over the given datasets.
func (c *Client) Session(datasets ...Dataset) *Session {
	return &Session{
		inner: session.New(c.backend, c.factsSvc, c.bulkSvc, datasets, c.sessOpts...),
		obs:   c.obs,
	}
}

// Indices returns the index administration service.
func (c *Client) Indices() *IndexService {
	return &IndexService{svc: c.adminSvc, obs: c.obs}
}
