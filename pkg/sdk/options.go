package factdex

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	backendURL string
	username   string
	password   string
	timeout    time.Duration
	compress   bool
	httpClient *http.Client

	cacheAddrs    []string
	cachePassword string
	cacheTTL      time.Duration
	cacheEntries  int

	scrollTTL      string
	dateLayout     string
	bulkPageSize   int
	maxPagesPerSec float64

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithBackend sets the search backend base URL.
func WithBackend(url string) Option {
	return optionFunc(func(c *clientConfig) {
		c.backendURL = url
	})
}

// WithBasicAuth sets backend credentials.
func WithBasicAuth(username, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.username = username
		c.password = password
	})
}

// WithTimeout sets the per-request backend timeout. Default: 30s.
func WithTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.timeout = d
	})
}

// WithCompression gzips bulk and multi-search request bodies.
func WithCompression() Option {
	return optionFunc(func(c *clientConfig) {
		c.compress = true
	})
}

// WithHTTPClient replaces the backend HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return optionFunc(func(c *clientConfig) {
		c.httpClient = hc
	})
}

// WithRemoteCache adds a shared Redis or Valkey tier behind the in-process
// fact cache.
func WithRemoteCache(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheAddrs = []string{addr}
		c.cachePassword = password
	})
}

// WithRemoteCacheTTL sets the expiry of shared cache entries. Default: 1h.
func WithRemoteCacheTTL(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheTTL = d
	})
}

// WithCacheSize sets the in-process fact cache capacity. Default: 10000.
func WithCacheSize(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheEntries = n
	})
}

// WithScrollTTL sets the cursor keep-alive, e.g. "3m".
func WithScrollTTL(ttl string) Option {
	return optionFunc(func(c *clientConfig) {
		c.scrollTTL = ttl
	})
}

// WithDateLayout sets the Go time layout of ExtremeDates. Default: 2006-01-02.
func WithDateLayout(layout string) Option {
	return optionFunc(func(c *clientConfig) {
		c.dateLayout = layout
	})
}

// WithBulkPageSize sets the cursor page size of bulk deletes. Default: 100.
func WithBulkPageSize(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.bulkPageSize = n
	})
}

// WithBulkThrottle caps bulk calls per second. Zero disables throttling.
func WithBulkThrottle(pagesPerSec float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxPagesPerSec = pagesPerSec
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
