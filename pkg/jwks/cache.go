// Package jwks fetches and caches JSON Web Key Sets from an identity
// provider's key set endpoint.
//
// The [Cache] keeps a read-mostly snapshot of the key set in memory and
// refreshes it from the remote endpoint when the snapshot expires or
// when a lookup misses (which typically signals key rotation at the
// provider). Concurrent refreshes are coalesced into a single fetch,
// and transient fetch failures are retried with exponential backoff.
package jwks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	acerr "github.com/verityhq/authcore/pkg/errors"
)

// tracerName is the OpenTelemetry instrumentation scope name for key
// cache spans.
const tracerName = "github.com/verityhq/authcore/pkg/jwks"

// maxResponseSize limits a key set response body to 1 MB.
const maxResponseSize = 1 << 20

// HTTPClient abstracts the HTTP client used for fetching key sets.
// This allows callers to provide custom HTTP clients with specific
// timeouts, transport settings, or middleware (e.g., for mTLS, proxy
// configuration, or request tracing).
//
// The standard [http.Client] satisfies this interface.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config holds the configuration for [Cache].
type Config struct {
	// URL is the key set endpoint to fetch from. Required.
	URL string `json:"url" yaml:"url" env:"URL" required:"true"`

	// TTL is how long a fetched key set is considered fresh. After the
	// TTL elapses, the next lookup triggers a refresh. Must be
	// non-negative. Defaults to 1 hour.
	TTL time.Duration `json:"ttl" yaml:"ttl" env:"TTL" envDefault:"1h"`

	// MinRefreshInterval throttles miss-triggered refreshes. When a
	// lookup misses against a fresh snapshot, the cache refetches to
	// pick up rotated keys, but never more often than this interval.
	// This caps the fetch rate an attacker can induce by sending tokens
	// with fabricated key IDs. Must be non-negative. Defaults to 30
	// seconds.
	MinRefreshInterval time.Duration `json:"min_refresh_interval" yaml:"min_refresh_interval" env:"MIN_REFRESH_INTERVAL" envDefault:"30s"`

	// FetchTimeout bounds a single fetch attempt, including connection
	// establishment and body read. Must be non-negative. Defaults to
	// 10 seconds.
	FetchTimeout time.Duration `json:"fetch_timeout" yaml:"fetch_timeout" env:"FETCH_TIMEOUT" envDefault:"10s"`

	// MaxRetries is the number of fetch attempts per refresh before
	// giving up. Must be greater than zero. Defaults to 3.
	MaxRetries int `json:"max_retries" yaml:"max_retries" env:"MAX_RETRIES" envDefault:"3"`

	// HTTPClient is the HTTP client used for fetching. If nil, a
	// default [http.Client] with FetchTimeout is used.
	HTTPClient HTTPClient `json:"-" yaml:"-"`
}

// Validate checks the configuration for logical correctness and returns
// a *[acerr.Error] with code [acerr.CodeValidation] if any field is
// invalid.
func (c *Config) Validate() error {
	if c.URL == "" {
		return acerr.New(acerr.CodeValidation, "jwks: key set URL must not be empty")
	}
	if c.TTL < 0 {
		return acerr.New(acerr.CodeValidation, "jwks: TTL must be non-negative")
	}
	if c.MinRefreshInterval < 0 {
		return acerr.New(acerr.CodeValidation, "jwks: minimum refresh interval must be non-negative")
	}
	if c.FetchTimeout < 0 {
		return acerr.New(acerr.CodeValidation, "jwks: fetch timeout must be non-negative")
	}
	if c.MaxRetries <= 0 {
		return acerr.New(acerr.CodeValidation, "jwks: max retries must be greater than zero")
	}
	return nil
}

// DefaultConfig returns a Config with production defaults. The URL must
// still be set by the caller.
func DefaultConfig() Config {
	return Config{
		TTL:                1 * time.Hour,
		MinRefreshInterval: 30 * time.Second,
		FetchTimeout:       10 * time.Second,
		MaxRetries:         3,
	}
}

// snapshot is an immutable view of a fetched key set. Lookups read a
// snapshot without locking its contents; refreshes build a new snapshot
// and swap the pointer under the cache mutex.
type snapshot struct {
	keys      map[string]Key
	fetchedAt time.Time
}

// Cache fetches, caches, and serves signing keys from a key set
// endpoint. It is safe for concurrent use by multiple goroutines.
//
// Lookup behavior on a key ID miss: if the snapshot is fresh, the cache
// refetches once (key rotation publishes new kids before tokens carry
// them), throttled by MinRefreshInterval; a second miss after a fresh
// fetch is a hard failure.
type Cache struct {
	cfg    Config
	client HTTPClient
	tracer trace.Tracer

	// group coalesces concurrent refreshes into a single fetch.
	group singleflight.Group

	mu          sync.RWMutex
	snap        *snapshot
	lastAttempt time.Time
}

// NewCache creates a key cache for the configured endpoint. The
// configuration is validated before use; an error is returned if the
// configuration is invalid. Zero-valued optional fields receive the
// [DefaultConfig] values. No fetch happens until the first lookup or
// an explicit [Cache.Refresh].
func NewCache(cfg Config) (*Cache, error) {
	defaults := DefaultConfig()
	if cfg.TTL == 0 {
		cfg.TTL = defaults.TTL
	}
	if cfg.MinRefreshInterval == 0 {
		cfg.MinRefreshInterval = defaults.MinRefreshInterval
	}
	if cfg.FetchTimeout == 0 {
		cfg.FetchTimeout = defaults.FetchTimeout
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaults.MaxRetries
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.FetchTimeout}
	}

	return &Cache{
		cfg:    cfg,
		client: client,
		tracer: otel.Tracer(tracerName),
	}, nil
}

// SigningKey returns the key matching the given key ID, fetching or
// refreshing the key set as needed.
//
// Returns a *[acerr.Error] with code [acerr.CodeKeyNotFound] when the
// key set does not contain the key ID, or [acerr.CodeKeyFetch] when the
// key set cannot be fetched.
func (c *Cache) SigningKey(ctx context.Context, kid string) (Key, error) {
	ctx, span := c.tracer.Start(ctx, "jwks.SigningKey",
		trace.WithAttributes(attribute.String("jwks.kid", kid)))
	defer span.End()

	if kid == "" {
		err := acerr.New(acerr.CodeKeyNotFound, "jwks: key ID must not be empty")
		spanError(span, err)
		return Key{}, err
	}

	c.mu.RLock()
	snap := c.snap
	lastAttempt := c.lastAttempt
	c.mu.RUnlock()

	fresh := snap != nil && time.Since(snap.fetchedAt) < c.cfg.TTL
	if fresh {
		if key, ok := snap.keys[kid]; ok {
			span.SetAttributes(attribute.Bool("jwks.cache_hit", true))
			return key, nil
		}
		// Miss against a fresh snapshot. Refetch to pick up rotated
		// keys, unless a fetch ran within the throttle window.
		if time.Since(lastAttempt) < c.cfg.MinRefreshInterval {
			err := acerr.Newf(acerr.CodeKeyNotFound,
				"jwks: key ID %q not found in key set from %s", kid, c.cfg.URL)
			spanError(span, err)
			return Key{}, err
		}
	}
	span.SetAttributes(attribute.Bool("jwks.cache_hit", false))

	keys, err := c.refresh(ctx)
	if err != nil {
		spanError(span, err)
		return Key{}, err
	}

	key, ok := keys[kid]
	if !ok {
		err := acerr.Newf(acerr.CodeKeyNotFound,
			"jwks: key ID %q not found in key set from %s", kid, c.cfg.URL)
		spanError(span, err)
		return Key{}, err
	}
	return key, nil
}

// Refresh forces an immediate fetch of the key set, replacing the
// cached snapshot on success. On failure the previous snapshot is kept.
func (c *Cache) Refresh(ctx context.Context) error {
	ctx, span := c.tracer.Start(ctx, "jwks.Refresh")
	defer span.End()

	_, err := c.refresh(ctx)
	if err != nil {
		spanError(span, err)
	}
	return err
}

// Invalidate discards the cached snapshot. The next lookup fetches a
// fresh key set. Use this when a provider signals its keys have been
// rotated out of band.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.snap = nil
	c.lastAttempt = time.Time{}
	c.mu.Unlock()
}

// KeyIDs returns the key IDs currently held in the cache, without
// triggering a fetch. Intended for diagnostics.
func (c *Cache) KeyIDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.snap == nil {
		return nil
	}
	ids := make([]string, 0, len(c.snap.keys))
	for kid := range c.snap.keys {
		ids = append(ids, kid)
	}
	return ids
}

// refresh fetches the key set and swaps in a new snapshot. Concurrent
// callers share a single in-flight fetch.
func (c *Cache) refresh(ctx context.Context) (map[string]Key, error) {
	v, err, _ := c.group.Do("refresh", func() (any, error) {
		c.mu.Lock()
		c.lastAttempt = time.Now()
		c.mu.Unlock()

		keys, err := c.fetchWithRetry(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.snap = &snapshot{keys: keys, fetchedAt: time.Now()}
		c.mu.Unlock()
		return keys, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(map[string]Key), nil
}

// fetchWithRetry fetches the key set with bounded exponential backoff.
// Context cancellation aborts the retry loop.
func (c *Cache) fetchWithRetry(ctx context.Context) (map[string]Key, error) {
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 250 * time.Millisecond
	expBackoff.MaxInterval = 2 * time.Second

	operation := func() (map[string]Key, error) {
		return c.fetchOnce(ctx)
	}

	keys, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(expBackoff),
		backoff.WithMaxTries(uint(c.cfg.MaxRetries)),
	)
	if err != nil {
		return nil, acerr.Wrapf(err, acerr.CodeKeyFetch,
			"jwks: failed to fetch key set from %s", c.cfg.URL)
	}
	return keys, nil
}

// fetchOnce performs a single HTTP fetch and parse of the key set.
func (c *Cache) fetchOnce(ctx context.Context) (map[string]Key, error) {
	fetchCtx := ctx
	if c.cfg.FetchTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, c.cfg.FetchTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, c.cfg.URL, nil)
	if err != nil {
		// A malformed URL will never succeed on retry.
		return nil, backoff.Permanent(fmt.Errorf("jwks: failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("jwks: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jwks: endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("jwks: failed to read response: %w", err)
	}

	var doc document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("jwks: failed to parse key set JSON: %w", err)
	}

	return doc.materialize(), nil
}

// spanError records an error on the span and sets the span status.
func spanError(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
