// Package revocation provides a Redis-backed token denylist.
//
// Tokens are recorded by their SHA-256 hash (see auth.TokenHash); the raw
// token never reaches Redis. Each entry carries a TTL equal to the token's
// remaining lifetime, so the denylist is self-pruning: once a token would
// have expired anyway, its entry disappears and costs nothing.
//
// The [List] type implements auth.RevocationList, so it plugs directly
// into an auth.RevocableProvider:
//
//	list, err := revocation.NewList(ctx, *cfg)
//	if err != nil {
//	    return err
//	}
//	defer list.Close()
//
//	provider, err := auth.NewRevocableProvider(inner, list)
package revocation

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/verityhq/authcore/pkg/auth"
	acerr "github.com/verityhq/authcore/pkg/errors"
)

var _ auth.RevocationList = (*List)(nil)

// tracerName is the OpenTelemetry instrumentation scope name for this
// package, following the Go module path convention.
const tracerName = "github.com/verityhq/authcore/pkg/store/revocation"

// Cmdable defines the Redis operations the denylist depends on. It is
// satisfied by [*redis.Client] and by fakes, enabling dependency injection
// via [NewFromClient] for unit tests without a Redis instance.
type Cmdable interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	TTL(ctx context.Context, key string) *redis.DurationCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

var _ Cmdable = (*redis.Client)(nil)

// List is a Redis-backed token denylist. It is safe for concurrent use;
// create one List per Redis instance and share it.
type List struct {
	client    Cmdable
	keyPrefix string
	tracer    trace.Tracer
}

// NewList creates a List with its own Redis connection. It validates the
// configuration and verifies connectivity with a ping. The caller must
// call [List.Close] when done.
//
// Error codes returned:
//   - [acerr.CodeValidation]: invalid configuration
//   - [acerr.CodeUnavailableDependency]: cannot connect to Redis
func NewList(ctx context.Context, cfg Config) (*List, error) {
	if err := cfg.Validate(); err != nil {
		return nil, acerr.Wrap(err, acerr.CodeValidation,
			"revocation: invalid configuration")
	}

	var opts *redis.Options
	if cfg.URI != "" {
		var err error
		opts, err = redis.ParseURL(cfg.URI)
		if err != nil {
			return nil, acerr.Wrap(err, acerr.CodeValidation,
				"revocation: failed to parse connection URI")
		}
		opts.PoolSize = cfg.PoolSize
		if cfg.DialTimeout > 0 {
			opts.DialTimeout = cfg.DialTimeout
		}
		if cfg.ReadTimeout > 0 {
			opts.ReadTimeout = cfg.ReadTimeout
		}
		if cfg.WriteTimeout > 0 {
			opts.WriteTimeout = cfg.WriteTimeout
		}
	} else {
		opts = &redis.Options{
			Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Password:     cfg.Password.Value(),
			DB:           cfg.DB,
			PoolSize:     cfg.PoolSize,
			DialTimeout:  cfg.DialTimeout,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		}
		if cfg.TLSEnabled {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, acerr.Wrap(err, acerr.CodeUnavailableDependency,
			"revocation: failed to connect to redis")
	}

	return &List{
		client:    rdb,
		keyPrefix: cfg.KeyPrefix,
		tracer:    otel.Tracer(tracerName),
	}, nil
}

// NewFromClient creates a List with a pre-existing [Cmdable]. Intended for
// tests with fakes and for callers that manage the client themselves. An
// empty keyPrefix falls back to [DefaultKeyPrefix].
func NewFromClient(client Cmdable, keyPrefix string) *List {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	return &List{
		client:    client,
		keyPrefix: keyPrefix,
		tracer:    otel.Tracer(tracerName),
	}
}

// Revoke records a token hash as revoked for the given duration. A
// non-positive ttl is a no-op: the token has already expired and needs no
// denylist entry.
func (l *List) Revoke(ctx context.Context, tokenHash string, ttl time.Duration) error {
	ctx, span := l.startSpan(ctx, "Revoke")
	span.SetAttributes(attribute.String("ttl", ttl.String()))

	if tokenHash == "" {
		err := acerr.New(acerr.CodeValidation, "revocation: token hash must not be empty")
		finishSpan(span, err)
		return err
	}
	if ttl <= 0 {
		finishSpan(span, nil)
		return nil
	}

	err := l.client.Set(ctx, l.key(tokenHash), "1", ttl).Err()
	finishSpan(span, err)
	if err != nil {
		return wrapListError(err, "revocation: failed to record token")
	}
	return nil
}

// IsRevoked reports whether a token hash has been revoked. Entries whose
// TTL has elapsed no longer exist and report false.
func (l *List) IsRevoked(ctx context.Context, tokenHash string) (bool, error) {
	ctx, span := l.startSpan(ctx, "IsRevoked")

	if tokenHash == "" {
		err := acerr.New(acerr.CodeValidation, "revocation: token hash must not be empty")
		finishSpan(span, err)
		return false, err
	}

	n, err := l.client.Exists(ctx, l.key(tokenHash)).Result()
	finishSpan(span, err)
	if err != nil {
		return false, wrapListError(err, "revocation: failed to check token")
	}
	return n > 0, nil
}

// Remove deletes a token hash from the denylist before its TTL elapses,
// un-revoking the token. Removing an absent hash is a no-op.
func (l *List) Remove(ctx context.Context, tokenHash string) error {
	ctx, span := l.startSpan(ctx, "Remove")

	err := l.client.Del(ctx, l.key(tokenHash)).Err()
	finishSpan(span, err)
	if err != nil {
		return wrapListError(err, "revocation: failed to remove token")
	}
	return nil
}

// RevokedFor returns the remaining time a token hash stays on the
// denylist, or zero when the hash is not listed.
func (l *List) RevokedFor(ctx context.Context, tokenHash string) (time.Duration, error) {
	ctx, span := l.startSpan(ctx, "RevokedFor")

	ttl, err := l.client.TTL(ctx, l.key(tokenHash)).Result()
	finishSpan(span, err)
	if err != nil {
		return 0, wrapListError(err, "revocation: failed to read token ttl")
	}
	// go-redis reports -2 for a missing key and -1 for a key without TTL.
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

// Health verifies that Redis is reachable. It applies
// [DefaultHealthTimeout] if the context has no deadline. Returns
// [acerr.CodeUnavailableDependency] on failure.
func (l *List) Health(ctx context.Context) error {
	ctx, span := l.startSpan(ctx, "Health")

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultHealthTimeout)
		defer cancel()
	}

	err := l.client.Ping(ctx).Err()
	finishSpan(span, err)
	if err != nil {
		return acerr.Wrap(err, acerr.CodeUnavailableDependency,
			"revocation: health check failed")
	}
	return nil
}

// Close releases the Redis connection. The list must not be used after
// Close.
func (l *List) Close() error {
	return l.client.Close()
}

// key namespaces a token hash under the configured prefix.
func (l *List) key(tokenHash string) string {
	return l.keyPrefix + tokenHash
}

func (l *List) startSpan(ctx context.Context, operationName string) (context.Context, trace.Span) {
	ctx, span := l.tracer.Start(ctx, "revocation."+operationName,
		trace.WithSpanKind(trace.SpanKindClient),
	)
	span.SetAttributes(attribute.String("db.system", "redis"))
	return ctx, span
}

func finishSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// wrapListError classifies a Redis error. Deadline and cancellation errors
// mean the denylist was unreachable in time and are retryable; everything
// else is an internal store error.
func wrapListError(err error, message string) *acerr.Error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return acerr.Wrap(err, acerr.CodeUnavailableDependency, message)
	}
	return acerr.Wrap(err, acerr.CodeInternal, message)
}
