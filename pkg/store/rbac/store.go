// Package rbac provides a PostgreSQL-backed role and permission store.
//
// The store answers two questions for an authenticated user: which roles
// has the deployment granted them, and which permissions do those roles
// carry. Grants live in three tables (roles, role_permissions, user_roles)
// keyed by the deterministic user ID derived from the token subject, so
// grants survive across token issuances and provider migrations.
//
// Token claims remain authoritative: [Store.EnrichUser] merges store-side
// grants into a user without ever removing a role or permission the token
// itself carried.
//
// # Usage
//
//	store, err := rbac.NewStore(ctx, *cfg)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	enriched, err := store.EnrichUser(ctx, user)
//
// For testing, use [NewFromPool] with a pgxmock pool:
//
//	mock, _ := pgxmock.NewPool()
//	store := rbac.NewFromPool(mock)
package rbac

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/verityhq/authcore/pkg/auth"
	acerr "github.com/verityhq/authcore/pkg/errors"
)

// tracerName is the OpenTelemetry instrumentation scope name for this
// package, following the Go module path convention.
const tracerName = "github.com/verityhq/authcore/pkg/store/rbac"

// Schema is the DDL for the role store tables. Deployments typically
// manage this via migrations; it is exported for tests and bootstrap
// tooling.
const Schema = `
CREATE TABLE IF NOT EXISTS roles (
    name TEXT PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS role_permissions (
    role       TEXT NOT NULL REFERENCES roles(name) ON DELETE CASCADE,
    permission TEXT NOT NULL,
    PRIMARY KEY (role, permission)
);

CREATE TABLE IF NOT EXISTS user_roles (
    user_id UUID NOT NULL,
    role    TEXT NOT NULL REFERENCES roles(name) ON DELETE CASCADE,
    PRIMARY KEY (user_id, role)
);
`

// foreignKeyViolation is the PostgreSQL error code for a foreign key
// constraint violation, returned when a grant references an unknown role.
const foreignKeyViolation = "23503"

// Pool defines the PostgreSQL pool operations the store depends on. It is
// satisfied by [*pgxpool.Pool] and by pgxmock pools, enabling dependency
// injection via [NewFromPool] for unit tests without a database.
type Pool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

var _ Pool = (*pgxpool.Pool)(nil)

// Store is a PostgreSQL-backed role and permission store. It is safe for
// concurrent use; create one Store per database and share it.
type Store struct {
	pool   Pool
	tracer trace.Tracer
}

// NewStore creates a Store with its own connection pool. It validates the
// configuration, establishes the pool, and verifies connectivity with a
// ping. The caller must call [Store.Close] when done.
//
// Error codes returned:
//   - [acerr.CodeValidation]: invalid configuration
//   - [acerr.CodeUnavailableDependency]: cannot connect to the database
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, acerr.Wrap(err, acerr.CodeValidation,
			"rbac: invalid configuration")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, acerr.Wrap(err, acerr.CodeValidation,
			"rbac: failed to parse connection string")
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, acerr.Wrap(err, acerr.CodeUnavailableDependency,
			"rbac: failed to create connection pool")
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, acerr.Wrap(err, acerr.CodeUnavailableDependency,
			"rbac: failed to connect to database")
	}

	return &Store{pool: pool, tracer: otel.Tracer(tracerName)}, nil
}

// NewFromPool creates a Store with a pre-existing [Pool]. Intended for
// tests with pgxmock and for callers that manage the pool themselves.
func NewFromPool(pool Pool) *Store {
	return &Store{pool: pool, tracer: otel.Tracer(tracerName)}
}

// UserRoles returns the roles granted to the given user, sorted by name.
// A user with no grants yields an empty slice, never nil.
func (s *Store) UserRoles(ctx context.Context, userID uuid.UUID) ([]string, error) {
	ctx, span := s.startSpan(ctx, "UserRoles")
	span.SetAttributes(attribute.String("user_id", userID.String()))

	rows, err := s.pool.Query(ctx,
		`SELECT role FROM user_roles WHERE user_id = $1 ORDER BY role`, userID)
	if err != nil {
		finishSpan(span, err)
		return nil, wrapStoreError(err, "rbac: failed to query user roles")
	}

	roles, err := collectStrings(rows)
	finishSpan(span, err)
	if err != nil {
		return nil, wrapStoreError(err, "rbac: failed to scan user roles")
	}
	return roles, nil
}

// UserPermissions returns the distinct permissions carried by the user's
// roles, sorted by name. A user with no grants yields an empty slice,
// never nil.
func (s *Store) UserPermissions(ctx context.Context, userID uuid.UUID) ([]string, error) {
	ctx, span := s.startSpan(ctx, "UserPermissions")
	span.SetAttributes(attribute.String("user_id", userID.String()))

	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT rp.permission
		 FROM user_roles ur
		 JOIN role_permissions rp ON rp.role = ur.role
		 WHERE ur.user_id = $1
		 ORDER BY rp.permission`, userID)
	if err != nil {
		finishSpan(span, err)
		return nil, wrapStoreError(err, "rbac: failed to query user permissions")
	}

	permissions, err := collectStrings(rows)
	finishSpan(span, err)
	if err != nil {
		return nil, wrapStoreError(err, "rbac: failed to scan user permissions")
	}
	return permissions, nil
}

// Grants returns the permissions attached to a role, sorted by name.
// Returns [acerr.CodeNotFound] when the role does not exist; a role that
// exists but carries no permissions yields an empty slice.
func (s *Store) Grants(ctx context.Context, role string) ([]string, error) {
	ctx, span := s.startSpan(ctx, "Grants")
	span.SetAttributes(attribute.String("role", role))

	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM roles WHERE name = $1)`, role).Scan(&exists)
	if err != nil {
		finishSpan(span, err)
		return nil, wrapStoreError(err, "rbac: failed to look up role")
	}
	if !exists {
		err := acerr.NotFoundf("rbac: role %q not found", role)
		finishSpan(span, err)
		return nil, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT permission FROM role_permissions WHERE role = $1 ORDER BY permission`, role)
	if err != nil {
		finishSpan(span, err)
		return nil, wrapStoreError(err, "rbac: failed to query role permissions")
	}

	permissions, err := collectStrings(rows)
	finishSpan(span, err)
	if err != nil {
		return nil, wrapStoreError(err, "rbac: failed to scan role permissions")
	}
	return permissions, nil
}

// AssignRole grants a role to a user. Assigning an already-granted role
// is a no-op. Returns [acerr.CodeNotFound] when the role does not exist.
func (s *Store) AssignRole(ctx context.Context, userID uuid.UUID, role string) error {
	ctx, span := s.startSpan(ctx, "AssignRole")
	span.SetAttributes(
		attribute.String("user_id", userID.String()),
		attribute.String("role", role),
	)

	_, err := s.pool.Exec(ctx,
		`INSERT INTO user_roles (user_id, role) VALUES ($1, $2)
		 ON CONFLICT (user_id, role) DO NOTHING`, userID, role)
	finishSpan(span, err)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return acerr.NotFoundf("rbac: role %q not found", role)
		}
		return wrapStoreError(err, "rbac: failed to assign role")
	}
	return nil
}

// RevokeRole removes a role grant from a user. Revoking a role the user
// does not hold is a no-op.
func (s *Store) RevokeRole(ctx context.Context, userID uuid.UUID, role string) error {
	ctx, span := s.startSpan(ctx, "RevokeRole")
	span.SetAttributes(
		attribute.String("user_id", userID.String()),
		attribute.String("role", role),
	)

	_, err := s.pool.Exec(ctx,
		`DELETE FROM user_roles WHERE user_id = $1 AND role = $2`, userID, role)
	finishSpan(span, err)
	if err != nil {
		return wrapStoreError(err, "rbac: failed to revoke role")
	}
	return nil
}

// ReplaceUserRoles atomically replaces a user's role grants with the
// given set. The delete and inserts run in a single transaction, so
// concurrent readers never observe a partially replaced grant set.
// Returns [acerr.CodeNotFound] when any role does not exist; in that
// case no grants change.
func (s *Store) ReplaceUserRoles(ctx context.Context, userID uuid.UUID, roles []string) error {
	ctx, span := s.startSpan(ctx, "ReplaceUserRoles")
	span.SetAttributes(
		attribute.String("user_id", userID.String()),
		attribute.Int("role_count", len(roles)),
	)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		finishSpan(span, err)
		return wrapStoreError(err, "rbac: failed to begin transaction")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		`DELETE FROM user_roles WHERE user_id = $1`, userID); err != nil {
		finishSpan(span, err)
		return wrapStoreError(err, "rbac: failed to clear user roles")
	}

	for _, role := range roles {
		if _, err := tx.Exec(ctx,
			`INSERT INTO user_roles (user_id, role) VALUES ($1, $2)
			 ON CONFLICT (user_id, role) DO NOTHING`, userID, role); err != nil {
			finishSpan(span, err)
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
				return acerr.NotFoundf("rbac: role %q not found", role)
			}
			return wrapStoreError(err, "rbac: failed to insert user role")
		}
	}

	err = tx.Commit(ctx)
	finishSpan(span, err)
	if err != nil {
		return wrapStoreError(err, "rbac: failed to commit role replacement")
	}
	return nil
}

// EnrichUser returns a copy of the user with store-side roles and
// permissions merged in. The token's own grants always survive the merge;
// the store only ever adds. The input user is not modified.
func (s *Store) EnrichUser(ctx context.Context, user *auth.AuthenticatedUser) (*auth.AuthenticatedUser, error) {
	ctx, span := s.startSpan(ctx, "EnrichUser")
	span.SetAttributes(attribute.String("user_id", user.ID().String()))

	roles, err := s.UserRoles(ctx, user.ID())
	if err != nil {
		finishSpan(span, err)
		return nil, err
	}
	permissions, err := s.UserPermissions(ctx, user.ID())
	if err != nil {
		finishSpan(span, err)
		return nil, err
	}

	finishSpan(span, nil)
	return user.WithGrants(roles, permissions), nil
}

// Health verifies that the database is reachable. It applies
// [DefaultHealthTimeout] if the context has no deadline. Returns
// [acerr.CodeUnavailableDependency] on failure.
func (s *Store) Health(ctx context.Context) error {
	ctx, span := s.startSpan(ctx, "Health")

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultHealthTimeout)
		defer cancel()
	}

	err := s.pool.Ping(ctx)
	finishSpan(span, err)
	if err != nil {
		return acerr.Wrap(err, acerr.CodeUnavailableDependency,
			"rbac: health check failed")
	}
	return nil
}

// Close releases the connection pool. The store must not be used after
// Close.
func (s *Store) Close() {
	s.pool.Close()
}

// Pool returns the underlying [Pool] for operations the store does not
// cover (migrations, seeding, batch work). Do not close it directly; use
// [Store.Close].
func (s *Store) Pool() Pool {
	return s.pool
}

// collectStrings drains a single-column string result set. Always returns
// a non-nil slice on success.
func collectStrings(rows pgx.Rows) ([]string, error) {
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Store) startSpan(ctx context.Context, operationName string) (context.Context, trace.Span) {
	ctx, span := s.tracer.Start(ctx, "rbac."+operationName,
		trace.WithSpanKind(trace.SpanKindClient),
	)
	span.SetAttributes(attribute.String("db.system", "postgresql"))
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

// wrapStoreError classifies a database error. Deadline and cancellation
// errors mean the store was unreachable in time and are retryable;
// everything else is an internal database error.
func wrapStoreError(err error, message string) *acerr.Error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return acerr.Wrap(err, acerr.CodeUnavailableDependency, message)
	}
	return acerr.Wrap(err, acerr.CodeInternal, message)
}
