package auth

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// contextKey is an unexported type used for context keys in this package.
// Using a distinct type prevents collisions with keys from other packages.
type contextKey int

const (
	// userKey stores the authenticated user in the context.
	userKey contextKey = iota
)

// ContextWithUser returns a new context with the given user attached.
// The user can later be retrieved with [UserFromContext].
//
// This is typically called by gRPC server interceptors and HTTP
// middleware after successful authentication.
func ContextWithUser(ctx context.Context, user *AuthenticatedUser) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext retrieves the authenticated user from the context.
// Returns the user and true if present, or nil and false if no user has
// been set. This function never returns a non-nil user with false.
//
// Example:
//
//	user, ok := auth.UserFromContext(ctx)
//	if !ok {
//	    return errors.Unauthorized("no authenticated user in context")
//	}
//	slog.InfoContext(ctx, "request", "user", user.ID())
func UserFromContext(ctx context.Context) (*AuthenticatedUser, bool) {
	user, ok := ctx.Value(userKey).(*AuthenticatedUser)
	return user, ok
}

// MustUserFromContext retrieves the authenticated user from the
// context, panicking if none is present. This should only be used in
// code paths where a user is guaranteed to exist (e.g., behind
// authentication middleware).
func MustUserFromContext(ctx context.Context) *AuthenticatedUser {
	user, ok := UserFromContext(ctx)
	if !ok {
		panic("auth: no authenticated user in context; ensure authentication middleware is configured")
	}
	return user
}

// TraceIDFromContext extracts the OpenTelemetry trace ID from the
// context. Returns the trace ID as a hex string and true if a valid
// trace is active, or an empty string and false otherwise.
//
// This allows correlating authentication events with distributed traces.
func TraceIDFromContext(ctx context.Context) (string, bool) {
	spanCtx := trace.SpanFromContext(ctx).SpanContext()
	if !spanCtx.HasTraceID() {
		return "", false
	}
	return spanCtx.TraceID().String(), true
}
