package auth

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	acerr "github.com/verityhq/authcore/pkg/errors"
)

// AuthenticationService orchestrates token verification, identity
// mapping, and authorization checks over a [TokenProvider]. It holds no
// per-request state and is safe for concurrent use by multiple
// goroutines.
//
// The service is the intended entry point for applications; direct use
// of [Verifier] or [UserFromClaims] is for composing custom providers.
type AuthenticationService struct {
	provider TokenProvider
	tracer   trace.Tracer
}

// NewAuthenticationService creates a service over the given provider.
func NewAuthenticationService(provider TokenProvider) (*AuthenticationService, error) {
	if provider == nil {
		return nil, acerr.New(acerr.CodeValidation, "auth: provider must not be nil")
	}
	return &AuthenticationService{
		provider: provider,
		tracer:   otel.Tracer(tracerName),
	}, nil
}

// Provider returns the underlying token provider.
func (s *AuthenticationService) Provider() TokenProvider { return s.provider }

// Authenticate verifies the bearer token and returns the authenticated
// user it represents. Verification failures surface unchanged as the
// provider's typed errors.
func (s *AuthenticationService) Authenticate(ctx context.Context, token string) (*AuthenticatedUser, error) {
	ctx, span := s.tracer.Start(ctx, "auth.Authenticate",
		trace.WithAttributes(attribute.String("auth.provider", s.provider.Name())))
	defer span.End()

	user, err := s.provider.UserInfo(ctx, token)
	if err != nil {
		finishSpan(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.String("auth.user_id", user.ID().String()))
	return user, nil
}

// Refresh exchanges a refresh token for a new token set via the
// provider. Providers without a token endpoint return a typed
// not-implemented error.
func (s *AuthenticationService) Refresh(ctx context.Context, refreshToken string) (*Token, error) {
	ctx, span := s.tracer.Start(ctx, "auth.Refresh",
		trace.WithAttributes(attribute.String("auth.provider", s.provider.Name())))
	defer span.End()

	token, err := s.provider.RefreshToken(ctx, refreshToken)
	if err != nil {
		finishSpan(span, err)
		return nil, err
	}
	return token, nil
}

// Revoke invalidates a token via the provider. Providers without a
// revocation endpoint return a typed not-implemented error.
func (s *AuthenticationService) Revoke(ctx context.Context, token string) error {
	ctx, span := s.tracer.Start(ctx, "auth.Revoke",
		trace.WithAttributes(attribute.String("auth.provider", s.provider.Name())))
	defer span.End()

	if err := s.provider.RevokeToken(ctx, token); err != nil {
		finishSpan(span, err)
		return err
	}
	return nil
}

// CheckPermissions reports whether the user holds every permission in
// required. An empty required set always passes.
func (s *AuthenticationService) CheckPermissions(user *AuthenticatedUser, required []string) bool {
	return s.provider.ValidatePermissions(user, required)
}

// CheckRoles reports whether the user holds at least one role in
// required. An empty required set always passes.
func (s *AuthenticationService) CheckRoles(user *AuthenticatedUser, required []string) bool {
	return s.provider.ValidateRoles(user, required)
}

// RequirePermissions returns nil when the user holds every permission
// in required, or the typed insufficient-permissions error whose
// Details carry the required and missing sets.
func (s *AuthenticationService) RequirePermissions(ctx context.Context, user *AuthenticatedUser, required []string) error {
	_, span := s.tracer.Start(ctx, "auth.RequirePermissions",
		trace.WithAttributes(attribute.StringSlice("auth.required_permissions", required)))
	defer span.End()

	if err := RequirePermissions(user, required); err != nil {
		finishSpan(span, err)
		return err
	}
	return nil
}

// RequireRoles returns nil when the user holds at least one role in
// required, or the typed insufficient-roles error.
func (s *AuthenticationService) RequireRoles(ctx context.Context, user *AuthenticatedUser, required []string) error {
	_, span := s.tracer.Start(ctx, "auth.RequireRoles",
		trace.WithAttributes(attribute.StringSlice("auth.required_roles", required)))
	defer span.End()

	if err := RequireRoles(user, required); err != nil {
		finishSpan(span, err)
		return err
	}
	return nil
}
