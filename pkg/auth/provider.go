package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/verityhq/authcore/pkg/config"
	acerr "github.com/verityhq/authcore/pkg/errors"
)

// Token is the credential set returned by provider token operations
// such as refresh. Access and refresh tokens use [config.Secret] so
// they redact themselves in logs and serialized output.
type Token struct {
	// AccessToken is the bearer token for subsequent requests.
	AccessToken config.Secret `json:"access_token"`

	// RefreshToken is the credential for obtaining a new access token,
	// if the provider issued one.
	RefreshToken config.Secret `json:"refresh_token,omitempty"`

	// TokenType is the token scheme, typically "Bearer".
	TokenType string `json:"token_type"`

	// ExpiresIn is the access token lifetime in seconds.
	ExpiresIn int64 `json:"expires_in"`

	// Scope is the space-separated scope string granted by the provider.
	Scope string `json:"scope,omitempty"`
}

// TokenProvider is the provider-facing contract of the authentication
// core. Callers depend only on this interface; concrete providers wrap
// a specific identity provider's token semantics.
//
// Implementations must be safe for concurrent use by multiple goroutines.
type TokenProvider interface {
	// Name returns the provider's configured name, used to label the
	// users it authenticates.
	Name() string

	// VerifyToken verifies a bearer token and returns its claims.
	VerifyToken(ctx context.Context, token string) (*TokenClaims, error)

	// UserInfo verifies a bearer token and returns the authenticated
	// user it represents.
	UserInfo(ctx context.Context, token string) (*AuthenticatedUser, error)

	// RefreshToken exchanges a refresh token for a new token set.
	// Providers without a token endpoint return a *[acerr.Error] with
	// code [acerr.CodeNotImplementedByProvider].
	RefreshToken(ctx context.Context, refreshToken string) (*Token, error)

	// RevokeToken invalidates a token at the provider. Providers
	// without a revocation endpoint return a *[acerr.Error] with code
	// [acerr.CodeNotImplementedByProvider].
	RevokeToken(ctx context.Context, token string) error

	// ValidatePermissions reports whether the user holds every
	// permission in required.
	ValidatePermissions(user *AuthenticatedUser, required []string) bool

	// ValidateRoles reports whether the user holds at least one role
	// in required.
	ValidateRoles(user *AuthenticatedUser, required []string) bool
}

// GenericJWTProvider authenticates against any issuer that publishes a
// JWKS endpoint, using only standard JWT semantics. It has no provider
// token endpoint, so [GenericJWTProvider.RefreshToken] and
// [GenericJWTProvider.RevokeToken] report the capability gap rather
// than guessing at provider-specific APIs.
type GenericJWTProvider struct {
	name     string
	verifier *Verifier
}

// Compile-time assertion that GenericJWTProvider implements TokenProvider.
var _ TokenProvider = (*GenericJWTProvider)(nil)

// NewGenericJWTProvider creates a provider over the given verifier.
// The name labels users authenticated by this provider; if empty, the
// verifier's configured provider name is used.
func NewGenericJWTProvider(name string, verifier *Verifier) (*GenericJWTProvider, error) {
	if verifier == nil {
		return nil, acerr.New(acerr.CodeValidation, "auth: verifier must not be nil")
	}
	if name == "" {
		name = verifier.cfg.ProviderName
	}
	return &GenericJWTProvider{name: name, verifier: verifier}, nil
}

// Name returns the provider's configured name.
func (p *GenericJWTProvider) Name() string { return p.name }

// VerifyToken verifies a bearer token and returns its claims.
func (p *GenericJWTProvider) VerifyToken(ctx context.Context, token string) (*TokenClaims, error) {
	return p.verifier.Verify(ctx, token)
}

// UserInfo verifies a bearer token and maps its claims to an
// authenticated user.
func (p *GenericJWTProvider) UserInfo(ctx context.Context, token string) (*AuthenticatedUser, error) {
	claims, err := p.verifier.Verify(ctx, token)
	if err != nil {
		return nil, err
	}
	return UserFromClaims(claims, p.name), nil
}

// RefreshToken always returns a not-implemented error: token refresh
// requires the provider's own token endpoint, which generic JWT
// verification does not know about.
func (p *GenericJWTProvider) RefreshToken(_ context.Context, _ string) (*Token, error) {
	return nil, acerr.NotImplementedByProvider("token refresh")
}

// RevokeToken always returns a not-implemented error: stateless JWTs
// cannot be revoked without provider support or a denylist. See
// [RevocableProvider] for a denylist-backed alternative.
func (p *GenericJWTProvider) RevokeToken(_ context.Context, _ string) error {
	return acerr.NotImplementedByProvider("token revocation")
}

// ValidatePermissions reports whether the user holds every permission
// in required.
func (p *GenericJWTProvider) ValidatePermissions(user *AuthenticatedUser, required []string) bool {
	return HasAllPermissions(user, required)
}

// ValidateRoles reports whether the user holds at least one role in
// required.
func (p *GenericJWTProvider) ValidateRoles(user *AuthenticatedUser, required []string) bool {
	return HasAnyRole(user, required)
}

// RevocationList records revoked tokens until they expire.
// store/revocation.List implements it over redis; tests may substitute
// an in-memory fake.
type RevocationList interface {
	// Revoke records a token hash as revoked for the given duration.
	Revoke(ctx context.Context, tokenHash string, ttl time.Duration) error

	// IsRevoked reports whether a token hash has been revoked.
	IsRevoked(ctx context.Context, tokenHash string) (bool, error)
}

// RevocableProvider wraps a TokenProvider with a revocation list,
// giving revocation semantics to providers that have none of their own.
// RevokeToken records the token in the list until its expiry;
// VerifyToken and UserInfo reject listed tokens. All other operations
// delegate to the wrapped provider unchanged.
type RevocableProvider struct {
	inner TokenProvider
	list  RevocationList
}

var _ TokenProvider = (*RevocableProvider)(nil)

// NewRevocableProvider wraps the given provider with the revocation list.
func NewRevocableProvider(inner TokenProvider, list RevocationList) (*RevocableProvider, error) {
	if inner == nil {
		return nil, acerr.New(acerr.CodeValidation, "auth: wrapped provider must not be nil")
	}
	if list == nil {
		return nil, acerr.New(acerr.CodeValidation, "auth: revocation list must not be nil")
	}
	return &RevocableProvider{inner: inner, list: list}, nil
}

// Name returns the wrapped provider's name.
func (p *RevocableProvider) Name() string { return p.inner.Name() }

// VerifyToken verifies the token with the wrapped provider, then
// rejects it if it has been revoked. Revocation list unavailability
// fails closed with [acerr.CodeUnavailableDependency]: an unreachable
// denylist must not silently re-admit revoked tokens.
func (p *RevocableProvider) VerifyToken(ctx context.Context, token string) (*TokenClaims, error) {
	claims, err := p.inner.VerifyToken(ctx, token)
	if err != nil {
		return nil, err
	}

	revoked, err := p.list.IsRevoked(ctx, TokenHash(token))
	if err != nil {
		return nil, acerr.Wrap(err, acerr.CodeUnavailableDependency,
			"auth: revocation list unavailable")
	}
	if revoked {
		return nil, acerr.New(acerr.CodeAuthentication, "auth: token has been revoked")
	}
	return claims, nil
}

// UserInfo verifies the token (including the revocation check) and
// maps its claims to an authenticated user.
func (p *RevocableProvider) UserInfo(ctx context.Context, token string) (*AuthenticatedUser, error) {
	claims, err := p.VerifyToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return UserFromClaims(claims, p.inner.Name()), nil
}

// RefreshToken delegates to the wrapped provider.
func (p *RevocableProvider) RefreshToken(ctx context.Context, refreshToken string) (*Token, error) {
	return p.inner.RefreshToken(ctx, refreshToken)
}

// RevokeToken verifies the token and records it in the revocation list
// until its expiry. Already-expired tokens are a no-op. The token must
// verify before it can be revoked; revoking arbitrary strings would let
// callers probe the list.
func (p *RevocableProvider) RevokeToken(ctx context.Context, token string) error {
	claims, err := p.inner.VerifyToken(ctx, token)
	if err != nil {
		return err
	}

	ttl := time.Until(claims.ExpiresAt)
	if ttl <= 0 {
		return nil
	}

	if err := p.list.Revoke(ctx, TokenHash(token), ttl); err != nil {
		return acerr.Wrap(err, acerr.CodeUnavailableDependency,
			"auth: revocation list unavailable")
	}
	return nil
}

// ValidatePermissions delegates to the wrapped provider.
func (p *RevocableProvider) ValidatePermissions(user *AuthenticatedUser, required []string) bool {
	return p.inner.ValidatePermissions(user, required)
}

// ValidateRoles delegates to the wrapped provider.
func (p *RevocableProvider) ValidateRoles(user *AuthenticatedUser, required []string) bool {
	return p.inner.ValidateRoles(user, required)
}

// TokenHash computes the SHA-256 hash of a token string and returns it
// hex-encoded. Revocation lists key on the hash so raw tokens are never
// stored.
func TokenHash(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}
