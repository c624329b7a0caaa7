// Package auth provides provider-agnostic OAuth2/JWT authentication
// primitives: bearer-token verification against a remote key set,
// claims-to-identity mapping, permission and role checks, and an
// authentication service that orchestrates them behind a
// [TokenProvider] interface.
//
// The package deliberately owns no HTTP routing and no persistence.
// Signing keys come from a [jwks.Cache]; roles and permissions beyond
// the token's own claims come from collaborator stores the caller
// injects. Tokens and claims are transient: they are verified, mapped,
// and discarded, never written anywhere.
//
// Security:
//
// Verification is strict by default. The signing algorithm must be on
// an explicit allow-list (alg "none" is always rejected), the issuer
// must match exactly, and expiry is enforced with zero leeway unless
// configured otherwise. Failure causes are preserved in typed errors
// for internal logging while user-facing messages stay generic.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims holds the verified claims extracted from a bearer token.
// It is a transient value produced by [Verifier.Verify] and consumed by
// [UserFromClaims]; it is never persisted.
//
// Roles and Permissions are always non-nil (empty when the token
// carries none), so callers can range over them without nil checks.
type TokenClaims struct {
	// Subject is the token's "sub" claim — the provider-side identifier
	// of the authenticated principal.
	Subject string

	// Issuer is the token's "iss" claim.
	Issuer string

	// Audience holds the token's "aud" claim. A scalar "aud" becomes a
	// single-element slice.
	Audience []string

	// IssuedAt is the token's "iat" claim; zero when absent.
	IssuedAt time.Time

	// ExpiresAt is the token's "exp" claim; zero when absent.
	ExpiresAt time.Time

	// Email is the token's "email" claim, if present.
	Email string

	// EmailVerified is the token's "email_verified" claim. False when
	// the claim is absent.
	EmailVerified bool

	// Name is the token's "name" claim, if present.
	Name string

	// Provider identifies which authentication provider issued the
	// token, as configured on the verifier. It is not read from the
	// token itself.
	Provider string

	// Roles holds the token's "roles" claim entries.
	Roles []string

	// Permissions holds the token's "permissions" claim entries.
	Permissions []string
}

// claimsFromToken converts verified jwt.MapClaims into a TokenClaims
// value. Claim fields with unexpected types are treated as absent; the
// verifier has already established authenticity, so lenient extraction
// here cannot weaken security.
func claimsFromToken(mc jwt.MapClaims, provider string) *TokenClaims {
	tc := &TokenClaims{
		Provider:    provider,
		Roles:       []string{},
		Permissions: []string{},
	}

	tc.Subject, _ = mc["sub"].(string)
	tc.Issuer, _ = mc["iss"].(string)
	tc.Email, _ = mc["email"].(string)
	tc.Name, _ = mc["name"].(string)
	tc.EmailVerified, _ = mc["email_verified"].(bool)

	tc.Audience = audienceValues(mc["aud"])

	if iat, err := mc.GetIssuedAt(); err == nil && iat != nil {
		tc.IssuedAt = iat.Time
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		tc.ExpiresAt = exp.Time
	}

	tc.Roles = stringClaimValues(mc["roles"])
	tc.Permissions = stringClaimValues(mc["permissions"])

	return tc
}

// audienceValues normalizes an "aud" claim, which RFC 7519 allows to be
// either a single string or an array of strings.
func audienceValues(raw any) []string {
	switch v := raw.(type) {
	case string:
		if v == "" {
			return []string{}
		}
		return []string{v}
	case []any:
		result := make([]string, 0, len(v))
		for _, entry := range v {
			if s, ok := entry.(string); ok && s != "" {
				result = append(result, s)
			}
		}
		return result
	case []string:
		result := make([]string, len(v))
		copy(result, v)
		return result
	default:
		return []string{}
	}
}

// stringClaimValues extracts a string slice from a claim that JSON
// decoding surfaces as []any. Non-string entries are skipped.
func stringClaimValues(raw any) []string {
	switch v := raw.(type) {
	case []any:
		result := make([]string, 0, len(v))
		for _, entry := range v {
			if s, ok := entry.(string); ok {
				result = append(result, s)
			}
		}
		return result
	case []string:
		result := make([]string, len(v))
		copy(result, v)
		return result
	default:
		return []string{}
	}
}
