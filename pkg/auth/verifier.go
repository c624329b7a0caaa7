package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	acerr "github.com/verityhq/authcore/pkg/errors"
	"github.com/verityhq/authcore/pkg/jwks"
)

// tracerName is the OpenTelemetry instrumentation scope name for auth spans.
const tracerName = "github.com/verityhq/authcore/pkg/auth"

// maxTokenSize is the maximum accepted size for a JWT token string (8 KB).
// Tokens larger than this are rejected to prevent resource exhaustion.
const maxTokenSize = 8192

// KeySource resolves a signing key by key ID. [jwks.Cache] implements
// it; tests may substitute a static key source.
type KeySource interface {
	SigningKey(ctx context.Context, kid string) (jwks.Key, error)
}

// VerifierConfig holds the configuration for [Verifier].
type VerifierConfig struct {
	// Issuer is the exact "iss" value tokens must carry. Required.
	Issuer string `json:"issuer" yaml:"issuer" env:"ISSUER" required:"true"`

	// Audience is the "aud" value tokens must contain. When empty, the
	// audience claim is not validated.
	Audience string `json:"audience,omitempty" yaml:"audience" env:"AUDIENCE"`

	// AllowedAlgorithms is the signing algorithm allow-list. Tokens
	// whose header algorithm is not listed are rejected before any key
	// lookup. Defaults to ["RS256"].
	AllowedAlgorithms []string `json:"allowed_algorithms" yaml:"allowed_algorithms" env:"ALLOWED_ALGORITHMS" envDefault:"RS256"`

	// Leeway is the clock-skew tolerance applied to time-based claims.
	// Must be non-negative. Defaults to 0 (strict).
	Leeway time.Duration `json:"leeway" yaml:"leeway" env:"LEEWAY"`

	// ProviderName labels the claims produced by this verifier, so
	// downstream identity mapping records which provider authenticated
	// the principal. Defaults to "jwt".
	ProviderName string `json:"provider_name" yaml:"provider_name" env:"PROVIDER_NAME" envDefault:"jwt"`
}

// Validate checks the configuration for logical correctness and returns
// a *[acerr.Error] with code [acerr.CodeValidation] if any field is
// invalid.
func (c *VerifierConfig) Validate() error {
	if c.Issuer == "" {
		return acerr.New(acerr.CodeValidation, "auth: issuer must not be empty")
	}
	if len(c.AllowedAlgorithms) == 0 {
		return acerr.New(acerr.CodeValidation, "auth: at least one signing algorithm must be allowed")
	}
	for _, alg := range c.AllowedAlgorithms {
		if strings.EqualFold(alg, "none") {
			return acerr.New(acerr.CodeValidation, "auth: algorithm 'none' must not be allowed")
		}
	}
	if c.Leeway < 0 {
		return acerr.New(acerr.CodeValidation, "auth: leeway must be non-negative")
	}
	return nil
}

// Verifier verifies bearer tokens against a key source and the
// configured issuer, audience, and algorithm policy. It is safe for
// concurrent use by multiple goroutines.
type Verifier struct {
	cfg    VerifierConfig
	keys   KeySource
	tracer trace.Tracer
}

// NewVerifier creates a Verifier from the given configuration and key
// source. The configuration is validated before use; zero-valued
// optional fields receive their documented defaults.
func NewVerifier(cfg VerifierConfig, keys KeySource) (*Verifier, error) {
	if len(cfg.AllowedAlgorithms) == 0 {
		cfg.AllowedAlgorithms = []string{"RS256"}
	}
	if cfg.ProviderName == "" {
		cfg.ProviderName = "jwt"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if keys == nil {
		return nil, acerr.New(acerr.CodeValidation, "auth: key source must not be nil")
	}

	return &Verifier{
		cfg:    cfg,
		keys:   keys,
		tracer: otel.Tracer(tracerName),
	}, nil
}

// Verify verifies the given bearer token string and returns its claims.
//
// The method performs the following steps:
//  1. Rejects empty or oversized tokens
//  2. Parses the header without verification to read alg and kid
//  3. Rejects alg "none" and algorithms outside the allow-list
//  4. Resolves the signing key for the token's kid
//  5. Verifies signature, issuer, audience, and time-based claims
//  6. Records OpenTelemetry span attributes and errors
//
// Returns a *[acerr.Error] on failure: [acerr.CodeTokenExpired] for
// expired tokens, [acerr.CodeTokenMalformed] for unparseable tokens,
// [acerr.CodeSignatureInvalid] for signature or algorithm failures,
// [acerr.CodeIssuerMismatch] and [acerr.CodeAudienceMismatch] for claim
// mismatches, and [acerr.CodeSigningKeyUnavailable] when the signing
// key cannot be obtained.
func (v *Verifier) Verify(ctx context.Context, tokenStr string) (*TokenClaims, error) {
	ctx, span := v.tracer.Start(ctx, "auth.Verify")
	defer span.End()

	if tokenStr == "" {
		err := acerr.New(acerr.CodeTokenMalformed, "auth: token must not be empty")
		finishSpan(span, err)
		return nil, err
	}
	if len(tokenStr) > maxTokenSize {
		err := acerr.New(acerr.CodeTokenMalformed, "auth: token exceeds maximum size")
		finishSpan(span, err)
		return nil, err
	}

	alg, kid, err := v.inspectHeader(tokenStr)
	if err != nil {
		finishSpan(span, err)
		return nil, err
	}

	// Expiry is checked before the signature so an expired token always
	// classifies as expired, whatever else is wrong with it.
	if err := v.checkExpiry(tokenStr); err != nil {
		finishSpan(span, err)
		return nil, err
	}
	span.SetAttributes(
		attribute.String("auth.alg", alg),
		attribute.String("auth.kid", kid),
	)

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods(v.cfg.AllowedAlgorithms),
		jwt.WithIssuer(v.cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.cfg.Leeway),
	}
	if v.cfg.Audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(v.cfg.Audience))
	}

	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (any, error) {
		key, keyErr := v.keys.SigningKey(ctx, kid)
		if keyErr != nil {
			return nil, keyErr
		}
		return key.Public, nil
	}, parserOpts...)
	if err != nil {
		classified := classifyVerifyError(err)
		finishSpan(span, classified)
		return nil, classified
	}

	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		err := acerr.New(acerr.CodeTokenMalformed, "auth: unable to extract token claims")
		finishSpan(span, err)
		return nil, err
	}

	claims := claimsFromToken(mc, v.cfg.ProviderName)
	span.SetAttributes(attribute.String("auth.subject", claims.Subject))
	return claims, nil
}

// inspectHeader parses the token header without verifying the signature
// and enforces the algorithm policy. The kid requirement lives here so
// a missing kid fails as malformed rather than as a key lookup miss.
func (v *Verifier) inspectHeader(tokenStr string) (alg, kid string, err error) {
	parser := jwt.NewParser()
	unverified, _, parseErr := parser.ParseUnverified(tokenStr, jwt.MapClaims{})
	if parseErr != nil || unverified == nil {
		return "", "", acerr.New(acerr.CodeTokenMalformed, "auth: token is malformed")
	}

	alg, _ = unverified.Header["alg"].(string)
	if strings.EqualFold(alg, "none") || alg == "" {
		return "", "", acerr.New(acerr.CodeTokenMalformed, "auth: algorithm 'none' is not permitted")
	}

	allowed := false
	for _, a := range v.cfg.AllowedAlgorithms {
		if a == alg {
			allowed = true
			break
		}
	}
	if !allowed {
		return "", "", acerr.Newf(acerr.CodeSignatureInvalid,
			"auth: signing algorithm %q is not on the allow-list", alg)
	}

	kid, _ = unverified.Header["kid"].(string)
	if kid == "" {
		return "", "", acerr.New(acerr.CodeTokenMalformed, "auth: token header missing kid")
	}

	return alg, kid, nil
}

// checkExpiry reads the unverified "exp" claim and fails fast when it
// is already past the configured leeway. The signed parse re-validates
// expiry afterwards, so a forged exp cannot extend a token's life.
func (v *Verifier) checkExpiry(tokenStr string) error {
	parser := jwt.NewParser()
	unverified, _, err := parser.ParseUnverified(tokenStr, jwt.MapClaims{})
	if err != nil || unverified == nil {
		return acerr.New(acerr.CodeTokenMalformed, "auth: token is malformed")
	}
	mc, ok := unverified.Claims.(jwt.MapClaims)
	if !ok {
		return acerr.New(acerr.CodeTokenMalformed, "auth: unable to extract token claims")
	}
	exp, err := mc.GetExpirationTime()
	if err != nil || exp == nil {
		// Missing exp fails in the signed parse via WithExpirationRequired.
		return nil
	}
	if time.Now().After(exp.Time.Add(v.cfg.Leeway)) {
		return acerr.New(acerr.CodeTokenExpired, "auth: token has expired")
	}
	return nil
}

// classifyVerifyError converts a JWT library or key source error into
// the appropriate *[acerr.Error]. Key source failures become
// [acerr.CodeSigningKeyUnavailable] with the KEY_xxx cause preserved;
// anything unrecognized wraps into the generic [acerr.CodeAuthentication]
// so library error types never leak to callers unclassified.
func classifyVerifyError(err error) *acerr.Error {
	if err == nil {
		return nil
	}

	if acErr, ok := acerr.AsError(err); ok {
		if acErr.Code.Category() == "KEY" {
			return acerr.Wrap(err, acerr.CodeSigningKeyUnavailable,
				"auth: signing key unavailable")
		}
		return acErr
	}

	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return acerr.Wrap(err, acerr.CodeTokenExpired, "auth: token has expired")
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		return acerr.Wrap(err, acerr.CodeSignatureInvalid, "auth: token signature is invalid")
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return acerr.Wrap(err, acerr.CodeIssuerMismatch, "auth: token issuer is invalid")
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return acerr.Wrap(err, acerr.CodeAudienceMismatch, "auth: token audience is invalid")
	case errors.Is(err, jwt.ErrTokenNotValidYet),
		errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return acerr.Wrap(err, acerr.CodeTokenMalformed, "auth: token is not yet valid")
	case errors.Is(err, jwt.ErrTokenMalformed),
		errors.Is(err, jwt.ErrTokenInvalidClaims),
		errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return acerr.Wrap(err, acerr.CodeTokenMalformed, "auth: token is malformed")
	default:
		return acerr.Wrap(err, acerr.CodeAuthentication, "auth: token verification failed")
	}
}

// finishSpan records an error on the span if err is non-nil and sets
// the span status to Error.
func finishSpan(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(otelcodes.Error, err.Error())
}
