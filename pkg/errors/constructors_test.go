package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()
	err := New(CodeTokenMalformed, "token has no key ID")
	assert.Equal(t, CodeTokenMalformed, err.Code)
	assert.Equal(t, "token has no key ID", err.Message)
	assert.Nil(t, err.Cause)
}

func TestNewf(t *testing.T) {
	t.Parallel()
	err := Newf(CodeKeyNotFound, "no key with ID %q in key set", "kid-1")
	assert.Equal(t, CodeKeyNotFound, err.Code)
	assert.Equal(t, `no key with ID "kid-1" in key set`, err.Message)
}

func TestWrap(t *testing.T) {
	t.Parallel()
	cause := errors.New("connection refused")
	err := Wrap(cause, CodeKeyFetch, "key set fetch failed")
	require.NotNil(t, err)
	assert.Equal(t, CodeKeyFetch, err.Code)
	assert.Equal(t, cause, err.Cause)
	assert.True(t, errors.Is(err, cause))

	assert.Nil(t, Wrap(nil, CodeKeyFetch, "ignored"))
}

func TestWrapf(t *testing.T) {
	t.Parallel()
	cause := errors.New("boom")
	err := Wrapf(cause, CodeKeyFetch, "fetching key set from %s", "https://idp.example.com/jwks")
	require.NotNil(t, err)
	assert.Contains(t, err.Message, "https://idp.example.com/jwks")

	assert.Nil(t, Wrapf(nil, CodeKeyFetch, "ignored %d", 1))
}

func TestConvenienceConstructors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  *Error
		code Code
	}{
		{"Validation", Validation("issuer must not be empty"), CodeValidation},
		{"Validationf", Validationf("unsupported algorithm %q", "HS256"), CodeValidation},
		{"Unauthorized", Unauthorized("token verification failed"), CodeAuthentication},
		{"Forbidden", Forbidden("access denied"), CodeAuthorization},
		{"NotFound", NotFound("role not found"), CodeNotFound},
		{"NotFoundf", NotFoundf("role %q not found", "ops"), CodeNotFound},
		{"Internal", Internal("unexpected"), CodeInternal},
		{"Internalf", Internalf("unexpected: %v", "x"), CodeInternal},
		{"Unavailable", Unavailable("store down"), CodeUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.code, tt.err.Code)
			assert.NotEmpty(t, tt.err.Message)
		})
	}
}

func TestInsufficientPermissions(t *testing.T) {
	t.Parallel()
	err := InsufficientPermissions(
		[]string{"read:users", "write:users"},
		[]string{"write:users"},
	)
	assert.Equal(t, CodeInsufficientPermissions, err.Code)
	assert.Equal(t, []string{"read:users", "write:users"}, err.Details["required"])
	assert.Equal(t, []string{"write:users"}, err.Details["missing"])
}

func TestInsufficientRoles(t *testing.T) {
	t.Parallel()
	err := InsufficientRoles([]string{"admin", "moderator"})
	assert.Equal(t, CodeInsufficientRoles, err.Code)
	assert.Equal(t, []string{"admin", "moderator"}, err.Details["required"])
}

func TestNotImplementedByProvider(t *testing.T) {
	t.Parallel()
	err := NotImplementedByProvider("RefreshToken")
	assert.Equal(t, CodeNotImplementedByProvider, err.Code)
	assert.Contains(t, err.Message, "RefreshToken")
	assert.Contains(t, err.Message, "token endpoint")
}

func TestFromError(t *testing.T) {
	t.Parallel()
	assert.Nil(t, FromError(nil))

	// Already structured: returned as-is, even when wrapped.
	structured := New(CodeTokenExpired, "token has expired")
	assert.Same(t, structured, FromError(structured))
	wrapped := Wrap(structured, CodeAuthentication, "authentication failed")
	assert.Same(t, wrapped, FromError(wrapped))

	// Plain errors are classified as internal.
	plain := errors.New("something odd")
	got := FromError(plain)
	require.NotNil(t, got)
	assert.Equal(t, CodeInternal, got.Code)
	assert.True(t, errors.Is(got, plain))
}
