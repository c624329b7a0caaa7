package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Error(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "error without cause",
			err: &Error{
				Code:    CodeTokenExpired,
				Message: "token has expired",
			},
			want: "AUTH_002: token has expired",
		},
		{
			name: "error with cause",
			err: &Error{
				Code:    CodeKeyFetch,
				Message: "key set fetch failed",
				Cause:   errors.New("connection refused"),
			},
			want: "KEY_001: key set fetch failed: connection refused",
		},
		{
			name: "error with empty message",
			err: &Error{
				Code:    CodeInternal,
				Message: "",
			},
			want: "INT_001: ",
		},
		{
			name: "error with nested structured cause",
			err: &Error{
				Code:    CodeSigningKeyUnavailable,
				Message: "signing key unavailable",
				Cause: &Error{
					Code:    CodeKeyNotFound,
					Message: "no key matches the key ID",
				},
			},
			want: "AUTH_007: signing key unavailable: KEY_002: no key matches the key ID",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	t.Parallel()
	cause := errors.New("underlying error")
	err := &Error{
		Code:    CodeInternal,
		Message: "operation failed",
		Cause:   cause,
	}

	assert.Equal(t, cause, err.Unwrap())

	errNoCause := &Error{
		Code:    CodeValidation,
		Message: "bad input",
	}
	assert.Nil(t, errNoCause.Unwrap())

	// errors.Is should traverse the chain.
	assert.True(t, errors.Is(err, cause))
}

func TestError_HTTPStatus(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		code Code
		want int
	}{
		{"validation", CodeValidation, http.StatusBadRequest},
		{"authentication generic", CodeAuthentication, http.StatusUnauthorized},
		{"expired token", CodeTokenExpired, http.StatusUnauthorized},
		{"malformed token", CodeTokenMalformed, http.StatusUnauthorized},
		{"signature invalid", CodeSignatureInvalid, http.StatusUnauthorized},
		{"issuer mismatch", CodeIssuerMismatch, http.StatusUnauthorized},
		{"audience mismatch", CodeAudienceMismatch, http.StatusUnauthorized},
		{"signing key unavailable", CodeSigningKeyUnavailable, http.StatusUnauthorized},
		{"insufficient permissions", CodeInsufficientPermissions, http.StatusForbidden},
		{"insufficient roles", CodeInsufficientRoles, http.StatusForbidden},
		{"not found", CodeNotFound, http.StatusNotFound},
		{"provider capability gap", CodeNotImplementedByProvider, http.StatusNotImplemented},
		{"internal", CodeInternal, http.StatusInternalServerError},
		{"key fetch", CodeKeyFetch, http.StatusServiceUnavailable},
		{"key not found", CodeKeyNotFound, http.StatusServiceUnavailable},
		{"unavailable dependency", CodeUnavailableDependency, http.StatusServiceUnavailable},
		{"unknown category", Code("WHAT_001"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := &Error{Code: tt.code, Message: "m"}
			assert.Equal(t, tt.want, err.HTTPStatus())
		})
	}
}

func TestError_Retryable(t *testing.T) {
	t.Parallel()
	assert.True(t, (&Error{Code: CodeKeyFetch}).Retryable())
	assert.True(t, (&Error{Code: CodeKeyNotFound}).Retryable())
	assert.True(t, (&Error{Code: CodeSigningKeyUnavailable}).Retryable())
	assert.True(t, (&Error{Code: CodeUnavailableDependency}).Retryable())

	assert.False(t, (&Error{Code: CodeTokenExpired}).Retryable())
	assert.False(t, (&Error{Code: CodeSignatureInvalid}).Retryable())
	assert.False(t, (&Error{Code: CodeInsufficientPermissions}).Retryable())
	assert.False(t, (&Error{Code: CodeInternal}).Retryable())
}

func TestError_WithDetails(t *testing.T) {
	t.Parallel()
	base := New(CodeInsufficientPermissions, "insufficient permissions")

	withOne := base.WithDetail("required", []string{"read:users"})
	withTwo := withOne.WithDetails(map[string]any{"missing": []string{"read:users"}})

	// Original is unmodified.
	assert.Empty(t, base.Details)
	assert.Len(t, withOne.Details, 1)
	assert.Len(t, withTwo.Details, 2)
	assert.Equal(t, []string{"read:users"}, withTwo.Details["required"])
	assert.Equal(t, []string{"read:users"}, withTwo.Details["missing"])

	// Code, message, and cause are preserved.
	assert.Equal(t, base.Code, withTwo.Code)
	assert.Equal(t, base.Message, withTwo.Message)
}

func TestError_Format(t *testing.T) {
	t.Parallel()
	err := &Error{
		Code:    CodeKeyFetch,
		Message: "key set fetch failed",
		Cause:   errors.New("timeout"),
		Details: map[string]any{"attempts": 3},
	}

	plain := fmt.Sprintf("%v", err)
	assert.Equal(t, err.Error(), plain)

	quoted := fmt.Sprintf("%q", err)
	assert.Equal(t, fmt.Sprintf("%q", err.Error()), quoted)

	detailed := fmt.Sprintf("%+v", err)
	assert.Contains(t, detailed, `Code: "KEY_001"`)
	assert.Contains(t, detailed, "Details:")
	assert.Contains(t, detailed, "Cause:")
}
