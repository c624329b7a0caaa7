// Package testutil provides shared test helpers for the authcore test
// suite.
//
// All helpers accept [testing.TB] for compatibility with both tests and
// benchmarks. Functions that halt the test on failure use [require] from
// testify; functions that record failures without stopping use [assert].
//
// Every helper calls t.Helper() so that test failure messages report the
// caller's file and line number rather than this package's.
package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	acerr "github.com/verityhq/authcore/pkg/errors"
)

// RequireErrorCode halts the test if err is nil, is not an *acerr.Error,
// or does not carry the expected error code. This is the primary helper
// for validating typed error responses.
//
// Example:
//
//	_, err := verifier.Verify(ctx, token)
//	testutil.RequireErrorCode(t, err, acerr.CodeTokenExpired)
func RequireErrorCode(t testing.TB, err error, code acerr.Code, msgAndArgs ...any) {
	t.Helper()
	require.Error(t, err, msgAndArgs...)
	acErr, ok := acerr.AsError(err)
	require.True(t, ok, "expected *acerr.Error, got %T: %v", err, err)
	require.Equal(t, code, acErr.Code,
		"error code mismatch: got %q, want %q (message: %s)",
		acErr.Code, code, acErr.Message)
}

// AssertErrorCode records a test failure (without halting) if err is nil,
// is not an *acerr.Error, or does not carry the expected error code.
// Use this in table-driven tests where you want to check all rows.
func AssertErrorCode(t testing.TB, err error, code acerr.Code, msgAndArgs ...any) bool {
	t.Helper()
	if !assert.Error(t, err, msgAndArgs...) {
		return false
	}
	acErr, ok := acerr.AsError(err)
	if !assert.True(t, ok, "expected *acerr.Error, got %T: %v", err, err) {
		return false
	}
	return assert.Equal(t, code, acErr.Code,
		"error code mismatch: got %q, want %q (message: %s)",
		acErr.Code, code, acErr.Message)
}

// TempConfigFile creates a temporary file with the given content and
// extension (e.g., ".yaml") inside t.TempDir(). The file is cleaned up
// automatically when the test finishes.
//
// The file is created with mode 0600 (owner read/write only).
func TempConfigFile(t testing.TB, content, ext string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config"+ext)
	err := os.WriteFile(path, []byte(content), 0o600)
	require.NoError(t, err, "failed to write temp config file %s", path)
	return path
}

// SetEnv sets an environment variable and registers a cleanup function
// that restores the original value (or unsets it if it was not set)
// when the test completes.
//
// Unlike t.Setenv, this works with [testing.TB], so it can be shared by
// tests and benchmarks. Do not use t.Parallel() in tests that set shared
// variables.
func SetEnv(t testing.TB, key, value string) {
	t.Helper()
	prev, existed := os.LookupEnv(key)
	err := os.Setenv(key, value)
	require.NoError(t, err, "failed to set env var %s", key)
	t.Cleanup(func() {
		if existed {
			_ = os.Setenv(key, prev)
		} else {
			_ = os.Unsetenv(key)
		}
	})
}

// AssertJSONNotContains marshals v to JSON and asserts that the
// resulting JSON string does not contain the unexpected substring.
// Useful for verifying that secrets are redacted in serialized output.
func AssertJSONNotContains(t testing.TB, v any, unexpected string) bool {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err, "json.Marshal failed")
	return assert.NotContains(t, string(data), unexpected,
		"expected JSON to NOT contain %q, got: %s", unexpected, string(data))
}
