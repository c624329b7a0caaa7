package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	acerr "github.com/verityhq/authcore/pkg/errors"
)

func testProvider(t *testing.T) (*GenericJWTProvider, func(claims map[string]any) string) {
	t.Helper()
	key := authTestRSAKey(t)
	v := testVerifier(t, staticKeySource{testKid: &key.PublicKey})

	provider, err := NewGenericJWTProvider("jwt", v)
	require.NoError(t, err)

	sign := func(overrides map[string]any) string {
		mc := authTestClaims("user-1")
		for k, val := range overrides {
			mc[k] = val
		}
		return authTestSignRSA(t, key, testKid, mc)
	}
	return provider, sign
}

func TestGenericJWTProvider_VerifyToken(t *testing.T) {
	t.Parallel()

	provider, sign := testProvider(t)

	claims, err := provider.VerifyToken(context.Background(), sign(nil))
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)

	_, err = provider.VerifyToken(context.Background(), "garbage")
	require.Error(t, err)
	assert.Equal(t, acerr.CodeTokenMalformed, acerr.GetCode(err))
}

func TestGenericJWTProvider_UserInfo(t *testing.T) {
	t.Parallel()

	provider, sign := testProvider(t)

	user, err := provider.UserInfo(context.Background(), sign(map[string]any{
		"email": "u@x.test",
		"roles": []string{"admin"},
	}))
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ProviderUserID())
	assert.Equal(t, "u@x.test", user.Email())
	assert.Equal(t, []string{"admin"}, user.Roles())
	assert.Equal(t, "jwt", user.Provider())
}

func TestGenericJWTProvider_RefreshAndRevokeNotImplemented(t *testing.T) {
	t.Parallel()

	provider, _ := testProvider(t)
	ctx := context.Background()

	_, err := provider.RefreshToken(ctx, "some-refresh-token")
	require.Error(t, err)
	assert.Equal(t, acerr.CodeNotImplementedByProvider, acerr.GetCode(err))
	assert.True(t, acerr.IsNotImplementedByProvider(err))

	err = provider.RevokeToken(ctx, "some-token")
	require.Error(t, err)
	assert.Equal(t, acerr.CodeNotImplementedByProvider, acerr.GetCode(err))

	acErr, ok := acerr.AsError(err)
	require.True(t, ok)
	assert.Equal(t, 501, acErr.HTTPStatus())
}

func TestGenericJWTProvider_ValidateHelpers(t *testing.T) {
	t.Parallel()

	provider, _ := testProvider(t)
	user := testUser([]string{"admin"}, []string{"documents:read"})

	assert.True(t, provider.ValidatePermissions(user, []string{"documents:read"}))
	assert.False(t, provider.ValidatePermissions(user, []string{"documents:write"}))
	assert.True(t, provider.ValidatePermissions(user, nil))

	assert.True(t, provider.ValidateRoles(user, []string{"admin", "operator"}))
	assert.False(t, provider.ValidateRoles(user, []string{"operator"}))
	assert.True(t, provider.ValidateRoles(user, nil))
}

// memoryRevocationList is an in-memory RevocationList for unit tests.
type memoryRevocationList struct {
	mu      sync.Mutex
	entries map[string]time.Time
	err     error
}

func newMemoryRevocationList() *memoryRevocationList {
	return &memoryRevocationList{entries: make(map[string]time.Time)}
}

func (l *memoryRevocationList) Revoke(_ context.Context, tokenHash string, ttl time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	l.entries[tokenHash] = time.Now().Add(ttl)
	return nil
}

func (l *memoryRevocationList) IsRevoked(_ context.Context, tokenHash string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return false, l.err
	}
	until, ok := l.entries[tokenHash]
	return ok && time.Now().Before(until), nil
}

func TestRevocableProvider_RevokeBlocksToken(t *testing.T) {
	t.Parallel()

	inner, sign := testProvider(t)
	list := newMemoryRevocationList()
	provider, err := NewRevocableProvider(inner, list)
	require.NoError(t, err)

	ctx := context.Background()
	token := sign(nil)

	// Valid before revocation.
	_, err = provider.VerifyToken(ctx, token)
	require.NoError(t, err)
	_, err = provider.UserInfo(ctx, token)
	require.NoError(t, err)

	require.NoError(t, provider.RevokeToken(ctx, token))

	_, err = provider.VerifyToken(ctx, token)
	require.Error(t, err)
	assert.Equal(t, acerr.CodeAuthentication, acerr.GetCode(err))

	_, err = provider.UserInfo(ctx, token)
	require.Error(t, err)

	// Other tokens are unaffected.
	_, err = provider.VerifyToken(ctx, sign(map[string]any{"sub": "user-2"}))
	assert.NoError(t, err)
}

func TestRevocableProvider_RevokeRequiresValidToken(t *testing.T) {
	t.Parallel()

	inner, _ := testProvider(t)
	provider, err := NewRevocableProvider(inner, newMemoryRevocationList())
	require.NoError(t, err)

	err = provider.RevokeToken(context.Background(), "garbage")
	require.Error(t, err)
	assert.Equal(t, acerr.CodeTokenMalformed, acerr.GetCode(err))
}

func TestRevocableProvider_ListUnavailableFailsClosed(t *testing.T) {
	t.Parallel()

	inner, sign := testProvider(t)
	list := newMemoryRevocationList()
	list.err = assert.AnError
	provider, err := NewRevocableProvider(inner, list)
	require.NoError(t, err)

	_, err = provider.VerifyToken(context.Background(), sign(nil))
	require.Error(t, err)
	assert.Equal(t, acerr.CodeUnavailableDependency, acerr.GetCode(err))
}

func TestRevocableProvider_Delegation(t *testing.T) {
	t.Parallel()

	inner, _ := testProvider(t)
	provider, err := NewRevocableProvider(inner, newMemoryRevocationList())
	require.NoError(t, err)

	assert.Equal(t, "jwt", provider.Name())

	// Refresh still reports the wrapped provider's capability gap.
	_, err = provider.RefreshToken(context.Background(), "rt")
	assert.Equal(t, acerr.CodeNotImplementedByProvider, acerr.GetCode(err))

	user := testUser([]string{"admin"}, []string{"documents:read"})
	assert.True(t, provider.ValidatePermissions(user, []string{"documents:read"}))
	assert.True(t, provider.ValidateRoles(user, []string{"admin"}))
}

func TestNewRevocableProvider_Validation(t *testing.T) {
	t.Parallel()

	inner, _ := testProvider(t)

	_, err := NewRevocableProvider(nil, newMemoryRevocationList())
	assert.Equal(t, acerr.CodeValidation, acerr.GetCode(err))

	_, err = NewRevocableProvider(inner, nil)
	assert.Equal(t, acerr.CodeValidation, acerr.GetCode(err))
}

func TestTokenHash(t *testing.T) {
	t.Parallel()

	assert.Equal(t, TokenHash("abc"), TokenHash("abc"))
	assert.NotEqual(t, TokenHash("abc"), TokenHash("abd"))
	assert.Len(t, TokenHash("abc"), 64)
}
