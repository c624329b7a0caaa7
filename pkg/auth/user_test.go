package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClaims(sub string) *TokenClaims {
	return &TokenClaims{
		Subject:       sub,
		Issuer:        testIssuer,
		Audience:      []string{testAudience},
		Email:         "dev@example.com",
		EmailVerified: true,
		Name:          "Dev Example",
		Provider:      "jwt",
		Roles:         []string{"admin"},
		Permissions:   []string{"documents:read"},
		ExpiresAt:     time.Now().Add(time.Hour),
	}
}

func TestUserIDFromSubject(t *testing.T) {
	t.Parallel()

	t.Run("uuid subject used as-is", func(t *testing.T) {
		t.Parallel()
		id := uuid.New()
		assert.Equal(t, id, UserIDFromSubject(id.String()))
	})

	t.Run("non-uuid subject is deterministic", func(t *testing.T) {
		t.Parallel()
		first := UserIDFromSubject("auth0|abc123")
		second := UserIDFromSubject("auth0|abc123")
		assert.Equal(t, first, second)
		assert.NotEqual(t, uuid.Nil, first)
	})

	t.Run("distinct subjects map to distinct ids", func(t *testing.T) {
		t.Parallel()
		assert.NotEqual(t, UserIDFromSubject("auth0|a"), UserIDFromSubject("auth0|b"))
	})
}

func TestUserFromClaims(t *testing.T) {
	t.Parallel()

	claims := testClaims("auth0|abc123")
	user := UserFromClaims(claims, "auth0")

	assert.Equal(t, UserIDFromSubject("auth0|abc123"), user.ID())
	assert.Equal(t, "auth0|abc123", user.ProviderUserID())
	assert.Equal(t, "dev@example.com", user.Email())
	assert.True(t, user.EmailVerified())
	assert.Equal(t, "Dev Example", user.DisplayName())
	assert.Equal(t, "auth0", user.Provider())
	assert.Equal(t, []string{"admin"}, user.Roles())
	assert.Equal(t, []string{"documents:read"}, user.Permissions())
	assert.False(t, user.CreatedAt().IsZero())
	assert.False(t, user.LastLogin().IsZero())
	assert.NotNil(t, user.Metadata())
}

func TestUserFromClaims_UsesClaimsProviderWhenUnnamed(t *testing.T) {
	t.Parallel()

	user := UserFromClaims(testClaims("u"), "")
	assert.Equal(t, "jwt", user.Provider())
}

func TestUserFromClaims_Idempotent(t *testing.T) {
	t.Parallel()

	first := UserFromClaims(testClaims("service-account@apps"), "jwt")
	second := UserFromClaims(testClaims("service-account@apps"), "jwt")
	assert.Equal(t, first.ID(), second.ID())
}

func TestAuthenticatedUser_DefensiveCopies(t *testing.T) {
	t.Parallel()

	user := NewAuthenticatedUser(
		uuid.New(), "sub", "e@x.test", "E X", "jwt", true,
		[]string{"admin"}, []string{"documents:read"},
		map[string]string{"tenant": "acme"},
	)

	roles := user.Roles()
	roles[0] = "mutated"
	assert.Equal(t, []string{"admin"}, user.Roles())

	perms := user.Permissions()
	perms[0] = "mutated"
	assert.Equal(t, []string{"documents:read"}, user.Permissions())

	meta := user.Metadata()
	meta["tenant"] = "mutated"
	assert.Equal(t, "acme", user.Metadata()["tenant"])
}

func TestAuthenticatedUser_RoleAndPermissionChecks(t *testing.T) {
	t.Parallel()

	user := NewAuthenticatedUser(
		uuid.New(), "sub", "", "", "jwt", false,
		[]string{"admin", "editor"}, []string{"documents:read"}, nil,
	)

	assert.True(t, user.HasRole("admin"))
	assert.False(t, user.HasRole("viewer"))
	assert.True(t, user.HasPermission("documents:read"))
	assert.False(t, user.HasPermission("documents:write"))

	assert.True(t, user.HasAnyRole("viewer", "editor"))
	assert.False(t, user.HasAnyRole("viewer", "operator"))
	assert.False(t, user.HasAnyRole())

	assert.True(t, user.HasAllRoles("admin", "editor"))
	assert.False(t, user.HasAllRoles("admin", "viewer"))
	assert.True(t, user.HasAllRoles())
}

func TestAuthenticatedUser_WithGrants(t *testing.T) {
	t.Parallel()

	user := NewAuthenticatedUser(
		uuid.New(), "sub", "", "", "jwt", false,
		[]string{"admin"}, []string{"documents:read"}, nil,
	)

	enriched := user.WithGrants([]string{"admin", "auditor"}, []string{"logs:read"})

	assert.Equal(t, []string{"admin", "auditor"}, enriched.Roles())
	assert.Equal(t, []string{"documents:read", "logs:read"}, enriched.Permissions())
	assert.Equal(t, user.ID(), enriched.ID())

	// The receiver is untouched.
	assert.Equal(t, []string{"admin"}, user.Roles())
	assert.Equal(t, []string{"documents:read"}, user.Permissions())
}

func TestAuthenticatedUser_WithMetadata(t *testing.T) {
	t.Parallel()

	user := NewAuthenticatedUser(
		uuid.New(), "sub", "", "", "jwt", false, nil, nil,
		map[string]string{"tenant": "acme"},
	)

	updated := user.WithMetadata(map[string]string{"tenant": "globex", "region": "eu"})

	require.Equal(t, "globex", updated.Metadata()["tenant"])
	require.Equal(t, "eu", updated.Metadata()["region"])
	assert.Equal(t, "acme", user.Metadata()["tenant"])
}
