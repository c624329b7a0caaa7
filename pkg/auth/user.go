package auth

import (
	"time"

	"github.com/google/uuid"
)

// AuthenticatedUser represents a principal whose bearer token has been
// verified. It carries a stable internal user ID, the provider-side
// subject, profile claims, and authorization attributes.
//
// AuthenticatedUser is immutable after creation; accessors return
// defensive copies of slice and map fields.
type AuthenticatedUser struct {
	id             uuid.UUID
	providerUserID string
	email          string
	emailVerified  bool
	displayName    string
	provider       string
	roles          []string
	permissions    []string
	metadata       map[string]string
	createdAt      time.Time
	lastLogin      time.Time
}

// NewAuthenticatedUser creates an AuthenticatedUser with the given
// attributes. Slice and map arguments are defensively copied. Nil
// roles, permissions, and metadata become empty, never nil.
//
// Most callers should use [UserFromClaims] instead; this constructor
// exists for stores and tests that assemble users directly.
func NewAuthenticatedUser(
	id uuid.UUID,
	providerUserID, email, displayName, provider string,
	emailVerified bool,
	roles, permissions []string,
	metadata map[string]string,
) *AuthenticatedUser {
	now := time.Now().UTC()
	return &AuthenticatedUser{
		id:             id,
		providerUserID: providerUserID,
		email:          email,
		emailVerified:  emailVerified,
		displayName:    displayName,
		provider:       provider,
		roles:          copyStrings(roles),
		permissions:    copyStrings(permissions),
		metadata:       copyMetadata(metadata),
		createdAt:      now,
		lastLogin:      now,
	}
}

// UserFromClaims maps verified token claims to an AuthenticatedUser.
// The mapping is pure and total: every non-nil TokenClaims produces a
// user without error.
//
// The internal user ID is derived deterministically from the token
// subject. Subjects that already are UUIDs are used as-is; any other
// subject is hashed into a name-based UUID (SHA-1, DNS namespace), so
// the same subject always maps to the same user ID across processes
// and restarts.
func UserFromClaims(claims *TokenClaims, providerName string) *AuthenticatedUser {
	if providerName == "" {
		providerName = claims.Provider
	}
	return NewAuthenticatedUser(
		UserIDFromSubject(claims.Subject),
		claims.Subject,
		claims.Email,
		claims.Name,
		providerName,
		claims.EmailVerified,
		claims.Roles,
		claims.Permissions,
		nil,
	)
}

// UserIDFromSubject derives the stable internal user ID for a token
// subject. If the subject parses as a UUID it is returned unchanged;
// otherwise a name-based UUID is generated from it.
func UserIDFromSubject(subject string) uuid.UUID {
	if id, err := uuid.Parse(subject); err == nil {
		return id
	}
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(subject))
}

// ID returns the stable internal user ID.
func (u *AuthenticatedUser) ID() uuid.UUID { return u.id }

// ProviderUserID returns the provider-side subject identifier.
func (u *AuthenticatedUser) ProviderUserID() string { return u.providerUserID }

// Email returns the user's email address, if the token carried one.
func (u *AuthenticatedUser) Email() string { return u.email }

// EmailVerified reports whether the provider attested the email address.
func (u *AuthenticatedUser) EmailVerified() bool { return u.emailVerified }

// DisplayName returns the user's display name, if the token carried one.
func (u *AuthenticatedUser) DisplayName() string { return u.displayName }

// Provider returns the name of the authentication provider that
// verified this user's token.
func (u *AuthenticatedUser) Provider() string { return u.provider }

// CreatedAt returns the time this user value was constructed.
func (u *AuthenticatedUser) CreatedAt() time.Time { return u.createdAt }

// LastLogin returns the time of the authentication that produced this
// user value.
func (u *AuthenticatedUser) LastLogin() time.Time { return u.lastLogin }

// Roles returns a copy of the user's role names.
func (u *AuthenticatedUser) Roles() []string { return copyStrings(u.roles) }

// Permissions returns a copy of the user's permission names.
func (u *AuthenticatedUser) Permissions() []string { return copyStrings(u.permissions) }

// Metadata returns a copy of the user's metadata map.
func (u *AuthenticatedUser) Metadata() map[string]string { return copyMetadata(u.metadata) }

// HasRole reports whether the user holds the given role.
func (u *AuthenticatedUser) HasRole(role string) bool {
	return containsString(u.roles, role)
}

// HasPermission reports whether the user holds the given permission.
func (u *AuthenticatedUser) HasPermission(permission string) bool {
	return containsString(u.permissions, permission)
}

// HasAnyRole reports whether the user holds at least one of the given
// roles. An empty argument list returns false.
func (u *AuthenticatedUser) HasAnyRole(roles ...string) bool {
	for _, r := range roles {
		if containsString(u.roles, r) {
			return true
		}
	}
	return false
}

// HasAllRoles reports whether the user holds every one of the given
// roles. An empty argument list returns true.
func (u *AuthenticatedUser) HasAllRoles(roles ...string) bool {
	for _, r := range roles {
		if !containsString(u.roles, r) {
			return false
		}
	}
	return true
}

// WithGrants returns a copy of the user with the given roles and
// permissions merged in. Duplicates are dropped; the user's existing
// grants keep their positions. The receiver is not modified.
//
// Stores use this to enrich a token-derived user with persisted grants.
func (u *AuthenticatedUser) WithGrants(roles, permissions []string) *AuthenticatedUser {
	merged := *u
	merged.roles = mergeStrings(u.roles, roles)
	merged.permissions = mergeStrings(u.permissions, permissions)
	merged.metadata = copyMetadata(u.metadata)
	return &merged
}

// WithMetadata returns a copy of the user with the given metadata
// entries added, overwriting existing keys. The receiver is not
// modified.
func (u *AuthenticatedUser) WithMetadata(metadata map[string]string) *AuthenticatedUser {
	updated := *u
	updated.roles = copyStrings(u.roles)
	updated.permissions = copyStrings(u.permissions)
	m := copyMetadata(u.metadata)
	for k, v := range metadata {
		m[k] = v
	}
	updated.metadata = m
	return &updated
}

func copyStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func copyMetadata(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

func mergeStrings(base, extra []string) []string {
	out := make([]string, 0, len(base)+len(extra))
	seen := make(map[string]struct{}, len(base)+len(extra))
	for _, s := range base {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	for _, s := range extra {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
