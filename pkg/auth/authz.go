package auth

import (
	acerr "github.com/verityhq/authcore/pkg/errors"
)

// HasAllPermissions reports whether the user holds every permission in
// required. An empty required set always passes: a protected operation
// that demands nothing is open to any authenticated user.
func HasAllPermissions(user *AuthenticatedUser, required []string) bool {
	for _, p := range required {
		if !containsString(user.permissions, p) {
			return false
		}
	}
	return true
}

// HasAnyRole reports whether the user holds at least one role in
// required. An empty required set always passes, consistent with
// [HasAllPermissions].
func HasAnyRole(user *AuthenticatedUser, required []string) bool {
	if len(required) == 0 {
		return true
	}
	for _, r := range required {
		if containsString(user.roles, r) {
			return true
		}
	}
	return false
}

// MissingPermissions returns the permissions in required that the user
// does not hold, preserving the order of required. Returns an empty
// slice when nothing is missing.
func MissingPermissions(user *AuthenticatedUser, required []string) []string {
	missing := []string{}
	for _, p := range required {
		if !containsString(user.permissions, p) {
			missing = append(missing, p)
		}
	}
	return missing
}

// RequirePermissions returns nil when the user holds every permission
// in required, or a *[acerr.Error] with code
// [acerr.CodeInsufficientPermissions] whose Details carry the required
// and missing sets.
func RequirePermissions(user *AuthenticatedUser, required []string) error {
	missing := MissingPermissions(user, required)
	if len(missing) == 0 {
		return nil
	}
	return acerr.InsufficientPermissions(required, missing)
}

// RequireRoles returns nil when the user holds at least one role in
// required (or required is empty), or a *[acerr.Error] with code
// [acerr.CodeInsufficientRoles] whose Details carry the required set.
func RequireRoles(user *AuthenticatedUser, required []string) error {
	if HasAnyRole(user, required) {
		return nil
	}
	return acerr.InsufficientRoles(required)
}

// PermissionRequirement attaches a required permission set to a
// protected operation at configuration time.
//
// Example:
//
//	adminWrite := auth.NewPermissionRequirement("documents:write", "documents:delete")
//	if err := adminWrite.Check(user); err != nil {
//	    return err
//	}
type PermissionRequirement struct {
	required []string
}

// NewPermissionRequirement creates a requirement for the given
// permissions. The argument list is defensively copied.
func NewPermissionRequirement(permissions ...string) PermissionRequirement {
	return PermissionRequirement{required: copyStrings(permissions)}
}

// Required returns a copy of the permission set this requirement checks.
func (r PermissionRequirement) Required() []string { return copyStrings(r.required) }

// Satisfied reports whether the user holds every required permission.
func (r PermissionRequirement) Satisfied(user *AuthenticatedUser) bool {
	return HasAllPermissions(user, r.required)
}

// Check returns nil when the requirement is satisfied, or the typed
// insufficient-permissions error otherwise.
func (r PermissionRequirement) Check(user *AuthenticatedUser) error {
	return RequirePermissions(user, r.required)
}

// RoleRequirement attaches a required role set to a protected operation
// at configuration time. The requirement is satisfied when the user
// holds any one of the roles.
type RoleRequirement struct {
	required []string
}

// NewRoleRequirement creates a requirement for the given roles. The
// argument list is defensively copied.
func NewRoleRequirement(roles ...string) RoleRequirement {
	return RoleRequirement{required: copyStrings(roles)}
}

// Required returns a copy of the role set this requirement checks.
func (r RoleRequirement) Required() []string { return copyStrings(r.required) }

// Satisfied reports whether the user holds at least one required role.
func (r RoleRequirement) Satisfied(user *AuthenticatedUser) bool {
	return HasAnyRole(user, r.required)
}

// Check returns nil when the requirement is satisfied, or the typed
// insufficient-roles error otherwise.
func (r RoleRequirement) Check(user *AuthenticatedUser) error {
	return RequireRoles(user, r.required)
}
