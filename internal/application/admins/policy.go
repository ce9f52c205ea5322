package admins

import (
	"estate-backend/internal/constants"
	"estate-backend/internal/domain"
)

// grantsSuperAdmin reports whether a change touches the super-admin role on either side.
func grantsSuperAdmin(from, to string) bool {
	return from == constants.SuperAdmin || to == constants.SuperAdmin
}

// CheckCreate validates that actor may create an admin with role.
func CheckCreate(actor *domain.Admin, role string) error {
	if actor == nil || actor.Role != constants.SuperAdmin {
		return ErrNotSuperAdmin
	}
	if !constants.IsValidRole(role) {
		return ErrInvalidRole
	}
	if role == constants.SuperAdmin && !actor.IsMainAdmin() {
		return ErrMainAdminRequired
	}
	return nil
}

// CheckDelete validates that actor may delete target.
func CheckDelete(actor, target *domain.Admin) error {
	if actor == nil || actor.Role != constants.SuperAdmin {
		return ErrNotSuperAdmin
	}
	if actor.UID == target.UID {
		return ErrSelfDelete
	}
	if target.IsMainAdmin() {
		return ErrMainAdminUndeletable
	}
	if target.Role == constants.SuperAdmin && !actor.IsMainAdmin() {
		return ErrMainAdminRequired
	}
	return nil
}

// CheckRoleChange validates that actor may move target to newRole.
// The main admin record never changes, whoever asks.
func CheckRoleChange(actor, target *domain.Admin, newRole string) error {
	if actor == nil || actor.Role != constants.SuperAdmin {
		return ErrNotSuperAdmin
	}
	if !constants.IsValidRole(newRole) {
		return ErrInvalidRole
	}
	if target.IsMainAdmin() {
		return ErrMainAdminImmutable
	}
	if actor.UID == target.UID && newRole != constants.SuperAdmin {
		return ErrSelfDemotion
	}
	if grantsSuperAdmin(target.Role, newRole) && !actor.IsMainAdmin() {
		return ErrMainAdminRequired
	}
	return nil
}
