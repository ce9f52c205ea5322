package admins

import "errors"

var (
	ErrCallerNotAdmin       = errors.New("Caller has no admin profile")
	ErrNotSuperAdmin        = errors.New("Only super-admins can manage admins")
	ErrMainAdminRequired    = errors.New("Only the main admin can grant or revoke super-admin")
	ErrSelfDelete           = errors.New("You cannot delete your own account")
	ErrSelfDemotion         = errors.New("Super-admins cannot demote themselves")
	ErrMainAdminImmutable   = errors.New("The main admin cannot be modified")
	ErrMainAdminUndeletable = errors.New("The main admin cannot be deleted")
	ErrAdminNotFound        = errors.New("Admin not found")
	ErrMissingAdminID       = errors.New("adminId is required")
	ErrInvalidRole          = errors.New("Role must be one of: viewer, moderator, admin, super-admin")
	ErrProfileWriteFailed   = errors.New("Failed to save admin profile")
)
