package constants

const (
	SuperAdmin = "super-admin"
	Admin      = "admin"
	Moderator  = "moderator"
	Viewer     = "viewer"
)

// ValidRoles lists roles from least to most privileged.
var ValidRoles = []string{Viewer, Moderator, Admin, SuperAdmin}

// IsValidRole returns true if role is one of ValidRoles.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}
