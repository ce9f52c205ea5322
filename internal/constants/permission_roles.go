package constants

// RoleGrants is what each role adds on top of the role it inherits from.
var RoleGrants = map[string][]string{
	Viewer:     {ViewDashboard, ViewListings, ViewAppointments, ViewMessages},
	Moderator:  {EditListing, UpdateAppointment, UpdateMessage},
	Admin:      {CreateListing, DeleteListing, UploadImages, DeleteAppointment, DeleteMessage, ViewAdmins},
	SuperAdmin: {ManageAdmins},
}

// RoleParents makes every role a superset of the one below it.
var RoleParents = map[string]string{
	SuperAdmin: Admin,
	Admin:      Moderator,
	Moderator:  Viewer,
}

// AllPermissions lists every permission in RoleGrants.
func AllPermissions() []string {
	var out []string
	for _, role := range ValidRoles {
		out = append(out, RoleGrants[role]...)
	}
	return out
}
