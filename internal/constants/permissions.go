package constants

const (
	ViewDashboard     = "view_dashboard"
	ViewListings      = "view_listings"
	ViewAppointments  = "view_appointments"
	ViewMessages      = "view_messages"
	EditListing       = "edit_listing"
	UpdateAppointment = "update_appointment"
	UpdateMessage     = "update_message"
	CreateListing     = "create_listing"
	DeleteListing     = "delete_listing"
	UploadImages      = "upload_images"
	DeleteAppointment = "delete_appointment"
	DeleteMessage     = "delete_message"
	ViewAdmins        = "view_admins"
	ManageAdmins      = "manage_admins"
)
