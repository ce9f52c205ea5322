package console

import (
	"encoding/json"
	"strconv"

	"estate-backend/internal/application/appointments"
	"estate-backend/internal/application/console"
	"estate-backend/internal/application/listings"
	"estate-backend/internal/application/messages"
	"estate-backend/internal/domain"
	"estate-backend/internal/interfaces/handlers/uploads"
	"estate-backend/internal/middleware"
	"estate-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// Handlers exposes the console pages over HTTP.
type Handlers struct {
	Console *console.Console
}

var errorTable = map[error]response.Rule{
	listings.ErrListingNotFound:         {Status: fiber.StatusNotFound, Code: "LISTING_NOT_FOUND"},
	listings.ErrInvalidStatus:           {Status: fiber.StatusBadRequest, Code: "INVALID_STATUS"},
	appointments.ErrAppointmentNotFound: {Status: fiber.StatusNotFound, Code: "APPOINTMENT_NOT_FOUND"},
	appointments.ErrInvalidStatus:       {Status: fiber.StatusBadRequest, Code: "INVALID_STATUS"},
	messages.ErrMessageNotFound:         {Status: fiber.StatusNotFound, Code: "MESSAGE_NOT_FOUND"},
}

func init() {
	for err, rule := range uploads.ErrorTable() {
		errorTable[err] = rule
	}
}

type statusRequest struct {
	Status string `json:"status"`
}

type viewedRequest struct {
	Viewed *bool `json:"viewed"`
}

func badBody(c *fiber.Ctx) error {
	return response.Error(c, fiber.StatusBadRequest, response.CodeBadRequest, "Invalid request body", nil)
}

// Dashboard GET /api/console/dashboard
func (h *Handlers) Dashboard(c *fiber.Ctx) error {
	stats, err := h.Console.Dashboard.Stats()
	if err != nil {
		return err
	}
	return response.Success(c, "", stats)
}

// ListListings GET /api/console/listings?status=&q=
func (h *Handlers) ListListings(c *fiber.Ctx) error {
	out, err := h.Console.Listings.List(console.ListingFilter{Status: c.Query("status"), Query: c.Query("q")})
	if err != nil {
		return err
	}
	return response.Success(c, "", out)
}

// CreateListing POST /api/console/listings
// Accepts JSON, or a multipart form with the listing JSON in "listing" and images in "main"/"detail".
func (h *Handlers) CreateListing(c *fiber.Ctx) error {
	var in listings.Input
	form, err := c.MultipartForm()
	if err == nil {
		raw := form.Value["listing"]
		if len(raw) == 0 || json.Unmarshal([]byte(raw[0]), &in) != nil {
			return response.Error(c, fiber.StatusBadRequest, response.CodeBadRequest, "listing field must hold the listing JSON", nil)
		}
	} else if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}

	admin := middleware.GetAdmin(c)
	creator := domain.Creator{UID: admin.UID, Name: admin.DisplayName(), Email: admin.Email}
	l, err := h.Console.Listings.Create(c.UserContext(), in, creator, uploads.FilesFromForm(form), nil)
	if err != nil {
		return response.FromError(c, err, errorTable)
	}
	return response.SuccessCreated(c, "Listing created", l)
}

// UpdateListing PUT /api/console/listings/:id
func (h *Handlers) UpdateListing(c *fiber.Ctx) error {
	var in listings.Input
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	l, err := h.Console.Listings.Update(c.UserContext(), c.Params("id"), in)
	if err != nil {
		return response.FromError(c, err, errorTable)
	}
	return response.Success(c, "Listing updated", l)
}

// SetListingStatus PATCH /api/console/listings/:id/status
func (h *Handlers) SetListingStatus(c *fiber.Ctx) error {
	var req statusRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	if err := h.Console.Listings.SetStatus(c.UserContext(), c.Params("id"), req.Status); err != nil {
		return response.FromError(c, err, errorTable)
	}
	return response.Success(c, "Listing marked "+req.Status, nil)
}

// DeleteListing DELETE /api/console/listings/:id
func (h *Handlers) DeleteListing(c *fiber.Ctx) error {
	if err := h.Console.Listings.Delete(c.UserContext(), c.Params("id")); err != nil {
		return response.FromError(c, err, errorTable)
	}
	return response.Success(c, "Listing deleted", nil)
}

// ListAppointments GET /api/console/appointments?status=&unviewed=true
func (h *Handlers) ListAppointments(c *fiber.Ctx) error {
	unviewed, _ := strconv.ParseBool(c.Query("unviewed"))
	out, err := h.Console.Appointments.List(console.AppointmentFilter{Status: c.Query("status"), UnviewedOnly: unviewed})
	if err != nil {
		return err
	}
	return response.Success(c, "", out)
}

// SetAppointmentStatus PATCH /api/console/appointments/:id/status
func (h *Handlers) SetAppointmentStatus(c *fiber.Ctx) error {
	var req statusRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	var err error
	switch req.Status {
	case domain.AppointmentDone:
		err = h.Console.Appointments.MarkDone(c.UserContext(), c.Params("id"))
	case domain.AppointmentPending:
		err = h.Console.Appointments.MarkPending(c.UserContext(), c.Params("id"))
	default:
		err = appointments.ErrInvalidStatus
	}
	if err != nil {
		return response.FromError(c, err, errorTable)
	}
	return response.Success(c, "Appointment marked "+req.Status, nil)
}

// SetAppointmentViewed PATCH /api/console/appointments/:id/viewed
func (h *Handlers) SetAppointmentViewed(c *fiber.Ctx) error {
	var req viewedRequest
	if err := c.BodyParser(&req); err != nil || req.Viewed == nil {
		return response.Error(c, fiber.StatusBadRequest, "MISSING_FIELDS", "viewed is required", nil)
	}
	if err := h.Console.Appointments.MarkViewed(c.UserContext(), c.Params("id"), *req.Viewed); err != nil {
		return response.FromError(c, err, errorTable)
	}
	return response.Success(c, "", nil)
}

// DeleteAppointment DELETE /api/console/appointments/:id
func (h *Handlers) DeleteAppointment(c *fiber.Ctx) error {
	if err := h.Console.Appointments.Delete(c.UserContext(), c.Params("id")); err != nil {
		return response.FromError(c, err, errorTable)
	}
	return response.Success(c, "Appointment deleted", nil)
}

// ListMessages GET /api/console/messages?unviewed=true
func (h *Handlers) ListMessages(c *fiber.Ctx) error {
	unviewed, _ := strconv.ParseBool(c.Query("unviewed"))
	out, err := h.Console.Messages.List(unviewed)
	if err != nil {
		return err
	}
	return response.Success(c, "", out)
}

// SetMessageViewed PATCH /api/console/messages/:id/viewed
func (h *Handlers) SetMessageViewed(c *fiber.Ctx) error {
	var req viewedRequest
	if err := c.BodyParser(&req); err != nil || req.Viewed == nil {
		return response.Error(c, fiber.StatusBadRequest, "MISSING_FIELDS", "viewed is required", nil)
	}
	if err := h.Console.Messages.MarkViewed(c.UserContext(), c.Params("id"), *req.Viewed); err != nil {
		return response.FromError(c, err, errorTable)
	}
	return response.Success(c, "", nil)
}

// DeleteMessage DELETE /api/console/messages/:id
func (h *Handlers) DeleteMessage(c *fiber.Ctx) error {
	if err := h.Console.Messages.Delete(c.UserContext(), c.Params("id")); err != nil {
		return response.FromError(c, err, errorTable)
	}
	return response.Success(c, "Message deleted", nil)
}

// ListAdmins GET /api/console/admins
func (h *Handlers) ListAdmins(c *fiber.Ctx) error {
	out, err := h.Console.Admins.List()
	if err != nil {
		return err
	}
	return response.Success(c, "", out)
}
