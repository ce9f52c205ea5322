package site

import (
	"context"
	"strconv"
	"strings"

	"estate-backend/internal/application/appointments"
	"estate-backend/internal/application/messages"
	sitesvc "estate-backend/internal/application/site"
	"estate-backend/internal/domain"
	"estate-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

const defaultFeatured = 6

// Catalog answers the public listing queries.
type Catalog interface {
	Search(q sitesvc.Query) (*sitesvc.Results, error)
	Detail(numericID int64) (*sitesvc.Detail, error)
	Featured(n int) ([]domain.Listing, error)
}

// Forms accepts the public forms.
type Forms interface {
	SubmitContact(ctx context.Context, in messages.ContactInput) (*domain.UserMessage, error)
	BookAppointment(ctx context.Context, in appointments.BookingInput) (*domain.Appointment, error)
}

type Handlers struct {
	Catalog Catalog
	Forms   Forms
}

var errorTable = map[error]response.Rule{
	sitesvc.ErrListingNotFound:      {Status: fiber.StatusNotFound, Code: "LISTING_NOT_FOUND"},
	sitesvc.ErrInvalidSort:          {Status: fiber.StatusBadRequest, Code: "INVALID_SORT"},
	appointments.ErrListingNotFound: {Status: fiber.StatusBadRequest, Code: "LISTING_NOT_FOUND"},
}

type searchParams struct {
	Q            string  `query:"q"`
	Location     string  `query:"location"`
	MinPrice     float64 `query:"minPrice"`
	MaxPrice     float64 `query:"maxPrice"`
	MinBedrooms  int     `query:"bedrooms"`
	MinBathrooms int     `query:"bathrooms"`
	MinArea      float64 `query:"minArea"`
	Status       string  `query:"status"`
	Amenities    string  `query:"amenities"`
	Sort         string  `query:"sort"`
	Page         int     `query:"page"`
	Limit        int     `query:"limit"`
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Search GET /api/listings
func (h *Handlers) Search(c *fiber.Ctx) error {
	var p searchParams
	if err := c.QueryParser(&p); err != nil {
		return response.Error(c, fiber.StatusBadRequest, response.CodeBadRequest, "Invalid search parameters", nil)
	}
	res, err := h.Catalog.Search(sitesvc.Query{
		Text:         p.Q,
		Location:     p.Location,
		MinPrice:     p.MinPrice,
		MaxPrice:     p.MaxPrice,
		MinBedrooms:  p.MinBedrooms,
		MinBathrooms: p.MinBathrooms,
		MinArea:      p.MinArea,
		Status:       p.Status,
		Amenities:    splitList(p.Amenities),
		Sort:         p.Sort,
		Page:         p.Page,
		Limit:        p.Limit,
	})
	if err != nil {
		return response.FromError(c, err, errorTable)
	}
	return response.Success(c, "", res)
}

// Featured GET /api/listings/featured?limit=
func (h *Handlers) Featured(c *fiber.Ctx) error {
	n := c.QueryInt("limit", defaultFeatured)
	if n <= 0 || n > sitesvc.MaxLimit {
		n = defaultFeatured
	}
	out, err := h.Catalog.Featured(n)
	if err != nil {
		return err
	}
	return response.Success(c, "", out)
}

// Detail GET /api/listings/:numericId
func (h *Handlers) Detail(c *fiber.Ctx) error {
	n, err := strconv.ParseInt(c.Params("numericId"), 10, 64)
	if err != nil || n <= 0 {
		return response.Error(c, fiber.StatusBadRequest, response.CodeBadRequest, "numericId must be a positive integer", nil)
	}
	d, err := h.Catalog.Detail(n)
	if err != nil {
		return response.FromError(c, err, errorTable)
	}
	return response.Success(c, "", d)
}

// Contact POST /api/contact
func (h *Handlers) Contact(c *fiber.Ctx) error {
	var in messages.ContactInput
	if err := c.BodyParser(&in); err != nil {
		return response.Error(c, fiber.StatusBadRequest, response.CodeBadRequest, "Invalid request body", nil)
	}
	m, err := h.Forms.SubmitContact(c.UserContext(), in)
	if err != nil {
		return response.FromError(c, err, errorTable)
	}
	return response.SuccessCreated(c, "Thank you! We will get back to you shortly.", fiber.Map{"id": m.ID})
}

// BookAppointment POST /api/appointments
func (h *Handlers) BookAppointment(c *fiber.Ctx) error {
	var in appointments.BookingInput
	if err := c.BodyParser(&in); err != nil {
		return response.Error(c, fiber.StatusBadRequest, response.CodeBadRequest, "Invalid request body", nil)
	}
	a, err := h.Forms.BookAppointment(c.UserContext(), in)
	if err != nil {
		return response.FromError(c, err, errorTable)
	}
	return response.SuccessCreated(c, "Your viewing request has been received.", fiber.Map{
		"id":            a.ID,
		"numericId":     a.NumericID,
		"scheduledDate": a.ScheduledDate,
	})
}
