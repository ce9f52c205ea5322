package console

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"estate-backend/internal/application/appointments"
	"estate-backend/internal/application/console"
	"estate-backend/internal/application/listings"
	"estate-backend/internal/application/messages"
	"estate-backend/internal/authz"
	"estate-backend/internal/constants"
	"estate-backend/internal/domain"
	"estate-backend/internal/infrastructure/identity"
	"estate-backend/internal/interfaces/handlers/handlertest"
	"estate-backend/internal/middleware"
	"estate-backend/internal/pkg/toast"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type consoleTest struct {
	app    *fiber.App
	env    *handlertest.Env
	svc    *handlertest.Services
	toasts *toast.Recorder
	owner  string
}

func setupConsoleTest(t *testing.T) *consoleTest {
	env := handlertest.New(t)
	svc := env.Services(t)
	toasts := &toast.Recorder{}
	con := console.New(console.Deps{
		Store:        svc.Store,
		Listings:     svc.Listings,
		Uploads:      svc.Uploads,
		Appointments: svc.Appointments,
		Messages:     svc.Messages,
		Toaster:      toasts,
	})
	t.Cleanup(con.Close)

	h := &Handlers{Console: con}
	enf := authz.MustNew()
	perm := func(p string) fiber.Handler { return middleware.AuthorizePermission(enf, p) }

	app := fiber.New()
	g := app.Group("/api/console", middleware.RequireAuth(env.Provider), middleware.RequireAdmin(env.Admins))
	g.Get("/dashboard", perm(constants.ViewDashboard), h.Dashboard)
	g.Get("/listings", perm(constants.ViewListings), h.ListListings)
	g.Post("/listings", perm(constants.CreateListing), h.CreateListing)
	g.Put("/listings/:id", perm(constants.EditListing), h.UpdateListing)
	g.Patch("/listings/:id/status", perm(constants.EditListing), h.SetListingStatus)
	g.Delete("/listings/:id", perm(constants.DeleteListing), h.DeleteListing)
	g.Get("/appointments", perm(constants.ViewAppointments), h.ListAppointments)
	g.Patch("/appointments/:id/status", perm(constants.UpdateAppointment), h.SetAppointmentStatus)
	g.Patch("/appointments/:id/viewed", perm(constants.UpdateAppointment), h.SetAppointmentViewed)
	g.Delete("/appointments/:id", perm(constants.DeleteAppointment), h.DeleteAppointment)
	g.Get("/messages", perm(constants.ViewMessages), h.ListMessages)
	g.Patch("/messages/:id/viewed", perm(constants.UpdateMessage), h.SetMessageViewed)
	g.Delete("/messages/:id", perm(constants.DeleteMessage), h.DeleteMessage)
	g.Get("/admins", perm(constants.ViewAdmins), h.ListAdmins)

	return &consoleTest{app: app, env: env, svc: svc, toasts: toasts, owner: env.OwnerToken(t)}
}

func (ct *consoleTest) do(t *testing.T, method, path, token string, body io.Reader, contentType string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := ct.app.Test(req, -1)
	require.NoError(t, err)
	var out map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func (ct *consoleTest) json(t *testing.T, method, path, token string, v interface{}) (int, map[string]interface{}) {
	b, _ := json.Marshal(v)
	return ct.do(t, method, path, token, bytes.NewReader(b), "application/json")
}

func TestListings_CreateEditStatusDelete(t *testing.T) {
	ct := setupConsoleTest(t)

	status, out := ct.json(t, "POST", "/api/console/listings", ct.owner, listings.Input{
		Title: "Garden house", Location: "Limassol", Price: 420000, Bedrooms: 3, Bathrooms: 2, Area: 180,
	})
	require.Equal(t, 201, status, out)
	created := out["data"].(map[string]interface{})
	id := created["id"].(string)
	assert.Equal(t, 1.0, created["numericId"])
	assert.Equal(t, domain.ListingAvailable, created["status"])

	assert.Eventually(t, func() bool {
		_, out := ct.do(t, "GET", "/api/console/listings?q=garden", ct.owner, nil, "")
		data, _ := out["data"].([]interface{})
		return len(data) == 1
	}, 2*time.Second, 20*time.Millisecond)

	status, out = ct.json(t, "PUT", "/api/console/listings/"+id, ct.owner, listings.Input{
		Title: "Garden house", Location: "Paphos", Price: 400000, Bedrooms: 3, Bathrooms: 2, Area: 180,
	})
	require.Equal(t, 200, status, out)
	assert.Equal(t, "Paphos", out["data"].(map[string]interface{})["location"])

	status, _ = ct.json(t, "PATCH", "/api/console/listings/"+id+"/status", ct.owner, fiber.Map{"status": "sold"})
	require.Equal(t, 200, status)
	var l domain.Listing
	require.NoError(t, ct.env.DB.Where("id = ?", id).First(&l).Error)
	assert.Equal(t, domain.ListingSold, l.Status)
	assert.NotNil(t, l.SoldDate)

	status, out = ct.json(t, "PATCH", "/api/console/listings/"+id+"/status", ct.owner, fiber.Map{"status": "gone"})
	assert.Equal(t, 400, status)
	assert.Equal(t, "INVALID_STATUS", out["code"])

	status, _ = ct.do(t, "DELETE", "/api/console/listings/"+id, ct.owner, nil, "")
	require.Equal(t, 200, status)
	status, out = ct.do(t, "DELETE", "/api/console/listings/"+id, ct.owner, nil, "")
	assert.Equal(t, 404, status)
	assert.Equal(t, "LISTING_NOT_FOUND", out["code"])

	last, ok := ct.toasts.Last()
	require.True(t, ok)
	assert.Equal(t, toast.LevelError, last.Level)
}

func TestListings_CreateWithImages(t *testing.T) {
	ct := setupConsoleTest(t)
	listing, _ := json.Marshal(listings.Input{Title: "Loft", Location: "Nicosia", Price: 150000})
	body, contentType := handlertest.Multipart(t, map[string]string{"listing": string(listing)},
		handlertest.Part{Field: "detail", Name: "bath.jpg", ContentType: "image/jpeg", Body: []byte("detail")},
		handlertest.Part{Field: "main", Name: "front.jpg", ContentType: "image/jpeg", Body: []byte("main")},
	)
	status, out := ct.do(t, "POST", "/api/console/listings", ct.owner, body, contentType)
	require.Equal(t, 201, status, out)

	images := out["data"].(map[string]interface{})["images"].([]interface{})
	require.Len(t, images, 2)
	assert.Contains(t, images[0], "_main_front.jpg")
	assert.Contains(t, images[1], "_detail_bath.jpg")
	assert.Equal(t, 2, ct.svc.Objects.Len())

	body, contentType = handlertest.Multipart(t, map[string]string{"listing": `{"title":""}`},
		handlertest.Part{Field: "main", Name: "front.jpg", ContentType: "image/jpeg", Body: []byte("main")},
	)
	status, out = ct.do(t, "POST", "/api/console/listings", ct.owner, body, contentType)
	assert.Equal(t, 400, status)
	assert.Equal(t, "VALIDATION_FAILED", out["code"])
	assert.Equal(t, 2, ct.svc.Objects.Len(), "uploads of a rejected listing are removed")
}

func TestPermissions(t *testing.T) {
	ct := setupConsoleTest(t)
	ct.env.AddAdmin(t, "viewer@estate.test", constants.Viewer)
	viewer := ct.env.Token(t, "viewer@estate.test", "secret1")

	status, out := ct.do(t, "GET", "/api/console/dashboard", viewer, nil, "")
	require.Equal(t, 200, status, out)
	assert.Contains(t, out["data"], "totalListings")

	status, out = ct.json(t, "POST", "/api/console/listings", viewer, listings.Input{Title: "x", Location: "y"})
	assert.Equal(t, 403, status)
	assert.Equal(t, "PERMISSION_DENIED", out["code"])

	status, _ = ct.do(t, "GET", "/api/console/admins", viewer, nil, "")
	assert.Equal(t, 403, status)

	_, err := ct.env.Provider.CreateUser(context.Background(), identityParams("stranger@estate.test"))
	require.NoError(t, err)
	status, out = ct.do(t, "GET", "/api/console/dashboard", ct.env.Token(t, "stranger@estate.test", "secret1"), nil, "")
	assert.Equal(t, 403, status)
	assert.Equal(t, "NOT_AN_ADMIN", out["code"])
}

func TestAppointments(t *testing.T) {
	ct := setupConsoleTest(t)
	ctx := context.Background()
	l, err := ct.svc.Listings.Create(ctx, listings.Input{Title: "Villa", Location: "Ayia Napa", Price: 900000}, domain.Creator{UID: "u"})
	require.NoError(t, err)
	a, err := ct.svc.Appointments.Create(ctx, appointments.BookingInput{
		Name: "Maria Lopez", Email: "maria@example.com", ListingNumericID: l.NumericID,
		ScheduledDate: time.Now().Add(48 * time.Hour),
	})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		_, out := ct.do(t, "GET", "/api/console/appointments?unviewed=true", ct.owner, nil, "")
		data, _ := out["data"].([]interface{})
		return len(data) == 1
	}, 2*time.Second, 20*time.Millisecond)

	status, _ := ct.json(t, "PATCH", "/api/console/appointments/"+a.ID+"/status", ct.owner, fiber.Map{"status": "done"})
	require.Equal(t, 200, status)
	status, out := ct.json(t, "PATCH", "/api/console/appointments/"+a.ID+"/status", ct.owner, fiber.Map{"status": "later"})
	assert.Equal(t, 400, status)
	assert.Equal(t, "INVALID_STATUS", out["code"])

	status, _ = ct.json(t, "PATCH", "/api/console/appointments/"+a.ID+"/viewed", ct.owner, fiber.Map{"viewed": true})
	require.Equal(t, 200, status)
	status, _ = ct.json(t, "PATCH", "/api/console/appointments/"+a.ID+"/viewed", ct.owner, fiber.Map{})
	assert.Equal(t, 400, status)

	var got domain.Appointment
	require.NoError(t, ct.env.DB.Where("id = ?", a.ID).First(&got).Error)
	assert.Equal(t, domain.AppointmentDone, got.Status)
	assert.True(t, got.Viewed)

	status, _ = ct.do(t, "DELETE", "/api/console/appointments/"+a.ID, ct.owner, nil, "")
	require.Equal(t, 200, status)
	status, out = ct.do(t, "DELETE", "/api/console/appointments/"+a.ID, ct.owner, nil, "")
	assert.Equal(t, 404, status)
	assert.Equal(t, "APPOINTMENT_NOT_FOUND", out["code"])
}

func TestMessages(t *testing.T) {
	ct := setupConsoleTest(t)
	m, err := ct.svc.Messages.Create(context.Background(), messages.ContactInput{
		FirstName: "Ana", Email: "ana@example.com", Message: "Is the loft still available?",
	})
	require.NoError(t, err)

	status, _ := ct.json(t, "PATCH", "/api/console/messages/"+m.ID+"/viewed", ct.owner, fiber.Map{"viewed": true})
	require.Equal(t, 200, status)
	var got domain.UserMessage
	require.NoError(t, ct.env.DB.Where("id = ?", m.ID).First(&got).Error)
	assert.True(t, got.Viewed)

	status, _ = ct.do(t, "DELETE", "/api/console/messages/"+m.ID, ct.owner, nil, "")
	require.Equal(t, 200, status)
	status, out := ct.json(t, "PATCH", "/api/console/messages/"+m.ID+"/viewed", ct.owner, fiber.Map{"viewed": false})
	assert.Equal(t, 404, status)
	assert.Equal(t, "MESSAGE_NOT_FOUND", out["code"])
}

func TestListAdmins(t *testing.T) {
	ct := setupConsoleTest(t)
	assert.Eventually(t, func() bool {
		status, out := ct.do(t, "GET", "/api/console/admins", ct.owner, nil, "")
		data, _ := out["data"].([]interface{})
		return status == 200 && len(data) == 1
	}, 2*time.Second, 20*time.Millisecond)
}

func identityParams(email string) identity.CreateUserParams {
	return identity.CreateUserParams{Email: email, Password: "secret1"}
}
