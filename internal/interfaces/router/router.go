package router

import (
	"time"

	adminsvc "estate-backend/internal/application/admins"
	"estate-backend/internal/application/appointments"
	"estate-backend/internal/application/console"
	healthsvc "estate-backend/internal/application/health"
	"estate-backend/internal/application/listings"
	"estate-backend/internal/application/messages"
	sitesvc "estate-backend/internal/application/site"
	uploadsvc "estate-backend/internal/application/uploads"
	"estate-backend/internal/authz"
	"estate-backend/internal/collections"
	"estate-backend/internal/config"
	"estate-backend/internal/constants"
	adminhandler "estate-backend/internal/interfaces/handlers/admins"
	authhandler "estate-backend/internal/interfaces/handlers/auth"
	consolehandler "estate-backend/internal/interfaces/handlers/console"
	healthhandler "estate-backend/internal/interfaces/handlers/health"
	livehandler "estate-backend/internal/interfaces/handlers/live"
	sitehandler "estate-backend/internal/interfaces/handlers/site"
	uploadhandler "estate-backend/internal/interfaces/handlers/uploads"
	"estate-backend/internal/middleware"
	"estate-backend/internal/pkg/toast"
	"estate-backend/internal/platform"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const serviceName = "estate-api"

// App is the HTTP application plus the caches it keeps open.
type App struct {
	*fiber.App
	Admins *adminsvc.Service
	store  *collections.Store
	con    *console.Console
	cat    *sitesvc.Catalog
}

// Close releases the collection listeners. The platform client is owned by the caller.
func (a *App) Close() {
	a.con.Close()
	a.cat.Close()
	a.store.Close()
}

// CreateApp builds the Fiber app with all global middleware and route registration.
func CreateApp(cfg *config.Config, pc *platform.Client) *App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler(pc.Redis),
		EnableTrustedProxyCheck: true,
		BodyLimit:               64 << 20,
	})

	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())
	app.Use(middleware.Metrics())
	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
	}))
	app.Use(middleware.HealthMarker(pc.Redis))

	// Services
	store := collections.NewStore(pc.Feed)
	enforcer := authz.MustNew()
	ups := &uploadsvc.Service{Store: pc.Storage}
	ls := &listings.Service{DB: pc.DB, Feed: pc.Feed, Images: ups}
	as := &appointments.Service{DB: pc.DB, Feed: pc.Feed}
	ms := &messages.Service{DB: pc.DB, Feed: pc.Feed}
	admins := &adminsvc.Service{DB: pc.DB, Identity: pc.Auth, Feed: pc.Feed}
	con := console.New(console.Deps{
		Store:        store,
		Listings:     ls,
		Uploads:      ups,
		Appointments: as,
		Messages:     ms,
		APIBaseURL:   "http://127.0.0.1:" + cfg.Port,
		Toaster:      toast.LogToaster{},
	})
	catalog := sitesvc.NewCatalog(store)

	// Health and metrics
	hh := &healthhandler.Handlers{
		Service: &healthsvc.Service{
			Name:     serviceName,
			Redis:    pc.Redis,
			Database: healthsvc.GormPinger(pc.DB),
			Storage:  pc.Storage,
		},
		HealthAdminKey: cfg.HealthAdminKey,
	}
	app.Get("/health", hh.Live)
	app.Get("/health/json", hh.JSON)
	app.Get("/health/errors", hh.Errors)
	app.Get("/health/reset", hh.Reset)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Auth
	ah := &authhandler.Handlers{Provider: pc.Auth, Admins: admins, APIKey: cfg.APIKey}
	authGroup := app.Group("/api/auth")
	authGroup.Post("/login", ah.Login)
	authGroup.Post("/refresh", ah.Refresh)
	authGroup.Post("/decode", middleware.RequireAuth(pc.Auth), ah.Decode)

	// Admin lifecycle; the service enforces the super-admin rules and reports them by code.
	adh := &adminhandler.Handlers{Service: admins}
	adminGroup := app.Group("/api/admin", middleware.RequireAuth(pc.Auth), middleware.RequireAdmin(admins))
	adminGroup.Post("/create", adh.Create)
	adminGroup.Post("/delete", adh.Delete)
	adminGroup.Post("/update-role", adh.UpdateRole)
	adminGroup.Post("/role", adh.UpdateRole)

	// Console
	perm := func(p string) fiber.Handler { return middleware.AuthorizePermission(enforcer, p) }
	ch := &consolehandler.Handlers{Console: con}
	uph := &uploadhandler.Handlers{Service: ups}
	lh := &livehandler.Handlers{Store: store, Checker: enforcer, MaxDuration: 10 * time.Minute}
	cg := app.Group("/api/console", middleware.RequireAuth(pc.Auth), middleware.RequireAdmin(admins))
	cg.Get("/dashboard", perm(constants.ViewDashboard), ch.Dashboard)
	cg.Get("/listings", perm(constants.ViewListings), ch.ListListings)
	cg.Post("/listings", perm(constants.CreateListing), ch.CreateListing)
	cg.Put("/listings/:id", perm(constants.EditListing), ch.UpdateListing)
	cg.Patch("/listings/:id/status", perm(constants.EditListing), ch.SetListingStatus)
	cg.Delete("/listings/:id", perm(constants.DeleteListing), ch.DeleteListing)
	cg.Get("/appointments", perm(constants.ViewAppointments), ch.ListAppointments)
	cg.Patch("/appointments/:id/status", perm(constants.UpdateAppointment), ch.SetAppointmentStatus)
	cg.Patch("/appointments/:id/viewed", perm(constants.UpdateAppointment), ch.SetAppointmentViewed)
	cg.Delete("/appointments/:id", perm(constants.DeleteAppointment), ch.DeleteAppointment)
	cg.Get("/messages", perm(constants.ViewMessages), ch.ListMessages)
	cg.Patch("/messages/:id/viewed", perm(constants.UpdateMessage), ch.SetMessageViewed)
	cg.Delete("/messages/:id", perm(constants.DeleteMessage), ch.DeleteMessage)
	cg.Get("/admins", perm(constants.ViewAdmins), ch.ListAdmins)
	cg.Post("/uploads", perm(constants.UploadImages), uph.Upload)
	cg.Get("/live/:collection", lh.Stream)

	// Public site
	sh := &sitehandler.Handlers{Catalog: catalog, Forms: &sitesvc.Forms{Messages: ms, Appointments: as}}
	limiter := middleware.NewRateLimiter(cfg.FormRatePerMinute)
	app.Get("/api/listings", sh.Search)
	app.Get("/api/listings/featured", sh.Featured)
	app.Get("/api/listings/:numericId", sh.Detail)
	app.Post("/api/contact", limiter.Handler(), sh.Contact)
	app.Post("/api/appointments", limiter.Handler(), sh.BookAppointment)

	return &App{App: app, Admins: admins, store: store, con: con, cat: catalog}
}
