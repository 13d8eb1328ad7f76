package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/garage-backend/api/controllers"
	"github.com/angelmondragon/garage-backend/api/middleware"
	"github.com/angelmondragon/garage-backend/internal/auth"
	"github.com/angelmondragon/garage-backend/internal/inventory"
	"github.com/angelmondragon/garage-backend/internal/invoices"
	"github.com/angelmondragon/garage-backend/internal/owners"
	"github.com/angelmondragon/garage-backend/internal/reports"
	"github.com/angelmondragon/garage-backend/internal/tasktemplates"
	"github.com/angelmondragon/garage-backend/internal/users"
	"github.com/angelmondragon/garage-backend/internal/vehicles"
	"github.com/angelmondragon/garage-backend/pkg/auth/session"
	"github.com/angelmondragon/garage-backend/pkg/config"
	"github.com/angelmondragon/garage-backend/pkg/logger"
	"github.com/angelmondragon/garage-backend/pkg/metrics"
	pkgredis "github.com/angelmondragon/garage-backend/pkg/redis"
)

// RedisStore is the redis surface the HTTP layer needs.
type RedisStore interface {
	pkgredis.Pinger
	pkgredis.IdempotencyStore
	middleware.RateLimiterStore
}

// Dependencies are the collaborators the router wires into handlers.
type Dependencies struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       controllers.Pinger
	Redis    RedisStore
	Sessions session.AccessSessionChecker
	Registry *prometheus.Registry
	HTTP     *metrics.HTTPMetrics

	Auth          auth.Service
	Register      auth.RegisterService
	Users         users.Service
	Owners        owners.Service
	Vehicles      vehicles.Service
	TaskTemplates tasktemplates.Service
	Inventory     inventory.Service
	Reports       reports.Service
	Invoices      invoices.Service
}

func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.HTTP),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginAccountLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterAccountLimit,
	)

	var limiter middleware.RateLimiterStore
	var idempotency pkgredis.IdempotencyStore
	var redisPinger controllers.Pinger
	if deps.Redis != nil {
		limiter = deps.Redis
		idempotency = deps.Redis
		redisPinger = deps.Redis
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, redisPinger))
	})

	if deps.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, limiter, logg)).Post("/login", controllers.AuthLogin(deps.Auth, logg))
		r.With(
			middleware.AuthRateLimit(registerPolicy, limiter, logg),
			middleware.Idempotency(idempotency, logg),
		).Post("/register", controllers.AuthRegister(deps.Register, deps.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(deps.Auth, logg))
		r.Post("/logout", controllers.AuthLogout(deps.Auth, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))
		r.Use(middleware.Idempotency(idempotency, logg))

		r.Get("/users/me", controllers.UsersMe(deps.Users, logg))
		r.Get("/users/check-availability", controllers.UsersCheckAvailability(deps.Users, logg))
		r.Get("/profile", controllers.ProfileGet(deps.Users, logg))
		r.Put("/profile", controllers.ProfileUpdate(deps.Users, logg))
		r.Patch("/profile", controllers.ProfileUpdate(deps.Users, logg))

		r.Route("/owners", func(r chi.Router) {
			r.Get("/", controllers.OwnerList(deps.Owners, logg))
			r.Post("/", controllers.OwnerCreate(deps.Owners, logg))
			r.Get("/{ownerId}", controllers.OwnerDetail(deps.Owners, logg))
			r.Put("/{ownerId}", controllers.OwnerUpdate(deps.Owners, logg))
			r.Patch("/{ownerId}", controllers.OwnerUpdate(deps.Owners, logg))
			r.Delete("/{ownerId}", controllers.OwnerDelete(deps.Owners, logg))
		})

		r.Route("/vehicles", func(r chi.Router) {
			r.Get("/", controllers.VehicleList(deps.Vehicles, logg))
			r.Post("/", controllers.VehicleCreate(deps.Vehicles, logg))
			r.Get("/{vehicleId}", controllers.VehicleDetail(deps.Vehicles, logg))
			r.Put("/{vehicleId}", controllers.VehicleUpdate(deps.Vehicles, logg))
			r.Patch("/{vehicleId}", controllers.VehicleUpdate(deps.Vehicles, logg))
			r.Delete("/{vehicleId}", controllers.VehicleDelete(deps.Vehicles, logg))
		})

		r.Route("/task-templates", func(r chi.Router) {
			r.Get("/", controllers.TaskTemplateList(deps.TaskTemplates, logg))
			r.Post("/", controllers.TaskTemplateCreate(deps.TaskTemplates, logg))
			r.Get("/{templateId}", controllers.TaskTemplateDetail(deps.TaskTemplates, logg))
			r.Put("/{templateId}", controllers.TaskTemplateUpdate(deps.TaskTemplates, logg))
			r.Patch("/{templateId}", controllers.TaskTemplateUpdate(deps.TaskTemplates, logg))
			r.Delete("/{templateId}", controllers.TaskTemplateDelete(deps.TaskTemplates, logg))
		})

		r.Route("/inventory", func(r chi.Router) {
			r.Get("/", controllers.InventoryList(deps.Inventory, logg))
			r.Post("/", controllers.InventoryCreate(deps.Inventory, logg))
			r.Get("/low-stock", controllers.InventoryLowStock(deps.Inventory, logg))
			r.Get("/{itemId}", controllers.InventoryDetail(deps.Inventory, logg))
			r.Put("/{itemId}", controllers.InventoryUpdate(deps.Inventory, logg))
			r.Patch("/{itemId}", controllers.InventoryUpdate(deps.Inventory, logg))
			r.Delete("/{itemId}", controllers.InventoryDelete(deps.Inventory, logg))
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/", controllers.ReportList(deps.Reports, logg))
			r.Post("/", controllers.ReportCreate(deps.Reports, logg))
			r.Route("/{reportId}", func(r chi.Router) {
				r.Get("/", controllers.ReportDetail(deps.Reports, logg))
				r.Put("/", controllers.ReportUpdate(deps.Reports, logg))
				r.Patch("/", controllers.ReportUpdate(deps.Reports, logg))
				r.Delete("/", controllers.ReportDelete(deps.Reports, logg))
				r.Get("/tasks", controllers.ReportTasks(deps.Reports, logg))
				r.Get("/parts", controllers.ReportParts(deps.Reports, logg))
				r.Post("/parts", controllers.ReportPartRecord(deps.Inventory, logg))
				r.Post("/invoice", controllers.ReportInvoice(deps.Invoices, logg))
			})
		})

		r.Route("/part-usages/{usageId}", func(r chi.Router) {
			r.Get("/", controllers.PartUsageDetail(deps.Inventory, logg))
			r.Put("/", controllers.PartUsageRevise(deps.Inventory, logg))
			r.Patch("/", controllers.PartUsageRevise(deps.Inventory, logg))
			r.Delete("/", controllers.PartUsageRemove(deps.Inventory, logg))
		})

		r.Route("/invoices", func(r chi.Router) {
			r.Get("/", controllers.InvoiceList(deps.Invoices, logg))
			r.Get("/{invoiceId}", controllers.InvoiceDetail(deps.Invoices, logg))
		})
	})

	return r
}
