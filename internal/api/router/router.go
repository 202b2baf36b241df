package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/clearbrook/scheduler/internal/http/handlers"
	httpmiddleware "github.com/clearbrook/scheduler/internal/http/middleware"
	"github.com/clearbrook/scheduler/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger *logging.Logger

	Availability *handlers.AvailabilityHandler
	Appointments *handlers.AppointmentsHandler
	Groups       *handlers.GroupsHandler
	Override     *handlers.OverrideHandler
	Waitlist     *handlers.WaitlistHandler
	Shifts       *handlers.ShiftsHandler
	Audit        *handlers.AuditHandler

	MetricsHandler     http.Handler
	StaffAuthSecret    string
	CORSAllowedOrigins []string
	RateLimit          *httpmiddleware.RateLimiter
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints (health checks, metrics)
	r.Group(func(public chi.Router) {
		public.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Staff endpoints
	r.Group(func(staff chi.Router) {
		staff.Use(httpmiddleware.StaffJWT(cfg.StaffAuthSecret))
		if cfg.RateLimit != nil {
			staff.Use(cfg.RateLimit.Limit)
		}

		if cfg.Availability != nil {
			staff.Get("/availability", cfg.Availability.Search)
		}

		if cfg.Appointments != nil {
			staff.Route("/appointments", func(r chi.Router) {
				r.Get("/", cfg.Appointments.List)
				r.Post("/", cfg.Appointments.Book)
				r.Post("/{id}/reschedule", cfg.Appointments.Reschedule)
				r.Delete("/{id}", cfg.Appointments.Cancel)
			})
		}

		if cfg.Groups != nil {
			staff.Route("/group-bookings", func(r chi.Router) {
				r.Post("/", cfg.Groups.Book)
				r.Post("/quote", cfg.Groups.Quote)
			})
		}

		if cfg.Override != nil {
			staff.Route("/override", func(r chi.Router) {
				r.Get("/status", cfg.Override.Status)
				r.Post("/enable", cfg.Override.Enable)
				r.Post("/disable", cfg.Override.Disable)
				r.Post("/touch", cfg.Override.Touch)
			})
		}

		if cfg.Waitlist != nil {
			staff.Route("/waitlist", func(r chi.Router) {
				r.Get("/", cfg.Waitlist.List)
				r.Post("/", cfg.Waitlist.Add)
				r.Delete("/{id}", cfg.Waitlist.Remove)
				r.Get("/suggest/{appointmentID}", cfg.Waitlist.Suggest)
			})
		}

		if cfg.Shifts != nil {
			staff.Get("/practitioners/{practitionerID}/shifts", cfg.Shifts.Effective)
			staff.Post("/shifts", cfg.Shifts.Create)
			staff.Delete("/shifts/{id}", cfg.Shifts.Delete)
			staff.Post("/breaks", cfg.Shifts.CreateBreak)
			staff.Delete("/breaks/{id}", cfg.Shifts.DeleteBreak)
		}

		if cfg.Audit != nil {
			staff.Get("/audit/events", cfg.Audit.Query)
		}
	})

	return r
}
