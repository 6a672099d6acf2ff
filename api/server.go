/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:      Unique ID per request, logged and echoed in errors
  2. RealIP:         Client IP from X-Forwarded-For / X-Real-IP
  3. RequestLogger:  One slog line per request
  4. Recoverer:      Panic recovery (500 instead of crash)
  5. Metrics:        Prometheus request counter + latency by route pattern
  6. CORS:           Cross-origin requests for the front desk app
  7. LimitByIP:      Global per-IP request budget (httprate)
  The whole router is wrapped by otelhttp so every request gets a span.

ROUTE GROUPS:
  /healthz, /readyz, /metrics   Probes and Prometheus (public)
  /api/auth/*                   Login (public, attempt-limited)
  /api/scenarios/*              Demo scenarios (public, dev only)
  /api/hotels/{hotelID}/*       Per-hotel reads and operations
  /api/shifts/{shiftID}/*       Handover, sales, reports
  /api/rooms/{roomID}/*         Check-in, check-out, status
  /api/admin/*                  Admin operations

AUTHORIZATION:
  The Authenticate middleware only establishes who the caller is. Whether
  the caller may touch a hotel is decided by the engine, which returns
  AccessDenied errors (403).

SEE ALSO:
  - handlers.go: Handler implementations
  - middleware.go: RequestLogger, Authenticate
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/propagation"

	"github.com/warp/hotel-backoffice/metrics"
)

// RouterOptions configures the router-level middleware.
type RouterOptions struct {
	CORSOrigins     []string
	RateLimit       int // requests per minute per IP, 0 disables
	EnableScenarios bool
	ServiceName     string
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(h.logger))
	r.Use(middleware.Recoverer)
	r.Use(metrics.HTTPMetricsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Content-Disposition", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	if opts.RateLimit > 0 {
		r.Use(httprate.LimitByIP(opts.RateLimit, time.Minute))
	}

	// Probes
	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", h.Login)
			r.Post("/pin-login", h.PINLogin)
		})

		if opts.EnableScenarios {
			r.Route("/scenarios", func(r chi.Router) {
				r.Get("/", h.ListScenarios)
				r.Post("/load", h.LoadScenario)
			})
		}

		r.Group(func(r chi.Router) {
			r.Use(Authenticate(h.tokens))

			r.Get("/me", h.Me)
			r.Get("/overview", h.Overview)

			// Hotel routes
			r.Route("/hotels/{hotelID}", func(r chi.Router) {
				r.Get("/state", h.GetState)
				r.Get("/history", h.GetHistory)
				r.Get("/history/export.xlsx", h.ExportHistory)
				r.Post("/shifts", h.OpenShift)
				r.Post("/stays", h.ScheduleStay)
				r.Post("/ledger", h.RecordLedgerEntry)
			})

			// Shift routes
			r.Route("/shifts/{shiftID}", func(r chi.Router) {
				r.Post("/handover", h.Handover)
				r.Post("/sales", h.RecordSale)
				r.Get("/report", h.GetShiftReport)
				r.Get("/export.xlsx", h.ExportShift)
			})

			// Room and stay routes
			r.Route("/rooms/{roomID}", func(r chi.Router) {
				r.Post("/check-in", h.CheckIn)
				r.Post("/check-out", h.CheckOut)
				r.Post("/status", h.SetRoomStatus)
			})
			r.Post("/stays/{stayID}/transition", h.TransitionStay)
			r.Post("/products/{productID}/inventory", h.AdjustInventory)

			// Admin routes
			r.Route("/admin", func(r chi.Router) {
				r.Post("/users", h.CreateUser)
				r.Post("/hotels", h.CreateHotel)
				r.Route("/hotels/{hotelID}", func(r chi.Router) {
					r.Delete("/", h.DeleteHotel)
					r.Post("/rooms", h.CreateRoom)
					r.Post("/categories", h.CreateCategory)
					r.Post("/products", h.CreateProduct)
					r.Post("/assignments", h.AssignManager)
					r.Delete("/assignments/{userID}", h.DeactivateAssignment)
					r.Delete("/shifts/closed", h.DeleteClosedShifts)
				})
				r.Delete("/rooms/{roomID}", h.DeleteRoom)
				r.Patch("/shifts/{shiftID}", h.ForceEditShift)
			})
		})
	})

	name := opts.ServiceName
	if name == "" {
		name = "hotel-backoffice"
	}
	return otelhttp.NewHandler(r, name,
		otelhttp.WithPropagators(propagation.TraceContext{}),
		otelhttp.WithFilter(func(r *http.Request) bool { return r.URL.Path != "/metrics" }),
	)
}
