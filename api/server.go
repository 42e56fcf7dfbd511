/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     zap request logging + HTTP metrics
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the calculator front end

ROUTE GROUPS:
  /api/calculate*             Loan calculation
  /api/export-excel           Spreadsheet export
  /calculate, /export-excel   Root aliases of the above
  /api/calculations/*         Calculation history
  /healthz                    Liveness
  /metrics                    Prometheus

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	// AllowedOrigins for CORS. Empty allows any origin without credentials.
	AllowedOrigins []string
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(h.Logger, h.Metrics))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(corsOptions(opts.AllowedOrigins)))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Post("/calculate-loan-amortization", h.CalculateLoanAmortization)
		r.Post("/calculate", h.CalculateLoanAmortization)
		r.Post("/export-excel", h.ExportExcel)

		// History routes
		r.Route("/calculations", func(r chi.Router) {
			r.Get("/", h.ListCalculations)
			r.Get("/{id}", h.GetCalculation)
			r.Get("/{id}/export", h.ExportCalculation)
		})
	})

	// Root paths used by the original calculator front end.
	r.Post("/calculate", h.CalculateLoanAmortization)
	r.Post("/export-excel", h.ExportExcel)

	r.Get("/healthz", h.Health)
	r.Method(http.MethodGet, "/metrics", h.Metrics.Handler())

	return r
}

func corsOptions(origins []string) cors.Options {
	opts := cors.Options{
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"Content-Disposition", "X-Cache"},
		MaxAge:         300,
	}
	if len(origins) == 0 {
		opts.AllowedOrigins = []string{"*"}
		return opts
	}
	opts.AllowedOrigins = origins
	opts.AllowCredentials = true
	return opts
}
