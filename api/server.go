/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/state            State load/save
  /api/projection       Forecast runs
  /api/whatif/*         Scenario persistence and evaluation
  /api/import/*         CSV transaction import
  /api/scenarios/*      Demo scenarios
  /api/runs             Scheduled-forecast audit log
  /api/reset            Database reset (dev only)

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

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

// NewRouter creates a new router with all routes configured. origins lists
// the CORS origins to allow; empty means local development defaults.
func NewRouter(h *Handler, origins []string) *chi.Mux {
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:8080"}
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/state", func(r chi.Router) {
			r.Get("/", h.GetState)
			r.Put("/", h.PutState)
		})

		r.Route("/projection", func(r chi.Router) {
			r.Get("/", h.GetProjection)
			r.Post("/", h.PostProjection)
		})

		r.Route("/whatif", func(r chi.Router) {
			r.Get("/", h.GetWhatIf)
			r.Put("/", h.PutWhatIf)
			r.Post("/evaluate", h.EvaluateWhatIf)
		})

		r.Post("/import/transactions", h.ImportTransactions)

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
		})

		r.Get("/runs", h.ListRuns)
		r.Post("/reset", h.ResetDatabase)
	})

	// Landing page with endpoint index (no frontend is bundled).
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Cash-Flow Engine</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Cash-Flow Engine API</h1>
<h2>API Endpoints</h2>
<ul>
<li><a href="/api/state">/api/state</a> - Persisted state</li>
<li><a href="/api/projection">/api/projection</a> - Day-by-day forecast</li>
<li><a href="/api/whatif">/api/whatif</a> - What-If scenario</li>
<li><a href="/api/scenarios">/api/scenarios</a> - Demo scenarios</li>
<li><a href="/api/runs">/api/runs</a> - Scheduled forecast runs</li>
</ul>
</body>
</html>`))
	})

	return r
}
