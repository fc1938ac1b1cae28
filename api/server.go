/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:     Unique ID per request for tracing
  2. RealIP:        Client address from X-Forwarded-For / X-Real-IP
  3. RequestLogger: zap access log (method, path, status, duration, request id)
  4. Recoverer:     Panic recovery (500 instead of crash)
  5. RequestSize:   Body limit, sized for base64 attachments
  6. CORS:          Cross-origin requests for the frontend

ROUTE GROUPS:
  /api/health           Liveness
  /api/employees/*      Employee management, qualification, reports, copy
  /api/dashboard        Summary figures
  /api/reports/*        Department, expiring and missing-OJT reports
  /api/admin/*          Admin operations
  /api/scenarios/*      Demo scenarios
  /*                    Static files (frontend), when built

STATIC FILE SERVING:
  Serves the built frontend from Options.StaticDir when it exists.
  Falls back to index.html for client-side routing.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Options configures the router.
type Options struct {
	CORSOrigins  []string
	MaxBodyBytes int64
	StaticDir    string
	Logger       *zap.Logger
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts Options) *chi.Mux {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 32 << 20
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(opts.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestSize(opts.MaxBodyBytes))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		// Employee routes
		r.Route("/employees", func(r chi.Router) {
			r.Get("/", h.ListEmployees)
			r.Post("/", h.CreateEmployee)
			r.Post("/copy-certifications", h.CopyCertifications)
			r.Get("/{id}", h.GetEmployee)
			r.Put("/{id}", h.UpdateEmployee)
			r.Delete("/{id}", h.DeleteEmployee)
			r.Get("/{id}/qualification", h.GetQualification)
			r.Get("/{id}/report", h.GetEmployeeReport)
			r.Get("/{id}/report.pdf", h.GetEmployeeReportPDF)
		})

		r.Get("/dashboard", h.GetDashboard)

		// Report routes
		r.Route("/reports", func(r chi.Router) {
			r.Get("/departments", h.GetDepartmentReport)
			r.Get("/expiring", h.GetExpiringReport)
			r.Get("/missing-ojt", h.GetMissingOJTReport)
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Post("/refresh-statuses", h.RefreshStatuses)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
		})
	})

	if opts.StaticDir != "" {
		if _, err := os.Stat(opts.StaticDir); err == nil {
			serveStatic(r, opts.StaticDir)
		}
	}

	return r
}

func serveStatic(r chi.Router, staticDir string) {
	fileServer := http.FileServer(http.Dir(staticDir))
	r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
		fullPath := filepath.Join(staticDir, filepath.Clean(r.URL.Path))
		if _, err := os.Stat(fullPath); os.IsNotExist(err) {
			// SPA routing: serve index.html
			http.ServeFile(w, r, filepath.Join(staticDir, "index.html"))
			return
		}
		fileServer.ServeHTTP(w, r)
	})
}
