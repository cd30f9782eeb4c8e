package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sensing-garden/backend/internal/auth"
	"github.com/sensing-garden/backend/internal/pkg/httputil"
)

// SetupRoutes configures all API routes. keyring may be nil to serve
// without authentication (local development).
func SetupRoutes(h *Handlers, hc *HealthChecker, keyring *auth.Keyring) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	// CORS - devices and dashboards call from anywhere, no cookies involved
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", auth.HeaderName},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))

	if keyring != nil {
		r.Use(keyring.RequireKey)
	}

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		httputil.NotFound(w, "Not Found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		httputil.NotFound(w, "Not Found")
	})

	// Health checks (no auth required)
	if hc != nil {
		r.Get("/health", hc.HandleHealth)
		r.Get("/health/live", hc.HandleLiveness)
		r.Get("/health/ready", hc.HandleReadiness)
	}

	r.Route("/detections", func(r chi.Router) {
		r.Get("/", h.GetDetections)
		r.Post("/", h.PostDetection)
		r.Get("/count", h.CountDetections)
		r.Get("/csv", h.DetectionsCSV)
	})

	r.Route("/classifications", func(r chi.Router) {
		r.Get("/", h.GetClassifications)
		r.Post("/", h.PostClassification)
		r.Get("/count", h.CountClassifications)
		r.Get("/csv", h.ClassificationsCSV)
	})

	r.Route("/models", func(r chi.Router) {
		r.Get("/", h.GetModels)
		r.Post("/", h.PostModel)
		r.Get("/count", h.CountModels)
		r.Get("/csv", h.ModelsCSV)
	})

	r.Route("/videos", func(r chi.Router) {
		r.Get("/", h.GetVideos)
		r.Post("/", h.PostVideo)
		r.Post("/register", h.RegisterVideo)
		r.Get("/count", h.CountVideos)
		r.Get("/csv", h.VideosCSV)
	})

	r.Route("/environment", func(r chi.Router) {
		r.Get("/", h.GetEnvironmental)
		r.Post("/", h.PostEnvironmental)
		r.Get("/count", h.CountEnvironmental)
		r.Get("/csv", h.EnvironmentalCSV)
	})

	r.Route("/devices", func(r chi.Router) {
		r.Get("/", h.GetDevices)
		r.Post("/", h.PostDevice)
		r.Put("/", h.UpdateDevice)
		r.Delete("/", h.DeleteDevice)
		r.Get("/count", h.CountDevices)
		r.Get("/csv", h.DevicesCSV)
	})

	r.Get("/export", h.ExportCSV)

	return r
}
