package web

import (
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/classroll/internal/web/handlers"
	"github.com/kozaktomas/classroll/internal/web/middleware"
	"github.com/kozaktomas/classroll/internal/web/static"
)

func (s *Server) setupRoutes() {
	authHandler := handlers.NewAuthHandler(s.users, s.sessionManager)
	configHandler := handlers.NewConfigHandler(s.config)
	sectionsHandler := handlers.NewSectionsHandler(s.service, s.users)
	attendanceHandler := handlers.NewAttendanceHandler(s.service, s.users)

	// Health check (no auth required)
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	if s.metrics != nil {
		s.router.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/logout", authHandler.Logout)
		r.Get("/auth/status", authHandler.Status)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(s.sessionManager))

			r.Get("/config", configHandler.Get)
			r.Get("/sections", sectionsHandler.List)

			r.Route("/sections/{section}/attendance", func(r chi.Router) {
				r.Post("/", attendanceHandler.Take)
				r.Get("/", attendanceHandler.History)
				r.Get("/{date}", attendanceHandler.Get)
				r.Put("/{date}", attendanceHandler.Update)
				r.Get("/{date}/students", attendanceHandler.FindStudent)
			})
		})
	})

	s.router.Get("/*", s.serveSPA)
}

var contentTypes = map[string]string{
	".html":  "text/html; charset=utf-8",
	".css":   "text/css; charset=utf-8",
	".js":    "application/javascript; charset=utf-8",
	".json":  "application/json",
	".svg":   "image/svg+xml",
	".png":   "image/png",
	".jpg":   "image/jpeg",
	".jpeg":  "image/jpeg",
	".ico":   "image/x-icon",
	".woff2": "font/woff2",
}

// serveSPA serves the embedded single-page attendance UI. Unknown non-asset
// paths fall back to index.html so client-side routes survive a reload.
func (s *Server) serveSPA(w http.ResponseWriter, r *http.Request) {
	ui := static.UI()
	name := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
	if name == "" {
		name = "index.html"
	}

	if body, err := fs.ReadFile(ui, name); err == nil {
		contentType, ok := contentTypes[strings.ToLower(path.Ext(name))]
		if !ok {
			contentType = "application/octet-stream"
		}
		w.Header().Set("Content-Type", contentType)
		if strings.HasPrefix(name, "assets/") {
			w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		}
		_, _ = w.Write(body)
		return
	}

	if strings.HasPrefix(name, "assets/") {
		http.NotFound(w, r)
		return
	}

	index, err := fs.ReadFile(ui, "index.html")
	if err != nil {
		http.Error(w, "frontend not available", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(index)
}
