// Package api exposes the connection manager over local HTTP and a
// WebSocket event stream.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/mynenikoteshwarrao/ssh-organizer-desktop/internal/manager"
)

// Handler serves the manager's operations.
type Handler struct {
	mgr *manager.Manager
}

// NewRouter returns the HTTP handler for mgr.
func NewRouter(mgr *manager.Manager) http.Handler {
	h := &Handler{mgr: mgr}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(RequireLocalOrigin)

	r.Get("/health", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/profiles", func(r chi.Router) {
			r.Get("/", h.ListProfiles)
			r.With(jsonOnly).Put("/", h.SaveProfile)
			r.With(jsonOnly).Post("/test", h.TestConnection)
			r.Get("/export", h.ExportProfiles)
			r.With(yamlOnly).Post("/import", h.ImportProfiles)
			r.With(jsonOnly).Post("/import-ssh-config", h.ImportSSHConfig)
			r.Delete("/{id}", h.DeleteProfile)
			r.Post("/{id}/connect", h.Connect)
			r.Post("/{id}/copy", h.CopyCommand)
		})

		r.Get("/sessions", h.ListSessions)
		r.Delete("/sessions", h.DisconnectAll)
		r.Delete("/sessions/{id}", h.Disconnect)

		r.Get("/terminals", h.ListTerminals)
		r.With(jsonOnly).Post("/terminals/{id}", h.CreateTerminal)
		r.With(inputOnly).Post("/terminals/{id}/input", h.SendInput)
		r.With(jsonOnly).Post("/terminals/{id}/resize", h.ResizeTerminal)
		r.Delete("/terminals/{id}", h.CloseTerminal)

		r.Get("/logs", h.ListLogs)
		r.Delete("/logs", h.ClearLogs)
		r.Get("/keys", h.ListKeys)
		r.Get("/events", h.Events)
	})
	return r
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
