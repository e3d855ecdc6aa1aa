package api

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mynenikoteshwarrao/ssh-organizer-desktop/internal/config"
)

type saveProfileRequest struct {
	Profile     config.ConnectionProfile `json:"profile"`
	Credentials *config.Credentials      `json:"credentials,omitempty"`
}

type createTerminalRequest struct {
	ProfileID string `json:"profileId"`
}

type resizeRequest struct {
	Cols int `json:"cols"`
	Rows int `json:"rows"`
}

type importSSHConfigRequest struct {
	Path string `json:"path"`
}

func (h *Handler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.mgr.ListProfiles())
}

func (h *Handler) SaveProfile(w http.ResponseWriter, r *http.Request) {
	var req saveProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	writeResult(w, h.mgr.SaveProfile(req.Profile, req.Credentials))
}

func (h *Handler) DeleteProfile(w http.ResponseWriter, r *http.Request) {
	writeResult(w, h.mgr.DeleteProfile(chi.URLParam(r, "id")))
}

func (h *Handler) Connect(w http.ResponseWriter, r *http.Request) {
	writeResult(w, h.mgr.Connect(r.Context(), chi.URLParam(r, "id")))
}

func (h *Handler) CopyCommand(w http.ResponseWriter, r *http.Request) {
	writeResult(w, h.mgr.CopyCommand(chi.URLParam(r, "id")))
}

func (h *Handler) TestConnection(w http.ResponseWriter, r *http.Request) {
	var p config.ConnectionProfile
	if !decodeJSON(w, r, &p) {
		return
	}
	writeResult(w, h.mgr.TestConnection(r.Context(), p))
}

func (h *Handler) ExportProfiles(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.Header().Set("Content-Disposition", `attachment; filename="ssh-profiles.yaml"`)
	if err := h.mgr.ExportProfiles(w); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (h *Handler) ImportProfiles(w http.ResponseWriter, r *http.Request) {
	writeResult(w, h.mgr.ImportProfiles(http.MaxBytesReader(w, r.Body, maxBodyBytes)))
}

func (h *Handler) ImportSSHConfig(w http.ResponseWriter, r *http.Request) {
	var req importSSHConfigRequest
	if r.ContentLength > 0 && !decodeJSON(w, r, &req) {
		return
	}
	writeResult(w, h.mgr.ImportSSHConfig(req.Path))
}

func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.mgr.ListActiveSessions())
}

func (h *Handler) Disconnect(w http.ResponseWriter, r *http.Request) {
	writeResult(w, h.mgr.Disconnect(r.Context(), chi.URLParam(r, "id")))
}

func (h *Handler) DisconnectAll(w http.ResponseWriter, r *http.Request) {
	writeResult(w, h.mgr.DisconnectAll(r.Context()))
}

func (h *Handler) ListTerminals(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.mgr.ListTerminals())
}

func (h *Handler) CreateTerminal(w http.ResponseWriter, r *http.Request) {
	var req createTerminalRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ProfileID == "" {
		writeError(w, http.StatusBadRequest, "profileId is required")
		return
	}
	writeResult(w, h.mgr.CreateEmbeddedSession(chi.URLParam(r, "id"), req.ProfileID))
}

func (h *Handler) SendInput(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	writeResult(w, h.mgr.SendInput(chi.URLParam(r, "id"), data))
}

func (h *Handler) ResizeTerminal(w http.ResponseWriter, r *http.Request) {
	var req resizeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Cols <= 0 || req.Rows <= 0 {
		writeError(w, http.StatusBadRequest, "cols and rows must be positive")
		return
	}
	writeResult(w, h.mgr.Resize(chi.URLParam(r, "id"), req.Cols, req.Rows))
}

func (h *Handler) CloseTerminal(w http.ResponseWriter, r *http.Request) {
	writeResult(w, h.mgr.CloseEmbeddedSession(chi.URLParam(r, "id")))
}

func (h *Handler) ListLogs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.mgr.Logs())
}

func (h *Handler) ClearLogs(w http.ResponseWriter, r *http.Request) {
	h.mgr.ClearLogs()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListKeys(w http.ResponseWriter, r *http.Request) {
	keys := h.mgr.ListKeyFiles()
	if keys == nil {
		keys = []string{}
	}
	writeJSON(w, http.StatusOK, keys)
}
