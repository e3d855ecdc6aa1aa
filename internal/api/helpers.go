package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/mynenikoteshwarrao/ssh-organizer-desktop/internal/config"
	"github.com/mynenikoteshwarrao/ssh-organizer-desktop/internal/launcher"
	"github.com/mynenikoteshwarrao/ssh-organizer-desktop/internal/manager"
	"github.com/mynenikoteshwarrao/ssh-organizer-desktop/internal/session"
	"github.com/mynenikoteshwarrao/ssh-organizer-desktop/internal/sshcmd"
)

// maxBodyBytes bounds JSON and input request bodies.
const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// writeResult writes a manager result with a status derived from its error.
func writeResult(w http.ResponseWriter, res manager.Result) {
	status := http.StatusOK
	if !res.Success {
		status = statusFor(res.Err())
	}
	if res.RetryAfterMs > 0 {
		w.Header().Set("Retry-After", strconv.FormatInt((res.RetryAfterMs+999)/1000, 10))
	}
	writeJSON(w, status, res)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func statusFor(err error) int {
	var (
		validationErr *config.ValidationError
		buildErr      *sshcmd.BuildError
		launchErr     *launcher.LaunchError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, manager.ErrCooldown):
		return http.StatusTooManyRequests
	case errors.Is(err, config.ErrProfileNotFound),
		errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, launcher.ErrTerminalNotFound):
		return http.StatusNotFound
	case errors.Is(err, launcher.ErrTerminalExists),
		errors.Is(err, session.ErrDuplicateSession):
		return http.StatusConflict
	case errors.As(err, &validationErr), errors.As(err, &buildErr):
		return http.StatusBadRequest
	case errors.As(err, &launchErr), errors.Is(err, manager.ErrTestFailed):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
