package manager

import (
	"errors"

	"github.com/mynenikoteshwarrao/ssh-organizer-desktop/internal/config"
	"github.com/mynenikoteshwarrao/ssh-organizer-desktop/internal/session"
)

// ErrCooldown is returned when a connect arrives inside the debounce window.
var ErrCooldown = errors.New("connection attempted too soon after the previous attempt")

// ErrTestFailed is returned when a test connection exits non-zero.
var ErrTestFailed = errors.New("connection test failed")

// Result is the outcome of an operation as seen by the UI.
type Result struct {
	Success   bool                      `json:"success"`
	Message   string                    `json:"message,omitempty"`
	Error     string                    `json:"error,omitempty"`
	SessionID string                    `json:"sessionId,omitempty"`
	Profile   *config.ConnectionProfile `json:"profile,omitempty"`
	Bulk      *session.BulkResult       `json:"bulk,omitempty"`
	Count     int                       `json:"count,omitempty"`

	// RetryAfterMs is set on cooldown rejections.
	RetryAfterMs int64 `json:"retryAfterMs,omitempty"`

	err error
}

// Err returns the underlying error of a failed result, or nil.
func (r Result) Err() error { return r.err }

func ok(message string) Result {
	return Result{Success: true, Message: message}
}

func fail(message string, err error) Result {
	if err == nil {
		err = errors.New(message)
	}
	return Result{Success: false, Error: message, err: err}
}
