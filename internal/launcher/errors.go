package launcher

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedPlatform is returned when the OS cannot host the
	// requested kind of session.
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	// ErrNoTerminal is returned when no terminal emulator could be found.
	ErrNoTerminal = errors.New("no terminal emulator found")
	// ErrTerminalNotFound is returned for an unknown embedded session id.
	ErrTerminalNotFound = errors.New("terminal not found")
	// ErrTerminalExists is returned when an embedded session id is reused.
	ErrTerminalExists = errors.New("terminal already exists")
)

// LaunchError wraps a failure to start the process for a profile.
type LaunchError struct {
	ProfileID string
	Via       string
	Err       error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("failed to launch %s for profile %s: %v", e.Via, e.ProfileID, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }
