// Package session tracks live SSH sessions and tears them down.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an active session.
type Status string

const (
	StatusConnecting    Status = "connecting"
	StatusConnected     Status = "connected"
	StatusDisconnecting Status = "disconnecting"
	StatusDisconnected  Status = "disconnected"
)

// Kind tells the terminator which teardown steps apply.
type Kind string

const (
	KindExternal Kind = "external"
	KindEmbedded Kind = "embedded"
)

var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrAlreadyDisconnecting = errors.New("session is already disconnecting")
	ErrDuplicateSession     = errors.New("session id already in use")
)

// ActiveSession is a snapshot of a running connection. Profile fields are
// copied at launch and do not follow later profile edits.
type ActiveSession struct {
	ID          string    `json:"id"`
	ProfileID   string    `json:"profileId"`
	ProfileName string    `json:"profileName"`
	Hostname    string    `json:"hostname"`
	Username    string    `json:"username"`
	Port        int       `json:"port"`
	StartTime   time.Time `json:"startTime"`
	TerminalPID int       `json:"terminalPid,omitempty"`
	Status      Status    `json:"status"`
	Kind        Kind      `json:"kind"`
}

// NewID derives a session id from the profile id and launch time. The random
// suffix keeps ids unique when two launches share a millisecond.
func NewID(profileID string, now time.Time) string {
	return fmt.Sprintf("conn_%s_%d_%s", profileID, now.UnixMilli(), uuid.NewString()[:8])
}
