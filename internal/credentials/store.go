// Package credentials stores connection secrets outside the profile document.
package credentials

import (
	"errors"
	"fmt"
)

// Kind identifies which secret of a profile is addressed.
type Kind string

const (
	KindPassword   Kind = "password"
	KindPassphrase Kind = "passphrase"
)

// ErrNotFound is returned by Get when no secret is stored.
var ErrNotFound = errors.New("secret not found")

// Store is a secret store keyed by (profile id, kind).
// Delete must not fail when the secret is absent.
type Store interface {
	Set(profileID string, kind Kind, value string) error
	Get(profileID string, kind Kind) (string, error)
	Delete(profileID string, kind Kind) error
}

// Account returns the account name a secret is stored under.
func Account(profileID string, kind Kind) string {
	return fmt.Sprintf("%s_%s", profileID, kind)
}

// Backend names accepted by Open.
const (
	BackendKeyring = "keyring"
	BackendFile    = "file"
	BackendMemory  = "memory"
)

// Options configures Open.
type Options struct {
	Backend string
	Service string
	// FilePath and FileKey are used by the file backend only.
	FilePath string
	FileKey  string
}

// Open returns the store for the configured backend.
func Open(opts Options) (Store, error) {
	switch opts.Backend {
	case "", BackendKeyring:
		return NewKeyringStore(opts.Service), nil
	case BackendFile:
		return NewFileStore(opts.FilePath, opts.FileKey)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown secret backend %q", opts.Backend)
	}
}

// DeleteAll removes every secret kind for a profile, returning the first
// failure other than absence.
func DeleteAll(s Store, profileID string) error {
	var firstErr error
	for _, kind := range []Kind{KindPassword, KindPassphrase} {
		if err := s.Delete(profileID, kind); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
