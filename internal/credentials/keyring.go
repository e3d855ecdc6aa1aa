package credentials

import (
	"errors"
	"fmt"
	"log"

	"github.com/zalando/go-keyring"
)

// KeyringStore keeps secrets in the OS keyring (Keychain, Secret Service,
// Windows Credential Manager).
type KeyringStore struct {
	Service string
}

// NewKeyringStore returns a keyring-backed store for the given service name.
func NewKeyringStore(service string) *KeyringStore {
	return &KeyringStore{Service: service}
}

func (s *KeyringStore) Set(profileID string, kind Kind, value string) error {
	if err := keyring.Set(s.Service, Account(profileID, kind), value); err != nil {
		log.Printf("[KeyringStore] Failed to save %s for connection %s: %v", kind, profileID, err)
		return fmt.Errorf("failed to save %s to keyring: %w", kind, err)
	}
	return nil
}

func (s *KeyringStore) Get(profileID string, kind Kind) (string, error) {
	secret, err := keyring.Get(s.Service, Account(profileID, kind))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to retrieve %s from keyring: %w", kind, err)
	}
	return secret, nil
}

func (s *KeyringStore) Delete(profileID string, kind Kind) error {
	err := keyring.Delete(s.Service, Account(profileID, kind))
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete %s from keyring: %w", kind, err)
	}
	return nil
}
