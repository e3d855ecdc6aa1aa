package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fernet/fernet-go"
)

// FileStore keeps all secrets in a single fernet-encrypted JSON document.
// It is the fallback for hosts without a keyring service (headless Linux).
type FileStore struct {
	path string
	key  *fernet.Key
	mu   sync.Mutex
}

// NewFileStore opens the vault at path. When encodedKey is empty the key is
// read from path+".key", generating it on first use.
func NewFileStore(path, encodedKey string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("file secret store: path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create secret store directory: %w", err)
	}

	key, err := loadOrCreateKey(path+".key", encodedKey)
	if err != nil {
		return nil, err
	}
	return &FileStore{path: path, key: key}, nil
}

func loadOrCreateKey(keyPath, encoded string) (*fernet.Key, error) {
	if encoded == "" {
		data, err := os.ReadFile(keyPath)
		switch {
		case err == nil:
			encoded = strings.TrimSpace(string(data))
		case errors.Is(err, os.ErrNotExist):
			var k fernet.Key
			if err := k.Generate(); err != nil {
				return nil, fmt.Errorf("generate fernet key: %w", err)
			}
			if err := os.WriteFile(keyPath, []byte(k.Encode()), 0600); err != nil {
				return nil, fmt.Errorf("save fernet key: %w", err)
			}
			return &k, nil
		default:
			return nil, fmt.Errorf("read fernet key: %w", err)
		}
	}
	key, err := fernet.DecodeKey(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode fernet key: %w", err)
	}
	return key, nil
}

func (s *FileStore) load() (map[string]string, error) {
	secrets := make(map[string]string)
	tok, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return secrets, nil
		}
		return nil, fmt.Errorf("read secret store: %w", err)
	}
	if len(tok) == 0 {
		return secrets, nil
	}
	msg := fernet.VerifyAndDecrypt(tok, 0*time.Second, []*fernet.Key{s.key})
	if msg == nil {
		return nil, errors.New("decrypt secret store: invalid token")
	}
	if err := json.Unmarshal(msg, &secrets); err != nil {
		return nil, fmt.Errorf("parse secret store: %w", err)
	}
	return secrets, nil
}

func (s *FileStore) save(secrets map[string]string) error {
	msg, err := json.Marshal(secrets)
	if err != nil {
		return fmt.Errorf("marshal secret store: %w", err)
	}
	tok, err := fernet.EncryptAndSign(msg, s.key)
	if err != nil {
		return fmt.Errorf("encrypt secret store: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, tok, 0600); err != nil {
		return fmt.Errorf("write secret store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace secret store: %w", err)
	}
	return nil
}

func (s *FileStore) Set(profileID string, kind Kind, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	secrets, err := s.load()
	if err != nil {
		return err
	}
	secrets[Account(profileID, kind)] = value
	return s.save(secrets)
}

func (s *FileStore) Get(profileID string, kind Kind) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	secrets, err := s.load()
	if err != nil {
		return "", err
	}
	v, ok := secrets[Account(profileID, kind)]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (s *FileStore) Delete(profileID string, kind Kind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	secrets, err := s.load()
	if err != nil {
		return err
	}
	account := Account(profileID, kind)
	if _, ok := secrets[account]; !ok {
		return nil
	}
	delete(secrets, account)
	return s.save(secrets)
}
