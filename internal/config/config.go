package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mynenikoteshwarrao/ssh-organizer-desktop/internal/credentials"
)

// ProfileStore is the durable collection of connection profiles. The in-memory
// list only changes after the document has been written successfully.
type ProfileStore struct {
	ConfigPath string

	secrets  credentials.Store
	nowFn    func() time.Time
	mu       sync.RWMutex
	profiles []ConnectionProfile
}

var _ Storage = (*ProfileStore)(nil)

// NewProfileStore creates a store persisting to path and forwarding secrets
// to the given credential store.
func NewProfileStore(path string, secrets credentials.Store) *ProfileStore {
	return &ProfileStore{
		ConfigPath: path,
		secrets:    secrets,
		nowFn:      time.Now,
		profiles:   []ConnectionProfile{},
	}
}

// SetClock replaces the time source. Intended for tests.
func (ps *ProfileStore) SetClock(now func() time.Time) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.nowFn = now
}

// Load reads the profile document. A missing document yields an empty list; a
// malformed one is moved aside and also yields an empty list.
func (ps *ProfileStore) Load() error {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	data, err := os.ReadFile(ps.ConfigPath)
	if err != nil {
		ps.profiles = []ConnectionProfile{}
		if errors.Is(err, os.ErrNotExist) {
			log.Printf("[ProfileStore] No existing profiles found, starting fresh")
			return nil
		}
		return &StorageError{Op: "failed to read profiles", Err: err}
	}

	profiles, err := decodeProfiles(data)
	if err != nil {
		log.Printf("[ProfileStore] Failed to parse %s, starting with an empty list: %v", ps.ConfigPath, err)
		corrupt := ps.ConfigPath + ".corrupt"
		if rerr := os.Rename(ps.ConfigPath, corrupt); rerr != nil {
			log.Printf("[ProfileStore] Failed to move corrupt profiles aside: %v", rerr)
		}
		ps.profiles = []ConnectionProfile{}
		return nil
	}

	ps.profiles = profiles
	log.Printf("[ProfileStore] Loaded %d connection profiles", len(profiles))

	if migrated := ps.migrateInlineSecretsLocked(); migrated > 0 {
		log.Printf("[ProfileStore] Moved inline secrets of %d profiles into the credential store", migrated)
	}
	return nil
}

// decodeProfiles accepts the current {"connections": [...]} document as well
// as a bare array of profiles.
func decodeProfiles(data []byte) ([]ConnectionProfile, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return []ConnectionProfile{}, nil
	}
	if strings.HasPrefix(trimmed, "[") {
		var list []ConnectionProfile
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, err
		}
		return list, nil
	}
	cfg := NewConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if cfg.Connections == nil {
		cfg.Connections = []ConnectionProfile{}
	}
	return cfg.Connections, nil
}

// persist writes profiles to disk via a temp file and rename.
func (ps *ProfileStore) persist(profiles []ConnectionProfile) error {
	if err := os.MkdirAll(filepath.Dir(ps.ConfigPath), 0700); err != nil {
		return &StorageError{Op: "failed to create profiles directory", Err: err}
	}
	data, err := json.MarshalIndent(Config{Connections: profiles}, "", "  ")
	if err != nil {
		return &StorageError{Op: "failed to marshal profiles", Err: err}
	}
	tmp := ps.ConfigPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return &StorageError{Op: "failed to write profiles", Err: err}
	}
	if err := os.Rename(tmp, ps.ConfigPath); err != nil {
		os.Remove(tmp)
		return &StorageError{Op: "failed to replace profiles", Err: err}
	}
	return nil
}

// Normalize fills defaults and validates the fields required to connect.
func Normalize(p ConnectionProfile) (ConnectionProfile, error) {
	p.ID = strings.TrimSpace(p.ID)
	p.Hostname = strings.TrimSpace(p.Hostname)
	p.Username = strings.TrimSpace(p.Username)
	p.Name = strings.TrimSpace(p.Name)
	p.PrivateKeyPath = strings.TrimSpace(p.PrivateKeyPath)

	if p.Hostname == "" {
		return p, &ValidationError{Field: "hostname", Reason: "is required"}
	}
	if strings.ContainsAny(p.Hostname, " \t@") {
		return p, &ValidationError{Field: "hostname", Reason: "must not contain spaces or '@'"}
	}
	if p.Username == "" {
		return p, &ValidationError{Field: "username", Reason: "is required"}
	}
	if p.Port == 0 {
		p.Port = DefaultSSHPort
	}
	if p.Port < 1 || p.Port > 65535 {
		return p, &ValidationError{Field: "port", Reason: fmt.Sprintf("%d is outside 1-65535", p.Port)}
	}
	if p.AuthType == "" {
		p.AuthType = AuthPassword
	}
	if !p.AuthType.Valid() {
		return p, &ValidationError{Field: "authType", Reason: fmt.Sprintf("unknown auth type %q", p.AuthType)}
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Name == "" {
		p.Name = p.Target()
	}
	return p, nil
}

// Save upserts a profile by id. Supplied credentials and any inline secrets
// are written to the credential store before the document is persisted.
func (ps *ProfileStore) Save(profile ConnectionProfile, creds *Credentials) (ConnectionProfile, error) {
	profile, err := Normalize(profile)
	if err != nil {
		return profile, err
	}

	ps.mu.Lock()
	defer ps.mu.Unlock()

	idx := slices.IndexFunc(ps.profiles, func(p ConnectionProfile) bool { return p.ID == profile.ID })
	now := ps.nowFn().UTC()

	if idx == -1 {
		profile.CreatedAt = FormatTimestamp(now)
	} else {
		prev := ps.profiles[idx]
		profile.CreatedAt = prev.CreatedAt
		if last, err := ParseTimestamp(prev.UpdatedAt); err == nil && !now.After(last) {
			now = last.Add(time.Nanosecond)
		}
	}
	profile.UpdatedAt = FormatTimestamp(now)

	if err := ps.storeSecrets(profile, creds); err != nil {
		return profile, err
	}
	profile = profile.Redacted()

	next := slices.Clone(ps.profiles)
	if idx == -1 {
		next = append(next, profile)
	} else {
		next[idx] = profile
	}
	if err := ps.persist(next); err != nil {
		return profile, err
	}
	ps.profiles = next
	return profile, nil
}

func (ps *ProfileStore) storeSecrets(profile ConnectionProfile, creds *Credentials) error {
	password := profile.Password
	passphrase := profile.PrivateKeyPassphrase
	if creds != nil {
		if creds.Password != "" {
			password = creds.Password
		}
		if creds.PrivateKeyPassphrase != "" {
			passphrase = creds.PrivateKeyPassphrase
		}
	}
	if password == "" && passphrase == "" {
		return nil
	}
	if ps.secrets == nil {
		return &StorageError{Op: "failed to store credentials", Err: errors.New("no credential store configured")}
	}
	if password != "" {
		if err := ps.secrets.Set(profile.ID, credentials.KindPassword, password); err != nil {
			return &StorageError{Op: "failed to store password", Err: err}
		}
	}
	if passphrase != "" {
		if err := ps.secrets.Set(profile.ID, credentials.KindPassphrase, passphrase); err != nil {
			return &StorageError{Op: "failed to store passphrase", Err: err}
		}
	}
	return nil
}

// Delete removes a profile and its stored secrets.
func (ps *ProfileStore) Delete(id string) error {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	idx := slices.IndexFunc(ps.profiles, func(p ConnectionProfile) bool { return p.ID == id })
	if idx == -1 {
		return fmt.Errorf("connection with ID %s: %w", id, ErrProfileNotFound)
	}

	next := slices.Delete(slices.Clone(ps.profiles), idx, idx+1)
	if err := ps.persist(next); err != nil {
		return err
	}
	ps.profiles = next

	// Secrets go only once the profile is durably gone.
	if ps.secrets != nil {
		if err := credentials.DeleteAll(ps.secrets, id); err != nil {
			log.Printf("[ProfileStore] Failed to remove credentials for %s: %v", id, err)
		}
	}
	return nil
}

// Get returns the profile with the given id.
func (ps *ProfileStore) Get(id string) (ConnectionProfile, bool) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	for _, p := range ps.profiles {
		if p.ID == id {
			return p.Redacted(), true
		}
	}
	return ConnectionProfile{}, false
}

// List returns copies of all profiles with secrets removed.
func (ps *ProfileStore) List() []ConnectionProfile {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	out := make([]ConnectionProfile, len(ps.profiles))
	for i, p := range ps.profiles {
		out[i] = p.Redacted()
	}
	return out
}
