package credentials

import "sync"

// MemoryStore is a process-local store, used in tests and when no OS
// credential service is available.
type MemoryStore struct {
	mu      sync.Mutex
	secrets map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{secrets: make(map[string]string)}
}

func (s *MemoryStore) Set(profileID string, kind Kind, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.secrets[Account(profileID, kind)] = value
	return nil
}

func (s *MemoryStore) Get(profileID string, kind Kind) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.secrets[Account(profileID, kind)]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (s *MemoryStore) Delete(profileID string, kind Kind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.secrets, Account(profileID, kind))
	return nil
}
