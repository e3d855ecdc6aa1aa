package config

// Storage defines the backend interface for connection profile storage.
type Storage interface {
	Load() error
	List() []ConnectionProfile
	Get(id string) (ConnectionProfile, bool)
	Save(profile ConnectionProfile, creds *Credentials) (ConnectionProfile, error)
	Delete(id string) error
}
