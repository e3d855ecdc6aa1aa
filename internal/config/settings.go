package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	envPrefix          = "SSH_ORGANIZER"
	defaultDataDirName = ".ssh-manager"
	profilesFileName   = "profiles.json"
	logFileName        = "ssh-organizer.log"
)

// Settings holds process-wide options read from SSH_ORGANIZER_* variables.
type Settings struct {
	DataDir        string `envconfig:"DATA_DIR" default:""`
	ListenAddr     string `envconfig:"LISTEN_ADDR" default:"127.0.0.1:7420"`
	LogPath        string `envconfig:"LOG_PATH" default:""`
	KeyringService string `envconfig:"KEYRING_SERVICE" default:"ssh-connection-manager"`
	SecretBackend  string `envconfig:"SECRET_BACKEND" default:"keyring"`
	SecretFileKey  string `envconfig:"SECRET_FILE_KEY" default:""`

	Cooldown             time.Duration `envconfig:"COOLDOWN" default:"2s"`
	TestTimeout          time.Duration `envconfig:"TEST_TIMEOUT" default:"10s"`
	EmbeddedCommandDelay time.Duration `envconfig:"EMBEDDED_COMMAND_DELAY" default:"500ms"`
	Terminal             string        `envconfig:"TERMINAL" default:""`
	SSHBinary            string        `envconfig:"SSH_BINARY" default:"ssh"`
	ScrollbackBytes      int           `envconfig:"SCROLLBACK_BYTES" default:"262144"`
}

// LoadSettings reads settings from the environment and fills in per-user paths.
func LoadSettings() (*Settings, error) {
	var s Settings
	if err := envconfig.Process(envPrefix, &s); err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	if s.DataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		s.DataDir = filepath.Join(homeDir, defaultDataDirName)
	}
	s.DataDir = ExpandPath(s.DataDir)
	if s.LogPath == "" {
		s.LogPath = filepath.Join(s.DataDir, logFileName)
	}
	if s.Cooldown < 0 {
		return nil, fmt.Errorf("invalid %s_COOLDOWN: must not be negative", envPrefix)
	}
	return &s, nil
}

// ProfilesPath is the location of the profile document.
func (s *Settings) ProfilesPath() string {
	return filepath.Join(s.DataDir, profilesFileName)
}

// SecretFilePath is the location of the encrypted file credential backend.
func (s *Settings) SecretFilePath() string {
	return filepath.Join(s.DataDir, "secrets.fernet")
}
