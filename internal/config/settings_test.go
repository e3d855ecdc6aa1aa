package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestLoadSettingsDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("SSH_ORGANIZER_DATA_DIR", "")

	s, err := LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}
	if s.DataDir != filepath.Join(home, ".ssh-manager") {
		t.Errorf("Unexpected data dir %s", s.DataDir)
	}
	if s.ProfilesPath() != filepath.Join(home, ".ssh-manager", "profiles.json") {
		t.Errorf("Unexpected profiles path %s", s.ProfilesPath())
	}
	if s.Cooldown != 2*time.Second {
		t.Errorf("Expected 2s cooldown, got %s", s.Cooldown)
	}
	if s.TestTimeout != 10*time.Second {
		t.Errorf("Expected 10s test timeout, got %s", s.TestTimeout)
	}
	if s.EmbeddedCommandDelay != 500*time.Millisecond {
		t.Errorf("Expected 500ms delay, got %s", s.EmbeddedCommandDelay)
	}
	if s.KeyringService != "ssh-connection-manager" {
		t.Errorf("Unexpected keyring service %s", s.KeyringService)
	}
}

func TestLoadSettingsOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SSH_ORGANIZER_DATA_DIR", dir)
	t.Setenv("SSH_ORGANIZER_COOLDOWN", "750ms")
	t.Setenv("SSH_ORGANIZER_SECRET_BACKEND", "file")

	s, err := LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}
	if s.DataDir != dir {
		t.Errorf("Expected data dir %s, got %s", dir, s.DataDir)
	}
	if s.Cooldown != 750*time.Millisecond {
		t.Errorf("Expected 750ms cooldown, got %s", s.Cooldown)
	}
	if s.SecretBackend != "file" {
		t.Errorf("Expected file backend, got %s", s.SecretBackend)
	}
	if s.LogPath != filepath.Join(dir, "ssh-organizer.log") {
		t.Errorf("Unexpected log path %s", s.LogPath)
	}
}

func TestExpandPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	if got := ExpandPath("~/.ssh/id_rsa"); got != filepath.Join(home, ".ssh", "id_rsa") {
		t.Errorf("Unexpected expansion %s", got)
	}
	if got := ExpandPath("/abs/key"); got != "/abs/key" {
		t.Errorf("Absolute path changed: %s", got)
	}
}
