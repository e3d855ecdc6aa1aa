package credentials

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/fernet/fernet-go"
	"github.com/zalando/go-keyring"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()

	if _, err := s.Get("p1", KindPassword); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound for missing secret, got %v", err)
	}

	if err := s.Set("p1", KindPassword, "pw"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := s.Set("p1", KindPassphrase, "phrase"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := s.Get("p1", KindPassword)
	if err != nil || got != "pw" {
		t.Fatalf("Expected password 'pw', got %q (err %v)", got, err)
	}
	got, err = s.Get("p1", KindPassphrase)
	if err != nil || got != "phrase" {
		t.Fatalf("Expected passphrase 'phrase', got %q (err %v)", got, err)
	}

	if err := s.Delete("p1", KindPassword); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := s.Delete("p1", KindPassword); err != nil {
		t.Errorf("Deleting an absent secret should not fail, got %v", err)
	}
	if _, err := s.Get("p1", KindPassword); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}

	if err := DeleteAll(s, "p1"); err != nil {
		t.Errorf("DeleteAll failed: %v", err)
	}
	if _, err := s.Get("p1", KindPassphrase); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected passphrase removed by DeleteAll, got %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestKeyringStore(t *testing.T) {
	keyring.MockInit()
	exerciseStore(t, NewKeyringStore("ssh-connection-manager-test"))
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.fernet")
	s, err := NewFileStore(path, "")
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	exerciseStore(t, s)
}

func TestFileStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.fernet")
	s, err := NewFileStore(path, "")
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	if err := s.Set("abc", KindPassword, "hunter2"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	reopened, err := NewFileStore(path, "")
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	got, err := reopened.Get("abc", KindPassword)
	if err != nil || got != "hunter2" {
		t.Fatalf("Expected persisted secret, got %q (err %v)", got, err)
	}
}

func TestFileStoreRejectsWrongKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.fernet")
	s, err := NewFileStore(path, "")
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	if err := s.Set("abc", KindPassword, "hunter2"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	var other fernet.Key
	if err := other.Generate(); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	wrong, err := NewFileStore(path, other.Encode())
	if err != nil {
		t.Fatalf("NewFileStore with explicit key failed: %v", err)
	}
	if _, err := wrong.Get("abc", KindPassword); err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("Expected decrypt error with wrong key, got %v", err)
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	if _, err := Open(Options{Backend: "vault"}); err == nil {
		t.Error("Expected error for unknown backend")
	}
	s, err := Open(Options{Backend: BackendMemory})
	if err != nil {
		t.Fatalf("Open memory failed: %v", err)
	}
	if _, ok := s.(*MemoryStore); !ok {
		t.Errorf("Expected *MemoryStore, got %T", s)
	}
}

func TestAccount(t *testing.T) {
	if got := Account("42", KindPassphrase); got != "42_passphrase" {
		t.Errorf("Expected 42_passphrase, got %s", got)
	}
}
