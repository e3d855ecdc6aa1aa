package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mynenikoteshwarrao/ssh-organizer-desktop/internal/credentials"
)

func newTestStore(t *testing.T) (*ProfileStore, *credentials.MemoryStore) {
	t.Helper()
	secrets := credentials.NewMemoryStore()
	ps := NewProfileStore(filepath.Join(t.TempDir(), "profiles.json"), secrets)
	if err := ps.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return ps, secrets
}

func fixedClock(start time.Time) (func() time.Time, func(time.Duration)) {
	now := start
	return func() time.Time { return now }, func(d time.Duration) { now = now.Add(d) }
}

func sampleProfile() ConnectionProfile {
	return ConnectionProfile{
		ID:       "p1",
		Name:     "web",
		Hostname: "web.example.com",
		Port:     22,
		Username: "deploy",
		AuthType: AuthPassword,
		Tags:     []string{"prod"},
	}
}

func TestSaveThenListRoundTrip(t *testing.T) {
	ps, _ := newTestStore(t)
	clock, advance := fixedClock(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	ps.SetClock(clock)

	saved, err := ps.Save(sampleProfile(), nil)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if saved.CreatedAt == "" || saved.CreatedAt != saved.UpdatedAt {
		t.Errorf("Expected createdAt == updatedAt on insert, got %q / %q", saved.CreatedAt, saved.UpdatedAt)
	}

	list := ps.List()
	if len(list) != 1 {
		t.Fatalf("Expected 1 profile, got %d", len(list))
	}
	got := list[0]
	if got.ID != "p1" || got.Hostname != "web.example.com" || got.Username != "deploy" || got.Tags[0] != "prod" {
		t.Errorf("Listed profile does not match saved one: %+v", got)
	}

	advance(time.Minute)
	updated := sampleProfile()
	updated.Name = "web (renamed)"
	again, err := ps.Save(updated, nil)
	if err != nil {
		t.Fatalf("second Save failed: %v", err)
	}
	if again.CreatedAt != saved.CreatedAt {
		t.Errorf("createdAt changed on update: %q -> %q", saved.CreatedAt, again.CreatedAt)
	}
	if again.UpdatedAt == saved.UpdatedAt {
		t.Errorf("updatedAt was not refreshed")
	}
	if len(ps.List()) != 1 {
		t.Errorf("Expected upsert to keep a single profile")
	}
}

func TestUpdatedAtAdvancesWithFrozenClock(t *testing.T) {
	ps, _ := newTestStore(t)
	clock, _ := fixedClock(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	ps.SetClock(clock)

	first, err := ps.Save(sampleProfile(), nil)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	second, err := ps.Save(sampleProfile(), nil)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	a, _ := ParseTimestamp(first.UpdatedAt)
	b, _ := ParseTimestamp(second.UpdatedAt)
	if !b.After(a) {
		t.Errorf("Expected updatedAt to advance, got %s then %s", first.UpdatedAt, second.UpdatedAt)
	}
}

func TestSavePersistsAcrossReload(t *testing.T) {
	ps, secrets := newTestStore(t)
	if _, err := ps.Save(sampleProfile(), nil); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	reloaded := NewProfileStore(ps.ConfigPath, secrets)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, ok := reloaded.Get("p1"); !ok {
		t.Fatal("Expected profile p1 after reload")
	}
}

func TestSaveForwardsCredentials(t *testing.T) {
	ps, secrets := newTestStore(t)
	_, err := ps.Save(sampleProfile(), &Credentials{Password: "pw", PrivateKeyPassphrase: "pp"})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if got, _ := secrets.Get("p1", credentials.KindPassword); got != "pw" {
		t.Errorf("Expected stored password 'pw', got %q", got)
	}
	if got, _ := secrets.Get("p1", credentials.KindPassphrase); got != "pp" {
		t.Errorf("Expected stored passphrase 'pp', got %q", got)
	}

	data, err := os.ReadFile(ps.ConfigPath)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if bytes.Contains(data, []byte(`"pw"`)) || bytes.Contains(data, []byte(`"pp"`)) {
		t.Errorf("Secrets must not be written to the profile document:\n%s", data)
	}
}

func TestInlineSecretsAreMovedToStore(t *testing.T) {
	ps, secrets := newTestStore(t)
	p := sampleProfile()
	p.Password = "inline-pw"
	if _, err := ps.Save(p, nil); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if got, _ := secrets.Get("p1", credentials.KindPassword); got != "inline-pw" {
		t.Errorf("Expected inline password moved to store, got %q", got)
	}
	listed, _ := ps.Get("p1")
	if listed.Password != "" {
		t.Errorf("Expected listed profile without inline password")
	}
}

func TestLoadMigratesInlineSecrets(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profiles.json")
	legacy := `[{"id":"old","name":"old","hostname":"h","port":22,"username":"u","authType":"password","password":"legacy","createdAt":"2024-01-01T00:00:00Z","updatedAt":"2024-01-01T00:00:00Z"}]`
	if err := os.WriteFile(path, []byte(legacy), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	secrets := credentials.NewMemoryStore()
	ps := NewProfileStore(path, secrets)
	if err := ps.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if got, _ := secrets.Get("old", credentials.KindPassword); got != "legacy" {
		t.Errorf("Expected legacy password migrated, got %q", got)
	}
	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "legacy") {
		t.Errorf("Expected rewritten document without plaintext secret:\n%s", data)
	}
	p, ok := ps.Get("old")
	if !ok || p.CreatedAt != "2024-01-01T00:00:00Z" {
		t.Errorf("Expected migrated profile to keep createdAt, got %+v", p)
	}
}

func TestLoadMalformedStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profiles.json")
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	ps := NewProfileStore(path, credentials.NewMemoryStore())
	if err := ps.Load(); err != nil {
		t.Fatalf("Expected malformed data to be tolerated, got %v", err)
	}
	if len(ps.List()) != 0 {
		t.Errorf("Expected empty list after malformed document")
	}
	if _, err := os.Stat(path + ".corrupt"); err != nil {
		t.Errorf("Expected corrupt document moved aside: %v", err)
	}
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	ps := NewProfileStore(filepath.Join(t.TempDir(), "nope", "profiles.json"), nil)
	if err := ps.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(ps.List()) != 0 {
		t.Errorf("Expected empty list")
	}
}

func TestDeleteRemovesProfileAndSecrets(t *testing.T) {
	ps, secrets := newTestStore(t)
	if _, err := ps.Save(sampleProfile(), &Credentials{Password: "pw"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if err := ps.Delete("p1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok := ps.Get("p1"); ok {
		t.Error("Expected profile removed")
	}
	if _, err := secrets.Get("p1", credentials.KindPassword); !errors.Is(err, credentials.ErrNotFound) {
		t.Errorf("Expected password removed, got %v", err)
	}

	err := ps.Delete("p1")
	if !errors.Is(err, ErrProfileNotFound) {
		t.Errorf("Expected ErrProfileNotFound on repeated delete, got %v", err)
	}
}

func TestFailedWriteLeavesListUnchanged(t *testing.T) {
	dir := t.TempDir()
	ps := NewProfileStore(filepath.Join(dir, "profiles.json"), credentials.NewMemoryStore())
	if err := ps.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, err := ps.Save(sampleProfile(), nil); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// A directory in place of the temp file makes the write fail.
	if err := os.Mkdir(ps.ConfigPath+".tmp", 0700); err != nil {
		t.Fatalf("Mkdir failed: %v", err)
	}

	other := sampleProfile()
	other.ID = "p2"
	_, err := ps.Save(other, nil)
	var storageErr *StorageError
	if !errors.As(err, &storageErr) {
		t.Fatalf("Expected StorageError, got %v", err)
	}
	if len(ps.List()) != 1 {
		t.Errorf("Expected in-memory list unchanged after failed write, got %d profiles", len(ps.List()))
	}

	if err := ps.Delete("p1"); !errors.As(err, &storageErr) {
		t.Errorf("Expected StorageError from delete, got %v", err)
	}
	if _, ok := ps.Get("p1"); !ok {
		t.Errorf("Expected p1 kept after failed delete")
	}
}

func TestFailedDeleteKeepsSecrets(t *testing.T) {
	dir := t.TempDir()
	secrets := credentials.NewMemoryStore()
	ps := NewProfileStore(filepath.Join(dir, "profiles.json"), secrets)
	if err := ps.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, err := ps.Save(sampleProfile(), &Credentials{Password: "pw"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := os.Mkdir(ps.ConfigPath+".tmp", 0700); err != nil {
		t.Fatalf("Mkdir failed: %v", err)
	}

	if err := ps.Delete("p1"); err == nil {
		t.Fatal("Expected delete to fail")
	}
	if got, err := secrets.Get("p1", credentials.KindPassword); err != nil || got != "pw" {
		t.Errorf("Expected password kept after failed delete, got %q, %v", got, err)
	}

	if err := os.Remove(ps.ConfigPath + ".tmp"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if err := ps.Delete("p1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := secrets.Get("p1", credentials.KindPassword); !errors.Is(err, credentials.ErrNotFound) {
		t.Errorf("Expected password removed after delete, got %v", err)
	}
}

func TestNormalizeValidation(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*ConnectionProfile)
		field string
	}{
		{"missing hostname", func(p *ConnectionProfile) { p.Hostname = "" }, "hostname"},
		{"missing username", func(p *ConnectionProfile) { p.Username = " " }, "username"},
		{"port too large", func(p *ConnectionProfile) { p.Port = 70000 }, "port"},
		{"negative port", func(p *ConnectionProfile) { p.Port = -1 }, "port"},
		{"unknown auth", func(p *ConnectionProfile) { p.AuthType = "kerberos" }, "authType"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := sampleProfile()
			tt.edit(&p)
			_, err := Normalize(p)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Expected ValidationError, got %v", err)
			}
			if verr.Field != tt.field {
				t.Errorf("Expected field %s, got %s", tt.field, verr.Field)
			}
		})
	}
}

func TestNormalizeDefaults(t *testing.T) {
	p, err := Normalize(ConnectionProfile{Hostname: "h", Username: "u"})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if p.Port != 22 {
		t.Errorf("Expected default port 22, got %d", p.Port)
	}
	if p.ID == "" {
		t.Error("Expected generated id")
	}
	if p.Name != "u@h" {
		t.Errorf("Expected default name u@h, got %s", p.Name)
	}
	if p.AuthType != AuthPassword {
		t.Errorf("Expected default auth password, got %s", p.AuthType)
	}
}

func TestExportImportYAML(t *testing.T) {
	ps, _ := newTestStore(t)
	p := sampleProfile()
	if _, err := ps.Save(p, &Credentials{Password: "secret-pw"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	var buf bytes.Buffer
	if err := ps.ExportYAML(&buf); err != nil {
		t.Fatalf("ExportYAML failed: %v", err)
	}
	if strings.Contains(buf.String(), "secret-pw") {
		t.Errorf("Export must not contain secrets:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), "web.example.com") {
		t.Errorf("Export missing hostname:\n%s", buf.String())
	}

	target, _ := newTestStore(t)
	n, err := target.ImportYAML(&buf)
	if err != nil {
		t.Fatalf("ImportYAML failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 imported profile, got %d", n)
	}
	if got, ok := target.Get("p1"); !ok || got.Hostname != "web.example.com" {
		t.Errorf("Expected imported profile p1, got %+v", got)
	}
}

func TestImportYAMLRejectsNewerVersion(t *testing.T) {
	ps, _ := newTestStore(t)
	_, err := ps.ImportYAML(strings.NewReader("version: 99\nprofiles: []\n"))
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("Expected ValidationError, got %v", err)
	}
}
