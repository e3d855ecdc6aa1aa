package sshcmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mynenikoteshwarrao/ssh-organizer-desktop/internal/config"
	"golang.org/x/crypto/ssh"
)

// KeyInfo describes a private key file on disk.
type KeyInfo struct {
	Path      string `json:"path"`
	Valid     bool   `json:"valid"`
	Encrypted bool   `json:"encrypted"`
	Type      string `json:"type,omitempty"`
}

// InspectKey parses the key at path without a passphrase and reports whether
// it is a private key and whether it is encrypted.
func InspectKey(path string) (KeyInfo, error) {
	path = config.ExpandPath(path)
	info := KeyInfo{Path: path}

	keyBytes, err := os.ReadFile(path)
	if err != nil {
		return info, fmt.Errorf("failed to read private key: %w", err)
	}

	signer, err := ssh.ParsePrivateKey(keyBytes)
	if err != nil {
		var missing *ssh.PassphraseMissingError
		if errors.As(err, &missing) {
			info.Valid = true
			info.Encrypted = true
			if missing.PublicKey != nil {
				info.Type = missing.PublicKey.Type()
			}
			return info, nil
		}
		return info, nil
	}
	info.Valid = true
	info.Type = signer.PublicKey().Type()
	return info, nil
}

// AuthMismatch returns a warning when the key's encryption state disagrees
// with the auth type, or "" when they agree.
func AuthMismatch(p config.ConnectionProfile, key KeyInfo) string {
	if !key.Valid {
		return fmt.Sprintf("%s does not look like a private key", key.Path)
	}
	switch {
	case key.Encrypted && p.AuthType == config.AuthPrivateKey:
		return fmt.Sprintf("%s is encrypted; ssh will prompt for its passphrase", key.Path)
	case !key.Encrypted && p.AuthType == config.AuthPrivateKeyWithPassword:
		return fmt.Sprintf("%s is not encrypted; the stored passphrase is unused", key.Path)
	}
	return ""
}

var nonKeyFiles = map[string]struct{}{
	"known_hosts":     {},
	"known_hosts.old": {},
	"authorized_keys": {},
	"config":          {},
	"environment":     {},
	"README":          {},
}

// ScanKeyFiles lists candidate private key files directly under dir (usually
// ~/.ssh), sorted, as "~/.ssh/<name>" when dir is the user's ssh directory.
func ScanKeyFiles(dir string) []string {
	dir = config.ExpandPath(dir)
	display := dir
	if home, err := os.UserHomeDir(); err == nil && dir == filepath.Join(home, ".ssh") {
		display = "~/.ssh"
	}

	var keys []string
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		base := d.Name()
		if _, skip := nonKeyFiles[base]; skip || strings.HasSuffix(base, ".pub") {
			return nil
		}
		info, err := d.Info()
		if err != nil || !info.Mode().IsRegular() {
			return nil
		}
		keys = append(keys, display+"/"+base)
		return nil
	})

	sort.Strings(keys)
	return keys
}
