// Package sshcmd turns connection profiles into ssh argument vectors.
package sshcmd

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"al.essio.dev/pkg/shellescape"
	"github.com/mynenikoteshwarrao/ssh-organizer-desktop/internal/config"
	"github.com/mynenikoteshwarrao/ssh-organizer-desktop/internal/credentials"
)

// Mode selects the extra -o options placed before the target.
type Mode int

const (
	// ModeExternal runs ssh interactively in a terminal window.
	ModeExternal Mode = iota
	// ModeTest runs a non-interactive reachability probe.
	ModeTest
	// ModeEmbedded runs ssh inside a PTY owned by this process.
	ModeEmbedded
)

func (m Mode) String() string {
	switch m {
	case ModeTest:
		return "test"
	case ModeEmbedded:
		return "embedded"
	}
	return "external"
}

// TestConnectTimeout is the ConnectTimeout passed in ModeTest, in seconds.
const TestConnectTimeout = 10

// SecretLookup reads stored secrets. credentials.Store satisfies it.
type SecretLookup interface {
	Get(profileID string, kind credentials.Kind) (string, error)
}

// Builder constructs ssh argv from profiles.
type Builder struct {
	secrets SecretLookup
	statFn  func(string) (os.FileInfo, error)
}

// NewBuilder returns a builder that checks secrets against the given lookup.
func NewBuilder(secrets SecretLookup) *Builder {
	return &Builder{secrets: secrets, statFn: os.Stat}
}

// Build returns the arguments passed to the ssh binary (without the binary
// itself). Secrets are only checked for presence, never placed in argv.
func (b *Builder) Build(p config.ConnectionProfile, mode Mode) ([]string, error) {
	args := []string{}

	if p.Port != 0 && p.Port != config.DefaultSSHPort {
		args = append(args, "-p", strconv.Itoa(p.Port))
	}

	if p.AuthType.RequiresKey() {
		if strings.TrimSpace(p.PrivateKeyPath) == "" {
			return nil, &BuildError{Code: MissingKeyPath, ProfileID: p.ID}
		}
		keyPath := config.ExpandPath(p.PrivateKeyPath)
		if _, err := b.statFn(keyPath); err != nil {
			return nil, &BuildError{Code: KeyFileNotFound, ProfileID: p.ID, Path: keyPath, Err: err}
		}
		args = append(args, "-i", keyPath)
	}

	switch p.AuthType {
	case config.AuthPrivateKeyWithPassword:
		if err := b.requireSecret(p.ID, credentials.KindPassphrase, PassphraseNotFound); err != nil {
			return nil, err
		}
	case config.AuthPassword:
		if err := b.requireSecret(p.ID, credentials.KindPassword, PasswordNotFound); err != nil {
			return nil, err
		}
	}

	args = append(args, modeOptions(mode)...)
	args = append(args, p.Target())
	return args, nil
}

func (b *Builder) requireSecret(profileID string, kind credentials.Kind, missing ErrorCode) error {
	if b.secrets == nil {
		return &BuildError{Code: missing, ProfileID: profileID}
	}
	value, err := b.secrets.Get(profileID, kind)
	if errors.Is(err, credentials.ErrNotFound) || (err == nil && value == "") {
		return &BuildError{Code: missing, ProfileID: profileID}
	}
	if err != nil {
		log.Printf("[Builder] Credential lookup for %s (%s) failed: %v", profileID, kind, err)
		return &BuildError{Code: SecretLookupFailed, ProfileID: profileID, Err: err}
	}
	return nil
}

func modeOptions(mode Mode) []string {
	switch mode {
	case ModeTest:
		return []string{
			"-o", fmt.Sprintf("ConnectTimeout=%d", TestConnectTimeout),
			"-o", "BatchMode=yes",
			"-o", "StrictHostKeyChecking=no",
		}
	case ModeEmbedded:
		return []string{
			"-o", "StrictHostKeyChecking=no",
			"-o", "UserKnownHostsFile=/dev/null",
			"-o", "LogLevel=QUIET",
		}
	}
	return nil
}

// CommandLine renders binary and args as a single shell-safe command string.
func CommandLine(binary string, args []string) string {
	if binary == "" {
		binary = "ssh"
	}
	return shellescape.QuoteCommand(append([]string{binary}, args...))
}
