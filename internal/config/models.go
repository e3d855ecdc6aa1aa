package config

import (
	"fmt"
	"time"
)

// AuthType selects how ssh authenticates against the remote host.
type AuthType string

const (
	AuthPassword               AuthType = "password"
	AuthPrivateKey             AuthType = "privateKey"
	AuthPrivateKeyWithPassword AuthType = "privateKeyWithPassword"
)

// Valid reports whether a is one of the known auth types.
func (a AuthType) Valid() bool {
	switch a {
	case AuthPassword, AuthPrivateKey, AuthPrivateKeyWithPassword:
		return true
	}
	return false
}

// RequiresKey reports whether the auth type needs a private key file.
func (a AuthType) RequiresKey() bool {
	return a == AuthPrivateKey || a == AuthPrivateKeyWithPassword
}

// DefaultSSHPort is used when a profile does not name a port.
const DefaultSSHPort = 22

// ConnectionProfile represents a saved SSH connection configuration
type ConnectionProfile struct {
	ID             string   `json:"id" yaml:"id"`
	Name           string   `json:"name" yaml:"name"`
	Hostname       string   `json:"hostname" yaml:"hostname"`
	Port           int      `json:"port" yaml:"port"`
	Username       string   `json:"username" yaml:"username"`
	AuthType       AuthType `json:"authType" yaml:"authType"`
	PrivateKeyPath string   `json:"privateKeyPath,omitempty" yaml:"privateKeyPath,omitempty"`
	// Deprecated: inline secrets are accepted for compatibility and moved into
	// the credential store on save or load. They are never persisted.
	Password string `json:"password,omitempty" yaml:"-"`
	// Deprecated: see Password.
	PrivateKeyPassphrase string   `json:"privateKeyPassphrase,omitempty" yaml:"-"`
	Description          string   `json:"description,omitempty" yaml:"description,omitempty"`
	Tags                 []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	CreatedAt            string   `json:"createdAt" yaml:"createdAt"`
	UpdatedAt            string   `json:"updatedAt" yaml:"updatedAt"`
}

// Target returns the user@host string passed to ssh.
func (p ConnectionProfile) Target() string {
	return fmt.Sprintf("%s@%s", p.Username, p.Hostname)
}

// HasInlineSecrets reports whether the profile carries plaintext secrets.
func (p ConnectionProfile) HasInlineSecrets() bool {
	return p.Password != "" || p.PrivateKeyPassphrase != ""
}

// Redacted returns a copy with inline secrets cleared and tags copied.
func (p ConnectionProfile) Redacted() ConnectionProfile {
	p.Password = ""
	p.PrivateKeyPassphrase = ""
	if p.Tags != nil {
		p.Tags = append([]string(nil), p.Tags...)
	}
	return p
}

// Credentials carries secrets entered alongside a profile save.
type Credentials struct {
	Password             string `json:"password,omitempty"`
	PrivateKeyPassphrase string `json:"privateKeyPassphrase,omitempty"`
}

// Empty reports whether no secret was supplied.
func (c *Credentials) Empty() bool {
	return c == nil || (c.Password == "" && c.PrivateKeyPassphrase == "")
}

// Config is the persisted profile document
type Config struct {
	Connections []ConnectionProfile `json:"connections"`
}

// NewConfig creates a new empty document
func NewConfig() *Config {
	return &Config{
		Connections: []ConnectionProfile{},
	}
}

// timestampLayout is the on-disk format for createdAt/updatedAt.
const timestampLayout = time.RFC3339Nano

// FormatTimestamp renders t in the persisted timestamp layout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// ParseTimestamp parses a persisted timestamp.
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(timestampLayout, s)
}
