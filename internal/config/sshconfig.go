package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
)

// sshConfigIDPrefix keeps imported profile ids stable across re-imports.
const sshConfigIDPrefix = "sshconfig-"

// ParseSSHConfig extracts connection profiles from an OpenSSH client config.
// Wildcard and negated Host patterns are skipped. A host with an IdentityFile
// or an explicit public-key hint becomes a privateKey profile; everything
// else defaults to password auth.
func ParseSSHConfig(r io.Reader) ([]ConnectionProfile, error) {
	scanner := bufio.NewScanner(r)
	var current *ConnectionProfile
	profiles := []ConnectionProfile{}

	flush := func() {
		if current == nil {
			return
		}
		if current.Hostname == "" {
			current.Hostname = strings.TrimPrefix(current.ID, sshConfigIDPrefix)
		}
		if current.Username != "" {
			profiles = append(profiles, *current)
		} else {
			log.Printf("[ParseSSHConfig] Skipping host %s: no User directive", current.Name)
		}
		current = nil
	}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		keyword, value := splitDirective(line)
		if keyword == "" || value == "" {
			continue
		}

		switch keyword {
		case "host":
			flush()
			alias := strings.Fields(value)[0]
			if strings.ContainsAny(alias, "*?!") {
				continue
			}
			current = &ConnectionProfile{
				ID:       sshConfigIDPrefix + alias,
				Name:     alias,
				Port:     DefaultSSHPort,
				AuthType: AuthPassword,
				Tags:     []string{"ssh-config"},
			}
		case "match":
			flush()
		default:
			if current == nil {
				continue
			}
			applyDirective(current, keyword, value)
		}
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ssh config: %w", err)
	}
	return profiles, nil
}

// splitDirective splits "Keyword value" and "Keyword=value" lines.
func splitDirective(line string) (string, string) {
	idx := strings.IndexAny(line, " \t=")
	if idx == -1 {
		return "", ""
	}
	keyword := strings.ToLower(line[:idx])
	value := strings.TrimSpace(strings.TrimLeft(line[idx:], " \t="))
	value = strings.Trim(value, `"`)
	return keyword, value
}

func applyDirective(p *ConnectionProfile, keyword, value string) {
	switch keyword {
	case "hostname":
		p.Hostname = value
	case "port":
		if port, err := strconv.Atoi(value); err == nil {
			p.Port = port
		}
	case "user":
		p.Username = value
	case "identityfile":
		if p.PrivateKeyPath == "" {
			p.PrivateKeyPath = value
		}
		p.AuthType = AuthPrivateKey
	case "identitiesonly", "pubkeyauthentication":
		if strings.EqualFold(value, "yes") && p.PrivateKeyPath != "" {
			p.AuthType = AuthPrivateKey
		}
	case "preferredauthentications":
		if strings.HasPrefix(strings.ToLower(value), "password") {
			p.AuthType = AuthPassword
		}
	}
}

// ImportSSHConfig reads path (an OpenSSH client config) and upserts every
// concrete host it declares.
func (ps *ProfileStore) ImportSSHConfig(path string) (int, error) {
	file, err := os.Open(ExpandPath(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, &StorageError{Op: "failed to open ssh config", Err: err}
	}
	defer file.Close()

	profiles, err := ParseSSHConfig(file)
	if err != nil {
		return 0, &StorageError{Op: "failed to parse ssh config", Err: err}
	}
	return ps.saveAll(profiles)
}
