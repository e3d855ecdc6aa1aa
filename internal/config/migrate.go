package config

import (
	"log"
	"slices"

	"github.com/mynenikoteshwarrao/ssh-organizer-desktop/internal/credentials"
)

// migrateInlineSecretsLocked moves plaintext password/passphrase fields found
// in the loaded document into the credential store and rewrites the document
// without them. Profiles whose secrets cannot be stored keep them inline so
// nothing is lost. Returns the number of migrated profiles. ps.mu must be held.
func (ps *ProfileStore) migrateInlineSecretsLocked() int {
	if ps.secrets == nil {
		return 0
	}

	next := slices.Clone(ps.profiles)
	migrated := 0
	for i, p := range next {
		if !p.HasInlineSecrets() {
			continue
		}
		if p.Password != "" {
			if err := ps.secrets.Set(p.ID, credentials.KindPassword, p.Password); err != nil {
				log.Printf("[ProfileStore] Warning: failed to migrate password of %s: %v", p.ID, err)
				continue
			}
		}
		if p.PrivateKeyPassphrase != "" {
			if err := ps.secrets.Set(p.ID, credentials.KindPassphrase, p.PrivateKeyPassphrase); err != nil {
				log.Printf("[ProfileStore] Warning: failed to migrate passphrase of %s: %v", p.ID, err)
				continue
			}
		}
		next[i] = p.Redacted()
		migrated++
	}
	if migrated == 0 {
		return 0
	}

	if err := ps.persist(next); err != nil {
		log.Printf("[ProfileStore] Warning: failed to rewrite profiles after secret migration: %v", err)
		return 0
	}
	ps.profiles = next
	return migrated
}
