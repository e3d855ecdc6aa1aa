package config

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// exportDocument is the YAML layout used for profile export and import.
type exportDocument struct {
	Version  int                 `yaml:"version"`
	Profiles []ConnectionProfile `yaml:"profiles"`
}

const exportVersion = 1

// ExportYAML writes every profile to w. Secrets are never exported.
func (ps *ProfileStore) ExportYAML(w io.Writer) error {
	doc := exportDocument{Version: exportVersion, Profiles: ps.List()}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode profiles: %w", err)
	}
	return enc.Close()
}

// ImportYAML upserts the profiles of an exported document. Profiles that fail
// validation are skipped and reported in the returned error; the count of
// imported profiles is returned either way.
func (ps *ProfileStore) ImportYAML(r io.Reader) (int, error) {
	var doc exportDocument
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return 0, nil
		}
		return 0, &ValidationError{Field: "document", Reason: err.Error()}
	}
	if doc.Version > exportVersion {
		return 0, &ValidationError{Field: "version", Reason: fmt.Sprintf("unsupported export version %d", doc.Version)}
	}
	return ps.saveAll(doc.Profiles)
}

// saveAll saves each profile and joins the failures.
func (ps *ProfileStore) saveAll(profiles []ConnectionProfile) (int, error) {
	imported := 0
	var errs []error
	for _, p := range profiles {
		if _, err := ps.Save(p.Redacted(), nil); err != nil {
			errs = append(errs, fmt.Errorf("profile %q: %w", p.Name, err))
			continue
		}
		imported++
	}
	return imported, errors.Join(errs...)
}
