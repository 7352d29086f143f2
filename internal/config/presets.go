package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v2"
)

// Presets is the optional YAML file named by CLEAN_PRESETS_FILE:
//
//	presets:
//	  contacts: [name, email, phone]
//	email:
//	  allowed_tlds: [".io"]
//	  corrections:
//	    ".cm": ".com"
type Presets struct {
	Columns map[string][]string `yaml:"presets"`
	Email   EmailRulesFile      `yaml:"email"`
}

// EmailRulesFile extends the built-in email tables.
type EmailRulesFile struct {
	AllowedTLDs []string          `yaml:"allowed_tlds"`
	Corrections map[string]string `yaml:"corrections"`
}

// LoadPresets reads and validates a presets file. An empty path yields no presets.
func LoadPresets(path string) (*Presets, error) {
	if path == "" {
		return &Presets{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read presets file: %w", err)
	}

	p, err := ParsePresets(data)
	if err != nil {
		return nil, fmt.Errorf("presets file %s: %w", path, err)
	}
	return p, nil
}

// ParsePresets decodes and validates preset YAML.
func ParsePresets(data []byte) (*Presets, error) {
	var p Presets
	if err := yaml.UnmarshalStrict(data, &p); err != nil {
		return nil, fmt.Errorf("parse presets: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate rejects presets with no columns or blank column names,
// and email entries that are not dot-prefixed suffixes.
func (p *Presets) Validate() error {
	var errs []string

	for _, name := range p.Names() {
		cols := p.Columns[name]
		if len(cols) == 0 {
			errs = append(errs, fmt.Sprintf("preset %q has no columns", name))
			continue
		}
		for i, c := range cols {
			if strings.TrimSpace(c) == "" {
				errs = append(errs, fmt.Sprintf("preset %q column %d is blank", name, i+1))
			}
		}
	}

	for _, tld := range p.Email.AllowedTLDs {
		if !strings.HasPrefix(tld, ".") {
			errs = append(errs, fmt.Sprintf("allowed tld %q must start with a dot", tld))
		}
	}
	for typo, fix := range p.Email.Corrections {
		if !strings.HasPrefix(typo, ".") || !strings.HasPrefix(fix, ".") {
			errs = append(errs, fmt.Sprintf("correction %q -> %q must use dot-prefixed suffixes", typo, fix))
		}
	}

	if len(errs) > 0 {
		sort.Strings(errs)
		return fmt.Errorf("invalid presets:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// Names returns the preset names in sorted order.
func (p *Presets) Names() []string {
	names := make([]string, 0, len(p.Columns))
	for name := range p.Columns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns a copy of the named preset's columns.
func (p *Presets) Lookup(name string) ([]string, bool) {
	cols, ok := p.Columns[name]
	if !ok {
		return nil, false
	}
	return append([]string(nil), cols...), true
}
