package role

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// rolesFile is the on-disk shape of a roles file.
type rolesFile struct {
	Roles []Role `yaml:"roles"`
}

// LoadFile reads a role sequence from a YAML file and validates it.
// The file replaces the built-in defaults entirely.
func LoadFile(path string) (Sequence, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roles file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a role sequence from YAML bytes and validates it.
func Parse(data []byte) (Sequence, error) {
	var f rolesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse roles file: %w", err)
	}
	seq := Sequence(f.Roles)
	if err := seq.Validate(); err != nil {
		return nil, fmt.Errorf("invalid roles file: %w", err)
	}
	return seq, nil
}

// Marshal encodes a sequence back to YAML, suitable for seeding a
// project roles file from the defaults.
func Marshal(seq Sequence) ([]byte, error) {
	return yaml.Marshal(rolesFile{Roles: seq})
}
