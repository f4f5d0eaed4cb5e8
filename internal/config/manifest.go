package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Manifest lists the species datasets to link in one run.
type Manifest struct {
	// TargetRegion overrides TARGET_REGION when set.
	TargetRegion string       `toml:"target_region"`
	Species      []SpeciesJob `toml:"species" validate:"required,min=1,unique=Name,dive"`
}

// SpeciesJob pairs one species' sighting export with its trend summary.
type SpeciesJob struct {
	Name      string `toml:"name" validate:"required,excludesall=/"`
	Sightings string `toml:"sightings" validate:"required"`
	Trends    string `toml:"trends" validate:"required"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// LoadManifest decodes and validates a TOML job manifest. Relative dataset
// paths are resolved against the manifest's directory.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	base := filepath.Dir(path)
	for i := range m.Species {
		m.Species[i].Sightings = resolvePath(base, m.Species[i].Sightings)
		m.Species[i].Trends = resolvePath(base, m.Species[i].Trends)
	}
	return m, nil
}

// ParseManifest decodes and validates manifest contents.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		var decodeErr *toml.DecodeError
		if errors.As(err, &decodeErr) {
			row, col := decodeErr.Position()
			return nil, fmt.Errorf("parse manifest at line %d column %d: %w", row, col, err)
		}
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if err := validate.Struct(&m); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	return &m, nil
}

func resolvePath(base, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
