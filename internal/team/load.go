package team

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	yaml "gopkg.in/yaml.v2"
)

//go:embed data/pots.yaml
var defaultPots []byte

// potFile is the on-disk shape of a pots file.
type potFile struct {
	Name  string  `json:"name" yaml:"name"`
	Teams []*Team `json:"teams" yaml:"teams"`
}

// DefaultPots returns a fresh copy of the built-in 64-team draw.
func DefaultPots() []Pot {
	pots, err := parsePots(defaultPots, ".yaml")
	if err != nil {
		panic(fmt.Sprintf("team: embedded pots are invalid: %v", err))
	}
	return pots
}

// LoadPots reads pots from a .yaml, .yml or .json file, normalizes the
// stats and validates the names.
func LoadPots(path string) ([]Pot, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	pots, err := parsePots(raw, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return pots, nil
}

// LoadPotsOrDefault loads path, or returns DefaultPots when path is empty.
func LoadPotsOrDefault(path string) ([]Pot, error) {
	if path == "" {
		return DefaultPots(), nil
	}
	return LoadPots(path)
}

func parsePots(raw []byte, ext string) ([]Pot, error) {
	var files []potFile
	switch ext {
	case ".json":
		if err := json.Unmarshal(raw, &files); err != nil {
			return nil, fmt.Errorf("bad JSON: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &files); err != nil {
			return nil, fmt.Errorf("bad YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported pots file format: %q", ext)
	}

	pots := make([]Pot, len(files))
	for i, f := range files {
		pots[i] = Pot(f.Teams)
	}
	NormalizePots(pots)
	if err := Validate(pots); err != nil {
		return nil, err
	}
	return pots, nil
}

// MarshalYAML renders pots in the same format LoadPots reads.
func MarshalYAML(pots []Pot) ([]byte, error) {
	files := make([]potFile, len(pots))
	for i, p := range pots {
		files[i] = potFile{Name: fmt.Sprintf("Pot %d", i+1), Teams: p}
	}
	return yaml.Marshal(files)
}
