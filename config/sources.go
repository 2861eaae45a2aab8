package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"car-deal-finder/models"
	"car-deal-finder/services"
	"car-deal-finder/utils"
)

//go:embed sources.schema.json
var sourcesSchemaJSON string

//go:embed sources.default.json
var defaultSourcesJSON []byte

// ErrInvalidManifest wraps every structural problem with a sources manifest.
var ErrInvalidManifest = errors.New("invalid sources manifest")

// SourceEntry is one source in the manifest file.
type SourceEntry struct {
	Name    string                       `json:"name"`
	Path    string                       `json:"path"`
	Columns map[string]string            `json:"columns,omitempty"`
	Values  map[string]map[string]string `json:"values,omitempty"`
}

// Manifest lists the scraped files the clean command reconciles.
type Manifest struct {
	Sources []SourceEntry `json:"sources"`
}

var (
	compileOnce       sync.Once
	compiledSchema    *jsonschema.Schema
	compiledSchemaErr error
)

// LoadSources reads and validates the manifest at path. An empty path
// selects the built-in manifest for the three known sources. Relative source
// paths in a manifest file resolve against the file's directory.
func LoadSources(path string) ([]services.SourceProfile, error) {
	if strings.TrimSpace(path) == "" {
		return ParseSources(defaultSourcesJSON, "")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources manifest %s: %w", path, err)
	}
	return ParseSources(raw, filepath.Dir(path))
}

// ParseSources validates a manifest document against the schema and turns
// it into reconciler profiles in document order.
func ParseSources(raw []byte, baseDir string) ([]services.SourceProfile, error) {
	value, err := decodeStrictJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrInvalidManifest, err)
	}

	schema, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}

	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("%w: unmarshal: %v", ErrInvalidManifest, err)
	}
	if err := validateSemantics(&m); err != nil {
		return nil, err
	}

	profiles := make([]services.SourceProfile, 0, len(m.Sources))
	for _, s := range m.Sources {
		path := s.Path
		if baseDir != "" && !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		profiles = append(profiles, services.SourceProfile{
			Source:  models.Source(s.Name),
			Path:    path,
			Columns: s.Columns,
			Values:  s.Values,
		})
	}
	return profiles, nil
}

// validateSemantics checks what the schema cannot express: every source and
// every file appears once.
func validateSemantics(m *Manifest) error {
	names := utils.NewKeySet()
	paths := utils.NewKeySet()
	for _, s := range m.Sources {
		if !models.Source(s.Name).Known() {
			return fmt.Errorf("%w: unknown source %q", ErrInvalidManifest, s.Name)
		}
		if !names.Add(s.Name) {
			return fmt.Errorf("%w: source %q listed twice", ErrInvalidManifest, s.Name)
		}
		if !paths.Add(filepath.Clean(s.Path)) {
			return fmt.Errorf("%w: path %q used by more than one source", ErrInvalidManifest, s.Path)
		}
	}
	return nil
}

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020

		if err := compiler.AddResource("sources.schema.json", strings.NewReader(sourcesSchemaJSON)); err != nil {
			compiledSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}

		schema, err := compiler.Compile("sources.schema.json")
		if err != nil {
			compiledSchemaErr = fmt.Errorf("compile schema: %w", err)
			return
		}

		compiledSchema = schema
	})

	if compiledSchemaErr != nil {
		return nil, compiledSchemaErr
	}
	if compiledSchema == nil {
		return nil, fmt.Errorf("schema not initialized")
	}
	return compiledSchema, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("manifest is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("manifest contains trailing content")
	}
	return value, nil
}
