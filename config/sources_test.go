package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"car-deal-finder/models"
	"car-deal-finder/services"
)

func TestLoadDefaultSources(t *testing.T) {
	profiles, err := LoadSources("")
	if err != nil {
		t.Fatalf("LoadSources: %v", err)
	}
	if len(profiles) != 3 {
		t.Fatalf("expected 3 profiles, got %d", len(profiles))
	}

	want := services.DefaultSourceProfiles()
	for i, p := range profiles {
		if p.Source != want[i].Source {
			t.Errorf("profile %d: source %q, want %q", i, p.Source, want[i].Source)
		}
		if p.Path == "" {
			t.Errorf("profile %d: empty path", i)
		}
		if len(p.Columns) != len(want[i].Columns) || (len(p.Columns) > 0 && !reflect.DeepEqual(p.Columns, want[i].Columns)) {
			t.Errorf("profile %d: columns %v, want %v", i, p.Columns, want[i].Columns)
		}
		if len(p.Values) != len(want[i].Values) || (len(p.Values) > 0 && !reflect.DeepEqual(p.Values, want[i].Values)) {
			t.Errorf("profile %d: values %v, want %v", i, p.Values, want[i].Values)
		}
	}
}

func TestLoadSourcesResolvesRelativePaths(t *testing.T) {
	dir := t.TempDir()
	manifest := filepath.Join(dir, "sources.json")
	doc := `{"sources": [
		{"name": "bilia", "path": "bilia.csv", "columns": {"version": "model_variant"}},
		{"name": "volvo_selekt", "path": "/abs/selekt.csv"}
	]}`
	if err := os.WriteFile(manifest, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	profiles, err := LoadSources(manifest)
	if err != nil {
		t.Fatalf("LoadSources: %v", err)
	}
	if profiles[0].Source != models.SourceBilia || profiles[0].Path != filepath.Join(dir, "bilia.csv") {
		t.Errorf("profile 0: %+v", profiles[0])
	}
	if profiles[1].Path != "/abs/selekt.csv" {
		t.Errorf("absolute path rewritten: %q", profiles[1].Path)
	}
}

func TestParseSourcesRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty", ``},
		{"trailing", `{"sources": [{"name": "bilia", "path": "a.csv"}]} {}`},
		{"no sources", `{"sources": []}`},
		{"unknown source", `{"sources": [{"name": "blocket", "path": "a.csv"}]}`},
		{"missing path", `{"sources": [{"name": "bilia"}]}`},
		{"unknown field target", `{"sources": [{"name": "bilia", "path": "a.csv", "columns": {"version": "trim"}}]}`},
		{"unknown value field", `{"sources": [{"name": "bilia", "path": "a.csv", "values": {"fuel": {"a": "b"}}}]}`},
		{"extra key", `{"sources": [{"name": "bilia", "path": "a.csv", "delimiter": ";"}]}`},
		{"duplicate name", `{"sources": [{"name": "bilia", "path": "a.csv"}, {"name": "bilia", "path": "b.csv"}]}`},
		{"duplicate path", `{"sources": [{"name": "bilia", "path": "a.csv"}, {"name": "rejmes", "path": "./a.csv"}]}`},
	}

	for _, tt := range tests {
		_, err := ParseSources([]byte(tt.doc), "")
		if !errors.Is(err, ErrInvalidManifest) {
			t.Errorf("%s: expected ErrInvalidManifest, got %v", tt.name, err)
		}
	}
}

func TestLoadSourcesMissingFile(t *testing.T) {
	_, err := LoadSources(filepath.Join(t.TempDir(), "nope.json"))
	if err == nil || errors.Is(err, ErrInvalidManifest) {
		t.Errorf("expected a read error, got %v", err)
	}
}
