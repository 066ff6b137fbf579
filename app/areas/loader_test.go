package areas

import (
	"os"
	"path/filepath"
	"testing"
)

func writeAreaFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write area file: %v", err)
	}
}

func TestLoadAll_MissingDirectory(t *testing.T) {
	loader := NewLoader(filepath.Join(t.TempDir(), "does-not-exist"))

	configs, err := loader.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll on a missing directory should not error, got: %v", err)
	}
	if len(configs) != 0 {
		t.Errorf("Expected 0 configs, got %d", len(configs))
	}
}

func TestLoadAll_AppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	writeAreaFile(t, dir, "wandsworth.yaml", `
area:
  name: "Wandsworth"
  identifier: "REGION^93977"
`)

	loader := NewLoader(dir)
	configs, err := loader.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if len(configs) != 1 {
		t.Fatalf("Expected 1 config, got %d", len(configs))
	}

	for _, cfg := range configs {
		if cfg.Area.Name != "Wandsworth" {
			t.Errorf("Expected area name 'Wandsworth', got '%s'", cfg.Area.Name)
		}
		if !cfg.IsEnabled() {
			t.Error("Area without an enabled key should default to enabled")
		}
		if cfg.Filters.MinBedrooms != 1 {
			t.Errorf("Expected default min bedrooms 1, got %d", cfg.Filters.MinBedrooms)
		}
		if cfg.Filters.MaxBedrooms != 10 {
			t.Errorf("Expected default max bedrooms 10, got %d", cfg.Filters.MaxBedrooms)
		}
		if cfg.Filters.MaxPrice != 10_000_000 {
			t.Errorf("Expected default max price 10000000, got %d", cfg.Filters.MaxPrice)
		}
		if len(cfg.Filters.PropertyTypes) != 3 {
			t.Errorf("Expected 3 default property types, got %v", cfg.Filters.PropertyTypes)
		}
	}
}

func TestLoadAll_ExplicitFilters(t *testing.T) {
	dir := t.TempDir()
	writeAreaFile(t, dir, "lewisham.yml", `
area:
  name: "Lewisham"
  identifier: "REGION^61413"
  enabled: false
filters:
  min_bedrooms: 3
  max_bedrooms: 4
  min_price: 900000
  max_price: 1100000
  property_types: ["terraced"]
  filter_freehold: true
`)

	loader := NewLoader(dir)
	configs, err := loader.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}

	for _, cfg := range configs {
		if cfg.IsEnabled() {
			t.Error("Expected area to be disabled")
		}
		if cfg.Filters.MinBedrooms != 3 || cfg.Filters.MaxBedrooms != 4 {
			t.Errorf("Bedroom range not preserved: %d-%d",
				cfg.Filters.MinBedrooms, cfg.Filters.MaxBedrooms)
		}
		if cfg.Filters.MinPrice != 900000 || cfg.Filters.MaxPrice != 1100000 {
			t.Errorf("Price range not preserved: %d-%d",
				cfg.Filters.MinPrice, cfg.Filters.MaxPrice)
		}
		if !cfg.Filters.FilterFreehold {
			t.Error("Expected filter_freehold to be set")
		}
	}
}

func TestLoadAll_InvalidConfig(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"missing name", "area:\n  identifier: \"REGION^1\"\n"},
		{"missing identifier", "area:\n  name: \"Somewhere\"\n"},
		{"inverted price range", `
area:
  name: "Somewhere"
  identifier: "REGION^1"
filters:
  min_price: 500000
  max_price: 400000
`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			writeAreaFile(t, dir, "bad.yaml", tc.content)

			loader := NewLoader(dir)
			if _, err := loader.LoadAll(); err == nil {
				t.Error("Expected validation error, got nil")
			}
		})
	}
}
