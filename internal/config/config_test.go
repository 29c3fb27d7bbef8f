package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/recera/pivot/pkg/chart"
	"github.com/recera/pivot/pkg/domain"
	"github.com/recera/pivot/pkg/query"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Expected the defaults to validate, got %v", err)
	}
	views, err := cfg.ChartViews()
	if err != nil {
		t.Fatal(err)
	}
	if len(views) != len(chart.Kinds) {
		t.Errorf("Expected a default view per kind, got %d", len(views))
	}
}

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), FileName))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Database != "pivot.db" || cfg.Table != query.SampleTable {
		t.Errorf("Expected default data source, got %s/%s", cfg.Database, cfg.Table)
	}
	if len(cfg.Views) != len(DefaultViews()) {
		t.Errorf("Expected the default views, got %d", len(cfg.Views))
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)

	original := DefaultConfig()
	original.Database = "wiki.db"
	original.Timezone = "America/New_York"
	original.Tolerance = 2.5
	original.Views = []ViewConfig{{
		Name:     "robots",
		Kind:     "bar",
		Splits:   []SplitConfig{{Dimension: "is_robot", Kind: "boolean"}},
		Measures: []string{"count"},
	}}

	if err := original.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.Database != "wiki.db" {
		t.Errorf("database: expected wiki.db, got %q", loaded.Database)
	}
	if loaded.Timezone != "America/New_York" {
		t.Errorf("timezone: expected America/New_York, got %q", loaded.Timezone)
	}
	if loaded.Tolerance != 2.5 {
		t.Errorf("tolerance: expected 2.5, got %v", loaded.Tolerance)
	}
	if len(loaded.Views) != 1 || loaded.Views[0].Splits[0].Kind != "boolean" {
		t.Errorf("views: expected the single robots view, got %+v", loaded.Views)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte("database: file.db\nlive_addr: :9000\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PIVOT_LIVE_ADDR", ":9999")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LiveAddr != ":9999" {
		t.Errorf("Expected the env to win, got %q", cfg.LiveAddr)
	}
	if cfg.Database != "file.db" {
		t.Errorf("Expected the file value, got %q", cfg.Database)
	}
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte("views: [unclosed\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Expected malformed YAML to fail")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{"no database", func(c *Config) { c.Database = "" }, "database"},
		{"bad timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }, "timezone"},
		{"negative tolerance", func(c *Config) { c.Tolerance = -1 }, "tolerance"},
		{"negative cache", func(c *Config) { c.CacheEntries = -1 }, "cache_entries"},
		{"no views", func(c *Config) { c.Views = nil }, "view"},
		{"unknown kind", func(c *Config) { c.Views[0].Kind = "pie" }, "pie"},
		{"heatmap with one split", func(c *Config) { c.Views[2].Splits = c.Views[2].Splits[:1] }, "2 splits"},
		{"line over strings", func(c *Config) { c.Views[1].Splits[0] = SplitConfig{Dimension: "channel"} }, "time split"},
		{"grain on a string split", func(c *Config) { c.Views[0].Splits[0].Grain = "P1D" }, "grain"},
		{"bad measure", func(c *Config) { c.Views[0].Measures = []string{"median(added)"} }, "measure"},
		{"bad table", func(c *Config) { c.Table = "edits; drop" }, "table"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Expected an error")
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("Expected error to mention %q, got %v", tt.errMsg, err)
			}
		})
	}
}

func TestChartViews(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timezone = "Europe/Paris"
	views, err := cfg.ChartViews()
	if err != nil {
		t.Fatal(err)
	}

	bar := views[0]
	if bar.Options.Kind != chart.KindBar || bar.Options.Split.Reference != "channel" {
		t.Errorf("Expected a bar over channel, got %+v", bar.Options)
	}
	if len(bar.Options.Measures) != 2 || bar.Options.Measures[1] != "added" {
		t.Errorf("Expected measures [count added], got %v", bar.Options.Measures)
	}

	line := views[1]
	if line.Options.Split.Grain != domain.MustParseGrain("PT6H") {
		t.Errorf("Expected a 6 hour grain, got %v", line.Options.Split.Grain)
	}
	if line.Query.Location.String() != "Europe/Paris" || line.Options.Split.Location.String() != "Europe/Paris" {
		t.Error("Expected the timezone on both the query and the split")
	}

	heat := views[2]
	if heat.Options.Column != "channel" || len(heat.Query.Splits) != 2 {
		t.Errorf("Expected heatmap columns by channel, got %+v", heat.Options)
	}

	totals := views[4]
	if len(totals.Query.Splits) != 0 || totals.Name != "totals" {
		t.Errorf("Expected an unsplit totals view, got %+v", totals)
	}
}
