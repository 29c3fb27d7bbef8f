package config

import (
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/recera/pivot/pkg/chart"
	"github.com/recera/pivot/pkg/domain"
	"github.com/recera/pivot/pkg/interaction"
	"github.com/recera/pivot/pkg/query"
)

// FileName is the config file looked up in the working directory
const FileName = "pivot.yaml"

// Config represents the pivot.yaml configuration
type Config struct {
	// SQLite database file the views query
	Database string `yaml:"database" koanf:"database"`
	Table    string `yaml:"table" koanf:"table"`

	// IANA timezone time splits bucket in
	Timezone string `yaml:"timezone" koanf:"timezone"`

	// Hover snapping distance in cells, zero for the chart default
	Tolerance float64 `yaml:"tolerance" koanf:"tolerance"`
	// Narrowest bar segment in cells before the body scrolls
	MinSegment float64 `yaml:"min_segment" koanf:"min_segment"`

	// Re-run the views whenever the database file changes
	Watch bool `yaml:"watch" koanf:"watch"`

	// Query results kept in memory, zero disables the cache
	CacheEntries int `yaml:"cache_entries" koanf:"cache_entries"`

	// Live server
	LiveAddr    string `yaml:"live_addr" koanf:"live_addr"`
	LiveVerbose bool   `yaml:"live_verbose" koanf:"live_verbose"`
	// Browser origins allowed to call the API and open live sessions
	AllowedOrigins []string `yaml:"allowed_origins,omitempty" koanf:"allowed_origins"`

	Views []ViewConfig `yaml:"views" koanf:"views"`
}

// ViewConfig is one chart the explorer can switch to
type ViewConfig struct {
	Name string `yaml:"name" koanf:"name"`
	Kind string `yaml:"kind" koanf:"kind"`
	// Splits are nested in order; heatmaps take rows then columns
	Splits []SplitConfig `yaml:"splits,omitempty" koanf:"splits"`
	// Measures such as "count" or "added=sum(added)"; the first is plotted
	Measures []string `yaml:"measures" koanf:"measures"`
}

// SplitConfig groups a view by one column
type SplitConfig struct {
	Dimension  string  `yaml:"dimension" koanf:"dimension"`
	Kind       string  `yaml:"kind,omitempty" koanf:"kind"`
	Grain      string  `yaml:"grain,omitempty" koanf:"grain"`
	BucketSize float64 `yaml:"bucket_size,omitempty" koanf:"bucket_size"`
	Limit      int     `yaml:"limit,omitempty" koanf:"limit"`
}

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (PIVOT_*). A missing file yields the
// defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Slices decode into the existing value element by element, so default
	// views are only filled in when the file names none
	cfg := DefaultConfig()
	cfg.Views = nil

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	// PIVOT_LIVE_ADDR -> live_addr
	if err := k.Load(env.Provider("PIVOT_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "PIVOT_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	if len(cfg.Views) == 0 {
		cfg.Views = DefaultViews()
	}

	return cfg, nil
}

// Save writes the configuration to the given YAML file path
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Validate checks that the configuration contains valid values
func (c *Config) Validate() error {
	if c.Database == "" {
		return fmt.Errorf("database is required")
	}
	if c.Table == "" {
		return fmt.Errorf("table is required")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Tolerance < 0 {
		return fmt.Errorf("tolerance must be non-negative")
	}
	if c.MinSegment < 0 {
		return fmt.Errorf("min_segment must be non-negative")
	}
	if c.CacheEntries < 0 {
		return fmt.Errorf("cache_entries must be non-negative")
	}
	if len(c.Views) == 0 {
		return fmt.Errorf("at least one view is required")
	}
	_, err := c.ChartViews()
	return err
}

// Location resolves the timezone
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// splitsFor is how many splits each kind draws
var splitsFor = map[chart.Kind]int{
	chart.KindBar:     1,
	chart.KindLine:    1,
	chart.KindTable:   1,
	chart.KindHeatmap: 2,
	chart.KindTotals:  0,
}

// ChartViews builds the views the front-ends switch between
func (c *Config) ChartViews() ([]chart.View, error) {
	loc, err := c.Location()
	if err != nil {
		return nil, err
	}
	views := make([]chart.View, 0, len(c.Views))
	for i, vc := range c.Views {
		v, err := c.chartView(vc, loc)
		if err != nil {
			name := vc.Name
			if name == "" {
				name = fmt.Sprintf("#%d", i+1)
			}
			return nil, fmt.Errorf("view %s: %w", name, err)
		}
		views = append(views, v)
	}
	return views, nil
}

func (c *Config) chartView(vc ViewConfig, loc *time.Location) (chart.View, error) {
	kind, err := chart.ParseKind(vc.Kind)
	if err != nil {
		return chart.View{}, err
	}
	if want := splitsFor[kind]; len(vc.Splits) != want {
		return chart.View{}, fmt.Errorf("a %s view takes %d splits, got %d", kind, want, len(vc.Splits))
	}

	q := query.Query{Table: c.Table, Location: loc}
	for _, sc := range vc.Splits {
		s, err := sc.split()
		if err != nil {
			return chart.View{}, err
		}
		q.Splits = append(q.Splits, s)
	}
	if kind == chart.KindLine && q.Splits[0].Kind != query.SplitTime {
		return chart.View{}, fmt.Errorf("a line view needs a time split")
	}

	opts := chart.Options{
		Kind:       kind,
		Tolerance:  c.Tolerance,
		MinSegment: c.MinSegment,
	}
	for _, ms := range vc.Measures {
		m, err := query.ParseMeasure(ms)
		if err != nil {
			return chart.View{}, err
		}
		q.Measures = append(q.Measures, m)
		opts.Measures = append(opts.Measures, m.Name)
	}
	if err := q.Validate(); err != nil {
		return chart.View{}, err
	}

	if len(q.Splits) > 0 {
		s := q.Splits[0]
		opts.Split = interaction.Split{Reference: s.Dimension, Location: loc}
		switch s.Kind {
		case query.SplitTime:
			opts.Split.Grain = s.Grain
			if opts.Split.Grain.IsZero() {
				opts.Split.Grain = domain.Grain{Unit: domain.Day, N: 1}
			}
		case query.SplitNumber:
			opts.Split.BucketSize = s.BucketSize
			if opts.Split.BucketSize == 0 {
				opts.Split.BucketSize = 1
			}
		}
	}
	if kind == chart.KindHeatmap {
		opts.Column = q.Splits[1].Dimension
	}

	name := vc.Name
	if name == "" {
		name = string(kind)
	}
	return chart.View{Name: name, Options: opts, Query: q}, nil
}

func (sc SplitConfig) split() (query.Split, error) {
	kind, err := query.ParseSplitKind(sc.Kind)
	if err != nil {
		return query.Split{}, err
	}
	s := query.Split{Dimension: sc.Dimension, Kind: kind, BucketSize: sc.BucketSize, Limit: sc.Limit}
	if sc.Grain != "" {
		if kind != query.SplitTime {
			return query.Split{}, fmt.Errorf("grain %s set on %s split %s", sc.Grain, kind, sc.Dimension)
		}
		if s.Grain, err = domain.ParseGrain(sc.Grain); err != nil {
			return query.Split{}, err
		}
	}
	if sc.BucketSize < 0 || sc.Limit < 0 {
		return query.Split{}, fmt.Errorf("split %s: bucket_size and limit must be non-negative", sc.Dimension)
	}
	return s, nil
}
