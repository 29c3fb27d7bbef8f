package config

import "github.com/recera/pivot/pkg/query"

// DefaultViews explore the sample table
func DefaultViews() []ViewConfig {
	return []ViewConfig{
		{
			Name:     "edits by channel",
			Kind:     "bar",
			Splits:   []SplitConfig{{Dimension: "channel"}},
			Measures: []string{"count", "added=sum(added)"},
		},
		{
			Name:     "edits over time",
			Kind:     "line",
			Splits:   []SplitConfig{{Dimension: "time", Kind: "time", Grain: "PT6H"}},
			Measures: []string{"count"},
		},
		{
			Name: "country by channel",
			Kind: "heatmap",
			Splits: []SplitConfig{
				{Dimension: "country"},
				{Dimension: "channel"},
			},
			Measures: []string{"count"},
		},
		{
			Name:     "countries",
			Kind:     "table",
			Splits:   []SplitConfig{{Dimension: "country"}},
			Measures: []string{"count", "added=sum(added)", "deleted=sum(deleted)"},
		},
		{
			Name:     "totals",
			Kind:     "totals",
			Measures: []string{"count", "added=sum(added)", "deleted=sum(deleted)"},
		},
	}
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Database:     "pivot.db",
		Table:        query.SampleTable,
		Timezone:     "UTC",
		Watch:        true,
		CacheEntries: 64,
		LiveAddr:     "localhost:8080",
		Views:        DefaultViews(),
	}
}
