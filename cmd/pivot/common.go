package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/recera/pivot/internal/cache"
	"github.com/recera/pivot/internal/config"
	"github.com/recera/pivot/pkg/interaction"
	"github.com/recera/pivot/pkg/query"
	"github.com/recera/pivot/pkg/reactive"
	"github.com/recera/pivot/pkg/scheduler"
)

// globals are the persistent flags every command shares
type globals struct {
	configPath string
	verbose    bool
	logFile    string
	// quiet drops logs unless a log file is set; the explorer owns the screen
	quiet bool
}

func (g *globals) setupLogging() {
	switch {
	case g.logFile != "":
		f, err := os.OpenFile(g.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			log.Printf("Failed to open log file %s: %v", g.logFile, err)
			break
		}
		log.SetOutput(f)
	case g.quiet:
		log.SetOutput(io.Discard)
	}

	if g.verbose {
		debug := func(args ...interface{}) { log.Println(args...) }
		scheduler.SetDebugLog(debug)
		reactive.SetDebugLog(debug)
		query.SetDebugLog(debug)
		interaction.SetDebugLog(debug)
	}
}

func (g *globals) path() string {
	if g.configPath != "" {
		return g.configPath
	}
	return config.FileName
}

// loadConfig loads and validates the config file
func (g *globals) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(g.path())
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", g.path(), err)
	}
	return cfg, nil
}

// openExecutor opens the configured database, which must already exist
func openExecutor(cfg *config.Config) (*query.SQLExecutor, error) {
	if _, err := os.Stat(cfg.Database); os.IsNotExist(err) {
		return nil, fmt.Errorf("database %s not found, run `pivot init` to create a sample one", cfg.Database)
	}
	return query.Open(cfg.Database)
}

// cached puts a result cache in front of exec unless the config disables it,
// in which case the returned cache is nil
func cached(cfg *config.Config, exec query.Executor) (query.Executor, *cache.Cache) {
	if cfg.CacheEntries == 0 {
		return exec, nil
	}
	results := cache.New(exec, cache.Config{
		MaxEntries: cfg.CacheEntries,
		MaxAge:     cache.DefaultConfig().MaxAge,
	})
	return results, results
}
