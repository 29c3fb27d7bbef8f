package main

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/recera/pivot/internal/cache"
	"github.com/recera/pivot/internal/explorer"
	"github.com/recera/pivot/internal/watch"
)

func newExploreCommand(g *globals) *cobra.Command {
	var noWatch bool

	cmd := &cobra.Command{
		Use:   "explore",
		Short: "Explore the configured views in the terminal",
		Long: `Opens the terminal explorer. Use the mouse to hover, click and drag on
charts, enter to filter by the highlight and tab to switch views.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			views, err := cfg.ChartViews()
			if err != nil {
				return err
			}
			exec, err := openExecutor(cfg)
			if err != nil {
				return err
			}
			defer exec.Close()

			source, results := cached(cfg, exec)
			o := explorer.Options{Views: views, Executor: source, Verbose: g.verbose}
			if cfg.Watch && !noWatch {
				w, err := watch.New(cfg.Database, watch.DefaultDelay)
				if err != nil {
					log.Printf("[Explore] Not watching %s: %v", cfg.Database, err)
				} else {
					defer w.Close()
					o.Changes = invalidating(w.Changes(), results)
				}
			}
			return explorer.Run(o)
		},
	}

	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "Do not reload when the database changes")

	return cmd
}

// invalidating clears results before passing each change on
func invalidating(changes <-chan struct{}, results *cache.Cache) <-chan struct{} {
	if results == nil {
		return changes
	}
	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		for range changes {
			results.Clear()
			select {
			case out <- struct{}{}:
			default:
			}
		}
	}()
	return out
}
