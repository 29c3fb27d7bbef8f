package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/recera/pivot/internal/config"
	"github.com/recera/pivot/pkg/query"
)

func newInitCommand(g *globals) *cobra.Command {
	var days int
	var seed int64
	var force bool
	var noSample bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config and a sample database",
		Long: `Writes pivot.yaml with one view of every chart kind and fills the configured
database with a deterministic table of wiki edits to explore.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := g.path()
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists, use --force to overwrite", path)
			}

			cfg := config.DefaultConfig()
			if err := cfg.Save(path); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote %s\n", path)

			if noSample {
				return nil
			}
			if days <= 0 {
				return fmt.Errorf("days must be positive, got %d", days)
			}
			if err := createSample(cmd.Context(), cmd.ErrOrStderr(), cfg.Database, days, seed, force); err != nil {
				return err
			}
			info, err := os.Stat(cfg.Database)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Created %s (%s, %d days of edits)\n", cfg.Database, humanize.Bytes(uint64(info.Size())), days)
			fmt.Fprintln(out, "Run `pivot explore` to start")
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 14, "Days of sample edits")
	cmd.Flags().Int64Var(&seed, "seed", 1, "Seed for the sample data")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing config and database")
	cmd.Flags().BoolVar(&noSample, "no-sample", false, "Only write the config")

	return cmd
}

// createSample fills a fresh sample table ending at the start of today, one
// day per step of the progress bar
func createSample(ctx context.Context, w io.Writer, path string, days int, seed int64, force bool) error {
	if _, err := os.Stat(path); err == nil {
		if !force {
			return fmt.Errorf("%s already exists, use --force to overwrite", path)
		}
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("removing %s: %w", path, err)
		}
	}

	exec, err := query.Open(path)
	if err != nil {
		return err
	}
	defer exec.Close()

	bar := progressbar.NewOptions(days,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("Creating sample"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	start := time.Now().UTC().Truncate(24*time.Hour).AddDate(0, 0, -days)
	for i := 0; i < days; i++ {
		if err := exec.CreateSample(ctx, start.AddDate(0, 0, i), 1, seed+int64(i)); err != nil {
			return err
		}
		_ = bar.Add(1)
	}
	return bar.Finish()
}
