package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/recera/pivot/pkg/chart"
	"github.com/recera/pivot/pkg/domain"
	"github.com/recera/pivot/pkg/format"
)

func newQueryCommand(g *globals) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "query [view]",
		Short: "Run a view's query and print the result",
		Long: `Runs the query behind a view, the first one unless named, and prints the
resulting segments and measures as a table. Nested splits are flattened.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			views, err := cfg.ChartViews()
			if err != nil {
				return err
			}
			v := views[0]
			if len(args) == 1 {
				if v, err = findView(views, args[0]); err != nil {
					return err
				}
			}

			exec, err := openExecutor(cfg)
			if err != nil {
				return err
			}
			defer exec.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			ds, err := exec.Execute(ctx, v.Query)
			if err != nil {
				return err
			}
			return printDataset(cmd.OutOrStdout(), v, ds)
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Give up on the query after this long")

	return cmd
}

func findView(views []chart.View, name string) (chart.View, error) {
	var names []string
	for _, v := range views {
		if strings.EqualFold(v.Name, name) {
			return v, nil
		}
		names = append(names, v.Name)
	}
	return chart.View{}, fmt.Errorf("no view named %q (have: %s)", name, strings.Join(names, ", "))
}

var headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#3b82f6")).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

// printDataset writes one table row per leaf segment. Measures of every
// level are shown; a parent's measures repeat on each of its children.
func printDataset(w io.Writer, v chart.View, ds *domain.Dataset) error {
	dims := make([]string, len(v.Query.Splits))
	for i, s := range v.Query.Splits {
		dims[i] = s.Dimension
	}
	measures := v.Options.Measures
	loc := v.Query.Location

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#64748b"))).
		Headers(append(append([]string{}, dims...), measures...)...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col >= len(dims) {
				return cellStyle.Align(lipgloss.Right)
			}
			return cellStyle
		})

	rows := 0
	var walk func(ds *domain.Dataset, prefix []string)
	walk = func(ds *domain.Dataset, prefix []string) {
		if ds == nil {
			return
		}
		for _, d := range ds.Data {
			row := append([]string{}, prefix...)
			if len(row) < len(dims) {
				val, _ := d.Value(dims[len(row)])
				row = append(row, format.Value(val, loc))
			}
			if sub, ok := d.Split(); ok && len(row) < len(dims) {
				walk(sub, row)
				continue
			}
			for len(row) < len(dims) {
				row = append(row, "")
			}
			for _, m := range measures {
				row = append(row, format.Number(d.Number(m)))
			}
			t.Row(row...)
			rows++
		}
	}
	walk(ds, nil)

	if _, err := fmt.Fprintln(w, t.Render()); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d rows\n", rows)
	return err
}
