package query

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// SampleTable is the table CreateSample fills
const SampleTable = "edits"

var (
	sampleChannels  = []string{"en", "fr", "de", "ja", "es", "ru"}
	sampleCountries = []string{"United States", "France", "Germany", "Japan", "Spain", "Russia", "Brazil"}
)

// CreateSample creates and fills a table of wiki edits spread hourly over
// days starting at start. The content is deterministic for a given seed.
func (e *SQLExecutor) CreateSample(ctx context.Context, start time.Time, days int, seed int64) error {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting sample transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS edits (
			time TEXT NOT NULL,
			channel TEXT NOT NULL,
			country TEXT NOT NULL,
			is_robot INTEGER NOT NULL,
			added INTEGER NOT NULL,
			deleted INTEGER NOT NULL
		)`); err != nil {
		return fmt.Errorf("creating sample table: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO edits (time, channel, country, is_robot, added, deleted) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing sample insert: %w", err)
	}
	defer stmt.Close()

	r := rand.New(rand.NewSource(seed))
	for h := 0; h < days*24; h++ {
		ts := start.Add(time.Duration(h) * time.Hour)
		for i := 0; i < 1+r.Intn(4); i++ {
			ts := ts.Add(time.Duration(r.Intn(3600)) * time.Second)
			robot := 0
			if r.Intn(5) == 0 {
				robot = 1
			}
			_, err := stmt.ExecContext(ctx,
				ts.UTC().Format(time.RFC3339),
				sampleChannels[r.Intn(len(sampleChannels))],
				sampleCountries[r.Intn(len(sampleCountries))],
				robot,
				r.Intn(2000),
				r.Intn(300),
			)
			if err != nil {
				return fmt.Errorf("inserting sample row: %w", err)
			}
		}
	}
	return tx.Commit()
}
