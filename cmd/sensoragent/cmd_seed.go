// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"time"

	"github.com/AleutianAI/SensorAgent/services/timescale"
	"github.com/spf13/cobra"
)

func newSeedCmd() *cobra.Command {
	var databaseURL string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed TimescaleDB with synthetic test runs",
		Long: "Generates three simulated drive runs (city, highway, track) with\n" +
			"nine correlated sensor channels each at 10 Hz and inserts them into\n" +
			"the measurements hypertable. Safe to re-run: existing rows for each\n" +
			"run are deleted first.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if databaseURL == "" {
				databaseURL = os.Getenv("TIMESCALEDB_URL")
			}
			return runSeed(cmd.Context(), databaseURL)
		},
	}

	cmd.Flags().StringVar(&databaseURL, "db-url", "", "TimescaleDB URL (defaults to TIMESCALEDB_URL)")
	return cmd
}

func runSeed(ctx context.Context, databaseURL string) error {
	store, err := timescale.NewStore(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}

	// Fixed seed keeps re-runs deterministic.
	rng := rand.New(rand.NewSource(42))

	for _, run := range seedRuns {
		n := int(float64(run.durationMin) * 60 / seedSampleInterval)
		channels := run.generate(rng, n)

		fmt.Printf("\n-> %s  (%d min, %d samples/channel)\n", run.fileName, run.durationMin, n)

		deleted, err := store.DeleteMeasurements(ctx, run.fileName)
		if err != nil {
			return err
		}
		if deleted > 0 {
			fmt.Printf("   refreshed: removed %d existing rows\n", deleted)
		}

		names := make([]string, 0, len(channels))
		for name := range channels {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			ch := channels[name]
			rows := make([]timescale.Row, 0, len(ch.values))
			for i, v := range ch.values {
				value := v
				rows = append(rows, timescale.Row{
					Time:     run.start.Add(time.Duration(float64(i) * seedSampleInterval * float64(time.Second))),
					FileName: run.fileName,
					Channel:  name,
					Value:    &value,
					Unit:     ch.unit,
				})
			}
			if _, err := store.InsertRows(ctx, rows); err != nil {
				return fmt.Errorf("seed %s/%s: %w", run.fileName, name, err)
			}
			fmt.Printf("   %-20s %8d rows  [%s]\n", name, len(rows), ch.unit)
		}
	}

	fmt.Println("\nDone.")
	return nil
}
