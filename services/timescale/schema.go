// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package timescale

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgconn"
)

// schemaStatements are executed in order at startup. Every statement is
// idempotent so EnsureSchema is safe to call on every boot.
//
// The unique index is what makes re-ingestion a no-op: the insert path uses
// ON CONFLICT DO NOTHING, which only skips rows when a conflict target
// exists.
var schemaStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS timescaledb CASCADE`,

	`CREATE TABLE IF NOT EXISTS measurements (
		time        TIMESTAMPTZ     NOT NULL,
		file_name   TEXT            NOT NULL,
		channel     TEXT            NOT NULL,
		value       DOUBLE PRECISION,
		unit        TEXT            NOT NULL DEFAULT ''
	)`,

	`SELECT create_hypertable('measurements', 'time', if_not_exists => TRUE)`,

	`CREATE UNIQUE INDEX IF NOT EXISTS idx_measurements_key
		ON measurements (time, file_name, channel)`,

	`CREATE INDEX IF NOT EXISTS idx_measurements_channel
		ON measurements (channel, time DESC)`,

	`CREATE INDEX IF NOT EXISTS idx_measurements_file
		ON measurements (file_name, time DESC)`,
}

// EnsureSchema creates the measurements hypertable and its indexes if they
// don't already exist. Safe to call from multiple processes at startup:
// duplicate-object errors from a concurrent creator are treated as
// "already exists", not as failures.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			if isDuplicateObject(err) {
				slog.Debug("Schema object already exists", "error", err)
				continue
			}
			return fmt.Errorf("timescale: ensure schema: %w", err)
		}
	}
	slog.Info("TimescaleDB schema verified")
	return nil
}

// isDuplicateObject reports whether err is Postgres telling us another
// connection created the object first. IF NOT EXISTS does not close this
// race: two concurrent CREATEs can still surface 42P07/42710, and the
// catalog insert underneath can surface a unique violation.
func isDuplicateObject(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "42P07", // duplicate_table
		"42710", // duplicate_object
		"42P06", // duplicate_schema
		"42723", // duplicate_function
		"23505": // unique_violation on the catalog row
		return true
	}
	return false
}
