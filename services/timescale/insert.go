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
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// InsertBatchSize is the number of rows queued per pipelined batch.
const InsertBatchSize = 10_000

const insertSQL = `INSERT INTO measurements (time, file_name, channel, value, unit)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT DO NOTHING`

// Row is one measurement sample. A nil Value records a sample whose raw
// reading could not be represented as a finite float.
type Row struct {
	Time     time.Time
	FileName string
	Channel  string
	Value    *float64
	Unit     string
}

// InsertRows writes rows in batches of InsertBatchSize using ON CONFLICT
// DO NOTHING, so re-ingesting the same file is a no-op. Returns the number
// of rows submitted (duplicates are silently skipped by the database).
func (s *Store) InsertRows(ctx context.Context, rows []Row) (int, error) {
	for start := 0; start < len(rows); start += InsertBatchSize {
		end := min(start+InsertBatchSize, len(rows))

		batch := &pgx.Batch{}
		for _, r := range rows[start:end] {
			batch.Queue(insertSQL, r.Time, r.FileName, r.Channel, r.Value, r.Unit)
		}

		br := s.pool.SendBatch(ctx, batch)
		if err := br.Close(); err != nil {
			return start, fmt.Errorf("timescale: insert batch at row %d: %w", start, err)
		}
	}
	return len(rows), nil
}

// DeleteMeasurements removes all rows for one measurement file. Used by the
// seeder to refresh a run before re-inserting it.
func (s *Store) DeleteMeasurements(ctx context.Context, fileName string) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM measurements WHERE file_name = $1`, fileName)
	if err != nil {
		return 0, fmt.Errorf("timescale: delete %s: %w", fileName, err)
	}
	return tag.RowsAffected(), nil
}
