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
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var queryTracer = otel.Tracer("sensoragent.timescale")

// MaxQueryRows caps rows returned per query to protect the model's context
// window. Aggregation is the intended path for large time ranges.
const MaxQueryRows = 500

// ErrRejectedQuery indicates the statement failed the read-only gate.
var ErrRejectedQuery = errors.New("only SELECT queries are allowed")

// QueryResult holds a gated query's output in the shape handed back to the
// agent as a tool result.
type QueryResult struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
	Count   int      `json:"count"`
}

// ValidateReadOnly enforces the query gate: the trimmed statement must start
// with SELECT or WITH (case-insensitive). Everything else is rejected before
// touching the database.
func ValidateReadOnly(sql string) error {
	upper := strings.ToUpper(strings.TrimSpace(sql))
	if strings.HasPrefix(upper, "SELECT") || strings.HasPrefix(upper, "WITH") {
		return nil
	}
	return ErrRejectedQuery
}

// RunQuery executes a read-only statement through the gate and the row cap.
// The caller's SQL runs as a subquery so the cap cannot be overridden by a
// trailing LIMIT.
func (s *Store) RunQuery(ctx context.Context, sql string) (*QueryResult, error) {
	return RunQuery(ctx, s.pool, sql)
}

// RunQuery is the Querier-based implementation backing Store.RunQuery.
func RunQuery(ctx context.Context, q Querier, sql string) (*QueryResult, error) {
	ctx, span := queryTracer.Start(ctx, "timescale.RunQuery")
	defer span.End()

	if err := ValidateReadOnly(sql); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	wrapped := fmt.Sprintf("SELECT * FROM (%s) _q LIMIT %d", sql, MaxQueryRows)
	rows, err := q.Query(ctx, wrapped)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("timescale: query: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, fd := range fields {
		columns[i] = fd.Name
	}

	result := &QueryResult{Columns: columns, Rows: [][]any{}}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("timescale: read row: %w", err)
		}
		row := make([]any, len(values))
		for i, cell := range values {
			row[i] = normalizeCell(cell)
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("timescale: query: %w", err)
	}

	result.Count = len(result.Rows)
	span.SetAttributes(attribute.Int("rows.count", result.Count))
	return result, nil
}

// normalizeCell converts driver values that have no JSON-native encoding
// (timestamps, numerics, byte arrays) to strings so tool results always
// serialize cleanly.
func normalizeCell(cell any) any {
	switch v := cell.(type) {
	case nil, bool, string,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return v
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano)
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}
