// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/AleutianAI/SensorAgent/services/timescale"
	"github.com/sashabaranov/go-openai/jsonschema"
)

// QueryRunner executes gated read-only SQL. Satisfied by *timescale.Store.
type QueryRunner interface {
	RunQuery(ctx context.Context, sql string) (*timescale.QueryResult, error)
}

// QueryTool runs read-only SQL against the measurements hypertable.
type QueryTool struct {
	store QueryRunner
}

var _ Tool = (*QueryTool)(nil)

// NewQueryTool wires the store's query gate into a tool.
func NewQueryTool(store QueryRunner) *QueryTool {
	return &QueryTool{store: store}
}

func (t *QueryTool) Name() string { return "query_sensor_data" }

func (t *QueryTool) Description() string {
	return "Execute a read-only SQL SELECT query against the sensor measurements database. " +
		"The measurements table has columns: time (TIMESTAMPTZ), file_name (TEXT), " +
		"channel (TEXT), value (DOUBLE PRECISION), unit (TEXT). " +
		"TimescaleDB time-series functions (time_bucket, first, last, etc.) are available. " +
		"Results are capped at 500 rows, use aggregation for large time ranges. " +
		"Example queries: " +
		"SELECT DISTINCT file_name FROM measurements; " +
		"SELECT DISTINCT channel, unit FROM measurements WHERE file_name = 'run1.mf4'; " +
		"SELECT time_bucket('1 second', time) AS bucket, AVG(value) FROM measurements " +
		"WHERE channel = 'vehicle_speed' GROUP BY bucket ORDER BY bucket. " +
		"Returns JSON with column names and result rows."
}

func (t *QueryTool) Parameters() jsonschema.Definition {
	return jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"sql": {
				Type:        jsonschema.String,
				Description: "A SELECT SQL query string.",
			},
		},
		Required: []string{"sql"},
	}
}

type queryArgs struct {
	SQL string `json:"sql"`
}

// Invoke runs the gated query. Rejected statements and database failures
// come back as JSON error strings for the model to correct itself.
func (t *QueryTool) Invoke(ctx context.Context, args json.RawMessage) (string, error) {
	var a queryArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return errorJSON(fmt.Errorf("invalid arguments: %w", err)), nil
	}

	result, err := t.store.RunQuery(ctx, a.SQL)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return errorJSON(err), nil
	}
	return marshalResult(result)
}
