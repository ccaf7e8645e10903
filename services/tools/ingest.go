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

	"github.com/AleutianAI/SensorAgent/services/ingest"
	"github.com/sashabaranov/go-openai/jsonschema"
)

// Ingester runs the measurement ingestion pipeline. Satisfied by
// *ingest.Pipeline.
type Ingester interface {
	IngestFile(ctx context.Context, path string) (*ingest.Summary, error)
}

// IngestTool loads a measurement file's channels into the hypertable.
type IngestTool struct {
	pipeline Ingester
}

var _ Tool = (*IngestTool)(nil)

// NewIngestTool wires the ingestion pipeline into a tool.
func NewIngestTool(pipeline Ingester) *IngestTool {
	return &IngestTool{pipeline: pipeline}
}

func (t *IngestTool) Name() string { return "ingest_measurement_file" }

func (t *IngestTool) Description() string {
	return "Ingest all channels from a measurement file into the sensor database. " +
		"Each channel becomes a time-series of rows (time, file_name, channel, value, unit). " +
		"The file name is used as the measurement identifier for later SQL queries. " +
		"Re-ingesting the same file is safe, duplicate rows are skipped. " +
		"Returns a JSON summary of channels ingested and total rows inserted."
}

func (t *IngestTool) Parameters() jsonschema.Definition {
	return jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"file_path": {
				Type:        jsonschema.String,
				Description: "Absolute or relative path to the measurement file.",
			},
		},
		Required: []string{"file_path"},
	}
}

type ingestArgs struct {
	FilePath string `json:"file_path"`
}

// Invoke ingests the file and returns the run summary as JSON. Decode and
// database failures come back as JSON error strings for the model to read.
func (t *IngestTool) Invoke(ctx context.Context, args json.RawMessage) (string, error) {
	var a ingestArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return errorJSON(fmt.Errorf("invalid arguments: %w", err)), nil
	}
	if a.FilePath == "" {
		return errorJSON(fmt.Errorf("file_path is required")), nil
	}

	summary, err := t.pipeline.IngestFile(ctx, a.FilePath)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return errorJSON(err), nil
	}
	return marshalResult(summary)
}
