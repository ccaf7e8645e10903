// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ingest turns decoded measurement files into hypertable rows.
//
// Channels are ingested independently: a failure in one channel is recorded
// in the summary and the remaining channels still land. Re-running the
// pipeline on the same file is a no-op because the insert path skips
// duplicate rows.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/AleutianAI/SensorAgent/services/mdf"
	"github.com/AleutianAI/SensorAgent/services/timescale"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var ingestTracer = otel.Tracer("sensoragent.ingest")

// Inserter is the storage dependency of the pipeline. Satisfied by
// *timescale.Store.
type Inserter interface {
	InsertRows(ctx context.Context, rows []timescale.Row) (int, error)
}

// Summary reports what a single ingestion run did. Channels that failed are
// listed with their error appended, e.g. "engine_rpm (error: ...)".
type Summary struct {
	File             string   `json:"file"`
	ChannelsIngested int      `json:"channels_ingested"`
	TotalRows        int      `json:"total_rows"`
	Channels         []string `json:"channels"`
}

// Pipeline decodes a measurement file and bulk-inserts every channel.
type Pipeline struct {
	decoder mdf.Decoder
	store   Inserter
}

// NewPipeline wires a decoder to a row inserter.
func NewPipeline(decoder mdf.Decoder, store Inserter) *Pipeline {
	return &Pipeline{decoder: decoder, store: store}
}

// IngestFile decodes path and inserts all of its channels. Decode failures
// abort the run; per-channel insert failures are recorded in the summary and
// the run continues.
func (p *Pipeline) IngestFile(ctx context.Context, path string) (*Summary, error) {
	ctx, span := ingestTracer.Start(ctx, "ingest.IngestFile")
	defer span.End()
	span.SetAttributes(attribute.String("file.path", path))

	m, err := p.decoder.Decode(ctx, path)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	summary := &Summary{File: m.FileName, Channels: []string{}}
	for _, ch := range m.Channels {
		rows := channelRows(m, ch)
		if len(rows) == 0 {
			continue
		}

		if _, err := p.store.InsertRows(ctx, rows); err != nil {
			slog.Warn("Channel ingestion failed", "file", m.FileName, "channel", ch.Name, "error", err)
			summary.Channels = append(summary.Channels, fmt.Sprintf("%s (error: %v)", ch.Name, err))
			continue
		}

		summary.Channels = append(summary.Channels, ch.Name)
		summary.TotalRows += len(rows)
	}
	summary.ChannelsIngested = len(summary.Channels)

	slog.Info("Ingested measurement file",
		"file", m.FileName,
		"channels", summary.ChannelsIngested,
		"rows", summary.TotalRows)
	span.SetAttributes(attribute.Int("rows.total", summary.TotalRows))
	return summary, nil
}

// channelRows builds hypertable rows for one channel. Sample timestamps are
// offsets in seconds from the measurement start; extra timestamps or samples
// beyond the shorter slice are dropped.
func channelRows(m *mdf.Measurement, ch mdf.Channel) []timescale.Row {
	n := min(len(ch.Timestamps), len(ch.Samples))
	rows := make([]timescale.Row, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, timescale.Row{
			Time:     m.StartTime.Add(time.Duration(ch.Timestamps[i] * float64(time.Second))),
			FileName: m.FileName,
			Channel:  ch.Name,
			Value:    sampleValue(ch.Samples[i]),
			Unit:     ch.Unit,
		})
	}
	return rows
}

// sampleValue coerces a raw sample to a finite float. Non-numeric and
// non-finite samples become NULL rather than failing the channel.
func sampleValue(sample any) *float64 {
	var f float64
	switch v := sample.(type) {
	case float64:
		f = v
	case string:
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil
		}
		f = parsed
	case bool:
		if v {
			f = 1
		}
	case nil:
		return nil
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}
