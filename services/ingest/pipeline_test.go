// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ingest

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/AleutianAI/SensorAgent/services/mdf"
	"github.com/AleutianAI/SensorAgent/services/timescale"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDecoder struct {
	m   *mdf.Measurement
	err error
}

func (d *fakeDecoder) Decode(_ context.Context, _ string) (*mdf.Measurement, error) {
	return d.m, d.err
}

type fakeInserter struct {
	inserted [][]timescale.Row
	failOn   string
}

func (f *fakeInserter) InsertRows(_ context.Context, rows []timescale.Row) (int, error) {
	if f.failOn != "" && len(rows) > 0 && rows[0].Channel == f.failOn {
		return 0, errors.New("connection reset")
	}
	f.inserted = append(f.inserted, rows)
	return len(rows), nil
}

func testMeasurement() *mdf.Measurement {
	return &mdf.Measurement{
		FileName:  "test_run_city.mf4",
		StartTime: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		Channels: []mdf.Channel{
			{
				Name:       "vehicle_speed",
				Unit:       "km/h",
				Timestamps: []float64{0, 0.1, 0.2},
				Samples:    []any{40.0, 41.0, 42.0},
			},
			{
				Name:       "engine_rpm",
				Unit:       "rpm",
				Timestamps: []float64{0, 0.1},
				Samples:    []any{1500.0, 1520.0},
			},
			{Name: "empty_channel", Timestamps: []float64{}, Samples: []any{}},
		},
	}
}

func TestIngestFile(t *testing.T) {
	ins := &fakeInserter{}
	p := NewPipeline(&fakeDecoder{m: testMeasurement()}, ins)

	summary, err := p.IngestFile(context.Background(), "test_run_city.json")
	require.NoError(t, err)

	assert.Equal(t, "test_run_city.mf4", summary.File)
	assert.Equal(t, 2, summary.ChannelsIngested)
	assert.Equal(t, 5, summary.TotalRows)
	assert.Equal(t, []string{"vehicle_speed", "engine_rpm"}, summary.Channels)

	// Absolute timestamps are start time plus the sample offset.
	require.Len(t, ins.inserted, 2)
	first := ins.inserted[0][1]
	assert.Equal(t, time.Date(2026, 3, 1, 9, 0, 0, 100_000_000, time.UTC), first.Time)
	assert.Equal(t, "km/h", first.Unit)
}

func TestIngestFileChannelFailureIsIsolated(t *testing.T) {
	ins := &fakeInserter{failOn: "vehicle_speed"}
	p := NewPipeline(&fakeDecoder{m: testMeasurement()}, ins)

	summary, err := p.IngestFile(context.Background(), "run.json")
	require.NoError(t, err)

	assert.Equal(t, 2, summary.ChannelsIngested)
	assert.Equal(t, 2, summary.TotalRows)
	assert.Contains(t, summary.Channels[0], "vehicle_speed (error:")
	assert.Equal(t, "engine_rpm", summary.Channels[1])
}

func TestIngestFileDecodeErrorAborts(t *testing.T) {
	p := NewPipeline(&fakeDecoder{err: mdf.ErrFileMissing}, &fakeInserter{})
	_, err := p.IngestFile(context.Background(), "missing.json")
	assert.ErrorIs(t, err, mdf.ErrFileMissing)
}

func TestSampleValue(t *testing.T) {
	v := sampleValue(3.5)
	require.NotNil(t, v)
	assert.Equal(t, 3.5, *v)

	v = sampleValue("42")
	require.NotNil(t, v)
	assert.Equal(t, 42.0, *v)

	assert.Nil(t, sampleValue("N"))
	assert.Nil(t, sampleValue(nil))
	assert.Nil(t, sampleValue(map[string]any{}))

	assert.Nil(t, sampleValue(math.NaN()))
	assert.Nil(t, sampleValue(math.Inf(1)))

	b := sampleValue(true)
	require.NotNil(t, b)
	assert.Equal(t, 1.0, *b)
}
