// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package mdf defines the measurement-file decoding boundary.
//
// The ingestion pipeline is format-agnostic: anything that can produce a
// Measurement can be ingested. The shipped decoder reads a JSON channel
// container produced by an upstream MDF export step; native MDF parsing
// happens outside this service.
package mdf

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrFileMissing indicates the measurement file does not exist.
var ErrFileMissing = errors.New("measurement file not found")

// Channel is one named signal with sample timestamps relative to the
// measurement's start time, in seconds.
type Channel struct {
	Name       string    `json:"name"`
	Unit       string    `json:"unit"`
	Timestamps []float64 `json:"timestamps"`

	// Samples are raw readings. Numeric samples ingest as values; anything
	// that is not a finite number ingests as NULL.
	Samples []any `json:"samples"`
}

// Measurement is a decoded measurement file.
type Measurement struct {
	FileName  string
	StartTime time.Time
	Channels  []Channel
}

// Decoder turns a file on disk into a Measurement.
type Decoder interface {
	Decode(ctx context.Context, path string) (*Measurement, error)
}

// =============================================================================
// JSON container decoder
// =============================================================================

// jsonContainer is the on-disk shape of an exported measurement.
type jsonContainer struct {
	File      string    `json:"file"`
	StartTime string    `json:"start_time"`
	Channels  []Channel `json:"channels"`
}

// JSONDecoder decodes the JSON channel container format.
type JSONDecoder struct{}

var _ Decoder = (*JSONDecoder)(nil)

// NewJSONDecoder returns a decoder for JSON channel containers.
func NewJSONDecoder() *JSONDecoder {
	return &JSONDecoder{}
}

// Decode reads and parses the container at path. The measurement identifier
// is the container's declared file name, falling back to the base name of
// path itself.
func (d *JSONDecoder) Decode(_ context.Context, path string) (*Measurement, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileMissing, path)
		}
		return nil, fmt.Errorf("mdf: read %s: %w", path, err)
	}

	var container jsonContainer
	if err := json.Unmarshal(data, &container); err != nil {
		return nil, fmt.Errorf("mdf: parse %s: %w", path, err)
	}

	start, err := parseStartTime(container.StartTime)
	if err != nil {
		return nil, fmt.Errorf("mdf: parse %s: %w", path, err)
	}

	fileName := container.File
	if fileName == "" {
		fileName = filepath.Base(path)
	}

	return &Measurement{
		FileName:  fileName,
		StartTime: start,
		Channels:  container.Channels,
	}, nil
}

// parseStartTime accepts RFC3339 or a bare "2006-01-02 15:04:05" timestamp,
// which is treated as UTC.
func parseStartTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("missing start_time")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02 15:04:05", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid start_time %q", s)
	}
	return t.UTC(), nil
}
