// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package plots

import "encoding/json"

// SentinelPrefix marks a tool result that carries an artifact id instead of
// text. The stream multiplexer converts such results into plotly events, so
// the sentinel never reaches a client.
const SentinelPrefix = "PLOT:"

// ArtifactPath is the public fetch path for a saved artifact id.
func ArtifactPath(id string) string {
	return "/plots/" + id + ".json"
}

// Chart colors shared by all generated figures.
const (
	chartBackground = "#1a1a1a"
	chartAccent     = "#2596be"
	chartFontColor  = "#e0e0e0"
)

// Figure is a Plotly figure document. Clients hand it to Plotly unchanged.
type Figure struct {
	Data   []Trace `json:"data"`
	Layout Layout  `json:"layout"`
}

// Trace is one data series within a figure.
type Trace struct {
	Type   string  `json:"type"`
	X      []any   `json:"x"`
	Y      []any   `json:"y"`
	Mode   string  `json:"mode,omitempty"`
	Name   string  `json:"name,omitempty"`
	Line   *Line   `json:"line,omitempty"`
	Marker *Marker `json:"marker,omitempty"`
}

// Line styles a scatter trace.
type Line struct {
	Color string  `json:"color,omitempty"`
	Width float64 `json:"width,omitempty"`
}

// Marker styles a bar trace.
type Marker struct {
	Color string `json:"color,omitempty"`
}

// Layout holds figure-level presentation.
type Layout struct {
	Title        Title  `json:"title"`
	YAxis        *Axis  `json:"yaxis,omitempty"`
	PaperBGColor string `json:"paper_bgcolor,omitempty"`
	PlotBGColor  string `json:"plot_bgcolor,omitempty"`
	Font         *Font  `json:"font,omitempty"`
}

// Title is a figure or axis title.
type Title struct {
	Text string `json:"text"`
}

// Axis configures one figure axis.
type Axis struct {
	Title Title `json:"title"`
}

// Font sets figure-wide font properties.
type Font struct {
	Color string `json:"color,omitempty"`
}

// NewFigure returns a dark-themed figure with the given traces.
func NewFigure(title, yLabel string, traces []Trace) *Figure {
	return &Figure{
		Data: traces,
		Layout: Layout{
			Title:        Title{Text: title},
			YAxis:        &Axis{Title: Title{Text: yLabel}},
			PaperBGColor: chartBackground,
			PlotBGColor:  chartBackground,
			Font:         &Font{Color: chartFontColor},
		},
	}
}

// LineTrace builds a scatter trace in the standard accent style.
func LineTrace(name string, x, y []any) Trace {
	return Trace{
		Type: "scatter",
		Mode: "lines",
		Name: name,
		X:    x,
		Y:    y,
		Line: &Line{Color: chartAccent, Width: 1.2},
	}
}

// BarTrace builds a bar trace in the standard accent style.
func BarTrace(x, y []any) Trace {
	return Trace{
		Type:   "bar",
		X:      x,
		Y:      y,
		Marker: &Marker{Color: chartAccent},
	}
}

// Encode serializes the figure for storage.
func (f *Figure) Encode() ([]byte, error) {
	return json.Marshal(f)
}
