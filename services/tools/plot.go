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

	"github.com/AleutianAI/SensorAgent/services/plots"
	"github.com/sashabaranov/go-openai/jsonschema"
)

// noDataMessage is returned when a plot query matches nothing; the model
// relays it instead of rendering an empty chart.
const noDataMessage = "Query returned no data."

// ArtifactSaver persists a rendered figure. Satisfied by *plots.Store.
type ArtifactSaver interface {
	Save(ctx context.Context, figure []byte) (string, error)
}

type plotArgs struct {
	SQL    string `json:"sql"`
	Title  string `json:"title"`
	YLabel string `json:"y_label"`
}

func plotParameters(sqlDesc string) jsonschema.Definition {
	return jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"sql": {
				Type:        jsonschema.String,
				Description: sqlDesc,
			},
			"title": {
				Type:        jsonschema.String,
				Description: "Chart title shown above the plot.",
			},
			"y_label": {
				Type:        jsonschema.String,
				Description: "Label for the y-axis (include unit, e.g. \"Speed (km/h)\").",
			},
		},
		Required: []string{"sql", "title"},
	}
}

func decodePlotArgs(args json.RawMessage) (plotArgs, error) {
	var a plotArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return a, fmt.Errorf("invalid arguments: %w", err)
	}
	if a.YLabel == "" {
		a.YLabel = "value"
	}
	return a, nil
}

// saveFigure persists the figure and returns the sentinel-encoded artifact id.
func saveFigure(ctx context.Context, store ArtifactSaver, fig *plots.Figure) (string, error) {
	encoded, err := fig.Encode()
	if err != nil {
		return "", err
	}
	id, err := store.Save(ctx, encoded)
	if err != nil {
		return "", err
	}
	return plots.SentinelPrefix + id, nil
}

// =============================================================================
// plot_timeseries
// =============================================================================

// TimeseriesPlotTool renders a query result as a line chart artifact.
type TimeseriesPlotTool struct {
	store QueryRunner
	plots ArtifactSaver
}

var _ Tool = (*TimeseriesPlotTool)(nil)

// NewTimeseriesPlotTool wires the query gate and artifact store into a tool.
func NewTimeseriesPlotTool(store QueryRunner, artifacts ArtifactSaver) *TimeseriesPlotTool {
	return &TimeseriesPlotTool{store: store, plots: artifacts}
}

func (t *TimeseriesPlotTool) Name() string { return "plot_timeseries" }

func (t *TimeseriesPlotTool) Description() string {
	return "Execute a SQL query and render the result as a time-series line chart. " +
		"The query must return columns in one of these shapes: " +
		"(timestamp, value) for a single line, or (timestamp, value, series_name) " +
		"for one line per distinct series_name. The timestamp column must be first. " +
		"Use time_bucket() or similar to downsample large ranges before plotting. " +
		"The chart is shown to the user automatically."
}

func (t *TimeseriesPlotTool) Parameters() jsonschema.Definition {
	return plotParameters("SELECT query returning (time, value) or (time, value, series).")
}

// Invoke runs the query and saves a line chart. Multi-series results are
// grouped by the third column, matching the declared column shapes.
func (t *TimeseriesPlotTool) Invoke(ctx context.Context, args json.RawMessage) (string, error) {
	a, err := decodePlotArgs(args)
	if err != nil {
		return errorJSON(err), nil
	}

	result, err := t.store.RunQuery(ctx, a.SQL)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return errorJSON(err), nil
	}
	if len(result.Rows) == 0 {
		return noDataMessage, nil
	}
	if len(result.Columns) < 2 {
		return errorJSON(fmt.Errorf(
			"query must return (time, value) or (time, value, series) columns, got %d column(s)",
			len(result.Columns))), nil
	}

	var traces []plots.Trace
	if len(result.Columns) >= 3 {
		traces = seriesTraces(result.Rows)
	} else {
		x := make([]any, len(result.Rows))
		y := make([]any, len(result.Rows))
		for i, row := range result.Rows {
			x[i] = row[0]
			y[i] = row[1]
		}
		traces = []plots.Trace{plots.LineTrace("", x, y)}
	}

	out, err := saveFigure(ctx, t.plots, plots.NewFigure(a.Title, a.YLabel, traces))
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return errorJSON(err), nil
	}
	return out, nil
}

// seriesTraces groups (time, value, series) rows into one trace per series,
// preserving first-seen order.
func seriesTraces(rows [][]any) []plots.Trace {
	var order []string
	grouped := make(map[string]*plots.Trace)
	for _, row := range rows {
		if len(row) < 3 {
			continue
		}
		name := fmt.Sprint(row[2])
		tr, ok := grouped[name]
		if !ok {
			tr = &plots.Trace{Type: "scatter", Mode: "lines", Name: name, Line: &plots.Line{Width: 1.2}}
			grouped[name] = tr
			order = append(order, name)
		}
		tr.X = append(tr.X, row[0])
		tr.Y = append(tr.Y, row[1])
	}

	traces := make([]plots.Trace, 0, len(order))
	for _, name := range order {
		traces = append(traces, *grouped[name])
	}
	return traces
}

// =============================================================================
// plot_barchart
// =============================================================================

// BarchartPlotTool renders a query result as a bar chart artifact.
type BarchartPlotTool struct {
	store QueryRunner
	plots ArtifactSaver
}

var _ Tool = (*BarchartPlotTool)(nil)

// NewBarchartPlotTool wires the query gate and artifact store into a tool.
func NewBarchartPlotTool(store QueryRunner, artifacts ArtifactSaver) *BarchartPlotTool {
	return &BarchartPlotTool{store: store, plots: artifacts}
}

func (t *BarchartPlotTool) Name() string { return "plot_barchart" }

func (t *BarchartPlotTool) Description() string {
	return "Execute a SQL query and render the result as a bar chart. " +
		"The query must return exactly two columns: (label, value). " +
		"Useful for comparing aggregates across channels, runs, or time buckets. " +
		"The chart is shown to the user automatically."
}

func (t *BarchartPlotTool) Parameters() jsonschema.Definition {
	return plotParameters("SELECT query returning (label, value).")
}

// Invoke runs the query and saves a bar chart. NULL values plot as zero.
func (t *BarchartPlotTool) Invoke(ctx context.Context, args json.RawMessage) (string, error) {
	a, err := decodePlotArgs(args)
	if err != nil {
		return errorJSON(err), nil
	}

	result, err := t.store.RunQuery(ctx, a.SQL)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return errorJSON(err), nil
	}
	if len(result.Rows) == 0 {
		return noDataMessage, nil
	}
	if len(result.Columns) != 2 {
		return errorJSON(fmt.Errorf(
			"query must return exactly (label, value) columns, got %d column(s)",
			len(result.Columns))), nil
	}

	x := make([]any, len(result.Rows))
	y := make([]any, len(result.Rows))
	for i, row := range result.Rows {
		x[i] = fmt.Sprint(row[0])
		if len(row) > 1 && row[1] != nil {
			y[i] = row[1]
		} else {
			y[i] = 0.0
		}
	}

	fig := plots.NewFigure(a.Title, a.YLabel, []plots.Trace{plots.BarTrace(x, y)})
	out, err := saveFigure(ctx, t.plots, fig)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return errorJSON(err), nil
	}
	return out, nil
}
