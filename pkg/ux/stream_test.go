// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"bytes"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func processString(t *testing.T, stream string) *StreamResult {
	t.Helper()
	var out bytes.Buffer
	result, err := NewStreamProcessorWithWriter(&out, false).Process(strings.NewReader(stream))
	require.NoError(t, err)
	return result
}

func TestProcessFullTurn(t *testing.T) {
	stream := "data: {\"type\":\"tool_start\",\"run_id\":\"A\",\"name\":\"query_sensor_data\",\"input\":\"{\\\"sql\\\":\\\"SELECT 1\\\"}\"}\n\n" +
		"data: {\"type\":\"token\",\"token\":\"The \"}\n\n" +
		": ping\n\n" +
		"data: {\"type\":\"tool_end\",\"run_id\":\"A\",\"output\":\"{\\\"count\\\": 1}\"}\n\n" +
		"data: {\"type\":\"token\",\"token\":\"answer.\"}\n\n" +
		"data: [DONE]\n\n"

	result := processString(t, stream)

	assert.True(t, result.Done)
	assert.Equal(t, "The answer.", result.Answer)
	require.Len(t, result.Steps, 1)
	assert.Equal(t, "query_sensor_data", result.Steps[0].Name)
	assert.Equal(t, `{"count": 1}`, result.Steps[0].Output)
	assert.Empty(t, result.PlotPaths)
}

func TestProcessPlotlyEvents(t *testing.T) {
	stream := "data: {\"type\":\"plotly\",\"run_id\":\"B\",\"path\":\"/plots/abc.json\"}\n\n" +
		"data: {\"type\":\"tool_end\",\"run_id\":\"B\",\"output\":\"Chart generated.\"}\n\n" +
		"data: [DONE]\n\n"

	result := processString(t, stream)
	assert.True(t, result.Done)
	assert.Equal(t, []string{"/plots/abc.json"}, result.PlotPaths)
}

func TestProcessTruncatedStreamIsNotDone(t *testing.T) {
	stream := "data: {\"type\":\"token\",\"token\":\"partial\"}\n\n"

	result := processString(t, stream)
	assert.False(t, result.Done)
	assert.Equal(t, "partial", result.Answer)
}

func TestProcessTruncatesLongToolOutput(t *testing.T) {
	long := strings.Repeat("x", maxStepOutputLen+100)
	stream := "data: {\"type\":\"tool_start\",\"run_id\":\"C\",\"name\":\"t\",\"input\":\"\"}\n\n" +
		"data: {\"type\":\"tool_end\",\"run_id\":\"C\",\"output\":\"" + long + "\"}\n\n" +
		"data: [DONE]\n\n"

	result := processString(t, stream)
	require.Len(t, result.Steps, 1)
	assert.Len(t, result.Steps[0].Output, maxStepOutputLen)
}

func TestProcessTruncationKeepsRuneBoundary(t *testing.T) {
	// A two-byte rune straddles the truncation point: its first byte is at
	// maxStepOutputLen-1, so a naive byte slice would split it.
	long := strings.Repeat("x", maxStepOutputLen-1) + "é" + strings.Repeat("x", 50)
	stream := "data: {\"type\":\"tool_start\",\"run_id\":\"D\",\"name\":\"t\",\"input\":\"\"}\n\n" +
		"data: {\"type\":\"tool_end\",\"run_id\":\"D\",\"output\":\"" + long + "\"}\n\n" +
		"data: [DONE]\n\n"

	result := processString(t, stream)
	require.Len(t, result.Steps, 1)
	got := result.Steps[0].Output
	assert.True(t, utf8.ValidString(got))
	assert.Len(t, got, maxStepOutputLen-1)
	assert.Equal(t, strings.Repeat("x", maxStepOutputLen-1), got)
}

func TestProcessEchoesTokens(t *testing.T) {
	var out bytes.Buffer
	stream := "data: {\"type\":\"token\",\"token\":\"hello\"}\n\ndata: [DONE]\n\n"

	_, err := NewStreamProcessorWithWriter(&out, true).Process(strings.NewReader(stream))
	require.NoError(t, err)
	assert.Equal(t, "hello\n", out.String())
}

func TestProcessMalformedEvent(t *testing.T) {
	var out bytes.Buffer
	_, err := NewStreamProcessorWithWriter(&out, false).Process(strings.NewReader("data: {nope\n\n"))
	assert.Error(t, err)
}
