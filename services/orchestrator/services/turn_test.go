// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package services

import (
	"context"
	"errors"
	"testing"

	"github.com/AleutianAI/SensorAgent/services/agent"
	"github.com/AleutianAI/SensorAgent/services/orchestrator/datatypes"
	"github.com/AleutianAI/SensorAgent/services/orchestrator/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedRuntime replays a fixed event sequence, or fails partway through.
type scriptedRuntime struct {
	events  []agent.Event
	failAt  int // emit this many events, then fail; -1 means never
	failErr error
	history []datatypes.Message
}

func (r *scriptedRuntime) Run(_ context.Context, history []datatypes.Message, emit agent.EmitFunc) error {
	r.history = history
	for i, ev := range r.events {
		if r.failAt >= 0 && i == r.failAt {
			return r.failErr
		}
		if err := emit(ev); err != nil {
			return err
		}
	}
	if r.failAt >= 0 && r.failAt >= len(r.events) {
		return r.failErr
	}
	return nil
}

// collectingSink records everything it receives.
type collectingSink struct {
	events []datatypes.StreamEvent
	done   bool
}

func (s *collectingSink) Event(ev datatypes.StreamEvent) error {
	s.events = append(s.events, ev)
	return nil
}

func (s *collectingSink) Done() error {
	s.done = true
	return nil
}

func token(text string) agent.Event {
	return agent.TokenEvent{Content: agent.Content{Text: text}}
}

func TestRunInterleavesEventsInArrivalOrder(t *testing.T) {
	rt := &scriptedRuntime{
		failAt: -1,
		events: []agent.Event{
			agent.ToolStartEvent{RunID: "A", Tool: "query_sensor_data", Input: `{"sql":"SELECT 1"}`},
			token("x"),
			agent.ToolEndEvent{RunID: "A", Output: `{"count": 1}`},
			token("y"),
		},
	}
	store := session.NewStore()
	sink := &collectingSink{}

	response, err := NewTurnProcessor(rt, store).Run(context.Background(), "s1", "how many rows?", sink)
	require.NoError(t, err)
	assert.Equal(t, "xy", response)

	require.Len(t, sink.events, 4)
	assert.Equal(t, datatypes.StreamEventToolStart, sink.events[0].Type)
	assert.Equal(t, datatypes.StreamEventToken, sink.events[1].Type)
	assert.Equal(t, "x", sink.events[1].Token)
	assert.Equal(t, datatypes.StreamEventToolEnd, sink.events[2].Type)
	assert.Equal(t, "y", sink.events[3].Token)
	assert.True(t, sink.done)

	// History carries the user message, then the joined assistant text.
	h := store.History("s1")
	require.Len(t, h, 2)
	assert.Equal(t, datatypes.RoleUser, h[0].Role)
	assert.Equal(t, "how many rows?", h[0].Content)
	assert.Equal(t, datatypes.RoleAssistant, h[1].Role)
	assert.Equal(t, "xy", h[1].Content)
}

func TestRunPassesHistorySnapshotIncludingUserMessage(t *testing.T) {
	rt := &scriptedRuntime{failAt: -1, events: []agent.Event{token("hi")}}
	store := session.NewStore()
	store.Append("s1", datatypes.Message{Role: datatypes.RoleUser, Content: "earlier"})
	store.Append("s1", datatypes.Message{Role: datatypes.RoleAssistant, Content: "reply"})

	_, err := NewTurnProcessor(rt, store).Run(context.Background(), "s1", "now", &collectingSink{})
	require.NoError(t, err)

	require.Len(t, rt.history, 3)
	assert.Equal(t, "now", rt.history[2].Content)
}

func TestRunPlotSentinelBecomesPlotlyEvent(t *testing.T) {
	rt := &scriptedRuntime{
		failAt: -1,
		events: []agent.Event{
			agent.ToolStartEvent{RunID: "B", Tool: "plot_timeseries", Input: `{"sql":"SELECT 1"}`},
			agent.ToolEndEvent{RunID: "B", Output: "PLOT:abc123"},
			token("Here is the chart."),
		},
	}
	sink := &collectingSink{}

	_, err := NewTurnProcessor(rt, session.NewStore()).Run(context.Background(), "s1", "plot it", sink)
	require.NoError(t, err)

	require.Len(t, sink.events, 4)
	assert.Equal(t, datatypes.StreamEventPlotly, sink.events[1].Type)
	assert.Equal(t, "B", sink.events[1].RunID)
	assert.Equal(t, "/plots/abc123.json", sink.events[1].Path)

	assert.Equal(t, datatypes.StreamEventToolEnd, sink.events[2].Type)
	assert.Equal(t, "Chart generated.", sink.events[2].Output)

	// The sentinel must never appear on the wire.
	for _, ev := range sink.events {
		assert.NotContains(t, ev.Output, "PLOT:")
		assert.NotContains(t, ev.Token, "PLOT:")
	}
}

func TestRunSegmentedContent(t *testing.T) {
	rt := &scriptedRuntime{
		failAt: -1,
		events: []agent.Event{
			agent.TokenEvent{Content: agent.Content{Segments: []agent.Segment{
				{Kind: "thinking", Text: "hmm"},
				{Kind: agent.SegmentText, Text: "a"},
				{Kind: agent.SegmentText, Text: "b"},
			}}},
		},
	}
	sink := &collectingSink{}

	response, err := NewTurnProcessor(rt, session.NewStore()).Run(context.Background(), "s1", "q", sink)
	require.NoError(t, err)
	assert.Equal(t, "ab", response)
	require.Len(t, sink.events, 2)
	assert.Equal(t, "a", sink.events[0].Token)
	assert.Equal(t, "b", sink.events[1].Token)
}

func TestRunSkipsEmptyTokens(t *testing.T) {
	rt := &scriptedRuntime{failAt: -1, events: []agent.Event{token(""), token("x")}}
	sink := &collectingSink{}

	_, err := NewTurnProcessor(rt, session.NewStore()).Run(context.Background(), "s1", "q", sink)
	require.NoError(t, err)
	require.Len(t, sink.events, 1)
	assert.Equal(t, "x", sink.events[0].Token)
}

func TestRunNonStringToolInputIsJSONEncoded(t *testing.T) {
	rt := &scriptedRuntime{
		failAt: -1,
		events: []agent.Event{
			agent.ToolStartEvent{RunID: "C", Tool: "t", Input: map[string]any{"sql": "SELECT 1"}},
			agent.ToolEndEvent{RunID: "C", Output: 42},
		},
	}
	sink := &collectingSink{}

	_, err := NewTurnProcessor(rt, session.NewStore()).Run(context.Background(), "s1", "q", sink)
	require.NoError(t, err)
	assert.JSONEq(t, `{"sql":"SELECT 1"}`, sink.events[0].Input)
	assert.Equal(t, "42", sink.events[1].Output)
}

// wrappedOutput mimics a runtime result type that carries its text behind an
// accessor instead of being a plain string.
type wrappedOutput struct {
	text string
}

func (w wrappedOutput) TextContent() string { return w.text }

func TestRunWrappedToolOutputUnwrapsText(t *testing.T) {
	rt := &scriptedRuntime{
		failAt: -1,
		events: []agent.Event{
			agent.ToolStartEvent{RunID: "D", Tool: "plot_timeseries", Input: `{"sql":"SELECT 1"}`},
			agent.ToolEndEvent{RunID: "D", Output: wrappedOutput{text: "PLOT:xyz789"}},
		},
	}
	sink := &collectingSink{}

	_, err := NewTurnProcessor(rt, session.NewStore()).Run(context.Background(), "s1", "plot it", sink)
	require.NoError(t, err)

	require.Len(t, sink.events, 3)
	assert.Equal(t, datatypes.StreamEventPlotly, sink.events[1].Type)
	assert.Equal(t, "/plots/xyz789.json", sink.events[1].Path)
	assert.Equal(t, "Chart generated.", sink.events[2].Output)
}

func TestRunFailureAppendsNoAssistantMessageAndNoDone(t *testing.T) {
	rt := &scriptedRuntime{
		events:  []agent.Event{token("partial")},
		failAt:  1,
		failErr: context.Canceled,
	}
	store := session.NewStore()
	sink := &collectingSink{}

	_, err := NewTurnProcessor(rt, store).Run(context.Background(), "s1", "q", sink)
	require.ErrorIs(t, err, context.Canceled)

	assert.False(t, sink.done)
	h := store.History("s1")
	require.Len(t, h, 1)
	assert.Equal(t, datatypes.RoleUser, h[0].Role)
}

func TestRunSinkErrorAbortsTurn(t *testing.T) {
	rt := &scriptedRuntime{failAt: -1, events: []agent.Event{token("x"), token("y")}}
	store := session.NewStore()
	sinkErr := errors.New("client went away")

	_, err := NewTurnProcessor(rt, store).Run(context.Background(), "s1", "q", &failingSink{err: sinkErr})
	require.ErrorIs(t, err, sinkErr)
	require.Len(t, store.History("s1"), 1)
}

type failingSink struct {
	err error
}

func (s *failingSink) Event(datatypes.StreamEvent) error { return s.err }
func (s *failingSink) Done() error                       { return s.err }
