// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package services holds the orchestrator's turn processing core.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/AleutianAI/SensorAgent/services/agent"
	"github.com/AleutianAI/SensorAgent/services/orchestrator/datatypes"
	"github.com/AleutianAI/SensorAgent/services/plots"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var turnTracer = otel.Tracer("sensoragent.orchestrator.services")

// Sink receives the normalized event stream for one turn. Event is called
// for every wire event in order; Done is called exactly once, only when the
// turn completes successfully.
type Sink interface {
	Event(ev datatypes.StreamEvent) error
	Done() error
}

// HistoryStore is the session dependency of the turn processor. Satisfied
// by *session.Store.
type HistoryStore interface {
	Append(sessionID string, msg datatypes.Message)
	History(sessionID string) []datatypes.Message
}

// TurnProcessor multiplexes one agent turn into the normalized wire stream.
//
// # Description
//
// Run appends the user message to the session, drives the agent runtime over
// a snapshot of the history, and converts raw runtime events into wire
// events in arrival order. Tool results carrying the plot sentinel are split
// into a plotly event plus a placeholder tool_end, so the sentinel never
// reaches a client. On success the joined token text is appended to the
// session as the assistant message and the sink is closed with Done.
//
// # Limitations
//
// A failed or canceled turn leaves the user message in history but appends
// no assistant message and never calls Done.
type TurnProcessor struct {
	runtime  agent.Runtime
	sessions HistoryStore
}

// NewTurnProcessor wires a runtime to the session store.
func NewTurnProcessor(runtime agent.Runtime, sessions HistoryStore) *TurnProcessor {
	return &TurnProcessor{runtime: runtime, sessions: sessions}
}

// Run executes one turn for the session and returns the assistant's full
// response text.
func (p *TurnProcessor) Run(ctx context.Context, sessionID, message string, sink Sink) (string, error) {
	ctx, span := turnTracer.Start(ctx, "TurnProcessor.Run")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", sessionID))

	p.sessions.Append(sessionID, datatypes.Message{Role: datatypes.RoleUser, Content: message})
	history := p.sessions.History(sessionID)

	var assistantTokens strings.Builder

	emit := func(ev agent.Event) error {
		switch e := ev.(type) {
		case agent.TokenEvent:
			return p.emitTokens(e.Content, &assistantTokens, sink)
		case agent.ToolStartEvent:
			return sink.Event(datatypes.StreamEvent{
				Type:  datatypes.StreamEventToolStart,
				RunID: e.RunID,
				Name:  e.Tool,
				Input: toolInputString(e.Input),
			})
		case agent.ToolEndEvent:
			return p.emitToolEnd(e, sink)
		default:
			// Unrecognized runtime events are skipped, not fatal.
			slog.Warn("Skipping unknown agent event", "type", fmt.Sprintf("%T", ev))
			return nil
		}
	}

	if err := p.runtime.Run(ctx, history, emit); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	response := assistantTokens.String()
	p.sessions.Append(sessionID, datatypes.Message{Role: datatypes.RoleAssistant, Content: response})

	if err := sink.Done(); err != nil {
		span.RecordError(err)
		return response, err
	}
	return response, nil
}

// emitTokens unpacks string-or-segments content into token events, skipping
// empty fragments and non-text segments.
func (p *TurnProcessor) emitTokens(c agent.Content, acc *strings.Builder, sink Sink) error {
	if c.Segments != nil {
		for _, seg := range c.Segments {
			if seg.Kind != agent.SegmentText || seg.Text == "" {
				continue
			}
			acc.WriteString(seg.Text)
			if err := sink.Event(datatypes.StreamEvent{Type: datatypes.StreamEventToken, Token: seg.Text}); err != nil {
				return err
			}
		}
		return nil
	}
	if c.Text == "" {
		return nil
	}
	acc.WriteString(c.Text)
	return sink.Event(datatypes.StreamEvent{Type: datatypes.StreamEventToken, Token: c.Text})
}

// emitToolEnd converts a tool result to wire events. A sentinel-prefixed
// result becomes a plotly event referencing the artifact, and the tool_end
// output is replaced with a placeholder.
func (p *TurnProcessor) emitToolEnd(e agent.ToolEndEvent, sink Sink) error {
	output := toolOutputString(e.Output)

	if strings.HasPrefix(output, plots.SentinelPrefix) {
		id := output[len(plots.SentinelPrefix):]
		err := sink.Event(datatypes.StreamEvent{
			Type:  datatypes.StreamEventPlotly,
			RunID: e.RunID,
			Path:  plots.ArtifactPath(id),
		})
		if err != nil {
			return err
		}
		output = "Chart generated."
	}

	return sink.Event(datatypes.StreamEvent{
		Type:   datatypes.StreamEventToolEnd,
		RunID:  e.RunID,
		Output: output,
	})
}

// toolInputString renders a tool input for the wire: strings pass through,
// anything else is JSON-encoded with a plain-print fallback.
func toolInputString(input any) string {
	if s, ok := input.(string); ok {
		return s
	}
	data, err := json.Marshal(input)
	if err != nil {
		return fmt.Sprint(input)
	}
	return string(data)
}

// toolOutputString renders a tool output as text. Wrapper types that expose
// their textual content are unwrapped first, so sentinel detection still works
// when a runtime hands us a structured result.
func toolOutputString(output any) string {
	if s, ok := output.(string); ok {
		return s
	}
	if tc, ok := output.(interface{ TextContent() string }); ok {
		return tc.TextContent()
	}
	return fmt.Sprint(output)
}
