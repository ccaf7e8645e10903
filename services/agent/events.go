// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package agent runs an LLM tool loop and reports its raw progress as a
// stream of events. The events deliberately preserve provider quirks
// (content blocks, non-string tool inputs); normalization for the wire
// happens downstream in the turn processor.
package agent

import (
	"context"

	"github.com/AleutianAI/SensorAgent/services/orchestrator/datatypes"
)

// Event is one raw occurrence during a model run. The concrete types are
// TokenEvent, ToolStartEvent, and ToolEndEvent.
type Event interface {
	isEvent()
}

// Segment is one block of structured model output.
type Segment struct {
	Kind string
	Text string
}

// Text segments carry assistant prose; other kinds (thinking, citations)
// exist on some providers and are dropped by the multiplexer.
const SegmentText = "text"

// Content is model output that arrives either as a plain string or as a
// list of typed segments. When Segments is non-nil it takes precedence.
type Content struct {
	Text     string
	Segments []Segment
}

// TokenEvent carries a fragment of assistant output.
type TokenEvent struct {
	Content Content
}

// ToolStartEvent marks the beginning of a tool invocation. Input is the raw
// argument payload, usually a JSON string but not guaranteed to be one.
type ToolStartEvent struct {
	RunID string
	Tool  string
	Input any
}

// ToolEndEvent carries a finished tool invocation's output.
type ToolEndEvent struct {
	RunID  string
	Output any
}

func (TokenEvent) isEvent()     {}
func (ToolStartEvent) isEvent() {}
func (ToolEndEvent) isEvent()   {}

// EmitFunc receives events in arrival order. Returning an error aborts the
// run; the runtime propagates it unchanged.
type EmitFunc func(Event) error

// Runtime drives one model turn over the given history, emitting events as
// they happen. Run returns after the final assistant round completes.
type Runtime interface {
	Run(ctx context.Context, history []datatypes.Message, emit EmitFunc) error
}
