// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes provides the request, response, and wire types for the
// sensor agent orchestrator.
package datatypes

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// MaxMessageContentBytes is the maximum size of a single user message.
	// Prevents memory exhaustion from unbounded message input.
	MaxMessageContentBytes = 32 * 1024 // 32KB

	// DefaultSessionID is used when a client omits the session identifier.
	DefaultSessionID = "default"
)

// Message roles as stored in session history and sent to the agent runtime.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// =============================================================================
// Shared Validator Instance
// =============================================================================

var chatValidate *validator.Validate

func init() {
	chatValidate = validator.New()
	_ = chatValidate.RegisterValidation("maxbytes", validateMaxBytes)
}

// validateMaxBytes checks byte length (not rune count) so oversized payloads
// are rejected regardless of encoding.
func validateMaxBytes(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= MaxMessageContentBytes
}

// =============================================================================
// Chat Types
// =============================================================================

// Message is a single entry in a session's conversation history.
type Message struct {
	Role    string `json:"role" validate:"required,oneof=system user assistant tool"`
	Content string `json:"content"`
}

// ChatRequest is the request body shared by the streaming and non-streaming
// chat endpoints.
//
// # Fields
//
//   - Message: Required. The user's new input, capped at 32KB.
//   - SessionID: Optional. Conversation identifier; defaults to "default".
//     An unseen session id starts a fresh conversation on first use.
type ChatRequest struct {
	Message   string `json:"message" validate:"required,maxbytes"`
	SessionID string `json:"session_id"`
}

// Validate applies the session id default and checks the struct rules.
func (r *ChatRequest) Validate() error {
	if r.SessionID == "" {
		r.SessionID = DefaultSessionID
	}
	return chatValidate.Struct(r)
}

// ChatResponse is the non-streaming chat response body.
type ChatResponse struct {
	Response string `json:"response"`
}

// =============================================================================
// Stream Event Wire Types
// =============================================================================

// StreamEventType identifies a normalized event on the chat SSE stream.
type StreamEventType string

const (
	// StreamEventToken carries a fragment of assistant text.
	StreamEventToken StreamEventType = "token"

	// StreamEventToolStart announces a tool invocation with its input.
	StreamEventToolStart StreamEventType = "tool_start"

	// StreamEventToolEnd carries a tool's textual output.
	StreamEventToolEnd StreamEventType = "tool_end"

	// StreamEventPlotly references a rendered chart artifact by path.
	// The figure itself is fetched out-of-band from the plots endpoint.
	StreamEventPlotly StreamEventType = "plotly"
)

// StreamEvent is one normalized event on the chat SSE stream. Events are
// written as `data: <json>` lines; a successful stream ends with the bare
// sentinel line `data: [DONE]`, which is not a StreamEvent.
type StreamEvent struct {
	Type   StreamEventType `json:"type"`
	Token  string          `json:"token,omitempty"`
	RunID  string          `json:"run_id,omitempty"`
	Name   string          `json:"name,omitempty"`
	Input  string          `json:"input,omitempty"`
	Output string          `json:"output,omitempty"`
	Path   string          `json:"path,omitempty"`
}

// MarshalJSON emits the fixed key set for each event type. Keys that belong
// to a type (input, output) are always present, even when the value is empty,
// so clients can index them without existence checks.
func (e StreamEvent) MarshalJSON() ([]byte, error) {
	switch e.Type {
	case StreamEventToken:
		return json.Marshal(struct {
			Type  StreamEventType `json:"type"`
			Token string          `json:"token"`
		}{e.Type, e.Token})
	case StreamEventToolStart:
		return json.Marshal(struct {
			Type  StreamEventType `json:"type"`
			RunID string          `json:"run_id"`
			Name  string          `json:"name"`
			Input string          `json:"input"`
		}{e.Type, e.RunID, e.Name, e.Input})
	case StreamEventToolEnd:
		return json.Marshal(struct {
			Type   StreamEventType `json:"type"`
			RunID  string          `json:"run_id"`
			Output string          `json:"output"`
		}{e.Type, e.RunID, e.Output})
	case StreamEventPlotly:
		return json.Marshal(struct {
			Type  StreamEventType `json:"type"`
			RunID string          `json:"run_id"`
			Path  string          `json:"path"`
		}{e.Type, e.RunID, e.Path})
	}
	type plain StreamEvent
	return json.Marshal(plain(e))
}

// DoneSentinel is the terminal SSE data line that closes a successful turn.
const DoneSentinel = "[DONE]"
