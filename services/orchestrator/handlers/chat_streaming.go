// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers contains the orchestrator's HTTP handlers.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/AleutianAI/SensorAgent/services/orchestrator/datatypes"
	"github.com/AleutianAI/SensorAgent/services/orchestrator/observability"
	"github.com/AleutianAI/SensorAgent/services/orchestrator/services"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var chatTracer = otel.Tracer("sensoragent.orchestrator.handlers")

// keepAliveInterval is how often an idle stream gets a comment ping.
const keepAliveInterval = 15 * time.Second

// TurnRunner drives one agent turn. Satisfied by *services.TurnProcessor.
type TurnRunner interface {
	Run(ctx context.Context, sessionID, message string, sink services.Sink) (string, error)
}

// ChatStreamHandler serves the SSE chat endpoint.
//
// # Description
//
// Streams one agent turn as `data: <json>` events (token, tool_start,
// tool_end, plotly) terminated by `data: [DONE]`. A keepalive comment is
// written every 15 seconds while the turn runs. If the client disconnects
// or the turn fails, the stream ends without the terminal sentinel and the
// session keeps only the user message.
type ChatStreamHandler struct {
	processor TurnRunner
	metrics   *observability.ChatMetrics
}

// NewChatStreamHandler wires the turn processor and metrics into a handler.
func NewChatStreamHandler(processor TurnRunner, metrics *observability.ChatMetrics) *ChatStreamHandler {
	return &ChatStreamHandler{processor: processor, metrics: metrics}
}

// HandleChatStream implements POST /v1/chat/stream.
func (h *ChatStreamHandler) HandleChatStream(c *gin.Context) {
	ctx, span := chatTracer.Start(c.Request.Context(), "HandleChatStream")
	defer span.End()

	// --- Step 1: Parse and validate the request ---
	var req datatypes.ChatRequest
	if err := c.BindJSON(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.metrics.RecordError(observability.EndpointChatStream, observability.ErrorCodeValidation)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := req.Validate(); err != nil {
		span.RecordError(err)
		h.metrics.RecordError(observability.EndpointChatStream, observability.ErrorCodeValidation)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	span.SetAttributes(attribute.String("session.id", req.SessionID))

	// --- Step 2: Switch the connection to SSE ---
	SetSSEHeaders(c)
	writer, err := NewSSEWriter(c.Writer)
	if err != nil {
		span.RecordError(err)
		h.metrics.RecordError(observability.EndpointChatStream, observability.ErrorCodeInternal)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming not supported"})
		return
	}
	c.Status(http.StatusOK)

	h.metrics.StreamStarted()
	defer h.metrics.StreamEnded()
	start := time.Now()

	// --- Step 3: Keepalive pings while the turn runs ---
	keepAliveCtx, stopKeepAlive := context.WithCancel(ctx)
	defer stopKeepAlive()
	go h.keepAlive(keepAliveCtx, writer)

	// --- Step 4: Run the turn through the SSE sink ---
	sink := &sseSink{
		writer:    writer,
		metrics:   h.metrics,
		openTools: make(map[string]string),
		onFirstToken: func() {
			h.metrics.RecordTimeToFirstToken(observability.EndpointChatStream, time.Since(start).Seconds())
		},
	}

	_, err = h.processor.Run(ctx, req.SessionID, req.Message, sink)
	stopKeepAlive()

	// --- Step 5: Account for the outcome ---
	success := err == nil
	h.metrics.RecordRequest(observability.EndpointChatStream, success)
	h.metrics.RecordTurnDuration(observability.EndpointChatStream, time.Since(start).Seconds(), success)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			h.metrics.RecordClientDisconnect()
			h.metrics.RecordError(observability.EndpointChatStream, observability.ErrorCodeClientDisconnect)
			slog.Info("Client disconnected during stream", "session_id", req.SessionID)
			return
		}
		h.metrics.RecordError(observability.EndpointChatStream, observability.ErrorCodeRuntime)
		slog.Error("Turn failed during stream", "session_id", req.SessionID, "error", err)
	}
}

// keepAlive pings the connection until the context is canceled or a write
// fails.
func (h *ChatStreamHandler) keepAlive(ctx context.Context, writer SSEWriter) {
	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := writer.WriteKeepAlive(); err != nil {
				return
			}
			h.metrics.RecordKeepAlive()
		}
	}
}

// sseSink adapts an SSEWriter to the turn processor's sink contract and
// feeds the stream metrics as events pass through.
type sseSink struct {
	writer       SSEWriter
	metrics      *observability.ChatMetrics
	onFirstToken func()

	// openTools maps run_id to tool name between tool_start and tool_end.
	openTools map[string]string
}

var _ services.Sink = (*sseSink)(nil)

func (s *sseSink) Event(ev datatypes.StreamEvent) error {
	switch ev.Type {
	case datatypes.StreamEventToken:
		if s.onFirstToken != nil {
			s.onFirstToken()
			s.onFirstToken = nil
		}
		s.metrics.RecordToken(observability.EndpointChatStream)
	case datatypes.StreamEventToolStart:
		s.openTools[ev.RunID] = ev.Name
	case datatypes.StreamEventToolEnd:
		if name, ok := s.openTools[ev.RunID]; ok {
			// Tool-level failures surface as JSON error payloads.
			failed := strings.HasPrefix(ev.Output, `{"error"`)
			s.metrics.RecordToolInvocation(name, !failed)
			delete(s.openTools, ev.RunID)
		}
	}
	return s.writer.WriteEvent(ev)
}

func (s *sseSink) Done() error {
	return s.writer.WriteDone()
}
