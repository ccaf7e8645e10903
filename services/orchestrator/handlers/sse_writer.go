// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/AleutianAI/SensorAgent/services/orchestrator/datatypes"
	"github.com/gin-gonic/gin"
)

// SSEWriter serializes stream events onto an SSE connection.
//
// The wire format is bare data lines: every event is written as
// `data: <json>` followed by a blank line, keepalives are comment lines,
// and a successful stream ends with `data: [DONE]`.
//
// Thread Safety: all methods are safe for concurrent use; the turn
// processor and the keepalive goroutine share one writer.
type SSEWriter interface {
	// WriteEvent writes one event as a data line and flushes.
	WriteEvent(ev datatypes.StreamEvent) error

	// WriteDone writes the terminal [DONE] line and flushes.
	WriteDone() error

	// WriteKeepAlive writes an SSE comment to keep the connection open.
	WriteKeepAlive() error
}

type sseWriter struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
}

var _ SSEWriter = (*sseWriter)(nil)

// NewSSEWriter wraps a response writer for SSE output. Fails when the
// writer cannot flush, since buffered SSE defeats streaming.
func NewSSEWriter(w http.ResponseWriter) (SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("handlers: response writer does not support flushing")
	}
	return &sseWriter{w: w, flusher: flusher}, nil
}

// SetSSEHeaders applies the response headers required for event streaming.
func SetSSEHeaders(c *gin.Context) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
}

func (s *sseWriter) WriteEvent(ev datatypes.StreamEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("handlers: marshal event: %w", err)
	}
	return s.writeLine(fmt.Sprintf("data: %s\n\n", payload))
}

func (s *sseWriter) WriteDone() error {
	return s.writeLine(fmt.Sprintf("data: %s\n\n", datatypes.DoneSentinel))
}

func (s *sseWriter) WriteKeepAlive() error {
	return s.writeLine(": ping\n\n")
}

func (s *sseWriter) writeLine(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := fmt.Fprint(s.w, line); err != nil {
		return fmt.Errorf("handlers: write sse: %w", err)
	}
	s.flusher.Flush()
	return nil
}
