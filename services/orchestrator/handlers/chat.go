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
	"log/slog"
	"net/http"

	"github.com/AleutianAI/SensorAgent/services/orchestrator/datatypes"
	"github.com/AleutianAI/SensorAgent/services/orchestrator/observability"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/codes"
)

// HandleChat implements POST /v1/chat: the same turn pipeline as the
// streaming endpoint, but intermediate events are discarded and only the
// final response text is returned.
func HandleChat(processor TurnRunner, metrics *observability.ChatMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := chatTracer.Start(c.Request.Context(), "HandleChat")
		defer span.End()

		var req datatypes.ChatRequest
		if err := c.BindJSON(&req); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			metrics.RecordError(observability.EndpointChat, observability.ErrorCodeValidation)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			span.RecordError(err)
			metrics.RecordError(observability.EndpointChat, observability.ErrorCodeValidation)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		response, err := processor.Run(ctx, req.SessionID, req.Message, discardSink{})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			metrics.RecordRequest(observability.EndpointChat, false)
			metrics.RecordError(observability.EndpointChat, observability.ErrorCodeRuntime)
			slog.Error("Turn failed", "session_id", req.SessionID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		metrics.RecordRequest(observability.EndpointChat, true)
		c.JSON(http.StatusOK, datatypes.ChatResponse{Response: response})
	}
}

// discardSink swallows intermediate events for the non-streaming endpoint.
type discardSink struct{}

func (discardSink) Event(datatypes.StreamEvent) error { return nil }
func (discardSink) Done() error                       { return nil }
