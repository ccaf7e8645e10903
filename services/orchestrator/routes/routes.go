// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package routes registers the orchestrator's HTTP routes.
package routes

import (
	"github.com/AleutianAI/SensorAgent/services/orchestrator/handlers"
	"github.com/AleutianAI/SensorAgent/services/orchestrator/middleware"
	"github.com/AleutianAI/SensorAgent/services/orchestrator/observability"
	"github.com/AleutianAI/SensorAgent/services/orchestrator/session"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies carries everything the route handlers need.
type Dependencies struct {
	Processor handlers.TurnRunner
	Sessions  *session.Store
	Artifacts handlers.ArtifactLoader
	Metrics   *observability.ChatMetrics

	// APIToken gates the /v1 group; empty disables authentication.
	APIToken string
}

// SetupRoutes wires all endpoints onto the engine. Health, metrics, and
// plot artifact fetches are unauthenticated; the chat and session admin
// surface sits behind the bearer gate.
func SetupRoutes(r *gin.Engine, deps Dependencies) {
	r.GET("/health", handlers.HandleHealthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/plots/:file", handlers.HandlePlotArtifact(deps.Artifacts))

	streamHandler := handlers.NewChatStreamHandler(deps.Processor, deps.Metrics)

	v1 := r.Group("/v1", middleware.BearerAuth(deps.APIToken))
	{
		v1.POST("/chat", handlers.HandleChat(deps.Processor, deps.Metrics))
		v1.POST("/chat/stream", streamHandler.HandleChatStream)

		sessions := v1.Group("/sessions")
		{
			sessions.GET("", handlers.HandleListSessions(deps.Sessions))
			sessions.GET("/:sessionId/history", handlers.HandleSessionHistory(deps.Sessions))
			sessions.DELETE("/:sessionId", handlers.HandleDeleteSession(deps.Sessions))
		}
	}
}
