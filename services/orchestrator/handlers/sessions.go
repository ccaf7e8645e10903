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
	"net/http"

	"github.com/AleutianAI/SensorAgent/services/orchestrator/session"
	"github.com/gin-gonic/gin"
)

// HandleListSessions implements GET /v1/sessions.
func HandleListSessions(store *session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		infos := store.Sessions()
		c.JSON(http.StatusOK, gin.H{"sessions": infos, "count": len(infos)})
	}
}

// HandleSessionHistory implements GET /v1/sessions/:sessionId/history.
// Unknown sessions return an empty history, mirroring how the chat
// endpoints treat unseen session ids.
func HandleSessionHistory(store *session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.Param("sessionId")
		history := store.History(sessionID)
		c.JSON(http.StatusOK, gin.H{
			"session_id": sessionID,
			"messages":   history,
			"count":      len(history),
		})
	}
}

// HandleDeleteSession implements DELETE /v1/sessions/:sessionId.
func HandleDeleteSession(store *session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.Param("sessionId")
		if !store.Delete(sessionID) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": sessionID})
	}
}
