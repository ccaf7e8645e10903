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
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/AleutianAI/SensorAgent/services/orchestrator/datatypes"
	"github.com/AleutianAI/SensorAgent/services/orchestrator/session"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sessionRouter(store *session.Store) *gin.Engine {
	r := gin.New()
	r.GET("/v1/sessions", HandleListSessions(store))
	r.GET("/v1/sessions/:sessionId/history", HandleSessionHistory(store))
	r.DELETE("/v1/sessions/:sessionId", HandleDeleteSession(store))
	return r
}

func TestListSessions(t *testing.T) {
	store := session.NewStore()
	store.Append("s1", datatypes.Message{Role: datatypes.RoleUser, Content: "hi"})
	store.Append("s2", datatypes.Message{Role: datatypes.RoleUser, Content: "yo"})

	w := httptest.NewRecorder()
	sessionRouter(store).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/sessions", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Sessions []session.Info `json:"sessions"`
		Count    int            `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
	assert.Equal(t, "s1", body.Sessions[0].SessionID)
}

func TestSessionHistory(t *testing.T) {
	store := session.NewStore()
	store.Append("s1", datatypes.Message{Role: datatypes.RoleUser, Content: "hi"})
	store.Append("s1", datatypes.Message{Role: datatypes.RoleAssistant, Content: "hello"})

	w := httptest.NewRecorder()
	sessionRouter(store).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/sessions/s1/history", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Messages []datatypes.Message `json:"messages"`
		Count    int                 `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
	assert.Equal(t, "hello", body.Messages[1].Content)
}

func TestSessionHistoryUnknownSessionIsEmpty(t *testing.T) {
	w := httptest.NewRecorder()
	sessionRouter(session.NewStore()).ServeHTTP(w,
		httptest.NewRequest(http.MethodGet, "/v1/sessions/nope/history", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":0`)
}

func TestDeleteSession(t *testing.T) {
	store := session.NewStore()
	store.Append("s1", datatypes.Message{Role: datatypes.RoleUser, Content: "hi"})
	r := sessionRouter(store)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/v1/sessions/s1", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/v1/sessions/s1", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
