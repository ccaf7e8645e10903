// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func authRouter(token string) *gin.Engine {
	r := gin.New()
	r.GET("/protected", BearerAuth(token), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func TestBearerAuth(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		header   string
		wantCode int
	}{
		{name: "valid token", token: "secret", header: "Bearer secret", wantCode: http.StatusOK},
		{name: "wrong token", token: "secret", header: "Bearer nope", wantCode: http.StatusUnauthorized},
		{name: "missing header", token: "secret", header: "", wantCode: http.StatusUnauthorized},
		{name: "malformed header", token: "secret", header: "secret", wantCode: http.StatusUnauthorized},
		{name: "auth disabled", token: "", header: "", wantCode: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			authRouter(tt.token).ServeHTTP(w, req)
			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}
