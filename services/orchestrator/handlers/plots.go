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
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/AleutianAI/SensorAgent/services/plots"
	"github.com/gin-gonic/gin"
)

// ArtifactLoader fetches stored figures. Satisfied by *plots.Store.
type ArtifactLoader interface {
	Load(ctx context.Context, id string) ([]byte, error)
}

// HandlePlotArtifact implements GET /plots/:file, where file is the
// `<id>.json` path segment referenced by plotly stream events.
func HandlePlotArtifact(store ArtifactLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		file := c.Param("file")
		id, ok := strings.CutSuffix(file, ".json")
		if !ok || id == "" {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}

		figure, err := store.Load(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, plots.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Data(http.StatusOK, "application/json", figure)
	}
}
