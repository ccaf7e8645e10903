// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package agent

import (
	"log/slog"
	"os"
	"strings"

	"github.com/AleutianAI/SensorAgent/services/tools"
	"github.com/sashabaranov/go-openai"
)

// NewOllamaRuntime builds a runtime against a local Ollama server via its
// OpenAI-compatible endpoint. Configured by OLLAMA_BASE_URL and
// OLLAMA_MODEL.
func NewOllamaRuntime(registry *tools.Registry) (*OpenAIRuntime, error) {
	baseURL := os.Getenv("OLLAMA_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:11434"
		slog.Warn("OLLAMA_BASE_URL not set, defaulting to localhost", "url", baseURL)
	}
	model := os.Getenv("OLLAMA_MODEL")
	if model == "" {
		model = "llama3.1"
		slog.Warn("OLLAMA_MODEL not set, defaulting to llama3.1")
	}

	// Ollama ignores the API key but the client requires one.
	cfg := openai.DefaultConfig("ollama")
	cfg.BaseURL = strings.TrimSuffix(baseURL, "/") + "/v1"

	slog.Info("Initializing Ollama agent runtime", "url", baseURL, "model", model)
	return &OpenAIRuntime{
		client:   openai.NewClientWithConfig(cfg),
		model:    model,
		registry: registry,
	}, nil
}
