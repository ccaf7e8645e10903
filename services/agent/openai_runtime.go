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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/AleutianAI/SensorAgent/services/orchestrator/datatypes"
	"github.com/AleutianAI/SensorAgent/services/tools"
	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"
)

// maxToolRounds bounds how many times a single turn may loop back through
// tool execution before the run is aborted.
const maxToolRounds = 8

const systemPrompt = "You are a data exploration assistant for vehicle sensor telemetry. " +
	"You have tools to ingest measurement files into a TimescaleDB database, " +
	"query it with SQL, and render charts for the user. " +
	"The measurements table has columns: time (TIMESTAMPTZ), file_name (TEXT), " +
	"channel (TEXT), value (DOUBLE PRECISION), unit (TEXT). " +
	"Query results are capped at 500 rows, so prefer aggregated queries " +
	"(time_bucket, AVG, MAX) over raw sample dumps. " +
	"When a chart would help, use the plot tools; charts are shown to the user " +
	"automatically, so never describe a chart's URL or path. " +
	"Always report units and highlight notable statistics."

// OpenAIRuntime streams chat completions with tool definitions and executes
// registry tools between rounds.
type OpenAIRuntime struct {
	client   *openai.Client
	model    string
	registry *tools.Registry
}

var _ Runtime = (*OpenAIRuntime)(nil)

// NewOpenAIRuntime builds a runtime from OPENAI_API_KEY and OPENAI_MODEL,
// falling back to the mounted secret when the key env var is unset.
func NewOpenAIRuntime(registry *tools.Registry) (*OpenAIRuntime, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	model := os.Getenv("OPENAI_MODEL")
	if apiKey == "" {
		secretPath := "/run/secrets/openai_api_key"
		apiKeyBytes, err := os.ReadFile(secretPath)
		if err == nil {
			apiKey = strings.TrimSpace(string(apiKeyBytes))
			slog.Info("Read the OpenAI API Key from Podman Secrets")
		} else {
			slog.Error("OPENAI_API_KEY environment variable not set and secret not found", "path", secretPath)
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
	}
	if model == "" {
		model = "gpt-4o-mini"
		slog.Warn("OPENAI_MODEL not set, defaulting to gpt-4o-mini")
	}
	slog.Info("Initializing OpenAI agent runtime", "model", model)
	return &OpenAIRuntime{
		client:   openai.NewClient(apiKey),
		model:    model,
		registry: registry,
	}, nil
}

// Run streams completion rounds until the model stops requesting tools.
// Tokens and tool lifecycle events are emitted in arrival order.
func (r *OpenAIRuntime) Run(ctx context.Context, history []datatypes.Message, emit EmitFunc) error {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt,
	})
	for _, m := range history {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	toolDefs := r.toolDefinitions()

	for round := 0; round < maxToolRounds; round++ {
		content, toolCalls, err := r.streamRound(ctx, messages, toolDefs, emit)
		if err != nil {
			return err
		}

		if len(toolCalls) == 0 {
			return nil
		}

		messages = append(messages, openai.ChatCompletionMessage{
			Role:      openai.ChatMessageRoleAssistant,
			Content:   content,
			ToolCalls: toolCalls,
		})

		for _, tc := range toolCalls {
			result, err := r.executeTool(ctx, tc, emit)
			if err != nil {
				return err
			}
			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    result,
				ToolCallID: tc.ID,
			})
		}
	}

	return fmt.Errorf("agent: tool round limit (%d) exceeded", maxToolRounds)
}

// streamRound runs one streaming completion, emitting tokens as they arrive
// and accumulating any tool-call deltas into complete calls.
func (r *OpenAIRuntime) streamRound(
	ctx context.Context,
	messages []openai.ChatCompletionMessage,
	toolDefs []openai.Tool,
	emit EmitFunc,
) (string, []openai.ToolCall, error) {
	stream, err := r.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    r.model,
		Messages: messages,
		Tools:    toolDefs,
	})
	if err != nil {
		return "", nil, fmt.Errorf("agent: create stream: %w", err)
	}
	defer stream.Close()

	var content strings.Builder
	pending := make(map[int]*openai.ToolCall)

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", nil, fmt.Errorf("agent: stream recv: %w", err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		delta := resp.Choices[0].Delta

		if delta.Content != "" {
			content.WriteString(delta.Content)
			if err := emit(TokenEvent{Content: Content{Text: delta.Content}}); err != nil {
				return "", nil, err
			}
		}

		for _, tc := range delta.ToolCalls {
			idx := 0
			if tc.Index != nil {
				idx = *tc.Index
			}
			acc, ok := pending[idx]
			if !ok {
				acc = &openai.ToolCall{Type: openai.ToolTypeFunction}
				pending[idx] = acc
			}
			if tc.ID != "" {
				acc.ID = tc.ID
			}
			if tc.Function.Name != "" {
				acc.Function.Name = tc.Function.Name
			}
			acc.Function.Arguments += tc.Function.Arguments
		}
	}

	indexes := make([]int, 0, len(pending))
	for idx := range pending {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)

	calls := make([]openai.ToolCall, 0, len(pending))
	for _, idx := range indexes {
		calls = append(calls, *pending[idx])
	}
	return content.String(), calls, nil
}

// executeTool runs one accumulated tool call, wrapping it in start/end
// events. Unknown tools produce an error result for the model rather than
// aborting the turn.
func (r *OpenAIRuntime) executeTool(ctx context.Context, tc openai.ToolCall, emit EmitFunc) (string, error) {
	runID := tc.ID
	if runID == "" {
		runID = uuid.NewString()
	}

	if err := emit(ToolStartEvent{RunID: runID, Tool: tc.Function.Name, Input: tc.Function.Arguments}); err != nil {
		return "", err
	}

	var result string
	tool, ok := r.registry.Get(tc.Function.Name)
	if !ok {
		slog.Warn("Model requested unknown tool", "tool", tc.Function.Name)
		result = fmt.Sprintf(`{"error": "unknown tool %q"}`, tc.Function.Name)
	} else {
		out, err := tool.Invoke(ctx, json.RawMessage(tc.Function.Arguments))
		if err != nil {
			return "", fmt.Errorf("agent: tool %s: %w", tc.Function.Name, err)
		}
		result = out
	}

	if err := emit(ToolEndEvent{RunID: runID, Output: result}); err != nil {
		return "", err
	}
	return result, nil
}

// toolDefinitions converts the registry into the wire tool schema.
func (r *OpenAIRuntime) toolDefinitions() []openai.Tool {
	list := r.registry.List()
	defs := make([]openai.Tool, 0, len(list))
	for _, t := range list {
		params := t.Parameters()
		defs = append(defs, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  &params,
			},
		})
	}
	return defs
}
