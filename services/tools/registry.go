// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package tools defines the agent's tool surface.
//
// A Tool is a named operation the model can invoke with JSON arguments.
// Tools report domain failures as JSON error strings in their output rather
// than as Go errors, so the model can read and react to them; the error
// return is reserved for infrastructure failures such as cancellation.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/sashabaranov/go-openai/jsonschema"
)

// Tool is one operation exposed to the agent runtime.
type Tool interface {
	// Name is the identifier the model uses to call the tool.
	Name() string

	// Description tells the model what the tool does and how to shape its
	// arguments. It is part of the prompt; wording matters.
	Description() string

	// Parameters is the JSON schema of the tool's argument object.
	Parameters() jsonschema.Definition

	// Invoke runs the tool with raw JSON arguments and returns its textual
	// result.
	Invoke(ctx context.Context, args json.RawMessage) (string, error)
}

// Registry holds the tools available to a runtime, preserving registration
// order for stable prompt construction.
//
// Thread Safety: safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Duplicate names are rejected.
func (r *Registry) Register(t Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := t.Name()
	if name == "" {
		return fmt.Errorf("tools: tool has empty name")
	}
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tools: duplicate tool %q", name)
	}
	r.tools[name] = t
	r.order = append(r.order, name)
	return nil
}

// Get looks up a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns all tools in registration order.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// errorJSON encodes a domain failure the way tool outputs report them.
func errorJSON(err error) string {
	data, mErr := json.Marshal(map[string]string{"error": err.Error()})
	if mErr != nil {
		return `{"error": "internal error"}`
	}
	return string(data)
}

// marshalResult pretty-prints a tool result document.
func marshalResult(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("tools: marshal result: %w", err)
	}
	return string(data), nil
}
