// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/AleutianAI/SensorAgent/pkg/ux"
	"github.com/AleutianAI/SensorAgent/services/orchestrator/datatypes"
	"github.com/spf13/cobra"
)

const chatTimeout = 120 * time.Second

func newChatCmd() *cobra.Command {
	var sessionID string
	var noStream bool

	cmd := &cobra.Command{
		Use:   "chat <message>",
		Short: "Send one message to the agent",
		Long: "Sends a message to the agent and streams the response. Tool\n" +
			"invocations and generated charts are reported after the answer.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			message := strings.Join(args, " ")
			if noStream {
				return runChat(cmd.Context(), sessionID, message)
			}
			return runChatStream(cmd.Context(), sessionID, message)
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "cli", "session id for conversation continuity")
	cmd.Flags().BoolVar(&noStream, "no-stream", false, "use the non-streaming endpoint")
	return cmd
}

func runChatStream(ctx context.Context, sessionID, message string) error {
	resp, err := postChat(ctx, "/v1/chat/stream", sessionID, message)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	result, err := ux.NewStreamProcessor().Process(resp.Body)
	if err != nil {
		return err
	}
	if !result.Done {
		return fmt.Errorf("stream ended before completion")
	}

	for _, step := range result.Steps {
		fmt.Printf("  [tool] %s\n", step.Name)
	}
	for _, path := range result.PlotPaths {
		fmt.Printf("  [chart] %s%s\n", strings.TrimSuffix(serverURL, "/"), path)
	}
	return nil
}

func runChat(ctx context.Context, sessionID, message string) error {
	resp, err := postChat(ctx, "/v1/chat", sessionID, message)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var body datatypes.ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	fmt.Println(body.Response)
	return nil
}

func postChat(ctx context.Context, path, sessionID, message string) (*http.Response, error) {
	payload, err := json.Marshal(datatypes.ChatRequest{Message: message, SessionID: sessionID})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, chatTimeout)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimSuffix(serverURL, "/")+path, bytes.NewReader(payload))
	if err != nil {
		cancel()
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+apiToken)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	// The cancel travels with the body: closing the body releases it.
	resp.Body = &cancelingBody{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

type cancelingBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelingBody) Close() error {
	b.cancel()
	return b.ReadCloser.Close()
}
