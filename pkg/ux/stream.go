// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package ux consumes the chat SSE stream on the client side and
// reconstructs a turn: streamed answer text, tool steps matched by run id,
// and chart references.
package ux

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/AleutianAI/SensorAgent/services/orchestrator/datatypes"
)

// maxStepOutputLen truncates very long tool outputs to keep display sane.
const maxStepOutputLen = 3000

// ToolStep is one tool invocation reconstructed from the stream.
type ToolStep struct {
	RunID  string
	Name   string
	Input  string
	Output string
}

// StreamResult is the reconstructed outcome of one streamed turn.
type StreamResult struct {
	// Answer is the concatenation of all token events.
	Answer string

	// Steps are tool invocations in start order.
	Steps []ToolStep

	// PlotPaths are chart artifact paths to fetch from the server.
	PlotPaths []string

	// Done reports whether the terminal [DONE] sentinel arrived. A false
	// value means the stream was cut short (cancellation or server error).
	Done bool
}

// StreamProcessor defines the interface for consuming a streamed turn.
type StreamProcessor interface {
	// Process reads SSE lines from the reader until the stream ends.
	Process(reader io.Reader) (*StreamResult, error)
}

// sseStreamProcessor implements StreamProcessor for the bare data-line
// SSE format.
type sseStreamProcessor struct {
	writer     io.Writer
	echoTokens bool
}

// NewStreamProcessor creates a processor that echoes tokens to stdout as
// they arrive.
func NewStreamProcessor() StreamProcessor {
	return &sseStreamProcessor{writer: os.Stdout, echoTokens: true}
}

// NewStreamProcessorWithWriter creates a processor with a custom writer
// (for testing) or with echo disabled.
func NewStreamProcessorWithWriter(w io.Writer, echoTokens bool) StreamProcessor {
	return &sseStreamProcessor{writer: w, echoTokens: echoTokens}
}

// Process reads and reconstructs a streamed turn.
func (p *sseStreamProcessor) Process(reader io.Reader) (*StreamResult, error) {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	result := &StreamResult{}
	var answer strings.Builder
	open := make(map[string]int) // run_id -> index into result.Steps

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ":") {
			// Blank separators and keepalive comments.
			continue
		}
		raw, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			continue
		}
		if raw == datatypes.DoneSentinel {
			result.Done = true
			break
		}

		var event datatypes.StreamEvent
		if err := json.Unmarshal([]byte(raw), &event); err != nil {
			return nil, fmt.Errorf("ux: malformed stream event: %w", err)
		}

		switch event.Type {
		case datatypes.StreamEventToken:
			answer.WriteString(event.Token)
			if p.echoTokens {
				fmt.Fprint(p.writer, event.Token)
			}
		case datatypes.StreamEventToolStart:
			open[event.RunID] = len(result.Steps)
			result.Steps = append(result.Steps, ToolStep{
				RunID: event.RunID,
				Name:  event.Name,
				Input: event.Input,
			})
		case datatypes.StreamEventToolEnd:
			if idx, ok := open[event.RunID]; ok {
				result.Steps[idx].Output = truncateOutput(event.Output)
				delete(open, event.RunID)
			}
		case datatypes.StreamEventPlotly:
			result.PlotPaths = append(result.PlotPaths, event.Path)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("ux: read stream: %w", err)
	}

	result.Answer = answer.String()
	if p.echoTokens && result.Answer != "" && !strings.HasSuffix(result.Answer, "\n") {
		fmt.Fprintln(p.writer)
	}
	return result, nil
}

// truncateOutput caps a tool output at maxStepOutputLen bytes, backing off to
// the previous rune boundary so a multi-byte character is never split.
func truncateOutput(output string) string {
	if len(output) <= maxStepOutputLen {
		return output
	}
	cut := maxStepOutputLen
	for cut > 0 && !utf8.RuneStart(output[cut]) {
		cut--
	}
	return output[:cut]
}
