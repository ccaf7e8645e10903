// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides Prometheus metrics for the orchestrator.
//
// # Description
//
// Covers the chat endpoints and the agent tool loop:
//   - Request counters by endpoint and status
//   - Latency histograms (time to first token, total turn duration)
//   - Active stream gauge and keepalive/disconnect counters
//   - Tool invocation counters by tool and status
//
// Metrics are exposed on /metrics.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "sensoragent"

const chatSubsystem = "chat"

// ChatMetrics holds all Prometheus metrics for chat turn processing.
// Initialize once at startup via InitMetrics().
type ChatMetrics struct {
	// RequestsTotal counts chat requests by endpoint and status.
	// Labels: endpoint (chat, chat_stream), status (success, error)
	RequestsTotal *prometheus.CounterVec

	// TimeToFirstTokenSeconds measures latency to first token.
	// Labels: endpoint
	TimeToFirstTokenSeconds *prometheus.HistogramVec

	// TurnDurationSeconds measures total turn duration.
	// Labels: endpoint, status (success, error)
	TurnDurationSeconds *prometheus.HistogramVec

	// ActiveStreams tracks currently open SSE connections.
	ActiveStreams prometheus.Gauge

	// ErrorsTotal counts errors by endpoint and error code.
	// Labels: endpoint, error_code (validation, runtime_error, ...)
	ErrorsTotal *prometheus.CounterVec

	// TokensTotal counts assistant tokens streamed to clients.
	// Labels: endpoint
	TokensTotal *prometheus.CounterVec

	// KeepAlivesTotal counts keepalive pings sent on open streams.
	KeepAlivesTotal prometheus.Counter

	// ClientDisconnectsTotal counts clients that went away mid-stream.
	ClientDisconnectsTotal prometheus.Counter

	// ToolInvocationsTotal counts agent tool calls.
	// Labels: tool (query_sensor_data, plot_timeseries, ...), status
	ToolInvocationsTotal *prometheus.CounterVec
}

// DefaultMetrics is the singleton instance, set by InitMetrics().
var DefaultMetrics *ChatMetrics

// InitMetrics creates and registers all metrics. Call once at startup;
// duplicate registration panics.
func InitMetrics() *ChatMetrics {
	DefaultMetrics = &ChatMetrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "requests_total",
				Help:      "Total chat requests by endpoint and status",
			},
			[]string{"endpoint", "status"},
		),

		TimeToFirstTokenSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "time_to_first_token_seconds",
				Help:      "Time from request to first token in seconds",
				Buckets:   []float64{0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
			[]string{"endpoint"},
		),

		TurnDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "turn_duration_seconds",
				Help:      "Total turn duration in seconds",
				Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
			},
			[]string{"endpoint", "status"},
		),

		ActiveStreams: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "active_streams",
				Help:      "Number of currently open SSE connections",
			},
		),

		ErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "errors_total",
				Help:      "Total chat errors by endpoint and error code",
			},
			[]string{"endpoint", "error_code"},
		),

		TokensTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "tokens_total",
				Help:      "Total assistant tokens streamed by endpoint",
			},
			[]string{"endpoint"},
		),

		KeepAlivesTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "keepalives_total",
				Help:      "Total keepalive pings sent",
			},
		),

		ClientDisconnectsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "client_disconnects_total",
				Help:      "Total client disconnections during streaming",
			},
		),

		ToolInvocationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "tool_invocations_total",
				Help:      "Total agent tool invocations by tool and status",
			},
			[]string{"tool", "status"},
		),
	}

	return DefaultMetrics
}

// =============================================================================
// Error Codes and Endpoints
// =============================================================================

// ErrorCode categorizes an error for metrics.
type ErrorCode string

const (
	// ErrorCodeValidation indicates request validation failure.
	ErrorCodeValidation ErrorCode = "validation"

	// ErrorCodeRuntime indicates an agent runtime or model API failure.
	ErrorCodeRuntime ErrorCode = "runtime_error"

	// ErrorCodeTimeout indicates operation timeout.
	ErrorCodeTimeout ErrorCode = "timeout"

	// ErrorCodeInternal indicates internal server error.
	ErrorCodeInternal ErrorCode = "internal"

	// ErrorCodeClientDisconnect indicates the client disconnected.
	ErrorCodeClientDisconnect ErrorCode = "client_disconnect"
)

// Endpoint labels a chat endpoint for metrics.
type Endpoint string

const (
	// EndpointChat is the non-streaming chat endpoint.
	EndpointChat Endpoint = "chat"

	// EndpointChatStream is the SSE chat endpoint.
	EndpointChatStream Endpoint = "chat_stream"
)

// =============================================================================
// Helper Methods
// =============================================================================

// RecordRequest records a completed chat request.
func (m *ChatMetrics) RecordRequest(endpoint Endpoint, success bool) {
	m.RequestsTotal.WithLabelValues(string(endpoint), statusLabel(success)).Inc()
}

// RecordError records a categorized error.
func (m *ChatMetrics) RecordError(endpoint Endpoint, code ErrorCode) {
	m.ErrorsTotal.WithLabelValues(string(endpoint), string(code)).Inc()
}

// StreamStarted increments the active streams gauge.
func (m *ChatMetrics) StreamStarted() {
	m.ActiveStreams.Inc()
}

// StreamEnded decrements the active streams gauge.
func (m *ChatMetrics) StreamEnded() {
	m.ActiveStreams.Dec()
}

// RecordTimeToFirstToken records time-to-first-token latency.
func (m *ChatMetrics) RecordTimeToFirstToken(endpoint Endpoint, seconds float64) {
	m.TimeToFirstTokenSeconds.WithLabelValues(string(endpoint)).Observe(seconds)
}

// RecordTurnDuration records the total turn duration.
func (m *ChatMetrics) RecordTurnDuration(endpoint Endpoint, seconds float64, success bool) {
	m.TurnDurationSeconds.WithLabelValues(string(endpoint), statusLabel(success)).Observe(seconds)
}

// RecordToken counts one streamed assistant token.
func (m *ChatMetrics) RecordToken(endpoint Endpoint) {
	m.TokensTotal.WithLabelValues(string(endpoint)).Inc()
}

// RecordKeepAlive increments the keepalive counter.
func (m *ChatMetrics) RecordKeepAlive() {
	m.KeepAlivesTotal.Inc()
}

// RecordClientDisconnect increments the client disconnect counter.
func (m *ChatMetrics) RecordClientDisconnect() {
	m.ClientDisconnectsTotal.Inc()
}

// RecordToolInvocation records one agent tool call.
func (m *ChatMetrics) RecordToolInvocation(tool string, success bool) {
	m.ToolInvocationsTotal.WithLabelValues(tool, statusLabel(success)).Inc()
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
