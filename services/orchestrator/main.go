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
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/AleutianAI/SensorAgent/services/agent"
	"github.com/AleutianAI/SensorAgent/services/ingest"
	"github.com/AleutianAI/SensorAgent/services/mdf"
	"github.com/AleutianAI/SensorAgent/services/orchestrator/observability"
	"github.com/AleutianAI/SensorAgent/services/orchestrator/routes"
	"github.com/AleutianAI/SensorAgent/services/orchestrator/services"
	"github.com/AleutianAI/SensorAgent/services/orchestrator/session"
	"github.com/AleutianAI/SensorAgent/services/plots"
	"github.com/AleutianAI/SensorAgent/services/timescale"
	"github.com/AleutianAI/SensorAgent/services/tools"
	"github.com/gin-gonic/gin"
	"google.golang.org/grpc/credentials/insecure"

	// --- OpenTelemetry imports ---
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
)

func initTracer() (func(context.Context), error) {
	ctx := context.Background()

	otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otelEndpoint == "" {
		otelEndpoint = "sensoragent-otel-collector:4317"
	}
	conn, err := grpc.NewClient(otelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("orchestrator-service")))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.
		TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

func main() {
	port := os.Getenv("ORCHESTRATOR_PORT")
	if port == "" {
		port = "12210"
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// --- Init the tracer ---
	cleanup, err := initTracer()
	if err != nil {
		log.Fatalf("failed to setup the OTLP tracer: %v", err)
	}
	defer cleanup(context.Background())

	metrics := observability.InitMetrics()

	// --- TimescaleDB ---
	ctx := context.Background()
	store, err := timescale.NewStore(ctx, os.Getenv("TIMESCALEDB_URL"))
	if err != nil {
		log.Fatalf("failed to connect to TimescaleDB: %v", err)
	}
	defer store.Close()
	if err := store.EnsureSchema(ctx); err != nil {
		log.Fatalf("failed to ensure the measurements schema: %v", err)
	}

	// --- Plot artifact store ---
	artifacts, err := plots.NewStore(os.Getenv("PLOTS_DB_PATH"))
	if err != nil {
		log.Fatalf("failed to open the plot artifact store: %v", err)
	}
	defer func() {
		if err := artifacts.Close(); err != nil {
			slog.Error("failed to close the plot artifact store", "error", err)
		}
	}()

	// --- Tools and agent runtime ---
	pipeline := ingest.NewPipeline(mdf.NewJSONDecoder(), store)

	registry := tools.NewRegistry()
	for _, t := range []tools.Tool{
		tools.NewIngestTool(pipeline),
		tools.NewQueryTool(store),
		tools.NewTimeseriesPlotTool(store, artifacts),
		tools.NewBarchartPlotTool(store, artifacts),
	} {
		if err := registry.Register(t); err != nil {
			log.Fatalf("failed to register tool: %v", err)
		}
	}

	runtime, err := newRuntime(registry)
	if err != nil {
		log.Fatalf("failed to initialize the agent runtime: %v", err)
	}

	sessions := session.NewStore()
	processor := services.NewTurnProcessor(runtime, sessions)

	// --- HTTP surface ---
	router := gin.Default()
	router.Use(otelgin.Middleware("orchestrator-service"))

	routes.SetupRoutes(router, routes.Dependencies{
		Processor: processor,
		Sessions:  sessions,
		Artifacts: artifacts,
		Metrics:   metrics,
		APIToken:  os.Getenv("AGENT_API_TOKEN"),
	})

	slog.Info("Starting the orchestrator", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("failed to start the server: %v", err)
	}
}

// newRuntime selects the model backend from LLM_BACKEND_TYPE.
func newRuntime(registry *tools.Registry) (agent.Runtime, error) {
	backend := os.Getenv("LLM_BACKEND_TYPE")
	switch backend {
	case "", "openai":
		return agent.NewOpenAIRuntime(registry)
	case "ollama":
		return agent.NewOllamaRuntime(registry)
	default:
		slog.Warn("Unknown LLM_BACKEND_TYPE, using openai", "backend", backend)
		return agent.NewOpenAIRuntime(registry)
	}
}
