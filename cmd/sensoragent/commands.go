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
	"os"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	apiToken  string
)

var rootCmd = &cobra.Command{
	Use:   "sensoragent",
	Short: "Talk to the sensor data agent",
	Long: "sensoragent is the CLI for the vehicle sensor telemetry agent.\n" +
		"It streams chat turns from a running orchestrator, checks service\n" +
		"health, and seeds TimescaleDB with synthetic test runs.",
	SilenceUsage: true,
}

// Execute runs the root command tree under the given context.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	defaultServer := os.Getenv("SENSORAGENT_SERVER_URL")
	if defaultServer == "" {
		defaultServer = "http://localhost:12210"
	}

	rootCmd.PersistentFlags().StringVar(&serverURL, "server", defaultServer,
		"orchestrator base URL")
	rootCmd.PersistentFlags().StringVar(&apiToken, "token", os.Getenv("AGENT_API_TOKEN"),
		"bearer token for the /v1 API (empty when auth is disabled)")

	rootCmd.AddCommand(newChatCmd())
	rootCmd.AddCommand(newHealthCmd())
	rootCmd.AddCommand(newSeedCmd())
}
