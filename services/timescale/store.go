// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package timescale is the storage adapter for the measurements hypertable.
//
// Every decoded channel sample lands here as one row of
// (time, file_name, channel, value, unit). The package owns schema
// initialization, batched idempotent inserts, and the read-only query gate
// used by the agent's SQL tool.
package timescale

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	defaultMaxConns        = 8
	defaultConnectTimeout  = 10 * time.Second
	defaultHealthCheckFreq = 30 * time.Second
)

// Querier is the subset of the connection pool used by read paths.
// Satisfied by *pgxpool.Pool.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Store wraps a pgx connection pool over the TimescaleDB instance.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to TimescaleDB at the given URL and verifies the
// connection with a ping.
func NewStore(ctx context.Context, databaseURL string) (*Store, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("timescale: database URL is empty")
	}

	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("timescale: parse config: %w", err)
	}
	cfg.MaxConns = defaultMaxConns
	cfg.ConnConfig.ConnectTimeout = defaultConnectTimeout
	cfg.HealthCheckPeriod = defaultHealthCheckFreq

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("timescale: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("timescale: ping: %w", err)
	}

	slog.Info("Connected to TimescaleDB", "max_conns", cfg.MaxConns)
	return &Store{pool: pool}, nil
}

// Pool exposes the underlying pool for callers that need raw access.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// Close releases all pool connections.
func (s *Store) Close() {
	s.pool.Close()
}
