// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package plots stores rendered chart artifacts in Badger.
//
// Artifacts are Plotly figure documents keyed by an opaque id. Retention is
// enforced on the write path: every Save first sweeps artifacts older than
// MaxArtifactAge, mirroring how unbounded growth is avoided without a
// background job.
package plots

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// MaxArtifactAge is how long a saved artifact stays retrievable before the
// next sweep removes it.
const MaxArtifactAge = 3600 * time.Second

const keyPrefix = "plot/"

// header bytes prepended to each value: big-endian unix seconds of save time.
const headerSize = 8

// ErrNotFound indicates no artifact exists under the requested id.
var ErrNotFound = errors.New("plot not found")

// Clock abstracts time for retention tests.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Store is a Badger-backed artifact store.
//
// Thread Safety: all methods are safe for concurrent use; Badger
// transactions provide isolation.
type Store struct {
	db    *badger.DB
	clock Clock
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the retention clock.
func WithClock(c Clock) Option {
	return func(s *Store) { s.clock = c }
}

// NewStore opens the artifact database at path. An empty path opens an
// in-memory database, used by tests and ephemeral deployments.
func NewStore(path string, opts ...Option) (*Store, error) {
	badgerOpts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		badgerOpts = badgerOpts.WithInMemory(true)
	}

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("plots: open store: %w", err)
	}

	s := &Store{db: db, clock: realClock{}}
	for _, opt := range opts {
		opt(s)
	}
	slog.Info("Plot artifact store opened", "path", path, "in_memory", path == "")
	return s, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save sweeps expired artifacts, then stores the figure under a fresh opaque
// id and returns that id.
func (s *Store) Save(ctx context.Context, figure []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := s.sweep(); err != nil {
		slog.Warn("Plot sweep failed", "error", err)
	}

	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	value := make([]byte, headerSize+len(figure))
	binary.BigEndian.PutUint64(value, uint64(s.clock.Now().Unix()))
	copy(value[headerSize:], figure)

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyPrefix+id), value)
	})
	if err != nil {
		return "", fmt.Errorf("plots: save: %w", err)
	}
	return id, nil
}

// Load returns the figure saved under id, or ErrNotFound.
func (s *Store) Load(ctx context.Context, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var figure []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + id))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val) < headerSize {
				return ErrNotFound
			}
			figure = append([]byte(nil), val[headerSize:]...)
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("plots: load: %w", err)
	}
	return figure, nil
}

// sweep deletes artifacts saved more than MaxArtifactAge ago.
func (s *Store) sweep() error {
	cutoff := s.clock.Now().Add(-MaxArtifactAge).Unix()

	var stale [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(keyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			err := item.Value(func(val []byte) error {
				if len(val) >= headerSize {
					saved := int64(binary.BigEndian.Uint64(val))
					if saved < cutoff {
						stale = append(stale, item.KeyCopy(nil))
					}
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if len(stale) == 0 {
		return nil
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		for _, key := range stale {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	slog.Debug("Swept expired plot artifacts", "count", len(stale))
	return nil
}
