// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package plots

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestStore(t *testing.T) (*Store, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	store, err := NewStore("", WithClock(clock))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, clock
}

func TestSaveAndLoad(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	figure := []byte(`{"data":[],"layout":{"title":"Speed"}}`)
	id, err := store.Save(ctx, figure)
	require.NoError(t, err)
	require.NotEmpty(t, id)
	assert.NotContains(t, id, "-")

	got, err := store.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, figure, got)
}

func TestLoadUnknownID(t *testing.T) {
	store, _ := newTestStore(t)
	_, err := store.Load(context.Background(), "deadbeef")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRetentionSweepOnSave(t *testing.T) {
	store, clock := newTestStore(t)
	ctx := context.Background()

	old, err := store.Save(ctx, []byte(`{"data":[]}`))
	require.NoError(t, err)

	// Just inside the retention window: the artifact survives a sweep.
	clock.Advance(3599 * time.Second)
	_, err = store.Save(ctx, []byte(`{"data":[1]}`))
	require.NoError(t, err)
	_, err = store.Load(ctx, old)
	assert.NoError(t, err)

	// Past the window: the next save sweeps it out.
	clock.Advance(2 * time.Second)
	_, err = store.Save(ctx, []byte(`{"data":[2]}`))
	require.NoError(t, err)
	_, err = store.Load(ctx, old)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveCanceledContext(t *testing.T) {
	store, _ := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Save(ctx, []byte(`{}`))
	assert.Error(t, err)
}
