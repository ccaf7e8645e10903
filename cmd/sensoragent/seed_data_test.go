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
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedRunsProduceNineChannels(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, run := range seedRuns {
		n := int(float64(run.durationMin) * 60 / seedSampleInterval)
		channels := run.generate(rng, n)

		require.Len(t, channels, 9, run.fileName)
		for name, ch := range channels {
			assert.Len(t, ch.values, n, "%s/%s", run.fileName, name)
		}
		assert.Equal(t, "km/h", channels["vehicle_speed"].unit)
		assert.Equal(t, "rpm", channels["engine_rpm"].unit)
	}
}

func TestSeedSignalsStayWithinPhysicalBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	channels := generateCityRun(rng, 6000)

	for _, v := range channels["vehicle_speed"].values {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 70.0)
	}
	for _, v := range channels["engine_rpm"].values {
		assert.GreaterOrEqual(t, v, 800.0)
		assert.LessOrEqual(t, v, 7500.0)
	}
	for _, v := range channels["fuel_level"].values {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 100.0)
	}
}

func TestFuelLevelTrendsDown(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	channels := generateHighwayRun(rng, 27000)

	fuel := channels["fuel_level"].values
	assert.Greater(t, fuel[0], fuel[len(fuel)-1])
}

func TestSmoothPreservesLength(t *testing.T) {
	out := smooth([]float64{1, 2, 3, 4, 5}, 3)
	require.Len(t, out, 5)
	assert.InDelta(t, 2.0, out[1], 0.001)
}
