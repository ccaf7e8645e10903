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
	"math"
	"math/rand"
	"time"
)

// Synthetic test runs: three drive profiles with nine physically correlated
// channels each, sampled at 10 Hz. RPM follows speed, temperatures warm up
// over time, fuel drains monotonically, so the data supports realistic SQL
// exploration.

const seedSampleInterval = 0.1 // 10 Hz

type seedChannel struct {
	values []float64
	unit   string
}

type seedRun struct {
	fileName    string
	start       time.Time
	durationMin int
	generate    func(rng *rand.Rand, n int) map[string]seedChannel
}

var seedRuns = []seedRun{
	{
		fileName:    "test_run_city.mf4",
		start:       time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC),
		durationMin: 30,
		generate:    generateCityRun,
	},
	{
		fileName:    "test_run_highway.mf4",
		start:       time.Date(2024, 6, 11, 14, 0, 0, 0, time.UTC),
		durationMin: 45,
		generate:    generateHighwayRun,
	},
	{
		fileName:    "test_run_track.mf4",
		start:       time.Date(2024, 6, 12, 10, 30, 0, 0, time.UTC),
		durationMin: 15,
		generate:    generateTrackRun,
	},
}

// generateCityRun models stop-and-go traffic, max ~70 km/h.
func generateCityRun(rng *rand.Rand, n int) map[string]seedChannel {
	t := sampleTimes(n)
	speed := make([]float64, n)
	for i := range speed {
		speed[i] = 35 +
			20*math.Sin(2*math.Pi*t[i]/90) +
			12*math.Sin(2*math.Pi*t[i]/25) +
			rng.NormFloat64()*2
	}

	// Occasional full stops.
	for k := 0; k < 15; k++ {
		s := rng.Intn(n)
		start := max(0, s-30)
		end := min(n, s+30)
		for i := start; i < end; i++ {
			speed[i] *= 1 - float64(i-start)/float64(end-start)
		}
	}

	speed = smooth(clip(speed, 0, 70), 10)
	return deriveChannels(rng, speed, t, 85, 8)
}

// generateHighwayRun models a steady cruise with gentle overtakes.
func generateHighwayRun(rng *rand.Rand, n int) map[string]seedChannel {
	t := sampleTimes(n)
	speed := make([]float64, n)
	for i := range speed {
		speed[i] = 115 +
			15*math.Sin(2*math.Pi*t[i]/300) +
			5*math.Sin(2*math.Pi*t[i]/60) +
			rng.NormFloat64()*3
	}
	speed = smooth(clip(speed, 80, 160), 20)
	return deriveChannels(rng, speed, t, 100, 12)
}

// generateTrackRun models ~90-second laps with hard braking at lap end.
func generateTrackRun(rng *rand.Rand, n int) map[string]seedChannel {
	t := sampleTimes(n)
	speed := make([]float64, n)
	for i := range speed {
		lapT := math.Mod(t[i], 90)
		speed[i] = 20 + 130*math.Pow(lapT/90, 0.6) + rng.NormFloat64()*5
		if lapT > 75 {
			speed[i] *= 0.3
		}
	}
	speed = smooth(clip(speed, 0, 200), 5)
	return deriveChannels(rng, speed, t, 60, 18)
}

// deriveChannels produces the remaining eight channels from a speed profile.
func deriveChannels(rng *rand.Rand, speed, t []float64, startFuel, fuelRate float64) map[string]seedChannel {
	n := len(speed)

	speedDelta := make([]float64, n)
	for i := 1; i < n; i++ {
		speedDelta[i] = speed[i] - speed[i-1]
	}

	rpm := make([]float64, n)
	throttle := make([]float64, n)
	brake := make([]float64, n)
	engineTemp := make([]float64, n)
	coolantTemp := make([]float64, n)
	battery := make([]float64, n)
	oilPressure := make([]float64, n)
	fuel := make([]float64, n)

	for i := 0; i < n; i++ {
		// RPM: idle at 800, scales with speed, blips on speed changes.
		rpm[i] = 800 + speed[i]*45 + math.Abs(speedDelta[i])*80 + rng.NormFloat64()*60

		// Throttle correlates with positive acceleration.
		throttle[i] = speedDelta[i]*8 + 25 + rng.NormFloat64()*4

		// Brake pressure spikes on deceleration.
		if speedDelta[i] < -0.8 {
			brake[i] = math.Abs(speedDelta[i])*12 + rng.ExpFloat64()*0.2
		}

		// Exponential warm-up from ambient, coolant lagging slightly.
		ambient := 19 + rng.NormFloat64()*0.5
		engineTemp[i] = ambient + 72*(1-math.Exp(-t[i]/480)) + rng.NormFloat64()*0.4
		coolantTemp[i] = ambient + 68*(1-math.Exp(-t[i]/600)) + rng.NormFloat64()*0.3
	}

	rpm = smooth(clip(rpm, 800, 7500), 5)
	throttle = smooth(clip(throttle, 0, 100), 3)
	brake = smooth(clip(brake, 0, 180), 3)

	for i := 0; i < n; i++ {
		// Battery sags under load; oil pressure rises with RPM.
		battery[i] = 14.3 - (rpm[i]/7500)*0.6 + rng.NormFloat64()*0.05
		oilPressure[i] = 1.8 + (rpm[i]/7500)*4.5 + rng.NormFloat64()*0.08
		fuel[i] = startFuel - (t[i]/3600)*fuelRate + rng.NormFloat64()*0.05
	}
	battery = clip(battery, 13.4, 14.8)
	oilPressure = clip(oilPressure, 1.5, 7.0)
	fuel = clip(fuel, 0, 100)

	return map[string]seedChannel{
		"vehicle_speed":   {values: speed, unit: "km/h"},
		"engine_rpm":      {values: rpm, unit: "rpm"},
		"throttle_pos":    {values: throttle, unit: "%"},
		"brake_pressure":  {values: brake, unit: "bar"},
		"engine_temp":     {values: engineTemp, unit: "°C"},
		"coolant_temp":    {values: coolantTemp, unit: "°C"},
		"battery_voltage": {values: battery, unit: "V"},
		"oil_pressure":    {values: oilPressure, unit: "bar"},
		"fuel_level":      {values: fuel, unit: "%"},
	}
}

func sampleTimes(n int) []float64 {
	t := make([]float64, n)
	for i := range t {
		t[i] = float64(i) * seedSampleInterval
	}
	return t
}

// smooth applies a centered moving average to remove hard edges.
func smooth(arr []float64, window int) []float64 {
	n := len(arr)
	out := make([]float64, n)
	half := window / 2
	for i := 0; i < n; i++ {
		lo := max(0, i-half)
		hi := min(n, i+half+1)
		var sum float64
		for j := lo; j < hi; j++ {
			sum += arr[j]
		}
		out[i] = sum / float64(hi-lo)
	}
	return out
}

func clip(arr []float64, lo, hi float64) []float64 {
	out := make([]float64, len(arr))
	for i, v := range arr {
		out[i] = math.Min(hi, math.Max(lo, v))
	}
	return out
}
