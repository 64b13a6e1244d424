// Package estimator computes expected-ready times for queue
// positions. The structural model comes from the service parameters;
// recent observed waits nudge the result more the further back in
// the queue a position sits.
package estimator

import (
	"errors"
	"math"
	"sort"
	"time"

	"queueease/queue-service/internal/models"
)

var ErrInvalidPosition = errors.New("position must be >= 1")

const (
	defaultParallelCapacity = 8
	defaultAverageDuration  = 15
	defaultMinimalPrep      = 5

	// Immediate services grow sublinearly with position and are
	// capped hard: a walk-up line projecting an hour is less useful
	// than a capped underestimate.
	immediateGrowthFactor = 2.5
	immediateSoftCap      = 20.0
	immediateHardCap      = 25.0

	outlierTrimMin = 5
)

// Estimate returns the expected-ready time and the rounded wait in
// minutes for the given 1-indexed position. samples are observed
// completed waits in minutes, already windowed by SelectSamples.
func Estimate(svc models.Service, position int, samples []int, now time.Time) (time.Time, int, error) {
	if position < 1 {
		return time.Time{}, 0, ErrInvalidPosition
	}

	capacity := svc.ParallelCapacity
	if capacity < 1 {
		capacity = defaultParallelCapacity
	}
	avgDuration := svc.AverageDuration
	if avgDuration <= 0 {
		avgDuration = defaultAverageDuration
	}
	minimalPrep := svc.MinimalPrepTime
	if minimalPrep <= 0 {
		minimalPrep = defaultMinimalPrep
	}

	historical, hasHistory := trimmedMean(samples)

	var wait float64
	if svc.ServiceType == models.ServiceTypeImmediate {
		if position == 1 {
			wait = float64(minimalPrep)
		} else {
			wait = float64(minimalPrep) + math.Pow(float64(position-1), 0.6)*immediateGrowthFactor
			if wait > immediateSoftCap {
				wait = immediateSoftCap
			}
		}
		if hasHistory {
			weight := 0.05
			if position > 1 {
				weight = math.Min(0.15, 0.05+float64(position)*0.02)
			}
			wait = wait*(1-weight) + historical*weight
		}
		if wait > immediateHardCap {
			wait = immediateHardCap
		}
	} else {
		wave := (position - 1) / capacity
		wait = float64(wave * avgDuration)
		if svc.RequiresPrepTime && wave == 0 && wait < float64(minimalPrep) {
			wait = float64(minimalPrep)
		}
		if hasHistory {
			weight := math.Min(0.3, 0.1+float64(wave)*0.1)
			wait = wait*(1-weight) + historical*weight
		}
	}

	minutes := int(math.Round(wait))
	return now.Add(time.Duration(minutes) * time.Minute), minutes, nil
}

// trimmedMean averages the samples after discarding the tails below
// the 15th and above the 85th percentile when enough points exist.
// If trimming removes everything the plain mean is used.
func trimmedMean(samples []int) (float64, bool) {
	if len(samples) == 0 {
		return 0, false
	}
	if len(samples) < outlierTrimMin {
		return mean(samples), true
	}

	sorted := make([]int, len(samples))
	copy(sorted, samples)
	sort.Ints(sorted)

	lower := percentile(sorted, 15)
	upper := percentile(sorted, 85)

	var kept []int
	for _, v := range sorted {
		if float64(v) >= lower && float64(v) <= upper {
			kept = append(kept, v)
		}
	}
	if len(kept) == 0 {
		return mean(sorted), true
	}
	return mean(kept), true
}

func mean(values []int) float64 {
	sum := 0
	for _, v := range values {
		sum += v
	}
	return float64(sum) / float64(len(values))
}

// percentile uses linear interpolation over the sorted input.
func percentile(sorted []int, p float64) float64 {
	if len(sorted) == 1 {
		return float64(sorted[0])
	}
	rank := p / 100 * float64(len(sorted)-1)
	low := int(math.Floor(rank))
	high := int(math.Ceil(rank))
	if low == high {
		return float64(sorted[low])
	}
	frac := rank - float64(low)
	return float64(sorted[low]) + frac*float64(sorted[high]-sorted[low])
}
