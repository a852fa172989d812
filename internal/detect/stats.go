package detect

import (
	"time"

	"github.com/openntia/pfewatch/internal/models"
)

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func minOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	min := values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
	}
	return min
}

// maxSample returns the largest valid sample and its timestamp. The bool is
// false when the series has no valid samples.
func maxSample(samples []models.Sample) (float64, time.Time, bool) {
	found := false
	var maxV float64
	var maxT time.Time
	for _, s := range samples {
		if s.Value == nil {
			continue
		}
		if !found || *s.Value > maxV {
			maxV = *s.Value
			maxT = s.Time
			found = true
		}
	}
	return maxV, maxT, found
}

// refTime anchors window-relative baselines on the data itself so replayed
// or backfilled batches behave the same as live ones. Falls back to the
// wall clock when the input carries no timestamps at all.
func refTime(in Input) time.Time {
	var ref time.Time
	for _, set := range [][]models.Sample{in.Recent.Samples, in.Baseline.Samples} {
		for _, s := range set {
			if s.Time.After(ref) {
				ref = s.Time
			}
		}
	}
	if ref.IsZero() {
		return time.Now()
	}
	return ref
}

// fractionAbove reports the share of valid samples strictly greater than
// the given bound.
func fractionAbove(samples []models.Sample, bound float64) float64 {
	valid := 0
	above := 0
	for _, s := range samples {
		if s.Value == nil {
			continue
		}
		valid++
		if *s.Value > bound {
			above++
		}
	}
	if valid == 0 {
		return 0
	}
	return float64(above) / float64(valid)
}

// firstSampleAbove returns the timestamp of the earliest valid sample whose
// value strictly exceeds the bound, falling back to the earliest valid
// sample when none exceed it.
func firstSampleAbove(samples []models.Sample, bound float64) (time.Time, bool) {
	var fallback time.Time
	haveFallback := false
	for _, s := range samples {
		if s.Value == nil {
			continue
		}
		if !haveFallback {
			fallback = s.Time
			haveFallback = true
		}
		if *s.Value > bound {
			return s.Time, true
		}
	}
	return fallback, haveFallback
}
