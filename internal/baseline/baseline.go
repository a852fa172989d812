// Package baseline computes statistical reference distributions from
// historical exception-rate samples: simple window statistics, contextual
// (time-of-day aware) baselines, multi-window composites with adaptive
// weights, EWMA reactive baselines and regime-change detection.
package baseline

import (
	"math"
	"sort"
	"time"

	"github.com/openntia/pfewatch/internal/models"
)

// Baseline is an immutable statistical snapshot of a finite sample set.
// A Baseline with SampleCount == 0 is the canonical empty baseline: all
// statistics are zero and consumers must skip rather than act on it.
type Baseline struct {
	Mean        float64 `json:"mean"`
	Median      float64 `json:"median"`
	Std         float64 `json:"std"`
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
	P95         float64 `json:"p95"`
	SampleCount int     `json:"sample_count"`
	Context     string  `json:"context,omitempty"`
}

// Empty returns true when the baseline was computed from no valid samples.
func (b Baseline) Empty() bool {
	return b.SampleCount == 0
}

// Manager computes baselines over configurable windows. Construct one per
// analysis pipeline and pass it to consumers; there is no package-level
// instance.
type Manager struct {
	ShortWindow     time.Duration
	MediumWindow    time.Duration
	LongWindow      time.Duration
	Alpha           float64
	RegimeThreshold float64
}

// NewManager creates a Manager with the default window layout:
// 2h short, 24h medium, 168h (7 days) long, alpha 0.3, regime threshold 2.0.
func NewManager() *Manager {
	return &Manager{
		ShortWindow:     2 * time.Hour,
		MediumWindow:    24 * time.Hour,
		LongWindow:      168 * time.Hour,
		Alpha:           0.3,
		RegimeThreshold: 2.0,
	}
}

// Simple computes mean/median/std/min/max/p95 over the valid samples.
// Missing values are filtered first; empty input yields the empty Baseline.
func (m *Manager) Simple(samples []models.Sample) Baseline {
	return FromValues(models.ValidValues(samples))
}

// FromValues computes a Baseline directly from a value slice.
func FromValues(values []float64) Baseline {
	if len(values) == 0 {
		return Baseline{}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	return Baseline{
		Mean:        mean(values),
		Median:      medianSorted(sorted),
		Std:         sampleStd(values),
		Min:         sorted[0],
		Max:         sorted[len(sorted)-1],
		P95:         percentileSorted(sorted, 0.95),
		SampleCount: len(values),
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// sampleStd is the n-1 standard deviation; 0 when fewer than two values.
func sampleStd(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	var sumSq float64
	for _, v := range values {
		diff := v - m
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(len(values)-1))
}

func medianSorted(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// percentileSorted uses the nearest-rank method: index floor(n*p) clamped
// to the last element.
func percentileSorted(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(float64(len(sorted)) * p)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
