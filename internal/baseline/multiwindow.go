package baseline

import (
	"time"

	"github.com/openntia/pfewatch/internal/models"
)

// WindowWeights holds the adaptive weight assigned to each trailing window.
// Weights sum to 1.0 unless all windows are empty.
type WindowWeights struct {
	Short  float64 `json:"short"`
	Medium float64 `json:"medium"`
	Long   float64 `json:"long"`
}

// MultiWindowBaseline combines short/medium/long trailing-window baselines
// into a weighted composite.
type MultiWindowBaseline struct {
	Short     Baseline      `json:"short"`
	Medium    Baseline      `json:"medium"`
	Long      Baseline      `json:"long"`
	Composite Baseline      `json:"composite"`
	Weights   WindowWeights `json:"weights"`
}

// Base weights encode the recency preference before adjusting for data
// quality. The three factors mix 40/30/30.
const (
	baseWeightShort  = 0.5
	baseWeightMedium = 0.3
	baseWeightLong   = 0.2

	recencyShare      = 0.4
	availabilityShare = 0.3
	varianceShare     = 0.3
)

// MultiWindow splits the series into three trailing windows ending at ref
// (short/medium/long per the Manager configuration), computes a simple
// baseline per window and derives a composite as a weighted sum.
// Min and max of the composite are the global extremes across windows, not
// weighted: extremes must not be diluted.
func (m *Manager) MultiWindow(samples []models.Sample, ref time.Time) MultiWindowBaseline {
	if len(samples) == 0 {
		return MultiWindowBaseline{}
	}

	short := m.Simple(samplesSince(samples, ref.Add(-m.ShortWindow)))
	medium := m.Simple(samplesSince(samples, ref.Add(-m.MediumWindow)))
	long := m.Simple(samplesSince(samples, ref.Add(-m.LongWindow)))

	weights := adaptiveWeights(short, medium, long)
	composite := weightedComposite(short, medium, long, weights)

	return MultiWindowBaseline{
		Short:     short,
		Medium:    medium,
		Long:      long,
		Composite: composite,
		Weights:   weights,
	}
}

func samplesSince(samples []models.Sample, cutoff time.Time) []models.Sample {
	out := make([]models.Sample, 0, len(samples))
	for _, s := range samples {
		if !s.Time.Before(cutoff) {
			out = append(out, s)
		}
	}
	return out
}

// adaptiveWeights scores each window by recency preference, data
// availability and inverse variance, then normalizes to sum to 1.0.
func adaptiveWeights(short, medium, long Baseline) WindowWeights {
	total := short.SampleCount + medium.SampleCount + long.SampleCount
	if total == 0 {
		return WindowWeights{}
	}

	availShort := float64(short.SampleCount) / float64(total)
	availMedium := float64(medium.SampleCount) / float64(total)
	availLong := float64(long.SampleCount) / float64(total)

	maxStd := short.Std
	if medium.Std > maxStd {
		maxStd = medium.Std
	}
	if long.Std > maxStd {
		maxStd = long.Std
	}
	if maxStd < 0.01 {
		maxStd = 0.01
	}

	wShort := baseWeightShort*recencyShare + availShort*availabilityShare + (1-short.Std/maxStd)*varianceShare
	wMedium := baseWeightMedium*recencyShare + availMedium*availabilityShare + (1-medium.Std/maxStd)*varianceShare
	wLong := baseWeightLong*recencyShare + availLong*availabilityShare + (1-long.Std/maxStd)*varianceShare

	sum := wShort + wMedium + wLong
	if sum <= 0 {
		return WindowWeights{}
	}

	return WindowWeights{
		Short:  wShort / sum,
		Medium: wMedium / sum,
		Long:   wLong / sum,
	}
}

func weightedComposite(short, medium, long Baseline, w WindowWeights) Baseline {
	if w.Short+w.Medium+w.Long == 0 {
		return Baseline{}
	}

	var globalMin, globalMax float64
	seeded := false
	for _, b := range []Baseline{short, medium, long} {
		if b.Empty() {
			continue
		}
		if !seeded {
			globalMin, globalMax = b.Min, b.Max
			seeded = true
			continue
		}
		if b.Min < globalMin {
			globalMin = b.Min
		}
		if b.Max > globalMax {
			globalMax = b.Max
		}
	}

	return Baseline{
		Mean:        short.Mean*w.Short + medium.Mean*w.Medium + long.Mean*w.Long,
		Median:      short.Median*w.Short + medium.Median*w.Medium + long.Median*w.Long,
		Std:         short.Std*w.Short + medium.Std*w.Medium + long.Std*w.Long,
		Min:         globalMin,
		Max:         globalMax,
		P95:         short.P95*w.Short + medium.P95*w.Medium + long.P95*w.Long,
		SampleCount: short.SampleCount + medium.SampleCount + long.SampleCount,
	}
}
