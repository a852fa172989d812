// Package models defines the data types shared across the analyzer:
// rate samples, series keys and the HTTP request/response envelopes.
package models

import (
	"fmt"
	"sort"
	"time"
)

// Sample is a single rate measurement in exceptions/second.
// A nil Value means the telemetry for that window is missing; it must be
// filtered before statistics, never treated as zero.
type Sample struct {
	Time  time.Time `json:"time"`
	Value *float64  `json:"value"`
}

// NewSample creates a sample with a present value.
func NewSample(t time.Time, v float64) Sample {
	return Sample{Time: t, Value: &v}
}

// NullSample creates a sample with missing telemetry.
func NullSample(t time.Time) Sample {
	return Sample{Time: t}
}

// SeriesKey uniquely identifies one logical exception-rate time series.
type SeriesKey struct {
	Device    string `json:"device"`
	Slot      string `json:"slot"`
	Exception string `json:"exception"`
}

// String renders the key as device/slot/exception.
func (k SeriesKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.Device, k.Slot, k.Exception)
}

// Series is an ordered sequence of samples for one key.
// Arrival order is not guaranteed; call SortByTime before windowed analysis.
type Series struct {
	Key     SeriesKey `json:"key"`
	Samples []Sample  `json:"samples"`
}

// SortByTime sorts samples ascending by timestamp.
func (s *Series) SortByTime() {
	sort.SliceStable(s.Samples, func(i, j int) bool {
		return s.Samples[i].Time.Before(s.Samples[j].Time)
	})
}

// ValidValues returns the values of all samples with present telemetry.
func (s Series) ValidValues() []float64 {
	values := make([]float64, 0, len(s.Samples))
	for _, sm := range s.Samples {
		if sm.Value != nil {
			values = append(values, *sm.Value)
		}
	}
	return values
}

// ValidSamples returns the samples with present telemetry.
func (s Series) ValidSamples() []Sample {
	samples := make([]Sample, 0, len(s.Samples))
	for _, sm := range s.Samples {
		if sm.Value != nil {
			samples = append(samples, sm)
		}
	}
	return samples
}

// ValidValues filters nil values out of a raw sample slice.
func ValidValues(samples []Sample) []float64 {
	return Series{Samples: samples}.ValidValues()
}
