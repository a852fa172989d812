package baseline

import (
	"fmt"
	"time"

	"github.com/openntia/pfewatch/internal/models"
)

// contextHourRadius is the hour-of-day tolerance for contextual matching.
const contextHourRadius = 2

// minContextualSamples is the floor below which the contextual filter falls
// back to the full series.
const minContextualSamples = 10

// Contextual computes a baseline restricted to samples whose time of day is
// within ±2 hours of ref (with midnight wraparound) and whose weekday class
// (weekday vs weekend) matches ref. When fewer than 10 samples match, the
// full valid series is used instead. The Context field records which filter
// actually produced the statistics.
func (m *Manager) Contextual(samples []models.Sample, ref time.Time) Baseline {
	valid := models.Series{Samples: samples}.ValidSamples()
	if len(valid) == 0 {
		return Baseline{}
	}

	refHour := ref.Hour()
	refWeekend := isWeekend(ref)

	var matched []float64
	for _, s := range valid {
		if hourDistance(s.Time.Hour(), refHour) <= contextHourRadius && isWeekend(s.Time) == refWeekend {
			matched = append(matched, *s.Value)
		}
	}

	context := fmt.Sprintf("hour=%d±%dh, weekend=%t", refHour, contextHourRadius, refWeekend)
	if len(matched) < minContextualSamples {
		// Not enough contextual data; degrade to the whole series.
		matched = make([]float64, 0, len(valid))
		for _, s := range valid {
			matched = append(matched, *s.Value)
		}
		context = "all (insufficient contextual samples)"
	}

	b := FromValues(matched)
	b.Context = context
	return b
}

// hourDistance returns the circular distance between two hours of day,
// so 23:00 vs 01:00 is 2 hours, not 22.
func hourDistance(a, b int) int {
	d := a - b
	if d < 0 {
		d = -d
	}
	if d > 12 {
		d = 24 - d
	}
	return d
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
