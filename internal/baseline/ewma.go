package baseline

import (
	"math"
	"sort"

	"github.com/openntia/pfewatch/internal/models"
)

// EWMABaseline is a reactive baseline giving more weight to recent samples.
// LowerBound is floored at 0 since rates cannot be negative.
type EWMABaseline struct {
	EWMA        float64 `json:"ewma"`
	EWMAStd     float64 `json:"ewma_std"`
	UpperBound  float64 `json:"upper_bound"`
	LowerBound  float64 `json:"lower_bound"`
	SampleCount int     `json:"sample_count"`
	Alpha       float64 `json:"alpha"`
}

// EWMA computes an exponentially weighted moving average baseline. Samples
// are sorted ascending by time, the average is seeded with the first value
// and smoothed with ewma = alpha*v + (1-alpha)*ewma. The variance recurrence
// runs over all values against the final average; bounds sit at ±3 sigma.
// An alpha outside (0,1] falls back to the Manager's configured alpha.
func (m *Manager) EWMA(samples []models.Sample, alpha float64) EWMABaseline {
	if alpha <= 0 || alpha > 1 {
		alpha = m.Alpha
	}

	valid := models.Series{Samples: samples}.ValidSamples()
	if len(valid) == 0 {
		return EWMABaseline{Alpha: alpha}
	}

	sort.SliceStable(valid, func(i, j int) bool {
		return valid[i].Time.Before(valid[j].Time)
	})

	ewma := *valid[0].Value
	for _, s := range valid[1:] {
		ewma = alpha**s.Value + (1-alpha)*ewma
	}

	var ewmaVar float64
	for _, s := range valid {
		diff := *s.Value - ewma
		ewmaVar = alpha*diff*diff + (1-alpha)*ewmaVar
	}
	ewmaStd := math.Sqrt(ewmaVar)

	lower := ewma - 3*ewmaStd
	if lower < 0 {
		lower = 0
	}

	return EWMABaseline{
		EWMA:        ewma,
		EWMAStd:     ewmaStd,
		UpperBound:  ewma + 3*ewmaStd,
		LowerBound:  lower,
		SampleCount: len(valid),
		Alpha:       alpha,
	}
}
