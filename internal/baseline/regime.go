package baseline

import (
	"github.com/openntia/pfewatch/internal/models"
)

// minRegimeSamples is the minimum number of valid recent samples required
// before a regime change may fire.
const minRegimeSamples = 20

// sustainedRegimePct is the fraction of individual samples that must
// independently deviate before a level shift counts as sustained rather
// than a single outlier masquerading as a new steady state.
const sustainedRegimePct = 0.70

// DetectRegimeChange reports whether recent behavior represents a new
// steady state relative to the historical baseline. It triggers when the
// recent mean rises above hist.Mean + threshold*hist.Std, or falls below
// half the historical mean, and at least 70% of the recent samples satisfy
// the same deviation condition individually. On trigger the recomputed
// recent baseline is returned as the new reference.
func (m *Manager) DetectRegimeChange(recent []models.Sample, hist Baseline) (bool, *Baseline) {
	if len(recent) == 0 || hist.Empty() {
		return false, nil
	}

	recentBaseline := m.Simple(recent)
	if recentBaseline.SampleCount < minRegimeSamples {
		return false, nil
	}

	upper := hist.Mean + m.RegimeThreshold*hist.Std
	lower := hist.Mean * 0.5

	if recentBaseline.Mean <= upper && recentBaseline.Mean >= lower {
		return false, nil
	}

	values := models.ValidValues(recent)
	sustained := 0
	for _, v := range values {
		if v > upper || v < lower {
			sustained++
		}
	}

	if float64(sustained)/float64(len(values)) < sustainedRegimePct {
		return false, nil
	}

	return true, &recentBaseline
}
