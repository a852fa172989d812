package detect

import (
	"fmt"

	"github.com/openntia/pfewatch/internal/baseline"
)

// detectSustained flags a persistent level shift against the 2-day static
// baseline. A brand-new series (too few baseline samples) is a materially
// different case from a known series that shifted, so the two keep separate
// qualification thresholds and rule tags.
func (e *Engine) detectSustained(in Input) *Detection {
	base := e.baselines.Simple(in.Baseline.Samples)
	if base.SampleCount < e.params.MinBaselineSamples {
		return e.detectSustainedNewSeries(in)
	}
	return e.sustainedShift(in, base, RuleSustained, "")
}

// detectSustainedDynamic re-evaluates the sustained rule against the
// contextual/multi-window composite baseline.
func (e *Engine) detectSustainedDynamic(in Input) *Detection {
	mw := e.baselines.MultiWindow(in.Baseline.Samples, refTime(in))
	composite := mw.Composite
	if composite.SampleCount < e.params.MinBaselineSamples {
		return e.detectSustainedNewSeries(in)
	}

	annotation := "baseline=multi_window"
	if changed, regimeBase := e.baselines.DetectRegimeChange(in.Recent.Samples, composite); changed && regimeBase != nil {
		composite = *regimeBase
		annotation = "baseline=multi_window, regime_change=true"
	}
	return e.sustainedShift(in, composite, RuleSustainedDynamic, annotation)
}

// sustainedShift holds the shared qualification logic for the static and
// dynamic paths. Idle series (both means under the activity floor) carry
// no signal and are skipped outright.
func (e *Engine) sustainedShift(in Input, base baseline.Baseline, rule, annotation string) *Detection {
	values := in.Recent.ValidValues()
	if len(values) < e.params.MinConsecutiveSamples {
		return nil
	}

	recentMean := meanOf(values)
	recentMin := minOf(values)

	if recentMean < e.params.ActivityFloor && base.Mean < e.params.ActivityFloor {
		return nil
	}

	shifted := (recentMean >= 1.0 && base.Mean < 1.0) ||
		(base.Mean >= e.params.ActivityFloor && recentMean > e.params.SustainedRatio*base.Mean) ||
		(base.Mean > e.params.ActivityFloor && recentMin > base.Mean+base.Std)
	if !shifted {
		return nil
	}
	if fractionAbove(in.Recent.Samples, base.Mean) < e.params.SustainedPct {
		return nil
	}

	at, ok := firstSampleAbove(in.Recent.Samples, base.Mean)
	if !ok {
		return nil
	}

	details := fmt.Sprintf(
		"Sustained increase: recent mean %.2f exc/s vs baseline %.2f exc/s (%.1fx)",
		recentMean, base.Mean, recentMean/e.clampDenominator(base.Mean))
	if annotation != "" {
		details += " (" + annotation + ")"
	}
	return &Detection{
		Key:        in.Key,
		Severity:   e.severityFor(in.Key.Exception),
		Rule:       rule,
		DetectedAt: at,
		Details:    details,
	}
}

// detectSustainedNewSeries handles a key with no usable baseline: the
// series is brand new, so any meaningful sustained rate qualifies on its
// own merits with the baseline assumed zero.
func (e *Engine) detectSustainedNewSeries(in Input) *Detection {
	values := in.Recent.ValidValues()
	if len(values) < e.params.MinConsecutiveSamples {
		return nil
	}

	recentMean := meanOf(values)
	if recentMean < e.params.RateThreshold {
		return nil
	}

	at, ok := firstSampleAbove(in.Recent.Samples, 0)
	if !ok {
		return nil
	}
	return &Detection{
		Key:        in.Key,
		Severity:   e.severityFor(in.Key.Exception),
		Rule:       RuleSustainedNew,
		DetectedAt: at,
		Details: fmt.Sprintf(
			"Sustained activity on new series: mean %.2f exc/s with no prior baseline",
			recentMean),
	}
}
