package detect

import "fmt"

// detectSpike flags a short burst well above the 2-day static baseline:
// the recent max must clear mean+sigma·std, the absolute rate threshold,
// and the spike ratio against the baseline mean.
func (e *Engine) detectSpike(in Input) *Detection {
	base := e.baselines.Simple(in.Baseline.Samples)
	if base.SampleCount < e.params.MinBaselineSamples {
		return nil
	}

	max, maxT, ok := maxSample(in.Recent.Samples)
	if !ok {
		return nil
	}

	bound := base.Mean + e.params.SpikeSigma*base.Std
	ratio := max / e.clampDenominator(base.Mean)
	if max <= bound || max < e.params.RateThreshold || ratio <= e.params.SpikeRatio {
		return nil
	}

	return &Detection{
		Key:        in.Key,
		Severity:   e.severityFor(in.Key.Exception),
		Rule:       RuleSpike,
		DetectedAt: maxT,
		Details: fmt.Sprintf(
			"Spike: %.2f exc/s vs baseline %.2f±%.2f exc/s (%.1fx, bound %.2f)",
			max, base.Mean, base.Std, ratio, bound),
	}
}

// detectSpikeDynamic is the spike rule against the adaptive baseline: the
// EWMA upper bound replaces the static 3-sigma bound and the multi-window
// composite mean anchors the ratio. A detected regime change swaps the
// historical baseline for one recomputed from the new regime, so a series
// that has legitimately moved to a higher level does not alarm forever.
func (e *Engine) detectSpikeDynamic(in Input) *Detection {
	mw := e.baselines.MultiWindow(in.Baseline.Samples, refTime(in))
	composite := mw.Composite
	if composite.SampleCount < e.params.MinBaselineSamples {
		return nil
	}

	baselineType := "multi_window"
	regimeChanged, regimeBase := e.baselines.DetectRegimeChange(in.Recent.Samples, composite)
	if regimeChanged && regimeBase != nil {
		composite = *regimeBase
		baselineType = "regime_adjusted"
	}

	ewma := e.baselines.EWMA(in.Baseline.Samples, e.params.EWMAAlpha)
	if ewma.SampleCount == 0 {
		return nil
	}

	max, maxT, ok := maxSample(in.Recent.Samples)
	if !ok {
		return nil
	}

	ratio := max / e.clampDenominator(composite.Mean)
	if max <= ewma.UpperBound || max < e.params.RateThreshold || ratio <= e.params.SpikeRatio {
		return nil
	}

	return &Detection{
		Key:        in.Key,
		Severity:   e.severityFor(in.Key.Exception),
		Rule:       RuleSpikeDynamic,
		DetectedAt: maxT,
		Details: fmt.Sprintf(
			"Spike: %.2f exc/s vs adaptive baseline %.2f exc/s (%.1fx, EWMA bound %.2f, baseline=%s, regime_change=%t)",
			max, composite.Mean, ratio, ewma.UpperBound, baselineType, regimeChanged),
	}
}
