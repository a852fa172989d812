package detect

import "fmt"

// detectIncreasingTrend looks for steady acceleration in the hourly
// aggregate: a run of strictly increasing hourly values long enough to
// rule out noise, with meaningful overall growth and a non-trivial final
// rate. Only evaluated when the lookback covers at least six hours.
func (e *Engine) detectIncreasingTrend(in Input) *Detection {
	if e.params.LookbackHours < 6 {
		return nil
	}

	samples := in.Hourly.ValidSamples()
	minPoints := e.params.TrendMinPoints
	if minPoints < 2 {
		minPoints = 2
	}
	if len(samples) < minPoints {
		return nil
	}

	// Longest strictly increasing run ending at each position; report the
	// first run that satisfies every condition.
	runStart := 0
	for i := 1; i < len(samples); i++ {
		if *samples[i].Value <= *samples[i-1].Value {
			runStart = i
			continue
		}
		length := i - runStart + 1
		if length < minPoints {
			continue
		}

		first := *samples[runStart].Value
		last := *samples[i].Value
		growth := (last - first) / e.clampDenominator(first)
		if growth <= e.params.TrendGrowth || last < 1.0 {
			continue
		}

		return &Detection{
			Key:        in.Key,
			Severity:   e.severityFor(in.Key.Exception),
			Rule:       RuleTrend,
			DetectedAt: samples[runStart].Time,
			Details: fmt.Sprintf(
				"Increasing trend: %d consecutive rising hourly values, %.2f -> %.2f exc/s (+%.0f%%)",
				length, first, last, growth*100),
		}
	}
	return nil
}
