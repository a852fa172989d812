package detect

import "fmt"

// detectNewException finds a series that went from idle to active within
// the lookback window: MinConsecutiveSamples consecutive samples at or
// above the rate threshold, immediately preceded by a near-idle sample.
// Only the earliest qualifying window is reported; scanning stops at the
// first match.
func (e *Engine) detectNewException(in Input) *Detection {
	samples := in.Recent.ValidSamples()
	n := e.params.MinConsecutiveSamples
	if n < 1 {
		n = 1
	}
	if len(samples) < n+1 {
		return nil
	}

	for i := 1; i+n <= len(samples); i++ {
		if *samples[i-1].Value >= e.params.ActivityFloor {
			continue
		}
		run := samples[i : i+n]
		qualified := true
		for _, s := range run {
			if *s.Value < e.params.RateThreshold {
				qualified = false
				break
			}
		}
		if !qualified {
			continue
		}

		peak := *run[0].Value
		for _, s := range run[1:] {
			if *s.Value > peak {
				peak = *s.Value
			}
		}
		return &Detection{
			Key:        in.Key,
			Severity:   e.severityFor(in.Key.Exception),
			Rule:       RuleNewException,
			DetectedAt: run[0].Time,
			Details: fmt.Sprintf(
				"New exception activity: %d consecutive samples >= %.2f exc/s after idle period. Peak: %.2f exc/s",
				n, e.params.RateThreshold, peak),
		}
	}
	return nil
}
