package detect

import "fmt"

// detectWeeklyDeviation compares the recent window against the same time
// of week seven days earlier. Catches regressions that a 2-day baseline
// normalizes away, such as a level shift that has persisted for days.
func (e *Engine) detectWeeklyDeviation(in Input) *Detection {
	weekly := in.Weekly.ValidValues()
	if len(weekly) < e.params.MinBaselineSamples {
		return nil
	}

	values := in.Recent.ValidValues()
	if len(values) < e.params.MinConsecutiveSamples {
		return nil
	}

	recentMean := meanOf(values)
	weeklyMean := meanOf(weekly)
	ratio := recentMean / e.clampDenominator(weeklyMean)
	if recentMean < 1.0 || ratio <= e.params.WeeklyRatio {
		return nil
	}

	at, ok := firstSampleAbove(in.Recent.Samples, weeklyMean)
	if !ok {
		return nil
	}
	return &Detection{
		Key:        in.Key,
		Severity:   e.severityFor(in.Key.Exception),
		Rule:       RuleWeekly,
		DetectedAt: at,
		Details: fmt.Sprintf(
			"Weekly deviation: recent mean %.2f exc/s vs %.2f exc/s same time last week (%.1fx)",
			recentMean, weeklyMean, ratio),
	}
}
