package detect

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/openntia/pfewatch/internal/models"
)

// correlatedExceptionType tags the synthetic key emitted when several
// exception types misbehave together on one forwarding engine.
const correlatedExceptionType = "multiple"

// minCorrelatedTypes is the number of distinct elevated exception types
// required before a device/slot is reported as correlated.
const minCorrelatedTypes = 2

// EvaluateCorrelated runs the cross-series correlation rule over all
// inputs of one analysis batch. For each device/slot where at least two
// distinct exception types are independently elevated above their own
// baselines, it emits a single synthetic detection whose severity is the
// highest among the contributors.
func (e *Engine) EvaluateCorrelated(inputs []Input) []Detection {
	type contributor struct {
		exception string
		mean      float64
		at        time.Time
	}
	groups := make(map[string][]contributor)
	keys := make(map[string]models.SeriesKey)

	for _, in := range inputs {
		// Inputs truncated out of the per-key pass arrive here unsorted;
		// the earliest-contributor timestamp depends on sample order.
		in.Recent.SortByTime()

		base := e.baselines.Simple(in.Baseline.Samples)
		if base.SampleCount < e.params.MinBaselineSamples {
			continue
		}
		values := in.Recent.ValidValues()
		if len(values) == 0 {
			continue
		}
		recentMean := meanOf(values)
		if recentMean < e.params.RateThreshold {
			continue
		}
		if recentMean <= e.params.SustainedRatio*e.clampDenominator(base.Mean) {
			continue
		}

		at, ok := firstSampleAbove(in.Recent.Samples, base.Mean)
		if !ok {
			continue
		}
		gk := in.Key.Device + "/" + in.Key.Slot
		groups[gk] = append(groups[gk], contributor{
			exception: in.Key.Exception,
			mean:      recentMean,
			at:        at,
		})
		keys[gk] = in.Key
	}

	var detections []Detection
	for gk, members := range groups {
		seen := make(map[string]bool)
		distinct := members[:0]
		for _, m := range members {
			if seen[m.exception] {
				continue
			}
			seen[m.exception] = true
			distinct = append(distinct, m)
		}
		if len(distinct) < minCorrelatedTypes {
			continue
		}

		sort.Slice(distinct, func(i, j int) bool {
			return distinct[i].exception < distinct[j].exception
		})

		severity := SeverityLow
		earliest := distinct[0].at
		names := make([]string, 0, len(distinct))
		for _, m := range distinct {
			if s := e.severityFor(m.exception); s < severity {
				severity = s
			}
			if m.at.Before(earliest) {
				earliest = m.at
			}
			names = append(names, fmt.Sprintf("%s (%.2f exc/s)", m.exception, m.mean))
		}

		src := keys[gk]
		detections = append(detections, Detection{
			Key: models.SeriesKey{
				Device:    src.Device,
				Slot:      src.Slot,
				Exception: correlatedExceptionType,
			},
			Severity:   severity,
			Rule:       RuleCorrelated,
			DetectedAt: earliest,
			Details: fmt.Sprintf(
				"Correlated increase across %d exception types: %s",
				len(distinct), strings.Join(names, ", ")),
		})
	}

	sort.Slice(detections, func(i, j int) bool {
		return detections[i].Key.String() < detections[j].Key.String()
	})
	return detections
}
