package services

import (
	"sort"

	"github.com/openntia/pfewatch/internal/detect"
)

// Summary aggregates one analysis run's detections.
type Summary struct {
	Total        int            `json:"total"`
	BySeverity   map[string]int `json:"by_severity"`
	MLDetections int            `json:"ml_detections"`
}

// Fuse deduplicates candidate detections by series key and ranks the
// result. On a key collision the candidate with the higher ML confidence
// wins; with equal confidence (including both absent) the numerically
// lower severity rank wins. The final ordering is ascending severity rank,
// then descending confidence, detections without confidence after those
// with any confidence at the same severity.
func Fuse(candidates []detect.Detection) []detect.Detection {
	byKey := make(map[string]detect.Detection, len(candidates))
	order := make([]string, 0, len(candidates))

	for _, c := range candidates {
		k := c.Key.String()
		existing, seen := byKey[k]
		if !seen {
			byKey[k] = c
			order = append(order, k)
			continue
		}
		if preferred(c, existing) {
			byKey[k] = c
		}
	}

	fused := make([]detect.Detection, 0, len(byKey))
	for _, k := range order {
		fused = append(fused, byKey[k])
	}

	sort.SliceStable(fused, func(i, j int) bool {
		a, b := fused[i], fused[j]
		if a.Severity != b.Severity {
			return a.Severity < b.Severity
		}
		if a.HasConfidence() != b.HasConfidence() {
			return a.HasConfidence()
		}
		return a.ConfidenceValue() > b.ConfidenceValue()
	})
	return fused
}

// preferred reports whether a should replace b for the same key.
func preferred(a, b detect.Detection) bool {
	if a.ConfidenceValue() != b.ConfidenceValue() {
		return a.ConfidenceValue() > b.ConfidenceValue()
	}
	return a.Severity < b.Severity
}

// Summarize counts detections by severity and ML provenance.
func Summarize(detections []detect.Detection) Summary {
	s := Summary{
		Total:      len(detections),
		BySeverity: make(map[string]int),
	}
	for _, d := range detections {
		s.BySeverity[d.Severity.String()]++
		if d.Rule == detect.RuleMLOutlier {
			s.MLDetections++
		}
	}
	return s
}
