package ml

import (
	"fmt"
	"time"

	"github.com/openntia/pfewatch/internal/logging"
	"github.com/openntia/pfewatch/internal/models"
)

// MinSamples is the minimum number of valid samples needed before the
// outlier model is worth fitting.
const MinSamples = 20

// activityFloor skips series whose peak never reaches measurable activity.
const activityFloor = 0.1

// Detector scores one series at a time with an isolation forest fit fresh
// on each call; no training state persists between calls.
type Detector struct {
	Contamination float64
	NumTrees      int
	SubsampleSize int
	logger        *logging.Logger
}

// NewDetector creates a detector expecting the given contamination rate
// (fraction of points assumed anomalous, default 0.15).
func NewDetector(contamination float64, logger *logging.Logger) *Detector {
	if contamination <= 0 || contamination >= 0.5 {
		contamination = 0.15
	}
	if logger == nil {
		logger = logging.Global()
	}
	return &Detector{
		Contamination: contamination,
		NumTrees:      100,
		SubsampleSize: 256,
		logger:        logger,
	}
}

// Result describes the anomalous portion of a scored series.
type Result struct {
	Confidence     float64   // normalized confidence in [0,1]
	NumAnomalies   int       // flagged point count
	AnomalyPercent float64   // flagged points as % of the series
	MaxValue       float64   // peak anomalous value (exc/s)
	Baseline       float64   // mean of the non-anomalous points
	SeverityFactor float64   // peak over baseline
	DetectedAt     time.Time // timestamp of the highest-valued anomalous point
	Details        string
}

// Detect fits the forest on the series and reports the anomalous points
// when their normalized confidence reaches minConfidence. It returns nil
// for series that are too short, idle, below confidence, or that fail
// internally; a failure is logged and never propagated.
func (d *Detector) Detect(series models.Series, minConfidence float64) (result *Result) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("ML detection failed",
				"key", series.Key.String(), "panic", fmt.Sprint(r))
			result = nil
		}
	}()

	valid := series.ValidSamples()
	if len(valid) < MinSamples {
		return nil
	}

	values := make([]float64, len(valid))
	peak := 0.0
	for i, s := range valid {
		values[i] = *s.Value
		if values[i] > peak {
			peak = values[i]
		}
	}

	// No activity, nothing to flag.
	if peak < activityFloor {
		return nil
	}

	features := ExtractFeatures(values)
	forest := NewForest(d.NumTrees, d.SubsampleSize)
	forest.Fit(features, d.Contamination)
	scores := forest.Score(features)

	var anomalyIdx []int
	for i, s := range scores {
		if s > forest.Threshold() {
			anomalyIdx = append(anomalyIdx, i)
		}
	}
	if len(anomalyIdx) == 0 {
		return nil
	}

	confidence := normalizedConfidence(scores, anomalyIdx)
	if confidence < minConfidence {
		return nil
	}

	maxValue := values[anomalyIdx[0]]
	maxIdx := anomalyIdx[0]
	for _, i := range anomalyIdx[1:] {
		if values[i] > maxValue {
			maxValue = values[i]
			maxIdx = i
		}
	}

	flagged := make(map[int]bool, len(anomalyIdx))
	for _, i := range anomalyIdx {
		flagged[i] = true
	}
	var normalSum float64
	normalCount := 0
	for i, v := range values {
		if !flagged[i] {
			normalSum += v
			normalCount++
		}
	}
	meanNormal := 0.0
	if normalCount > 0 {
		meanNormal = normalSum / float64(normalCount)
	}

	severityFactor := maxValue
	if meanNormal > 0 {
		severityFactor = maxValue / meanNormal
	}

	pct := float64(len(anomalyIdx)) / float64(len(values)) * 100

	return &Result{
		Confidence:     confidence,
		NumAnomalies:   len(anomalyIdx),
		AnomalyPercent: pct,
		MaxValue:       maxValue,
		Baseline:       meanNormal,
		SeverityFactor: severityFactor,
		DetectedAt:     valid[maxIdx].Time,
		Details: fmt.Sprintf(
			"ML-detected anomaly: %d anomalous samples (%.0f%% of data). Peak: %.2f exc/s (baseline: %.2f exc/s, %.1fx). Confidence: %.0f%%",
			len(anomalyIdx), pct, maxValue, meanNormal, severityFactor, confidence*100),
	}
}

// normalizedConfidence maps the mean score of the flagged points onto the
// [min,max] score range of the whole batch, clamped to [0,1]. A degenerate
// zero-width range yields 0.5.
func normalizedConfidence(scores []float64, anomalyIdx []int) float64 {
	minScore, maxScore := scores[0], scores[0]
	for _, s := range scores[1:] {
		if s < minScore {
			minScore = s
		}
		if s > maxScore {
			maxScore = s
		}
	}

	if maxScore == minScore {
		return 0.5
	}

	var sum float64
	for _, i := range anomalyIdx {
		sum += scores[i]
	}
	meanAnomaly := sum / float64(len(anomalyIdx))

	confidence := (meanAnomaly - minScore) / (maxScore - minScore)
	if confidence < 0 {
		return 0
	}
	if confidence > 1 {
		return 1
	}
	return confidence
}
