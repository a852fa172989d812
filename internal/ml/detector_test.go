package ml

import (
	"math"
	"testing"
	"time"

	"github.com/openntia/pfewatch/internal/models"
)

func seriesOf(values []float64) models.Series {
	start := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	s := models.Series{Key: models.SeriesKey{Device: "mx480-lab1", Slot: "0", Exception: "sw_error"}}
	for i, v := range values {
		s.Samples = append(s.Samples, models.NewSample(start.Add(time.Duration(i)*time.Minute), v))
	}
	return s
}

func TestDetectSkipsShortSeries(t *testing.T) {
	d := NewDetector(0.15, nil)
	values := make([]float64, MinSamples-1)
	for i := range values {
		values[i] = 1.0
	}
	if got := d.Detect(seriesOf(values), 0); got != nil {
		t.Errorf("expected nil for %d samples, got %+v", len(values), got)
	}
}

func TestDetectSkipsIdleSeries(t *testing.T) {
	d := NewDetector(0.15, nil)
	values := make([]float64, 50)
	for i := range values {
		values[i] = 0.05 // everything below the activity floor
	}
	if got := d.Detect(seriesOf(values), 0); got != nil {
		t.Errorf("expected nil for idle series, got %+v", got)
	}
}

func TestDetectFlagsObviousOutlier(t *testing.T) {
	d := NewDetector(0.15, nil)
	values := make([]float64, 60)
	for i := range values {
		values[i] = 1.0 + 0.01*float64(i%3)
	}
	values[45] = 50.0

	res := d.Detect(seriesOf(values), 0)
	if res == nil {
		t.Fatal("expected a detection for a 50x outlier")
	}
	if res.MaxValue != 50.0 {
		t.Errorf("peak anomalous value: got %v, want 50.0", res.MaxValue)
	}
	wantAt := time.Date(2026, 3, 10, 0, 45, 0, 0, time.UTC)
	if !res.DetectedAt.Equal(wantAt) {
		t.Errorf("detectedAt: got %v, want %v", res.DetectedAt, wantAt)
	}
	if res.Confidence < 0 || res.Confidence > 1 {
		t.Errorf("confidence outside [0,1]: %v", res.Confidence)
	}
	if res.NumAnomalies < 1 {
		t.Errorf("anomaly count: got %d", res.NumAnomalies)
	}
}

func TestDetectRespectsConfidenceThreshold(t *testing.T) {
	d := NewDetector(0.15, nil)
	values := make([]float64, 60)
	for i := range values {
		values[i] = 1.0 + 0.01*float64(i%3)
	}
	values[45] = 50.0

	// An impossible threshold suppresses the report entirely.
	if got := d.Detect(seriesOf(values), 1.1); got != nil {
		t.Errorf("expected nil above max confidence, got %+v", got)
	}
}

func TestDetectFiltersNullSamples(t *testing.T) {
	d := NewDetector(0.15, nil)
	s := seriesOf([]float64{1, 1, 1, 1, 1})
	start := time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 30; i++ {
		s.Samples = append(s.Samples, models.NullSample(start.Add(time.Duration(i)*time.Minute)))
	}
	// 5 valid samples out of 35 total: below the valid-sample minimum.
	if got := d.Detect(s, 0); got != nil {
		t.Errorf("null samples counted toward the minimum: %+v", got)
	}
}

func TestNormalizedConfidenceDegenerateRange(t *testing.T) {
	scores := []float64{0.4, 0.4, 0.4, 0.4}
	if got := normalizedConfidence(scores, []int{1, 2}); got != 0.5 {
		t.Errorf("degenerate range confidence: got %v, want 0.5", got)
	}
}

func TestNormalizedConfidenceClamped(t *testing.T) {
	scores := []float64{0.1, 0.2, 0.9}
	got := normalizedConfidence(scores, []int{2})
	if got < 0 || got > 1 {
		t.Errorf("confidence outside [0,1]: %v", got)
	}
	if got != 1.0 {
		t.Errorf("max-score anomaly should normalize to 1.0, got %v", got)
	}
}

func TestExtractFeaturesShape(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6}
	features := ExtractFeatures(values)

	if len(features) != len(values) {
		t.Fatalf("feature rows: got %d, want %d", len(features), len(values))
	}
	for i, f := range features {
		if len(f) != 6 {
			t.Fatalf("row %d: got %d features, want 6", i, len(f))
		}
	}

	// Rate of change is 0 at the first point.
	if features[0][4] != 0 {
		t.Errorf("first-point rate of change: got %v", features[0][4])
	}
	// Moving std is 0 before five points exist.
	for i := 0; i < 4; i++ {
		if features[i][3] != 0 {
			t.Errorf("row %d: moving std should be 0, got %v", i, features[i][3])
		}
	}
	if features[5][3] == 0 {
		t.Error("moving std should be positive once five points exist")
	}

	// First feature is the raw value.
	for i, v := range values {
		if features[i][0] != v {
			t.Errorf("row %d: raw value feature got %v, want %v", i, features[i][0], v)
		}
	}
}

func TestExtractFeaturesRateOfChange(t *testing.T) {
	features := ExtractFeatures([]float64{2, 4})
	want := (4.0 - 2.0) / (2.0 + rocEpsilon)
	if math.Abs(features[1][4]-want) > 1e-9 {
		t.Errorf("rate of change: got %v, want %v", features[1][4], want)
	}
}

func TestForestSeparatesOutlier(t *testing.T) {
	data := make([][]float64, 0, 101)
	for i := 0; i < 100; i++ {
		data = append(data, []float64{1.0 + 0.01*float64(i%5), 1.0})
	}
	data = append(data, []float64{100.0, 100.0})

	f := NewForest(100, 256)
	f.Fit(data, 0.15)
	scores := f.Score(data)

	outlier := scores[len(scores)-1]
	inlierMax := 0.0
	for _, s := range scores[:len(scores)-1] {
		if s > inlierMax {
			inlierMax = s
		}
	}
	if outlier <= inlierMax {
		t.Errorf("outlier score %v not above inlier max %v", outlier, inlierMax)
	}
	if outlier <= f.Threshold() {
		t.Errorf("outlier score %v not above threshold %v", outlier, f.Threshold())
	}
}

func TestAveragePathLength(t *testing.T) {
	if got := averagePathLength(1); got != 0 {
		t.Errorf("c(1): got %v, want 0", got)
	}
	if got := averagePathLength(2); got <= 0 {
		t.Errorf("c(2): got %v, want > 0", got)
	}
	// c(n) grows with n.
	if averagePathLength(256) <= averagePathLength(16) {
		t.Error("c(n) should increase with n")
	}
}
