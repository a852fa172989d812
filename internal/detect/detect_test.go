package detect

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openntia/pfewatch/internal/baseline"
	"github.com/openntia/pfewatch/internal/models"
)

func testKey() models.SeriesKey {
	return models.SeriesKey{Device: "mx480-lab1", Slot: "0", Exception: "sw_error"}
}

func seriesFrom(start time.Time, step time.Duration, values []float64) models.Series {
	s := models.Series{Key: testKey()}
	for i, v := range values {
		s.Samples = append(s.Samples, models.NewSample(start.Add(time.Duration(i)*step), v))
	}
	return s
}

func staticEngine() *Engine {
	p := DefaultParams()
	p.UseDynamicBaseline = false
	return NewEngine(p, baseline.NewManager(), DefaultSeverityMap(), nil)
}

func TestNewExceptionCanonicalSeries(t *testing.T) {
	e := staticEngine()
	start := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	in := Input{
		Key:    testKey(),
		Recent: seriesFrom(start, time.Minute, []float64{0.0, 0.0, 0.6, 0.7, 0.8}),
	}

	d := e.detectNewException(in)
	require.NotNil(t, d)
	assert.Equal(t, RuleNewException, d.Rule)
	// Anchored at the first sample >= 0.5 after the sub-0.1 sample.
	assert.Equal(t, start.Add(2*time.Minute), d.DetectedAt)
	assert.Equal(t, SeverityHigh, d.Severity)
}

func TestNewExceptionRequiresIdlePredecessor(t *testing.T) {
	e := staticEngine()
	start := time.Now().Add(-time.Hour)
	in := Input{
		Key:    testKey(),
		Recent: seriesFrom(start, time.Minute, []float64{0.6, 0.7, 0.8, 0.9}),
	}
	assert.Nil(t, e.detectNewException(in))
}

func TestNewExceptionIgnoresShortRuns(t *testing.T) {
	e := staticEngine()
	start := time.Now().Add(-time.Hour)
	in := Input{
		Key:    testKey(),
		Recent: seriesFrom(start, time.Minute, []float64{0.0, 0.6, 0.7, 0.0, 0.9}),
	}
	assert.Nil(t, e.detectNewException(in))
}

// spikeBaseline builds a 48h 5m-aggregate series with mean 0.1 and a small
// spread so std lands near 0.05.
func spikeBaseline(start time.Time) models.Series {
	s := models.Series{Key: testKey()}
	for i := 0; i < 48; i++ {
		v := 0.05
		if i%2 == 0 {
			v = 0.15
		}
		s.Samples = append(s.Samples, models.NewSample(start.Add(time.Duration(i)*5*time.Minute), v))
	}
	return s
}

func TestSpikeDetected(t *testing.T) {
	e := staticEngine()
	start := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	in := Input{
		Key:      testKey(),
		Baseline: spikeBaseline(start),
		Recent:   seriesFrom(start.Add(47*time.Hour), time.Minute, []float64{0.1, 1.0, 0.1}),
	}

	d := e.detectSpike(in)
	require.NotNil(t, d)
	assert.Equal(t, RuleSpike, d.Rule)
	assert.Equal(t, start.Add(47*time.Hour).Add(time.Minute), d.DetectedAt)
}

func TestSpikeBelowBoundNotDetected(t *testing.T) {
	e := staticEngine()
	start := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	in := Input{
		Key:      testKey(),
		Baseline: spikeBaseline(start),
		Recent:   seriesFrom(start.Add(47*time.Hour), time.Minute, []float64{0.1, 0.2, 0.1}),
	}
	assert.Nil(t, e.detectSpike(in))
}

func TestSpikeSkippedWithoutBaseline(t *testing.T) {
	e := staticEngine()
	start := time.Now().Add(-time.Hour)
	in := Input{
		Key:      testKey(),
		Baseline: seriesFrom(start.Add(-2*time.Hour), 5*time.Minute, []float64{0.1, 0.1}),
		Recent:   seriesFrom(start, time.Minute, []float64{5.0, 5.0, 5.0}),
	}
	assert.Nil(t, e.detectSpike(in))
}

func TestSustainedIncreaseDetected(t *testing.T) {
	e := staticEngine()
	start := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	base := models.Series{Key: testKey()}
	for i := 0; i < 20; i++ {
		base.Samples = append(base.Samples, models.NewSample(start.Add(time.Duration(i)*5*time.Minute), 1.0))
	}
	in := Input{
		Key:      testKey(),
		Baseline: base,
		Recent:   seriesFrom(start.Add(2*time.Hour), time.Minute, []float64{1.8, 1.9, 2.0, 1.7}),
	}

	d := e.detectSustained(in)
	require.NotNil(t, d)
	assert.Equal(t, RuleSustained, d.Rule)
}

func TestSustainedSkipsIdleSeries(t *testing.T) {
	e := staticEngine()
	start := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	base := models.Series{Key: testKey()}
	for i := 0; i < 20; i++ {
		base.Samples = append(base.Samples, models.NewSample(start.Add(time.Duration(i)*5*time.Minute), 0.01))
	}
	in := Input{
		Key:      testKey(),
		Baseline: base,
		Recent:   seriesFrom(start.Add(2*time.Hour), time.Minute, []float64{0.05, 0.06, 0.05}),
	}
	assert.Nil(t, e.detectSustained(in))
}

func TestSustainedNewSeriesBranch(t *testing.T) {
	e := staticEngine()
	start := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	in := Input{
		Key:    testKey(),
		Recent: seriesFrom(start, time.Minute, []float64{0.6, 0.7, 0.8}),
	}

	d := e.detectSustained(in)
	require.NotNil(t, d)
	assert.Equal(t, RuleSustainedNew, d.Rule)
}

func TestSustainedNewSeriesBelowThresholdSkipped(t *testing.T) {
	e := staticEngine()
	start := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	in := Input{
		Key:    testKey(),
		Recent: seriesFrom(start, time.Minute, []float64{0.2, 0.3, 0.2}),
	}
	assert.Nil(t, e.detectSustained(in))
}

func TestWeeklyDeviationDetected(t *testing.T) {
	e := staticEngine()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	weekAgo := now.Add(-168 * time.Hour)

	weekly := models.Series{Key: testKey()}
	for i := 0; i < 12; i++ {
		weekly.Samples = append(weekly.Samples, models.NewSample(weekAgo.Add(time.Duration(i)*5*time.Minute), 1.0))
	}
	in := Input{
		Key:    testKey(),
		Weekly: weekly,
		Recent: seriesFrom(now.Add(-time.Hour), time.Minute, []float64{2.0, 2.1, 2.2}),
	}

	d := e.detectWeeklyDeviation(in)
	require.NotNil(t, d)
	assert.Equal(t, RuleWeekly, d.Rule)
}

func TestWeeklyDeviationNeedsAbsoluteLevel(t *testing.T) {
	e := staticEngine()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	weekAgo := now.Add(-168 * time.Hour)

	weekly := models.Series{Key: testKey()}
	for i := 0; i < 12; i++ {
		weekly.Samples = append(weekly.Samples, models.NewSample(weekAgo.Add(time.Duration(i)*5*time.Minute), 0.1))
	}
	// 5x the weekly mean but still under 1.0 exc/s.
	in := Input{
		Key:    testKey(),
		Weekly: weekly,
		Recent: seriesFrom(now.Add(-time.Hour), time.Minute, []float64{0.5, 0.5, 0.5}),
	}
	assert.Nil(t, e.detectWeeklyDeviation(in))
}

func TestIncreasingTrendDetected(t *testing.T) {
	p := DefaultParams()
	p.UseDynamicBaseline = false
	p.LookbackHours = 6
	e := NewEngine(p, nil, nil, nil)

	start := time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC)
	in := Input{
		Key:    testKey(),
		Hourly: seriesFrom(start, time.Hour, []float64{0.8, 1.0, 1.3, 1.7, 2.2}),
	}

	d := e.detectIncreasingTrend(in)
	require.NotNil(t, d)
	assert.Equal(t, RuleTrend, d.Rule)
	assert.Equal(t, start, d.DetectedAt)
}

func TestIncreasingTrendRequiresLongLookback(t *testing.T) {
	e := staticEngine() // lookback 1h
	start := time.Now().Add(-6 * time.Hour)
	in := Input{
		Key:    testKey(),
		Hourly: seriesFrom(start, time.Hour, []float64{0.8, 1.0, 1.3, 1.7, 2.2}),
	}
	assert.Nil(t, e.detectIncreasingTrend(in))
}

func TestIncreasingTrendRejectsFlatRun(t *testing.T) {
	p := DefaultParams()
	p.UseDynamicBaseline = false
	p.LookbackHours = 6
	e := NewEngine(p, nil, nil, nil)

	start := time.Now().Add(-6 * time.Hour)
	in := Input{
		Key:    testKey(),
		Hourly: seriesFrom(start, time.Hour, []float64{1.0, 1.1, 1.1, 1.2, 1.3}),
	}
	assert.Nil(t, e.detectIncreasingTrend(in))
}

func TestCorrelatedDetection(t *testing.T) {
	e := staticEngine()
	start := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	mkInput := func(exception string) Input {
		key := models.SeriesKey{Device: "mx480-lab1", Slot: "2", Exception: exception}
		base := models.Series{Key: key}
		for i := 0; i < 20; i++ {
			base.Samples = append(base.Samples, models.NewSample(start.Add(time.Duration(i)*5*time.Minute), 0.3))
		}
		recent := models.Series{Key: key}
		for i, v := range []float64{1.0, 1.1, 1.2} {
			recent.Samples = append(recent.Samples, models.NewSample(start.Add(3*time.Hour).Add(time.Duration(i)*time.Minute), v))
		}
		return Input{Key: key, Baseline: base, Recent: recent}
	}

	inputs := []Input{mkInput("sw_error"), mkInput("hw_error"), mkInput("resolve")}
	detections := e.EvaluateCorrelated(inputs)

	require.Len(t, detections, 1)
	d := detections[0]
	assert.Equal(t, RuleCorrelated, d.Rule)
	assert.Equal(t, "multiple", d.Key.Exception)
	// hw_error is CRITICAL and wins the severity vote.
	assert.Equal(t, SeverityCritical, d.Severity)
}

func TestCorrelatedSortsUnorderedRecent(t *testing.T) {
	e := staticEngine()
	start := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	recentStart := start.Add(3 * time.Hour)

	// Recent samples arrive newest-first; the contributor timestamp must
	// still be the earliest sample above the baseline mean.
	mkInput := func(exception string) Input {
		key := models.SeriesKey{Device: "mx480-lab1", Slot: "2", Exception: exception}
		base := models.Series{Key: key}
		for i := 0; i < 20; i++ {
			base.Samples = append(base.Samples, models.NewSample(start.Add(time.Duration(i)*5*time.Minute), 0.3))
		}
		recent := models.Series{Key: key, Samples: []models.Sample{
			models.NewSample(recentStart.Add(2*time.Minute), 1.2),
			models.NewSample(recentStart, 1.0),
			models.NewSample(recentStart.Add(time.Minute), 1.1),
		}}
		return Input{Key: key, Baseline: base, Recent: recent}
	}

	detections := e.EvaluateCorrelated([]Input{mkInput("sw_error"), mkInput("hw_error")})
	require.Len(t, detections, 1)
	assert.Equal(t, recentStart, detections[0].DetectedAt)
}

func TestCorrelatedNeedsMultipleTypes(t *testing.T) {
	e := staticEngine()
	start := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	key := models.SeriesKey{Device: "mx480-lab1", Slot: "2", Exception: "sw_error"}
	base := models.Series{Key: key}
	for i := 0; i < 20; i++ {
		base.Samples = append(base.Samples, models.NewSample(start.Add(time.Duration(i)*5*time.Minute), 0.3))
	}
	in := Input{
		Key:      key,
		Baseline: base,
		Recent:   seriesFrom(start.Add(3*time.Hour), time.Minute, []float64{1.0, 1.1, 1.2}),
	}

	assert.Empty(t, e.EvaluateCorrelated([]Input{in}))
}

func TestEvaluateStaticVersusDynamicExclusive(t *testing.T) {
	start := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	in := Input{
		Key:      testKey(),
		Baseline: spikeBaseline(start),
		Recent:   seriesFrom(start.Add(47*time.Hour), time.Minute, []float64{0.1, 1.0, 0.1}),
	}

	static := staticEngine().Evaluate(in)
	for _, d := range static {
		assert.NotContains(t, d.Rule, "_dynamic")
	}

	dynamic := NewEngine(DefaultParams(), nil, nil, nil).Evaluate(in)
	for _, d := range dynamic {
		assert.NotEqual(t, RuleSpike, d.Rule)
		assert.NotEqual(t, RuleSustained, d.Rule)
	}
}

func TestDetectionConfidenceAbsence(t *testing.T) {
	d := Detection{Key: testKey(), Severity: SeverityLow}
	assert.False(t, d.HasConfidence())
	assert.Zero(t, d.ConfidenceValue())

	c := 0.9
	d.Confidence = &c
	assert.True(t, d.HasConfidence())
	assert.Equal(t, 0.9, d.ConfidenceValue())
}
