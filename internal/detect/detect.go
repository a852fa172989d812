// Package detect implements the rule engine: independent heuristic rules
// evaluated per exception-rate series against baselines supplied by the
// baseline package. Rules communicate only through the shared input data
// and each produces zero or more candidate detections.
package detect

import (
	"time"

	"github.com/openntia/pfewatch/internal/baseline"
	"github.com/openntia/pfewatch/internal/logging"
	"github.com/openntia/pfewatch/internal/models"
)

// Rule name tags carried on detections.
const (
	RuleNewException     = "new_exception"
	RuleSpike            = "spike"
	RuleSpikeDynamic     = "spike_dynamic"
	RuleSustained        = "sustained_increase"
	RuleSustainedDynamic = "sustained_increase_dynamic"
	RuleSustainedNew     = "sustained_new_series"
	RuleWeekly           = "weekly_deviation"
	RuleTrend            = "increasing_trend"
	RuleCorrelated       = "multiple_correlated"
	RuleMLOutlier        = "ml_isolation_forest"
)

// Detection is a single candidate finding for one series key.
type Detection struct {
	Key           models.SeriesKey `json:"key"`
	Severity      Severity         `json:"severity"`
	Rule          string           `json:"rule"`
	DetectedAt    time.Time        `json:"detected_at"`
	Details       string           `json:"details"`
	Confidence    *float64         `json:"confidence,omitempty"`
	DashboardLink string           `json:"dashboard_link,omitempty"`
}

// ConfidenceValue returns the ML confidence, or 0 when absent. Absence is
// tracked separately via HasConfidence so a missing score is never
// conflated with a true 0.0.
func (d Detection) ConfidenceValue() float64 {
	if d.Confidence == nil {
		return 0
	}
	return *d.Confidence
}

// HasConfidence reports whether the detection carries an ML confidence.
func (d Detection) HasConfidence() bool {
	return d.Confidence != nil
}

// Params are the rule engine tunables. The defaults are the values the
// rules were designed and validated around; operators may override them
// through configuration but the defaults are authoritative.
type Params struct {
	LookbackHours         int
	MinConsecutiveSamples int
	RateThreshold         float64 // minimum exc/s for a detection to matter (0.5)
	ActivityFloor         float64 // below this a rate is considered idle (0.1)
	MinBaselineSamples    int     // valid samples required for a usable baseline (10)
	SpikeSigma            float64 // std multiplier for the spike bound (3.0)
	SpikeRatio            float64 // recent max / baseline mean ratio (2.0)
	SustainedRatio        float64 // recent mean / baseline mean ratio (1.3)
	SustainedPct          float64 // fraction of samples that must exceed baseline (0.70)
	WeeklyRatio           float64 // recent mean / week-ago mean ratio (1.5)
	TrendGrowth           float64 // first-to-last hourly growth fraction (0.30)
	TrendMinPoints        int     // minimum strictly increasing hourly run (4)
	Epsilon               float64 // denominator clamp for ratios (0.01)
	UseDynamicBaseline    bool
	EWMAAlpha             float64
}

// DefaultParams returns the design defaults.
func DefaultParams() Params {
	return Params{
		LookbackHours:         1,
		MinConsecutiveSamples: 3,
		RateThreshold:         0.5,
		ActivityFloor:         0.1,
		MinBaselineSamples:    10,
		SpikeSigma:            3.0,
		SpikeRatio:            2.0,
		SustainedRatio:        1.3,
		SustainedPct:          0.70,
		WeeklyRatio:           1.5,
		TrendGrowth:           0.30,
		TrendMinPoints:        4,
		Epsilon:               0.01,
		UseDynamicBaseline:    true,
		EWMAAlpha:             0.3,
	}
}

// Input carries the pre-fetched windows for one series key. The recent
// window spans the requested lookback; the baseline window spans the two
// days before it; the weekly window covers the same time of week seven
// days earlier; the hourly window is the lookback aggregated to 1h points.
type Input struct {
	Key      models.SeriesKey
	Recent   models.Series
	Baseline models.Series
	Weekly   models.Series
	Hourly   models.Series
}

// Engine evaluates the heuristic rules for one input at a time. It holds
// no per-run state; construct one per pipeline and share it across keys.
type Engine struct {
	params     Params
	baselines  *baseline.Manager
	severities SeverityMap
	logger     *logging.Logger
}

// NewEngine creates a rule engine.
func NewEngine(params Params, baselines *baseline.Manager, severities SeverityMap, logger *logging.Logger) *Engine {
	if baselines == nil {
		baselines = baseline.NewManager()
	}
	if severities == nil {
		severities = DefaultSeverityMap()
	}
	if logger == nil {
		logger = logging.Global()
	}
	return &Engine{
		params:     params,
		baselines:  baselines,
		severities: severities,
		logger:     logger,
	}
}

// Params exposes the engine tunables.
func (e *Engine) Params() Params {
	return e.params
}

// Evaluate runs the per-key rules over one input and returns the candidate
// detections. Static and dynamic baseline modes are mutually exclusive per
// engine configuration: the dynamic variants supersede, never duplicate,
// the static spike and sustained rules.
func (e *Engine) Evaluate(in Input) []Detection {
	in.Recent.SortByTime()
	in.Baseline.SortByTime()
	in.Hourly.SortByTime()

	var detections []Detection

	appendIf := func(d *Detection) {
		if d != nil {
			detections = append(detections, *d)
		}
	}

	appendIf(e.detectNewException(in))
	if e.params.UseDynamicBaseline {
		appendIf(e.detectSpikeDynamic(in))
		appendIf(e.detectSustainedDynamic(in))
	} else {
		appendIf(e.detectSpike(in))
		appendIf(e.detectSustained(in))
	}
	appendIf(e.detectWeeklyDeviation(in))
	appendIf(e.detectIncreasingTrend(in))

	return detections
}

// severityFor maps an exception type through the configured severity table.
func (e *Engine) severityFor(exception string) Severity {
	return e.severities.Lookup(exception)
}

// clampDenominator floors a ratio denominator at epsilon so division can
// never blow up on an idle baseline.
func (e *Engine) clampDenominator(v float64) float64 {
	if v < e.params.Epsilon {
		return e.params.Epsilon
	}
	return v
}
