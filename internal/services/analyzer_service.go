package services

import (
	"context"
	"encoding/json"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openntia/pfewatch/internal/baseline"
	"github.com/openntia/pfewatch/internal/config"
	"github.com/openntia/pfewatch/internal/detect"
	"github.com/openntia/pfewatch/internal/grafana"
	"github.com/openntia/pfewatch/internal/logging"
	"github.com/openntia/pfewatch/internal/ml"
	"github.com/openntia/pfewatch/internal/models"
	"github.com/openntia/pfewatch/internal/queue"
	"github.com/openntia/pfewatch/internal/tsdb"
	"github.com/openntia/pfewatch/internal/utils"
)

// AnalyzerService runs the detection pipeline: fetch windows, evaluate
// rules and the ML model per key, fuse, rank and publish.
type AnalyzerService struct {
	logger     *logging.Logger
	fetcher    tsdb.Fetcher
	links      *grafana.LinkBuilder
	publisher  queue.Publisher
	severities detect.SeverityMap
	cfg        config.DetectionConfig
	subject    string
}

// NewAnalyzerService creates an analyzer service. The severity map is
// derived from the configuration once, at construction.
func NewAnalyzerService(
	logger *logging.Logger,
	fetcher tsdb.Fetcher,
	links *grafana.LinkBuilder,
	publisher queue.Publisher,
	cfg config.DetectionConfig,
	subject string,
) (*AnalyzerService, error) {
	if logger == nil {
		logger = logging.Global()
	}
	if publisher == nil {
		publisher = queue.NoopPublisher{}
	}

	severities, err := detect.SeverityMapFromConfig(cfg.Severities)
	if err != nil {
		return nil, serviceError(CodeInvalidConfig, "invalid severity map", err)
	}

	return &AnalyzerService{
		logger:     logger,
		fetcher:    fetcher,
		links:      links,
		publisher:  publisher,
		severities: severities,
		cfg:        cfg,
		subject:    subject,
	}, nil
}

// AnalyzeRequest carries the per-call parameters. Zero values mean "use
// the configured default"; the boolean toggles are pointers so an explicit
// false is distinguishable from an omitted field.
type AnalyzeRequest struct {
	LookbackHours         int      `json:"lookback_hours"`
	MinConsecutiveSamples int      `json:"min_consecutive_samples"`
	UseML                 *bool    `json:"use_ml"`
	MLConfidenceThreshold *float64 `json:"ml_confidence_threshold"`
	UseDynamicBaseline    *bool    `json:"use_dynamic_baseline"`
}

// resolved holds a request merged with the configured defaults.
type resolved struct {
	LookbackHours         int
	MinConsecutiveSamples int
	UseML                 bool
	MLConfidenceThreshold float64
	UseDynamicBaseline    bool
}

func (s *AnalyzerService) resolve(req AnalyzeRequest) resolved {
	r := resolved{
		LookbackHours:         s.cfg.LookbackHours,
		MinConsecutiveSamples: s.cfg.MinConsecutiveSamples,
		UseML:                 s.cfg.UseML,
		MLConfidenceThreshold: s.cfg.MLConfidenceThreshold,
		UseDynamicBaseline:    s.cfg.UseDynamicBaseline,
	}
	if req.LookbackHours > 0 {
		r.LookbackHours = req.LookbackHours
	}
	if req.MinConsecutiveSamples > 0 {
		r.MinConsecutiveSamples = req.MinConsecutiveSamples
	}
	if req.UseML != nil {
		r.UseML = *req.UseML
	}
	if req.MLConfidenceThreshold != nil {
		r.MLConfidenceThreshold = *req.MLConfidenceThreshold
	}
	if req.UseDynamicBaseline != nil {
		r.UseDynamicBaseline = *req.UseDynamicBaseline
	}
	return r
}

// AnalyzeResult is one complete analysis run.
type AnalyzeResult struct {
	RunID         string             `json:"run_id"`
	Detections    []detect.Detection `json:"detections"`
	Summary       Summary            `json:"summary"`
	GeneratedAt   time.Time          `json:"generated_at"`
	LookbackHours int                `json:"lookback_hours"`
	SeriesScanned int                `json:"series_scanned"`
	ElapsedMS     int64              `json:"elapsed_ms"`
}

// Analyze runs the full pipeline once. Analysis itself is pure computation
// over fetched data; only the initial fetches and the final alert publish
// touch the network.
func (s *AnalyzerService) Analyze(ctx context.Context, req AnalyzeRequest) (*AnalyzeResult, error) {
	r := s.resolve(req)
	runID := uuid.NewString()
	started := time.Now()

	inputs, err := s.fetchInputs(ctx, r, started)
	if err != nil {
		return nil, err
	}

	engine := detect.NewEngine(s.engineParams(r), s.baselineManager(), s.severities, s.logger)

	candidates := s.evaluateKeys(ctx, engine, inputs, r)
	candidates = append(candidates, engine.EvaluateCorrelated(inputs)...)

	detections := Fuse(candidates)
	for i := range detections {
		d := &detections[i]
		d.DashboardLink = s.links.DetectionLink(d.Key.Device, d.Key.Slot, d.Key.Exception)
	}

	summary := Summarize(detections)
	elapsed := time.Since(started).Milliseconds()
	s.logger.Info("Analysis complete",
		"run_id", runID,
		"series", len(inputs),
		"candidates", len(candidates),
		"detections", summary.Total,
		"ml_detections", summary.MLDetections,
		"elapsed_ms", elapsed)

	s.publishAlerts(detections)

	return &AnalyzeResult{
		RunID:         runID,
		Detections:    detections,
		Summary:       summary,
		GeneratedAt:   started,
		LookbackHours: r.LookbackHours,
		SeriesScanned: len(inputs),
		ElapsedMS:     elapsed,
	}, nil
}

// fetchInputs pulls the recent, baseline, weekly and hourly windows and
// assembles one Input per series key seen in the recent window.
func (s *AnalyzerService) fetchInputs(ctx context.Context, r resolved, now time.Time) ([]detect.Input, error) {
	recent, err := s.fetcher.FetchRates(ctx, tsdb.RecentWindow(now, r.LookbackHours))
	if err != nil {
		return nil, s.fetchError("recent", err)
	}
	if len(recent) == 0 {
		return nil, nil
	}

	baselineDays := s.cfg.BaselineDays
	if baselineDays < 1 {
		baselineDays = 2
	}
	baselines, err := s.fetcher.FetchRates(ctx, tsdb.BaselineWindow(now, r.LookbackHours, baselineDays))
	if err != nil {
		return nil, s.fetchError("baseline", err)
	}
	weekly, err := s.fetcher.FetchRates(ctx, tsdb.WeeklyWindow(now, r.LookbackHours))
	if err != nil {
		return nil, s.fetchError("weekly", err)
	}

	// The trend rule only applies with a long enough lookback; skip the
	// hourly fetch otherwise.
	hourly := map[models.SeriesKey]models.Series{}
	if r.LookbackHours >= 6 {
		hourly, err = s.fetcher.FetchRates(ctx, tsdb.HourlyWindow(now, r.LookbackHours))
		if err != nil {
			return nil, s.fetchError("hourly", err)
		}
	}

	inputs := make([]detect.Input, 0, len(recent))
	for key, series := range recent {
		inputs = append(inputs, detect.Input{
			Key:      key,
			Recent:   series,
			Baseline: baselines[key],
			Weekly:   weekly[key],
			Hourly:   hourly[key],
		})
	}
	return inputs, nil
}

func (s *AnalyzerService) fetchError(window string, err error) error {
	s.logger.Error("Window fetch failed", "window", window, "error", err)
	return serviceError(CodeFetchFailed, "failed to fetch "+window+" window", err)
}

// evaluateKeys runs the per-key rules and the ML model across a bounded
// worker pool. Keys are independent, so workers share nothing but the
// result slice behind a mutex.
func (s *AnalyzerService) evaluateKeys(ctx context.Context, engine *detect.Engine, inputs []detect.Input, r resolved) []detect.Detection {
	workers := s.cfg.Workers
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	if workers > len(inputs) {
		workers = len(inputs)
	}
	if workers < 1 {
		return nil
	}

	var detector *ml.Detector
	if r.UseML {
		detector = ml.NewDetector(s.cfg.MLContamination, s.logger)
	}

	work := make(chan detect.Input)
	var mu sync.Mutex
	var candidates []detect.Detection
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for in := range work {
				found := engine.Evaluate(in)
				if detector != nil {
					if d := s.mlDetection(detector, in, r.MLConfidenceThreshold); d != nil {
						found = append(found, *d)
					}
				}
				if len(found) == 0 {
					continue
				}
				mu.Lock()
				candidates = append(candidates, found...)
				mu.Unlock()
			}
		}()
	}

	// A caller timeout truncates the batch between keys, never mid-key.
feed:
	for _, in := range inputs {
		select {
		case work <- in:
		case <-ctx.Done():
			s.logger.Warn("Analysis truncated", "error", ctx.Err())
			break feed
		}
	}
	close(work)
	wg.Wait()

	return candidates
}

// mlDetection wraps one isolation-forest run as a Detection candidate.
func (s *AnalyzerService) mlDetection(detector *ml.Detector, in detect.Input, minConfidence float64) *detect.Detection {
	res := detector.Detect(in.Recent, minConfidence)
	if res == nil {
		return nil
	}

	confidence := res.Confidence
	return &detect.Detection{
		Key:        in.Key,
		Severity:   s.severities.Lookup(in.Key.Exception),
		Rule:       detect.RuleMLOutlier,
		DetectedAt: res.DetectedAt,
		Details:    res.Details,
		Confidence: &confidence,
	}
}

// publishAlerts pushes each detection onto the alert bus. Publishing is
// best-effort: a bus failure is logged, never surfaced to the API caller.
func (s *AnalyzerService) publishAlerts(detections []detect.Detection) {
	if len(detections) == 0 || s.subject == "" {
		return
	}

	messages := make([]queue.BatchMessage, 0, len(detections))
	for _, d := range detections {
		data, err := json.Marshal(d)
		if err != nil {
			continue
		}
		messages = append(messages, queue.BatchMessage{Subject: s.subject, Data: data})
	}

	ctx, cancel := context.WithTimeout(context.Background(), utils.PublishTimeout)
	defer cancel()

	published, err := s.publisher.PublishBatch(ctx, messages)
	if err != nil {
		s.logger.Error("Alert publish failed", "error", err, "published", published)
		return
	}
	s.logger.Debug("Alerts published", "count", published, "subject", s.subject)
}

// engineParams maps the configured and per-request tunables onto the rule
// engine parameters, keeping the design defaults for anything unset.
func (s *AnalyzerService) engineParams(r resolved) detect.Params {
	p := detect.DefaultParams()
	p.LookbackHours = r.LookbackHours
	p.MinConsecutiveSamples = r.MinConsecutiveSamples
	p.UseDynamicBaseline = r.UseDynamicBaseline
	if s.cfg.RateThreshold > 0 {
		p.RateThreshold = s.cfg.RateThreshold
	}
	if s.cfg.ActivityFloor > 0 {
		p.ActivityFloor = s.cfg.ActivityFloor
	}
	if s.cfg.MinBaselineSamples > 0 {
		p.MinBaselineSamples = s.cfg.MinBaselineSamples
	}
	if s.cfg.EWMAAlpha > 0 {
		p.EWMAAlpha = s.cfg.EWMAAlpha
	}
	return p
}

// baselineManager builds a baseline manager from the configured windows.
func (s *AnalyzerService) baselineManager() *baseline.Manager {
	m := baseline.NewManager()
	if s.cfg.ShortWindow > 0 {
		m.ShortWindow = s.cfg.ShortWindow
	}
	if s.cfg.MediumWindow > 0 {
		m.MediumWindow = s.cfg.MediumWindow
	}
	if s.cfg.LongWindow > 0 {
		m.LongWindow = s.cfg.LongWindow
	}
	if s.cfg.EWMAAlpha > 0 {
		m.Alpha = s.cfg.EWMAAlpha
	}
	return m
}

// Severities exposes the active severity map.
func (s *AnalyzerService) Severities() detect.SeverityMap {
	return s.severities
}
