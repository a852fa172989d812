package tsdb

import (
	"context"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/openntia/pfewatch/internal/config"
	"github.com/openntia/pfewatch/internal/logging"
	"github.com/openntia/pfewatch/internal/models"
	"github.com/openntia/pfewatch/internal/utils"
)

// InfluxFetcher reads raw exception counters from InfluxDB and converts
// them to rates with a non-negative derivative, so counter resets after an
// FPC restart never produce negative values.
type InfluxFetcher struct {
	client      influxdb2.Client
	query       api.QueryAPI
	bucket      string
	measurement string
	field       string
	logger      *logging.Logger
}

// NewInfluxFetcher connects to InfluxDB using the given configuration.
func NewInfluxFetcher(cfg config.InfluxConfig, logger *logging.Logger) *InfluxFetcher {
	if logger == nil {
		logger = logging.Global()
	}
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &InfluxFetcher{
		client:      client,
		query:       client.QueryAPI(cfg.Org),
		bucket:      cfg.Bucket,
		measurement: cfg.Measurement,
		field:       cfg.Field,
		logger:      logger,
	}
}

// FetchRates runs one Flux query for the window and groups the resulting
// rate points by (device, slot, exception).
func (f *InfluxFetcher) FetchRates(ctx context.Context, w Window) (map[models.SeriesKey]models.Series, error) {
	flux := f.buildFlux(w)

	result, err := f.query.Query(ctx, flux)
	if err != nil {
		return nil, fmt.Errorf("influx query failed: %w", err)
	}

	groups := make(map[models.SeriesKey]models.Series)
	points := 0
	for result.Next() {
		rec := result.Record()
		key := models.SeriesKey{
			Device:    stringTag(rec.ValueByKey("device")),
			Slot:      stringTag(rec.ValueByKey("slot")),
			Exception: stringTag(rec.ValueByKey("exception")),
		}
		if key.Device == "" || key.Exception == "" {
			continue
		}

		series := groups[key]
		series.Key = key
		if v, ok := utils.ToFloat64(rec.Value()); ok {
			series.Samples = append(series.Samples, models.NewSample(rec.Time(), v))
		} else {
			series.Samples = append(series.Samples, models.NullSample(rec.Time()))
		}
		groups[key] = series
		points++
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("influx result error: %w", err)
	}

	for key, series := range groups {
		series.SortByTime()
		groups[key] = series
	}

	f.logger.Debug("Fetched rate series",
		"series", len(groups),
		"points", points,
		"window_start", w.Start.Format(time.RFC3339),
		"window_stop", w.Stop.Format(time.RFC3339),
		"aggregate", w.Aggregate.String())
	return groups, nil
}

// Close releases the underlying HTTP client.
func (f *InfluxFetcher) Close() {
	f.client.Close()
}

// buildFlux renders the rate query: filter the counter field, take its
// non-negative derivative in units/second, then bucket into the window's
// aggregation interval.
func (f *InfluxFetcher) buildFlux(w Window) string {
	return fmt.Sprintf(`from(bucket: %q)
  |> range(start: %s, stop: %s)
  |> filter(fn: (r) => r._measurement == %q and r._field == %q)
  |> derivative(unit: 1s, nonNegative: true)
  |> aggregateWindow(every: %s, fn: mean, createEmpty: false)
  |> group(columns: ["device", "slot", "exception"])`,
		f.bucket,
		w.Start.UTC().Format(time.RFC3339),
		w.Stop.UTC().Format(time.RFC3339),
		f.measurement,
		f.field,
		fluxDuration(w.Aggregate))
}

// fluxDuration renders a Go duration as a Flux duration literal.
func fluxDuration(d time.Duration) string {
	if d%time.Hour == 0 {
		return fmt.Sprintf("%dh", int(d/time.Hour))
	}
	if d%time.Minute == 0 {
		return fmt.Sprintf("%dm", int(d/time.Minute))
	}
	return fmt.Sprintf("%ds", int(d/time.Second))
}

func stringTag(v interface{}) string {
	s, _ := v.(string)
	return s
}
