// Package tsdb fetches exception-rate series from the time-series store.
// The store holds raw monotonically increasing counters; fetching converts
// them to non-negative per-second rates pre-aggregated into fixed windows,
// grouped by (device, slot, exception).
package tsdb

import (
	"context"
	"time"

	"github.com/openntia/pfewatch/internal/models"
)

// Window describes one fetch: an absolute time range and the aggregation
// interval the rates are bucketed into (1m for recent data, 5m for
// baselines, 1h for trend analysis).
type Window struct {
	Start     time.Time
	Stop      time.Time
	Aggregate time.Duration
}

// RecentWindow covers the last lookbackHours before now at 1m resolution.
func RecentWindow(now time.Time, lookbackHours int) Window {
	return Window{
		Start:     now.Add(-time.Duration(lookbackHours) * time.Hour),
		Stop:      now,
		Aggregate: time.Minute,
	}
}

// BaselineWindow covers the baselineDays before the recent window at 5m
// resolution.
func BaselineWindow(now time.Time, lookbackHours, baselineDays int) Window {
	stop := now.Add(-time.Duration(lookbackHours) * time.Hour)
	return Window{
		Start:     stop.Add(-time.Duration(baselineDays) * 24 * time.Hour),
		Stop:      stop,
		Aggregate: 5 * time.Minute,
	}
}

// WeeklyWindow covers the same span as the recent window one week earlier,
// at 5m resolution.
func WeeklyWindow(now time.Time, lookbackHours int) Window {
	return Window{
		Start:     now.Add(-time.Duration(168+lookbackHours) * time.Hour),
		Stop:      now.Add(-168 * time.Hour),
		Aggregate: 5 * time.Minute,
	}
}

// HourlyWindow covers the last lookbackHours at 1h resolution, for trend
// analysis.
func HourlyWindow(now time.Time, lookbackHours int) Window {
	return Window{
		Start:     now.Add(-time.Duration(lookbackHours) * time.Hour),
		Stop:      now,
		Aggregate: time.Hour,
	}
}

// Fetcher retrieves rate series for a window, keyed by series. The map is
// complete for the window: keys with no data in the range are absent, not
// present with empty series.
type Fetcher interface {
	FetchRates(ctx context.Context, w Window) (map[models.SeriesKey]models.Series, error)
	Close()
}
