package tsdb

import (
	"context"
	"sync"

	"github.com/openntia/pfewatch/internal/models"
)

// MemoryFetcher serves pre-loaded series from memory. Used in tests and
// when replaying captured telemetry without a live store.
type MemoryFetcher struct {
	mu     sync.RWMutex
	series map[models.SeriesKey]models.Series
	err    error
}

// NewMemoryFetcher creates an empty in-memory fetcher.
func NewMemoryFetcher() *MemoryFetcher {
	return &MemoryFetcher{series: make(map[models.SeriesKey]models.Series)}
}

// Add appends samples to the stored series for the key.
func (m *MemoryFetcher) Add(key models.SeriesKey, samples ...models.Sample) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.series[key]
	s.Key = key
	s.Samples = append(s.Samples, samples...)
	m.series[key] = s
}

// Fail makes every subsequent FetchRates return err.
func (m *MemoryFetcher) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// FetchRates returns the stored samples that fall inside [w.Start, w.Stop).
// Aggregation is ignored; callers load samples at the resolution they want
// to simulate.
func (m *MemoryFetcher) FetchRates(ctx context.Context, w Window) (map[models.SeriesKey]models.Series, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, m.err
	}

	out := make(map[models.SeriesKey]models.Series)
	for key, series := range m.series {
		var filtered models.Series
		filtered.Key = key
		for _, s := range series.Samples {
			if s.Time.Before(w.Start) || !s.Time.Before(w.Stop) {
				continue
			}
			filtered.Samples = append(filtered.Samples, s)
		}
		if len(filtered.Samples) == 0 {
			continue
		}
		filtered.SortByTime()
		out[key] = filtered
	}
	return out, nil
}

// Close is a no-op.
func (m *MemoryFetcher) Close() {}
