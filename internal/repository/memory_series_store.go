package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"BandView/internal/domain/models"
	domrepo "BandView/internal/domain/repository"
)

// SeriesKey identifies one series in a MemorySeriesStore.
type SeriesKey struct {
	Symbol    string
	Timeframe domrepo.Timeframe
}

func (k SeriesKey) String() string { return k.Symbol + ":" + string(k.Timeframe) }

// MemorySeriesStore keeps live series in memory, fed by ingest. Readers get copies.
type MemorySeriesStore struct {
	mu      sync.RWMutex
	series  map[SeriesKey][]models.OHLCV
	maxBars int

	subMu sync.Mutex
	subs  map[chan SeriesKey]struct{}
}

func NewMemorySeriesStore(maxBars int) *MemorySeriesStore {
	if maxBars <= 0 {
		maxBars = DefaultMaxBars
	}
	return &MemorySeriesStore{
		series:  make(map[SeriesKey][]models.OHLCV),
		maxBars: maxBars,
		subs:    make(map[chan SeriesKey]struct{}),
	}
}

func (s *MemorySeriesStore) Series(_ context.Context, symbol string, tf domrepo.Timeframe) ([]models.OHLCV, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bars, ok := s.series[SeriesKey{Symbol: symbol, Timeframe: tf}]
	if !ok || len(bars) == 0 {
		return nil, fmt.Errorf("%w: %s %s", domrepo.ErrSeriesNotFound, symbol, tf)
	}
	return cloneSeries(bars), nil
}

// Seed replaces the series for a key. The input must be sorted.
func (s *MemorySeriesStore) Seed(symbol string, tf domrepo.Timeframe, bars []models.OHLCV) error {
	if err := checkSorted(bars); err != nil {
		return err
	}
	key := SeriesKey{Symbol: symbol, Timeframe: tf}
	bars = cloneSeries(bars)
	if len(bars) > s.maxBars {
		bars = bars[len(bars)-s.maxBars:]
	}
	s.mu.Lock()
	s.series[key] = bars
	s.mu.Unlock()
	s.notify(key)
	return nil
}

// Upsert appends a newer bar or replaces the last bar when times match.
// Older bars are rejected with ErrUnsortedSeries.
func (s *MemorySeriesStore) Upsert(symbol string, tf domrepo.Timeframe, bar models.OHLCV) error {
	key := SeriesKey{Symbol: symbol, Timeframe: tf}

	s.mu.Lock()
	bars := s.series[key]
	n := len(bars)
	switch {
	case n == 0 || bar.Time > bars[n-1].Time:
		bars = append(bars, bar)
		if len(bars) > s.maxBars {
			bars = append([]models.OHLCV(nil), bars[len(bars)-s.maxBars:]...)
		}
	case bar.Time == bars[n-1].Time:
		bars[n-1] = bar
	default:
		last := bars[n-1].Time
		s.mu.Unlock()
		return fmt.Errorf("%w: %s bar at %d is older than %d", domrepo.ErrUnsortedSeries, key, bar.Time, last)
	}
	s.series[key] = bars
	s.mu.Unlock()

	s.notify(key)
	return nil
}

// Keys lists stored series in a stable order.
func (s *MemorySeriesStore) Keys() []SeriesKey {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]SeriesKey, 0, len(s.series))
	for k := range s.series {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Subscribe returns a channel that receives the key of every changed series.
// Notifications are dropped when the subscriber is behind. Call cancel to
// unsubscribe; the channel is closed afterwards.
func (s *MemorySeriesStore) Subscribe(buffer int) (<-chan SeriesKey, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan SeriesKey, buffer)
	s.subMu.Lock()
	s.subs[ch] = struct{}{}
	s.subMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, ch)
			s.subMu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (s *MemorySeriesStore) notify(key SeriesKey) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- key:
		default:
		}
	}
}
