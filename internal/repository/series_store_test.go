package repository

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BandView/internal/domain/models"
	domrepo "BandView/internal/domain/repository"
	pkghttp "BandView/pkg/http"
)

const threeBars = `[
 {"time": 1000, "open": 1, "high": 1, "low": 1, "close": 1, "volume": 10},
 {"time": 2000, "open": 2, "high": 2, "low": 2, "close": 2, "volume": 10},
 {"time": 3000, "open": 3, "high": 3, "low": 3, "close": 3, "volume": 10}
]`

const unsortedBars = `[{"time": 2000, "close": 2}, {"time": 1000, "close": 1}]`

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestFileSeriesStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ohlcv.json")
	writeFile(t, path, threeBars)
	s := NewFileSeriesStore(path)

	got, err := s.Series(context.Background(), "ignored", domrepo.TF1d)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, int64(3000), got[2].Time)
	assert.Equal(t, 3.0, got[2].Close)

	// callers own their copy
	got[0].Close = 99
	again, err := s.Series(context.Background(), "", "")
	require.NoError(t, err)
	assert.Equal(t, 1.0, again[0].Close)
}

func TestFileSeriesStoreReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ohlcv.json")
	writeFile(t, path, threeBars)
	s := NewFileSeriesStore(path)
	_, err := s.Series(context.Background(), "", "")
	require.NoError(t, err)

	writeFile(t, path, `[{"time": 5000, "close": 5}]`)
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, future, future))

	got, err := s.Series(context.Background(), "", "")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 5.0, got[0].Close)
}

func TestFileSeriesStoreErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := NewFileSeriesStore(filepath.Join(dir, "missing.json")).Series(context.Background(), "", "")
	assert.ErrorIs(t, err, domrepo.ErrSeriesNotFound)

	path := filepath.Join(dir, "bad.json")
	writeFile(t, path, unsortedBars)
	_, err = NewFileSeriesStore(path).Series(context.Background(), "", "")
	assert.ErrorIs(t, err, domrepo.ErrUnsortedSeries)

	writeFile(t, path, `{"not": "an array"}`)
	_, err = NewFileSeriesStore(path).Series(context.Background(), "", "")
	assert.Error(t, err)
}

func TestFileSeriesStoreEmptyArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")
	writeFile(t, path, `[]`)
	got, err := NewFileSeriesStore(path).Series(context.Background(), "", "")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestHTTPSeriesStoreRetriesTransientFailures(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "AAPL", r.URL.Query().Get("symbol"))
		assert.Equal(t, "1d", r.URL.Query().Get("tf"))
		if atomic.AddInt32(&calls, 1) < 3 {
			http.Error(w, "warming up", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(threeBars))
	}))
	defer srv.Close()

	s := NewHTTPSeriesStore(pkghttp.NewClient(), srv.URL, 3)
	s.interval = time.Millisecond
	got, err := s.Series(context.Background(), "AAPL", domrepo.TF1d)
	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestHTTPSeriesStoreDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	s := NewHTTPSeriesStore(pkghttp.NewClient(), srv.URL, 5)
	s.interval = time.Millisecond
	_, err := s.Series(context.Background(), "MSFT", domrepo.TF1m)
	assert.ErrorIs(t, err, domrepo.ErrSeriesNotFound)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestHTTPSeriesStoreRejectsUnsorted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(unsortedBars))
	}))
	defer srv.Close()

	_, err := NewHTTPSeriesStore(pkghttp.NewClient(), srv.URL, 0).Series(context.Background(), "", "")
	assert.ErrorIs(t, err, domrepo.ErrUnsortedSeries)
}

func TestMemorySeriesStoreUpsert(t *testing.T) {
	s := NewMemorySeriesStore(3)
	ctx := context.Background()

	_, err := s.Series(ctx, "AAPL", domrepo.TF1m)
	assert.ErrorIs(t, err, domrepo.ErrSeriesNotFound)

	for i := int64(1); i <= 4; i++ {
		require.NoError(t, s.Upsert("AAPL", domrepo.TF1m, models.OHLCV{Time: i * 60_000, Close: float64(i)}))
	}
	got, err := s.Series(ctx, "AAPL", domrepo.TF1m)
	require.NoError(t, err)
	require.Len(t, got, 3, "trimmed to maxBars")
	assert.Equal(t, 2.0, got[0].Close)

	// same time replaces the forming bar
	require.NoError(t, s.Upsert("AAPL", domrepo.TF1m, models.OHLCV{Time: 4 * 60_000, Close: 4.5}))
	got, _ = s.Series(ctx, "AAPL", domrepo.TF1m)
	assert.Equal(t, 4.5, got[2].Close)

	err = s.Upsert("AAPL", domrepo.TF1m, models.OHLCV{Time: 60_000, Close: 1})
	assert.ErrorIs(t, err, domrepo.ErrUnsortedSeries)
}

func TestMemorySeriesStoreSubscribe(t *testing.T) {
	s := NewMemorySeriesStore(0)
	ch, cancel := s.Subscribe(1)

	require.NoError(t, s.Upsert("AAPL", domrepo.TF1d, models.OHLCV{Time: 1}))
	// buffer full: dropped, not blocked
	require.NoError(t, s.Upsert("MSFT", domrepo.TF1d, models.OHLCV{Time: 1}))

	select {
	case k := <-ch:
		assert.Equal(t, SeriesKey{Symbol: "AAPL", Timeframe: domrepo.TF1d}, k)
	case <-time.After(time.Second):
		t.Fatal("no notification")
	}
	cancel()
	_, open := <-ch
	assert.False(t, open)
	assert.Len(t, s.Keys(), 2)
}

func TestMemorySeriesStoreSeed(t *testing.T) {
	s := NewMemorySeriesStore(2)
	err := s.Seed("AAPL", domrepo.TF1d, []models.OHLCV{{Time: 2}, {Time: 1}})
	assert.ErrorIs(t, err, domrepo.ErrUnsortedSeries)

	require.NoError(t, s.Seed("AAPL", domrepo.TF1d, []models.OHLCV{{Time: 1}, {Time: 2}, {Time: 3}}))
	got, err := s.Series(context.Background(), "AAPL", domrepo.TF1d)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got[0].Time)
}
