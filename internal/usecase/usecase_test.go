package usecase

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BandView/internal/domain/models"
	domrepo "BandView/internal/domain/repository"
	"BandView/internal/repository"
	"BandView/internal/services/bollinger"
	"BandView/pkg/cache"
)

type stubStore struct {
	series []models.OHLCV
	err    error
	calls  int
}

func (s *stubStore) Series(context.Context, string, domrepo.Timeframe) ([]models.OHLCV, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([]models.OHLCV, len(s.series))
	copy(out, s.series)
	return out, nil
}

type recordingMetrics struct {
	mu       sync.Mutex
	computed int
	errs     map[string]int
	cache    map[string]int
	close    float64
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{errs: map[string]int{}, cache: map[string]int{}}
}

func (m *recordingMetrics) RecordBandsComputed(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.computed++
}

func (m *recordingMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[kind]++
}

func (m *recordingMetrics) RecordLastClose(_ string, price float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.close = price
}

func (m *recordingMetrics) RecordLatency(string, float64) {}

func (m *recordingMetrics) RecordCache(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache[result]++
}

type stubPublisher struct {
	snaps []models.BandSnapshot
	err   error
}

func (p *stubPublisher) Publish(_ context.Context, s models.BandSnapshot) error {
	p.snaps = append(p.snaps, s)
	return p.err
}

func (p *stubPublisher) Close() error { return nil }

func bars(closes ...float64) []models.OHLCV {
	out := make([]models.OHLCV, len(closes))
	for i, c := range closes {
		out[i] = models.OHLCV{Time: int64(i+1) * 86_400_000, Open: c, High: c, Low: c, Close: c, Volume: 100}
	}
	return out
}

func ptr[T any](v T) *T { return &v }

func settingsWith(t *testing.T, length int, mult float64) *repository.AtomicSettingsStore {
	t.Helper()
	s, err := models.NewSettingsBuilder(models.DefaultSettings()).Length(length).Multiplier(mult).Build()
	require.NoError(t, err)
	return repository.NewAtomicSettingsStore(s)
}

func TestBandsComputeUsesCommittedInputs(t *testing.T) {
	store := &stubStore{series: bars(1, 2, 3, 4, 5)}
	uc := NewBandsUseCase(store, settingsWith(t, 3, 2), nil)

	res, err := uc.Compute(context.Background(), BandsParams{Symbol: "AAPL", Timeframe: domrepo.TF1d})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Inputs.Length)
	assert.Equal(t, 5, res.Count)
	assert.Equal(t, 3, res.Defined)
	assert.True(t, math.IsNaN(res.Points[1].Basis))
	assert.InDelta(t, 4.0, res.Points[4].Basis, 1e-12)
	assert.Equal(t, "1d", res.Timeframe)
}

func TestBandsComputeOverridesSingleFields(t *testing.T) {
	store := &stubStore{series: bars(1, 2, 3, 4, 5)}
	uc := NewBandsUseCase(store, settingsWith(t, 3, 2), nil)

	res, err := uc.Compute(context.Background(), BandsParams{
		Symbol:     "AAPL",
		Length:     ptr(2),
		Multiplier: ptr(0.0),
		Offset:     ptr(1),
	})
	require.NoError(t, err)
	assert.Equal(t, models.BollingerInputs{Length: 2, Multiplier: 0, Offset: 1, Source: models.SourceClose}, res.Inputs)
	// zero multiplier collapses the envelope onto the basis
	assert.Equal(t, res.Points[4].Basis, res.Points[4].Upper)
	assert.Equal(t, "1d", res.Timeframe, "empty timeframe uses the default")
}

func TestBandsComputeRejectsBeforeIO(t *testing.T) {
	store := &stubStore{series: bars(1, 2, 3)}
	m := newRecordingMetrics()
	uc := NewBandsUseCase(store, settingsWith(t, 3, 2), m)

	res, err := uc.Compute(context.Background(), BandsParams{Length: ptr(0)})
	assert.ErrorIs(t, err, bollinger.ErrInvalidConfiguration)
	assert.Nil(t, res)

	_, err = uc.Compute(context.Background(), BandsParams{Source: ptr(models.Source("hl2"))})
	assert.ErrorIs(t, err, bollinger.ErrUnknownSource)

	assert.Zero(t, store.calls)
	assert.Equal(t, 2, m.errs["bands_config"])
}

func TestBandsComputeStoreErrorsAreWrapped(t *testing.T) {
	store := &stubStore{err: domrepo.ErrSeriesNotFound}
	m := newRecordingMetrics()
	uc := NewBandsUseCase(store, settingsWith(t, 3, 2), m)

	_, err := uc.Compute(context.Background(), BandsParams{Symbol: "NOPE"})
	assert.ErrorIs(t, err, domrepo.ErrSeriesNotFound)
	assert.Equal(t, 1, m.errs["bands_series"])
}

func TestBandsComputeLimitAfterWarmup(t *testing.T) {
	store := &stubStore{series: bars(1, 2, 3, 4, 5, 6)}
	uc := NewBandsUseCase(store, settingsWith(t, 3, 2), nil)

	res, err := uc.Compute(context.Background(), BandsParams{Limit: 2})
	require.NoError(t, err)
	require.Len(t, res.Points, 2)
	assert.Equal(t, 2, res.Count)
	assert.Equal(t, 2, res.Defined, "limited points keep values that needed earlier history")
	assert.Equal(t, int64(6*86_400_000), res.Points[1].Time)
}

func TestBandsComputeCaches(t *testing.T) {
	store := &stubStore{series: bars(1, 2, 3, 4)}
	m := newRecordingMetrics()
	mem := cache.NewMemoryCache()
	defer mem.Close()
	uc := NewBandsUseCase(store, settingsWith(t, 2, 2), m, WithBandsCache(mem, time.Minute))

	first, err := uc.Compute(context.Background(), BandsParams{Symbol: "AAPL"})
	require.NoError(t, err)
	second, err := uc.Compute(context.Background(), BandsParams{Symbol: "AAPL"})
	require.NoError(t, err)

	assert.Equal(t, 1, m.computed)
	assert.Equal(t, 1, m.cache["hit"])
	assert.Equal(t, 1, m.cache["miss"])
	assert.Equal(t, first.Defined, second.Defined)
	assert.True(t, math.IsNaN(second.Points[0].Upper), "undefined survives the cache round trip")

	// a new bar changes the fingerprint
	store.series = append(store.series, models.OHLCV{Time: 5 * 86_400_000, Close: 9})
	_, err = uc.Compute(context.Background(), BandsParams{Symbol: "AAPL"})
	require.NoError(t, err)
	assert.Equal(t, 2, m.computed)
}

func TestBandsComputePublishes(t *testing.T) {
	store := &stubStore{series: bars(1, 2, 3)}
	pub := &stubPublisher{}
	uc := NewBandsUseCase(store, settingsWith(t, 2, 2), nil, WithBandsPublisher(pub))
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	uc.now = func() time.Time { return fixed }

	_, err := uc.Compute(context.Background(), BandsParams{Symbol: "AAPL", Timeframe: domrepo.TF1m})
	require.NoError(t, err)
	require.Len(t, pub.snaps, 1)
	assert.Equal(t, "AAPL", pub.snaps[0].Symbol)
	assert.Equal(t, "1m", pub.snaps[0].Timeframe)
	assert.Equal(t, fixed, pub.snaps[0].ComputedAt)
	assert.Len(t, pub.snaps[0].Points, 3)
}

func TestBandsComputePublishErrorIsNotReturned(t *testing.T) {
	store := &stubStore{series: bars(1, 2, 3)}
	pub := &stubPublisher{err: errors.New("broker down")}
	m := newRecordingMetrics()
	uc := NewBandsUseCase(store, settingsWith(t, 2, 2), m, WithBandsPublisher(pub))

	res, err := uc.Compute(context.Background(), BandsParams{Symbol: "AAPL"})
	require.NoError(t, err)
	assert.NotNil(t, res)
	assert.Equal(t, 1, m.errs["bands_publish"])
	assert.Equal(t, 3.0, m.close)
}

func TestBandsComputeEmptySeries(t *testing.T) {
	store := &stubStore{series: []models.OHLCV{}}
	uc := NewBandsUseCase(store, settingsWith(t, 20, 2), nil)

	res, err := uc.Compute(context.Background(), BandsParams{})
	require.NoError(t, err)
	assert.NotNil(t, res.Points)
	assert.Zero(t, res.Count)
}

func TestChartCandles(t *testing.T) {
	store := &stubStore{series: bars(1, 2, 3, 4, 5)}
	uc := NewChartUseCase(store, settingsWith(t, 2, 2), nil)

	res, err := uc.Candles(context.Background(), CandlesParams{
		Symbol: "AAPL",
		From:   time.UnixMilli(2 * 86_400_000),
		To:     time.UnixMilli(4 * 86_400_000),
	})
	require.NoError(t, err)
	require.Equal(t, 3, res.Count)
	assert.Equal(t, 2.0, res.Candles[0].Close)
	assert.Equal(t, 4.0, res.Candles[2].Close)

	res, err = uc.Candles(context.Background(), CandlesParams{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, []float64{res.Candles[0].Close, res.Candles[1].Close})

	_, err = uc.Candles(context.Background(), CandlesParams{From: time.UnixMilli(5), To: time.UnixMilli(1)})
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestChartQuote(t *testing.T) {
	store := &stubStore{series: bars(100, 110)}
	uc := NewChartUseCase(store, settingsWith(t, 2, 2), nil)

	q, err := uc.Quote(context.Background(), "AAPL", domrepo.TF1d)
	require.NoError(t, err)
	assert.Equal(t, 110.0, q.Close)
	assert.InDelta(t, 10.0, q.Change, 1e-12)
	assert.InDelta(t, 10.0, q.ChangePercent, 1e-12)

	store.series = bars(5)
	q, err = uc.Quote(context.Background(), "AAPL", "")
	require.NoError(t, err)
	assert.Zero(t, q.Change)

	store.series = bars(0, 3)
	q, err = uc.Quote(context.Background(), "AAPL", "")
	require.NoError(t, err)
	assert.Equal(t, 3.0, q.Change)
	assert.Zero(t, q.ChangePercent)

	store.series = []models.OHLCV{}
	_, err = uc.Quote(context.Background(), "AAPL", "")
	assert.ErrorIs(t, err, domrepo.ErrSeriesNotFound)
}

func TestChartOverlay(t *testing.T) {
	store := &stubStore{series: bars(1, 2, 3, 4)}
	settings := settingsWith(t, 2, 2)
	uc := NewChartUseCase(store, settings, NewBandsUseCase(store, settings, nil))

	ov, err := uc.Overlay(context.Background(), BandsParams{Symbol: "AAPL"})
	require.NoError(t, err)
	require.Len(t, ov.Lines, 3)
	assert.Equal(t, []string{"bb_upper", "bb_basis", "bb_lower"}, []string{ov.Lines[0].ID, ov.Lines[1].ID, ov.Lines[2].ID})
	assert.Equal(t, "#F59E0B", ov.Lines[1].Color)
	assert.Nil(t, ov.Lines[0].Points[0].Value, "warm-up bar is a gap")
	require.NotNil(t, ov.Lines[1].Points[3].Value)
	assert.InDelta(t, 3.5, *ov.Lines[1].Points[3].Value, 1e-12)
	require.NotNil(t, ov.Background)
	assert.InDelta(t, 0.12, ov.Background.Opacity, 1e-12)

	cur := settings.Current()
	cur.Style.Basis.Visible = false
	cur.Style.Background.Visible = false
	settings.Commit(cur)

	ov, err = uc.Overlay(context.Background(), BandsParams{Symbol: "AAPL"})
	require.NoError(t, err)
	require.Len(t, ov.Lines, 2)
	assert.Equal(t, "bb_lower", ov.Lines[1].ID)
	assert.Nil(t, ov.Background)
}

// sequenceSettings hands out a different committed value on every Current call.
type sequenceSettings struct {
	mu   sync.Mutex
	vals []models.Settings
	next int
}

func (s *sequenceSettings) Current() models.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.vals[s.next%len(s.vals)]
	s.next++
	return v
}

func (s *sequenceSettings) Commit(v models.Settings) models.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.vals[len(s.vals)-1]
	s.vals = append(s.vals, v)
	return prev
}

func TestChartOverlayUsesOneSettingsValue(t *testing.T) {
	first, err := models.NewSettingsBuilder(models.DefaultSettings()).Length(2).Build()
	require.NoError(t, err)
	basis := first.Style.Basis
	basis.Color = "#111111"
	second, err := models.NewSettingsBuilder(models.DefaultSettings()).Length(3).Basis(basis).Build()
	require.NoError(t, err)

	settings := &sequenceSettings{vals: []models.Settings{first, second}}
	store := &stubStore{series: bars(1, 2, 3, 4)}
	uc := NewChartUseCase(store, settings, NewBandsUseCase(store, settings, nil))

	ov, err := uc.Overlay(context.Background(), BandsParams{Symbol: "AAPL"})
	require.NoError(t, err)
	assert.Equal(t, 1, settings.next, "settings are read once")
	assert.Equal(t, 2, ov.Inputs.Length)
	require.Len(t, ov.Lines, 3)
	assert.Equal(t, first.Style.Basis.Color, ov.Lines[1].Color)
	require.NotNil(t, ov.Lines[1].Points[1].Value, "length 2 defines the second bar")
}

func TestKafkaCandlesHandler(t *testing.T) {
	mem := repository.NewMemorySeriesStore(10)
	m := newRecordingMetrics()
	h := NewKafkaCandlesHandler("candles", mem, m)
	assert.Equal(t, "candles", h.Topic())
	ctx := context.Background()

	// seconds are normalized to milliseconds
	require.NoError(t, h.Handle(ctx, []byte(`{"symbol":"AAPL","tf":"1m","time":1704153600,"close":10}`)))
	require.NoError(t, h.Handle(ctx, []byte(`{"symbol":"AAPL","tf":"1m","time":1704153660000,"close":11}`)))

	got, err := mem.Series(ctx, "AAPL", domrepo.TF1m)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1704153600000), got[0].Time)
	assert.Equal(t, 11.0, m.close)

	err = h.Handle(ctx, []byte(`{"symbol":"AAPL","tf":"1m","time":1704153600000,"close":9}`))
	assert.ErrorIs(t, err, domrepo.ErrUnsortedSeries)
	assert.Equal(t, 1, m.errs["consumer_store"])

	assert.Error(t, h.Handle(ctx, []byte(`not json`)))
	assert.Equal(t, 1, m.errs["consumer_unmarshal"])

	assert.Error(t, h.Handle(ctx, []byte(`{"symbol":"AAPL","tf":"4h","time":1}`)))
	assert.Error(t, h.Handle(ctx, []byte(`{"tf":"1m","time":1}`)))
	assert.Equal(t, 2, m.errs["consumer_invalid"])
}

func TestKafkaCandlesHandlerDefaultTimeframe(t *testing.T) {
	mem := repository.NewMemorySeriesStore(10)
	h := NewKafkaCandlesHandler("candles", mem, nil)
	require.NoError(t, h.Handle(context.Background(), []byte(`{"symbol":"MSFT","time":1704153600000,"close":1}`)))
	_, err := mem.Series(context.Background(), "MSFT", domrepo.TF1d)
	assert.NoError(t, err)
}
