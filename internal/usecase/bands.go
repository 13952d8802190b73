package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"BandView/internal/domain/models"
	domrepo "BandView/internal/domain/repository"
	"BandView/internal/services/bollinger"
	"BandView/pkg/cache"
	applogger "BandView/pkg/logger"
)

const defaultBandsCacheTTL = 5 * time.Minute

// BandsUseCase loads a series, applies the committed inputs and runs the engine.
type BandsUseCase struct {
	store     domrepo.SeriesStore
	settings  domrepo.SettingsStore
	metrics   domrepo.Metrics
	cache     cache.Service
	ttl       time.Duration
	publisher domrepo.BandPublisher
	l         *applogger.Logger
	now       func() time.Time
}

// BandsOption configures optional collaborators of BandsUseCase.
type BandsOption func(*BandsUseCase)

// WithBandsCache stores computed results in c for ttl.
func WithBandsCache(c cache.Service, ttl time.Duration) BandsOption {
	return func(uc *BandsUseCase) {
		uc.cache = c
		if ttl > 0 {
			uc.ttl = ttl
		}
	}
}

// WithBandsPublisher ships every freshly computed snapshot to p.
func WithBandsPublisher(p domrepo.BandPublisher) BandsOption {
	return func(uc *BandsUseCase) { uc.publisher = p }
}

func NewBandsUseCase(store domrepo.SeriesStore, settings domrepo.SettingsStore, metrics domrepo.Metrics, opts ...BandsOption) *BandsUseCase {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	uc := &BandsUseCase{
		store:    store,
		settings: settings,
		metrics:  metrics,
		ttl:      defaultBandsCacheTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// SetLogger injects a structured logger.
func (uc *BandsUseCase) SetLogger(l *applogger.Logger) { uc.l = l }

// BandsParams selects the series and overrides single committed inputs.
// A nil override keeps the committed value.
type BandsParams struct {
	Symbol     string
	Timeframe  domrepo.Timeframe
	Length     *int
	Multiplier *float64
	Offset     *int
	Source     *models.Source
	// Base replaces the committed inputs as the starting point for overrides.
	Base *models.BollingerInputs
	// Limit keeps the last N points when > 0.
	Limit int
}

type BandsResult struct {
	Symbol    string                 `json:"symbol"`
	Timeframe string                 `json:"timeframe"`
	Inputs    models.BollingerInputs `json:"inputs"`
	Count     int                    `json:"count"`
	Defined   int                    `json:"defined"`
	Points    []models.BandPoint     `json:"points"`
}

// ResolveInputs merges the committed inputs with the overrides in p.
func (uc *BandsUseCase) ResolveInputs(p BandsParams) models.BollingerInputs {
	var in models.BollingerInputs
	if p.Base != nil {
		in = *p.Base
	} else {
		in = uc.settings.Current().Inputs
	}
	if p.Length != nil {
		in.Length = *p.Length
	}
	if p.Multiplier != nil {
		in.Multiplier = *p.Multiplier
	}
	if p.Offset != nil {
		in.Offset = *p.Offset
	}
	if p.Source != nil {
		in.Source = *p.Source
	}
	return in
}

func (uc *BandsUseCase) Compute(ctx context.Context, p BandsParams) (*BandsResult, error) {
	in := uc.ResolveInputs(p)
	if err := bollinger.Validate(in); err != nil {
		uc.metrics.RecordError("bands_config")
		return nil, err
	}
	if p.Timeframe == "" {
		p.Timeframe = domrepo.DefaultTimeframe()
	}

	series, err := uc.store.Series(ctx, p.Symbol, p.Timeframe)
	if err != nil {
		uc.metrics.RecordError("bands_series")
		return nil, fmt.Errorf("load series: %w", err)
	}
	if n := len(series); n > 0 {
		uc.metrics.RecordLastClose(p.Symbol, series[n-1].Close)
	}

	key := bandsCacheKey(p.Symbol, p.Timeframe, in, series)
	if res, ok := uc.fromCache(ctx, key); ok {
		return res.tail(p.Limit), nil
	}

	start := uc.now()
	points, err := bollinger.Compute(series, in)
	if err != nil {
		uc.metrics.RecordError("bands_compute")
		return nil, fmt.Errorf("compute bands: %w", err)
	}
	elapsed := uc.now().Sub(start)
	uc.metrics.RecordLatency("bands_compute", elapsed.Seconds())
	uc.metrics.RecordBandsComputed(string(in.Source))

	res := newBandsResult(p.Symbol, p.Timeframe, in, points)
	uc.toCache(ctx, key, res)
	uc.publish(ctx, res)

	if uc.l != nil {
		uc.l.Debug("bands computed",
			applogger.String("symbol", p.Symbol),
			applogger.String("tf", string(p.Timeframe)),
			applogger.String("inputs", in.String()),
			applogger.Int("bars", len(series)),
			applogger.Duration("duration_ms", elapsed),
		)
	}
	return res.tail(p.Limit), nil
}

func newBandsResult(symbol string, tf domrepo.Timeframe, in models.BollingerInputs, points []models.BandPoint) *BandsResult {
	r := &BandsResult{
		Symbol:    symbol,
		Timeframe: string(tf),
		Inputs:    in,
		Points:    points,
	}
	r.recount()
	return r
}

func (r *BandsResult) recount() {
	r.Count = len(r.Points)
	r.Defined = 0
	for _, p := range r.Points {
		if p.Defined() {
			r.Defined++
		}
	}
}

// tail returns a copy holding only the last n points. n <= 0 keeps everything.
func (r *BandsResult) tail(n int) *BandsResult {
	if n <= 0 || n >= len(r.Points) {
		return r
	}
	out := *r
	out.Points = append([]models.BandPoint(nil), r.Points[len(r.Points)-n:]...)
	out.recount()
	return &out
}

// bandsCacheKey fingerprints the series by bar count and last bar time, which
// changes on every append or replacement through the stores.
func bandsCacheKey(symbol string, tf domrepo.Timeframe, in models.BollingerInputs, series []models.OHLCV) string {
	var last models.OHLCV
	if n := len(series); n > 0 {
		last = series[n-1]
	}
	return cache.GenerateKeyWithParams("bands", symbol, tf,
		in.Length, in.Multiplier, in.Offset, in.Source,
		len(series), last.Time, last.Close)
}

func (uc *BandsUseCase) fromCache(ctx context.Context, key string) (*BandsResult, bool) {
	if uc.cache == nil {
		return nil, false
	}
	res, err := cache.GetJSON[BandsResult](ctx, uc.cache, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) && uc.l != nil {
			uc.l.Warn("bands cache read failed", applogger.String("key", key), applogger.Error(err))
		}
		uc.metrics.RecordCache("miss")
		return nil, false
	}
	uc.metrics.RecordCache("hit")
	return &res, true
}

func (uc *BandsUseCase) toCache(ctx context.Context, key string, res *BandsResult) {
	if uc.cache == nil {
		return
	}
	if err := cache.SetJSON(ctx, uc.cache, key, res, uc.ttl); err != nil {
		uc.metrics.RecordError("bands_cache")
		if uc.l != nil {
			uc.l.Warn("bands cache write failed", applogger.String("key", key), applogger.Error(err))
		}
	}
}

func (uc *BandsUseCase) publish(ctx context.Context, res *BandsResult) {
	if uc.publisher == nil {
		return
	}
	snap := models.BandSnapshot{
		Symbol:     res.Symbol,
		Timeframe:  res.Timeframe,
		Inputs:     res.Inputs,
		ComputedAt: uc.now().UTC(),
		Points:     res.Points,
	}
	if err := uc.publisher.Publish(ctx, snap); err != nil {
		uc.metrics.RecordError("bands_publish")
		if uc.l != nil {
			uc.l.Error("bands publish failed",
				applogger.String("symbol", res.Symbol),
				applogger.String("tf", res.Timeframe),
				applogger.Error(err),
			)
		}
	}
}

type nopMetrics struct{}

func (nopMetrics) RecordBandsComputed(string) {}
func (nopMetrics) RecordError(string) {}
func (nopMetrics) RecordLastClose(string, float64) {}
func (nopMetrics) RecordLatency(string, float64) {}
func (nopMetrics) RecordCache(string) {}

var _ domrepo.Metrics = nopMetrics{}
