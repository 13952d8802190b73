package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"BandView/internal/domain/models"
	domrepo "BandView/internal/domain/repository"
)

const (
	DefaultCandlesLimit = 10000
	MaxCandlesLimit     = 50000
)

// ErrInvalidRange is returned when from is after to.
var ErrInvalidRange = errors.New("from must be <= to")

// ChartUseCase provides everything the chart page reads: candles, the price
// header and the band overlay.
type ChartUseCase struct {
	store    domrepo.SeriesStore
	settings domrepo.SettingsStore
	bands    *BandsUseCase
}

func NewChartUseCase(store domrepo.SeriesStore, settings domrepo.SettingsStore, bands *BandsUseCase) *ChartUseCase {
	return &ChartUseCase{store: store, settings: settings, bands: bands}
}

type CandlesParams struct {
	Symbol    string
	Timeframe domrepo.Timeframe
	// Zero From or To leaves that side open.
	From  time.Time
	To    time.Time
	Limit int
}

type CandlesResult struct {
	Symbol    string         `json:"symbol"`
	Timeframe string         `json:"timeframe"`
	Count     int            `json:"count"`
	Candles   []models.OHLCV `json:"candles"`
}

func (uc *ChartUseCase) Candles(ctx context.Context, p CandlesParams) (*CandlesResult, error) {
	if !p.From.IsZero() && !p.To.IsZero() && p.From.After(p.To) {
		return nil, ErrInvalidRange
	}
	if p.Limit <= 0 {
		p.Limit = DefaultCandlesLimit
	}
	if p.Limit > MaxCandlesLimit {
		p.Limit = MaxCandlesLimit
	}
	if p.Timeframe == "" {
		p.Timeframe = domrepo.DefaultTimeframe()
	}

	series, err := uc.store.Series(ctx, p.Symbol, p.Timeframe)
	if err != nil {
		return nil, fmt.Errorf("get candles: %w", err)
	}

	candles := make([]models.OHLCV, 0, len(series))
	for _, bar := range series {
		if !p.From.IsZero() && bar.Time < p.From.UnixMilli() {
			continue
		}
		if !p.To.IsZero() && bar.Time > p.To.UnixMilli() {
			break
		}
		candles = append(candles, bar)
	}
	if len(candles) > p.Limit {
		candles = candles[:p.Limit]
	}

	return &CandlesResult{
		Symbol:    p.Symbol,
		Timeframe: string(p.Timeframe),
		Count:     len(candles),
		Candles:   candles,
	}, nil
}

// Quote summarises the latest bar against the previous close.
func (uc *ChartUseCase) Quote(ctx context.Context, symbol string, tf domrepo.Timeframe) (*models.Quote, error) {
	if tf == "" {
		tf = domrepo.DefaultTimeframe()
	}
	series, err := uc.store.Series(ctx, symbol, tf)
	if err != nil {
		return nil, fmt.Errorf("get quote: %w", err)
	}
	n := len(series)
	if n == 0 {
		return nil, fmt.Errorf("get quote: %w: %s %s", domrepo.ErrSeriesNotFound, symbol, tf)
	}
	last := series[n-1]
	q := &models.Quote{
		Symbol:    symbol,
		Timeframe: string(tf),
		Time:      last.Time,
		Open:      last.Open,
		High:      last.High,
		Low:       last.Low,
		Close:     last.Close,
		Volume:    last.Volume,
	}
	if n > 1 {
		prev := series[n-2].Close
		q.Change = last.Close - prev
		if prev != 0 {
			q.ChangePercent = q.Change / prev * 100
		}
	}
	return q, nil
}

// Overlay computes the bands and lays them out as chart polylines using the
// committed style. Inputs and style come from one committed value. Hidden
// lines are omitted.
func (uc *ChartUseCase) Overlay(ctx context.Context, p BandsParams) (*models.Overlay, error) {
	cur := uc.settings.Current()
	p.Base = &cur.Inputs
	res, err := uc.bands.Compute(ctx, p)
	if err != nil {
		return nil, err
	}
	style := cur.Style

	lines := []struct {
		id, name string
		ls       models.BandLineStyle
		value    func(models.BandPoint) float64
	}{
		{"bb_upper", "Upper", style.Upper, func(bp models.BandPoint) float64 { return bp.Upper }},
		{"bb_basis", "Basis", style.Basis, func(bp models.BandPoint) float64 { return bp.Basis }},
		{"bb_lower", "Lower", style.Lower, func(bp models.BandPoint) float64 { return bp.Lower }},
	}

	ov := &models.Overlay{
		Symbol:    res.Symbol,
		Timeframe: res.Timeframe,
		Inputs:    res.Inputs,
		Lines:     make([]models.OverlayLine, 0, len(lines)),
	}
	for _, l := range lines {
		if !l.ls.Visible {
			continue
		}
		pts := make([]models.OverlayPoint, len(res.Points))
		for i, bp := range res.Points {
			pts[i] = models.OverlayPoint{Timestamp: bp.Time, Value: models.NullableFloat(l.value(bp))}
		}
		ov.Lines = append(ov.Lines, models.OverlayLine{
			ID:     l.id,
			Name:   l.name,
			Lock:   true,
			Color:  l.ls.Color,
			Size:   l.ls.Width,
			Style:  l.ls.Style,
			Points: pts,
		})
	}
	if style.Background.Visible {
		bg := style.Background
		ov.Background = &bg
	}
	return ov, nil
}
