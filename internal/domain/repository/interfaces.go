package repository

import (
	"context"
	"errors"

	"BandView/internal/domain/models"
)

var (
	// ErrSeriesNotFound is returned when a store has no bars for the requested key.
	ErrSeriesNotFound = errors.New("series not found")
	// ErrUnsortedSeries is returned when ingested bars are not strictly ascending by time.
	ErrUnsortedSeries = errors.New("series not sorted by time")
)

// SeriesStore loads an OHLCV series sorted ascending by time.
// Returned slices are owned by the caller.
type SeriesStore interface {
	Series(ctx context.Context, symbol string, tf Timeframe) ([]models.OHLCV, error)
}

// BandPublisher ships computed band snapshots downstream.
type BandPublisher interface {
	Publish(ctx context.Context, s models.BandSnapshot) error
	Close() error
}

// SettingsStore holds the committed indicator settings.
type SettingsStore interface {
	Current() models.Settings
	// Commit replaces the committed settings and returns the previous value.
	Commit(s models.Settings) models.Settings
}

type Metrics interface {
	RecordBandsComputed(source string)
	RecordError(kind string)
	RecordLastClose(symbol string, price float64)
	RecordLatency(op string, seconds float64)
	RecordCache(result string)
}
