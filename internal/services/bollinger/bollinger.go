// Package bollinger computes Bollinger Bands over an OHLCV series.
//
// Compute keeps no state between calls and is safe for concurrent use.
package bollinger

import (
	"errors"
	"fmt"
	"math"

	"BandView/internal/domain/models"
)

var (
	// ErrInvalidConfiguration is returned when length < 1.
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrUnknownSource is returned when the source is outside the supported set.
	ErrUnknownSource = errors.New("unknown source")
	// ErrInvalidMultiplier is returned for NaN or infinite multipliers. It
	// wraps ErrInvalidConfiguration.
	ErrInvalidMultiplier = fmt.Errorf("%w: multiplier must be finite", ErrInvalidConfiguration)
)

// Validate checks inputs without computing anything.
func Validate(in models.BollingerInputs) error {
	if in.Length < 1 {
		return fmt.Errorf("%w: length must be >= 1, got %d", ErrInvalidConfiguration, in.Length)
	}
	if math.IsNaN(in.Multiplier) || math.IsInf(in.Multiplier, 0) {
		return fmt.Errorf("%w, got %v", ErrInvalidMultiplier, in.Multiplier)
	}
	if _, ok := in.Source.Selector(); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSource, in.Source)
	}
	return nil
}

// Sources returns the supported source values.
func Sources() []models.Source { return models.Sources() }

// SourceValues extracts the scalar series selected by src.
func SourceValues(series []models.OHLCV, src models.Source) ([]float64, error) {
	pick, ok := src.Selector()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, src)
	}
	out := make([]float64, len(series))
	for i := range series {
		out[i] = pick(series[i])
	}
	return out, nil
}

// Compute returns one BandPoint per input bar. Points without a full window of
// history, or left empty by a non-zero offset, are undefined (NaN in all fields).
func Compute(series []models.OHLCV, in models.BollingerInputs) ([]models.BandPoint, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	if len(series) == 0 {
		return []models.BandPoint{}, nil
	}
	values, err := SourceValues(series, in.Source)
	if err != nil {
		return nil, err
	}

	n := in.Length
	w := float64(n)
	out := make([]models.BandPoint, len(series))
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= n {
			sum -= values[i-n]
		}
		if i+1 < n {
			out[i] = models.UndefinedPoint(series[i].Time)
			continue
		}
		mean := sum / w
		sq := 0.0
		for _, x := range values[i+1-n : i+1] {
			d := x - mean
			sq += d * d
		}
		dev := in.Multiplier * math.Sqrt(sq/w)
		out[i] = models.BandPoint{
			Time:  series[i].Time,
			Basis: mean,
			Upper: mean + dev,
			Lower: mean - dev,
		}
	}

	if in.Offset == 0 {
		return out, nil
	}
	return shift(out, series, in.Offset), nil
}

// shift moves the point computed at i to i+offset, taking the target bar's time.
func shift(points []models.BandPoint, series []models.OHLCV, offset int) []models.BandPoint {
	shifted := make([]models.BandPoint, len(points))
	filled := make([]bool, len(points))
	for i, p := range points {
		j := i + offset
		if j < 0 || j >= len(points) {
			continue
		}
		p.Time = series[j].Time
		shifted[j] = p
		filled[j] = true
	}
	for j := range shifted {
		if !filled[j] {
			shifted[j] = models.UndefinedPoint(series[j].Time)
		}
	}
	return shifted
}
