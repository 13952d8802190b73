package repository

import (
	"encoding/json"
	"fmt"
	"io"

	"BandView/internal/domain/models"
	domrepo "BandView/internal/domain/repository"
)

// decodeSeries reads a JSON array of OHLCV bars and checks the ordering invariant.
func decodeSeries(r io.Reader) ([]models.OHLCV, error) {
	var series []models.OHLCV
	if err := json.NewDecoder(r).Decode(&series); err != nil {
		return nil, fmt.Errorf("decode ohlcv: %w", err)
	}
	if err := checkSorted(series); err != nil {
		return nil, err
	}
	if series == nil {
		series = []models.OHLCV{}
	}
	return series, nil
}

func checkSorted(series []models.OHLCV) error {
	if i, ok := models.IsSorted(series); !ok {
		return fmt.Errorf("%w: bar %d at time %d follows %d",
			domrepo.ErrUnsortedSeries, i, series[i].Time, series[i-1].Time)
	}
	return nil
}

func cloneSeries(series []models.OHLCV) []models.OHLCV {
	out := make([]models.OHLCV, len(series))
	copy(out, series)
	return out
}
