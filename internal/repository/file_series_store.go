package repository

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"BandView/internal/domain/models"
	domrepo "BandView/internal/domain/repository"
	applogger "BandView/pkg/logger"
)

// FileSeriesStore serves one static JSON OHLCV resource. Symbol and timeframe
// are ignored. The decoded series is kept in memory and reloaded when the
// file's modification time changes.
type FileSeriesStore struct {
	path string
	l    *applogger.Logger

	mu      sync.Mutex
	modTime time.Time
	size    int64
	series  []models.OHLCV
}

func NewFileSeriesStore(path string) *FileSeriesStore {
	return &FileSeriesStore{path: path}
}

// SetLogger injects a structured logger.
func (s *FileSeriesStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *FileSeriesStore) Series(_ context.Context, _ string, _ domrepo.Timeframe) ([]models.OHLCV, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fi, err := os.Stat(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domrepo.ErrSeriesNotFound, s.path)
		}
		return nil, fmt.Errorf("stat %s: %w", s.path, err)
	}
	if s.series != nil && fi.ModTime().Equal(s.modTime) && fi.Size() == s.size {
		return cloneSeries(s.series), nil
	}

	start := time.Now()
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.path, err)
	}
	defer f.Close()

	series, err := decodeSeries(f)
	if err != nil {
		if s.l != nil {
			s.l.Error("file series load failed", applogger.String("path", s.path), applogger.Error(err))
		}
		return nil, fmt.Errorf("load %s: %w", s.path, err)
	}
	s.series, s.modTime, s.size = series, fi.ModTime(), fi.Size()
	if s.l != nil {
		s.l.Info("file series loaded",
			applogger.String("path", s.path),
			applogger.Int("bars", len(series)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return cloneSeries(series), nil
}
