package repository

import (
	"sync/atomic"

	"BandView/internal/domain/models"
)

// AtomicSettingsStore holds the committed settings. Readers never observe a
// partially written value because Settings is swapped as a whole.
type AtomicSettingsStore struct {
	cur atomic.Pointer[models.Settings]
}

func NewAtomicSettingsStore(initial models.Settings) *AtomicSettingsStore {
	s := &AtomicSettingsStore{}
	s.cur.Store(&initial)
	return s
}

func (s *AtomicSettingsStore) Current() models.Settings {
	return *s.cur.Load()
}

func (s *AtomicSettingsStore) Commit(next models.Settings) models.Settings {
	prev := s.cur.Swap(&next)
	return *prev
}
