package captions

import (
	"errors"
	"sync"

	"caption-studio/internal/domain"
)

// ErrCaptionNotFound is returned when an edit references an unknown id.
var ErrCaptionNotFound = errors.New("caption not found")

// Store holds the single caption set for the loaded video.
// The set is replaced wholesale by a new transcription and mutated
// in place by text edits; the two paths are serialized by the mutex.
type Store struct {
	mu       sync.RWMutex
	captions []domain.Caption
}

// NewStore creates an empty caption store.
func NewStore() *Store {
	return &Store{}
}

// Load replaces the entire caption set. Provided ids are preserved;
// records without an id are assigned the next free one. Interval
// overlap is tolerated, not rejected: FindActive resolves it.
func (s *Store) Load(captions []domain.Caption) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := int64(0)
	for _, c := range captions {
		if c.ID > next {
			next = c.ID
		}
	}

	s.captions = make([]domain.Caption, len(captions))
	for i, c := range captions {
		if c.ID == 0 {
			next++
			c.ID = next
		}
		s.captions[i] = c
	}
}

// FindActive returns the caption whose interval contains t, scanning
// in stored order so that overlapping intervals resolve to the
// earliest-starting record. This tie-break is deliberate policy.
func (s *Store) FindActive(t float64) (domain.Caption, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.captions {
		if t >= c.Start && t <= c.End {
			return c, true
		}
	}
	return domain.Caption{}, false
}

// FindByID returns the caption with the given id.
func (s *Store) FindByID(id int64) (domain.Caption, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.captions {
		if c.ID == id {
			return c, true
		}
	}
	return domain.Caption{}, false
}

// UpdateText mutates the text of exactly the record with matching id.
// Order, timing, and all other records are left unchanged. An absent
// id returns ErrCaptionNotFound.
func (s *Store) UpdateText(id int64, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.captions {
		if s.captions[i].ID == id {
			s.captions[i].Text = text
			return nil
		}
	}
	return ErrCaptionNotFound
}

// Captions returns a copy of the current caption set in stored order.
func (s *Store) Captions() []domain.Caption {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Caption, len(s.captions))
	copy(out, s.captions)
	return out
}

// Len reports the number of stored captions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.captions)
}
