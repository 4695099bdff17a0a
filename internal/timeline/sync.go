package timeline

import (
	"sync"

	"caption-studio/internal/captions"
	"caption-studio/internal/domain"
	"caption-studio/internal/playback"
)

// Update carries one timeline publication for the scrub control and,
// when ActiveChanged is set, a fresh active caption for the overlay.
type Update struct {
	CurrentTime   float64         `json:"currentTime"`
	Duration      float64         `json:"duration"`
	Progress      float64         `json:"progress"`
	CurrentClock  string          `json:"currentClock"`
	DurationClock string          `json:"durationClock"`
	Active        *domain.Caption `json:"active,omitempty"`
	ActiveChanged bool            `json:"activeChanged"`
}

// Sink receives timeline updates for rendering.
type Sink func(Update)

// Synchronizer resolves the active caption from the store on every
// clock tick and publishes it. The active caption is always a pure
// function of (store, current time); the only state kept here is the
// last published caption id, used to suppress redundant overlay
// renders.
type Synchronizer struct {
	mu           sync.Mutex
	store        *captions.Store
	sink         Sink
	lastActiveID int64
	hadActive    bool
	primed       bool
}

// NewSynchronizer wires the store to the clock and publishes through
// sink on every tick.
func NewSynchronizer(store *captions.Store, clock *playback.Clock, sink Sink) *Synchronizer {
	s := &Synchronizer{store: store, sink: sink}
	clock.Subscribe(s.handleTick)
	return s
}

// Invalidate clears the cached active caption id so the next tick
// republishes the overlay. Called after any store mutation; edits
// become visible on the next tick without touching clock state.
func (s *Synchronizer) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.primed = false
}

// handleTick resolves and publishes the timeline state for one tick.
func (s *Synchronizer) handleTick(tick playback.Tick) {
	active, ok := s.store.FindActive(tick.CurrentTime)

	s.mu.Lock()
	changed := !s.primed || ok != s.hadActive ||
		(ok && active.ID != s.lastActiveID)
	s.primed = true
	s.hadActive = ok
	if ok {
		s.lastActiveID = active.ID
	} else {
		s.lastActiveID = 0
	}
	sink := s.sink
	s.mu.Unlock()

	if sink == nil {
		return
	}

	update := Update{
		CurrentTime:   tick.CurrentTime,
		Duration:      tick.Duration,
		Progress:      Progress(tick.CurrentTime, tick.Duration),
		CurrentClock:  captions.FormatClock(tick.CurrentTime),
		DurationClock: captions.FormatClock(tick.Duration),
		ActiveChanged: changed,
	}
	if ok {
		c := active
		update.Active = &c
	}
	sink(update)
}

// Progress maps a playback position to the 0-100 scrub control value,
// 0 while duration is unknown.
func Progress(currentTime, duration float64) float64 {
	if duration <= 0 {
		return 0
	}
	return currentTime / duration * 100
}
