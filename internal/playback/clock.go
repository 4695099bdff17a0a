package playback

import "sync"

// Tick is one playback position report delivered to subscribers.
type Tick struct {
	CurrentTime float64 `json:"currentTime"`
	Duration    float64 `json:"duration"`
}

// SeekCommand instructs the underlying media element to jump to an
// absolute time in seconds.
type SeekCommand func(target float64)

// Clock is the authoritative Go-side mirror of the media element's
// playback state. The element reports position advances and metadata
// through Advance/SetDuration; seeks flow back through the registered
// SeekCommand and land as a later Advance.
type Clock struct {
	mu      sync.Mutex
	source  string
	current float64
	// duration stays 0 until the element reports loaded metadata and
	// is immutable for the life of one source.
	duration float64
	loadErr  string
	seek     SeekCommand
	subs     []func(Tick)
}

// NewClock creates a clock with no source loaded.
func NewClock() *Clock {
	return &Clock{}
}

// OnSeek registers the command used to instruct the media element.
func (c *Clock) OnSeek(cmd SeekCommand) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seek = cmd
}

// Subscribe registers a callback invoked on every position advance and
// once when duration becomes known.
func (c *Clock) Subscribe(fn func(Tick)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs = append(c.subs, fn)
}

// SetSource loads a new media reference and resets position, duration,
// and any prior load error.
func (c *Clock) SetSource(url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.source = url
	c.current = 0
	c.duration = 0
	c.loadErr = ""
}

// Source returns the currently loaded media reference.
func (c *Clock) Source() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.source
}

// SetDuration records the duration learned from loaded metadata and
// notifies subscribers once.
func (c *Clock) SetDuration(d float64) {
	c.mu.Lock()
	if d < 0 {
		d = 0
	}
	c.duration = d
	tick, subs := c.snapshotLocked()
	c.mu.Unlock()

	emit(subs, tick)
}

// Advance records a position report from the media element and
// notifies subscribers.
func (c *Clock) Advance(t float64) {
	c.mu.Lock()
	if t < 0 {
		t = 0
	}
	c.current = t
	tick, subs := c.snapshotLocked()
	c.mu.Unlock()

	emit(subs, tick)
}

// CurrentTime returns the last reported playback position.
func (c *Clock) CurrentTime() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Duration returns the media duration, 0 until metadata has loaded.
func (c *Clock) Duration() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.duration
}

// SeekTo jumps to fraction*duration. Seeking before metadata has
// loaded (duration 0) is a no-op.
func (c *Clock) SeekTo(fraction float64) {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}

	c.mu.Lock()
	duration := c.duration
	seek := c.seek
	c.mu.Unlock()

	if duration == 0 || seek == nil {
		return
	}
	seek(fraction * duration)
}

// SeekToTime jumps to an exact time in seconds, used by caption-list
// clicks that must land exactly on a caption start. No-op until
// metadata has loaded.
func (c *Clock) SeekToTime(t float64) {
	c.mu.Lock()
	duration := c.duration
	seek := c.seek
	c.mu.Unlock()

	if duration == 0 || seek == nil {
		return
	}
	if t < 0 {
		t = 0
	}
	seek(t)
}

// Fail records a media load error. The clock does not retry.
func (c *Clock) Fail(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loadErr = msg
}

// Err returns the recorded load error message, empty when healthy.
func (c *Clock) Err() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadErr
}

// snapshotLocked builds the tick payload and subscriber list under lock.
func (c *Clock) snapshotLocked() (Tick, []func(Tick)) {
	tick := Tick{CurrentTime: c.current, Duration: c.duration}
	subs := make([]func(Tick), len(c.subs))
	copy(subs, c.subs)
	return tick, subs
}

// emit delivers one tick to each subscriber outside the clock lock.
func emit(subs []func(Tick), tick Tick) {
	for _, fn := range subs {
		fn(tick)
	}
}
