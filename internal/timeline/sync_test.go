package timeline

import (
	"testing"

	"caption-studio/internal/captions"
	"caption-studio/internal/domain"
	"caption-studio/internal/playback"
)

// harness builds a store, clock, and synchronizer capturing updates.
func harness(t *testing.T, set []domain.Caption) (*captions.Store, *playback.Clock, *Synchronizer, *[]Update) {
	t.Helper()
	store := captions.NewStore()
	store.Load(set)
	clock := playback.NewClock()
	clock.OnSeek(func(target float64) { clock.Advance(target) })

	var updates []Update
	sync := NewSynchronizer(store, clock, func(u Update) {
		updates = append(updates, u)
	})
	return store, clock, sync, &updates
}

// TestTickPublishesActiveCaption verifies lookup on every advance.
func TestTickPublishesActiveCaption(t *testing.T) {
	_, clock, _, updates := harness(t, []domain.Caption{
		{ID: 1, Start: 0, End: 2, Text: "a"},
		{ID: 2, Start: 3, End: 5, Text: "b"},
	})
	clock.SetDuration(10)
	clock.Advance(4)

	last := (*updates)[len(*updates)-1]
	if last.Active == nil || last.Active.ID != 2 {
		t.Fatalf("active = %+v, want caption 2", last.Active)
	}
	if !last.ActiveChanged {
		t.Fatal("expected ActiveChanged on first resolution")
	}
	if last.Progress != 40 {
		t.Fatalf("progress = %v, want 40", last.Progress)
	}
	if last.CurrentClock != "0:04" || last.DurationClock != "0:10" {
		t.Fatalf("clocks = %q/%q, want 0:04/0:10", last.CurrentClock, last.DurationClock)
	}
}

// TestRedundantTicksSuppressOverlayRerender checks the cached-id guard.
func TestRedundantTicksSuppressOverlayRerender(t *testing.T) {
	_, clock, _, updates := harness(t, []domain.Caption{
		{ID: 1, Start: 0.5, End: 5, Text: "a"},
	})
	clock.SetDuration(10)
	clock.Advance(1)
	clock.Advance(2)
	clock.Advance(3)

	n := len(*updates)
	if n != 4 {
		t.Fatalf("update count = %d, want 4 (every tick publishes time)", n)
	}
	if !(*updates)[1].ActiveChanged {
		t.Fatal("first in-interval tick should mark the overlay dirty")
	}
	for _, u := range (*updates)[2:] {
		if u.ActiveChanged {
			t.Fatalf("redundant tick marked overlay dirty: %+v", u)
		}
	}
}

// TestEditVisibleOnNextTickAfterInvalidate checks edit propagation.
func TestEditVisibleOnNextTickAfterInvalidate(t *testing.T) {
	store, clock, sync, updates := harness(t, []domain.Caption{
		{ID: 1, Start: 0, End: 5, Text: "before"},
	})
	clock.SetDuration(10)
	clock.Advance(1)

	if err := store.UpdateText(1, "after"); err != nil {
		t.Fatalf("UpdateText: %v", err)
	}
	sync.Invalidate()
	clock.Advance(1.1)

	last := (*updates)[len(*updates)-1]
	if !last.ActiveChanged {
		t.Fatal("expected overlay republish after store mutation")
	}
	if last.Active == nil || last.Active.Text != "after" {
		t.Fatalf("active = %+v, want edited text", last.Active)
	}
	if clock.CurrentTime() != 1.1 {
		t.Fatalf("edit touched clock state: t=%v", clock.CurrentTime())
	}
}

// TestCaptionClickSeekLandsInsideInterval verifies the exact-start seek
// resolves to the clicked caption on the next tick.
func TestCaptionClickSeekLandsInsideInterval(t *testing.T) {
	_, clock, _, updates := harness(t, []domain.Caption{
		{ID: 1, Start: 42.3, End: 45, Text: "clicked"},
	})
	clock.SetDuration(120)

	clock.SeekToTime(42.3)

	last := (*updates)[len(*updates)-1]
	if last.CurrentTime != 42.3 {
		t.Fatalf("current time = %v, want exactly 42.3", last.CurrentTime)
	}
	if last.Active == nil || last.Active.ID != 1 {
		t.Fatalf("active = %+v, want clicked caption", last.Active)
	}
}

// TestProgress verifies scrub value arithmetic and the zero-duration case.
func TestProgress(t *testing.T) {
	if got := Progress(30, 120); got != 25 {
		t.Fatalf("Progress(30,120) = %v, want 25", got)
	}
	if got := Progress(30, 0); got != 0 {
		t.Fatalf("Progress(30,0) = %v, want 0", got)
	}
}
