package events

import (
	"sync"
	"time"

	"caption-studio/internal/domain"
)

// Type classifies messages emitted to UI subscribers.
type Type string

const (
	TypeUploadStatus  Type = "upload_status"
	TypeExportStatus  Type = "export_status"
	TypeActiveCaption Type = "active_caption"
	TypeError         Type = "error"
	TypeResult        Type = "result"
)

// Event is a sequenced payload consumed by UI subscribers.
type Event struct {
	Seq          int64               `json:"seq"`
	Timestamp    time.Time           `json:"timestamp"`
	Type         Type                `json:"type"`
	Message      string              `json:"message,omitempty"`
	UploadStatus domain.UploadStatus `json:"uploadStatus,omitempty"`
	ExportKind   string              `json:"exportKind,omitempty"`
	ExportStatus string              `json:"exportStatus,omitempty"`
	Caption      *domain.Caption     `json:"caption,omitempty"`
	OutputPath   string              `json:"outputPath,omitempty"`
}

// Bus stores recent events and provides incremental reads.
type Bus struct {
	mu        sync.RWMutex
	nextSeq   int64
	maxEvents int
	events    []Event
}

// NewBus creates a bounded in-memory event buffer.
func NewBus(maxEvents int) *Bus {
	if maxEvents <= 0 {
		maxEvents = 500
	}

	return &Bus{
		maxEvents: maxEvents,
		events:    make([]Event, 0, maxEvents),
	}
}

// Publish appends one event and assigns sequence and timestamp.
func (b *Bus) Publish(event Event) Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextSeq++
	event.Seq = b.nextSeq
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	b.events = append(b.events, event)
	if len(b.events) > b.maxEvents {
		trim := len(b.events) - b.maxEvents
		b.events = append([]Event(nil), b.events[trim:]...)
	}

	return event
}

// Since returns events with sequence strictly greater than seq.
func (b *Bus) Since(seq int64) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(b.events) == 0 {
		return nil
	}

	out := make([]Event, 0, len(b.events))
	for _, event := range b.events {
		if event.Seq > seq {
			out = append(out, event)
		}
	}
	return out
}
