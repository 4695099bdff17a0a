package transcriber

import (
	"context"
	"errors"
	"sync"

	"caption-studio/internal/domain"
)

// ErrNoFileSelected is returned when submit runs without a selection.
var ErrNoFileSelected = errors.New("no file selected")

// ErrUploadInFlight is returned when a second upload is submitted
// while one is running.
var ErrUploadInFlight = errors.New("upload already in flight")

// ErrStaleUpload marks a completion that arrived after the request
// generation moved on; the result must be discarded.
var ErrStaleUpload = errors.New("stale upload discarded")

// uploader isolates the HTTP client behind an interface for tests.
type uploader interface {
	Upload(ctx context.Context, path string) (Response, error)
}

// Orchestrator manages the single upload-to-transcript lifecycle.
// Each submit bumps a generation counter; completions carrying an
// older generation are discarded on arrival instead of clobbering
// newer state.
type Orchestrator struct {
	mu         sync.Mutex
	client     uploader
	status     domain.UploadStatus
	filePath   string
	generation uint64
	lastError  string
	claimed    bool
}

// NewOrchestrator creates an idle orchestrator over the given client.
func NewOrchestrator(client uploader) *Orchestrator {
	return &Orchestrator{
		client: client,
		status: domain.UploadStatusIdle,
	}
}

// SelectFile records the chosen video path and moves to ready state.
// An empty path clears the selection. Selection is refused while an
// upload is in flight.
func (o *Orchestrator) SelectFile(path string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.status == domain.UploadStatusUploading {
		return ErrUploadInFlight
	}

	o.filePath = path
	if path == "" {
		o.status = domain.UploadStatusIdle
	} else {
		o.status = domain.UploadStatusReady
	}
	return nil
}

// Status returns the current lifecycle state.
func (o *Orchestrator) Status() domain.UploadStatus {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

// FilePath returns the currently selected video path.
func (o *Orchestrator) FilePath() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.filePath
}

// LastError returns the most recent upload failure message, empty
// after a success.
func (o *Orchestrator) LastError() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastError
}

// Uploading reports whether an upload is currently in flight.
func (o *Orchestrator) Uploading() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status == domain.UploadStatusUploading
}

// Begin atomically claims the single upload slot for the selected
// file; the claim is consumed by the next Submit. It fails fast when
// nothing is selected or an upload is already in flight, so racing
// callers get exactly one winner before any goroutine is spawned.
func (o *Orchestrator) Begin() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.beginLocked(); err != nil {
		return err
	}
	o.claimed = true
	return nil
}

// beginLocked validates the guards and transitions to uploading.
func (o *Orchestrator) beginLocked() error {
	if o.filePath == "" {
		return ErrNoFileSelected
	}
	if o.status == domain.UploadStatusUploading {
		return ErrUploadInFlight
	}
	o.status = domain.UploadStatusUploading
	o.generation++
	return nil
}

// Submit uploads the selected file and blocks until the service
// replies. Without a prior Begin it claims the slot itself; it fails
// fast when nothing is selected or an upload is already running, and
// never retries.
func (o *Orchestrator) Submit(ctx context.Context) (Response, error) {
	o.mu.Lock()
	if o.claimed {
		o.claimed = false
	} else if err := o.beginLocked(); err != nil {
		o.mu.Unlock()
		return Response{}, err
	}
	gen := o.generation
	path := o.filePath
	o.mu.Unlock()

	resp, err := o.client.Upload(ctx, path)

	o.mu.Lock()
	defer o.mu.Unlock()
	if gen != o.generation {
		return Response{}, ErrStaleUpload
	}

	o.status = domain.UploadStatusIdle
	if err != nil {
		o.lastError = err.Error()
		return Response{}, err
	}
	o.lastError = ""
	return resp, nil
}

// Reset abandons any in-flight upload by advancing the generation and
// returns the orchestrator to idle. The abandoned request completes or
// fails into a discarded state.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.generation++
	o.status = domain.UploadStatusIdle
	o.filePath = ""
	o.lastError = ""
	o.claimed = false
}
