package transcriber

import (
	"context"
	"errors"
	"sync"
	"testing"

	"caption-studio/internal/domain"
)

// fakeUploader allows injecting custom upload behavior per test.
type fakeUploader struct {
	upload func(ctx context.Context, path string) (Response, error)
}

// Upload delegates to injected function.
func (f *fakeUploader) Upload(ctx context.Context, path string) (Response, error) {
	if f.upload == nil {
		return Response{}, nil
	}
	return f.upload(ctx, path)
}

// TestSubmitWithoutSelectionFailsFast checks the no-file guard.
func TestSubmitWithoutSelectionFailsFast(t *testing.T) {
	o := NewOrchestrator(&fakeUploader{})

	if _, err := o.Submit(context.Background()); !errors.Is(err, ErrNoFileSelected) {
		t.Fatalf("error = %v, want %v", err, ErrNoFileSelected)
	}
	if o.Status() != domain.UploadStatusIdle {
		t.Fatalf("status = %s, want idle", o.Status())
	}
}

// TestSubmitLifecycle verifies ready -> uploading -> idle on success.
func TestSubmitLifecycle(t *testing.T) {
	uploading := make(chan struct{})
	release := make(chan struct{})
	o := NewOrchestrator(&fakeUploader{upload: func(ctx context.Context, path string) (Response, error) {
		close(uploading)
		<-release
		return Response{File: "v.mp4"}, nil
	}})

	if err := o.SelectFile("/tmp/v.mp4"); err != nil {
		t.Fatalf("select: %v", err)
	}
	if o.Status() != domain.UploadStatusReady {
		t.Fatalf("status = %s, want ready", o.Status())
	}

	var wg sync.WaitGroup
	wg.Add(1)
	var resp Response
	var submitErr error
	go func() {
		defer wg.Done()
		resp, submitErr = o.Submit(context.Background())
	}()

	<-uploading
	if o.Status() != domain.UploadStatusUploading {
		t.Fatalf("status = %s, want uploading", o.Status())
	}
	close(release)
	wg.Wait()

	if submitErr != nil {
		t.Fatalf("submit: %v", submitErr)
	}
	if resp.File != "v.mp4" {
		t.Fatalf("response file = %q", resp.File)
	}
	if o.Status() != domain.UploadStatusIdle {
		t.Fatalf("status = %s, want idle after success", o.Status())
	}
	if o.LastError() != "" {
		t.Fatalf("last error = %q, want empty", o.LastError())
	}
}

// TestSubmitRejectsConcurrentUpload checks the single-upload guard.
func TestSubmitRejectsConcurrentUpload(t *testing.T) {
	uploading := make(chan struct{})
	release := make(chan struct{})
	o := NewOrchestrator(&fakeUploader{upload: func(ctx context.Context, path string) (Response, error) {
		close(uploading)
		<-release
		return Response{}, nil
	}})

	if err := o.SelectFile("/tmp/v.mp4"); err != nil {
		t.Fatalf("select: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		o.Submit(context.Background())
	}()

	<-uploading
	if _, err := o.Submit(context.Background()); !errors.Is(err, ErrUploadInFlight) {
		t.Fatalf("second submit error = %v, want %v", err, ErrUploadInFlight)
	}
	if err := o.SelectFile("/tmp/other.mp4"); !errors.Is(err, ErrUploadInFlight) {
		t.Fatalf("select during upload error = %v, want %v", err, ErrUploadInFlight)
	}
	close(release)
	<-done
}

// TestSubmitRecordsFailureMessage verifies error surfacing without retry.
func TestSubmitRecordsFailureMessage(t *testing.T) {
	calls := 0
	o := NewOrchestrator(&fakeUploader{upload: func(ctx context.Context, path string) (Response, error) {
		calls++
		return Response{}, &RequestError{StatusCode: 500, Detail: "Error processing video"}
	}})

	if err := o.SelectFile("/tmp/v.mp4"); err != nil {
		t.Fatalf("select: %v", err)
	}
	if _, err := o.Submit(context.Background()); err == nil {
		t.Fatal("expected submit error")
	}

	if calls != 1 {
		t.Fatalf("upload calls = %d, want 1 (no retry)", calls)
	}
	if o.LastError() != "Error processing video" {
		t.Fatalf("last error = %q", o.LastError())
	}
	if o.Status() != domain.UploadStatusIdle {
		t.Fatalf("status = %s, want idle after failure", o.Status())
	}
}

// TestBeginClaimsSlotBeforeSubmit verifies the two-phase claim: one
// winner holds the slot, a racing Begin fails fast, and the following
// Submit consumes the claim and completes normally.
func TestBeginClaimsSlotBeforeSubmit(t *testing.T) {
	o := NewOrchestrator(&fakeUploader{upload: func(ctx context.Context, path string) (Response, error) {
		return Response{File: "v.mp4"}, nil
	}})

	if err := o.SelectFile("/tmp/v.mp4"); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := o.Begin(); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if o.Status() != domain.UploadStatusUploading {
		t.Fatalf("status = %s, want uploading after claim", o.Status())
	}
	if err := o.Begin(); !errors.Is(err, ErrUploadInFlight) {
		t.Fatalf("second begin error = %v, want %v", err, ErrUploadInFlight)
	}

	resp, err := o.Submit(context.Background())
	if err != nil {
		t.Fatalf("submit after begin: %v", err)
	}
	if resp.File != "v.mp4" {
		t.Fatalf("response file = %q", resp.File)
	}
	if o.Status() != domain.UploadStatusIdle {
		t.Fatalf("status = %s, want idle after success", o.Status())
	}
}

// TestBeginWithoutSelectionFailsFast checks the no-file guard.
func TestBeginWithoutSelectionFailsFast(t *testing.T) {
	o := NewOrchestrator(&fakeUploader{})

	if err := o.Begin(); !errors.Is(err, ErrNoFileSelected) {
		t.Fatalf("error = %v, want %v", err, ErrNoFileSelected)
	}
}

// TestResetAfterBeginInvalidatesClaim verifies that a reset landing
// between the claim and the transport skips the upload entirely.
func TestResetAfterBeginInvalidatesClaim(t *testing.T) {
	calls := 0
	o := NewOrchestrator(&fakeUploader{upload: func(ctx context.Context, path string) (Response, error) {
		calls++
		return Response{}, nil
	}})

	if err := o.SelectFile("/tmp/v.mp4"); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := o.Begin(); err != nil {
		t.Fatalf("begin: %v", err)
	}
	o.Reset()

	if _, err := o.Submit(context.Background()); !errors.Is(err, ErrNoFileSelected) {
		t.Fatalf("submit after reset error = %v, want %v", err, ErrNoFileSelected)
	}
	if calls != 0 {
		t.Fatalf("upload ran after reset: calls = %d", calls)
	}
}

// TestResetDiscardsStaleCompletion verifies the generation guard.
func TestResetDiscardsStaleCompletion(t *testing.T) {
	uploading := make(chan struct{})
	release := make(chan struct{})
	o := NewOrchestrator(&fakeUploader{upload: func(ctx context.Context, path string) (Response, error) {
		close(uploading)
		<-release
		return Response{File: "stale.mp4"}, nil
	}})

	if err := o.SelectFile("/tmp/v.mp4"); err != nil {
		t.Fatalf("select: %v", err)
	}

	errCh := make(chan error, 1)
	go func() {
		_, err := o.Submit(context.Background())
		errCh <- err
	}()

	<-uploading
	o.Reset()
	close(release)

	if err := <-errCh; !errors.Is(err, ErrStaleUpload) {
		t.Fatalf("stale completion error = %v, want %v", err, ErrStaleUpload)
	}
	if o.Status() != domain.UploadStatusIdle {
		t.Fatalf("status = %s, want idle", o.Status())
	}
}
