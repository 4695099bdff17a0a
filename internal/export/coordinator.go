package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"caption-studio/internal/styles"
)

// ErrExportRunning is returned when starting a second export of the
// same kind while one is in flight. Requests are not queued.
var ErrExportRunning = errors.New("export already running")

// ErrNoSource is returned when no processed video reference exists yet.
var ErrNoSource = errors.New("no video source available")

// Kind identifies one of the two independent export operations.
type Kind string

const (
	KindCaptionFile Kind = "caption_file"
	KindBurnedVideo Kind = "burned_video"
)

// Status tracks one export kind's lifecycle.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// Job is the ephemeral per-kind export state shown to the UI.
type Job struct {
	ID         string `json:"id"`
	Kind       Kind   `json:"kind"`
	Status     Status `json:"status"`
	OutputPath string `json:"outputPath,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Coordinator issues caption-file and burned-video export requests
// against the external rendering service. The two kinds run
// independently, each allowing at most one in-flight request; each
// start bumps a per-kind generation so completions that lost the race
// against a Reset are discarded instead of clobbering newer state.
type Coordinator struct {
	mu         sync.Mutex
	httpClient *http.Client
	baseURL    string
	outputDir  string
	jobs       map[Kind]Job
	generation map[Kind]uint64
}

// NewCoordinator creates a coordinator targeting the given service.
func NewCoordinator(baseURL, outputDir string, httpClient *http.Client) *Coordinator {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Coordinator{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		outputDir:  outputDir,
		jobs: map[Kind]Job{
			KindCaptionFile: {Kind: KindCaptionFile, Status: StatusIdle},
			KindBurnedVideo: {Kind: KindBurnedVideo, Status: StatusIdle},
		},
		generation: map[Kind]uint64{},
	}
}

// Job returns a snapshot of the given kind's current state.
func (c *Coordinator) Job(kind Kind) Job {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.jobs[kind]
}

// ExportCaptionFile fetches the caption file for the given source and
// saves it as <basename>.srt in the output directory. It blocks until
// the download completes or fails.
func (c *Coordinator) ExportCaptionFile(ctx context.Context, sourceID string) (Job, error) {
	if sourceID == "" {
		return c.Job(KindCaptionFile), ErrNoSource
	}

	gen, base, dir, err := c.start(KindCaptionFile)
	if err != nil {
		return c.Job(KindCaptionFile), err
	}

	url := base + "/download_srt/" + sourceID
	dest := filepath.Join(dir, captionFileName(sourceID))
	return c.run(ctx, KindCaptionFile, gen, url, dest)
}

// ExportBurnedVideo requests a server-rendered video with captions
// burned in, carrying the current style parameters so the output
// matches the live preview. Repeating the call with the same style
// re-renders the same output; concurrent identical calls are not
// deduplicated beyond the per-kind running guard.
func (c *Coordinator) ExportBurnedVideo(ctx context.Context, sourceID string, params styles.Params) (Job, error) {
	if sourceID == "" {
		return c.Job(KindBurnedVideo), ErrNoSource
	}

	gen, base, dir, err := c.start(KindBurnedVideo)
	if err != nil {
		return c.Job(KindBurnedVideo), err
	}

	url := base + "/download_video_with_subtitles/" + sourceID +
		"?" + params.Query().Encode()
	dest := filepath.Join(dir, burnedFileName(sourceID))
	return c.run(ctx, KindBurnedVideo, gen, url, dest)
}

// Reset abandons in-flight exports by advancing both generations and
// returns both kinds to idle. Abandoned downloads complete or fail
// into a discarded state.
func (c *Coordinator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, kind := range []Kind{KindCaptionFile, KindBurnedVideo} {
		c.generation[kind]++
		c.jobs[kind] = Job{Kind: kind, Status: StatusIdle}
	}
}

// SetTarget repoints the coordinator after a settings change.
// In-flight downloads against the old target are abandoned: the
// generation bump discards their completions and both kinds return
// to idle.
func (c *Coordinator) SetTarget(baseURL, outputDir string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.baseURL = strings.TrimRight(baseURL, "/")
	c.outputDir = outputDir
	for _, kind := range []Kind{KindCaptionFile, KindBurnedVideo} {
		c.generation[kind]++
		c.jobs[kind] = Job{Kind: kind, Status: StatusIdle}
	}
}

// start validates the transition to running, bumps the generation,
// and snapshots the target so the download is pinned to the settings
// it started under.
func (c *Coordinator) start(kind Kind) (uint64, string, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	job := c.jobs[kind]
	if !isValidTransition(job.Status, StatusRunning) {
		return 0, "", "", ErrExportRunning
	}

	c.generation[kind]++
	c.jobs[kind] = Job{
		ID:     uuid.NewString(),
		Kind:   kind,
		Status: StatusRunning,
	}
	return c.generation[kind], c.baseURL, c.outputDir, nil
}

// run downloads one export artifact and records the outcome, unless
// the generation moved on while the request was in flight.
func (c *Coordinator) run(ctx context.Context, kind Kind, gen uint64, url, dest string) (Job, error) {
	err := c.download(ctx, url, dest)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation[kind] {
		return c.jobs[kind], nil
	}

	job := c.jobs[kind]
	if err != nil {
		job.Status = StatusFailed
		job.Error = err.Error()
		c.jobs[kind] = job
		return job, err
	}

	job.Status = StatusDone
	job.OutputPath = dest
	c.jobs[kind] = job
	return job, nil
}

// download performs one GET and streams the payload to dest. Prior
// output is only replaced after the request has succeeded.
func (c *Coordinator) download(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build export request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request export: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.New(exportFailureMessage(resp))
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("save export payload: %w", err)
	}
	return nil
}

// exportFailureMessage prefers the server's detail field when present.
func exportFailureMessage(resp *http.Response) string {
	data, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err == nil {
		var reply struct {
			Detail string `json:"detail"`
		}
		if json.Unmarshal(data, &reply) == nil && strings.TrimSpace(reply.Detail) != "" {
			return strings.TrimSpace(reply.Detail)
		}
	}
	return fmt.Sprintf("export failed (status %d)", resp.StatusCode)
}

// isValidTransition enforces the per-kind export state machine edges.
func isValidTransition(from, to Status) bool {
	switch from {
	case StatusIdle, StatusDone, StatusFailed:
		return to == StatusRunning
	case StatusRunning:
		return to == StatusDone || to == StatusFailed
	default:
		return false
	}
}

// captionFileName derives the caption download name from the source.
func captionFileName(sourceID string) string {
	base := strings.TrimSuffix(sourceID, filepath.Ext(sourceID))
	return base + ".srt"
}

// burnedFileName derives the burned-video download name from the source.
func burnedFileName(sourceID string) string {
	ext := filepath.Ext(sourceID)
	base := strings.TrimSuffix(sourceID, ext)
	if ext == "" {
		ext = ".mp4"
	}
	return base + "_with_subtitles" + ext
}
