package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"go.uber.org/zap"

	"caption-studio/internal/captions"
	"caption-studio/internal/config"
	"caption-studio/internal/diagnostics"
	"caption-studio/internal/domain"
	"caption-studio/internal/events"
	"caption-studio/internal/export"
	"caption-studio/internal/playback"
	"caption-studio/internal/styles"
	"caption-studio/internal/timeline"
	"caption-studio/internal/transcriber"

	wailsruntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

var videoDialogFilter = []wailsruntime.FileFilter{
	{
		DisplayName: "Video files",
		Pattern:     "*.mp4;*.mov;*.mkv;*.avi;*.webm",
	},
	{
		DisplayName: "All files",
		Pattern:     "*",
	},
}

// App wires the caption engine together and exposes it to the UI:
// configuration, caption store, playback clock, timeline synchronizer,
// style model, export coordinator, and the transcription orchestrator.
type App struct {
	Settings    domain.Settings
	Store       config.Store
	Captions    *captions.Store
	Clock       *playback.Clock
	Styles      *styles.Model
	Exports     *export.Coordinator
	Diagnostics domain.DiagnosticReport

	syncer       *timeline.Synchronizer
	orchestrator *transcriber.Orchestrator
	client       *transcriber.Client
	checker      *diagnostics.Checker
	events       *events.Bus
	logger       *zap.Logger
	assets       fs.FS

	mu         sync.Mutex
	runtimeCtx context.Context
	mode       domain.ViewMode
	sourceID   string
}

// New builds the application with persisted settings and startup checks.
func New() (*App, error) {
	return NewWithAssets(nil)
}

// NewWithAssets builds the application and optionally configures
// embedded frontend assets.
func NewWithAssets(assets fs.FS) (*App, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve user home: %w", err)
	}

	store := config.NewJSONStore(filepath.Join(homeDir, ".caption-studio", "settings.json"))
	settings, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	client := transcriber.NewClient(settings.ServerURL, http.DefaultClient)
	checker := diagnostics.NewChecker(client.Health)

	app := &App{
		Settings:     settings,
		Store:        store,
		Captions:     captions.NewStore(),
		Clock:        playback.NewClock(),
		Styles:       styles.NewModel(styles.DefaultOverlay()),
		Exports:      export.NewCoordinator(settings.ServerURL, settings.OutputDir, http.DefaultClient),
		Diagnostics:  checker.Run(settings),
		client:       client,
		checker:      checker,
		events:       events.NewBus(1000),
		logger:       logger,
		assets:       assets,
		mode:         domain.ViewModeUpload,
	}
	app.orchestrator = transcriber.NewOrchestrator(client)
	app.syncer = timeline.NewSynchronizer(app.Captions, app.Clock, app.publishTimeline)
	app.Clock.OnSeek(func(target float64) {
		app.emitRuntime("playback:seek", target)
	})

	return app, nil
}

// Run starts the Wails desktop application and binds backend methods.
func (a *App) Run() error {
	assetOptions := &assetserver.Options{}
	if a.assets != nil {
		assetOptions.Assets = a.assets
	} else {
		assetOptions.Handler = http.FileServer(http.Dir("./frontend"))
	}

	return wails.Run(&options.App{
		Title:       "Caption Studio",
		Width:       1180,
		Height:      780,
		AssetServer: assetOptions,
		OnStartup:   a.Startup,
		OnShutdown: func(ctx context.Context) {
			a.mu.Lock()
			defer a.mu.Unlock()
			a.runtimeCtx = nil
		},
		Bind: []interface{}{a},
	})
}

// Startup stores the Wails runtime context for push events.
func (a *App) Startup(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.runtimeCtx = ctx
}

// GetSettings loads and returns the latest persisted settings.
func (a *App) GetSettings() (domain.Settings, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}

	a.mu.Lock()
	a.Settings = settings
	a.mu.Unlock()

	return settings, nil
}

// SaveSettings normalizes and persists settings, repoints the service
// clients, and refreshes diagnostics. The client, orchestrator, and
// export coordinator live for the whole app session: repointing bumps
// their generations, so completions of requests started under the old
// settings are discarded instead of clobbering newer state.
func (a *App) SaveSettings(settings domain.Settings) (domain.Settings, error) {
	normalized := normalizeSettings(settings)
	if err := a.Store.Save(normalized); err != nil {
		return domain.Settings{}, fmt.Errorf("save settings: %w", err)
	}

	a.client.SetBaseURL(normalized.ServerURL)
	a.orchestrator.Reset()
	a.Exports.SetTarget(normalized.ServerURL, normalized.OutputDir)

	report := a.checker.Run(normalized)

	a.mu.Lock()
	a.Settings = normalized
	a.Diagnostics = report
	a.mu.Unlock()

	return normalized, nil
}

// GetDiagnostics returns the latest cached diagnostics report.
func (a *App) GetDiagnostics() domain.DiagnosticReport {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Diagnostics
}

// RefreshDiagnostics reloads settings and reruns startup checks.
func (a *App) RefreshDiagnostics() (domain.DiagnosticReport, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.DiagnosticReport{}, fmt.Errorf("load settings: %w", err)
	}

	report := a.checker.Run(settings)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.Settings = settings
	a.Diagnostics = report
	return report, nil
}

// PickVideoFile opens a native file dialog for video selection.
func (a *App) PickVideoFile() (string, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return "", err
	}

	path, err := wailsruntime.OpenFileDialog(ctx, wailsruntime.OpenDialogOptions{
		Title:   "Select video file",
		Filters: videoDialogFilter,
	})
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(path), nil
}

// SelectVideo records the chosen video path for the next upload.
func (a *App) SelectVideo(path string) error {
	return a.orchestrator.SelectFile(strings.TrimSpace(path))
}

// UploadStatus returns the transcription upload lifecycle state.
func (a *App) UploadStatus() domain.UploadStatus {
	return a.orchestrator.Status()
}

// Mode returns the current primary UI surface.
func (a *App) Mode() domain.ViewMode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

// PlayerSource returns the live video URL for the media element.
func (a *App) PlayerSource() string {
	return a.Clock.Source()
}

// StartUpload submits the selected video for transcription and seeds
// the caption store and player when the service replies. The upload
// slot is claimed before the started event goes out, so racing calls
// produce exactly one event and one goroutine.
func (a *App) StartUpload() error {
	if err := a.orchestrator.Begin(); err != nil {
		return err
	}

	a.publishEvent(events.Event{
		Type:         events.TypeUploadStatus,
		UploadStatus: domain.UploadStatusUploading,
		Message:      "Upload started",
	})
	go a.runUpload()
	return nil
}

// runUpload executes one upload and maps the outcome to UI events.
func (a *App) runUpload() {
	resp, err := a.orchestrator.Submit(context.Background())
	if err != nil {
		if errors.Is(err, transcriber.ErrStaleUpload) {
			a.logger.Info("discarded stale upload completion")
			a.publishEvent(events.Event{
				Type:         events.TypeUploadStatus,
				UploadStatus: domain.UploadStatusIdle,
				Message:      "Upload discarded",
			})
			return
		}
		if errors.Is(err, transcriber.ErrNoFileSelected) || errors.Is(err, transcriber.ErrUploadInFlight) {
			return
		}

		a.logger.Warn("upload failed", zap.Error(err))
		a.publishEvent(events.Event{
			Type:         events.TypeUploadStatus,
			UploadStatus: domain.UploadStatusIdle,
			Message:      "Upload failed",
		})
		a.publishEvent(events.Event{
			Type:    events.TypeError,
			Message: err.Error(),
		})
		return
	}

	a.Captions.Load(resp.Subtitles)
	a.syncer.Invalidate()

	videoRef := resp.VideoPath
	if videoRef == "" {
		videoRef = resp.File
	}

	a.mu.Lock()
	a.sourceID = resp.File
	if videoRef != "" {
		a.mode = domain.ViewModePlayer
	}
	mode := a.mode
	a.mu.Unlock()

	if videoRef != "" {
		a.Clock.SetSource(a.client.VideoURL(videoRef))
	}

	a.logger.Info("transcription loaded",
		zap.String("file", resp.File),
		zap.Int("captions", len(resp.Subtitles)))

	a.publishEvent(events.Event{
		Type:         events.TypeUploadStatus,
		UploadStatus: domain.UploadStatusIdle,
		Message:      "Upload completed",
	})
	a.publishEvent(events.Event{
		Type:    events.TypeResult,
		Message: fmt.Sprintf("Transcribed %d segments", len(resp.Subtitles)),
	})
	a.emitRuntime("app:mode", mode)
	a.emitRuntime("player:source", a.Clock.Source())
}

// CaptionList returns the current caption set for the editor.
func (a *App) CaptionList() []domain.Caption {
	return a.Captions.Captions()
}

// UpdateCaptionText edits one caption's text. Editing is refused while
// a new transcription is in flight; an unknown id is a silent no-op.
func (a *App) UpdateCaptionText(id int64, text string) error {
	if a.orchestrator.Uploading() {
		return transcriber.ErrUploadInFlight
	}

	if err := a.Captions.UpdateText(id, text); err != nil {
		if errors.Is(err, captions.ErrCaptionNotFound) {
			a.logger.Debug("edit targeted unknown caption", zap.Int64("id", id))
			return nil
		}
		return err
	}

	a.syncer.Invalidate()
	return nil
}

// ReportPlaybackTime receives a position report from the media element.
func (a *App) ReportPlaybackTime(t float64) {
	a.Clock.Advance(t)
}

// ReportDuration receives the duration from loaded metadata.
func (a *App) ReportDuration(d float64) {
	a.Clock.SetDuration(d)
}

// ReportLoadError records a media load failure and surfaces it.
func (a *App) ReportLoadError(msg string) {
	a.Clock.Fail(msg)
	a.logger.Warn("media load error", zap.String("message", msg))
	a.publishEvent(events.Event{
		Type:    events.TypeError,
		Message: "Video failed to load: " + msg,
	})
}

// SeekToFraction jumps to fraction*duration from the scrub control.
func (a *App) SeekToFraction(fraction float64) {
	a.Clock.SeekTo(fraction)
}

// SeekToCaption jumps exactly to the clicked caption's start time.
func (a *App) SeekToCaption(id int64) error {
	caption, ok := a.Captions.FindByID(id)
	if !ok {
		return captions.ErrCaptionNotFound
	}

	a.Clock.SeekToTime(caption.Start)
	return nil
}

// Overlay returns the merged overlay configuration for rendering.
func (a *App) Overlay() styles.Overlay {
	return a.Styles.Overlay()
}

// SetFontSize updates the overlay font size and triggers a re-render.
func (a *App) SetFontSize(px int) {
	a.Styles.SetFontSize(px)
	a.emitRuntime("style:update", a.Styles.Overlay())
}

// SetTextColor updates the overlay text color and triggers a re-render.
func (a *App) SetTextColor(color string) {
	a.Styles.SetColor(color)
	a.emitRuntime("style:update", a.Styles.Overlay())
}

// SetBottomMargin updates the overlay offset and triggers a re-render.
func (a *App) SetBottomMargin(px int) {
	a.Styles.SetBottomMargin(px)
	a.emitRuntime("style:update", a.Styles.Overlay())
}

// StartCaptionExport downloads the caption file for the loaded video.
func (a *App) StartCaptionExport() error {
	sourceID := a.SourceID()
	if sourceID == "" {
		return export.ErrNoSource
	}

	go a.runExport(export.KindCaptionFile, func(ctx context.Context) (export.Job, error) {
		return a.Exports.ExportCaptionFile(ctx, sourceID)
	})
	return nil
}

// StartBurnedExport requests a server-rendered video carrying the
// current style parameters.
func (a *App) StartBurnedExport() error {
	sourceID := a.SourceID()
	if sourceID == "" {
		return export.ErrNoSource
	}

	params := a.Styles.Params()
	go a.runExport(export.KindBurnedVideo, func(ctx context.Context) (export.Job, error) {
		return a.Exports.ExportBurnedVideo(ctx, sourceID, params)
	})
	return nil
}

// runExport executes one export and maps the outcome to UI events.
func (a *App) runExport(kind export.Kind, run func(ctx context.Context) (export.Job, error)) {
	a.publishEvent(events.Event{
		Type:         events.TypeExportStatus,
		ExportKind:   string(kind),
		ExportStatus: string(export.StatusRunning),
	})

	job, err := run(context.Background())
	if err != nil {
		if errors.Is(err, export.ErrExportRunning) {
			return
		}

		a.logger.Warn("export failed", zap.String("kind", string(kind)), zap.Error(err))
		a.publishEvent(events.Event{
			Type:         events.TypeExportStatus,
			ExportKind:   string(kind),
			ExportStatus: string(export.StatusFailed),
			Message:      err.Error(),
		})
		return
	}

	if job.Status == export.StatusIdle {
		// A Reset or settings change abandoned this export while the
		// download ran; the snapshot is not a completion.
		a.logger.Info("discarded stale export completion", zap.String("kind", string(kind)))
		return
	}

	a.logger.Info("export completed",
		zap.String("kind", string(kind)),
		zap.String("output", job.OutputPath))
	a.publishEvent(events.Event{
		Type:         events.TypeExportStatus,
		ExportKind:   string(kind),
		ExportStatus: string(job.Status),
		OutputPath:   job.OutputPath,
	})
}

// ExportState returns a snapshot of one export kind's lifecycle.
func (a *App) ExportState(kind string) export.Job {
	return a.Exports.Job(export.Kind(kind))
}

// ExportLocalCaptions writes the current, possibly edited caption set
// as an SRT file in the output directory without a server round trip.
func (a *App) ExportLocalCaptions() (string, error) {
	set := a.Captions.Captions()
	if len(set) == 0 {
		return "", errors.New("no captions loaded")
	}

	a.mu.Lock()
	outputDir := a.Settings.OutputDir
	sourceID := a.sourceID
	a.mu.Unlock()

	name := "captions.srt"
	if sourceID != "" {
		name = strings.TrimSuffix(sourceID, filepath.Ext(sourceID)) + ".srt"
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	dest := filepath.Join(outputDir, name)
	out, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("create caption file: %w", err)
	}
	defer out.Close()

	if err := captions.WriteSRT(out, set); err != nil {
		return "", fmt.Errorf("write caption file: %w", err)
	}
	return dest, nil
}

// SourceID returns the transcribed video's file reference, empty
// before a successful transcription.
func (a *App) SourceID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sourceID
}

// UIEvents returns all events with sequence greater than sinceSeq.
func (a *App) UIEvents(sinceSeq int64) []events.Event {
	return a.events.Since(sinceSeq)
}

// publishTimeline pushes one timeline update to the frontend and
// records active caption changes on the event bus.
func (a *App) publishTimeline(update timeline.Update) {
	a.emitRuntime("timeline:update", update)

	if update.ActiveChanged {
		a.publishEvent(events.Event{
			Type:    events.TypeActiveCaption,
			Caption: update.Active,
		})
	}
}

// publishEvent stores event history and emits runtime push notifications.
func (a *App) publishEvent(event events.Event) {
	published := a.events.Publish(event)
	a.emitRuntime("app:event", published)
}

// emitRuntime pushes one named payload through the Wails runtime when
// the window is up.
func (a *App) emitRuntime(name string, payload interface{}) {
	a.mu.Lock()
	ctx := a.runtimeCtx
	a.mu.Unlock()
	if ctx != nil {
		wailsruntime.EventsEmit(ctx, name, payload)
	}
}

// runtimeContext returns current Wails runtime context for dialog APIs.
func (a *App) runtimeContext() (context.Context, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.runtimeCtx == nil {
		return nil, fmt.Errorf("runtime context is not initialized")
	}
	return a.runtimeCtx, nil
}

// normalizeSettings trims user inputs and applies defaults when empty.
func normalizeSettings(settings domain.Settings) domain.Settings {
	settings.ServerURL = strings.TrimRight(strings.TrimSpace(settings.ServerURL), "/")
	settings.OutputDir = strings.TrimSpace(settings.OutputDir)
	if settings.ServerURL == "" {
		settings.ServerURL = config.DefaultServerURL
	}
	return settings
}
