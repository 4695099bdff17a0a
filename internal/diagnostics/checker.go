package diagnostics

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"caption-studio/internal/domain"
)

// healthProbe reports whether the transcription service responds.
type healthProbe func(ctx context.Context) error

// Checker validates the configured service and filesystem paths.
type Checker struct {
	probe      healthProbe
	timeout    time.Duration
	mkdirAll   func(string, os.FileMode) error
	createTemp func(string, string) (*os.File, error)
	remove     func(string) error
}

// NewChecker builds a checker using real OS dependencies and the
// given service health probe.
func NewChecker(probe healthProbe) *Checker {
	return &Checker{
		probe:      probe,
		timeout:    3 * time.Second,
		mkdirAll:   os.MkdirAll,
		createTemp: os.CreateTemp,
		remove:     os.Remove,
	}
}

// Run executes all startup checks and returns a combined report.
func (c *Checker) Run(settings domain.Settings) domain.DiagnosticReport {
	items := []domain.DiagnosticItem{
		c.checkServerURL(settings.ServerURL),
		c.checkServerHealth(),
		c.checkOutputDir(settings.OutputDir),
	}

	hasFailures := false
	for _, item := range items {
		if item.Status == domain.DiagnosticStatusFail {
			hasFailures = true
			break
		}
	}

	return domain.DiagnosticReport{
		GeneratedAt: time.Now().UTC(),
		HasFailures: hasFailures,
		Items:       items,
	}
}

// checkServerURL validates the configured service address shape.
func (c *Checker) checkServerURL(raw string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "server_url",
		Name: "Service address",
	}

	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "Service address is empty."
		item.Hint = "Set the transcription service URL in settings."
		return item
	}

	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Service address is not a valid URL: %s", trimmed)
		item.Hint = "Use a full address such as http://localhost:8000."
		return item
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Configured address: %s", trimmed)
	return item
}

// checkServerHealth probes the service's health endpoint.
func (c *Checker) checkServerHealth() domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "server_health",
		Name: "Transcription service",
	}

	if c.probe == nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "No service client configured."
		return item
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	if err := c.probe(ctx); err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Service is not reachable: %v", err)
		item.Hint = "Start the transcription service and check the configured address."
		return item
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = "Service is reachable."
	return item
}

// checkOutputDir validates output directory existence and write access.
func (c *Checker) checkOutputDir(outputDir string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "output_dir",
		Name: "Output directory",
	}

	if strings.TrimSpace(outputDir) == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "Output directory is empty."
		item.Hint = "Set an output directory where exported files can be written."
		return item
	}

	if err := c.mkdirAll(outputDir, 0o755); err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Cannot create output directory: %s", outputDir)
		item.Hint = "Choose a writable location or adjust filesystem permissions."
		return item
	}

	tmpFile, err := c.createTemp(outputDir, ".write-check-*")
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Output directory is not writable: %s", outputDir)
		item.Hint = "Choose a writable directory for caption and video export."
		return item
	}

	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()
	_ = c.remove(tmpPath)

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Writable directory: %s", outputDir)
	return item
}

// NewCheckerForTests creates checker with injectable dependencies.
func NewCheckerForTests(
	probe healthProbe,
	mkdirAll func(string, os.FileMode) error,
	createTemp func(string, string) (*os.File, error),
	remove func(string) error,
) *Checker {
	return &Checker{
		probe:      probe,
		timeout:    time.Second,
		mkdirAll:   mkdirAll,
		createTemp: createTemp,
		remove:     remove,
	}
}
