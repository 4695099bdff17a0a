package config

import (
	"os"
	"path/filepath"

	"caption-studio/internal/domain"
)

// DefaultServerURL points at a locally running transcription service.
const DefaultServerURL = "http://localhost:8000"

// DefaultSettings returns baseline local configuration for first launch.
func DefaultSettings() domain.Settings {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	return domain.Settings{
		ServerURL: DefaultServerURL,
		OutputDir: filepath.Join(homeDir, "Documents", "Captions"),
	}
}
