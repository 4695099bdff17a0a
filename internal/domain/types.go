package domain

// Caption is one transcribed speech segment bound to a time interval.
// IDs are assigned once when a caption set is created and are never
// recomputed from position; editing changes Text only.
type Caption struct {
	ID    int64   `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// UploadStatus tracks the single transcription upload lifecycle.
type UploadStatus string

const (
	UploadStatusIdle      UploadStatus = "idle"
	UploadStatusReady     UploadStatus = "ready"
	UploadStatusUploading UploadStatus = "uploading"
)

// ViewMode selects which primary surface the UI shows.
type ViewMode string

const (
	ViewModeUpload ViewMode = "upload"
	ViewModePlayer ViewMode = "player"
)

// Settings contains user-selectable runtime configuration.
type Settings struct {
	ServerURL string `json:"serverUrl"`
	OutputDir string `json:"outputDir"`
}
