package styles

import (
	"net/url"
	"strconv"
	"sync"
)

// Defaults is the shared overlay configuration. Only FontSize, Color,
// and BottomMargin are user-overridable at runtime; the rest are fixed
// presentation constants applied to the live overlay as-is.
type Defaults struct {
	FontSize        int    `json:"fontSize"`
	Color           string `json:"color"`
	BackgroundColor string `json:"backgroundColor"`
	Padding         string `json:"padding"`
	BorderRadius    string `json:"borderRadius"`
	FontWeight      string `json:"fontWeight"`
	FontFamily      string `json:"fontFamily"`
	BottomMargin    int    `json:"bottomMargin"`
}

// DefaultOverlay returns the baseline caption overlay configuration.
func DefaultOverlay() Defaults {
	return Defaults{
		FontSize:        18,
		Color:           "#ffffff",
		BackgroundColor: "rgba(0, 0, 0, 0.8)",
		Padding:         "8px 16px",
		BorderRadius:    "4px",
		FontWeight:      "bold",
		FontFamily:      "Arial, sans-serif",
		BottomMargin:    60,
	}
}

// Params are the three user-adjustable rendering knobs shared between
// the live overlay and the burned-in export request.
type Params struct {
	FontSize     int    `json:"fontSize"`
	Color        string `json:"color"`
	BottomMargin int    `json:"bottomMargin"`
}

// Query encodes the params as burned-export query parameters.
func (p Params) Query() url.Values {
	return url.Values{
		"font_size":     {strconv.Itoa(p.FontSize)},
		"color":         {p.Color},
		"bottom_margin": {strconv.Itoa(p.BottomMargin)},
	}
}

// Overlay is the merged view handed to the live overlay renderer:
// fixed defaults with the current overrides applied.
type Overlay struct {
	Defaults
}

// Model holds the current style parameters layered over shared
// defaults. Setters take effect on the next overlay render; range
// constraints live at the input controls, not here.
type Model struct {
	mu       sync.RWMutex
	defaults Defaults
	current  Params
}

// NewModel creates a model initialized from the given defaults.
func NewModel(defaults Defaults) *Model {
	return &Model{
		defaults: defaults,
		current: Params{
			FontSize:     defaults.FontSize,
			Color:        defaults.Color,
			BottomMargin: defaults.BottomMargin,
		},
	}
}

// SetFontSize updates the overlay font size in pixels.
func (m *Model) SetFontSize(px int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current.FontSize = px
}

// SetColor updates the overlay text color.
func (m *Model) SetColor(color string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current.Color = color
}

// SetBottomMargin updates the overlay offset from the bottom edge.
func (m *Model) SetBottomMargin(px int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current.BottomMargin = px
}

// Params returns the current user-adjustable values.
func (m *Model) Params() Params {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Overlay returns the full merged overlay configuration for rendering.
func (m *Model) Overlay() Overlay {
	m.mu.RLock()
	defer m.mu.RUnlock()

	merged := m.defaults
	merged.FontSize = m.current.FontSize
	merged.Color = m.current.Color
	merged.BottomMargin = m.current.BottomMargin
	return Overlay{Defaults: merged}
}
