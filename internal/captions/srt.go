package captions

import (
	"fmt"
	"io"
	"strings"
	"time"

	"caption-studio/internal/domain"
)

// WriteSRT writes captions in SubRip format to w. Cue numbers are
// 1-based positions in stored order, independent of caption ids, so
// edited sets still produce a well-formed file.
func WriteSRT(w io.Writer, captions []domain.Caption) error {
	for i, c := range captions {
		_, err := fmt.Fprintf(w, "%d\n%s --> %s\n%s\n\n",
			i+1,
			formatSRTTime(c.Start),
			formatSRTTime(c.End),
			strings.TrimSpace(c.Text))
		if err != nil {
			return err
		}
	}
	return nil
}

// formatSRTTime renders seconds as the SRT timestamp 00:00:00,000.
func formatSRTTime(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second))
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	secs := int(d.Seconds()) % 60
	millis := int(d.Milliseconds()) % 1000

	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}

// FormatClock renders seconds as the m:ss display used next to the
// scrub control and caption list entries.
func FormatClock(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	mins := int(seconds) / 60
	secs := int(seconds) % 60
	return fmt.Sprintf("%d:%02d", mins, secs)
}
