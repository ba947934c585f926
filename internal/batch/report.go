package batch

import (
	"fmt"
	"io"
	"strings"
	"time"
)

const reportTimeFormat = "Monday, January 2, 2006 at 15:04:05"

// Report renders s as the plain-text results report.
func Report(s Snapshot) string {
	var b strings.Builder
	_ = WriteReport(&b, s)
	return b.String()
}

// WriteReport writes the results report for s to w. The completion time
// is the run's finish time, or now for a run that has not finished.
func WriteReport(w io.Writer, s Snapshot) error {
	at := s.FinishedAt
	if at.IsZero() {
		at = time.Now()
	}

	var b strings.Builder
	b.WriteString("Emotion Test Results\n")
	b.WriteString("===================\n\n")
	fmt.Fprintf(&b, "Test completed at: %s\n", at.Format(reportTimeFormat))
	if s.Provider != "" {
		fmt.Fprintf(&b, "Provider: %s\n", s.Provider.DisplayName())
	}
	if s.Voice.ID != "" {
		name := s.Voice.Name
		if name == "" {
			name = s.Voice.ID
		}
		fmt.Fprintf(&b, "Voice: %s\n", name)
	}
	fmt.Fprintf(&b, "Total emotions tested: %d\n", len(s.Results))
	fmt.Fprintf(&b, "Successful tests: %d\n\n", s.Succeeded())

	for _, r := range s.Results {
		fmt.Fprintf(&b, "Emotion: %s\n", r.Emotion.DisplayName())
		if r.Success {
			b.WriteString("Status: Success\n")
		} else {
			b.WriteString("Status: Failed\n")
		}
		fmt.Fprintf(&b, "Duration: %.2fs\n", r.Duration.Seconds())
		if r.Parameters != nil {
			fmt.Fprintf(&b, "Parameters: %s\n", r.Parameters)
		}
		if r.Error != "" {
			fmt.Fprintf(&b, "Error: %s\n", r.Error)
		}
		if r.Artifact != "" {
			fmt.Fprintf(&b, "File: %s\n", r.Artifact)
		}
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}
