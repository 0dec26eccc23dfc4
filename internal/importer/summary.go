package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// Summary holds the outcome counters of one run.
type Summary struct {
	RunID     string
	Mode      Mode
	Source    string
	Skipped   int
	Success   int
	Failed    int
	StartedAt time.Time
	Duration  time.Duration
}

// Total returns the number of rows consumed.
func (s Summary) Total() int {
	return s.Skipped + s.Success + s.Failed
}

// ReportFormat selects a report rendering.
type ReportFormat string

const (
	ReportText ReportFormat = "text"
	ReportJSON ReportFormat = "json"
	ReportHTML ReportFormat = "html"
)

// ParseReportFormat validates a report format name.
func ParseReportFormat(s string) (ReportFormat, error) {
	switch f := ReportFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "", ReportText:
		return ReportText, nil
	case ReportJSON, ReportHTML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown report format %q (want text, json or html)", s)
	}
}

// FormatText renders the summary as the five-line console report.
func FormatText(s Summary) string {
	var b strings.Builder
	b.WriteString("Import Summary:\n")
	fmt.Fprintf(&b, "Total Records Processed: %d\n", s.Total())
	fmt.Fprintf(&b, "Success: %d\n", s.Success)
	fmt.Fprintf(&b, "Skipped: %d\n", s.Skipped)
	fmt.Fprintf(&b, "Failed: %d\n", s.Failed)
	return b.String()
}

type summaryJSON struct {
	RunID      string    `json:"run_id,omitempty"`
	Mode       string    `json:"mode"`
	Source     string    `json:"source,omitempty"`
	Total      int       `json:"total_processed"`
	Success    int       `json:"success"`
	Skipped    int       `json:"skipped"`
	Failed     int       `json:"failed"`
	StartedAt  time.Time `json:"started_at"`
	DurationMs int64     `json:"duration_ms"`
}

// FormatJSON renders the summary as an indented JSON document.
func FormatJSON(s Summary) ([]byte, error) {
	return json.MarshalIndent(summaryJSON{
		RunID:      s.RunID,
		Mode:       s.Mode.String(),
		Source:     s.Source,
		Total:      s.Total(),
		Success:    s.Success,
		Skipped:    s.Skipped,
		Failed:     s.Failed,
		StartedAt:  s.StartedAt,
		DurationMs: s.Duration.Milliseconds(),
	}, "", "  ")
}

// WriteReport renders s in the given format to w.
func WriteReport(ctx context.Context, w io.Writer, format ReportFormat, s Summary) error {
	switch format {
	case ReportJSON:
		data, err := FormatJSON(s)
		if err != nil {
			return fmt.Errorf("encode summary: %w", err)
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err
	case ReportHTML:
		return RenderHTML(ctx, w, s)
	default:
		_, err := io.WriteString(w, FormatText(s))
		return err
	}
}
