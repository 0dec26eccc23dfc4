package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSummary() Summary {
	return Summary{
		RunID:     "0b7e6a4e-8d7c-4c55-9d0f-0a3f3f0e6b11",
		Mode:      ModeCommit,
		Source:    "products.csv",
		Success:   2,
		Skipped:   2,
		Failed:    1,
		StartedAt: time.Date(2025, 2, 10, 21, 0, 0, 0, time.UTC),
		Duration:  1250 * time.Millisecond,
	}
}

func TestFormatText(t *testing.T) {
	want := "Import Summary:\n" +
		"Total Records Processed: 5\n" +
		"Success: 2\n" +
		"Skipped: 2\n" +
		"Failed: 1\n"

	got := FormatText(sampleSummary())
	assert.Equal(t, want, got)
	assert.Equal(t, got, FormatText(sampleSummary()), "formatting is a pure function of the summary")
}

func TestFormatText_Empty(t *testing.T) {
	got := FormatText(Summary{})
	assert.Contains(t, got, "Total Records Processed: 0\n")
	assert.Contains(t, got, "Failed: 0\n")
}

func TestFormatJSON(t *testing.T) {
	data, err := FormatJSON(sampleSummary())
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))

	assert.Equal(t, "commit", got["mode"])
	assert.Equal(t, "products.csv", got["source"])
	assert.EqualValues(t, 5, got["total_processed"])
	assert.EqualValues(t, 2, got["success"])
	assert.EqualValues(t, 2, got["skipped"])
	assert.EqualValues(t, 1, got["failed"])
	assert.EqualValues(t, 1250, got["duration_ms"])
	assert.Equal(t, "2025-02-10T21:00:00Z", got["started_at"])
}

func TestRenderHTML(t *testing.T) {
	s := sampleSummary()
	s.Source = "<script>alert(1)</script>.csv"

	var buf bytes.Buffer
	require.NoError(t, RenderHTML(context.Background(), &buf, s))

	html := buf.String()
	assert.True(t, strings.HasPrefix(html, "<!DOCTYPE html>"))
	assert.Contains(t, html, "<tr><th>Total Records Processed</th><td>5</td></tr>")
	assert.Contains(t, html, "<tr><th>Failed</th><td>1</td></tr>")
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "&lt;script&gt;")
}

func TestWriteReport(t *testing.T) {
	tests := []struct {
		format ReportFormat
		want   string
	}{
		{ReportText, "Import Summary:\n"},
		{ReportJSON, `"total_processed": 5`},
		{ReportHTML, "<h1>Import Summary</h1>"},
	}

	for _, tt := range tests {
		var buf bytes.Buffer
		require.NoError(t, WriteReport(context.Background(), &buf, tt.format, sampleSummary()))
		assert.Contains(t, buf.String(), tt.want, string(tt.format))
	}
}

func TestParseReportFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    ReportFormat
		wantErr bool
	}{
		{"", ReportText, false},
		{"text", ReportText, false},
		{" JSON ", ReportJSON, false},
		{"html", ReportHTML, false},
		{"xml", "", true},
	}

	for _, tt := range tests {
		got, err := ParseReportFormat(tt.input)
		if tt.wantErr {
			assert.Error(t, err, tt.input)
			continue
		}
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got)
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.IncOutcome(OutcomeSuccess)
	m.IncFailure("unknown")
	m.ObserveCreate(time.Second)
	m.ObserveRun(Summary{})
	assert.NoError(t, m.WriteTextfile("ignored.prom"))
}

func TestMetrics_WriteTextfile(t *testing.T) {
	m := NewMetrics()
	m.IncOutcome(OutcomeSkipped)
	m.ObserveRun(Summary{Duration: 2 * time.Second})

	path := t.TempDir() + "/import.prom"
	require.NoError(t, m.WriteTextfile(path))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RecordsTotal.WithLabelValues(OutcomeSkipped)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.LastRunDuration))

	count, err := testutil.GatherAndCount(m.Registry, "product_import_records_total")
	require.NoError(t, err)
	assert.Equal(t, 3, count, "all outcome series are exported")
}
