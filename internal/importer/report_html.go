package importer

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/a-h/templ"
)

// RenderHTML writes a standalone HTML page with the summary table.
func RenderHTML(ctx context.Context, w io.Writer, s Summary) error {
	return SummaryPage(s).Render(ctx, w)
}

// SummaryPage is the HTML report component.
func SummaryPage(s Summary) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		rows := []struct {
			label string
			value int
		}{
			{"Total Records Processed", s.Total()},
			{"Success", s.Success},
			{"Skipped", s.Skipped},
			{"Failed", s.Failed},
		}

		if _, err := io.WriteString(w, "<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>Import Summary</title></head><body>\n<h1>Import Summary</h1>\n"); err != nil {
			return err
		}
		if s.Source != "" || s.RunID != "" {
			if _, err := fmt.Fprintf(w, "<p>Source: <code>%s</code> &middot; Run: <code>%s</code> &middot; Mode: %s</p>\n",
				templ.EscapeString(s.Source), templ.EscapeString(s.RunID), templ.EscapeString(s.Mode.String())); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, "<table>\n"); err != nil {
			return err
		}
		for _, row := range rows {
			if _, err := fmt.Fprintf(w, "<tr><th>%s</th><td>%s</td></tr>\n",
				templ.EscapeString(row.label), strconv.Itoa(row.value)); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "</table>\n</body></html>\n")
		return err
	})
}
