// Package report renders the outcome of an ingestion run for people: a
// Markdown or HTML file, and compact terminal output.
package report

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/yuin/goldmark"

	"github.com/TobiSchelling/F1Crawler/internal/diag"
	"github.com/TobiSchelling/F1Crawler/internal/ingest"
)

var md = goldmark.New()

// Run is what a report describes.
type Run struct {
	StartedAt time.Time
	MinDate   time.Time
	Records   []ingest.Record
	Events    []diag.Event
}

var labels = map[diag.Severity]string{
	diag.Info:    "INFO",
	diag.Success: "OK",
	diag.Warning: "WARN",
	diag.Error:   "ERROR",
	diag.Excerpt: "HTML",
}

func label(sev diag.Severity) string {
	if l, ok := labels[sev]; ok {
		return l
	}
	return strings.ToUpper(string(sev))
}

// Markdown renders the run as a Markdown document.
func Markdown(run Run) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# F1 news ingestion: %s\n\n", run.StartedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Articles published since **%s**. %d records, %d events.\n\n",
		run.MinDate.Format("2006-01-02"), len(run.Records), len(run.Events))

	b.WriteString("## Records\n\n")
	for _, r := range run.Records {
		fmt.Fprintf(&b, "- **[%s | %s]**: %s\n", r.Category, r.Source, oneLine(r.Content))
	}

	b.WriteString("\n## Diagnostics\n\n")
	for _, e := range run.Events {
		if e.Severity == diag.Excerpt {
			fmt.Fprintf(&b, "\n```html\n%s\n```\n\n", e.Message)
			continue
		}
		fmt.Fprintf(&b, "- `%s` %s\n", label(e.Severity), e.Message)
	}
	return b.String()
}

// HTML renders the run as a standalone HTML page.
func HTML(run Run) (string, error) {
	var body bytes.Buffer
	if err := md.Convert([]byte(Markdown(run)), &body); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return "<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>F1 news ingestion</title></head>\n<body>\n" +
		body.String() + "</body></html>\n", nil
}

// WriteFile writes the report to path, as HTML when the extension is
// .html or .htm and as Markdown otherwise.
func WriteFile(path string, run Run) error {
	var content string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		var err error
		if content, err = HTML(run); err != nil {
			return err
		}
	default:
		content = Markdown(run)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating report directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}

// PrintEvents writes one line per event, truncated to width display cells.
// Excerpts are shown as their first line only.
func PrintEvents(w io.Writer, events []diag.Event, width int) {
	for _, e := range events {
		msg := e.Message
		if e.Severity == diag.Excerpt {
			msg = strings.SplitN(strings.TrimSpace(msg), "\n", 2)[0]
		}
		fmt.Fprintln(w, fit(fmt.Sprintf("%-5s %s", label(e.Severity), msg), width))
	}
}

// PrintRecords writes one line per record, truncated to width display cells.
func PrintRecords(w io.Writer, records []ingest.Record, width int) {
	for _, r := range records {
		fmt.Fprintln(w, fit(fmt.Sprintf("[%s | %s]: %s", r.Category, r.Source, oneLine(r.Content)), width))
	}
}

func fit(s string, width int) string {
	if width <= 0 {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
