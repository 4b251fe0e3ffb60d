package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// StringListReport is a titled list of lines written next to the build output,
// e.g. the coordinates skipped by a baseline run.
type StringListReport struct {
	Title string
	Items []string
}

// NewStringListReport returns an empty report with the given title.
func NewStringListReport(title string) *StringListReport {
	return &StringListReport{Title: title, Items: []string{}}
}

// Add appends one formatted item.
func (r *StringListReport) Add(format string, args ...interface{}) {
	r.Items = append(r.Items, fmt.Sprintf(format, args...))
}

// Len returns the number of items collected so far.
func (r *StringListReport) Len() int {
	return len(r.Items)
}

// FileName is the sanitized report file name, e.g. report-skipped_artifacts.txt.
func (r *StringListReport) FileName() string {
	title := r.Title
	if title == "" {
		title = "untitled"
	}
	var sb strings.Builder
	for _, c := range title {
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '-' {
			sb.WriteRune(c)
		} else {
			sb.WriteRune('_')
		}
	}
	return fmt.Sprintf("report-%s.txt", sb.String())
}

// WriteToDir appends the report items to <dir>/<FileName()> followed by a blank
// line and clears the in-memory list. It returns the written path.
func (r *StringListReport) WriteToDir(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating report directory: %w", err)
	}

	reportPath := filepath.Join(dir, r.FileName())
	f, err := os.OpenFile(reportPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return "", fmt.Errorf("opening report file: %w", err)
	}
	defer f.Close()

	for _, item := range r.Items {
		if _, err := fmt.Fprintln(f, item); err != nil {
			return "", fmt.Errorf("writing to report file: %w", err)
		}
	}
	if _, err := fmt.Fprintln(f); err != nil {
		return "", fmt.Errorf("writing new line to report file: %w", err)
	}

	r.Items = []string{}
	return reportPath, nil
}
