package security

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// RowChange is one entry whose value moved between the committed and the
// computed baseline.
type RowChange struct {
	Key  string `json:"key"`
	From string `json:"from"`
	To   string `json:"to"`
}

// FileDiff is the row-level drift of one baseline file.
type FileDiff struct {
	Path    string            `json:"path"`
	Missing bool              `json:"missing,omitempty"`
	Added   map[string]string `json:"added,omitempty"`
	Removed map[string]string `json:"removed,omitempty"`
	Changed []RowChange       `json:"changed,omitempty"`
	// ContentDiffers is set when the committed bytes differ from the
	// computed ones, including header or whitespace edits with no row drift.
	ContentDiffers bool `json:"content_differs,omitempty"`
}

// Equal reports whether the file has no drift.
func (d FileDiff) Equal() bool {
	return !d.Missing && !d.ContentDiffers && len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// DiffResult is the drift report for a baseline pair.
type DiffResult struct {
	Equal bool       `json:"equal"`
	Files []FileDiff `json:"files"`
}

// Diff compares the committed baseline files in dir with the computed content
// row by row. Any other byte difference, such as an edited header, is
// reported as ContentDiffers so the result agrees with Verify.
func (b *Baseline) Diff(dir string) (*DiffResult, error) {
	files := b.FilesIn(dir)
	result := &DiffResult{Equal: true}

	checks := []struct {
		path    string
		content []byte
		sep     string
	}{
		{files.Checksums, b.RenderChecksums(), b.checksumSeparator()},
		{files.Trust, b.RenderTrust(), " = "},
	}
	for _, c := range checks {
		fd := FileDiff{Path: c.path}
		committed, err := os.ReadFile(c.path)
		if errors.Is(err, os.ErrNotExist) {
			fd.Missing = true
			committed = nil
		} else if err != nil {
			return nil, fmt.Errorf("reading %s: %w", c.path, err)
		}

		before := parseRows(committed, c.sep)
		after := parseRows(c.content, c.sep)
		diffRows(&fd, before, after)
		fd.ContentDiffers = !fd.Missing && !bytes.Equal(committed, c.content)
		if !fd.Equal() {
			result.Equal = false
		}
		result.Files = append(result.Files, fd)
	}
	return result, nil
}

func (b *Baseline) checksumSeparator() string {
	if b.Format == FormatProperties {
		return "="
	}
	return ","
}

func parseRows(data []byte, sep string) map[string]string {
	rows := map[string]string{}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, sep)
		if !ok {
			rows[line] = ""
			continue
		}
		rows[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return rows
}

func diffRows(fd *FileDiff, before, after map[string]string) {
	for key, value := range after {
		old, ok := before[key]
		switch {
		case !ok:
			if fd.Added == nil {
				fd.Added = map[string]string{}
			}
			fd.Added[key] = value
		case old != value:
			fd.Changed = append(fd.Changed, RowChange{Key: key, From: old, To: value})
		}
	}
	for key, value := range before {
		if _, ok := after[key]; !ok {
			if fd.Removed == nil {
				fd.Removed = map[string]string{}
			}
			fd.Removed[key] = value
		}
	}
	sort.Slice(fd.Changed, func(i, j int) bool { return fd.Changed[i].Key < fd.Changed[j].Key })
}

// RenderText writes a human-readable drift report.
func (r *DiffResult) RenderText(w io.Writer) error {
	if r.Equal {
		_, err := fmt.Fprintln(w, "Baselines are up to date.")
		return err
	}
	for _, fd := range r.Files {
		if fd.Equal() {
			fmt.Fprintf(w, "%s: up to date\n", fd.Path)
			continue
		}
		if fd.Missing {
			fmt.Fprintf(w, "%s: missing\n", fd.Path)
		} else {
			fmt.Fprintf(w, "%s:\n", fd.Path)
		}
		for _, key := range sortedKeys(fd.Added) {
			fmt.Fprintf(w, "  + %s %s\n", key, fd.Added[key])
		}
		for _, key := range sortedKeys(fd.Removed) {
			fmt.Fprintf(w, "  - %s %s\n", key, fd.Removed[key])
		}
		for _, c := range fd.Changed {
			fmt.Fprintf(w, "  ~ %s %s -> %s\n", c.Key, c.From, c.To)
		}
		if fd.ContentDiffers && len(fd.Added) == 0 && len(fd.Removed) == 0 && len(fd.Changed) == 0 {
			fmt.Fprintln(w, "  ! header or formatting differs")
		}
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
