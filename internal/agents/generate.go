package agents

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/artagon/artagon-common/internal/utils/logger"
)

// DefaultManifest is the manifest location relative to the repository root.
const DefaultManifest = ".agents-shared/agent-manifest.json"

// ErrOutOfDate is returned by a check when any generated file is missing or
// differs from the rendered content.
var ErrOutOfDate = errors.New("agent configuration out of date")

// Mode selects what Generate does with the rendered files.
type Mode int

const (
	ModePrint Mode = iota
	ModeWrite
	ModeCheck
)

// Options configure a generation run.
type Options struct {
	Root     string
	Manifest string // relative to Root unless absolute; DefaultManifest when empty
	Mode     Mode
	DryRun   bool // ModeWrite reports instead of writing
	Out      io.Writer
	ErrOut   io.Writer
}

// Result lists the agent outputs by outcome.
type Result struct {
	Written  []string
	Missing  []string
	Outdated []string
	Current  []string
}

// ManifestPath resolves the manifest for root.
func ManifestPath(root, manifest string) string {
	if manifest == "" {
		manifest = DefaultManifest
	}
	if filepath.IsAbs(manifest) {
		return manifest
	}
	return filepath.Join(root, manifest)
}

// Generate renders every agent in the manifest and prints, writes or checks
// the result according to opts.Mode.
func Generate(opts Options) (*Result, error) {
	log := logger.Logger()
	out, errOut := opts.Out, opts.ErrOut
	if out == nil {
		out = os.Stdout
	}
	if errOut == nil {
		errOut = os.Stderr
	}

	manifestPath := ManifestPath(opts.Root, opts.Manifest)
	m, err := LoadManifest(manifestPath)
	if err != nil {
		return nil, err
	}
	snippet, err := ReadSnippets(opts.Root, m.Shared.Snippets)
	if err != nil {
		return nil, err
	}
	log.Debugf("Loaded %d agents from %s", len(m.Agents), manifestPath)

	result := &Result{}
	for _, a := range m.Agents {
		content := []byte(Render(a, snippet))
		path := a.Output
		if !filepath.IsAbs(path) {
			path = filepath.Join(opts.Root, path)
		}

		switch opts.Mode {
		case ModeCheck:
			existing, err := os.ReadFile(path)
			switch {
			case os.IsNotExist(err):
				fmt.Fprintf(errOut, "[agent-config] Missing file: %s\n", a.Output)
				result.Missing = append(result.Missing, a.Output)
			case err != nil:
				return result, fmt.Errorf("reading %s: %w", path, err)
			case !bytes.Equal(existing, content):
				fmt.Fprintf(errOut, "[agent-config] Out of date: %s\n", a.Output)
				result.Outdated = append(result.Outdated, a.Output)
			default:
				result.Current = append(result.Current, a.Output)
			}
		case ModeWrite:
			if opts.DryRun {
				fmt.Fprintf(out, "[dry-run] write %s\n", a.Output)
				continue
			}
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return result, fmt.Errorf("creating directory for %s: %w", a.Output, err)
			}
			if err := os.WriteFile(path, content, 0644); err != nil {
				return result, fmt.Errorf("writing %s: %w", a.Output, err)
			}
			fmt.Fprintf(out, "[agent-config] Wrote %s\n", a.Output)
			result.Written = append(result.Written, a.Output)
		default:
			if _, err := out.Write(content); err != nil {
				return result, err
			}
		}
	}

	if stale := len(result.Missing) + len(result.Outdated); stale > 0 {
		return result, fmt.Errorf("%w: %d of %d files", ErrOutOfDate, stale, len(m.Agents))
	}
	return result, nil
}
