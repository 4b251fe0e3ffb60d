package bootstrap

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/artagon/artagon-common/internal/agents"
	"github.com/artagon/artagon-common/internal/utils/logger"
)

//go:embed all:templates
var embedded embed.FS

// Templates returns the built-in template tree.
func Templates() fs.FS {
	sub, err := fs.Sub(embedded, "templates")
	if err != nil {
		panic(err)
	}
	return sub
}

// Vars are the placeholder values substituted into template paths and
// contents.
type Vars struct {
	ProjectName string
	Owner       string
	Repo        string
	Description string
}

func (v Vars) replacer() *strings.Replacer {
	return strings.NewReplacer(
		"{{PROJECT_NAME}}", v.ProjectName,
		"{{OWNER}}", v.Owner,
		"{{REPO}}", v.Repo,
		"{{DESCRIPTION}}", v.Description,
	)
}

// Options configure a bootstrap run.
type Options struct {
	Target    string
	Templates fs.FS // Templates() when nil
	Vars      Vars
	Force     bool // overwrite files whose content differs
	Agents    bool // generate agent files when the target has a manifest
	DryRun    bool
	Out       io.Writer
}

// Result lists template files by outcome, as target-relative paths.
type Result struct {
	Created     []string
	Overwritten []string
	Unchanged   []string
	Skipped     []string
	Agents      []string
}

// Changed reports whether the run modified the target.
func (r *Result) Changed() bool {
	return len(r.Created)+len(r.Overwritten)+len(r.Agents) > 0
}

// Run renders the template tree into opts.Target. Files already holding the
// rendered content are left untouched, so repeated runs are no-ops.
func Run(opts Options) (*Result, error) {
	log := logger.Logger()
	if opts.Target == "" {
		return nil, errors.New("bootstrap target is required")
	}
	target, err := filepath.Abs(opts.Target)
	if err != nil {
		return nil, fmt.Errorf("resolving target %s: %w", opts.Target, err)
	}
	vars := opts.Vars
	if vars.ProjectName == "" {
		vars.ProjectName = filepath.Base(target)
	}
	if vars.Repo == "" {
		vars.Repo = vars.ProjectName
	}
	tmpl := opts.Templates
	if tmpl == nil {
		tmpl = Templates()
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	r := vars.replacer()
	result := &Result{}
	err = fs.WalkDir(tmpl, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		data, err := fs.ReadFile(tmpl, p)
		if err != nil {
			return fmt.Errorf("reading template %s: %w", p, err)
		}
		rel := r.Replace(strings.TrimSuffix(p, ".tmpl"))
		content := []byte(r.Replace(string(data)))
		return place(target, rel, content, opts, out, result)
	})
	if err != nil {
		return result, err
	}
	log.Infof("Bootstrapped %s: %d created, %d overwritten, %d unchanged, %d skipped",
		target, len(result.Created), len(result.Overwritten), len(result.Unchanged), len(result.Skipped))

	if opts.Agents {
		if err := generateAgents(target, opts, out, result); err != nil {
			return result, err
		}
	}
	return result, nil
}

func place(target, rel string, content []byte, opts Options, out io.Writer, result *Result) error {
	log := logger.Logger()
	dest := filepath.Join(target, filepath.FromSlash(path.Clean(rel)))

	existing, err := os.ReadFile(dest)
	switch {
	case err == nil && bytes.Equal(existing, content):
		result.Unchanged = append(result.Unchanged, rel)
		return nil
	case err == nil && !opts.Force:
		log.Warnf("%s exists, skipping (use --force to overwrite)", rel)
		result.Skipped = append(result.Skipped, rel)
		return nil
	case err != nil && !os.IsNotExist(err):
		return fmt.Errorf("reading %s: %w", dest, err)
	}

	overwrite := err == nil
	if opts.DryRun {
		fmt.Fprintf(out, "[dry-run] write %s\n", rel)
	} else {
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return fmt.Errorf("creating directory for %s: %w", rel, err)
		}
		if err := os.WriteFile(dest, content, 0644); err != nil {
			return fmt.Errorf("writing %s: %w", rel, err)
		}
		fmt.Fprintf(out, "Wrote %s\n", rel)
	}
	if overwrite {
		result.Overwritten = append(result.Overwritten, rel)
	} else {
		result.Created = append(result.Created, rel)
	}
	return nil
}

func generateAgents(target string, opts Options, out io.Writer, result *Result) error {
	manifest := agents.ManifestPath(target, "")
	if _, err := os.Stat(manifest); err != nil {
		logger.Logger().Debugf("No agent manifest at %s: %v", manifest, err)
		return nil
	}
	_, err := agents.Generate(agents.Options{
		Root:   target,
		Mode:   agents.ModeCheck,
		Out:    io.Discard,
		ErrOut: io.Discard,
	})
	if err == nil || !errors.Is(err, agents.ErrOutOfDate) {
		return err
	}
	res, err := agents.Generate(agents.Options{
		Root:   target,
		Mode:   agents.ModeWrite,
		DryRun: opts.DryRun,
		Out:    out,
	})
	if err != nil {
		return err
	}
	result.Agents = append(result.Agents, res.Written...)
	return nil
}
