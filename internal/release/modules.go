package release

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

func (r *Releaser) path(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(r.s.Root, p)
}

// moduleDirs lists the directories versions:set runs in. Without configured
// modules the repository root is the only one.
func (r *Releaser) moduleDirs() []string {
	modules := r.s.Config.Release.Modules
	if len(modules) == 0 {
		return []string{r.s.Root}
	}
	dirs := make([]string, len(modules))
	for i, m := range modules {
		dirs[i] = r.path(m)
	}
	return dirs
}

func (r *Releaser) setModuleVersions(ctx context.Context, version string) error {
	for _, dir := range r.moduleDirs() {
		if err := r.maven(ctx, dir, "versions:set", "-DnewVersion="+version); err != nil {
			return err
		}
		if err := r.maven(ctx, dir, "versions:commit"); err != nil {
			return err
		}
	}
	return nil
}

// rewriteParent applies rewrite to the configured parent pom. Parent poms
// reference the BOM by version, which versions:set does not touch.
func (r *Releaser) rewriteParent(rewrite func([]byte) ([]byte, bool), version string) error {
	if r.s.Config.Release.ParentPom == "" {
		return nil
	}
	pom := r.path(r.s.Config.Release.ParentPom)
	if r.s.DryRun {
		r.s.Printf("[dry-run] set version in %s to %s\n", pom, version)
		return nil
	}
	changed, err := rewritePOM(pom, rewrite)
	if err != nil {
		return err
	}
	if changed {
		r.s.Log().Infof("Updated %s to version %s", pom, version)
	} else {
		r.s.Log().Warnf("No matching <version> element in %s", pom)
	}
	return nil
}

func (r *Releaser) copyBaseline(from, to string) error {
	src, dst := r.path(from), r.path(to)
	if r.s.DryRun {
		r.s.Printf("[dry-run] copy %s -> %s\n", src, dst)
		return nil
	}
	if err := copyFile(src, dst); err != nil {
		return fmt.Errorf("copying checksum baseline: %w", err)
	}
	r.s.Log().Infof("Copied %s to %s", src, dst)
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}
