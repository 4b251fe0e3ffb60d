package session_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/artagon/artagon-common/internal/session"
	"github.com/artagon/artagon-common/internal/utils/shell"
)

func TestNewLoadsRootConfig(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, ".artagon.yml"), []byte("defaults:\n  owner: artagon\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	s, err := session.New(session.Options{Root: root})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if s.Config.Defaults.Owner != "artagon" {
		t.Errorf("owner = %q", s.Config.Defaults.Owner)
	}
	if s.ID == "" {
		t.Error("expected a run ID")
	}
	if s.Root != root {
		t.Errorf("root = %s, want %s", s.Root, root)
	}
}

func TestRunDefaultsDirToRoot(t *testing.T) {
	original := shell.Default
	t.Cleanup(func() { shell.Default = original })
	mock := shell.NewMockExecutor([]shell.MockCommand{{Pattern: "git status", Output: ""}})
	shell.Default = mock

	root := t.TempDir()
	s, err := session.New(session.Options{Root: root})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, err := s.Run(context.Background(), shell.Command("git", "status", "--porcelain")); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(mock.Calls) != 1 || mock.Calls[0].Dir != root {
		t.Errorf("expected one call in %s, got %+v", root, mock.Calls)
	}
}

func TestDryRunPrintsMutatingCommands(t *testing.T) {
	original := shell.Default
	t.Cleanup(func() { shell.Default = original })
	mock := shell.NewMockExecutor(nil)
	shell.Default = mock

	var out bytes.Buffer
	s, err := session.New(session.Options{Root: t.TempDir(), DryRun: true, Out: &out})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, err := s.Run(context.Background(), shell.Command("mvn", "clean", "deploy")); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !strings.Contains(out.String(), "[dry-run]") || !strings.Contains(out.String(), "mvn clean deploy") {
		t.Errorf("unexpected dry-run output %q", out.String())
	}
	if len(mock.Calls) != 0 {
		t.Errorf("dry-run must not execute, got %v", mock.CallLines())
	}
}

func TestEnvEnabled(t *testing.T) {
	t.Setenv("ARTAGON_SKIP_GIT_CLEAN", "1")
	t.Setenv("ARTAGON_SKIP_RELEASE_STEPS", "yes")
	s, err := session.New(session.Options{Root: t.TempDir()})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if !s.EnvEnabled("ARTAGON_SKIP_GIT_CLEAN") {
		t.Error("expected 1 to enable")
	}
	if s.EnvEnabled("ARTAGON_SKIP_RELEASE_STEPS") {
		t.Error("only 1 enables a switch")
	}
}
