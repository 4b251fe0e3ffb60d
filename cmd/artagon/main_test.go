package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/artagon/artagon-common/internal/agents"
	"github.com/artagon/artagon-common/internal/github"
	"github.com/artagon/artagon-common/internal/security"
	"github.com/artagon/artagon-common/internal/utils/shell"
	"github.com/artagon/artagon-common/internal/utils/system"
)

func TestResolveRequestedLogLevelPrefersExplicitFlag(t *testing.T) {
	prev := logLevel
	logLevel = "warn"
	t.Cleanup(func() {
		logLevel = prev
	})

	if got := resolveRequestedLogLevel(nil); got != "warn" {
		t.Fatalf("expected explicit log level to win, got %q", got)
	}
}

func TestResolveRequestedLogLevelUsesVerboseFallback(t *testing.T) {
	prev := logLevel
	logLevel = ""
	t.Cleanup(func() {
		logLevel = prev
	})

	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().Bool("verbose", false, "")
	if err := cmd.Flags().Set("verbose", "true"); err != nil {
		t.Fatalf("set verbose: %v", err)
	}

	if got := resolveRequestedLogLevel(cmd); got != "debug" {
		t.Fatalf("expected verbose flag to set debug level, got %q", got)
	}
}

func TestResolveRequestedLogLevelIgnoresUnsetVerbose(t *testing.T) {
	prev := logLevel
	logLevel = ""
	t.Cleanup(func() {
		logLevel = prev
	})

	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().Bool("verbose", false, "")

	if got := resolveRequestedLogLevel(cmd); got != "" {
		t.Fatalf("expected empty when verbose not set, got %q", got)
	}
}

func TestAttachLoggingHooksAddsHookToSubcommand(t *testing.T) {
	root := createRootCommand()
	for _, path := range [][]string{{"security", "verify"}, {"release", "branch", "cut"}, {"gh", "protect"}} {
		cmd, _, err := root.Find(path)
		if err != nil {
			t.Fatalf("find %v: %v", path, err)
		}
		if cmd.PersistentPreRunE == nil {
			t.Fatalf("expected logging hook on %v", path)
		}
	}
}

// runCLI executes the command tree with a mocked executor and gh/mvn on PATH.
func runCLI(t *testing.T, mocks []shell.MockCommand, stdin string, args ...string) (string, *shell.MockExecutor, error) {
	t.Helper()
	originalExec := shell.Default
	originalLookPath := system.LookPath
	t.Cleanup(func() {
		shell.Default = originalExec
		system.LookPath = originalLookPath
	})
	mock := shell.NewMockExecutor(mocks)
	shell.Default = mock
	system.LookPath = func(file string) (string, error) {
		switch file {
		case "gh", "git", "mvn":
			return "/usr/bin/" + file, nil
		}
		return "", fmt.Errorf("%s not found", file)
	}

	root := createRootCommand()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), mock, err
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestConfigValidateAndShow(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yml")
	writeFile(t, good, "defaults:\n  owner: artagon\nsecurity:\n  checksumFormat: properties\n")
	bad := filepath.Join(dir, "bad.yml")
	writeFile(t, bad, "security:\n  checksumFormat: xml\n")

	out, _, err := runCLI(t, nil, "", "config", "validate", good)
	if err != nil || !strings.Contains(out, "is valid") {
		t.Fatalf("validate good: %q %v", out, err)
	}
	if _, _, err := runCLI(t, nil, "", "config", "validate", bad); err == nil {
		t.Fatal("expected validation failure for checksumFormat xml")
	}

	out, _, err = runCLI(t, nil, "", "--root", dir, "--config", good, "config", "show")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if !strings.Contains(out, "checksumFormat: properties") || !strings.Contains(out, "owner: artagon") {
		t.Errorf("effective config missing overrides:\n%s", out)
	}

	out, _, err = runCLI(t, nil, "", "config", "schema", "agents")
	if err != nil || !strings.Contains(out, `"inherits_from"`) {
		t.Errorf("schema output: %v", err)
	}
}

func TestSecurityBaselineRequiresMode(t *testing.T) {
	if _, _, err := runCLI(t, nil, "", "security", "baseline"); err == nil {
		t.Fatal("expected error without --update or --verify")
	}
	if _, _, err := runCLI(t, nil, "", "security", "baseline", "--update", "--verify"); err == nil {
		t.Fatal("expected error with both --update and --verify")
	}
}

func TestSecurityConfigErrors(t *testing.T) {
	root := t.TempDir()

	_, _, err := runCLI(t, nil, "", "--root", root, "security", "verify", "--transitive", "maybe")
	if !errors.Is(err, security.ErrConfig) {
		t.Errorf("invalid --transitive should be a config error, got %v", err)
	}

	_, _, err = runCLI(t, nil, "", "--root", root, "security", "verify", "--checksum-format", "xml")
	if err == nil {
		t.Error("expected invalid format error")
	}

	_, _, err = runCLI(t, nil, "", "--root", root, "security", "update")
	if !errors.Is(err, security.ErrConfig) || !strings.Contains(err.Error(), "pom.xml") {
		t.Errorf("missing pom.xml should be a config error, got %v", err)
	}
}

func TestReleaseBranchCutCommand(t *testing.T) {
	root := t.TempDir()
	t.Setenv("ARTAGON_SKIP_GIT_CLEAN", "1")
	_, mock, err := runCLI(t, []shell.MockCommand{{Pattern: "^git ", Output: ""}}, "",
		"--root", root, "release", "branch", "cut", "2.0.0")
	if err != nil {
		t.Fatalf("branch cut: %v", err)
	}
	want := "git checkout -b release-2.0.0 origin/main"
	found := false
	for _, line := range mock.CallLines() {
		if line == want {
			found = true
		}
	}
	if !found {
		t.Errorf("expected %q in %v", want, mock.CallLines())
	}
}

func TestReleaseDryRunCommand(t *testing.T) {
	root := t.TempDir()
	t.Setenv("ARTAGON_SKIP_GIT_CLEAN", "")
	out, mock, err := runCLI(t, []shell.MockCommand{
		{Pattern: "git status --porcelain", Output: ""},
		{Pattern: "git symbolic-ref", Output: "release-1.0.0\n"},
	}, "", "--root", root, "--dry-run", "release", "tag", "1.0.0")
	if err != nil {
		t.Fatalf("dry-run tag: %v", err)
	}
	if len(mock.Calls) != 2 {
		t.Errorf("only read-only git calls may run, got %v", mock.CallLines())
	}
	if !strings.Contains(out, "[dry-run]") || !strings.Contains(out, "git push origin v1.0.0") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestProtectCommandSummarizesFailures(t *testing.T) {
	root := t.TempDir()
	out, _, err := runCLI(t, []shell.MockCommand{
		{Pattern: "repos/artagon/bad/", Error: errors.New("HTTP 404: Not Found")},
		{Pattern: "-X PUT", Output: "{}"},
	}, "", "--root", root, "gh", "protect", "--owner", "artagon", "--force", "good", "bad")
	if !errors.Is(err, github.ErrProtectFailed) {
		t.Fatalf("expected ErrProtectFailed, got %v", err)
	}
	if !strings.Contains(out, "Succeeded: 1, Failed: 1") {
		t.Errorf("summary missing:\n%s", out)
	}
}

func TestProtectCommandAbortsWithoutConfirmation(t *testing.T) {
	root := t.TempDir()
	_, mock, err := runCLI(t, nil, "n\n", "--root", root, "gh", "protect", "--owner", "artagon", "repo")
	if err != nil {
		t.Fatalf("declined confirmation should not fail: %v", err)
	}
	if len(mock.Calls) != 0 {
		t.Errorf("no API call may run after declining, got %v", mock.CallLines())
	}
}

func TestProtectCommandNeedsRepositories(t *testing.T) {
	if _, _, err := runCLI(t, nil, "", "--root", t.TempDir(), "gh", "status", "--owner", "artagon"); err == nil {
		t.Fatal("expected error without repositories")
	}
}

func TestAgentsAndBootstrapCommands(t *testing.T) {
	root := t.TempDir()
	out, _, err := runCLI(t, nil, "", "--root", root, "bootstrap", "--name", "demo", "--owner", "artagon", "--description", "Demo.")
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if !strings.Contains(out, "Wrote README.md") {
		t.Errorf("unexpected bootstrap output:\n%s", out)
	}

	if _, _, err := runCLI(t, nil, "", "--root", root, "agents", "--check"); err != nil {
		t.Fatalf("agents should be current after bootstrap: %v", err)
	}

	writeFile(t, filepath.Join(root, ".claude", "project.md"), "edited\n")
	_, _, err = runCLI(t, nil, "", "--root", root, "agents", "--check")
	if !errors.Is(err, agents.ErrOutOfDate) {
		t.Errorf("expected ErrOutOfDate, got %v", err)
	}

	out, _, err = runCLI(t, nil, "", "--root", root, "bootstrap", "--name", "demo", "--owner", "artagon", "--description", "Demo.")
	if err != nil {
		t.Fatalf("second bootstrap: %v", err)
	}
	if !strings.Contains(out, "[agent-config] Wrote .claude/project.md") {
		t.Errorf("bootstrap should regenerate the stale agent file:\n%s", out)
	}
}

func TestReadBody(t *testing.T) {
	path := filepath.Join(t.TempDir(), "body.md")
	writeFile(t, path, "from file")
	if got, err := readBody("@" + path); err != nil || got != "from file" {
		t.Errorf("readBody(@file) = %q, %v", got, err)
	}
	if got, _ := readBody("plain"); got != "plain" {
		t.Errorf("readBody(plain) = %q", got)
	}
	if _, err := readBody("@/does/not/exist"); err == nil {
		t.Error("expected missing file error")
	}
}
