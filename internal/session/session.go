package session

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/artagon/artagon-common/internal/config"
	"github.com/artagon/artagon-common/internal/utils/logger"
	"github.com/artagon/artagon-common/internal/utils/shell"
)

// Options select the repository and execution mode of a session.
type Options struct {
	ID         string // run ID; generated when empty
	Root       string // repository root; empty means the working directory
	ConfigFile string // explicit config file; empty means <root>/.artagon.yml
	DryRun     bool
	Out        io.Writer // user-facing output, os.Stdout when nil
}

// Session is the execution context shared by every command of one
// invocation.
type Session struct {
	ID      string
	Root    string
	Config  *config.Config
	Helpers *config.ConfigHelpers
	DryRun  bool
	Out     io.Writer

	exec   shell.Executor
	getenv func(string) string
	log    *zap.SugaredLogger
}

// New resolves the root, loads configuration and picks the executor.
func New(opts Options) (*Session, error) {
	root := opts.Root
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("determining working directory: %w", err)
		}
		root = wd
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root %s: %w", opts.Root, err)
	}

	cfg, err := config.LoadForRoot(root, opts.ConfigFile)
	if err != nil {
		return nil, err
	}

	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	exec := shell.Default
	if opts.DryRun {
		exec = shell.NewDryRunExecutor(out, shell.Default)
	}

	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}
	return &Session{
		ID:      id,
		Root:    root,
		Config:  cfg,
		Helpers: config.NewConfigHelpers(cfg, root),
		DryRun:  opts.DryRun,
		Out:     out,
		exec:    exec,
		getenv:  os.Getenv,
		log:     logger.Logger(),
	}, nil
}

// Log returns the process logger.
func (s *Session) Log() *zap.SugaredLogger {
	return s.log
}

// Run executes cmd, defaulting its working directory to the session root.
func (s *Session) Run(ctx context.Context, cmd shell.Cmd) (string, error) {
	if cmd.Dir == "" {
		cmd.Dir = s.Root
	}
	return s.exec.Exec(ctx, cmd)
}

// Executor exposes the session executor to components that run commands
// on their own.
func (s *Session) Executor() shell.Executor {
	return s.exec
}

// Getenv reads the process environment.
func (s *Session) Getenv(key string) string {
	return s.getenv(key)
}

// EnvEnabled reports whether key is set to "1".
func (s *Session) EnvEnabled(key string) bool {
	return s.getenv(key) == "1"
}

// Printf writes user-facing output.
func (s *Session) Printf(format string, args ...any) {
	fmt.Fprintf(s.Out, format, args...)
}

// Println writes a user-facing line.
func (s *Session) Println(args ...any) {
	fmt.Fprintln(s.Out, args...)
}
