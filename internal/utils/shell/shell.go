package shell

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/artagon/artagon-common/internal/utils/logger"
)

// Cmd describes one external command invocation.
type Cmd struct {
	Name  string
	Args  []string
	Dir   string   // working directory, empty for the current one
	Env   []string // extra KEY=VALUE pairs layered over the process environment
	Stdin string   // fed to the process when non-empty
	// ReadOnly commands have no side effects and still run under --dry-run.
	ReadOnly bool
	// Stream logs output lines while the command runs (long Maven builds).
	Stream bool
}

// Command is a convenience constructor for a Cmd.
func Command(name string, args ...string) Cmd {
	return Cmd{Name: name, Args: args}
}

// InDir returns a copy of c running in dir.
func (c Cmd) InDir(dir string) Cmd {
	c.Dir = dir
	return c
}

// AsReadOnly returns a copy of c marked read-only.
func (c Cmd) AsReadOnly() Cmd {
	c.ReadOnly = true
	return c
}

// WithInput returns a copy of c that receives input on stdin.
func (c Cmd) WithInput(input string) Cmd {
	c.Stdin = input
	return c
}

// Streamed returns a copy of c whose output is logged line by line.
func (c Cmd) Streamed() Cmd {
	c.Stream = true
	return c
}

// String renders the command line, quoting arguments that contain spaces.
func (c Cmd) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, c.Name)
	for _, a := range c.Args {
		if a == "" || strings.ContainsAny(a, " \t\"'") {
			parts = append(parts, fmt.Sprintf("%q", a))
		} else {
			parts = append(parts, a)
		}
	}
	return strings.Join(parts, " ")
}

// Executor runs commands and returns their standard output.
type Executor interface {
	Exec(ctx context.Context, cmd Cmd) (string, error)
}

// Default is the executor used by ExecCmd. Tests replace it with a MockExecutor.
var Default Executor = &HostExecutor{}

// ExecCmd runs cmd through the Default executor.
func ExecCmd(ctx context.Context, cmd Cmd) (string, error) {
	return Default.Exec(ctx, cmd)
}

// HostExecutor runs commands on the host with os/exec.
type HostExecutor struct{}

// Exec runs the command and returns its stdout. A non-zero exit is an error that
// carries the trimmed stderr.
func (e *HostExecutor) Exec(ctx context.Context, c Cmd) (string, error) {
	log := logger.Logger()
	if c.Dir != "" {
		log.Debugf("Exec (%s): [%s]", c.Dir, c.String())
	} else {
		log.Debugf("Exec: [%s]", c.String())
	}

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	if c.Stdin != "" {
		cmd.Stdin = strings.NewReader(c.Stdin)
	}

	if c.Stream {
		return execWithStream(cmd, c)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	outputStr := stdout.String()

	if err != nil {
		errStr := strings.TrimSpace(stderr.String())
		if errStr != "" {
			log.Debug(errStr)
			return outputStr, fmt.Errorf("failed to exec %s: %w: %s", c.String(), err, errStr)
		}
		return outputStr, fmt.Errorf("failed to exec %s: %w", c.String(), err)
	}
	if outputStr != "" {
		log.Debug(strings.TrimRight(outputStr, "\n"))
	}
	return outputStr, nil
}

func execWithStream(cmd *exec.Cmd, c Cmd) (string, error) {
	log := logger.Logger()

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("failed to get stdout pipe for command %s: %w", c.String(), err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return "", fmt.Errorf("failed to get stderr pipe for command %s: %w", c.String(), err)
	}
	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("failed to start command %s: %w", c.String(), err)
	}

	var (
		wg  sync.WaitGroup
		out strings.Builder
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		scanLines(stdout, func(line string) {
			out.WriteString(line)
			out.WriteByte('\n')
			log.Info(line)
		})
	}()
	go func() {
		defer wg.Done()
		scanLines(stderr, func(line string) { log.Warn(line) })
	}()
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		return out.String(), fmt.Errorf("failed to exec %s: %w", c.String(), err)
	}
	return out.String(), nil
}

func scanLines(r io.Reader, fn func(string)) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			fn(line)
		}
	}
}

// DryRunExecutor prints mutating commands instead of running them. Read-only
// commands are delegated to Inner.
type DryRunExecutor struct {
	Out   io.Writer
	Inner Executor
}

// NewDryRunExecutor wraps inner; a nil inner means the HostExecutor.
func NewDryRunExecutor(out io.Writer, inner Executor) *DryRunExecutor {
	if inner == nil {
		inner = &HostExecutor{}
	}
	return &DryRunExecutor{Out: out, Inner: inner}
}

func (d *DryRunExecutor) Exec(ctx context.Context, c Cmd) (string, error) {
	if c.ReadOnly {
		return d.Inner.Exec(ctx, c)
	}
	if c.Dir != "" {
		fmt.Fprintf(d.Out, "[dry-run] (%s) %s\n", c.Dir, c.String())
	} else {
		fmt.Fprintf(d.Out, "[dry-run] %s\n", c.String())
	}
	return "", nil
}
