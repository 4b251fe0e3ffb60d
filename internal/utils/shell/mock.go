package shell

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// MockCommand maps a command line pattern to a canned result. Pattern matches
// when it is a substring of the rendered command line or a regular expression
// matching it.
type MockCommand struct {
	Pattern string
	Output  string
	Error   error
	// Run is an optional side effect, e.g. creating the file mvn would write.
	Run func(c Cmd) error
}

// MockExecutor answers commands from a fixed table and records every call.
type MockExecutor struct {
	mu       sync.Mutex
	commands []MockCommand
	Calls    []Cmd
}

// NewMockExecutor returns an executor that serves the given commands, first
// match wins.
func NewMockExecutor(commands []MockCommand) *MockExecutor {
	return &MockExecutor{commands: commands}
}

func (m *MockExecutor) Exec(_ context.Context, c Cmd) (string, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, c)
	m.mu.Unlock()

	line := c.String()
	for _, mc := range m.commands {
		if !matches(mc.Pattern, line) {
			continue
		}
		if mc.Run != nil {
			if err := mc.Run(c); err != nil {
				return "", err
			}
		}
		return mc.Output, mc.Error
	}
	return "", fmt.Errorf("no mock for command: %s", line)
}

// CallLines returns the rendered command lines executed so far.
func (m *MockExecutor) CallLines() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	lines := make([]string, len(m.Calls))
	for i, c := range m.Calls {
		lines[i] = c.String()
	}
	return lines
}

func matches(pattern, line string) bool {
	if strings.Contains(line, pattern) {
		return true
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false
	}
	return re.MatchString(line)
}
