package system

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/artagon/artagon-common/internal/utils/logger"
)

// ErrMissingTool is returned when a required executable is not on PATH.
var ErrMissingTool = errors.New("required tool not found")

// LookPath resolves executables; tests replace it.
var LookPath = exec.LookPath

// IsCommandExist reports whether cmd resolves on PATH. The first word of a
// multi-word command ("./mvnw -s settings.xml") is checked.
func IsCommandExist(cmd string) bool {
	fields := strings.Fields(cmd)
	if len(fields) == 0 {
		return false
	}
	_, err := LookPath(fields[0])
	return err == nil
}

// RequireCommands fails with ErrMissingTool naming the first command that
// cannot be resolved.
func RequireCommands(cmds ...string) error {
	log := logger.Logger()
	for _, cmd := range cmds {
		if !IsCommandExist(cmd) {
			log.Errorf("Required tool %q is not installed or not on PATH", cmd)
			return fmt.Errorf("%w: %s", ErrMissingTool, cmd)
		}
		log.Debugf("Found required tool: %s", cmd)
	}
	return nil
}

// ResolveMavenCommand picks the Maven launcher for a project: an explicit
// command wins, then an executable ./mvnw wrapper, then mvn.
func ResolveMavenCommand(projectRoot, explicit string) string {
	if strings.TrimSpace(explicit) != "" {
		return explicit
	}
	wrapper := filepath.Join(projectRoot, "mvnw")
	if info, err := os.Stat(wrapper); err == nil && !info.IsDir() && info.Mode()&0111 != 0 {
		return wrapper
	}
	return "mvn"
}

// UserHomeDir returns the home directory, falling back to $HOME.
func UserHomeDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return os.Getenv("HOME")
}

// SplitCommand splits a configured command such as "mvn -s ci-settings.xml"
// into the executable and its leading arguments.
func SplitCommand(cmd string) (string, []string) {
	fields := strings.Fields(cmd)
	if len(fields) == 0 {
		return "", nil
	}
	return fields[0], fields[1:]
}
