package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/artagon/artagon-common/internal/utils/system"
)

// ConfigHelpers resolves configuration values against a repository root
type ConfigHelpers struct {
	config *Config
	root   string
}

// NewConfigHelpers creates a new config helpers instance
func NewConfigHelpers(config *Config, root string) *ConfigHelpers {
	return &ConfigHelpers{config: config, root: root}
}

// ProjectRoot returns the absolute Maven project root
func (c *ConfigHelpers) ProjectRoot() (string, error) {
	return c.resolve(c.config.Security.ProjectRoot)
}

// SecurityDir returns the absolute baseline directory. Relative values are
// taken from the project root.
func (c *ConfigHelpers) SecurityDir() (string, error) {
	dir := c.config.Security.SecurityDir
	if filepath.IsAbs(dir) {
		return dir, nil
	}
	root, err := c.ProjectRoot()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, dir), nil
}

// LocalRepository returns the Maven local repository: the configured path,
// else $MAVEN_REPO_LOCAL, else ~/.m2/repository.
func (c *ConfigHelpers) LocalRepository() (string, error) {
	if repo := c.config.Security.LocalRepository; repo != "" {
		return c.resolve(expandHome(repo))
	}
	if repo := os.Getenv("MAVEN_REPO_LOCAL"); repo != "" {
		return filepath.Abs(expandHome(repo))
	}
	return filepath.Join(system.UserHomeDir(), ".m2", "repository"), nil
}

// OptionalPath resolves an optional file setting; empty stays empty
func (c *ConfigHelpers) OptionalPath(p string) (string, error) {
	if p == "" {
		return "", nil
	}
	return c.resolve(expandHome(p))
}

// LogLevel returns the configured log level
func (c *ConfigHelpers) LogLevel() string {
	return c.config.Logging.Level
}

// IsDebugMode returns true if debug logging is enabled
func (c *ConfigHelpers) IsDebugMode() bool {
	return strings.EqualFold(c.config.Logging.Level, "debug")
}

func (c *ConfigHelpers) resolve(p string) (string, error) {
	if p == "" {
		p = "."
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(c.root, p)
	}
	return filepath.Abs(p)
}

func expandHome(p string) string {
	if p == "~" {
		return system.UserHomeDir()
	}
	if strings.HasPrefix(p, "~/") {
		return filepath.Join(system.UserHomeDir(), p[2:])
	}
	return p
}
