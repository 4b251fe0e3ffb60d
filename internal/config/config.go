package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/artagon/artagon-common/internal/config/validate"
)

// FileName is the per-repository configuration file looked up in the root.
const FileName = ".artagon.yml"

// Config is the effective configuration: built-in defaults overlaid with
// .artagon.yml. Command-line flags are applied on top by the commands.
type Config struct {
	Defaults DefaultsConfig `yaml:"defaults"`
	Logging  LoggingConfig  `yaml:"logging"`
	Security SecurityConfig `yaml:"security"`
	GitHub   GitHubConfig   `yaml:"github"`
	Release  ReleaseConfig  `yaml:"release"`
	Agents   AgentsConfig   `yaml:"agents"`

	// Path is the file the configuration was read from, empty for defaults.
	Path string `yaml:"-"`
}

type DefaultsConfig struct {
	Language string `yaml:"language"`
	Owner    string `yaml:"owner,omitempty"`
	Repo     string `yaml:"repo,omitempty"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// SecurityConfig drives the dependency-security baseline pipeline.
type SecurityConfig struct {
	ProjectRoot     string   `yaml:"projectRoot"`
	SecurityDir     string   `yaml:"securityDir"`
	BaselineName    string   `yaml:"baselineName,omitempty"`
	ChecksumFormat  string   `yaml:"checksumFormat"`
	Scopes          []string `yaml:"scopes"`
	Transitive      bool     `yaml:"transitive"`
	MavenCmd        string   `yaml:"mavenCmd,omitempty"`
	RepositoryURL   string   `yaml:"repositoryURL"`
	LocalRepository string   `yaml:"localRepository,omitempty"`
	KeyFlagsFile    string   `yaml:"keyFlagsFile,omitempty"`
	Keyring         string   `yaml:"keyring,omitempty"`
	ReportDir       string   `yaml:"reportDir,omitempty"`
}

// GitHubConfig holds branch protection defaults.
type GitHubConfig struct {
	Owner           string   `yaml:"owner,omitempty"`
	Team            string   `yaml:"team,omitempty"`
	Branch          string   `yaml:"branch"`
	Repos           []string `yaml:"repos,omitempty"`
	RequiredReviews int      `yaml:"requiredReviews"`
	StatusChecks    []string `yaml:"statusChecks,omitempty"`
	EnforceAdmins   bool     `yaml:"enforceAdmins"`
}

// ReleaseConfig describes the multi-module layout the release pipeline edits.
type ReleaseConfig struct {
	Modules        []string       `yaml:"modules,omitempty"`
	ParentPom      string         `yaml:"parentPom,omitempty"`
	DeployProfiles []string       `yaml:"deployProfiles"`
	Remote         string         `yaml:"remote"`
	MainBranch     string         `yaml:"mainBranch"`
	ChecksumCopies []ChecksumCopy `yaml:"checksumCopies,omitempty"`
}

// ChecksumCopy copies a baseline produced by building Module into another
// module's security directory during a release.
type ChecksumCopy struct {
	Module string `yaml:"module,omitempty"`
	From   string `yaml:"from"`
	To     string `yaml:"to"`
}

type AgentsConfig struct {
	Manifest string `yaml:"manifest"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Defaults: DefaultsConfig{Language: "java"},
		Logging:  LoggingConfig{Level: "info"},
		Security: SecurityConfig{
			ProjectRoot:    ".",
			SecurityDir:    "security",
			ChecksumFormat: "csv",
			Scopes:         []string{"compile", "runtime"},
			Transitive:     true,
			RepositoryURL:  "https://repo1.maven.org/maven2",
		},
		GitHub: GitHubConfig{
			Branch:          "main",
			RequiredReviews: 1,
			EnforceAdmins:   true,
		},
		Release: ReleaseConfig{
			DeployProfiles: []string{"ossrh-deploy", "artagon-oss-release"},
			Remote:         "origin",
			MainBranch:     "main",
		},
		Agents: AgentsConfig{Manifest: ".agents-shared/agent-manifest.json"},
	}
}

// Load reads path over the defaults. A missing file is not an error when
// optional is true; the defaults are returned.
func Load(path string, optional bool) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	cfg, err := parseYAMLConfig(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	if abs, err := filepath.Abs(path); err == nil {
		cfg.Path = abs
	} else {
		cfg.Path = path
	}
	return cfg, nil
}

// LoadForRoot loads root/.artagon.yml, or explicit when set. An explicit file
// must exist.
func LoadForRoot(root, explicit string) (*Config, error) {
	if explicit != "" {
		return Load(explicit, false)
	}
	return Load(filepath.Join(root, FileName), true)
}

func parseYAMLConfig(data []byte) (*Config, error) {
	cfg := Default()
	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, nil
	}
	if _, err := validate.ValidateConfigYAML(data); err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	return cfg, nil
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	return buf.Bytes(), nil
}
