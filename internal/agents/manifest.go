package agents

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"sigs.k8s.io/yaml"

	"github.com/artagon/artagon-common/internal/config/validate"
)

// Section is an agent-specific block appended after the shared snippets.
type Section struct {
	Heading string `json:"heading"`
	Body    string `json:"body"`
}

// Agent describes one generated configuration file.
type Agent struct {
	Name             string    `json:"-"`
	Output           string    `json:"output"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	Heading          string    `json:"heading"`
	InheritsFrom     string    `json:"inherits_from"`
	ContextInclude   []string  `json:"context_include"`
	SpecificSections []Section `json:"specific_sections"`
}

// Shared holds the settings every agent inherits.
type Shared struct {
	ContextInclude []string `json:"context_include"`
	Snippets       []string `json:"snippets"`
}

// Manifest is a parsed agent manifest. Agents keep the order in which the
// manifest lists them.
type Manifest struct {
	Shared Shared
	Agents []Agent
}

type rawManifest struct {
	Shared Shared          `json:"shared"`
	Agents json.RawMessage `json:"agents"`
}

// LoadManifest reads a JSON or YAML manifest from path.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("manifest not found: %s", path)
		}
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		if data, err = yaml.YAMLToJSON(data); err != nil {
			return nil, fmt.Errorf("converting manifest %s to JSON: %w", path, err)
		}
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return m, nil
}

// ParseManifest validates a JSON manifest against the embedded schema and
// decodes it. Agents without their own context_include inherit the shared
// list; an explicit empty list is kept empty.
func ParseManifest(data []byte) (*Manifest, error) {
	if err := validate.ValidateAgentManifestJSON(data); err != nil {
		return nil, err
	}
	var raw rawManifest
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding manifest: %w", err)
	}
	agents, err := decodeAgents(raw.Agents)
	if err != nil {
		return nil, err
	}
	for i := range agents {
		if agents[i].ContextInclude == nil {
			agents[i].ContextInclude = append([]string(nil), raw.Shared.ContextInclude...)
		}
	}
	return &Manifest{Shared: raw.Shared, Agents: agents}, nil
}

// decodeAgents walks the agents object token by token so the output order
// follows the manifest.
func decodeAgents(data json.RawMessage) ([]Agent, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("decoding agents: %w", err)
	}
	var agents []Agent
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decoding agents: %w", err)
		}
		name, _ := tok.(string)
		var a Agent
		if err := dec.Decode(&a); err != nil {
			return nil, fmt.Errorf("decoding agent %s: %w", name, err)
		}
		a.Name = name
		agents = append(agents, a)
	}
	return agents, nil
}
