package maven

import (
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrMissingPOM is returned when a project root has no pom.xml.
var ErrMissingPOM = errors.New("pom.xml not found")

// POM holds the handful of project fields the tooling reads.
type POM struct {
	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
	Version    string `xml:"version"`
	Packaging  string `xml:"packaging"`
	Parent     struct {
		GroupID    string `xml:"groupId"`
		ArtifactID string `xml:"artifactId"`
		Version    string `xml:"version"`
	} `xml:"parent"`
}

// EffectiveVersion returns the project version, inherited from the parent
// when the project does not declare one.
func (p *POM) EffectiveVersion() string {
	if p.Version != "" {
		return p.Version
	}
	return p.Parent.Version
}

// POMPath returns <projectRoot>/pom.xml, failing with ErrMissingPOM when absent.
func POMPath(projectRoot string) (string, error) {
	pom := filepath.Join(projectRoot, "pom.xml")
	info, err := os.Stat(pom)
	if err != nil || info.IsDir() {
		return "", fmt.Errorf("%w in %s", ErrMissingPOM, projectRoot)
	}
	return pom, nil
}

// ReadPOM parses the project-level fields of a pom.xml.
func ReadPOM(path string) (*POM, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var pom POM
	if err := xml.Unmarshal(data, &pom); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	pom.GroupID = strings.TrimSpace(pom.GroupID)
	pom.ArtifactID = strings.TrimSpace(pom.ArtifactID)
	pom.Version = strings.TrimSpace(pom.Version)
	pom.Parent.Version = strings.TrimSpace(pom.Parent.Version)
	return &pom, nil
}

// ReadProjectName returns the artifactId of the project in projectRoot.
func ReadProjectName(projectRoot string) (string, error) {
	path, err := POMPath(projectRoot)
	if err != nil {
		return "", err
	}
	pom, err := ReadPOM(path)
	if err != nil {
		return "", err
	}
	if pom.ArtifactID == "" {
		return "", fmt.Errorf("%s declares no artifactId", path)
	}
	return pom.ArtifactID, nil
}
