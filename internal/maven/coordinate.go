package maven

import (
	"path"
	"sort"
	"strings"
)

// Coordinate is one resolved dependency as reported by dependency:list.
type Coordinate struct {
	Group      string
	Artifact   string
	Packaging  string
	Classifier string
	Version    string
	Scope      string
}

// Key is group:artifact, the identity used by trust records.
func (c Coordinate) Key() string {
	return c.Group + ":" + c.Artifact
}

// GAV is group:artifact:version.
func (c Coordinate) GAV() string {
	return c.Group + ":" + c.Artifact + ":" + c.Version
}

// ArtifactSpec is the -Dartifact value understood by dependency:get.
func (c Coordinate) ArtifactSpec() string {
	spec := c.GAV() + ":" + c.packaging()
	if c.Classifier != "" {
		spec += ":" + c.Classifier
	}
	return spec
}

// FileName is the artifact file name in a Maven repository, e.g.
// foo-1.0.0.jar or foo-1.0.0-tests.jar.
func (c Coordinate) FileName() string {
	name := c.Artifact + "-" + c.Version
	if c.Classifier != "" {
		name += "-" + c.Classifier
	}
	return name + "." + c.packaging()
}

// RepositoryPath is the slash-separated path of the artifact relative to a
// repository root.
func (c Coordinate) RepositoryPath() string {
	return path.Join(strings.ReplaceAll(c.Group, ".", "/"), c.Artifact, c.Version, c.FileName())
}

func (c Coordinate) String() string {
	parts := []string{c.Group, c.Artifact, c.packaging()}
	if c.Classifier != "" {
		parts = append(parts, c.Classifier)
	}
	parts = append(parts, c.Version)
	if c.Scope != "" {
		parts = append(parts, c.Scope)
	}
	return strings.Join(parts, ":")
}

func (c Coordinate) packaging() string {
	if c.Packaging == "" {
		return "jar"
	}
	return c.Packaging
}

// SortCoordinates orders by GAV, then classifier.
func SortCoordinates(coords []Coordinate) {
	sort.SliceStable(coords, func(i, j int) bool {
		if a, b := coords[i].GAV(), coords[j].GAV(); a != b {
			return a < b
		}
		return coords[i].Classifier < coords[j].Classifier
	})
}
