package maven

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/artagon/artagon-common/internal/utils/general/slice"
	"github.com/artagon/artagon-common/internal/utils/logger"
	"github.com/artagon/artagon-common/internal/utils/shell"
	"github.com/artagon/artagon-common/internal/utils/system"
)

// ErrNoDependencies is returned when resolution yields no jar coordinates.
var ErrNoDependencies = errors.New("no dependencies found")

// Resolver lists the resolved dependencies of a Maven project.
type Resolver struct {
	Exec        shell.Executor
	MavenCmd    string // e.g. "mvn" or "./mvnw -s ci-settings.xml"
	ProjectRoot string
}

// Resolve runs dependency:list once per scope and returns the jar coordinates
// whose scope is one of scopes, de-duplicated and sorted by GAV. An empty
// result is ErrNoDependencies.
func (r *Resolver) Resolve(ctx context.Context, scopes []string, transitive bool) ([]Coordinate, error) {
	log := logger.Logger()

	if len(scopes) == 0 {
		return nil, fmt.Errorf("no scopes requested")
	}

	tmpDir, err := os.MkdirTemp("", "artagon-deps-")
	if err != nil {
		return nil, fmt.Errorf("creating temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	seen := make(map[string]bool)
	var result []Coordinate
	for _, scope := range scopes {
		outFile := filepath.Join(tmpDir, "dependencies-"+scope+".txt")
		coords, err := r.list(ctx, scope, transitive, outFile)
		if err != nil {
			return nil, err
		}

		kept := 0
		for _, c := range coords {
			if c.Packaging != "jar" || !slice.Contains(scopes, c.Scope) {
				continue
			}
			id := c.GAV() + ":" + c.Classifier
			if seen[id] {
				continue
			}
			seen[id] = true
			result = append(result, c)
			kept++
		}
		log.Debugf("scope %s: %d coordinates listed, %d kept", scope, len(coords), kept)
	}

	if len(result) == 0 {
		return nil, fmt.Errorf("%w for scopes %v", ErrNoDependencies, scopes)
	}
	SortCoordinates(result)
	return result, nil
}

func (r *Resolver) list(ctx context.Context, scope string, transitive bool, outFile string) ([]Coordinate, error) {
	// Every reactor module appends its list, so start from an empty file.
	if err := os.WriteFile(outFile, nil, 0644); err != nil {
		return nil, fmt.Errorf("preparing dependency list file: %w", err)
	}

	name, args := system.SplitCommand(r.mavenCmd())
	args = append(args,
		"-B", "-q", "dependency:list",
		"-DincludeScope="+scope,
		"-DexcludeTransitive="+strconv.FormatBool(!transitive),
		"-DoutputFile="+outFile,
		"-DappendOutput=true",
	)

	cmd := shell.Command(name, args...).InDir(r.ProjectRoot).AsReadOnly()
	stdout, err := r.Exec.Exec(ctx, cmd)
	if err != nil {
		return nil, fmt.Errorf("listing %s dependencies: %w", scope, err)
	}

	// An empty outFile means the plugin printed to the console instead.
	data, err := os.ReadFile(outFile)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading dependency list: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		data = []byte(stdout)
	}

	coords, err := ParseDependencyList(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing %s dependencies: %w", scope, err)
	}
	return coords, nil
}

func (r *Resolver) mavenCmd() string {
	if r.MavenCmd == "" {
		return "mvn"
	}
	return r.MavenCmd
}
