package maven

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/artagon/artagon-common/internal/utils/logger"
	"github.com/artagon/artagon-common/internal/utils/shell"
	"github.com/artagon/artagon-common/internal/utils/system"
)

// ErrArtifactMissing is returned when an artifact cannot be placed in the
// local repository.
var ErrArtifactMissing = errors.New("artifact not available")

// Fetcher makes artifacts available in the local Maven repository.
type Fetcher struct {
	Exec        shell.Executor
	MavenCmd    string
	ProjectRoot string
	LocalRepo   string
}

// LocalPath is where coord lives in the local repository.
func (f *Fetcher) LocalPath(c Coordinate) string {
	return filepath.Join(f.LocalRepo, filepath.FromSlash(c.RepositoryPath()))
}

// Ensure returns the local path of coord, running a non-transitive
// dependency:get when the file is absent. A download failure or a file still
// missing afterwards is ErrArtifactMissing.
func (f *Fetcher) Ensure(ctx context.Context, c Coordinate) (string, error) {
	log := logger.Logger()
	local := f.LocalPath(c)
	if fileExists(local) {
		return local, nil
	}

	mvn := f.MavenCmd
	if mvn == "" {
		mvn = "mvn"
	}
	name, args := system.SplitCommand(mvn)
	args = append(args,
		"-B", "-q", "dependency:get",
		"-Dartifact="+c.ArtifactSpec(),
		"-Dtransitive=false",
		"-Dmaven.repo.local="+f.LocalRepo,
	)

	// Fetching only fills the cache, so it still runs under --dry-run.
	cmd := shell.Command(name, args...).InDir(f.ProjectRoot).AsReadOnly()
	log.Debugf("fetching %s into %s", c.ArtifactSpec(), f.LocalRepo)
	if _, err := f.Exec.Exec(ctx, cmd); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: %s: %v", ErrArtifactMissing, c.GAV(), err)
	}

	if !fileExists(local) {
		return "", fmt.Errorf("%w: %s not at %s after fetch", ErrArtifactMissing, c.GAV(), local)
	}
	return local, nil
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}
