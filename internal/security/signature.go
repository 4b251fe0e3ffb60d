package security

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/artagon/artagon-common/internal/maven"
	"github.com/artagon/artagon-common/internal/pkgfetcher"
	"github.com/artagon/artagon-common/internal/utils/logger"
)

// ErrSignatureUnavailable is returned when no detached signature exists
// locally or in the remote repository.
var ErrSignatureUnavailable = errors.New("signature not available")

// SignatureSource locates the .asc companion of an artifact.
type SignatureSource struct {
	RepositoryURL string
	Client        *http.Client
}

// Obtain returns the path of <jar>.asc, downloading it next to the jar from
// RepositoryURL when it is not cached.
func (s *SignatureSource) Obtain(ctx context.Context, c maven.Coordinate, jarPath string) (string, error) {
	log := logger.Logger()
	local := jarPath + ".asc"
	if info, err := os.Stat(local); err == nil && !info.IsDir() {
		return local, nil
	}
	if s.RepositoryURL == "" || s.Client == nil {
		return "", fmt.Errorf("%w: %s is not cached", ErrSignatureUnavailable, c.GAV())
	}

	url := strings.TrimRight(s.RepositoryURL, "/") + "/" + c.RepositoryPath() + ".asc"
	log.Debugf("downloading signature %s", url)
	if err := pkgfetcher.FetchFile(ctx, s.Client, url, local); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: %s: %v", ErrSignatureUnavailable, c.GAV(), err)
	}
	return local, nil
}
