package pkgfetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/artagon/artagon-common/internal/utils/logger"
)

// MaxFileSize caps a single download. Detached signatures are a few hundred
// bytes; anything this large is not one.
const MaxFileSize = 8 << 20

// ErrNotFound is returned when the repository answers 404 or 410.
var ErrNotFound = errors.New("remote file not found")

// FetchFile downloads url into dest. The body is written to a temporary file
// in the destination directory and renamed into place, so dest is either
// absent or complete.
func FetchFile(ctx context.Context, client *http.Client, url, dest string) error {
	log := logger.Logger()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building request for %s: %w", url, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("downloading %s: %w", url, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return fmt.Errorf("%w: %s", ErrNotFound, url)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("downloading %s: bad status: %s", url, resp.Status)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", dest, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", dest, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	n, err := io.Copy(tmp, io.LimitReader(resp.Body, MaxFileSize+1))
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("writing %s: %w", dest, err)
	}
	if n > MaxFileSize {
		return fmt.Errorf("downloading %s: response exceeds %d bytes", url, MaxFileSize)
	}

	if err := os.Rename(tmpName, dest); err != nil {
		return fmt.Errorf("moving %s into place: %w", dest, err)
	}
	log.Debugf("downloaded %s (%d bytes) to %s", url, n, dest)
	return nil
}
