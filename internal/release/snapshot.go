package release

import (
	"context"
	"fmt"
	"strings"

	"github.com/artagon/artagon-common/internal/maven"
)

// PublishSnapshot deploys the current -SNAPSHOT build with the configured
// deploy profiles. Release versions are refused.
func (r *Releaser) PublishSnapshot(ctx context.Context) error {
	path, err := maven.POMPath(r.s.Root)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPrecondition, err)
	}
	pom, err := maven.ReadPOM(path)
	if err != nil {
		return err
	}
	version := pom.EffectiveVersion()
	if !strings.HasSuffix(version, "-SNAPSHOT") {
		return fmt.Errorf("%w: %s has version %q, snapshot publish needs a -SNAPSHOT version",
			ErrPrecondition, path, version)
	}
	r.s.Printf("[PLAN] Java snapshot publish version=%s\n", version)
	return r.maven(ctx, r.s.Root, r.deployGoals()...)
}
