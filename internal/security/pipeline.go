package security

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/schollz/progressbar/v3"

	"github.com/artagon/artagon-common/internal/maven"
	"github.com/artagon/artagon-common/internal/utils/logger"
	"github.com/artagon/artagon-common/internal/utils/network"
	"github.com/artagon/artagon-common/internal/utils/shell"
	"github.com/artagon/artagon-common/internal/utils/system"
)

// Mode selects what Run does with the computed baseline.
type Mode string

const (
	ModeUpdate Mode = "update"
	ModeVerify Mode = "verify"
)

// Options configure one baseline run. Paths are absolute.
type Options struct {
	ProjectRoot    string
	SecurityDir    string
	Name           string // baseline file prefix; defaults to the pom artifactId
	Format         Format
	Scopes         []string
	Transitive     bool
	MavenCmd       string
	RepositoryURL  string
	LocalRepo      string
	KeyFlagsFile   string
	KeyringFile    string
	ReportDir      string
	ShowProgress   bool
	ProgressWriter io.Writer // os.Stderr when nil
}

// SkippedCoordinate is a dependency left out of the baseline.
type SkippedCoordinate struct {
	Coordinate string
	Reason     string
}

// Result summarises a run.
type Result struct {
	Mode       Mode
	Resolved   int
	Recorded   int
	Skipped    []SkippedCoordinate
	Unsigned   []string
	Files      []string
	ReportPath string
}

// Pipeline resolves, fetches, digests and fingerprints a project's
// dependencies one coordinate at a time.
type Pipeline struct {
	opts    Options
	exec    shell.Executor
	client  *http.Client
	flags   KeyFlags
	keyring openpgp.EntityList
}

// NewPipeline validates opts and loads the optional key flags and keyring.
// A nil client selects the secure default client.
func NewPipeline(opts Options, exec shell.Executor, client *http.Client) (*Pipeline, error) {
	if _, err := ParseFormat(string(opts.Format)); err != nil {
		return nil, err
	}
	if len(opts.Scopes) == 0 {
		return nil, configError("at least one scope is required")
	}
	if opts.MavenCmd == "" {
		opts.MavenCmd = system.ResolveMavenCommand(opts.ProjectRoot, "")
	}
	if err := system.RequireCommands(opts.MavenCmd); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	if _, err := maven.POMPath(opts.ProjectRoot); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	if opts.Name == "" {
		name, err := maven.ReadProjectName(opts.ProjectRoot)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConfig, err)
		}
		opts.Name = name
	}
	if opts.LocalRepo == "" {
		return nil, configError("local repository path is not set")
	}

	flags, err := LoadKeyFlags(opts.KeyFlagsFile)
	if err != nil {
		return nil, err
	}
	keyring, err := LoadKeyring(opts.KeyringFile)
	if err != nil {
		return nil, err
	}
	if client == nil {
		client = network.NewSecureHTTPClient(0)
	}
	return &Pipeline{opts: opts, exec: exec, client: client, flags: flags, keyring: keyring}, nil
}

// Name is the resolved baseline name.
func (p *Pipeline) Name() string {
	return p.opts.Name
}

// Compute builds the baseline in memory. Missing artifacts and digest
// failures skip the coordinate; missing or unreadable signatures record noKey.
func (p *Pipeline) Compute(ctx context.Context) (*Baseline, *Result, error) {
	log := logger.Logger()
	result := &Result{}
	report := logger.NewStringListReport("dependency-security " + p.opts.Name)

	resolver := &maven.Resolver{Exec: p.exec, MavenCmd: p.opts.MavenCmd, ProjectRoot: p.opts.ProjectRoot}
	coords, err := resolver.Resolve(ctx, p.opts.Scopes, p.opts.Transitive)
	if err != nil {
		if errors.Is(err, maven.ErrNoDependencies) {
			return nil, nil, fmt.Errorf("%w: %w", ErrConfig, err)
		}
		return nil, nil, err
	}
	result.Resolved = len(coords)
	log.Infof("resolved %d dependencies for %s (scopes %v, transitive=%t)",
		len(coords), p.opts.Name, p.opts.Scopes, p.opts.Transitive)

	fetcher := &maven.Fetcher{Exec: p.exec, MavenCmd: p.opts.MavenCmd, ProjectRoot: p.opts.ProjectRoot, LocalRepo: p.opts.LocalRepo}
	signatures := &SignatureSource{RepositoryURL: p.opts.RepositoryURL, Client: p.client}
	baseline := NewBaseline(p.opts.Name, p.opts.Format)

	bar := p.newProgressBar(len(coords))
	for _, c := range coords {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		bar.Describe(c.Key())

		jar, err := fetcher.Ensure(ctx, c)
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			log.Warnf("skipping %s: %v", c.GAV(), err)
			result.Skipped = append(result.Skipped, SkippedCoordinate{Coordinate: c.GAV(), Reason: err.Error()})
			report.Add("skipped %s: %v", c.GAV(), err)
			_ = bar.Add(1)
			continue
		}

		digest, err := ComputeDigest(jar, SHA256)
		if err != nil {
			log.Warnf("skipping %s: %v", c.GAV(), err)
			result.Skipped = append(result.Skipped, SkippedCoordinate{Coordinate: c.GAV(), Reason: err.Error()})
			report.Add("skipped %s: %v", c.GAV(), err)
			_ = bar.Add(1)
			continue
		}
		baseline.AddChecksum(c, digest)

		fingerprint := p.fingerprint(ctx, signatures, c, jar)
		if fingerprint == NoKey {
			result.Unsigned = append(result.Unsigned, c.Key())
			report.Add("no signing key for %s", c.GAV())
		}
		baseline.AddTrust(TrustRecord{Key: c.Key(), Fingerprint: fingerprint, Flag: p.flags.Lookup(c.Key())})
		_ = bar.Add(1)
	}
	_ = bar.Finish()

	if ctx.Err() != nil {
		return nil, nil, ctx.Err()
	}
	if len(baseline.Checksums) == 0 {
		return nil, nil, configError("none of the %d resolved dependencies could be checksummed", len(coords))
	}
	result.Recorded = len(baseline.Checksums)

	if p.opts.ReportDir != "" && report.Len() > 0 {
		path, err := report.WriteToDir(p.opts.ReportDir)
		if err != nil {
			log.Warnf("writing report: %v", err)
		} else {
			result.ReportPath = path
		}
	}
	return baseline, result, nil
}

func (p *Pipeline) fingerprint(ctx context.Context, src *SignatureSource, c maven.Coordinate, jar string) string {
	log := logger.Logger()
	sigPath, err := src.Obtain(ctx, c, jar)
	if err != nil {
		log.Warnf("no signature for %s: %v", c.GAV(), err)
		return NoKey
	}
	fpr, err := SignatureFingerprintFile(sigPath, p.keyring)
	if err != nil {
		log.Warnf("unreadable signature %s: %v", sigPath, err)
		return NoKey
	}
	log.Debugf("%s signed by %s", c.GAV(), fpr)
	return fpr
}

// Run computes the baseline and then updates or verifies the committed files.
func (p *Pipeline) Run(ctx context.Context, mode Mode) (*Result, error) {
	if mode != ModeUpdate && mode != ModeVerify {
		return nil, configError("unknown mode %q", mode)
	}
	baseline, result, err := p.Compute(ctx)
	if err != nil {
		return nil, err
	}
	result.Mode = mode

	switch mode {
	case ModeUpdate:
		files, err := baseline.Update(p.opts.SecurityDir)
		result.Files = files
		if err != nil {
			return result, err
		}
	case ModeVerify:
		files := baseline.FilesIn(p.opts.SecurityDir)
		result.Files = []string{files.Checksums, files.Trust}
		if err := baseline.Verify(p.opts.SecurityDir); err != nil {
			return result, err
		}
		logger.Logger().Infof("baselines in %s match the dependency tree", p.opts.SecurityDir)
	}
	return result, nil
}

// Diff computes the baseline and reports drift against the committed files.
func (p *Pipeline) Diff(ctx context.Context) (*DiffResult, error) {
	baseline, _, err := p.Compute(ctx)
	if err != nil {
		return nil, err
	}
	return baseline.Diff(p.opts.SecurityDir)
}

func (p *Pipeline) newProgressBar(total int) *progressbar.ProgressBar {
	w := p.opts.ProgressWriter
	if w == nil {
		w = os.Stderr
	}
	if !p.opts.ShowProgress {
		w = io.Discard
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionFullWidth(),
		progressbar.OptionShowDescriptionAtLineEnd(),
		progressbar.OptionSetDescription("checking dependencies"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(100*time.Millisecond),
	)
}
