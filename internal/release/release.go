package release

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/artagon/artagon-common/internal/session"
	"github.com/artagon/artagon-common/internal/utils/shell"
	"github.com/artagon/artagon-common/internal/utils/system"
)

// Environment switches honoured by the release steps.
const (
	EnvSkipGitClean     = "ARTAGON_SKIP_GIT_CLEAN"
	EnvSkipReleaseSteps = "ARTAGON_SKIP_RELEASE_STEPS"
)

const branchPrefix = "release-"

// ErrPrecondition is returned when the repository is not in a state the
// requested action can run from.
var ErrPrecondition = errors.New("release precondition failed")

// Action selects the release workflow.
type Action int

const (
	ActionRun Action = iota
	ActionTag
	ActionBranchCut
	ActionBranchStage
)

func (a Action) String() string {
	switch a {
	case ActionRun:
		return "RUN"
	case ActionTag:
		return "TAG"
	case ActionBranchCut:
		return "BRANCH_CUT"
	case ActionBranchStage:
		return "BRANCH_STAGE"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// Options carry the command-line choices. Version and Branch are filled in
// by the steps when inferred from the current branch.
type Options struct {
	Action        Action
	Version       string
	Deploy        bool
	AllowMismatch bool
	Branch        string
	NextVersion   string
}

// Step is one named unit of a release pipeline.
type Step struct {
	Name string
	Run  func(ctx context.Context) error
}

// RunSteps executes steps in order and stops at the first failure.
func RunSteps(ctx context.Context, steps ...Step) error {
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := step.Run(ctx); err != nil {
			return fmt.Errorf("%s: %w", step.Name, err)
		}
	}
	return nil
}

// Releaser runs release workflows against the session's repository.
type Releaser struct {
	s        *session.Session
	opts     *Options
	mvn      string
	mvnArgs  []string
	profiles []string
	remote   string
	main     string
}

// New prepares a Releaser. Maven is resolved like the security pipeline
// does it: configured command, then ./mvnw, then mvn.
func New(s *session.Session, opts *Options) *Releaser {
	rc := s.Config.Release
	mvn, mvnArgs := system.SplitCommand(system.ResolveMavenCommand(s.Root, s.Config.Security.MavenCmd))
	r := &Releaser{
		s:        s,
		opts:     opts,
		mvn:      mvn,
		mvnArgs:  mvnArgs,
		profiles: rc.DeployProfiles,
		remote:   rc.Remote,
		main:     rc.MainBranch,
	}
	if r.remote == "" {
		r.remote = "origin"
	}
	if r.main == "" {
		r.main = "main"
	}
	return r
}

// Steps returns the pipeline for the configured action.
func (r *Releaser) Steps() ([]Step, error) {
	steps := []Step{{"ensure clean working tree", r.ensureClean}}
	if r.opts.Action != ActionBranchCut {
		steps = append(steps, Step{"ensure release branch", r.ensureReleaseBranch})
	}
	if r.opts.Action != ActionBranchStage {
		steps = append(steps, Step{"check version", func(context.Context) error { return r.requireVersion() }})
	}
	steps = append(steps, Step{"log plan", r.logPlan})

	switch r.opts.Action {
	case ActionRun:
		steps = append(steps,
			Step{"validate build", r.validateBuild},
			Step{"update versions to release", r.updateVersionsToRelease},
			Step{"update checksums", r.updateChecksums},
			Step{"commit release", r.commitRelease},
			Step{"deploy release", r.deployRelease},
			Step{"bump to next snapshot", r.bumpToNextSnapshot},
			Step{"commit next iteration", r.commitNextIteration},
			Step{"summarize release", r.summarizeRelease},
		)
	case ActionTag:
		steps = append(steps, Step{"create release tag", r.createReleaseTag})
	case ActionBranchCut:
		steps = append(steps, Step{"create release branch", r.createReleaseBranch})
	case ActionBranchStage:
		steps = append(steps, Step{"validate build", r.validateBuild})
		if r.opts.Deploy {
			steps = append(steps, Step{"deploy release", r.deployRelease})
		}
		steps = append(steps, Step{"summarize stage", r.summarizeStage})
	default:
		return nil, fmt.Errorf("unknown release action %v", r.opts.Action)
	}
	return steps, nil
}

// Run executes the pipeline for the configured action.
func (r *Releaser) Run(ctx context.Context) error {
	steps, err := r.Steps()
	if err != nil {
		return err
	}
	r.s.Log().Infof("Starting release %s (run %s)", r.opts.Action, r.s.ID)
	return RunSteps(ctx, steps...)
}

func (r *Releaser) skip(what string) bool {
	if r.s.EnvEnabled(EnvSkipReleaseSteps) {
		r.s.Printf("[skip] %s\n", what)
		return true
	}
	return false
}

func (r *Releaser) git(ctx context.Context, args ...string) (string, error) {
	return r.s.Run(ctx, shell.Command("git", args...))
}

func (r *Releaser) maven(ctx context.Context, dir string, goals ...string) error {
	args := append(append([]string{}, r.mvnArgs...), goals...)
	_, err := r.s.Run(ctx, shell.Command(r.mvn, args...).InDir(dir).Streamed())
	return err
}

func (r *Releaser) deployGoals() []string {
	goals := []string{"clean", "deploy"}
	if len(r.profiles) > 0 {
		goals = append(goals, "-P"+strings.Join(r.profiles, ","))
	}
	return goals
}

func (r *Releaser) requireVersion() error {
	if strings.TrimSpace(r.opts.Version) == "" {
		return fmt.Errorf("%w: release version is not set", ErrPrecondition)
	}
	return nil
}

func (r *Releaser) ensureClean(ctx context.Context) error {
	if r.s.EnvEnabled(EnvSkipGitClean) {
		r.s.Log().Debugf("%s=1, skipping working tree check", EnvSkipGitClean)
		return nil
	}
	out, err := r.s.Run(ctx, shell.Command("git", "status", "--porcelain").AsReadOnly())
	if err != nil {
		return err
	}
	if strings.TrimSpace(out) != "" {
		return fmt.Errorf("%w: working tree is not clean, commit or stash changes", ErrPrecondition)
	}
	return nil
}

func (r *Releaser) ensureReleaseBranch(ctx context.Context) error {
	out, err := r.s.Run(ctx, shell.Command("git", "symbolic-ref", "--short", "HEAD").AsReadOnly())
	if err != nil {
		return fmt.Errorf("determining current branch: %w", err)
	}
	branch := strings.TrimSpace(out)
	if branch == "" {
		return fmt.Errorf("%w: unable to determine current branch", ErrPrecondition)
	}
	r.opts.Branch = branch

	if !strings.HasPrefix(branch, branchPrefix) {
		if !r.opts.AllowMismatch {
			return fmt.Errorf("%w: release commands must run from a %s* branch, current: %s",
				ErrPrecondition, branchPrefix, branch)
		}
		return nil
	}
	branchVersion := strings.TrimPrefix(branch, branchPrefix)
	switch {
	case r.opts.Version == "":
		r.opts.Version = branchVersion
	case r.opts.Version != branchVersion && !r.opts.AllowMismatch:
		return fmt.Errorf("%w: branch (%s) does not match version %s, use --allow-branch-mismatch to override",
			ErrPrecondition, branch, r.opts.Version)
	}
	return nil
}

func (r *Releaser) logPlan(context.Context) error {
	version := r.opts.Version
	if version == "" {
		version = "<unset>"
	}
	r.s.Printf("[PLAN] Java release action=%s, version=%s, deploy=%t\n", r.opts.Action, version, r.opts.Deploy)
	return nil
}

func (r *Releaser) validateBuild(ctx context.Context) error {
	if r.skip("validate build") {
		return nil
	}
	return r.maven(ctx, r.s.Root, "clean", "verify")
}

func (r *Releaser) updateVersionsToRelease(ctx context.Context) error {
	if err := r.requireVersion(); err != nil {
		return err
	}
	if r.skip("update versions to release") {
		return nil
	}
	if err := r.setModuleVersions(ctx, r.opts.Version); err != nil {
		return err
	}
	return r.rewriteParent(func(pom []byte) ([]byte, bool) {
		return ReplaceSnapshotVersion(pom, r.opts.Version)
	}, r.opts.Version)
}

func (r *Releaser) updateChecksums(ctx context.Context) error {
	if r.skip("update checksums") {
		return nil
	}
	copies := r.s.Config.Release.ChecksumCopies
	if len(copies) == 0 {
		r.s.Log().Debug("No checksum copies configured")
		return nil
	}
	built := map[string]bool{}
	for _, c := range copies {
		if c.Module == "" || built[c.Module] {
			continue
		}
		built[c.Module] = true
		if err := r.maven(ctx, r.path(c.Module), "clean", "verify"); err != nil {
			return err
		}
	}
	for _, c := range copies {
		if err := r.copyBaseline(c.From, c.To); err != nil {
			return err
		}
	}
	return nil
}

func (r *Releaser) commitRelease(ctx context.Context) error {
	if err := r.requireVersion(); err != nil {
		return err
	}
	if r.skip("commit release") {
		return nil
	}
	v := r.opts.Version
	for _, args := range [][]string{
		{"add", "."},
		{"commit", "-m", "Release version " + v},
		{"tag", "-a", "v" + v, "-m", "Release " + v},
	} {
		if _, err := r.git(ctx, args...); err != nil {
			return err
		}
	}
	return nil
}

func (r *Releaser) deployRelease(ctx context.Context) error {
	if r.skip("deploy release") {
		return nil
	}
	return r.maven(ctx, r.s.Root, r.deployGoals()...)
}

func (r *Releaser) bumpToNextSnapshot(ctx context.Context) error {
	if err := r.requireVersion(); err != nil {
		return err
	}
	next, err := NextSnapshot(r.opts.Version)
	if err != nil {
		return err
	}
	r.opts.NextVersion = next
	if r.skip("bump to next snapshot") {
		return nil
	}
	if err := r.setModuleVersions(ctx, next); err != nil {
		return err
	}
	return r.rewriteParent(func(pom []byte) ([]byte, bool) {
		return ReplaceVersion(pom, r.opts.Version, next)
	}, next)
}

func (r *Releaser) commitNextIteration(ctx context.Context) error {
	if r.skip("commit next iteration") {
		return nil
	}
	if _, err := r.git(ctx, "add", "."); err != nil {
		return err
	}
	_, err := r.git(ctx, "commit", "-m", "Prepare for next development iteration")
	return err
}

func (r *Releaser) summarizeRelease(context.Context) error {
	version := r.opts.Version
	if version == "" {
		version = "<unknown>"
	}
	branch := r.opts.Branch
	if branch == "" {
		branch = "<release-branch>"
	}
	r.s.Println("==========================================")
	r.s.Printf("Release %s complete!\n", version)
	r.s.Println("==========================================")
	r.s.Println("Next steps:")
	r.s.Printf("1. Push to remote: git push %s %s --tags\n", r.remote, branch)
	r.s.Printf("2. Open a pull request from %s back to %s\n", branch, r.main)
	r.s.Println("3. Release staging repo at: https://s01.oss.sonatype.org/")
	r.s.Printf("4. Create GitHub release for tag v%s\n", version)
	if r.opts.NextVersion != "" {
		r.s.Printf("Next development version: %s\n", r.opts.NextVersion)
	}
	return nil
}

func (r *Releaser) createReleaseTag(ctx context.Context) error {
	if err := r.requireVersion(); err != nil {
		return err
	}
	v := r.opts.Version
	if _, err := r.git(ctx, "tag", "-a", "v"+v, "-m", "Release "+v); err != nil {
		return err
	}
	_, err := r.git(ctx, "push", r.remote, "v"+v)
	return err
}

func (r *Releaser) createReleaseBranch(ctx context.Context) error {
	if err := r.requireVersion(); err != nil {
		return err
	}
	branch := branchPrefix + r.opts.Version
	for _, args := range [][]string{
		{"fetch", r.remote, r.main},
		{"checkout", "-b", branch, r.remote + "/" + r.main},
		{"push", "--set-upstream", r.remote, branch},
	} {
		if _, err := r.git(ctx, args...); err != nil {
			return err
		}
	}
	r.opts.Branch = branch
	r.s.Printf("Created %s from %s/%s\n", branch, r.remote, r.main)
	return nil
}

func (r *Releaser) summarizeStage(context.Context) error {
	branch := r.opts.Branch
	if branch == "" {
		branch = "<release-branch>"
	}
	r.s.Printf("Stage validation completed for %s.\n", branch)
	if r.opts.Deploy {
		r.s.Println("Artifacts deployed to OSSRH staging. Review and release when ready.")
	} else {
		r.s.Println("Run with --deploy to publish staging artifacts once validation passes.")
	}
	return nil
}
