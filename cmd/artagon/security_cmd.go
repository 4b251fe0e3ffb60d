package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/artagon/artagon-common/internal/config"
	"github.com/artagon/artagon-common/internal/security"
	"github.com/artagon/artagon-common/internal/session"
	"github.com/artagon/artagon-common/internal/utils/general/slice"
	"github.com/artagon/artagon-common/internal/utils/network"
	"github.com/artagon/artagon-common/internal/utils/system"
)

// Baseline command flags
var (
	projectRoot    string
	securityDir    string
	checksumFormat string
	scopesFlag     string
	transitiveFlag string
	mavenCmd       string
	repositoryURL  string
	localRepo      string
	keyFlagsFile   string
	keyringFile    string
	baselineName   string
	reportDir      string
	noProgress     bool

	baselineUpdate bool
	baselineVerify bool

	diffFormat string
	prettyJSON bool = true
)

// createSecurityCommand creates the security command group
func createSecurityCommand() *cobra.Command {
	securityCmd := &cobra.Command{
		Use:   "security",
		Short: "Maintain dependency-security baselines",
		Long: `Resolve the Maven dependency tree, fetch every artifact, and record its
SHA-256 checksum and PGP signer fingerprint in committed baseline files.

  <name>-checksums.csv|.properties   one row per artifact
  <name>-pgp-trusted-keys.list       groupId:artifactId = 0x<FPR> | noKey

Each file gets .sha256 and .sha512 companions. Verification fails when the
committed files differ in any byte from the freshly computed content.`,
	}

	flags := securityCmd.PersistentFlags()
	flags.StringVar(&projectRoot, "project-root", "", "Maven project root (default: security.projectRoot)")
	flags.StringVar(&securityDir, "security-dir", "", "Baseline directory (default: <project-root>/security)")
	flags.StringVar(&checksumFormat, "checksum-format", "", "Checksum file format: csv or properties")
	flags.StringVar(&scopesFlag, "scopes", "", "Comma-separated dependency scopes (default: compile,runtime)")
	flags.StringVar(&transitiveFlag, "transitive", "", "Include transitive dependencies: true or false")
	flags.StringVar(&mavenCmd, "maven-cmd", "", "Maven command (default: ./mvnw when present, else mvn)")
	flags.StringVar(&repositoryURL, "repository-url", "", "Remote repository for .asc signatures")
	flags.StringVar(&localRepo, "local-repo", "", "Maven local repository (default: ~/.m2/repository)")
	flags.StringVar(&keyFlagsFile, "key-flags", "", "File of groupId:artifactId=flag lines appended to trust entries")
	flags.StringVar(&keyringFile, "keyring", "", "Public keyring used to expand key IDs to full fingerprints")
	flags.StringVar(&baselineName, "baseline-name", "", "Baseline file prefix (default: pom artifactId)")
	flags.StringVar(&reportDir, "report-dir", "", "Directory for the skipped/unsigned dependency report")
	flags.BoolVar(&noProgress, "no-progress", false, "Disable the progress bar")

	securityCmd.AddCommand(createBaselineCommand())
	securityCmd.AddCommand(createSecurityModeCommand(security.ModeUpdate,
		"Regenerate the baseline files"))
	securityCmd.AddCommand(createSecurityModeCommand(security.ModeVerify,
		"Verify the committed baseline files against the dependency tree"))
	securityCmd.AddCommand(createSecurityDiffCommand())
	return securityCmd
}

func createBaselineCommand() *cobra.Command {
	baselineCmd := &cobra.Command{
		Use:   "baseline --update|--verify",
		Short: "Update or verify the dependency-security baseline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := security.ModeVerify
			if baselineUpdate {
				mode = security.ModeUpdate
			}
			return executeSecurity(cmd, mode)
		},
	}
	baselineCmd.Flags().BoolVar(&baselineUpdate, "update", false, "Regenerate the baseline files")
	baselineCmd.Flags().BoolVar(&baselineVerify, "verify", false, "Verify the baseline files")
	baselineCmd.MarkFlagsMutuallyExclusive("update", "verify")
	baselineCmd.MarkFlagsOneRequired("update", "verify")
	return baselineCmd
}

func createSecurityModeCommand(mode security.Mode, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(mode),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeSecurity(cmd, mode)
		},
	}
}

func createSecurityDiffCommand() *cobra.Command {
	diffCmd := &cobra.Command{
		Use:   "diff",
		Short: "Show row-level drift between the committed and computed baseline",
		Args:  cobra.NoArgs,
		RunE:  executeSecurityDiff,
	}
	diffCmd.Flags().StringVar(&diffFormat, "format", "text", "Output format: text or json")
	diffCmd.Flags().BoolVar(&prettyJSON, "pretty", true, "Pretty-print JSON output (only for --format json)")
	return diffCmd
}

// securityOptions merges configuration and command-line flags. Flags win.
func securityOptions(cmd *cobra.Command, s *session.Session) (security.Options, error) {
	cfg := s.Config.Security
	flags := cmd.Flags()
	flags.Visit(func(f *pflag.Flag) {
		s.Log().Debugf("flag override: --%s=%s", f.Name, f.Value.String())
	})

	if flags.Changed("project-root") {
		cfg.ProjectRoot = projectRoot
	}
	if flags.Changed("security-dir") {
		cfg.SecurityDir = securityDir
	}
	if flags.Changed("checksum-format") {
		cfg.ChecksumFormat = checksumFormat
	}
	if flags.Changed("scopes") {
		cfg.Scopes = slice.SplitList(scopesFlag)
	}
	if flags.Changed("transitive") {
		switch strings.ToLower(strings.TrimSpace(transitiveFlag)) {
		case "true":
			cfg.Transitive = true
		case "false":
			cfg.Transitive = false
		default:
			return security.Options{}, fmt.Errorf("%w: --transitive must be true or false, got %q",
				security.ErrConfig, transitiveFlag)
		}
	}
	if flags.Changed("maven-cmd") {
		cfg.MavenCmd = mavenCmd
	}
	if flags.Changed("repository-url") {
		cfg.RepositoryURL = repositoryURL
	}
	if flags.Changed("local-repo") {
		cfg.LocalRepository = localRepo
	}
	if flags.Changed("key-flags") {
		cfg.KeyFlagsFile = keyFlagsFile
	}
	if flags.Changed("keyring") {
		cfg.Keyring = keyringFile
	}
	if flags.Changed("baseline-name") {
		cfg.BaselineName = baselineName
	}
	if flags.Changed("report-dir") {
		cfg.ReportDir = reportDir
	}

	// Resolve paths through helpers bound to the merged settings.
	merged := *s.Config
	merged.Security = cfg
	h := config.NewConfigHelpers(&merged, s.Root)

	format, err := security.ParseFormat(cfg.ChecksumFormat)
	if err != nil {
		return security.Options{}, err
	}
	root, err := h.ProjectRoot()
	if err != nil {
		return security.Options{}, err
	}
	dir, err := h.SecurityDir()
	if err != nil {
		return security.Options{}, err
	}
	repo, err := h.LocalRepository()
	if err != nil {
		return security.Options{}, err
	}
	flagsPath, err := h.OptionalPath(cfg.KeyFlagsFile)
	if err != nil {
		return security.Options{}, err
	}
	keyring, err := h.OptionalPath(cfg.Keyring)
	if err != nil {
		return security.Options{}, err
	}
	report, err := h.OptionalPath(cfg.ReportDir)
	if err != nil {
		return security.Options{}, err
	}

	return security.Options{
		ProjectRoot:    root,
		SecurityDir:    dir,
		Name:           cfg.BaselineName,
		Format:         format,
		Scopes:         cfg.Scopes,
		Transitive:     cfg.Transitive,
		MavenCmd:       system.ResolveMavenCommand(root, cfg.MavenCmd),
		RepositoryURL:  strings.TrimRight(cfg.RepositoryURL, "/"),
		LocalRepo:      repo,
		KeyFlagsFile:   flagsPath,
		KeyringFile:    keyring,
		ReportDir:      report,
		ShowProgress:   !noProgress && !h.IsDebugMode(), // debug lines would tear the bar
		ProgressWriter: cmd.ErrOrStderr(),
	}, nil
}

func newSecurityPipeline(cmd *cobra.Command) (*session.Session, *security.Pipeline, error) {
	s, err := newSession(cmd)
	if err != nil {
		return nil, nil, err
	}
	opts, err := securityOptions(cmd, s)
	if err != nil {
		return nil, nil, err
	}
	p, err := security.NewPipeline(opts, s.Executor(), network.NewSecureHTTPClient(network.DefaultTimeout))
	if err != nil {
		return nil, nil, err
	}
	return s, p, nil
}

// executeSecurity runs an update or verify pass
func executeSecurity(cmd *cobra.Command, mode security.Mode) error {
	s, p, err := newSecurityPipeline(cmd)
	if err != nil {
		return err
	}
	log := s.Log()
	if mode == security.ModeUpdate && s.DryRun {
		diff, err := p.Diff(cmd.Context())
		if err != nil {
			return err
		}
		if err := diff.RenderText(s.Out); err != nil {
			return err
		}
		s.Println("[dry-run] baseline files not written")
		return nil
	}
	log.Infof("Running dependency-security %s for %s", mode, p.Name())

	result, err := p.Run(cmd.Context(), mode)
	if result != nil {
		printSecurityResult(s, result)
	}
	if err != nil {
		var mismatch *security.MismatchError
		if errors.As(err, &mismatch) {
			for _, stale := range mismatch.Stale {
				s.Printf("✗ %s: %s\n", filepath.Base(stale.Path), stale.Reason)
			}
		}
		return err
	}
	return nil
}

func printSecurityResult(s *session.Session, r *security.Result) {
	s.Printf("Resolved %d dependencies, recorded %d", r.Resolved, r.Recorded)
	if len(r.Skipped) > 0 {
		s.Printf(", skipped %d", len(r.Skipped))
	}
	if len(r.Unsigned) > 0 {
		s.Printf(", %d without signing key", len(r.Unsigned))
	}
	s.Println()
	for _, sk := range r.Skipped {
		s.Printf("  skipped %s: %s\n", sk.Coordinate, sk.Reason)
	}
	if r.Mode == security.ModeUpdate {
		for _, f := range r.Files {
			s.Printf("✓ wrote %s\n", f)
		}
	}
	if r.ReportPath != "" {
		s.Printf("Report: %s\n", r.ReportPath)
	}
}

// executeSecurityDiff prints the drift report
func executeSecurityDiff(cmd *cobra.Command, args []string) error {
	_, p, err := newSecurityPipeline(cmd)
	if err != nil {
		return err
	}
	result, err := p.Diff(cmd.Context())
	if err != nil {
		return err
	}

	switch strings.ToLower(diffFormat) {
	case "json":
		return writeJSON(cmd, result, prettyJSON)
	case "text":
		return result.RenderText(cmd.OutOrStdout())
	default:
		return fmt.Errorf("invalid --format %q (expected text|json)", diffFormat)
	}
}

func writeJSON(cmd *cobra.Command, v any, pretty bool) error {
	out := cmd.OutOrStdout()

	var (
		b   []byte
		err error
	)
	if pretty {
		b, err = json.MarshalIndent(v, "", "  ")
	} else {
		b, err = json.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	_, _ = fmt.Fprintln(out, string(b))
	return nil
}
