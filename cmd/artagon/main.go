package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/artagon/artagon-common/internal/config"
	"github.com/artagon/artagon-common/internal/session"
	"github.com/artagon/artagon-common/internal/utils/logger"
)

// Set at build time with -ldflags "-X main.version=..."
var version = "dev"

// Global flags
var (
	configFile string
	logLevel   string
	verbose    bool
	dryRun     bool
	rootDir    string
	runID      string
)

func main() {
	if _, err := logger.Init("", os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	rootCmd := createRootCommand()
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		logger.Logger().Errorf("%v", err)
		os.Exit(1)
	}
}

// createRootCommand builds the command tree
func createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "artagon",
		Short: "Shared tooling for Artagon JVM/Maven repositories",
		Long: `artagon bootstraps repositories, maintains dependency-security baselines,
manages GitHub branch protection and orchestrates Maven releases.

Settings are read from .artagon.yml in the repository root; command-line
flags override them.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"Configuration file (default: <root>/"+config.FileName+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Verbose output (same as --log-level debug)")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false,
		"Print mutating commands instead of running them")
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", "",
		"Repository root (default: current directory)")

	rootCmd.AddCommand(createSecurityCommand())
	rootCmd.AddCommand(createReleaseCommand())
	rootCmd.AddCommand(createSnapshotCommand())
	rootCmd.AddCommand(createGitHubCommand())
	rootCmd.AddCommand(createAgentsCommand())
	rootCmd.AddCommand(createBootstrapCommand())
	rootCmd.AddCommand(createConfigCommand())

	attachLoggingHooks(rootCmd)
	return rootCmd
}

// resolveRequestedLogLevel returns the level asked for on the command line:
// --log-level wins, then --verbose. Empty means use the configuration.
func resolveRequestedLogLevel(cmd *cobra.Command) string {
	if logLevel != "" {
		return logLevel
	}
	if cmd == nil {
		return ""
	}
	if v, err := cmd.Flags().GetBool("verbose"); err == nil && v {
		return "debug"
	}
	return ""
}

// attachLoggingHooks installs the logging setup on every command. Cobra runs
// only the nearest PersistentPreRunE, so each command gets its own.
func attachLoggingHooks(cmd *cobra.Command) {
	existing := cmd.PersistentPreRunE
	cmd.PersistentPreRunE = func(c *cobra.Command, args []string) error {
		if err := setupLogging(c); err != nil {
			return err
		}
		if existing != nil {
			return existing(c, args)
		}
		return nil
	}
	for _, sub := range cmd.Commands() {
		attachLoggingHooks(sub)
	}
}

func setupLogging(cmd *cobra.Command) error {
	level := resolveRequestedLogLevel(cmd)
	if level == "" {
		root := rootOrWorkingDir()
		if cfg, err := config.LoadForRoot(root, configFile); err == nil {
			level = config.NewConfigHelpers(cfg, root).LogLevel()
		}
	}
	if err := logger.SetLevel(level); err != nil {
		return err
	}
	if runID == "" {
		runID = uuid.NewString()
		logger.With("run", runID)
	}
	logger.Logger().Debugf("log level %s", logger.Level())
	return nil
}

func rootOrWorkingDir() string {
	if rootDir != "" {
		return rootDir
	}
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}

// newSession opens the execution context for a command.
func newSession(cmd *cobra.Command) (*session.Session, error) {
	return session.New(session.Options{
		ID:         runID,
		Root:       rootDir,
		ConfigFile: configFile,
		DryRun:     dryRun,
		Out:        cmd.OutOrStdout(),
	})
}
