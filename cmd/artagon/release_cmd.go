package main

import (
	"github.com/spf13/cobra"

	"github.com/artagon/artagon-common/internal/release"
)

// createReleaseCommand creates the release command group
func createReleaseCommand() *cobra.Command {
	releaseCmd := &cobra.Command{
		Use:   "release",
		Short: "Orchestrate Maven releases",
		Long: `Release workflows for multi-module Maven repositories.

Releases run from release-<version> branches. Set ARTAGON_SKIP_GIT_CLEAN=1 to
skip the clean working tree check and ARTAGON_SKIP_RELEASE_STEPS=1 to skip
build, version, commit and deploy steps.`,
	}

	var runOpts release.Options
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Execute the full release pipeline for the current branch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runOpts.Action = release.ActionRun
			return executeRelease(cmd, &runOpts)
		},
	}
	runCmd.Flags().StringVar(&runOpts.Version, "version", "", "Release version (default: inferred from the release-* branch)")
	runCmd.Flags().BoolVar(&runOpts.AllowMismatch, "allow-branch-mismatch", false,
		"Allow the release version to differ from the release-* branch name")

	tagCmd := &cobra.Command{
		Use:   "tag VERSION",
		Short: "Create and push a release tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeRelease(cmd, &release.Options{Action: release.ActionTag, Version: args[0]})
		},
	}

	branchCmd := &cobra.Command{
		Use:   "branch",
		Short: "Operations on release branches",
	}
	cutCmd := &cobra.Command{
		Use:   "cut VERSION",
		Short: "Create release-VERSION from the main branch and push it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeRelease(cmd, &release.Options{Action: release.ActionBranchCut, Version: args[0]})
		},
	}
	var stageOpts release.Options
	stageCmd := &cobra.Command{
		Use:   "stage",
		Short: "Validate a release branch and optionally deploy to staging",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stageOpts.Action = release.ActionBranchStage
			return executeRelease(cmd, &stageOpts)
		},
	}
	stageCmd.Flags().BoolVar(&stageOpts.Deploy, "deploy", false, "Deploy artifacts to staging after validation")
	stageCmd.Flags().BoolVar(&stageOpts.AllowMismatch, "allow-branch-mismatch", false,
		"Allow staging from a branch not named release-*")
	branchCmd.AddCommand(cutCmd, stageCmd)

	releaseCmd.AddCommand(runCmd, tagCmd, branchCmd)
	return releaseCmd
}

// createSnapshotCommand creates the snapshot command group
func createSnapshotCommand() *cobra.Command {
	snapshotCmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Publish SNAPSHOT builds",
	}
	snapshotCmd.AddCommand(&cobra.Command{
		Use:   "publish",
		Short: "Deploy the current -SNAPSHOT version with the configured profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			return release.New(s, &release.Options{}).PublishSnapshot(cmd.Context())
		},
	})
	return snapshotCmd
}

func executeRelease(cmd *cobra.Command, opts *release.Options) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	return release.New(s, opts).Run(cmd.Context())
}
