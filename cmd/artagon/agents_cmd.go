package main

import (
	"github.com/spf13/cobra"

	"github.com/artagon/artagon-common/internal/agents"
)

// Agent generation flags
var (
	agentsManifest string
	agentsWrite    bool
	agentsCheck    bool
)

// createAgentsCommand creates the agents subcommand
func createAgentsCommand() *cobra.Command {
	agentsCmd := &cobra.Command{
		Use:   "agents [--write|--check]",
		Short: "Generate agent configuration files from the shared manifest",
		Long: `Render every agent listed in the manifest: front matter, heading, the
shared snippets and the agent's own sections.

Without flags the content is printed. --write writes the files; --check
reports missing or out-of-date files and exits 1 when there are any.`,
		Args: cobra.NoArgs,
		RunE: executeAgents,
	}
	agentsCmd.Flags().StringVar(&agentsManifest, "manifest", "",
		"Manifest path (default: agents.manifest, "+agents.DefaultManifest+")")
	agentsCmd.Flags().BoolVar(&agentsWrite, "write", false, "Write generated content to disk")
	agentsCmd.Flags().BoolVar(&agentsCheck, "check", false, "Verify existing files match generated output")
	agentsCmd.MarkFlagsMutuallyExclusive("write", "check")
	return agentsCmd
}

// executeAgents handles the agents command logic
func executeAgents(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	manifest := s.Config.Agents.Manifest
	if cmd.Flags().Changed("manifest") {
		manifest = agentsManifest
	}
	mode := agents.ModePrint
	switch {
	case agentsWrite:
		mode = agents.ModeWrite
	case agentsCheck:
		mode = agents.ModeCheck
	}
	_, err = agents.Generate(agents.Options{
		Root:     s.Root,
		Manifest: manifest,
		Mode:     mode,
		DryRun:   s.DryRun,
		Out:      cmd.OutOrStdout(),
		ErrOut:   cmd.ErrOrStderr(),
	})
	return err
}
