package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/artagon/artagon-common/internal/bootstrap"
)

// createBootstrapCommand creates the bootstrap subcommand
func createBootstrapCommand() *cobra.Command {
	var (
		vars        bootstrap.Vars
		templateDir string
		force       bool
		skipAgents  bool
	)
	bootstrapCmd := &cobra.Command{
		Use:   "bootstrap [flags] [TARGET]",
		Short: "Populate a repository with the standard templates",
		Long: `Copy the standard repository templates into TARGET (default: --root or the
current directory), substituting {{PROJECT_NAME}}, {{OWNER}}, {{REPO}} and
{{DESCRIPTION}}. Existing files are kept unless --force is given; running it
again makes no changes. Agent files are generated when the target has an
agent manifest.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			target := s.Root
			if len(args) == 1 {
				target = args[0]
			}
			if vars.Owner == "" {
				vars.Owner = s.Config.Defaults.Owner
			}
			if vars.Repo == "" {
				vars.Repo = s.Config.Defaults.Repo
			}
			opts := bootstrap.Options{
				Target: target,
				Vars:   vars,
				Force:  force,
				Agents: !skipAgents,
				DryRun: s.DryRun,
				Out:    cmd.OutOrStdout(),
			}
			if templateDir != "" {
				dir, err := filepath.Abs(templateDir)
				if err != nil {
					return err
				}
				opts.Templates = os.DirFS(dir)
			}
			res, err := bootstrap.Run(opts)
			if err != nil {
				return err
			}
			if !res.Changed() {
				s.Println("Repository already up to date.")
			}
			return nil
		},
	}
	bootstrapCmd.Flags().StringVar(&vars.ProjectName, "name", "", "Project name (default: target directory name)")
	bootstrapCmd.Flags().StringVar(&vars.Owner, "owner", "", "GitHub owner (default: defaults.owner)")
	bootstrapCmd.Flags().StringVar(&vars.Repo, "repo", "", "Repository name (default: defaults.repo, then the project name)")
	bootstrapCmd.Flags().StringVar(&vars.Description, "description", "", "One-line project description")
	bootstrapCmd.Flags().StringVar(&templateDir, "templates", "", "Template directory (default: built-in templates)")
	bootstrapCmd.Flags().BoolVar(&force, "force", false, "Overwrite files that differ from the templates")
	bootstrapCmd.Flags().BoolVar(&skipAgents, "no-agents", false, "Do not generate agent files")
	return bootstrapCmd
}
