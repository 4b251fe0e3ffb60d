package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/artagon/artagon-common/internal/github"
	"github.com/artagon/artagon-common/internal/session"
	"github.com/artagon/artagon-common/internal/utils/general/slice"
	"github.com/artagon/artagon-common/internal/utils/system"
)

// Branch protection flags
type protectFlags struct {
	repos             string
	owner             string
	branch            string
	team              string
	reviews           int
	checks            string
	enforceAdmins     bool
	dismissStale      bool
	requireCodeOwners bool
	force             bool
}

// createGitHubCommand creates the gh command group
func createGitHubCommand() *cobra.Command {
	ghCmd := &cobra.Command{
		Use:   "gh",
		Short: "GitHub automation through the gh CLI",
	}
	ghCmd.AddCommand(createProtectCommand("protect", "Apply branch protection to repositories"))
	ghCmd.AddCommand(createProtectCommand("unprotect", "Remove branch protection from repositories"))
	ghCmd.AddCommand(createProtectCommand("status", "Show branch protection of repositories"))
	ghCmd.AddCommand(createIssueCommand())
	ghCmd.AddCommand(createPullRequestCommand())
	return ghCmd
}

func createProtectCommand(action, short string) *cobra.Command {
	var f protectFlags
	cmd := &cobra.Command{
		Use:   action + " [REPO...]",
		Short: short,
		Long: short + `.

Repositories come from the arguments, --repos, or github.repos in the
configuration, as NAME or OWNER/NAME. Every repository is processed even when
an earlier one fails; the command exits 1 when any failed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeProtect(cmd, action, &f, args)
		},
	}
	cmd.Flags().StringVar(&f.repos, "repos", "", "Comma-separated repositories")
	cmd.Flags().StringVar(&f.owner, "owner", "", "Repository owner (default: github.owner, then the gh user)")
	cmd.Flags().StringVar(&f.branch, "branch", "", "Branch name (default: github.branch)")
	if action == "protect" {
		cmd.Flags().StringVar(&f.team, "team", "", "Team slug allowed to push (default: github.team)")
		cmd.Flags().IntVar(&f.reviews, "reviews", 0, "Required approving reviews (default: github.requiredReviews)")
		cmd.Flags().StringVar(&f.checks, "checks", "", "Comma-separated required status checks")
		cmd.Flags().BoolVar(&f.enforceAdmins, "enforce-admins", true, "Apply rules to administrators")
		cmd.Flags().BoolVar(&f.dismissStale, "dismiss-stale", true, "Dismiss approvals when new commits are pushed")
		cmd.Flags().BoolVar(&f.requireCodeOwners, "require-code-owners", false, "Require code owner review")
	}
	if action != "status" {
		cmd.Flags().BoolVarP(&f.force, "force", "f", false, "Do not ask for confirmation")
	}
	return cmd
}

func protectionOptions(cmd *cobra.Command, s *session.Session, f *protectFlags) github.ProtectionOptions {
	gc := s.Config.GitHub
	opts := github.ProtectionOptions{
		Branch:          gc.Branch,
		Team:            gc.Team,
		RequiredReviews: gc.RequiredReviews,
		StatusChecks:    gc.StatusChecks,
		EnforceAdmins:   gc.EnforceAdmins,
		DismissStale:    true,
	}
	flags := cmd.Flags()
	if flags.Changed("branch") {
		opts.Branch = f.branch
	}
	if flags.Changed("team") {
		opts.Team = f.team
	}
	if flags.Changed("reviews") {
		opts.RequiredReviews = f.reviews
	}
	if flags.Changed("checks") {
		opts.StatusChecks = slice.SplitList(f.checks)
	}
	if flags.Changed("enforce-admins") {
		opts.EnforceAdmins = f.enforceAdmins
	}
	if flags.Changed("dismiss-stale") {
		opts.DismissStale = f.dismissStale
	}
	if flags.Changed("require-code-owners") {
		opts.RequireCodeOwners = f.requireCodeOwners
	}
	if opts.Branch == "" {
		opts.Branch = "main"
	}
	return opts
}

// executeProtect runs protect, unprotect or status across repositories
func executeProtect(cmd *cobra.Command, action string, f *protectFlags, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	if err := system.RequireCommands("gh"); err != nil {
		return err
	}

	repos := slice.Unique(append(append([]string{}, args...), slice.SplitList(f.repos)...))
	if len(repos) == 0 {
		repos = s.Config.GitHub.Repos
	}
	if len(repos) == 0 {
		return fmt.Errorf("no repositories given: pass REPO arguments, --repos, or set github.repos")
	}

	client := &github.Client{Exec: s.Executor()}
	opts := protectionOptions(cmd, s, f)
	opts.Owner, err = client.ResolveOwner(cmd.Context(), f.owner, s.Config.GitHub.Owner, s.Config.Defaults.Owner)
	if err != nil {
		return err
	}

	if action != "status" && !f.force && !s.DryRun {
		ok, err := github.Confirm(cmd.InOrStdin(), cmd.ErrOrStderr(),
			fmt.Sprintf("%s branch %q on %d repositories owned by %s?", action, opts.Branch, len(repos), opts.Owner))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(cmd.ErrOrStderr(), "Aborted.")
			return nil
		}
	}

	p := &github.Protector{Client: client, Opts: opts}
	var summary *github.Summary
	switch action {
	case "protect":
		summary = p.Protect(cmd.Context(), repos)
	case "unprotect":
		summary = p.Unprotect(cmd.Context(), repos)
	default:
		summary = p.Status(cmd.Context(), repos)
	}
	summary.Render(s.Out)
	return summary.Err()
}

func createIssueCommand() *cobra.Command {
	var opts github.IssueOptions
	var labels, assignees string
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Create an issue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			if err := system.RequireCommands("gh"); err != nil {
				return err
			}
			opts.Labels = slice.SplitList(labels)
			opts.Assignees = slice.SplitList(assignees)
			if opts.Body, err = readBody(opts.Body); err != nil {
				return err
			}
			url, err := (&github.Client{Exec: s.Executor()}).CreateIssue(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if url != "" {
				s.Println(url)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.Repo, "repo", "", "Target repository OWNER/NAME (default: current)")
	cmd.Flags().StringVar(&opts.Title, "title", "", "Issue title")
	cmd.Flags().StringVar(&opts.Body, "body", "", "Issue body, or @FILE to read it from a file")
	cmd.Flags().StringVar(&labels, "labels", "", "Comma-separated labels")
	cmd.Flags().StringVar(&assignees, "assignees", "", "Comma-separated assignees")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func createPullRequestCommand() *cobra.Command {
	var opts github.PullRequestOptions
	var labels string
	cmd := &cobra.Command{
		Use:   "pr",
		Short: "Create a pull request",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			if err := system.RequireCommands("gh"); err != nil {
				return err
			}
			opts.Labels = slice.SplitList(labels)
			if opts.Body, err = readBody(opts.Body); err != nil {
				return err
			}
			url, err := (&github.Client{Exec: s.Executor()}).CreatePullRequest(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if url != "" {
				s.Println(url)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.Repo, "repo", "", "Target repository OWNER/NAME (default: current)")
	cmd.Flags().StringVar(&opts.Title, "title", "", "Pull request title")
	cmd.Flags().StringVar(&opts.Body, "body", "", "Pull request body, or @FILE to read it from a file")
	cmd.Flags().StringVar(&opts.Base, "base", "", "Base branch")
	cmd.Flags().StringVar(&opts.Head, "head", "", "Head branch")
	cmd.Flags().StringVar(&labels, "labels", "", "Comma-separated labels")
	cmd.Flags().BoolVar(&opts.Draft, "draft", false, "Open as draft")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

// readBody expands @FILE bodies.
func readBody(body string) (string, error) {
	if len(body) < 2 || body[0] != '@' {
		return body, nil
	}
	data, err := os.ReadFile(body[1:])
	if err != nil {
		return "", fmt.Errorf("reading body file: %w", err)
	}
	return string(data), nil
}
