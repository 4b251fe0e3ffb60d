package github

import (
	"context"
	"fmt"
	"strings"

	"github.com/artagon/artagon-common/internal/utils/shell"
)

// IssueOptions describe a `gh issue create` call.
type IssueOptions struct {
	Repo      string // OWNER/NAME; empty uses the current repository
	Title     string
	Body      string
	Labels    []string
	Assignees []string
}

// PullRequestOptions describe a `gh pr create` call.
type PullRequestOptions struct {
	Repo   string
	Title  string
	Body   string
	Base   string
	Head   string
	Labels []string
	Draft  bool
}

// CreateIssue opens an issue and returns its URL.
func (c *Client) CreateIssue(ctx context.Context, opts IssueOptions) (string, error) {
	if strings.TrimSpace(opts.Title) == "" {
		return "", fmt.Errorf("issue title is required")
	}
	args := []string{"issue", "create", "--title", opts.Title, "--body", opts.Body}
	args = appendRepo(args, opts.Repo)
	for _, l := range opts.Labels {
		args = append(args, "--label", l)
	}
	for _, a := range opts.Assignees {
		args = append(args, "--assignee", a)
	}
	out, err := c.Exec.Exec(ctx, shell.Command("gh", args...))
	if err != nil {
		return "", fmt.Errorf("creating issue: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// CreatePullRequest opens a pull request and returns its URL.
func (c *Client) CreatePullRequest(ctx context.Context, opts PullRequestOptions) (string, error) {
	if strings.TrimSpace(opts.Title) == "" {
		return "", fmt.Errorf("pull request title is required")
	}
	args := []string{"pr", "create", "--title", opts.Title, "--body", opts.Body}
	args = appendRepo(args, opts.Repo)
	if opts.Base != "" {
		args = append(args, "--base", opts.Base)
	}
	if opts.Head != "" {
		args = append(args, "--head", opts.Head)
	}
	for _, l := range opts.Labels {
		args = append(args, "--label", l)
	}
	if opts.Draft {
		args = append(args, "--draft")
	}
	out, err := c.Exec.Exec(ctx, shell.Command("gh", args...))
	if err != nil {
		return "", fmt.Errorf("creating pull request: %w", err)
	}
	return strings.TrimSpace(out), nil
}

func appendRepo(args []string, repo string) []string {
	if repo == "" {
		return args
	}
	return append(args, "--repo", repo)
}
