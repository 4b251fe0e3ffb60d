package github

import (
	"context"
	"fmt"
	"strings"

	"github.com/artagon/artagon-common/internal/utils/shell"
)

// Client runs the GitHub CLI.
type Client struct {
	Exec shell.Executor
}

// API calls `gh api` with the given method and path. A non-empty body is
// sent as JSON on stdin. GET requests are read-only.
func (c *Client) API(ctx context.Context, method, path string, body []byte) (string, error) {
	args := []string{"api", "-X", method, "-H", "Accept: application/vnd.github+json", path}
	if len(body) > 0 {
		args = append(args, "--input", "-")
	}
	cmd := shell.Command("gh", args...)
	if len(body) > 0 {
		cmd = cmd.WithInput(string(body))
	}
	if method == "GET" {
		cmd = cmd.AsReadOnly()
	}
	return c.Exec.Exec(ctx, cmd)
}

// CurrentUser returns the login of the authenticated gh user.
func (c *Client) CurrentUser(ctx context.Context) (string, error) {
	out, err := c.Exec.Exec(ctx, shell.Command("gh", "api", "user", "--jq", ".login").AsReadOnly())
	if err != nil {
		return "", fmt.Errorf("determining GitHub user: %w", err)
	}
	login := strings.TrimSpace(out)
	if login == "" {
		return "", fmt.Errorf("determining GitHub user: empty login")
	}
	return login, nil
}

// ResolveOwner picks the repository owner: the flag, then the configured
// owner, then the authenticated user.
func (c *Client) ResolveOwner(ctx context.Context, candidates ...string) (string, error) {
	for _, owner := range candidates {
		if owner = strings.TrimSpace(owner); owner != "" {
			return owner, nil
		}
	}
	return c.CurrentUser(ctx)
}

// SplitRepo accepts "repo" or "owner/repo" and returns owner and name,
// using defaultOwner for the short form.
func SplitRepo(repo, defaultOwner string) (string, string, error) {
	repo = strings.TrimSpace(repo)
	owner, name, found := strings.Cut(repo, "/")
	if !found {
		owner, name = defaultOwner, repo
	}
	if owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", fmt.Errorf("invalid repository %q: use NAME or OWNER/NAME", repo)
	}
	return owner, name, nil
}
