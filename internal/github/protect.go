package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/artagon/artagon-common/internal/utils/logger"
)

// ErrProtectFailed is returned when at least one repository failed.
var ErrProtectFailed = errors.New("branch protection failed")

// ProtectionOptions are the branch rules applied to every repository.
type ProtectionOptions struct {
	Owner             string
	Branch            string
	Team              string // team slug allowed to push; empty leaves pushes unrestricted
	RequiredReviews   int
	StatusChecks      []string
	EnforceAdmins     bool
	DismissStale      bool
	RequireCodeOwners bool
}

type statusChecks struct {
	Strict   bool     `json:"strict"`
	Contexts []string `json:"contexts"`
}

type reviewRules struct {
	DismissStaleReviews          bool `json:"dismiss_stale_reviews"`
	RequireCodeOwnerReviews      bool `json:"require_code_owner_reviews"`
	RequiredApprovingReviewCount int  `json:"required_approving_review_count"`
}

type pushRestrictions struct {
	Users []string `json:"users"`
	Teams []string `json:"teams"`
}

type protectionPayload struct {
	RequiredStatusChecks           *statusChecks     `json:"required_status_checks"`
	EnforceAdmins                  bool              `json:"enforce_admins"`
	RequiredPullRequestReviews     *reviewRules      `json:"required_pull_request_reviews"`
	Restrictions                   *pushRestrictions `json:"restrictions"`
	RequiredLinearHistory          bool              `json:"required_linear_history"`
	AllowForcePushes               bool              `json:"allow_force_pushes"`
	AllowDeletions                 bool              `json:"allow_deletions"`
	RequiredConversationResolution bool              `json:"required_conversation_resolution"`
}

// Payload renders the PUT body for the branch protection endpoint.
func (o ProtectionOptions) Payload() ([]byte, error) {
	p := protectionPayload{
		EnforceAdmins: o.EnforceAdmins,
		RequiredPullRequestReviews: &reviewRules{
			DismissStaleReviews:          o.DismissStale,
			RequireCodeOwnerReviews:      o.RequireCodeOwners,
			RequiredApprovingReviewCount: o.RequiredReviews,
		},
		RequiredLinearHistory:          true,
		RequiredConversationResolution: true,
	}
	if len(o.StatusChecks) > 0 {
		p.RequiredStatusChecks = &statusChecks{Strict: true, Contexts: o.StatusChecks}
	}
	if o.Team != "" {
		p.Restrictions = &pushRestrictions{Users: []string{}, Teams: []string{o.Team}}
	}
	return json.Marshal(p)
}

// RepoResult is the outcome for one repository.
type RepoResult struct {
	Repo   string
	Err    error
	Detail string
}

// Summary aggregates per-repository outcomes.
type Summary struct {
	Action  string
	Results []RepoResult
}

// Failed returns the repositories that failed.
func (s *Summary) Failed() []RepoResult {
	var failed []RepoResult
	for _, r := range s.Results {
		if r.Err != nil {
			failed = append(failed, r)
		}
	}
	return failed
}

// Err is ErrProtectFailed naming the failed repositories, or nil.
func (s *Summary) Err() error {
	failed := s.Failed()
	if len(failed) == 0 {
		return nil
	}
	names := make([]string, len(failed))
	for i, r := range failed {
		names[i] = r.Repo
	}
	return fmt.Errorf("%w: %d of %d repositories failed: %s",
		ErrProtectFailed, len(failed), len(s.Results), strings.Join(names, ", "))
}

// Render prints one line per repository and a closing tally.
func (s *Summary) Render(w io.Writer) {
	fmt.Fprintf(w, "%s summary:\n", s.Action)
	for _, r := range s.Results {
		switch {
		case r.Err != nil:
			fmt.Fprintf(w, "  ✗ %s: %v\n", r.Repo, r.Err)
		case r.Detail != "":
			fmt.Fprintf(w, "  ✓ %s: %s\n", r.Repo, r.Detail)
		default:
			fmt.Fprintf(w, "  ✓ %s\n", r.Repo)
		}
	}
	failed := len(s.Failed())
	fmt.Fprintf(w, "Succeeded: %d, Failed: %d\n", len(s.Results)-failed, failed)
}

// Protector applies branch protection across repositories. Each repository
// is handled independently; a failure does not stop the others.
type Protector struct {
	Client *Client
	Opts   ProtectionOptions
}

func (p *Protector) endpoint(repo string) (string, string, error) {
	owner, name, err := SplitRepo(repo, p.Opts.Owner)
	if err != nil {
		return "", "", err
	}
	full := owner + "/" + name
	return full, fmt.Sprintf("repos/%s/%s/branches/%s/protection", owner, name, url.PathEscape(p.Opts.Branch)), nil
}

// Protect PUTs the protection rules on every repository.
func (p *Protector) Protect(ctx context.Context, repos []string) *Summary {
	payload, payloadErr := p.Opts.Payload()
	return p.each(ctx, "Protect "+p.Opts.Branch, repos, func(path string) (string, error) {
		if payloadErr != nil {
			return "", payloadErr
		}
		_, err := p.Client.API(ctx, "PUT", path, payload)
		return "", err
	})
}

// Unprotect removes branch protection from every repository.
func (p *Protector) Unprotect(ctx context.Context, repos []string) *Summary {
	return p.each(ctx, "Unprotect "+p.Opts.Branch, repos, func(path string) (string, error) {
		_, err := p.Client.API(ctx, "DELETE", path, nil)
		if err != nil {
			if notProtected(err) {
				return "not protected", nil
			}
			return "", err
		}
		return "", nil
	})
}

// Status summarises the current protection of every repository.
func (p *Protector) Status(ctx context.Context, repos []string) *Summary {
	return p.each(ctx, "Protection status of "+p.Opts.Branch, repos, func(path string) (string, error) {
		out, err := p.Client.API(ctx, "GET", path, nil)
		if err != nil {
			if notProtected(err) {
				return "not protected", nil
			}
			return "", err
		}
		return describeProtection([]byte(out))
	})
}

func (p *Protector) each(ctx context.Context, action string, repos []string, fn func(path string) (string, error)) *Summary {
	log := logger.Logger()
	summary := &Summary{Action: action}
	for _, repo := range repos {
		if ctx.Err() != nil {
			summary.Results = append(summary.Results, RepoResult{Repo: repo, Err: ctx.Err()})
			continue
		}
		full, path, err := p.endpoint(repo)
		if err != nil {
			log.Errorf("%s: %v", repo, err)
			summary.Results = append(summary.Results, RepoResult{Repo: repo, Err: err})
			continue
		}
		detail, err := fn(path)
		if err != nil {
			log.Errorf("%s: %v", full, err)
		} else {
			log.Infof("%s: %s ok", full, action)
		}
		summary.Results = append(summary.Results, RepoResult{Repo: full, Err: err, Detail: detail})
	}
	return summary
}

// notProtected reports whether gh failed because the branch has no
// protection rules.
func notProtected(err error) bool {
	return strings.Contains(err.Error(), "Branch not protected")
}

type protectionStatus struct {
	EnforceAdmins struct {
		Enabled bool `json:"enabled"`
	} `json:"enforce_admins"`
	RequiredPullRequestReviews *struct {
		RequiredApprovingReviewCount int `json:"required_approving_review_count"`
	} `json:"required_pull_request_reviews"`
	RequiredStatusChecks *struct {
		Contexts []string `json:"contexts"`
	} `json:"required_status_checks"`
	RequiredLinearHistory struct {
		Enabled bool `json:"enabled"`
	} `json:"required_linear_history"`
}

func describeProtection(data []byte) (string, error) {
	var st protectionStatus
	if err := json.Unmarshal(data, &st); err != nil {
		return "", fmt.Errorf("decoding protection status: %w", err)
	}
	reviews := 0
	if st.RequiredPullRequestReviews != nil {
		reviews = st.RequiredPullRequestReviews.RequiredApprovingReviewCount
	}
	checks := 0
	if st.RequiredStatusChecks != nil {
		checks = len(st.RequiredStatusChecks.Contexts)
	}
	return fmt.Sprintf("reviews=%d checks=%d enforce_admins=%t linear_history=%t",
		reviews, checks, st.EnforceAdmins.Enabled, st.RequiredLinearHistory.Enabled), nil
}
