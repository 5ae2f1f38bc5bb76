package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v68/github"
)

// Slug identifies a hosted repository parsed from a git remote URL.
type Slug struct {
	Host  string
	Owner string
	Name  string
}

func (s Slug) String() string { return s.Owner + "/" + s.Name }

// ErrUnparsableRemote is returned for remotes that do not name host/owner/repo,
// such as local paths.
var ErrUnparsableRemote = errors.New("remote does not name a hosted repository")

// ParseRemote accepts the remote forms git understands:
//
//	https://github.com/acme/world.git
//	ssh://git@github.com:22/acme/world.git
//	git@github.com:acme/world.git
func ParseRemote(raw string) (Slug, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Slug{}, ErrUnparsableRemote
	}

	var host, path string
	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return Slug{}, fmt.Errorf("%w: %v", ErrUnparsableRemote, err)
		}
		if u.Scheme == "file" || u.Host == "" {
			return Slug{}, ErrUnparsableRemote
		}
		host, path = u.Hostname(), u.Path
	} else {
		at := strings.Index(raw, "@")
		colon := strings.Index(raw, ":")
		if colon < 0 || at > colon || strings.HasPrefix(raw, "/") {
			return Slug{}, ErrUnparsableRemote
		}
		host, path = raw[at+1:colon], raw[colon+1:]
	}

	path = strings.TrimSuffix(strings.Trim(path, "/"), ".git")
	parts := strings.Split(path, "/")
	if host == "" || len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Slug{}, ErrUnparsableRemote
	}
	return Slug{Host: strings.ToLower(host), Owner: parts[0], Name: parts[1]}, nil
}

// RepoInfo is what doctor needs to know about a remote repository.
type RepoInfo struct {
	FullName      string
	DefaultBranch string
	Archived      bool
	Private       bool

	BranchExists bool
	Protected    bool

	// ProtectionKnown is false when the token may not read protection.
	ProtectionKnown  bool
	AllowsForcePush  bool
	RequiresReviews  bool
	ProtectionReason string
}

// Inspect reads the repository and, when it exists, the sync branch and its
// protection. Only the repository lookup is fatal; branch and protection
// lookups degrade into fields on RepoInfo.
func (c *Client) Inspect(ctx context.Context, slug Slug, branch string) (*RepoInfo, error) {
	if c == nil || c.Client == nil {
		return nil, errors.New("github: client is nil")
	}

	r, _, err := c.Client.Repositories.Get(ctx, slug.Owner, slug.Name)
	if err != nil {
		return nil, err
	}
	info := &RepoInfo{
		FullName:      r.GetFullName(),
		DefaultBranch: r.GetDefaultBranch(),
		Archived:      r.GetArchived(),
		Private:       r.GetPrivate(),
	}
	if branch == "" {
		return info, nil
	}

	b, resp, err := c.Client.Repositories.GetBranch(ctx, slug.Owner, slug.Name, branch, 1)
	switch {
	case IsNotFound(err), err != nil && resp != nil && resp.StatusCode == http.StatusNotFound:
		return info, nil
	case err != nil:
		return nil, err
	}
	info.BranchExists = true
	info.Protected = b.GetProtected()
	if !info.Protected {
		info.ProtectionKnown = true
		return info, nil
	}

	p, _, err := c.Client.Repositories.GetBranchProtection(ctx, slug.Owner, slug.Name, branch)
	switch {
	case errors.Is(err, github.ErrBranchNotProtected):
		info.Protected = false
		info.ProtectionKnown = true
	case err != nil:
		info.ProtectionReason = PresentError(err)
	default:
		info.ProtectionKnown = true
		if afp := p.GetAllowForcePushes(); afp != nil {
			info.AllowsForcePush = afp.Enabled
		}
		info.RequiresReviews = p.GetRequiredPullRequestReviews() != nil
	}
	return info, nil
}

// IsNotFound reports a 404 from the API.
func IsNotFound(err error) bool {
	return statusOf(err) == http.StatusNotFound
}

func statusOf(err error) int {
	var er *github.ErrorResponse
	if errors.As(err, &er) && er.Response != nil {
		return er.Response.StatusCode
	}
	return 0
}

// PresentError renders an API error without the request URL.
func PresentError(err error) string {
	if err == nil {
		return ""
	}
	var er *github.ErrorResponse
	if errors.As(err, &er) {
		msg := strings.TrimSpace(er.Message)
		if msg == "" {
			msg = "request failed"
		}
		if code := statusOf(err); code != 0 {
			return fmt.Sprintf("GitHub API (%d %s): %s", code, http.StatusText(code), msg)
		}
		return "GitHub API: " + msg
	}
	var rl *github.RateLimitError
	if errors.As(err, &rl) {
		return "GitHub API rate limit exceeded, resets at " + rl.Rate.Reset.Format("15:04:05")
	}
	if s := scrubRequest(strings.TrimSpace(err.Error())); s != "" {
		return "GitHub API: " + s
	}
	return "GitHub API request failed"
}

// scrubRequest drops a leading "GET https://...: " from go-github errors.
func scrubRequest(s string) string {
	for _, m := range []string{"GET ", "POST ", "PUT ", "PATCH ", "DELETE "} {
		if !strings.HasPrefix(s, m) {
			continue
		}
		if i := strings.Index(s, "://"); i >= 0 {
			if j := strings.Index(s[i:], ": "); j >= 0 {
				return strings.TrimSpace(s[i+j+2:])
			}
		}
		return ""
	}
	return s
}
