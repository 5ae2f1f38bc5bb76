package github

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"time"
)

type AuthTokenSource string

const (
	AuthTokenSourceExplicit AuthTokenSource = "explicit"
	AuthTokenSourceEnv      AuthTokenSource = "env:GITHUB_TOKEN"
	AuthTokenSourceGHEnv    AuthTokenSource = "env:GH_TOKEN"
	AuthTokenSourceGitHubCL AuthTokenSource = "gh"

	DefaultHost = "github.com"
)

// ResolveAuthToken resolves a token for host.
//
// Precedence:
//  1. provided (if non-empty)
//  2. GITHUB_TOKEN, then GH_TOKEN
//  3. `gh auth token -h <host>`
//
// No token is not an error; doctor then probes anonymously.
func ResolveAuthToken(ctx context.Context, host, provided string) (string, AuthTokenSource, error) {
	if tok := strings.TrimSpace(provided); tok != "" {
		return tok, AuthTokenSourceExplicit, nil
	}
	if env := strings.TrimSpace(os.Getenv("GITHUB_TOKEN")); env != "" {
		return env, AuthTokenSourceEnv, nil
	}
	if env := strings.TrimSpace(os.Getenv("GH_TOKEN")); env != "" {
		return env, AuthTokenSourceGHEnv, nil
	}
	if host == "" {
		host = DefaultHost
	}

	tok, ok, err := tokenFromGitHubCLI(ctx, host)
	if err != nil {
		return "", "", err
	}
	if ok {
		return tok, AuthTokenSourceGitHubCL, nil
	}
	return "", "", nil
}

func tokenFromGitHubCLI(ctx context.Context, host string) (string, bool, error) {
	if _, err := exec.LookPath("gh"); err != nil {
		return "", false, nil
	}

	cmdCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		cmdCtx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}

	cmd := exec.CommandContext(cmdCtx, "gh", "auth", "token", "-h", host)
	env := make([]string, 0, len(os.Environ())+1)
	for _, entry := range os.Environ() {
		if !strings.HasPrefix(entry, "GH_PAGER=") {
			env = append(env, entry)
		}
	}
	cmd.Env = append(env, "GH_PAGER=cat")
	out, runErr := cmd.Output()
	if runErr != nil {
		if cmdCtx.Err() != nil {
			return "", false, cmdCtx.Err()
		}
		// Not logged in for this host.
		return "", false, nil
	}

	tok := strings.TrimSpace(string(out))
	if tok == "" {
		return "", false, nil
	}
	if strings.ContainsAny(tok, " \t\n\r") {
		return "", false, errors.New("invalid token returned by gh: contains whitespace")
	}
	return tok, true, nil
}
