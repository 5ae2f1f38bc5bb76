package engine

import (
	"context"
	"fmt"
	"strings"

	"gitsync/internal/outcome"
	"gitsync/internal/repo"
	"gitsync/internal/report"
)

const (
	OperationInit   = "init"
	OperationLink   = "link"
	OperationIgnore = "ignore"
)

// InitializeRepository runs `init` and, when git reports a fresh
// repository, sets the committer identity and marks the record created.
func (e *Engine) InitializeRepository(ctx context.Context, r *repo.Repository) bool {
	if !r.Enabled {
		return false
	}
	log := e.repoLog(r)
	lines := e.git(ctx, r, "init")
	if !e.signatures(r).Init().Has(lines, outcome.Initialized) {
		log.Error().Strs("output", lines).Msg("initializing local repository failed")
		return false
	}
	e.git(ctx, r, "config", "user.name", r.Username)
	e.git(ctx, r, "config", "user.email", r.Email)
	r.LocalRepoCreated = true
	log.Info().Msg("created local repository")
	return true
}

// LinkRemote adds the upstream remote unless `git remote` already lists
// it. It reports whether a remote was added.
func (e *Engine) LinkRemote(ctx context.Context, r *repo.Repository) bool {
	if !r.Syncable() {
		return false
	}
	log := e.repoLog(r)
	for _, line := range e.git(ctx, r, "remote") {
		if strings.TrimSpace(line) == r.Upstream {
			log.Debug().Str("upstream", r.Upstream).Msg("remote already linked")
			return false
		}
	}
	url, _ := r.Remote.URL()
	e.git(ctx, r, "remote", "add", r.Upstream, url)
	log.Info().Str("upstream", r.Upstream).Msg("linked remote")
	return true
}

// Prepare initializes every enabled record lacking git metadata, links
// created records to their remotes, then regenerates ignore files.
func (e *Engine) Prepare(ctx context.Context, reg *repo.Registry) []report.Result {
	var results []report.Result
	add := func(res report.Result) {
		results = append(results, res)
		e.emit(res)
	}
	repos := reg.All()

	for _, r := range repos {
		if ctx.Err() != nil {
			return results
		}
		if !r.Enabled || r.LocalRepoCreated {
			continue
		}
		if !r.DirectoryExists() {
			add(report.Skipped(r.Name, OperationInit, "directory missing"))
			continue
		}
		if r.HasMetadata() {
			r.LocalRepoCreated = true
			continue
		}
		if e.InitializeRepository(ctx, r) {
			add(report.Converged(r.Name, OperationInit, "created local repository"))
		} else {
			add(report.New(r.Name, OperationInit, report.StatusError, "initializing local repository failed"))
		}
	}

	for _, r := range repos {
		if ctx.Err() != nil {
			return results
		}
		if !r.LocalRepoCreated || !r.Syncable() {
			continue
		}
		msg := "already linked"
		if e.LinkRemote(ctx, r) {
			msg = fmt.Sprintf("linked remote %s", r.Upstream)
		}
		add(report.Converged(r.Name, OperationLink, msg))
	}

	if e.ignore == nil {
		return results
	}
	for _, r := range repos {
		if !r.Enabled || !r.LocalRepoCreated {
			continue
		}
		if err := e.ignore.Regenerate(r); err != nil {
			log := e.repoLog(r)
			log.Warn().Err(err).Msg("regenerating .gitignore failed")
			add(report.New(r.Name, OperationIgnore, report.StatusError, err.Error()))
			continue
		}
		add(report.Converged(r.Name, OperationIgnore, "regenerated .gitignore"))
	}
	return results
}
