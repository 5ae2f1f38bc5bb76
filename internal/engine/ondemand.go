package engine

import (
	"context"
	"errors"
	"fmt"

	"gitsync/internal/outcome"
	"gitsync/internal/repo"
	"gitsync/internal/report"
)

var (
	ErrUnknownRepository = errors.New("unknown repository")
	ErrDisabled          = errors.New("repository is disabled")
	ErrNoRemote          = errors.New("repository has no remote")
	ErrNotInitialized    = errors.New("local repository not initialized")
)

const (
	OperationPush = "push"
	OperationPull = "pull"
	OperationSync = "sync"
)

// Request is an operator-initiated operation on one repository.
type Request struct {
	Name string
	// Applier identifies who asked, for the audit log.
	Applier string
	// Message is appended to the commit tag when non-empty.
	Message string
}

func (e *Engine) commitMessage(msg string) string {
	if msg == "" {
		return e.commitTag
	}
	return e.commitTag + " " + msg
}

// resolve validates a request before any subprocess runs.
func (e *Engine) resolve(reg *repo.Registry, req Request) (*repo.Repository, error) {
	r, ok := reg.Find(req.Name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRepository, req.Name)
	}
	if !r.Enabled {
		return nil, fmt.Errorf("%w: %s", ErrDisabled, r.Name)
	}
	if !r.Remote.IsSet() {
		return nil, fmt.Errorf("%w: %s", ErrNoRemote, r.Name)
	}
	if !r.LocalRepoCreated {
		return nil, fmt.Errorf("%w: %s", ErrNotInitialized, r.Name)
	}
	return r, nil
}

func (e *Engine) audit(r *repo.Repository, req Request, operation string) {
	log := e.repoLog(r)
	log.Info().
		Str("applier", req.Applier).
		Str("operation", operation).
		Str("commit_message", req.Message).
		Msg("on-demand operation requested")
}

func (e *Engine) finish(res report.Result, req Request) report.Result {
	res.Applier = req.Applier
	e.emit(res)
	return res
}

// ForcePushRepo stages, commits and force-pushes one repository.
func (e *Engine) ForcePushRepo(ctx context.Context, reg *repo.Registry, req Request) (report.Result, error) {
	r, err := e.resolve(reg, req)
	if err != nil {
		return report.Result{}, err
	}
	e.audit(r, req, OperationPush)

	e.Stage(ctx, r)
	e.Commit(ctx, r, e.commitMessage(req.Message))
	return e.finish(e.force(ctx, r).result(r, OperationPush), req), nil
}

// PullRepo stages, commits and pulls one repository. Conflicts are aborted and
// reported; there is no force fallback.
func (e *Engine) PullRepo(ctx context.Context, reg *repo.Registry, req Request) (report.Result, error) {
	r, err := e.resolve(reg, req)
	if err != nil {
		return report.Result{}, err
	}
	e.audit(r, req, OperationPull)
	log := e.repoLog(r)

	e.Stage(ctx, r)
	e.Commit(ctx, r, e.commitMessage(req.Message))

	sigs := e.signatures(r)
	lines := e.Pull(ctx, r)
	o := sigs.Pull().Classify(lines)

	var res report.Result
	switch o {
	case outcome.MergeConflict:
		lines = append(lines, e.AbortMerge(ctx, r)...)
		res = report.Manual(r.Name, OperationPull, "merge conflict, merge aborted; resolve manually")
		log.Warn().Msg(res.Message)
	case outcome.MergedClean:
		e.Commit(ctx, r, outcome.MergeCommitTag)
		lines = append(lines, e.Push(ctx, r, false, false)...)
		res = report.Converged(r.Name, OperationPull, "merged remote changes and pushed")
	case outcome.LocalChangesPulled:
		res = report.Converged(r.Name, OperationPull, "pulled remote changes")
	case outcome.RemoteUpToDate:
		res = report.Converged(r.Name, OperationPull, "already up-to-date")
	case outcome.MissingRemoteRef:
		res = report.Unknown(r.Name, OperationPull, fmt.Sprintf("remote branch %s not found", r.Branch))
	case outcome.PermissionOrMissingRemote:
		res = report.New(r.Name, OperationPull, report.StatusError, "permission denied or remote repository missing")
		log.Error().Msg(res.Message)
	default:
		res = report.Unknown(r.Name, OperationPull, "unrecognized git output, verify manually")
		log.Warn().Msg(res.Message)
	}
	return e.finish(res.WithOutcome(o, lines), req), nil
}

// SyncRepo stages, commits and runs a favorable sync on one repository.
func (e *Engine) SyncRepo(ctx context.Context, reg *repo.Registry, req Request) (report.Result, error) {
	r, err := e.resolve(reg, req)
	if err != nil {
		return report.Result{}, err
	}
	e.audit(r, req, OperationSync)

	e.Stage(ctx, r)
	e.Commit(ctx, r, e.commitMessage(req.Message))

	att := e.favorable(ctx, r)
	res := att.result(r, OperationSync)
	if !att.Converged && res.Status == report.StatusUnknown {
		res.Status = report.StatusManual
		res.Message = "manual intervention required: " + att.Reason
	}
	return e.finish(res, req), nil
}
