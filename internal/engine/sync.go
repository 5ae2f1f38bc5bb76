package engine

import (
	"context"

	"gitsync/internal/outcome"
	"gitsync/internal/repo"
	"gitsync/internal/report"
)

// attempt records what one favorable or force sync did.
type attempt struct {
	Converged bool
	Outcome   outcome.Outcome
	Reason    string
	Lines     []string
}

// status maps an attempt onto a report status.
func (a attempt) status() report.Status {
	switch {
	case a.Converged:
		return report.StatusConverged
	case a.Outcome == outcome.MergeConflict:
		return report.StatusManual
	case a.Outcome == outcome.PushRejected:
		return report.StatusRejected
	case a.Outcome == outcome.PermissionOrMissingRemote:
		return report.StatusError
	default:
		return report.StatusUnknown
	}
}

func (a attempt) result(r *repo.Repository, operation string) report.Result {
	return report.New(r.Name, operation, a.status(), a.Reason).WithOutcome(a.Outcome, a.Lines)
}

// FavorableSync attempts a non-destructive pull/merge/push and reports
// whether local and remote converged.
func (e *Engine) FavorableSync(ctx context.Context, r *repo.Repository) bool {
	return e.favorable(ctx, r).Converged
}

func (e *Engine) linkUpstream(ctx context.Context, r *repo.Repository) (bool, []string) {
	lines := e.Push(ctx, r, true, false)
	return e.signatures(r).Push().Has(lines, outcome.LinkedNewBranch), lines
}

func (e *Engine) favorable(ctx context.Context, r *repo.Repository) attempt {
	log := e.repoLog(r)
	if !r.Syncable() {
		return attempt{Outcome: outcome.Unrecognized, Reason: "not syncable"}
	}
	sigs := e.signatures(r)

	pulled := e.Pull(ctx, r)
	o := sigs.Pull().Classify(pulled)
	att := attempt{Outcome: o, Lines: pulled}
	log.Debug().Str("outcome", string(o)).Msg("pull classified")

	if o == outcome.MissingRemoteRef {
		linked, lines := e.linkUpstream(ctx, r)
		att.Lines = append(att.Lines, lines...)
		if linked {
			log.Info().Str("branch", r.Branch).Msg("created remote branch and linked upstream")
			att.Converged = true
			att.Outcome = outcome.LinkedNewBranch
			att.Reason = "created remote branch and linked upstream"
			return att
		}
	}

	d := Decide(o)
	att.Reason = d.Reason
	att.Converged = d.Converged

	switch d.Action {
	case ActionAbortMerge:
		att.Lines = append(att.Lines, e.AbortMerge(ctx, r)...)
		log.Warn().Msg("merge conflict, merge aborted; manual intervention required")
	case ActionLinkUpstream:
		linked, lines := e.linkUpstream(ctx, r)
		att.Lines = append(att.Lines, lines...)
		if linked {
			log.Info().Str("branch", r.Branch).Msg("created remote branch and linked upstream")
			att.Converged = true
			att.Outcome = outcome.LinkedNewBranch
			att.Reason = "created remote branch and linked upstream"
			return att
		}
		att.Outcome = outcome.Unrecognized
		att.Reason = Decide(outcome.Unrecognized).Reason
		log.Warn().Msg("could not link upstream branch, verify manually")
	case ActionCommitMergeAndPush:
		e.Commit(ctx, r, outcome.MergeCommitTag)
		att.Lines = append(att.Lines, e.Push(ctx, r, false, false)...)
		log.Info().Msg("merged remote changes and pushed")
	case ActionPush:
		lines := e.Push(ctx, r, false, false)
		att.Lines = append(att.Lines, lines...)
		if sigs.Push().Has(lines, outcome.NothingToPush) {
			log.Info().Msg("nothing to push")
		}
	case ActionNone:
		switch {
		case d.Converged:
			log.Info().Msg(d.Reason)
		case o == outcome.PermissionOrMissingRemote:
			log.Error().Msg(d.Reason)
		default:
			log.Warn().Msg(d.Reason)
		}
	}
	return att
}

// ForceSync overwrites the remote branch with `push -f`.
func (e *Engine) ForceSync(ctx context.Context, r *repo.Repository) {
	e.force(ctx, r)
}

func (e *Engine) force(ctx context.Context, r *repo.Repository) attempt {
	log := e.repoLog(r)
	if !r.Syncable() {
		return attempt{Outcome: outcome.Unrecognized, Reason: "not syncable"}
	}
	lines := e.Push(ctx, r, false, true)
	o := e.signatures(r).ForcePush().Classify(lines)
	att := attempt{Outcome: o, Lines: lines}

	switch o {
	case outcome.ForcePushSucceeded:
		att.Converged = true
		att.Reason = "force push applied"
		log.Info().Msg(att.Reason)
	case outcome.NothingToPush:
		att.Converged = true
		att.Reason = "already up-to-date"
		log.Info().Msg(att.Reason)
	case outcome.PushRejected:
		att.Reason = "force push rejected, branch may be protected"
		log.Error().Msg(att.Reason)
	case outcome.PermissionOrMissingRemote:
		att.Reason = "permission denied or remote repository missing"
		log.Error().Msg(att.Reason)
	default:
		att.Reason = "unrecognized git output, verify manually"
		log.Warn().Msg(att.Reason)
	}
	return att
}
