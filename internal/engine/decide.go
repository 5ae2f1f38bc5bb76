package engine

import "gitsync/internal/outcome"

// Action is the follow-up step taken after classifying pull output.
type Action int

const (
	ActionNone Action = iota
	// ActionLinkUpstream pushes with --set-upstream to create the remote branch.
	ActionLinkUpstream
	// ActionAbortMerge backs out of a conflicting merge.
	ActionAbortMerge
	// ActionCommitMergeAndPush commits a clean automatic merge and pushes it.
	ActionCommitMergeAndPush
	// ActionPush publishes local commits.
	ActionPush
)

func (a Action) String() string {
	switch a {
	case ActionLinkUpstream:
		return "link-upstream"
	case ActionAbortMerge:
		return "abort-merge"
	case ActionCommitMergeAndPush:
		return "commit-merge-and-push"
	case ActionPush:
		return "push"
	default:
		return "none"
	}
}

// Decision is the favorable-sync verdict for one pull outcome. For
// ActionLinkUpstream, convergence depends on the push that follows.
type Decision struct {
	Action    Action
	Converged bool
	// Manual marks states that need an operator (conflicts, unrecognized output).
	Manual bool
	Reason string
}

// Decide maps a pull outcome to the next step. It performs no I/O.
func Decide(o outcome.Outcome) Decision {
	switch o {
	case outcome.MissingRemoteRef:
		return Decision{Action: ActionLinkUpstream, Reason: "remote branch missing, linking upstream"}
	case outcome.MergeConflict:
		return Decision{Action: ActionAbortMerge, Manual: true, Reason: "merge conflict, merge aborted; manual intervention required"}
	case outcome.PermissionOrMissingRemote:
		return Decision{Action: ActionNone, Reason: "permission denied or remote repository missing"}
	case outcome.MergedClean:
		return Decision{Action: ActionCommitMergeAndPush, Converged: true, Reason: "merged remote changes"}
	case outcome.LocalChangesPulled:
		return Decision{Action: ActionNone, Converged: true, Reason: "pulled remote changes"}
	case outcome.RemoteUpToDate:
		return Decision{Action: ActionPush, Converged: true, Reason: "remote up to date, pushed local commits"}
	default:
		return Decision{Action: ActionNone, Manual: true, Reason: "unrecognized git output, verify manually"}
	}
}
