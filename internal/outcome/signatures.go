package outcome

import "fmt"

// Literal fragments of git's human-readable output. git exposes no
// structured result for these operations; keep every fragment in this file.
const (
	sigInitialized         = "Initialized empty Git repository"
	sigForcedUpdate        = "forced update"
	sigMergeFailed         = "Automatic merge failed"
	sigMergeWentWell       = "Automatic merge went well; stopped before committing as requested"
	sigFilesChanged        = "files changed"
	sigFileChanged         = "file changed"
	sigAlreadyUpToDate     = "Already up to date."
	sigAlreadyUpToDateOld  = "Already up-to-date."
	sigEverythingUpToDate  = "Everything up-to-date"
	sigFailedToPush        = "failed to push some refs"
	sigGitLabNoPermission  = "remote: The project you were looking for could not be found or you don't have permission to view it."
	sigRepositoryNotFound  = "Repository not found"
	sigPermissionDenied    = "Permission denied"
	sigNotAGitRepository   = "does not appear to be a git repository"
	sigAuthenticationError = "Authentication failed"
)

// Signatures builds the per-repository signature tables. Branch and upstream
// appear verbatim in some of git's messages.
type Signatures struct {
	Upstream  string
	Branch    string
	CommitTag string
}

// NewSignatures returns signatures for the given upstream/branch pair.
// An empty commitTag selects DefaultCommitTag.
func NewSignatures(upstream, branch, commitTag string) Signatures {
	if commitTag == "" {
		commitTag = DefaultCommitTag
	}
	return Signatures{Upstream: upstream, Branch: branch, CommitTag: commitTag}
}

func (s Signatures) missingRemoteRef() string {
	return fmt.Sprintf("couldn't find remote ref %s", s.Branch)
}

func (s Signatures) linked() []string {
	return []string{
		fmt.Sprintf("Branch '%s' set up to track remote branch '%s' from '%s'.", s.Branch, s.Branch, s.Upstream),
		fmt.Sprintf("branch '%s' set up to track '%s/%s'.", s.Branch, s.Upstream, s.Branch),
	}
}

var permissionSignatures = []string{
	sigGitLabNoPermission,
	sigRepositoryNotFound,
	sigPermissionDenied,
	sigNotAGitRepository,
	sigAuthenticationError,
}

// Pull classifies `pull --no-commit` output.
func (s Signatures) Pull() Table {
	return Table{
		{MissingRemoteRef, []string{s.missingRemoteRef()}},
		{MergeConflict, []string{sigMergeFailed}},
		{PermissionOrMissingRemote, permissionSignatures},
		{MergedClean, []string{sigMergeWentWell}},
		{LocalChangesPulled, []string{sigFilesChanged, sigFileChanged}},
		{RemoteUpToDate, []string{sigAlreadyUpToDate, sigAlreadyUpToDateOld}},
	}
}

// Push classifies plain and --set-upstream push output.
func (s Signatures) Push() Table {
	return Table{
		{LinkedNewBranch, s.linked()},
		{NothingToPush, []string{sigEverythingUpToDate}},
		{PushRejected, []string{sigFailedToPush}},
		{PermissionOrMissingRemote, permissionSignatures},
	}
}

// ForcePush classifies `push -f` output.
func (s Signatures) ForcePush() Table {
	return Table{
		{NothingToPush, []string{sigEverythingUpToDate}},
		{ForcePushSucceeded, []string{sigForcedUpdate}},
		{PushRejected, []string{sigFailedToPush}},
		{PermissionOrMissingRemote, permissionSignatures},
	}
}

// Init classifies `init` output.
func (s Signatures) Init() Table {
	return Table{{Initialized, []string{sigInitialized}}}
}

// Commit classifies `commit -m` output. A commit that produced no diff does
// not echo the tag and classifies as Unrecognized.
func (s Signatures) Commit() Table {
	return Table{{Committed, []string{s.CommitTag}}}
}
