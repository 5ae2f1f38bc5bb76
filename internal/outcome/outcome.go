package outcome

import "strings"

// Outcome is the semantic classification of one git invocation's output.
type Outcome string

const (
	LinkedNewBranch           Outcome = "LINKED_NEW_BRANCH"
	MergeConflict             Outcome = "MERGE_CONFLICT"
	PermissionOrMissingRemote Outcome = "PERMISSION_OR_MISSING_REMOTE"
	MergedClean               Outcome = "MERGED_CLEAN"
	LocalChangesPulled        Outcome = "LOCAL_CHANGES_PULLED"
	RemoteUpToDate            Outcome = "REMOTE_UP_TO_DATE"
	NothingToPush             Outcome = "NOTHING_TO_PUSH"
	ForcePushSucceeded        Outcome = "FORCE_PUSH_SUCCEEDED"
	MissingRemoteRef          Outcome = "MISSING_REMOTE_REF"
	PushRejected              Outcome = "PUSH_REJECTED"
	Initialized               Outcome = "INITIALIZED"
	Committed                 Outcome = "COMMITTED"
	Unrecognized              Outcome = "UNRECOGNIZED"
)

// DefaultCommitTag marks commits created by scheduled and on-demand syncs.
const DefaultCommitTag = "[server update]"

// MergeCommitTag is the message used when committing a clean automatic merge.
const MergeCommitTag = "[merged]"

// Contains reports whether any line contains signature as a case-sensitive
// substring.
func Contains(lines []string, signature string) bool {
	for _, line := range lines {
		if strings.Contains(line, signature) {
			return true
		}
	}
	return false
}

// Row binds an outcome to the literal output fragments that signal it.
type Row struct {
	Outcome    Outcome
	Signatures []string
}

// Table is an ordered signature table. The first row with a matching
// signature wins.
type Table []Row

// Classify returns the outcome of the first matching row, or Unrecognized.
func (t Table) Classify(lines []string) Outcome {
	for _, row := range t {
		for _, sig := range row.Signatures {
			if Contains(lines, sig) {
				return row.Outcome
			}
		}
	}
	return Unrecognized
}

// Has reports whether the lines match any signature of the given outcome.
func (t Table) Has(lines []string, o Outcome) bool {
	for _, row := range t {
		if row.Outcome != o {
			continue
		}
		for _, sig := range row.Signatures {
			if Contains(lines, sig) {
				return true
			}
		}
	}
	return false
}
