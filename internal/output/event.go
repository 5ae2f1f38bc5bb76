package output

import (
	"gitsync/internal/report"

	"github.com/google/uuid"
)

const (
	EventRunStarted   = "run.started"
	EventRepoStarted  = "repo.started"
	EventResult       = "repo.result"
	EventRepoFinished = "repo.finished"
	EventRunFinished  = "run.finished"
)

// Event is a lifecycle record for NDJSON streaming output.
//
// In NDJSON mode, sinks emit Events (one JSON object per line): run.started,
// repo.started, repo.result, repo.finished and run.finished. JSON mode
// remains an aggregate of report.Result values.
type Event struct {
	Type  string `json:"type"`
	RunID string `json:"run_id,omitempty"`
	Repo  string `json:"repo,omitempty"`
	*report.Result
	Scenario string          `json:"scenario,omitempty"`
	Repos    int             `json:"repos,omitempty"`
	ExitCode int             `json:"exit_code,omitempty"`
	Summary  *report.Summary `json:"summary,omitempty"`
}

// NewRunID returns a fresh identifier correlating the events of one run.
func NewRunID() string {
	return uuid.NewString()
}

func eventFromResult(r report.Result) Event {
	return Event{Type: EventResult, Repo: r.Repo, Result: &r}
}
