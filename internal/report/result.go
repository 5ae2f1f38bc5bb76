package report

import "gitsync/internal/outcome"

type Status string

const (
	StatusConverged Status = "CONVERGED"
	StatusManual    Status = "MANUAL"
	StatusSkipped   Status = "SKIPPED"
	StatusUnknown   Status = "UNKNOWN"
	StatusRejected  Status = "REJECTED"
	StatusError     Status = "ERROR"

	// Diagnostic statuses used by doctor checks.
	StatusPass Status = "PASS"
	StatusWarn Status = "WARN"
	StatusFail Status = "FAIL"
)

type Result struct {
	Repo      string          `json:"repo"`
	Operation string          `json:"operation"`
	Status    Status          `json:"status"`
	Outcome   outcome.Outcome `json:"outcome,omitempty"`
	Message   string          `json:"message,omitempty"`
	Applier   string          `json:"applier,omitempty"`
	// Output holds the raw git output lines behind the result.
	Output []string `json:"output,omitempty"`
	// Evidence contains simple key-value pairs supporting the result.
	Evidence map[string]string `json:"evidence,omitempty"`
}

func New(repo, operation string, status Status, message string) Result {
	return Result{Repo: repo, Operation: operation, Status: status, Message: message}
}

func Converged(repo, operation, message string) Result {
	return New(repo, operation, StatusConverged, message)
}

func Manual(repo, operation, message string) Result {
	return New(repo, operation, StatusManual, message)
}

func Skipped(repo, operation, message string) Result {
	return New(repo, operation, StatusSkipped, message)
}

func Unknown(repo, operation, message string) Result {
	return New(repo, operation, StatusUnknown, message)
}

func Rejected(repo, operation, message string) Result {
	return New(repo, operation, StatusRejected, message)
}

// WithOutcome returns a copy of r carrying the classified outcome and raw lines.
func (r Result) WithOutcome(o outcome.Outcome, lines []string) Result {
	r.Outcome = o
	if len(lines) > 0 {
		r.Output = append([]string(nil), lines...)
	}
	return r
}

// Summary counts results by status.
type Summary struct {
	Converged int `json:"converged"`
	Manual    int `json:"manual"`
	Skipped   int `json:"skipped"`
	Unknown   int `json:"unknown"`
	Rejected  int `json:"rejected"`
	Errors    int `json:"errors"`
	Pass      int `json:"pass"`
	Warn      int `json:"warn"`
	Fail      int `json:"fail"`
}

func (s *Summary) Add(r Result) {
	switch r.Status {
	case StatusConverged:
		s.Converged++
	case StatusManual:
		s.Manual++
	case StatusSkipped:
		s.Skipped++
	case StatusUnknown:
		s.Unknown++
	case StatusRejected:
		s.Rejected++
	case StatusError:
		s.Errors++
	case StatusPass:
		s.Pass++
	case StatusWarn:
		s.Warn++
	case StatusFail:
		s.Fail++
	}
}

func Summarize(results []Result) Summary {
	var s Summary
	for _, r := range results {
		s.Add(r)
	}
	return s
}

// NotConverged is the number of attempted records that did not converge.
func (s Summary) NotConverged() int {
	return s.Manual + s.Unknown + s.Rejected + s.Errors
}

// Exit codes:
//
//	0 = everything converged (or passed)
//	1 = manual intervention required (conflicts, rejected pushes, failed checks)
//	2 = partial failure (errors or unrecognized output)
//	3 = fatal (did not run)
const (
	ExitOK      = 0
	ExitManual  = 1
	ExitPartial = 2
	ExitFatal   = 3
)

func ExitCode(fatal bool, s Summary) int {
	if fatal {
		return ExitFatal
	}
	if s.Errors > 0 || s.Unknown > 0 {
		return ExitPartial
	}
	if s.Manual > 0 || s.Rejected > 0 || s.Fail > 0 {
		return ExitManual
	}
	return ExitOK
}
