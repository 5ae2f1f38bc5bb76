package output

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gitsync/internal/report"
)

// ReportSink renders a Markdown summary of a run on Close.
type ReportSink struct {
	path         string
	file         *os.File
	mu           sync.Mutex
	results      []report.Result
	runIDs       []string
	scenario     string
	exitCode     int
	haveExitCode bool
}

func NewReportSink(path string) (*ReportSink, error) {
	if path == "" {
		return nil, fmt.Errorf("report path required")
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create report file: %w", err)
	}

	return &ReportSink{path: path, file: f}, nil
}

func (s *ReportSink) Write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch t := v.(type) {
	case report.Result:
		s.results = append(s.results, t)
	case Event:
		switch t.Type {
		case EventRunStarted:
			if t.RunID != "" {
				s.runIDs = append(s.runIDs, t.RunID)
			}
			if t.Scenario != "" {
				s.scenario = t.Scenario
			}
		case EventRunFinished:
			// Daemon runs produce several cycles; the worst exit code wins.
			if !s.haveExitCode || t.ExitCode > s.exitCode {
				s.exitCode = t.ExitCode
			}
			s.haveExitCode = true
		}
	}
	return nil
}

func (s *ReportSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	content := renderReport(s.results, s.runIDs, s.scenario, s.exitCode, s.haveExitCode)
	if _, err := s.file.WriteString(content); err != nil {
		_ = s.file.Close()
		return err
	}
	return s.file.Close()
}

func needsAttention(st report.Status) bool {
	switch st {
	case report.StatusManual, report.StatusUnknown, report.StatusRejected, report.StatusError, report.StatusFail:
		return true
	}
	return false
}

func renderReport(results []report.Result, runIDs []string, scenario string, exitCode int, haveExitCode bool) string {
	sum := report.Summarize(results)

	var b strings.Builder
	b.WriteString("# gitsync Report\n\n")

	if len(runIDs) > 0 {
		fmt.Fprintf(&b, "- **Run IDs:** %s\n", strings.Join(runIDs, ", "))
	}
	if scenario != "" {
		fmt.Fprintf(&b, "- **Scenario:** %s\n", scenario)
	}
	if haveExitCode {
		fmt.Fprintf(&b, "- **Exit code:** %d\n", exitCode)
	}
	b.WriteString("\n## Summary\n\n")
	b.WriteString("| Status | Count |\n|---|---|\n")
	rows := []struct {
		label string
		n     int
	}{
		{"Converged", sum.Converged},
		{"Manual intervention", sum.Manual},
		{"Rejected", sum.Rejected},
		{"Unknown output", sum.Unknown},
		{"Errors", sum.Errors},
		{"Skipped", sum.Skipped},
		{"Checks passed", sum.Pass},
		{"Checks warned", sum.Warn},
		{"Checks failed", sum.Fail},
	}
	for _, r := range rows {
		if r.n == 0 {
			continue
		}
		fmt.Fprintf(&b, "| %s | %d |\n", r.label, r.n)
	}

	if len(results) == 0 {
		b.WriteString("\nNo repositories were processed.\n")
		return b.String()
	}

	sorted := append([]report.Result(nil), results...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Repo < sorted[j].Repo })

	b.WriteString("\n## Repositories\n\n")
	b.WriteString("| Repository | Operation | Status | Outcome | Message |\n|---|---|---|---|---|\n")
	for _, r := range sorted {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
			escapeCell(r.Repo), escapeCell(r.Operation), r.Status, r.Outcome, escapeCell(r.Message))
	}

	var attention []report.Result
	for _, r := range sorted {
		if needsAttention(r.Status) {
			attention = append(attention, r)
		}
	}
	if len(attention) > 0 {
		b.WriteString("\n## Needs attention\n")
		for _, r := range attention {
			fmt.Fprintf(&b, "\n### %s (%s)\n\n", r.Repo, r.Status)
			if r.Message != "" {
				fmt.Fprintf(&b, "%s\n\n", r.Message)
			}
			if len(r.Output) > 0 {
				b.WriteString("```\n")
				for _, line := range r.Output {
					b.WriteString(line)
					b.WriteString("\n")
				}
				b.WriteString("```\n")
			}
		}
	}
	return b.String()
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}
