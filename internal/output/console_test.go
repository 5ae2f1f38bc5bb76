package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"gitsync/internal/outcome"
	"gitsync/internal/report"
)

func TestConsoleSink_Filtering(t *testing.T) {
	tests := []struct {
		name           string
		format         string
		filterStatuses []string
		input          report.Result
		shouldWrite    bool
	}{
		{
			name:        "text - no filter - converged",
			format:      "text",
			input:       report.Result{Status: report.StatusConverged, Repo: "r", Operation: "sync"},
			shouldWrite: true,
		},
		{
			name:           "text - filter MANUAL - input CONVERGED",
			format:         "text",
			filterStatuses: []string{"MANUAL"},
			input:          report.Result{Status: report.StatusConverged, Repo: "r", Operation: "sync"},
			shouldWrite:    false,
		},
		{
			name:           "text - filter MANUAL,UNKNOWN - input UNKNOWN",
			format:         "text",
			filterStatuses: []string{"MANUAL", "UNKNOWN"},
			input:          report.Result{Status: report.StatusUnknown, Repo: "r", Operation: "sync"},
			shouldWrite:    true,
		},
		{
			name:           "json - filter MANUAL - input CONVERGED",
			format:         "json",
			filterStatuses: []string{"MANUAL"},
			input:          report.Result{Status: report.StatusConverged, Repo: "r"},
			shouldWrite:    false,
		},
		{
			name:           "json - filter MANUAL - input MANUAL",
			format:         "json",
			filterStatuses: []string{"manual"},
			input:          report.Result{Status: report.StatusManual, Repo: "r"},
			shouldWrite:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			sink := NewConsoleSink(&buf, tt.format, tt.filterStatuses)

			if err := sink.Write(tt.input); err != nil {
				t.Fatalf("Write error: %v", err)
			}

			if tt.format == "json" {
				want := 0
				if tt.shouldWrite {
					want = 1
				}
				if len(sink.results) != want {
					t.Errorf("expected %d buffered results, got %d", want, len(sink.results))
				}
				return
			}
			wrote := buf.Len() > 0
			if tt.shouldWrite != wrote {
				t.Errorf("shouldWrite=%v but output=%q", tt.shouldWrite, buf.String())
			}
		})
	}
}

func TestConsoleSink_TextLine(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsoleSink(&buf, "text", nil).ShowOutput(true)

	r := report.Manual("alpha", "sync", "merge conflict, merge aborted").
		WithOutcome(outcome.MergeConflict, []string{"CONFLICT (content): Merge conflict in a.txt"})
	if err := sink.Write(r); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	// Events are ignored in text mode.
	if err := sink.Write(Event{Type: EventRunStarted}); err != nil {
		t.Fatalf("Write event error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"MANUAL", "alpha (sync): merge conflict, merge aborted", "    | CONFLICT (content)"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %q", want, out)
		}
	}
	if strings.Count(out, "\n") != 2 {
		t.Errorf("expected two lines, got %q", out)
	}
}

func TestConsoleSink_NDJSONStreamsEvents(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsoleSink(&buf, "ndjson", nil)

	_ = sink.Write(Event{Type: EventRunStarted, RunID: "run-1", Repos: 2, Scenario: "ALL"})
	_ = sink.Write(report.Converged("alpha", "sync", ""))
	_ = sink.Write(Event{Type: EventRunFinished, RunID: "run-1", ExitCode: 1})
	if err := sink.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 ndjson lines, got %d: %q", len(lines), buf.String())
	}
	var mid map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &mid); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if mid["type"] != EventResult || mid["repo"] != "alpha" || mid["status"] != "CONVERGED" {
		t.Fatalf("unexpected result event: %v", mid)
	}
	if !strings.Contains(lines[0], `"run_id":"run-1"`) || !strings.Contains(lines[2], `"exit_code":1`) {
		t.Fatalf("unexpected lifecycle lines: %q", lines)
	}
}

func TestConsoleSink_JSONAggregatesOnClose(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsoleSink(&buf, "json", nil)
	_ = sink.Write(report.Converged("a", "sync", ""))
	_ = sink.Write(Event{Type: EventRepoStarted, Repo: "b"})
	_ = sink.Write(report.Skipped("b", "sync", "disabled"))
	if buf.Len() != 0 {
		t.Fatalf("json mode must buffer until Close, got %q", buf.String())
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	var got []report.Result
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(got) != 2 || got[1].Status != report.StatusSkipped {
		t.Fatalf("unexpected aggregate: %+v", got)
	}
}

func TestConsoleSink_UnsupportedFormat(t *testing.T) {
	sink := NewConsoleSink(&bytes.Buffer{}, "yaml", nil)
	if err := sink.Write(report.Converged("a", "sync", "")); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}
