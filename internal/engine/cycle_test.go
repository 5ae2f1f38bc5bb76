package engine

import (
	"bytes"
	"context"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"gitsync/internal/logging"
	"gitsync/internal/output"
	"gitsync/internal/repo"
	"gitsync/internal/report"
)

func TestDisabledRecordsNeverRunGit(t *testing.T) {
	f := newFakeRunner()
	c := &output.Collector{}
	e := New(f, WithSink(c), WithIgnoreWriter(failIgnore{t}))
	ctx := context.Background()

	r := newRecord(t, "off", remoteURL)
	r.Enabled = false
	r.LocalRepoCreated = false
	reg := newRegistry(t, r)

	for _, sc := range []Scenario{ScenarioFavorable, ScenarioForce, ScenarioAll} {
		sum := e.RunScheduledCycle(ctx, reg.All(), sc)
		if sum.Skipped != 1 {
			t.Fatalf("%s: expected the disabled record to be skipped: %+v", sc, sum)
		}
	}
	e.FavorableSync(ctx, r)
	e.ForceSync(ctx, r)
	e.InitializeRepository(ctx, r)
	e.LinkRemote(ctx, r)
	e.Stage(ctx, r)
	e.Commit(ctx, r, "msg")
	e.AbortMerge(ctx, r)
	e.Prepare(ctx, reg)

	if n := len(f.commands()); n != 0 {
		t.Fatalf("disabled record produced %d git calls: %v", n, f.commands())
	}
}

type failIgnore struct{ t *testing.T }

func (f failIgnore) Regenerate(r *repo.Repository) error {
	f.t.Fatalf("ignore regenerated for %s", r.Name)
	return nil
}

func TestCycle_NoRemoteOnlyStagesAndCommits(t *testing.T) {
	f := newFakeRunner().on(commitCmd, "[master 1a2b3c4] [server update]")
	e := New(f)
	r := newRecord(t, "local", "")

	for _, sc := range []Scenario{ScenarioFavorable, ScenarioForce, ScenarioAll} {
		f.calls = nil
		sum := e.RunScheduledCycle(context.Background(), []*repo.Repository{r}, sc)
		if got, want := f.commands(), []string{"add .", commitCmd}; !reflect.DeepEqual(got, want) {
			t.Fatalf("%s: calls = %v, want %v", sc, got, want)
		}
		if sum.Converged != 1 || sum.Results[0].Message != "committed locally, no remote" {
			t.Fatalf("%s: unexpected summary %+v", sc, sum)
		}
	}
	e.LinkRemote(context.Background(), r)
	if f.count("remote") != 0 || f.count("pull") != 0 || f.count("push") != 0 {
		t.Fatalf("network verbs issued for remote-less record: %v", f.commands())
	}
}

func TestCycle_ScenarioDispatch(t *testing.T) {
	conflict := "Automatic merge failed; fix conflicts and then commit the result."
	upToDate := "Already up to date."

	tests := []struct {
		name        string
		scenario    Scenario
		pull        string
		wantPulls   int
		wantForces  int
		wantStatus  report.Status
		wantSummary [3]int // converged, not converged, skipped
	}{
		{"all converged", ScenarioAll, upToDate, 1, 0, report.StatusConverged, [3]int{1, 0, 0}},
		{"all falls back to force", ScenarioAll, conflict, 1, 1, report.StatusConverged, [3]int{1, 0, 0}},
		{"favorable never forces", ScenarioFavorable, conflict, 1, 0, report.StatusManual, [3]int{0, 1, 0}},
		{"force never pulls", ScenarioForce, conflict, 0, 1, report.StatusConverged, [3]int{1, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeRunner().
				on(pullCmd, tt.pull).
				on(pushCmd, "Everything up-to-date").
				on(forceCmd, " + abc...def master -> master (forced update)")
			c := &output.Collector{}
			e := New(f, WithSink(c))

			sum := e.RunScheduledCycle(context.Background(), []*repo.Repository{newRecord(t, "p", remoteURL)}, tt.scenario)

			if f.count("pull") != tt.wantPulls {
				t.Errorf("pulls = %d, want %d", f.count("pull"), tt.wantPulls)
			}
			if f.count(forceCmd) != tt.wantForces {
				t.Errorf("force pushes = %d, want %d", f.count(forceCmd), tt.wantForces)
			}
			if got := [3]int{sum.Converged, sum.NotConverged, sum.Skipped}; got != tt.wantSummary {
				t.Errorf("summary = %v, want %v", got, tt.wantSummary)
			}
			if sum.Results[0].Status != tt.wantStatus {
				t.Errorf("status = %s, want %s", sum.Results[0].Status, tt.wantStatus)
			}
			if cmds := f.commands(); cmds[0] != "add ." || cmds[1] != commitCmd {
				t.Errorf("cycle must stage and commit first: %v", cmds)
			}

			ev := c.Events()
			if len(ev) != 2 || ev[0].Type != output.EventRepoStarted || ev[1].Type != output.EventRepoFinished {
				t.Errorf("unexpected events %+v", ev)
			}
			if len(c.Results()) != 1 {
				t.Errorf("expected one streamed result, got %d", len(c.Results()))
			}
		})
	}
}

func TestCycle_SkipsMissingAndUncreated(t *testing.T) {
	var logs bytes.Buffer
	f := newFakeRunner()
	e := New(f, WithLogger(logging.ForTest(&logs)))

	missing := newRecord(t, "missing", remoteURL)
	missing.Directory = filepath.Join(missing.Directory, "gone")
	uncreated := newRecord(t, "fresh", remoteURL)
	uncreated.LocalRepoCreated = false

	sum := e.RunScheduledCycle(context.Background(), []*repo.Repository{missing, uncreated}, ScenarioAll)
	if sum.Skipped != 2 || len(f.commands()) != 0 {
		t.Fatalf("summary %+v, calls %v", sum, f.commands())
	}
	if sum.Results[0].Message != "directory missing" || sum.Results[1].Message != "local repository not initialized" {
		t.Fatalf("unexpected skip reasons: %+v", sum.Results)
	}
	if sum.ExitCode() != report.ExitOK {
		t.Fatalf("skips alone must exit 0, got %d", sum.ExitCode())
	}
	for _, want := range []string{"skipped: directory missing", "repo=missing", "repo=fresh"} {
		if !strings.Contains(logs.String(), want) {
			t.Errorf("log missing %q: %s", want, logs.String())
		}
	}
}

func TestCycle_StopsWhenContextCancelled(t *testing.T) {
	f := newFakeRunner()
	e := New(f)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sum := e.RunScheduledCycle(ctx, []*repo.Repository{newRecord(t, "a", remoteURL), newRecord(t, "b", "")}, ScenarioAll)
	if !sum.Interrupted || len(sum.Results) != 0 || len(f.commands()) != 0 {
		t.Fatalf("expected immediate stop: %+v calls=%v", sum, f.commands())
	}
}

func TestCycle_OrderIsPreserved(t *testing.T) {
	f := newFakeRunner()
	e := New(f)
	a, b := newRecord(t, "zeta", ""), newRecord(t, "alpha", "")

	sum := e.RunScheduledCycle(context.Background(), []*repo.Repository{a, b}, ScenarioAll)
	if sum.Results[0].Repo != "zeta" || sum.Results[1].Repo != "alpha" {
		t.Fatalf("order not preserved: %+v", sum.Results)
	}
	if f.calls[0].dir != a.Directory || f.calls[2].dir != b.Directory {
		t.Fatalf("git ran out of order: %+v", f.calls)
	}
}

func TestCycle_CustomCommitTag(t *testing.T) {
	f := newFakeRunner()
	e := New(f, WithCommitTag("[nightly]"))
	e.RunScheduledCycle(context.Background(), []*repo.Repository{newRecord(t, "a", "")}, ScenarioAll)
	if f.count("commit -m [nightly]") != 1 {
		t.Fatalf("custom tag not used: %v", f.commands())
	}
}
