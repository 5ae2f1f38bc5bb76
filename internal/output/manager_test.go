package output

import (
	"errors"
	"strings"
	"testing"

	"gitsync/internal/report"
)

type failingSink struct {
	name     string
	writeErr error
	closeErr error
	writes   int
}

func (s *failingSink) Write(any) error {
	s.writes++
	return s.writeErr
}

func (s *failingSink) Close() error { return s.closeErr }

func TestManager_FansOutAndStampsRunID(t *testing.T) {
	a, b := &Collector{}, &Collector{}
	mgr := NewManager()
	mgr.SetRunID("run-42")
	for _, s := range []Sink{a, b} {
		if err := mgr.AddSink(s); err != nil {
			t.Fatalf("AddSink error: %v", err)
		}
	}

	if err := mgr.Write(Event{Type: EventRunStarted}); err != nil {
		t.Fatalf("Write event: %v", err)
	}
	if err := mgr.Write(Event{Type: EventRunFinished, RunID: "explicit"}); err != nil {
		t.Fatalf("Write event: %v", err)
	}
	if err := mgr.Write(report.Converged("alpha", "sync", "")); err != nil {
		t.Fatalf("Write result: %v", err)
	}
	if err := mgr.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	for _, c := range []*Collector{a, b} {
		ev := c.Events()
		if len(ev) != 2 || len(c.Results()) != 1 {
			t.Fatalf("unexpected writes: %d events, %d results", len(ev), len(c.Results()))
		}
		if ev[0].RunID != "run-42" {
			t.Errorf("event not stamped: %q", ev[0].RunID)
		}
		if ev[1].RunID != "explicit" {
			t.Errorf("explicit run id overwritten: %q", ev[1].RunID)
		}
	}
}

func TestManager_NewRunIDIsUnique(t *testing.T) {
	if NewManager().RunID() == NewManager().RunID() {
		t.Fatal("expected distinct run ids")
	}
}

func TestManager_Errors(t *testing.T) {
	var nilMgr *Manager
	if err := nilMgr.Write("v"); err == nil {
		t.Fatal("nil manager Write should fail")
	}
	if err := NewManager().AddSink(nil); err == nil {
		t.Fatal("AddSink(nil) should fail")
	}

	a := &failingSink{name: "a", writeErr: errors.New("boom-a"), closeErr: errors.New("close-a")}
	b := &failingSink{name: "b", writeErr: errors.New("boom-b")}
	mgr := NewManager()
	_ = mgr.AddSink(a)
	_ = mgr.AddSink(b)

	err := mgr.Write("v")
	if err == nil {
		t.Fatal("Write want error")
	}
	for _, want := range []string{"errors writing to sinks", "boom-a", "boom-b", "failingSink"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Write error missing %q: %v", want, err)
		}
	}
	if a.writes != 1 || b.writes != 1 {
		t.Errorf("a failing sink must not stop fan-out: a=%d b=%d", a.writes, b.writes)
	}

	err = mgr.Close()
	if err == nil || !strings.Contains(err.Error(), "close-a") {
		t.Fatalf("Close error = %v", err)
	}
}
