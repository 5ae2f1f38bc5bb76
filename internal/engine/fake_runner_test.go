package engine

import (
	"context"
	"strings"
	"sync"
	"testing"

	"gitsync/internal/repo"
)

type call struct {
	dir  string
	args []string
}

func (c call) String() string { return strings.Join(c.args, " ") }

// fakeRunner records calls and replays scripted output keyed by the joined
// argument list. A queue's last entry repeats once earlier ones are used.
type fakeRunner struct {
	mu        sync.Mutex
	calls     []call
	responses map[string][][]string
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{responses: map[string][][]string{}}
}

func (f *fakeRunner) on(args string, lines ...string) *fakeRunner {
	f.responses[args] = append(f.responses[args], lines)
	return f
}

func (f *fakeRunner) Run(_ context.Context, dir string, args ...string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{dir: dir, args: append([]string(nil), args...)})
	key := strings.Join(args, " ")
	q := f.responses[key]
	switch len(q) {
	case 0:
		return nil
	case 1:
		return append([]string(nil), q[0]...)
	default:
		f.responses[key] = q[1:]
		return append([]string(nil), q[0]...)
	}
}

func (f *fakeRunner) commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.String()
	}
	return out
}

// count returns how many calls started with the given argument prefix.
func (f *fakeRunner) count(prefix string) int {
	n := 0
	for _, c := range f.commands() {
		if c == prefix || strings.HasPrefix(c, prefix+" ") {
			n++
		}
	}
	return n
}

// newRecord returns an enabled, created record rooted in a temp dir.
func newRecord(t *testing.T, name string, remote string) *repo.Repository {
	t.Helper()
	r := repo.New(name, t.TempDir())
	r.Enabled = true
	r.LocalRepoCreated = true
	if remote != "" {
		r.Remote = repo.RemoteURL(remote)
	}
	return r
}

func newRegistry(t *testing.T, repos ...*repo.Repository) *repo.Registry {
	t.Helper()
	reg, err := repo.NewRegistry(repos...)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return reg
}
