// Package inspect reads a working tree with go-git, without running git
// or touching the index.
package inspect

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	goGit "github.com/go-git/go-git/v5"
	goGitPlumbing "github.com/go-git/go-git/v5/plumbing"

	"gitsync/internal/repo"
	"gitsync/internal/report"
)

const OperationStatus = "status"

// ErrNotRepository is returned when the directory has no git metadata.
var ErrNotRepository = errors.New("not a git repository")

type Commit struct {
	Hash    string    `json:"hash"`
	Message string    `json:"message"`
	Author  string    `json:"author"`
	When    time.Time `json:"when"`
}

// State is a point-in-time view of one working tree.
type State struct {
	Branch   string              `json:"branch,omitempty"`
	Detached bool                `json:"detached,omitempty"`
	Head     *Commit             `json:"head,omitempty"`
	Remotes  map[string][]string `json:"remotes,omitempty"`

	// Tracking is the hash of refs/remotes/<upstream>/<branch>, empty when
	// the ref has never been fetched or pushed.
	Tracking string `json:"tracking,omitempty"`

	Modified  int `json:"modified"`
	Untracked int `json:"untracked"`
}

// Clean reports a worktree with nothing to stage.
func (s *State) Clean() bool { return s.Modified == 0 && s.Untracked == 0 }

// InSync reports HEAD matching the remote-tracking ref.
func (s *State) InSync() bool {
	return s.Head != nil && s.Tracking != "" && strings.HasPrefix(s.Tracking, s.Head.Hash)
}

// Read opens dir and collects its state. upstream and branch select the
// remote-tracking ref to compare against.
func Read(dir, upstream, branch string) (*State, error) {
	r, err := goGit.PlainOpen(dir)
	if errors.Is(err, goGit.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("%s: %w", dir, ErrNotRepository)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open repository at %s: %w", dir, err)
	}

	st := &State{Remotes: map[string][]string{}}

	head, err := r.Head()
	switch {
	case errors.Is(err, goGitPlumbing.ErrReferenceNotFound):
		// Unborn branch: no commits yet.
	case err != nil:
		return nil, fmt.Errorf("failed to get repository head: %w", err)
	default:
		if head.Name().IsBranch() {
			st.Branch = head.Name().Short()
		} else {
			st.Detached = true
		}
		c, err := r.CommitObject(head.Hash())
		if err != nil {
			return nil, fmt.Errorf("failed to read head commit: %w", err)
		}
		st.Head = &Commit{
			Hash:    head.Hash().String()[:7],
			Message: firstLine(c.Message),
			Author:  c.Author.Name,
			When:    c.Author.When,
		}
	}

	remotes, err := r.Remotes()
	if err != nil {
		return nil, fmt.Errorf("failed to list remotes: %w", err)
	}
	for _, rm := range remotes {
		cfg := rm.Config()
		st.Remotes[cfg.Name] = append([]string(nil), cfg.URLs...)
	}

	if upstream != "" && branch != "" {
		ref, err := r.Reference(goGitPlumbing.NewRemoteReferenceName(upstream, branch), true)
		if err == nil {
			st.Tracking = ref.Hash().String()
		}
	}

	wt, err := r.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to open worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("failed to read worktree status: %w", err)
	}
	for _, fs := range status {
		switch {
		case fs.Worktree == goGit.Untracked:
			st.Untracked++
		case fs.Worktree != goGit.Unmodified || fs.Staging != goGit.Unmodified:
			st.Modified++
		}
	}
	return st, nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// Result reads r and summarizes it: PASS for a clean tree in step with the
// remote, WARN for pending changes or divergence, FAIL when unreadable.
func Result(r *repo.Repository) report.Result {
	res := report.New(r.Name, OperationStatus, report.StatusPass, "")
	if !r.DirectoryExists() {
		res.Status, res.Message = report.StatusFail, "directory missing"
		return res
	}
	st, err := Read(r.Directory, r.Upstream, r.Branch)
	if err != nil {
		res.Status = report.StatusFail
		if errors.Is(err, ErrNotRepository) {
			res.Message = "local repository not initialized"
		} else {
			res.Message = err.Error()
		}
		return res
	}

	res.Evidence = st.evidence()
	var notes []string
	if st.Head == nil {
		notes = append(notes, "no commits")
	}
	if st.Detached {
		notes = append(notes, "detached HEAD")
	} else if st.Branch != "" && st.Branch != r.Branch {
		notes = append(notes, fmt.Sprintf("on branch %s, syncs %s", st.Branch, r.Branch))
	}
	if !st.Clean() {
		notes = append(notes, fmt.Sprintf("%d modified, %d untracked", st.Modified, st.Untracked))
	}
	if url, ok := r.Remote.URL(); ok {
		urls, linked := st.Remotes[r.Upstream]
		switch {
		case !linked:
			notes = append(notes, fmt.Sprintf("remote %s not linked", r.Upstream))
		case len(urls) > 0 && urls[0] != url:
			notes = append(notes, fmt.Sprintf("remote %s points at %s", r.Upstream, urls[0]))
		case st.Head != nil && !st.InSync():
			notes = append(notes, fmt.Sprintf("%s/%s differs from HEAD", r.Upstream, r.Branch))
		}
	}

	if len(notes) > 0 {
		res.Status = report.StatusWarn
		res.Message = strings.Join(notes, "; ")
		return res
	}
	res.Message = "clean"
	if st.Head != nil {
		res.Message = fmt.Sprintf("clean at %s %s", st.Head.Hash, st.Head.Message)
	}
	return res
}

func (s *State) evidence() map[string]string {
	ev := map[string]string{
		"modified":  strconv.Itoa(s.Modified),
		"untracked": strconv.Itoa(s.Untracked),
	}
	if s.Branch != "" {
		ev["branch"] = s.Branch
	}
	if s.Head != nil {
		ev["head"] = s.Head.Hash
		ev["head_author"] = s.Head.Author
		ev["head_time"] = s.Head.When.UTC().Format(time.RFC3339)
	}
	if s.Tracking != "" {
		ev["tracking"] = s.Tracking[:7]
	}
	names := make([]string, 0, len(s.Remotes))
	for n := range s.Remotes {
		names = append(names, n)
	}
	sort.Strings(names)
	if len(names) > 0 {
		ev["remotes"] = strings.Join(names, ",")
	}
	return ev
}
