// Package engine drives local and remote working trees toward convergence
// by running git and acting on the classified output of each step.
package engine

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"gitsync/internal/gitexec"
	"gitsync/internal/outcome"
	"gitsync/internal/output"
	"gitsync/internal/repo"
)

// IgnoreWriter regenerates a record's .gitignore.
type IgnoreWriter interface {
	Regenerate(r *repo.Repository) error
}

// Engine runs every git step sequentially through a single Runner.
type Engine struct {
	runner    gitexec.Runner
	log       zerolog.Logger
	commitTag string
	ignore    IgnoreWriter
	sink      output.Sink
}

type Option func(*Engine)

func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithCommitTag overrides outcome.DefaultCommitTag.
func WithCommitTag(tag string) Option {
	return func(e *Engine) {
		if tag != "" {
			e.commitTag = tag
		}
	}
}

func WithIgnoreWriter(w IgnoreWriter) Option {
	return func(e *Engine) { e.ignore = w }
}

// WithSink streams per-repository events and results as they are produced.
func WithSink(s output.Sink) Option {
	return func(e *Engine) { e.sink = s }
}

func New(runner gitexec.Runner, opts ...Option) *Engine {
	e := &Engine{
		runner:    runner,
		log:       zerolog.Nop(),
		commitTag: outcome.DefaultCommitTag,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// CommitTag is the message used for sync commits.
func (e *Engine) CommitTag() string { return e.commitTag }

func (e *Engine) signatures(r *repo.Repository) outcome.Signatures {
	return outcome.NewSignatures(r.Upstream, r.Branch, e.commitTag)
}

func (e *Engine) repoLog(r *repo.Repository) zerolog.Logger {
	return e.log.With().Str("repo", r.Name).Logger()
}

func (e *Engine) emit(v any) {
	if e.sink == nil {
		return
	}
	if err := e.sink.Write(v); err != nil {
		e.log.Warn().Err(err).Msg("writing output")
	}
}

func (e *Engine) git(ctx context.Context, r *repo.Repository, args ...string) []string {
	return e.runner.Run(ctx, r.Directory, args...)
}

// Stage runs `add .`. Disabled records produce no call.
func (e *Engine) Stage(ctx context.Context, r *repo.Repository) []string {
	if !r.Enabled {
		return nil
	}
	return e.git(ctx, r, "add", ".")
}

// Commit runs `commit -m message` and reports whether a commit was created.
// A clean tree is not an error.
func (e *Engine) Commit(ctx context.Context, r *repo.Repository, message string) bool {
	if !r.Enabled {
		return false
	}
	lines := e.git(ctx, r, "commit", "-m", message)
	// git echoes only the subject in its summary line.
	subject, _, _ := strings.Cut(message, "\n")
	return outcome.Contains(lines, subject)
}

// Pull runs `pull --no-commit <upstream> <branch>`. Records without a
// remote produce no call.
func (e *Engine) Pull(ctx context.Context, r *repo.Repository) []string {
	if !r.Syncable() {
		return nil
	}
	return e.git(ctx, r, "pull", "--no-commit", r.Upstream, r.Branch)
}

// Push runs `push [--set-upstream] [-f] <upstream> <branch>`.
func (e *Engine) Push(ctx context.Context, r *repo.Repository, setUpstream, force bool) []string {
	if !r.Syncable() {
		return nil
	}
	args := []string{"push"}
	if setUpstream {
		args = append(args, "--set-upstream")
	}
	if force {
		args = append(args, "-f")
	}
	args = append(args, r.Upstream, r.Branch)
	return e.git(ctx, r, args...)
}

// AbortMerge runs `merge --abort`.
func (e *Engine) AbortMerge(ctx context.Context, r *repo.Repository) []string {
	if !r.Enabled {
		return nil
	}
	return e.git(ctx, r, "merge", "--abort")
}
