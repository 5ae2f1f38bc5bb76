package gitexec

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultGit       = "git"
	DefaultTimeout   = 10 * time.Minute
	DefaultWaitDelay = 5 * time.Second

	maxLineBytes = 1 << 20
)

// Runner executes git in a working directory and returns its output,
// stdout lines first then stderr lines. It never reports failure: a call
// that could not run returns whatever was captured, possibly nothing.
type Runner interface {
	Run(ctx context.Context, dir string, args ...string) []string
}

// ExecRunner runs the git executable as a child process.
type ExecRunner struct {
	// Git is the executable name or path. Empty means "git".
	Git string
	// Timeout bounds a single invocation. Zero means DefaultTimeout.
	Timeout time.Duration
	// WaitDelay bounds pipe draining after the child is killed.
	WaitDelay time.Duration
	// Quiet demotes output logging to debug.
	Quiet  bool
	Logger zerolog.Logger
}

func NewExecRunner(logger zerolog.Logger, timeout time.Duration, quiet bool) *ExecRunner {
	return &ExecRunner{
		Git:       DefaultGit,
		Timeout:   timeout,
		WaitDelay: DefaultWaitDelay,
		Quiet:     quiet,
		Logger:    logger,
	}
}

func (r *ExecRunner) Run(ctx context.Context, dir string, args ...string) []string {
	git := r.Git
	if git == "" {
		git = DefaultGit
	}
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	log := r.Logger.With().Str("dir", dir).Str("cmd", "git "+strings.Join(args, " ")).Logger()

	cmd := exec.CommandContext(ctx, git, args...)
	cmd.Dir = dir
	cmd.Env = childEnv()
	cmd.WaitDelay = r.WaitDelay
	if cmd.WaitDelay <= 0 {
		cmd.WaitDelay = DefaultWaitDelay
	}

	outR, outW := io.Pipe()
	errR, errW := io.Pipe()
	cmd.Stdout = outW
	cmd.Stderr = errW

	log.Debug().Msg("exec")
	if err := cmd.Start(); err != nil {
		log.Error().Err(err).Msg("git failed to start")
		outW.Close()
		errW.Close()
		return nil
	}

	var stdout, stderr []string
	var g errgroup.Group
	g.Go(func() error {
		var err error
		stdout, err = drain(outR, func(line string) { r.logLine(log, false, line) })
		return err
	})
	g.Go(func() error {
		var err error
		stderr, err = drain(errR, func(line string) { r.logLine(log, true, line) })
		return err
	})

	waitErr := cmd.Wait()
	outW.Close()
	errW.Close()
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("reading git output")
	}

	switch {
	case ctx.Err() != nil && errors.Is(ctx.Err(), context.DeadlineExceeded):
		log.Error().Dur("timeout", timeout).Msg("git killed after deadline")
	case ctx.Err() != nil:
		log.Warn().Err(ctx.Err()).Msg("git interrupted")
	case waitErr != nil:
		// Non-zero exits are routine (conflicts, rejected pushes); the
		// output carries the meaning.
		log.Debug().Err(waitErr).Msg("git exited")
	}

	return append(stdout, stderr...)
}

func (r *ExecRunner) logLine(log zerolog.Logger, stderr bool, line string) {
	switch {
	case r.Quiet:
		log.Debug().Bool("stderr", stderr).Msg(line)
	case stderr:
		log.Warn().Msg(line)
	default:
		log.Info().Msg(line)
	}
}

// drain reads rd line by line until EOF. A line longer than maxLineBytes
// is truncated and reading continues with the next line.
func drain(rd io.ReadCloser, each func(string)) ([]string, error) {
	defer rd.Close()
	var (
		lines []string
		buf   []byte
	)
	emit := func() {
		line := string(buf)
		lines = append(lines, line)
		each(line)
		buf = buf[:0]
	}
	br := bufio.NewReaderSize(rd, 64*1024)
	for {
		chunk, more, err := br.ReadLine()
		if err != nil {
			if len(buf) > 0 {
				emit()
			}
			if errors.Is(err, io.EOF) {
				return lines, nil
			}
			// Keep the pipe flowing so the child is not blocked on a full buffer.
			_, _ = io.Copy(io.Discard, rd)
			return lines, err
		}
		if room := maxLineBytes - len(buf); room > 0 {
			buf = append(buf, chunk[:min(len(chunk), room)]...)
		}
		if !more {
			emit()
		}
	}
}

// childEnv pins the locale so output matches the signature table, and
// disables interactive credential prompts.
func childEnv() []string {
	return append(os.Environ(), "LC_ALL=C", "GIT_TERMINAL_PROMPT=0")
}
