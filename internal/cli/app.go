package cli

import (
	"context"
	"fmt"
	"strings"

	"gitsync/internal/config"
	"gitsync/internal/doctor"
	"gitsync/internal/engine"
	"gitsync/internal/gitexec"
	gh "gitsync/internal/github"
	"gitsync/internal/ignore"
	"gitsync/internal/output"
	"gitsync/internal/repo"
	"gitsync/internal/report"
)

// workspace is one loaded configuration.
type workspace struct {
	file     *config.File
	registry *repo.Registry
	scenario engine.Scenario
}

func (a *app) load() (*workspace, error) {
	f, err := config.Load(a.cfg.Sync.ConfigPath)
	if err != nil {
		return nil, err
	}
	reg, err := f.Registry()
	if err != nil {
		return nil, err
	}
	ws := &workspace{file: f, registry: reg, scenario: f.ScenarioValue()}
	if a.cfg.Sync.Scenario != "" {
		ws.scenario = engine.Scenario(a.cfg.Sync.Scenario)
	}
	a.log.Debug().
		Str("config", f.Path()).
		Str("root", f.RootDir()).
		Str("scenario", string(ws.scenario)).
		Int("repos", reg.Len()).
		Msg("configuration loaded")
	return ws, nil
}

// selectRepos returns the named records, or all of them when names is empty.
func (ws *workspace) selectRepos(names []string) ([]*repo.Repository, error) {
	if len(names) == 0 {
		return ws.registry.All(), nil
	}
	out := make([]*repo.Repository, 0, len(names))
	for _, n := range names {
		r, ok := ws.registry.Find(n)
		if !ok {
			return nil, fmt.Errorf("%w: %s", engine.ErrUnknownRepository, n)
		}
		out = append(out, r)
	}
	return out, nil
}

func (a *app) runner(ws *workspace) gitexec.Runner {
	if a.newRunner != nil {
		return a.newRunner()
	}
	quiet := a.cfg.Runtime.Quiet || ws.file.Quiet
	r := gitexec.NewExecRunner(a.log, a.cfg.Runtime.CommandTimeout, quiet)
	r.Git = a.cfg.Runtime.Git
	return r
}

func (a *app) engine(ws *workspace, sink output.Sink) *engine.Engine {
	return engine.New(a.runner(ws),
		engine.WithLogger(a.log),
		engine.WithCommitTag(ws.file.CommitTag),
		engine.WithIgnoreWriter(ignore.NewWriter()),
		engine.WithSink(sink),
	)
}

func (a *app) setupOutputManager() (*output.Manager, error) {
	outMgr := output.NewManager()
	cfg := a.cfg

	if !cfg.Output.NoConsole {
		cs := output.NewConsoleSink(a.out(), cfg.Output.ConsoleFormat, cfg.Output.ConsoleFilterStatus).ShowOutput(cfg.Output.ShowOutput)
		if err := outMgr.AddSink(cs); err != nil {
			outMgr.Close()
			return nil, err
		}
	}

	for _, emit := range cfg.Output.Emit {
		es, err := output.NewEmitSink(a.out(), emit)
		if err != nil {
			outMgr.Close()
			return nil, err
		}
		if err := outMgr.AddSink(es); err != nil {
			outMgr.Close()
			return nil, err
		}
	}

	if cfg.Output.Out != "" {
		fs, err := output.NewFileSink(cfg.Output.Out, cfg.Output.OutFormat)
		if err != nil {
			outMgr.Close()
			return nil, err
		}
		if err := outMgr.AddSink(fs); err != nil {
			outMgr.Close()
			return nil, err
		}
	}

	if cfg.Output.Report != "" {
		rs, err := output.NewReportSink(cfg.Output.Report)
		if err != nil {
			outMgr.Close()
			return nil, err
		}
		if err := outMgr.AddSink(rs); err != nil {
			outMgr.Close()
			return nil, err
		}
	}

	return outMgr, nil
}

// session opens the output sinks and writes run.started; finish writes
// run.finished and closes them.
type session struct {
	a   *app
	mgr *output.Manager
	sc  engine.Scenario
}

func (a *app) startSession(sc engine.Scenario, repos int) (*session, error) {
	mgr, err := a.setupOutputManager()
	if err != nil {
		return nil, fmt.Errorf("creating output sinks: %w", err)
	}
	s := &session{a: a, mgr: mgr, sc: sc}
	s.begin(repos)
	return s, nil
}

func (s *session) begin(repos int) {
	s.a.logWrite(s.mgr.Write(output.Event{Type: output.EventRunStarted, Scenario: string(s.sc), Repos: repos}))
	s.a.log.Debug().Str("run_id", s.mgr.RunID()).Msg("run started")
}

func (s *session) end(results []report.Result) int {
	sum := report.Summarize(results)
	return s.endWith(sum, report.ExitCode(false, sum))
}

func (s *session) endWith(sum report.Summary, code int) int {
	s.a.logWrite(s.mgr.Write(output.Event{Type: output.EventRunFinished, Scenario: string(s.sc), ExitCode: code, Summary: &sum}))
	return code
}

func (s *session) write(results ...report.Result) {
	for _, r := range results {
		s.a.logWrite(s.mgr.Write(r))
	}
}

func (s *session) close() {
	if err := s.mgr.Close(); err != nil {
		s.a.log.Warn().Err(err).Msg("closing output")
	}
}

func (a *app) logWrite(err error) {
	if err != nil {
		a.log.Warn().Err(err).Msg("writing output")
	}
}

// probers builds one GitHub client per remote host, resolving a token for
// each.
func (a *app) probers() doctor.ProberFactory {
	if a.newProbers != nil {
		return a.newProbers()
	}
	return func(ctx context.Context, host string) (doctor.Prober, error) {
		tok, src, err := gh.ResolveAuthToken(ctx, host, "")
		if err != nil {
			return nil, fmt.Errorf("resolve token: %w", err)
		}
		a.log.Debug().Str("host", host).Str("token_source", string(src)).Msg("github client")
		opts := []gh.Option{gh.WithTimeout(a.cfg.Runtime.CommandTimeout)}
		if a.cfg.Runtime.Verbose {
			opts = append(opts, gh.WithLogger(a.log))
		}
		switch {
		case a.cfg.GitHub.APIURL != "":
			opts = append(opts, gh.WithBaseURL(a.cfg.GitHub.APIURL))
		case host != gh.DefaultHost:
			opts = append(opts, gh.WithBaseURL("https://"+host))
		}
		return gh.NewClient(ctx, tok, opts...)
	}
}

// apiHost is the host named by --github-api, probed alongside github.com.
func (a *app) apiHost() string {
	raw := a.cfg.GitHub.APIURL
	if raw == "" {
		return ""
	}
	raw = strings.TrimPrefix(strings.TrimPrefix(raw, "https://"), "http://")
	if i := strings.IndexAny(raw, "/:"); i >= 0 {
		raw = raw[:i]
	}
	return raw
}
