// Package doctor diagnoses repository records without changing them:
// local directory and metadata checks, ignore file drift, and read-only
// GitHub probes of the configured remote.
package doctor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"gitsync/internal/engine"
	gh "gitsync/internal/github"
	"gitsync/internal/ignore"
	"gitsync/internal/repo"
	"gitsync/internal/report"
)

const (
	OperationLocal  = "doctor.local"
	OperationRemote = "doctor.remote"

	defaultConcurrency = 4
)

type Doctor struct {
	log         zerolog.Logger
	scenario    engine.Scenario
	probes      *probeCache
	hosts       map[string]bool
	concurrency int
}

type Option func(*Doctor)

func WithLogger(l zerolog.Logger) Option {
	return func(d *Doctor) { d.log = l }
}

// WithScenario enables the force-push protection warning for FORCE and ALL.
func WithScenario(s engine.Scenario) Option {
	return func(d *Doctor) { d.scenario = s }
}

// WithProbers enables remote checks. hosts lists extra GitHub Enterprise
// hosts; github.com is always probed.
func WithProbers(f ProberFactory, hosts ...string) Option {
	return func(d *Doctor) {
		d.probes = newProbeCache(f)
		for _, h := range hosts {
			if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
				d.hosts[h] = true
			}
		}
	}
}

func WithConcurrency(n int) Option {
	return func(d *Doctor) {
		if n > 0 {
			d.concurrency = n
		}
	}
}

func New(opts ...Option) *Doctor {
	d := &Doctor{
		log:         zerolog.Nop(),
		scenario:    engine.DefaultScenario,
		hosts:       map[string]bool{gh.DefaultHost: true},
		concurrency: defaultConcurrency,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Check diagnoses repos and returns their results in input order, local
// check first. Remote probes run concurrently; records sharing a remote
// are probed once.
func (d *Doctor) Check(ctx context.Context, repos []*repo.Repository) []report.Result {
	remote := make([]*report.Result, len(repos))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)
	for i, r := range repos {
		if d.probes == nil || !r.Syncable() {
			continue
		}
		i, r := i, r
		g.Go(func() error {
			res := d.checkRemote(gctx, r)
			remote[i] = &res
			return nil
		})
	}
	_ = g.Wait()

	out := make([]report.Result, 0, 2*len(repos))
	for i, r := range repos {
		out = append(out, d.checkLocal(r))
		if remote[i] != nil {
			out = append(out, *remote[i])
		}
	}
	return out
}

func (d *Doctor) checkLocal(r *repo.Repository) report.Result {
	res := report.New(r.Name, OperationLocal, report.StatusPass, "")
	res.Evidence = map[string]string{
		"directory": r.Directory,
		"enabled":   fmt.Sprint(r.Enabled),
		"remote":    r.Remote.String(),
		"upstream":  r.Upstream,
		"branch":    r.Branch,
	}

	var warns []string
	switch {
	case !r.DirectoryExists():
		res.Status = report.StatusFail
		res.Message = "directory missing"
		return res
	case !r.HasMetadata():
		warns = append(warns, "local repository not initialized, run prepare")
	}
	if !r.Enabled {
		warns = append(warns, "disabled")
	} else if !r.Remote.IsSet() {
		warns = append(warns, "no remote, changes are committed locally only")
	}
	if ok, err := ignore.Current(r); err != nil {
		warns = append(warns, err.Error())
	} else if !ok {
		warns = append(warns, ignore.FileName+" out of date, run prepare")
	}

	if len(warns) > 0 {
		res.Status = report.StatusWarn
		res.Message = strings.Join(warns, "; ")
		return res
	}
	res.Message = "ok"
	return res
}

func (d *Doctor) checkRemote(ctx context.Context, r *repo.Repository) report.Result {
	res := report.New(r.Name, OperationRemote, report.StatusPass, "")
	url, _ := r.Remote.URL()

	slug, err := gh.ParseRemote(url)
	if errors.Is(err, gh.ErrUnparsableRemote) {
		res.Status = report.StatusSkipped
		res.Message = "remote is not a hosted repository"
		return res
	}
	if !d.hosts[slug.Host] {
		res.Status = report.StatusSkipped
		res.Message = fmt.Sprintf("remote host %s is not GitHub", slug.Host)
		return res
	}
	res.Evidence = map[string]string{"github": slug.Host + "/" + slug.String()}

	log := d.log.With().Str("repo", r.Name).Str("github", slug.String()).Logger()
	log.Debug().Msg("probing remote")
	info, err := d.probes.inspect(ctx, slug, r.Branch)
	if err != nil {
		res.Status = report.StatusFail
		if gh.IsNotFound(err) {
			res.Message = fmt.Sprintf("%s not found or not accessible with the current token", slug)
		} else {
			res.Message = gh.PresentError(err)
		}
		log.Debug().Err(err).Msg("probe failed")
		return res
	}

	res.Evidence["default_branch"] = info.DefaultBranch
	res.Evidence["private"] = fmt.Sprint(info.Private)
	var warns []string
	if info.Archived {
		res.Status = report.StatusFail
		res.Message = "remote repository is archived, pushes will be rejected"
		return res
	}
	if !info.BranchExists {
		warns = append(warns, fmt.Sprintf("branch %s does not exist yet, the first push creates it", r.Branch))
	} else if info.Protected {
		res.Evidence["protected"] = "true"
		forces := d.scenario == engine.ScenarioForce || d.scenario == engine.ScenarioAll
		switch {
		case !info.ProtectionKnown:
			warns = append(warns, "branch is protected, rules unreadable: "+info.ProtectionReason)
		case info.RequiresReviews:
			warns = append(warns, "branch requires pull request reviews, direct pushes will be rejected")
		case forces && !info.AllowsForcePush:
			warns = append(warns, fmt.Sprintf("branch protection blocks force pushes used by %s", d.scenario))
		}
	}
	if info.DefaultBranch != "" && info.DefaultBranch != r.Branch {
		res.Evidence["note"] = fmt.Sprintf("syncs %s, default branch is %s", r.Branch, info.DefaultBranch)
	}

	if len(warns) > 0 {
		res.Status = report.StatusWarn
		res.Message = strings.Join(warns, "; ")
		return res
	}
	res.Message = "reachable"
	return res
}
