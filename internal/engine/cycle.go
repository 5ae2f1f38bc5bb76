package engine

import (
	"context"
	"fmt"

	"gitsync/internal/output"
	"gitsync/internal/repo"
	"gitsync/internal/report"
)

const OperationCycle = "cycle"

// CycleSummary is the outcome of one scheduled pass over the registry.
type CycleSummary struct {
	Scenario     Scenario
	Results      []report.Result
	Converged    int
	NotConverged int
	Skipped      int
	// Interrupted is set when the context ended before every record ran.
	Interrupted bool
}

func (s *CycleSummary) add(r report.Result) {
	s.Results = append(s.Results, r)
	switch r.Status {
	case report.StatusConverged:
		s.Converged++
	case report.StatusSkipped:
		s.Skipped++
	default:
		s.NotConverged++
	}
}

func (s CycleSummary) ExitCode() int {
	return report.ExitCode(false, report.Summarize(s.Results))
}

// RunScheduledCycle stages and commits every enabled, created record and
// applies the scenario to those with a remote. Records are processed in
// order; ctx is checked before each one.
func (e *Engine) RunScheduledCycle(ctx context.Context, repos []*repo.Repository, scenario Scenario) CycleSummary {
	if scenario == "" {
		scenario = DefaultScenario
	}
	sum := CycleSummary{Scenario: scenario}
	e.log.Info().Str("scenario", string(scenario)).Int("repos", len(repos)).Msg("sync cycle started")

	for i, r := range repos {
		if err := ctx.Err(); err != nil {
			sum.Interrupted = true
			e.log.Warn().Err(err).Int("remaining", len(repos)-i).Msg("sync cycle interrupted")
			break
		}
		if reason, skip := skipReason(r); skip {
			res := report.Skipped(r.Name, OperationCycle, reason)
			log := e.repoLog(r)
			log.Debug().Msg("skipped: " + reason)
			sum.add(res)
			e.emit(res)
			continue
		}

		e.emit(output.Event{Type: output.EventRepoStarted, Repo: r.Name})
		res := e.syncRecord(ctx, r, scenario)
		sum.add(res)
		e.emit(res)
		e.emit(output.Event{Type: output.EventRepoFinished, Repo: r.Name})
	}

	e.log.Info().
		Int("converged", sum.Converged).
		Int("not_converged", sum.NotConverged).
		Int("skipped", sum.Skipped).
		Msg("sync cycle finished")
	return sum
}

func skipReason(r *repo.Repository) (string, bool) {
	switch {
	case !r.Enabled:
		return "disabled", true
	case !r.DirectoryExists():
		return "directory missing", true
	case !r.LocalRepoCreated:
		return "local repository not initialized", true
	}
	return "", false
}

func (e *Engine) syncRecord(ctx context.Context, r *repo.Repository, scenario Scenario) report.Result {
	e.Stage(ctx, r)
	committed := e.Commit(ctx, r, e.commitTag)

	if !r.Remote.IsSet() {
		msg := "nothing to commit, no remote"
		if committed {
			msg = "committed locally, no remote"
		}
		return report.Converged(r.Name, OperationCycle, msg)
	}

	switch scenario {
	case ScenarioFavorable:
		return e.favorable(ctx, r).result(r, OperationCycle)
	case ScenarioForce:
		return e.force(ctx, r).result(r, OperationCycle)
	default:
		fav := e.favorable(ctx, r)
		if fav.Converged {
			return fav.result(r, OperationCycle)
		}
		forced := e.force(ctx, r)
		forced.Lines = append(fav.Lines, forced.Lines...)
		forced.Reason = fmt.Sprintf("favorable sync failed (%s); %s", fav.Reason, forced.Reason)
		return forced.result(r, OperationCycle)
	}
}
