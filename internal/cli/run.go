package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"gitsync/internal/flags"
	"gitsync/internal/report"
)

func newRunCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Prepare repositories and run the scheduled sync cycle",
		Long: `Prepare every repository (init, link remote, regenerate .gitignore), then
stage, commit and reconcile each enabled repository with its remote using
the configured scenario.

Scenarios:
	FAVORABLE  pull and merge, then push; never overwrites the remote
	FORCE      force-push the local branch; never pulls
	ALL        try FAVORABLE, force-push only when it fails (default)

With --interval (or interval in the configuration file) the command keeps
running and repeats the cycle on every tick. SIGINT and SIGTERM stop it
between repositories; SIGHUP reloads the configuration and prepares again
before the next cycle.

Examples:
	gitsync run
	gitsync run --scenario favorable
	gitsync run --interval 24h --report sync.md`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			hup := make(chan os.Signal, 1)
			notifyReload(hup)
			defer signal.Stop(hup)

			return a.runLoop(ctx, cmd.Flags().Changed(flags.FlagInterval), hup)
		},
	}
	cmd.Flags().StringVar(&a.cfg.Sync.Scenario, flags.FlagScenario, "", "Override the file's scenario: FAVORABLE|FORCE|ALL")
	cmd.Flags().DurationVar(&a.cfg.Sync.Interval, flags.FlagInterval, 0, "Repeat the cycle at this interval (0 = run once)")
	return cmd
}

// runLoop runs Prepare and one cycle, then repeats the cycle every interval
// until ctx ends. The exit code is the last cycle's.
func (a *app) runLoop(ctx context.Context, intervalFlagSet bool, hup <-chan os.Signal) error {
	ws, err := a.load()
	if err != nil {
		return fatal(err)
	}
	interval := a.cfg.Sync.Interval
	if !intervalFlagSet {
		interval = ws.file.IntervalValue()
	}

	code, err := a.cycle(ctx, ws, true)
	if err != nil {
		return fatal(err)
	}
	if interval <= 0 {
		return exitCode(code)
	}

	a.log.Info().Dur("interval", interval).Msg("waiting for next cycle")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	prepare := false
	for {
		select {
		case <-ctx.Done():
			a.log.Info().Msg("stopping")
			return exitCode(code)
		case <-hup:
			next, err := a.load()
			if err != nil {
				a.log.Error().Err(err).Msg("reload failed, keeping previous configuration")
				continue
			}
			ws, prepare = next, true
			a.log.Info().Int("repos", ws.registry.Len()).Msg("configuration reloaded")
		case <-ticker.C:
			c, err := a.cycle(ctx, ws, prepare)
			if err != nil {
				a.log.Error().Err(err).Msg("cycle did not run")
				continue
			}
			code, prepare = c, false
		}
	}
}

// cycle runs one scheduled pass in its own output session.
func (a *app) cycle(ctx context.Context, ws *workspace, prepare bool) (int, error) {
	s, err := a.startSession(ws.scenario, ws.registry.Len())
	if err != nil {
		return report.ExitFatal, err
	}
	defer s.close()

	eng := a.engine(ws, s.mgr)
	var results []report.Result
	if prepare {
		results = append(results, eng.Prepare(ctx, ws.registry)...)
	}
	sum := eng.RunScheduledCycle(ctx, ws.registry.All(), ws.scenario)
	results = append(results, sum.Results...)
	return s.end(results), nil
}
