package cli

import (
	"context"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"gitsync/internal/config"
	"gitsync/internal/engine"
	"gitsync/internal/flags"
	"gitsync/internal/repo"
	"gitsync/internal/report"
)

type onDemandOp func(e *engine.Engine, ctx context.Context, reg *repo.Registry, req engine.Request) (report.Result, error)

func newPushCmd(a *app) *cobra.Command {
	return a.onDemandCmd(&cobra.Command{
		Use:   "push <repo> [message...]",
		Short: "Commit local changes and force-push them to the remote",
		Long: `Stage and commit everything in the repository, then force-push the branch,
overwriting the remote. The commit message is the commit tag followed by
the optional message words.

Examples:
	gitsync push MyPlugin
	gitsync push MyPlugin reverted config after bad deploy --as alice`,
		Args: cobra.MinimumNArgs(1),
	}, (*engine.Engine).ForcePushRepo)
}

func newPullCmd(a *app) *cobra.Command {
	return a.onDemandCmd(&cobra.Command{
		Use:   "pull <repo>",
		Short: "Commit local changes and merge the remote branch",
		Long: `Stage and commit everything in the repository, then pull the remote branch.
A conflicting merge is aborted and reported; nothing is forced.`,
		Args: cobra.ExactArgs(1),
	}, (*engine.Engine).PullRepo)
}

func newSyncCmd(a *app) *cobra.Command {
	return a.onDemandCmd(&cobra.Command{
		Use:   "sync <repo> [message...]",
		Short: "Commit local changes and run a favorable sync",
		Long: `Stage and commit everything in the repository, then pull, merge and push
without ever overwriting the remote. Anything that does not converge is
reported as needing manual intervention.`,
		Args: cobra.MinimumNArgs(1),
	}, (*engine.Engine).SyncRepo)
}

func (a *app) onDemandCmd(cmd *cobra.Command, op onDemandOp) *cobra.Command {
	cmd.ValidArgsFunction = a.completeRepoName
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		ws, err := a.load()
		if err != nil {
			return fatal(err)
		}
		req := engine.Request{
			Name:    args[0],
			Applier: a.cfg.Sync.Applier,
			Message: strings.TrimSpace(strings.Join(args[1:], " ")),
		}

		s, err := a.startSession(ws.scenario, 1)
		if err != nil {
			return fatal(err)
		}
		defer s.close()

		res, err := op(a.engine(ws, s.mgr), cmd.Context(), ws.registry, req)
		if err != nil {
			a.log.Warn().Err(err).Str("applier", req.Applier).Str("operation", cmd.Name()).Msg("request rejected")
			rej := report.Rejected(req.Name, cmd.Name(), err.Error())
			rej.Applier = req.Applier
			s.write(rej)
			s.endWith(report.Summarize([]report.Result{rej}), report.ExitFatal)
			return &ExitError{Code: report.ExitFatal}
		}
		return exitCode(s.end([]report.Result{res}))
	}
	cmd.Flags().StringVar(&a.cfg.Sync.Applier, flags.FlagAs, defaultApplier(), "Name recorded as the applier in logs and results")
	return cmd
}

func defaultApplier() string {
	for _, k := range []string{"USER", "USERNAME", "LOGNAME"} {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return "console"
}

// completeRepoName completes the first argument from the configuration file.
func (a *app) completeRepoName(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	f, err := config.Load(a.cfg.Sync.ConfigPath)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp | cobra.ShellCompDirectiveError
	}
	var out []string
	for _, n := range f.Names() {
		if strings.HasPrefix(n, toComplete) {
			out = append(out, n)
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}
