package cli

import (
	"github.com/spf13/cobra"

	"gitsync/internal/inspect"
	"gitsync/internal/report"
)

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status [repo...]",
		Short: "Show each working tree's branch, changes and remote state",
		Long: `Read each repository directly (no git subprocess, no index refresh) and
report its branch, pending changes, linked remotes and whether HEAD matches
the last known state of the remote branch.

Remote state is as of the last fetch or push; status never contacts the
remote.`,
		ValidArgsFunction: a.completeRepoName,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := a.load()
			if err != nil {
				return fatal(err)
			}
			repos, err := ws.selectRepos(args)
			if err != nil {
				return fatal(err)
			}
			s, err := a.startSession(ws.scenario, len(repos))
			if err != nil {
				return fatal(err)
			}
			defer s.close()

			results := make([]report.Result, 0, len(repos))
			for _, r := range repos {
				res := inspect.Result(r)
				results = append(results, res)
				s.write(res)
			}
			return exitCode(s.end(results))
		},
	}
}
