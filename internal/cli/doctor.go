package cli

import (
	"github.com/spf13/cobra"

	"gitsync/internal/doctor"
	"gitsync/internal/flags"
)

func newDoctorCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor [repo...]",
		Short: "Diagnose repositories and their GitHub remotes",
		Long: `Check each repository without changing anything:

	- the directory exists and holds a git repository
	- a remote is configured for enabled repositories
	- .gitignore matches the exclude list
	- for GitHub remotes: the repository is reachable and not archived, the
	  branch exists, and branch protection allows the pushes the scenario needs

GitHub is queried read-only. The token comes from GITHUB_TOKEN, GH_TOKEN or
"gh auth token -h <host>"; without one, public repositories are still probed.

Exit codes:
	0 = every check passed or warned
	1 = at least one check failed`,
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

			opts := []doctor.Option{doctor.WithLogger(a.log), doctor.WithScenario(ws.scenario)}
			if !a.cfg.GitHub.Offline {
				opts = append(opts, doctor.WithProbers(a.probers(), a.apiHost()))
			}

			s, err := a.startSession(ws.scenario, len(repos))
			if err != nil {
				return fatal(err)
			}
			defer s.close()

			results := doctor.New(opts...).Check(cmd.Context(), repos)
			s.write(results...)
			return exitCode(s.end(results))
		},
	}
	cmd.Flags().StringVar(&a.cfg.GitHub.APIURL, flags.FlagGitHubAPI, "", "GitHub Enterprise base URL, e.g. https://ghe.example.com")
	cmd.Flags().BoolVar(&a.cfg.GitHub.Offline, flags.FlagOffline, false, "Skip GitHub probes")
	return cmd
}
