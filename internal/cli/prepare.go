package cli

import (
	"github.com/spf13/cobra"
)

func newPrepareCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "prepare",
		Short: "Initialize repositories, link remotes and regenerate .gitignore files",
		Long: `Run only the preparation steps of a cycle:

	1. git init (and set user.name / user.email) in enabled directories
	   without a .git directory
	2. git remote add <upstream> <url> where the upstream is not linked yet
	3. rewrite .gitignore from each repository's exclude list

Nothing is committed, pulled or pushed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := a.load()
			if err != nil {
				return fatal(err)
			}
			s, err := a.startSession(ws.scenario, ws.registry.Len())
			if err != nil {
				return fatal(err)
			}
			defer s.close()

			results := a.engine(ws, s.mgr).Prepare(cmd.Context(), ws.registry)
			return exitCode(s.end(results))
		},
	}
}
