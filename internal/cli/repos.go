package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"gitsync/internal/flags"
	"gitsync/internal/repo"
)

func newReposCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repos",
		Short: "List and show configured repositories",
		Long: `Inspect the repositories listed in the configuration file.

Examples:
	gitsync repos list
	gitsync repos list -q
	gitsync repos show MyPlugin`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	var namesOnly bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List configured repositories",
		Long: `List configured repositories in configuration order.

Columns: name, state (enabled, disabled or missing), created, remote, and
upstream/branch.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := a.load()
			if err != nil {
				return fatal(err)
			}
			if namesOnly {
				for _, r := range ws.registry.All() {
					fmt.Fprintln(a.out(), r.Name)
				}
				return nil
			}
			printRepoTable(a.out(), ws.registry.All())
			return nil
		},
	}
	list.Flags().BoolVarP(&namesOnly, flags.FlagNamesOnly, "q", false, "Only print repository names")

	show := &cobra.Command{
		Use:               "show <repo>",
		Short:             "Show one repository's resolved settings",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: a.completeRepoName,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := a.load()
			if err != nil {
				return fatal(err)
			}
			sel, err := ws.selectRepos(args)
			if err != nil {
				return fatal(err)
			}
			printRepo(a.out(), sel[0])
			return nil
		},
	}

	cmd.AddCommand(list, show)
	return cmd
}

func repoState(r *repo.Repository) string {
	switch {
	case !r.DirectoryExists():
		return color.RedString("missing")
	case r.Enabled:
		return color.GreenString("enabled")
	default:
		return color.YellowString("disabled")
	}
}

func printRepoTable(w io.Writer, repos []*repo.Repository) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSTATE\tCREATED\tREMOTE\tTRACKS")
	for _, r := range repos {
		fmt.Fprintf(tw, "%s\t%s\t%v\t%s\t%s/%s\n", r.Name, repoState(r), r.LocalRepoCreated, r.Remote, r.Upstream, r.Branch)
	}
	_ = tw.Flush()
}

func printRepo(w io.Writer, r *repo.Repository) {
	bold := color.New(color.Bold)
	fmt.Fprintln(w, "----------------------------------------")
	bold.Fprintf(w, "REPOSITORY: %s\n", r.Name)
	fmt.Fprintln(w, "----------------------------------------")
	fmt.Fprintf(w, "Directory: %s\n", r.Directory)
	fmt.Fprintf(w, "State:     %s\n", repoState(r))
	fmt.Fprintf(w, "Created:   %v\n", r.LocalRepoCreated)
	fmt.Fprintf(w, "Remote:    %s\n", r.Remote)
	fmt.Fprintf(w, "Tracks:    %s/%s\n", r.Upstream, r.Branch)
	fmt.Fprintf(w, "Identity:  %s <%s>\n", r.Username, r.Email)
	if len(r.IgnoreList) > 0 {
		fmt.Fprintf(w, "Exclude:   %s\n", strings.Join(r.IgnoreList, ", "))
	}
	fmt.Fprintln(w)
}
