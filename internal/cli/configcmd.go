package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"gitsync/internal/config"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the repository configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	var root string
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create or repair the configuration file",
		Long: `Add a disabled section with no remote for every directory under the root
that has none, then save the file. Existing sections are left as they are.
The file is created when missing; its format follows the extension.

Examples:
	gitsync config init
	gitsync --config /srv/plugins/gitsync.toml config init --root /srv/plugins`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := config.LoadOrInit(a.cfg.Sync.ConfigPath)
			if err != nil {
				return fatal(err)
			}
			if root != "" {
				f.Root = root
			}
			added, err := f.Populate()
			if err != nil {
				return fatal(err)
			}
			if err := f.Save(); err != nil {
				return fatal(err)
			}
			for _, n := range added {
				fmt.Fprintf(a.out(), "added %s (disabled)\n", n)
			}
			fmt.Fprintf(a.out(), "%s: %d repositories, %d added\n", f.Path(), len(f.Repositories), len(added))
			return nil
		},
	}
	initCmd.Flags().StringVar(&root, "root", "", "Directory holding the repositories (default: the configuration file's directory)")

	cmd.AddCommand(initCmd)
	return cmd
}
