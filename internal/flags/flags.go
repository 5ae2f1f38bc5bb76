// Package flags defines canonical CLI flag names shared across commands.
// Names are without leading dashes:
//
//	cmd.Flags().StringVar(&cfg.Sync.Scenario, flags.FlagScenario, "", "...")
//	arg := "--" + flags.FlagScenario
package flags

const (
	// Sync
	FlagConfig   = "config"
	FlagScenario = "scenario"
	FlagInterval = "interval"
	FlagAs       = "as"

	// Output
	FlagConsoleFormat       = "console-format"
	FlagConsoleFilterStatus = "console-filter-status"
	FlagShowOutput          = "show-output"
	FlagReport              = "report"
	FlagOut                 = "out"
	FlagOutFormat           = "out-format"
	FlagEmit                = "emit"
	FlagNoConsole           = "no-console"

	// Runtime
	FlagGit            = "git"
	FlagCommandTimeout = "command-timeout"
	FlagVerbose        = "verbose"
	FlagQuiet          = "quiet"

	// GitHub
	FlagGitHubAPI = "github-api"
	FlagOffline   = "offline"

	// Listing
	FlagNamesOnly = "names-only"
)
