package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"gitsync/internal/config"
	"gitsync/internal/doctor"
	"gitsync/internal/flags"
	"gitsync/internal/gitexec"
	"gitsync/internal/logging"
	"gitsync/internal/report"
)

var (
	buildVersion = "dev"
	buildCommit  = "unknown"
	buildDate    = "unknown"
)

// ExitError carries a process exit code out of a command.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit code %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

func fatal(err error) error {
	return &ExitError{Code: report.ExitFatal, Err: err}
}

func exitCode(code int) error {
	if code == report.ExitOK {
		return nil
	}
	return &ExitError{Code: code}
}

// app is the state shared by one command tree.
type app struct {
	cfg *config.Config
	log zerolog.Logger

	// Overridable in tests.
	newRunner  func() gitexec.Runner
	newProbers func() doctor.ProberFactory
	stdout     io.Writer
}

func (a *app) out() io.Writer {
	if a.stdout != nil {
		return a.stdout
	}
	return os.Stdout
}

// NewRootCmd builds the full command tree with fresh configuration.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{cfg: config.New()})
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "gitsync",
		Short: "Keep a directory of working trees committed and in step with their remotes",
		Long: `gitsync commits local changes in a set of working trees and reconciles
each one with its remote branch by running git and acting on its output.

Repositories are listed in a configuration file (gitsync.yaml or
gitsync.toml). Each one is a directory under the configured root.

Examples:
	# Create or repair the configuration from the directories under the root
	gitsync config init

	# Run one scheduled cycle
	gitsync run

	# Keep cycling every 24 hours
	gitsync run --interval 24h

	# Force-push one repository now
	gitsync push MyPlugin "hotfix for spawn protection"

Output:
	By default, commands write human-readable results to stdout and logs to stderr.
	Structured output is available via --console-format, --emit and --out.

Exit codes:
	0 = every repository converged (or every check passed)
	1 = manual intervention required (conflicts, rejected pushes, failed checks)
	2 = partial failure (errors or unrecognized git output)
	3 = fatal error (did not run)`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.Validate(); err != nil {
				return fatal(err)
			}
			a.log = logging.New(logging.Options{
				Out:       cmd.ErrOrStderr(),
				Level:     logging.DefaultOptions(a.cfg.Runtime.Verbose).Level,
				Timestamp: true,
			})
			if a.stdout == nil {
				a.stdout = cmd.OutOrStdout()
			}
			return nil
		},
	}
	root.Version = fmt.Sprintf("%s (%s) %s", buildVersion, buildCommit, buildDate)
	root.SetVersionTemplate("{{.Version}}\n")

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfg.Sync.ConfigPath, flags.FlagConfig, a.cfg.Sync.ConfigPath, "Repository configuration file (.yaml, .yml or .toml)")
	pf.BoolVar(&a.cfg.Runtime.Verbose, flags.FlagVerbose, false, "Enable debug logging (every git command and GitHub API call)")
	pf.BoolVar(&a.cfg.Runtime.Quiet, flags.FlagQuiet, false, "Log git output at debug level only (overrides the file's quiet)")
	pf.StringVar(&a.cfg.Runtime.Git, flags.FlagGit, a.cfg.Runtime.Git, "git executable")
	pf.DurationVar(&a.cfg.Runtime.CommandTimeout, flags.FlagCommandTimeout, a.cfg.Runtime.CommandTimeout, "Deadline for a single git command")

	pf.StringVar(&a.cfg.Output.ConsoleFormat, flags.FlagConsoleFormat, "text", "Console output format: text|json|ndjson")
	pf.StringSliceVar(&a.cfg.Output.ConsoleFilterStatus, flags.FlagConsoleFilterStatus, nil, "Only print results with these statuses (comma-separated)")
	pf.BoolVar(&a.cfg.Output.ShowOutput, flags.FlagShowOutput, false, "Print raw git output under each text result")
	pf.StringVar(&a.cfg.Output.Report, flags.FlagReport, "", "Write a Markdown report to this path")
	pf.StringVar(&a.cfg.Output.Out, flags.FlagOut, "", "Write structured output to this path")
	pf.StringVar(&a.cfg.Output.OutFormat, flags.FlagOutFormat, "", "Structured output format for --out: json|ndjson (default: inferred from file extension)")
	pf.StringSliceVar(&a.cfg.Output.Emit, flags.FlagEmit, nil, "Emit an additional structured stream to stdout: json|ndjson")
	pf.BoolVar(&a.cfg.Output.NoConsole, flags.FlagNoConsole, false, "Suppress console output (use with --emit/--out/--report)")

	root.AddCommand(
		newRunCmd(a),
		newPrepareCmd(a),
		newPushCmd(a),
		newPullCmd(a),
		newSyncCmd(a),
		newReposCmd(a),
		newDoctorCmd(a),
		newStatusCmd(a),
		newConfigCmd(a),
		newVersionCmd(),
	)
	return root
}

func SetBuildInfo(version, commit, date string) {
	if version != "" {
		buildVersion = version
	}
	if commit != "" {
		buildCommit = commit
	}
	if date != "" {
		buildDate = date
	}
}

func BuildInfo() (version, commit, date string) {
	return buildVersion, buildCommit, buildDate
}

// Execute runs the command line and exits with the command's code.
func Execute() {
	os.Exit(run(NewRootCmd(), os.Args[1:], os.Stderr))
}

func run(root *cobra.Command, args []string, stderr io.Writer) int {
	root.SetArgs(args)
	err := root.Execute()
	if err == nil {
		return report.ExitOK
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		if ee.Err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", ee.Err)
		}
		return ee.Code
	}
	// Usage errors from cobra: nothing ran.
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return report.ExitFatal
}
