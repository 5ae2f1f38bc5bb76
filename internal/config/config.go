package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gitsync/internal/engine"
	"gitsync/internal/output"
)

// DefaultPath is looked up in the working directory when --config is unset.
const DefaultPath = "gitsync.yaml"

type Config struct {
	// MAINTAINER NOTE: flags bound to these fields live in internal/cli/root.go
	// and the per-command files; keep names aligned with internal/flags.
	Sync    Sync
	Output  Output
	Runtime Runtime
	GitHub  GitHub
}

type Sync struct {
	// ConfigPath is the repository file to load (see --config).
	ConfigPath string

	// Scenario overrides the file's scenario for this run (see --scenario).
	// Empty keeps the file value.
	Scenario string

	// Interval > 0 keeps `run` cycling on a timer (see --interval).
	// Zero means a single cycle unless the file sets one and --interval is
	// not given.
	Interval time.Duration

	// Applier names the operator for on-demand operations (see --as).
	Applier string
}

type Output struct {
	// ConsoleFormat controls the human-facing console sink format (see --console-format).
	// Allowed values: text, json, ndjson.
	ConsoleFormat string

	// ConsoleFilterStatus filters console output by result status (see --console-filter-status).
	ConsoleFilterStatus []string

	// ShowOutput prints raw git output under text results (see --show-output).
	ShowOutput bool

	// Report writes a Markdown report to this path (see --report).
	Report string

	// Out writes structured output to this path (see --out).
	Out string

	// OutFormat selects the format for --out. Empty infers it from the extension.
	OutFormat string

	// Emit writes an additional structured event stream to stdout (see --emit).
	Emit []string

	// NoConsole suppresses the console sink (see --no-console).
	NoConsole bool
}

type Runtime struct {
	// Git is the git executable (see --git).
	Git string

	// CommandTimeout bounds each git invocation (see --command-timeout).
	CommandTimeout time.Duration

	// Verbose lowers the log level to debug.
	Verbose bool

	// Quiet demotes git output lines to debug. Overrides the file's quiet.
	Quiet bool
}

type GitHub struct {
	// APIURL points doctor at a GitHub Enterprise or test server.
	APIURL string
	// Offline disables GitHub probes in doctor.
	Offline bool
}

func New() *Config {
	return &Config{
		Sync: Sync{
			ConfigPath: DefaultPath,
		},
		Output: Output{
			ConsoleFormat: "text",
		},
		Runtime: Runtime{
			Git:            "git",
			CommandTimeout: 10 * time.Minute,
		},
	}
}

var allowedStatuses = []string{"CONVERGED", "MANUAL", "SKIPPED", "UNKNOWN", "REJECTED", "ERROR", "PASS", "WARN", "FAIL"}

func (c *Config) Validate() error {
	c.Sync.ConfigPath = strings.TrimSpace(c.Sync.ConfigPath)
	if c.Sync.ConfigPath == "" {
		return errors.New("--config must not be empty")
	}

	if c.Sync.Scenario != "" {
		sc, err := engine.ParseScenario(c.Sync.Scenario)
		if err != nil {
			return fmt.Errorf("invalid --scenario: %w", err)
		}
		c.Sync.Scenario = string(sc)
	}
	if c.Sync.Interval < 0 {
		return errors.New("--interval must be >= 0")
	}
	c.Sync.Applier = strings.TrimSpace(c.Sync.Applier)

	c.Output.ConsoleFormat = normalizeEnumValue(c.Output.ConsoleFormat)
	switch c.Output.ConsoleFormat {
	case "text", "json", "ndjson":
	case "":
		return errors.New("--console-format must be one of: text, json, ndjson")
	default:
		return fmt.Errorf("unsupported --console-format: %s (must be one of: text, json, ndjson)", c.Output.ConsoleFormat)
	}

	c.Output.ConsoleFilterStatus = splitCommaList(c.Output.ConsoleFilterStatus)
	for i, st := range c.Output.ConsoleFilterStatus {
		up := strings.ToUpper(st)
		if !contains(allowedStatuses, up) {
			return fmt.Errorf("unsupported --console-filter-status: %s (must be one of: %s)", st, strings.Join(allowedStatuses, ", "))
		}
		c.Output.ConsoleFilterStatus[i] = up
	}

	c.Output.Emit = splitCommaList(c.Output.Emit)
	for i, emit := range c.Output.Emit {
		v := normalizeEnumValue(emit)
		if v != "json" && v != "ndjson" {
			return fmt.Errorf("unsupported --emit value: %s (must be one of: json, ndjson)", emit)
		}
		c.Output.Emit[i] = v
	}

	if c.Output.Out != "" {
		c.Output.OutFormat = normalizeEnumValue(c.Output.OutFormat)
		if c.Output.OutFormat == "" {
			f, err := output.InferFormat(c.Output.Out)
			if err != nil {
				return fmt.Errorf("%w; use --out-format", err)
			}
			c.Output.OutFormat = f
		} else if c.Output.OutFormat != "json" && c.Output.OutFormat != "ndjson" {
			return fmt.Errorf("unsupported output format: %s", c.Output.OutFormat)
		}
	}

	c.Runtime.Git = strings.TrimSpace(c.Runtime.Git)
	if c.Runtime.Git == "" {
		c.Runtime.Git = "git"
	}
	if c.Runtime.CommandTimeout <= 0 {
		return errors.New("--command-timeout must be > 0")
	}
	return nil
}

func normalizeEnumValue(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func splitCommaList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			p := strings.TrimSpace(part)
			if p == "" {
				continue
			}
			out = append(out, p)
		}
	}
	return out
}
