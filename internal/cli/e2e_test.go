package cli

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"4d63.com/testcli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitsync/internal/report"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not on PATH")
	}
	home := testcli.MkdirTemp(t)
	t.Setenv("HOME", home)
	t.Setenv("GIT_CONFIG_NOSYSTEM", "1")
	testcli.Exec(t, "git config --global init.defaultBranch master")
}

func gitOutput(t *testing.T, args ...string) string {
	t.Helper()
	out, err := exec.Command("git", args...).CombinedOutput()
	require.NoError(t, err, string(out))
	return string(out)
}

func TestRun_RealGitRoundTrip(t *testing.T) {
	requireGit(t)

	remote := filepath.Join(testcli.MkdirTemp(t), "world.git")
	gitOutput(t, "init", "--bare", remote)

	root := testcli.MkdirTemp(t)
	world := filepath.Join(root, "world")
	require.NoError(t, os.Mkdir(world, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(world, "plugin.yml"), []byte("name: world\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(world, "debug.log"), []byte("noise\n"), 0o644))

	cfgPath := filepath.Join(root, "gitsync.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(fmt.Sprintf(`
scenario: ALL
repositories:
  world:
    enabled: true
    remote: %s
    exclude: ["*.log"]
`, remote)), 0o644))

	stdout, stderr, code := execute(t, testApp(nil), "--config", cfgPath, "run")
	require.Equal(t, report.ExitOK, code, "stdout=%s stderr=%s", stdout, stderr)
	assert.Contains(t, stdout, "[CONVERGED] world (init)")
	assert.Contains(t, stdout, "[CONVERGED] world (link)")
	assert.Contains(t, stdout, "[CONVERGED] world (cycle): created remote branch and linked upstream")

	log := gitOutput(t, "--git-dir", remote, "log", "--format=%s %an", "master")
	assert.Contains(t, log, "[server update] GitSync")
	files := gitOutput(t, "--git-dir", remote, "ls-tree", "--name-only", "master")
	assert.Contains(t, files, "plugin.yml")
	assert.Contains(t, files, ".gitignore")
	assert.NotContains(t, files, "debug.log")

	// A local edit is committed and pushed on the next cycle.
	require.NoError(t, os.WriteFile(filepath.Join(world, "plugin.yml"), []byte("name: world2\n"), 0o644))
	stdout, stderr, code = execute(t, testApp(nil), "--config", cfgPath, "run")
	require.Equal(t, report.ExitOK, code, "stdout=%s stderr=%s", stdout, stderr)
	assert.Contains(t, stdout, "[CONVERGED] world (cycle)")

	log = gitOutput(t, "--git-dir", remote, "log", "--oneline", "master")
	assert.Len(t, strings.Split(strings.TrimSpace(log), "\n"), 2)

	stdout, _, code = execute(t, testApp(nil), "--config", cfgPath, "status")
	assert.Equal(t, report.ExitOK, code, stdout)
	assert.Contains(t, stdout, "[PASS] world (status): clean at")
}

func repoRoot(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	// internal/cli -> repo root
	return filepath.Clean(filepath.Join(wd, "..", ".."))
}

func buildBinary(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("builds the binary")
	}
	outPath := filepath.Join(t.TempDir(), "gitsync-test")
	if runtime.GOOS == "windows" {
		outPath += ".exe"
	}
	cmd := exec.Command("go", "build", "-o", outPath, "./cmd/gitsync")
	cmd.Dir = repoRoot(t)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("failed to build gitsync binary: %v; output=%s", err, string(out))
	}
	return outPath
}

func TestBinary_ExitCode3_WhenConfigMissing(t *testing.T) {
	binary := buildBinary(t)
	cmd := exec.Command(binary, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "run")

	out, err := cmd.CombinedOutput()
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected ExitError, got %T: %v; output=%s", err, err, string(out))
	}
	if code := exitErr.ProcessState.ExitCode(); code != 3 {
		t.Fatalf("expected exit code 3, got %d; output=%s", code, string(out))
	}
	if !strings.Contains(string(out), "config load failed") {
		t.Fatalf("expected load error; output=%s", string(out))
	}
}

func TestBinary_Version(t *testing.T) {
	binary := buildBinary(t)
	out, err := exec.Command(binary, "version").CombinedOutput()
	if err != nil {
		t.Fatalf("version failed: %v; output=%s", err, string(out))
	}
	if !strings.HasPrefix(string(out), "gitsync dev\n") {
		t.Fatalf("unexpected version output: %q", string(out))
	}
}
