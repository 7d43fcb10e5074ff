package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Stone-IT-Cloud/dailyreport/internal/activityreport"
	"github.com/Stone-IT-Cloud/dailyreport/internal/clierr"
	"github.com/Stone-IT-Cloud/dailyreport/internal/workflow"
)

const conformingSummary = "Morning schedule and work:\n- Login flow\nAfternoon schedule and work:\n- Reviews\nPlanned learning and progress: None"

type testEnv struct {
	root       string
	out        string
	configPath string
}

// newTestEnv writes a config that searches root and writes into out.
func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("GIT_REPO_SEARCH_PATH", "")

	env := testEnv{root: t.TempDir(), out: t.TempDir()}
	env.configPath = filepath.Join(t.TempDir(), "config.yaml")
	content := fmt.Sprintf(`search_paths: [%q]
output_dir: %q
author: alice
logging:
  level: error
workflow:
  enabled: true
  url: https://crm.example.com/login
  username: alice
  password: secret
  manual_wait: 0s
  visible_timeout: 0s
  step_wait: 0s
`, env.root, env.out)
	require.NoError(t, os.WriteFile(env.configPath, []byte(content), 0o600))
	return env
}

func runCLI(t *testing.T, ctx context.Context, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := execute(ctx, args, strings.NewReader(""), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestVersion(t *testing.T) {
	code, stdout, _ := runCLI(t, context.Background(), "version")
	assert.Equal(t, clierr.ExitOK, code)
	assert.Contains(t, stdout, "dailyreport "+Version)
	assert.Contains(t, stdout, "Go Version:")
}

func TestInvalidArguments(t *testing.T) {
	env := newTestEnv(t)

	code, _, stderr := runCLI(t, context.Background(), "--config", env.configPath, "--date", "01/02/2024")
	assert.Equal(t, clierr.ExitFailure, code)
	assert.Contains(t, stderr, "invalid --date")

	code, _, stderr = runCLI(t, context.Background(), "repos", "--config", filepath.Join(env.out, "missing.yaml"))
	assert.Equal(t, clierr.ExitFailure, code)
	assert.Contains(t, stderr, "config file not found")

	code, _, _ = runCLI(t, context.Background(), "unknown-command")
	assert.Equal(t, clierr.ExitFailure, code)
}

func TestRepos(t *testing.T) {
	env := newTestEnv(t)
	for _, dir := range []string{"beta/.git", "alpha/.git", "node_modules/dep/.git", "plain/src"} {
		require.NoError(t, os.MkdirAll(filepath.Join(env.root, dir), 0o755))
	}

	code, stdout, stderr := runCLI(t, context.Background(), "repos", "--config", env.configPath)
	require.Equal(t, clierr.ExitOK, code, stderr)
	assert.Equal(t, filepath.Join(env.root, "alpha")+"\n"+filepath.Join(env.root, "beta")+"\n", stdout)
}

func TestCommitsWithoutRepositories(t *testing.T) {
	env := newTestEnv(t)

	code, stdout, _ := runCLI(t, context.Background(), "commits", "--json", "--config", env.configPath, "--date", "2024-01-01")
	assert.Equal(t, clierr.ExitOK, code)
	assert.Equal(t, "[]\n", stdout)

	code, stdout, _ = runCLI(t, context.Background(), "commits", "--config", env.configPath)
	assert.Equal(t, clierr.ExitOK, code)
	assert.Equal(t, activityreport.NoCommits+"\n", stdout)
}

func TestRunNothingToReport(t *testing.T) {
	env := newTestEnv(t)

	code, stdout, stderr := runCLI(t, context.Background(), "--config", env.configPath, "--date", "2024-01-01")
	require.Equal(t, clierr.ExitOK, code, stderr)
	assert.Contains(t, stdout, "# Daily report - 2024-01-01")
	assert.Contains(t, stdout, activityreport.NothingToReport)
	assert.Contains(t, stdout, "Summary saved to "+filepath.Join(env.out, "summary_20240101.txt"))

	summary, err := os.ReadFile(filepath.Join(env.out, "summary_20240101.txt"))
	require.NoError(t, err)
	assert.Equal(t, activityreport.NothingToReport, string(summary))
}

func TestRunSubmitRejectsNonconformingSummary(t *testing.T) {
	env := newTestEnv(t)

	code, _, stderr := runCLI(t, context.Background(), "--config", env.configPath, "--date", "2024-01-01", "--submit", "--yes")
	assert.Equal(t, clierr.ExitFailure, code)
	assert.Contains(t, stderr, workflow.ErrNonconforming.Error())
}

func TestSubmitCommand(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(env.out, "summary_20240101.txt"), []byte(conformingSummary), 0o600))

	testCases := []struct {
		name       string
		answer     string
		wantErr    string
		wantOut    string
		wantLaunch bool
	}{
		{name: "declined", answer: "n\n", wantOut: "Submission skipped."},
		{name: "no answer", answer: "", wantOut: "Submission skipped."},
		{name: "confirmed", answer: "y\n", wantErr: "workflow open failed: no browser", wantLaunch: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			a := newApp(strings.NewReader(tc.answer), &stdout, &stderr)
			a.isTerminal = func() bool { return true }
			launched := false
			a.launch = func(context.Context, bool) (workflow.Browser, error) {
				launched = true
				return nil, errors.New("no browser")
			}

			cmd := newRootCmd(a)
			cmd.SetArgs([]string{"submit", "--config", env.configPath, "--date", "2024-01-01"})
			err := cmd.ExecuteContext(context.Background())

			if tc.wantErr != "" {
				assert.ErrorContains(t, err, tc.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Contains(t, stdout.String(), "Submit the summary to https://crm.example.com/login? [y/N]: ")
			assert.Contains(t, stdout.String(), tc.wantOut)
			assert.Equal(t, tc.wantLaunch, launched)
		})
	}
}

func TestSubmitWithoutStoredSummary(t *testing.T) {
	env := newTestEnv(t)

	code, _, stderr := runCLI(t, context.Background(), "submit", "--yes", "--config", env.configPath, "--date", "2023-06-01")
	assert.Equal(t, clierr.ExitFailure, code)
	assert.Contains(t, stderr, "no summary to submit")
}

func TestSubmitRequiresTerminalOrYes(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(env.out, "summary_20240101.txt"), []byte(conformingSummary), 0o600))

	code, _, stderr := runCLI(t, context.Background(), "submit", "--config", env.configPath, "--date", "2024-01-01")
	assert.Equal(t, clierr.ExitFailure, code)
	assert.Contains(t, stderr, "pass --yes")
}

func TestConfirm(t *testing.T) {
	testCases := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{" yes ", true},
		{"n\n", false},
		{"\n", false},
		{"maybe\n", false},
	}
	for _, tc := range testCases {
		var out bytes.Buffer
		got, err := confirm(strings.NewReader(tc.input), &out, true, "Proceed?")
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "input %q", tc.input)
		assert.Equal(t, "Proceed? [y/N]: ", out.String())
	}

	_, err := confirm(strings.NewReader("y\n"), &bytes.Buffer{}, false, "Proceed?")
	assert.Error(t, err)
}

func TestInterrupted(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	code, _, stderr := runCLI(t, ctx, "commits", "--config", env.configPath)
	assert.Equal(t, clierr.ExitInterrupted, code)
	assert.Contains(t, stderr, "interrupted")
}

func TestReposInterrupted(t *testing.T) {
	env := newTestEnv(t)
	for _, dir := range []string{"alpha/.git", "beta/.git"} {
		require.NoError(t, os.MkdirAll(filepath.Join(env.root, dir), 0o755))
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	code, stdout, stderr := runCLI(t, ctx, "repos", "--config", env.configPath)
	assert.Equal(t, clierr.ExitInterrupted, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "interrupted")
}

// commitOn creates a repository under root with one commit by alice on day.
func commitOn(t *testing.T, root string, day time.Time) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git executable not available")
	}
	repo := filepath.Join(root, "repoA")
	require.NoError(t, os.MkdirAll(repo, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(repo, "README"), []byte("x"), 0o644))

	date := day.Add(9 * time.Hour).Format(time.RFC3339)
	env := []string{
		"GIT_AUTHOR_NAME=alice", "GIT_AUTHOR_EMAIL=alice@example.com", "GIT_AUTHOR_DATE=" + date,
		"GIT_COMMITTER_NAME=alice", "GIT_COMMITTER_EMAIL=alice@example.com", "GIT_COMMITTER_DATE=" + date,
	}
	for _, args := range [][]string{
		{"init", "-b", "main"},
		{"config", "commit.gpgsign", "false"},
		{"add", "README"},
		{"commit", "-m", "feat: login"},
	} {
		cmd := exec.Command("git", args...)
		cmd.Dir = repo
		cmd.Env = append(os.Environ(), env...)
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, "git %v failed:\n%s", args, out)
	}
}

func TestRunInterruptedDuringGeneration(t *testing.T) {
	env := newTestEnv(t)
	commitOn(t, env.root, time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local))
	summaryPath := filepath.Join(env.out, "summary_20240101.txt")
	require.NoError(t, os.WriteFile(summaryPath, []byte(conformingSummary), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	httpmock.Activate()
	t.Cleanup(httpmock.DeactivateAndReset)
	httpmock.RegisterResponder(http.MethodPost, "https://api.deepseek.com/chat/completions",
		func(*http.Request) (*http.Response, error) {
			cancel()
			return nil, context.Canceled
		})

	code, _, stderr := runCLI(t, ctx, "--config", env.configPath, "--date", "2024-01-01")
	assert.Equal(t, clierr.ExitInterrupted, code)
	assert.Contains(t, stderr, "interrupted")
	assert.Equal(t, 1, httpmock.GetTotalCallCount())

	summary, err := os.ReadFile(summaryPath)
	require.NoError(t, err)
	assert.Equal(t, conformingSummary, string(summary))
}

func TestPanicExitsWithTrace(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(env.out, "summary_20240101.txt"), []byte(conformingSummary), 0o600))

	var stdout, stderr bytes.Buffer
	a := newApp(strings.NewReader(""), &stdout, &stderr)
	a.launch = func(context.Context, bool) (workflow.Browser, error) {
		panic("browser driver crashed")
	}

	code := run(context.Background(), a, []string{"submit", "--yes", "--config", env.configPath, "--date", "2024-01-01"})
	assert.Equal(t, clierr.ExitPanic, code)
	assert.Contains(t, stderr.String(), "panic: browser driver crashed")
	assert.Contains(t, stderr.String(), "goroutine")
}
