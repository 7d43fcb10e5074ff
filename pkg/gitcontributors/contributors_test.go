package gitcontributors_test

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Stone-IT-Cloud/dailyreport/internal/logging"
	"github.com/Stone-IT-Cloud/dailyreport/pkg/gitcontributors"
	"github.com/Stone-IT-Cloud/dailyreport/pkg/gitlogs"
)

// --- Test Helpers ---

func runGitCommand(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v failed:\n%s", args, output)
}

// isolateGitConfig points git at an empty global config owned by the test and
// returns its path.
func isolateGitConfig(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git executable not available")
	}
	home := t.TempDir()
	global := filepath.Join(home, ".gitconfig")
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("GIT_CONFIG_GLOBAL", global)
	t.Setenv("GIT_CONFIG_NOSYSTEM", "1")
	return global
}

func setupGitRepo(t *testing.T) string {
	t.Helper()
	repoPath := t.TempDir()
	runGitCommand(t, repoPath, "init", "-b", "main")
	return repoPath
}

func newResolver() *gitcontributors.Resolver {
	return gitcontributors.NewResolver(gitcontributors.Options{Logger: logging.Discard()})
}

// --- Identity ---

func TestCurrentAuthor(t *testing.T) {
	global := isolateGitConfig(t)
	ctx := context.Background()

	repo := setupGitRepo(t)
	runGitCommand(t, repo, "config", "user.name", "alice")
	runGitCommand(t, repo, "config", "--file", global, "user.name", "bob")

	r := newResolver()
	assert.Equal(t, "alice", r.CurrentAuthor(ctx, repo))
	assert.Equal(t, "bob", r.CurrentAuthor(ctx, ""))
	assert.Equal(t, "bob", r.CurrentAuthor(ctx, t.TempDir()), "a non-repository falls back to the global identity")

	unnamed := setupGitRepo(t)
	assert.Equal(t, "bob", r.CurrentAuthor(ctx, unnamed))
}

func TestCurrentAuthorUnset(t *testing.T) {
	isolateGitConfig(t)
	ctx := context.Background()

	r := newResolver()
	assert.Empty(t, r.CurrentAuthor(ctx, ""))
	assert.Empty(t, r.CurrentAuthor(ctx, setupGitRepo(t)))
}

func TestCurrentAuthorMissingBinary(t *testing.T) {
	r := gitcontributors.NewResolver(gitcontributors.Options{
		Binary: "git-does-not-exist-anywhere",
		Logger: logging.Discard(),
	})
	assert.Empty(t, r.CurrentAuthor(context.Background(), ""))
}

func TestCurrentAuthorMalformedConfig(t *testing.T) {
	global := isolateGitConfig(t)
	require.NoError(t, os.WriteFile(global, []byte("[user\nname = broken"), 0o644))

	assert.Empty(t, newResolver().CurrentAuthor(context.Background(), ""))
}

// --- Grouping ---

func commit(author, repo, hash, ts string) gitlogs.CommitRecord {
	return gitlogs.CommitRecord{ShortHash: hash, Author: author, Repository: repo, Timestamp: ts, Subject: "s " + hash}
}

func TestGroup(t *testing.T) {
	commits := []gitlogs.CommitRecord{
		commit("carol", "web", "c1", "2024-01-01 12:00:00"),
		commit("alice", "zeta", "a1", "2024-01-01 11:00:00"),
		commit("alice", "api", "a2", "2024-01-01 10:00:00"),
		commit("bob", "api", "b1", "2024-01-01 09:30:00"),
		commit("alice", "api", "a3", "2024-01-01 09:00:00"),
	}

	got := gitcontributors.Group(commits)
	require.Len(t, got, 3)

	assert.Equal(t, "alice", got[0].Name)
	assert.Equal(t, 3, got[0].Commits)
	require.Len(t, got[0].Repositories, 2)
	assert.Equal(t, "api", got[0].Repositories[0].Repository)
	assert.Equal(t, []string{"a2", "a3"}, hashes(got[0].Repositories[0].Commits))
	assert.Equal(t, "zeta", got[0].Repositories[1].Repository)

	assert.Equal(t, "bob", got[1].Name)
	assert.Equal(t, "carol", got[2].Name)

	assert.Empty(t, gitcontributors.Group(nil))
}

func TestPartition(t *testing.T) {
	commits := []gitlogs.CommitRecord{
		commit("alice", "api", "a1", "2024-01-01 11:00:00"),
		commit("Alice", "api", "a2", "2024-01-01 10:00:00"),
		commit("bob", "web", "b1", "2024-01-01 09:00:00"),
	}

	testCases := []struct {
		name   string
		author string
		mine   []string
		others []string
	}{
		{name: "exact match only", author: "alice", mine: []string{"a1"}, others: []string{"a2", "b1"}},
		{name: "no own commits", author: "dave", others: []string{"a1", "a2", "b1"}},
		{name: "unknown identity", author: "", others: []string{"a1", "a2", "b1"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mine, others := gitcontributors.Partition(commits, tc.author)
			assert.Equal(t, tc.mine, hashes(mine))
			assert.Equal(t, tc.others, hashes(others))
		})
	}
}

func TestRepositories(t *testing.T) {
	commits := []gitlogs.CommitRecord{
		commit("alice", "web", "a1", ""),
		commit("bob", "api", "b1", ""),
		commit("bob", "web", "b2", ""),
	}
	assert.Equal(t, []string{"api", "web"}, gitcontributors.Repositories(commits))
}

func hashes(commits []gitlogs.CommitRecord) []string {
	var out []string
	for _, c := range commits {
		out = append(out, c.ShortHash)
	}
	return out
}
