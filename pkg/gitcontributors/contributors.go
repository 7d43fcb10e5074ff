// Package gitcontributors resolves the operator's git identity and derives
// per-author views of a commit set.
package gitcontributors

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/Stone-IT-Cloud/dailyreport/pkg/gitlogs"
	"github.com/Stone-IT-Cloud/dailyreport/pkg/gitrepos"
)

// DefaultTimeout bounds a single identity query.
const DefaultTimeout = 10 * time.Second

// Options configures a Resolver.
type Options struct {
	Binary  string
	Timeout time.Duration
	Logger  *slog.Logger
}

// Resolver reads user.name from git configuration.
type Resolver struct {
	binary  string
	timeout time.Duration
	logger  *slog.Logger
}

// NewResolver creates a Resolver.
func NewResolver(opts Options) *Resolver {
	r := &Resolver{binary: opts.Binary, timeout: opts.Timeout, logger: opts.Logger}
	if r.binary == "" {
		r.binary = "git"
	}
	if r.timeout <= 0 {
		r.timeout = DefaultTimeout
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// CurrentAuthor returns the identity configured for repoPath, falling back to
// the global identity when repoPath is empty, is not a repository, or has no
// name configured. It returns "" when nothing is configured or git fails.
func (r *Resolver) CurrentAuthor(ctx context.Context, repoPath string) string {
	if repoPath != "" && gitrepos.IsRepositoryRoot(repoPath) {
		if name := r.query(ctx, repoPath, "config", "user.name"); name != "" {
			return name
		}
	}
	return r.query(ctx, "", "config", "--global", "user.name")
}

func (r *Resolver) query(ctx context.Context, dir string, args ...string) string {
	bin, err := exec.LookPath(r.binary)
	if err != nil {
		r.logger.Warn("git executable not found", "binary", r.binary, "error", err)
		return ""
	}

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, bin, args...) // #nosec G204
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		switch {
		case errors.Is(runCtx.Err(), context.DeadlineExceeded):
			r.logger.Warn("git identity query timed out", "dir", dir, "timeout", r.timeout)
		case errors.As(err, &exitErr) && exitErr.ExitCode() == 1 && stderr.Len() == 0:
			// Key not set.
		default:
			r.logger.Warn("git identity query failed", "dir", dir, "error", err,
				"stderr", strings.TrimSpace(stderr.String()))
		}
		return ""
	}
	return strings.TrimSpace(strings.ToValidUTF8(stdout.String(), "�"))
}

// RepoGroup is the commits of one author in one repository.
type RepoGroup struct {
	Repository string
	Commits    []gitlogs.CommitRecord
}

// Contributor is one author's commits grouped by repository.
type Contributor struct {
	Name         string
	Commits      int
	Repositories []RepoGroup
}

// Group builds per-author views of commits. Authors and, within each author,
// repositories are sorted by name; commits keep their order from the input.
func Group(commits []gitlogs.CommitRecord) []Contributor {
	byAuthor := make(map[string]map[string][]gitlogs.CommitRecord)
	for _, c := range commits {
		repos, ok := byAuthor[c.Author]
		if !ok {
			repos = make(map[string][]gitlogs.CommitRecord)
			byAuthor[c.Author] = repos
		}
		repos[c.Repository] = append(repos[c.Repository], c)
	}

	contributors := make([]Contributor, 0, len(byAuthor))
	for name, repos := range byAuthor {
		contributor := Contributor{Name: name, Repositories: make([]RepoGroup, 0, len(repos))}
		for repo, list := range repos {
			contributor.Repositories = append(contributor.Repositories, RepoGroup{Repository: repo, Commits: list})
			contributor.Commits += len(list)
		}
		sort.Slice(contributor.Repositories, func(i, j int) bool {
			return contributor.Repositories[i].Repository < contributor.Repositories[j].Repository
		})
		contributors = append(contributors, contributor)
	}
	sortContributors(contributors)
	return contributors
}

// Partition splits commits into those whose author equals author exactly and
// the rest. An empty author owns nothing.
func Partition(commits []gitlogs.CommitRecord, author string) (mine, others []gitlogs.CommitRecord) {
	for _, c := range commits {
		if author != "" && c.Author == author {
			mine = append(mine, c)
		} else {
			others = append(others, c)
		}
	}
	return mine, others
}

// Repositories returns the distinct repository names in commits.
func Repositories(commits []gitlogs.CommitRecord) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, c := range commits {
		if _, ok := seen[c.Repository]; ok {
			continue
		}
		seen[c.Repository] = struct{}{}
		names = append(names, c.Repository)
	}
	sort.Strings(names)
	return names
}

func sortContributors(contributors []Contributor) {
	sort.Slice(contributors, func(i, j int) bool {
		return contributors[i].Name < contributors[j].Name
	})
}
