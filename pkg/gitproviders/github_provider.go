package gitproviders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/google/go-github/v71/github"
)

const (
	githubHost  = "github.com"
	listPerPage = 50
	// maxPages caps pagination on busy repositories.
	maxPages = 5
)

// GitHubClient lists daily activity through the GitHub API.
type GitHubClient struct {
	client *github.Client
	login  string
	host   string
}

// NewGitHubClient creates a client authenticated with token and verifies the
// token by fetching the authenticated user. A non-empty baseURL targets a
// GitHub Enterprise server.
func NewGitHubClient(ctx context.Context, token, baseURL string) (*GitHubClient, error) {
	if token == "" {
		return nil, errors.New("a GitHub token is required")
	}

	client := github.NewClient(nil).WithAuthToken(token)
	host := githubHost
	if baseURL != "" {
		var err error
		client, err = client.WithEnterpriseURLs(baseURL, baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub base URL %q: %w", baseURL, err)
		}
		host = client.BaseURL.Hostname()
	}

	user, _, err := client.Users.Get(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to verify GitHub authentication: %w", err)
	}

	return &GitHubClient{client: client, login: user.GetLogin(), host: host}, nil
}

// Host returns the hostname of the remotes served by this client.
func (gh *GitHubClient) Host() string { return gh.host }

// Login returns the authenticated user's login.
func (gh *GitHubClient) Login() string { return gh.login }

// DailyActivity returns the pull requests authored by the authenticated user
// and the issues of the repository that were updated on day (local time).
func (gh *GitHubClient) DailyActivity(ctx context.Context, metadata RepoMetadata, day time.Time) (Activity, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)

	activity := Activity{Remote: metadata}

	prs, err := gh.pullRequestsUpdated(ctx, metadata, start, end)
	if err != nil {
		return Activity{}, err
	}
	activity.PullRequests = prs

	issues, err := gh.issuesUpdated(ctx, metadata, start, end)
	if err != nil {
		return Activity{}, err
	}
	activity.Issues = issues

	return activity, nil
}

func (gh *GitHubClient) pullRequestsUpdated(ctx context.Context, metadata RepoMetadata, start, end time.Time) ([]PullRequest, error) {
	opts := &github.PullRequestListOptions{
		State:       "all",
		Sort:        "updated",
		Direction:   "desc",
		ListOptions: github.ListOptions{PerPage: listPerPage},
	}

	var pullRequests []PullRequest
	for page := 0; page < maxPages; page++ {
		ghPullRequests, resp, err := gh.client.PullRequests.List(ctx, metadata.Owner, metadata.RepoName, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list pull requests of %s: %w", metadata.FullName(), err)
		}

		older := false
		for _, pr := range ghPullRequests {
			updated := pr.GetUpdatedAt().Time
			if updated.Before(start) {
				// Sorted by update time, everything after this is older.
				older = true
				break
			}
			if !updated.Before(end) {
				continue
			}
			if gh.login != "" && pr.GetUser().GetLogin() != gh.login {
				continue
			}
			pullRequests = append(pullRequests, PullRequest{
				Number:    pr.GetNumber(),
				Title:     pr.GetTitle(),
				State:     pr.GetState(),
				Author:    pr.GetUser().GetLogin(),
				URL:       pr.GetHTMLURL(),
				UpdatedAt: updated,
				Merged:    pr.MergedAt != nil,
			})
		}
		if older || resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return pullRequests, nil
}

func (gh *GitHubClient) issuesUpdated(ctx context.Context, metadata RepoMetadata, start, end time.Time) ([]Issue, error) {
	opts := &github.IssueListByRepoOptions{
		State:       "all",
		Sort:        "updated",
		Direction:   "desc",
		Since:       start,
		ListOptions: github.ListOptions{PerPage: listPerPage},
	}

	var issues []Issue
	for page := 0; page < maxPages; page++ {
		ghIssues, resp, err := gh.client.Issues.ListByRepo(ctx, metadata.Owner, metadata.RepoName, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list issues of %s: %w", metadata.FullName(), err)
		}
		for _, issue := range ghIssues {
			if issue.IsPullRequest() {
				continue
			}
			updated := issue.GetUpdatedAt().Time
			if updated.Before(start) || !updated.Before(end) {
				continue
			}
			issues = append(issues, Issue{
				Number:    issue.GetNumber(),
				Title:     issue.GetTitle(),
				State:     issue.GetState(),
				Author:    issue.GetUser().GetLogin(),
				URL:       issue.GetHTMLURL(),
				UpdatedAt: updated,
			})
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return issues, nil
}

// ExtractRepoMetadata reads the origin remote of the repository at repoPath
// and parses host, owner and name from its first URL.
func ExtractRepoMetadata(repoPath string) (RepoMetadata, error) {
	repo, err := gogit.PlainOpen(repoPath)
	if err != nil {
		return RepoMetadata{}, fmt.Errorf("failed to open repository %s: %w", repoPath, err)
	}
	remote, err := repo.Remote("origin")
	if err != nil {
		return RepoMetadata{}, fmt.Errorf("failed to read origin remote of %s: %w", repoPath, err)
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return RepoMetadata{}, fmt.Errorf("origin remote of %s has no URL", repoPath)
	}
	return ParseRemoteURL(urls[0])
}

// ParseRemoteURL parses scp-like SSH remotes (git@host:owner/repo.git) and
// URL remotes (https://host/owner/repo.git, ssh://git@host/owner/repo).
func ParseRemoteURL(remoteURL string) (RepoMetadata, error) {
	remoteURL = strings.TrimSpace(remoteURL)

	var host, path string
	switch {
	case strings.Contains(remoteURL, "://"):
		u, err := url.Parse(remoteURL)
		if err != nil {
			return RepoMetadata{}, fmt.Errorf("invalid remote URL %q: %w", remoteURL, err)
		}
		if u.Scheme == "file" {
			return RepoMetadata{}, fmt.Errorf("unsupported remote URL format (local path): %s", remoteURL)
		}
		host, path = u.Hostname(), u.Path
	case strings.Contains(remoteURL, "@") && strings.Contains(remoteURL, ":"):
		userHost, p, _ := strings.Cut(remoteURL, ":")
		_, host, _ = strings.Cut(userHost, "@")
		path = p
	default:
		return RepoMetadata{}, fmt.Errorf("unsupported remote URL format (neither SSH nor HTTPS): %s", remoteURL)
	}

	path = strings.TrimSuffix(strings.Trim(path, "/"), ".git")
	owner, name, ok := strings.Cut(path, "/")
	if !ok || host == "" || owner == "" || name == "" || strings.Contains(name, "/") {
		return RepoMetadata{}, fmt.Errorf("could not extract owner/repo from remote URL: %s", remoteURL)
	}
	return RepoMetadata{Host: host, Owner: owner, RepoName: name}, nil
}

// CollectActivity gathers activity for every repository whose origin is served
// by provider. Repositories without a matching remote are skipped; API
// failures are logged and skipped.
func CollectActivity(ctx context.Context, provider ActivityProvider, repoPaths []string, day time.Time, logger *slog.Logger) []Activity {
	if logger == nil {
		logger = slog.Default()
	}

	var activities []Activity
	for _, repoPath := range repoPaths {
		metadata, err := ExtractRepoMetadata(repoPath)
		if err != nil {
			logger.Debug("no usable origin remote", "path", repoPath, "error", err)
			continue
		}
		if !strings.EqualFold(metadata.Host, provider.Host()) {
			continue
		}

		activity, err := provider.DailyActivity(ctx, metadata, day)
		if err != nil {
			logger.Warn("failed to fetch repository activity", "repository", metadata.FullName(), "error", err)
			continue
		}
		if activity.Empty() {
			continue
		}
		activity.Repository = filepath.Base(repoPath)
		activities = append(activities, activity)
	}
	return activities
}
