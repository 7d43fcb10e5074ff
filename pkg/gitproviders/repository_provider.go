package gitproviders

import (
	"context"
	"time"
)

// RepoMetadata identifies a hosted repository.
type RepoMetadata struct {
	Host     string
	Owner    string
	RepoName string
}

// FullName returns "owner/name".
func (m RepoMetadata) FullName() string { return m.Owner + "/" + m.RepoName }

// PullRequest is a pull request touched on the report day.
type PullRequest struct {
	Number    int
	Title     string
	State     string
	Author    string
	URL       string
	UpdatedAt time.Time
	Merged    bool
}

// Issue is an issue touched on the report day.
type Issue struct {
	Number    int
	Title     string
	State     string
	Author    string
	URL       string
	UpdatedAt time.Time
}

// Activity is the hosted-service activity of one local repository on one day.
type Activity struct {
	Repository   string
	Remote       RepoMetadata
	PullRequests []PullRequest
	Issues       []Issue
}

// Empty reports whether nothing happened.
func (a Activity) Empty() bool { return len(a.PullRequests) == 0 && len(a.Issues) == 0 }

// ActivityProvider lists a repository's activity on a hosting service.
type ActivityProvider interface {
	// Host is the hostname whose remotes this provider serves.
	Host() string
	DailyActivity(ctx context.Context, metadata RepoMetadata, day time.Time) (Activity, error)
}
