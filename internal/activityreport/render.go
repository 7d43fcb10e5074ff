// Package activityreport turns a day's commits into the plain-text activity
// report and the generated work summary, and persists both.
package activityreport

import (
	"fmt"
	"strings"
	"time"

	"github.com/Stone-IT-Cloud/dailyreport/pkg/gitcontributors"
	"github.com/Stone-IT-Cloud/dailyreport/pkg/gitlogs"
	"github.com/Stone-IT-Cloud/dailyreport/pkg/gitproviders"
)

// NoCommits is what Render returns for an empty commit set.
const NoCommits = "No commits today."

var (
	rule     = strings.Repeat("=", 60)
	thinRule = strings.Repeat("-", 60)
)

// Render lists commits grouped by author, then by repository, followed by
// totals. The output only depends on the order of commits.
func Render(commits []gitlogs.CommitRecord) string {
	if len(commits) == 0 {
		return NoCommits
	}

	var b strings.Builder
	b.WriteString(rule + "\n")
	b.WriteString("Commit list\n")
	b.WriteString(rule + "\n\n")

	contributors := gitcontributors.Group(commits)
	for _, contributor := range contributors {
		fmt.Fprintf(&b, "[%s]\n", contributor.Name)
		b.WriteString(thinRule + "\n")
		for _, repo := range contributor.Repositories {
			fmt.Fprintf(&b, "  Repository: %s\n", repo.Repository)
			for _, c := range repo.Commits {
				fmt.Fprintf(&b, "    [%s] %s - %s\n", c.ShortHash, c.Timestamp, c.Subject)
				for _, line := range strings.Split(c.Body, "\n") {
					if strings.TrimSpace(line) == "" {
						continue
					}
					fmt.Fprintf(&b, "        %s\n", strings.TrimRight(line, " \t\r"))
				}
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(rule + "\n")
	b.WriteString("Statistics:\n")
	fmt.Fprintf(&b, "  Total commits: %d\n", len(commits))
	fmt.Fprintf(&b, "  Authors: %d\n", len(contributors))
	fmt.Fprintf(&b, "  Repositories: %d\n", len(gitcontributors.Repositories(commits)))
	b.WriteString(rule)
	return b.String()
}

// RenderActivity lists hosted pull requests and issues per repository. It
// returns "" when there is nothing to show.
func RenderActivity(activities []gitproviders.Activity) string {
	var b strings.Builder
	for _, a := range activities {
		if a.Empty() {
			continue
		}
		fmt.Fprintf(&b, "  Repository: %s (%s)\n", a.Repository, a.Remote.FullName())
		for _, pr := range a.PullRequests {
			state := pr.State
			if pr.Merged {
				state = "merged"
			}
			fmt.Fprintf(&b, "    PR #%d [%s] %s\n", pr.Number, state, pr.Title)
		}
		for _, issue := range a.Issues {
			fmt.Fprintf(&b, "    Issue #%d [%s] %s (%s)\n", issue.Number, issue.State, issue.Title, issue.Author)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderDailyReport assembles the report document for day.
func RenderDailyReport(day time.Time, commits []gitlogs.CommitRecord, activities []gitproviders.Activity) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Daily report - %s\n\n", day.Format("2006-01-02"))
	b.WriteString("## Commits\n\n")
	b.WriteString(Render(commits))
	b.WriteString("\n")
	if activity := RenderActivity(activities); activity != "" {
		b.WriteString("\n## GitHub activity\n\n")
		b.WriteString(activity)
		b.WriteString("\n")
	}
	return b.String()
}
