// Package gitlogs collects same-day commit records from git repositories and
// merges them into a single time-ordered set.
package gitlogs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// TimestampLayout is the fixed-width local timestamp carried by every record.
const TimestampLayout = "2006-01-02 15:04:05"

const (
	fieldSeparator = "|||GITLOGSEP|||"
	bodySeparator  = "|||GITLOGBODY|||"
	endOfRecord    = "\x00"

	logFormat = "%H" + fieldSeparator + "%an" + fieldSeparator + "%ad" + fieldSeparator + "%s" +
		bodySeparator + "%b%x00"

	shortHashLen = 7

	// DefaultTimeout bounds a single log query.
	DefaultTimeout = 30 * time.Second
)

// CommitRecord is one commit as read from git log.
type CommitRecord struct {
	ShortHash  string `json:"short_hash"`
	Author     string `json:"author"`
	Timestamp  string `json:"timestamp"`
	Subject    string `json:"subject"`
	Body       string `json:"body,omitempty"`
	Repository string `json:"repository"`
}

// Options configures a Collector.
type Options struct {
	// Binary is the git executable; resolved through PATH. Defaults to "git".
	Binary string
	// Timeout bounds each log query. Defaults to DefaultTimeout.
	Timeout time.Duration
	Logger  *slog.Logger
	// Now returns the current time; used by AllToday and AllYesterday.
	Now func() time.Time
}

// Collector runs git log against repositories and parses the result.
type Collector struct {
	binary  string
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// NewCollector creates a Collector.
func NewCollector(opts Options) *Collector {
	c := &Collector{
		binary:  opts.Binary,
		timeout: opts.Timeout,
		logger:  opts.Logger,
		now:     opts.Now,
	}
	if c.binary == "" {
		c.binary = "git"
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// CommitsOnDate returns the commits of every branch of repoPath authored on
// the calendar day of date, in local time. Invalid repositories, a missing git
// binary, timeouts and other git failures are logged and yield no commits.
func (c *Collector) CommitsOnDate(ctx context.Context, repoPath string, date time.Time) []CommitRecord {
	absRepoPath, err := validateRepoPath(repoPath)
	if err != nil {
		c.logger.Warn("skipping repository", "path", repoPath, "error", err)
		return nil
	}

	bin, err := exec.LookPath(c.binary)
	if err != nil {
		c.logger.Warn("git executable not found", "binary", c.binary, "error", err)
		return nil
	}

	since, until := dayBounds(date)
	args := []string{
		"log",
		"--all",
		"--since", since,
		"--until", until,
		"--date=format-local:%Y-%m-%d %H:%M:%S",
		"--pretty=format:" + logFormat,
	}

	runCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, bin, args...) // #nosec G204
	cmd.Dir = absRepoPath
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		switch {
		case errors.Is(runCtx.Err(), context.DeadlineExceeded):
			c.logger.Warn("git log timed out", "path", absRepoPath, "timeout", c.timeout)
		case ctx.Err() != nil:
			c.logger.Warn("git log cancelled", "path", absRepoPath)
		case strings.Contains(stderr.String(), "does not have any commits"):
			// Empty repository.
		default:
			c.logger.Warn("git log failed", "path", absRepoPath, "error", err,
				"stderr", strings.TrimSpace(stderr.String()))
		}
		return nil
	}

	commits, skipped := ParseLog(strings.ToValidUTF8(stdout.String(), "�"), filepath.Base(absRepoPath))
	if skipped > 0 {
		c.logger.Warn("skipped malformed git log records", "path", absRepoPath, "count", skipped)
	}
	return commits
}

// AllCommitsOnDate collects every repository in order and returns the merged set.
func (c *Collector) AllCommitsOnDate(ctx context.Context, repoPaths []string, date time.Time) []CommitRecord {
	perRepo := make([][]CommitRecord, 0, len(repoPaths))
	for _, repo := range repoPaths {
		if ctx.Err() != nil {
			break
		}
		commits := c.CommitsOnDate(ctx, repo, date)
		if len(commits) > 0 {
			c.logger.Debug("commits collected", "path", repo, "count", len(commits))
		}
		perRepo = append(perRepo, commits)
	}
	return Merge(perRepo...)
}

// AllToday is AllCommitsOnDate for the current day.
func (c *Collector) AllToday(ctx context.Context, repoPaths []string) []CommitRecord {
	return c.AllCommitsOnDate(ctx, repoPaths, c.now())
}

// AllYesterday is AllCommitsOnDate for the previous day.
func (c *Collector) AllYesterday(ctx context.Context, repoPaths []string) []CommitRecord {
	return c.AllCommitsOnDate(ctx, repoPaths, c.now().AddDate(0, 0, -1))
}

// ParseLog parses output produced with the collector's log format. Records
// that do not carry the four header fields are counted in skipped.
func ParseLog(output, repository string) (commits []CommitRecord, skipped int) {
	for _, block := range strings.Split(output, endOfRecord) {
		// git separates records with a newline that ends up ahead of the next hash.
		block = strings.TrimLeft(block, "\r\n")
		if strings.TrimSpace(block) == "" {
			continue
		}

		header, body, _ := strings.Cut(block, bodySeparator)
		parts := strings.SplitN(header, fieldSeparator, 4)
		if len(parts) != 4 {
			skipped++
			continue
		}

		hash := strings.TrimSpace(parts[0])
		if len(hash) > shortHashLen {
			hash = hash[:shortHashLen]
		}
		commits = append(commits, CommitRecord{
			ShortHash:  hash,
			Author:     parts[1],
			Timestamp:  parts[2],
			Subject:    parts[3],
			Body:       strings.Trim(body, "\r\n"),
			Repository: repository,
		})
	}
	return commits, skipped
}

// Merge concatenates the given sets in order and stable-sorts the result by
// timestamp, newest first.
func Merge(sets ...[]CommitRecord) []CommitRecord {
	var n int
	for _, s := range sets {
		n += len(s)
	}
	merged := make([]CommitRecord, 0, n)
	for _, s := range sets {
		merged = append(merged, s...)
	}
	SortCommits(merged)
	return merged
}

// SortCommits stable-sorts commits by timestamp descending. The timestamp
// layout is fixed width, so string order is chronological order.
func SortCommits(commits []CommitRecord) {
	sort.SliceStable(commits, func(i, j int) bool {
		return commits[i].Timestamp > commits[j].Timestamp
	})
}

// JSON renders commits as an indented JSON array; an empty set renders "[]".
func JSON(commits []CommitRecord) (string, error) {
	if commits == nil {
		commits = []CommitRecord{}
	}
	data, err := json.MarshalIndent(commits, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal commits to JSON: %w", err)
	}
	return string(data), nil
}

// dayBounds returns the inclusive local-time limits of date's calendar day.
func dayBounds(date time.Time) (since, until string) {
	day := date.Format("2006-01-02")
	return day + " 00:00:00", day + " 23:59:59"
}

// validateRepoPath checks that repoPath is a directory holding a .git
// directory and returns its absolute form.
func validateRepoPath(repoPath string) (string, error) {
	if repoPath == "" {
		return "", fmt.Errorf("repository path cannot be empty")
	}
	absRepoPath, err := filepath.Abs(repoPath)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path for %q: %w", repoPath, err)
	}
	info, err := os.Stat(absRepoPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("repository path %q does not exist", absRepoPath)
		}
		return "", fmt.Errorf("failed to stat repository path %q: %w", absRepoPath, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("repository path %q is not a directory", absRepoPath)
	}
	if _, err := os.Stat(filepath.Join(absRepoPath, ".git")); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("path %q is not a git repository (missing .git directory)", absRepoPath)
		}
		return "", fmt.Errorf("failed to stat .git directory in %q: %w", absRepoPath, err)
	}
	return absRepoPath, nil
}
