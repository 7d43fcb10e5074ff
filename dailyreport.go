// Package dailyreport turns the day's commits across every local repository
// into a plain-text activity report and a written summary.
package dailyreport

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Stone-IT-Cloud/dailyreport/internal/activityreport"
	"github.com/Stone-IT-Cloud/dailyreport/internal/config"
	"github.com/Stone-IT-Cloud/dailyreport/internal/metrics"
	"github.com/Stone-IT-Cloud/dailyreport/internal/textgen"
	"github.com/Stone-IT-Cloud/dailyreport/pkg/gitcontributors"
	"github.com/Stone-IT-Cloud/dailyreport/pkg/gitlogs"
	"github.com/Stone-IT-Cloud/dailyreport/pkg/gitproviders"
	"github.com/Stone-IT-Cloud/dailyreport/pkg/gitrepos"
)

// Options tunes a Run. The zero value runs for today with backends built
// from the configuration.
type Options struct {
	// Day selects the report day; the zero value means today.
	Day    time.Time
	Logger *slog.Logger
	// TextService replaces the backend configured under text_generation.
	TextService activityreport.TextService
	// ActivityProvider replaces the GitHub client built when github.enabled is set.
	ActivityProvider gitproviders.ActivityProvider
	// Metrics receives the run gauges; a fresh recorder is used when nil.
	Metrics *metrics.Recorder
	Now     func() time.Time
}

// Result is everything a Run produced.
type Result struct {
	Day          time.Time
	Repositories []string
	Today        []gitlogs.CommitRecord
	Yesterday    []gitlogs.CommitRecord
	Author       string
	Activities   []gitproviders.Activity
	Report       string
	ReportPath   string
	Summary      activityreport.Summary
	SummaryPath  string
}

// Run discovers repositories, collects the day's and the previous day's
// commits, writes the report, resolves the operator's identity, generates and
// writes the summary, and records run metrics. Only configuration, backend
// construction, file writes and cancellation of ctx can fail it; everything
// else degrades to empty results or an inline failure marker.
func Run(ctx context.Context, cfg *config.Config, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	recorder := opts.Metrics
	if recorder == nil {
		recorder = metrics.New()
	}

	day := opts.Day
	if day.IsZero() {
		day = now()
	}
	res := &Result{Day: day}

	res.Repositories = DiscoverRepositories(ctx, cfg, logger)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	recorder.SetRepositories(len(res.Repositories))
	logger.Info("repositories discovered", "count", len(res.Repositories))

	collector := NewCollector(cfg, logger, now)
	if opts.Day.IsZero() {
		res.Today = collector.AllToday(ctx, res.Repositories)
		res.Yesterday = collector.AllYesterday(ctx, res.Repositories)
	} else {
		res.Today = collector.AllCommitsOnDate(ctx, res.Repositories, day)
		res.Yesterday = collector.AllCommitsOnDate(ctx, res.Repositories, day.AddDate(0, 0, -1))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	recorder.SetCommits("today", len(res.Today))
	recorder.SetCommits("yesterday", len(res.Yesterday))
	logger.Info("commits collected", "today", len(res.Today), "yesterday", len(res.Yesterday))

	if cfg.GitHub.Enabled {
		res.Activities = collectActivity(ctx, cfg, opts.ActivityProvider, res.Repositories, day, logger)
	}

	store := NewStore(cfg)
	res.Report = activityreport.RenderDailyReport(day, res.Today, res.Activities)
	path, err := store.WriteReport(day, res.Report)
	if err != nil {
		return nil, err
	}
	res.ReportPath = path
	logger.Info("report written", "path", path)

	res.Author = resolveAuthor(ctx, cfg, res.Repositories, logger)

	service := opts.TextService
	if service == nil {
		backend, err := textgen.New(ctx, cfg.TextGeneration, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create text generation backend: %w", err)
		}
		defer func() {
			if err := backend.Close(); err != nil {
				logger.Warn("failed to close text generation backend", "error", err)
			}
		}()
		service = backend
	}

	generator := activityreport.NewGenerator(service, activityreport.GeneratorOptions{
		Template:  cfg.SummaryTemplate,
		Style:     cfg.TextGeneration.Style,
		MaxTokens: cfg.TextGeneration.MaxTokens,
		Logger:    logger,
	})
	if len(res.Activities) > 0 {
		generator = generator.WithActivity(activityreport.RenderActivity(res.Activities))
	}

	started := now()
	res.Summary = generator.Generate(ctx, res.Today, res.Author, res.Yesterday)
	// A cancelled request reads as a service failure; keep the stored summary.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	recorder.ObserveGeneration(now().Sub(started), res.Summary.Failed)
	logger.Info("summary generated", "strategy", res.Summary.Strategy.String(), "failed", res.Summary.Failed)

	path, err = store.WriteSummary(day, res.Summary.Text)
	if err != nil {
		return nil, err
	}
	res.SummaryPath = path
	logger.Info("summary written", "path", path)

	recorder.MarkRun(now())
	if cfg.Metrics.Textfile != "" {
		if err := recorder.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			logger.Warn("failed to write metrics", "error", err)
		}
	}
	return res, nil
}

// DiscoverRepositories walks every search root of cfg until ctx is done.
func DiscoverRepositories(ctx context.Context, cfg *config.Config, logger *slog.Logger) []string {
	return gitrepos.NewLocator(cfg.ExcludeDirs, logger).DiscoverAll(ctx, cfg.SearchRoots())
}

// NewCollector builds a commit collector from the git settings of cfg.
func NewCollector(cfg *config.Config, logger *slog.Logger, now func() time.Time) *gitlogs.Collector {
	return gitlogs.NewCollector(gitlogs.Options{
		Binary:  cfg.Git.Binary,
		Timeout: cfg.Git.LogTimeout,
		Logger:  logger,
		Now:     now,
	})
}

// NewStore builds the dated report and summary store of cfg.
func NewStore(cfg *config.Config) *activityreport.Store {
	return activityreport.NewStore(cfg.ReportPath, cfg.SummaryPath)
}

// resolveAuthor prefers the configured author, then the identity of the first
// repository, then the global identity.
func resolveAuthor(ctx context.Context, cfg *config.Config, repos []string, logger *slog.Logger) string {
	if cfg.Author != "" {
		return cfg.Author
	}
	var first string
	if len(repos) > 0 {
		first = repos[0]
	}
	author := gitcontributors.NewResolver(gitcontributors.Options{
		Binary:  cfg.Git.Binary,
		Timeout: cfg.Git.IdentityTimeout,
		Logger:  logger,
	}).CurrentAuthor(ctx, first)
	if author == "" {
		logger.Warn("git user.name is not configured; every commit counts as a teammate's")
	}
	return author
}

func collectActivity(ctx context.Context, cfg *config.Config, provider gitproviders.ActivityProvider, repos []string, day time.Time, logger *slog.Logger) []gitproviders.Activity {
	if provider == nil {
		client, err := gitproviders.NewGitHubClient(ctx, cfg.GitHub.Token, cfg.GitHub.BaseURL)
		if err != nil {
			logger.Warn("GitHub enrichment disabled for this run", "error", err)
			return nil
		}
		logger.Info("GitHub enrichment enabled", "login", client.Login(), "host", client.Host())
		provider = client
	}
	activities := gitproviders.CollectActivity(ctx, provider, repos, day, logger)
	logger.Info("hosted activity collected", "repositories", len(activities))
	return activities
}
