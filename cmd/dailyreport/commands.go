package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Stone-IT-Cloud/dailyreport"
	"github.com/Stone-IT-Cloud/dailyreport/internal/activityreport"
	"github.com/Stone-IT-Cloud/dailyreport/internal/clierr"
	"github.com/Stone-IT-Cloud/dailyreport/internal/config"
	"github.com/Stone-IT-Cloud/dailyreport/internal/workflow"
	"github.com/Stone-IT-Cloud/dailyreport/pkg/gitlogs"
)

var (
	// Version is the semantic version (set by build flags)
	Version = "0.1.0"
	// GitCommit is the git commit hash (set by build flags)
	GitCommit = "unknown"
	// BuildDate is the build timestamp (set by build flags)
	BuildDate = "unknown"
)

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(*cobra.Command, []string) {
			fmt.Fprintf(a.stdout, "dailyreport %s\n", Version)
			fmt.Fprintf(a.stdout, "Git Commit: %s\n", GitCommit)
			fmt.Fprintf(a.stdout, "Build Date: %s\n", BuildDate)
			fmt.Fprintf(a.stdout, "Go Version: %s\n", runtime.Version())
		},
	}
}

func newReposCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "repos",
		Short: "List the repositories found under the search paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := a.setup()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			repos := dailyreport.DiscoverRepositories(ctx, cfg, logger)
			if err := ctx.Err(); err != nil {
				return clierr.Interrupted(err)
			}
			for _, repo := range repos {
				fmt.Fprintln(a.stdout, repo)
			}
			return nil
		},
	}
}

func newCommitsCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "commits",
		Short: "Print the commits of the report day across all repositories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			day, err := a.dayOrToday()
			if err != nil {
				return err
			}
			cfg, logger, err := a.setup()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			repos := dailyreport.DiscoverRepositories(ctx, cfg, logger)
			commits := dailyreport.NewCollector(cfg, logger, nil).AllCommitsOnDate(ctx, repos, day)
			if err := ctx.Err(); err != nil {
				return clierr.Interrupted(err)
			}

			if !asJSON {
				fmt.Fprintln(a.stdout, activityreport.Render(commits))
				return nil
			}
			out, err := gitlogs.JSON(commits)
			if err != nil {
				return clierr.Wrap(clierr.ExitFailure, "failed to encode commits", err)
			}
			fmt.Fprintln(a.stdout, out)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the commits as a JSON array")
	return cmd
}

func newSubmitCmd(a *app) *cobra.Command {
	var flags struct {
		yes     bool
		install bool
	}
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit the stored summary of the report day to the workflow system",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			day, err := a.dayOrToday()
			if err != nil {
				return err
			}
			cfg, logger, err := a.setup()
			if err != nil {
				return err
			}
			summary, err := dailyreport.NewStore(cfg).ReadSummary(day)
			if err != nil {
				return clierr.Wrap(clierr.ExitFailure, "no summary to submit", err)
			}
			if flags.install {
				if err := workflow.InstallBrowsers(); err != nil {
					return clierr.Wrap(clierr.ExitFailure, "failed to install browsers", err)
				}
			}
			return a.submit(cmd.Context(), cfg, logger, summary, flags.yes)
		},
	}
	cmd.Flags().BoolVarP(&flags.yes, "yes", "y", false, "submit without asking for confirmation")
	cmd.Flags().BoolVar(&flags.install, "install-browsers", false, "download the Playwright driver and Chromium first")
	return cmd
}

// submit asks for confirmation unless yes is set, then drives the workflow form.
func (a *app) submit(ctx context.Context, cfg *config.Config, logger *slog.Logger, summary string, yes bool) error {
	if !cfg.Workflow.Enabled {
		return clierr.New(clierr.ExitFailure, "workflow submission is not enabled in the configuration")
	}
	if !yes {
		ok, err := confirm(a.stdin, a.stdout, a.isTerminal(), fmt.Sprintf("Submit the summary to %s?", cfg.Workflow.URL))
		if err != nil {
			return clierr.Wrap(clierr.ExitFailure, "submission not confirmed", err)
		}
		if !ok {
			fmt.Fprintln(a.stdout, "Submission skipped.")
			return nil
		}
	}

	submitter := workflow.NewSubmitter(workflow.Options{
		Workflow: cfg.Workflow,
		Template: cfg.SummaryTemplate,
		Launch:   a.launch,
		Logger:   logger,
	})
	result, err := submitter.Submit(ctx, summary)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return clierr.Interrupted(err)
		}
		return clierr.Wrap(clierr.ExitFailure, "submission failed", err)
	}

	if result.Confirmed {
		fmt.Fprintln(a.stdout, "Summary published.")
	} else {
		fmt.Fprintln(a.stdout, "Publish clicked; no confirmation message was seen.")
	}
	return nil
}

// confirm asks a yes/no question on out and reads the answer from in. It
// refuses to guess when in is not interactive.
func confirm(in io.Reader, out io.Writer, interactive bool, question string) (bool, error) {
	if !interactive {
		return false, errors.New("stdin is not a terminal; pass --yes to submit")
	}
	fmt.Fprintf(out, "%s [y/N]: ", question)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
