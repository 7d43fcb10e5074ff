package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Stone-IT-Cloud/dailyreport"
	"github.com/Stone-IT-Cloud/dailyreport/internal/clierr"
	"github.com/Stone-IT-Cloud/dailyreport/internal/config"
	"github.com/Stone-IT-Cloud/dailyreport/internal/logging"
	"github.com/Stone-IT-Cloud/dailyreport/internal/workflow"
)

const dateLayout = "2006-01-02"

// app carries the process streams and the flags shared by every command.
type app struct {
	stdin          io.Reader
	stdout, stderr io.Writer
	// isTerminal reports whether stdin is interactive.
	isTerminal func() bool
	// launch overrides the browser used for submission.
	launch workflow.LaunchFunc

	configPath string
	date       string
	verbose    bool
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *app {
	return &app{
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		isTerminal: func() bool {
			f, ok := stdin.(*os.File)
			return ok && term.IsTerminal(int(f.Fd()))
		},
	}
}

func newRootCmd(a *app) *cobra.Command {
	var submitFlags struct {
		submit bool
		yes    bool
	}

	cmd := &cobra.Command{
		Use:   "dailyreport",
		Short: "Write today's activity report and work summary from local git history",
		Long: `dailyreport scans the configured search paths for git repositories, collects
the commits of every branch made on the report day, writes a plain-text activity
report and asks a text-generation service for a three-field work summary.

With --submit the summary is then filled into the workflow system's daily log
form through a browser.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runReport(cmd.Context(), submitFlags.submit, submitFlags.yes)
		},
	}
	cmd.SetIn(a.stdin)
	cmd.SetOut(a.stdout)
	cmd.SetErr(a.stderr)

	cmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "config file path (default ~/.config/dailyreport/config.yaml)")
	cmd.PersistentFlags().StringVar(&a.date, "date", "", "report day as YYYY-MM-DD (default today)")
	cmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	cmd.Flags().BoolVar(&submitFlags.submit, "submit", false, "submit the summary to the workflow system")
	cmd.Flags().BoolVarP(&submitFlags.yes, "yes", "y", false, "submit without asking for confirmation")

	cmd.AddCommand(newReposCmd(a), newCommitsCmd(a), newSubmitCmd(a), newVersionCmd(a))
	return cmd
}

// setup loads the configuration and builds the run logger. When --config is
// not given, a missing default file means built-in defaults.
func (a *app) setup() (*config.Config, *slog.Logger, error) {
	path := a.configPath
	if path == "" {
		if _, err := os.Stat(config.DefaultPath()); err == nil {
			path = config.DefaultPath()
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, clierr.Wrap(clierr.ExitFailure, "failed to load configuration", err)
	}
	if a.verbose {
		cfg.Logging.Level = "debug"
	}

	logger, err := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Writer: a.stderr,
	})
	if err != nil {
		return nil, nil, clierr.Wrap(clierr.ExitFailure, "failed to set up logging", err)
	}
	return cfg, logger, nil
}

// day parses --date; the zero time stands for today.
func (a *app) day() (time.Time, error) {
	if a.date == "" {
		return time.Time{}, nil
	}
	day, err := time.ParseInLocation(dateLayout, a.date, time.Local)
	if err != nil {
		return time.Time{}, clierr.Wrap(clierr.ExitFailure, fmt.Sprintf("invalid --date %q, want YYYY-MM-DD", a.date), err)
	}
	return day, nil
}

func (a *app) dayOrToday() (time.Time, error) {
	day, err := a.day()
	if err != nil || !day.IsZero() {
		return day, err
	}
	return time.Now(), nil
}

func (a *app) runReport(ctx context.Context, submit, yes bool) error {
	day, err := a.day()
	if err != nil {
		return err
	}
	cfg, logger, err := a.setup()
	if err != nil {
		return err
	}

	res, err := dailyreport.Run(ctx, cfg, dailyreport.Options{Day: day, Logger: logger})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return clierr.Interrupted(err)
		}
		return clierr.Wrap(clierr.ExitFailure, "report run failed", err)
	}

	fmt.Fprintln(a.stdout, res.Report)
	fmt.Fprintf(a.stdout, "Summary (%s):\n%s\n\n", res.Summary.Strategy, res.Summary.Text)
	fmt.Fprintf(a.stdout, "Report saved to %s\n", res.ReportPath)
	fmt.Fprintf(a.stdout, "Summary saved to %s\n", res.SummaryPath)

	if !submit {
		return nil
	}
	if res.Summary.Failed {
		return clierr.New(clierr.ExitFailure, "summary generation failed; not submitting")
	}
	return a.submit(ctx, cfg, logger, res.Summary.Text, yes)
}
