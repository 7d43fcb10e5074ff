// dailyreport collects today's commits from every local repository, writes a
// plain-text activity report and a three-field work summary, and can submit
// the summary to the company workflow system.
//
// Usage:
//
//	# Report for today with ~/.config/dailyreport/config.yaml
//	dailyreport
//
//	# Report for a past day, then submit it without prompting
//	dailyreport --date 2024-01-01 --submit --yes
//
//	# List discovered repositories, or the day's commits as JSON
//	dailyreport repos
//	dailyreport commits --json
//
//	# Submit the stored summary of a day
//	dailyreport submit --date 2024-01-01
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/Stone-IT-Cloud/dailyreport/internal/clierr"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	// Restore default handling after the first signal so a second one kills
	// the process.
	go func() {
		<-ctx.Done()
		stop()
	}()
	code := execute(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// execute runs the command line and maps the outcome to an exit status.
func execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	return run(ctx, newApp(stdin, stdout, stderr), args)
}

func run(ctx context.Context, a *app, args []string) (code int) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(a.stderr, "panic: %v\n\n%s", r, debug.Stack())
			code = clierr.ExitPanic
		}
	}()

	cmd := newRootCmd(a)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	// Work cut short by a signal may still have returned nil.
	if ctx.Err() != nil && err == nil {
		err = ctx.Err()
	}
	if ctx.Err() != nil && !clierr.IsInterrupted(err) {
		err = clierr.Interrupted(err)
	}
	if err == nil {
		return clierr.ExitOK
	}
	if clierr.IsInterrupted(err) {
		fmt.Fprintln(a.stderr, "interrupted")
		return clierr.ExitInterrupted
	}
	fmt.Fprintln(a.stderr, "Error:", err)
	return clierr.ExitCodeOf(err)
}
