package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shadowprobe/shadowprobe/pkg/crawler"
	"github.com/shadowprobe/shadowprobe/pkg/defaults"
	"github.com/shadowprobe/shadowprobe/pkg/finding"
	"github.com/shadowprobe/shadowprobe/pkg/jsonutil"
	"github.com/shadowprobe/shadowprobe/pkg/pipeline"
	"github.com/shadowprobe/shadowprobe/pkg/ui"
)

// runCrawl discovers endpoints without probing them. URLs are printed to
// stdout as they are found so the output can be piped.
func runCrawl(args []string) int {
	fs := flag.NewFlagSet("crawl", flag.ContinueOnError)
	var cf CommonFlags
	cf.Register(fs)
	showDepth := fs.Bool("show-depth", false, "Prefix each URL with its crawl depth")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return defaults.ExitSuccess
		}
		return defaults.ExitUserError
	}
	if cf.Target == "" && fs.NArg() > 0 {
		cf.Target = fs.Arg(0)
	}

	ui.Configure(cf.NoColor)
	ui.SetSilent(cf.Silent)
	ui.PrintBanner()

	opts, profile, err := cf.Options()
	if err != nil {
		ui.PrintError(err.Error())
		return exitCode(err)
	}
	ui.PrintConfigBanner(configBanner(cf.Target, profile))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m, flush, err := cf.Telemetry(ctx, opts.Logger)
	if err != nil {
		ui.PrintError(err.Error())
		return defaults.ExitInternalError
	}
	defer flush()

	opts.Metrics = m
	opts.SkipScan = true
	opts.OnEndpoint = func(e crawler.Endpoint) {
		if *showDepth {
			fmt.Fprintf(os.Stdout, "%d\t%s\n", e.Depth, e.URL)
			return
		}
		fmt.Fprintln(os.Stdout, e.URL)
	}

	report, runErr := pipeline.Run(ctx, opts)
	if runErr != nil && report.Status == finding.StatusFailed {
		ui.PrintError(runErr.Error())
		return exitCode(runErr)
	}

	ui.PrintInfo(fmt.Sprintf("%d endpoints, %d requests in %s",
		len(report.Endpoints), report.TotalRequests, report.Duration().Round(time.Millisecond)))
	if cf.Output != "" {
		if err := jsonutil.WriteFile(cf.Output, report); err != nil {
			ui.PrintError(fmt.Sprintf("write report: %v", err))
			return defaults.ExitInternalError
		}
		ui.PrintSuccess("report written to " + cf.Output)
	}
	return exitCode(runErr)
}
