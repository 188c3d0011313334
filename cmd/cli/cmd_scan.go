package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/shadowprobe/shadowprobe/pkg/defaults"
	"github.com/shadowprobe/shadowprobe/pkg/finding"
	"github.com/shadowprobe/shadowprobe/pkg/jsonutil"
	"github.com/shadowprobe/shadowprobe/pkg/pipeline"
	"github.com/shadowprobe/shadowprobe/pkg/stats"
	"github.com/shadowprobe/shadowprobe/pkg/ui"
)

// runScan crawls the target and runs the detectors on every endpoint.
// Exit code 1 means at least one vulnerability was reported.
func runScan(args []string) int {
	fs := flag.NewFlagSet("scan", flag.ContinueOnError)
	var cf CommonFlags
	cf.Register(fs)
	types := fs.String("types", "", "Comma-separated detector classes to run, e.g. sqli,xss (default all)")
	jsonl := fs.Bool("jsonl", false, "Stream findings to stdout as JSON lines")
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
	if err == nil && *types != "" {
		profile.Detectors = strings.Split(*types, ",")
		opts.Classes, err = profile.Classes()
	}
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

	st := stats.New()
	opts.Stats = st
	opts.Metrics = m

	var enc *jsonutil.Encoder
	if *jsonl {
		enc = jsonutil.NewStreamEncoder(os.Stdout)
	}
	findings := make(chan *finding.Vulnerability, 64)
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for v := range findings {
			ui.PrintFinding(v, cf.Verbose)
			if enc != nil {
				if err := enc.Encode(v); err != nil {
					opts.Logger.Warn("jsonl write failed", slog.String("error", err.Error()))
				}
			}
		}
	}()
	opts.OnVulnerability = func(v *finding.Vulnerability) { findings <- v }

	report, runErr := pipeline.Run(ctx, opts)
	close(findings)
	<-printed

	if runErr != nil && report.Status == finding.StatusFailed {
		ui.PrintError(runErr.Error())
		return exitCode(runErr)
	}
	if runErr != nil {
		ui.PrintWarning("scan interrupted; reporting partial results")
	}

	if !cf.Silent {
		ui.PrintSummary(report, st.Snapshot())
	}
	if cf.Output != "" {
		if err := jsonutil.WriteFile(cf.Output, report); err != nil {
			ui.PrintError(fmt.Sprintf("write report: %v", err))
			return defaults.ExitInternalError
		}
		ui.PrintSuccess("report written to " + cf.Output)
	}

	if runErr != nil {
		return exitCode(runErr)
	}
	if len(report.Vulnerabilities) > 0 {
		return defaults.ExitFindings
	}
	return defaults.ExitSuccess
}
