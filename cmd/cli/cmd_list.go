package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/shadowprobe/shadowprobe/pkg/attackconfig"
	"github.com/shadowprobe/shadowprobe/pkg/config"
	"github.com/shadowprobe/shadowprobe/pkg/defaults"
	"github.com/shadowprobe/shadowprobe/pkg/scanner"
	"github.com/shadowprobe/shadowprobe/pkg/ui"
)

// runList prints the registered detectors and the embedded profiles.
func runList(args []string) int {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	noColor := fs.Bool("no-color", false, "Disable colored output")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return defaults.ExitSuccess
		}
		return defaults.ExitUserError
	}
	ui.Configure(*noColor)

	if err := listDetectors(os.Stdout); err != nil {
		ui.PrintError(err.Error())
		return defaults.ExitInternalError
	}
	fmt.Fprintln(os.Stdout)
	if err := listProfiles(os.Stdout); err != nil {
		ui.PrintError(err.Error())
		return exitCode(err)
	}
	return defaults.ExitSuccess
}

func listDetectors(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CLASS\tDETECTOR\tDEFAULT SEVERITY")
	for _, d := range scanner.New(attackconfig.Base{}).Detectors() {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", d.Class(), d.Name(), d.Class().DefaultSeverity().Label())
	}
	return tw.Flush()
}

func listProfiles(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PROFILE\tDEPTH\tCONCURRENCY\tTIMEOUT\tRATE\tDESCRIPTION")
	for _, name := range config.Names() {
		p, err := config.LoadProfile(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s\t%s\n", p.Name, p.Depth, p.Concurrency, p.Timeout, p.Rate, p.Description)
	}
	return tw.Flush()
}
