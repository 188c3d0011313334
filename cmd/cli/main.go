// Command shadowprobe crawls a web application and probes every discovered
// endpoint for common injection and misconfiguration vulnerabilities.
package main

import (
	"fmt"
	"os"

	"github.com/shadowprobe/shadowprobe/pkg/defaults"
	"github.com/shadowprobe/shadowprobe/pkg/ui"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run dispatches a subcommand and returns the process exit code.
func run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return defaults.ExitUserError
	}

	switch args[0] {
	case "scan":
		return runScan(args[1:])
	case "crawl":
		return runCrawl(args[1:])
	case "list", "ls":
		return runList(args[1:])
	case "-v", "--version", "version":
		fmt.Printf("%s v%s\n", defaults.ToolName, defaults.Version)
		return defaults.ExitSuccess
	case "-h", "--help", "help":
		printUsage()
		return defaults.ExitSuccess
	default:
		ui.PrintError(fmt.Sprintf("unknown command %q", args[0]))
		printUsage()
		return defaults.ExitUserError
	}
}

func printUsage() {
	ui.PrintBanner()

	w := os.Stderr
	fmt.Fprintln(w, ui.SectionStyle.Render("COMMANDS"))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s  %s\n", ui.StatValueStyle.Render("scan   "), "Crawl the target and run every detector on each endpoint")
	fmt.Fprintf(w, "  %s  %s\n", ui.StatValueStyle.Render("crawl  "), "Discover endpoints only, one URL per line on stdout")
	fmt.Fprintf(w, "  %s  %s\n", ui.StatValueStyle.Render("list   "), "Show detectors and scan profiles")
	fmt.Fprintf(w, "  %s  %s\n", ui.StatValueStyle.Render("version"), "Print the version")
	fmt.Fprintln(w)

	fmt.Fprintln(w, ui.SectionStyle.Render("EXAMPLES"))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "    %s\n", ui.ConfigValueStyle.Render("shadowprobe scan -u https://app.example.com"))
	fmt.Fprintf(w, "    %s\n", ui.ConfigValueStyle.Render("shadowprobe scan -u https://app.example.com -profile stealth -o report.json"))
	fmt.Fprintf(w, "    %s\n", ui.ConfigValueStyle.Render("shadowprobe crawl -u https://app.example.com -depth 5 | sort"))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s\n\n", ui.HelpStyle.Render("Run 'shadowprobe <command> -h' for command flags."))
}
