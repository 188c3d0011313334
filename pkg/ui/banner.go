// Package ui renders console output: the banner, configuration block,
// live finding lines and the end-of-scan summary. Everything goes to a
// single writer (stderr by default) so stdout stays free for piping.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/shadowprobe/shadowprobe/pkg/defaults"
)

// Global UI state
var (
	out         io.Writer = os.Stderr
	silentMode  bool
	noColorMode bool
	uiMu        sync.RWMutex
)

// SetOutput redirects all console output. Tests use it to capture lines.
func SetOutput(w io.Writer) {
	uiMu.Lock()
	defer uiMu.Unlock()
	out = w
}

func writer() io.Writer {
	uiMu.RLock()
	defer uiMu.RUnlock()
	return out
}

// SetSilent enables or disables silent mode (suppresses most output)
func SetSilent(silent bool) {
	uiMu.Lock()
	defer uiMu.Unlock()
	silentMode = silent
}

// IsSilent returns whether silent mode is enabled
func IsSilent() bool {
	uiMu.RLock()
	defer uiMu.RUnlock()
	return silentMode
}

// SetNoColor disables colored output
func SetNoColor(noColor bool) {
	uiMu.Lock()
	defer uiMu.Unlock()
	noColorMode = noColor
	if noColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

// IsNoColor returns whether color is disabled
func IsNoColor() bool {
	uiMu.RLock()
	defer uiMu.RUnlock()
	return noColorMode
}

// Configure picks the color profile: none when asked, when NO_COLOR is
// set, or when stderr is not a terminal.
func Configure(noColor bool) {
	if noColor || os.Getenv("NO_COLOR") != "" || !IsTerminal(os.Stderr) {
		SetNoColor(true)
		return
	}
	lipgloss.SetColorProfile(termenv.NewOutput(os.Stderr).ColorProfile())
}

const bannerArt = `
     _               _                                 _
 ___| |__   __ _  __| | _____      ___ __  _ __ ___ | |__   ___
/ __| '_ \ / _' |/ _' |/ _ \ \ /\ / / '_ \| '__/ _ \| '_ \ / _ \
\__ \ | | | (_| | (_| | (_) \ V  V /| |_) | | | (_) | |_) |  __/
|___/_| |_|\__,_|\__,_|\___/ \_/\_/ | .__/|_|  \___/|_.__/ \___|
                                    |_|
`

const bannerSeparator = "________________________________________________"

// PrintBanner prints the application banner with version info
func PrintBanner() {
	if IsSilent() {
		return
	}
	w := writer()
	for _, line := range strings.Split(bannerArt, "\n") {
		if line != "" {
			fmt.Fprintln(w, BannerStyle.Render(line))
		}
	}
	fmt.Fprintf(w, "%31sv%s\n\n", "", VersionStyle.Render(defaults.Version))
}

// ConfigOption is one line of the configuration banner.
type ConfigOption struct {
	Name  string
	Value string
}

// PrintConfigBanner prints the settings in effect, ffuf style:
//
//	:: Target               : https://example.com
func PrintConfigBanner(options []ConfigOption) {
	if IsSilent() {
		return
	}
	w := writer()
	for _, o := range options {
		if o.Value == "" {
			continue
		}
		fmt.Fprintf(w, " :: %-20s : %s\n", ConfigLabelStyle.Render(o.Name), ConfigValueStyle.Render(o.Value))
	}
	fmt.Fprintf(w, "%s\n\n", DividerStyle.Render(bannerSeparator))
}

// PrintDivider prints a stylized divider
func PrintDivider() {
	fmt.Fprintln(writer(), DividerStyle.Render(strings.Repeat("-", 75)))
}

// PrintSection prints a section header
func PrintSection(title string) {
	w := writer()
	fmt.Fprintln(w)
	fmt.Fprintln(w, SectionStyle.Render("> "+title))
	PrintDivider()
}

// PrintHelp prints contextual help
func PrintHelp(text string) {
	fmt.Fprintln(writer(), HelpStyle.Render("  [i] "+text))
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	fmt.Fprintln(writer(), SuccessStyle.Render("  "+Icon("✔", "[+]")+" "+message))
}

// PrintError prints an error message
func PrintError(message string) {
	fmt.Fprintln(writer(), FailStyle.Render("  "+Icon("✘", "[X]")+" "+message))
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	fmt.Fprintln(writer(), WarningStyle.Render("  [!] "+message))
}

// PrintInfo prints an info message
func PrintInfo(message string) {
	if IsSilent() {
		return
	}
	fmt.Fprintf(writer(), "  %s %s\n", BannerStyle.Render("*"), message)
}
