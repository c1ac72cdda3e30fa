package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Banner printed at the start of interactive commands
const Banner = `
    ╔══════════════════════════════════════════════════════╗
    ║   IGFEEDPROBE - FOLLOWING FEED INVESTIGATION UTILITY  ║
    ╚══════════════════════════════════════════════════════╝
`

var (
	mu      sync.Mutex
	out     io.Writer = os.Stderr
	noColor bool
	quiet   bool
)

// Color functions for terminal output
var (
	Cyan    = colorize("\033[36m%s\033[0m")
	Yellow  = colorize("\033[33m%s\033[0m")
	Red     = colorize("\033[31m%s\033[0m")
	Green   = colorize("\033[32m%s\033[0m")
	Magenta = colorize("\033[35m%s\033[0m")
	Dim     = colorize("\033[2m%s\033[0m")
)

// SetOutput redirects status output; it defaults to stderr so stdout carries only results
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
}

// SetNoColor disables ANSI colour codes
func SetNoColor(disabled bool) {
	mu.Lock()
	defer mu.Unlock()
	noColor = disabled
}

// SetQuiet suppresses the banner and status lines. Errors and warnings are
// still written.
func SetQuiet(enabled bool) {
	mu.Lock()
	defer mu.Unlock()
	quiet = enabled
}

// colorize returns a function that wraps text with ANSI color codes
func colorize(colorString string) func(string) string {
	return func(text string) string {
		mu.Lock()
		plain := noColor
		mu.Unlock()
		if plain {
			return text
		}
		return fmt.Sprintf(colorString, text)
	}
}

func writer() io.Writer {
	mu.Lock()
	defer mu.Unlock()
	return out
}

func statusWriter() io.Writer {
	mu.Lock()
	defer mu.Unlock()
	if quiet {
		return io.Discard
	}
	return out
}

// PrintBanner prints the banner in cyan
func PrintBanner() {
	fmt.Fprint(statusWriter(), Cyan(Banner))
}

// PrintError prints an error message in red
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 && fmt.Sprint(args[0]) != "" {
		fmt.Fprintln(writer(), Red(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(writer(), Red(msg))
	}
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	fmt.Fprintln(statusWriter(), Green(msg))
}

// PrintInfo prints a label and value
func PrintInfo(label string, value string) {
	fmt.Fprintf(statusWriter(), "%s: %s\n", Cyan(label), Yellow(value))
}

// PrintWarning prints a warning message in yellow
func PrintWarning(msg string, args ...interface{}) {
	if len(args) > 0 && fmt.Sprint(args[0]) != "" {
		fmt.Fprintln(writer(), Yellow(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(writer(), Yellow(msg))
	}
}

// PrintHighlight prints a highlighted message in magenta
func PrintHighlight(msg string) {
	fmt.Fprintln(statusWriter(), Magenta(msg))
}

// Println writes an uncoloured line to the status output
func Println(a ...interface{}) {
	fmt.Fprintln(statusWriter(), a...)
}

// Printf writes formatted uncoloured text to the status output
func Printf(format string, a ...interface{}) {
	fmt.Fprintf(statusWriter(), format, a...)
}

// Prompt writes an interactive prompt; it is shown even in quiet mode
func Prompt(format string, a ...interface{}) {
	fmt.Fprintf(writer(), format, a...)
}
