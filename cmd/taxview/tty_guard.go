package main

import (
	"os"
	"strings"
)

// init runs before Bubble Tea acquires the terminal.
//
// Lipgloss/termenv background detection can emit OSC/DSR control sequences
// to stdout. Headless invocations (export, --version, --help) print paths
// or text that scripts consume, so terminal probing is disabled for them
// by setting CI=1, which termenv honors.
func init() {
	if os.Getenv("CI") != "" {
		return
	}
	if !shouldSuppressTTYQueries(os.Args[1:], os.Getenv("TAXVIEW_TEST_MODE") != "") {
		return
	}
	_ = os.Setenv("CI", "1")
}

func shouldSuppressTTYQueries(args []string, envTest bool) bool {
	if envTest {
		return true
	}
	for _, arg := range args {
		if arg == "--export" || strings.HasPrefix(arg, "--export=") {
			return true
		}
		switch arg {
		case "--version", "-v", "--help", "-h":
			return true
		}
	}
	return false
}
