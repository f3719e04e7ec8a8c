// Package debug provides conditional debug logging for taxview.
//
// Debug logging is enabled by setting the TAXVIEW_DEBUG environment variable:
//
//	TAXVIEW_DEBUG=1 taxview --data outputs/cluster_data.json
//
// Messages go to stderr unless SetOutput redirects them (the TUI points
// them at the --log-output file so the alt screen stays clean). When
// disabled, every function is a no-op.
package debug

import (
	"io"
	"log"
	"os"
	"sync"
	"time"
)

const prefix = "[TAXVIEW_DEBUG] "

var (
	mu      sync.Mutex
	enabled bool
	logger  *log.Logger
)

func init() {
	if os.Getenv("TAXVIEW_DEBUG") != "" {
		enabled = true
		logger = log.New(os.Stderr, prefix, log.Ltime|log.Lmicroseconds)
	}
}

// Enabled returns whether debug logging is enabled.
func Enabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return enabled
}

// SetEnabled allows programmatic control of debug logging.
func SetEnabled(e bool) {
	mu.Lock()
	defer mu.Unlock()
	enabled = e
	if e && logger == nil {
		logger = log.New(os.Stderr, prefix, log.Ltime|log.Lmicroseconds)
	}
}

// SetOutput redirects debug output. A nil writer restores stderr.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if w == nil {
		w = os.Stderr
	}
	logger = log.New(w, prefix, log.Ltime|log.Lmicroseconds)
}

func get() *log.Logger {
	mu.Lock()
	defer mu.Unlock()
	if !enabled {
		return nil
	}
	return logger
}

// Log writes a printf-style debug message.
func Log(format string, args ...any) {
	if l := get(); l != nil {
		l.Printf(format, args...)
	}
}

// LogTiming writes a timing message.
func LogTiming(name string, d time.Duration) {
	if l := get(); l != nil {
		l.Printf("%s took %v", name, d)
	}
}

// LogEnterExit logs function entry and exit with timing:
//
//	defer debug.LogEnterExit("BuildTree")()
func LogEnterExit(name string) func() {
	l := get()
	if l == nil {
		return func() {}
	}
	l.Printf("-> %s", name)
	start := time.Now()
	return func() {
		l.Printf("<- %s (%v)", name, time.Since(start))
	}
}

// Section logs a section header.
func Section(name string) {
	if l := get(); l != nil {
		l.Printf("=== %s ===", name)
	}
}
