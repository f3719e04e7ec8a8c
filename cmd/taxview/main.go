// Command taxview explores a product-taxonomy clustering result in the
// terminal, or exports the tree diagram headlessly.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/pprof"
	"strconv"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"github.com/vanderheijden86/taxview/internal/datasource"
	"github.com/vanderheijden86/taxview/pkg/app"
	"github.com/vanderheijden86/taxview/pkg/config"
	"github.com/vanderheijden86/taxview/pkg/debug"
	"github.com/vanderheijden86/taxview/pkg/export"
	"github.com/vanderheijden86/taxview/pkg/loader"
	"github.com/vanderheijden86/taxview/pkg/metrics"
	"github.com/vanderheijden86/taxview/pkg/search"
	"github.com/vanderheijden86/taxview/pkg/ui"
	"github.com/vanderheijden86/taxview/pkg/version"
	"github.com/vanderheijden86/taxview/pkg/watcher"
)

// promptExport is the --export value when the flag is given without a path.
const promptExport = "?"

// Exit codes.
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

type options struct {
	data       string
	rich       string
	threshold  int
	configPath string
	watch      bool
	exportPath string
	format     string
	width      int
	height     int
	selectTerm string
	logOutput  string
	cpuProfile string
	version    bool
	help       bool

	flags *pflag.FlagSet
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	o := &options{}
	fs := pflag.NewFlagSet("taxview", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.data, "data", "", "cluster data location (file or http(s) URL)")
	fs.StringVar(&o.rich, "rich", "", `breakdown data location, "-" to skip`)
	fs.IntVarP(&o.threshold, "threshold", "t", 0, "minimum cluster purity, 0-100")
	fs.StringVar(&o.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/taxview/config.yaml)")
	fs.BoolVarP(&o.watch, "watch", "w", false, "reload when the data files change")
	fs.StringVar(&o.exportPath, "export", "", "export the diagram to PATH and exit (no PATH: prompt)")
	fs.Lookup("export").NoOptDefVal = promptExport
	fs.StringVar(&o.format, "format", "", "export format: png or svg")
	fs.IntVar(&o.width, "width", 0, "export viewport width in pixels")
	fs.IntVar(&o.height, "height", 0, "export viewport height in pixels")
	fs.StringVar(&o.selectTerm, "select", "", "search term to expand and focus before showing or exporting")
	fs.StringVar(&o.logOutput, "log-output", "", "write JSON logs to this file while the TUI runs")
	fs.StringVar(&o.cpuProfile, "cpu-profile", "", "write CPU profile to file")
	fs.BoolVarP(&o.version, "version", "v", false, "show version")
	fs.BoolVarP(&o.help, "help", "h", false, "show help")
	fs.SortFlags = false
	o.flags = fs

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return o, nil
}

func usage(w io.Writer, fs *pflag.FlagSet) {
	fmt.Fprintln(w, "Usage: taxview [options]")
	fmt.Fprintln(w, "\nExplore a taxonomy clustering result as a collapsible tree.")
	fmt.Fprintln(w)
	fmt.Fprint(w, fs.FlagUsages())
}

func run(args []string, stdout, stderr io.Writer) int {
	o, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	if o.help {
		usage(stdout, o.flags)
		return exitOK
	}
	if o.version {
		fmt.Fprintln(stdout, version.String())
		return exitOK
	}

	if o.cpuProfile != "" {
		f, err := os.Create(o.cpuProfile)
		if err != nil {
			fmt.Fprintf(stderr, "Could not create CPU profile: %v\n", err)
			return exitError
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(stderr, "Could not start CPU profile: %v\n", err)
			return exitError
		}
		defer pprof.StopCPUProfile()
	}

	cfg, err := loadConfig(o)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	if err := applyFlags(o, &cfg); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	headless := o.flags.Changed("export")
	logger, closeLog, err := newLogger(headless, o.logOutput, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	defer closeLog()

	loadOpts, err := loaderOptions(cfg, logger)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}

	ds, err := loader.Load(context.Background(), loadOpts)
	if err != nil {
		var fatal *loader.FatalLoadError
		if errors.As(err, &fatal) {
			fmt.Fprintf(stderr, "Error: %v\n", fatal)
			fmt.Fprintf(stderr, "Expected %s.json in %s, or pass --data.\n", loader.ClusterDataName, cfg.Data.Dir)
		} else {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return exitError
	}

	state := app.New(ds, app.Options{
		Threshold: cfg.View.Threshold,
		Limits: search.Limits{
			Categories: cfg.Search.MaxCategories,
			Clusters:   cfg.Search.MaxClusters,
			Total:      cfg.Search.MaxTotal,
		},
		Width:        float64(cfg.Export.Width),
		Height:       float64(cfg.Export.Height),
		ExportDir:    cfg.Export.Dir,
		ExportFormat: cfg.Export.Format,
		DetailsOpen:  cfg.View.DetailsOpen,
	})

	if o.selectTerm != "" {
		if _, err := state.SelectFirst(o.selectTerm); err != nil {
			logger.Warn("select", "term", o.selectTerm, "error", err)
		}
	}

	if debug.Enabled() {
		defer func() { debug.Log("%s", metrics.Summary()) }()
	}

	if headless {
		return runExport(o, cfg, state, stdout, stderr)
	}
	if err := runTUI(state, cfg, o, loadOpts); err != nil {
		fmt.Fprintf(stderr, "Error running taxview: %v\n", err)
		return exitError
	}
	return exitOK
}

// loadConfig reads --config when given (it must exist), otherwise the XDG
// config file if present.
func loadConfig(o *options) (config.Config, error) {
	if o.configPath == "" {
		return config.Load()
	}
	if _, err := os.Stat(o.configPath); err != nil {
		return config.Config{}, fmt.Errorf("config: %w", err)
	}
	return config.LoadFrom(o.configPath)
}

// applyFlags layers explicitly set flags over the config file.
func applyFlags(o *options, cfg *config.Config) error {
	fs := o.flags
	if fs.Changed("data") {
		cfg.Data.Data = o.data
	}
	if fs.Changed("rich") {
		cfg.Data.Rich = o.rich
	}
	if fs.Changed("threshold") {
		cfg.View.Threshold = o.threshold
	}
	if fs.Changed("watch") {
		cfg.Watch.Enabled = o.watch
	}
	if fs.Changed("format") {
		cfg.Export.Format = o.format
	}
	if fs.Changed("width") {
		cfg.Export.Width = o.width
	}
	if fs.Changed("height") {
		cfg.Export.Height = o.height
	}
	if cfg.Export.Width == 0 {
		cfg.Export.Width = app.DefaultWidth
	}
	if cfg.Export.Height == 0 {
		cfg.Export.Height = app.DefaultHeight
	}
	if fs.Changed("width") && o.width <= 0 || fs.Changed("height") && o.height <= 0 {
		return fmt.Errorf("--width and --height must be positive")
	}
	return cfg.Validate()
}

// loaderOptions resolves the artifact locations: explicit values first,
// then the data directory.
func loaderOptions(cfg config.Config, logger *slog.Logger) (loader.Options, error) {
	opts := loader.Options{
		DataLocation: cfg.Data.Data,
		RichLocation: cfg.Data.Rich,
		Logger:       logger,
	}
	if opts.DataLocation == "" || (opts.RichLocation == "" && !cfg.Data.RichDisabled()) {
		dir := cfg.Data.Dir
		if os.Getenv(loader.DataDirEnvVar) != "" || dir == "" {
			d, err := loader.GetDataDir("")
			if err != nil {
				return opts, err
			}
			dir = d
		}
		if opts.DataLocation == "" {
			opts.DataLocation = loader.FindArtifact(dir, loader.ClusterDataName)
		}
		if opts.RichLocation == "" {
			opts.RichLocation = loader.FindArtifact(dir, loader.RichDataName)
		}
	}
	if cfg.Data.RichDisabled() {
		opts.RichLocation = ""
	}
	return opts, nil
}

// newLogger picks the slog sink: stderr text for headless runs, a JSON
// file for the TUI when --log-output is set, otherwise nothing so the alt
// screen stays clean.
func newLogger(headless bool, logOutput string, stderr io.Writer) (*slog.Logger, func(), error) {
	if logOutput != "" {
		f, err := os.OpenFile(logOutput, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log output: %w", err)
		}
		return slog.New(slog.NewJSONHandler(f, nil)), func() { f.Close() }, nil
	}
	if headless {
		return slog.New(slog.NewTextHandler(stderr, nil)), func() {}, nil
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil)), func() {}, nil
}

func runExport(o *options, cfg config.Config, state *app.State, stdout, stderr io.Writer) int {
	path := o.exportPath
	format := cfg.Export.Format
	if o.flags.Changed("format") {
		format = o.format
	}

	if path == promptExport {
		path = ""
		if export.IsTerminal() {
			res, err := export.Prompt(cfg.Export.Dir, export.PromptResult{
				Format: export.Format(cfg.Export.Format),
				Width:  cfg.Export.Width,
				Height: cfg.Export.Height,
			})
			if err != nil {
				fmt.Fprintf(stderr, "Export cancelled: %v\n", err)
				return exitError
			}
			path, format = res.Path, string(res.Format)
			state.SetViewport(float64(res.Width), float64(res.Height))
		}
	}
	if path != "" && !o.flags.Changed("format") && filepath.Ext(path) != "" {
		format = ""
	}

	written, err := state.Export(format, path)
	if err != nil {
		fmt.Fprintf(stderr, "Export failed: %v\n", err)
		return exitError
	}
	fmt.Fprintln(stdout, written)
	return exitOK
}

func runTUI(state *app.State, cfg config.Config, o *options, loadOpts loader.Options) error {
	m := ui.NewModel(state)

	if cfg.Watch.Enabled {
		var paths []string
		for _, loc := range []string{loadOpts.DataLocation, loadOpts.RichLocation} {
			if loc != "" && datasource.ParseLocation(loc).Type == datasource.SourceTypeFile {
				paths = append(paths, loc)
			}
		}
		w, err := watcher.NewWatcher(paths,
			watcher.WithDebounceDuration(cfg.Watch.Debounce),
			watcher.WithPollInterval(cfg.Watch.PollInterval),
			watcher.WithOnError(func(err error) {
				loadOpts.Logger.Warn("watcher", "error", err)
			}),
		)
		if err == nil {
			err = w.Start()
		}
		if err != nil {
			loadOpts.Logger.Warn("watch disabled", "error", err)
		} else {
			defer w.Stop()
			m = m.WithWatcher(w, loadOpts)
		}
	}

	return runTUIProgram(m)
}

func runTUIProgram(m ui.Model) error {
	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithoutSignalHandler(),
	)

	runDone := make(chan struct{})
	defer close(runDone)

	// Graceful shutdown on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-runDone:
			return
		case <-sigCh:
		}

		p.Quit()

		select {
		case <-runDone:
			return
		case <-sigCh:
		case <-time.After(5 * time.Second):
		}

		p.Kill()
	}()

	// Optional auto-quit for automated tests: set TAXVIEW_TUI_AUTOCLOSE_MS.
	if v := os.Getenv("TAXVIEW_TUI_AUTOCLOSE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			go func() {
				timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
				defer timer.Stop()

				select {
				case <-runDone:
					return
				case <-timer.C:
				}
				p.Quit()
			}()
		}
	}

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, tea.ErrInterrupted) {
		return nil
	}
	return err
}
