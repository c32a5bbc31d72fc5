// Command gcv shows a graph of elements on an interactive terminal canvas.
// Without a terminal it renders the graph to image files instead.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/pprof"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/vanderheijden86/graphcanvas/internal/datasource"
	"github.com/vanderheijden86/graphcanvas/pkg/canvas"
	"github.com/vanderheijden86/graphcanvas/pkg/config"
	"github.com/vanderheijden86/graphcanvas/pkg/debug"
	"github.com/vanderheijden86/graphcanvas/pkg/element"
	"github.com/vanderheijden86/graphcanvas/pkg/export"
	"github.com/vanderheijden86/graphcanvas/pkg/metrics"
	"github.com/vanderheijden86/graphcanvas/pkg/remote"
	"github.com/vanderheijden86/graphcanvas/pkg/ui"
	"github.com/vanderheijden86/graphcanvas/pkg/version"
	"github.com/vanderheijden86/graphcanvas/pkg/watcher"
)

type options struct {
	elements   string
	server     string
	db         string
	live       string
	configPath string
	exports    []string
	noWatch    bool
	metrics    bool
}

func main() {
	cpuProfile := flag.String("cpu-profile", "", "Write CPU profile to file")
	help := flag.Bool("help", false, "Show help")
	versionFlag := flag.Bool("version", false, "Show version")
	elements := flag.String("elements", "", "Elements file: JSON, YAML or a SQLite graph store")
	server := flag.String("server", "", "Node server base URL used to expand subtrees")
	db := flag.String("db", "", "SQLite graph store used to expand subtrees (instead of -server)")
	live := flag.String("live", "", "Websocket URL pushing the top-level elements")
	configPath := flag.String("config", "", "Config file (default $XDG_CONFIG_HOME/gcv/config.yaml)")
	exportTo := flag.String("export", "", "Render to these comma-separated image files and exit")
	noWatch := flag.Bool("no-watch", false, "Do not reload the elements file when it changes")
	metricsFlag := flag.Bool("metrics", false, "Print timing metrics as JSON to stderr on exit")
	flag.Parse()

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not create CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Could not start CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer pprof.StopCPUProfile()
	}

	if *help {
		fmt.Println("Usage: gcv [options] [elements-file]")
		fmt.Println("\nAn interactive graph canvas for the terminal.")
		flag.PrintDefaults()
		return
	}
	if *versionFlag {
		fmt.Println(version.String("gcv"))
		return
	}

	opts := options{
		elements:   *elements,
		server:     *server,
		db:         *db,
		live:       *live,
		configPath: *configPath,
		exports:    splitList(*exportTo),
		noWatch:    *noWatch,
		metrics:    *metricsFlag,
	}
	if opts.elements == "" && flag.NArg() > 0 {
		opts.elements = flag.Arg(0)
	}

	err := run(context.Background(), opts)
	if opts.metrics {
		_ = metrics.WriteJSON(os.Stderr)
	}
	_ = debug.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	if opts.metrics {
		metrics.SetEnabled(true)
	}
	cfg := loadConfig(opts)
	opts.live = cfg.Server.LiveURL

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	els, err := initialElements(ctx, opts)
	if err != nil {
		return err
	}

	interactive := term.IsTerminal(int(os.Stdout.Fd())) && term.IsTerminal(int(os.Stdin.Fd()))
	if len(opts.exports) > 0 || !interactive {
		targets := opts.exports
		if len(targets) == 0 {
			path, _, err := export.Target(cfg.ExportOptions())
			if err != nil {
				return err
			}
			targets = []string{path}
		}
		paths, err := exportAll(ctx, els, cfg, targets)
		for _, p := range paths {
			fmt.Println(p)
		}
		return err
	}

	uiOpts := ui.Options{
		Canvas: cfg.CanvasOptions(),
		Export: cfg.ExportOptions(),
		Title:  title(opts),
	}

	src, closeSrc, err := subtreeSource(cfg, opts)
	if err != nil {
		return err
	}
	if closeSrc != nil {
		defer closeSrc()
	}
	uiOpts.Source = src

	if opts.elements != "" {
		path := opts.elements
		uiOpts.Loader = func(ctx context.Context) ([]element.Element, error) {
			return datasource.LoadElements(ctx, path)
		}
		if cfg.Watch.Enabled && !opts.noWatch {
			w, err := startWatcher(ctx, path, cfg)
			if err != nil {
				debug.Log("watch %s disabled: %v", path, err)
			} else {
				defer w.Stop()
				uiOpts.Watcher = w
			}
		}
	}

	if opts.live != "" {
		feed, err := remote.Dial(ctx, opts.live)
		if err != nil {
			return err
		}
		defer feed.Close()
		uiOpts.Feed = feed
	}

	return runTUIProgram(ui.NewModel(ctx, els, uiOpts))
}

func loadConfig(opts options) config.Config {
	var (
		cfg config.Config
		err error
	)
	if opts.configPath != "" {
		cfg, err = config.LoadFrom(opts.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		// Non-fatal: Load falls back to defaults.
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	if opts.server != "" {
		cfg.Server.BaseURL = opts.server
	}
	if opts.live != "" {
		cfg.Server.LiveURL = opts.live
	}
	return cfg
}

// initialElements loads the parent elements from the elements file, or the
// top-level elements of the -db store. A live feed alone starts empty and
// fills on the first push.
func initialElements(ctx context.Context, opts options) ([]element.Element, error) {
	switch {
	case opts.elements != "":
		return datasource.LoadElements(ctx, opts.elements)
	case opts.db != "":
		return datasource.LoadElements(ctx, opts.db)
	case opts.live != "":
		return nil, nil
	}
	return nil, errors.New("no elements: pass an elements file, -db or -live")
}

// subtreeSource picks where expansions come from: the -db store wins over
// the node server.
func subtreeSource(cfg config.Config, opts options) (remote.SubtreeSource, func() error, error) {
	switch {
	case opts.db != "":
		store, err := datasource.OpenReadOnly(opts.db)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	case cfg.Server.BaseURL != "":
		c, err := remote.NewClient(cfg.Server.BaseURL, remote.WithTimeout(cfg.Server.Timeout))
		if err != nil {
			return nil, nil, err
		}
		return c, nil, nil
	}
	return nil, nil, nil
}

func startWatcher(ctx context.Context, path string, cfg config.Config) (*watcher.Watcher, error) {
	wopts := cfg.WatcherOptions()
	if typ, err := datasource.DetectSource(path); err == nil && typ == datasource.SourceSQLite {
		wopts = append(wopts, watcher.WithSidecars("-wal"))
	}
	wopts = append(wopts, watcher.WithOnError(func(err error) {
		debug.Log("watch %s: %v", path, err)
	}))
	w, err := watcher.New(path, wopts...)
	if err != nil {
		return nil, err
	}
	if err := w.Start(ctx); err != nil {
		return nil, err
	}
	return w, nil
}

// exportAll lays out els once and renders every target concurrently. It
// returns the written paths in target order.
func exportAll(ctx context.Context, els []element.Element, cfg config.Config, targets []string) ([]string, error) {
	laid := canvas.New(els, cfg.CanvasOptions()).Elements()
	base := cfg.ExportOptions()

	paths := make([]string, len(targets))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for i, target := range targets {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			opts := base
			opts.Dir, opts.FileName = filepath.Split(target)
			if opts.Dir == "" {
				opts.Dir = "."
			}
			opts.Format = ""
			path, err := export.SaveImage(laid, opts)
			if err != nil {
				return fmt.Errorf("export %s: %w", target, err)
			}
			mu.Lock()
			paths[i] = path
			mu.Unlock()
			return nil
		})
	}
	err := g.Wait()

	var done []string
	for _, p := range paths {
		if p != "" {
			done = append(done, p)
		}
	}
	return done, err
}

func runTUIProgram(m ui.Model) error {
	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithoutSignalHandler(),
	)

	runDone := make(chan struct{})
	defer close(runDone)

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

	// Auto-quit for scripted runs.
	if v := os.Getenv("GCV_TUI_AUTOCLOSE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			go func() {
				timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
				defer timer.Stop()
				select {
				case <-runDone:
				case <-timer.C:
					p.Quit()
				}
			}()
		}
	}

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, tea.ErrInterrupted) {
		return nil
	}
	return err
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func title(opts options) string {
	switch {
	case opts.elements != "":
		return filepath.Base(opts.elements)
	case opts.db != "":
		return filepath.Base(opts.db)
	case opts.live != "":
		return opts.live
	}
	return "gcv"
}
