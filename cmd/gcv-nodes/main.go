// Command gcv-nodes serves subtrees of a SQLite graph store to gcv.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/graphcanvas/internal/datasource"
	"github.com/vanderheijden86/graphcanvas/internal/nodeserver"
	"github.com/vanderheijden86/graphcanvas/pkg/version"
	"github.com/vanderheijden86/graphcanvas/pkg/watcher"
)

type options struct {
	addr       string
	dbPath     string
	importPath string
	watch      bool
}

func main() {
	addr := flag.String("addr", ":8080", "HTTP listen address")
	dbPath := flag.String("db", "./graph.db", "SQLite graph store path")
	importPath := flag.String("import", "", "Import a JSON or YAML graph document before serving")
	noWatch := flag.Bool("no-watch", false, "Do not push updates to live clients when the database changes")
	versionFlag := flag.Bool("version", false, "Show version")
	flag.Parse()

	if *versionFlag {
		fmt.Println(version.String("gcv-nodes"))
		return
	}

	log.SetFlags(log.LstdFlags | log.Lshortfile)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := options{addr: *addr, dbPath: *dbPath, importPath: *importPath, watch: !*noWatch}
	if err := run(ctx, opts); err != nil {
		log.Printf("gcv-nodes: %v", err)
		os.Exit(1)
	}
	log.Println("Server stopped")
}

func run(ctx context.Context, opts options) error {
	store, err := datasource.Open(opts.dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()
	log.Printf("Database opened: %s", opts.dbPath)

	if opts.importPath != "" {
		if err := importDocument(ctx, store, opts.importPath); err != nil {
			return err
		}
	}

	hub := nodeserver.NewHub()
	srv := nodeserver.New(store, hub)
	server := &http.Server{
		Addr:              opts.addr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		log.Printf("Server listening on %s", opts.addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if opts.watch {
		w, err := watcher.New(opts.dbPath,
			watcher.WithSidecars("-wal"),
			watcher.WithOnError(func(err error) { log.Printf("watch %s: %v", opts.dbPath, err) }),
		)
		if err == nil {
			err = w.Start(gctx)
		}
		if err != nil {
			log.Printf("Warning: live updates disabled: %v", err)
		} else {
			g.Go(func() error {
				defer w.Stop()
				rebroadcast(gctx, w.Changed(), srv)
				return nil
			})
		}
	}

	return g.Wait()
}

func importDocument(ctx context.Context, store *datasource.Store, path string) error {
	doc, err := datasource.ReadDocument(path)
	if err != nil {
		return err
	}
	if err := store.Import(ctx, doc); err != nil {
		return fmt.Errorf("import %s: %w", path, err)
	}
	nodes, edges, err := store.Counts(ctx)
	if err != nil {
		return err
	}
	log.Printf("Imported %s: %d nodes, %d edges, %d top-level elements", path, nodes, edges, len(doc.Top))
	return nil
}

type broadcaster interface {
	Broadcast(ctx context.Context) error
}

// rebroadcast pushes the top-level elements to live clients on every change
// until ctx is done.
func rebroadcast(ctx context.Context, changed <-chan struct{}, b broadcaster) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-changed:
			if err := b.Broadcast(ctx); err != nil {
				log.Printf("broadcast: %v", err)
			}
		}
	}
}
