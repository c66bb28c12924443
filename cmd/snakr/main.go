// # cmd/snakr/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"snakr/internal/core/app"
	"snakr/internal/core/config"
	"snakr/internal/core/errors"
	"snakr/internal/data/cache"
	"snakr/internal/data/discovery"
	"snakr/internal/engine/diag"
	"snakr/internal/engine/parser"
	"snakr/internal/engine/qname"
	"snakr/internal/output"
	"snakr/internal/shared/observability"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	configPath = flag.String("config", "", "Path to config file (default ./"+config.DefaultFile+" when present)")
	watch      = flag.Bool("watch", false, "Rebuild whenever a .py file changes")
	trace      = flag.Bool("trace", false, "Trace shortest import chain between two modules")
	impact     = flag.String("impact", "", "Report the modules that depend on a module")
	history    = flag.Int("history", 0, "Print the N most recent recorded runs and exit")
	dotPath    = flag.String("dot", "", "Write a Graphviz DOT file (- for stdout)")
	tsvPath    = flag.String("tsv", "", "Write the edge list as TSV (- for stdout)")
	jsonPath   = flag.String("json", "", "Write the analyzed graph as JSON (- for stdout)")
	noTree     = flag.Bool("no-tree", false, "Do not print the dependency tree")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	version    = flag.Bool("version", false, "Print version and exit")
)

const VERSION = "0.3.0"

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("snakr v%s\n", VERSION)
		os.Exit(0)
	}

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	cfg, err := loadConfig()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if *trace {
		if flag.NArg() != 2 {
			fmt.Fprintln(os.Stderr, "trace mode requires two module arguments: snakr -trace <from> <to>")
			os.Exit(1)
		}
		if *impact != "" {
			fmt.Fprintln(os.Stderr, "-trace and -impact cannot be used together")
			os.Exit(1)
		}
	} else if flag.NArg() > 0 {
		cfg.Roots = flag.Args()
	}
	applyFlagOverrides(cfg)

	if *history > 0 {
		os.Exit(printHistory(cfg, *history))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, cfg)
	stop()
	os.Exit(code)
}

func loadConfig() (*config.Config, error) {
	path := *configPath
	if path == "" {
		if _, err := os.Stat(config.DefaultFile); err != nil {
			return config.FromEnv()
		}
		path = config.DefaultFile
	}
	return config.Load(path)
}

func applyFlagOverrides(cfg *config.Config) {
	if *dotPath != "" {
		cfg.Output.DOT = *dotPath
	}
	if *tsvPath != "" {
		cfg.Output.TSV = *tsvPath
	}
	if *jsonPath != "" {
		cfg.Output.JSON = *jsonPath
	}
	if *noTree {
		off := false
		cfg.Output.Tree = &off
	}
}

func run(ctx context.Context, cfg *config.Config) int {
	shutdownTracing, err := observability.InitTracing(ctx, cfg.Observability.OTLPEndpoint, VERSION)
	if err != nil {
		slog.Error("failed to initialize tracing", "error", err)
		return 1
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			slog.Warn("failed to flush traces", "error", err)
		}
	}()

	if addr := cfg.Observability.MetricsAddr; addr != "" {
		srv := startMetricsServer(addr)
		defer srv.Shutdown(context.Background())
	}

	p := parser.NewParser()
	var store *cache.Store
	if cfg.Cache.Enabled {
		store, err = cache.Open(cfg.Cache.Path, cfg.Cache.Entries)
		if err != nil {
			slog.Warn("parse cache disabled", "path", cfg.Cache.Path, "error", err)
		} else {
			defer store.Close()
			if n, err := store.Prune(); err == nil && n > 0 {
				slog.Debug("pruned stale parse cache rows", "rows", n)
			}
			p.WithCache(store)
		}
	}

	walker, err := discovery.NewWalker(cfg.Roots, discovery.Options{
		ExcludeDirs:  cfg.Exclude.Dirs,
		ExcludeFiles: cfg.Exclude.Files,
		Gitignore:    cfg.Exclude.UseGitignore(),
	})
	if err != nil {
		slog.Error("invalid crawl roots", "error", err)
		return 1
	}

	collector := diag.NewCollector()
	logged := diag.Throttle(diag.LogSink{}, 20, 50)
	builder := app.NewBuilder(p, diag.Multi(collector, logged), app.OptionsFromConfig(cfg))

	res, err := builder.Build(ctx, walker)
	if err != nil {
		if !errors.IsCode(err, errors.CodeStopped) || res == nil {
			slog.Error("build failed", "error", err)
			return 1
		}
		slog.Warn("build interrupted, reporting partial graph", "units", res.Units)
	}
	if n := logged.Dropped(); n > 0 {
		slog.Info("suppressed repeated diagnostics", "count", n)
	}
	recordRun(store, walker, res)

	if *trace {
		from, to := qname.Parse(flag.Arg(0)), qname.Parse(flag.Arg(1))
		chain, ok := res.Analysis.ImportChain(from, to)
		fmt.Print(output.RenderChain(from, to, chain, ok))
		if !ok {
			return 1
		}
		return 0
	}
	if *impact != "" {
		report, err := res.Analysis.Impact(qname.Parse(*impact))
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			return 1
		}
		fmt.Print(output.RenderImpact(report))
		return 0
	}

	if err := emit(cfg, walker.Roots(), res, collector.Drain()); err != nil {
		slog.Error("failed to generate outputs", "error", err)
		return 1
	}
	if res.Stopped || !*watch {
		return 0
	}

	err = builder.Watch(ctx, walker, app.WatchConfig{
		Debounce:     cfg.Watch.Debounce,
		ExcludeDirs:  cfg.Exclude.Dirs,
		ExcludeFiles: cfg.Exclude.Files,
	}, func(res *app.BuildResult, err error) {
		if err != nil {
			slog.Error("rebuild failed", "error", err)
			return
		}
		recordRun(store, walker, res)
		if err := emit(cfg, walker.Roots(), res, collector.Drain()); err != nil {
			slog.Error("failed to generate outputs", "error", err)
		}
	})
	if err != nil {
		slog.Error("failed to start watcher", "error", err)
		return 1
	}
	return 0
}

func printHistory(cfg *config.Config, limit int) int {
	store, err := cache.Open(cfg.Cache.Path, cfg.Cache.Entries)
	if err != nil {
		slog.Error("failed to open run history", "path", cfg.Cache.Path, "error", err)
		return 1
	}
	defer store.Close()

	runs, err := store.RecentRuns(limit)
	if err != nil {
		slog.Error("failed to read run history", "error", err)
		return 1
	}
	if err := renderHistory(os.Stdout, runs); err != nil {
		slog.Error("failed to print run history", "error", err)
		return 1
	}
	return 0
}

func startMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	slog.Info("metrics server starting", "addr", addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server failed", "error", err)
		}
	}()
	return srv
}

func recordRun(store *cache.Store, walker *discovery.Walker, res *app.BuildResult) {
	if store == nil || res == nil {
		return
	}
	err := store.RecordRun(cache.Run{
		ID:          res.RunID,
		Timestamp:   res.StartedAt,
		Roots:       walker.Roots(),
		Modules:     res.Analysis.Summary.Modules,
		Internal:    res.Analysis.Summary.Internal,
		Edges:       res.Analysis.Summary.Edges,
		Cycles:      res.Analysis.Summary.Cycles,
		Unresolved:  res.Analysis.Summary.Unresolved,
		ParseErrors: res.ParseErrors,
		Duration:    res.Duration,
	})
	if err != nil {
		slog.Warn("failed to record run", "error", err)
	}
}
