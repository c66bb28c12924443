// # internal/core/app/builder.go
package app

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"snakr/internal/core/config"
	"snakr/internal/core/errors"
	"snakr/internal/data/discovery"
	"snakr/internal/engine/diag"
	"snakr/internal/engine/graph"
	"snakr/internal/engine/parser"
	"snakr/internal/engine/resolver"
	"snakr/internal/shared/observability"
	"snakr/internal/shared/util"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

// UnitSource lists the units of one crawl. Units must be restartable: the
// builder walks it once to learn module names and once to parse.
type UnitSource interface {
	Units(ctx context.Context) iter.Seq2[discovery.Unit, error]
}

type Options struct {
	// Workers bounds concurrent parses. 0 means runtime.NumCPU().
	Workers int
	Resolve resolver.Options
	Writer  graph.WriterConfig
}

// OptionsFromConfig maps the file configuration onto builder options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Workers: cfg.Workers,
		Resolve: resolver.Options{
			ExternalDepth:  cfg.Resolve.ExternalDepth,
			ClassifyStdlib: cfg.Resolve.ShouldClassifyStdlib(),
			IgnoreModules:  cfg.Exclude.Modules,
		},
	}
}

// Builder drives one crawl: discover, parse, resolve, assemble, analyze.
type Builder struct {
	parser *parser.Parser
	sink   diag.Sink
	opts   Options
}

func NewBuilder(p *parser.Parser, sink diag.Sink, opts Options) *Builder {
	if p == nil {
		p = parser.NewParser()
	}
	if sink == nil {
		sink = diag.Discard
	}
	return &Builder{parser: p, sink: sink, opts: opts}
}

func (b *Builder) workers() int {
	if b.opts.Workers > 0 {
		return b.opts.Workers
	}
	return runtime.NumCPU()
}

// BuildResult is everything one crawl produced. Graph is the raw assembled
// topology; Analysis is derived from it.
type BuildResult struct {
	RunID     string
	StartedAt time.Time
	Duration  time.Duration

	Graph    *graph.DependencyGraph
	Analysis *graph.AnalyzedGraph

	Units        int
	ParseErrors  int
	Unresolved   int
	SourceErrors int
	// Stopped is set when the crawl ended early on context cancellation.
	Stopped bool
}

// Build crawls source. Per-unit failures become diagnostics and never abort
// the crawl. If ctx is cancelled the builder stops taking new units, lets
// in-flight parses finish, and returns the partial result together with a
// STOPPED error.
func (b *Builder) Build(ctx context.Context, source UnitSource) (*BuildResult, error) {
	ctx, span := observability.Tracer.Start(ctx, "snakr.build")
	defer span.End()

	res := &BuildResult{RunID: uuid.NewString(), StartedAt: time.Now()}
	span.SetAttributes(attribute.String("snakr.run_id", res.RunID))
	logger := slog.With("run_id", res.RunID)

	known := resolver.NewKnownModules()
	units, err := b.collect(ctx, source, known, res)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	rslv, err := resolver.New(known, b.opts.Resolve)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	asm := graph.NewAssembler()
	kept := units[:0]
	for _, u := range units {
		if rslv.IsIgnored(u.Module) {
			logger.Debug("skipping ignored module", "module", u.Module, "path", u.Path)
			continue
		}
		if err := asm.AddModule(u.Module, u.Path, u.IsPackage); err != nil {
			return nil, err
		}
		kept = append(kept, u)
	}
	res.Units = len(kept)
	logger.Debug("discovered units", "units", res.Units, "known", known.Len())

	var parseErrors, unresolvedCount atomic.Int64
	writer := graph.NewWriter(asm, b.opts.Writer)

	var g errgroup.Group
	g.SetLimit(b.workers())
	for _, u := range kept {
		if ctx.Err() != nil {
			res.Stopped = true
			break
		}
		g.Go(func() error {
			update, perr, unresolved := b.process(u, rslv)
			if perr {
				parseErrors.Add(1)
			}
			unresolvedCount.Add(int64(unresolved))
			writer.Submit(update)
			return nil
		})
	}
	_ = g.Wait()
	if err := writer.Close(); err != nil {
		// Only malformed updates fail to apply, which the builder never produces.
		logger.Warn("assembler rejected updates", "error", err)
	}
	logger.Debug("assembled graph", "nodes", asm.NodeCount(), "edges", asm.EdgeCount())

	res.ParseErrors = int(parseErrors.Load())
	res.Unresolved = int(unresolvedCount.Load())
	res.Graph = asm.Snapshot()

	_, analyzeSpan := observability.Tracer.Start(ctx, "snakr.analyze")
	res.Analysis, err = graph.Analyze(res.Graph)
	analyzeSpan.End()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	res.Duration = time.Since(res.StartedAt)
	span.SetAttributes(
		attribute.Int("snakr.units", res.Units),
		attribute.Int("snakr.modules", res.Analysis.Summary.Modules),
		attribute.Int("snakr.edges", res.Analysis.Summary.Edges),
		attribute.Int("snakr.cycles", res.Analysis.Summary.Cycles),
	)
	logger.Info("build complete",
		"units", res.Units,
		"modules", res.Analysis.Summary.Modules,
		"edges", res.Analysis.Summary.Edges,
		"cycles", res.Analysis.Summary.Cycles,
		"parse_errors", res.ParseErrors,
		"unresolved", res.Unresolved,
		"duration", res.Duration,
		"heap_mb", util.GetHeapAllocMB(),
	)

	if res.Stopped || ctx.Err() != nil {
		res.Stopped = true
		stopErr := errors.Wrap(ctx.Err(), errors.CodeStopped, "build stopped before all units were parsed")
		span.SetStatus(codes.Error, "stopped")
		return res, stopErr
	}
	return res, nil
}

// collect walks the source once, registering every unit in known. The
// first unit to claim a module name wins.
func (b *Builder) collect(ctx context.Context, source UnitSource, known *resolver.KnownModules, res *BuildResult) ([]discovery.Unit, error) {
	var units []discovery.Unit
	seen := make(map[string]string)
	for u, err := range source.Units(ctx) {
		if err != nil {
			res.SourceErrors++
			slog.Warn("unit discovery failed", "path", u.Path, "error", err)
			continue
		}
		if u.Module.IsZero() {
			return nil, errors.AddContext(errors.New(errors.CodeValidationError, "unit has no module name"), errors.CtxPath, u.Path)
		}
		if prev, dup := seen[u.Module.String()]; dup {
			slog.Warn("duplicate module name, keeping first", "module", u.Module, "kept", prev, "skipped", u.Path)
			continue
		}
		seen[u.Module.String()] = u.Path
		known.Add(u.Module, u.IsPackage)
		units = append(units, u)
	}
	return units, nil
}

// process parses and resolves one unit. It reports whether parsing failed
// and how many imports stayed unresolved.
func (b *Builder) process(u discovery.Unit, rslv *resolver.Resolver) (graph.UnitUpdate, bool, int) {
	update := graph.UnitUpdate{Module: u.Module, Path: u.Path, IsPackage: u.IsPackage}
	label := unitLabel(u)

	text, err := u.Read()
	if err == nil {
		var imports []parser.RawImport
		imports, err = b.parser.Parse(text, u.Module)
		if err == nil {
			observability.UnitsParsedTotal.Inc()
			unresolved := 0
			for _, raw := range imports {
				target := rslv.Resolve(raw, u.Module)
				if target.Ignored {
					continue
				}
				if target.IsUnresolved() {
					unresolved++
					observability.UnresolvedImportsTotal.Inc()
					b.sink.Emit(diag.UnresolvedImport(label, u.Module.String(), raw.Display(), target.Reason, raw.Line))
				}
				update.Imports = append(update.Imports, graph.Resolved{Raw: raw, Target: target})
			}
			return update, false, unresolved
		}
	}

	observability.ParseErrorsTotal.Inc()
	b.sink.Emit(diag.ParseError(label, u.Module.String(), errors.Message(err)))
	return update, true, 0
}

func unitLabel(u discovery.Unit) string {
	if u.Path != "" {
		return u.Path
	}
	return fmt.Sprintf("<%s>", u.Module)
}
