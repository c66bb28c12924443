package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"snakr/internal/core/app"
	"snakr/internal/core/config"
	"snakr/internal/core/errors"
	"snakr/internal/data/cache"
	"snakr/internal/engine/diag"
	"snakr/internal/output"
	"snakr/internal/shared/util"
)

// emit writes every configured artifact, then prints the summary and tree
// unless one of the artifacts already claimed stdout.
func emit(cfg *config.Config, roots []string, res *app.BuildResult, events []diag.Event) error {
	g := res.Analysis
	stdoutTaken := false

	targets := []struct {
		path   string
		render func() (string, error)
	}{
		{cfg.Output.DOT, output.NewDOTGenerator(g).Generate},
		{cfg.Output.TSV, output.NewTSVGenerator(g).Generate},
		{cfg.Output.Mermaid, func() (string, error) {
			gen := output.NewMermaidGenerator(g)
			gen.SetHotspots(cfg.Output.TopHotspots)
			return gen.Generate()
		}},
		{cfg.Output.JSON, func() (string, error) {
			data, err := output.GenerateJSON(output.Report{
				RunID:       res.RunID,
				GeneratedAt: time.Now().UTC(),
				Roots:       roots,
				Graph:       g,
				Hotspots:    g.Hotspots(cfg.Output.TopHotspots),
				Diagnostics: events,
			})
			return string(data), err
		}},
		{cfg.Output.Diagnostics, func() (string, error) {
			return output.NewTSVGenerator(g).GenerateDiagnostics(events)
		}},
	}

	for _, t := range targets {
		if t.path == "" {
			continue
		}
		content, err := t.render()
		if err != nil {
			return err
		}
		if t.path == "-" {
			stdoutTaken = true
			fmt.Print(content)
			continue
		}
		if err := util.WriteFileWithDirs(t.path, []byte(content), 0o644); err != nil {
			return errors.AddContext(errors.Wrap(err, errors.CodeInternal, "write output"), errors.CtxPath, t.path)
		}
	}

	if stdoutTaken {
		return nil
	}
	if cfg.Output.ShowTree() {
		tree := output.NewTreeRenderer(g)
		fmt.Fprint(os.Stdout, tree.Render())
		fmt.Println()
	}
	summary := output.NewSummaryRenderer(g)
	summary.TopHotspots = cfg.Output.TopHotspots
	summary.MaxUnresolved = 25
	fmt.Fprint(os.Stdout, summary.Render())
	if res.ParseErrors > 0 {
		fmt.Fprintf(os.Stdout, "\n%d unit(s) failed to parse\n", res.ParseErrors)
	}
	return nil
}

// renderHistory prints recorded runs as an aligned table, newest first.
func renderHistory(w io.Writer, runs []cache.Run) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No runs recorded")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tWHEN\tMODULES\tINTERNAL\tEDGES\tCYCLES\tUNRESOLVED\tPARSE ERRORS\tDURATION\tROOTS")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%d\t%d\t%s\t%s\n",
			shortID(r.ID),
			r.Timestamp.Local().Format("2006-01-02 15:04:05"),
			r.Modules, r.Internal, r.Edges, r.Cycles, r.Unresolved, r.ParseErrors,
			r.Duration,
			strings.Join(r.Roots, ","),
		)
	}
	return tw.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
