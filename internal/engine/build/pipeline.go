// Package build runs the staged resolution pipeline that turns a parsed
// forest into a frozen semantic graph.
package build

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"semgraph/internal/core/errors"
	"semgraph/internal/engine/graph"
	"semgraph/internal/engine/modtree"
	"semgraph/internal/engine/parser"
	"semgraph/internal/engine/resolver"
	"semgraph/internal/shared/observability"

	"github.com/gobwas/glob"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

type Options struct {
	Workers        int
	MaxAliasDepth  int
	ExternPrefixes []string
	// IgnoreUnresolved holds glob patterns matched against diagnostic
	// subjects; matching diagnostics are dropped.
	IgnoreUnresolved []string
}

type Pipeline struct {
	opts   Options
	ignore []glob.Glob
}

func NewPipeline(opts Options) (*Pipeline, error) {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.MaxAliasDepth <= 0 {
		opts.MaxAliasDepth = resolver.DefaultMaxAliasDepth
	}
	p := &Pipeline{opts: opts}
	for _, pattern := range opts.IgnoreUnresolved {
		g, err := glob.Compile(pattern, ':')
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeValidationError, "invalid ignore pattern "+pattern)
		}
		p.ignore = append(p.ignore, g)
	}
	return p, nil
}

// Run builds one graph. Structural input errors and cancellation return no
// graph; per-site problems are attached to the graph as diagnostics.
func (p *Pipeline) Run(ctx context.Context, forest parser.Forest) (*graph.Graph, error) {
	buildID := uuid.NewString()
	ctx, span := observability.Tracer.Start(ctx, "build.Run", trace.WithAttributes(
		attribute.String("build_id", buildID),
		attribute.String("crate", forest.Crate),
		attribute.Int("modules", len(forest.Modules)),
	))
	defer span.End()

	g, err := p.run(ctx, buildID, forest)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		outcome := "error"
		if errors.IsCode(err, errors.CodeCanceled) {
			outcome = "canceled"
		}
		observability.BuildsTotal.WithLabelValues(outcome).Inc()
		return nil, err
	}
	observability.BuildsTotal.WithLabelValues("success").Inc()
	return g, nil
}

func (p *Pipeline) run(ctx context.Context, buildID string, forest parser.Forest) (*graph.Graph, error) {
	log := slog.With("build_id", buildID)
	started := time.Now()

	var tree *modtree.Tree
	if err := p.stage(ctx, log, "modtree", func(ctx context.Context) error {
		var err error
		tree, err = modtree.Build(forest)
		return err
	}); err != nil {
		return nil, err
	}

	table := graph.NewDeclTable()
	if err := p.stage(ctx, log, "declare", func(ctx context.Context) error {
		return PopulateDeclarations(ctx, tree, table, p.opts.Workers)
	}); err != nil {
		return nil, err
	}

	r := resolver.New(tree, table, resolver.Options{
		MaxAliasDepth:  p.opts.MaxAliasDepth,
		ExternPrefixes: p.opts.ExternPrefixes,
	})

	var diags []graph.Diagnostic
	if err := p.stage(ctx, log, "reexports", func(ctx context.Context) error {
		diags = append(diags, r.ResolveReexports()...)
		table.Freeze()
		return nil
	}); err != nil {
		return nil, err
	}

	modules := make([]*modtree.Module, 0, tree.Len())
	tree.Walk(func(m *modtree.Module) bool {
		modules = append(modules, m)
		return true
	})

	aliases := make([]*resolver.AliasTable, len(modules))
	importDiags := make([][]graph.Diagnostic, len(modules))
	if err := p.stage(ctx, log, "imports", func(ctx context.Context) error {
		return p.forEach(ctx, len(modules), func(i int) {
			aliases[i], importDiags[i] = r.ResolveImports(modules[i])
		})
	}); err != nil {
		return nil, err
	}
	for _, d := range importDiags {
		diags = append(diags, d...)
	}

	// Every alias table exists before any module is linked.
	links := make([]resolver.LinkResult, len(modules))
	if err := p.stage(ctx, log, "link", func(ctx context.Context) error {
		return p.forEach(ctx, len(modules), func(i int) {
			links[i] = r.Link(modules[i], aliases[i])
		})
	}); err != nil {
		return nil, err
	}

	var (
		edges    []graph.Edge
		unused   []graph.UnusedImport
		external int
	)
	for _, lr := range links {
		edges = append(edges, lr.Edges...)
		diags = append(diags, lr.Diagnostics...)
		unused = append(unused, lr.Unused...)
		external += lr.ExternalSites
	}
	diags = p.filter(diags)

	var g *graph.Graph
	if err := p.stage(ctx, log, "freeze", func(ctx context.Context) error {
		var err error
		g, err = graph.Freeze(table, edges, diags, graph.Meta{
			BuildID:       buildID,
			Crate:         forest.Crate,
			ExternalSites: external,
			Unused:        unused,
		})
		return err
	}); err != nil {
		return nil, err
	}

	recordGraph(g)
	log.Info("graph built",
		"crate", forest.Crate,
		"modules", tree.Len(),
		"declarations", len(g.Declarations()),
		"edges", len(g.Edges()),
		"diagnostics", len(diags),
		"duration", time.Since(started),
	)
	return g, nil
}

// stage runs fn under its own span after checking for cancellation.
func (p *Pipeline) stage(ctx context.Context, log *slog.Logger, name string, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, errors.CodeCanceled, "build canceled before "+name)
	}

	ctx, span := observability.Tracer.Start(ctx, "build."+name)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	observability.StageDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	log.Debug("stage finished", "stage", name, "duration", elapsed, "error", err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, errors.CodeCanceled, "build canceled during "+name)
	}
	return nil
}

// forEach runs fn for every module index on at most Workers goroutines.
// Results are written by index, so their order never depends on scheduling.
func (p *Pipeline) forEach(ctx context.Context, n int, fn func(i int)) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fn(i)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return errors.Wrap(err, errors.CodeCanceled, "build canceled")
	}
	return nil
}

func (p *Pipeline) filter(diags []graph.Diagnostic) []graph.Diagnostic {
	if len(p.ignore) == 0 {
		return diags
	}
	out := diags[:0]
	for _, d := range diags {
		if !p.ignored(d.Subject) {
			out = append(out, d)
		}
	}
	return out
}

func (p *Pipeline) ignored(subject string) bool {
	for _, g := range p.ignore {
		if g.Match(subject) {
			return true
		}
	}
	return false
}

func recordGraph(g *graph.Graph) {
	stats := g.Stats()
	observability.GraphDeclarations.Set(float64(stats.Modules + stats.Functions + stats.Items + stats.Reexports))
	observability.GraphEdges.WithLabelValues(string(graph.EdgeCall)).Set(float64(stats.CallEdges))
	observability.GraphEdges.WithLabelValues(string(graph.EdgeAlias)).Set(float64(stats.AliasEdges))
	observability.GraphEdges.WithLabelValues(string(graph.EdgeReexport)).Set(float64(stats.ReexportEdges))
	for _, d := range g.Diagnostics() {
		observability.DiagnosticsTotal.WithLabelValues(string(d.Code)).Inc()
	}
}
