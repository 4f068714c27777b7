// Package app wires the crate loader, build pipeline, report writers and
// snapshot store into the operations exposed by the CLI.
package app

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"semgraph/internal/core/config"
	"semgraph/internal/core/errors"
	"semgraph/internal/core/ports"
	"semgraph/internal/core/watcher"
	"semgraph/internal/data/snapshot"
	"semgraph/internal/engine/build"
	"semgraph/internal/engine/graph"
	"semgraph/internal/shared/observability"
	"semgraph/internal/shared/util"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type App struct {
	baseDir string

	mu       sync.RWMutex
	cfg      *config.Config
	paths    config.ResolvedPaths
	source   ports.ForestSource
	pipeline *build.Pipeline
	limiter  *util.Limiter
	watcher  *watcher.Watcher

	store ports.SnapshotStore

	// buildMu serializes builds so outputs and snapshots are written in
	// build order.
	buildMu   sync.Mutex
	graph     *graph.Graph
	lastBuild time.Time
	lastErr   error

	updateMu sync.RWMutex
	onUpdate func(ports.BuildResult, error)

	trigger chan struct{}
}

var _ ports.GraphService = (*App)(nil)

// New resolves cfg against baseDir and opens the configured source and store.
func New(cfg *config.Config, baseDir string) (*App, error) {
	paths, err := config.ResolvePaths(cfg, baseDir)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "resolve paths")
	}
	source, err := newSource(cfg, paths)
	if err != nil {
		return nil, err
	}

	var store ports.SnapshotStore
	if cfg.DB.Enabled {
		s, err := snapshot.Open(paths.DBPath, cfg.DB.BusyTimeout)
		if err != nil {
			return nil, err
		}
		store = s
	}

	a, err := NewWithDependencies(cfg, baseDir, paths, source, store)
	if err != nil && store != nil {
		_ = store.Close()
	}
	return a, err
}

// NewWithDependencies builds an App around caller-supplied adapters. store
// may be nil to disable persistence.
func NewWithDependencies(cfg *config.Config, baseDir string, paths config.ResolvedPaths, source ports.ForestSource, store ports.SnapshotStore) (*App, error) {
	if cfg == nil {
		return nil, errors.New(errors.CodeValidationError, "config is required")
	}
	if source == nil {
		return nil, errors.New(errors.CodeValidationError, "forest source is required")
	}
	pipeline, err := newPipeline(cfg)
	if err != nil {
		return nil, err
	}
	return &App{
		baseDir:  baseDir,
		cfg:      cfg,
		paths:    paths,
		source:   source,
		pipeline: pipeline,
		limiter:  newLimiter(cfg),
		store:    store,
		trigger:  make(chan struct{}, 1),
	}, nil
}

func newPipeline(cfg *config.Config) (*build.Pipeline, error) {
	return build.NewPipeline(build.Options{
		Workers:          cfg.Build.Workers,
		MaxAliasDepth:    cfg.Build.MaxAliasDepth,
		ExternPrefixes:   cfg.Resolve.ExternPrefixes,
		IgnoreUnresolved: cfg.Resolve.IgnoreUnresolved,
	})
}

func newLimiter(cfg *config.Config) *util.Limiter {
	return util.NewLimiter(cfg.Watch.MaxRebuildsPerSecond, 1)
}

func (a *App) Config() *config.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cfg
}

// Graph returns the most recent successful build, or nil.
func (a *App) Graph() *graph.Graph {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.graph
}

func (a *App) SetUpdateHandler(handler func(ports.BuildResult, error)) {
	a.updateMu.Lock()
	defer a.updateMu.Unlock()
	a.onUpdate = handler
}

func (a *App) emitUpdate(result ports.BuildResult, err error) {
	a.updateMu.RLock()
	handler := a.onUpdate
	a.updateMu.RUnlock()
	if handler != nil {
		handler(result, err)
	}
}

// Build loads the forest, runs the pipeline, writes the configured outputs
// and stores the snapshot. A failed build keeps the previous graph.
func (a *App) Build(ctx context.Context) (ports.BuildResult, error) {
	a.buildMu.Lock()
	defer a.buildMu.Unlock()

	a.mu.RLock()
	root := a.paths.SourceRoot
	a.mu.RUnlock()
	ctx, span := observability.Tracer.Start(ctx, "app.Build", trace.WithAttributes(
		attribute.String("source_root", root),
	))
	defer span.End()

	result, err := a.build(ctx)

	a.mu.Lock()
	a.lastBuild = time.Now()
	a.lastErr = err
	if err == nil {
		a.graph = result.Graph
	}
	a.mu.Unlock()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(
			attribute.String("build_id", result.Graph.BuildID()),
			attribute.Int("outputs", len(result.Written)),
		)
	}
	a.emitUpdate(result, err)
	return result, err
}

func (a *App) build(ctx context.Context) (ports.BuildResult, error) {
	a.mu.RLock()
	source, pipeline := a.source, a.pipeline
	a.mu.RUnlock()

	started := time.Now()
	forest, err := source.Load(ctx)
	if err != nil {
		return ports.BuildResult{}, err
	}
	g, err := pipeline.Run(ctx, forest)
	if err != nil {
		return ports.BuildResult{}, err
	}

	result := ports.BuildResult{Graph: g}
	written, err := a.GenerateOutputs(g)
	result.Written = written
	if err != nil {
		return result, errors.Wrap(err, errors.CodeInternal, "write outputs")
	}

	if a.store != nil {
		prev, diff, err := a.persist(ctx, g)
		if err != nil {
			return result, err
		}
		result.Previous = prev
		result.Diff = diff
	}

	stats := g.Stats()
	slog.Info("build complete",
		"crate", g.Crate(),
		"build_id", g.BuildID(),
		"modules", stats.Modules,
		"call_edges", stats.CallEdges,
		"diagnostics", stats.Diagnostics,
		"duration", time.Since(started).Round(time.Millisecond),
	)
	return result, nil
}

// Reconfigure swaps in a reloaded configuration. The store stays open; source
// and pipeline are rebuilt, and a running watch loop rebuilds once. A running
// watcher moves to the new source's paths when they differ.
func (a *App) Reconfigure(cfg *config.Config) error {
	paths, err := config.ResolvePaths(cfg, a.baseDir)
	if err != nil {
		return errors.Wrap(err, errors.CodeValidationError, "resolve paths")
	}
	source, err := newSource(cfg, paths)
	if err != nil {
		return err
	}
	pipeline, err := newPipeline(cfg)
	if err != nil {
		return err
	}

	a.mu.Lock()
	oldDirs, oldExts := a.source.WatchTargets()
	a.cfg = cfg
	a.paths = paths
	a.source = source
	a.pipeline = pipeline
	a.limiter = newLimiter(cfg)
	w := a.watcher
	a.mu.Unlock()

	if w != nil {
		dirs, exts := source.WatchTargets()
		if slices.Equal(oldDirs, dirs) && slices.Equal(oldExts, exts) {
			w.SetDebounce(cfg.Watch.Debounce)
		} else if err := a.StartWatcher(); err != nil {
			slog.Error("restart watcher", "error", err)
		}
	}
	slog.Info("configuration applied")
	a.requestRebuild()
	return nil
}

func (a *App) Close() error {
	a.mu.Lock()
	w := a.watcher
	a.watcher = nil
	a.mu.Unlock()
	if w != nil {
		_ = w.Close()
	}
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}
