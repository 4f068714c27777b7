package app

import (
	"context"
	"log/slog"

	"semgraph/internal/core/errors"
	"semgraph/internal/core/watcher"
	"semgraph/internal/shared/observability"
)

// Watch builds once, then rebuilds whenever watched sources change until ctx
// is done. Failed builds are logged and the previous graph stays current.
func (a *App) Watch(ctx context.Context) error {
	if _, err := a.Build(ctx); err != nil {
		if errors.IsCode(err, errors.CodeCanceled) || ctx.Err() != nil {
			return nil
		}
		slog.Error("initial build failed", "error", err)
	}

	if err := a.StartWatcher(); err != nil {
		return err
	}
	defer a.stopWatcher()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-a.trigger:
		}

		a.mu.RLock()
		limiter := a.limiter
		a.mu.RUnlock()
		if delay := limiter.Delay(); delay > 0 {
			observability.RebuildsThrottledTotal.Inc()
			slog.Debug("rebuild throttled", "delay", delay)
		}
		if err := limiter.Wait(ctx, 1); err != nil {
			return nil
		}

		if _, err := a.Build(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Error("rebuild failed", "error", err)
		}
	}
}

// StartWatcher registers the source's watch targets with a file watcher that
// feeds HandleChanges.
func (a *App) StartWatcher() error {
	a.mu.RLock()
	cfg, source := a.cfg, a.source
	a.mu.RUnlock()

	w, err := watcher.NewWatcher(
		cfg.Watch.Debounce,
		cfg.Source.ExcludeDirs,
		cfg.Source.ExcludeFiles,
		a.HandleChanges,
	)
	if err != nil {
		return errors.Wrap(err, errors.CodeValidationError, "create watcher")
	}
	paths, extensions := source.WatchTargets()
	w.SetExtensions(extensions)
	if err := w.Watch(paths); err != nil {
		_ = w.Close()
		return errors.Wrap(err, errors.CodeInternal, "start watcher")
	}

	a.mu.Lock()
	old := a.watcher
	a.watcher = w
	a.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}
	slog.Info("watching for changes", "paths", paths, "extensions", extensions)
	return nil
}

func (a *App) stopWatcher() {
	a.mu.Lock()
	w := a.watcher
	a.watcher = nil
	a.mu.Unlock()
	if w != nil {
		_ = w.Close()
	}
}

// HandleChanges is the watcher callback. Bursts collapse into one pending
// rebuild.
func (a *App) HandleChanges(paths []string) {
	slog.Info("changes detected", "files", len(paths))
	for _, p := range paths {
		slog.Debug("changed", "path", p)
	}
	a.requestRebuild()
}

func (a *App) requestRebuild() {
	select {
	case a.trigger <- struct{}{}:
	default:
	}
}
