package app

import (
	"context"
	"time"

	"semgraph/internal/shared/util"
)

// Health reports the state served on /health. The service is "degraded" when
// the last build failed and "down" until a first build succeeds.
func (a *App) Health(ctx context.Context) map[string]any {
	a.mu.RLock()
	g, lastBuild, lastErr, w := a.graph, a.lastBuild, a.lastErr, a.watcher
	a.mu.RUnlock()

	status := map[string]any{
		"status":        "up",
		"heap_alloc_mb": util.HeapAllocMB(),
		"watching":      w != nil,
	}
	if a.store != nil {
		status["snapshots"] = "enabled"
	} else {
		status["snapshots"] = "disabled"
	}
	if !lastBuild.IsZero() {
		status["last_build"] = lastBuild.UTC().Format(time.RFC3339)
	}

	switch {
	case g == nil:
		status["status"] = "down"
	case lastErr != nil:
		status["status"] = "degraded"
	}
	if lastErr != nil {
		status["last_error"] = lastErr.Error()
	}
	if g != nil {
		stats := g.Stats()
		status["crate"] = g.Crate()
		status["build_id"] = g.BuildID()
		status["fingerprint"] = g.FingerprintHex()
		status["modules"] = stats.Modules
		status["diagnostics"] = stats.Diagnostics
	}
	return status
}
