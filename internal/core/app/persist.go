package app

import (
	"context"
	"log/slog"
	"time"

	"semgraph/internal/core/errors"
	"semgraph/internal/data/snapshot"
	"semgraph/internal/engine/graph"
	"semgraph/internal/shared/observability"
)

// persist stores g and diffs it against the previous build of the same crate.
// A build matching the latest stored one in fingerprint and diagnostic count is
// not stored again.
func (a *App) persist(ctx context.Context, g *graph.Graph) (string, snapshot.EdgeDiff, error) {
	started := time.Now()
	defer func() {
		observability.SnapshotWriteSeconds.Observe(time.Since(started).Seconds())
	}()

	prev, err := a.store.Latest(ctx, g.Crate())
	hasPrev := err == nil
	if err != nil && !errors.IsCode(err, errors.CodeNotFound) {
		return "", snapshot.EdgeDiff{}, errors.AddContext(err, errors.CtxOperation, "load latest snapshot")
	}
	if hasPrev && prev.Fingerprint == g.FingerprintHex() && prev.Diagnostics == g.Stats().Diagnostics {
		slog.Debug("graph unchanged, snapshot skipped", "crate", g.Crate(), "previous", prev.ID)
		return prev.ID, snapshot.EdgeDiff{}, nil
	}

	if err := a.store.Save(ctx, g, time.Now()); err != nil {
		return "", snapshot.EdgeDiff{}, errors.AddContext(err, errors.CtxOperation, "save snapshot")
	}

	var diff snapshot.EdgeDiff
	if hasPrev {
		diff, err = a.store.DiffEdges(ctx, prev.ID, g.BuildID())
		if err != nil {
			return prev.ID, diff, errors.AddContext(err, errors.CtxOperation, "diff snapshots")
		}
		slog.Info("graph changed",
			"previous", prev.ID,
			"edges_added", len(diff.Added),
			"edges_removed", len(diff.Removed),
		)
	}

	if keep := a.Config().DB.Retain; keep > 0 {
		removed, err := a.store.Prune(ctx, g.Crate(), keep)
		if err != nil {
			slog.Warn("snapshot prune failed", "crate", g.Crate(), "error", err)
		} else if removed > 0 {
			slog.Debug("old snapshots pruned", "crate", g.Crate(), "removed", removed)
		}
	}
	return prev.ID, diff, nil
}
