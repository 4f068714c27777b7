package snapshot

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"semgraph/internal/core/errors"
	"semgraph/internal/engine/build"
	"semgraph/internal/engine/enginetest"
	"semgraph/internal/engine/graph"
	"semgraph/internal/engine/parser"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildGraph(t *testing.T, forest parser.Forest) *graph.Graph {
	t.Helper()
	p, err := build.NewPipeline(build.Options{Workers: 2})
	require.NoError(t, err)
	g, err := p.Run(context.Background(), forest)
	require.NoError(t, err)
	return g
}

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "snapshots.db"), time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_SaveAndLoad(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	g := buildGraph(t, enginetest.SampleForest())

	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.Save(ctx, g, ts))

	latest, err := s.Latest(ctx, "sample")
	require.NoError(t, err)
	assert.Equal(t, g.BuildID(), latest.ID)
	assert.Equal(t, g.FingerprintHex(), latest.Fingerprint)
	assert.Equal(t, ts, latest.Timestamp)
	assert.Equal(t, g.Stats().CallEdges, latest.CallEdges)
	assert.Equal(t, 1, latest.Diagnostics)
	assert.Equal(t, 1, latest.UnusedImports)

	edges, err := s.Edges(ctx, g.BuildID())
	require.NoError(t, err)
	assert.Equal(t, g.Edges(), edges)

	diags, err := s.Diagnostics(ctx, g.BuildID())
	require.NoError(t, err)
	assert.Equal(t, g.Diagnostics(), diags)

	decls, err := s.Declarations(ctx, g.BuildID())
	require.NoError(t, err)
	assert.Len(t, decls, len(g.Declarations()))
	for _, d := range decls {
		want, ok := g.Lookup(d.Path)
		require.True(t, ok, d.Path)
		assert.Equal(t, want, d)
	}

	err = s.Save(ctx, g, ts)
	assert.True(t, errors.IsCode(err, errors.CodeConflict), "got %v", err)
}

func TestStore_LatestMissing(t *testing.T) {
	s := openStore(t)
	_, err := s.Latest(context.Background(), "nothing")
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
}

func TestStore_DiffAndPrune(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	first := buildGraph(t, enginetest.SampleForest())
	require.NoError(t, s.Save(ctx, first, base))

	forest := enginetest.SampleForest()
	// Drop the g -> f call, breaking the cycle.
	a := &forest.Modules[1]
	a.Sites = a.Sites[:1]
	second := buildGraph(t, forest)
	require.NoError(t, s.Save(ctx, second, base.Add(time.Minute)))

	diff, err := s.DiffEdges(ctx, first.BuildID(), second.BuildID())
	require.NoError(t, err)
	assert.Empty(t, diff.Added)
	assert.Equal(t, []EdgeKey{{From: "crate::a::g", To: "crate::a::f", Kind: graph.EdgeCall}}, diff.Removed)
	assert.False(t, diff.Empty())

	same, err := s.DiffEdges(ctx, second.BuildID(), second.BuildID())
	require.NoError(t, err)
	assert.True(t, same.Empty())

	builds, err := s.Builds(ctx, "sample", 0)
	require.NoError(t, err)
	require.Len(t, builds, 2)
	assert.Equal(t, second.BuildID(), builds[0].ID)

	removed, err := s.Prune(ctx, "sample", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	edges, err := s.Edges(ctx, first.BuildID())
	require.NoError(t, err)
	assert.Empty(t, edges, "edges cascade with their build")

	latest, err := s.Latest(ctx, "sample")
	require.NoError(t, err)
	assert.Equal(t, second.BuildID(), latest.ID)
}

func TestOpen_Validation(t *testing.T) {
	_, err := Open("  ", 0)
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))

	_, err = Open(t.TempDir(), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is a directory")
}

func TestOpen_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "snap.db")
	s, err := Open(path, 0)
	require.NoError(t, err)
	g := buildGraph(t, enginetest.SampleForest())
	require.NoError(t, s.Save(ctx, g, time.Time{}))
	require.NoError(t, s.Close())

	s, err = Open(path, 0)
	require.NoError(t, err)
	defer s.Close()

	var version int
	require.NoError(t, s.db.QueryRow(`SELECT MAX(version) FROM schema_migrations`).Scan(&version))
	assert.Equal(t, SchemaVersion, version)

	latest, err := s.Latest(ctx, "sample")
	require.NoError(t, err)
	assert.Equal(t, g.BuildID(), latest.ID)
}
