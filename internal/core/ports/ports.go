// Package ports declares the boundaries between the application core and its
// driving (CLI) and driven (parser, storage) adapters.
package ports

import (
	"context"
	"time"

	"semgraph/internal/data/query"
	"semgraph/internal/data/snapshot"
	"semgraph/internal/engine/graph"
	"semgraph/internal/engine/parser"
)

// ForestSource produces the parsed input of one build.
type ForestSource interface {
	Load(ctx context.Context) (parser.Forest, error)
	// WatchTargets returns the paths and file extensions whose changes should
	// trigger a rebuild.
	WatchTargets() (paths []string, extensions []string)
}

// SnapshotStore abstracts build persistence.
type SnapshotStore interface {
	Save(ctx context.Context, g *graph.Graph, ts time.Time) error
	Latest(ctx context.Context, crate string) (snapshot.Build, error)
	DiffEdges(ctx context.Context, oldID, newID string) (snapshot.EdgeDiff, error)
	Prune(ctx context.Context, crate string, keep int) (int64, error)
	Close() error
}

type QueryKind string

const (
	QueryLookup   QueryKind = "lookup"
	QueryOutgoing QueryKind = "out"
	QueryIncoming QueryKind = "in"
	QueryChain    QueryKind = "chain"
	QueryCycles   QueryKind = "cycles"
	QuerySelect   QueryKind = "select"
	QueryImpact   QueryKind = "impact"
)

// QueryRequest addresses the current graph. To is only used by QueryChain;
// Expr and Limit only by QuerySelect.
type QueryRequest struct {
	Kind  QueryKind
	Path  string
	To    string
	Expr  string
	Limit int
}

type QueryResult struct {
	Declaration *graph.Declaration
	Edges       []graph.Edge
	Chain       []string
	Cycles      [][]string
	Rows        []query.Row
	Impact      *graph.ImpactReport
}

// BuildResult summarizes one completed build.
type BuildResult struct {
	Graph    *graph.Graph
	Written  []string
	Previous string // build ID of the stored predecessor, if any
	Diff     snapshot.EdgeDiff
}

// GraphService is the application surface consumed by the CLI.
type GraphService interface {
	Build(ctx context.Context) (BuildResult, error)
	Query(ctx context.Context, req QueryRequest) (QueryResult, error)
	Watch(ctx context.Context) error
	Close() error
}
