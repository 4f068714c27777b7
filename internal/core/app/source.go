package app

import (
	"context"
	"os"
	"path/filepath"

	"semgraph/internal/core/config"
	"semgraph/internal/core/errors"
	"semgraph/internal/core/ports"
	"semgraph/internal/engine/parser"
)

// crateSource parses a Rust crate from disk.
type crateSource struct {
	root   string
	loader *parser.CrateLoader
}

var _ ports.ForestSource = (*crateSource)(nil)

func newCrateSource(cfg *config.Config, root string) (*crateSource, error) {
	loader, err := parser.NewCrateLoader(parser.LoaderOptions{
		Entry:        cfg.Source.Entry,
		CrateName:    cfg.Build.CrateName,
		ExcludeDirs:  cfg.Source.ExcludeDirs,
		ExcludeFiles: cfg.Source.ExcludeFiles,
		CacheSize:    cfg.Cache.ParsedFiles,
	})
	if err != nil {
		return nil, err
	}
	return &crateSource{root: root, loader: loader}, nil
}

func (s *crateSource) Load(ctx context.Context) (parser.Forest, error) {
	return s.loader.Load(ctx, s.root)
}

func (s *crateSource) WatchTargets() ([]string, []string) {
	dir := s.root
	if info, err := os.Stat(dir); err == nil && !info.IsDir() {
		dir = filepath.Dir(dir)
	}
	return []string{dir}, []string{".rs"}
}

// manifestSource reads a pre-extracted forest from a YAML manifest.
type manifestSource struct {
	path      string
	crateName string
}

var _ ports.ForestSource = (*manifestSource)(nil)

func (s *manifestSource) Load(ctx context.Context) (parser.Forest, error) {
	if err := ctx.Err(); err != nil {
		return parser.Forest{}, errors.Wrap(err, errors.CodeCanceled, "manifest load canceled")
	}
	forest, err := parser.LoadManifest(s.path)
	if err != nil {
		return parser.Forest{}, err
	}
	if s.crateName != "" {
		forest.Crate = s.crateName
	}
	return forest, nil
}

func (s *manifestSource) WatchTargets() ([]string, []string) {
	return []string{filepath.Dir(s.path)}, []string{filepath.Ext(s.path)}
}

func newSource(cfg *config.Config, paths config.ResolvedPaths) (ports.ForestSource, error) {
	if paths.Manifest != "" {
		return &manifestSource{path: paths.Manifest, crateName: cfg.Build.CrateName}, nil
	}
	return newCrateSource(cfg, paths.SourceRoot)
}
