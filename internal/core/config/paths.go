package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ResolvedPaths holds the config's file locations made absolute against the
// directory the config was loaded from.
type ResolvedPaths struct {
	SourceRoot string
	Manifest   string
	DBPath     string
	OutputRoot string
}

func ResolvePaths(cfg *Config, baseDir string) (ResolvedPaths, error) {
	if strings.TrimSpace(baseDir) == "" {
		return ResolvedPaths{}, fmt.Errorf("base dir must not be empty")
	}
	base, err := filepath.Abs(baseDir)
	if err != nil {
		return ResolvedPaths{}, fmt.Errorf("resolve base dir: %w", err)
	}

	resolved := ResolvedPaths{
		SourceRoot: ResolveRelative(base, cfg.Source.Root),
		DBPath:     ResolveRelative(base, cfg.DB.Path),
		OutputRoot: ResolveRelative(base, cfg.Output.Root),
	}
	if cfg.Source.Manifest != "" {
		resolved.Manifest = ResolveRelative(base, cfg.Source.Manifest)
	}
	return resolved, nil
}

func ResolveRelative(base, value string) string {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return filepath.Clean(base)
	}
	if filepath.IsAbs(raw) {
		return filepath.Clean(raw)
	}
	return filepath.Clean(filepath.Join(base, raw))
}
