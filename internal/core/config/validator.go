package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// Validate returns every problem found in cfg.
func Validate(cfg *Config) []error {
	var errs []error

	if err := validateSource(cfg); err != nil {
		errs = append(errs, err)
	}
	if err := validateBuild(cfg); err != nil {
		errs = append(errs, err)
	}
	if err := validateResolve(cfg); err != nil {
		errs = append(errs, err)
	}
	if err := validateOutput(cfg); err != nil {
		errs = append(errs, err)
	}
	if err := validateDatabase(cfg); err != nil {
		errs = append(errs, err)
	}
	if err := validateWatch(cfg); err != nil {
		errs = append(errs, err)
	}
	if err := validateObservability(cfg); err != nil {
		errs = append(errs, err)
	}
	if err := validateLog(cfg); err != nil {
		errs = append(errs, err)
	}
	return errs
}

func validateSource(cfg *Config) error {
	if cfg.Source.Manifest == "" && cfg.Source.Root == "" {
		return fmt.Errorf("source.root must not be empty unless source.manifest is set")
	}
	if cfg.Source.Entry == "" {
		return fmt.Errorf("source.entry must not be empty")
	}
	if !strings.HasSuffix(cfg.Source.Entry, ".rs") {
		return fmt.Errorf("source.entry must name a .rs file, got %q", cfg.Source.Entry)
	}
	for i, p := range cfg.Source.ExcludeDirs {
		if _, err := glob.Compile(p); err != nil {
			return fmt.Errorf("source.exclude_dirs[%d] is not a valid pattern %q: %w", i, p, err)
		}
	}
	for i, p := range cfg.Source.ExcludeFiles {
		if _, err := glob.Compile(p); err != nil {
			return fmt.Errorf("source.exclude_files[%d] is not a valid pattern %q: %w", i, p, err)
		}
	}
	return nil
}

func validateBuild(cfg *Config) error {
	if cfg.Build.Workers < 1 {
		return fmt.Errorf("build.workers must be >= 1, got %d", cfg.Build.Workers)
	}
	if cfg.Build.MaxAliasDepth < 1 {
		return fmt.Errorf("build.max_alias_depth must be >= 1, got %d", cfg.Build.MaxAliasDepth)
	}
	if strings.Contains(cfg.Build.CrateName, "::") {
		return fmt.Errorf("build.crate_name must be a single segment, got %q", cfg.Build.CrateName)
	}
	return nil
}

func validateResolve(cfg *Config) error {
	seen := make(map[string]bool, len(cfg.Resolve.ExternPrefixes))
	for i, p := range cfg.Resolve.ExternPrefixes {
		if strings.Contains(p, "::") {
			return fmt.Errorf("resolve.extern_prefixes[%d] must be a single segment, got %q", i, p)
		}
		if p == "crate" || p == "self" || p == "super" {
			return fmt.Errorf("resolve.extern_prefixes[%d] must not be a path keyword, got %q", i, p)
		}
		if seen[p] {
			return fmt.Errorf("duplicate extern prefix %q", p)
		}
		seen[p] = true
	}
	for i, p := range cfg.Resolve.IgnoreUnresolved {
		if _, err := glob.Compile(p, ':'); err != nil {
			return fmt.Errorf("resolve.ignore_unresolved[%d] is not a valid pattern %q: %w", i, p, err)
		}
	}
	return nil
}

func validateOutput(cfg *Config) error {
	outputs := make(map[string]string)
	checkConflict := func(path, name string) error {
		if strings.TrimSpace(path) == "" {
			return nil
		}
		path = filepath.Clean(path)
		if owner, exists := outputs[path]; exists {
			return fmt.Errorf("output conflict: %s and %s share the same path %q", owner, name, path)
		}
		outputs[path] = name
		return nil
	}

	if err := checkConflict(cfg.Output.DOT, "output.dot"); err != nil {
		return err
	}
	if err := checkConflict(cfg.Output.TSV, "output.tsv"); err != nil {
		return err
	}
	if err := checkConflict(cfg.Output.YAML, "output.yaml"); err != nil {
		return err
	}
	if err := checkConflict(cfg.Output.Mermaid, "output.mermaid"); err != nil {
		return err
	}
	if err := checkConflict(cfg.Output.SARIF, "output.sarif"); err != nil {
		return err
	}
	for i, inj := range cfg.Output.UpdateMarkdown {
		if strings.TrimSpace(inj.File) == "" {
			return fmt.Errorf("output.update_markdown[%d].file must not be empty", i)
		}
		if strings.TrimSpace(inj.Marker) == "" {
			return fmt.Errorf("output.update_markdown[%d].marker must not be empty", i)
		}
	}
	if root := strings.TrimSpace(cfg.Output.Root); root != "" {
		if info, err := os.Stat(root); err == nil && !info.IsDir() {
			return fmt.Errorf("output.root %q is not a directory", root)
		}
	}
	return nil
}

func validateDatabase(cfg *Config) error {
	if !cfg.DB.Enabled {
		return nil
	}
	if strings.TrimSpace(cfg.DB.Path) == "" {
		return fmt.Errorf("db.path must not be empty when db.enabled is true")
	}
	if cfg.DB.BusyTimeout < 0 {
		return fmt.Errorf("db.busy_timeout must not be negative")
	}
	if cfg.DB.Retain < 0 {
		return fmt.Errorf("db.retain must not be negative")
	}
	return nil
}

func validateWatch(cfg *Config) error {
	if cfg.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative")
	}
	if cfg.Watch.MaxRebuildsPerSecond <= 0 {
		return fmt.Errorf("watch.max_rebuilds_per_second must be > 0, got %v", cfg.Watch.MaxRebuildsPerSecond)
	}
	return nil
}

func validateObservability(cfg *Config) error {
	if !cfg.Observability.Enabled {
		return nil
	}
	if cfg.Observability.Port < 1 || cfg.Observability.Port > 65535 {
		return fmt.Errorf("observability.port must be between 1 and 65535, got %d", cfg.Observability.Port)
	}
	return nil
}

func validateLog(cfg *Config) error {
	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of: debug, info, warn, error")
	}
	switch cfg.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be one of: text, json")
	}
	return nil
}
