package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: SEMGRAPH_[SECTION]_[KEY] (e.g., SEMGRAPH_BUILD_WORKERS).
// List values are comma separated.
func ApplyEnvOverrides(cfg *Config) {
	// Source
	setEnvString(&cfg.Source.Root, "SEMGRAPH_SOURCE_ROOT")
	setEnvString(&cfg.Source.Entry, "SEMGRAPH_SOURCE_ENTRY")
	setEnvString(&cfg.Source.Manifest, "SEMGRAPH_SOURCE_MANIFEST")
	setEnvList(&cfg.Source.ExcludeDirs, "SEMGRAPH_SOURCE_EXCLUDE_DIRS")
	setEnvList(&cfg.Source.ExcludeFiles, "SEMGRAPH_SOURCE_EXCLUDE_FILES")

	// Build
	setEnvInt(&cfg.Build.Workers, "SEMGRAPH_BUILD_WORKERS")
	setEnvInt(&cfg.Build.MaxAliasDepth, "SEMGRAPH_BUILD_MAX_ALIAS_DEPTH")
	setEnvString(&cfg.Build.CrateName, "SEMGRAPH_BUILD_CRATE_NAME")

	// Resolve
	setEnvList(&cfg.Resolve.ExternPrefixes, "SEMGRAPH_RESOLVE_EXTERN_PREFIXES")
	setEnvList(&cfg.Resolve.IgnoreUnresolved, "SEMGRAPH_RESOLVE_IGNORE_UNRESOLVED")

	setEnvInt(&cfg.Cache.ParsedFiles, "SEMGRAPH_CACHE_PARSED_FILES")

	// Output
	setEnvString(&cfg.Output.Root, "SEMGRAPH_OUTPUT_ROOT")
	setEnvString(&cfg.Output.DOT, "SEMGRAPH_OUTPUT_DOT")
	setEnvString(&cfg.Output.TSV, "SEMGRAPH_OUTPUT_TSV")
	setEnvString(&cfg.Output.YAML, "SEMGRAPH_OUTPUT_YAML")
	setEnvString(&cfg.Output.Mermaid, "SEMGRAPH_OUTPUT_MERMAID")
	setEnvString(&cfg.Output.SARIF, "SEMGRAPH_OUTPUT_SARIF")

	// Database
	setEnvBool(&cfg.DB.Enabled, "SEMGRAPH_DB_ENABLED")
	setEnvString(&cfg.DB.Path, "SEMGRAPH_DB_PATH")
	setEnvDuration(&cfg.DB.BusyTimeout, "SEMGRAPH_DB_BUSY_TIMEOUT")
	setEnvInt(&cfg.DB.Retain, "SEMGRAPH_DB_RETAIN")

	// Watch
	setEnvDuration(&cfg.Watch.Debounce, "SEMGRAPH_WATCH_DEBOUNCE")
	setEnvFloat64(&cfg.Watch.MaxRebuildsPerSecond, "SEMGRAPH_WATCH_MAX_REBUILDS_PER_SECOND")

	// Observability
	setEnvBool(&cfg.Observability.Enabled, "SEMGRAPH_OBSERVABILITY_ENABLED")
	setEnvInt(&cfg.Observability.Port, "SEMGRAPH_OBSERVABILITY_PORT")
	setEnvString(&cfg.Observability.OTLPEndpoint, "SEMGRAPH_OBSERVABILITY_OTLP_ENDPOINT")
	setEnvBool(&cfg.Observability.EnableTracing, "SEMGRAPH_OBSERVABILITY_ENABLE_TRACING")

	// Log
	setEnvString(&cfg.Log.Level, "SEMGRAPH_LOG_LEVEL")
	setEnvString(&cfg.Log.Format, "SEMGRAPH_LOG_FORMAT")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = val
	}
}

func setEnvList(target *[]string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		var out []string
		for _, part := range strings.Split(val, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		// An empty value clears the list.
		if out == nil {
			out = []string{}
		}
		*target = out
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = b
		}
	}
}

func setEnvFloat64(target *float64, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = f
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = d
		}
	}
}
