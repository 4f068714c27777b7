package config

import (
	"runtime"
	"time"

	"semgraph/internal/engine/parser"
)

type Config struct {
	Source        Source        `toml:"source"`
	Build         Build         `toml:"build"`
	Resolve       Resolve       `toml:"resolve"`
	Cache         Cache         `toml:"cache"`
	Output        Output        `toml:"output"`
	DB            Database      `toml:"db"`
	Watch         Watch         `toml:"watch"`
	Observability Observability `toml:"observability"`
	Log           Log           `toml:"log"`
}

// Source locates the crate. When Manifest is set the forest is read from that
// YAML file instead of parsing Root.
type Source struct {
	Root         string   `toml:"root"`
	Entry        string   `toml:"entry"`
	ExcludeDirs  []string `toml:"exclude_dirs"`
	ExcludeFiles []string `toml:"exclude_files"`
	Manifest     string   `toml:"manifest"`
}

type Build struct {
	Workers       int    `toml:"workers"`
	MaxAliasDepth int    `toml:"max_alias_depth"`
	CrateName     string `toml:"crate_name"`
}

type Resolve struct {
	ExternPrefixes   []string `toml:"extern_prefixes"`
	IgnoreUnresolved []string `toml:"ignore_unresolved"`
}

type Cache struct {
	ParsedFiles int `toml:"parsed_files"`
}

type Output struct {
	Root    string `toml:"root"`
	DOT     string `toml:"dot"`
	TSV     string `toml:"tsv"`
	YAML    string `toml:"yaml"`
	Mermaid string `toml:"mermaid"`
	SARIF   string `toml:"sarif"`

	UpdateMarkdown []MarkdownInjection `toml:"update_markdown"`
}

// MarkdownInjection rewrites the block between
// <!-- semgraph:MARKER:start --> and <!-- semgraph:MARKER:end --> in File with
// the module diagram.
type MarkdownInjection struct {
	File   string `toml:"file"`
	Marker string `toml:"marker"`
}

type Database struct {
	Enabled     bool          `toml:"enabled"`
	Path        string        `toml:"path"`
	BusyTimeout time.Duration `toml:"busy_timeout"`
	// Retain is the number of builds kept per crate; 0 keeps everything.
	Retain int `toml:"retain"`
}

type Watch struct {
	Debounce             time.Duration `toml:"debounce"`
	MaxRebuildsPerSecond float64       `toml:"max_rebuilds_per_second"`
}

type Observability struct {
	Enabled       bool   `toml:"enabled"`
	Port          int    `toml:"port"`
	EnableTracing bool   `toml:"enable_tracing"`
	OTLPEndpoint  string `toml:"otlp_endpoint"`
}

type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// DefaultConfig returns the configuration used when no file is given. Loaded
// files are decoded on top of it, so omitted keys keep these values.
func DefaultConfig() *Config {
	return &Config{
		Source: Source{
			Root:        ".",
			Entry:       parser.DefaultEntry,
			ExcludeDirs: []string{"target", ".git"},
		},
		Build: Build{
			Workers:       runtime.NumCPU(),
			MaxAliasDepth: 32,
		},
		Resolve: Resolve{
			ExternPrefixes: []string{"std", "core", "alloc"},
		},
		Cache: Cache{
			ParsedFiles: parser.DefaultCacheSize,
		},
		DB: Database{
			Path:        "semgraph.db",
			BusyTimeout: 5 * time.Second,
			Retain:      20,
		},
		Watch: Watch{
			Debounce:             500 * time.Millisecond,
			MaxRebuildsPerSecond: 2,
		},
		Observability: Observability{
			Port: 9464,
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
	}
}
