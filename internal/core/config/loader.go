package config

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"semgraph/internal/core/errors"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML config on top of DefaultConfig. A `.env` file beside the
// config is loaded into the process environment first, then SEMGRAPH_* env
// overrides are applied and the result is validated.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeNotFound, "read config")
	}
	loadDotEnv(filepath.Join(filepath.Dir(path), ".env"))

	cfg, err := Decode(string(data))
	if err != nil {
		return nil, errors.AddContext(err, errors.CtxPath, path)
	}
	return cfg, nil
}

// Decode parses TOML text, applies env overrides and validates.
func Decode(data string) (*Config, error) {
	cfg := DefaultConfig()
	md, err := toml.Decode(data, cfg)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "decode config")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, errors.Newf(errors.CodeValidationError, "unknown config keys: %s", strings.Join(keys, ", "))
	}

	ApplyEnvOverrides(cfg)
	normalize(cfg)

	if errs := Validate(cfg); len(errs) > 0 {
		return nil, errors.Wrap(stderrors.Join(errs...), errors.CodeValidationError, "invalid config")
	}
	return cfg, nil
}

// LoadOrDefault loads path when set, otherwise returns validated defaults with
// env overrides applied.
func LoadOrDefault(path string) (*Config, error) {
	if strings.TrimSpace(path) != "" {
		return Load(path)
	}
	loadDotEnv(".env")
	cfg := DefaultConfig()
	ApplyEnvOverrides(cfg)
	normalize(cfg)
	if errs := Validate(cfg); len(errs) > 0 {
		return nil, errors.Wrap(stderrors.Join(errs...), errors.CodeValidationError, "invalid config")
	}
	return cfg, nil
}

func loadDotEnv(path string) {
	if _, err := os.Stat(path); err != nil {
		return
	}
	// Existing environment variables win over the file.
	if err := godotenv.Load(path); err != nil {
		slog.Warn("failed to load env file", "path", path, "error", err)
		return
	}
	slog.Debug("loaded env file", "path", path)
}

func normalize(cfg *Config) {
	cfg.Source.Root = strings.TrimSpace(cfg.Source.Root)
	cfg.Source.Entry = strings.TrimSpace(cfg.Source.Entry)
	cfg.Source.Manifest = strings.TrimSpace(cfg.Source.Manifest)
	cfg.Build.CrateName = strings.TrimSpace(cfg.Build.CrateName)
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	cfg.Log.Format = strings.ToLower(strings.TrimSpace(cfg.Log.Format))
	cfg.Resolve.ExternPrefixes = trimAll(cfg.Resolve.ExternPrefixes)
	cfg.Resolve.IgnoreUnresolved = trimAll(cfg.Resolve.IgnoreUnresolved)
}

func trimAll(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Describe renders the effective configuration as TOML.
func Describe(cfg *Config) (string, error) {
	var b strings.Builder
	if err := toml.NewEncoder(&b).Encode(cfg); err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	return b.String(), nil
}
