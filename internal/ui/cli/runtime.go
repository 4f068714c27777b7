package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"semgraph/internal/core/app"
	"semgraph/internal/core/config"
	"semgraph/internal/core/errors"
	"semgraph/internal/shared/observability"
)

type runtimeEnv struct {
	cfg     *config.Config
	cfgPath string // empty when running on defaults
	baseDir string
	cwd     string
}

// setup loads the config, applies flag and argument overrides, validates the
// result and installs the default logger.
func setup(opts *globalOptions, rootArg string, stderr io.Writer) (*runtimeEnv, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("detect working directory: %w", err)
	}

	cfg, cfgPath, err := loadConfig(opts.configPath, cwd)
	if err != nil {
		return nil, err
	}
	baseDir := cwd
	if cfgPath != "" {
		baseDir = filepath.Dir(cfgPath)
	}

	if err := applyOverrides(cfg, opts, rootArg, cwd); err != nil {
		return nil, err
	}
	configureLogging(cfg.Log.Level, cfg.Log.Format, stderr)
	if cfgPath != "" {
		slog.Debug("config loaded", "path", cfgPath)
	}
	return &runtimeEnv{cfg: cfg, cfgPath: cfgPath, baseDir: baseDir, cwd: cwd}, nil
}

// loadConfig reads path when given. Otherwise ./semgraph.toml is used when
// present and defaults apply when it is not.
func loadConfig(path, cwd string) (*config.Config, string, error) {
	if strings.TrimSpace(path) != "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, "", fmt.Errorf("resolve config path: %w", err)
		}
		cfg, err := config.Load(abs)
		if err != nil {
			return nil, "", err
		}
		return cfg, abs, nil
	}

	candidate := filepath.Join(cwd, defaultConfigName)
	if _, err := os.Stat(candidate); err == nil {
		cfg, err := config.Load(candidate)
		if err != nil {
			return nil, "", err
		}
		return cfg, candidate, nil
	}
	cfg, err := config.LoadOrDefault("")
	return cfg, "", err
}

// applyOverrides folds command-line values into cfg. Paths given on the
// command line are relative to the working directory, not the config file.
func applyOverrides(cfg *config.Config, opts *globalOptions, rootArg, cwd string) error {
	if opts.logLevel != "" {
		cfg.Log.Level = strings.ToLower(strings.TrimSpace(opts.logLevel))
	}
	if opts.logFormat != "" {
		cfg.Log.Format = strings.ToLower(strings.TrimSpace(opts.logFormat))
	}
	if rootArg != "" {
		cfg.Source.Root = config.ResolveRelative(cwd, rootArg)
		cfg.Source.Manifest = ""
	}
	if opts.manifest != "" {
		cfg.Source.Manifest = config.ResolveRelative(cwd, opts.manifest)
	}
	if opts.crateName != "" {
		cfg.Build.CrateName = strings.TrimSpace(opts.crateName)
	}
	if errs := config.Validate(cfg); len(errs) > 0 {
		return errors.Wrap(stderrors.Join(errs...), errors.CodeValidationError, "invalid options")
	}
	return nil
}

func configureLogging(level, format string, w io.Writer) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, handlerOpts)
	} else {
		handler = slog.NewTextHandler(w, handlerOpts)
	}
	slog.SetDefault(slog.New(handler))
}

func newApp(env *runtimeEnv) (*app.App, error) {
	return app.New(env.cfg, env.baseDir)
}

// startObservability starts tracing and the metrics server as configured. The
// returned function shuts both down.
func startObservability(ctx context.Context, cfg *config.Config, health observability.HealthFunc) (func(), error) {
	var cleanups []func(context.Context) error

	if cfg.Observability.EnableTracing {
		shutdown, err := observability.InitTracing(ctx, cfg.Observability.OTLPEndpoint)
		if err != nil {
			return nil, err
		}
		cleanups = append(cleanups, shutdown)
	}
	if cfg.Observability.Enabled {
		server := observability.NewServer(fmt.Sprintf(":%d", cfg.Observability.Port), health)
		if err := server.Start(ctx); err != nil {
			return nil, err
		}
		cleanups = append(cleanups, server.Stop)
	}

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for i := len(cleanups) - 1; i >= 0; i-- {
			if err := cleanups[i](shutdownCtx); err != nil {
				slog.Warn("observability shutdown failed", "error", err)
			}
		}
	}, nil
}
