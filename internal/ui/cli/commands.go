package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"semgraph/internal/core/config"
	"semgraph/internal/core/ports"
	"semgraph/internal/data/query"
	"semgraph/internal/engine/graph"
	"semgraph/internal/engine/parser"
	"semgraph/internal/ui/report"
)

func rootArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}

func newBuildCmd(opts *globalOptions, stdout, stderr io.Writer) *cobra.Command {
	var (
		strict     bool
		plain      bool
		maxEntries int
	)
	cmd := &cobra.Command{
		Use:   "build [root]",
		Short: "Build the graph once, write configured outputs and print a summary",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup(opts, rootArg(args), stderr)
			if err != nil {
				return withExitCode(ExitError, err)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			shutdown, err := startObservability(ctx, env.cfg, nil)
			if err != nil {
				return withExitCode(ExitError, err)
			}
			defer shutdown()

			a, err := newApp(env)
			if err != nil {
				return withExitCode(ExitError, err)
			}
			defer a.Close()

			result, err := a.Build(ctx)
			if err != nil {
				return withExitCode(ExitError, err)
			}
			fmt.Fprint(stdout, report.RenderSummary(result.Graph, report.SummaryOptions{
				MaxEntries: maxEntries,
				Plain:      plain,
			}))
			for _, p := range result.Written {
				fmt.Fprintf(stdout, "  wrote %s\n", p)
			}
			if result.Previous != "" && !result.Diff.Empty() {
				fmt.Fprintf(stdout, "  since %s: +%d / -%d edges\n", result.Previous, len(result.Diff.Added), len(result.Diff.Removed))
			}

			if strict && len(result.Graph.Diagnostics()) > 0 {
				return withExitCode(ExitDiagnostics, fmt.Errorf("%d diagnostics", len(result.Graph.Diagnostics())))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "Exit with status 3 when the build has diagnostics")
	cmd.Flags().BoolVar(&plain, "plain", false, "Disable colored output")
	cmd.Flags().IntVar(&maxEntries, "max-entries", 20, "Entries listed per summary section (0 for all)")
	return cmd
}

func newQueryCmd(opts *globalOptions, stdout, stderr io.Writer) *cobra.Command {
	var (
		root   string
		format string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Build the graph and answer a query against it",
	}
	cmd.PersistentFlags().StringVar(&root, "root", "", "Crate root (overrides source.root)")
	cmd.PersistentFlags().StringVarP(&format, "format", "f", "text", "Output format (text, yaml)")

	run := func(kind ports.QueryKind, nargs int) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			if format != "text" && format != "yaml" {
				return withExitCode(ExitUsage, fmt.Errorf("unknown format %q", format))
			}
			env, err := setup(opts, root, stderr)
			if err != nil {
				return withExitCode(ExitError, err)
			}
			a, err := newApp(env)
			if err != nil {
				return withExitCode(ExitError, err)
			}
			defer a.Close()

			ctx := cmd.Context()
			if _, err := a.Build(ctx); err != nil {
				return withExitCode(ExitError, err)
			}
			req := ports.QueryRequest{Kind: kind}
			if nargs > 0 {
				req.Path = args[0]
			}
			if nargs > 1 {
				req.To = args[1]
			}
			if kind == ports.QuerySelect {
				req.Path = ""
				req.Expr = strings.Join(args, " ")
				req.Limit = limit
			}
			res, err := a.Query(ctx, req)
			if err != nil {
				return withExitCode(ExitError, err)
			}
			return writeQueryResult(stdout, format, kind, res)
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "lookup <path>",
			Short: "Show the declaration at a canonical path",
			Args:  cobra.ExactArgs(1),
			RunE:  run(ports.QueryLookup, 1),
		},
		&cobra.Command{
			Use:   "out <path>",
			Short: "List edges leaving a declaration",
			Args:  cobra.ExactArgs(1),
			RunE:  run(ports.QueryOutgoing, 1),
		},
		&cobra.Command{
			Use:   "in <path>",
			Short: "List edges entering a declaration",
			Args:  cobra.ExactArgs(1),
			RunE:  run(ports.QueryIncoming, 1),
		},
		&cobra.Command{
			Use:   "impact <path>",
			Short: "List direct and transitive callers and the aliases exposing a declaration",
			Args:  cobra.ExactArgs(1),
			RunE:  run(ports.QueryImpact, 1),
		},
		&cobra.Command{
			Use:   "chain <from> <to>",
			Short: "Find the shortest call chain between two declarations",
			Args:  cobra.ExactArgs(2),
			RunE:  run(ports.QueryChain, 2),
		},
		&cobra.Command{
			Use:   "cycles",
			Short: "List call cycles",
			Args:  cobra.NoArgs,
			RunE:  run(ports.QueryCycles, 0),
		},
	)

	selectCmd := &cobra.Command{
		Use:   "select <expression>",
		Short: "Filter declarations, e.g. 'SELECT functions WHERE fan_in >= 2'",
		Args:  cobra.MinimumNArgs(1),
		RunE:  run(ports.QuerySelect, 0),
	}
	selectCmd.Flags().IntVar(&limit, "limit", 0, "Maximum rows (0 for all)")
	cmd.AddCommand(selectCmd)
	return cmd
}

type queryOutput struct {
	Declaration *graph.Declaration  `yaml:"declaration,omitempty"`
	Edges       []graph.Edge        `yaml:"edges,omitempty"`
	Chain       []string            `yaml:"chain,omitempty"`
	Cycles      [][]string          `yaml:"cycles,omitempty"`
	Rows        []query.Row         `yaml:"rows,omitempty"`
	Impact      *graph.ImpactReport `yaml:"impact,omitempty"`
}

func writeQueryResult(w io.Writer, format string, kind ports.QueryKind, res ports.QueryResult) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(queryOutput{
			Declaration: res.Declaration,
			Edges:       res.Edges,
			Chain:       res.Chain,
			Cycles:      res.Cycles,
			Rows:        res.Rows,
			Impact:      res.Impact,
		})
	}

	switch kind {
	case ports.QueryLookup:
		d := res.Declaration
		fmt.Fprintf(w, "%s\t%s", d.Path, d.Kind)
		if d.Target != "" {
			fmt.Fprintf(w, "\t-> %s", d.Target)
		}
		if loc := d.Location.String(); loc != "" {
			fmt.Fprintf(w, "\t%s", loc)
		}
		fmt.Fprintln(w)
	case ports.QueryOutgoing, ports.QueryIncoming:
		for _, e := range res.Edges {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.From, e.Kind, e.To, e.Location.String())
		}
	case ports.QueryChain:
		fmt.Fprintln(w, strings.Join(res.Chain, " -> "))
	case ports.QueryCycles:
		for _, c := range res.Cycles {
			fmt.Fprintln(w, strings.Join(append(append([]string(nil), c...), c[0]), " -> "))
		}
	case ports.QueryImpact:
		r := res.Impact
		writeList(w, "direct callers", r.DirectCallers)
		writeList(w, "transitive callers", r.TransitiveCallers)
		writeList(w, "re-exports", r.Reexports)
		writeList(w, "importing modules", r.ImportingModules)
	case ports.QuerySelect:
		for _, r := range res.Rows {
			fmt.Fprintf(w, "%s\t%s\tin=%d\tout=%d\n", r.Declaration.Path, r.Declaration.Kind, r.FanIn, r.FanOut)
		}
	}
	return nil
}

func writeList(w io.Writer, title string, items []string) {
	fmt.Fprintf(w, "%s (%d)\n", title, len(items))
	for _, it := range items {
		fmt.Fprintf(w, "  %s\n", it)
	}
}

func newWatchCmd(opts *globalOptions, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [root]",
		Short: "Rebuild whenever sources change",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup(opts, rootArg(args), stderr)
			if err != nil {
				return withExitCode(ExitError, err)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(env)
			if err != nil {
				return withExitCode(ExitError, err)
			}
			defer a.Close()

			shutdown, err := startObservability(ctx, env.cfg, a.Health)
			if err != nil {
				return withExitCode(ExitError, err)
			}
			defer shutdown()

			a.SetUpdateHandler(func(res ports.BuildResult, err error) {
				if err != nil {
					fmt.Fprintf(stdout, "build failed: %v\n", err)
					return
				}
				fmt.Fprintln(stdout, watchLine(res))
			})

			if env.cfgPath != "" {
				rootOverride := rootArg(args)
				cw := config.NewWatcher(env.cfgPath, func(cfg *config.Config) {
					if err := applyOverrides(cfg, opts, rootOverride, env.cwd); err != nil {
						slog.Error("reloaded config rejected", "error", err)
						return
					}
					if err := a.Reconfigure(cfg); err != nil {
						slog.Error("reloaded config rejected", "error", err)
					}
				})
				if err := cw.Start(ctx); err != nil {
					slog.Warn("config watcher unavailable", "error", err)
				} else {
					defer cw.Stop()
				}
			}

			return withExitCode(ExitError, a.Watch(ctx))
		},
	}
}

func watchLine(res ports.BuildResult) string {
	g := res.Graph
	stats := g.Stats()
	line := fmt.Sprintf("[%s] %s: %d modules, %d call edges, %d diagnostics, %d cycles",
		g.BuildID()[:8], g.Crate(), stats.Modules, stats.CallEdges, stats.Diagnostics, len(g.CallCycles()))
	if !res.Diff.Empty() {
		line += fmt.Sprintf(" (+%d/-%d edges)", len(res.Diff.Added), len(res.Diff.Removed))
	}
	return line
}

func newManifestCmd(opts *globalOptions, stdout, stderr io.Writer) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "manifest [root]",
		Short: "Parse a crate and write its module forest as a YAML manifest",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup(opts, rootArg(args), stderr)
			if err != nil {
				return withExitCode(ExitError, err)
			}
			loader, err := parser.NewCrateLoader(parser.LoaderOptions{
				Entry:        env.cfg.Source.Entry,
				CrateName:    env.cfg.Build.CrateName,
				ExcludeDirs:  env.cfg.Source.ExcludeDirs,
				ExcludeFiles: env.cfg.Source.ExcludeFiles,
				CacheSize:    env.cfg.Cache.ParsedFiles,
			})
			if err != nil {
				return withExitCode(ExitError, err)
			}
			paths, err := config.ResolvePaths(env.cfg, env.baseDir)
			if err != nil {
				return withExitCode(ExitError, err)
			}
			forest, err := loader.Load(cmd.Context(), paths.SourceRoot)
			if err != nil {
				return withExitCode(ExitError, err)
			}

			if output == "" || output == "-" {
				enc := yaml.NewEncoder(stdout)
				enc.SetIndent(2)
				defer enc.Close()
				return withExitCode(ExitError, enc.Encode(forest))
			}
			if err := parser.SaveManifest(output, forest); err != nil {
				return withExitCode(ExitError, err)
			}
			fmt.Fprintf(stdout, "wrote %s (%d modules)\n", output, len(forest.Modules))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Manifest file to write (stdout when empty)")
	return cmd
}

func newConfigCmd(opts *globalOptions, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup(opts, "", stderr)
			if err != nil {
				return withExitCode(ExitError, err)
			}
			text, err := config.Describe(env.cfg)
			if err != nil {
				return withExitCode(ExitError, err)
			}
			fmt.Fprint(stdout, text)
			return nil
		},
	}
}
