package app

import (
	"fmt"
	"path/filepath"
	"strings"

	"semgraph/internal/core/config"
	"semgraph/internal/engine/graph"
	"semgraph/internal/shared/util"
	"semgraph/internal/ui/report"
)

type outputTargets struct {
	DOT     string
	TSV     string
	YAML    string
	Mermaid string
	SARIF   string
}

func resolveOutputTargets(cfg *config.Config, root string) outputTargets {
	return outputTargets{
		DOT:     resolveOutputPath(cfg.Output.DOT, root),
		TSV:     resolveOutputPath(cfg.Output.TSV, root),
		YAML:    resolveOutputPath(cfg.Output.YAML, root),
		Mermaid: resolveOutputPath(cfg.Output.Mermaid, root),
		SARIF:   resolveOutputPath(cfg.Output.SARIF, root),
	}
}

func resolveOutputPath(path, root string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(root, path)
}

func writeArtifact(path, content string) error {
	return util.WriteStringWithDirs(path, content, 0o644)
}

// GenerateOutputs writes every configured artifact for g and returns the
// paths written, in a fixed order.
func (a *App) GenerateOutputs(g *graph.Graph) ([]string, error) {
	a.mu.RLock()
	cfg, paths, baseDir := a.cfg, a.paths, a.baseDir
	a.mu.RUnlock()

	targets := resolveOutputTargets(cfg, paths.OutputRoot)
	var written []string

	if targets.DOT != "" {
		dot, err := report.NewDOTGenerator(g).Generate(g.CallCycles())
		if err != nil {
			return written, fmt.Errorf("generate DOT output: %w", err)
		}
		if err := writeArtifact(targets.DOT, dot); err != nil {
			return written, fmt.Errorf("write DOT output %q: %w", targets.DOT, err)
		}
		written = append(written, targets.DOT)
	}

	if targets.TSV != "" {
		tsv, err := report.NewTSVGenerator(g).GenerateAll()
		if err != nil {
			return written, fmt.Errorf("generate TSV output: %w", err)
		}
		if err := writeArtifact(targets.TSV, tsv); err != nil {
			return written, fmt.Errorf("write TSV output %q: %w", targets.TSV, err)
		}
		written = append(written, targets.TSV)
	}

	if targets.YAML != "" {
		doc, err := report.NewYAMLGenerator(g).Generate()
		if err != nil {
			return written, fmt.Errorf("generate YAML output: %w", err)
		}
		if err := writeArtifact(targets.YAML, doc); err != nil {
			return written, fmt.Errorf("write YAML output %q: %w", targets.YAML, err)
		}
		written = append(written, targets.YAML)
	}

	needMermaid := targets.Mermaid != "" || len(cfg.Output.UpdateMarkdown) > 0
	if needMermaid {
		diagram, err := report.NewMermaidGenerator(g).Generate()
		if err != nil {
			return written, fmt.Errorf("generate Mermaid output: %w", err)
		}
		if targets.Mermaid != "" {
			if err := writeArtifact(targets.Mermaid, diagram); err != nil {
				return written, fmt.Errorf("write Mermaid output %q: %w", targets.Mermaid, err)
			}
			written = append(written, targets.Mermaid)
		}
		for _, injection := range cfg.Output.UpdateMarkdown {
			file := config.ResolveRelative(baseDir, injection.File)
			if err := report.InjectDiagram(file, injection.Marker, "mermaid", diagram); err != nil {
				return written, fmt.Errorf("inject mermaid diagram into %q with marker %q: %w", file, injection.Marker, err)
			}
			written = append(written, file)
		}
	}

	if targets.SARIF != "" {
		data, err := report.GenerateSARIF(paths.SourceRoot, g)
		if err != nil {
			return written, fmt.Errorf("generate SARIF output: %w", err)
		}
		if err := util.WriteFileWithDirs(targets.SARIF, data, 0o644); err != nil {
			return written, fmt.Errorf("write SARIF output %q: %w", targets.SARIF, err)
		}
		written = append(written, targets.SARIF)
	}

	return written, nil
}
