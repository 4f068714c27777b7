package formats

import (
	"bytes"

	"semgraph/internal/engine/graph"
	"semgraph/internal/shared/version"

	"gopkg.in/yaml.v3"
)

// Report is the full serialized form of one build.
type Report struct {
	Tool         string               `yaml:"tool"`
	Version      string               `yaml:"version"`
	BuildID      string               `yaml:"build_id"`
	Crate        string               `yaml:"crate"`
	Fingerprint  string               `yaml:"fingerprint"`
	Stats        graph.Stats          `yaml:"stats"`
	Declarations []graph.Declaration  `yaml:"declarations"`
	Edges        []graph.Edge         `yaml:"edges"`
	Diagnostics  []graph.Diagnostic   `yaml:"diagnostics,omitempty"`
	Unused       []graph.UnusedImport `yaml:"unused_imports,omitempty"`
	CallCycles   [][]string           `yaml:"call_cycles,omitempty"`
}

func NewReport(g *graph.Graph) Report {
	return Report{
		Tool:         "semgraph",
		Version:      version.Version,
		BuildID:      g.BuildID(),
		Crate:        g.Crate(),
		Fingerprint:  g.FingerprintHex(),
		Stats:        g.Stats(),
		Declarations: g.Declarations(),
		Edges:        g.Edges(),
		Diagnostics:  g.Diagnostics(),
		Unused:       g.UnusedImports(),
		CallCycles:   g.CallCycles(),
	}
}

type YAMLGenerator struct {
	graph *graph.Graph
}

func NewYAMLGenerator(g *graph.Graph) *YAMLGenerator {
	return &YAMLGenerator{graph: g}
}

func (y *YAMLGenerator) Generate() (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(NewReport(y.graph)); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
