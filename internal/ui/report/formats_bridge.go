package report

import (
	"semgraph/internal/engine/graph"
	"semgraph/internal/ui/report/formats"
)

type DOTGenerator = formats.DOTGenerator
type TSVGenerator = formats.TSVGenerator
type MermaidGenerator = formats.MermaidGenerator
type YAMLGenerator = formats.YAMLGenerator

func NewDOTGenerator(g *graph.Graph) *DOTGenerator {
	return formats.NewDOTGenerator(g)
}

func NewTSVGenerator(g *graph.Graph) *TSVGenerator {
	return formats.NewTSVGenerator(g)
}

func NewMermaidGenerator(g *graph.Graph) *MermaidGenerator {
	return formats.NewMermaidGenerator(g)
}

func NewYAMLGenerator(g *graph.Graph) *YAMLGenerator {
	return formats.NewYAMLGenerator(g)
}

func GenerateSARIF(projectRoot string, g *graph.Graph) ([]byte, error) {
	return formats.GenerateSARIF(projectRoot, g)
}
