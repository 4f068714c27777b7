package formats

import (
	"fmt"
	"strings"

	"semgraph/internal/engine/graph"
)

type TSVGenerator struct {
	graph *graph.Graph
}

func NewTSVGenerator(g *graph.Graph) *TSVGenerator {
	return &TSVGenerator{graph: g}
}

// Generate writes one row per edge in graph order.
func (t *TSVGenerator) Generate() (string, error) {
	var buf strings.Builder

	buf.WriteString("From\tTo\tKind\tFile\tLine\tColumn\n")
	for _, e := range t.graph.Edges() {
		buf.WriteString(fmt.Sprintf("%s\t%s\t%s\t%s\t%d\t%d\n",
			e.From, e.To, e.Kind, e.Location.File, e.Location.Line, e.Location.Column))
	}

	return buf.String(), nil
}

func (t *TSVGenerator) GenerateDiagnostics() (string, error) {
	var buf strings.Builder

	buf.WriteString("Type\tCode\tModule\tSubject\tFile\tLine\tColumn\tMessage\n")
	for _, d := range t.graph.Diagnostics() {
		buf.WriteString(fmt.Sprintf("diagnostic\t%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			d.Code,
			d.Module,
			d.Subject,
			d.Location.File,
			d.Location.Line,
			d.Location.Column,
			tsvField(d.Message),
		))
	}

	return buf.String(), nil
}

func (t *TSVGenerator) GenerateUnusedImports() (string, error) {
	var buf strings.Builder

	buf.WriteString("Type\tModule\tName\tImport\tTarget\tFile\tLine\tColumn\n")
	for _, u := range t.graph.UnusedImports() {
		buf.WriteString(fmt.Sprintf("unused_import\t%s\t%s\t%s\t%s\t%s\t%d\t%d\n",
			u.Module,
			u.Name,
			u.Import,
			u.Target,
			u.Location.File,
			u.Location.Line,
			u.Location.Column,
		))
	}

	return buf.String(), nil
}

// GenerateAll joins the edge, diagnostic and unused import tables with a
// blank line between them.
func (t *TSVGenerator) GenerateAll() (string, error) {
	parts := make([]string, 0, 3)
	for _, gen := range []func() (string, error){t.Generate, t.GenerateDiagnostics, t.GenerateUnusedImports} {
		out, err := gen()
		if err != nil {
			return "", err
		}
		parts = append(parts, out)
	}
	return strings.Join(parts, "\n"), nil
}

func tsvField(s string) string {
	return strings.NewReplacer("\t", " ", "\n", " ").Replace(s)
}
