package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"semgraph/internal/engine/graph"
)

var (
	titleStyle = lipgloss.NewStyle().
			MarginLeft(2).
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true)

	sectionStyle = lipgloss.NewStyle().
			MarginLeft(2).
			Foreground(lipgloss.Color("#E2E8F0")).
			Bold(true)

	cycleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)
)

// SummaryOptions bounds the number of entries listed per section; zero lists all.
type SummaryOptions struct {
	MaxEntries int
	// Plain disables ANSI styling, used when output is not a terminal.
	Plain bool
}

// RenderSummary produces the human-readable build report printed by the CLI.
func RenderSummary(g *graph.Graph, opts SummaryOptions) string {
	style := func(s lipgloss.Style, text string) string {
		if opts.Plain {
			return text
		}
		return s.Render(text)
	}

	var b strings.Builder
	stats := g.Stats()

	b.WriteString(style(titleStyle, fmt.Sprintf("semgraph: crate %s", g.Crate())))
	b.WriteString("\n")
	b.WriteString(style(statusStyle, fmt.Sprintf("  build %s  fingerprint %s", g.BuildID(), g.FingerprintHex())))
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "  modules %d  functions %d  items %d  re-exports %d\n",
		stats.Modules, stats.Functions, stats.Items, stats.Reexports)
	fmt.Fprintf(&b, "  edges: call %d  alias %d  reexport %d  (external sites %d)\n",
		stats.CallEdges, stats.AliasEdges, stats.ReexportEdges, stats.ExternalSites)

	diags := g.Diagnostics()
	if len(diags) > 0 {
		b.WriteString("\n")
		b.WriteString(style(sectionStyle, fmt.Sprintf("Diagnostics (%d)", len(diags))))
		b.WriteString("\n")
		for _, i := range limit(len(diags), opts.MaxEntries) {
			d := diags[i]
			line := style(warningStyle, "["+string(d.Code)+"]") + " " + d.Message
			if loc := d.Location.String(); loc != "" {
				line += "  " + style(statusStyle, loc)
			}
			b.WriteString("    " + line + "\n")
		}
		writeOmitted(&b, len(diags), opts.MaxEntries, style)
	}

	cycles := g.CallCycles()
	if len(cycles) > 0 {
		b.WriteString("\n")
		b.WriteString(style(sectionStyle, fmt.Sprintf("Call cycles (%d)", len(cycles))))
		b.WriteString("\n")
		for _, i := range limit(len(cycles), opts.MaxEntries) {
			chain := strings.Join(cycles[i], " -> ") + " -> " + cycles[i][0]
			b.WriteString("    " + style(cycleStyle, "CYCLE") + " " + chain + "\n")
		}
		writeOmitted(&b, len(cycles), opts.MaxEntries, style)
	}

	unused := g.UnusedImports()
	if len(unused) > 0 {
		b.WriteString("\n")
		b.WriteString(style(sectionStyle, fmt.Sprintf("Unused imports (%d)", len(unused))))
		b.WriteString("\n")
		for _, i := range limit(len(unused), opts.MaxEntries) {
			u := unused[i]
			line := fmt.Sprintf("%s: %s", u.Module, u.Import)
			if loc := u.Location.String(); loc != "" {
				line += "  " + style(statusStyle, loc)
			}
			b.WriteString("    " + line + "\n")
		}
		writeOmitted(&b, len(unused), opts.MaxEntries, style)
	}

	b.WriteString("\n")
	if len(diags) == 0 && len(cycles) == 0 {
		b.WriteString("  " + style(successStyle, "all references resolved") + "\n")
	} else {
		b.WriteString("  " + style(warningStyle, fmt.Sprintf("%d diagnostics, %d call cycles", len(diags), len(cycles))) + "\n")
	}

	return b.String()
}

func limit(n, max int) []int {
	if max > 0 && n > max {
		n = max
	}
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func writeOmitted(b *strings.Builder, n, max int, style func(lipgloss.Style, string) string) {
	if max > 0 && n > max {
		b.WriteString("    " + style(statusStyle, fmt.Sprintf("... %d more", n-max)) + "\n")
	}
}
