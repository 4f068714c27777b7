package formats

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"semgraph/internal/engine/graph"
	"semgraph/internal/engine/parser"
	"semgraph/internal/shared/version"
)

// SARIF v2.1.0 schema: https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json

const (
	sarifSchema  = "https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json"
	sarifVersion = "2.1.0"

	ruleIDUnresolvedImport    = "SEM001"
	ruleIDUnresolvedReference = "SEM002"
	ruleIDCyclicAlias         = "SEM003"
	ruleIDCallCycle           = "SEM004"
	ruleIDUnusedImport        = "SEM005"
)

type sarifReport struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name    string      `json:"name"`
	Version string      `json:"version"`
	Rules   []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string                 `json:"id"`
	Name             string                 `json:"name"`
	ShortDescription sarifMessage           `json:"shortDescription"`
	DefaultConfig    sarifRuleDefaultConfig `json:"defaultConfiguration"`
}

type sarifRuleDefaultConfig struct {
	Level string `json:"level"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           *sarifRegion          `json:"region,omitempty"`
}

type sarifArtifactLocation struct {
	URI       string `json:"uri"`
	URIBaseID string `json:"uriBaseId"`
}

type sarifRegion struct {
	StartLine   int `json:"startLine,omitempty"`
	StartColumn int `json:"startColumn,omitempty"`
}

var sarifRules = map[string]sarifRule{
	ruleIDUnresolvedImport: {
		ID:               ruleIDUnresolvedImport,
		Name:             "UnresolvedImport",
		ShortDescription: sarifMessage{Text: "A use declaration does not name any declaration in the crate."},
		DefaultConfig:    sarifRuleDefaultConfig{Level: "error"},
	},
	ruleIDUnresolvedReference: {
		ID:               ruleIDUnresolvedReference,
		Name:             "UnresolvedReference",
		ShortDescription: sarifMessage{Text: "A call site does not resolve to a callable declaration."},
		DefaultConfig:    sarifRuleDefaultConfig{Level: "warning"},
	},
	ruleIDCyclicAlias: {
		ID:               ruleIDCyclicAlias,
		Name:             "CyclicAlias",
		ShortDescription: sarifMessage{Text: "Re-exports form a cycle and never reach a declaration."},
		DefaultConfig:    sarifRuleDefaultConfig{Level: "error"},
	},
	ruleIDCallCycle: {
		ID:               ruleIDCallCycle,
		Name:             "CallCycle",
		ShortDescription: sarifMessage{Text: "Functions call each other recursively."},
		DefaultConfig:    sarifRuleDefaultConfig{Level: "note"},
	},
	ruleIDUnusedImport: {
		ID:               ruleIDUnusedImport,
		Name:             "UnusedImport",
		ShortDescription: sarifMessage{Text: "A private function import is never called."},
		DefaultConfig:    sarifRuleDefaultConfig{Level: "warning"},
	},
}

var sarifRuleOrder = []string{
	ruleIDUnresolvedImport,
	ruleIDUnresolvedReference,
	ruleIDCyclicAlias,
	ruleIDCallCycle,
	ruleIDUnusedImport,
}

func diagnosticRuleID(d graph.Diagnostic) string {
	switch d.Code {
	case graph.DiagUnresolvedImport:
		return ruleIDUnresolvedImport
	case graph.DiagCyclicAlias:
		return ruleIDCyclicAlias
	default:
		return ruleIDUnresolvedReference
	}
}

// GenerateSARIF builds a SARIF v2.1.0 document from a graph's diagnostics,
// call cycles and unused imports. File URIs are made relative to projectRoot.
func GenerateSARIF(projectRoot string, g *graph.Graph) ([]byte, error) {
	results := make([]sarifResult, 0)
	used := make(map[string]bool)

	for _, d := range g.Diagnostics() {
		id := diagnosticRuleID(d)
		used[id] = true
		results = append(results, sarifResult{
			RuleID:    id,
			Level:     sarifRules[id].DefaultConfig.Level,
			Message:   sarifMessage{Text: d.Message},
			Locations: locationFor(projectRoot, d.Location, d.Module),
		})
	}

	for _, cycle := range g.CallCycles() {
		used[ruleIDCallCycle] = true
		var loc parser.Location
		if decl, ok := g.Lookup(cycle[0]); ok {
			loc = decl.Location
		}
		results = append(results, sarifResult{
			RuleID:    ruleIDCallCycle,
			Level:     sarifRules[ruleIDCallCycle].DefaultConfig.Level,
			Message:   sarifMessage{Text: fmt.Sprintf("Call cycle: %s", strings.Join(cycle, " -> ")+" -> "+cycle[0])},
			Locations: locationFor(projectRoot, loc, cycle[0]),
		})
	}

	for _, u := range g.UnusedImports() {
		used[ruleIDUnusedImport] = true
		results = append(results, sarifResult{
			RuleID:    ruleIDUnusedImport,
			Level:     sarifRules[ruleIDUnusedImport].DefaultConfig.Level,
			Message:   sarifMessage{Text: fmt.Sprintf("Unused import %s in %s", u.Import, u.Module)},
			Locations: locationFor(projectRoot, u.Location, u.Module),
		})
	}

	rules := make([]sarifRule, 0, len(used))
	for _, id := range sarifRuleOrder {
		if used[id] {
			rules = append(rules, sarifRules[id])
		}
	}

	report := sarifReport{
		Schema:  sarifSchema,
		Version: sarifVersion,
		Runs: []sarifRun{
			{
				Tool: sarifTool{
					Driver: sarifDriver{
						Name:    "semgraph",
						Version: version.Version,
						Rules:   rules,
					},
				},
				Results: results,
			},
		},
	}

	return json.MarshalIndent(report, "", "  ")
}

// locationFor uses the source location when known and falls back to the
// canonical path as a synthetic URI.
func locationFor(projectRoot string, loc parser.Location, fallback string) []sarifLocation {
	uri := fallback
	if loc.File != "" {
		uri = relativeURI(projectRoot, loc.File)
	}
	if uri == "" {
		return nil
	}
	out := sarifLocation{
		PhysicalLocation: sarifPhysicalLocation{
			ArtifactLocation: sarifArtifactLocation{
				URI:       uri,
				URIBaseID: "%SRCROOT%",
			},
		},
	}
	if loc.File != "" && loc.Line > 0 {
		out.PhysicalLocation.Region = &sarifRegion{
			StartLine:   loc.Line,
			StartColumn: loc.Column,
		}
	}
	return []sarifLocation{out}
}

// relativeURI converts an absolute file path to a forward-slash relative URI
// anchored at projectRoot.
func relativeURI(projectRoot, filePath string) string {
	if projectRoot != "" && filepath.IsAbs(filePath) {
		if rel, err := filepath.Rel(projectRoot, filePath); err == nil {
			filePath = rel
		}
	}
	return filepath.ToSlash(filePath)
}
