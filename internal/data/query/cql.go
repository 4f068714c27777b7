// Package query implements a small filter language over graph declarations:
//
//	SELECT functions WHERE module CONTAINS "util" AND fan_in >= 2
//	SELECT declarations WHERE path MATCHES "crate::net::**"
package query

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/gobwas/glob"

	"semgraph/internal/core/errors"
	"semgraph/internal/engine/graph"
)

var (
	cqlSelectRE       = regexp.MustCompile(`(?i)^\s*SELECT\s+([a-z]+)(?:\s+WHERE\s+(.+))?\s*$`)
	cqlAndSplitRE     = regexp.MustCompile(`(?i)\s+AND\s+`)
	cqlNumericCondRE  = regexp.MustCompile(`(?i)^\s*([a-z_]+)\s*(>=|<=|!=|=|>|<)\s*(-?[0-9]+)\s*$`)
	cqlContainsCondRE = regexp.MustCompile(`(?i)^\s*([a-z_]+)\s+(CONTAINS|MATCHES)\s+['"]([^'"]+)['"]\s*$`)
	cqlStringCondRE   = regexp.MustCompile(`(?i)^\s*([a-z_]+)\s*(=|!=)\s*['"]([^'"]+)['"]\s*$`)
)

// Targets restrict the declaration kinds a query ranges over.
var targetKinds = map[string][]graph.DeclKind{
	"declarations": nil,
	"functions":    {graph.KindFunction},
	"modules":      {graph.KindModule},
	"items":        {graph.KindItem},
	"reexports":    {graph.KindReexport},
}

var (
	stringFields = map[string]bool{"path": true, "name": true, "kind": true, "module": true, "target": true}
	intFields    = map[string]bool{"fan_in": true, "fan_out": true, "depth": true}
)

type CQLQuery struct {
	Target     string
	Conditions []CQLCondition
}

type CQLCondition struct {
	Field  string
	Op     string
	IntVal int
	StrVal string
	IsInt  bool
	IsStr  bool

	pattern glob.Glob
}

// Row is one matching declaration with its call-edge degrees.
type Row struct {
	Declaration graph.Declaration `yaml:"declaration"`
	FanIn       int               `yaml:"fan_in"`
	FanOut      int               `yaml:"fan_out"`
}

func ParseCQL(raw string) (CQLQuery, error) {
	matches := cqlSelectRE.FindStringSubmatch(strings.TrimSpace(raw))
	if len(matches) == 0 {
		return CQLQuery{}, errors.New(errors.CodeValidationError, "invalid query: expected SELECT <target> [WHERE ...]")
	}

	target := strings.ToLower(matches[1])
	if _, ok := targetKinds[target]; !ok {
		return CQLQuery{}, errors.Newf(errors.CodeValidationError, "unknown query target %q", matches[1])
	}
	query := CQLQuery{Target: target}
	where := strings.TrimSpace(matches[2])
	if where == "" {
		return query, nil
	}

	parts := cqlAndSplitRE.Split(where, -1)
	query.Conditions = make([]CQLCondition, 0, len(parts))
	for _, part := range parts {
		condition, err := parseCQLCondition(part)
		if err != nil {
			return CQLQuery{}, err
		}
		query.Conditions = append(query.Conditions, condition)
	}
	return query, nil
}

func parseCQLCondition(raw string) (CQLCondition, error) {
	if match := cqlNumericCondRE.FindStringSubmatch(raw); len(match) == 4 {
		field := strings.ToLower(strings.TrimSpace(match[1]))
		if !intFields[field] {
			return CQLCondition{}, errors.Newf(errors.CodeValidationError, "field %q is not numeric", field)
		}
		value, err := strconv.Atoi(strings.TrimSpace(match[3]))
		if err != nil {
			return CQLCondition{}, errors.Wrap(err, errors.CodeValidationError, fmt.Sprintf("invalid numeric value %q", match[3]))
		}
		return CQLCondition{Field: field, Op: strings.TrimSpace(match[2]), IntVal: value, IsInt: true}, nil
	}

	if match := cqlContainsCondRE.FindStringSubmatch(raw); len(match) == 4 {
		field := strings.ToLower(strings.TrimSpace(match[1]))
		if !stringFields[field] {
			return CQLCondition{}, errors.Newf(errors.CodeValidationError, "field %q is not a string", field)
		}
		cond := CQLCondition{
			Field:  field,
			Op:     strings.ToLower(match[2]),
			StrVal: strings.TrimSpace(match[3]),
			IsStr:  true,
		}
		if cond.Op == "matches" {
			g, err := glob.Compile(cond.StrVal, ':')
			if err != nil {
				return CQLCondition{}, errors.Wrap(err, errors.CodeValidationError, fmt.Sprintf("invalid pattern %q", cond.StrVal))
			}
			cond.pattern = g
		}
		return cond, nil
	}

	if match := cqlStringCondRE.FindStringSubmatch(raw); len(match) == 4 {
		field := strings.ToLower(strings.TrimSpace(match[1]))
		if !stringFields[field] {
			return CQLCondition{}, errors.Newf(errors.CodeValidationError, "field %q is not a string", field)
		}
		return CQLCondition{Field: field, Op: strings.TrimSpace(match[2]), StrVal: strings.TrimSpace(match[3]), IsStr: true}, nil
	}

	return CQLCondition{}, errors.Newf(errors.CodeValidationError, "invalid condition %q", strings.TrimSpace(raw))
}

// Execute runs q against g. Rows are ordered by path; limit <= 0 returns all.
func Execute(g *graph.Graph, q CQLQuery, limit int) []Row {
	kinds := targetKinds[q.Target]
	fanIn := make(map[string]int)
	fanOut := make(map[string]int)
	for _, e := range g.Edges() {
		if e.Kind != graph.EdgeCall {
			continue
		}
		fanOut[e.From]++
		fanIn[e.To]++
	}

	var rows []Row
	for _, d := range g.Declarations() {
		if len(kinds) > 0 && !containsKind(kinds, d.Kind) {
			continue
		}
		row := Row{Declaration: d, FanIn: fanIn[d.Path], FanOut: fanOut[d.Path]}
		if !q.matches(row) {
			continue
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Declaration.Path < rows[j].Declaration.Path })
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows
}

func (q CQLQuery) matches(row Row) bool {
	for _, c := range q.Conditions {
		if !c.matches(row) {
			return false
		}
	}
	return true
}

func (c CQLCondition) matches(row Row) bool {
	if c.IsInt {
		return compareInt(c.intField(row), c.Op, c.IntVal)
	}
	value := c.stringField(row)
	switch c.Op {
	case "=":
		return value == c.StrVal
	case "!=":
		return value != c.StrVal
	case "contains":
		return strings.Contains(value, c.StrVal)
	case "matches":
		return c.pattern != nil && c.pattern.Match(value)
	}
	return false
}

func (c CQLCondition) intField(row Row) int {
	switch c.Field {
	case "fan_in":
		return row.FanIn
	case "fan_out":
		return row.FanOut
	case "depth":
		return strings.Count(row.Declaration.Path, "::")
	}
	return 0
}

func (c CQLCondition) stringField(row Row) string {
	d := row.Declaration
	switch c.Field {
	case "path":
		return d.Path
	case "name":
		return d.Name
	case "kind":
		return string(d.Kind)
	case "module":
		return d.Module
	case "target":
		return d.Target
	}
	return ""
}

func compareInt(got int, op string, want int) bool {
	switch op {
	case "=":
		return got == want
	case "!=":
		return got != want
	case ">":
		return got > want
	case ">=":
		return got >= want
	case "<":
		return got < want
	case "<=":
		return got <= want
	}
	return false
}

func containsKind(kinds []graph.DeclKind, k graph.DeclKind) bool {
	for _, kind := range kinds {
		if kind == k {
			return true
		}
	}
	return false
}
