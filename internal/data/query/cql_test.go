package query

import (
	"context"
	"testing"

	"semgraph/internal/core/errors"
	"semgraph/internal/engine/build"
	"semgraph/internal/engine/enginetest"
	"semgraph/internal/engine/graph"
)

func sampleGraph(t *testing.T) *graph.Graph {
	t.Helper()
	p, err := build.NewPipeline(build.Options{Workers: 2})
	if err != nil {
		t.Fatalf("pipeline: %v", err)
	}
	g, err := p.Run(context.Background(), enginetest.SampleForest())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return g
}

func paths(rows []Row) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Declaration.Path)
	}
	return out
}

func TestParseCQL(t *testing.T) {
	query, err := ParseCQL(`select functions where fan_in > 0 AND name CONTAINS "a"`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if query.Target != "functions" {
		t.Fatalf("expected target functions, got %q", query.Target)
	}
	if len(query.Conditions) != 2 {
		t.Fatalf("expected 2 conditions, got %d", len(query.Conditions))
	}
}

func TestParseCQL_Invalid(t *testing.T) {
	for _, raw := range []string{
		"DELETE FROM modules",
		"SELECT widgets",
		`SELECT functions WHERE fan_in = "x"`,
		"SELECT functions WHERE name > 3",
		`SELECT functions WHERE path MATCHES "[oops"`,
		"SELECT functions WHERE whatever",
	} {
		if _, err := ParseCQL(raw); !errors.IsCode(err, errors.CodeValidationError) {
			t.Errorf("ParseCQL(%q) error = %v, want validation error", raw, err)
		}
	}
}

func TestExecute(t *testing.T) {
	g := sampleGraph(t)

	cases := []struct {
		query string
		want  []string
	}{
		{`SELECT functions WHERE fan_in >= 2`, []string{"crate::a::f"}},
		{`SELECT functions WHERE fan_out = 0`, []string{"crate::a::h"}},
		{`SELECT modules`, []string{"crate", "crate::a"}},
		{`SELECT declarations WHERE path MATCHES "crate::a::*"`, []string{"crate::a::f", "crate::a::ff", "crate::a::g", "crate::a::h"}},
		{`SELECT reexports WHERE target = "crate::a::f"`, []string{"crate::a::ff"}},
		{`SELECT functions WHERE module = "crate::a" AND name != "g" AND depth = 2`, []string{"crate::a::f", "crate::a::h"}},
	}
	for _, tc := range cases {
		q, err := ParseCQL(tc.query)
		if err != nil {
			t.Fatalf("parse %q: %v", tc.query, err)
		}
		got := paths(Execute(g, q, 0))
		if len(got) != len(tc.want) {
			t.Errorf("%s: got %v, want %v", tc.query, got, tc.want)
			continue
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Errorf("%s: got %v, want %v", tc.query, got, tc.want)
				break
			}
		}
	}
}

func TestExecute_Limit(t *testing.T) {
	q, err := ParseCQL("SELECT declarations")
	if err != nil {
		t.Fatal(err)
	}
	rows := Execute(sampleGraph(t), q, 2)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Declaration.Path != "crate" {
		t.Fatalf("rows not sorted by path: %v", paths(rows))
	}
}
