package graph

import (
	"fmt"

	"semgraph/internal/core/errors"
	"semgraph/internal/engine/parser"
)

type EdgeKind string

const (
	EdgeCall     EdgeKind = "call"
	EdgeAlias    EdgeKind = "alias"
	EdgeReexport EdgeKind = "reexport"
)

// Edge records that From names To at Location. Repeated sites produce
// repeated edges.
type Edge struct {
	From     string          `yaml:"from"`
	To       string          `yaml:"to"`
	Kind     EdgeKind        `yaml:"kind"`
	Location parser.Location `yaml:"location,omitempty"`
}

func (e Edge) String() string {
	return fmt.Sprintf("%s -[%s]-> %s", e.From, e.Kind, e.To)
}

const (
	DiagUnresolvedImport    = errors.CodeUnresolvedImport
	DiagUnresolvedReference = errors.CodeUnresolvedReference
	DiagCyclicAlias         = errors.CodeCyclicAlias
)

// Diagnostic is a recoverable per-site problem. The graph is still built, but
// consumers should treat it as partial when any are present.
type Diagnostic struct {
	Code     errors.ErrorCode `yaml:"code"`
	Module   string           `yaml:"module"`
	Subject  string           `yaml:"subject"`
	Message  string           `yaml:"message"`
	Location parser.Location  `yaml:"location,omitempty"`
}

func (d Diagnostic) String() string {
	if loc := d.Location.String(); loc != "" {
		return fmt.Sprintf("%s: %s: %s", loc, d.Code, d.Message)
	}
	return fmt.Sprintf("%s: %s: %s", d.Module, d.Code, d.Message)
}

// Err converts the diagnostic to a DomainError carrying module and subject.
func (d Diagnostic) Err() error {
	err := errors.New(d.Code, d.Message)
	err = errors.AddContext(err, errors.CtxModule, d.Module)
	if d.Subject != "" {
		err = errors.AddContext(err, errors.CtxSymbol, d.Subject)
	}
	if loc := d.Location.String(); loc != "" {
		err = errors.AddContext(err, errors.CtxPath, loc)
	}
	return err
}

// UnusedImport is a private import of a function that no call site uses.
type UnusedImport struct {
	Module   string          `yaml:"module"`
	Name     string          `yaml:"name"`
	Import   string          `yaml:"import"`
	Target   string          `yaml:"target"`
	Location parser.Location `yaml:"location,omitempty"`
}
