// Package errors carries the compiler's diagnostic type forward from the
// lexer through the parser and resolver: a single CompileError bound to a
// source position, classified by which stage raised it, plus a
// Diagnostics aggregate that enforces the "one EOF error at most" rule
// (spec §4.1, §4.2).
package errors

import (
	"fmt"
	"strings"
)

// Kind classifies which pipeline stage raised a CompileError.
type Kind int

const (
	Lexical Kind = iota
	Syntactic
	Semantic
)

func (k Kind) String() string {
	switch k {
	case Lexical:
		return "lexical"
	case Syntactic:
		return "syntax"
	case Semantic:
		return "semantic"
	default:
		return "error"
	}
}

// CompileError is a single diagnostic bound to a source position. EOF
// marks it as the distinguished "ran out of input" subtype (spec §4.1)
// so a driver can surface at most one of these per parse.
type CompileError struct {
	Kind    Kind
	Message string
	Pos     Position
	EOF     bool
}

// New constructs an ordinary CompileError.
func New(kind Kind, pos Position, message string) *CompileError {
	return &CompileError{Kind: kind, Pos: pos, Message: message}
}

// NewEOF constructs the distinguished end-of-file error subtype. It
// defaults to Kind Lexical (the common caller, the tokeniser hitting an
// unterminated construct); use WithKind to reclassify it for a parser-level
// "unexpected end of input" diagnostic.
func NewEOF(pos Position, message string) *CompileError {
	return &CompileError{Kind: Lexical, Pos: pos, Message: message, EOF: true}
}

// WithKind returns e reclassified under kind, for callers (the parser)
// that construct an EOF error via NewEOF but need a Syntactic kind.
func (e *CompileError) WithKind(kind Kind) *CompileError {
	e.Kind = kind
	return e
}

func (e *CompileError) Error() string { return e.Format(false) }

// Format renders the error with a source-line excerpt and a caret pointing
// at the offending column, following the teacher's pretty-printer shape.
func (e *CompileError) Format(color bool) string {
	var sb strings.Builder

	name := e.Pos.Source.Name
	if name != "" {
		sb.WriteString(fmt.Sprintf("%s error in %s:%d:%d\n", e.Kind, name, e.Pos.Line, e.Pos.Column))
	} else {
		sb.WriteString(fmt.Sprintf("%s error at %d:%d\n", e.Kind, e.Pos.Line, e.Pos.Column))
	}

	if line := sourceLine(e.Pos.Source.Text, e.Pos.Line); line != "" {
		lineNumStr := fmt.Sprintf("%4d | ", e.Pos.Line)
		sb.WriteString(lineNumStr)
		sb.WriteString(line)
		sb.WriteString("\n")
		sb.WriteString(strings.Repeat(" ", len(lineNumStr)+e.Pos.Column-1))
		if color {
			sb.WriteString("\033[1;31m")
		}
		sb.WriteString("^")
		if color {
			sb.WriteString("\033[0m")
		}
		sb.WriteString("\n")
	}

	if color {
		sb.WriteString("\033[1m")
	}
	sb.WriteString(e.Message)
	if color {
		sb.WriteString("\033[0m")
	}
	return sb.String()
}

func sourceLine(source string, lineNum int) string {
	if source == "" || lineNum < 1 {
		return ""
	}
	lines := strings.Split(source, "\n")
	if lineNum > len(lines) {
		return ""
	}
	return lines[lineNum-1]
}

// Diagnostics accumulates CompileErrors across a single compile call,
// enforcing that at most one EOF error survives (spec §4.2: "EOF errors
// short-circuit recovery and are recorded at most once").
type Diagnostics struct {
	Errors    []*CompileError
	sawEOF    bool
}

// Add appends err, dropping a second and subsequent EOF error.
func (d *Diagnostics) Add(err *CompileError) {
	if err == nil {
		return
	}
	if err.EOF {
		if d.sawEOF {
			return
		}
		d.sawEOF = true
	}
	d.Errors = append(d.Errors, err)
}

// HasErrors reports whether any diagnostic was recorded.
func (d *Diagnostics) HasErrors() bool { return len(d.Errors) > 0 }

// Error implements the error interface so *Diagnostics can be returned
// directly from Compile when non-empty.
func (d *Diagnostics) Error() string {
	if len(d.Errors) == 0 {
		return ""
	}
	if len(d.Errors) == 1 {
		return d.Errors[0].Format(false)
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("compilation failed with %d error(s):\n\n", len(d.Errors)))
	for i, err := range d.Errors {
		sb.WriteString(fmt.Sprintf("[%d/%d] ", i+1, len(d.Errors)))
		sb.WriteString(err.Format(false))
		if i < len(d.Errors)-1 {
			sb.WriteString("\n\n")
		}
	}
	return sb.String()
}
