package lexer

import (
	"testing"

	cerrors "github.com/cwbudde/go-jactl/internal/errors"
)

func TestNextTokenBasics(t *testing.T) {
	input := `x = 5
x = x + 10;`

	tests := []struct {
		expectedChars string
		expectedKind  TokenType
	}{
		{"x", IDENT},
		{"=", ASSIGN},
		{"5", INT},
		{"\n", EOL},
		{"x", IDENT},
		{"=", ASSIGN},
		{"x", IDENT},
		{"+", PLUS},
		{"10", INT},
		{";", SEMICOLON},
		{"", EOF},
	}

	l := New(input)
	for i, tt := range tests {
		tok := l.Next()
		if tok.Kind != tt.expectedKind {
			t.Fatalf("tests[%d] - kind wrong. expected=%s, got=%s (chars=%q)", i, tt.expectedKind, tok.Kind, tok.Chars)
		}
		if tok.Chars != tt.expectedChars {
			t.Fatalf("tests[%d] - chars wrong. expected=%q, got=%q", i, tt.expectedChars, tok.Chars)
		}
	}
}

func TestKeywords(t *testing.T) {
	input := `if else unless while for do break continue return import package throw print it
		var def class static final new instanceof as in this super
		boolean int long double decimal String Map List true false null`

	tests := []struct {
		chars string
		kind  TokenType
	}{
		{"if", IF}, {"else", ELSE}, {"unless", UNLESS}, {"while", WHILE}, {"for", FOR}, {"do", DO},
		{"break", BREAK}, {"continue", CONTINUE}, {"return", RETURN}, {"import", IMPORT},
		{"package", PACKAGE_KW}, {"throw", THROW}, {"print", PRINT}, {"it", IT_KW},
		{"var", VAR}, {"def", DEF}, {"class", CLASS}, {"static", STATIC}, {"final", FINAL},
		{"new", NEW}, {"instanceof", INSTANCEOF}, {"as", AS}, {"in", IN}, {"this", THIS}, {"super", SUPER},
		{"boolean", TYPE_BOOLEAN}, {"int", TYPE_INT}, {"long", TYPE_LONG}, {"double", TYPE_DOUBLE},
		{"decimal", TYPE_DECIMAL}, {"String", TYPE_STRING}, {"Map", TYPE_MAP}, {"List", TYPE_LIST},
		{"true", TRUE}, {"false", FALSE}, {"null", NULL},
	}

	l := New(input)
	for i, tt := range tests {
		var tok Token
		for {
			tok = l.Next()
			if tok.Kind != EOL {
				break
			}
		}
		if tok.Kind != tt.kind || tok.Chars != tt.chars {
			t.Fatalf("tests[%d]: expected %s(%q), got %s(%q)", i, tt.kind, tt.chars, tok.Kind, tok.Chars)
		}
		if !tok.IsKeyword() {
			t.Fatalf("tests[%d]: %q should be classified as a keyword", i, tt.chars)
		}
	}
}

func TestNumberLiterals(t *testing.T) {
	tests := []struct {
		input string
		kind  TokenType
	}{
		{"123", INT},
		{"123L", LONG},
		{"1.5", DECIMAL},
		{"1.5D", DOUBLE},
		{"0x1F", INT},
		{"0b101", INT},
	}
	for _, tt := range tests {
		l := New(tt.input)
		tok := l.Next()
		if tok.Kind != tt.kind {
			t.Errorf("input %q: expected kind %s, got %s", tt.input, tt.kind, tok.Kind)
		}
	}
}

// TestDotDisambiguation exercises the "1.2.3" vs the two-literal "1.2 . 3"
// rule: a numeric literal never swallows a second dot immediately after a
// DOT token was just lexed (spec §4.1's "a.1.2" rule).
func TestDotDisambiguation(t *testing.T) {
	l := New("a.1.2")
	kinds := []TokenType{IDENT, DOT, INT, DOT, INT, EOF}
	for i, want := range kinds {
		tok := l.Next()
		if tok.Kind != want {
			t.Fatalf("token %d: expected %s, got %s (%q)", i, want, tok.Kind, tok.Chars)
		}
	}
}

func TestRewindIsIdempotent(t *testing.T) {
	l := New("x + y")
	first := l.Next()
	second := l.Next()
	l.Rewind(&first)
	replay := l.Next()
	if replay.Kind != second.Kind || replay.Chars != second.Chars {
		t.Fatalf("rewind did not replay the same token: got %s(%q), want %s(%q)",
			replay.Kind, replay.Chars, second.Kind, second.Chars)
	}
	third := l.Next()
	if third.Chars != "y" {
		t.Fatalf("token stream did not continue correctly after rewind, got %q", third.Chars)
	}
}

func TestPeekDoesNotAdvance(t *testing.T) {
	l := New("x + y")
	peeked := l.Peek()
	actual := l.Next()
	if peeked.Kind != actual.Kind || peeked.Chars != actual.Chars {
		t.Fatalf("peek token %v did not match next token %v", peeked, actual)
	}
}

func TestEOLCoalescing(t *testing.T) {
	l := New("x\n\n\ny")
	first := l.Next()
	if first.Chars != "x" {
		t.Fatalf("expected x, got %q", first.Chars)
	}
	eol := l.Next()
	if eol.Kind != EOL {
		t.Fatalf("expected a single coalesced EOL, got %s", eol.Kind)
	}
	next := l.Next()
	if next.Chars != "y" {
		t.Fatalf("expected y immediately after the coalesced EOL, got %q", next.Chars)
	}
}

func TestStringInterpolation(t *testing.T) {
	l := New(`"hello ${name}!"`)
	kinds := []TokenType{EXPR_STRING_START, STRING_CONST, LBRACE, IDENT, RBRACE, STRING_CONST, EXPR_STRING_END}
	for i, want := range kinds {
		tok := l.Next()
		if tok.Kind != want {
			t.Fatalf("token %d: expected %s, got %s (%q)", i, want, tok.Kind, tok.Chars)
		}
	}
}

func TestCaptureGroupIdent(t *testing.T) {
	l := New("$1 $12345")
	for _, want := range []string{"$1", "$12345"} {
		tok := l.Next()
		if tok.Kind != IDENT || tok.Chars != want {
			t.Fatalf("expected capture ident %q, got %s(%q)", want, tok.Kind, tok.Chars)
		}
	}
}

func TestUnterminatedStringReportsEOFOnce(t *testing.T) {
	l := New(`"unterminated`)
	eofErrors := 0
	for {
		tok := l.Next()
		if tok.IsEOF() {
			break
		}
		if err, ok := tok.Value.(*cerrors.CompileError); ok && err.EOF {
			eofErrors++
		}
	}
	if eofErrors != 1 {
		t.Fatalf("expected exactly one EOF error before EOF, got %d", eofErrors)
	}
}
