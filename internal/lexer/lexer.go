// Package lexer implements the tokeniser described by the compiler's
// source-to-typed-AST pipeline: a lazily-computed, singly linked stream of
// tokens with O(1) rewind, string/expression-string lexing with a nested
// brace-aware interpolation stack, and regex-literal lexing that the parser
// opts into explicitly via startRegex.
package lexer

import (
	"fmt"
	"strings"

	cerrors "github.com/cwbudde/go-jactl/internal/errors"
)

// Option configures a Lexer at construction time, following the same
// functional-options shape the teacher's own lexer uses.
type Option func(*Lexer)

// WithSourceName attaches a name (file path, REPL label, ...) to positions
// produced by this Lexer.
func WithSourceName(name string) Option {
	return func(l *Lexer) { l.source.Name = name }
}

// stringState describes one entry on the lexer's string-state stack (spec
// §4.1): the terminator, whether newlines/escapes are allowed, which side
// of a substitution we are on, and the brace-nesting level the surrounding
// expression resumes at once this string pops.
type stringState struct {
	terminator     string
	allowsNewlines bool
	allowsEscapes  bool
	isRegex        bool
	isSubstitute   bool // entered via s/.../.../, as opposed to a bare regex
	isReplaceSide  bool
	braceLevel     int
}

// Lexer tokenises a single immutable source string into a Token stream.
// It exposes exactly the seams the parser needs: Next, Peek, Previous,
// Rewind, and StartRegex (spec §4.1's "two out-of-band control knobs").
type Lexer struct {
	source Source
	runes  []rune

	pos    int // index into runes of the next unread rune
	line   int
	column int

	cur  *Token // last token returned by Next
	head *Token // first token ever produced, for full-stream rewind

	inString     bool
	stringStack  []stringState
	nestedBraces int

	prevKind TokenType // kind of the previously *lexed* token, for a.1.2 rule

	eofReported bool
}

// New constructs a Lexer over source. Trailing line terminators are
// stripped so EOF positions point inside the last meaningful line (spec
// §4.1).
func New(source string, opts ...Option) *Lexer {
	l := &Lexer{
		source: Source{Text: source},
		runes:  []rune(strings.TrimRight(source, "\r\n")),
		line:   1,
		column: 1,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.source.Text = string(l.runes)
	return l
}

// Next advances the token stream and returns the next token. If cur already
// has a successor (produced by an earlier Next/rewind cycle), that link is
// followed instead of re-lexing — this is the O(1) rewind mechanism.
func (l *Lexer) Next() Token {
	if l.cur == nil && l.head != nil {
		l.cur = l.head
		return *l.cur
	}
	if l.cur != nil && l.cur.next != nil {
		l.cur = l.cur.next
		return *l.cur
	}
	tok := l.lex()
	tok.node = &tok
	if l.cur == nil {
		l.head = &tok
		l.cur = l.head
	} else {
		l.cur.next = &tok
		l.cur = l.cur.next
	}
	return *l.cur
}

// Peek returns the next token without advancing.
func (l *Lexer) Peek() Token {
	save := l.cur
	tok := l.Next()
	l.cur = save
	return tok
}

// Previous returns the last token returned by Next, or the zero Token if
// Next has not been called yet.
func (l *Lexer) Previous() Token {
	if l.cur == nil {
		return Token{}
	}
	return *l.cur
}

// Rewind repositions the cursor to prev so that the next Next() call
// returns curr again by following the stable next-pointer chain, without
// re-lexing anything between them. prev may be a copy returned by Next;
// it is mapped back to the stream entry it was copied from.
func (l *Lexer) Rewind(prev *Token) {
	if prev != nil && prev.node != nil {
		prev = prev.node
	}
	l.cur = prev
}

// StartRegex tells the tokeniser that the SLASH token just returned by
// Next actually opens a regex literal. It is only valid immediately after
// such a token; calling it otherwise is a programmer error in the parser,
// not a user-facing diagnostic, so it panics.
func (l *Lexer) StartRegex(substitute bool) {
	if l.cur == nil || l.cur.Kind != SLASH {
		panic("lexer: StartRegex called without a preceding SLASH token")
	}
	l.pushString(stringState{
		terminator:     "/",
		allowsNewlines: false,
		allowsEscapes:  true,
		isRegex:        true,
		isSubstitute:   substitute,
		braceLevel:     l.nestedBraces,
	})
	l.inString = true
	// Drop the dangling link so the next Next() call re-lexes in string
	// mode instead of replaying whatever followed SLASH before the parser
	// decided to reinterpret it.
	l.cur.next = nil
}

func (l *Lexer) pushString(s stringState) { l.stringStack = append(l.stringStack, s) }

func (l *Lexer) topString() *stringState {
	if len(l.stringStack) == 0 {
		return nil
	}
	return &l.stringStack[len(l.stringStack)-1]
}

func (l *Lexer) popString() {
	l.stringStack = l.stringStack[:len(l.stringStack)-1]
}

// --- low-level rune cursor -------------------------------------------------

func (l *Lexer) eof() bool { return l.pos >= len(l.runes) }

func (l *Lexer) at(offset int) rune {
	i := l.pos + offset
	if i < 0 || i >= len(l.runes) {
		return 0
	}
	return l.runes[i]
}

func (l *Lexer) advance() rune {
	r := l.runes[l.pos]
	l.pos++
	if r == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	return r
}

func (l *Lexer) here() Position {
	return Position{Source: l.source, Line: l.line, Column: l.column, Offset: l.pos}
}

func (l *Lexer) errorf(pos Position, format string, args ...any) *cerrors.CompileError {
	return cerrors.New(cerrors.Lexical, pos, fmt.Sprintf(format, args...))
}

func isIdentStart(r rune) bool { return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') }
func isIdentPart(r rune) bool  { return isIdentStart(r) || (r >= '0' && r <= '9') }
func isDigit(r rune) bool      { return r >= '0' && r <= '9' }
func isHexDigit(r rune) bool {
	return isDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

// lex produces exactly one fresh Token, dispatching to the string-content
// path when inString is set and to ordinary code lexing otherwise.
func (l *Lexer) lex() Token {
	if l.inString {
		return l.lexStringContent()
	}
	return l.lexCode()
}

// lexCode is the CODE state of the whitespace/comment machine plus the
// ordinary token grammar (symbols, numbers, identifiers, string openers).
func (l *Lexer) lexCode() Token {
	sawEOL := false
	for {
		if l.eof() {
			return l.emit(EOF, "", l.here())
		}
		r := l.at(0)
		switch {
		case r == '\n':
			sawEOL = true
			l.advance()
			for !l.eof() && (l.at(0) == '\n' || (l.at(0) == '\r' && l.at(1) == '\n')) {
				if l.at(0) == '\r' {
					l.advance()
				}
				l.advance()
			}
			continue
		case r == ' ' || r == '\t' || r == '\r':
			l.advance()
			continue
		case r == '/' && l.at(1) == '/':
			for !l.eof() && l.at(0) != '\n' {
				l.advance()
			}
			continue
		case r == '/' && l.at(1) == '*':
			start := l.here()
			l.advance()
			l.advance()
			closed := false
			for !l.eof() {
				if l.at(0) == '*' && l.at(1) == '/' {
					l.advance()
					l.advance()
					closed = true
					break
				}
				l.advance()
			}
			if !closed {
				return l.fail(cerrors.NewEOF(start, "unterminated block comment"))
			}
			continue
		}
		break
	}

	if sawEOL {
		return l.emit(EOL, "\n", l.here())
	}

	start := l.here()
	r := l.at(0)

	switch {
	case isIdentStart(r):
		return l.lexIdentifier(start)
	case r == '$' && isDigit(l.at(1)):
		return l.lexCaptureIdent(start)
	case isDigit(r):
		return l.lexNumber(start)
	case r == '"':
		return l.lexEnterDouble(start)
	case r == '\'':
		return l.lexSingleQuoted(start)
	}

	return l.lexSymbol(start)
}

func (l *Lexer) emit(kind TokenType, chars string, pos Position) Token {
	l.prevKind = kind
	return Token{Kind: kind, Chars: chars, Pos: pos}
}

func (l *Lexer) emitValue(kind TokenType, chars string, value any, pos Position) Token {
	l.prevKind = kind
	return Token{Kind: kind, Chars: chars, Value: value, Pos: pos}
}

func (l *Lexer) fail(err error) Token {
	l.prevKind = ILLEGAL
	return Token{Kind: ILLEGAL, Value: err, Pos: l.here()}
}

func (l *Lexer) lexIdentifier(start Position) Token {
	var sb strings.Builder
	for !l.eof() && isIdentPart(l.at(0)) {
		sb.WriteRune(l.advance())
	}
	name := sb.String()
	kind := LookupIdent(name)
	return l.emit(kind, name, start)
}

func (l *Lexer) lexCaptureIdent(start Position) Token {
	var sb strings.Builder
	sb.WriteRune(l.advance()) // '$'
	n := 0
	for !l.eof() && isDigit(l.at(0)) && n < 5 {
		sb.WriteRune(l.advance())
		n++
	}
	return l.emit(IDENT, sb.String(), start)
}

// lexNumber lexes binary/hex/decimal integer, long, double, and decimal
// literals per spec §4.1, including the `a.1.2` disambiguation rule (a
// trailing `.<digit>` only continues the literal when the previously lexed
// token was not itself a `.`).
func (l *Lexer) lexNumber(start Position) Token {
	var sb strings.Builder

	if l.at(0) == '0' && (l.at(1) == 'b' || l.at(1) == 'B') {
		sb.WriteRune(l.advance())
		sb.WriteRune(l.advance())
		digits := 0
		for !l.eof() && (l.at(0) == '0' || l.at(0) == '1') {
			sb.WriteRune(l.advance())
			digits++
		}
		if digits == 0 {
			return l.fail(l.errorf(start, "malformed binary literal %q", sb.String()))
		}
		return l.finishIntLiteral(start, sb.String(), 2)
	}

	if l.at(0) == '0' && (l.at(1) == 'x' || l.at(1) == 'X') {
		sb.WriteRune(l.advance())
		sb.WriteRune(l.advance())
		digits := 0
		for !l.eof() && isHexDigit(l.at(0)) {
			sb.WriteRune(l.advance())
			digits++
		}
		if digits == 0 {
			return l.fail(l.errorf(start, "malformed hex literal %q", sb.String()))
		}
		return l.finishIntLiteral(start, sb.String(), 16)
	}

	for !l.eof() && isDigit(l.at(0)) {
		sb.WriteRune(l.advance())
	}

	isDecimal := false
	if l.at(0) == '.' && isDigit(l.at(1)) && l.prevKind != DOT {
		isDecimal = true
		sb.WriteRune(l.advance())
		for !l.eof() && isDigit(l.at(0)) {
			sb.WriteRune(l.advance())
		}
	}
	if l.at(0) == 'e' || l.at(0) == 'E' {
		save := l.pos
		exp := string(l.advance())
		if l.at(0) == '+' || l.at(0) == '-' {
			exp += string(l.advance())
		}
		if isDigit(l.at(0)) {
			isDecimal = true
			for !l.eof() && isDigit(l.at(0)) {
				exp += string(l.advance())
			}
			sb.WriteString(exp)
		} else {
			l.pos = save
		}
	}

	switch {
	case l.at(0) == 'L' || l.at(0) == 'l':
		l.advance()
		return l.finishIntLiteral(start, sb.String(), 10, LONG)
	case l.at(0) == 'D' || l.at(0) == 'd':
		l.advance()
		return l.emitValue(DOUBLE, sb.String(), sb.String(), start)
	case isDecimal:
		return l.emitValue(DECIMAL, sb.String(), sb.String(), start)
	default:
		return l.finishIntLiteral(start, sb.String(), 10)
	}
}

func (l *Lexer) finishIntLiteral(start Position, digits string, base int, forceKind ...TokenType) Token {
	kind := INT
	if len(forceKind) > 0 {
		kind = forceKind[0]
	}
	// Width checking (32/64-bit) is the value-construction layer's job once
	// it parses `digits` in the given base; here we only flag decimal
	// overflow for the common case of an over-wide plain-decimal INT, since
	// that's the only base where Go's own conversion can't silently widen.
	if kind == INT && base == 10 && len(digits) > 10 {
		return l.fail(l.errorf(start, "integer literal %q too large", digits))
	}
	return l.emitValue(kind, digits, digits, start)
}

func (l *Lexer) lexEnterDouble(start Position) Token {
	triple := l.at(1) == '"' && l.at(2) == '"'
	term := `"`
	if triple {
		term = `"""`
		l.advance()
		l.advance()
		l.advance()
	} else {
		l.advance()
	}
	l.pushString(stringState{
		terminator:     term,
		allowsNewlines: triple,
		allowsEscapes:  true,
		braceLevel:     l.nestedBraces,
	})
	l.inString = true
	return l.emit(EXPR_STRING_START, term, start)
}

// lexSingleQuoted lexes raw, non-interpolating strings: '...' and '''...'''.
func (l *Lexer) lexSingleQuoted(start Position) Token {
	triple := l.at(1) == '\'' && l.at(2) == '\''
	term := "'"
	if triple {
		term = "'''"
		l.advance()
		l.advance()
		l.advance()
	} else {
		l.advance()
	}
	var sb strings.Builder
	for {
		if l.eof() {
			return l.fail(cerrors.NewEOF(start, "unterminated string literal"))
		}
		if l.matchTerminator(term) {
			return l.emitValue(STRING_CONST, sb.String(), sb.String(), start)
		}
		if !triple && l.at(0) == '\n' {
			return l.fail(l.errorf(start, "unterminated string literal"))
		}
		sb.WriteRune(l.advance())
	}
}

func (l *Lexer) matchTerminator(term string) bool {
	for i, r := range []rune(term) {
		if l.at(i) != r {
			return false
		}
	}
	for range term {
		l.advance()
	}
	return true
}

// lexStringContent handles every Next() call made while inString is true:
// literal runs, `$ident`/`$digits` interpolation, `${` brace-entry, and the
// terminator (spec §4.1's string-stack state machine).
func (l *Lexer) lexStringContent() Token {
	st := l.topString()
	start := l.here()

	if l.eof() {
		if l.eofReported {
			return l.emit(EOF, "", start)
		}
		l.eofReported = true
		return l.fail(cerrors.NewEOF(start, "unterminated string literal"))
	}

	if l.matchTerminator(st.terminator) {
		l.inString = false
		l.popString()
		tok := l.emit(EXPR_STRING_END, st.terminator, start)
		if st.isRegex && !st.isSubstitute || (st.isRegex && st.isReplaceSide) {
			tok.Modifiers = l.lexRegexModifiers()
		}
		if st.isRegex && st.isSubstitute && !st.isReplaceSide {
			// middle slash of s/.../.../ : emit REGEX_REPLACE, flip side,
			// push string content back open.
			l.inString = true
			l.pushString(stringState{
				terminator:     "/",
				allowsNewlines: false,
				allowsEscapes:  true,
				isRegex:        true,
				isSubstitute:   true,
				isReplaceSide:  true,
				braceLevel:     st.braceLevel,
			})
			return l.emit(REGEX_REPLACE, "/", start)
		}
		return tok
	}

	if l.at(0) == '$' && l.at(1) == '{' {
		l.advance()
		l.advance()
		st.braceLevel = l.nestedBraces
		l.nestedBraces++
		l.inString = false
		return l.emit(LBRACE, "${", start)
	}

	if l.at(0) == '$' && (isIdentStart(l.at(1)) || isDigit(l.at(1))) {
		l.advance()
		var sb strings.Builder
		if isDigit(l.at(0)) {
			for !l.eof() && isDigit(l.at(0)) {
				sb.WriteRune(l.advance())
			}
		} else {
			for !l.eof() && isIdentPart(l.at(0)) {
				sb.WriteRune(l.advance())
			}
		}
		name := sb.String()
		if LookupIdent(name) != IDENT {
			return l.fail(l.errorf(start, "keyword %q cannot follow $ in interpolation", name))
		}
		return l.emit(IDENT, "$"+name, start)
	}

	if !st.allowsNewlines && l.at(0) == '\n' {
		return l.fail(l.errorf(start, "unterminated string literal"))
	}

	var sb strings.Builder
	for {
		if l.eof() || l.matchesAhead(st) {
			break
		}
		r := l.at(0)
		if st.allowsEscapes && r == '\\' {
			l.advance()
			sb.WriteRune(l.unescape(st))
			continue
		}
		if !st.allowsNewlines && r == '\n' {
			break
		}
		sb.WriteRune(l.advance())
	}
	return l.emitValue(STRING_CONST, sb.String(), sb.String(), start)
}

// matchesAhead reports, without consuming, whether the cursor sits at a
// position that should end the current literal run: the terminator, or an
// interpolation trigger ($ or ${).
func (l *Lexer) matchesAhead(st *stringState) bool {
	if l.at(0) == '$' && (l.at(1) == '{' || isIdentStart(l.at(1)) || isDigit(l.at(1))) {
		return true
	}
	for i, r := range []rune(st.terminator) {
		if l.at(i) != r {
			return false
		}
	}
	return true
}

func (l *Lexer) unescape(st *stringState) rune {
	r := l.advance()
	switch r {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	case '\\':
		return '\\'
	case '$':
		return '$'
	case '/':
		if st.isRegex {
			return '/'
		}
		return '/'
	default:
		if strings.HasPrefix(st.terminator, string(r)) {
			return r
		}
		return r
	}
}

// lexRegexModifiers greedily consumes a trailing modifier run from
// {f,g,i,m,s} after a regex literal's closing slash. Any other letter is
// rejected.
func (l *Lexer) lexRegexModifiers() string {
	var sb strings.Builder
	for {
		r := l.at(0)
		switch r {
		case 'f', 'g', 'i', 'm', 's':
			sb.WriteRune(l.advance())
		default:
			return sb.String()
		}
	}
}

// operatorsByFirstByte lists, for each first rune, the multi-character
// operator spellings that start with it, longest first, so the longest
// match wins (spec §4.1 "Symbol matching").
var operatorsByFirstByte = map[rune][]struct {
	text string
	kind TokenType
}{
	'>': {{">>>=", URSHIFT_ASSIGN}, {">>>", URSHIFT}, {">>=", RSHIFT_ASSIGN}, {">>", RSHIFT}, {">=", GE}, {">", GT}},
	'<': {{"<=>", SPACESHIP}, {"<<=", LSHIFT_ASSIGN}, {"<<", LSHIFT}, {"<=", LE}, {"<", LT}},
	'=': {{"=~", REGEX_MATCH}, {"==", EQEQ}, {"=", ASSIGN}},
	'!': {{"!~", REGEX_NOT_MATCH}, {"!=", NEQ}, {"!", NOT_OP}},
	'?': {{"?[", LBRACK_QUESTION}, {"?:", QUESTION_QUESTION}, {"?.", QUESTION_DOT}, {"?=", QMARK_ASSIGN}, {"?", QUESTION}},
	'+': {{"++", INC}, {"+=", PLUS_ASSIGN}, {"+", PLUS}},
	'-': {{"--", DEC}, {"-=", MINUS_ASSIGN}, {"->", ARROW}, {"-", MINUS}},
	'*': {{"*=", STAR_ASSIGN}, {"*", STAR}},
	'/': {{"/=", SLASH_ASSIGN}, {"/", SLASH}},
	'%': {{"%=", PERCENT_ASSIGN}, {"%", PERCENT}},
	'&': {{"&&", AND_AND}, {"&=", AMP_ASSIGN}, {"&", AMP}},
	'|': {{"||", OR_OR}, {"|=", PIPE_ASSIGN}, {"|", PIPE}},
	'^': {{"^=", CARET_ASSIGN}, {"^", CARET}},
	'~': {{"~", TILDE}},
	'(': {{"(", LPAREN}},
	')': {{")", RPAREN}},
	'{': {{"{", LBRACE}},
	'}': {{"}", RBRACE}},
	'[': {{"[", LBRACK}},
	']': {{"]", RBRACK}},
	',': {{",", COMMA}},
	'.': {{".", DOT}},
	':': {{":", COLON}},
	';': {{";", SEMICOLON}},
}

func (l *Lexer) lexSymbol(start Position) Token {
	candidates, ok := operatorsByFirstByte[l.at(0)]
	if !ok {
		r := l.advance()
		return l.fail(l.errorf(start, "unexpected character %q", r))
	}
	for _, c := range candidates {
		if l.matchesLiteral(c.text) {
			if l.at(0) == '}' && l.nestedBraces > 0 {
				// closing an interpolation brace: check against the
				// saved level on the string state we'll resume into.
				if st := l.topString(); st != nil && l.nestedBraces-1 == st.braceLevel {
					for range c.text {
						l.advance()
					}
					l.nestedBraces--
					l.inString = true
					return l.emit(RBRACE, c.text, start)
				}
			}
			for range c.text {
				l.advance()
			}
			if c.kind == LBRACE {
				l.nestedBraces++
			}
			return l.emit(c.kind, c.text, start)
		}
	}
	r := l.advance()
	return l.fail(l.errorf(start, "unexpected character %q", r))
}

func (l *Lexer) matchesLiteral(text string) bool {
	for i, r := range []rune(text) {
		if l.at(i) != r {
			return false
		}
	}
	return true
}
