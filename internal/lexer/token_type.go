package lexer

// TokenType identifies the kind of a Token. The set is partitioned the way
// spec §3 describes it: punctuation/operators, assignment-like operators,
// comparators, regex-match operators, type keywords, flow keywords, literal
// kinds, structural markers, and the two sentinels EOL/EOF.
type TokenType int

const (
	ILLEGAL TokenType = iota
	EOF
	EOL // a run of consecutive newlines, coalesced to one (spec §4.1)
	COMMENT

	// Identifiers and literals
	IDENT
	INT    // 32-bit integer literal
	LONG   // 64-bit integer literal (trailing L)
	DOUBLE // binary64 literal (trailing D)
	DECIMAL
	STRING_CONST // a literal fragment inside a string/expression-string

	literalEnd

	// Structural markers for interpolated strings and regex literals
	EXPR_STRING_START
	EXPR_STRING_END
	REGEX_SUBST_START
	REGEX_REPLACE

	// Punctuation
	LPAREN
	RPAREN
	LBRACE
	RBRACE
	LBRACK
	RBRACK
	COMMA
	DOT
	QUESTION_DOT
	LBRACK_QUESTION // ?[
	COLON
	SEMICOLON
	ARROW // ->

	// Arithmetic / bitwise operators
	PLUS
	MINUS
	STAR
	SLASH
	PERCENT
	AMP
	PIPE
	CARET
	TILDE
	LSHIFT
	RSHIFT
	URSHIFT
	INC
	DEC

	// Assignment-like operators (spec §3)
	ASSIGN      // =
	QMARK_ASSIGN // ?=
	PLUS_ASSIGN
	MINUS_ASSIGN
	STAR_ASSIGN
	SLASH_ASSIGN
	PERCENT_ASSIGN
	LSHIFT_ASSIGN
	RSHIFT_ASSIGN
	URSHIFT_ASSIGN
	AMP_ASSIGN
	PIPE_ASSIGN
	CARET_ASSIGN

	// Comparators
	EQEQ
	NEQ
	LT
	GT
	LE
	GE
	SPACESHIP // <=>
	REGEX_MATCH // =~
	REGEX_NOT_MATCH // !~

	// Logical
	NOT_OP // !
	AND_AND
	OR_OR
	QUESTION
	QUESTION_QUESTION // ?:  (elvis)

	keywordStart

	// Keywords - boolean/nil literals
	TRUE
	FALSE
	NULL

	// Keywords - flow
	IF
	ELSE
	UNLESS
	WHILE
	FOR
	DO
	BREAK
	CONTINUE
	RETURN
	IMPORT
	PACKAGE_KW
	THROW
	PRINT
	IT_KW // the implicit closure parameter `it`

	// Keywords - declarations / OOP
	VAR
	DEF
	CLASS
	STATIC
	FINAL
	NEW
	INSTANCEOF
	AS
	IN
	THIS
	SUPER

	// Type keywords
	TYPE_BOOLEAN
	TYPE_INT
	TYPE_LONG
	TYPE_DOUBLE
	TYPE_DECIMAL
	TYPE_STRING
	TYPE_MAP
	TYPE_LIST
	TYPE_OBJECT // ANY

	keywordEnd
)

var tokenNames = map[TokenType]string{
	ILLEGAL: "ILLEGAL", EOF: "EOF", EOL: "EOL", COMMENT: "COMMENT",
	IDENT: "IDENT", INT: "INT", LONG: "LONG", DOUBLE: "DOUBLE", DECIMAL: "DECIMAL",
	STRING_CONST: "STRING_CONST",
	EXPR_STRING_START: "EXPR_STRING_START", EXPR_STRING_END: "EXPR_STRING_END",
	REGEX_SUBST_START: "REGEX_SUBST_START", REGEX_REPLACE: "REGEX_REPLACE",
	LPAREN: "(", RPAREN: ")", LBRACE: "{", RBRACE: "}", LBRACK: "[", RBRACK: "]",
	COMMA: ",", DOT: ".", QUESTION_DOT: "?.", LBRACK_QUESTION: "?[", COLON: ":",
	SEMICOLON: ";", ARROW: "->",
	PLUS: "+", MINUS: "-", STAR: "*", SLASH: "/", PERCENT: "%",
	AMP: "&", PIPE: "|", CARET: "^", TILDE: "~",
	LSHIFT: "<<", RSHIFT: ">>", URSHIFT: ">>>", INC: "++", DEC: "--",
	ASSIGN: "=", QMARK_ASSIGN: "?=", PLUS_ASSIGN: "+=", MINUS_ASSIGN: "-=",
	STAR_ASSIGN: "*=", SLASH_ASSIGN: "/=", PERCENT_ASSIGN: "%=",
	LSHIFT_ASSIGN: "<<=", RSHIFT_ASSIGN: ">>=", URSHIFT_ASSIGN: ">>>=",
	AMP_ASSIGN: "&=", PIPE_ASSIGN: "|=", CARET_ASSIGN: "^=",
	EQEQ: "==", NEQ: "!=", LT: "<", GT: ">", LE: "<=", GE: ">=",
	SPACESHIP: "<=>", REGEX_MATCH: "=~", REGEX_NOT_MATCH: "!~",
	NOT_OP: "!", AND_AND: "&&", OR_OR: "||", QUESTION: "?", QUESTION_QUESTION: "?:",
	TRUE: "true", FALSE: "false", NULL: "null",
	IF: "if", ELSE: "else", UNLESS: "unless", WHILE: "while", FOR: "for", DO: "do",
	BREAK: "break", CONTINUE: "continue", RETURN: "return", IMPORT: "import",
	PACKAGE_KW: "package", THROW: "throw", PRINT: "print", IT_KW: "it",
	VAR: "var", DEF: "def", CLASS: "class", STATIC: "static", FINAL: "final",
	NEW: "new", INSTANCEOF: "instanceof", AS: "as", IN: "in", THIS: "this", SUPER: "super",
	TYPE_BOOLEAN: "boolean", TYPE_INT: "int", TYPE_LONG: "long", TYPE_DOUBLE: "double",
	TYPE_DECIMAL: "decimal", TYPE_STRING: "String", TYPE_MAP: "Map", TYPE_LIST: "List",
	TYPE_OBJECT: "def",
}

func (t TokenType) String() string {
	if s, ok := tokenNames[t]; ok {
		return s
	}
	return "UNKNOWN"
}

// IsLiteral reports whether t is one of the literal-valued token kinds.
func (t TokenType) IsLiteral() bool { return t > IDENT && t < literalEnd }

// keywords maps a keyword's exact spelling to its token type. Only entries
// here are recognised as keywords; everything else lexes as IDENT. A
// keyword only matches when not immediately followed by another
// identifier-part character (spec §4.1) — that check happens in the lexer,
// not here.
var keywords = map[string]TokenType{
	"true": TRUE, "false": FALSE, "null": NULL,
	"if": IF, "else": ELSE, "unless": UNLESS, "while": WHILE, "for": FOR, "do": DO,
	"break": BREAK, "continue": CONTINUE, "return": RETURN, "import": IMPORT,
	"package": PACKAGE_KW, "throw": THROW, "print": PRINT, "it": IT_KW,
	"var": VAR, "def": DEF, "class": CLASS, "static": STATIC, "final": FINAL,
	"new": NEW, "instanceof": INSTANCEOF, "as": AS, "in": IN, "this": THIS, "super": SUPER,
	"and": AND_AND, "or": OR_OR, "not": NOT_OP,
	"boolean": TYPE_BOOLEAN, "int": TYPE_INT, "long": TYPE_LONG, "double": TYPE_DOUBLE,
	"decimal": TYPE_DECIMAL, "String": TYPE_STRING, "Map": TYPE_MAP, "List": TYPE_LIST,
}

// LookupIdent classifies an identifier-shaped lexeme as a keyword token
// or, failing that, as a plain IDENT.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}
