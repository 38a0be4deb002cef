// Package token defines the lexical token kinds consumed by pkg/lexer
// and pkg/parser.
package token

// Kind identifies a token's lexical category. Kept as a distinct string
// type, matching the teacher's TokenType, so %s formatting and debug
// output are readable without a lookup table.
type Kind string

const (
	EndOfFile Kind = "EOF"
	Illegal   Kind = "ILLEGAL"

	Identifier Kind = "IDENT"
	String     Kind = "STRING"
	Number     Kind = "NUMBER"

	Caret      Kind = "^"
	Ampersand  Kind = "&"
	Asterisks  Kind = "*"
	Plus       Kind = "+"
	PlusPlus   Kind = "++"
	PlusEquals Kind = "+="

	Minus       Kind = "-"
	MinusMinus  Kind = "--"
	MinusEquals Kind = "-="

	Equals       Kind = "="
	EqualsEquals Kind = "=="

	Colon        Kind = ":"
	SemiColon    Kind = ";"
	Dot          Kind = "."
	Comma        Kind = ","
	ForwardSlash Kind = "/"

	LeftParen  Kind = "("
	RightParen Kind = ")"

	LeftBracket  Kind = "["
	RightBracket Kind = "]"

	LeftCurly  Kind = "{"
	RightCurly Kind = "}"

	LessThan       Kind = "<"
	LessThanEquals Kind = "<="

	GreaterThan       Kind = ">"
	GreaterThanEquals Kind = ">="

	Exclamation        Kind = "!"
	ExclamationEquals Kind = "!="
)

// Token is a tagged variant over Kind, carrying its source location and
// the lexeme slice from the original source bytes.
type Token struct {
	Kind     Kind
	Text     string // verbatim lexeme, source[StartPos:StartPos+Size]
	Line     int    // 1-based
	Column   int    // 1-based
	StartPos int    // 0-based byte offset
	Size     int    // lexeme length in bytes
}

// keywords are recognised at parse time by comparing an Identifier
// token's Text, not at the lexer level (spec §4.1).
var Keywords = map[string]bool{
	"func":   true,
	"let":    true,
	"const":  true,
	"if":     true,
	"else":   true,
	"while":  true,
	"for":    true,
	"in":     true,
	"return": true,
	"string": true,
	"bool":   true,
	"int":    true,
	"number": true,
}

// IsKeyword reports whether text is one of the reserved words listed in
// spec §4.1. Identifiers matching a keyword are still lexed as
// Identifier tokens; the parser distinguishes them by text.
func IsKeyword(text string) bool {
	return Keywords[text]
}
