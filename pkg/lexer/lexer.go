// Package lexer implements the single-pass, one-token-lookahead scanner
// described in spec §4.1.
package lexer

import (
	"fmt"

	luerrors "github.com/cxleb/luna/pkg/errors"
	"github.com/cxleb/luna/pkg/token"
)

// Lexer scans source bytes into tokens. It tracks a 1-based line/column
// counter and a 0-based byte offset, all three attached to every token.
type Lexer struct {
	source string
	offset int // byte offset of the next unread byte
	line   int
	column int

	// one-token lookahead buffer filled by Peek and drained by Next.
	peeked    *token.Token
	peekedErr luerrors.Error
}

// New creates a Lexer over source.
func New(source string) *Lexer {
	return &Lexer{source: source, offset: 0, line: 1, column: 1}
}

type savedPos struct {
	offset, line, column int
}

func (l *Lexer) save() savedPos {
	return savedPos{l.offset, l.line, l.column}
}

func (l *Lexer) restore(s savedPos) {
	l.offset, l.line, l.column = s.offset, s.line, s.column
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
func isLetter(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
func isIdentContinue(b byte) bool { return isLetter(b) || isDigit(b) }

func (l *Lexer) atEnd() bool { return l.offset >= len(l.source) }

func (l *Lexer) cur() byte {
	if l.atEnd() {
		return 0
	}
	return l.source[l.offset]
}

func (l *Lexer) peekByte(ahead int) byte {
	idx := l.offset + ahead
	if idx >= len(l.source) {
		return 0
	}
	return l.source[idx]
}

// advance consumes the current byte and updates line/column.
func (l *Lexer) advance() {
	if l.atEnd() {
		return
	}
	if l.source[l.offset] == '\n' {
		l.line++
		l.column = 0
	}
	l.offset++
	l.column++
}

// skipWhitespaceAndComments consumes ASCII whitespace (space, tab, CR,
// newline) and `//` line comments. A comment contributes only a newline
// to the line counter: its body advances the column counter, which the
// terminating newline then resets.
func (l *Lexer) skipWhitespaceAndComments() {
	for {
		switch l.cur() {
		case ' ', '\t', '\r', '\n':
			l.advance()
		case '/':
			if l.peekByte(1) == '/' {
				for !l.atEnd() && l.cur() != '\n' {
					l.advance()
				}
				continue
			}
			return
		default:
			return
		}
	}
}

// Next returns the next token, consuming it.
func (l *Lexer) Next() (token.Token, luerrors.Error) {
	if l.peeked != nil {
		t, err := *l.peeked, l.peekedErr
		l.peeked, l.peekedErr = nil, nil
		return t, err
	}
	return l.scan()
}

// Peek returns the next token without consuming it. Calling Peek
// multiple times in a row returns the same token each time, and Next
// after Peek returns exactly that token (spec §8 lexer invariant).
func (l *Lexer) Peek() (token.Token, luerrors.Error) {
	if l.peeked == nil {
		t, err := l.scan()
		l.peeked, l.peekedErr = &t, err
	}
	return *l.peeked, l.peekedErr
}

// twoCharRule is one entry of the helper table for the two-character
// operators the lexer disambiguates by one-byte lookahead.
type twoCharRule struct {
	second byte
	kind   token.Kind
}

func (l *Lexer) scan() (token.Token, luerrors.Error) {
	l.skipWhitespaceAndComments()

	startLine, startCol, startPos := l.line, l.column, l.offset

	if l.atEnd() {
		return l.make(token.EndOfFile, startLine, startCol, startPos), nil
	}

	ch := l.cur()

	switch {
	case isDigit(ch) || (ch == '.' && isDigit(l.peekByte(1))):
		return l.scanNumber(startLine, startCol, startPos), nil
	case isLetter(ch):
		return l.scanIdentifier(startLine, startCol, startPos), nil
	case ch == '"':
		return l.scanString(startLine, startCol, startPos)
	}

	// Two-character operators, disambiguated by a single byte of
	// lookahead, then the one-character fallback.
	pairs := map[byte][]twoCharRule{
		'=': {{'=', token.EqualsEquals}},
		'!': {{'=', token.ExclamationEquals}},
		'<': {{'=', token.LessThanEquals}},
		'>': {{'=', token.GreaterThanEquals}},
		'+': {{'+', token.PlusPlus}, {'=', token.PlusEquals}},
		'-': {{'-', token.MinusMinus}, {'=', token.MinusEquals}},
	}
	singles := map[byte]token.Kind{
		'=': token.Equals,
		'!': token.Exclamation,
		'<': token.LessThan,
		'>': token.GreaterThan,
		'+': token.Plus,
		'-': token.Minus,
		'*': token.Asterisks,
		'/': token.ForwardSlash,
		'^': token.Caret,
		'&': token.Ampersand,
		':': token.Colon,
		';': token.SemiColon,
		'.': token.Dot,
		',': token.Comma,
		'(': token.LeftParen,
		')': token.RightParen,
		'[': token.LeftBracket,
		']': token.RightBracket,
		'{': token.LeftCurly,
		'}': token.RightCurly,
	}

	if rules, ok := pairs[ch]; ok {
		next := l.peekByte(1)
		for _, r := range rules {
			if r.second == next {
				l.advance()
				l.advance()
				return l.make(r.kind, startLine, startCol, startPos), nil
			}
		}
	}
	if kind, ok := singles[ch]; ok {
		l.advance()
		return l.make(kind, startLine, startCol, startPos), nil
	}

	l.advance()
	return token.Token{}, &luerrors.LexError{
		Position: luerrors.Position{Line: startLine, Column: startCol, StartPos: startPos, Size: 1},
		Msg:      fmt.Sprintf("unexpected character %q", ch),
	}
}

func (l *Lexer) make(kind token.Kind, line, col, start int) token.Token {
	return token.Token{
		Kind:     kind,
		Text:     l.source[start:l.offset],
		Line:     line,
		Column:   col,
		StartPos: start,
		Size:     l.offset - start,
	}
}

// scanNumber consumes a maximal run of digits and dots starting from a
// digit or a dot. Presence of a dot marks the lexeme as floating;
// multiple dots are accepted here and rejected later by numeric parsing
// (spec §4.1's "Number rule").
func (l *Lexer) scanNumber(line, col, start int) token.Token {
	for isDigit(l.cur()) || l.cur() == '.' {
		l.advance()
	}
	return l.make(token.Number, line, col, start)
}

// scanIdentifier consumes letter|_ followed by letter|digit|_.
func (l *Lexer) scanIdentifier(line, col, start int) token.Token {
	l.advance() // first char already validated by caller
	for isIdentContinue(l.cur()) {
		l.advance()
	}
	return l.make(token.Identifier, line, col, start)
}

// scanString consumes a double-quoted string with no escape handling.
// The recorded token text includes the surrounding quotes, per spec
// §4.1; the parser trims them.
func (l *Lexer) scanString(line, col, start int) (token.Token, luerrors.Error) {
	l.advance() // opening quote
	for !l.atEnd() && l.cur() != '"' {
		l.advance()
	}
	if l.atEnd() {
		return token.Token{}, &luerrors.LexError{
			Position: luerrors.Position{Line: line, Column: col, StartPos: start, Size: l.offset - start},
			Msg:      "unterminated string literal",
		}
	}
	l.advance() // closing quote
	return l.make(token.String, line, col, start), nil
}
