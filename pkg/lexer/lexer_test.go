package lexer

import (
	"testing"

	"github.com/cxleb/luna/pkg/token"
)

func TestLexemesMatchSourceSlice(t *testing.T) {
	source := `func add(a: int, b: int) int { return a + b; } // trailing comment`
	l := New(source)
	for {
		tok, err := l.Next()
		if err != nil {
			t.Fatalf("unexpected lex error: %v", err)
		}
		want := source[tok.StartPos : tok.StartPos+tok.Size]
		if tok.Text != want {
			t.Errorf("lexeme %q, source slice %q", tok.Text, want)
		}
		if tok.Kind == token.EndOfFile {
			break
		}
	}
}

func TestPeekIsIdempotentAndNextAgrees(t *testing.T) {
	l := New("abc 123")
	p1, err := l.Peek()
	if err != nil {
		t.Fatalf("unexpected lex error: %v", err)
	}
	p2, err := l.Peek()
	if err != nil {
		t.Fatalf("unexpected lex error: %v", err)
	}
	if p1 != p2 {
		t.Errorf("Peek() not idempotent: %v != %v", p1, p2)
	}

	n, err := l.Next()
	if err != nil {
		t.Fatalf("unexpected lex error: %v", err)
	}
	if n != p1 {
		t.Errorf("Next() = %v, want peeked %v", n, p1)
	}
}

func TestCommentsOnlyAdvanceLine(t *testing.T) {
	l := New("// a comment\nx")
	tok, err := l.Next()
	if err != nil {
		t.Fatalf("unexpected lex error: %v", err)
	}
	if tok.Kind != token.Identifier {
		t.Fatalf("got kind %v, want Identifier", tok.Kind)
	}
	if tok.Line != 2 {
		t.Errorf("got line %d, want 2", tok.Line)
	}
}

func TestNumberKinds(t *testing.T) {
	cases := []struct {
		src  string
		text string
	}{
		{"10", "10"},
		{"10.10", "10.10"},
	}
	for _, c := range cases {
		l := New(c.src)
		tok, err := l.Next()
		if err != nil {
			t.Fatalf("%s: unexpected lex error: %v", c.src, err)
		}
		if tok.Kind != token.Number {
			t.Errorf("%s: got kind %v, want Number", c.src, tok.Kind)
		}
		if tok.Text != c.text {
			t.Errorf("%s: got text %q, want %q", c.src, tok.Text, c.text)
		}
	}
}

func TestTwoCharOperators(t *testing.T) {
	l := New("== != <= >= ++ -- += -=")
	var kinds []token.Kind
	for {
		tok, err := l.Next()
		if err != nil {
			t.Fatalf("unexpected lex error: %v", err)
		}
		if tok.Kind == token.EndOfFile {
			break
		}
		kinds = append(kinds, tok.Kind)
	}
	want := []token.Kind{
		token.EqualsEquals, token.ExclamationEquals, token.LessThanEquals, token.GreaterThanEquals,
		token.PlusPlus, token.MinusMinus, token.PlusEquals, token.MinusEquals,
	}
	if len(kinds) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(kinds), len(want), kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("token %d: got %v, want %v", i, kinds[i], want[i])
		}
	}
}

func TestUnknownByteIsLexError(t *testing.T) {
	l := New("@")
	_, err := l.Next()
	if err == nil {
		t.Fatal("expected a lex error for '@', got none")
	}
	if err.Kind() != "Lex" {
		t.Errorf("got error kind %q, want %q", err.Kind(), "Lex")
	}
}
