// Package parser implements the hand-written recursive-descent parser
// with precedence climbing described in spec §4.2.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cxleb/luna/pkg/ast"
	luerrors "github.com/cxleb/luna/pkg/errors"
	"github.com/cxleb/luna/pkg/lexer"
	"github.com/cxleb/luna/pkg/token"
	"github.com/cxleb/luna/pkg/types"
)

// precedence levels, per spec §4.2's table. Higher binds tighter.
const (
	precLowest     = 0
	precComparison = 1 // == != < > <= >=
	precSum        = 2 // + -
	precProduct    = 3 // * /
)

var binaryPrecedence = map[token.Kind]int{
	token.EqualsEquals:       precComparison,
	token.ExclamationEquals:  precComparison,
	token.LessThan:           precComparison,
	token.GreaterThan:        precComparison,
	token.LessThanEquals:     precComparison,
	token.GreaterThanEquals:  precComparison,
	token.Plus:               precSum,
	token.Minus:              precSum,
	token.Asterisks:          precProduct,
	token.ForwardSlash:       precProduct,
}

var binaryOps = map[token.Kind]ast.BinaryOp{
	token.Plus:              ast.OpAdd,
	token.Minus:             ast.OpSub,
	token.Asterisks:         ast.OpMul,
	token.ForwardSlash:      ast.OpDiv,
	token.EqualsEquals:      ast.OpEq,
	token.ExclamationEquals: ast.OpNotEq,
	token.LessThan:          ast.OpLess,
	token.GreaterThan:       ast.OpGreater,
	token.LessThanEquals:    ast.OpLessEq,
	token.GreaterThanEquals: ast.OpGreaterEq,
}

// Parser consumes a lexer and builds a typed-shape (pre-checker) AST.
// It does not attempt error recovery: the first ParseError aborts the
// current function (spec §4.2/§7).
type Parser struct {
	l      *lexer.Lexer
	source string

	cur  token.Token
	peek token.Token

	err luerrors.Error
}

// New creates a Parser over source, using l to scan it.
func New(l *lexer.Lexer, source string) *Parser {
	p := &Parser{l: l, source: source}
	p.advance()
	p.advance()
	return p
}

func (p *Parser) advance() {
	if p.err != nil {
		return
	}
	p.cur = p.peek
	t, err := p.l.Next()
	if err != nil {
		p.err = err
		return
	}
	p.peek = t
}

func (p *Parser) fail(pos luerrors.Position, format string, args ...interface{}) {
	if p.err != nil {
		return
	}
	p.err = &luerrors.ParseError{Position: pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *Parser) test(kind token.Kind) bool { return p.cur.Kind == kind }

func (p *Parser) testText(text string) bool {
	return p.cur.Kind == token.Identifier && p.cur.Text == text
}

// expect consumes the current token if it matches kind, else records a
// ParseError and returns the zero Token.
func (p *Parser) expect(kind token.Kind) token.Token {
	if p.err != nil {
		return token.Token{}
	}
	if p.cur.Kind != kind {
		p.fail(posOf(p.cur), "expected %s, got %s (%q)", kind, p.cur.Kind, p.cur.Text)
		return token.Token{}
	}
	t := p.cur
	p.advance()
	return t
}

func (p *Parser) expectKeyword(text string) token.Token {
	if p.err != nil {
		return token.Token{}
	}
	if !p.testText(text) {
		p.fail(posOf(p.cur), "expected keyword %q, got %q", text, p.cur.Text)
		return token.Token{}
	}
	t := p.cur
	p.advance()
	return t
}

func posOf(t token.Token) luerrors.Position {
	return luerrors.Position{Line: t.Line, Column: t.Column, StartPos: t.StartPos, Size: t.Size}
}

// Err returns the first parse error encountered, if any.
func (p *Parser) Err() luerrors.Error { return p.err }

// ParseModule parses `Module := { Func }`.
func ParseModule(source string) (*ast.Module, luerrors.Error) {
	l := lexer.New(source)
	p := New(l, source)
	mod := &ast.Module{}
	for p.err == nil && !p.test(token.EndOfFile) {
		fn := p.parseFunc()
		if p.err != nil {
			break
		}
		mod.Functions = append(mod.Functions, fn)
	}
	if p.err != nil {
		return nil, p.err
	}
	return mod, nil
}

// parseFunc parses `Func := "func" IDENT "(" [Param {"," Param}] ")" [Type] Block`.
func (p *Parser) parseFunc() *ast.Function {
	startPos := posOf(p.cur)
	p.expectKeyword("func")
	name := p.expect(token.Identifier)
	p.expect(token.LeftParen)

	var params []ast.Param
	if !p.test(token.RightParen) {
		params = append(params, p.parseParam())
		for p.test(token.Comma) {
			p.advance()
			params = append(params, p.parseParam())
		}
	}
	p.expect(token.RightParen)

	var retType *types.Type
	if !p.test(token.LeftCurly) {
		retType = p.parseType()
	}

	body := p.parseBlock()
	if p.err != nil {
		return nil
	}
	return &ast.Function{
		Position:   startPos,
		Name:       name.Text,
		Params:     params,
		ReturnType: retType,
		Body:       body,
	}
}

// parseParam parses `Param := IDENT ":" Type`.
func (p *Parser) parseParam() ast.Param {
	name := p.expect(token.Identifier)
	p.expect(token.Colon)
	t := p.parseType()
	return ast.Param{Name: name.Text, Type: t}
}

// parseType parses `Type := ("[" "]")* ( "string" | "bool" | "int" | "number" )`.
func (p *Parser) parseType() *types.Type {
	depth := 0
	for p.test(token.LeftBracket) {
		p.advance()
		p.expect(token.RightBracket)
		depth++
	}
	if p.err != nil {
		return types.UnknownType()
	}
	var base *types.Type
	switch {
	case p.testText("string"):
		base = types.StringType()
	case p.testText("bool"):
		base = types.BoolType()
	case p.testText("int"):
		base = types.IntegerType()
	case p.testText("number"):
		base = types.NumberType()
	default:
		p.fail(posOf(p.cur), "expected a type, got %q", p.cur.Text)
		return types.UnknownType()
	}
	p.advance()
	for i := 0; i < depth; i++ {
		base = types.ArrayOf(base)
	}
	return base
}

// parseBlock parses `Block := "{" { Stmt } "}"`.
func (p *Parser) parseBlock() *ast.Block {
	startPos := posOf(p.cur)
	p.expect(token.LeftCurly)
	block := &ast.Block{}
	block.Position = startPos
	for p.err == nil && !p.test(token.RightCurly) && !p.test(token.EndOfFile) {
		block.Statements = append(block.Statements, p.parseStmt())
	}
	p.expect(token.RightCurly)
	return block
}

// parseStmt parses `Stmt := If | While | For | Return | VarDecl | ExprStmt`.
func (p *Parser) parseStmt() ast.Stmt {
	switch {
	case p.testText("if"):
		return p.parseIf()
	case p.testText("while"):
		return p.parseWhile()
	case p.testText("for"):
		return p.parseFor()
	case p.testText("return"):
		return p.parseReturn()
	case p.testText("let") || p.testText("const"):
		return p.parseVarDecl()
	default:
		return p.parseExprStmt()
	}
}

// parseIf parses `If := "if" Expr Block [ "else" (If | Block) ]`.
func (p *Parser) parseIf() *ast.If {
	startPos := posOf(p.cur)
	p.expectKeyword("if")
	cond := p.parseExpr(precLowest)
	then := p.parseBlock()
	node := &ast.If{Condition: cond, Then: then}
	node.Position = startPos
	if p.testText("else") {
		p.advance()
		if p.testText("if") {
			node.Else = p.parseIf()
		} else {
			node.Else = p.parseBlock()
		}
	}
	return node
}

// parseWhile parses `While := "while" Expr Block`.
func (p *Parser) parseWhile() *ast.While {
	startPos := posOf(p.cur)
	p.expectKeyword("while")
	cond := p.parseExpr(precLowest)
	body := p.parseBlock()
	node := &ast.While{Condition: cond, Body: body}
	node.Position = startPos
	return node
}

// parseFor parses `For := "for" IDENT "in" Expr Block`.
func (p *Parser) parseFor() *ast.For {
	startPos := posOf(p.cur)
	p.expectKeyword("for")
	name := p.expect(token.Identifier)
	p.expectKeyword("in")
	iterable := p.parseExpr(precLowest)
	body := p.parseBlock()
	node := &ast.For{Var: name.Text, Iterable: iterable, Body: body}
	node.Position = startPos
	return node
}

// parseReturn parses `Return := "return" [ Expr ] ";"`.
func (p *Parser) parseReturn() *ast.Return {
	startPos := posOf(p.cur)
	p.expectKeyword("return")
	node := &ast.Return{}
	node.Position = startPos
	if !p.test(token.SemiColon) {
		node.Value = p.parseExpr(precLowest)
	}
	p.expect(token.SemiColon)
	return node
}

// parseVarDecl parses `VarDecl := ("let"|"const") IDENT [ ":" Type ] "=" Expr ";"`.
func (p *Parser) parseVarDecl() *ast.VarDecl {
	startPos := posOf(p.cur)
	isConst := p.testText("const")
	p.advance() // consume "let" or "const"
	name := p.expect(token.Identifier)

	var annotation *types.Type
	if p.test(token.Colon) {
		p.advance()
		annotation = p.parseType()
	}
	p.expect(token.Equals)
	value := p.parseExpr(precLowest)
	p.expect(token.SemiColon)

	node := &ast.VarDecl{Name: name.Text, Const: isConst, Annotation: annotation, Value: value}
	node.Position = startPos
	return node
}

// parseExprStmt parses `ExprStmt := Expr ";"`.
func (p *Parser) parseExprStmt() *ast.ExprStmt {
	startPos := posOf(p.cur)
	expr := p.parseExpr(precLowest)
	p.expect(token.SemiColon)
	node := &ast.ExprStmt{Expr: expr}
	node.Position = startPos
	return node
}

// parseExpr implements `Expr := BinExpr(0)`: precedence climbing over
// the LhsExpr production, which itself may terminate in an Assign.
func (p *Parser) parseExpr(minPrec int) ast.Expr {
	left := p.parseLhsExpr()
	if p.err != nil {
		return left
	}
	if _, isAssign := left.(*ast.Assign); isAssign {
		// An Assign at the end of LhsExpr short-circuits: no further
		// binary operators are consumed (spec §4.2).
		return left
	}

	for {
		prec, ok := binaryPrecedence[p.cur.Kind]
		if !ok || prec <= minPrec {
			return left
		}
		opTok := p.cur
		p.advance()
		right := p.parseExpr(prec)
		if p.err != nil {
			return left
		}
		be := &ast.BinaryExpr{Op: binaryOps[opTok.Kind], Left: left, Right: right}
		be.Position = posOf(opTok)
		left = be
	}
}

// parseLhsExpr implements:
//
//	LhsExpr := PrimaryExpr { "[" Expr "]" | "=" Expr }
//
// producing Lookup for each `[...]` suffix and terminating in an Assign
// the first time `=` is seen.
func (p *Parser) parseLhsExpr() ast.Expr {
	expr := p.parsePrimaryExpr()
	for p.err == nil {
		switch {
		case p.test(token.LeftBracket):
			startPos := posOf(p.cur)
			p.advance()
			index := p.parseExpr(precLowest)
			p.expect(token.RightBracket)
			lookup := &ast.Lookup{Base: expr, Index: index}
			lookup.Position = startPos
			expr = lookup
		case p.test(token.Equals):
			startPos := posOf(p.cur)
			p.advance()
			value := p.parseExpr(precLowest)
			assign := &ast.Assign{Target: expr, Value: value}
			assign.Position = startPos
			return assign
		default:
			return expr
		}
	}
	return expr
}

// parsePrimaryExpr implements:
//
//	PrimaryExpr := IDENT ( "(" [Expr {"," Expr}] ")" )?
//	             | NUMBER | STRING | "{" "}" | "[" [Expr {"," Expr}] "]"
func (p *Parser) parsePrimaryExpr() ast.Expr {
	startPos := posOf(p.cur)
	switch p.cur.Kind {
	case token.Identifier:
		name := p.cur.Text
		p.advance()
		if p.test(token.LeftParen) {
			p.advance()
			var args []ast.Expr
			if !p.test(token.RightParen) {
				args = append(args, p.parseExpr(precLowest))
				for p.test(token.Comma) {
					p.advance()
					args = append(args, p.parseExpr(precLowest))
				}
			}
			p.expect(token.RightParen)
			call := &ast.Call{Callee: name, Args: args}
			call.Position = startPos
			return call
		}
		ident := &ast.Identifier{Name: name}
		ident.Position = startPos
		return ident

	case token.Number:
		text := p.cur.Text
		p.advance()
		return p.parseNumberLiteral(startPos, text)

	case token.String:
		text := p.cur.Text
		p.advance()
		trimmed := text
		if len(trimmed) >= 2 {
			trimmed = trimmed[1 : len(trimmed)-1]
		}
		lit := &ast.String{Value: trimmed}
		lit.Position = startPos
		return lit

	case token.LeftCurly:
		p.advance()
		p.expect(token.RightCurly)
		lit := &ast.ObjectLiteral{}
		lit.Position = startPos
		return lit

	case token.LeftBracket:
		p.advance()
		var elems []ast.Expr
		if !p.test(token.RightBracket) {
			elems = append(elems, p.parseExpr(precLowest))
			for p.test(token.Comma) {
				p.advance()
				elems = append(elems, p.parseExpr(precLowest))
			}
		}
		p.expect(token.RightBracket)
		lit := &ast.ArrayLiteral{Elements: elems}
		lit.Position = startPos
		return lit

	default:
		p.fail(startPos, "unexpected token %s (%q)", p.cur.Kind, p.cur.Text)
		return &ast.Integer{}
	}
}

// parseNumberLiteral classifies a scanned NUMBER lexeme by the presence
// of a '.' (spec §4.1/§4.2): with a dot it is a Float, otherwise an
// Integer. A lexeme with more than one dot is a numeric-parse error.
func (p *Parser) parseNumberLiteral(pos luerrors.Position, text string) ast.Expr {
	if strings.Contains(text, ".") {
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			p.fail(pos, "invalid number literal %q: %s", text, err)
			return &ast.Float{}
		}
		lit := &ast.Float{Value: v}
		lit.Position = pos
		return lit
	}
	v, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		p.fail(pos, "invalid integer literal %q: %s", text, err)
		return &ast.Integer{}
	}
	lit := &ast.Integer{Value: v}
	lit.Position = pos
	return lit
}
