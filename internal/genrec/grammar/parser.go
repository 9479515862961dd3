package grammar

import (
	"fmt"

	"github.com/dekarrin/genrec/internal/genrec/gramlex"
	"github.com/dekarrin/genrec/internal/genrec/lextarget"
)

// Parser consumes gramlex tokens and builds a Registry and production tree,
// resolving terminal names and literal spellings through an injected
// lextarget.Lexer exactly as spec.md §4.2 specifies. It implements the
// grammar's own (LL(1)) grammar by direct recursive descent, the same style
// genrec.c's factor/term/expr/rule/grammar functions use.
type Parser struct {
	lex     *gramlex.Lexer
	target  lextarget.Lexer
	reg     *Registry
	cur     gramlex.Token
	curRule string // name of the rule currently being parsed, for buffer scoping

	declaredBuffers map[string]bool // raw (unqualified) buffer names bound so far in curRule
}

// NewParser builds a Parser reading grammar source tokens from lex and
// resolving terminals against target.
func NewParser(lex *gramlex.Lexer, target lextarget.Lexer) *Parser {
	return &Parser{lex: lex, target: target, reg: NewRegistry()}
}

func (p *Parser) advance() error {
	t, err := p.lex.Next()
	if err != nil {
		return err
	}
	p.cur = t
	return nil
}

func (p *Parser) errf(format string, args ...interface{}) error {
	return fmt.Errorf("line %d: %s", p.cur.Line, fmt.Sprintf(format, args...))
}

func (p *Parser) expect(k gramlex.Kind) (gramlex.Token, error) {
	if p.cur.Kind != k {
		return gramlex.Token{}, p.errf("expected %s, got %s", k, p.cur.Kind)
	}
	t := p.cur
	if err := p.advance(); err != nil {
		return gramlex.Token{}, err
	}
	return t, nil
}

// Parse reads the entire grammar and returns its Registry, or the first
// fatal error encountered. It matches genrec.c's grammar() top level:
// `grammar = rule { rule } "."`.
func (p *Parser) Parse() (*Registry, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	for p.cur.Kind == gramlex.Ident {
		if err := p.rule(); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(gramlex.Dot); err != nil {
		return nil, err
	}
	if err := p.reg.Validate(); err != nil {
		return nil, err
	}
	return p.reg, nil
}

// rule = ID [ "*" ] "=" expr ";"
func (p *Parser) rule() error {
	nameTok, err := p.expect(gramlex.Ident)
	if err != nil {
		return err
	}
	p.curRule = nameTok.Text
	p.declaredBuffers = make(map[string]bool)

	isStart := false
	if p.cur.Kind == gramlex.Star {
		isStart = true
		if err := p.advance(); err != nil {
			return err
		}
	}

	if _, err := p.expect(gramlex.Equals); err != nil {
		return err
	}

	body, err := p.expr()
	if err != nil {
		return err
	}

	if _, err := p.expect(gramlex.Semi); err != nil {
		return err
	}

	return p.reg.Define(nameTok.Text, body, isStart)
}

// expr = term { "|" term }
func (p *Parser) expr() (*Node, error) {
	left, err := p.term()
	if err != nil {
		return nil, err
	}
	for p.cur.Kind == gramlex.Pipe {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.term()
		if err != nil {
			return nil, err
		}
		left = NewAlt(left, right)
	}
	return left, nil
}

// btExpr parses the body of a `[[ ... ]]` group, where every top-level `|`
// becomes AltBT instead of Alt (spec.md §4.2).
func (p *Parser) btExpr() (*Node, error) {
	left, err := p.term()
	if err != nil {
		return nil, err
	}
	for p.cur.Kind == gramlex.Pipe {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.term()
		if err != nil {
			return nil, err
		}
		left = NewAltBT(left, right)
	}
	return left, nil
}

// term = factor { factor }
func (p *Parser) term() (*Node, error) {
	left, err := p.factor()
	if err != nil {
		return nil, err
	}
	for p.startsFactor() {
		right, err := p.factor()
		if err != nil {
			return nil, err
		}
		left = NewConcat(left, right)
	}
	return left, nil
}

func (p *Parser) startsFactor() bool {
	switch p.cur.Kind {
	case gramlex.Ident, gramlex.Hash, gramlex.Str, gramlex.LParen,
		gramlex.LBrace, gramlex.LBracket, gramlex.LBracketBracket,
		gramlex.LBraceBrace, gramlex.Dollar:
		return true
	default:
		return false
	}
}

// factor dispatches on the lookahead token per spec.md §4.2's factor forms.
func (p *Parser) factor() (*Node, error) {
	switch p.cur.Kind {
	case gramlex.Ident:
		return p.nonTerminalFactor()
	case gramlex.Hash:
		return p.namedTerminalFactor()
	case gramlex.Str:
		return p.literalTerminalFactor()
	case gramlex.LParen:
		return p.parenFactor()
	case gramlex.LBrace:
		return p.repetFactor()
	case gramlex.LBracket:
		return p.optionFactor()
	case gramlex.LBracketBracket:
		return p.altBTFactor()
	case gramlex.LBraceBrace:
		return p.outBlockFactor()
	case gramlex.Dollar:
		return p.ctrlFactor()
	default:
		return nil, p.errf("unexpected token %s in factor position", p.cur.Kind)
	}
}

// ID [ ">" "$" ID ]
func (p *Parser) nonTerminalFactor() (*Node, error) {
	nameTok, err := p.expect(gramlex.Ident)
	if err != nil {
		return nil, err
	}
	ruleID := p.reg.Lookup(nameTok.Text)

	buffer := ""
	if p.cur.Kind == gramlex.Gt {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if _, err := p.expect(gramlex.Dollar); err != nil {
			return nil, err
		}
		bufTok, err := p.expect(gramlex.Ident)
		if err != nil {
			return nil, err
		}
		p.declaredBuffers[bufTok.Text] = true
		buffer = p.qualifyBuffer(bufTok.Text)
	}
	return NewNonTerminal(ruleID, buffer), nil
}

// "#" ID
func (p *Parser) namedTerminalFactor() (*Node, error) {
	if _, err := p.expect(gramlex.Hash); err != nil {
		return nil, err
	}
	nameTok, err := p.expect(gramlex.Ident)
	if err != nil {
		return nil, err
	}
	id, ok := p.target.NameToID(nameTok.Text)
	if !ok {
		return nil, p.errf("unknown terminal name %q", nameTok.Text)
	}
	return NewTerminal(id, ""), nil
}

// STR
func (p *Parser) literalTerminalFactor() (*Node, error) {
	strTok, err := p.expect(gramlex.Str)
	if err != nil {
		return nil, err
	}
	id := p.target.LiteralToID(strTok.Text)
	return NewTerminal(id, ""), nil
}

// "(" expr ")"
func (p *Parser) parenFactor() (*Node, error) {
	if _, err := p.expect(gramlex.LParen); err != nil {
		return nil, err
	}
	inner, err := p.expr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(gramlex.RParen); err != nil {
		return nil, err
	}
	return inner, nil
}

// "{" expr "}"
func (p *Parser) repetFactor() (*Node, error) {
	if _, err := p.expect(gramlex.LBrace); err != nil {
		return nil, err
	}
	inner, err := p.expr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(gramlex.RBrace); err != nil {
		return nil, err
	}
	return NewRepet(inner), nil
}

// "[" expr "]"
func (p *Parser) optionFactor() (*Node, error) {
	if _, err := p.expect(gramlex.LBracket); err != nil {
		return nil, err
	}
	inner, err := p.expr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(gramlex.RBracket); err != nil {
		return nil, err
	}
	return NewOption(inner), nil
}

// "[[" expr "]]"
func (p *Parser) altBTFactor() (*Node, error) {
	if _, err := p.expect(gramlex.LBracketBracket); err != nil {
		return nil, err
	}
	inner, err := p.btExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(gramlex.RBracketBracket); err != nil {
		return nil, err
	}
	return inner, nil
}

// "{{" outexpr+ "}}"
func (p *Parser) outBlockFactor() (*Node, error) {
	if _, err := p.expect(gramlex.LBraceBrace); err != nil {
		return nil, err
	}
	var directives []OutDirective
	for p.cur.Kind != gramlex.RBraceBrace {
		d, err := p.outexpr()
		if err != nil {
			return nil, err
		}
		directives = append(directives, d)
	}
	if _, err := p.expect(gramlex.RBraceBrace); err != nil {
		return nil, err
	}
	if len(directives) == 0 {
		return nil, p.errf("empty output block")
	}
	return NewOut(directives), nil
}

// outexpr = STR | "*" [ "1" | "2" ] | "$" ID | ";" | "+" | "-"
func (p *Parser) outexpr() (OutDirective, error) {
	switch p.cur.Kind {
	case gramlex.Str:
		t, _ := p.expect(gramlex.Str)
		return OutDirective{Kind: OutLiteral, Literal: t.Text}, nil
	case gramlex.Star:
		if err := p.advance(); err != nil {
			return OutDirective{}, err
		}
		if p.cur.Kind == gramlex.Number && (p.cur.Text == "1" || p.cur.Text == "2") {
			n := p.cur.Text
			if err := p.advance(); err != nil {
				return OutDirective{}, err
			}
			if n == "1" {
				p.reg.Rule(p.reg.Lookup(p.curRule)).Label1Used = true
				return OutDirective{Kind: OutLabel1}, nil
			}
			p.reg.Rule(p.reg.Lookup(p.curRule)).Label2Used = true
			return OutDirective{Kind: OutLabel2}, nil
		}
		return OutDirective{Kind: OutLastLexeme}, nil
	case gramlex.Dollar:
		if err := p.advance(); err != nil {
			return OutDirective{}, err
		}
		bufTok, err := p.expect(gramlex.Ident)
		if err != nil {
			return OutDirective{}, err
		}
		if !p.declaredBuffers[bufTok.Text] {
			return OutDirective{}, p.errf("undefined buffer %q", bufTok.Text)
		}
		return OutDirective{Kind: OutBuffer, Buffer: p.qualifyBuffer(bufTok.Text)}, nil
	case gramlex.Semi:
		if err := p.advance(); err != nil {
			return OutDirective{}, err
		}
		return OutDirective{Kind: OutNewline}, nil
	case gramlex.Plus:
		if err := p.advance(); err != nil {
			return OutDirective{}, err
		}
		return OutDirective{Kind: OutIndentInc}, nil
	case gramlex.Minus:
		if err := p.advance(); err != nil {
			return OutDirective{}, err
		}
		return OutDirective{Kind: OutIndentDec}, nil
	default:
		return OutDirective{}, p.errf("unexpected token %s in output block", p.cur.Kind)
	}
}

// "$" action-ID
func (p *Parser) ctrlFactor() (*Node, error) {
	if _, err := p.expect(gramlex.Dollar); err != nil {
		return nil, err
	}
	idTok, err := p.expect(gramlex.Ident)
	if err != nil {
		return nil, err
	}
	switch idTok.Text {
	case "push":
		return NewCtrl(CtrlPush), nil
	case "pop":
		return NewCtrl(CtrlPop), nil
	case "eout":
		return NewCtrl(CtrlEout), nil
	case "dout":
		return NewCtrl(CtrlDout), nil
	default:
		return nil, p.errf("unknown control action %q", idTok.Text)
	}
}

// qualifyBuffer produces the per-rule-body identity spec.md's
// SUPPLEMENTED FEATURES item 5 calls for: the same raw name in two
// different rule bodies must not collide, so the qualified key embeds the
// enclosing rule's name (a watermark over rule boundaries rather than over
// buffer-allocation order, but with the same effect genrec.c's
// rule_first_nambuf achieves).
func (p *Parser) qualifyBuffer(raw string) string {
	return p.curRule + "#" + raw
}
