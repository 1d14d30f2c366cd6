package vdomsrc

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/purc-go/purc/internal/vcm"
	"github.com/purc-go/purc/internal/variant"
)

// exprTokenType tags one token of a {{ ... }} VCM template body. This is a
// second, smaller lexer alongside scanner.go's markup one — the grammars
// don't overlap (one tokenizes tags/attributes, the other the expression
// language quoted inside a template), so a one-scanner-per-grammar split
// is kept as two small lexers rather than one that has to track two modes
// at once.
type exprTokenType int

const (
	exTEOF exprTokenType = iota
	exTDollar
	exTIdent
	exTNumber
	exTString
	exTTrue
	exTFalse
	exTNull
	exTUndefined
	exTLBracket
	exTRBracket
	exTLParen
	exTRParen
	exTComma
	exTDot
	exTColon
	exTSemi
	exTBang
)

type exprToken struct {
	typ exprTokenType
	lit string
}

// exprLexer scans a template's inner expression text into exprTokens.
type exprLexer struct {
	src string
	pos int
}

func (l *exprLexer) lex() ([]exprToken, error) {
	var toks []exprToken
	for {
		l.skipSpace()
		if l.pos >= len(l.src) {
			toks = append(toks, exprToken{typ: exTEOF})
			return toks, nil
		}
		c := l.src[l.pos]
		switch {
		case c == '$':
			l.pos++
			toks = append(toks, exprToken{typ: exTDollar})
		case c == '[':
			l.pos++
			toks = append(toks, exprToken{typ: exTLBracket})
		case c == ']':
			l.pos++
			toks = append(toks, exprToken{typ: exTRBracket})
		case c == '(':
			l.pos++
			toks = append(toks, exprToken{typ: exTLParen})
		case c == ')':
			l.pos++
			toks = append(toks, exprToken{typ: exTRParen})
		case c == ',':
			l.pos++
			toks = append(toks, exprToken{typ: exTComma})
		case c == '.':
			l.pos++
			toks = append(toks, exprToken{typ: exTDot})
		case c == ':':
			l.pos++
			toks = append(toks, exprToken{typ: exTColon})
		case c == ';':
			l.pos++
			toks = append(toks, exprToken{typ: exTSemi})
		case c == '!':
			l.pos++
			toks = append(toks, exprToken{typ: exTBang})
		case c == '"' || c == '\'':
			s, err := l.lexString(c)
			if err != nil {
				return nil, err
			}
			toks = append(toks, exprToken{typ: exTString, lit: s})
		case isExprSymbol(c):
			l.pos++
			toks = append(toks, exprToken{typ: exTIdent, lit: string(c)})
		case c >= '0' && c <= '9':
			toks = append(toks, l.lexNumber())
		case isExprIdentStart(c):
			toks = append(toks, l.lexIdent())
		default:
			return nil, fmt.Errorf("vdomsrc: unexpected character %q in expression %q", c, l.src)
		}
	}
}

func (l *exprLexer) skipSpace() {
	for l.pos < len(l.src) {
		switch l.src[l.pos] {
		case ' ', '\t', '\n', '\r':
			l.pos++
		default:
			return
		}
	}
}

func (l *exprLexer) lexString(quote byte) (string, error) {
	l.pos++
	start := l.pos
	for l.pos < len(l.src) && l.src[l.pos] != quote {
		if l.src[l.pos] == '\\' && l.pos+1 < len(l.src) {
			l.pos++
		}
		l.pos++
	}
	if l.pos >= len(l.src) {
		return "", fmt.Errorf("vdomsrc: unterminated string in expression %q", l.src)
	}
	raw := l.src[start:l.pos]
	l.pos++
	return unescape(raw), nil
}

func (l *exprLexer) lexNumber() exprToken {
	start := l.pos
	for l.pos < len(l.src) && (isDigit(l.src[l.pos]) || l.src[l.pos] == '.') {
		l.pos++
	}
	return exprToken{typ: exTNumber, lit: l.src[start:l.pos]}
}

func (l *exprLexer) lexIdent() exprToken {
	start := l.pos
	for l.pos < len(l.src) && isExprIdentPart(l.src[l.pos]) {
		l.pos++
	}
	word := l.src[start:l.pos]
	switch word {
	case "true":
		return exprToken{typ: exTTrue}
	case "false":
		return exprToken{typ: exTFalse}
	case "null":
		return exprToken{typ: exTNull}
	case "undefined":
		return exprToken{typ: exTUndefined}
	default:
		return exprToken{typ: exTIdent, lit: word}
	}
}

func isDigit(c byte) bool        { return c >= '0' && c <= '9' }
func isExprIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
func isExprIdentPart(c byte) bool { return isExprIdentStart(c) || isDigit(c) }

// isExprSymbol recognizes the one-character positional symbols a $ can be
// followed by (frame.go's SymQuestion..SymMessage set), so $? / $@ / $~ etc
// lex as a single-character SymbolRef name rather than falling through to
// the identifier-start check.
func isExprSymbol(c byte) bool {
	switch c {
	case '?', '@', '%', '!', '^', ':', '=', '<', '~':
		return true
	}
	return false
}

// exprParser is a small recursive-descent parser over exprTokens producing
// a vcm.Node tree. Grammar (this module's own convention for the template
// micro-syntax; the VCM tree itself is pre-parsed and leaves concrete text
// syntax to this tokenizer alone):
//
//	primary    := STRING | NUMBER | true | false | null | undefined
//	            | '$' ref postfix*
//	            | '[' (expr (',' expr)*)? ']'                    -- array
//	            | 'obj' '(' (IDENT ':' expr (',' IDENT ':' expr)*)? ')'
//	            | 'tuple' '(' (expr (',' expr)*)? ')'
//	            | 'set' '(' (expr (',' expr)*)? ')'
//	            | 'set_by' '(' STRING ';' expr (',' expr)* ')'
//	ref        := IDENT | NUMBER | SYMBOLCHAR
//	postfix    := '.' IDENT ['!'] '(' (expr (',' expr)*)? ')'     -- setter/getter call
//	            | '.' IDENT                                       -- property getter
type exprParser struct {
	toks []exprToken
	pos  int
}

func parseExpr(src string) (*vcm.Node, error) {
	toks, err := (&exprLexer{src: src}).lex()
	if err != nil {
		return nil, err
	}
	p := &exprParser{toks: toks}
	node, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if p.cur().typ != exTEOF {
		return nil, fmt.Errorf("vdomsrc: unexpected trailing input in expression %q", src)
	}
	return node, nil
}

func (p *exprParser) cur() exprToken { return p.toks[p.pos] }

func (p *exprParser) advance() exprToken {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *exprParser) expect(t exprTokenType, what string) (exprToken, error) {
	if p.cur().typ != t {
		return exprToken{}, fmt.Errorf("vdomsrc: expected %s", what)
	}
	return p.advance(), nil
}

func (p *exprParser) parsePrimary() (*vcm.Node, error) {
	switch p.cur().typ {
	case exTString:
		return &vcm.Node{Kind: vcm.Literal, Lit: variant.MakeString(p.advance().lit)}, nil
	case exTNumber:
		n, err := strconv.ParseFloat(p.advance().lit, 64)
		if err != nil {
			return nil, err
		}
		return &vcm.Node{Kind: vcm.Literal, Lit: variant.MakeNumber(n)}, nil
	case exTTrue:
		p.advance()
		return &vcm.Node{Kind: vcm.Literal, Lit: variant.MakeBoolean(true)}, nil
	case exTFalse:
		p.advance()
		return &vcm.Node{Kind: vcm.Literal, Lit: variant.MakeBoolean(false)}, nil
	case exTNull:
		p.advance()
		return &vcm.Node{Kind: vcm.Literal, Lit: variant.MakeNull()}, nil
	case exTUndefined:
		p.advance()
		return &vcm.Node{Kind: vcm.Literal, Lit: variant.MakeUndefined()}, nil
	case exTLBracket:
		return p.parseArray()
	case exTDollar:
		return p.parseDollar()
	case exTIdent:
		switch p.cur().lit {
		case "obj":
			return p.parseObject()
		case "tuple":
			return p.parseCtor(vcm.TupleCtor)
		case "set":
			return p.parseCtor(vcm.SetCtor)
		case "set_by":
			return p.parseSetBy()
		}
	}
	return nil, fmt.Errorf("vdomsrc: unexpected token parsing expression")
}

func (p *exprParser) parseArray() (*vcm.Node, error) {
	p.advance() // [
	items, err := p.parseExprList(exTRBracket)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(exTRBracket, "]"); err != nil {
		return nil, err
	}
	return &vcm.Node{Kind: vcm.ArrayCtor, Children: items}, nil
}

func (p *exprParser) parseCtor(kind vcm.NodeKind) (*vcm.Node, error) {
	p.advance() // ident
	if _, err := p.expect(exTLParen, "("); err != nil {
		return nil, err
	}
	items, err := p.parseExprList(exTRParen)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(exTRParen, ")"); err != nil {
		return nil, err
	}
	return &vcm.Node{Kind: kind, Children: items}, nil
}

func (p *exprParser) parseSetBy() (*vcm.Node, error) {
	p.advance() // set_by
	if _, err := p.expect(exTLParen, "("); err != nil {
		return nil, err
	}
	keysTok, err := p.expect(exTString, "unique-key string")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(exTSemi, ";"); err != nil {
		return nil, err
	}
	items, err := p.parseExprList(exTRParen)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(exTRParen, ")"); err != nil {
		return nil, err
	}
	return &vcm.Node{Kind: vcm.SetCtor, UniqueKeys: strings.Fields(keysTok.lit), Children: items}, nil
}

func (p *exprParser) parseObject() (*vcm.Node, error) {
	p.advance() // obj
	if _, err := p.expect(exTLParen, "("); err != nil {
		return nil, err
	}
	var keys []string
	var vals []*vcm.Node
	for p.cur().typ != exTRParen {
		keyTok, err := p.expect(exTIdent, "object key")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(exTColon, ":"); err != nil {
			return nil, err
		}
		val, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		keys = append(keys, keyTok.lit)
		vals = append(vals, val)
		if p.cur().typ == exTComma {
			p.advance()
		}
	}
	if _, err := p.expect(exTRParen, ")"); err != nil {
		return nil, err
	}
	return &vcm.Node{Kind: vcm.ObjectCtor, Keys: keys, Children: vals}, nil
}

func (p *exprParser) parseExprList(end exprTokenType) ([]*vcm.Node, error) {
	var items []*vcm.Node
	for p.cur().typ != end {
		item, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		if p.cur().typ == exTComma {
			p.advance()
		} else {
			break
		}
	}
	return items, nil
}

// parseDollar handles $name, $N, $<symbol>, and any chain of .key /
// .key(args) / .key!(args) that follows.
func (p *exprParser) parseDollar() (*vcm.Node, error) {
	p.advance() // $
	var base *vcm.Node
	switch p.cur().typ {
	case exTNumber:
		idx, err := strconv.Atoi(p.advance().lit)
		if err != nil {
			return nil, err
		}
		base = &vcm.Node{Kind: vcm.Positional, Index: idx}
	case exTIdent:
		lit := p.advance().lit
		if len(lit) == 1 && isExprSymbol(lit[0]) {
			base = &vcm.Node{Kind: vcm.SymbolRef, Symbol: lit[0]}
		} else {
			base = &vcm.Node{Kind: vcm.NamedRef, Name: lit}
		}
	case exTColon:
		// ':' and '!' are each also their own punctuation token elsewhere
		// (object-ctor "key:", setter-call "!("), so unlike the other
		// symbol characters they never reach isExprSymbol's IDENT
		// fallback — caught here instead.
		p.advance()
		base = &vcm.Node{Kind: vcm.SymbolRef, Symbol: ':'}
	case exTBang:
		p.advance()
		base = &vcm.Node{Kind: vcm.SymbolRef, Symbol: '!'}
	default:
		return nil, fmt.Errorf("vdomsrc: expected a name, index, or symbol after $")
	}

	for p.cur().typ == exTDot {
		p.advance()
		keyTok, err := p.expect(exTIdent, "property or method name")
		if err != nil {
			return nil, err
		}
		isSetter := false
		if p.cur().typ == exTBang {
			p.advance()
			isSetter = true
		}
		if p.cur().typ != exTLParen {
			base = &vcm.Node{Kind: vcm.Getter, Base: base, Key: keyTok.lit}
			continue
		}
		p.advance() // (
		args, err := p.parseExprList(exTRParen)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(exTRParen, ")"); err != nil {
			return nil, err
		}
		if isSetter {
			base = &vcm.Node{Kind: vcm.Setter, Base: base, Key: keyTok.lit, Args: args}
		} else {
			base = &vcm.Node{Kind: vcm.Getter, Base: base, Key: keyTok.lit, Args: args, IsMethodCall: true}
		}
	}
	return base, nil
}

// compileTemplate parses raw attribute/content text into a vcm.Node,
// splicing together literal runs and {{ expr }} templates.
// A single template spanning the whole string evaluates to its own kind
// (e.g. a number stays a number); anything with surrounding literal text,
// or more than one template, reduces via string-concat.
func compileTemplate(raw string) (*vcm.Node, error) {
	var parts []*vcm.Node
	i := 0
	for i < len(raw) {
		start := strings.Index(raw[i:], "{{")
		if start < 0 {
			if rest := raw[i:]; rest != "" {
				parts = append(parts, literalNode(rest))
			}
			break
		}
		start += i
		if start > i {
			parts = append(parts, literalNode(raw[i:start]))
		}
		end := strings.Index(raw[start+2:], "}}")
		if end < 0 {
			return nil, fmt.Errorf("vdomsrc: unterminated {{ }} template in %q", raw)
		}
		end += start + 2
		node, err := parseExpr(strings.TrimSpace(raw[start+2 : end]))
		if err != nil {
			return nil, err
		}
		parts = append(parts, node)
		i = end + 2
	}
	switch len(parts) {
	case 0:
		return literalNode(""), nil
	case 1:
		return parts[0], nil
	default:
		return &vcm.Node{Kind: vcm.Concat, Children: parts}, nil
	}
}

func literalNode(s string) *vcm.Node {
	return &vcm.Node{Kind: vcm.Literal, Lit: variant.MakeString(s)}
}
