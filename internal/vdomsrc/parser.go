package vdomsrc

import (
	"fmt"
	"io"

	"github.com/purc-go/purc/internal/perrors"
	"github.com/purc-go/purc/internal/vdom"
)

// Parser builds a *vdom.Vdom from a markup token stream by recursive
// descent: a flat token slice + cursor, peek/match/advance helpers,
// generalized from a statement grammar to an
// XML-like element tree.
type Parser struct {
	tokens  []Token
	current int
}

// Parse tokenizes and parses source into a *vdom.Vdom rooted at its single
// top-level element.
func Parse(source string) (*vdom.Vdom, error) {
	tokens, err := NewScanner(source).ScanTokens()
	if err != nil {
		return nil, perrors.Wrap(perrors.InvalidValue, err, "failed to tokenize HVML source")
	}
	p := &Parser{tokens: tokens}
	root, err := p.parseElement()
	if err != nil {
		return nil, perrors.Wrap(perrors.InvalidValue, err, "failed to parse HVML source")
	}
	if p.peek().Type != TokenEOF {
		return nil, perrors.New(perrors.InvalidValue, "trailing content after root element at line %d", p.peek().Line)
	}
	return vdom.New(root), nil
}

// ParseReader reads r fully and parses it (the library API's
// load_hvml_from_stream, , backed by this loader).
func ParseReader(r io.Reader) (*vdom.Vdom, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, perrors.Wrap(perrors.BrokenPipe, err, "failed to read HVML stream")
	}
	return Parse(string(data))
}

func (p *Parser) peek() Token { return p.tokens[p.current] }

func (p *Parser) advance() Token {
	t := p.tokens[p.current]
	if p.current < len(p.tokens)-1 {
		p.current++
	}
	return t
}

func (p *Parser) check(t TokenType) bool { return p.peek().Type == t }

func (p *Parser) expect(t TokenType, what string) (Token, error) {
	if !p.check(t) {
		return Token{}, fmt.Errorf("expected %s at line %d, got %s", what, p.peek().Line, p.peek().Type)
	}
	return p.advance(), nil
}

// parseElement parses one "<tag attr=...>...</tag>" or self-closed
// "<tag attr=... />" starting at the current TokenLT.
func (p *Parser) parseElement() (*vdom.Element, error) {
	if _, err := p.expect(TokenLT, "'<'"); err != nil {
		return nil, err
	}
	nameTok, err := p.expect(TokenIdent, "tag name")
	if err != nil {
		return nil, err
	}
	el := vdom.NewElement(nameTok.Lexeme)

	for p.check(TokenIdent) {
		attrTok := p.advance()
		if _, err := p.expect(TokenEquals, "'='"); err != nil {
			return nil, err
		}
		valTok, err := p.expect(TokenString, "attribute value string")
		if err != nil {
			return nil, err
		}
		node, err := compileTemplate(valTok.Lexeme)
		if err != nil {
			return nil, err
		}
		if _, dup := el.Attrs[attrTok.Lexeme]; dup {
			return nil, fmt.Errorf("duplicate attribute %q on <%s> at line %d", attrTok.Lexeme, nameTok.Lexeme, attrTok.Line)
		}
		el.Attrs[attrTok.Lexeme] = node
		el.AttrOrder = append(el.AttrOrder, attrTok.Lexeme)
	}

	if p.check(TokenSlashGT) {
		p.advance()
		return el, nil
	}
	if _, err := p.expect(TokenGT, "'>'"); err != nil {
		return nil, err
	}

	for {
		switch p.peek().Type {
		case TokenLTSlash:
			p.advance()
			closeTok, err := p.expect(TokenIdent, "closing tag name")
			if err != nil {
				return nil, err
			}
			if closeTok.Lexeme != nameTok.Lexeme {
				return nil, fmt.Errorf("mismatched closing tag </%s> for <%s> at line %d", closeTok.Lexeme, nameTok.Lexeme, closeTok.Line)
			}
			if _, err := p.expect(TokenGT, "'>'"); err != nil {
				return nil, err
			}
			return el, nil

		case TokenLT:
			child, err := p.parseElement()
			if err != nil {
				return nil, err
			}
			child.Parent = el
			el.Children = append(el.Children, child)

		case TokenText:
			tok := p.advance()
			el.Children = append(el.Children, &vdom.Element{
				Kind:    vdom.TextNode,
				Content: literalNode(tok.Lexeme),
				Parent:  el,
			})

		case TokenComment:
			tok := p.advance()
			el.Children = append(el.Children, &vdom.Element{
				Kind:    vdom.CommentNode,
				Content: literalNode(tok.Lexeme),
				Parent:  el,
			})

		case TokenEOF:
			return nil, fmt.Errorf("unterminated <%s>, reached end of source", nameTok.Lexeme)

		default:
			return nil, fmt.Errorf("unexpected token %s at line %d", p.peek().Type, p.peek().Line)
		}
	}
}
