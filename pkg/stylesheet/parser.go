// Package stylesheet implements a small, lossless stylesheet tree: just enough
// structure to find at-rules, comments and rule blocks, and to write the
// source back out after nodes are removed or inserted.
package stylesheet

import (
	"strings"

	"github.com/gorilla/css/scanner"

	"github.com/siyuan-infoblox/css-imports/pkg/errors"
)

// Parse builds a tree from css. The only failures are unterminated comments or
// strings and a stray "}" at the top level, reported as STYLESHEET_SYNTAX
// errors. For input with "\n" line endings, Root.String returns css unchanged.
func Parse(css string) (*Root, error) {
	p := &parser{s: scanner.New(css)}
	root := &Root{}
	root.pos = Position{Line: 1, Column: 1}
	after, _ := p.parseStatements(root, false)
	if p.err != nil {
		return nil, p.err
	}
	root.RawAfter = after
	return root, nil
}

type parser struct {
	s      *scanner.Scanner
	peeked *scanner.Token
	err    *errors.ImportError
}

func (p *parser) next() *scanner.Token {
	if p.peeked != nil {
		tok := p.peeked
		p.peeked = nil
		return tok
	}
	return p.s.Next()
}

func (p *parser) unread(tok *scanner.Token) {
	p.peeked = tok
}

func (p *parser) fail(tok *scanner.Token, msg string) {
	if p.err != nil {
		return
	}
	p.err = errors.New(errors.KindStylesheetSyntax, msg).WithContext(errors.Context{
		Line:   tok.Line,
		Column: tok.Column,
	})
}

func isChar(tok *scanner.Token, c string) bool {
	return tok.Type == scanner.TokenChar && tok.Value == c
}

func isBlank(tok *scanner.Token) bool {
	return tok.Type == scanner.TokenS || tok.Type == scanner.TokenComment
}

// parseStatements appends nodes to c until EOF or, when nested, the "}" that
// closes the block. It returns the raw text left after the last node.
func (p *parser) parseStatements(c Container, nested bool) (after string, closed bool) {
	var before strings.Builder
	for p.err == nil {
		tok := p.next()
		switch {
		case tok.Type == scanner.TokenEOF:
			return before.String(), false
		case tok.Type == scanner.TokenError:
			p.fail(tok, tok.Value)
			return before.String(), false
		case tok.Type == scanner.TokenS, tok.Type == scanner.TokenBOM, isChar(tok, ";"):
			before.WriteString(tok.Value)
		case tok.Type == scanner.TokenComment:
			Append(c, newComment(tok, before.String()))
			before.Reset()
		case tok.Type == scanner.TokenAtKeyword:
			at := p.parseAtRule(tok)
			at.RawBefore = before.String()
			before.Reset()
			Append(c, at)
		case isChar(tok, "}"):
			if nested {
				return before.String(), true
			}
			p.fail(tok, "Unexpected }")
		default:
			p.unread(tok)
			n := p.parseQualified()
			n.base().RawBefore = before.String()
			before.Reset()
			Append(c, n)
		}
	}
	return before.String(), false
}

func newComment(tok *scanner.Token, before string) *Comment {
	body := tok.Value[2 : len(tok.Value)-2]
	text := strings.TrimSpace(body)
	c := &Comment{Text: text}
	c.RawBefore = before
	c.pos = Position{Line: tok.Line, Column: tok.Column}
	if text == "" {
		c.RawLeft = body
		return c
	}
	i := strings.Index(body, text)
	c.RawLeft = body[:i]
	c.RawRight = body[i+len(text):]
	return c
}

// prelude collects the tokens of an at-rule prelude or a selector up to the
// terminating "{", ";" or "}" at nesting depth zero.
type prelude struct {
	toks []*scanner.Token
	end  *scanner.Token
}

func (p *parser) readPrelude(stopAtSemicolon bool) prelude {
	var pre prelude
	depth := 0
	for {
		tok := p.next()
		switch {
		case tok.Type == scanner.TokenEOF:
			pre.end = tok
			return pre
		case tok.Type == scanner.TokenError:
			p.fail(tok, tok.Value)
			pre.end = tok
			return pre
		case tok.Type == scanner.TokenFunction, isChar(tok, "("), isChar(tok, "["):
			depth++
		case isChar(tok, ")"), isChar(tok, "]"):
			if depth > 0 {
				depth--
			}
		case depth == 0 && (isChar(tok, "{") || isChar(tok, "}")):
			pre.end = tok
			return pre
		case depth == 0 && stopAtSemicolon && isChar(tok, ";"):
			pre.end = tok
			return pre
		}
		pre.toks = append(pre.toks, tok)
	}
}

func join(toks []*scanner.Token) string {
	var buf strings.Builder
	for _, tok := range toks {
		buf.WriteString(tok.Value)
	}
	return buf.String()
}

func (p *parser) parseAtRule(nameTok *scanner.Token) *AtRule {
	at := &AtRule{Name: nameTok.Value[1:]}
	at.pos = Position{Line: nameTok.Line, Column: nameTok.Column}

	pre := p.readPrelude(true)
	toks := pre.toks
	start := 0
	for start < len(toks) && isBlank(toks[start]) {
		start++
	}
	end := len(toks)
	for end > start && isBlank(toks[end-1]) {
		end--
	}
	at.RawAfterName = join(toks[:start])
	at.Params = join(toks[start:end])
	at.RawBetween = join(toks[end:])

	switch {
	case isChar(pre.end, ";"):
		at.Semicolon = true
	case isChar(pre.end, "{"):
		at.HasBlock = true
		after, closed := p.parseStatements(at, true)
		at.RawAfter = after
		at.unclosed = !closed
	case isChar(pre.end, "}"):
		p.unread(pre.end)
	}
	return at
}

// parseQualified reads a rule (selector followed by a block) or, when the
// statement ends with ";" or "}" first, a declaration.
func (p *parser) parseQualified() Node {
	pre := p.readPrelude(true)
	var pos Position
	if len(pre.toks) > 0 {
		pos = Position{Line: pre.toks[0].Line, Column: pre.toks[0].Column}
	} else {
		pos = Position{Line: pre.end.Line, Column: pre.end.Column}
	}

	if isChar(pre.end, "{") {
		raw := join(pre.toks)
		selector := strings.TrimRight(raw, " \t\n")
		r := &Rule{Selector: selector, RawBetween: raw[len(selector):]}
		r.pos = pos
		after, closed := p.parseStatements(r, true)
		r.RawAfter = after
		r.unclosed = !closed
		return r
	}

	d := newDeclaration(pre.toks)
	d.pos = pos
	switch {
	case isChar(pre.end, ";"):
		d.Semicolon = true
	case isChar(pre.end, "}"):
		p.unread(pre.end)
	}
	return d
}

func newDeclaration(toks []*scanner.Token) *Declaration {
	raw := join(toks)
	colon := -1
	offset, depth := 0, 0
	for _, tok := range toks {
		switch {
		case tok.Type == scanner.TokenFunction, isChar(tok, "("), isChar(tok, "["):
			depth++
		case isChar(tok, ")"), isChar(tok, "]"):
			if depth > 0 {
				depth--
			}
		case depth == 0 && isChar(tok, ":"):
			colon = offset
		}
		if colon >= 0 {
			break
		}
		offset += len(tok.Value)
	}

	d := &Declaration{}
	if colon < 0 {
		d.Prop = raw
		return d
	}
	d.Prop = strings.TrimRight(raw[:colon], " \t\n")
	rest := raw[colon+1:]
	value := strings.TrimLeft(rest, " \t\n")
	d.RawBetween = raw[len(d.Prop):colon+1] + rest[:len(rest)-len(value)]
	d.Value = value
	return d
}
