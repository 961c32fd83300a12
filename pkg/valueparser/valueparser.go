// Package valueparser tokenizes CSS component values, such as the parameter
// text of an @import rule, into a small tree of words, strings, functions,
// dividers, spaces and comments.
//
// The tree is lossless enough that Stringify reproduces the parsed text,
// except that newlines are normalized and whitespace inside url() is dropped.
package valueparser

import (
	"strings"

	"github.com/gorilla/css/scanner"
)

// NodeType identifies the kind of a value node.
type NodeType int

const (
	Word NodeType = iota
	String
	Function
	Space
	Div
	Comment
)

var nodeTypeNames = [...]string{
	Word:     "word",
	String:   "string",
	Function: "function",
	Space:    "space",
	Div:      "div",
	Comment:  "comment",
}

// String returns the name of the node type.
func (t NodeType) String() string {
	if t >= 0 && int(t) < len(nodeTypeNames) {
		return nodeTypeNames[t]
	}
	return ""
}

// Node is a single value token. Function nodes hold their arguments in Nodes.
type Node struct {
	Type NodeType

	// Value is the word text, the unquoted string contents (escapes kept),
	// the function name, the divider character or the comment body.
	Value string

	// Quote is the quote character of a String node.
	Quote byte

	// Unclosed is set on strings, functions and comments that hit the end
	// of input before their terminator.
	Unclosed bool

	Nodes Nodes
}

// Nodes is an ordered list of value nodes.
type Nodes []*Node

// Is reports whether the node has type t and a case-insensitive value of name.
func (n *Node) Is(t NodeType, name string) bool {
	return n.Type == t && strings.EqualFold(n.Value, name)
}

// String re-serializes the node.
func (n *Node) String() string {
	switch n.Type {
	case String:
		q := string(n.Quote)
		if n.Unclosed {
			return q + n.Value
		}
		return q + n.Value + q
	case Function:
		s := n.Value + "(" + n.Nodes.String()
		if !n.Unclosed {
			s += ")"
		}
		return s
	case Comment:
		if n.Unclosed {
			return "/*" + n.Value
		}
		return "/*" + n.Value + "*/"
	}
	return n.Value
}

// String re-serializes the list.
func (a Nodes) String() string {
	var buf strings.Builder
	for _, n := range a {
		buf.WriteString(n.String())
	}
	return buf.String()
}

// Stringify re-serializes a list of nodes.
func Stringify(nodes Nodes) string {
	return nodes.String()
}

// Parse tokenizes text. It never fails: unterminated strings and comments
// become unclosed nodes holding the rest of the input.
func Parse(text string) Nodes {
	p := &parser{input: normalizeNewlines(text)}
	p.s = scanner.New(p.input)
	nodes, _ := p.parseNodes(false)
	return nodes
}

// parser wraps the gorilla scanner and tracks the byte offset consumed so far,
// which is needed to recover the remainder after a scanner error.
type parser struct {
	s      *scanner.Scanner
	input  string
	offset int
}

func (p *parser) next() *scanner.Token {
	tok := p.s.Next()
	if tok.Type != scanner.TokenError && tok.Type != scanner.TokenEOF {
		p.offset += len(tok.Value)
	}
	return tok
}

// parseNodes consumes nodes until EOF or, inside a function, the closing
// parenthesis. closed reports whether the closing parenthesis was seen.
func (p *parser) parseNodes(inFunction bool) (nodes Nodes, closed bool) {
	var word strings.Builder
	flush := func() {
		if word.Len() > 0 {
			nodes = append(nodes, &Node{Type: Word, Value: word.String()})
			word.Reset()
		}
	}

	for {
		tok := p.next()
		switch tok.Type {
		case scanner.TokenEOF:
			flush()
			return nodes, false
		case scanner.TokenError:
			flush()
			if n := p.recoverRemainder(); n != nil {
				nodes = append(nodes, n)
			}
			return nodes, false
		case scanner.TokenBOM:
			// nop
		case scanner.TokenS:
			flush()
			nodes = append(nodes, &Node{Type: Space, Value: tok.Value})
		case scanner.TokenComment:
			flush()
			nodes = append(nodes, &Node{Type: Comment, Value: tok.Value[2 : len(tok.Value)-2]})
		case scanner.TokenString:
			flush()
			nodes = append(nodes, &Node{Type: String, Quote: tok.Value[0], Value: tok.Value[1 : len(tok.Value)-1]})
		case scanner.TokenURI:
			flush()
			nodes = append(nodes, parseURI(tok.Value))
		case scanner.TokenFunction:
			flush()
			args, ok := p.parseNodes(true)
			nodes = append(nodes, &Node{Type: Function, Value: tok.Value[:len(tok.Value)-1], Nodes: args, Unclosed: !ok})
		case scanner.TokenChar:
			switch tok.Value {
			case "(":
				flush()
				args, ok := p.parseNodes(true)
				nodes = append(nodes, &Node{Type: Function, Nodes: args, Unclosed: !ok})
			case ")":
				if inFunction {
					flush()
					return nodes, true
				}
				word.WriteString(tok.Value)
			case ",", "/", ":":
				flush()
				nodes = append(nodes, &Node{Type: Div, Value: tok.Value})
			default:
				word.WriteString(tok.Value)
			}
		default:
			word.WriteString(tok.Value)
		}
	}
}

// recoverRemainder turns the input left after a scanner error (an unclosed
// string or comment) into a single unclosed node.
func (p *parser) recoverRemainder() *Node {
	rest := p.input[p.offset:]
	p.offset = len(p.input)
	switch {
	case rest == "":
		return nil
	case rest[0] == '"' || rest[0] == '\'':
		return &Node{Type: String, Quote: rest[0], Value: rest[1:], Unclosed: true}
	case strings.HasPrefix(rest, "/*"):
		return &Node{Type: Comment, Value: rest[2:], Unclosed: true}
	}
	return &Node{Type: Word, Value: rest}
}

// parseURI converts a url(...) token into a url function node whose only
// argument is the quoted string or the raw unquoted text.
func parseURI(raw string) *Node {
	const prefix = "url("
	fn := &Node{Type: Function, Value: raw[:len(prefix)-1]}
	inner := strings.Trim(raw[len(prefix):len(raw)-1], " \t\n\r\f")
	switch {
	case inner == "":
	case len(inner) >= 2 && (inner[0] == '"' || inner[0] == '\'') && inner[len(inner)-1] == inner[0]:
		fn.Nodes = Nodes{{Type: String, Quote: inner[0], Value: inner[1 : len(inner)-1]}}
	default:
		fn.Nodes = Nodes{{Type: Word, Value: inner}}
	}
	return fn
}

// normalizeNewlines applies the same preprocessing as the gorilla scanner so
// that byte offsets line up with the token values.
func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.ReplaceAll(s, "\f", "\n")
	return strings.ReplaceAll(s, "\u0000", "\ufffd")
}
