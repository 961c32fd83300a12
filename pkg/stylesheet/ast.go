package stylesheet

import (
	"strings"
)

// NodeType identifies the kind of a stylesheet node.
type NodeType int

const (
	RootNode NodeType = iota
	AtRuleNode
	RuleNode
	DeclarationNode
	CommentNode
)

// Position is the 1-based line and column where a node starts.
type Position struct {
	Line   int
	Column int
}

// Node represents a node in the stylesheet tree.
type Node interface {
	Type() NodeType
	Parent() Container
	Position() Position
	String() string
	base() *nodeBase
}

// Container is a node that holds child nodes: the root, a rule or an at-rule
// with a block.
type Container interface {
	Node
	Nodes() []Node
	list() *nodeList
}

// nodeBase holds the fields shared by every node.
type nodeBase struct {
	parent Container
	pos    Position

	// RawBefore is the whitespace (and stray semicolons) preceding the node.
	RawBefore string
}

func (b *nodeBase) base() *nodeBase    { return b }
func (b *nodeBase) Parent() Container  { return b.parent }
func (b *nodeBase) Position() Position { return b.pos }

// SetPosition records where the node came from, e.g. for nodes synthesized
// from another node's text.
func (b *nodeBase) SetPosition(pos Position) { b.pos = pos }

// nodeList is the ordered child list of a container.
type nodeList struct {
	nodes []Node
}

func (l *nodeList) list() *nodeList { return l }

// Nodes returns the children. The slice must not be modified.
func (l *nodeList) Nodes() []Node { return l.nodes }

func (l *nodeList) indexOf(n Node) int {
	for i, child := range l.nodes {
		if child == n {
			return i
		}
	}
	return -1
}

func (l *nodeList) String() string {
	var buf strings.Builder
	for _, n := range l.nodes {
		buf.WriteString(n.String())
	}
	return buf.String()
}

// Root is the top-level node of a stylesheet.
type Root struct {
	nodeBase
	nodeList

	// RawAfter is the trailing text after the last node.
	RawAfter string
}

func (r *Root) Type() NodeType { return RootNode }

func (r *Root) String() string {
	return r.nodeList.String() + r.RawAfter
}

// AtRule represents a rule starting with an "@" symbol, e.g. @import or @media.
type AtRule struct {
	nodeBase
	nodeList

	Name   string
	Params string

	// RawAfterName holds the whitespace and comments between the name and the params.
	RawAfterName string
	// RawBetween holds the whitespace and comments between the params and ";" or "{".
	RawBetween string
	// RawAfter is the text before the closing "}" of the block.
	RawAfter string

	HasBlock  bool
	Semicolon bool
	unclosed  bool
}

// NewAtRule creates a detached "@name params;" rule.
func NewAtRule(name, params string) *AtRule {
	return &AtRule{Name: name, Params: params, RawAfterName: " ", Semicolon: true}
}

func (r *AtRule) Type() NodeType { return AtRuleNode }

func (r *AtRule) String() string {
	var buf strings.Builder
	buf.WriteString(r.RawBefore)
	buf.WriteString("@" + r.Name)
	buf.WriteString(r.RawAfterName)
	buf.WriteString(r.Params)
	buf.WriteString(r.RawBetween)
	if r.HasBlock {
		buf.WriteString("{")
		buf.WriteString(r.nodeList.String())
		buf.WriteString(r.RawAfter)
		if !r.unclosed {
			buf.WriteString("}")
		}
	} else if r.Semicolon {
		buf.WriteString(";")
	}
	return buf.String()
}

// Source returns the rule text without the preceding whitespace.
func (r *AtRule) Source() string {
	return strings.TrimPrefix(r.String(), r.RawBefore)
}

func (r *AtRule) Remove()             { Remove(r) }
func (r *AtRule) Prev() Node          { return Prev(r) }
func (r *AtRule) Next() Node          { return Next(r) }
func (r *AtRule) InsertBefore(n Node) { InsertBefore(r, n) }

// Rule represents a qualified rule: a selector followed by a block.
type Rule struct {
	nodeBase
	nodeList

	Selector   string
	RawBetween string
	RawAfter   string
	unclosed   bool
}

func (r *Rule) Type() NodeType { return RuleNode }

func (r *Rule) String() string {
	s := r.RawBefore + r.Selector + r.RawBetween + "{" + r.nodeList.String() + r.RawAfter
	if !r.unclosed {
		s += "}"
	}
	return s
}

func (r *Rule) Remove() { Remove(r) }

// Declaration represents a "prop: value" pair. Statements without a colon are
// kept as declarations with an empty value so no source text is lost.
type Declaration struct {
	nodeBase

	Prop       string
	RawBetween string
	Value      string
	Semicolon  bool
}

func (d *Declaration) Type() NodeType { return DeclarationNode }

func (d *Declaration) String() string {
	s := d.RawBefore + d.Prop + d.RawBetween + d.Value
	if d.Semicolon {
		s += ";"
	}
	return s
}

func (d *Declaration) Remove() { Remove(d) }

// Comment represents a /* ... */ comment.
type Comment struct {
	nodeBase

	// Text is the comment body with surrounding whitespace trimmed.
	Text string

	RawLeft  string
	RawRight string
}

func (c *Comment) Type() NodeType { return CommentNode }

func (c *Comment) String() string {
	return c.RawBefore + "/*" + c.RawLeft + c.Text + c.RawRight + "*/"
}

func (c *Comment) Remove()             { Remove(c) }
func (c *Comment) Prev() Node          { return Prev(c) }
func (c *Comment) Next() Node          { return Next(c) }
func (c *Comment) InsertBefore(n Node) { InsertBefore(c, n) }

// Append adds n as the last child of c, detaching it from any previous parent.
func Append(c Container, n Node) {
	Remove(n)
	l := c.list()
	l.nodes = append(l.nodes, n)
	n.base().parent = c
}

// Remove detaches n from its parent. Removing a detached node is a no-op.
func Remove(n Node) {
	b := n.base()
	if b.parent == nil {
		return
	}
	l := b.parent.list()
	if i := l.indexOf(n); i >= 0 {
		l.nodes = append(l.nodes[:i:i], l.nodes[i+1:]...)
	}
	b.parent = nil
}

// InsertBefore inserts n as the sibling immediately preceding existing.
func InsertBefore(existing, n Node) {
	parent := existing.Parent()
	if parent == nil {
		return
	}
	Remove(n)
	l := parent.list()
	i := l.indexOf(existing)
	if i < 0 {
		return
	}
	l.nodes = append(l.nodes[:i], append([]Node{n}, l.nodes[i:]...)...)
	n.base().parent = parent
}

// Prev returns the previous sibling of n, or nil.
func Prev(n Node) Node {
	return sibling(n, -1)
}

// Next returns the next sibling of n, or nil.
func Next(n Node) Node {
	return sibling(n, 1)
}

func sibling(n Node, delta int) Node {
	parent := n.Parent()
	if parent == nil {
		return nil
	}
	l := parent.list()
	i := l.indexOf(n) + delta
	if i < 0 || i >= len(l.nodes) || l.indexOf(n) < 0 {
		return nil
	}
	return l.nodes[i]
}

// Walk calls fn for every descendant of c in document order. Children are
// iterated over a snapshot, so fn may remove or insert nodes; removed nodes
// are not descended into.
func Walk(c Container, fn func(Node)) {
	snapshot := append([]Node(nil), c.Nodes()...)
	for _, n := range snapshot {
		if n.Parent() != c {
			continue
		}
		fn(n)
		if child, ok := n.(Container); ok && n.Parent() == c {
			Walk(child, fn)
		}
	}
}

// WalkComments calls fn for every comment below c.
func WalkComments(c Container, fn func(*Comment)) {
	Walk(c, func(n Node) {
		if comment, ok := n.(*Comment); ok {
			fn(comment)
		}
	})
}

// WalkAtRules calls fn for every at-rule below c whose name matches
// case-insensitively. An empty name matches every at-rule.
func WalkAtRules(c Container, name string, fn func(*AtRule)) {
	Walk(c, func(n Node) {
		if r, ok := n.(*AtRule); ok && (name == "" || strings.EqualFold(r.Name, name)) {
			fn(r)
		}
	})
}
