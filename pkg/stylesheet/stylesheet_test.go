package stylesheet

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/siyuan-infoblox/css-imports/pkg/errors"
)

func TestParse_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		css  string
	}{
		{"empty", ""},
		{"whitespace only", "  \n\t"},
		{"single import", `@import "a.css";`},
		{"import without semicolon", `@import url(a.css)`},
		{"import with media", "@import url('a.css') screen and (min-width: 100px);\n"},
		{"comments", "/* a */\n@import 'b.css'; /* trailing */\n"},
		{"comment in after name", `@import /* webpackIgnore: true */ "a.css";`},
		{"rule", "a { color: red; background: url(x.png) }\n"},
		{"nested media", "@media screen {\n  a { color: red }\n  @import 'x.css';\n}\n"},
		{"stray semicolons", ";;@import 'a.css';;"},
		{"declaration without colon", "a { foo }"},
		{"layer block", "@layer base {\n}\n@layer a, b;"},
		{"supports with functions", `@supports (display: grid) and (not (display: inline-grid)) { a {} }`},
		{"unclosed block", "a { color: red;"},
		{"custom property", ":root { --x: { a: b }; }"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			root, err := Parse(tt.css)
			req.NoError(err)
			req.Equal(tt.css, root.String())
		})
	}
}

func TestParse_AtRule(t *testing.T) {
	req := require.New(t)
	root, err := Parse("a {}\n@import /* x */ url(a.css) screen /* y */ ;")
	req.NoError(err)
	req.Len(root.Nodes(), 2)

	at, ok := root.Nodes()[1].(*AtRule)
	req.True(ok)
	req.Equal("import", at.Name)
	req.Equal(" /* x */ ", at.RawAfterName)
	req.Equal("url(a.css) screen", at.Params)
	req.Equal(" /* y */ ", at.RawBetween)
	req.True(at.Semicolon)
	req.False(at.HasBlock)
	req.Equal("\n", at.RawBefore)
	req.Equal(Position{Line: 2, Column: 1}, at.Position())
	req.Equal(Node(root), at.Parent())
}

func TestParse_Declaration(t *testing.T) {
	req := require.New(t)
	root, err := Parse("a { color : red ; b: url(x:y) }")
	req.NoError(err)

	rule, ok := root.Nodes()[0].(*Rule)
	req.True(ok)
	req.Equal("a", rule.Selector)
	req.Len(rule.Nodes(), 2)

	d := rule.Nodes()[0].(*Declaration)
	req.Equal("color", d.Prop)
	req.Equal(" : ", d.RawBetween)
	req.Equal("red ", d.Value)
	req.True(d.Semicolon)

	d = rule.Nodes()[1].(*Declaration)
	req.Equal("b", d.Prop)
	req.Equal("url(x:y) ", d.Value)
	req.False(d.Semicolon)
}

func TestParse_Comment(t *testing.T) {
	req := require.New(t)
	root, err := Parse("/*  @mpx-import 'a.css'  */")
	req.NoError(err)

	c, ok := root.Nodes()[0].(*Comment)
	req.True(ok)
	req.Equal("@mpx-import 'a.css'", c.Text)
	req.Equal("  ", c.RawLeft)
	req.Equal("  ", c.RawRight)
}

func TestParse_SyntaxErrors(t *testing.T) {
	tests := []struct {
		name string
		css  string
	}{
		{"unclosed comment", "a {} /* never ends"},
		{"unclosed string", `@import "a.css`},
		{"stray closing brace", "a {} }"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			_, err := Parse(tt.css)
			req.Error(err)
			req.True(errors.IsKind(err, errors.KindStylesheetSyntax), "got %v", err)
		})
	}
}

func TestMutation(t *testing.T) {
	req := require.New(t)
	root, err := Parse("@import 'a.css';\n/* keep */\n@import 'b.css';\na {}")
	req.NoError(err)

	first := root.Nodes()[0].(*AtRule)
	comment := root.Nodes()[1].(*Comment)

	req.Nil(first.Prev())
	req.Equal(Node(comment), first.Next())
	req.Equal(Node(first), comment.Prev())

	first.Remove()
	req.Nil(first.Parent())
	req.Equal("\n/* keep */\n@import 'b.css';\na {}", root.String())

	// removing twice is a no-op
	first.Remove()
	req.Len(root.Nodes(), 3)

	inserted := NewAtRule("import", `"c.css"`)
	inserted.RawBefore = comment.RawBefore
	comment.InsertBefore(inserted)
	comment.Remove()
	req.Equal("\n@import \"c.css\";\n@import 'b.css';\na {}", root.String())
	req.Equal(Node(root), inserted.Parent())
}

func TestWalkAtRules(t *testing.T) {
	req := require.New(t)
	root, err := Parse("@IMPORT 'a.css';\n@media print { @import 'b.css'; }\n@charset 'utf-8';")
	req.NoError(err)

	var names []string
	WalkAtRules(root, "import", func(r *AtRule) {
		names = append(names, r.Params)
	})
	req.Equal([]string{"'a.css'", "'b.css'"}, names)

	var all int
	WalkAtRules(root, "", func(*AtRule) { all++ })
	req.Equal(4, all)
}

func TestWalk_RemoveDuringWalk(t *testing.T) {
	req := require.New(t)
	root, err := Parse("@media print { @import 'a.css'; }\n@import 'b.css';")
	req.NoError(err)

	var visited []string
	Walk(root, func(n Node) {
		if r, ok := n.(*AtRule); ok {
			visited = append(visited, r.Name)
			if r.Name == "media" {
				r.Remove()
			}
		}
	})
	req.Equal([]string{"media", "import"}, visited)
	req.Equal("\n@import 'b.css';", root.String())
}

func TestWalkComments(t *testing.T) {
	req := require.New(t)
	root, err := Parse("/* a */ x { /* b */ } @media print { /* c */ }")
	req.NoError(err)

	var texts []string
	WalkComments(root, func(c *Comment) {
		texts = append(texts, c.Text)
	})
	req.Equal([]string{"a", "b", "c"}, texts)
}
