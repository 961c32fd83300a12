package importparser

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/siyuan-infoblox/css-imports/pkg/errors"
	"github.com/siyuan-infoblox/css-imports/pkg/stylesheet"
	"github.com/siyuan-infoblox/css-imports/pkg/urlutil"
)

func strPtr(s string) *string { return &s }

func firstImport(t *testing.T, css string) *stylesheet.AtRule {
	t.Helper()
	root, err := stylesheet.Parse(css)
	require.NoError(t, err)
	var found *stylesheet.AtRule
	stylesheet.WalkAtRules(root, "import", func(r *stylesheet.AtRule) {
		if found == nil {
			found = r
		}
	})
	require.NotNil(t, found, "no @import in %q", css)
	return found
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name            string
		css             string
		opts            ClassifyOptions
		wantURL         string
		wantPrefix      string
		wantConditions  Conditions
		wantRequestable bool
		wantNeedResolve bool
	}{
		{
			name:            "double quoted string",
			css:             `@import "a.css";`,
			wantURL:         "a.css",
			wantRequestable: true,
			wantNeedResolve: true,
		},
		{
			name:            "url function unquoted",
			css:             `@import url(a.css);`,
			wantURL:         "a.css",
			wantRequestable: true,
			wantNeedResolve: true,
		},
		{
			name:            "upper case url function",
			css:             `@import URL('a.css');`,
			wantURL:         "a.css",
			wantRequestable: true,
			wantNeedResolve: true,
		},
		{
			name:            "bare layer",
			css:             `@import url(a.css) layer;`,
			wantURL:         "a.css",
			wantConditions:  Conditions{Layer: strPtr("")},
			wantRequestable: true,
			wantNeedResolve: true,
		},
		{
			name:            "named layer",
			css:             `@import url(a.css) layer(foo);`,
			wantURL:         "a.css",
			wantConditions:  Conditions{Layer: strPtr("foo")},
			wantRequestable: true,
			wantNeedResolve: true,
		},
		{
			name:            "supports and media",
			css:             `@import url(a.css) supports(display: flex) screen;`,
			wantURL:         "a.css",
			wantConditions:  Conditions{Supports: strPtr("display: flex"), Media: strPtr("screen")},
			wantRequestable: true,
			wantNeedResolve: true,
		},
		{
			name:    "all conditions lower cased",
			css:     `@import url("a.css") layer(Base) supports(Display:Grid) SCREEN and (min-width: 100px);`,
			wantURL: "a.css",
			wantConditions: Conditions{
				Layer:    strPtr("base"),
				Supports: strPtr("display:grid"),
				Media:    strPtr("screen and (min-width: 100px)"),
			},
			wantRequestable: true,
			wantNeedResolve: true,
		},
		{
			name:            "media list",
			css:             `@import "a.css" print, screen;`,
			wantURL:         "a.css",
			wantConditions:  Conditions{Media: strPtr("print, screen")},
			wantRequestable: true,
			wantNeedResolve: true,
		},
		{
			name:            "loader prefix",
			css:             `@import "style-loader!css-loader!./a.css";`,
			wantURL:         "./a.css",
			wantPrefix:      "style-loader!css-loader",
			wantRequestable: true,
			wantNeedResolve: true,
		},
		{
			name:            "absolute url not supported",
			css:             `@import url(http://example.com/a.css) screen;`,
			wantURL:         "http://example.com/a.css",
			wantConditions:  Conditions{Media: strPtr("screen")},
			wantRequestable: false,
			wantNeedResolve: false,
		},
		{
			name:            "absolute url supported",
			css:             `@import "https://example.com/a.css";`,
			opts:            ClassifyOptions{SupportAbsoluteURL: true},
			wantURL:         "https://example.com/a.css",
			wantRequestable: true,
			wantNeedResolve: false,
		},
		{
			name:            "percent encoded",
			css:             `@import "my%20file.css";`,
			wantURL:         "my file.css",
			wantRequestable: true,
			wantNeedResolve: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			rule, err := Classify(firstImport(t, tt.css), tt.opts)
			req.Nil(err)
			req.NotNil(rule)
			req.Equal(tt.wantURL, rule.URL)
			req.Equal(tt.wantPrefix, rule.Prefix)
			req.Equal(tt.wantConditions, rule.Conditions)
			req.Equal(tt.wantRequestable, rule.Requestable, "requestable")
			req.Equal(tt.wantNeedResolve, rule.NeedResolve, "needResolve")
		})
	}
}

func TestClassify_Externals(t *testing.T) {
	req := require.New(t)
	externals, err := urlutil.CompileExternals([]string{"/^vendor\\//"})
	req.NoError(err)

	rule, ierr := Classify(firstImport(t, `@import "vendor/reset.css";`), ClassifyOptions{Externals: externals})
	req.Nil(ierr)
	req.False(rule.Requestable)
	req.False(rule.NeedResolve)
}

func TestClassify_Skipped(t *testing.T) {
	tests := []struct {
		name string
		css  string
	}{
		{"nested in media", `@media print { @import "a.css"; }`},
		{"ignore comment in after name", `@import /* webpackIgnore: true */ "a.css";`},
		{"ignore comment before", "/* webpackIgnore: true */\n@import 'a.css';"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			rule, err := Classify(firstImport(t, tt.css), ClassifyOptions{})
			req.Nil(err)
			req.Nil(rule)
		})
	}
}

func TestClassify_NotIgnoredWhenFalse(t *testing.T) {
	req := require.New(t)
	rule, err := Classify(firstImport(t, `@import /* webpackIgnore: false */ "a.css";`), ClassifyOptions{})
	req.Nil(err)
	req.NotNil(rule)
	req.Equal("a.css", rule.URL)
}

func TestClassify_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		css     string
		wantMsg string
	}{
		{"empty url function", `@import url();`, `Unable to find uri in "@import url()"`},
		{"empty string", `@import "";`, `Unable to find uri in "@import """`},
		{"bare word", `@import foo-bar;`, `Unable to find uri in "@import foo-bar"`},
		{"wrong function", `@import nourl(test.css);`, `Unable to find uri in "@import nourl(test.css)"`},
		{"no params", `@import ;`, `Unable to find uri in "@import "`},
		{"child nodes", `@import url(a.css) { a {} }`, errors.ErrMsgChildNodes},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			rule, err := Classify(firstImport(t, tt.css), ClassifyOptions{File: "/src/a.css"})
			req.Nil(rule)
			req.NotNil(err)
			req.Equal(errors.KindMalformedImport, err.Kind)
			req.Equal(tt.wantMsg, err.Message)
			req.Equal("/src/a.css", err.Context.File)
			req.Equal(1, err.Context.Line)
		})
	}
}
