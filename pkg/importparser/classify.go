package importparser

import (
	"fmt"
	"strings"

	"github.com/siyuan-infoblox/css-imports/pkg/errors"
	"github.com/siyuan-infoblox/css-imports/pkg/stylesheet"
	"github.com/siyuan-infoblox/css-imports/pkg/urlutil"
	"github.com/siyuan-infoblox/css-imports/pkg/valueparser"
)

// ClassifyOptions controls how Classify decides requestability.
type ClassifyOptions struct {
	SupportAbsoluteURL bool
	SupportDataURL     bool
	Externals          *urlutil.Externals
	File               string // used in error context only
}

// Classify extracts the URL and conditions of an @import rule.
//
// It returns (nil, nil) for rules that are skipped on purpose: @import nested
// in a block and rules marked with a webpackIgnore comment. Malformed rules
// return a MALFORMED_IMPORT error; the caller reports it and moves on.
func Classify(atRule *stylesheet.AtRule, opts ClassifyOptions) (*ParsedAtRule, *errors.ImportError) {
	// Convert only top-level @import
	if _, ok := atRule.Parent().(*stylesheet.Root); !ok {
		return nil, nil
	}
	if isIgnored(atRule) {
		return nil, nil
	}

	// `@import url('http://') :root {}`
	if atRule.HasBlock {
		return nil, malformed(atRule, opts.File, errors.ErrMsgChildNodes)
	}

	params := valueparser.Parse(atRule.Params)

	// `@import ;` or `@import foo-bar;`
	if len(params) == 0 || (params[0].Type != valueparser.String && params[0].Type != valueparser.Function) {
		return nil, unableToFindURI(atRule, opts.File)
	}

	var url string
	var isStringValue bool
	first := params[0]
	if first.Type == valueparser.String {
		isStringValue = true
		url = first.Value
	} else {
		// `@import nourl(test.css);`
		if !strings.EqualFold(first.Value, "url") {
			return nil, unableToFindURI(atRule, opts.File)
		}
		isStringValue = len(first.Nodes) != 0 && first.Nodes[0].Type == valueparser.String
		if isStringValue {
			url = first.Nodes[0].Value
		} else {
			url = first.Nodes.String()
		}
	}

	url = urlutil.NormalizeURL(url, isStringValue)

	requestable, needResolve := urlutil.IsURLRequestable(url, urlutil.RequestableOptions{
		SupportAbsoluteURL: opts.SupportAbsoluteURL,
		SupportDataURL:     opts.SupportDataURL,
		Externals:          opts.Externals,
	})

	var prefix string
	if requestable && needResolve {
		if i := strings.LastIndex(url, "!"); i >= 0 {
			prefix = url[:i]
			url = url[i+1:]
		}
	}

	// `@import "";` or `@import url();`
	if strings.TrimSpace(url) == "" {
		return nil, unableToFindURI(atRule, opts.File)
	}

	return &ParsedAtRule{
		Node:        atRule,
		Prefix:      prefix,
		URL:         url,
		Conditions:  parseConditions(params[1:]),
		Requestable: requestable,
		NeedResolve: needResolve,
	}, nil
}

// parseConditions splits the tokens after the URL into layer, supports and
// media. layer and supports take everything buffered up to and including
// them; whatever is left at the end is the media query list.
func parseConditions(rest valueparser.Nodes) Conditions {
	var cond Conditions
	if len(rest) == 0 {
		return cond
	}

	var buf valueparser.Nodes
	flush := func() *string {
		s := strings.ToLower(strings.TrimSpace(buf.String()))
		buf = nil
		return &s
	}

	for _, node := range rest {
		switch {
		case node.Is(valueparser.Function, "layer"):
			buf = append(buf, node.Nodes...)
			cond.Layer = flush()
		case node.Is(valueparser.Word, "layer"):
			cond.Layer = flush()
		case node.Is(valueparser.Function, "supports"):
			buf = append(buf, node.Nodes...)
			cond.Supports = flush()
		default:
			buf = append(buf, node)
		}
	}

	if len(buf) > 0 {
		cond.Media = flush()
	}
	return cond
}

// isIgnored reports whether the rule carries a webpackIgnore marker, either
// in a comment between the name and the params or in the comment right
// before it.
func isIgnored(atRule *stylesheet.AtRule) bool {
	afterName := atRule.RawAfterName
	if strings.TrimSpace(afterName) != "" {
		if i := strings.LastIndex(afterName, "/*"); i >= 0 && urlutil.IsIgnored(afterName[i:]) {
			return true
		}
	}
	if prev, ok := atRule.Prev().(*stylesheet.Comment); ok && urlutil.IsIgnored(prev.Text) {
		return true
	}
	return false
}

func ruleText(atRule *stylesheet.AtRule) string {
	src := atRule.Source()
	if atRule.Semicolon {
		src = strings.TrimSuffix(src, ";")
	}
	return src
}

func malformed(atRule *stylesheet.AtRule, file, msg string) *errors.ImportError {
	pos := atRule.Position()
	return errors.New(errors.KindMalformedImport, msg).WithContext(errors.Context{
		File:   file,
		Line:   pos.Line,
		Column: pos.Column,
		Text:   ruleText(atRule),
	})
}

func unableToFindURI(atRule *stylesheet.AtRule, file string) *errors.ImportError {
	e := malformed(atRule, file, "")
	e.Message = fmt.Sprintf(errors.ErrMsgUnableToFindURI, e.Context.Text)
	return e
}
