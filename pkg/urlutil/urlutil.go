// Package urlutil contains the URL handling shared by the @import parser:
// normalization of the raw URL text, requestability checks and conversion
// of a URL into a module request.
package urlutil

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

var (
	windowsPathRe   = regexp.MustCompile(`^[a-zA-Z]:[/\\]|^\\\\`)
	absoluteURLRe   = regexp.MustCompile(`^[a-zA-Z][a-zA-Z\d+\-.]*:`)
	httpURLRe       = regexp.MustCompile(`(?i)^https?:`)
	dataURLRe       = regexp.MustCompile(`(?i)^data:`)
	fileURLRe       = regexp.MustCompile(`(?i)^file:`)
	templateRe      = regexp.MustCompile("^[{}\\[\\]#*;,'§$%&(=?`´^°<>]")
	escapedNewline  = regexp.MustCompile(`\\(\n|\r\n|\r|\f)`)
	cssEscapeRe     = regexp.MustCompile(`(?i)\\([\da-f]{1,6}[\x20\t\n\r\f]?|([\x20\t\n\r\f])|.)`)
	moduleRequestRe = regexp.MustCompile(`^[^?]*~`)
	relativeRe      = regexp.MustCompile(`^\.\.?/`)
	ignoreCommentRe = regexp.MustCompile(`webpackIgnore:(\s+)?(true|false)`)
	encodeDataRe    = regexp.MustCompile(`[!'()*]`)
)

const (
	cssWhitespace = " \t\n\r\f"
	uriReserved   = ";/?:@&=+$,#"
)

// NormalizeURL cleans the URL text taken from an @import rule. isStringValue
// is set when the URL came from a quoted string, where escaped newlines are
// line continuations.
func NormalizeURL(rawURL string, isStringValue bool) string {
	normalized := strings.Trim(rawURL, cssWhitespace)

	if isStringValue {
		normalized = escapedNewline.ReplaceAllString(normalized, "")
	}

	if IsWindowsPath(rawURL) {
		return normalized
	}

	normalized = Unescape(normalized)

	if IsDataURL(rawURL) {
		return encodeDataRe.ReplaceAllStringFunc(normalized, func(c string) string {
			return fmt.Sprintf("%%%x", c[0])
		})
	}

	if decoded, err := decodeURI(normalized, uriReserved); err == nil {
		normalized = decoded
	}
	return normalized
}

// IsDataURL reports whether u uses the data: scheme.
func IsDataURL(u string) bool {
	return dataURLRe.MatchString(strings.TrimSpace(u))
}

// IsWindowsPath reports whether u is an absolute Windows path such as
// C:\styles\a.css or \\server\share.
func IsWindowsPath(u string) bool {
	return windowsPathRe.MatchString(u)
}

// Unescape resolves CSS escapes: hex escapes of up to six digits (with one
// optional trailing whitespace), escaped whitespace and escaped characters.
func Unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	return cssEscapeRe.ReplaceAllStringFunc(s, func(match string) string {
		m := cssEscapeRe.FindStringSubmatch(match)
		escaped, whitespace := m[1], m[2]
		if whitespace != "" {
			return escaped
		}
		code, err := strconv.ParseUint(strings.TrimRight(escaped, cssWhitespace), 16, 32)
		if err != nil {
			return escaped
		}
		if code > utf8.MaxRune {
			return string(utf8.RuneError)
		}
		return string(rune(code))
	})
}

// decodeURI decodes percent-encoded UTF-8 sequences, leaving escapes of the
// characters in keep untouched. Malformed sequences are an error.
func decodeURI(s, keep string) (string, error) {
	if !strings.Contains(s, "%") {
		return s, nil
	}

	var buf strings.Builder
	for i := 0; i < len(s); {
		if s[i] != '%' {
			buf.WriteByte(s[i])
			i++
			continue
		}

		b, ok := hexByte(s, i)
		if !ok {
			return "", fmt.Errorf("malformed URI sequence at %d", i)
		}
		if b < utf8.RuneSelf {
			if strings.IndexByte(keep, b) >= 0 {
				buf.WriteString(s[i : i+3])
			} else {
				buf.WriteByte(b)
			}
			i += 3
			continue
		}

		n := utf8SequenceLength(b)
		if n == 0 {
			return "", fmt.Errorf("malformed URI sequence at %d", i)
		}
		seq := []byte{b}
		j := i + 3
		for len(seq) < n {
			c, ok := hexByte(s, j)
			if !ok || c&0xC0 != 0x80 {
				return "", fmt.Errorf("malformed URI sequence at %d", j)
			}
			seq = append(seq, c)
			j += 3
		}
		if !utf8.Valid(seq) {
			return "", fmt.Errorf("malformed URI sequence at %d", i)
		}
		buf.Write(seq)
		i = j
	}
	return buf.String(), nil
}

func hexByte(s string, i int) (byte, bool) {
	if i+2 >= len(s) || s[i] != '%' {
		return 0, false
	}
	v, err := strconv.ParseUint(s[i+1:i+3], 16, 8)
	if err != nil {
		return 0, false
	}
	return byte(v), true
}

func utf8SequenceLength(b byte) int {
	switch {
	case b&0xE0 == 0xC0:
		return 2
	case b&0xF0 == 0xE0:
		return 3
	case b&0xF8 == 0xF0:
		return 4
	}
	return 0
}

// RequestableOptions controls which URL classes count as requestable.
type RequestableOptions struct {
	SupportAbsoluteURL bool
	SupportDataURL     bool
	Externals          *Externals
}

// IsURLRequestable reports whether u names something the bundler should
// depend on, and whether it needs to go through module resolution first.
func IsURLRequestable(u string, opts RequestableOptions) (requestable, needResolve bool) {
	switch {
	case strings.HasPrefix(u, "//"):
		return false, false
	case strings.HasPrefix(u, "#"):
		return false, false
	}

	if IsDataURL(u) && opts.SupportDataURL {
		if _, err := decodeURI(u, ""); err != nil {
			return false, false
		}
		return true, false
	}

	if fileURLRe.MatchString(u) {
		return true, true
	}

	if absoluteURLRe.MatchString(u) && !IsWindowsPath(u) {
		if opts.SupportAbsoluteURL && httpURLRe.MatchString(u) {
			return true, false
		}
		return false, false
	}

	if templateRe.MatchString(u) {
		return false, false
	}

	if opts.Externals.Match(u) {
		return false, false
	}

	return true, true
}

// Requestify turns a URL into a module request. Root-relative URLs are
// resolved against rootContext when it is set.
func Requestify(u, rootContext string) string {
	if fileURLRe.MatchString(u) {
		if parsed, err := url.Parse(u); err == nil && parsed.Path != "" {
			return parsed.Path
		}
		return u
	}

	var request string
	switch {
	case IsWindowsPath(u):
		request = u
	case strings.HasPrefix(u, "/"):
		switch {
		case rootContext == "":
			request = u
		case moduleRequestRe.MatchString(rootContext):
			root := rootContext
			if !strings.HasSuffix(root, "~") && !strings.HasSuffix(root, "/") {
				root += "/"
			}
			request = root + u[1:]
		default:
			request = rootContext + u
		}
	case relativeRe.MatchString(u):
		request = u
	default:
		request = "./" + u
	}

	return moduleRequestRe.ReplaceAllString(request, "")
}

// IsIgnored reports whether text carries a "webpackIgnore: true" marker.
func IsIgnored(text string) bool {
	m := ignoreCommentRe.FindStringSubmatch(text)
	return m != nil && m[2] == "true"
}

// Externals matches URLs that must be left to the runtime. Entries are exact
// URLs or regular expressions written as /pattern/.
type Externals struct {
	exact    map[string]struct{}
	patterns []*regexp.Regexp
}

// CompileExternals compiles the externals list.
func CompileExternals(entries []string) (*Externals, error) {
	e := &Externals{exact: make(map[string]struct{})}
	for _, entry := range entries {
		if len(entry) >= 2 && strings.HasPrefix(entry, "/") && strings.HasSuffix(entry, "/") {
			re, err := regexp.Compile(entry[1 : len(entry)-1])
			if err != nil {
				return nil, fmt.Errorf("invalid external %q: %w", entry, err)
			}
			e.patterns = append(e.patterns, re)
			continue
		}
		e.exact[entry] = struct{}{}
	}
	return e, nil
}

// Match reports whether u is external. A nil Externals matches nothing.
func (e *Externals) Match(u string) bool {
	if e == nil {
		return false
	}
	if _, ok := e.exact[u]; ok {
		return true
	}
	for _, re := range e.patterns {
		if re.MatchString(u) {
			return true
		}
	}
	return false
}

// Len returns the number of entries.
func (e *Externals) Len() int {
	if e == nil {
		return 0
	}
	return len(e.exact) + len(e.patterns)
}
