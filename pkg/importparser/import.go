package importparser

import (
	"context"

	"github.com/siyuan-infoblox/css-imports/pkg/errors"
	"github.com/siyuan-infoblox/css-imports/pkg/stylesheet"
)

// importNameFormat names the module binding of a deduplicated import.
const importNameFormat = "___CSS_LOADER_AT_RULE_IMPORT_%d___"

// Conditions are the cascade conditions of one @import occurrence. A nil
// field means the condition is absent; an empty Layer is the anonymous layer.
type Conditions struct {
	Layer    *string `json:"layer,omitempty" yaml:"layer,omitempty"`
	Supports *string `json:"supports,omitempty" yaml:"supports,omitempty"`
	Media    *string `json:"media,omitempty" yaml:"media,omitempty"`
}

// ParsedAtRule is a classified @import, owned by the parser for the duration
// of one Process call.
type ParsedAtRule struct {
	Index       int                // position in the collected list
	Node        *stylesheet.AtRule // removed once resolution settles
	Prefix      string             // loader chain split off the URL, empty if none
	URL         string             // normalized import target
	Conditions                     // layer, supports and media
	Requestable bool               // becomes a module request
	NeedResolve bool               // must go through the resolver first
}

// Key returns the dedup key of the import for the given URL.
func (r *ParsedAtRule) Key(url string) string {
	if r.Prefix != "" {
		return r.Prefix + "!" + url
	}
	return url
}

// Import is a module dependency emitted once per unique request.
type Import struct {
	ImportName string `json:"importName" yaml:"importName"`
	URL        string `json:"url" yaml:"url"`
	Index      int    `json:"index" yaml:"index"`
}

// API is an apply record: either a reference to an Import by name or a
// literal URL left to the runtime, plus the occurrence's conditions.
type API struct {
	ImportName string `json:"importName,omitempty" yaml:"importName,omitempty"`
	URL        string `json:"url,omitempty" yaml:"url,omitempty"`
	Conditions `yaml:",inline"`
	Index      int `json:"index" yaml:"index"`
}

// Result is the outcome of processing one stylesheet.
type Result struct {
	Imports     []Import     `json:"imports" yaml:"imports"`
	API         []API        `json:"api" yaml:"api"`
	Removed     int          `json:"removed" yaml:"removed"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
}

// Severity of a diagnostic.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Diagnostic is a non-fatal problem found while processing a stylesheet.
type Diagnostic struct {
	Severity Severity         `json:"severity" yaml:"severity"`
	Kind     errors.ErrorKind `json:"kind" yaml:"kind"`
	Message  string           `json:"message" yaml:"message"`
	Context  errors.Context   `json:"context" yaml:"context"`
}

func newDiagnostic(severity Severity, err *errors.ImportError) Diagnostic {
	msg := err.Message
	if err.Wrapped != nil {
		msg += ": " + err.Wrapped.Error()
	}
	return Diagnostic{
		Severity: severity,
		Kind:     err.Kind,
		Message:  msg,
		Context:  err.Context,
	}
}

// Err returns the diagnostic as an error.
func (d Diagnostic) Err() error {
	return errors.New(d.Kind, d.Message).WithContext(d.Context)
}

// Reporter receives diagnostics as they are produced.
type Reporter interface {
	Report(Diagnostic)
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(Diagnostic)

func (f ReporterFunc) Report(d Diagnostic) { f(d) }

// Resolver resolves a request relative to dir into an absolute path.
type Resolver interface {
	Resolve(ctx context.Context, dir, request string) (string, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context, dir, request string) (string, error)

func (f ResolverFunc) Resolve(ctx context.Context, dir, request string) (string, error) {
	return f(ctx, dir, request)
}

// ResolveOptions describes the kind of resolver the parser asks for.
// "..." in a list stands for the resolver's defaults.
type ResolveOptions struct {
	DependencyType string
	ConditionNames []string
	MainFields     []string
	MainFiles      []string
	Extensions     []string
	PreferRelative bool
}

// StyleResolveOptions returns the options used to resolve stylesheet imports.
func StyleResolveOptions() ResolveOptions {
	return ResolveOptions{
		DependencyType: "css",
		ConditionNames: []string{"style"},
		MainFields:     []string{"css", "style", "main", "..."},
		MainFiles:      []string{"index", "..."},
		Extensions:     []string{".css", "..."},
		PreferRelative: true,
	}
}

// LoaderContext carries what the parser needs from the surrounding build.
type LoaderContext struct {
	ResourcePath string // absolute path of the stylesheet being processed
	Context      string // directory imports are resolved against
	RootContext  string // base for root-relative URLs, may be empty
	GetResolve   func(ResolveOptions) Resolver
	Diagnostics  Reporter // optional
}

// FilterRequest is passed to the filter for each classified import.
type FilterRequest struct {
	URL          string
	Media        *string
	ResourcePath string
	Supports     *string
	Layer        *string
}

// FilterFunc decides whether an import is kept. Returning false drops the
// import and leaves the at-rule in the stylesheet.
type FilterFunc func(ctx context.Context, req FilterRequest) (bool, error)
