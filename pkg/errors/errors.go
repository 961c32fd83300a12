package errors

import (
	"errors"
	"fmt"
)

// Error message constants for the css-imports application
const (
	// File processing errors
	ErrMsgFailedToReadFile       = "failed to read file"
	ErrMsgFailedToParseFile      = "failed to parse stylesheet"
	ErrMsgFailedToWriteFile      = "failed to write file"
	ErrMsgFailedToProcessImports = "failed to process imports"
	ErrMsgFailedToRenderReport   = "failed to render report"

	// Directory processing errors
	ErrMsgFailedToCheckPath          = "failed to check path"
	ErrMsgFailedToFindStyleFiles     = "failed to find stylesheets in directory"
	ErrMsgFilesFailedToProcess       = "%d files failed to process"
	ErrMsgFailedToCreateImportParser = "failed to create import parser"

	// Import diagnostics
	ErrMsgUnableToFindURI  = "Unable to find uri in \"%s\""
	ErrMsgChildNodes       = "It looks like you didn't end your @import statement correctly. Child nodes are attached to it."
	ErrMsgImportNotAllowed = "'@import' rules are not allowed here and will not be processed"
	ErrMsgUnresolvedImport = "Can't resolve '%s' in '%s'"
	ErrMsgFilterFailed     = "import filter failed for %q"

	// Info/warning messages
	WarnMsgProcessingDirWithoutInPlace = "Warning: Processing directory without --in-place flag. No files will be modified."
	InfoMsgUseInPlaceFlag              = "Use --in-place flag to strip resolved @import rules from the stylesheets."
	InfoMsgNoStyleFilesFound           = "No stylesheets found in directory: %s"
	InfoMsgFoundStyleFiles             = "Found %s in directory: %s"
	InfoMsgRootContext                 = "Root context: %s"
	InfoMsgProcessedFiles              = "Processed: %s"
	InfoMsgErrorProcessing             = "Error processing %s: %v"
	InfoMsgProcessedCount              = "\nProcessed %s successfully"
	InfoMsgErrorCount                  = ", %s had errors"
)

// ErrorKind classifies faults raised while analysing @import rules.
type ErrorKind string

const (
	KindUnknown          ErrorKind = "UNKNOWN"
	KindMalformedImport  ErrorKind = "MALFORMED_IMPORT"
	KindImportNotAllowed ErrorKind = "IMPORT_NOT_ALLOWED"
	KindUnresolvedImport ErrorKind = "UNRESOLVED_IMPORT"
	KindFilterFailed     ErrorKind = "FILTER_FAILED"
	KindStylesheetSyntax ErrorKind = "STYLESHEET_SYNTAX"
	KindConfigInvalid    ErrorKind = "CONFIG_INVALID"
)

// Context is the minimal diagnostic data captured for an error. It never holds
// a reference to a live AST node.
type Context struct {
	File   string `json:"file,omitempty" yaml:"file,omitempty"`
	Line   int    `json:"line,omitempty" yaml:"line,omitempty"`
	Column int    `json:"column,omitempty" yaml:"column,omitempty"`
	Text   string `json:"text,omitempty" yaml:"text,omitempty"`
}

// ImportError is a tagged error carrying its kind and source context.
type ImportError struct {
	Kind    ErrorKind
	Message string
	Context Context
	Wrapped error
}

// Error implements the error interface
func (e *ImportError) Error() string {
	msg := e.Message
	if e.Context.File != "" {
		msg = fmt.Sprintf("%s:%d:%d: %s", e.Context.File, e.Context.Line, e.Context.Column, msg)
	}
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, msg, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, msg)
}

// Unwrap implements the errors.Unwrap interface
func (e *ImportError) Unwrap() error {
	return e.Wrapped
}

// Is matches another ImportError of the same kind.
func (e *ImportError) Is(target error) bool {
	var targetErr *ImportError
	if errors.As(target, &targetErr) {
		return e.Kind == targetErr.Kind
	}
	return false
}

// New creates an ImportError with the given kind and message
func New(kind ErrorKind, message string) *ImportError {
	return &ImportError{Kind: kind, Message: message}
}

// Newf creates an ImportError with a formatted message
func Newf(kind ErrorKind, format string, args ...interface{}) *ImportError {
	return &ImportError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps err in an ImportError. Returns nil when err is nil.
func Wrap(err error, kind ErrorKind, message string) *ImportError {
	if err == nil {
		return nil
	}
	return &ImportError{Kind: kind, Message: message, Wrapped: err}
}

// WithContext attaches source context to the error.
func (e *ImportError) WithContext(ctx Context) *ImportError {
	e.Context = ctx
	return e
}

// IsKind checks if err is an ImportError of the given kind
func IsKind(err error, kind ErrorKind) bool {
	var importErr *ImportError
	if errors.As(err, &importErr) {
		return importErr.Kind == kind
	}
	return false
}

// KindOf returns the kind of err, or KindUnknown if it is not an ImportError
func KindOf(err error) ErrorKind {
	var importErr *ImportError
	if errors.As(err, &importErr) {
		return importErr.Kind
	}
	return KindUnknown
}

// AsImportError returns the first ImportError in err's chain
func AsImportError(err error) (*ImportError, bool) {
	var importErr *ImportError
	ok := errors.As(err, &importErr)
	return importErr, ok
}
