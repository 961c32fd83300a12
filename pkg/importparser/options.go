package importparser

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/siyuan-infoblox/css-imports/pkg/errors"
	"github.com/siyuan-infoblox/css-imports/pkg/logging"
	"github.com/siyuan-infoblox/css-imports/pkg/urlutil"
)

// Options configures a Parser.
type Options struct {
	SupportAbsoluteURL bool                // keep http(s) URLs as requestable
	SupportDataURL     bool                // keep data: URLs as requestable
	Externals          []string            // exact URLs or /regexp/ left to the runtime
	Filter             FilterFunc          // optional keep/drop decision per import
	CSSStyleSheet      bool                // @import is not allowed at all
	StrictResolve      bool                // warn about imports the resolver cannot find
	Concurrency        int                 // max parallel resolutions, 0 for no limit
	URLHandler         func(string) string // formats the request of an emitted Import
}

// Validate checks the options without compiling them.
func (o Options) Validate() error {
	if o.Concurrency < 0 {
		return errors.Newf(errors.KindConfigInvalid, "concurrency must not be negative, got %d", o.Concurrency)
	}
	if _, err := urlutil.CompileExternals(o.Externals); err != nil {
		return errors.Wrap(err, errors.KindConfigInvalid, "invalid externals")
	}
	return nil
}

// Parser extracts, resolves and deduplicates the @import rules of stylesheets.
// A Parser holds no per-stylesheet state and may be shared across goroutines.
type Parser struct {
	opts      Options
	externals *urlutil.Externals
	logger    zerolog.Logger
}

// New validates opts and creates a Parser.
func New(opts Options) (*Parser, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", errors.ErrMsgFailedToCreateImportParser, err)
	}
	externals, err := urlutil.CompileExternals(opts.Externals)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errors.ErrMsgFailedToCreateImportParser, err)
	}
	if opts.URLHandler == nil {
		opts.URLHandler = func(request string) string { return request }
	}
	return &Parser{
		opts:      opts,
		externals: externals,
		logger:    logging.GetLogger("importparser"),
	}, nil
}

func (p *Parser) classifyOptions(file string) ClassifyOptions {
	return ClassifyOptions{
		SupportAbsoluteURL: p.opts.SupportAbsoluteURL,
		SupportDataURL:     p.opts.SupportDataURL,
		Externals:          p.externals,
		File:               file,
	}
}
