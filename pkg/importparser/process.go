package importparser

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/siyuan-infoblox/css-imports/pkg/errors"
	"github.com/siyuan-infoblox/css-imports/pkg/logging"
	"github.com/siyuan-infoblox/css-imports/pkg/stylesheet"
	"github.com/siyuan-infoblox/css-imports/pkg/urlutil"
)

// slot is the outcome of resolving one ParsedAtRule. Each resolution task
// writes only its own slot; nothing else is shared between tasks.
type slot struct {
	keep   bool        // emit records for this import
	remove bool        // remove the at-rule from the stylesheet
	url    string      // resolved path, or the URL itself when no resolution was needed
	diag   *Diagnostic // reported after all tasks settle
}

// Process rewrites comment imports, classifies every @import of root,
// resolves them concurrently and returns the deduplicated records.
//
// The stylesheet is only mutated by the calling goroutine: removals are
// applied after every resolution has settled, in document order. The only
// error returned is context cancellation or a missing resolver factory;
// everything else becomes a diagnostic.
func (p *Parser) Process(ctx context.Context, root *stylesheet.Root, lc LoaderContext) (*Result, error) {
	done := logging.LogOperationStart(p.logger, "process "+lc.ResourcePath)
	defer done()

	result := &Result{}
	report := func(d Diagnostic) {
		result.Diagnostics = append(result.Diagnostics, d)
		if lc.Diagnostics != nil {
			lc.Diagnostics.Report(d)
		}
	}

	if n := RewriteCommentImports(root); n > 0 {
		p.logger.Debug().Int("count", n).Str("file", lc.ResourcePath).Msg("Rewrote comment imports")
	}

	parsed := p.collect(root, lc.ResourcePath, report)
	if len(parsed) == 0 {
		return result, nil
	}

	if lc.GetResolve == nil {
		return nil, errors.New(errors.KindConfigInvalid, "loader context has no resolver factory")
	}
	resolver := lc.GetResolve(StyleResolveOptions())

	slots := make([]slot, len(parsed))
	g, gctx := errgroup.WithContext(ctx)
	if p.opts.Concurrency > 0 {
		g.SetLimit(p.opts.Concurrency)
	}
	for i, rule := range parsed {
		i, rule := i, rule
		g.Go(func() error {
			return p.resolve(gctx, rule, resolver, lc, &slots[i])
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i := range slots {
		if slots[i].remove {
			parsed[i].Node.Remove()
			result.Removed++
		}
		if slots[i].diag != nil {
			report(*slots[i].diag)
		}
	}

	p.emit(parsed, slots, result)
	return result, nil
}

// collect classifies every @import of root in document order.
func (p *Parser) collect(root *stylesheet.Root, file string, report func(Diagnostic)) []*ParsedAtRule {
	var parsed []*ParsedAtRule
	opts := p.classifyOptions(file)

	stylesheet.WalkAtRules(root, "import", func(atRule *stylesheet.AtRule) {
		if p.opts.CSSStyleSheet {
			pos := atRule.Position()
			report(newDiagnostic(SeverityError, errors.New(errors.KindImportNotAllowed, errors.ErrMsgImportNotAllowed).
				WithContext(errors.Context{File: file, Line: pos.Line, Column: pos.Column, Text: ruleText(atRule)})))
			return
		}

		rule, err := Classify(atRule, opts)
		if err != nil {
			report(newDiagnostic(SeverityWarning, err))
			return
		}
		if rule == nil {
			return
		}
		rule.Index = len(parsed)
		parsed = append(parsed, rule)
	})

	p.logger.Debug().Int("count", len(parsed)).Str("file", file).Msg("Collected imports")
	return parsed
}

// resolve runs the filter and the resolver for one import and records the
// outcome in s.
func (p *Parser) resolve(ctx context.Context, rule *ParsedAtRule, resolver Resolver, lc LoaderContext, s *slot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if p.opts.Filter != nil {
		keep, err := p.opts.Filter(ctx, FilterRequest{
			URL:          rule.URL,
			Media:        rule.Media,
			ResourcePath: lc.ResourcePath,
			Supports:     rule.Supports,
			Layer:        rule.Layer,
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			d := newDiagnostic(SeverityWarning, errors.Wrap(err, errors.KindFilterFailed,
				fmt.Sprintf(errors.ErrMsgFilterFailed, rule.URL)).WithContext(p.context(rule, lc)))
			s.diag = &d
			return nil
		}
		if !keep {
			p.logger.Trace().Str("url", rule.URL).Msg("Import dropped by filter")
			return nil
		}
	}

	if !rule.NeedResolve {
		s.remove = true
		s.keep = true
		s.url = rule.URL
		return nil
	}

	candidates := uniqueCandidates(urlutil.Requestify(rule.URL, lc.RootContext), rule.URL)
	resolved, err := resolveRequests(ctx, resolver, lc.Context, candidates)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		p.logger.Trace().Err(err).Str("url", rule.URL).Msg("Import not resolved")
		if p.opts.StrictResolve {
			d := newDiagnostic(SeverityWarning, errors.Wrap(err, errors.KindUnresolvedImport,
				fmt.Sprintf(errors.ErrMsgUnresolvedImport, rule.URL, lc.Context)).WithContext(p.context(rule, lc)))
			s.diag = &d
		}
		return nil
	}

	s.remove = true
	if resolved == lc.ResourcePath {
		p.logger.Debug().Str("url", rule.URL).Msg("Dropping self import")
		return nil
	}
	s.keep = true
	s.url = resolved
	return nil
}

func (p *Parser) context(rule *ParsedAtRule, lc LoaderContext) errors.Context {
	pos := rule.Node.Position()
	return errors.Context{File: lc.ResourcePath, Line: pos.Line, Column: pos.Column, Text: ruleText(rule.Node)}
}

// resolveRequests tries each candidate in order and returns the first hit.
func resolveRequests(ctx context.Context, resolver Resolver, dir string, candidates []string) (string, error) {
	var lastErr error
	for _, request := range candidates {
		resolved, err := resolver.Resolve(ctx, dir, request)
		if err == nil {
			return resolved, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		lastErr = err
	}
	return "", lastErr
}

func uniqueCandidates(requests ...string) []string {
	out := make([]string, 0, len(requests))
	seen := make(map[string]bool, len(requests))
	for _, r := range requests {
		if seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	return out
}

// emit walks the slots in index order and builds the deduplicated import list
// and one apply record per surviving occurrence.
func (p *Parser) emit(parsed []*ParsedAtRule, slots []slot, result *Result) {
	names := make(map[string]string)

	for index, s := range slots {
		if !s.keep {
			continue
		}
		rule := parsed[index]

		if !rule.Requestable {
			result.API = append(result.API, API{URL: s.url, Conditions: rule.Conditions, Index: index})
			continue
		}

		key := rule.Key(s.url)
		importName, ok := names[key]
		if !ok {
			importName = fmt.Sprintf(importNameFormat, len(names))
			names[key] = importName
			result.Imports = append(result.Imports, Import{
				ImportName: importName,
				URL:        p.opts.URLHandler(key),
				Index:      index,
			})
		}
		result.API = append(result.API, API{ImportName: importName, Conditions: rule.Conditions, Index: index})
	}
}
