package analyzer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/siyuan-infoblox/css-imports/pkg/config"
	"github.com/siyuan-infoblox/css-imports/pkg/errors"
	"github.com/siyuan-infoblox/css-imports/pkg/importparser"
	"github.com/siyuan-infoblox/css-imports/pkg/logging"
	"github.com/siyuan-infoblox/css-imports/pkg/resolver"
	"github.com/siyuan-infoblox/css-imports/pkg/stylesheet"
	"github.com/siyuan-infoblox/css-imports/pkg/utils"
)

type AnalyzerConfig struct {
	Config *config.Config // loaded settings, defaults when nil
	Fs     afero.Fs       // filesystem for stylesheets and resolution, OS when nil
	Out    io.Writer      // reports, stdout when nil
	ErrOut io.Writer      // progress messages and diffs, stderr when nil
}

// analyzer drives the import parser over stylesheets on disk
type analyzer struct {
	config AnalyzerConfig
	parser *importparser.Parser
	logger zerolog.Logger

	resolverOnce sync.Once
	resolver     *resolver.FS
}

// New creates an analyzer from the loaded configuration
func New(cfg AnalyzerConfig) (*analyzer, error) {
	if cfg.Config == nil {
		cfg.Config = &config.Config{
			Format:     config.FormatTable,
			Extensions: config.DefaultExtensions,
			MainFiles:  config.DefaultMainFiles,
			MainFields: config.DefaultMainFields,
		}
	}
	if cfg.Fs == nil {
		cfg.Fs = afero.NewOsFs()
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	if cfg.ErrOut == nil {
		cfg.ErrOut = os.Stderr
	}

	filter, err := newFilter(cfg.Config.Filter)
	if err != nil {
		return nil, err
	}

	parser, err := importparser.New(importparser.Options{
		SupportAbsoluteURL: cfg.Config.SupportAbsoluteURL,
		SupportDataURL:     cfg.Config.SupportDataURL,
		Externals:          cfg.Config.Externals,
		Filter:             filter,
		CSSStyleSheet:      cfg.Config.CSSStyleSheet,
		StrictResolve:      cfg.Config.StrictResolve,
		Concurrency:        cfg.Config.Concurrency,
	})
	if err != nil {
		return nil, err
	}

	return &analyzer{
		config: cfg,
		parser: parser,
		logger: logging.GetLogger("analyzer"),
	}, nil
}

// newFilter builds an import filter from the exclude patterns. It returns
// nil when nothing is excluded.
func newFilter(fc config.FilterConfig) (importparser.FilterFunc, error) {
	if len(fc.Exclude) == 0 && len(fc.ExcludeMedia) == 0 {
		return nil, nil
	}
	urls, err := compileAll(fc.Exclude)
	if err != nil {
		return nil, err
	}
	media, err := compileAll(fc.ExcludeMedia)
	if err != nil {
		return nil, err
	}
	return func(_ context.Context, req importparser.FilterRequest) (bool, error) {
		for _, re := range urls {
			if re.MatchString(req.URL) {
				return false, nil
			}
		}
		if req.Media != nil {
			for _, re := range media {
				if re.MatchString(*req.Media) {
					return false, nil
				}
			}
		}
		return true, nil
	}, nil
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	res := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", config.ErrInvalidFilterPattern, p, err)
		}
		res = append(res, re)
	}
	return res, nil
}

func (a *analyzer) fs() afero.Fs {
	return a.config.Fs
}

func (a *analyzer) settings() *config.Config {
	return a.config.Config
}

// getResolve hands the parser one shared resolver. Configured lists take
// precedence over the ones the parser asks for.
func (a *analyzer) getResolve(opts importparser.ResolveOptions) importparser.Resolver {
	a.resolverOnce.Do(func() {
		a.resolver = resolver.New(a.fs(), resolver.Options{
			Extensions:     pick(a.settings().Extensions, opts.Extensions),
			MainFiles:      pick(a.settings().MainFiles, opts.MainFiles),
			MainFields:     pick(a.settings().MainFields, opts.MainFields),
			PreferRelative: opts.PreferRelative,
		})
		effective := a.resolver.Options()
		a.logger.Debug().
			Strs("extensions", effective.Extensions).
			Strs("mainFiles", effective.MainFiles).
			Strs("mainFields", effective.MainFields).
			Msg("Created resolver")
	})
	return a.resolver
}

func pick(configured, requested []string) []string {
	if len(configured) > 0 {
		return configured
	}
	return requested
}

// getRootContext returns the base for root-relative URLs of filePath
func (a *analyzer) getRootContext(filePath string) string {
	if a.settings().RootContext != "" {
		return a.settings().RootContext
	}
	return utils.GetProjectRoot(a.fs(), filePath)
}

// ProcessFile analyses one stylesheet and, in place mode, writes back the
// stylesheet without the imports that were turned into dependencies.
func (a *analyzer) ProcessFile(ctx context.Context, filePath string) (*FileReport, error) {
	done := logging.LogOperationStart(a.logger, "analyze "+filePath)
	defer done()

	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errors.ErrMsgFailedToReadFile, err)
	}

	src, err := afero.ReadFile(a.fs(), absPath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errors.ErrMsgFailedToReadFile, err)
	}
	a.logger.Debug().Str("file", absPath).Str("size", humanize.Bytes(uint64(len(src)))).Msg("Read stylesheet")

	root, err := stylesheet.Parse(string(src))
	if err != nil {
		if ie, ok := errors.AsImportError(err); ok {
			errCtx := ie.Context
			errCtx.File = filePath
			err = ie.WithContext(errCtx)
		}
		return nil, fmt.Errorf("%s: %w", errors.ErrMsgFailedToParseFile, err)
	}

	result, err := a.parser.Process(ctx, root, importparser.LoaderContext{
		ResourcePath: absPath,
		Context:      filepath.Dir(absPath),
		RootContext:  a.getRootContext(absPath),
		GetResolve:   a.getResolve,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errors.ErrMsgFailedToProcessImports, err)
	}

	report := &FileReport{
		File:     filePath,
		Result:   *result,
		original: string(src),
		output:   root.String(),
	}

	if a.settings().InPlace && report.Changed() {
		if err := afero.WriteFile(a.fs(), absPath, []byte(report.output), 0644); err != nil {
			return nil, fmt.Errorf("%s: %w", errors.ErrMsgFailedToWriteFile, err)
		}
	}
	return report, nil
}

// ProcessFiles analyses multiple stylesheets and renders one report
func (a *analyzer) ProcessFiles(ctx context.Context, filePaths []string) error {
	processedCount := 0
	errorCount := 0
	var reports []*FileReport

	for _, filePath := range filePaths {
		if err := ctx.Err(); err != nil {
			return err
		}
		report, err := a.ProcessFile(ctx, filePath)
		if err != nil {
			fmt.Fprintf(a.config.ErrOut, errors.InfoMsgErrorProcessing+"\n", filePath, err)
			errorCount++
			continue
		}
		processedCount++
		reports = append(reports, report)
		if a.settings().InPlace && report.Changed() {
			fmt.Fprintf(a.config.ErrOut, errors.InfoMsgProcessedFiles+"\n", filePath)
		}
		if a.settings().Diff {
			renderDiff(a.config.ErrOut, report)
		}
	}

	if err := renderReports(a.config.Out, a.settings().Format, reports); err != nil {
		return fmt.Errorf("%s: %w", errors.ErrMsgFailedToRenderReport, err)
	}

	if len(filePaths) > 1 {
		fmt.Fprintf(a.config.ErrOut, errors.InfoMsgProcessedCount, english.Plural(processedCount, "file", ""))
		if errorCount > 0 {
			fmt.Fprintf(a.config.ErrOut, errors.InfoMsgErrorCount, english.Plural(errorCount, "file", ""))
		}
		fmt.Fprintln(a.config.ErrOut)
	}

	if errorCount > 0 {
		return fmt.Errorf(errors.ErrMsgFilesFailedToProcess, errorCount)
	}
	return nil
}

// ProcessPath processes a stylesheet or every stylesheet under a directory
func (a *analyzer) ProcessPath(ctx context.Context, path string) error {
	isDir, err := utils.IsDirectory(a.fs(), path)
	if err != nil {
		return fmt.Errorf("%s: %w", errors.ErrMsgFailedToCheckPath, err)
	}

	if !isDir {
		return a.ProcessFiles(ctx, []string{path})
	}

	if !a.settings().InPlace {
		fmt.Fprintln(a.config.ErrOut, errors.WarnMsgProcessingDirWithoutInPlace)
		fmt.Fprintln(a.config.ErrOut, errors.InfoMsgUseInPlaceFlag)
		fmt.Fprintln(a.config.ErrOut)
	}

	styleFiles, err := utils.FindStyleFiles(a.fs(), path)
	if err != nil {
		return fmt.Errorf("%s: %w", errors.ErrMsgFailedToFindStyleFiles, err)
	}

	if len(styleFiles) == 0 {
		fmt.Fprintf(a.config.ErrOut, errors.InfoMsgNoStyleFilesFound+"\n", path)
		return nil
	}

	fmt.Fprintf(a.config.ErrOut, errors.InfoMsgFoundStyleFiles+"\n", english.Plural(len(styleFiles), "stylesheet", ""), path)
	if a.settings().RootContext != "" {
		fmt.Fprintf(a.config.ErrOut, errors.InfoMsgRootContext+"\n", a.settings().RootContext)
	}
	fmt.Fprintln(a.config.ErrOut)

	return a.ProcessFiles(ctx, styleFiles)
}
