// Package resolver resolves stylesheet module requests against a filesystem
// the way bundlers do: relative paths, extension probing, directory index
// files, package.json main fields and node_modules lookup.
package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/siyuan-infoblox/css-imports/pkg/logging"
)

// ErrNotFound is returned when no file matches a request.
var ErrNotFound = errors.New("module not found")

// defaultsMarker in an option list is replaced by the corresponding defaults.
const defaultsMarker = "..."

var (
	defaultExtensions = []string{".js", ".json"}
	defaultMainFiles  = []string{"index"}
	defaultMainFields = []string{"browser", "module", "main"}
	defaultModules    = []string{"node_modules"}
)

// Options configures a FS resolver.
type Options struct {
	Extensions     []string // tried in order after the exact name
	MainFiles      []string // file names tried inside a directory
	MainFields     []string // package.json fields pointing at the entry file
	Modules        []string // directory names searched for bare requests
	PreferRelative bool     // try bare requests relative to dir first
}

// FS resolves requests against an afero filesystem. Results, including
// misses, are cached for the lifetime of the resolver. It is safe for
// concurrent use.
type FS struct {
	fs     afero.Fs
	opts   Options
	logger zerolog.Logger

	mu    sync.Mutex
	cache map[string]result
}

type result struct {
	path string
	err  error
}

// New creates a resolver. Empty option lists fall back to the defaults.
func New(fs afero.Fs, opts Options) *FS {
	opts.Extensions = expand(opts.Extensions, defaultExtensions)
	opts.MainFiles = expand(opts.MainFiles, defaultMainFiles)
	opts.MainFields = expand(opts.MainFields, defaultMainFields)
	opts.Modules = expand(opts.Modules, defaultModules)
	return &FS{
		fs:     fs,
		opts:   opts,
		logger: logging.GetLogger("resolver"),
		cache:  make(map[string]result),
	}
}

// expand replaces "..." in list with defaults; an empty list means defaults.
func expand(list, defaults []string) []string {
	if len(list) == 0 {
		return append([]string(nil), defaults...)
	}
	var out []string
	seen := make(map[string]bool)
	add := func(v string) {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	for _, v := range list {
		if v == defaultsMarker {
			for _, d := range defaults {
				add(d)
			}
			continue
		}
		add(v)
	}
	return out
}

// Options returns the effective options after default expansion.
func (r *FS) Options() Options {
	return r.opts
}

// Resolve finds the file request refers to, relative to dir.
func (r *FS) Resolve(ctx context.Context, dir, request string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	key := dir + "\x00" + request
	r.mu.Lock()
	cached, ok := r.cache[key]
	r.mu.Unlock()
	if ok {
		return cached.path, cached.err
	}

	path, err := r.resolve(dir, request)
	r.logger.Trace().Str("dir", dir).Str("request", request).Str("path", path).Err(err).Msg("Resolved request")

	r.mu.Lock()
	r.cache[key] = result{path: path, err: err}
	r.mu.Unlock()
	return path, err
}

func (r *FS) resolve(dir, request string) (string, error) {
	request, suffix := splitQuery(request)
	if request == "" {
		return "", fmt.Errorf("%w: empty request", ErrNotFound)
	}
	request = filepath.FromSlash(request)

	var found string
	switch {
	case filepath.IsAbs(request):
		found = r.fileOrDir(request)
	case isRelative(request):
		found = r.fileOrDir(filepath.Join(dir, request))
	default:
		if r.opts.PreferRelative {
			found = r.fileOrDir(filepath.Join(dir, request))
		}
		if found == "" {
			found = r.module(dir, request)
		}
	}

	if found == "" {
		return "", fmt.Errorf("%w: can't resolve '%s' in '%s'", ErrNotFound, request, dir)
	}
	return found + suffix, nil
}

// splitQuery separates "?query" and "#fragment" from the path. A leading
// "#" is part of the path.
func splitQuery(request string) (string, string) {
	if i := strings.IndexAny(request, "?#"); i > 0 {
		return request[:i], request[i:]
	}
	return request, ""
}

func isRelative(request string) bool {
	request = filepath.ToSlash(request)
	return request == "." || request == ".." ||
		strings.HasPrefix(request, "./") || strings.HasPrefix(request, "../")
}

// module looks request up in the module directories of dir and its parents.
func (r *FS) module(dir, request string) string {
	for current := dir; ; {
		for _, modules := range r.opts.Modules {
			if found := r.fileOrDir(filepath.Join(current, modules, request)); found != "" {
				return found
			}
		}
		parent := filepath.Dir(current)
		if parent == current {
			return ""
		}
		current = parent
	}
}

func (r *FS) fileOrDir(path string) string {
	if found := r.file(path); found != "" {
		return found
	}
	return r.dir(path, 0)
}

// file tries path as-is and then with each extension.
func (r *FS) file(path string) string {
	if r.isFile(path) {
		return path
	}
	for _, ext := range r.opts.Extensions {
		if r.isFile(path + ext) {
			return path + ext
		}
	}
	return ""
}

// maxMainFieldDepth bounds main fields that point at other directories.
const maxMainFieldDepth = 4

// dir resolves a directory through package.json main fields, then main files.
func (r *FS) dir(path string, depth int) string {
	info, err := r.fs.Stat(path)
	if err != nil || !info.IsDir() {
		return ""
	}

	if depth < maxMainFieldDepth {
		for _, entry := range r.mainFieldEntries(path) {
			target := filepath.Join(path, filepath.FromSlash(entry))
			if found := r.file(target); found != "" {
				return found
			}
			if target != path {
				if found := r.dir(target, depth+1); found != "" {
					return found
				}
			}
		}
	}

	for _, name := range r.opts.MainFiles {
		if found := r.file(filepath.Join(path, name)); found != "" {
			return found
		}
	}
	return ""
}

// mainFieldEntries returns the string values of the configured main fields
// in the directory's package.json, in field order.
func (r *FS) mainFieldEntries(dir string) []string {
	data, err := afero.ReadFile(r.fs, filepath.Join(dir, "package.json"))
	if err != nil {
		return nil
	}
	var pkg map[string]json.RawMessage
	if err := json.Unmarshal(data, &pkg); err != nil {
		r.logger.Debug().Err(err).Str("dir", dir).Msg("Ignoring invalid package.json")
		return nil
	}

	var entries []string
	for _, field := range r.opts.MainFields {
		raw, ok := pkg[field]
		if !ok {
			continue
		}
		var value string
		if err := json.Unmarshal(raw, &value); err != nil || value == "" {
			continue
		}
		entries = append(entries, value)
	}
	return entries
}

func (r *FS) isFile(path string) bool {
	info, err := r.fs.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
