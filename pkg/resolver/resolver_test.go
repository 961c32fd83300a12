package resolver

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, fs afero.Fs, files map[string]string) {
	t.Helper()
	for path, content := range files {
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
	}
}

func styleOptions() Options {
	return Options{
		Extensions:     []string{".css", "..."},
		MainFiles:      []string{"index", "..."},
		MainFields:     []string{"css", "style", "main", "..."},
		PreferRelative: true,
	}
}

func TestResolve(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{
		"/project/src/main.css":                             "",
		"/project/src/a.css":                                "",
		"/project/src/theme/index.css":                      "",
		"/project/src/local-pkg.css":                        "",
		"/project/styles/base.css":                          "",
		"/project/node_modules/normalize.css/normalize.css": "",
		"/project/node_modules/normalize.css/package.json":  `{"main": "normalize.css"}`,
		"/project/node_modules/ui/package.json":             `{"main": "index.js", "style": "dist/ui.css"}`,
		"/project/node_modules/ui/dist/ui.css":              "",
		"/project/node_modules/ui/index.js":                 "",
		"/project/node_modules/plain/index.css":             "",
		"/project/node_modules/plain/button.css":            "",
		"/project/node_modules/broken/package.json":         `{not json`,
		"/project/node_modules/broken/index.css":            "",
		"/node_modules/global/index.css":                    "",
	})
	r := New(fs, styleOptions())

	tests := []struct {
		name    string
		request string
		want    string
	}{
		{"relative with extension", "./a.css", "/project/src/a.css"},
		{"relative without extension", "./a", "/project/src/a.css"},
		{"parent directory", "../styles/base.css", "/project/styles/base.css"},
		{"directory index", "./theme", "/project/src/theme/index.css"},
		{"absolute", "/project/styles/base", "/project/styles/base.css"},
		{"prefer relative for bare request", "a.css", "/project/src/a.css"},
		{"package main field", "normalize.css", "/project/node_modules/normalize.css/normalize.css"},
		{"style field wins over main", "ui", "/project/node_modules/ui/dist/ui.css"},
		{"package without manifest", "plain", "/project/node_modules/plain/index.css"},
		{"file inside package", "plain/button", "/project/node_modules/plain/button.css"},
		{"invalid package json falls back to index", "broken", "/project/node_modules/broken/index.css"},
		{"module in ancestor", "global", "/node_modules/global/index.css"},
		{"query kept", "./a.css?inline", "/project/src/a.css?inline"},
		{"fragment kept", "./a.css#x", "/project/src/a.css#x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			got, err := r.Resolve(context.Background(), "/project/src", tt.request)
			req.NoError(err)
			req.Equal(tt.want, got)
		})
	}
}

func TestResolve_NotFound(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{"/project/src/a.css": ""})
	r := New(fs, styleOptions())

	for _, request := range []string{"./missing.css", "missing-pkg", "", "../src"} {
		t.Run(request, func(t *testing.T) {
			req := require.New(t)
			_, err := r.Resolve(context.Background(), "/project/src", request)
			req.ErrorIs(err, ErrNotFound)
		})
	}
}

func TestResolve_WithoutPreferRelative(t *testing.T) {
	req := require.New(t)
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{
		"/project/src/pkg.css":                    "",
		"/project/node_modules/pkg.css/index.css": "",
	})
	opts := styleOptions()
	opts.PreferRelative = false
	r := New(fs, opts)

	got, err := r.Resolve(context.Background(), "/project/src", "pkg.css")
	req.NoError(err)
	req.Equal("/project/node_modules/pkg.css/index.css", got)
}

func TestResolve_Cache(t *testing.T) {
	req := require.New(t)
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{"/project/a.css": ""})
	r := New(fs, styleOptions())

	got, err := r.Resolve(context.Background(), "/project", "./a.css")
	req.NoError(err)
	req.Equal("/project/a.css", got)

	req.NoError(fs.Remove("/project/a.css"))
	got, err = r.Resolve(context.Background(), "/project", "./a.css")
	req.NoError(err)
	req.Equal("/project/a.css", got)
}

func TestResolve_Cancelled(t *testing.T) {
	req := require.New(t)
	r := New(afero.NewMemMapFs(), Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Resolve(ctx, "/", "./a.css")
	req.ErrorIs(err, context.Canceled)
}

func TestNew_ExpandsDefaults(t *testing.T) {
	req := require.New(t)
	r := New(afero.NewMemMapFs(), Options{
		Extensions: []string{".css", "...", ".js"},
		MainFields: []string{"style", "..."},
	})
	opts := r.Options()
	req.Equal([]string{".css", ".js", ".json"}, opts.Extensions)
	req.Equal([]string{"style", "browser", "module", "main"}, opts.MainFields)
	req.Equal([]string{"index"}, opts.MainFiles)
	req.Equal([]string{"node_modules"}, opts.Modules)
}
