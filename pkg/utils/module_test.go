package utils

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func TestUtils_GetProjectRoot(t *testing.T) {
	req := require.New(t)
	fs := afero.NewMemMapFs()

	req.NoError(afero.WriteFile(fs, "/work/project/package.json", []byte(`{"name": "app"}`), 0o644))
	req.NoError(afero.WriteFile(fs, "/work/project/src/styles/main.css", []byte("a{}"), 0o644))

	// Test: finds package.json in an ancestor directory
	result := GetProjectRoot(fs, "/work/project/src/styles/main.css")
	req.Equal("/work/project", result)

	// Test: manifest next to the file
	result = GetProjectRoot(fs, "/work/project/index.css")
	req.Equal("/work/project", result)
}

func TestUtils_GetProjectRoot_fallbacks(t *testing.T) {
	req := require.New(t)
	fs := afero.NewMemMapFs()

	// Test with no manifest anywhere
	result := GetProjectRoot(fs, "/non/existent/path/file.css")
	req.Equal("/non/existent/path", result, "Expected the file's directory without a manifest")
}
