package utils

import (
	"path/filepath"

	"github.com/spf13/afero"
)

// maxProjectDepth bounds the upward search for a package manifest.
const maxProjectDepth = 20

// GetProjectRoot returns the nearest ancestor directory of filePath that
// holds a package.json. It falls back to the file's own directory.
func GetProjectRoot(fs afero.Fs, filePath string) string {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		absPath = filepath.Clean(filePath)
	}

	start := filepath.Dir(absPath)
	dir := start
	for i := 0; i < maxProjectDepth; i++ {
		if ok, _ := afero.Exists(fs, filepath.Join(dir, "package.json")); ok {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return start
}
