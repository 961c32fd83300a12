package utils

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// styleExtensions lists the stylesheet dialects that share @import syntax.
var styleExtensions = []string{".css", ".wxss", ".less", ".scss", ".sass", ".styl"}

// IsStyleFile checks if a file is a stylesheet by extension (case-insensitive)
func IsStyleFile(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, e := range styleExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// FindStyleFiles recursively finds all stylesheets in a directory
func FindStyleFiles(fs afero.Fs, root string) ([]string, error) {
	var styleFiles []string

	err := afero.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		// Skip installed packages and hidden directories (but not the root directory)
		if info.IsDir() && path != root {
			name := filepath.Base(path)
			if name == "node_modules" || name == ".git" || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}

		if !info.IsDir() && IsStyleFile(filepath.Base(path)) {
			styleFiles = append(styleFiles, path)
		}

		return nil
	})

	return styleFiles, err
}

// IsDirectory checks if the given path is a directory
func IsDirectory(fs afero.Fs, path string) (bool, error) {
	info, err := fs.Stat(path)
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}
