// Package fileutil provides file and path utility functions.
package fileutil

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FilePermissions is the mode for every output file.
const FilePermissions = 0o644

// TempDir creates a temporary directory for one external call.
// Returns the path and a cleanup function that reports removal errors.
func TempDir(pattern string) (dir string, cleanup func() error, err error) {
	dir, err = os.MkdirTemp("", "docconv-"+pattern+"-*")
	if err != nil {
		return "", nil, fmt.Errorf("creating temp dir: %w", err)
	}
	return dir, func() error { return os.RemoveAll(dir) }, nil
}

// FileExists returns true if the path exists and is a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// DirExists returns true if the path exists and is a directory.
func DirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// Stem returns the base name of path without its extension.
//
// Examples:
//   - "/docs/report.docx" -> "report"
//   - "archive.tar.gz" -> "archive.tar"
//   - "README" -> "README"
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// HasExtension reports whether path ends with one of exts (case-insensitive,
// each given with its leading dot).
func HasExtension(path string, exts ...string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}

// WalkFiles returns every regular file under root whose extension is in exts,
// in lexical order.
func WalkFiles(root string, exts ...string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() && HasExtension(path, exts...) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	return files, nil
}

// IsFilePath returns true if the string looks like a file path rather than a name.
// A string containing path separators (/, \) is treated as a path.
//
// Examples:
//   - "batch" -> false (name)
//   - "./batch.yaml" -> true (relative path)
//   - "/etc/docconv/batch.yaml" -> true (absolute)
//   - "C:\configs\batch.yaml" -> true (Windows)
func IsFilePath(s string) bool {
	return strings.ContainsAny(s, "/\\")
}

// IsURL returns true if the string looks like a URL.
func IsURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
