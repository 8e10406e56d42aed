package main

import (
	"fmt"
	"os"
	"path/filepath"
)

// fileLoader resolves INCLUDE/INCBIN paths against a source directory and
// a list of extra search paths, satisfying both z80parser.Loader and
// z80asm.IncludeLoader (same one-method shape).
type fileLoader struct {
	sourceDir   string
	searchPaths []string
}

func (l *fileLoader) Load(path string) ([]byte, error) {
	if filepath.IsAbs(path) {
		return os.ReadFile(path)
	}
	candidates := append([]string{l.sourceDir}, l.searchPaths...)
	var lastErr error
	for _, dir := range candidates {
		data, err := os.ReadFile(filepath.Join(dir, path))
		if err == nil {
			return data, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%s: not found in source directory or search paths: %w", path, lastErr)
}
