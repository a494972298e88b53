package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/omr/internal/utils"
)

// isInput reports whether a file can be submitted: a supported image or a PDF.
func isInput(path string) bool {
	return utils.IsSupportedImage(path) || isPDF(path)
}

func isPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

// discoverFiles expands the arguments into input files. Files named
// explicitly are kept in argument order; directory contents are walked in
// lexical order.
func discoverFiles(args []string, cfg Config) ([]string, error) {
	var files []string

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", arg, err)
		}

		if info.IsDir() {
			found, err := discoverInDirectory(arg, cfg)
			if err != nil {
				return nil, err
			}
			files = append(files, found...)
		} else if shouldIncludeFile(arg, cfg.IncludePatterns, cfg.ExcludePatterns) {
			files = append(files, arg)
		}
	}

	return files, nil
}

// discoverInDirectory discovers input files in a directory.
func discoverInDirectory(dir string, cfg Config) ([]string, error) {
	var files []string

	walkFn := func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if !cfg.Recursive && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if isInput(path) && shouldIncludeFile(path, cfg.IncludePatterns, cfg.ExcludePatterns) {
			files = append(files, path)
		}
		return nil
	}

	return files, filepath.WalkDir(dir, walkFn)
}

// shouldIncludeFile determines if a file should be included based on include/exclude patterns.
func shouldIncludeFile(path string, includePatterns, excludePatterns []string) bool {
	if matchesAnyPattern(path, excludePatterns) {
		return false
	}
	if len(includePatterns) == 0 {
		return true
	}
	return matchesAnyPattern(path, includePatterns)
}

// matchesAnyPattern checks if the base name of path matches any of the patterns.
func matchesAnyPattern(path string, patterns []string) bool {
	base := filepath.Base(path)
	for _, pattern := range patterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}
	return false
}
