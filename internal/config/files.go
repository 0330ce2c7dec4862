package config

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// ResolveFiles expands the source patterns under rootPath and returns the
// matching files, sorted. A rootPath naming a single file is returned as-is.
// Patterns match slash-separated paths relative to rootPath; an excluded
// directory is not descended into.
func (c *Config) ResolveFiles(rootPath string) ([]string, error) {
	info, err := os.Stat(rootPath)
	if err != nil {
		return nil, fmt.Errorf("resolving sources: %w", err)
	}
	if !info.IsDir() {
		return []string{rootPath}, nil
	}

	include := c.Sources.Include
	if len(include) == 0 {
		include = DefaultIncludes
	}
	for _, pattern := range c.Sources.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid exclude pattern: %s", pattern)
		}
	}
	for _, pattern := range include {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid include pattern: %s", pattern)
		}
	}

	var files []string
	err = filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // keep walking past unreadable entries
		}

		rel, err := filepath.Rel(rootPath, path)
		if err != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if c.excluded(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if c.MatchesSource(rel) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// MatchesSource reports whether a slash-separated path relative to the scan
// root is a source file under the include, exclude and ignore patterns.
func (c *Config) MatchesSource(rel string) bool {
	rel = filepath.ToSlash(rel)
	if c.excluded(rel) || c.ShouldIgnoreFile(rel) {
		return false
	}
	include := c.Sources.Include
	if len(include) == 0 {
		include = DefaultIncludes
	}
	for _, pattern := range include {
		if matched, _ := doublestar.Match(pattern, rel); matched {
			return true
		}
	}
	return false
}

func (c *Config) excluded(rel string) bool {
	for _, pattern := range c.Sources.Exclude {
		if matched, _ := doublestar.Match(pattern, rel); matched {
			return true
		}
	}
	return false
}

// IsExcludedDir reports whether a directory relative to the scan root is
// skipped entirely.
func (c *Config) IsExcludedDir(rel string) bool {
	return c.excluded(filepath.ToSlash(rel))
}
