// Package glob matches slash separated paths against doublestar patterns and
// walks directory trees collecting the files that match.
package glob

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Matcher holds include and exclude patterns. Paths are matched relative to
// the walk root using "/" as separator.
type Matcher struct {
	include       []string
	exclude       []string
	caseSensitive bool
}

// NewMatcher validates the patterns and builds a matcher. Matching is case
// insensitive unless caseSensitive is set.
func NewMatcher(include, exclude []string, caseSensitive bool) (*Matcher, error) {
	m := &Matcher{caseSensitive: caseSensitive}
	for _, p := range include {
		normalized, err := m.normalize(p)
		if err != nil {
			return nil, err
		}
		m.include = append(m.include, normalized)
	}
	for _, p := range exclude {
		normalized, err := m.normalize(p)
		if err != nil {
			return nil, err
		}
		m.exclude = append(m.exclude, normalized)
	}
	return m, nil
}

func (m *Matcher) normalize(pattern string) (string, error) {
	pattern = strings.ReplaceAll(strings.TrimSpace(pattern), `\`, "/")
	pattern = strings.TrimPrefix(pattern, "./")
	if !m.caseSensitive {
		pattern = strings.ToLower(pattern)
	}
	if !doublestar.ValidatePattern(pattern) {
		return "", fmt.Errorf("invalid glob pattern: %q", pattern)
	}
	return pattern, nil
}

func (m *Matcher) fold(path string) string {
	if m.caseSensitive {
		return path
	}
	return strings.ToLower(path)
}

// Match reports whether relPath matches an include pattern and no exclude pattern
func (m *Matcher) Match(relPath string) bool {
	path := m.fold(relPath)
	if m.excluded(path) {
		return false
	}
	for _, pattern := range m.include {
		if doublestar.MatchUnvalidated(pattern, path) {
			return true
		}
	}
	return false
}

// Excluded reports whether relPath, or any folder containing it, matches an
// exclude pattern
func (m *Matcher) Excluded(relPath string) bool {
	return m.excluded(m.fold(relPath))
}

func (m *Matcher) excluded(path string) bool {
	if len(m.exclude) == 0 {
		return false
	}
	name := path
	if i := strings.LastIndex(path, "/"); i >= 0 {
		name = path[i+1:]
	}
	for _, pattern := range m.exclude {
		if doublestar.MatchUnvalidated(pattern, path) || doublestar.MatchUnvalidated(pattern, name) {
			return true
		}
		// "dir/**" style patterns also exclude the folder itself
		if strings.HasSuffix(pattern, "/**") && doublestar.MatchUnvalidated(strings.TrimSuffix(pattern, "/**"), path) {
			return true
		}
	}
	return false
}

// HasIncludes reports whether any include pattern was configured
func (m *Matcher) HasIncludes() bool {
	return len(m.include) > 0
}
