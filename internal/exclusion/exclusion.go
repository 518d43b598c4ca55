// Package exclusion rewrites exclude patterns produced for a project root so
// they apply relative to the scan root the project was found under.
package exclusion

import (
	"path"
	"path/filepath"
	"strings"
)

// Normalize prefixes every raw pattern with the project root's path relative
// to the parent scan root. Separators are normalized to "/" before the patterns
// are composed. When both roots are the same folder the patterns are returned
// unchanged.
func Normalize(parentScanRoot, projectRoot string, rawPatterns []string) []string {
	prefix := relativePrefix(parentScanRoot, projectRoot)

	patterns := make([]string, 0, len(rawPatterns))
	for _, raw := range rawPatterns {
		pattern := toSlash(strings.TrimSpace(raw))
		if pattern == "" {
			continue
		}
		if prefix == "" {
			patterns = append(patterns, pattern)
			continue
		}
		patterns = append(patterns, prefix+"/"+strings.TrimPrefix(pattern, "/"))
	}
	return patterns
}

func relativePrefix(parentScanRoot, projectRoot string) string {
	parent := path.Clean(toSlash(parentScanRoot))
	project := path.Clean(toSlash(projectRoot))
	if parent == project {
		return ""
	}

	rel, err := filepath.Rel(filepath.FromSlash(parent), filepath.FromSlash(project))
	if err != nil {
		rel = strings.TrimPrefix(strings.TrimPrefix(project, parent), "/")
	}
	rel = toSlash(rel)
	if rel == "." {
		return ""
	}
	return strings.TrimSuffix(rel, "/")
}

// toSlash normalizes both separator styles regardless of the host platform
func toSlash(p string) string {
	return strings.ReplaceAll(p, `\`, "/")
}
