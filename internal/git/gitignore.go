package git

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"log/slog"

	"github.com/bmatcuk/doublestar/v4"
)

// loadIgnoreFile reads glob patterns from a .gitignore style file
func loadIgnoreFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	defer file.Close()

	var patterns []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Negations are not supported by a plain glob matcher
		if strings.HasPrefix(line, "!") {
			continue
		}

		pattern := strings.TrimSuffix(line, "/")
		pattern = strings.TrimPrefix(pattern, "/")
		if pattern != "" {
			patterns = append(patterns, pattern)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading %s: %w", path, err)
	}
	return patterns, nil
}

// patternSet holds the patterns of one ignore file together with the folder
// (relative to the walk root) it was found in
type patternSet struct {
	dir      string
	patterns []string
}

// IgnoreStack tracks the ignore patterns active while walking down a tree.
// A set is pushed when entering a folder with a .gitignore and popped when
// leaving it.
type IgnoreStack struct {
	root   string
	logger *slog.Logger
	stack  []patternSet
	pushed []bool
}

// NewIgnoreStack creates a stack for the walk rooted at root and seeds it with
// the repository's .git/info/exclude, if any
func NewIgnoreStack(root string, logger *slog.Logger) *IgnoreStack {
	if logger == nil {
		logger = slog.Default()
	}
	s := &IgnoreStack{root: root, logger: logger}

	if gitDir, err := findGitDir(root); err == nil {
		excludePath := filepath.Join(gitDir, "info", "exclude")
		if _, err := os.Stat(excludePath); err == nil {
			if patterns, err := loadIgnoreFile(excludePath); err == nil && len(patterns) > 0 {
				s.stack = append(s.stack, patternSet{dir: ".", patterns: patterns})
				logger.Debug("Loaded .git/info/exclude patterns", "path", excludePath, "count", len(patterns))
			}
		}
	}
	return s
}

// Enter loads relDir/.gitignore, if present. Every Enter must be paired with Leave.
func (s *IgnoreStack) Enter(relDir string) {
	path := filepath.Join(s.root, filepath.FromSlash(relDir), ".gitignore")
	if _, err := os.Stat(path); err != nil {
		s.pushed = append(s.pushed, false)
		return
	}

	patterns, err := loadIgnoreFile(path)
	if err != nil || len(patterns) == 0 {
		if err != nil {
			s.logger.Warn("Failed to read .gitignore file", "path", path, "error", err)
		}
		s.pushed = append(s.pushed, false)
		return
	}

	s.stack = append(s.stack, patternSet{dir: relDir, patterns: patterns})
	s.pushed = append(s.pushed, true)
	s.logger.Debug("Loaded patterns from file", "path", path, "count", len(patterns))
}

// Leave undoes the matching Enter
func (s *IgnoreStack) Leave() {
	if len(s.pushed) == 0 {
		return
	}
	top := s.pushed[len(s.pushed)-1]
	s.pushed = s.pushed[:len(s.pushed)-1]
	if top && len(s.stack) > 0 {
		s.stack = s.stack[:len(s.stack)-1]
	}
}

// Depth returns the number of active pattern sets
func (s *IgnoreStack) Depth() int {
	return len(s.stack)
}

// Ignored reports whether relPath (slash separated, relative to the walk root)
// is ignored by any active pattern set. Patterns are matched against the path
// relative to the folder that declared them and against the base name.
func (s *IgnoreStack) Ignored(relPath string) bool {
	name := relPath
	if i := strings.LastIndex(relPath, "/"); i >= 0 {
		name = relPath[i+1:]
	}

	for _, set := range s.stack {
		local := relPath
		if set.dir != "." && set.dir != "" {
			local = strings.TrimPrefix(relPath, set.dir+"/")
		}
		for _, pattern := range set.patterns {
			if ok, err := doublestar.Match(pattern, local); err == nil && ok {
				return true
			}
			if ok, err := doublestar.Match(pattern, name); err == nil && ok {
				return true
			}
		}
	}
	return false
}

// findGitDir finds the .git directory (handles submodules, worktrees, etc.)
func findGitDir(startPath string) (string, error) {
	gitFile := filepath.Join(startPath, ".git")
	if content, err := os.ReadFile(gitFile); err == nil {
		gitDir := strings.TrimSpace(string(content))
		if strings.HasPrefix(gitDir, "gitdir: ") {
			return filepath.Join(startPath, strings.TrimPrefix(gitDir, "gitdir: ")), nil
		}
	}

	gitDir := filepath.Join(startPath, ".git")
	if stat, err := os.Stat(gitDir); err == nil && stat.IsDir() {
		return gitDir, nil
	}

	return "", fmt.Errorf("not a git repository")
}
