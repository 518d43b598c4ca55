package glob

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/petrarca/dependency-resolver/internal/git"
	"github.com/petrarca/dependency-resolver/internal/provider"
	"github.com/petrarca/dependency-resolver/internal/types"
)

// skippedDirs are never descended into
var skippedDirs = map[string]bool{
	".git": true,
	".hg":  true,
	".svn": true,
}

// WalkOptions controls a directory walk
type WalkOptions struct {
	Excludes         []string
	CaseSensitive    bool
	RespectGitignore bool
	Logger           *slog.Logger
}

// Walker lists the files below a root through a file system provider
type Walker struct {
	provider types.Provider
	matcher  *Matcher
	ignore   *git.IgnoreStack
	logger   *slog.Logger
	dirs     int
}

// NewWalker creates a walker for root using the local file system
func NewWalker(root string, opts WalkOptions) (*Walker, error) {
	return NewWalkerWithProvider(provider.NewFSProvider(root), opts)
}

// NewWalkerWithProvider creates a walker that lists directories through p
func NewWalkerWithProvider(p types.Provider, opts WalkOptions) (*Walker, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	matcher, err := NewMatcher(nil, opts.Excludes, opts.CaseSensitive)
	if err != nil {
		return nil, err
	}

	w := &Walker{provider: p, matcher: matcher, logger: logger}
	if opts.RespectGitignore {
		w.ignore = git.NewIgnoreStack(p.GetBasePath(), logger)
	}
	return w, nil
}

// Walk returns every non-excluded file below the root as a slash separated
// path relative to the root, in lexical order. An unreadable root is an
// error; unreadable sub folders are logged and skipped.
func (w *Walker) Walk(ctx context.Context) ([]string, error) {
	if _, err := w.provider.ListDir("."); err != nil {
		return nil, fmt.Errorf("cannot read scan root %s: %w", w.provider.GetBasePath(), err)
	}

	var files []string
	if err := w.walkDir(ctx, ".", &files); err != nil {
		return nil, err
	}
	sort.Strings(files)
	w.logger.Debug("Walked scan root", "root", w.provider.GetBasePath(), "files", len(files), "dirs", w.dirs)
	return files, nil
}

// DirCount returns how many folders the last walk visited
func (w *Walker) DirCount() int {
	return w.dirs
}

func (w *Walker) walkDir(ctx context.Context, rel string, files *[]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entries, err := w.provider.ListDir(rel)
	if err != nil {
		w.logger.Warn("Skipping unreadable directory", "path", filepath.Join(w.provider.GetBasePath(), rel), "error", err)
		return nil
	}
	w.dirs++

	if w.ignore != nil {
		w.ignore.Enter(filepath.ToSlash(rel))
		defer w.ignore.Leave()
	}

	for _, entry := range entries {
		relPath := entry.Path
		if w.matcher.Excluded(relPath) {
			continue
		}
		if w.ignore != nil && w.ignore.Ignored(relPath) {
			continue
		}

		if entry.Kind == types.KindSymlinkDir {
			w.logger.Debug("Not following directory link", "path", relPath)
			continue
		}
		if entry.IsDir() {
			if skippedDirs[entry.Name] {
				continue
			}
			if err := w.walkDir(ctx, entry.Path, files); err != nil {
				return err
			}
			continue
		}
		*files = append(*files, relPath)
	}
	return nil
}
