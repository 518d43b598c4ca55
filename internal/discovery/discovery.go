// Package discovery finds manifest files below scan roots and groups them into
// project roots.
package discovery

import (
	"context"
	"log/slog"
	"path"
	"path/filepath"

	"github.com/petrarca/dependency-resolver/internal/glob"
	"github.com/petrarca/dependency-resolver/internal/types"
)

// Options controls how scan roots are walked and matched
type Options struct {
	Excludes         []string
	CaseSensitive    bool
	RespectGitignore bool
	Logger           *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

// Index holds the file listing of every readable scan root so each root is
// walked once no matter how many resolvers match against it.
type Index struct {
	roots  []string
	files  map[string][]string
	dirs   int
	opts   Options
	logger *slog.Logger
}

// BuildIndex walks every scan root. Unreadable roots are logged and left out;
// only cancellation is returned as an error.
func BuildIndex(ctx context.Context, scanRoots []string, opts Options) (*Index, error) {
	logger := opts.logger()
	ix := &Index{
		files:  make(map[string][]string),
		opts:   opts,
		logger: logger,
	}

	for _, root := range scanRoots {
		abs, err := filepath.Abs(root)
		if err != nil {
			logger.Warn("Skipping scan root", "path", root, "error", err)
			continue
		}
		if _, seen := ix.files[abs]; seen {
			continue
		}

		walker, err := glob.NewWalker(abs, glob.WalkOptions{
			Excludes:         opts.Excludes,
			CaseSensitive:    opts.CaseSensitive,
			RespectGitignore: opts.RespectGitignore,
			Logger:           logger,
		})
		if err != nil {
			return nil, err
		}

		files, err := walker.Walk(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			logger.Warn("Skipping unreadable scan root", "path", abs, "error", err)
			continue
		}

		ix.roots = append(ix.roots, abs)
		ix.files[abs] = files
		ix.dirs += walker.DirCount()
	}
	return ix, nil
}

// Roots returns the readable scan roots in the order given
func (ix *Index) Roots() []string {
	return ix.roots
}

// FileCount returns the number of files listed across all roots
func (ix *Index) FileCount() int {
	n := 0
	for _, files := range ix.files {
		n += len(files)
	}
	return n
}

// DirCount returns the number of folders visited across all roots
func (ix *Index) DirCount() int {
	return ix.dirs
}

// Match returns the manifests below scanRoot matching patterns, keyed by the
// absolute folder that contains them. extraExcludes apply on top of the
// index-wide excludes.
func (ix *Index) Match(scanRoot string, patterns, extraExcludes []string) (types.BomMatches, error) {
	matches := make(types.BomMatches)
	if len(patterns) == 0 {
		return matches, nil
	}

	matcher, err := glob.NewMatcher(patterns, extraExcludes, ix.opts.CaseSensitive)
	if err != nil {
		return nil, err
	}

	for _, rel := range ix.files[scanRoot] {
		if !matcher.Match(rel) {
			continue
		}
		folder := filepath.Join(scanRoot, filepath.FromSlash(path.Dir(rel)))
		matches[folder] = append(matches[folder], path.Base(rel))
	}
	return matches, nil
}

// Find walks scanRoots once and returns every folder containing a file that
// matches patterns. Finding nothing is not an error.
func Find(ctx context.Context, scanRoots, patterns []string, opts Options) (types.BomMatches, error) {
	ix, err := BuildIndex(ctx, scanRoots, opts)
	if err != nil {
		return nil, err
	}

	all := make(types.BomMatches)
	for _, root := range ix.Roots() {
		matches, err := ix.Match(root, patterns, nil)
		if err != nil {
			return nil, err
		}
		for folder, names := range matches {
			all[folder] = append(all[folder], names...)
		}
	}
	return all, nil
}
