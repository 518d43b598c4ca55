// Package ruby resolves Bundler projects from Gemfile.lock.
package ruby

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"sort"

	"github.com/petrarca/dependency-resolver/internal/resolver"
	"github.com/petrarca/dependency-resolver/internal/types"
)

func init() {
	resolver.Register(&Resolver{})
}

// Resolver implements resolver.Resolver for Bundler
type Resolver struct{}

func (r *Resolver) Name() string { return "ruby" }

func (r *Resolver) DependencyType() types.DependencyType { return types.DependencyTypeRuby }

// Resolve produces one project unit per Gemfile folder, named by the Gemfile
// path. A Gemfile without a lock is locked with "bundle lock" when tools may
// run; otherwise its gem statements are used.
func (r *Resolver) Resolve(ctx context.Context, req *resolver.Request) (*types.ResolutionResult, error) {
	dirs := make(map[string]bool)
	for _, m := range req.Manifests("Gemfile", "Gemfile.lock") {
		switch filepath.Base(m) {
		case "Gemfile", "Gemfile.lock":
			dirs[path.Dir(req.Rel(m))] = true
		}
	}
	if len(dirs) == 0 {
		return nil, resolver.ErrNoManifest
	}
	ordered := make([]string, 0, len(dirs))
	for dir := range dirs {
		ordered = append(ordered, dir)
	}
	sort.Strings(ordered)

	result := types.NewResolutionResult(r.DependencyType(), req.Root)
	useTool := req.Options.RunTools

	for _, dir := range ordered {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		gemfile := path.Join(dir, "Gemfile")
		lockRel := path.Join(dir, "Gemfile.lock")

		if !req.Exists(lockRel) && useTool && req.Exists(gemfile) {
			_, err := req.Run(ctx, filepath.Join(req.Root.Path, filepath.FromSlash(dir)), req.Options.BundleCommand, "lock")
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				req.Log().Warn("bundle lock failed, using Gemfile declarations", "gemfile", gemfile, "error", err)
				result.AddWarnings(fmt.Sprintf("%s: bundle lock failed, using declared gems: %v", gemfile, err))
				useTool = false
			}
		}

		if lock, err := req.ReadFile(lockRel); err == nil {
			built := parseLockfile(lock, req.Log())
			result.AddProject(gemfile, built.Roots)
			for _, w := range built.Warnings {
				result.AddWarnings(lockRel + ": " + w)
			}
			continue
		}

		content, err := req.ReadFile(gemfile)
		if err != nil {
			result.AddWarnings(fmt.Sprintf("%s: %v", gemfile, err))
			result.AddProject(gemfile, nil)
			continue
		}
		result.AddProject(gemfile, declaredGems(content))
	}

	return result, nil
}
