// Package npm resolves Node.js projects from package-lock.json, falling back
// to the dependencies declared in package.json.
package npm

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/petrarca/dependency-resolver/internal/resolver"
	"github.com/petrarca/dependency-resolver/internal/types"
)

func init() {
	resolver.Register(&Resolver{})
}

var lockNames = []string{"npm-shrinkwrap.json", "package-lock.json"}

// Resolver implements resolver.Resolver for npm
type Resolver struct{}

func (r *Resolver) Name() string { return "npm" }

func (r *Resolver) DependencyType() types.DependencyType { return types.DependencyTypeNpm }

// Resolve produces one project unit per package.json, named by its package
// name. Manifests inside node_modules belong to installed packages and are skipped.
func (r *Resolver) Resolve(ctx context.Context, req *resolver.Request) (*types.ResolutionResult, error) {
	var manifests []string
	for _, m := range req.Manifests("package.json") {
		if filepath.Base(m) == "package.json" && !strings.Contains(filepath.ToSlash(m), "/node_modules/") {
			manifests = append(manifests, m)
		}
	}
	if len(manifests) == 0 {
		return nil, resolver.ErrNoManifest
	}

	result := types.NewResolutionResult(r.DependencyType(), req.Root)

	for _, manifestPath := range manifests {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rel := req.Rel(manifestPath)

		var manifest packageJSON
		content, err := req.ReadFile(rel)
		if err == nil {
			err = json.Unmarshal(content, &manifest)
		}
		if err != nil {
			result.AddWarnings(fmt.Sprintf("%s: %v", rel, err))
			continue
		}
		name := manifest.Name
		if name == "" {
			name = rel
		}

		lockRel, lockContent := r.findLock(req, path.Dir(rel))
		if lockContent == nil {
			result.AddProject(name, declared(manifest))
			continue
		}

		packages, err := parseLock(lockContent, &manifest)
		if err != nil {
			req.Log().Warn("Unreadable lock file, using declared dependencies", "lock", lockRel, "error", err)
			result.AddWarnings(fmt.Sprintf("%s: %v", lockRel, err))
			result.AddProject(name, declared(manifest))
			continue
		}
		built := buildForest(packages, req.Log())
		result.AddProject(name, built.Roots)
		for _, w := range built.Warnings {
			result.AddWarnings(lockRel + ": " + w)
		}
	}

	return result, nil
}

func (r *Resolver) findLock(req *resolver.Request, dir string) (string, []byte) {
	for _, name := range lockNames {
		rel := path.Join(dir, name)
		if content, err := req.ReadFile(rel); err == nil {
			return rel, content
		}
	}
	return "", nil
}

// declared lists the dependencies of package.json; versions are the declared ranges
func declared(manifest packageJSON) []*types.DependencyNode {
	var nodes []*types.DependencyNode
	seen := make(map[string]bool)
	for _, deps := range []map[string]string{manifest.Dependencies, manifest.DevDependencies, manifest.OptionalDependencies} {
		names := make([]string, 0, len(deps))
		for name := range deps {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if seen[name] {
				continue
			}
			seen[name] = true
			nodes = append(nodes, &types.DependencyNode{ArtifactID: name, Version: deps[name], Type: types.DependencyTypeNpm})
		}
	}
	return nodes
}
