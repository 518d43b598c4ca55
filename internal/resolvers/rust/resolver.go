// Package rust resolves Cargo projects from Cargo.lock.
package rust

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/petrarca/dependency-resolver/internal/resolver"
	"github.com/petrarca/dependency-resolver/internal/tree"
	"github.com/petrarca/dependency-resolver/internal/types"
)

func init() {
	resolver.Register(&Resolver{})
}

type cargoLock struct {
	Packages []cargoPackage `toml:"package"`
}

type cargoPackage struct {
	Name         string   `toml:"name"`
	Version      string   `toml:"version"`
	Source       string   `toml:"source"`
	Dependencies []string `toml:"dependencies"`
}

// Resolver implements resolver.Resolver for Cargo
type Resolver struct{}

func (r *Resolver) Name() string { return "rust" }

func (r *Resolver) DependencyType() types.DependencyType { return types.DependencyTypeCargo }

// Resolve produces one unit per Cargo.lock, named by its path. The roots are
// the packages no other package depends on, usually the workspace members.
func (r *Resolver) Resolve(ctx context.Context, req *resolver.Request) (*types.ResolutionResult, error) {
	locks := req.Manifests("Cargo.lock")
	if len(locks) == 0 {
		return nil, resolver.ErrNoManifest
	}

	result := types.NewResolutionResult(r.DependencyType(), req.Root)
	for _, lock := range locks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rel := req.Rel(lock)
		content, err := req.ReadFile(rel)
		if err != nil {
			result.AddWarnings(fmt.Sprintf("%s: %v", rel, err))
			continue
		}
		built, err := parseLock(content, req.Log())
		if err != nil {
			result.AddWarnings(fmt.Sprintf("%s: %v", rel, err))
			result.AddProject(rel, nil)
			continue
		}
		result.AddProject(rel, built.Roots)
		for _, w := range built.Warnings {
			result.AddWarnings(rel + ": " + w)
		}
	}
	return result, nil
}

func parseLock(content []byte, logger *slog.Logger) (tree.Result, error) {
	var lock cargoLock
	if err := toml.Unmarshal(content, &lock); err != nil {
		return tree.Result{}, fmt.Errorf("failed to parse Cargo.lock: %w", err)
	}

	builder := tree.NewReferenceBuilder(types.DependencyTypeCargo, logger)
	builder.InferRoots = true

	for _, pkg := range lock.Packages {
		node := types.DependencyNode{ArtifactID: pkg.Name, Version: pkg.Version, Type: types.DependencyTypeCargo}
		if url, commit, ok := gitSource(pkg.Source); ok {
			node.SCMPath = url
			node.Commit = commit
		}
		builder.Declare(node)
	}
	for _, pkg := range lock.Packages {
		for _, dep := range pkg.Dependencies {
			builder.Require(tree.Ref{Name: pkg.Name, Version: pkg.Version}, dependencyRef(dep))
		}
	}
	return builder.Build(), nil
}

// dependencyRef parses "name", "name version" or "name version (source)".
// The version is only present when several versions of name are locked.
func dependencyRef(dep string) tree.Ref {
	fields := strings.Fields(dep)
	switch len(fields) {
	case 0:
		return tree.Ref{}
	case 1:
		return tree.Ref{Name: fields[0]}
	}
	return tree.Ref{Name: fields[0], Version: fields[1]}
}

// gitSource splits "git+https://host/repo?rev=x#<commit>"
func gitSource(source string) (string, string, bool) {
	if !strings.HasPrefix(source, "git+") {
		return "", "", false
	}
	url, commit, _ := strings.Cut(strings.TrimPrefix(source, "git+"), "#")
	if idx := strings.Index(url, "?"); idx >= 0 {
		url = url[:idx]
	}
	return url, commit, true
}
