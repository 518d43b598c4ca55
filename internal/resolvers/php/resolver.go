// Package php resolves Composer projects from composer.lock.
package php

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"

	"github.com/petrarca/dependency-resolver/internal/resolver"
	"github.com/petrarca/dependency-resolver/internal/tree"
	"github.com/petrarca/dependency-resolver/internal/types"
)

func init() {
	resolver.Register(&Resolver{})
}

type composerJSON struct {
	Name       string            `json:"name"`
	Require    map[string]string `json:"require"`
	RequireDev map[string]string `json:"require-dev"`
}

type composerLock struct {
	Packages    []composerPackage `json:"packages"`
	PackagesDev []composerPackage `json:"packages-dev"`
}

type composerPackage struct {
	Name    string            `json:"name"`
	Version string            `json:"version"`
	Require map[string]string `json:"require"`
	Source  struct {
		Type      string `json:"type"`
		URL       string `json:"url"`
		Reference string `json:"reference"`
	} `json:"source"`
	Dist struct {
		Shasum string `json:"shasum"`
	} `json:"dist"`
}

// Resolver implements resolver.Resolver for Composer
type Resolver struct{}

func (r *Resolver) Name() string { return "php" }

func (r *Resolver) DependencyType() types.DependencyType { return types.DependencyTypePHP }

// Resolve produces one unit per composer.lock, named by the package name of
// the composer.json next to it (or the lock path)
func (r *Resolver) Resolve(ctx context.Context, req *resolver.Request) (*types.ResolutionResult, error) {
	locks := req.Manifests("composer.lock")
	if len(locks) == 0 {
		return nil, resolver.ErrNoManifest
	}

	result := types.NewResolutionResult(r.DependencyType(), req.Root)

	for _, lock := range locks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rel := req.Rel(lock)
		if strings.Contains("/"+rel, "/vendor/") {
			continue
		}

		name := rel
		var manifest *composerJSON
		manifestRel := path.Join(path.Dir(rel), "composer.json")
		if data, err := req.ReadFile(manifestRel); err == nil {
			manifest = &composerJSON{}
			if err := json.Unmarshal(data, manifest); err != nil {
				result.AddWarnings(fmt.Sprintf("%s: %v", manifestRel, err))
				manifest = nil
			} else if manifest.Name != "" {
				name = manifest.Name
			}
		}

		content, err := req.ReadFile(rel)
		if err != nil {
			result.AddWarnings(fmt.Sprintf("%s: %v", rel, err))
			continue
		}
		built, err := buildLock(content, manifest, req.Log())
		if err != nil {
			result.AddWarnings(fmt.Sprintf("%s: %v", rel, err))
			result.AddProject(name, nil)
			continue
		}
		result.AddProject(name, built.Roots)
		for _, w := range built.Warnings {
			result.AddWarnings(rel + ": " + w)
		}
	}

	return result, nil
}

// buildLock joins the locked packages by name. Platform requirements (php,
// ext-*, lib-*, composer-*) are not packages and are ignored.
func buildLock(content []byte, manifest *composerJSON, logger *slog.Logger) (tree.Result, error) {
	var lock composerLock
	if err := json.Unmarshal(content, &lock); err != nil {
		return tree.Result{}, fmt.Errorf("failed to parse composer.lock: %w", err)
	}

	builder := tree.NewReferenceBuilder(types.DependencyTypePHP, logger)
	builder.InferRoots = true

	packages := append(append([]composerPackage(nil), lock.Packages...), lock.PackagesDev...)
	for _, pkg := range packages {
		group, artifact := splitName(pkg.Name)
		node := types.DependencyNode{
			GroupID:    group,
			ArtifactID: artifact,
			Version:    strings.TrimPrefix(pkg.Version, "v"),
			SHA1:       pkg.Dist.Shasum,
			Type:       types.DependencyTypePHP,
		}
		if pkg.Source.Type == "git" {
			node.Commit = pkg.Source.Reference
			node.SCMPath = pkg.Source.URL
		}
		builder.Declare(node)
	}

	for _, pkg := range packages {
		for _, dep := range requirementNames(pkg.Require) {
			builder.Require(tree.Ref{Name: refName(pkg.Name)}, tree.Ref{Name: refName(dep)})
		}
	}

	if manifest != nil {
		for _, reqs := range []map[string]string{manifest.Require, manifest.RequireDev} {
			for _, dep := range requirementNames(reqs) {
				builder.Direct(tree.Ref{Name: refName(dep)})
			}
		}
	}
	return builder.Build(), nil
}

// requirementNames returns the package requirements in lexical order
func requirementNames(require map[string]string) []string {
	names := make([]string, 0, len(require))
	for name := range require {
		if isPlatform(name) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func isPlatform(name string) bool {
	name = strings.ToLower(name)
	return name == "php" || name == "hhvm" || !strings.Contains(name, "/") ||
		strings.HasPrefix(name, "ext-") || strings.HasPrefix(name, "lib-") || strings.HasPrefix(name, "composer-")
}

// splitName maps "vendor/package" to group and artifact; names are case-insensitive
func splitName(name string) (string, string) {
	vendor, pkg, ok := strings.Cut(strings.ToLower(name), "/")
	if !ok {
		return "", vendor
	}
	return vendor, pkg
}

func refName(name string) string {
	return tree.RefName(splitName(name))
}
