// Package cocoapods resolves CocoaPods projects from Podfile.lock.
package cocoapods

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/petrarca/dependency-resolver/internal/resolver"
	"github.com/petrarca/dependency-resolver/internal/tree"
	"github.com/petrarca/dependency-resolver/internal/types"
)

func init() {
	resolver.Register(&Resolver{})
}

type podfileLock struct {
	Pods            []any                        `yaml:"PODS"`
	Dependencies    []string                     `yaml:"DEPENDENCIES"`
	CheckoutOptions map[string]map[string]string `yaml:"CHECKOUT OPTIONS"`
	SpecChecksums   map[string]string            `yaml:"SPEC CHECKSUMS"`
}

// Resolver implements resolver.Resolver for CocoaPods
type Resolver struct{}

func (r *Resolver) Name() string { return "cocoapods" }

func (r *Resolver) DependencyType() types.DependencyType { return types.DependencyTypeCocoaPods }

// Resolve produces one unit per Podfile.lock, named by its path
func (r *Resolver) Resolve(ctx context.Context, req *resolver.Request) (*types.ResolutionResult, error) {
	locks := req.Manifests("Podfile.lock")
	if len(locks) == 0 {
		return nil, resolver.ErrNoManifest
	}

	result := types.NewResolutionResult(r.DependencyType(), req.Root)
	for _, lock := range locks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rel := req.Rel(lock)
		if strings.Contains("/"+rel, "/Pods/") {
			continue
		}
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

// parseLock joins PODS entries by pod name. An entry is either "Name (version)"
// or a single key map from "Name (version)" to its requirements.
func parseLock(content []byte, logger *slog.Logger) (tree.Result, error) {
	var lock podfileLock
	if err := yaml.Unmarshal(content, &lock); err != nil {
		return tree.Result{}, fmt.Errorf("failed to parse Podfile.lock: %w", err)
	}

	builder := tree.NewReferenceBuilder(types.DependencyTypeCocoaPods, logger)
	builder.InferRoots = true

	type edge struct {
		parent string
		child  tree.Ref
	}
	var edges []edge

	for _, entry := range lock.Pods {
		var spec string
		var requires []string
		switch v := entry.(type) {
		case string:
			spec = v
		case map[string]any:
			for key, value := range v {
				spec = key
				if list, ok := value.([]any); ok {
					for _, item := range list {
						if s, ok := item.(string); ok {
							requires = append(requires, s)
						}
					}
				}
			}
		default:
			continue
		}

		name, version := splitPod(spec)
		if name == "" {
			continue
		}
		node := types.DependencyNode{ArtifactID: name, Version: version, Type: types.DependencyTypeCocoaPods}
		root := rootPod(name)
		if checksum := lock.SpecChecksums[root]; checksum != "" {
			node.SHA1 = checksum
		}
		if options := lock.CheckoutOptions[root]; options != nil {
			node.SCMPath = options[":git"]
			node.Commit = options[":commit"]
			if node.Commit == "" {
				node.Commit = options[":tag"]
			}
		}
		builder.Declare(node)

		for _, r := range requires {
			child, requirement := splitPod(r)
			edges = append(edges, edge{parent: name, child: tree.Ref{Name: child, Version: requirement}})
		}
	}

	for _, e := range edges {
		builder.Require(tree.Ref{Name: e.parent}, e.child)
	}

	deps := append([]string(nil), lock.Dependencies...)
	sort.Strings(deps)
	for _, dep := range deps {
		name, _ := splitPod(dep)
		builder.Direct(tree.Ref{Name: name})
	}
	return builder.Build(), nil
}

// splitPod splits "Name (version or requirement)"
func splitPod(spec string) (string, string) {
	spec = strings.TrimSpace(spec)
	open := strings.Index(spec, " (")
	if open < 0 {
		return spec, ""
	}
	return spec[:open], strings.TrimSuffix(spec[open+2:], ")")
}

// rootPod strips the subspec path ("Firebase/Analytics" belongs to "Firebase")
func rootPod(name string) string {
	root, _, _ := strings.Cut(name, "/")
	return root
}
