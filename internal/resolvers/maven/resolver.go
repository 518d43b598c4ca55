// Package maven resolves Maven projects from "mvn dependency:tree", falling
// back to the dependencies declared in the pom files.
package maven

import (
	"context"
	"fmt"

	"github.com/petrarca/dependency-resolver/internal/resolver"
	"github.com/petrarca/dependency-resolver/internal/tree"
	"github.com/petrarca/dependency-resolver/internal/types"
)

func init() {
	resolver.Register(&Resolver{})
}

// Resolver implements resolver.Resolver for Maven builds
type Resolver struct{}

func (r *Resolver) Name() string { return "maven" }

func (r *Resolver) DependencyType() types.DependencyType { return types.DependencyTypeMaven }

// Resolve produces one project unit per Maven module, named group:artifact
func (r *Resolver) Resolve(ctx context.Context, req *resolver.Request) (*types.ResolutionResult, error) {
	poms := req.Manifests("pom.xml")
	if len(poms) == 0 {
		return nil, resolver.ErrNoManifest
	}

	result := types.NewResolutionResult(r.DependencyType(), req.Root)

	if req.Options.RunTools {
		modules, err := r.dependencyTree(ctx, req)
		switch {
		case err == nil && len(modules) > 0:
			for _, module := range modules {
				builder := &tree.IndentBuilder{
					Type:   types.DependencyTypeMaven,
					Depth:  tree.ConnectorDepth(connectorUnit, connectorGlyphs),
					Parse:  parseCoordinate,
					Logger: req.Log(),
				}
				built := builder.Build(module.lines)
				result.AddProject(module.name, built.Roots)
				for _, w := range built.Warnings {
					result.AddWarnings(module.name + ": " + w)
				}
			}
			return result, nil
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case err == nil:
			result.AddWarnings("mvn printed no dependency tree, using declared dependencies")
		default:
			req.Log().Warn("Maven dependency:tree failed, using declared dependencies", "root", req.Root.Path, "error", err)
			result.AddWarnings(fmt.Sprintf("mvn failed, using declared dependencies: %v", err))
		}
	}

	reader := pomReader{read: req.FS.ReadFile}
	for _, pom := range poms {
		name, nodes, err := reader.declared(req.Rel(pom))
		if err != nil {
			result.AddWarnings(fmt.Sprintf("%s: %v", req.Rel(pom), err))
			continue
		}
		result.AddProject(name, nodes)
	}
	return result, nil
}

func (r *Resolver) dependencyTree(ctx context.Context, req *resolver.Request) ([]moduleTree, error) {
	args := []string{"-B", "dependency:tree"}
	out, err := req.RunFirst(ctx, req.Root.Path,
		append([]string{req.Options.MavenCommand}, args...),
		req.Wrapper("mvnw", args...),
	)
	if err != nil {
		return nil, err
	}
	return splitModules(out.Stdout), nil
}
