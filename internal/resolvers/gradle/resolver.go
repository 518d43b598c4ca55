// Package gradle resolves Gradle projects from the output of the
// "dependencies" task, falling back to the declarations in the build scripts.
package gradle

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/petrarca/dependency-resolver/internal/resolver"
	"github.com/petrarca/dependency-resolver/internal/tree"
	"github.com/petrarca/dependency-resolver/internal/types"
)

func init() {
	resolver.Register(&Resolver{})
}

// Resolver implements resolver.Resolver for Gradle builds
type Resolver struct{}

func (r *Resolver) Name() string { return "gradle" }

func (r *Resolver) DependencyType() types.DependencyType { return types.DependencyTypeGradle }

// Resolve produces one project unit per build script, named by its gradle
// project path (":" for the root project, ":app:core" for nested ones).
func (r *Resolver) Resolve(ctx context.Context, req *resolver.Request) (*types.ResolutionResult, error) {
	scripts := req.Manifests("build.gradle", "build.gradle.kts")
	if len(scripts) == 0 {
		return nil, resolver.ErrNoManifest
	}

	result := types.NewResolutionResult(r.DependencyType(), req.Root)
	useTool := req.Options.RunTools

	for _, script := range scripts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		project := projectPath(req.Rel(filepath.Dir(script)))

		if useTool {
			built, err := r.runDependencies(ctx, req, project)
			if err == nil {
				result.AddProject(project, built.Roots)
				result.AddWarnings(prefixed(project, built.Warnings)...)
				continue
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			req.Log().Warn("Gradle dependencies task failed, using declared dependencies", "project", project, "error", err)
			result.AddWarnings(fmt.Sprintf("%s: gradle failed, using declared dependencies: %v", project, err))
			// the tool is not going to work for sibling projects either
			useTool = false
		}

		content, err := req.ReadFile(script)
		if err != nil {
			result.AddWarnings(fmt.Sprintf("%s: %v", req.Rel(script), err))
			result.AddProject(project, nil)
			continue
		}
		result.AddProject(project, declaredDependencies(string(content)))
	}

	return result, nil
}

func (r *Resolver) runDependencies(ctx context.Context, req *resolver.Request, project string) (tree.Result, error) {
	task := "dependencies"
	if project != ":" {
		task = project + ":dependencies"
	}
	args := []string{"-q", task, "--configuration", req.Options.GradleConfiguration}

	out, err := req.RunFirst(ctx, req.Root.Path,
		append([]string{req.Options.GradleCommand}, args...),
		req.Wrapper("gradlew", args...),
	)
	if err != nil {
		return tree.Result{}, err
	}

	builder := &tree.IndentBuilder{
		Type:   types.DependencyTypeGradle,
		Depth:  treeDepth,
		Parse:  parseLine,
		Skip:   projectLine,
		Logger: req.Log(),
	}
	return builder.Build(out.Stdout), nil
}

// projectPath maps a folder relative to the root build to its gradle project path
func projectPath(rel string) string {
	rel = path.Clean(filepath.ToSlash(rel))
	if rel == "." || rel == "" {
		return ":"
	}
	return ":" + strings.ReplaceAll(rel, "/", ":")
}

func prefixed(project string, warnings []string) []string {
	out := make([]string, len(warnings))
	for i, w := range warnings {
		out[i] = project + ": " + w
	}
	return out
}
