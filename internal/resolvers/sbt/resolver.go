// Package sbt resolves sbt builds from the Ivy resolution reports written by
// "sbt update", falling back to the library dependencies declared in build.sbt.
package sbt

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"regexp"

	"github.com/petrarca/dependency-resolver/internal/resolver"
	"github.com/petrarca/dependency-resolver/internal/types"
)

func init() {
	resolver.Register(&Resolver{})
}

const reportPattern = "**/target/**/resolution-cache/reports/*-compile.xml"

// Resolver implements resolver.Resolver for sbt
type Resolver struct{}

func (r *Resolver) Name() string { return "sbt" }

func (r *Resolver) DependencyType() types.DependencyType { return types.DependencyTypeSBT }

// Resolve produces one unit per reported sbt project, named
// "organisation:module". Builds without reports run "sbt update" first when
// tools may run.
func (r *Resolver) Resolve(ctx context.Context, req *resolver.Request) (*types.ResolutionResult, error) {
	builds := req.Manifests("build.sbt")
	if len(builds) == 0 {
		return nil, resolver.ErrNoManifest
	}

	result := types.NewResolutionResult(r.DependencyType(), req.Root)
	useTool := req.Options.RunTools
	done := make(map[string]bool)

	for _, build := range builds {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rel := req.Rel(build)
		dir := path.Dir(rel)

		reports, err := req.Glob(dir, reportPattern)
		if err != nil {
			return nil, err
		}
		if len(reports) == 0 && useTool {
			if _, err := req.Run(ctx, filepath.Dir(build), req.Options.SbtCommand, "-batch", "update"); err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				req.Log().Warn("sbt update failed, using declared dependencies", "build", rel, "error", err)
				result.AddWarnings(fmt.Sprintf("%s: sbt update failed, using declared dependencies: %v", rel, err))
				useTool = false
			} else if reports, err = req.Glob(dir, reportPattern); err != nil {
				return nil, err
			}
		}

		if len(reports) == 0 {
			content, err := req.ReadFile(rel)
			if err != nil {
				result.AddWarnings(fmt.Sprintf("%s: %v", rel, err))
				continue
			}
			result.AddProject(rel, declaredDependencies(content))
			continue
		}

		for _, reportRel := range reports {
			// nested builds find the reports of their parent build's walk too
			if done[reportRel] {
				continue
			}
			done[reportRel] = true
			r.addReport(req, reportRel, result)
		}
	}

	return result, nil
}

func (r *Resolver) addReport(req *resolver.Request, reportRel string, result *types.ResolutionResult) {
	content, err := req.ReadFile(reportRel)
	if err != nil {
		result.AddWarnings(fmt.Sprintf("%s: %v", reportRel, err))
		return
	}
	report, err := parseReport(content)
	if err != nil {
		result.AddWarnings(fmt.Sprintf("%s: %v", reportRel, err))
		return
	}
	built := buildReport(report, req.Digest, req.Log())
	result.AddProject(report.project(), built.Roots)
	for _, w := range built.Warnings {
		result.AddWarnings(report.project() + ": " + w)
	}
}

var libraryPattern = regexp.MustCompile(`"([^"\s]+)"\s*(%%%|%%|%)\s*"([^"\s]+)"\s*%\s*"([^"\s]+)"`)

// declaredDependencies lists the "org" %% "name" % "version" coordinates of a build definition
func declaredDependencies(content []byte) []*types.DependencyNode {
	var nodes []*types.DependencyNode
	seen := make(map[string]bool)
	for _, m := range libraryPattern.FindAllSubmatch(content, -1) {
		node := &types.DependencyNode{
			GroupID:    string(m[1]),
			ArtifactID: string(m[3]),
			Version:    string(m[4]),
			Type:       types.DependencyTypeSBT,
		}
		if seen[node.Key()] {
			continue
		}
		seen[node.Key()] = true
		nodes = append(nodes, node)
	}
	return nodes
}
