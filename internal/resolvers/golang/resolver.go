// Package golang resolves Go modules from "go mod graph", falling back to
// the requirements in go.mod, and dep projects from Gopkg.lock.
package golang

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"golang.org/x/mod/modfile"

	"github.com/petrarca/dependency-resolver/internal/resolver"
	"github.com/petrarca/dependency-resolver/internal/types"
)

func init() {
	resolver.Register(&Resolver{})
}

// Resolver implements resolver.Resolver for Go modules and dep projects
type Resolver struct{}

func (r *Resolver) Name() string { return "golang" }

func (r *Resolver) DependencyType() types.DependencyType { return types.DependencyTypeGo }

// Resolve produces one project unit per go.mod (named by module path) and
// per Gopkg.lock (named by its relative path)
func (r *Resolver) Resolve(ctx context.Context, req *resolver.Request) (*types.ResolutionResult, error) {
	mods := req.Manifests("go.mod")
	locks := req.Manifests("Gopkg.lock")
	if len(mods) == 0 && len(locks) == 0 {
		return nil, resolver.ErrNoManifest
	}

	result := types.NewResolutionResult(r.DependencyType(), req.Root)
	useTool := req.Options.RunTools

	for _, mod := range mods {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		content, err := req.ReadFile(mod)
		if err != nil {
			result.AddWarnings(fmt.Sprintf("%s: %v", req.Rel(mod), err))
			continue
		}
		// ParseLax would drop replace and exclude directives
		file, err := modfile.Parse(mod, content, nil)
		if err != nil {
			result.AddWarnings(fmt.Sprintf("%s: %v", req.Rel(mod), err))
			continue
		}
		modulePath := req.Rel(mod)
		if file.Module != nil {
			modulePath = file.Module.Mod.Path
		}

		if useTool {
			out, err := req.Run(ctx, filepath.Dir(mod), req.Options.GoCommand, "mod", "graph")
			if err == nil {
				built := buildGraph(modulePath, out.Stdout, req.Log())
				result.AddProject(modulePath, built.Roots)
				result.AddWarnings(built.Warnings...)
				continue
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			req.Log().Warn("go mod graph failed, using go.mod requirements", "module", modulePath, "error", err)
			result.AddWarnings(fmt.Sprintf("%s: go mod graph failed, using go.mod requirements: %v", modulePath, err))
			useTool = false
		}

		result.AddProject(modulePath, requirements(file))
	}

	for _, lock := range locks {
		content, err := req.ReadFile(lock)
		if err != nil {
			result.AddWarnings(fmt.Sprintf("%s: %v", req.Rel(lock), err))
			continue
		}
		nodes, err := parseGopkgLock(content)
		if err != nil {
			result.AddWarnings(fmt.Sprintf("%s: %v", req.Rel(lock), err))
			continue
		}
		result.AddProject(req.Rel(lock), nodes)
	}

	return result, nil
}

// requirements lists the go.mod requirements with replacements applied.
// A module replaced by a local folder keeps its version and records the folder.
func requirements(file *modfile.File) []*types.DependencyNode {
	replaced := make(map[string]*modfile.Replace)
	for _, rep := range file.Replace {
		replaced[rep.Old.Path+"@"+rep.Old.Version] = rep
	}

	var nodes []*types.DependencyNode
	for _, req := range file.Require {
		node := &types.DependencyNode{
			ArtifactID: req.Mod.Path,
			Version:    req.Mod.Version,
			Type:       types.DependencyTypeGo,
		}

		rep, ok := replaced[req.Mod.Path+"@"+req.Mod.Version]
		if !ok {
			rep, ok = replaced[req.Mod.Path+"@"]
		}
		if ok {
			if rep.New.Version == "" {
				node.SCMPath = rep.New.Path
			} else {
				node.ArtifactID = rep.New.Path
				node.Version = rep.New.Version
			}
		}
		nodes = append(nodes, node)
	}
	return nodes
}

type gopkgLock struct {
	Projects []gopkgProject `toml:"projects"`
}

type gopkgProject struct {
	Name     string `toml:"name"`
	Version  string `toml:"version"`
	Branch   string `toml:"branch"`
	Revision string `toml:"revision"`
	Source   string `toml:"source"`
}

// parseGopkgLock reads the flat project list of a dep lock file
func parseGopkgLock(content []byte) ([]*types.DependencyNode, error) {
	var lock gopkgLock
	if err := toml.Unmarshal(content, &lock); err != nil {
		return nil, fmt.Errorf("failed to parse Gopkg.lock: %w", err)
	}

	nodes := make([]*types.DependencyNode, 0, len(lock.Projects))
	for _, p := range lock.Projects {
		version := p.Version
		if version == "" {
			version = p.Branch
		}
		nodes = append(nodes, &types.DependencyNode{
			ArtifactID: p.Name,
			Version:    version,
			Commit:     p.Revision,
			SCMPath:    p.Source,
			Type:       types.DependencyTypeGo,
		})
	}
	return nodes, nil
}
