// Package python resolves Python projects from poetry.lock or by installing a
// requirements file into a throwaway virtual environment and reading
// pipdeptree's rendering of it.
package python

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"

	"github.com/petrarca/dependency-resolver/internal/resolver"
	"github.com/petrarca/dependency-resolver/internal/tree"
	"github.com/petrarca/dependency-resolver/internal/types"
)

func init() {
	resolver.Register(&Resolver{})
}

var errNoSession = errors.New("no scan session for a virtual environment")

// Resolver implements resolver.Resolver for pip and Poetry projects
type Resolver struct{}

func (r *Resolver) Name() string { return "python" }

func (r *Resolver) DependencyType() types.DependencyType { return types.DependencyTypePython }

// Resolve produces one unit per poetry.lock, named by the pyproject name, and
// one unit per requirements file, named by its path.
func (r *Resolver) Resolve(ctx context.Context, req *resolver.Request) (*types.ResolutionResult, error) {
	locks := req.Manifests("poetry.lock")
	requirements := req.Manifests("requirements.txt")
	if len(locks)+len(requirements) == 0 {
		return nil, resolver.ErrNoManifest
	}

	result := types.NewResolutionResult(r.DependencyType(), req.Root)

	for _, lock := range locks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r.resolvePoetry(req, lock, result)
	}

	useTool := req.Options.RunTools
	for _, file := range requirements {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rel := req.Rel(file)
		content, err := req.ReadFile(rel)
		if err != nil {
			result.AddWarnings(fmt.Sprintf("%s: %v", rel, err))
			continue
		}

		if useTool {
			built, err := r.installAndInspect(ctx, req, file)
			if err == nil {
				result.AddProject(rel, built.Roots)
				for _, w := range built.Warnings {
					result.AddWarnings(rel + ": " + w)
				}
				continue
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			req.Log().Warn("pip install failed, using pinned requirements", "file", rel, "error", err)
			result.AddWarnings(fmt.Sprintf("%s: pip install failed, using pinned requirements: %v", rel, err))
			if !errors.Is(err, resolver.ErrToolFailed) {
				// a missing interpreter will not appear for the next file
				useTool = false
			}
		}
		result.AddProject(rel, pinnedRequirements(content))
	}

	return result, nil
}

func (r *Resolver) resolvePoetry(req *resolver.Request, lock string, result *types.ResolutionResult) {
	rel := req.Rel(lock)
	content, err := req.ReadFile(rel)
	if err != nil {
		result.AddWarnings(fmt.Sprintf("%s: %v", rel, err))
		return
	}

	name := rel
	var direct []string
	if data, err := req.ReadFile(path.Join(path.Dir(rel), "pyproject.toml")); err == nil {
		project, err := parsePyproject(data)
		if err != nil {
			result.AddWarnings(fmt.Sprintf("%s: %v", path.Join(path.Dir(rel), "pyproject.toml"), err))
		} else {
			if project.name() != "" {
				name = project.name()
			}
			direct = project.direct()
		}
	}

	built, err := buildPoetry(content, direct, req.Log())
	if err != nil {
		result.AddWarnings(fmt.Sprintf("%s: %v", rel, err))
		result.AddProject(name, nil)
		return
	}
	result.AddProject(name, built.Roots)
	for _, w := range built.Warnings {
		result.AddWarnings(rel + ": " + w)
	}
}

// installAndInspect creates a virtual environment inside the scan session,
// installs the requirements plus pipdeptree into it and parses the tree.
// Commands run inside the environment folder so its scripts are addressed
// relative to it.
func (r *Resolver) installAndInspect(ctx context.Context, req *resolver.Request, file string) (tree.Result, error) {
	if req.Session == nil {
		return tree.Result{}, errNoSession
	}
	venv, cleanup, err := req.Session.TempDir("venv")
	if err != nil {
		return tree.Result{}, err
	}
	defer cleanup()

	steps := [][]string{
		{req.Options.PythonCommand, "-m", "venv", "."},
		{filepath.Join("bin", "pip"), "install", "--disable-pip-version-check", "-q", "-r", file},
		{filepath.Join("bin", "pip"), "install", "--disable-pip-version-check", "-q", "pipdeptree"},
	}
	for _, argv := range steps {
		if _, err := req.Run(ctx, venv, argv...); err != nil {
			return tree.Result{}, err
		}
	}

	out, err := req.Run(ctx, venv, filepath.Join("bin", "pipdeptree"), "--warn", "silence", "--exclude", "pip,setuptools,wheel,pipdeptree")
	if err != nil {
		return tree.Result{}, err
	}

	builder := &tree.IndentBuilder{
		Type:   types.DependencyTypePython,
		Depth:  treeDepth,
		Parse:  parseTreeLine,
		Logger: req.Log(),
	}
	return builder.Build(out.Stdout), nil
}
