// Package nuget resolves .NET projects from paket.lock, restore output of
// SDK style projects and legacy packages.config files.
package nuget

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/petrarca/dependency-resolver/internal/resolver"
	"github.com/petrarca/dependency-resolver/internal/types"
)

var errNoSession = errors.New("no scan session for restore output")

func init() {
	resolver.Register(&Resolver{})
}

// Resolver implements resolver.Resolver for NuGet
type Resolver struct{}

func (r *Resolver) Name() string { return "nuget" }

func (r *Resolver) DependencyType() types.DependencyType { return types.DependencyTypeNuGet }

// Resolve handles every NuGet flavour found below the root. paket.lock units
// are named by the lock file (plus ":Group" for non-main groups), project
// files by their assembly name and packages.config by its path.
func (r *Resolver) Resolve(ctx context.Context, req *resolver.Request) (*types.ResolutionResult, error) {
	locks := req.Manifests("paket.lock")
	projects := req.Manifests(".csproj", ".fsproj", ".vbproj")
	configs := req.Manifests("packages.config")
	if len(locks)+len(projects)+len(configs) == 0 {
		return nil, resolver.ErrNoManifest
	}

	result := types.NewResolutionResult(r.DependencyType(), req.Root)

	for _, lock := range locks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r.resolvePaket(req, lock, result)
	}

	useTool := req.Options.RunTools
	for _, project := range projects {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var err error
		useTool, err = r.resolveProject(ctx, req, project, useTool, result)
		if err != nil {
			return nil, err
		}
	}

	for _, config := range configs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r.resolvePackagesConfig(req, config, result)
	}

	return result, nil
}

func (r *Resolver) resolvePaket(req *resolver.Request, lock string, result *types.ResolutionResult) {
	rel := req.Rel(lock)
	content, err := req.ReadFile(rel)
	if err != nil {
		result.AddWarnings(fmt.Sprintf("%s: %v", rel, err))
		return
	}

	groups := parsePaketLock(content)
	var direct map[string][]string
	if deps, err := req.ReadFile(path.Join(path.Dir(rel), "paket.dependencies")); err == nil {
		direct = parsePaketDependencies(deps)
	}

	for _, name := range groupNames(groups) {
		group := groups[name]
		if name != mainGroup && len(group.packages) == 0 {
			continue
		}
		unit := rel
		if name != mainGroup {
			unit = rel + ":" + name
		}
		built := buildPaketGroup(group, direct[name], direct != nil, req.Log())
		result.AddProject(unit, built.Roots)
		for _, w := range built.Warnings {
			result.AddWarnings(unit + ": " + w)
		}
	}
}

// resolveProject reads obj/project.assets.json, restoring into the scan
// session when it is missing and tools may run. Without restore output the
// declared package references are used. It reports whether later projects
// may still run the tool.
func (r *Resolver) resolveProject(ctx context.Context, req *resolver.Request, project string, useTool bool, result *types.ResolutionResult) (bool, error) {
	rel := req.Rel(project)
	content, err := req.ReadFile(rel)
	if err != nil {
		result.AddWarnings(fmt.Sprintf("%s: %v", rel, err))
		return useTool, nil
	}
	parsed, err := parseCsproj(rel, content)
	if err != nil {
		result.AddWarnings(err.Error())
		return useTool, nil
	}

	assetsRel := path.Join(path.Dir(rel), "obj", "project.assets.json")
	if assets, err := req.ReadFile(assetsRel); err == nil {
		addAssets(req, parsed, assetsRel, assets, result)
		return useTool, nil
	}

	if useTool {
		err := restore(ctx, req, project, func(assetsPath string, assets []byte) {
			addAssets(req, parsed, assetsPath, assets, result)
		})
		if err == nil {
			return useTool, nil
		}
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		req.Log().Warn("dotnet restore failed, using declared package references", "project", rel, "error", err)
		result.AddWarnings(fmt.Sprintf("%s: dotnet restore failed, using declared package references: %v", parsed.name, err))
		useTool = false
	}

	result.AddProject(parsed.name, parsed.references)
	return useTool, nil
}

// restore runs "dotnet restore" with the package cache and the restore
// output inside a session folder, so neither the scanned tree nor the global
// packages folder is written to. use is called with the assets file while
// the restored packages still exist for hashing.
func restore(ctx context.Context, req *resolver.Request, project string, use func(assetsPath string, assets []byte)) error {
	if req.Session == nil {
		return errNoSession
	}
	dir, cleanup, err := req.Session.TempDir("nuget")
	if err != nil {
		return err
	}
	defer cleanup()

	outDir := filepath.Join(dir, "obj")
	_, err = req.Run(ctx, filepath.Dir(project), req.Options.DotnetCommand, "restore", filepath.Base(project),
		"--packages", filepath.Join(dir, "packages"),
		"-p:RestoreOutputPath="+outDir+string(filepath.Separator))
	if err != nil {
		return err
	}

	assetsPath := filepath.Join(outDir, "project.assets.json")
	assets, err := os.ReadFile(assetsPath)
	if err != nil {
		return fmt.Errorf("restore wrote no assets file: %w", err)
	}
	use(assetsPath, assets)
	return nil
}

// addAssets records the restore graph of a project, or its declared
// references when the assets file cannot be read
func addAssets(req *resolver.Request, parsed csproj, assetsPath string, assets []byte, result *types.ResolutionResult) {
	built, err := parseAssets(assets, req.Digest, req.Log())
	if err != nil {
		result.AddWarnings(fmt.Sprintf("%s: %v", assetsPath, err))
		result.AddProject(parsed.name, parsed.references)
		return
	}
	result.AddProject(parsed.name, built.Roots)
	for _, w := range built.Warnings {
		result.AddWarnings(parsed.name + ": " + w)
	}
}

func (r *Resolver) resolvePackagesConfig(req *resolver.Request, config string, result *types.ResolutionResult) {
	rel := req.Rel(config)
	content, err := req.ReadFile(rel)
	if err != nil {
		result.AddWarnings(fmt.Sprintf("%s: %v", rel, err))
		return
	}

	// packages are restored next to the solution, usually one folder up
	packagesDir := filepath.Join(req.Root.Path, "packages")
	for _, candidate := range []string{path.Join(path.Dir(rel), "packages"), path.Join(path.Dir(rel), "..", "packages")} {
		if !strings.HasPrefix(path.Clean(candidate), "..") && req.Exists(path.Clean(candidate)) {
			packagesDir = filepath.Join(req.Root.Path, filepath.FromSlash(path.Clean(candidate)))
			break
		}
	}

	nodes, err := parsePackagesConfig(content, packagesDir, req.Digest)
	if err != nil {
		result.AddWarnings(fmt.Sprintf("%s: %v", rel, err))
		return
	}
	result.AddProject(rel, nodes)
}
