package npm

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/petrarca/dependency-resolver/internal/tree"
	"github.com/petrarca/dependency-resolver/internal/types"
)

// packageJSON is the part of package.json the resolver reads
type packageJSON struct {
	Name                 string            `json:"name"`
	Version              string            `json:"version"`
	Dependencies         map[string]string `json:"dependencies"`
	DevDependencies      map[string]string `json:"devDependencies"`
	OptionalDependencies map[string]string `json:"optionalDependencies"`
}

// lockFile covers lockfileVersion 1 (nested "dependencies") and 2/3 ("packages")
type lockFile struct {
	Name            string                      `json:"name"`
	LockfileVersion int                         `json:"lockfileVersion"`
	Packages        map[string]lockPackage      `json:"packages"`
	Dependencies    map[string]legacyDependency `json:"dependencies"`
}

type lockPackage struct {
	Name                 string            `json:"name"`
	Version              string            `json:"version"`
	Resolved             string            `json:"resolved"`
	Integrity            string            `json:"integrity"`
	Link                 bool              `json:"link"`
	Dependencies         map[string]string `json:"dependencies"`
	DevDependencies      map[string]string `json:"devDependencies"`
	OptionalDependencies map[string]string `json:"optionalDependencies"`
}

type legacyDependency struct {
	Version      string                      `json:"version"`
	Resolved     string                      `json:"resolved"`
	Integrity    string                      `json:"integrity"`
	Requires     map[string]string           `json:"requires"`
	Dependencies map[string]legacyDependency `json:"dependencies"`
}

// parseLock decodes a lock file into the flat "packages" form keyed by
// install path ("" is the project itself)
func parseLock(content []byte, manifest *packageJSON) (map[string]lockPackage, error) {
	var lock lockFile
	if err := json.Unmarshal(content, &lock); err != nil {
		return nil, fmt.Errorf("failed to parse package-lock.json: %w", err)
	}

	if len(lock.Packages) > 0 {
		return lock.Packages, nil
	}

	packages := make(map[string]lockPackage)
	flattenLegacy("", lock.Dependencies, packages)

	root := lockPackage{Name: lock.Name}
	if manifest != nil {
		root.Dependencies = manifest.Dependencies
		root.DevDependencies = manifest.DevDependencies
		root.OptionalDependencies = manifest.OptionalDependencies
	} else {
		// without package.json every hoisted entry counts as direct
		root.Dependencies = make(map[string]string)
		for name, dep := range lock.Dependencies {
			root.Dependencies[name] = dep.Version
		}
	}
	packages[""] = root
	return packages, nil
}

func flattenLegacy(prefix string, deps map[string]legacyDependency, out map[string]lockPackage) {
	for name, dep := range deps {
		path := prefix + "node_modules/" + name
		out[path] = lockPackage{
			Version:      dep.Version,
			Resolved:     dep.Resolved,
			Integrity:    dep.Integrity,
			Dependencies: dep.Requires,
		}
		flattenLegacy(path+"/", dep.Dependencies, out)
	}
}

// buildForest links every package to the install path node's module
// resolution would load for each of its dependencies
func buildForest(packages map[string]lockPackage, logger *slog.Logger) tree.Result {
	forest := tree.NewForest(types.DependencyTypeNpm, logger)
	ids := make(map[string]int)
	var warnings []string

	nodeID := func(path string) int {
		if id, ok := ids[path]; ok {
			return id
		}
		pkg := packages[path]
		name := pkg.Name
		if name == "" {
			name = nameFromPath(path)
		}
		id := forest.Add(types.DependencyNode{
			ArtifactID: name,
			Version:    pkg.Version,
			SHA1:       sha1FromIntegrity(pkg.Integrity),
			Type:       types.DependencyTypeNpm,
		})
		ids[path] = id
		return id
	}

	root := packages[""]
	var queue []string
	visited := make(map[string]bool)

	for _, dep := range directDependencies(root) {
		path, ok := resolvePath(packages, "", dep.name)
		if !ok {
			if !dep.optional {
				warnings = append(warnings, fmt.Sprintf("dependency %s is not in the lock file", dep.name))
			}
			continue
		}
		forest.AddRoot(nodeID(path))
		if !visited[path] {
			visited[path] = true
			queue = append(queue, path)
		}
	}

	for len(queue) > 0 {
		path := queue[0]
		queue = queue[1:]
		parent := nodeID(path)

		for _, dep := range transitiveDependencies(packages[path]) {
			childPath, ok := resolvePath(packages, path, dep.name)
			if !ok {
				if !dep.optional {
					warnings = append(warnings, fmt.Sprintf("%s requires %s which is not in the lock file", nameFromPath(path), dep.name))
				}
				continue
			}
			forest.Link(parent, nodeID(childPath))
			if !visited[childPath] {
				visited[childPath] = true
				queue = append(queue, childPath)
			}
		}
	}

	return tree.Result{Roots: forest.Export(), Nodes: forest.Len(), Warnings: warnings}
}

type dependencyRef struct {
	name     string
	optional bool
}

func directDependencies(root lockPackage) []dependencyRef {
	refs := sortedRefs(root.Dependencies, false)
	refs = append(refs, sortedRefs(root.DevDependencies, false)...)
	return append(refs, sortedRefs(root.OptionalDependencies, true)...)
}

func transitiveDependencies(pkg lockPackage) []dependencyRef {
	return append(sortedRefs(pkg.Dependencies, false), sortedRefs(pkg.OptionalDependencies, true)...)
}

func sortedRefs(deps map[string]string, optional bool) []dependencyRef {
	names := make([]string, 0, len(deps))
	for name := range deps {
		names = append(names, name)
	}
	sort.Strings(names)
	refs := make([]dependencyRef, len(names))
	for i, name := range names {
		refs[i] = dependencyRef{name: name, optional: optional}
	}
	return refs
}

// resolvePath looks for name in the node_modules folder of from and of each
// of its ancestors. Workspace links are followed to their target.
func resolvePath(packages map[string]lockPackage, from, name string) (string, bool) {
	dir := from
	for {
		candidate := "node_modules/" + name
		if dir != "" {
			candidate = dir + "/" + candidate
		}
		if pkg, ok := packages[candidate]; ok {
			if pkg.Link && pkg.Resolved != "" {
				if _, ok := packages[pkg.Resolved]; ok {
					return pkg.Resolved, true
				}
			}
			return candidate, true
		}
		if dir == "" {
			return "", false
		}
		idx := strings.LastIndex(dir, "node_modules/")
		if idx < 0 {
			dir = ""
		} else {
			dir = strings.TrimSuffix(dir[:idx], "/")
		}
	}
}

// nameFromPath extracts the package name from an install path
// ("node_modules/a/node_modules/@scope/b" -> "@scope/b")
func nameFromPath(path string) string {
	idx := strings.LastIndex(path, "node_modules/")
	if idx < 0 {
		return path
	}
	return path[idx+len("node_modules/"):]
}

// sha1FromIntegrity converts an "sha1-<base64>" subresource integrity value to hex
func sha1FromIntegrity(integrity string) string {
	for _, entry := range strings.Fields(integrity) {
		if !strings.HasPrefix(entry, "sha1-") {
			continue
		}
		raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(entry, "sha1-"))
		if err != nil || len(raw) != 20 {
			return ""
		}
		return hex.EncodeToString(raw)
	}
	return ""
}
