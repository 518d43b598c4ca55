package python

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/petrarca/dependency-resolver/internal/tree"
	"github.com/petrarca/dependency-resolver/internal/types"
)

type poetryLock struct {
	Packages []poetryPackage `toml:"package"`
}

type poetryPackage struct {
	Name         string         `toml:"name"`
	Version      string         `toml:"version"`
	Dependencies map[string]any `toml:"dependencies"`
	Source       struct {
		Type              string `toml:"type"`
		URL               string `toml:"url"`
		ResolvedReference string `toml:"resolved_reference"`
	} `toml:"source"`
}

type pyproject struct {
	Tool struct {
		Poetry struct {
			Name            string                    `toml:"name"`
			Dependencies    map[string]any            `toml:"dependencies"`
			DevDependencies map[string]any            `toml:"dev-dependencies"`
			Group           map[string]poetryDepGroup `toml:"group"`
		} `toml:"poetry"`
	} `toml:"tool"`
	Project struct {
		Name                 string              `toml:"name"`
		Dependencies         []string            `toml:"dependencies"`
		OptionalDependencies map[string][]string `toml:"optional-dependencies"`
	} `toml:"project"`
}

type poetryDepGroup struct {
	Dependencies map[string]any `toml:"dependencies"`
}

// name returns the project name of either pyproject dialect
func (p *pyproject) name() string {
	if p.Tool.Poetry.Name != "" {
		return p.Tool.Poetry.Name
	}
	return p.Project.Name
}

// direct returns the normalized names of the declared dependencies, main
// dependencies first, without the python interpreter constraint
func (p *pyproject) direct() []string {
	var names []string
	seen := make(map[string]bool)
	add := func(name string) {
		name = normalize(name)
		if name == "" || name == "python" || seen[name] {
			return
		}
		seen[name] = true
		names = append(names, name)
	}

	addTable := func(deps map[string]any) {
		keys := make([]string, 0, len(deps))
		for k := range deps {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			add(k)
		}
	}

	addTable(p.Tool.Poetry.Dependencies)
	for _, spec := range p.Project.Dependencies {
		add(requirementName(spec))
	}
	addTable(p.Tool.Poetry.DevDependencies)
	groups := make([]string, 0, len(p.Tool.Poetry.Group))
	for g := range p.Tool.Poetry.Group {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	for _, g := range groups {
		addTable(p.Tool.Poetry.Group[g].Dependencies)
	}
	extras := make([]string, 0, len(p.Project.OptionalDependencies))
	for e := range p.Project.OptionalDependencies {
		extras = append(extras, e)
	}
	sort.Strings(extras)
	for _, e := range extras {
		for _, spec := range p.Project.OptionalDependencies[e] {
			add(requirementName(spec))
		}
	}
	return names
}

func parsePyproject(content []byte) (*pyproject, error) {
	var project pyproject
	if err := toml.Unmarshal(content, &project); err != nil {
		return nil, fmt.Errorf("failed to parse pyproject.toml: %w", err)
	}
	return &project, nil
}

// buildPoetry joins the packages of a poetry.lock by name. Without declared
// direct dependencies the packages nothing depends on become the roots.
func buildPoetry(content []byte, direct []string, logger *slog.Logger) (tree.Result, error) {
	var lock poetryLock
	if err := toml.Unmarshal(content, &lock); err != nil {
		return tree.Result{}, fmt.Errorf("failed to parse poetry.lock: %w", err)
	}

	builder := tree.NewReferenceBuilder(types.DependencyTypePython, logger)
	builder.InferRoots = true

	known := make(map[string]bool, len(lock.Packages))
	for _, pkg := range lock.Packages {
		node := types.DependencyNode{ArtifactID: normalize(pkg.Name), Version: pkg.Version, Type: types.DependencyTypePython}
		if pkg.Source.Type == "git" {
			node.Commit = pkg.Source.ResolvedReference
			node.SCMPath = pkg.Source.URL
		}
		builder.Declare(node)
		known[node.ArtifactID] = true
	}

	for _, pkg := range lock.Packages {
		deps := make([]string, 0, len(pkg.Dependencies))
		for dep := range pkg.Dependencies {
			deps = append(deps, dep)
		}
		sort.Strings(deps)
		for _, dep := range deps {
			// dependencies behind extras that were not selected are not locked
			if !known[normalize(dep)] {
				continue
			}
			builder.Require(tree.Ref{Name: normalize(pkg.Name), Version: pkg.Version}, tree.Ref{Name: normalize(dep), Version: constraintOf(pkg.Dependencies[dep])})
		}
	}

	for _, name := range direct {
		if known[name] {
			builder.Direct(tree.Ref{Name: name})
		}
	}
	return builder.Build(), nil
}

// constraintOf extracts the version of a dependency given as "^1.0" or {version = "^1.0", ...}
func constraintOf(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case map[string]any:
		if version, ok := v["version"].(string); ok {
			return version
		}
	}
	return ""
}

var nameSeparators = regexp.MustCompile(`[-_.]+`)

// normalize applies the PyPI name normalization
func normalize(name string) string {
	return nameSeparators.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
}
