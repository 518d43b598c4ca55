package golang

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/petrarca/dependency-resolver/internal/tree"
	"github.com/petrarca/dependency-resolver/internal/types"
)

type graphEdge struct {
	parent, parentVersion string
	child, childVersion   string
}

// buildGraph turns "go mod graph" output into a forest. The graph lists every
// version any module asked for; only the version minimal version selection
// picks (the highest) is kept, and only edges leaving selected versions count.
func buildGraph(mainModule string, lines []string, logger *slog.Logger) tree.Result {
	var edges []graphEdge
	var warnings []string
	selected := make(map[string]string)

	for i, line := range lines {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 2 {
			warnings = append(warnings, fmt.Sprintf("line %d: cannot parse graph edge %q", i+1, line))
			continue
		}
		parent, parentVersion := splitModule(fields[0])
		child, childVersion := splitModule(fields[1])
		if child == "" || childVersion == "" || child == "go" || child == "toolchain" {
			continue
		}

		edges = append(edges, graphEdge{parent, parentVersion, child, childVersion})
		selectVersion(selected, child, childVersion)
	}

	builder := tree.NewReferenceBuilder(types.DependencyTypeGo, logger)
	builder.Project = mainModule

	for _, path := range sortedKeys(selected) {
		builder.Declare(types.DependencyNode{ArtifactID: path, Version: selected[path], Type: types.DependencyTypeGo})
	}
	for _, e := range edges {
		if e.child == mainModule {
			continue
		}
		if e.parent != mainModule && selected[e.parent] != e.parentVersion {
			continue
		}
		builder.Require(
			tree.Ref{Name: e.parent, Version: selected[e.parent]},
			tree.Ref{Name: e.child, Version: selected[e.child]},
		)
	}

	result := builder.Build()
	result.Warnings = append(warnings, result.Warnings...)
	return result
}

// splitModule splits "path@version"; the main module has no version
func splitModule(s string) (string, string) {
	if idx := strings.LastIndex(s, "@"); idx > 0 {
		return s[:idx], s[idx+1:]
	}
	return s, ""
}

func selectVersion(selected map[string]string, path, version string) {
	current, ok := selected[path]
	if !ok || semver.Compare(version, current) > 0 {
		selected[path] = version
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
