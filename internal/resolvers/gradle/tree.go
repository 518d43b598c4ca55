package gradle

import (
	"strings"

	"github.com/petrarca/dependency-resolver/internal/tree"
	"github.com/petrarca/dependency-resolver/internal/types"
)

// Gradle draws one five character cell per level: "+--- ", "\--- ", "|    ".
const (
	connectorGlyphs = `+-\| `
	connectorUnit   = 5
)

// Markers gradle appends to a coordinate
var markers = []string{"(*)", "(c)", "(n)", "FAILED"}

var treeDepth = tree.ConnectorDepth(connectorUnit, connectorGlyphs)

// projectLine matches project-to-project edges ("project :core")
func projectLine(rest string) bool {
	return strings.HasPrefix(rest, "project ")
}

// parseLine parses "group:artifact:version", honoring conflict resolution
// ("1.0 -> 2.0" resolves to 2.0) and dropping gradle's markers.
func parseLine(rest string) (types.DependencyNode, bool) {
	for _, marker := range markers {
		rest = strings.TrimSpace(strings.TrimSuffix(rest, marker))
	}

	resolved := ""
	if idx := strings.Index(rest, " -> "); idx >= 0 {
		resolved = strings.TrimSpace(rest[idx+4:])
		rest = strings.TrimSpace(rest[:idx])
	}

	parts := strings.Split(rest, ":")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" || strings.ContainsAny(parts[0], " \t") {
		return types.DependencyNode{}, false
	}

	version := ""
	if len(parts) >= 3 {
		version = parts[len(parts)-1]
	}
	if resolved != "" {
		version = resolved
	}
	version = strings.TrimSuffix(strings.TrimPrefix(version, "{strictly "), "}")
	if version == "" {
		return types.DependencyNode{}, false
	}

	return types.DependencyNode{
		GroupID:    parts[0],
		ArtifactID: parts[1],
		Version:    version,
		Type:       types.DependencyTypeGradle,
	}, true
}
