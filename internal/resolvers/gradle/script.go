package gradle

import (
	"regexp"
	"strings"

	"github.com/petrarca/dependency-resolver/internal/types"
)

var (
	configurationRegex = regexp.MustCompile(`^\s*(implementation|api|compile|runtime|runtimeOnly|compileOnly|annotationProcessor|kapt|testImplementation|testRuntimeOnly|testCompile)\b`)
	quotedRegex        = regexp.MustCompile(`['"]([^'"]+)['"]`)
	mapNotationRegex   = regexp.MustCompile(`group\s*[:=]\s*['"]([^'"]+)['"]\s*,\s*name\s*[:=]\s*['"]([^'"]+)['"](?:\s*,\s*version\s*[:=]\s*['"]([^'"]+)['"])?`)
)

// declaredDependencies extracts the dependencies written in a build script.
// Used when gradle itself cannot run; the result is flat.
func declaredDependencies(content string) []*types.DependencyNode {
	var nodes []*types.DependencyNode
	seen := make(map[string]bool)

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if skipLine(line) || !configurationRegex.MatchString(line) {
			continue
		}

		node, ok := parseDeclaration(line)
		if !ok || seen[node.Key()] {
			continue
		}
		seen[node.Key()] = true
		nodes = append(nodes, node)
	}
	return nodes
}

func skipLine(line string) bool {
	return line == "" || strings.HasPrefix(line, "//") || strings.HasPrefix(line, "/*") || strings.HasPrefix(line, "*")
}

func parseDeclaration(line string) (*types.DependencyNode, bool) {
	if m := mapNotationRegex.FindStringSubmatch(line); m != nil {
		return &types.DependencyNode{GroupID: m[1], ArtifactID: m[2], Version: m[3], Type: types.DependencyTypeGradle}, true
	}

	m := quotedRegex.FindStringSubmatch(line)
	if m == nil {
		return nil, false
	}
	parts := strings.Split(m[1], ":")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return nil, false
	}
	node := &types.DependencyNode{GroupID: parts[0], ArtifactID: parts[1], Type: types.DependencyTypeGradle}
	if len(parts) >= 3 && !strings.Contains(parts[2], "$") {
		node.Version = parts[2]
	}
	return node, true
}
