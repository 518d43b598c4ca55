package maven

import (
	"regexp"
	"strings"

	"github.com/petrarca/dependency-resolver/internal/tree"
	"github.com/petrarca/dependency-resolver/internal/types"
)

// Maven draws one three character cell per level: "+- ", "\- ", "|  ".
const (
	connectorGlyphs = `+-\| `
	connectorUnit   = 3
)

var (
	logPrefixRegex    = regexp.MustCompile(`^\[[A-Z]+\] ?`)
	treeGoalRegex     = regexp.MustCompile(`^--- .*:tree .*@ (\S+) ---$`)
	omittedAnnotation = regexp.MustCompile(` - omitted for .*\)$`)
)

type moduleTree struct {
	name  string
	lines []string
}

// splitModules cuts "mvn dependency:tree" output into one tree per module.
// Each tree starts after the plugin banner with the module's own coordinate.
func splitModules(output []string) []moduleTree {
	var modules []moduleTree
	current := -1
	awaitingRoot := false

	for _, raw := range output {
		line := logPrefixRegex.ReplaceAllString(strings.TrimRight(raw, "\r"), "")

		if treeGoalRegex.MatchString(line) {
			awaitingRoot = true
			current = -1
			continue
		}

		if awaitingRoot {
			if strings.TrimSpace(line) == "" {
				continue
			}
			awaitingRoot = false
			node, ok := parseCoordinate(line)
			if !ok {
				continue
			}
			modules = append(modules, moduleTree{name: node.GroupID + ":" + node.ArtifactID})
			current = len(modules) - 1
			continue
		}

		if current < 0 {
			continue
		}
		if tree.LeadingWidth(line, connectorGlyphs) == 0 {
			current = -1
			continue
		}
		modules[current].lines = append(modules[current].lines, line)
	}
	return modules
}

// parseCoordinate parses group:artifact:type[:classifier]:version[:scope],
// including the verbose "(g:a:jar:1.0:compile - omitted for duplicate)" form
func parseCoordinate(rest string) (types.DependencyNode, bool) {
	rest = strings.TrimSpace(rest)
	if strings.HasPrefix(rest, "(") {
		rest = omittedAnnotation.ReplaceAllString(rest, "")
		rest = strings.TrimSuffix(strings.TrimPrefix(rest, "("), ")")
	}
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return types.DependencyNode{}, false
	}

	parts := strings.Split(fields[0], ":")
	var version string
	switch len(parts) {
	case 4, 5:
		version = parts[3]
	case 6:
		version = parts[4]
	default:
		return types.DependencyNode{}, false
	}
	if parts[0] == "" || parts[1] == "" || version == "" {
		return types.DependencyNode{}, false
	}

	return types.DependencyNode{
		GroupID:    parts[0],
		ArtifactID: parts[1],
		Version:    version,
		Type:       types.DependencyTypeMaven,
	}, true
}
