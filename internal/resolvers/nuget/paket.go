package nuget

import (
	"bufio"
	"bytes"
	"log/slog"
	"sort"
	"strings"

	"github.com/petrarca/dependency-resolver/internal/tree"
	"github.com/petrarca/dependency-resolver/internal/types"
)

const mainGroup = "Main"

// paketGroup is one dependency group of a paket.lock
type paketGroup struct {
	packages []types.DependencyNode
	requires []paketEdge
}

type paketEdge struct {
	parent string
	child  tree.Ref
}

// parsePaketLock reads the NUGET sections of a paket.lock. Packages sit at
// four spaces of indentation, their requirements at six.
func parsePaketLock(content []byte) map[string]*paketGroup {
	groups := map[string]*paketGroup{mainGroup: {}}
	group := groups[mainGroup]
	inNuget := false
	parent := ""

	scanner := bufio.NewScanner(bytes.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \r")
		if line == "" {
			continue
		}

		indent := len(line) - len(strings.TrimLeft(line, " "))
		switch {
		case indent == 0 && strings.HasPrefix(line, "GROUP "):
			name := strings.TrimSpace(strings.TrimPrefix(line, "GROUP "))
			if groups[name] == nil {
				groups[name] = &paketGroup{}
			}
			group = groups[name]
			inNuget = false
		case indent == 0:
			inNuget = line == "NUGET"
		case !inNuget:
			// GITHUB and HTTP sources reference files, not packages
		case indent == 4:
			name, version, ok := splitPaketEntry(line)
			if !ok {
				parent = ""
				continue
			}
			parent = name
			group.packages = append(group.packages, types.DependencyNode{ArtifactID: name, Version: version, Type: types.DependencyTypeNuGet})
		case indent == 6 && parent != "":
			name, requirement, ok := splitPaketEntry(line)
			if ok {
				group.requires = append(group.requires, paketEdge{parent: parent, child: tree.Ref{Name: name, Version: requirement}})
			}
		}
	}
	return groups
}

// splitPaketEntry splits "Name (version)" and drops any " - restriction: ..." suffix
func splitPaketEntry(line string) (string, string, bool) {
	line = strings.TrimSpace(line)
	if idx := strings.Index(line, " - "); idx >= 0 {
		line = line[:idx]
	}
	open := strings.Index(line, " (")
	if open <= 0 || !strings.HasSuffix(line, ")") {
		return "", "", false
	}
	return line[:open], strings.TrimSpace(line[open+2 : len(line)-1]), true
}

// parsePaketDependencies returns the direct packages per group of a paket.dependencies file
func parsePaketDependencies(content []byte) map[string][]string {
	direct := make(map[string][]string)
	group := mainGroup

	scanner := bufio.NewScanner(bytes.NewReader(content))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 || strings.HasPrefix(fields[0], "//") || strings.HasPrefix(fields[0], "#") {
			continue
		}
		switch fields[0] {
		case "group":
			group = fields[1]
		case "nuget":
			direct[group] = append(direct[group], fields[1])
		}
	}
	return direct
}

// buildPaketGroup joins one group by package name. Without a
// paket.dependencies file the packages nothing requires become the roots.
func buildPaketGroup(group *paketGroup, direct []string, haveDirect bool, logger *slog.Logger) tree.Result {
	builder := tree.NewReferenceBuilder(types.DependencyTypeNuGet, logger)
	builder.InferRoots = !haveDirect

	for _, pkg := range group.packages {
		builder.Declare(pkg)
	}
	for _, edge := range group.requires {
		builder.Require(tree.Ref{Name: edge.parent}, edge.child)
	}
	for _, name := range direct {
		builder.Direct(tree.Ref{Name: name})
	}
	return builder.Build()
}

func groupNames(groups map[string]*paketGroup) []string {
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
