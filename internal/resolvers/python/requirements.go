package python

import (
	"bufio"
	"bytes"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/petrarca/dependency-resolver/internal/types"
)

var requirementNameRE = regexp.MustCompile(`^([a-zA-Z0-9][-a-zA-Z0-9._]*)`)

// requirementName returns the distribution name of a PEP 508 requirement
func requirementName(spec string) string {
	if m := requirementNameRE.FindStringSubmatch(strings.TrimSpace(spec)); m != nil {
		return m[1]
	}
	return ""
}

// pinnedRequirements lists the named requirements of a requirements file.
// Pinned lines ("==" or "===") carry their version, other lines keep their specifier.
func pinnedRequirements(content []byte) []*types.DependencyNode {
	var nodes []*types.DependencyNode
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(bytes.NewReader(content))
	for scanner.Scan() {
		line := scanner.Text()
		if idx := strings.Index(line, " #"); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line == "" || line[0] == '#' || line[0] == '-' {
			continue
		}
		if strings.Contains(line, "://") || strings.HasPrefix(line, "git+") {
			continue
		}
		if idx := strings.Index(line, ";"); idx >= 0 {
			line = strings.TrimSpace(line[:idx])
		}

		name := requirementName(line)
		if name == "" || seen[normalize(name)] {
			continue
		}
		seen[normalize(name)] = true

		spec := strings.TrimSpace(line[len(name):])
		if strings.HasPrefix(spec, "[") {
			if end := strings.Index(spec, "]"); end >= 0 {
				spec = strings.TrimSpace(spec[end+1:])
			}
		}
		version := spec
		for _, op := range []string{"===", "=="} {
			if strings.HasPrefix(spec, op) {
				version = strings.TrimSpace(spec[len(op):])
				break
			}
		}
		nodes = append(nodes, &types.DependencyNode{ArtifactID: normalize(name), Version: version, Type: types.DependencyTypePython})
	}
	return nodes
}

// pipdeptree renders its tree either with ASCII connectors
//
//	flask==2.3.2
//	  - blinker [required: >=1.6.2, installed: 1.6.2]
//
// or with box drawing characters, four runes per level ("├── ", "│   ").
const treeGlyphs = " -│├└─"

func treeDepth(line string) (int, string, bool) {
	prefixEnd := 0
	for prefixEnd < len(line) {
		r, size := utf8.DecodeRuneInString(line[prefixEnd:])
		if !strings.ContainsRune(treeGlyphs, r) {
			break
		}
		prefixEnd += size
	}
	prefix, rest := line[:prefixEnd], line[prefixEnd:]
	switch {
	case rest == "":
		return 0, "", false
	case prefix == "":
		return 0, rest, true
	case strings.ContainsAny(prefix, "├└"):
		return utf8.RuneCountInString(prefix) / 4, rest, true
	case strings.HasSuffix(prefix, "- "):
		return (len(prefix) - 2) / 2, rest, true
	}
	return 0, "", false
}

// parseTreeLine parses "name==1.0" (top level) or "name [required: ..., installed: 1.0]"
func parseTreeLine(rest string) (types.DependencyNode, bool) {
	if open := strings.Index(rest, " ["); open > 0 {
		attrs := strings.TrimSuffix(rest[open+2:], "]")
		for _, attr := range strings.Split(attrs, ",") {
			key, value, ok := strings.Cut(strings.TrimSpace(attr), ":")
			if ok && key == "installed" {
				version := strings.TrimSpace(value)
				if version == "?" {
					version = ""
				}
				return types.DependencyNode{ArtifactID: normalize(rest[:open]), Version: version, Type: types.DependencyTypePython}, true
			}
		}
		return types.DependencyNode{}, false
	}

	name, version, ok := strings.Cut(rest, "==")
	if !ok || strings.ContainsAny(name, " \t") || name == "" {
		return types.DependencyNode{}, false
	}
	return types.DependencyNode{ArtifactID: normalize(name), Version: strings.TrimSpace(version), Type: types.DependencyTypePython}, true
}
