package ruby

import (
	"bufio"
	"bytes"
	"log/slog"
	"regexp"
	"strings"

	"github.com/petrarca/dependency-resolver/internal/tree"
	"github.com/petrarca/dependency-resolver/internal/types"
)

// gemSource is the section a spec was declared in (GEM, GIT or PATH)
type gemSource struct {
	remote   string
	revision string
	git      bool
}

// parseLockfile reads the specs of every source section and the DEPENDENCIES
// section of a Gemfile.lock into a forest
func parseLockfile(content []byte, logger *slog.Logger) tree.Result {
	builder := tree.NewReferenceBuilder(types.DependencyTypeRuby, logger)
	builder.InferRoots = true

	var (
		section string
		source  gemSource
		inSpecs bool
		parent  string
	)

	scanner := bufio.NewScanner(bytes.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		indent := len(line) - len(strings.TrimLeft(line, " "))
		text := strings.TrimSpace(line)

		if indent == 0 {
			section = text
			source = gemSource{git: section == "GIT"}
			inSpecs = false
			parent = ""
			continue
		}

		switch section {
		case "GEM", "GIT", "PATH":
			switch {
			case indent == 2 && text == "specs:":
				inSpecs = true
			case indent == 2:
				key, value, _ := strings.Cut(text, ":")
				switch key {
				case "remote":
					source.remote = strings.TrimSpace(value)
				case "revision":
					source.revision = strings.TrimSpace(value)
				}
			case inSpecs && indent == 4:
				name, version, ok := splitGemEntry(text)
				if !ok {
					parent = ""
					continue
				}
				parent = name
				node := types.DependencyNode{ArtifactID: name, Version: stripPlatform(version), Type: types.DependencyTypeRuby}
				if source.git {
					node.Commit = source.revision
					node.SCMPath = source.remote
				}
				builder.Declare(node)
			case inSpecs && indent == 6 && parent != "":
				name, requirement, _ := splitGemEntry(text)
				builder.Require(tree.Ref{Name: parent}, tree.Ref{Name: name, Version: requirement})
			}
		case "DEPENDENCIES":
			if indent != 2 {
				continue
			}
			name, requirement, _ := splitGemEntry(text)
			builder.Direct(tree.Ref{Name: strings.TrimSuffix(name, "!"), Version: requirement})
		}
	}
	return builder.Build()
}

// splitGemEntry splits "name (version)"; entries without a version are valid
// in requirement lists and DEPENDENCIES
func splitGemEntry(text string) (string, string, bool) {
	open := strings.Index(text, " (")
	if open < 0 {
		return text, "", false
	}
	return text[:open], strings.TrimSuffix(text[open+2:], ")"), true
}

// stripPlatform drops the platform suffix of native gems, e.g. "1.13.10-x86_64-linux"
func stripPlatform(version string) string {
	if idx := strings.Index(version, "-"); idx > 0 {
		return version[:idx]
	}
	return version
}

var gemPattern = regexp.MustCompile(`^\s*gem\s+['"]([^'"]+)['"](?:\s*,\s*['"]([^'"]+)['"])?`)

// declaredGems lists the gem statements of a Gemfile
func declaredGems(content []byte) []*types.DependencyNode {
	var nodes []*types.DependencyNode
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(bytes.NewReader(content))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		match := gemPattern.FindStringSubmatch(line)
		if match == nil || seen[match[1]] {
			continue
		}
		seen[match[1]] = true
		nodes = append(nodes, &types.DependencyNode{ArtifactID: match[1], Version: match[2], Type: types.DependencyTypeRuby})
	}
	return nodes
}
