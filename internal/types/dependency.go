package types

import (
	"strings"
)

// DependencyType tags a resolved dependency with the ecosystem that produced it
type DependencyType string

const (
	DependencyTypeNpm       DependencyType = "npm"
	DependencyTypeMaven     DependencyType = "maven"
	DependencyTypeGradle    DependencyType = "gradle"
	DependencyTypeGo        DependencyType = "go"
	DependencyTypeNuGet     DependencyType = "nuget"
	DependencyTypeRuby      DependencyType = "ruby"
	DependencyTypePython    DependencyType = "python"
	DependencyTypePHP       DependencyType = "php"
	DependencyTypeCocoaPods DependencyType = "cocoapods"
	DependencyTypeSBT       DependencyType = "sbt"
	DependencyTypeCargo     DependencyType = "cargo"
	DependencyTypeTerraform DependencyType = "terraform"
)

// DependencyNode is one resolved dependency and its ordered, de-duplicated children.
//
// Nodes exported from a single resolution pass are shared: when the same
// coordinate is required by two parents, both parents hold the same pointer.
type DependencyNode struct {
	GroupID    string            `json:"group_id,omitempty" yaml:"group_id,omitempty"`
	ArtifactID string            `json:"artifact_id,omitempty" yaml:"artifact_id,omitempty"`
	Version    string            `json:"version,omitempty" yaml:"version,omitempty"`
	Commit     string            `json:"commit,omitempty" yaml:"commit,omitempty"`
	SHA1       string            `json:"sha1,omitempty" yaml:"sha1,omitempty"`
	SCMPath    string            `json:"scm_path,omitempty" yaml:"scm_path,omitempty"`
	Type       DependencyType    `json:"type" yaml:"type"`
	Children   []*DependencyNode `json:"children,omitempty" yaml:"children,omitempty"`
}

// Key returns the identity of the node: group:artifact:version, or the digest
// when the node carries no coordinate at all.
func (n *DependencyNode) Key() string {
	if n.ArtifactID == "" && n.GroupID == "" && n.SHA1 != "" {
		return "sha1:" + n.SHA1
	}
	return n.GroupID + ":" + n.ArtifactID + ":" + n.Version
}

// Coordinate renders the node the way build tools print it (group:artifact:version),
// omitting empty parts.
func (n *DependencyNode) Coordinate() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{n.GroupID, n.ArtifactID, n.Version} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 && n.SHA1 != "" {
		return n.SHA1
	}
	return strings.Join(parts, ":")
}

// WithoutChildren returns a copy of the node's own fields.
func (n *DependencyNode) WithoutChildren() DependencyNode {
	c := *n
	c.Children = nil
	return c
}

// Walk visits the forest depth-first in child order. Shared nodes are visited
// once; returning false from fn skips the node's children.
func Walk(roots []*DependencyNode, fn func(node *DependencyNode, depth int) bool) {
	seen := make(map[*DependencyNode]bool)
	var visit func(n *DependencyNode, depth int)
	visit = func(n *DependencyNode, depth int) {
		if n == nil || seen[n] {
			return
		}
		seen[n] = true
		if !fn(n, depth) {
			return
		}
		for _, child := range n.Children {
			visit(child, depth+1)
		}
	}
	for _, root := range roots {
		visit(root, 0)
	}
}

// CountUnique returns the number of distinct dependency identities in the forest.
func CountUnique(roots []*DependencyNode) int {
	keys := make(map[string]bool)
	Walk(roots, func(node *DependencyNode, _ int) bool {
		keys[node.Key()] = true
		return true
	})
	return len(keys)
}
