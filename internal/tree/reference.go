package tree

import (
	"fmt"
	"log/slog"

	"github.com/petrarca/dependency-resolver/internal/types"
)

// Ref names a declared node by its group:artifact name and an optional exact
// version or version requirement.
type Ref struct {
	Name    string
	Version string
}

// RefName returns the lookup name used for a coordinate
func RefName(group, artifact string) string {
	if group == "" {
		return artifact
	}
	return group + ":" + artifact
}

type refEdge struct {
	parent Ref
	child  Ref
}

// ReferenceBuilder rebuilds a forest from formats that declare packages in flat
// sections and relate them by name (lock files, resolution reports).
type ReferenceBuilder struct {
	// Project is the name of the scanned project; edges whose parent is the
	// project make the child a root.
	Project string
	// InferRoots makes every node without an incoming edge a root when no
	// edge names the project.
	InferRoots bool

	forest *Forest
	logger *slog.Logger
	byName map[string][]int
	order  []int
	edges  []refEdge
	direct []Ref
}

// NewReferenceBuilder creates a builder for one resolution pass
func NewReferenceBuilder(depType types.DependencyType, logger *slog.Logger) *ReferenceBuilder {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReferenceBuilder{
		forest: NewForest(depType, logger),
		logger: logger,
		byName: make(map[string][]int),
	}
}

// Declare adds a node to the flat node map
func (b *ReferenceBuilder) Declare(node types.DependencyNode) {
	before := b.forest.Len()
	id := b.forest.Add(node)
	if b.forest.Len() == before {
		return
	}
	name := RefName(node.GroupID, node.ArtifactID)
	b.byName[name] = append(b.byName[name], id)
	b.order = append(b.order, id)
}

// Require records that parent depends on child
func (b *ReferenceBuilder) Require(parent, child Ref) {
	if b.Project != "" && parent.Name == b.Project {
		b.Direct(child)
		return
	}
	b.edges = append(b.edges, refEdge{parent: parent, child: child})
}

// Direct records child as a direct dependency of the scanned project
func (b *ReferenceBuilder) Direct(child Ref) {
	b.direct = append(b.direct, child)
}

// Build joins the declared edges by name and returns the forest. Unresolved
// references become warnings.
func (b *ReferenceBuilder) Build() Result {
	var warnings []string
	hasParent := make(map[int]bool)

	for _, e := range b.edges {
		parent, ok := b.resolve(e.parent)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("unresolved parent reference %s %s", e.parent.Name, e.parent.Version))
			continue
		}
		child, ok := b.resolve(e.child)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("unresolved reference %s %s required by %s", e.child.Name, e.child.Version, e.parent.Name))
			continue
		}
		if b.forest.Link(parent, child) {
			hasParent[child] = true
		}
	}

	for _, ref := range b.direct {
		id, ok := b.resolve(ref)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("unresolved direct dependency %s %s", ref.Name, ref.Version))
			continue
		}
		b.forest.AddRoot(id)
	}

	if len(b.direct) == 0 && b.InferRoots {
		for _, id := range b.order {
			if !hasParent[id] {
				b.forest.AddRoot(id)
			}
		}
	}

	if len(warnings) > 0 {
		b.logger.Warn("Unresolved dependency references", "count", len(warnings))
	}

	return Result{
		Roots:    b.forest.Export(),
		Nodes:    b.forest.Len(),
		Warnings: warnings,
	}
}

func (b *ReferenceBuilder) resolve(ref Ref) (int, bool) {
	candidates := b.byName[ref.Name]
	if len(candidates) == 0 {
		return 0, false
	}
	if len(candidates) == 1 {
		return candidates[0], true
	}

	versions := make([]string, len(candidates))
	for i, id := range candidates {
		versions[i] = b.forest.Node(id).Version
	}
	return candidates[selectVersion(versions, ref.Version)], true
}
