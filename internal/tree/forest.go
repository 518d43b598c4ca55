package tree

import (
	"log/slog"

	"github.com/petrarca/dependency-resolver/internal/types"
)

// Forest is an index-based arena of dependency nodes built during one resolution pass.
//
// Nodes are de-duplicated by identity key; edges are ordered and de-duplicated
// per parent, and an edge is refused when it would make a node its own descendant.
type Forest struct {
	depType  types.DependencyType
	logger   *slog.Logger
	nodes    []types.DependencyNode
	children [][]int
	roots    []int
	isRoot   map[int]bool
	index    map[string]int
	dropped  int
}

// NewForest creates an empty forest whose nodes default to depType
func NewForest(depType types.DependencyType, logger *slog.Logger) *Forest {
	if logger == nil {
		logger = slog.Default()
	}
	return &Forest{
		depType: depType,
		logger:  logger,
		isRoot:  make(map[int]bool),
		index:   make(map[string]int),
	}
}

// Add places node in the arena and returns its id. A node whose identity is
// already present is not re-created; the existing id is returned and any
// optional fields it lacks are filled from node.
func (f *Forest) Add(node types.DependencyNode) int {
	node.Children = nil
	if node.Type == "" {
		node.Type = f.depType
	}

	key := node.Key()
	if id, ok := f.index[key]; ok {
		existing := &f.nodes[id]
		if existing.Commit == "" {
			existing.Commit = node.Commit
		}
		if existing.SHA1 == "" {
			existing.SHA1 = node.SHA1
		}
		if existing.SCMPath == "" {
			existing.SCMPath = node.SCMPath
		}
		return id
	}

	id := len(f.nodes)
	f.nodes = append(f.nodes, node)
	f.children = append(f.children, nil)
	f.index[key] = id
	return id
}

// Lookup returns the id of the node with the given identity key
func (f *Forest) Lookup(key string) (int, bool) {
	id, ok := f.index[key]
	return id, ok
}

// AddRoot marks id as a forest root. Marking twice has no effect.
func (f *Forest) AddRoot(id int) {
	if f.isRoot[id] {
		return
	}
	f.isRoot[id] = true
	f.roots = append(f.roots, id)
}

// Link attaches child under parent. It returns false when the edge was
// refused because parent is reachable from child.
func (f *Forest) Link(parent, child int) bool {
	if parent == child || f.Reachable(child, parent) {
		f.dropped++
		f.logger.Debug("Dropping dependency edge that would form a cycle",
			"parent", f.nodes[parent].Coordinate(),
			"child", f.nodes[child].Coordinate())
		return false
	}

	for _, existing := range f.children[parent] {
		if existing == child {
			return true
		}
	}
	f.children[parent] = append(f.children[parent], child)
	return true
}

// Reachable reports whether to can be reached from from by following child edges
func (f *Forest) Reachable(from, to int) bool {
	if from == to {
		return true
	}
	visited := make([]bool, len(f.nodes))
	stack := []int{from}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[current] {
			continue
		}
		visited[current] = true
		for _, child := range f.children[current] {
			if child == to {
				return true
			}
			if !visited[child] {
				stack = append(stack, child)
			}
		}
	}
	return false
}

// Node returns the node stored at id (without children)
func (f *Forest) Node(id int) types.DependencyNode {
	return f.nodes[id]
}

// Children returns the ordered child ids of id
func (f *Forest) Children(id int) []int {
	return f.children[id]
}

// Roots returns the root ids in insertion order
func (f *Forest) Roots() []int {
	return f.roots
}

// Len returns the number of distinct nodes
func (f *Forest) Len() int {
	return len(f.nodes)
}

// DroppedEdges returns how many edges the cycle guard refused
func (f *Forest) DroppedEdges() int {
	return f.dropped
}

// Export materializes the forest as linked nodes. Every arena node becomes
// exactly one *DependencyNode, so shared dependencies stay shared.
func (f *Forest) Export() []*types.DependencyNode {
	ptrs := make([]*types.DependencyNode, len(f.nodes))
	for i := range f.nodes {
		n := f.nodes[i]
		ptrs[i] = &n
	}
	for parent, kids := range f.children {
		for _, child := range kids {
			ptrs[parent].Children = append(ptrs[parent].Children, ptrs[child])
		}
	}

	roots := make([]*types.DependencyNode, 0, len(f.roots))
	for _, id := range f.roots {
		roots = append(roots, ptrs[id])
	}
	return roots
}
