// Package resolvertest builds resolver requests over in-memory project trees.
package resolvertest

import (
	"io"
	"log/slog"
	"path"
	"sort"
	"strings"

	"github.com/petrarca/dependency-resolver/internal/execx"
	"github.com/petrarca/dependency-resolver/internal/provider"
	"github.com/petrarca/dependency-resolver/internal/resolver"
	"github.com/petrarca/dependency-resolver/internal/tree"
	"github.com/petrarca/dependency-resolver/internal/types"
)

// Root is the absolute path every fake project lives at
const Root = "/project"

// Request returns a request for a fake project containing files. Every file
// whose name ends with one of manifestSuffixes is recorded as an owned manifest.
// Build tools are disabled unless exec is non-nil.
func Request(files map[string]string, exec execx.Executor, manifestSuffixes ...string) *resolver.Request {
	fs := provider.NewFakeProvider(Root)
	names := make([]string, 0, len(files))
	for name, content := range files {
		fs.AddFile(name, content)
		names = append(names, name)
	}
	sort.Strings(names)

	var manifests []string
	for _, name := range names {
		for _, suffix := range manifestSuffixes {
			if strings.HasSuffix(name, suffix) {
				manifests = append(manifests, path.Join(Root, name))
				break
			}
		}
	}

	opts := resolver.DefaultOptions()
	opts.RunTools = exec != nil

	return &resolver.Request{
		Root:    types.ProjectRoot{Path: Root, ScanRoot: Root, Manifests: manifests},
		FS:      fs,
		Exec:    exec,
		Options: opts,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// Find returns the first node in the forest whose group:artifact name matches
func Find(roots []*types.DependencyNode, name string) *types.DependencyNode {
	var found *types.DependencyNode
	types.Walk(roots, func(n *types.DependencyNode, _ int) bool {
		if found == nil && tree.RefName(n.GroupID, n.ArtifactID) == name {
			found = n
		}
		return found == nil
	})
	return found
}

// Names returns the group:artifact names of nodes in order
func Names(nodes []*types.DependencyNode) []string {
	names := make([]string, len(nodes))
	for i, n := range nodes {
		names[i] = tree.RefName(n.GroupID, n.ArtifactID)
	}
	return names
}
