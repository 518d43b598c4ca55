package discovery

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/petrarca/dependency-resolver/internal/types"
)

// Policy decides how matched folders become project roots
type Policy int

const (
	// PolicyTopLevel selects the shallowest matched folders; manifests in
	// their descendants belong to them.
	PolicyTopLevel Policy = iota
	// PolicyScanAll makes every matched folder its own project root.
	PolicyScanAll
)

func (p Policy) String() string {
	if p == PolicyScanAll {
		return "scan-all"
	}
	return "top-level"
}

// GroupIntoRoots turns the matches found below scanRoot into project roots.
// Roots are returned in path order with absolute manifest paths.
func GroupIntoRoots(matches types.BomMatches, scanRoot string, policy Policy) []types.ProjectRoot {
	folders := matches.Folders()
	sort.SliceStable(folders, func(i, j int) bool {
		di, dj := depth(folders[i]), depth(folders[j])
		if di != dj {
			return di < dj
		}
		return folders[i] < folders[j]
	})

	var roots []types.ProjectRoot
	for _, folder := range folders {
		manifests := manifestPaths(folder, matches[folder])

		if policy == PolicyTopLevel {
			if owner := owningRoot(roots, folder); owner >= 0 {
				roots[owner].Manifests = append(roots[owner].Manifests, manifests...)
				continue
			}
		}

		roots = append(roots, types.ProjectRoot{
			Path:      folder,
			ScanRoot:  scanRoot,
			Manifests: manifests,
		})
	}

	sort.Slice(roots, func(i, j int) bool { return roots[i].Path < roots[j].Path })
	return roots
}

func manifestPaths(folder string, names []string) []string {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	paths := make([]string, 0, len(sorted))
	for _, name := range sorted {
		paths = append(paths, filepath.Join(folder, name))
	}
	return paths
}

func owningRoot(roots []types.ProjectRoot, folder string) int {
	for i, root := range roots {
		if isWithin(root.Path, folder) {
			return i
		}
	}
	return -1
}

// isWithin reports whether child is parent or lies below it
func isWithin(parent, child string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func depth(folder string) int {
	return strings.Count(filepath.Clean(folder), string(filepath.Separator))
}
