package types

import (
	"path/filepath"
	"sort"
)

// BomMatches maps a folder to the manifest file names found directly in it
type BomMatches map[string][]string

// Folders returns the matched folders in lexical order
func (m BomMatches) Folders() []string {
	folders := make([]string, 0, len(m))
	for folder := range m {
		folders = append(folders, folder)
	}
	sort.Strings(folders)
	return folders
}

// ProjectRoot is a folder selected for resolution together with the manifests it owns
type ProjectRoot struct {
	Path      string   `json:"path" yaml:"path"`
	ScanRoot  string   `json:"scan_root" yaml:"scan_root"`
	Manifests []string `json:"manifests" yaml:"manifests"`
}

// RelPath returns the root's path relative to its scan root using forward slashes.
// The scan root itself yields ".".
func (p ProjectRoot) RelPath() string {
	rel, err := filepath.Rel(p.ScanRoot, p.Path)
	if err != nil {
		return filepath.ToSlash(p.Path)
	}
	return filepath.ToSlash(rel)
}

// ResolutionResult is what one resolver produced for one project root.
// The dispatcher never mutates a result after receiving it.
type ResolutionResult struct {
	DependencyType DependencyType               `json:"dependency_type" yaml:"dependency_type"`
	ProjectRoot    string                       `json:"project_root" yaml:"project_root"`
	ScanRoot       string                       `json:"scan_root" yaml:"scan_root"`
	Manifests      []string                     `json:"manifests,omitempty" yaml:"manifests,omitempty"`
	Projects       map[string][]*DependencyNode `json:"projects" yaml:"projects"`
	Excludes       []string                     `json:"excludes,omitempty" yaml:"excludes,omitempty"`
	Warnings       []string                     `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// NewResolutionResult creates an empty result for the given project root
func NewResolutionResult(depType DependencyType, root ProjectRoot) *ResolutionResult {
	return &ResolutionResult{
		DependencyType: depType,
		ProjectRoot:    root.Path,
		ScanRoot:       root.ScanRoot,
		Manifests:      append([]string(nil), root.Manifests...),
		Projects:       make(map[string][]*DependencyNode),
	}
}

// AddProject appends dependency roots for a project unit (module, configuration, csproj, ...)
func (r *ResolutionResult) AddProject(name string, roots []*DependencyNode) {
	if len(roots) == 0 {
		if _, ok := r.Projects[name]; !ok {
			r.Projects[name] = []*DependencyNode{}
		}
		return
	}
	r.Projects[name] = append(r.Projects[name], roots...)
}

// AddWarnings records non-fatal problems encountered while resolving
func (r *ResolutionResult) AddWarnings(warnings ...string) {
	r.Warnings = append(r.Warnings, warnings...)
}

// DependencyCount returns the number of distinct dependencies across all project units
func (r *ResolutionResult) DependencyCount() int {
	var roots []*DependencyNode
	for _, name := range r.ProjectNames() {
		roots = append(roots, r.Projects[name]...)
	}
	return CountUnique(roots)
}

// ProjectNames returns the project unit names in lexical order
func (r *ResolutionResult) ProjectNames() []string {
	names := make([]string, 0, len(r.Projects))
	for name := range r.Projects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsEmpty reports whether no dependency was resolved
func (r *ResolutionResult) IsEmpty() bool {
	for _, roots := range r.Projects {
		if len(roots) > 0 {
			return false
		}
	}
	return true
}
