package metadata

import (
	"path/filepath"
	"sort"
	"time"

	"github.com/petrarca/dependency-resolver/internal/git"
	"github.com/petrarca/dependency-resolver/internal/types"
)

// FormatVersion is the version of the output document structure. It changes
// when fields are renamed or removed.
const FormatVersion = "1.0"

// ScanMetadata contains information about the scan execution
type ScanMetadata struct {
	Format          string                 `json:"format" yaml:"format"` // "full" or "aggregated"
	FormatVersion   string                 `json:"format_version" yaml:"format_version"`
	Timestamp       string                 `json:"timestamp" yaml:"timestamp"`
	SourceID        string                 `json:"source_id,omitempty" yaml:"source_id,omitempty"`
	ScanPaths       []string               `json:"scan_paths" yaml:"scan_paths"`
	Excludes        []string               `json:"excludes,omitempty" yaml:"excludes,omitempty"`
	DurationMs      int64                  `json:"duration_ms,omitempty" yaml:"duration_ms,omitempty"`
	ProjectCount    int                    `json:"project_count" yaml:"project_count"`
	DependencyCount int                    `json:"dependency_count" yaml:"dependency_count"`
	WarningCount    int                    `json:"warning_count,omitempty" yaml:"warning_count,omitempty"`
	Ecosystems      map[string]int         `json:"ecosystems,omitempty" yaml:"ecosystems,omitempty"` // projects per dependency type
	Git             []*git.GitInfo         `json:"git,omitempty" yaml:"git,omitempty"`
	Properties      map[string]interface{} `json:"properties,omitempty" yaml:"properties,omitempty"`
}

// NewScanMetadata creates a new scan metadata instance
func NewScanMetadata(scanPaths []string) *ScanMetadata {
	paths := make([]string, 0, len(scanPaths))
	for _, p := range scanPaths {
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
		paths = append(paths, p)
	}

	return &ScanMetadata{
		Format:        "full",
		FormatVersion: FormatVersion,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		ScanPaths:     paths,
	}
}

// SetDuration sets the scan duration in milliseconds
func (m *ScanMetadata) SetDuration(duration time.Duration) {
	m.DurationMs = duration.Milliseconds()
}

// SetResultCounts derives the project, dependency and warning counts from results
func (m *ScanMetadata) SetResultCounts(results []*types.ResolutionResult) {
	m.ProjectCount = 0
	m.DependencyCount = 0
	m.WarningCount = 0
	m.Ecosystems = make(map[string]int)

	for _, res := range results {
		m.ProjectCount++
		m.DependencyCount += res.DependencyCount()
		m.WarningCount += len(res.Warnings)
		m.Ecosystems[string(res.DependencyType)]++
	}
	if len(m.Ecosystems) == 0 {
		m.Ecosystems = nil
	}
}

// SetGit records the repositories the scan paths belong to, once per repository
func (m *ScanMetadata) SetGit(scanPaths []string) {
	seen := make(map[string]bool)
	var repos []*git.GitInfo
	for _, p := range scanPaths {
		info, root := git.GetGitInfoWithRoot(p)
		if info == nil || seen[root] {
			continue
		}
		seen[root] = true
		repos = append(repos, info)
	}
	sort.SliceStable(repos, func(i, j int) bool { return repos[i].RemoteURL < repos[j].RemoteURL })
	m.Git = repos
}

// SetProperties sets custom properties from configuration
func (m *ScanMetadata) SetProperties(properties map[string]interface{}) {
	if len(properties) > 0 {
		m.Properties = properties
	}
}

// SetFormat sets the output format type
func (m *ScanMetadata) SetFormat(format string) {
	m.Format = format
}
