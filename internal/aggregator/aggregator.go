package aggregator

import (
	"sort"

	"github.com/petrarca/dependency-resolver/internal/metadata"
	"github.com/petrarca/dependency-resolver/internal/types"
)

// AggregateOutput represents the rolled-up dependencies of a scan
type AggregateOutput struct {
	Metadata     *metadata.ScanMetadata `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	Dependencies map[string][]string    `json:"dependencies" yaml:"dependencies"`             // dependency type -> unique coordinates
	Digests      map[string][]string    `json:"digests,omitempty" yaml:"digests,omitempty"`   // dependency type -> unique sha1s
	Warnings     []string               `json:"warnings,omitempty" yaml:"warnings,omitempty"` // "<root>: <warning>"
	Projects     map[string][]string    `json:"projects,omitempty" yaml:"projects,omitempty"` // dependency type -> project roots
}

// Aggregator flattens resolution results into per-ecosystem lists
type Aggregator struct {
	withWarnings bool
}

// NewAggregator creates a new aggregator. Warnings are only copied when
// withWarnings is set.
func NewAggregator(withWarnings bool) *Aggregator {
	return &Aggregator{withWarnings: withWarnings}
}

// Aggregate processes the results of a scan and returns aggregated data.
// Every ecosystem is kept apart; the same coordinate found by two ecosystems
// is listed under both.
func (a *Aggregator) Aggregate(meta *metadata.ScanMetadata, results []*types.ResolutionResult) *AggregateOutput {
	output := &AggregateOutput{
		Metadata:     meta,
		Dependencies: make(map[string][]string),
	}
	if meta != nil {
		meta.SetFormat("aggregated")
	}

	coords := make(map[string]map[string]bool)
	digests := make(map[string]map[string]bool)
	projects := make(map[string]map[string]bool)

	for _, res := range results {
		depType := string(res.DependencyType)
		addTo(projects, depType, res.ProjectRoot)

		for _, name := range res.ProjectNames() {
			a.collectDependencies(res.Projects[name], depType, coords, digests)
		}

		if a.withWarnings {
			for _, w := range res.Warnings {
				output.Warnings = append(output.Warnings, res.ProjectRoot+": "+w)
			}
		}
	}

	for depType, set := range coords {
		output.Dependencies[depType] = sortedKeys(set)
	}
	if len(digests) > 0 {
		output.Digests = make(map[string][]string)
		for depType, set := range digests {
			output.Digests[depType] = sortedKeys(set)
		}
	}
	if len(projects) > 0 {
		output.Projects = make(map[string][]string)
		for depType, set := range projects {
			output.Projects[depType] = sortedKeys(set)
		}
	}
	return output
}

// collectDependencies walks a forest and records every coordinate and digest
func (a *Aggregator) collectDependencies(roots []*types.DependencyNode, depType string, coords, digests map[string]map[string]bool) {
	types.Walk(roots, func(n *types.DependencyNode, _ int) bool {
		if coord := n.Coordinate(); coord != "" && coord != n.SHA1 {
			addTo(coords, depType, coord)
		}
		if n.SHA1 != "" {
			addTo(digests, depType, n.SHA1)
		}
		return true
	})
}

func addTo(sets map[string]map[string]bool, key, value string) {
	set, ok := sets[key]
	if !ok {
		set = make(map[string]bool)
		sets[key] = set
	}
	set[value] = true
}

// sortedKeys returns the members of a set in lexical order
func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
