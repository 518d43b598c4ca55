// Package catalog holds the embedded list of supported ecosystems and the
// settings that select and tune them.
package catalog

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/go-enry/go-enry/v2"
	"gopkg.in/yaml.v3"

	"github.com/petrarca/dependency-resolver/internal/discovery"
	"github.com/petrarca/dependency-resolver/internal/validation"
)

//go:embed ecosystems.yaml
var ecosystemsData []byte

const schemaName = "ecosystems.json"

// Ecosystem describes how one ecosystem is discovered
type Ecosystem struct {
	ID             string   `yaml:"id" json:"id"`
	Type           string   `yaml:"type" json:"type"`
	Description    string   `yaml:"description,omitempty" json:"description,omitempty"`
	Patterns       []string `yaml:"patterns" json:"patterns"`
	Languages      []string `yaml:"languages,omitempty" json:"languages,omitempty"`
	Extensions     []string `yaml:"extensions,omitempty" json:"extensions,omitempty"`
	ScanAllFolders bool     `yaml:"scan_all_folders,omitempty" json:"scan_all_folders,omitempty"`
	Enabled        *bool    `yaml:"enabled,omitempty" json:"enabled,omitempty"`
}

type catalogFile struct {
	Ecosystems []Ecosystem `yaml:"ecosystems"`
}

var (
	loadOnce sync.Once
	loaded   []Ecosystem
	loadErr  error
)

// Load returns the embedded catalog. The document is validated and parsed once.
func Load() ([]Ecosystem, error) {
	loadOnce.Do(func() {
		loaded, loadErr = Parse(ecosystemsData)
	})
	if loadErr != nil {
		return nil, loadErr
	}
	return append([]Ecosystem(nil), loaded...), nil
}

// Parse validates and decodes a catalog document
func Parse(data []byte) ([]Ecosystem, error) {
	if err := validation.ValidateYAML(schemaName, data); err != nil {
		return nil, fmt.Errorf("invalid ecosystem catalog: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse ecosystem catalog: %w", err)
	}

	seen := make(map[string]bool)
	for _, eco := range file.Ecosystems {
		if seen[eco.ID] {
			return nil, fmt.Errorf("duplicate ecosystem id %q", eco.ID)
		}
		seen[eco.ID] = true
	}
	return file.Ecosystems, nil
}

// IsEnabled reports the default enablement; ecosystems are on unless the catalog says otherwise
func (e Ecosystem) IsEnabled() bool {
	return e.Enabled == nil || *e.Enabled
}

// Policy returns the top-folder policy of the ecosystem
func (e Ecosystem) Policy() discovery.Policy {
	if e.ScanAllFolders {
		return discovery.PolicyScanAll
	}
	return discovery.PolicyTopLevel
}

// SourceExtensions returns the lowercase source file extensions of the
// ecosystem's languages plus its extra extensions, sorted and unique
func (e Ecosystem) SourceExtensions() []string {
	set := make(map[string]bool)
	for _, lang := range e.Languages {
		for _, ext := range enry.GetLanguageExtensions(lang) {
			set[strings.ToLower(ext)] = true
		}
	}
	for _, ext := range e.Extensions {
		set[strings.ToLower(ext)] = true
	}

	exts := make([]string, 0, len(set))
	for ext := range set {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// SourcePatterns turns SourceExtensions into glob patterns relative to a project root
func (e Ecosystem) SourcePatterns() []string {
	exts := e.SourceExtensions()
	patterns := make([]string, len(exts))
	for i, ext := range exts {
		patterns[i] = "**/*" + ext
	}
	return patterns
}

// Selection narrows and tunes the catalog
type Selection struct {
	// Enabled, when non-empty, is the exact set of ecosystems to run
	Enabled []string
	// Disabled is removed after Enabled is applied
	Disabled []string
	// Patterns replaces the bom patterns of an ecosystem
	Patterns map[string][]string
}

// Select applies a selection to the catalog. Unknown ids are an error so a
// typo does not silently disable resolution.
func Select(ecosystems []Ecosystem, sel Selection) ([]Ecosystem, error) {
	byID := make(map[string]bool, len(ecosystems))
	for _, eco := range ecosystems {
		byID[eco.ID] = true
	}

	var unknown []string
	check := func(ids []string) {
		for _, id := range ids {
			if !byID[id] {
				unknown = append(unknown, id)
			}
		}
	}
	check(sel.Enabled)
	check(sel.Disabled)
	for id := range sel.Patterns {
		check([]string{id})
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("unknown ecosystems: %s", strings.Join(unknown, ", "))
	}

	enabled := toSet(sel.Enabled)
	disabled := toSet(sel.Disabled)

	var selected []Ecosystem
	for _, eco := range ecosystems {
		switch {
		case disabled[eco.ID]:
			continue
		case len(enabled) > 0 && !enabled[eco.ID]:
			continue
		case len(enabled) == 0 && !eco.IsEnabled():
			continue
		}
		if patterns, ok := sel.Patterns[eco.ID]; ok && len(patterns) > 0 {
			eco.Patterns = append([]string(nil), patterns...)
		}
		selected = append(selected, eco)
	}
	return selected, nil
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
