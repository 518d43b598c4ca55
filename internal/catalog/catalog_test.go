package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petrarca/dependency-resolver/internal/discovery"
)

func TestLoad_EmbeddedCatalog(t *testing.T) {
	ecosystems, err := Load()
	require.NoError(t, err)

	ids := make([]string, len(ecosystems))
	for i, eco := range ecosystems {
		ids[i] = eco.ID
		assert.NotEmpty(t, eco.Patterns, eco.ID)
		assert.True(t, eco.IsEnabled(), eco.ID)
	}
	assert.ElementsMatch(t, []string{
		"npm", "maven", "gradle", "golang", "nuget", "ruby",
		"python", "php", "cocoapods", "sbt", "rust", "terraform",
	}, ids)
}

func TestEcosystem_Policy(t *testing.T) {
	ecosystems, err := Load()
	require.NoError(t, err)

	policies := make(map[string]discovery.Policy)
	for _, eco := range ecosystems {
		policies[eco.ID] = eco.Policy()
	}
	assert.Equal(t, discovery.PolicyScanAll, policies["nuget"])
	assert.Equal(t, discovery.PolicyScanAll, policies["terraform"])
	assert.Equal(t, discovery.PolicyTopLevel, policies["maven"])
	assert.Equal(t, discovery.PolicyTopLevel, policies["npm"])
}

func TestEcosystem_SourceExtensions(t *testing.T) {
	eco := Ecosystem{ID: "maven", Languages: []string{"Java"}, Extensions: []string{".JAV"}}
	exts := eco.SourceExtensions()

	assert.Contains(t, exts, ".java")
	assert.Contains(t, exts, ".jav")
	assert.IsIncreasing(t, exts)
	assert.Contains(t, eco.SourcePatterns(), "**/*.java")

	assert.Empty(t, Ecosystem{Languages: []string{"NoSuchLanguage"}}.SourceExtensions())
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing patterns", "ecosystems:\n  - id: npm\n    type: npm\n"},
		{"bad id", "ecosystems:\n  - id: Npm\n    type: npm\n    patterns: [x]\n"},
		{"duplicate id", "ecosystems:\n  - id: npm\n    type: npm\n    patterns: [x]\n  - id: npm\n    type: npm\n    patterns: [y]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestSelect(t *testing.T) {
	off := false
	ecosystems := []Ecosystem{
		{ID: "npm", Patterns: []string{"**/*package.json"}},
		{ID: "maven", Patterns: []string{"**/*pom.xml"}},
		{ID: "sbt", Patterns: []string{"**/*build.sbt"}, Enabled: &off},
	}

	ids := func(ecos []Ecosystem) []string {
		var out []string
		for _, e := range ecos {
			out = append(out, e.ID)
		}
		return out
	}

	selected, err := Select(ecosystems, Selection{})
	require.NoError(t, err)
	assert.Equal(t, []string{"npm", "maven"}, ids(selected))

	selected, err = Select(ecosystems, Selection{Enabled: []string{"sbt", "maven"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"maven", "sbt"}, ids(selected), "explicit enable overrides the catalog default")

	selected, err = Select(ecosystems, Selection{Disabled: []string{"npm"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"maven"}, ids(selected))

	selected, err = Select(ecosystems, Selection{Patterns: map[string][]string{"npm": {"**/package.json"}}})
	require.NoError(t, err)
	assert.Equal(t, []string{"**/package.json"}, selected[0].Patterns)
	assert.Equal(t, []string{"**/*package.json"}, ecosystems[0].Patterns, "catalog is not mutated")

	_, err = Select(ecosystems, Selection{Disabled: []string{"mvn"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mvn")
}
