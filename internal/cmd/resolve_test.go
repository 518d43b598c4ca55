package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/petrarca/dependency-resolver/internal/config"
	"github.com/petrarca/dependency-resolver/internal/metadata"
	"github.com/petrarca/dependency-resolver/internal/types"
)

func sampleResults() []*types.ResolutionResult {
	jsr305 := &types.DependencyNode{GroupID: "com.google.code.findbugs", ArtifactID: "jsr305", Version: "3.0.2", Type: types.DependencyTypeMaven}
	guava := &types.DependencyNode{GroupID: "com.google.guava", ArtifactID: "guava", Version: "32.1.2-jre", Type: types.DependencyTypeMaven,
		Children: []*types.DependencyNode{jsr305}}

	app := types.NewResolutionResult(types.DependencyTypeMaven, types.ProjectRoot{Path: "/scan/app", ScanRoot: "/scan"})
	app.AddProject("com.example:app", []*types.DependencyNode{guava})

	lib := types.NewResolutionResult(types.DependencyTypeMaven, types.ProjectRoot{Path: "/scan/lib", ScanRoot: "/scan"})
	lib.AddProject("com.example:lib", []*types.DependencyNode{jsr305})
	lib.AddWarnings("mvn exited with status 1")

	web := types.NewResolutionResult(types.DependencyTypeNpm, types.ProjectRoot{Path: "/scan/web", ScanRoot: "/scan"})
	web.AddProject("web", nil)

	return []*types.ResolutionResult{app, lib, web}
}

func TestResolveScanPaths(t *testing.T) {
	dir := t.TempDir()
	manifest := filepath.Join(dir, "pom.xml")
	require.NoError(t, os.WriteFile(manifest, []byte("<project/>"), 0644))

	paths, err := resolveScanPaths([]string{dir, manifest + " "})
	require.NoError(t, err)
	assert.Equal(t, []string{dir, dir}, paths)

	_, err = resolveScanPaths([]string{filepath.Join(dir, "missing")})
	assert.Error(t, err)
}

func TestSummarize(t *testing.T) {
	rows := summarize(sampleResults())

	require.Len(t, rows, 2)
	assert.Equal(t, ecosystemSummary{Type: "maven", Projects: 2, Dependencies: 2, Warnings: 1}, rows[0])
	assert.Equal(t, ecosystemSummary{Type: "npm", Projects: 1}, rows[1])
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	printSummary(&buf, sampleResults())
	out := buf.String()
	assert.Contains(t, out, "maven")
	assert.Contains(t, out, "Dependencies")

	buf.Reset()
	printSummary(&buf, nil)
	assert.Contains(t, buf.String(), "No projects found")
}

func TestMarshal(t *testing.T) {
	doc := &Document{Metadata: metadata.NewScanMetadata([]string{"/scan"}), Results: sampleResults()}

	compact, err := marshal(doc, "json", false)
	require.NoError(t, err)
	pretty, err := marshal(doc, "JSON", true)
	require.NoError(t, err)
	assert.Less(t, len(compact), len(pretty))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(compact, &decoded))
	assert.Len(t, decoded["results"], 3)

	asYAML, err := marshal(doc, "yaml", false)
	require.NoError(t, err)
	var fromYAML Document
	require.NoError(t, yaml.Unmarshal(asYAML, &fromYAML))
	require.Len(t, fromYAML.Results, 3)
	assert.Equal(t, "guava", fromYAML.Results[0].Projects["com.example:app"][0].ArtifactID)

	_, err = marshal(doc, "xml", true)
	assert.Error(t, err)
}

func TestWriteResults_Aggregate(t *testing.T) {
	saved := settings
	t.Cleanup(func() { settings = saved })

	settings = config.DefaultSettings()
	settings.Aggregate = true
	settings.OutputFile = filepath.Join(t.TempDir(), "deps.json")

	require.NoError(t, writeResults(metadata.NewScanMetadata([]string{"/scan"}), sampleResults(), nil))

	data, err := os.ReadFile(settings.OutputFile)
	require.NoError(t, err)
	var out struct {
		Metadata     map[string]interface{} `json:"metadata"`
		Dependencies map[string][]string    `json:"dependencies"`
	}
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "aggregated", out.Metadata["format"])
	assert.Equal(t, []string{
		"com.google.code.findbugs:jsr305:3.0.2",
		"com.google.guava:guava:32.1.2-jre",
	}, out.Dependencies["maven"])
}

func TestBuildEcosystemsResult(t *testing.T) {
	result, err := buildEcosystemsResult()
	require.NoError(t, err)
	require.NotEmpty(t, result.Ecosystems)

	for _, eco := range result.Ecosystems {
		assert.True(t, eco.Registered, "%s has no resolver", eco.ID)
		assert.NotEmpty(t, eco.Patterns, eco.ID)
	}

	var buf bytes.Buffer
	result.ToText(&buf)
	assert.Contains(t, buf.String(), "maven")
}
