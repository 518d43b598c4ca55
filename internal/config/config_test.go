package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Missing(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, cfg.Exclude)
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	content := `
exclude:
  - "**/testdata/**"
  - examples
ecosystems:
  disabled: [sbt]
gradle_configuration: compileClasspath
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ProjectConfigFile), []byte(content), 0644))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"**/testdata/**", "examples"}, cfg.Exclude)
	assert.Equal(t, []string{"sbt"}, cfg.Ecosystems.Disabled)
	assert.Equal(t, "compileClasspath", cfg.GradleConfiguration)
}

func TestLoadConfig_Invalid(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ProjectConfigFile), []byte("exclude:\n  - /abs\n"), 0644))

	_, err := LoadConfig(dir)
	assert.Error(t, err)
}

func TestProjectConfig_MergeExcludes(t *testing.T) {
	cfg := &ProjectConfig{Exclude: []string{"vendor", "build"}}
	assert.Equal(t, []string{"vendor", "build", "dist"}, cfg.MergeExcludes([]string{"build", "dist"}))

	var nilCfg *ProjectConfig
	assert.Equal(t, []string{"x"}, nilCfg.MergeExcludes([]string{"x"}))
}

func TestProjectConfig_ApplyTo(t *testing.T) {
	settings := DefaultSettings()
	settings.DisabledEcosystems = []string{"npm"}

	cfg := &ProjectConfig{
		Ecosystems:          EcosystemSettings{Enabled: []string{"maven", "npm"}, Disabled: []string{"npm", "sbt"}},
		GradleConfiguration: "compileClasspath",
	}
	cfg.ApplyTo(settings)

	assert.Equal(t, []string{"maven", "npm"}, settings.EnabledEcosystems)
	assert.Equal(t, []string{"npm", "sbt"}, settings.DisabledEcosystems)
	assert.Equal(t, "compileClasspath", settings.GradleConfiguration)
}

func TestLoadScanConfig_InlineJSON(t *testing.T) {
	cfg, err := LoadScanConfig(`{"scan": {"paths": ["./svc"], "output": {"format": "yaml", "pretty": false}}}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"./svc"}, cfg.GetScanPaths())
	assert.Equal(t, "yaml", cfg.Scan.Output.Format)
	require.NotNil(t, cfg.Scan.Output.Pretty)
	assert.False(t, *cfg.Scan.Output.Pretty)
}

func TestLoadScanConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.yml")
	content := `
scan:
  paths: [services, libs]
  exclude: ["**/generated/**"]
  ecosystems:
    enabled: [maven, gradle]
    patterns:
      maven: ["**/pom.xml", "**/*.pom"]
  options:
    workers: 2
    tool_timeout: 5m
    run_tools: false
  tools:
    gradle: /opt/gradle/bin/gradle
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadScanConfig(path)
	require.NoError(t, err)

	settings := DefaultSettings()
	cfg.MergeWithSettings(settings)

	assert.Equal(t, []string{"services", "libs"}, cfg.GetScanPaths())
	assert.Equal(t, []string{"maven", "gradle"}, settings.EnabledEcosystems)
	assert.Equal(t, []string{"**/pom.xml", "**/*.pom"}, settings.EcosystemPatterns["maven"])
	assert.Equal(t, 2, settings.Workers)
	assert.Equal(t, 5*time.Minute, settings.ToolTimeout)
	assert.False(t, settings.RunTools)
	assert.Equal(t, "/opt/gradle/bin/gradle", settings.GradleCommand)
}

func TestLoadScanConfig_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"unknown key", `{"scan": {"colour": "blue"}}`},
		{"bad timeout", `{"scan": {"options": {"tool_timeout": "forever"}}}`},
		{"bad format", `{"scan": {"output": {"format": "xml"}}}`},
		{"missing file", filepath.Join(os.TempDir(), "does-not-exist", "scan.yml")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScanConfig(tt.input)
			assert.Error(t, err)
		})
	}
}

func TestLoadScanConfig_Empty(t *testing.T) {
	cfg, err := LoadScanConfig("")
	require.NoError(t, err)
	assert.Nil(t, cfg)
	assert.Equal(t, []string{"."}, cfg.GetScanPaths())
}

func TestMergeWithSettings_CLIWins(t *testing.T) {
	cfg, err := ParseScanConfig([]byte(`
scan:
  output:
    file: from-config.json
  options:
    workers: 8
  tools:
    maven: /config/mvn
`))
	require.NoError(t, err)

	settings := DefaultSettings()
	settings.OutputFile = "from-cli.json"
	settings.Workers = 2
	settings.MavenCommand = "/cli/mvn"
	cfg.MergeWithSettings(settings)

	assert.Equal(t, "from-cli.json", settings.OutputFile)
	assert.Equal(t, 2, settings.Workers)
	assert.Equal(t, "/cli/mvn", settings.MavenCommand)
}

func TestGetMergedConfig(t *testing.T) {
	cfg := &ScanConfigFile{Scan: ScanConfigSection{
		Exclude:    []string{"vendor"},
		Ecosystems: EcosystemSettings{Disabled: []string{"sbt"}},
	}}
	project := &ProjectConfig{
		Exclude:    []string{"vendor", "third_party"},
		Ecosystems: EcosystemSettings{Enabled: []string{"npm"}, Disabled: []string{"php"}},
	}

	merged := cfg.GetMergedConfig(project)
	assert.Equal(t, []string{"vendor", "third_party"}, merged.Exclude)
	assert.Equal(t, []string{"npm"}, merged.Ecosystems.Enabled)
	assert.Equal(t, []string{"sbt", "php"}, merged.Ecosystems.Disabled)

	var nilCfg *ScanConfigFile
	assert.Same(t, project, nilCfg.GetMergedConfig(project))
}
