package config

import (
	"testing"
	"time"

	"log/slog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSettings(t *testing.T) {
	settings := DefaultSettings()

	assert.Equal(t, "", settings.OutputFile, "OutputFile should be stdout by default")
	assert.Equal(t, "json", settings.OutputFormat)
	assert.True(t, settings.PrettyPrint, "PrettyPrint should be true by default")
	assert.False(t, settings.Aggregate)
	assert.Empty(t, settings.ExcludePatterns, "ExcludePatterns should be empty by default")
	assert.True(t, settings.RunTools, "build tools run by default")
	assert.Equal(t, 10*time.Minute, settings.ToolTimeout)
	assert.Equal(t, "runtimeClasspath", settings.GradleConfiguration)
	assert.Equal(t, "mvn", settings.MavenCommand)
	assert.Equal(t, "dotnet", settings.DotnetCommand)
	assert.Equal(t, slog.LevelError, settings.LogLevel, "LogLevel should be Error by default")
	assert.Equal(t, "text", settings.LogFormat, "LogFormat should be text by default")
}

func TestSettingsFromEnv_WithDefaults(t *testing.T) {
	settings := settingsFromEnv()

	defaultSettings := DefaultSettings()
	assert.Equal(t, defaultSettings.OutputFile, settings.OutputFile)
	assert.Equal(t, defaultSettings.PrettyPrint, settings.PrettyPrint)
	assert.Equal(t, defaultSettings.ExcludePatterns, settings.ExcludePatterns)
	assert.Equal(t, defaultSettings.LogLevel, settings.LogLevel)
	assert.Equal(t, defaultSettings.LogFormat, settings.LogFormat)
}

func TestSettingsFromEnv_WithEnvironmentVariables(t *testing.T) {
	t.Setenv("DEP_RESOLVER_OUTPUT", "/tmp/deps.yaml")
	t.Setenv("DEP_RESOLVER_FORMAT", "YAML")
	t.Setenv("DEP_RESOLVER_PRETTY", "false")
	t.Setenv("DEP_RESOLVER_AGGREGATE", "true")
	t.Setenv("DEP_RESOLVER_EXCLUDE", "vendor,node_modules,build")
	t.Setenv("DEP_RESOLVER_ECOSYSTEMS", "maven, npm")
	t.Setenv("DEP_RESOLVER_DISABLE_ECOSYSTEMS", "sbt")
	t.Setenv("DEP_RESOLVER_WORKERS", "3")
	t.Setenv("DEP_RESOLVER_TOOL_TIMEOUT", "90s")
	t.Setenv("DEP_RESOLVER_RUN_TOOLS", "false")
	t.Setenv("DEP_RESOLVER_MAVEN", "/opt/maven/bin/mvn")
	t.Setenv("DEP_RESOLVER_GRADLE_CONFIGURATION", "compileClasspath")
	t.Setenv("DEP_RESOLVER_LOG_LEVEL", "debug")
	t.Setenv("DEP_RESOLVER_LOG_FORMAT", "json")

	settings := settingsFromEnv()

	assert.Equal(t, "/tmp/deps.yaml", settings.OutputFile)
	assert.Equal(t, "yaml", settings.OutputFormat)
	assert.False(t, settings.PrettyPrint)
	assert.True(t, settings.Aggregate)
	assert.Equal(t, []string{"vendor", "node_modules", "build"}, settings.ExcludePatterns)
	assert.Equal(t, []string{"maven", "npm"}, settings.EnabledEcosystems)
	assert.Equal(t, []string{"sbt"}, settings.DisabledEcosystems)
	assert.Equal(t, 3, settings.Workers)
	assert.Equal(t, 90*time.Second, settings.ToolTimeout)
	assert.False(t, settings.RunTools)
	assert.Equal(t, "/opt/maven/bin/mvn", settings.MavenCommand)
	assert.Equal(t, "compileClasspath", settings.GradleConfiguration)
	assert.Equal(t, slog.LevelDebug, settings.LogLevel)
	assert.Equal(t, "json", settings.LogFormat)
}

func TestSettingsFromEnv_InvalidValuesKeepDefaults(t *testing.T) {
	t.Setenv("DEP_RESOLVER_LOG_LEVEL", "loud")
	t.Setenv("DEP_RESOLVER_WORKERS", "many")
	t.Setenv("DEP_RESOLVER_TOOL_TIMEOUT", "soon")

	settings := settingsFromEnv()

	assert.Equal(t, slog.LevelError, settings.LogLevel)
	assert.Equal(t, 0, settings.Workers)
	assert.Equal(t, 10*time.Minute, settings.ToolTimeout)
}

func TestSettingsFromEnv_BooleanParsing(t *testing.T) {
	tests := []struct {
		value    string
		expected bool
	}{
		{"true", true},
		{"TRUE", true},
		{"false", false},
		{"yes", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("DEP_RESOLVER_VERBOSE", tt.value)
			assert.Equal(t, tt.expected, settingsFromEnv().Verbose)
		})
	}
}

func TestSettingsFromEnv_ExcludePatternsParsing(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		expected []string
	}{
		{"single dir", "vendor", []string{"vendor"}},
		{"multiple dirs", "vendor,node_modules", []string{"vendor", "node_modules"}},
		{"with spaces", "vendor , node_modules , build", []string{"vendor", "node_modules", "build"}},
		{"only commas", ",,,", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DEP_RESOLVER_EXCLUDE", tt.envValue)
			assert.Equal(t, tt.expected, settingsFromEnv().ExcludePatterns)
		})
	}
}

func TestSettingsFromEnv_DoesNotModifyDefaults(t *testing.T) {
	t.Setenv("DEP_RESOLVER_PRETTY", "false")

	settings := settingsFromEnv()

	assert.True(t, DefaultSettings().PrettyPrint, "Default settings should not be modified")
	assert.False(t, settings.PrettyPrint, "Loaded settings should have environment override")
}

func TestConfigureLogger(t *testing.T) {
	for _, format := range []string{"text", "json", "invalid"} {
		t.Run(format, func(t *testing.T) {
			settings := &Settings{LogLevel: slog.LevelWarn, LogFormat: format}
			assert.NotNil(t, settings.ConfigureLogger())
		})
	}
}

func TestSetLogLevel(t *testing.T) {
	settings := DefaultSettings()
	require.NoError(t, settings.SetLogLevel("WARNING"))
	assert.Equal(t, slog.LevelWarn, settings.LogLevel)
	assert.Error(t, settings.SetLogLevel("trace"))
}

func TestResolverOptions(t *testing.T) {
	settings := DefaultSettings()
	settings.RunTools = false
	settings.SbtCommand = "/usr/local/bin/sbt"

	opts := settings.ResolverOptions()
	assert.False(t, opts.RunTools)
	assert.Equal(t, "/usr/local/bin/sbt", opts.SbtCommand)
	assert.Equal(t, "runtimeClasspath", opts.GradleConfiguration)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Settings)
		wantErr string
	}{
		{"defaults", func(*Settings) {}, ""},
		{"yaml output", func(s *Settings) { s.OutputFormat = "yaml" }, ""},
		{"xml output", func(s *Settings) { s.OutputFormat = "xml" }, "unsupported output format"},
		{"negative workers", func(s *Settings) { s.Workers = -1 }, "workers"},
		{"negative timeout", func(s *Settings) { s.ToolTimeout = -time.Second }, "tool timeout"},
		{"log format", func(s *Settings) { s.LogFormat = "xml" }, "log format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := DefaultSettings()
			tt.modify(settings)
			err := settings.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
