package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/petrarca/dependency-resolver/internal/validation"
)

const scanConfigSchema = "dep-resolver-config.json"

// ScanConfigFile represents the external scan configuration file
type ScanConfigFile struct {
	Scan ScanConfigSection `yaml:"scan" json:"scan"`
}

// ScanConfigSection contains all scan configuration options
type ScanConfigSection struct {
	// What to scan
	Paths []string `yaml:"paths,omitempty" json:"paths,omitempty"`

	// Excludes (identical to .dep-resolver.yml)
	Exclude []string `yaml:"exclude,omitempty" json:"exclude,omitempty"`

	Output     OutputConfig      `yaml:"output,omitempty" json:"output,omitempty"`
	Ecosystems EcosystemSettings `yaml:"ecosystems,omitempty" json:"ecosystems,omitempty"`
	Options    ScanOptions       `yaml:"options,omitempty" json:"options,omitempty"`
	Tools      ToolsConfig       `yaml:"tools,omitempty" json:"tools,omitempty"`
}

// OutputConfig defines output settings
type OutputConfig struct {
	File      string `yaml:"file,omitempty" json:"file,omitempty"`
	Format    string `yaml:"format,omitempty" json:"format,omitempty"`
	Pretty    *bool  `yaml:"pretty,omitempty" json:"pretty,omitempty"`
	Aggregate bool   `yaml:"aggregate,omitempty" json:"aggregate,omitempty"`
}

// ScanOptions defines resolver behavior options
type ScanOptions struct {
	Verbose             bool   `yaml:"verbose,omitempty" json:"verbose,omitempty"`
	Workers             int    `yaml:"workers,omitempty" json:"workers,omitempty"`
	ToolTimeout         string `yaml:"tool_timeout,omitempty" json:"tool_timeout,omitempty"`
	RunTools            *bool  `yaml:"run_tools,omitempty" json:"run_tools,omitempty"`
	IgnoreSourceFiles   bool   `yaml:"ignore_source_files,omitempty" json:"ignore_source_files,omitempty"`
	RespectGitignore    bool   `yaml:"respect_gitignore,omitempty" json:"respect_gitignore,omitempty"`
	CaseSensitive       bool   `yaml:"case_sensitive,omitempty" json:"case_sensitive,omitempty"`
	GradleConfiguration string `yaml:"gradle_configuration,omitempty" json:"gradle_configuration,omitempty"`
	MetricsFile         string `yaml:"metrics_file,omitempty" json:"metrics_file,omitempty"`
}

// ToolsConfig overrides the build tool binaries
type ToolsConfig struct {
	Maven  string `yaml:"maven,omitempty" json:"maven,omitempty"`
	Gradle string `yaml:"gradle,omitempty" json:"gradle,omitempty"`
	Go     string `yaml:"go,omitempty" json:"go,omitempty"`
	Python string `yaml:"python,omitempty" json:"python,omitempty"`
	Sbt    string `yaml:"sbt,omitempty" json:"sbt,omitempty"`
	Bundle string `yaml:"bundle,omitempty" json:"bundle,omitempty"`
	Dotnet string `yaml:"dotnet,omitempty" json:"dotnet,omitempty"`
}

// LoadScanConfig loads scan configuration from a file path or inline JSON.
// The document is validated against the embedded schema before decoding.
func LoadScanConfig(configPath string) (*ScanConfigFile, error) {
	if configPath == "" {
		return nil, nil
	}

	var data []byte
	if strings.HasPrefix(strings.TrimSpace(configPath), "{") {
		data = []byte(configPath)
	} else {
		var err error
		data, err = os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return ParseScanConfig(data)
}

// ParseScanConfig validates and decodes a YAML or JSON scan configuration
func ParseScanConfig(data []byte) (*ScanConfigFile, error) {
	if err := validation.ValidateYAML(scanConfigSchema, data); err != nil {
		return nil, fmt.Errorf("invalid scan configuration: %w", err)
	}

	// JSON is valid YAML, so one decoder serves both
	var config ScanConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse scan configuration: %w", err)
	}
	return &config, nil
}

// MergeWithSettings merges scan config with existing settings.
// Settings that differ from their defaults are assumed to come from CLI
// flags or the environment and take precedence.
func (c *ScanConfigFile) MergeWithSettings(settings *Settings) {
	if c == nil || settings == nil {
		return
	}
	defaults := DefaultSettings()
	scan := c.Scan

	// Output settings
	if scan.Output.File != "" && settings.OutputFile == defaults.OutputFile {
		settings.OutputFile = scan.Output.File
	}
	if scan.Output.Format != "" && settings.OutputFormat == defaults.OutputFormat {
		settings.OutputFormat = scan.Output.Format
	}
	if scan.Output.Pretty != nil && settings.PrettyPrint == defaults.PrettyPrint {
		settings.PrettyPrint = *scan.Output.Pretty
	}
	if !settings.Aggregate && scan.Output.Aggregate {
		settings.Aggregate = true
	}

	// Ecosystems
	if len(settings.EnabledEcosystems) == 0 {
		settings.EnabledEcosystems = scan.Ecosystems.Enabled
	}
	settings.DisabledEcosystems = appendUnique(settings.DisabledEcosystems, scan.Ecosystems.Disabled...)
	for id, patterns := range scan.Ecosystems.Patterns {
		if _, ok := settings.EcosystemPatterns[id]; !ok {
			if settings.EcosystemPatterns == nil {
				settings.EcosystemPatterns = make(map[string][]string)
			}
			settings.EcosystemPatterns[id] = patterns
		}
	}

	// Scan options
	opts := scan.Options
	settings.Verbose = settings.Verbose || opts.Verbose
	settings.IgnoreSourceFiles = settings.IgnoreSourceFiles || opts.IgnoreSourceFiles
	settings.RespectGitignore = settings.RespectGitignore || opts.RespectGitignore
	settings.CaseSensitive = settings.CaseSensitive || opts.CaseSensitive
	if opts.Workers > 0 && settings.Workers == defaults.Workers {
		settings.Workers = opts.Workers
	}
	if opts.ToolTimeout != "" && settings.ToolTimeout == defaults.ToolTimeout {
		// The schema guarantees a parsable duration
		if d, err := time.ParseDuration(opts.ToolTimeout); err == nil {
			settings.ToolTimeout = d
		}
	}
	if opts.RunTools != nil && settings.RunTools == defaults.RunTools {
		settings.RunTools = *opts.RunTools
	}
	if opts.GradleConfiguration != "" && settings.GradleConfiguration == defaults.GradleConfiguration {
		settings.GradleConfiguration = opts.GradleConfiguration
	}
	if opts.MetricsFile != "" && settings.MetricsFile == "" {
		settings.MetricsFile = opts.MetricsFile
	}

	// Tools
	mergeTool(&settings.MavenCommand, defaults.MavenCommand, scan.Tools.Maven)
	mergeTool(&settings.GradleCommand, defaults.GradleCommand, scan.Tools.Gradle)
	mergeTool(&settings.GoCommand, defaults.GoCommand, scan.Tools.Go)
	mergeTool(&settings.PythonCommand, defaults.PythonCommand, scan.Tools.Python)
	mergeTool(&settings.SbtCommand, defaults.SbtCommand, scan.Tools.Sbt)
	mergeTool(&settings.BundleCommand, defaults.BundleCommand, scan.Tools.Bundle)
	mergeTool(&settings.DotnetCommand, defaults.DotnetCommand, scan.Tools.Dotnet)

	// Exclude patterns are merged separately with the project config
}

func mergeTool(target *string, def, configured string) {
	if configured != "" && *target == def {
		*target = configured
	}
}

// GetScanPaths returns the paths to scan, defaulting to ["."] if not specified
func (c *ScanConfigFile) GetScanPaths() []string {
	if c == nil || len(c.Scan.Paths) == 0 {
		return []string{"."}
	}
	return c.Scan.Paths
}

// GetMergedConfig merges the scan config with a project config
// (.dep-resolver.yml). Project excludes and ecosystem switches are appended.
func (c *ScanConfigFile) GetMergedConfig(projectConfig *ProjectConfig) *ProjectConfig {
	if c == nil {
		return projectConfig
	}

	merged := &ProjectConfig{
		Exclude:    append([]string(nil), c.Scan.Exclude...),
		Ecosystems: EcosystemSettings{Enabled: c.Scan.Ecosystems.Enabled},
	}
	merged.Ecosystems.Disabled = append(merged.Ecosystems.Disabled, c.Scan.Ecosystems.Disabled...)

	if projectConfig != nil {
		merged.Exclude = appendUnique(merged.Exclude, projectConfig.Exclude...)
		if len(merged.Ecosystems.Enabled) == 0 {
			merged.Ecosystems.Enabled = projectConfig.Ecosystems.Enabled
		}
		merged.Ecosystems.Disabled = appendUnique(merged.Ecosystems.Disabled, projectConfig.Ecosystems.Disabled...)
		merged.GradleConfiguration = projectConfig.GradleConfiguration
	}
	return merged
}
