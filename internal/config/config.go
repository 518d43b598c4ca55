package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/petrarca/dependency-resolver/internal/validation"
)

// ProjectConfigFile is the name of the per-project configuration file
const ProjectConfigFile = ".dep-resolver.yml"

// ProjectConfig represents the .dep-resolver.yml configuration file
type ProjectConfig struct {
	Exclude             []string          `yaml:"exclude,omitempty"`
	Ecosystems          EcosystemSettings `yaml:"ecosystems,omitempty"`
	GradleConfiguration string            `yaml:"gradle_configuration,omitempty"`
}

// EcosystemSettings enables or disables catalog ecosystems
type EcosystemSettings struct {
	Enabled  []string            `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	Disabled []string            `yaml:"disabled,omitempty" json:"disabled,omitempty"`
	Patterns map[string][]string `yaml:"patterns,omitempty" json:"patterns,omitempty"`
}

// LoadConfig attempts to load .dep-resolver.yml from the scan root.
// A missing file yields an empty config, not an error.
func LoadConfig(scanPath string) (*ProjectConfig, error) {
	configPath := filepath.Join(scanPath, ProjectConfigFile)

	data, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		return &ProjectConfig{}, nil
	}
	if err != nil {
		return nil, err
	}

	if err := validation.ValidateYAML("dep-resolver-yml.json", data); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", configPath, err)
	}

	var config ProjectConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", configPath, err)
	}
	return &config, nil
}

// MergeExcludes returns the config excludes followed by the CLI excludes,
// without duplicates and in first-seen order
func (c *ProjectConfig) MergeExcludes(cliExcludes []string) []string {
	if c == nil {
		return cliExcludes
	}

	seen := make(map[string]bool)
	result := make([]string, 0, len(c.Exclude)+len(cliExcludes))
	for _, list := range [][]string{c.Exclude, cliExcludes} {
		for _, exclude := range list {
			if exclude == "" || seen[exclude] {
				continue
			}
			seen[exclude] = true
			result = append(result, exclude)
		}
	}
	return result
}

// ApplyTo fills settings left at their defaults from the project config
func (c *ProjectConfig) ApplyTo(settings *Settings) {
	if c == nil || settings == nil {
		return
	}
	if len(settings.EnabledEcosystems) == 0 {
		settings.EnabledEcosystems = c.Ecosystems.Enabled
	}
	settings.DisabledEcosystems = appendUnique(settings.DisabledEcosystems, c.Ecosystems.Disabled...)
	if c.GradleConfiguration != "" && settings.GradleConfiguration == DefaultSettings().GradleConfiguration {
		settings.GradleConfiguration = c.GradleConfiguration
	}
}

func appendUnique(list []string, values ...string) []string {
	seen := make(map[string]bool, len(list))
	for _, v := range list {
		seen[v] = true
	}
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			list = append(list, v)
		}
	}
	return list
}
