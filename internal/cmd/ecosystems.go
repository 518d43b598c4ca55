package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/petrarca/dependency-resolver/internal/catalog"
	"github.com/petrarca/dependency-resolver/internal/resolver"
)

var ecosystemsFormat string
var ecosystemsOutput string

var ecosystemsCmd = &cobra.Command{
	Use:   "ecosystems",
	Short: "List the supported ecosystems",
	Long: `List every ecosystem of the built-in catalog with the manifest patterns it
matches, how project roots are chosen and the source extensions excluded
with --ignore-source-files.`,
	RunE: runEcosystems,
}

func init() {
	rootCmd.AddCommand(ecosystemsCmd)
	setupOutputFlags(ecosystemsCmd, &ecosystemsFormat, &ecosystemsOutput)
}

// EcosystemInfo describes one catalog entry
type EcosystemInfo struct {
	ID               string   `json:"id" yaml:"id"`
	Type             string   `json:"type" yaml:"type"`
	Description      string   `json:"description,omitempty" yaml:"description,omitempty"`
	Patterns         []string `json:"patterns" yaml:"patterns"`
	Policy           string   `json:"policy" yaml:"policy"`
	Enabled          bool     `json:"enabled" yaml:"enabled"`
	Registered       bool     `json:"registered" yaml:"registered"`
	SourceExtensions []string `json:"source_extensions,omitempty" yaml:"source_extensions,omitempty"`
}

// EcosystemsResult is the output for the ecosystems command
type EcosystemsResult struct {
	Ecosystems []EcosystemInfo `json:"ecosystems" yaml:"ecosystems"`
}

func (r *EcosystemsResult) ToJSON() interface{} {
	return r
}

func (r *EcosystemsResult) ToText(w io.Writer) {
	for _, eco := range r.Ecosystems {
		state := "enabled"
		if !eco.Enabled {
			state = "disabled"
		}
		if !eco.Registered {
			state += ", no resolver"
		}
		fmt.Fprintf(w, "%-10s %-10s %-10s %-20s %s\n", eco.ID, eco.Type, eco.Policy, state, strings.Join(eco.Patterns, " "))
	}
	fmt.Fprintf(w, "\nTotal: %d ecosystems\n", len(r.Ecosystems))
}

func runEcosystems(cmd *cobra.Command, args []string) error {
	result, err := buildEcosystemsResult()
	if err != nil {
		return err
	}
	return OutputToFile(result, ecosystemsFormat, ecosystemsOutput)
}

func buildEcosystemsResult() (*EcosystemsResult, error) {
	ecosystems, err := catalog.Load()
	if err != nil {
		return nil, err
	}

	result := &EcosystemsResult{Ecosystems: make([]EcosystemInfo, 0, len(ecosystems))}
	for _, eco := range ecosystems {
		_, registered := resolver.Get(eco.ID)
		result.Ecosystems = append(result.Ecosystems, EcosystemInfo{
			ID:               eco.ID,
			Type:             eco.Type,
			Description:      eco.Description,
			Patterns:         eco.Patterns,
			Policy:           eco.Policy().String(),
			Enabled:          eco.IsEnabled(),
			Registered:       registered,
			SourceExtensions: eco.SourceExtensions(),
		})
	}
	return result, nil
}
