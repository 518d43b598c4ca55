package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/petrarca/dependency-resolver/internal/util"
)

// Outputter interface for commands with structured output
type Outputter interface {
	// ToJSON returns the data structure for JSON/YAML marshaling
	ToJSON() interface{}
	// ToText writes human-readable text format
	ToText(w io.Writer)
}

// OutputToFile writes any Outputter in the given format to outputFile, or to
// stdout when outputFile is empty
func OutputToFile(o Outputter, format string, outputFile string) error {
	var data []byte
	var err error

	switch util.NormalizeFormat(format) {
	case string(util.FormatJSON), string(util.FormatYAML):
		data, err = marshal(o.ToJSON(), format, true)
		if err != nil {
			return err
		}
	default: // text
		var buf bytes.Buffer
		o.ToText(&buf)
		data = buf.Bytes()
	}
	return writeOutput(data, outputFile)
}

// marshal encodes v as JSON or YAML. YAML output is always indented.
func marshal(v interface{}, format string, pretty bool) ([]byte, error) {
	switch util.NormalizeFormat(format) {
	case "yaml":
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return nil, fmt.Errorf("failed to marshal YAML: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("failed to marshal YAML: %w", err)
		}
		return buf.Bytes(), nil
	case "json":
		var data []byte
		var err error
		if pretty {
			data, err = json.MarshalIndent(v, "", "  ")
		} else {
			data, err = json.Marshal(v)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to marshal JSON: %w", err)
		}
		return append(data, '\n'), nil
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

// writeOutput writes data to outputFile, or stdout when it is empty or "-"
func writeOutput(data []byte, outputFile string) error {
	if outputFile == "" || outputFile == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(outputFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	// Always show confirmation to user (like curl -o)
	fmt.Fprintf(os.Stderr, "Results written to %s\n", outputFile)
	return nil
}

// setupFormatFlag configures format flag and validation for a command
func setupFormatFlag(cmd *cobra.Command, formatPtr *string) {
	cmd.Flags().StringVarP(formatPtr, "format", "f", "text", "Output format: json, yaml, or text")
	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		format, err := util.ParseFormat(*formatPtr, util.ListingFormats)
		if err != nil {
			return err
		}
		*formatPtr = string(format)
		return nil
	}
}

// setupOutputFlags configures both format and output flags for a command
func setupOutputFlags(cmd *cobra.Command, formatPtr *string, outputPtr *string) {
	setupFormatFlag(cmd, formatPtr)
	cmd.Flags().StringVarP(outputPtr, "output", "o", "", "Output file path (default: stdout)")
}
