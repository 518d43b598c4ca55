// Package validation checks configuration documents against embedded JSON schemas.
package validation

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed *.json
var schemaFS embed.FS

var (
	compiled   = make(map[string]*jsonschema.Schema)
	compiledMu sync.Mutex
)

// ValidationError represents a schema validation error
type ValidationError struct {
	Errors []string
}

func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation failed: %s", e.Errors[0])
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.Errors, "; "))
}

func loadSchema(schemaName string) (*jsonschema.Schema, error) {
	compiledMu.Lock()
	defer compiledMu.Unlock()

	if schema, ok := compiled[schemaName]; ok {
		return schema, nil
	}

	schemaData, err := schemaFS.ReadFile(schemaName)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema %s: %w", schemaName, err)
	}
	schema, err := jsonschema.CompileString(schemaName, string(schemaData))
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema %s: %w", schemaName, err)
	}
	compiled[schemaName] = schema
	return schema, nil
}

// ValidateJSON validates parsed YAML/JSON data against an embedded schema,
// e.g. "dep-resolver-config.json"
func ValidateJSON(schemaName string, data interface{}) error {
	schema, err := loadSchema(schemaName)
	if err != nil {
		return err
	}

	err = schema.Validate(data)
	if err == nil {
		return nil
	}

	var validationErr *jsonschema.ValidationError
	if !errors.As(err, &validationErr) {
		return ValidationError{Errors: []string{err.Error()}}
	}

	var messages []string
	collectLeaves(validationErr, &messages)
	sort.Strings(messages)
	return ValidationError{Errors: messages}
}

// collectLeaves gathers the innermost causes, which name the offending location
func collectLeaves(err *jsonschema.ValidationError, messages *[]string) {
	if len(err.Causes) == 0 {
		location := err.InstanceLocation
		if location == "" {
			location = "/"
		}
		*messages = append(*messages, fmt.Sprintf("%s: %s", location, err.Message))
		return
	}
	for _, cause := range err.Causes {
		collectLeaves(cause, messages)
	}
}

// ValidateYAML validates raw YAML (or JSON) content against an embedded schema
func ValidateYAML(schemaName string, yamlContent []byte) error {
	var data interface{}
	if err := yaml.Unmarshal(yamlContent, &data); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	if data == nil {
		data = map[string]interface{}{}
	}

	return ValidateJSON(schemaName, data)
}

// ValidateYAMLFile validates a YAML file on disk against an embedded schema
func ValidateYAMLFile(schemaName string, filePath string) error {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filePath, err)
	}

	return ValidateYAML(schemaName, content)
}

// ValidateStruct validates a Go value by round-tripping it through YAML
func ValidateStruct(schemaName string, structData interface{}) error {
	yamlContent, err := yaml.Marshal(structData)
	if err != nil {
		return fmt.Errorf("failed to marshal struct: %w", err)
	}

	return ValidateYAML(schemaName, yamlContent)
}

// ListAvailableSchemas returns the embedded schema file names
func ListAvailableSchemas() ([]string, error) {
	entries, err := schemaFS.ReadDir(".")
	if err != nil {
		return nil, fmt.Errorf("failed to read schema directory: %w", err)
	}

	var schemas []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".json") {
			schemas = append(schemas, entry.Name())
		}
	}

	return schemas, nil
}
