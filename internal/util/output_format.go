package util

import (
	"fmt"
	"strings"
)

// Format is an output encoding
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ListingFormats are accepted by commands that print catalogs and listings
var ListingFormats = []Format{FormatText, FormatJSON, FormatYAML}

// DocumentFormats are accepted for resolution results. Forests have no
// sensible plain text rendering.
var DocumentFormats = []Format{FormatJSON, FormatYAML}

// ParseFormat normalizes format and checks it against allowed
func ParseFormat(format string, allowed []Format) (Format, error) {
	f := Format(NormalizeFormat(format))
	for _, a := range allowed {
		if f == a {
			return f, nil
		}
	}
	return "", fmt.Errorf("invalid format: %s. Valid formats are: %s", format, joinFormats(allowed))
}

// ValidateOutputFormat checks a listing format
func ValidateOutputFormat(format string) error {
	_, err := ParseFormat(format, ListingFormats)
	return err
}

// NormalizeFormat trims and lowercases a format name; "yml" is read as "yaml"
func NormalizeFormat(format string) string {
	f := strings.ToLower(strings.TrimSpace(format))
	if f == "yml" {
		return string(FormatYAML)
	}
	return f
}

func joinFormats(formats []Format) string {
	names := make([]string, len(formats))
	for i, f := range formats {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}
