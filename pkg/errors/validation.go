package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// ValidateSequenceName validates a sequence name for safety and correctness.
// It rejects names that could corrupt serialized output or storage keys.
//
// The validation rules are intentionally conservative:
//   - No empty names
//   - No control characters (including tabs and newlines)
//   - No null bytes
//   - Maximum length of 256 characters
//
// Format-specific restrictions (GFA path names, FASTA headers) are checked
// separately by the serializers.
func ValidateSequenceName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidName, "sequence name cannot be empty")
	}

	if len(name) > 256 {
		return New(ErrCodeInvalidName, "sequence name too long (max 256 characters)")
	}

	// Check for control characters and null bytes. Tabs and newlines would
	// break the line-oriented GFA and FASTA encodings.
	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidName, "sequence name contains invalid control characters")
		}
	}

	return nil
}

// graphNameRegex matches valid graph names used as storage keys.
var graphNameRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateGraphName validates a graph name used to address a stored graph.
//
// Validation rules:
//   - Name cannot be empty
//   - Maximum length of 128 characters
//   - Must start with an alphanumeric character
//   - May contain alphanumerics, dots, underscores, and hyphens
//   - No path traversal sequences (..)
func ValidateGraphName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidName, "graph name cannot be empty")
	}

	const maxNameLength = 128
	if len(name) > maxNameLength {
		return New(ErrCodeInvalidName, "graph name too long (max %d characters)", maxNameLength)
	}

	if strings.Contains(name, "..") {
		return New(ErrCodeInvalidName, "graph name cannot contain path traversal sequences (..)")
	}

	if !graphNameRegex.MatchString(name) {
		return New(ErrCodeInvalidName, "invalid graph name: %q", name)
	}

	return nil
}
