// Package validate provides input validation for caller-supplied
// identifiers before they reach the store or become cache keys.
package validate

import (
	"fmt"
	"regexp"
)

// Identifiers arrive as Firebase UIDs or course/module slugs:
// alphanumeric plus underscores and hyphens. The colon is excluded on
// purpose, it is the cache-key separator.
var identifierPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]{0,63}$`)

// Identifier validates that s is safe to use as a user, course, module,
// or quiz ID: 1-64 characters, alphanumeric with underscores and
// hyphens.
func Identifier(s string) error {
	if s == "" {
		return fmt.Errorf("identifier cannot be empty")
	}
	if !identifierPattern.MatchString(s) {
		return fmt.Errorf("invalid identifier %q: must be 1-64 alphanumeric, underscore, or hyphen characters", s)
	}
	return nil
}

// Progress validates that n is a plausible progress report. Values above
// 100 are accepted here because every write path clamps them; negative
// values are caller errors.
func Progress(n int) error {
	if n < 0 {
		return fmt.Errorf("progress cannot be negative, got %d", n)
	}
	return nil
}
