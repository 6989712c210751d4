// Package workflow validates workflow descriptions and resolves the names
// and variables a session is built from.
//
// The {{ identifier }} syntax allows a workflow description to reference
// predefined variables (SESSION, STEP, ...) and user-supplied command-line
// variables. The text is processed before the YAML parse; references left
// unresolved after substitution are reported as validation errors, except
// inside step command lines where step-level variables resolve later.
package workflow

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/hpcwfm/wfm/internal/models"
)

// varRefPattern matches {{ identifier }} references. Identifiers are
// alphanumeric with underscores and hyphens; surrounding blanks are allowed.
var varRefPattern = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_-]*)\s*\}\}`)

// Predefined variable names filled in by the engine
const (
	VarSession = "SESSION"
	VarStep    = "STEP"
)

// Substitute replaces {{ identifier }} references with values from the
// predefined and cmdline dictionaries. A cmdline key shadowing a predefined
// one is a validation error.
func Substitute(text string, predefined, cmdline map[string]string) (string, error) {
	for key := range cmdline {
		if _, exists := predefined[key]; exists {
			return "", fmt.Errorf("%w: Predefined variables should not be redefined: %s", models.ErrValidation, key)
		}
	}

	result := varRefPattern.ReplaceAllStringFunc(text, func(match string) string {
		name := varRefPattern.FindStringSubmatch(match)[1]
		if value, exists := predefined[name]; exists {
			return value
		}
		if value, exists := cmdline[name]; exists {
			return value
		}
		// Unknown variable - left for residual detection
		return match
	})

	return result, nil
}

// ResidualReferences returns the distinct unresolved {{ identifier }} names
// found in text, skipping command lines: step commands may carry variables
// that resolve at step start.
func ResidualReferences(text string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, line := range strings.Split(text, "\n") {
		if isCommandLine(line) {
			continue
		}
		for _, match := range varRefPattern.FindAllStringSubmatch(line, -1) {
			if !seen[match[1]] {
				seen[match[1]] = true
				names = append(names, match[1])
			}
		}
	}
	sort.Strings(names)
	return names
}

// isCommandLine reports whether a workflow description line is a step
// command declaration.
func isCommandLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	return strings.HasPrefix(trimmed, "command:") || strings.HasPrefix(trimmed, "- command:")
}

// References returns the distinct {{ identifier }} names found in text.
func References(text string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, match := range varRefPattern.FindAllStringSubmatch(text, -1) {
		if !seen[match[1]] {
			seen[match[1]] = true
			names = append(names, match[1])
		}
	}
	sort.Strings(names)
	return names
}
