// Package template substitutes merge tags in campaign subjects and bodies.
package template

import (
	"regexp"
	"strings"
)

// merge tag pattern: {field}
var tagPattern = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// Render replaces {field} merge tags with per-recipient values. Matching
// is case-insensitive. Unrecognized tags are left verbatim so an operator
// who mistypes a tag sees the mistake in the rendered output. Rendering is
// pure: same template and fields always produce the same result.
func Render(tmpl string, fields map[string]string) string {
	if tmpl == "" {
		return tmpl
	}

	// Lowercase the field keys once so {Name} and {name} both resolve
	lowered := make(map[string]string, len(fields))
	for k, v := range fields {
		lowered[strings.ToLower(k)] = v
	}

	return tagPattern.ReplaceAllStringFunc(tmpl, func(match string) string {
		name := strings.ToLower(match[1 : len(match)-1])
		if value, ok := lowered[name]; ok {
			return value
		}
		// Keep original if field not found
		return match
	})
}
