// Package templateutil substitutes {{variable}} placeholders in prompt and
// email templates with participant values.
package templateutil

import (
	"regexp"
	"strings"
)

var placeholderRe = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_.-]+)\s*\}\}`)

// Substitute replaces every {{name}} placeholder with vars[name]. Unknown
// placeholders are replaced with the empty string so a typo in a template
// never leaks raw braces into a prompt.
func Substitute(template string, vars map[string]string) string {
	return placeholderRe.ReplaceAllStringFunc(template, func(match string) string {
		name := placeholderRe.FindStringSubmatch(match)[1]
		if value, ok := vars[name]; ok {
			return value
		}
		return ""
	})
}

// Variables lists the placeholder names referenced by a template, in order of
// first appearance.
func Variables(template string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, match := range placeholderRe.FindAllStringSubmatch(template, -1) {
		name := strings.TrimSpace(match[1])
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}
