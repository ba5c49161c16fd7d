// Package stringlit renders PB string values back as source-style
// literals, matching the runtime's quote-aware printing of list and
// dict elements.
package stringlit

import "strings"

// Quote wraps s in single quotes, switching to double quotes when the
// text itself contains a single quote.
func Quote(s string) string {
	if strings.Contains(s, "'") {
		return "\"" + s + "\""
	}
	return "'" + s + "'"
}
