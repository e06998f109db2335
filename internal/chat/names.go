package chat

import "strings"

// DefaultName is shown for participants that did not provide a display name.
const DefaultName = "Anonymous"

// ResolveName normalizes a display name received from a client. Blank names
// resolve to DefaultName, anything else is trimmed.
func ResolveName(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return DefaultName
	}
	return trimmed
}
