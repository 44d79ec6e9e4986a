package common

import "strings"

// ContainsFold reports whether substr is within s, ignoring case and
// surrounding whitespace in substr. An empty substr never matches.
func ContainsFold(s, substr string) bool {
	needle := strings.ToLower(strings.TrimSpace(substr))
	if needle == "" {
		return false
	}
	return strings.Contains(strings.ToLower(s), needle)
}
