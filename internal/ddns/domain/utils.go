package domain

import "strings"

// CanonicalName returns a DNS name in canonical form:
// - Lowercased
// - Trimmed of surrounding whitespace
// - No trailing dot, except the root name which stays "."
// Store keys, query names, and update parameters all pass through this so
// wire-form and HTTP-form names address the same node.
func CanonicalName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ToLower(name)
	if name == "" {
		return ""
	}
	for strings.HasSuffix(name, ".") {
		name = strings.TrimSuffix(name, ".")
	}
	if name == "" {
		return "."
	}
	return name
}

// InZone reports whether name is equal to or subordinate to zone.
// Both arguments must already be canonical.
func InZone(name, zone string) bool {
	if zone == "" {
		return false
	}
	return name == zone || strings.HasSuffix(name, "."+zone)
}
