package domain

// Node is the per-hostname record bundle held by the store. A node exists
// only after the first successful update for its hostname.
type Node struct {
	// A is the IPv4 address pushed by the last update, dotted-quad.
	A string

	// TXT is optional free-form record text.
	TXT string

	// AAAA is reserved. It is read with the node snapshot and surfaced
	// by the listing endpoint but never used to build answers.
	AAAA string

	// Updated is the RFC 3339 UTC instant of the last successful update.
	Updated string
}

// HasAddress reports whether the node has an A value. A node without one
// resolves as NXDOMAIN.
func (n Node) HasAddress() bool {
	return n.A != ""
}

// RecordFields returns the node's record fields by type name, excluding
// the update timestamp. Used by the listing endpoint.
func (n Node) RecordFields() map[string]string {
	fields := make(map[string]string, 3)
	if n.A != "" {
		fields["A"] = n.A
	}
	if n.TXT != "" {
		fields["TXT"] = n.TXT
	}
	if n.AAAA != "" {
		fields["AAAA"] = n.AAAA
	}
	return fields
}
