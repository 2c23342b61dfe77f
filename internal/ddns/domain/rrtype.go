package domain

import "fmt"

// RRType represents a DNS resource record type (e.g. A, MX, NS).
// See IANA DNS Parameters for assigned codes.
type RRType uint16

// Resource record types the server has policy for. Queries may carry any
// type value; unknown types fall through to the additional-only branch of
// the resolution algorithm.
const (
	RRTypeA     RRType = 1   // A - IPv4 address
	RRTypeNS    RRType = 2   // NS - Name server
	RRTypeCNAME RRType = 5   // CNAME - Canonical name
	RRTypeSOA   RRType = 6   // SOA - Start of authority
	RRTypeMX    RRType = 15  // MX - Mail exchange
	RRTypeTXT   RRType = 16  // TXT - Text
	RRTypeAAAA  RRType = 28  // AAAA - IPv6 address
	RRTypeANY   RRType = 255 // ANY - Any type (query only)
)

// String returns the textual representation of the RRType.
// For unknown types, it returns "TYPE<value>".
func (t RRType) String() string {
	switch t {
	case RRTypeA:
		return "A"
	case RRTypeNS:
		return "NS"
	case RRTypeCNAME:
		return "CNAME"
	case RRTypeSOA:
		return "SOA"
	case RRTypeMX:
		return "MX"
	case RRTypeTXT:
		return "TXT"
	case RRTypeAAAA:
		return "AAAA"
	case RRTypeANY:
		return "ANY"
	default:
		return fmt.Sprintf("TYPE%d", uint16(t))
	}
}
