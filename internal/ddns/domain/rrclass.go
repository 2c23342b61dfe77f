package domain

import "fmt"

// RRClass represents a DNS resource record class.
type RRClass uint16

const (
	RRClassIN  RRClass = 1   // IN - Internet
	RRClassANY RRClass = 255 // ANY - Any class (query only)
)

// String returns the textual representation of the RRClass.
func (c RRClass) String() string {
	switch c {
	case RRClassIN:
		return "IN"
	case RRClassANY:
		return "ANY"
	default:
		return fmt.Sprintf("CLASS%d", uint16(c))
	}
}
