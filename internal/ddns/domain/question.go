package domain

import "fmt"

// Question represents the first question of an inbound DNS query.
// A query carrying multiple questions is reduced to its first; the rest
// are silently ignored.
type Question struct {
	ID    uint16
	Name  string
	Type  RRType
	Class RRClass

	// RecursionDesired mirrors the RD bit of the request so responses
	// can echo it.
	RecursionDesired bool
}

// NewQuestion constructs a Question with a canonicalized name and
// validates it.
func NewQuestion(id uint16, name string, rrtype RRType, class RRClass, recursionDesired bool) (Question, error) {
	q := Question{
		ID:               id,
		Name:             CanonicalName(name),
		Type:             rrtype,
		Class:            class,
		RecursionDesired: recursionDesired,
	}
	if err := q.Validate(); err != nil {
		return Question{}, err
	}
	return q, nil
}

// Validate checks whether the Question is structurally valid. The record
// type is deliberately not restricted: unsupported types are a resolution
// policy decision, not a parse failure.
func (q Question) Validate() error {
	if q.Name == "" {
		return fmt.Errorf("query name must not be empty")
	}
	return nil
}
