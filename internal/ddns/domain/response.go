package domain

import "fmt"

// DNSResponse represents the decision the resolution engine made for one
// query: a response code plus answer and additional record sets.
type DNSResponse struct {
	ID         uint16
	RCode      RCode
	Answers    []ResourceRecord
	Additional []ResourceRecord
}

// NewDNSResponse constructs a DNSResponse and validates its records.
func NewDNSResponse(id uint16, rcode RCode, answers, additional []ResourceRecord) (DNSResponse, error) {
	resp := DNSResponse{
		ID:         id,
		RCode:      rcode,
		Answers:    answers,
		Additional: additional,
	}
	if err := resp.Validate(); err != nil {
		return DNSResponse{}, err
	}
	return resp, nil
}

// NewErrorResponse creates a record-less DNSResponse carrying rcode.
func NewErrorResponse(id uint16, rcode RCode) DNSResponse {
	return DNSResponse{ID: id, RCode: rcode}
}

// Validate checks whether every record in the response is valid.
func (resp DNSResponse) Validate() error {
	for i, rr := range resp.Answers {
		if err := rr.Validate(); err != nil {
			return fmt.Errorf("invalid answer record at index %d: %w", i, err)
		}
	}
	for i, rr := range resp.Additional {
		if err := rr.Validate(); err != nil {
			return fmt.Errorf("invalid additional record at index %d: %w", i, err)
		}
	}
	return nil
}

// IsError returns true if the response indicates an error condition.
func (resp DNSResponse) IsError() bool {
	return resp.RCode != NOERROR
}

// HasAnswers returns true if the response contains answer records.
func (resp DNSResponse) HasAnswers() bool {
	return len(resp.Answers) > 0
}
