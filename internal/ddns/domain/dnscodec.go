package domain

// DNSCodec is the wire-format collaborator: it translates between raw UDP
// datagrams and domain objects. The transport is the only consumer.
type DNSCodec interface {
	// DecodeQuery parses a query datagram into its first question.
	DecodeQuery(data []byte) (Question, error)

	// EncodeResponse serializes a response, mirroring the question's ID
	// and RD bit, setting AA, and clearing RA.
	EncodeResponse(q Question, resp DNSResponse) ([]byte, error)

	// EncodeFailure builds a best-effort error reply for a datagram that
	// could not be handled, mirroring the request ID when the header is
	// intact. It fails when the datagram is too short to carry an ID.
	EncodeFailure(data []byte, rcode RCode) ([]byte, error)
}
