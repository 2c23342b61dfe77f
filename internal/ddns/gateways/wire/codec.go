// Package wire translates between DNS wire format and domain objects
// using miekg/dns. Nothing outside this package touches the wire format.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"

	"github.com/miekg/dns"

	"github.com/redns-dev/redns/internal/ddns/domain"
)

// Codec implements domain.DNSCodec for standard UDP DNS messages.
type Codec struct{}

func NewCodec() *Codec {
	return &Codec{}
}

var _ domain.DNSCodec = (*Codec)(nil)

// DecodeQuery parses a query datagram into its first question. Extra
// questions are silently ignored.
func (c *Codec) DecodeQuery(data []byte) (domain.Question, error) {
	var msg dns.Msg
	if err := msg.Unpack(data); err != nil {
		return domain.Question{}, fmt.Errorf("unpacking query: %w", err)
	}
	if msg.Response {
		return domain.Question{}, errors.New("message is a response, not a query")
	}
	if len(msg.Question) == 0 {
		return domain.Question{}, errors.New("query carries no question")
	}

	q0 := msg.Question[0]
	return domain.NewQuestion(msg.Id, q0.Name, domain.RRType(q0.Qtype), domain.RRClass(q0.Qclass), msg.RecursionDesired)
}

// EncodeResponse serializes resp as the reply to q: ID and RD mirrored,
// AA set, RA cleared, question echoed.
func (c *Codec) EncodeResponse(q domain.Question, resp domain.DNSResponse) ([]byte, error) {
	msg := new(dns.Msg)
	msg.Id = resp.ID
	msg.Response = true
	msg.Opcode = dns.OpcodeQuery
	msg.Authoritative = true
	msg.RecursionAvailable = false
	msg.RecursionDesired = q.RecursionDesired
	msg.Rcode = int(resp.RCode)
	msg.Question = []dns.Question{{
		Name:   dns.Fqdn(q.Name),
		Qtype:  uint16(q.Type),
		Qclass: uint16(q.Class),
	}}

	var err error
	if msg.Answer, err = toWireRecords(resp.Answers); err != nil {
		return nil, err
	}
	if msg.Extra, err = toWireRecords(resp.Additional); err != nil {
		return nil, err
	}

	out, err := msg.Pack()
	if err != nil {
		return nil, fmt.Errorf("packing response: %w", err)
	}
	return out, nil
}

// EncodeFailure builds a minimal error reply for a datagram that could
// not be handled, mirroring the request ID from the raw header. It fails
// when the datagram is too short to carry one.
func (c *Codec) EncodeFailure(data []byte, rcode domain.RCode) ([]byte, error) {
	if len(data) < 12 {
		return nil, errors.New("datagram too short to carry a header")
	}

	msg := new(dns.Msg)
	msg.Id = binary.BigEndian.Uint16(data[0:2])
	msg.Response = true
	msg.Opcode = dns.OpcodeQuery
	msg.Rcode = int(rcode)

	out, err := msg.Pack()
	if err != nil {
		return nil, fmt.Errorf("packing failure reply: %w", err)
	}
	return out, nil
}

func toWireRecords(records []domain.ResourceRecord) ([]dns.RR, error) {
	if len(records) == 0 {
		return nil, nil
	}
	out := make([]dns.RR, 0, len(records))
	for _, rr := range records {
		wireRR, err := toWireRecord(rr)
		if err != nil {
			return nil, err
		}
		out = append(out, wireRR)
	}
	return out, nil
}

func toWireRecord(rr domain.ResourceRecord) (dns.RR, error) {
	hdr := dns.RR_Header{
		Name:   dns.Fqdn(rr.Name),
		Rrtype: uint16(rr.Type()),
		Class:  uint16(rr.Class()),
		Ttl:    rr.TTL,
	}

	switch data := rr.Data.(type) {
	case domain.AData:
		ip := net.ParseIP(data.Address)
		if ip == nil || ip.To4() == nil {
			return nil, fmt.Errorf("record %q has invalid IPv4 address %q", rr.Name, data.Address)
		}
		return &dns.A{Hdr: hdr, A: ip.To4()}, nil
	case domain.NSData:
		return &dns.NS{Hdr: hdr, Ns: dns.Fqdn(data.Target)}, nil
	case domain.MXData:
		return &dns.MX{Hdr: hdr, Preference: data.Preference, Mx: dns.Fqdn(data.Exchange)}, nil
	case domain.CNAMEData:
		return &dns.CNAME{Hdr: hdr, Target: dns.Fqdn(data.Target)}, nil
	case domain.TXTData:
		return &dns.TXT{Hdr: hdr, Txt: []string{data.Text}}, nil
	default:
		return nil, fmt.Errorf("record %q has unsupported data type %T", rr.Name, rr.Data)
	}
}
