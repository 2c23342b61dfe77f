package domain

import (
	"fmt"
	"net"
)

// RData is the typed payload of a resource record. Exactly one concrete
// variant exists per record type the server synthesizes.
type RData interface {
	RRType() RRType
}

// AData holds an IPv4 address in dotted-quad form.
type AData struct {
	Address string
}

// NSData holds a nameserver target name.
type NSData struct {
	Target string
}

// MXData holds a mail exchange preference and target.
type MXData struct {
	Preference uint16
	Exchange   string
}

// CNAMEData holds a canonical-name target.
type CNAMEData struct {
	Target string
}

// TXTData holds free-form record text.
type TXTData struct {
	Text string
}

func (AData) RRType() RRType     { return RRTypeA }
func (NSData) RRType() RRType    { return RRTypeNS }
func (MXData) RRType() RRType    { return RRTypeMX }
func (CNAMEData) RRType() RRType { return RRTypeCNAME }
func (TXTData) RRType() RRType   { return RRTypeTXT }

// ResourceRecord represents one synthesized DNS resource record.
// All records produced by this server are authoritative and class IN.
type ResourceRecord struct {
	Name string
	TTL  uint32
	Data RData
}

// Type returns the record type carried by the payload.
func (rr ResourceRecord) Type() RRType {
	if rr.Data == nil {
		return 0
	}
	return rr.Data.RRType()
}

// Class returns the record class. Every synthesized record is IN.
func (rr ResourceRecord) Class() RRClass {
	return RRClassIN
}

// Validate checks whether the ResourceRecord fields are valid.
func (rr ResourceRecord) Validate() error {
	if rr.Name == "" {
		return fmt.Errorf("record name must not be empty")
	}
	if rr.Data == nil {
		return fmt.Errorf("record data must not be nil")
	}
	switch d := rr.Data.(type) {
	case AData:
		ip := net.ParseIP(d.Address)
		if ip == nil || ip.To4() == nil {
			return fmt.Errorf("invalid IPv4 address: %q", d.Address)
		}
	case NSData:
		if d.Target == "" {
			return fmt.Errorf("NS target must not be empty")
		}
	case MXData:
		if d.Exchange == "" {
			return fmt.Errorf("MX exchange must not be empty")
		}
	case CNAMEData:
		if d.Target == "" {
			return fmt.Errorf("CNAME target must not be empty")
		}
	case TXTData:
		if d.Text == "" {
			return fmt.Errorf("TXT text must not be empty")
		}
	}
	return nil
}

// NewARecord constructs an A record for the given name and address.
func NewARecord(name string, ttl uint32, address string) (ResourceRecord, error) {
	return newRecord(name, ttl, AData{Address: address})
}

// NewNSRecord constructs an NS record pointing at target.
func NewNSRecord(name string, ttl uint32, target string) (ResourceRecord, error) {
	return newRecord(name, ttl, NSData{Target: CanonicalName(target)})
}

// NewMXRecord constructs an MX record with the given preference and exchange.
func NewMXRecord(name string, ttl uint32, preference uint16, exchange string) (ResourceRecord, error) {
	return newRecord(name, ttl, MXData{Preference: preference, Exchange: CanonicalName(exchange)})
}

// NewCNAMERecord constructs a CNAME record pointing at target.
func NewCNAMERecord(name string, ttl uint32, target string) (ResourceRecord, error) {
	return newRecord(name, ttl, CNAMEData{Target: CanonicalName(target)})
}

// NewTXTRecord constructs a TXT record carrying text.
func NewTXTRecord(name string, ttl uint32, text string) (ResourceRecord, error) {
	return newRecord(name, ttl, TXTData{Text: text})
}

func newRecord(name string, ttl uint32, data RData) (ResourceRecord, error) {
	rr := ResourceRecord{
		Name: CanonicalName(name),
		TTL:  ttl,
		Data: data,
	}
	if err := rr.Validate(); err != nil {
		return ResourceRecord{}, err
	}
	return rr, nil
}
