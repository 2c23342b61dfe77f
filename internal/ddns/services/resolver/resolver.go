// Package resolver holds the query-resolution decision engine: given one
// question it decides the response code and the answer and additional
// record sets, reading the record store and nothing else.
package resolver

import (
	"context"
	"fmt"

	"github.com/redns-dev/redns/internal/ddns/common/log"
	"github.com/redns-dev/redns/internal/ddns/domain"
)

type Resolver struct {
	store  RecordStore
	zone   string
	ttl    uint32
	mxPref uint16
	logger log.Logger
}

type Options struct {
	Store RecordStore

	// Zone is the single domain this resolver is authoritative for.
	Zone string

	// TTL is stamped on every synthesized record. Defaults to 1800.
	TTL uint32

	// MXPreference is the preference of synthesized MX answers.
	// Defaults to 10.
	MXPreference uint16

	Logger log.Logger
}

func New(opts Options) *Resolver {
	if opts.TTL == 0 {
		opts.TTL = 1800
	}
	if opts.MXPreference == 0 {
		opts.MXPreference = 10
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}
	return &Resolver{
		store:  opts.Store,
		zone:   domain.CanonicalName(opts.Zone),
		ttl:    opts.TTL,
		mxPref: opts.MXPreference,
		logger: opts.Logger,
	}
}

// Zone returns the zone this resolver answers for.
func (r *Resolver) Zone() string {
	return r.zone
}

// HandleQuery decides a response for q. A returned error signals internal
// failure (store unreachable, bad stored data) and is surfaced to the
// client as SERVFAIL by the transport; every policy outcome, including
// NXDOMAIN and REFUSED, is a normal response.
func (r *Resolver) HandleQuery(ctx context.Context, q domain.Question) (domain.DNSResponse, error) {
	name := domain.CanonicalName(q.Name)

	var resp domain.DNSResponse
	var err error
	switch {
	case name == r.zone && q.Type == domain.RRTypeNS:
		resp, err = r.resolveApexNS(ctx, q, name)
	case domain.InZone(name, r.zone):
		resp, err = r.resolveNode(ctx, q, name)
	default:
		resp = domain.NewErrorResponse(q.ID, domain.REFUSED)
	}
	if err != nil {
		return domain.DNSResponse{}, err
	}

	r.logger.Debug(map[string]any{
		"name":       name,
		"type":       q.Type.String(),
		"rcode":      resp.RCode.String(),
		"answers":    len(resp.Answers),
		"additional": len(resp.Additional),
	}, "resolved query")

	return resp, nil
}

// resolveApexNS answers an NS query for the zone apex from the configured
// nameserver set. An empty set still answers NOERROR with no records.
func (r *Resolver) resolveApexNS(ctx context.Context, q domain.Question, name string) (domain.DNSResponse, error) {
	nameservers, err := r.store.Nameservers(ctx, r.zone)
	if err != nil {
		return domain.DNSResponse{}, fmt.Errorf("fetching nameservers: %w", err)
	}

	answers := make([]domain.ResourceRecord, 0, len(nameservers))
	for _, ns := range nameservers {
		rr, err := domain.NewNSRecord(name, r.ttl, ns)
		if err != nil {
			return domain.DNSResponse{}, fmt.Errorf("building NS record: %w", err)
		}
		answers = append(answers, rr)
	}
	return domain.NewDNSResponse(q.ID, domain.NOERROR, answers, nil)
}

// resolveNode answers a query for a name under the zone from its node
// record. Names with no provisioned A value are NXDOMAIN.
func (r *Resolver) resolveNode(ctx context.Context, q domain.Question, name string) (domain.DNSResponse, error) {
	node, found, err := r.store.Node(ctx, name)
	if err != nil {
		return domain.DNSResponse{}, fmt.Errorf("fetching node: %w", err)
	}
	if !found || !node.HasAddress() {
		return domain.NewErrorResponse(q.ID, domain.NXDOMAIN), nil
	}

	var answers, additional []domain.ResourceRecord
	switch q.Type {
	case domain.RRTypeA:
		a, err := domain.NewARecord(name, r.ttl, node.A)
		if err != nil {
			return domain.DNSResponse{}, fmt.Errorf("building A record: %w", err)
		}
		answers = append(answers, a)

	case domain.RRTypeMX:
		// The node is its own mail exchange.
		mx, err := domain.NewMXRecord(name, r.ttl, r.mxPref, name)
		if err != nil {
			return domain.DNSResponse{}, fmt.Errorf("building MX record: %w", err)
		}
		a, err := domain.NewARecord(name, r.ttl, node.A)
		if err != nil {
			return domain.DNSResponse{}, fmt.Errorf("building A record: %w", err)
		}
		answers = append(answers, mx)
		additional = append(additional, a)
		additional, err = appendTXT(additional, name, r.ttl, node)
		if err != nil {
			return domain.DNSResponse{}, err
		}

	default:
		// Any other type gets no answer, just the TXT record when one
		// is stored.
		additional, err = appendTXT(additional, name, r.ttl, node)
		if err != nil {
			return domain.DNSResponse{}, err
		}
	}

	return domain.NewDNSResponse(q.ID, domain.NOERROR, answers, additional)
}

func appendTXT(records []domain.ResourceRecord, name string, ttl uint32, node domain.Node) ([]domain.ResourceRecord, error) {
	if node.TXT == "" {
		return records, nil
	}
	txt, err := domain.NewTXTRecord(name, ttl, node.TXT)
	if err != nil {
		return nil, fmt.Errorf("building TXT record: %w", err)
	}
	return append(records, txt), nil
}
