package resolver

import (
	"context"

	"github.com/redns-dev/redns/internal/ddns/domain"
)

// RecordStore is the slice of the record store the resolution engine
// reads. Implementations must be safe for concurrent use.
type RecordStore interface {
	// Node fetches the record bundle for host as one atomic snapshot.
	Node(ctx context.Context, host string) (domain.Node, bool, error)

	// Nameservers returns the nameserver set configured for zone.
	Nameservers(ctx context.Context, zone string) ([]string, error)
}
