// Package auth validates (username, password, domain) triples before any
// record mutation is permitted.
package auth

import (
	"context"
	"crypto/subtle"
	"fmt"

	"github.com/redns-dev/redns/internal/ddns/common/log"
	"github.com/redns-dev/redns/internal/ddns/domain"
)

// CredentialStore is the slice of the record store the authorizer reads.
type CredentialStore interface {
	Password(ctx context.Context, username string) ([]byte, bool, error)
	OwnsDomain(ctx context.Context, username, domainName string) (bool, error)
}

type Authorizer struct {
	store  CredentialStore
	logger log.Logger
}

func New(store CredentialStore, logger log.Logger) *Authorizer {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Authorizer{store: store, logger: logger}
}

// Authorize reports whether username may mutate domainName. It fails
// closed: the password must match the stored one exactly and the domain
// must be in the user's grant set. Which check failed is never revealed
// to the caller. A returned error means the store could not be consulted.
func (a *Authorizer) Authorize(ctx context.Context, username, password, domainName string) (bool, error) {
	stored, found, err := a.store.Password(ctx, username)
	if err != nil {
		return false, fmt.Errorf("looking up user: %w", err)
	}

	// Compare even for unknown users so lookup success is not
	// observable through timing.
	match := subtle.ConstantTimeCompare(stored, []byte(password)) == 1
	if !found || !match {
		a.logger.Debug(map[string]any{"user": username}, "credential rejected")
		return false, nil
	}

	owns, err := a.store.OwnsDomain(ctx, username, domain.CanonicalName(domainName))
	if err != nil {
		return false, fmt.Errorf("checking domain ownership: %w", err)
	}
	if !owns {
		a.logger.Debug(map[string]any{"user": username, "domain": domainName}, "domain not owned")
		return false, nil
	}
	return true, nil
}
