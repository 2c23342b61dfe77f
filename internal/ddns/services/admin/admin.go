// Package admin holds the control-plane operations: user and domain
// provisioning and zone configuration. Nothing here runs on the query
// hot path.
package admin

import (
	"context"
	"fmt"

	"github.com/redns-dev/redns/internal/ddns/common/log"
	"github.com/redns-dev/redns/internal/ddns/domain"
)

// AdminStore is the slice of the record store the admin operations use.
type AdminStore interface {
	PutUser(ctx context.Context, username, password string) error
	DeleteUser(ctx context.Context, username string) error
	GrantDomain(ctx context.Context, username, domainName string) error
	Domains(ctx context.Context, username string) ([]string, error)
	DeleteDomains(ctx context.Context, username string) error
	DeleteNode(ctx context.Context, host string) error
	SetZone(ctx context.Context, zone string) error
	SetNameservers(ctx context.Context, zone string, nameservers []string) error
}

type Admin struct {
	store  AdminStore
	logger log.Logger
}

func New(store AdminStore, logger log.Logger) *Admin {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Admin{store: store, logger: logger}
}

// AddUser stores the user's password and grants them domainName. Calling
// it again for an existing user replaces the password and adds the grant.
func (a *Admin) AddUser(ctx context.Context, username, password, domainName string) error {
	if username == "" || password == "" {
		return fmt.Errorf("username and password must not be empty")
	}
	name := domain.CanonicalName(domainName)
	if name == "" {
		return fmt.Errorf("domain must not be empty")
	}

	if err := a.store.PutUser(ctx, username, password); err != nil {
		return err
	}
	if err := a.store.GrantDomain(ctx, username, name); err != nil {
		return err
	}

	a.logger.Info(map[string]any{"user": username, "domain": name}, "user provisioned")
	return nil
}

// DeleteUser removes every node for every domain the user owns, then the
// grant set, then the user record itself.
func (a *Admin) DeleteUser(ctx context.Context, username string) error {
	if username == "" {
		return fmt.Errorf("username must not be empty")
	}

	domains, err := a.store.Domains(ctx, username)
	if err != nil {
		return err
	}
	for _, d := range domains {
		if err := a.store.DeleteNode(ctx, d); err != nil {
			return err
		}
	}
	if err := a.store.DeleteDomains(ctx, username); err != nil {
		return err
	}
	if err := a.store.DeleteUser(ctx, username); err != nil {
		return err
	}

	a.logger.Info(map[string]any{"user": username, "domains": len(domains)}, "user deleted")
	return nil
}

// SetZone persists the served zone name and replaces its nameserver set.
// This is the only way to establish the zone when it is not passed in
// configuration.
func (a *Admin) SetZone(ctx context.Context, zone string, nameservers []string) error {
	name := domain.CanonicalName(zone)
	if name == "" {
		return fmt.Errorf("zone must not be empty")
	}

	ns := make([]string, 0, len(nameservers))
	for _, n := range nameservers {
		c := domain.CanonicalName(n)
		if c == "" {
			return fmt.Errorf("nameserver must not be empty")
		}
		ns = append(ns, c)
	}

	if err := a.store.SetZone(ctx, name); err != nil {
		return err
	}
	if err := a.store.SetNameservers(ctx, name, ns); err != nil {
		return err
	}

	a.logger.Info(map[string]any{"zone": name, "nameservers": ns}, "zone configured")
	return nil
}
