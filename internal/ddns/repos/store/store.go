// Package store implements the record store on redis. Keys follow the
// schema the rest of the system is written against:
//
//	NODE:<hostname>       hash with fields among A, TXT, AAAA, UPDATED
//	USER:<username>       hash with field "password"
//	DOMAIN:<username>     set of owned domain names
//	ZONE                  scalar holding the served zone name
//	<zone>:NAMESERVERS    set of nameserver hostnames
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/redns-dev/redns/internal/ddns/domain"
)

const (
	nodeKeyPrefix   = "NODE:"
	userKeyPrefix   = "USER:"
	domainKeyPrefix = "DOMAIN:"
	zoneKey         = "ZONE"

	passwordField = "password"
	updatedField  = "UPDATED"

	// Timestamps are RFC 3339 UTC, always ending in Z.
	updatedLayout = time.RFC3339Nano

	scanBatch = 100
)

// Store is a redis-backed record store. It is safe for concurrent use;
// the underlying client pools connections so unrelated queries never
// serialize behind one another.
type Store struct {
	rdb *redis.Client
}

// Options configures the redis connection.
type Options struct {
	Addr string
	DB   int
}

// New creates a Store. The connection is established lazily; call Ping to
// verify reachability at startup.
func New(opts Options) *Store {
	rdb := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		DB:           opts.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	return &Store{rdb: rdb}
}

// NewWithClient wraps an existing client. Used by tests.
func NewWithClient(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// Ping verifies the store is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.rdb.Close()
}

func nodeKey(host string) string   { return nodeKeyPrefix + host }
func userKey(name string) string   { return userKeyPrefix + name }
func domainKey(name string) string { return domainKeyPrefix + name }
func nsKey(zone string) string     { return zone + ":NAMESERVERS" }

// Node fetches the record bundle for host in a single hash read, so one
// response never mixes fields from two generations of the node.
func (s *Store) Node(ctx context.Context, host string) (domain.Node, bool, error) {
	fields, err := s.rdb.HGetAll(ctx, nodeKey(host)).Result()
	if err != nil {
		return domain.Node{}, false, fmt.Errorf("reading node %q: %w", host, err)
	}
	if len(fields) == 0 {
		return domain.Node{}, false, nil
	}
	return domain.Node{
		A:       fields["A"],
		TXT:     fields["TXT"],
		AAAA:    fields["AAAA"],
		Updated: fields[updatedField],
	}, true, nil
}

// PutNode writes the node's A value and stamps UPDATED with the given
// instant. Other fields are left untouched.
func (s *Store) PutNode(ctx context.Context, host, ip string, now time.Time) error {
	updated := now.UTC().Format(updatedLayout)
	if err := s.rdb.HSet(ctx, nodeKey(host), "A", ip, updatedField, updated).Err(); err != nil {
		return fmt.Errorf("writing node %q: %w", host, err)
	}
	return nil
}

// DeleteNode removes the record bundle for host.
func (s *Store) DeleteNode(ctx context.Context, host string) error {
	if err := s.rdb.Del(ctx, nodeKey(host)).Err(); err != nil {
		return fmt.Errorf("deleting node %q: %w", host, err)
	}
	return nil
}

// Nodes enumerates every node, keyed by hostname.
func (s *Store) Nodes(ctx context.Context) (map[string]domain.Node, error) {
	nodes := make(map[string]domain.Node)
	var cursor uint64
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, nodeKeyPrefix+"*", scanBatch).Result()
		if err != nil {
			return nil, fmt.Errorf("scanning nodes: %w", err)
		}
		for _, key := range keys {
			host := key[len(nodeKeyPrefix):]
			node, found, err := s.Node(ctx, host)
			if err != nil {
				return nil, err
			}
			if found {
				nodes[host] = node
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return nodes, nil
}

// Password returns the stored password for username.
func (s *Store) Password(ctx context.Context, username string) ([]byte, bool, error) {
	pw, err := s.rdb.HGet(ctx, userKey(username), passwordField).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading user %q: %w", username, err)
	}
	return []byte(pw), true, nil
}

// PutUser stores (or replaces) the password for username.
func (s *Store) PutUser(ctx context.Context, username, password string) error {
	if err := s.rdb.HSet(ctx, userKey(username), passwordField, password).Err(); err != nil {
		return fmt.Errorf("writing user %q: %w", username, err)
	}
	return nil
}

// DeleteUser removes the user record.
func (s *Store) DeleteUser(ctx context.Context, username string) error {
	if err := s.rdb.Del(ctx, userKey(username)).Err(); err != nil {
		return fmt.Errorf("deleting user %q: %w", username, err)
	}
	return nil
}

// OwnsDomain reports whether username's grant set contains domainName.
func (s *Store) OwnsDomain(ctx context.Context, username, domainName string) (bool, error) {
	ok, err := s.rdb.SIsMember(ctx, domainKey(username), domainName).Result()
	if err != nil {
		return false, fmt.Errorf("checking domain ownership for %q: %w", username, err)
	}
	return ok, nil
}

// GrantDomain adds domainName to username's grant set.
func (s *Store) GrantDomain(ctx context.Context, username, domainName string) error {
	if err := s.rdb.SAdd(ctx, domainKey(username), domainName).Err(); err != nil {
		return fmt.Errorf("granting domain to %q: %w", username, err)
	}
	return nil
}

// Domains returns every domain in username's grant set.
func (s *Store) Domains(ctx context.Context, username string) ([]string, error) {
	domains, err := s.rdb.SMembers(ctx, domainKey(username)).Result()
	if err != nil {
		return nil, fmt.Errorf("listing domains for %q: %w", username, err)
	}
	return domains, nil
}

// DeleteDomains removes username's entire grant set.
func (s *Store) DeleteDomains(ctx context.Context, username string) error {
	if err := s.rdb.Del(ctx, domainKey(username)).Err(); err != nil {
		return fmt.Errorf("deleting domains for %q: %w", username, err)
	}
	return nil
}

// Zone returns the persisted zone name, or found=false when none is set.
func (s *Store) Zone(ctx context.Context) (string, bool, error) {
	zone, err := s.rdb.Get(ctx, zoneKey).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading zone: %w", err)
	}
	return zone, true, nil
}

// SetZone persists the served zone name.
func (s *Store) SetZone(ctx context.Context, zone string) error {
	if err := s.rdb.Set(ctx, zoneKey, zone, 0).Err(); err != nil {
		return fmt.Errorf("writing zone: %w", err)
	}
	return nil
}

// Nameservers returns the nameserver set for zone.
func (s *Store) Nameservers(ctx context.Context, zone string) ([]string, error) {
	ns, err := s.rdb.SMembers(ctx, nsKey(zone)).Result()
	if err != nil {
		return nil, fmt.Errorf("listing nameservers for %q: %w", zone, err)
	}
	return ns, nil
}

// SetNameservers replaces the nameserver set for zone.
func (s *Store) SetNameservers(ctx context.Context, zone string, nameservers []string) error {
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, nsKey(zone))
	if len(nameservers) > 0 {
		members := make([]interface{}, len(nameservers))
		for i, ns := range nameservers {
			members[i] = ns
		}
		pipe.SAdd(ctx, nsKey(zone), members...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("writing nameservers for %q: %w", zone, err)
	}
	return nil
}
