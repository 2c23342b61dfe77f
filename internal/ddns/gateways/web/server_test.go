package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redns-dev/redns/internal/ddns/common/clock"
	"github.com/redns-dev/redns/internal/ddns/domain"
)

// stubAuth authorizes exactly one credential triple.
type stubAuth struct {
	username string
	password string
	domain   string
	err      error
}

func (a *stubAuth) Authorize(_ context.Context, username, password, domainName string) (bool, error) {
	if a.err != nil {
		return false, a.err
	}
	return username == a.username && password == a.password && domainName == a.domain, nil
}

// memStore is an in-memory NodeStore.
type memStore struct {
	mu    sync.Mutex
	nodes map[string]domain.Node
	puts  []string
	err   error
}

func newMemStore() *memStore {
	return &memStore{nodes: map[string]domain.Node{}}
}

func (m *memStore) Nodes(_ context.Context) (map[string]domain.Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make(map[string]domain.Node, len(m.nodes))
	for k, v := range m.nodes {
		out[k] = v
	}
	return out, nil
}

func (m *memStore) PutNode(_ context.Context, host, ip string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	node := m.nodes[host]
	node.A = ip
	node.Updated = now.UTC().Format(time.RFC3339Nano)
	m.nodes[host] = node
	m.puts = append(m.puts, host)
	return nil
}

func newTestServer(auth Authorizer, store NodeStore, clk clock.Clock) *Server {
	return New(Options{Addr: ":0", Auth: auth, Store: store, Clock: clk})
}

func doRequest(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func validAuth() *stubAuth {
	return &stubAuth{username: "alice", password: "s3cret", domain: "host.example.com"}
}

func TestUpdateSuccess(t *testing.T) {
	store := newMemStore()
	clk := &clock.MockClock{CurrentTime: time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)}
	s := newTestServer(validAuth(), store, clk)

	req := httptest.NewRequest(http.MethodGet, "/update?hostname=Host.Example.COM.&myip=203.0.113.5", nil)
	req.SetBasicAuth("alice", "s3cret")
	rec := doRequest(s, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	node := store.nodes["host.example.com"]
	assert.Equal(t, "203.0.113.5", node.A)
	assert.Equal(t, "2026-03-04T05:06:07Z", node.Updated)
}

func TestUpdateIdempotentButAdvancesTimestamp(t *testing.T) {
	store := newMemStore()
	clk := &clock.MockClock{CurrentTime: time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)}
	s := newTestServer(validAuth(), store, clk)

	req := httptest.NewRequest(http.MethodGet, "/update?hostname=host.example.com&myip=203.0.113.5", nil)
	req.SetBasicAuth("alice", "s3cret")
	require.Equal(t, http.StatusOK, doRequest(s, req).Code)
	first := store.nodes["host.example.com"].Updated

	clk.Advance(time.Minute)
	req = httptest.NewRequest(http.MethodGet, "/update?hostname=host.example.com&myip=203.0.113.5", nil)
	req.SetBasicAuth("alice", "s3cret")
	require.Equal(t, http.StatusOK, doRequest(s, req).Code)

	node := store.nodes["host.example.com"]
	assert.Equal(t, "203.0.113.5", node.A, "address unchanged")
	assert.NotEqual(t, first, node.Updated, "timestamp advances")
}

func TestUpdateMissingCredentials(t *testing.T) {
	s := newTestServer(validAuth(), newMemStore(), nil)

	req := httptest.NewRequest(http.MethodGet, "/update?hostname=host.example.com&myip=203.0.113.5", nil)
	rec := doRequest(s, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateMalformedAuthorizationHeader(t *testing.T) {
	s := newTestServer(validAuth(), newMemStore(), nil)

	req := httptest.NewRequest(http.MethodGet, "/update?hostname=host.example.com&myip=203.0.113.5", nil)
	req.Header.Set("Authorization", "Basic not-base64!!!")
	rec := doRequest(s, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateMissingParameters(t *testing.T) {
	s := newTestServer(validAuth(), newMemStore(), nil)

	for _, target := range []string{
		"/update",
		"/update?hostname=host.example.com",
		"/update?myip=203.0.113.5",
	} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		req.SetBasicAuth("alice", "s3cret")
		rec := doRequest(s, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "target %s", target)
	}
}

func TestUpdateRejectsInvalidAddress(t *testing.T) {
	store := newMemStore()
	s := newTestServer(validAuth(), store, nil)

	for _, myip := range []string{"not-an-ip", "203.0.113.999", "2001:db8::1"} {
		req := httptest.NewRequest(http.MethodGet, "/update?hostname=host.example.com&myip="+myip, nil)
		req.SetBasicAuth("alice", "s3cret")
		rec := doRequest(s, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code, "myip %s", myip)
	}
	assert.Empty(t, store.puts, "no mutation on rejected update")
}

func TestUpdateRejectsBadCredentials(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
		hostname string
	}{
		{"wrong password", "alice", "wrong", "host.example.com"},
		{"unknown user", "mallory", "s3cret", "host.example.com"},
		{"unowned domain", "alice", "s3cret", "other.example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			s := newTestServer(validAuth(), store, nil)

			req := httptest.NewRequest(http.MethodGet, "/update?hostname="+tt.hostname+"&myip=203.0.113.5", nil)
			req.SetBasicAuth(tt.username, tt.password)
			rec := doRequest(s, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Empty(t, store.puts, "no mutation on rejected update")
		})
	}
}

func TestUpdateAuthorizerErrorIs500(t *testing.T) {
	s := newTestServer(&stubAuth{err: errors.New("store down")}, newMemStore(), nil)

	req := httptest.NewRequest(http.MethodGet, "/update?hostname=host.example.com&myip=203.0.113.5", nil)
	req.SetBasicAuth("alice", "s3cret")
	rec := doRequest(s, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestUpdateStoreErrorIs500(t *testing.T) {
	store := newMemStore()
	store.err = errors.New("store down")
	s := newTestServer(validAuth(), store, nil)

	req := httptest.NewRequest(http.MethodGet, "/update?hostname=host.example.com&myip=203.0.113.5", nil)
	req.SetBasicAuth("alice", "s3cret")
	rec := doRequest(s, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestInfoListsNodes(t *testing.T) {
	store := newMemStore()
	store.nodes["host.example.com"] = domain.Node{A: "203.0.113.5", TXT: "hello", Updated: "2026-03-04T05:06:07Z"}
	store.nodes["bare.example.com"] = domain.Node{A: "203.0.113.9"}
	s := newTestServer(validAuth(), store, nil)

	rec := doRequest(s, httptest.NewRequest(http.MethodGet, "/info", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	var out map[string]struct {
		Records []struct {
			Type  string `json:"type"`
			Value string `json:"value"`
		} `json:"records"`
		Updated *string `json:"updated"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 2)

	host := out["host.example.com"]
	require.NotNil(t, host.Updated)
	assert.Equal(t, "2026-03-04T05:06:07Z", *host.Updated)
	types := map[string]string{}
	for _, r := range host.Records {
		types[r.Type] = r.Value
	}
	assert.Equal(t, map[string]string{"A": "203.0.113.5", "TXT": "hello"}, types)

	bare := out["bare.example.com"]
	assert.Nil(t, bare.Updated, "missing UPDATED serializes as null")
}

func TestInfoStoreErrorIs500(t *testing.T) {
	store := newMemStore()
	store.err = errors.New("store down")
	s := newTestServer(validAuth(), store, nil)

	rec := doRequest(s, httptest.NewRequest(http.MethodGet, "/info", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestUnknownPathIs404(t *testing.T) {
	s := newTestServer(validAuth(), newMemStore(), nil)

	rec := doRequest(s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
