// Package web serves the HTTP update surface: the authenticated /update
// endpoint and the read-only /info listing.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/redns-dev/redns/internal/ddns/common/clock"
	"github.com/redns-dev/redns/internal/ddns/common/log"
	"github.com/redns-dev/redns/internal/ddns/domain"
)

// Authorizer validates a (username, password, domain) triple.
type Authorizer interface {
	Authorize(ctx context.Context, username, password, domainName string) (bool, error)
}

// NodeStore is the slice of the record store the web service uses.
type NodeStore interface {
	Nodes(ctx context.Context) (map[string]domain.Node, error)
	PutNode(ctx context.Context, host, ip string, now time.Time) error
}

// Server hosts the update service over plain HTTP.
type Server struct {
	auth   Authorizer
	store  NodeStore
	clock  clock.Clock
	logger log.Logger
	srv    *http.Server
}

// Options configures a Server.
type Options struct {
	// Addr is the HTTP listen address, e.g. ":8080".
	Addr string

	Auth   Authorizer
	Store  NodeStore
	Clock  clock.Clock
	Logger log.Logger
}

func New(opts Options) *Server {
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}
	s := &Server{
		auth:   opts.Auth,
		store:  opts.Store,
		clock:  opts.Clock,
		logger: opts.Logger,
	}

	r := mux.NewRouter()
	r.HandleFunc("/info", s.handleInfo).Methods(http.MethodGet)
	r.HandleFunc("/update", s.handleUpdate).Methods(http.MethodGet)
	r.NotFoundHandler = http.HandlerFunc(s.handleNotFound)

	s.srv = &http.Server{
		Addr:              opts.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler exposes the router. Used by tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Start begins serving in a background goroutine.
func (s *Server) Start() {
	s.logger.Info(map[string]any{"address": s.srv.Addr}, "Update service started")
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error(map[string]any{"error": err.Error()}, "Update service failed")
		}
	}()
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

type nodeInfo struct {
	Records []recordInfo `json:"records"`
	Updated *string      `json:"updated"`
}

type recordInfo struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// handleInfo lists every node and its record fields. Deliberately not
// authorization-gated, matching the service's documented contract.
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	nodes, err := s.store.Nodes(r.Context())
	if err != nil {
		s.logger.Error(map[string]any{"error": err.Error()}, "Failed to list nodes")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	out := make(map[string]nodeInfo, len(nodes))
	for host, node := range nodes {
		info := nodeInfo{Records: []recordInfo{}}
		for rrtype, value := range node.RecordFields() {
			info.Records = append(info.Records, recordInfo{Type: rrtype, Value: value})
		}
		if node.Updated != "" {
			updated := node.Updated
			info.Updated = &updated
		}
		out[host] = info
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	if err := json.NewEncoder(w).Encode(out); err != nil {
		s.logger.Error(map[string]any{"error": err.Error()}, "Failed to encode node listing")
	}
}

// handleUpdate authorizes the caller and writes the node's new address.
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	username, password, ok := r.BasicAuth()
	if !ok {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	query := r.URL.Query()
	hostname := query.Get("hostname")
	myip := query.Get("myip")
	if hostname == "" || myip == "" {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	// An unparseable address would poison the node: every later A query
	// for it fails until the value is overwritten.
	if ip := net.ParseIP(myip); ip == nil || ip.To4() == nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	host := domain.CanonicalName(hostname)

	authorized, err := s.auth.Authorize(r.Context(), username, password, host)
	if err != nil {
		s.logger.Error(map[string]any{"user": username, "error": err.Error()}, "Authorization check failed")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if !authorized {
		http.Error(w, "Not Authorized", http.StatusUnauthorized)
		return
	}

	if err := s.store.PutNode(r.Context(), host, myip, s.clock.Now()); err != nil {
		s.logger.Error(map[string]any{"host": host, "error": err.Error()}, "Failed to write node")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	s.logger.Info(map[string]any{"user": username, "host": host, "ip": myip}, "Node updated")
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	http.Error(w, "Not Found", http.StatusNotFound)
}
