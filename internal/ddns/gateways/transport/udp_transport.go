// Package transport owns the UDP socket and the per-datagram dispatch
// model: every inbound datagram gets its own unit of work, and a failure
// inside one unit can never take down the listen loop or touch a sibling.
package transport

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/redns-dev/redns/internal/ddns/common/log"
	"github.com/redns-dev/redns/internal/ddns/domain"
)

// QueryHandler decides a response for one decoded question.
type QueryHandler interface {
	HandleQuery(ctx context.Context, q domain.Question) (domain.DNSResponse, error)
}

// UDPTransport serves DNS over UDP (RFC 1035). It handles socket
// management and failure isolation while delegating decisions to the
// QueryHandler and wire conversion to the codec.
type UDPTransport struct {
	addr         string
	conn         *net.UDPConn
	codec        domain.DNSCodec
	logger       log.Logger
	queryTimeout time.Duration

	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
}

// Options configures a UDPTransport.
type Options struct {
	// Addr is the UDP listen address, e.g. ":53".
	Addr string

	Codec  domain.DNSCodec
	Logger log.Logger

	// QueryTimeout bounds each unit of work, including its store round
	// trips. Defaults to 3s.
	QueryTimeout time.Duration
}

func New(opts Options) *UDPTransport {
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}
	if opts.QueryTimeout == 0 {
		opts.QueryTimeout = 3 * time.Second
	}
	return &UDPTransport{
		addr:         opts.Addr,
		codec:        opts.Codec,
		logger:       opts.Logger,
		queryTimeout: opts.QueryTimeout,
		stopCh:       make(chan struct{}),
	}
}

// Start binds the UDP socket and begins the dispatch loop.
func (t *UDPTransport) Start(ctx context.Context, handler QueryHandler) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return fmt.Errorf("UDP transport already running")
	}

	udpAddr, err := net.ResolveUDPAddr("udp", t.addr)
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address %s: %w", t.addr, err)
	}

	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return fmt.Errorf("failed to bind UDP socket on %s: %w", t.addr, err)
	}

	t.conn = conn
	t.running = true

	t.logger.Info(map[string]any{
		"transport": "udp",
		"address":   conn.LocalAddr().String(),
	}, "DNS transport started")

	go t.listenLoop(ctx, handler)

	return nil
}

// Stop closes the socket and ends the dispatch loop. In-flight units of
// work are not interrupted.
func (t *UDPTransport) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return nil
	}

	close(t.stopCh)

	var closeErr error
	if t.conn != nil {
		closeErr = t.conn.Close()
	}
	t.running = false

	t.logger.Info(map[string]any{
		"transport": "udp",
		"address":   t.addr,
	}, "DNS transport stopped")

	return closeErr
}

// Address returns the bound socket address once running, otherwise the
// configured address.
func (t *UDPTransport) Address() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.conn != nil {
		return t.conn.LocalAddr().String()
	}
	return t.addr
}

// listenLoop reads datagrams and spawns one unit of work per datagram.
// It sits outside every per-query failure boundary.
func (t *UDPTransport) listenLoop(ctx context.Context, handler QueryHandler) {
	// Large enough for EDNS-carrying queries, which routinely exceed
	// the classic 512-byte payload limit.
	buffer := make([]byte, 4096)

	for {
		select {
		case <-ctx.Done():
			t.logger.Debug(nil, "UDP transport stopping due to context cancellation")
			return
		case <-t.stopCh:
			t.logger.Debug(nil, "UDP transport stopping due to stop signal")
			return
		default:
			n, clientAddr, err := t.conn.ReadFromUDP(buffer)
			if err != nil {
				t.mu.RLock()
				running := t.running
				t.mu.RUnlock()
				if !running {
					return
				}
				t.logger.Warn(map[string]any{
					"error": err.Error(),
				}, "Failed to read UDP packet")
				continue
			}

			packet := make([]byte, n)
			copy(packet, buffer[:n])
			go t.handlePacket(ctx, packet, clientAddr, handler)
		}
	}
}

// handlePacket is one unit of work. Everything in here, including panics,
// stays in here.
func (t *UDPTransport) handlePacket(ctx context.Context, data []byte, clientAddr *net.UDPAddr, handler QueryHandler) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error(map[string]any{
				"client": clientAddr.String(),
				"panic":  fmt.Sprintf("%v", r),
			}, "Query handling panicked")
			t.sendFailure(data, clientAddr, domain.SERVFAIL)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, t.queryTimeout)
	defer cancel()

	query, err := t.codec.DecodeQuery(data)
	if err != nil {
		t.logger.Warn(map[string]any{
			"client": clientAddr.String(),
			"error":  err.Error(),
			"size":   len(data),
		}, "Failed to decode DNS query")
		t.sendFailure(data, clientAddr, domain.FORMERR)
		return
	}

	response, err := handler.HandleQuery(ctx, query)
	if err != nil {
		t.logger.Error(map[string]any{
			"client":   clientAddr.String(),
			"query_id": query.ID,
			"name":     query.Name,
			"error":    err.Error(),
		}, "Failed to handle DNS query")
		t.sendFailure(data, clientAddr, domain.SERVFAIL)
		return
	}

	responseData, err := t.codec.EncodeResponse(query, response)
	if err != nil {
		t.logger.Error(map[string]any{
			"client":   clientAddr.String(),
			"query_id": query.ID,
			"error":    err.Error(),
		}, "Failed to encode DNS response")
		t.sendFailure(data, clientAddr, domain.SERVFAIL)
		return
	}

	if _, err := t.conn.WriteToUDP(responseData, clientAddr); err != nil {
		t.logger.Error(map[string]any{
			"client":   clientAddr.String(),
			"query_id": response.ID,
			"error":    err.Error(),
		}, "Failed to send DNS response")
		return
	}

	t.logger.Debug(map[string]any{
		"client":   clientAddr.String(),
		"query_id": response.ID,
		"name":     query.Name,
		"type":     query.Type.String(),
		"rcode":    response.RCode.String(),
		"answers":  len(response.Answers),
	}, "Sent DNS response")
}

// sendFailure attempts a best-effort error reply. When the datagram is
// too mangled to mirror an ID, it is dropped silently.
func (t *UDPTransport) sendFailure(data []byte, clientAddr *net.UDPAddr, rcode domain.RCode) {
	reply, err := t.codec.EncodeFailure(data, rcode)
	if err != nil {
		t.logger.Debug(map[string]any{
			"client": clientAddr.String(),
			"error":  err.Error(),
		}, "Dropping unanswerable datagram")
		return
	}
	if _, err := t.conn.WriteToUDP(reply, clientAddr); err != nil {
		t.logger.Debug(map[string]any{
			"client": clientAddr.String(),
			"error":  err.Error(),
		}, "Failed to send failure reply")
	}
}
