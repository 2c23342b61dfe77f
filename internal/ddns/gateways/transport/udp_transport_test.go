package transport

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redns-dev/redns/internal/ddns/domain"
	"github.com/redns-dev/redns/internal/ddns/gateways/wire"
)

// scriptedHandler answers per-name from a fixed table, with optional
// error and panic triggers.
type scriptedHandler struct {
	mu        sync.Mutex
	addresses map[string]string
	errNames  map[string]bool
	panics    map[string]bool
	refusals  map[string]bool
}

func (h *scriptedHandler) HandleQuery(_ context.Context, q domain.Question) (domain.DNSResponse, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.panics[q.Name] {
		panic("scripted panic")
	}
	if h.errNames[q.Name] {
		return domain.DNSResponse{}, errors.New("scripted failure")
	}
	if h.refusals[q.Name] {
		return domain.NewErrorResponse(q.ID, domain.REFUSED), nil
	}
	addr, ok := h.addresses[q.Name]
	if !ok {
		return domain.NewErrorResponse(q.ID, domain.NXDOMAIN), nil
	}
	a, err := domain.NewARecord(q.Name, 1800, addr)
	if err != nil {
		return domain.DNSResponse{}, err
	}
	return domain.NewDNSResponse(q.ID, domain.NOERROR, []domain.ResourceRecord{a}, nil)
}

func startTransport(t *testing.T, handler QueryHandler) *UDPTransport {
	t.Helper()
	tr := New(Options{
		Addr:         "127.0.0.1:0",
		Codec:        wire.NewCodec(),
		QueryTimeout: 2 * time.Second,
	})
	require.NoError(t, tr.Start(context.Background(), handler))
	t.Cleanup(func() { _ = tr.Stop() })
	return tr
}

func exchange(t *testing.T, addr string, payload []byte) []byte {
	t.Helper()
	conn, err := net.Dial("udp", addr)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write(payload)
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 512)
	n, err := conn.Read(buf)
	require.NoError(t, err)
	return buf[:n]
}

func packQuery(t *testing.T, id uint16, name string) []byte {
	t.Helper()
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(name), dns.TypeA)
	msg.Id = id
	data, err := msg.Pack()
	require.NoError(t, err)
	return data
}

func TestTransportAnswersQuery(t *testing.T) {
	handler := &scriptedHandler{addresses: map[string]string{"host.example.com": "203.0.113.5"}}
	tr := startTransport(t, handler)

	reply := exchange(t, tr.Address(), packQuery(t, 77, "host.example.com"))

	var msg dns.Msg
	require.NoError(t, msg.Unpack(reply))
	assert.Equal(t, uint16(77), msg.Id)
	assert.Equal(t, dns.RcodeSuccess, msg.Rcode)
	assert.True(t, msg.Authoritative)
	require.Len(t, msg.Answer, 1)
	assert.Equal(t, "203.0.113.5", msg.Answer[0].(*dns.A).A.String())
}

func TestTransportHandlerErrorYieldsServfail(t *testing.T) {
	handler := &scriptedHandler{errNames: map[string]bool{"broken.example.com": true}}
	tr := startTransport(t, handler)

	reply := exchange(t, tr.Address(), packQuery(t, 78, "broken.example.com"))

	var msg dns.Msg
	require.NoError(t, msg.Unpack(reply))
	assert.Equal(t, uint16(78), msg.Id)
	assert.Equal(t, dns.RcodeServerFailure, msg.Rcode)
}

func TestTransportHandlerPanicYieldsServfail(t *testing.T) {
	handler := &scriptedHandler{panics: map[string]bool{"boom.example.com": true}}
	tr := startTransport(t, handler)

	reply := exchange(t, tr.Address(), packQuery(t, 79, "boom.example.com"))

	var msg dns.Msg
	require.NoError(t, msg.Unpack(reply))
	assert.Equal(t, uint16(79), msg.Id)
	assert.Equal(t, dns.RcodeServerFailure, msg.Rcode)
}

func TestTransportMalformedDatagramYieldsFormerr(t *testing.T) {
	handler := &scriptedHandler{}
	tr := startTransport(t, handler)

	// intact header, garbage question section
	raw := append([]byte{0xCA, 0xFE, 0x01, 0x00, 0x00, 0x01, 0, 0, 0, 0, 0, 0}, 0xFF, 0xFF, 0xFF)
	reply := exchange(t, tr.Address(), raw)

	var msg dns.Msg
	require.NoError(t, msg.Unpack(reply))
	assert.Equal(t, uint16(0xCAFE), msg.Id)
	assert.Equal(t, dns.RcodeFormatError, msg.Rcode)
}

func TestTransportAcceptsQueryLargerThan512Bytes(t *testing.T) {
	handler := &scriptedHandler{addresses: map[string]string{"host.example.com": "203.0.113.5"}}
	tr := startTransport(t, handler)

	// EDNS padding pushes the datagram well past the classic 512-byte
	// payload limit
	msg := new(dns.Msg)
	msg.SetQuestion("host.example.com.", dns.TypeA)
	msg.Id = 85
	opt := &dns.OPT{Hdr: dns.RR_Header{Name: ".", Rrtype: dns.TypeOPT}}
	opt.SetUDPSize(4096)
	opt.Option = append(opt.Option, &dns.EDNS0_PADDING{Padding: make([]byte, 700)})
	msg.Extra = append(msg.Extra, opt)
	payload, err := msg.Pack()
	require.NoError(t, err)
	require.Greater(t, len(payload), 512)

	reply := exchange(t, tr.Address(), payload)

	var got dns.Msg
	require.NoError(t, got.Unpack(reply))
	assert.Equal(t, uint16(85), got.Id)
	assert.Equal(t, dns.RcodeSuccess, got.Rcode)
	require.Len(t, got.Answer, 1)
	assert.Equal(t, "203.0.113.5", got.Answer[0].(*dns.A).A.String())
}

func TestTransportRootQueryReachesHandler(t *testing.T) {
	// A query for the root name is valid wire input. It must be decoded
	// and dispatched so the handler can apply its own policy, not be
	// rejected as malformed.
	handler := &scriptedHandler{refusals: map[string]bool{".": true}}
	tr := startTransport(t, handler)

	reply := exchange(t, tr.Address(), packQuery(t, 80, "."))

	var msg dns.Msg
	require.NoError(t, msg.Unpack(reply))
	assert.Equal(t, uint16(80), msg.Id)
	assert.Equal(t, dns.RcodeRefused, msg.Rcode)
}

func TestTransportSurvivesFailuresInterleavedWithQueries(t *testing.T) {
	handler := &scriptedHandler{
		addresses: map[string]string{
			"a.example.com": "203.0.113.1",
			"b.example.com": "203.0.113.2",
			"c.example.com": "203.0.113.3",
		},
		panics:   map[string]bool{"boom.example.com": true},
		errNames: map[string]bool{"broken.example.com": true},
	}
	tr := startTransport(t, handler)

	type result struct {
		name string
		addr string
	}
	results := make(chan result, 3)
	var wg sync.WaitGroup

	// poison datagrams interleaved with valid queries
	for _, poison := range [][]byte{
		{0x00}, // too short for any reply
		packQuery(t, 100, "boom.example.com"),
		packQuery(t, 101, "broken.example.com"),
	} {
		wg.Add(1)
		go func(p []byte) {
			defer wg.Done()
			conn, err := net.Dial("udp", tr.Address())
			if err != nil {
				return
			}
			defer conn.Close()
			_, _ = conn.Write(p)
		}(poison)
	}

	for i, name := range []string{"a.example.com", "b.example.com", "c.example.com"} {
		wg.Add(1)
		go func(id uint16, name string, payload []byte) {
			defer wg.Done()
			conn, err := net.Dial("udp", tr.Address())
			if err != nil {
				return
			}
			defer conn.Close()
			if _, err := conn.Write(payload); err != nil {
				return
			}
			if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
				return
			}
			buf := make([]byte, 512)
			n, err := conn.Read(buf)
			if err != nil {
				return
			}
			var msg dns.Msg
			if err := msg.Unpack(buf[:n]); err != nil {
				return
			}
			if len(msg.Answer) == 1 {
				if a, ok := msg.Answer[0].(*dns.A); ok {
					results <- result{name: name, addr: a.A.String()}
				}
			}
		}(uint16(200+i), name, packQuery(t, uint16(200+i), name))
	}

	wg.Wait()
	close(results)

	got := make(map[string]string)
	for r := range results {
		got[r.name] = r.addr
	}
	assert.Equal(t, map[string]string{
		"a.example.com": "203.0.113.1",
		"b.example.com": "203.0.113.2",
		"c.example.com": "203.0.113.3",
	}, got, "every valid query gets its own correct answer")
}

func TestTransportStartTwiceFails(t *testing.T) {
	handler := &scriptedHandler{}
	tr := startTransport(t, handler)
	assert.Error(t, tr.Start(context.Background(), handler))
}

func TestTransportStopIsIdempotent(t *testing.T) {
	handler := &scriptedHandler{}
	tr := New(Options{Addr: "127.0.0.1:0", Codec: wire.NewCodec()})
	require.NoError(t, tr.Start(context.Background(), handler))
	assert.NoError(t, tr.Stop())
	assert.NoError(t, tr.Stop())
}
