package udptest

import (
	"errors"
	"net"
	"sync"
	"testing"

	"github.com/danmuck/quicvd/internal/protocol/packet"
)

// ReplyFunc returns the datagram sent back for req, or nil to stay silent.
type ReplyFunc func(req []byte) []byte

// Responder is a loopback UDP server that answers probe triggers.
type Responder struct {
	conn  *net.UDPConn
	reply ReplyFunc

	mu       sync.Mutex
	requests [][]byte
	sources  []*net.UDPAddr
	done     chan struct{}
}

func NewResponder(t testing.TB, reply ReplyFunc) *Responder {
	t.Helper()

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("listen udp: %v", err)
	}
	r := &Responder{
		conn:  conn,
		reply: reply,
		done:  make(chan struct{}),
	}
	go r.serve()
	t.Cleanup(func() {
		_ = conn.Close()
		<-r.done
	})
	return r
}

func (r *Responder) serve() {
	defer close(r.done)
	buf := make([]byte, 2048)
	for {
		n, from, err := r.conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			continue
		}
		req := append([]byte(nil), buf[:n]...)
		r.mu.Lock()
		r.requests = append(r.requests, req)
		r.sources = append(r.sources, from)
		r.mu.Unlock()

		if r.reply == nil {
			continue
		}
		if out := r.reply(req); out != nil {
			_, _ = r.conn.WriteToUDP(out, from)
		}
	}
}

func (r *Responder) Addr() *net.UDPAddr {
	return r.conn.LocalAddr().(*net.UDPAddr)
}

func (r *Responder) Port() int {
	return r.Addr().Port
}

// Requests returns a copy of every datagram received so far.
func (r *Responder) Requests() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]byte, len(r.requests))
	copy(out, r.requests)
	return out
}

// Sources returns the sender address of every datagram, in arrival order.
func (r *Responder) Sources() []*net.UDPAddr {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*net.UDPAddr, len(r.sources))
	copy(out, r.sources)
	return out
}

// Negotiate answers with a version negotiation packet echoing the request connection id.
func Negotiate(versions ...string) ReplyFunc {
	tags := make([]packet.VersionTag, 0, len(versions))
	for _, v := range versions {
		tag, err := packet.ParseVersionTag(v)
		if err != nil {
			panic(err)
		}
		tags = append(tags, tag)
	}
	return func(req []byte) []byte {
		var id packet.ConnectionID
		if len(req) >= packet.VersionOffset {
			copy(id[:], req[packet.ConnectionIDOffset:packet.VersionOffset])
		}
		return packet.ComposeVersionNegotiation(id, tags)
	}
}

// Fixed answers every request with raw.
func Fixed(raw []byte) ReplyFunc {
	return func([]byte) []byte {
		return raw
	}
}
