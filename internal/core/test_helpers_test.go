package core

import (
	"bytes"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/DanielLaszczych/TicTacToe/internal/game"
	"github.com/DanielLaszczych/TicTacToe/internal/player"
	"github.com/DanielLaszczych/TicTacToe/internal/proto"
)

// fakeConn is a net.Conn whose write side accumulates into a buffer that
// tests drain and decode. The read side always reports EOF; core code never
// reads, only the session loop does.
type fakeConn struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	closed bool
}

type fakeAddr string

func (a fakeAddr) Network() string { return "fake" }
func (a fakeAddr) String() string  { return string(a) }

func (c *fakeConn) Read([]byte) (int, error) { return 0, io.EOF }

func (c *fakeConn) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, net.ErrClosed
	}
	return c.buf.Write(p)
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) CloseRead() error  { return nil }
func (c *fakeConn) CloseWrite() error { return c.Close() }

func (c *fakeConn) LocalAddr() net.Addr                { return fakeAddr("local") }
func (c *fakeConn) RemoteAddr() net.Addr               { return fakeAddr("remote") }
func (c *fakeConn) SetDeadline(t time.Time) error      { return nil }
func (c *fakeConn) SetReadDeadline(t time.Time) error  { return nil }
func (c *fakeConn) SetWriteDeadline(t time.Time) error { return nil }

type packet struct {
	hdr     proto.Header
	payload []byte
}

// drain decodes and removes every packet written to the conn so far.
func (c *fakeConn) drain(t *testing.T) []packet {
	t.Helper()

	c.mu.Lock()
	data := append([]byte(nil), c.buf.Bytes()...)
	c.buf.Reset()
	c.mu.Unlock()

	var pkts []packet
	r := bytes.NewReader(data)
	for r.Len() > 0 {
		hdr, payload, err := proto.ReadPacket(r, 0)
		if err != nil {
			t.Fatalf("decoding written packets: %v", err)
		}
		pkts = append(pkts, packet{hdr: hdr, payload: payload})
	}
	return pkts
}

// expectPacket drains one packet of the wanted type and fails the test on
// anything else.
func (c *fakeConn) expectPacket(t *testing.T, want proto.PacketType) packet {
	t.Helper()

	pkts := c.drain(t)
	if len(pkts) != 1 {
		t.Fatalf("got %d packets, want exactly one %s", len(pkts), want)
	}
	if pkts[0].hdr.Type != want {
		t.Fatalf("got packet %s, want %s", pkts[0].hdr.Type, want)
	}
	return pkts[0]
}

// testHarness bundles a registry with clients that write into fakeConns.
type testHarness struct {
	t       *testing.T
	clients *Registry
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()
	logger := zerolog.Nop()
	return &testHarness{
		t:       t,
		clients: NewRegistry(&logger, 8),
	}
}

// connect registers a client and, when name is non-empty, logs it in.
func (h *testHarness) connect(name string) (*Client, *fakeConn) {
	h.t.Helper()

	conn := &fakeConn{}
	c, err := h.clients.Register(conn)
	if err != nil {
		h.t.Fatalf("Register: %v", err)
	}
	if name != "" {
		if err := h.clients.Login(c, player.New(name)); err != nil {
			h.t.Fatalf("Login(%s): %v", name, err)
		}
	}
	return c, conn
}

// invite is the common setup for invitation tests: source invites target,
// target to play targetRole. Both local IDs are returned and the INVITED
// notification is drained.
func (h *testHarness) invite(source, target *Client, tconn *fakeConn, targetRole game.Role) (sourceID, targetID int) {
	h.t.Helper()

	id, err := source.MakeInvitation(target, targetRole.Other(), targetRole)
	if err != nil {
		h.t.Fatalf("MakeInvitation: %v", err)
	}
	invited := tconn.expectPacket(h.t, proto.InvitedPkt)
	return id, int(invited.hdr.ID)
}
