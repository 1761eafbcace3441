package core

import (
	"net"
	"sync"

	"github.com/rs/zerolog"

	"github.com/DanielLaszczych/TicTacToe/internal/game"
	"github.com/DanielLaszczych/TicTacToe/internal/player"
	"github.com/DanielLaszczych/TicTacToe/internal/proto"
)

// inviteEntry is one client's view of an invitation: the shared Invitation
// plus the local ID this client assigned to it.
type inviteEntry struct {
	id  int
	inv *Invitation
}

// Client is the server-side state of one connected socket: the login (if
// any), the ordered list of local invitations, and the write side of the
// connection. A single lock guards all of it, so outbound packets on a
// connection are serialized and never interleave.
//
// Operations that span two clients (inviting, revoking, accepting, moving)
// take both client locks. To keep lock acquisition in a fixed total order,
// clients carry a creation sequence number and locks are always taken in
// ascending seq order; see lockPair.
type Client struct {
	seq  uint64
	conn net.Conn
	log  zerolog.Logger

	mu      sync.Mutex
	player  *player.Player
	invites []*inviteEntry
	nextID  int
}

// NewClient wraps an accepted connection. Clients are normally created by
// Registry.Register, which assigns the sequence number.
func NewClient(seq uint64, conn net.Conn, logger zerolog.Logger) *Client {
	return &Client{seq: seq, conn: conn, log: logger}
}

// lockPair locks both clients in ascending creation order and returns the
// matching unlock. Locking in a fixed total order is what prevents AB/BA
// deadlocks when two handlers operate on the same pair of clients.
func lockPair(a, b *Client) func() {
	if a == b {
		a.mu.Lock()
		return a.mu.Unlock
	}
	if a.seq > b.seq {
		a, b = b, a
	}
	a.mu.Lock()
	b.mu.Lock()
	return func() {
		b.mu.Unlock()
		a.mu.Unlock()
	}
}

// Player returns the player this client is logged in as, or nil.
func (c *Client) Player() *player.Player {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.player
}

// Login marks the client as logged in as p. It fails if the client is
// already logged in. Uniqueness of the username across live clients is
// enforced by Registry.Login, which calls this under the registry lock.
func (c *Client) Login(p *player.Player) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.player != nil {
		return ErrDuplicate
	}
	c.player = p
	c.log.Info().Str("user", p.Name()).Msg("logged in")
	return nil
}

// Logout tears down the client's login: every invitation still in its list
// is resigned (game in progress), revoked (we are the source), or declined
// (we are the target), with the usual notifications to peers, and then the
// player reference is dropped. It fails if the client is not logged in.
func (c *Client) Logout() error {
	c.mu.Lock()
	if c.player == nil {
		c.mu.Unlock()
		return ErrNotLoggedIn
	}
	c.mu.Unlock()

	for {
		c.mu.Lock()
		if len(c.invites) == 0 {
			c.mu.Unlock()
			break
		}
		e := c.invites[0]
		id, inv := e.id, e.inv
		c.mu.Unlock()

		var err error
		switch {
		case inv.State() == InvAccepted:
			err = c.ResignGame(id)
		case inv.Source() == c:
			err = c.RevokeInvitation(id)
		default:
			err = c.DeclineInvitation(id)
		}
		if err != nil {
			// A concurrent operation moved this invitation along: an
			// accept can land between the state read above and the
			// revoke or decline. Re-dispatch from the fresh state; the
			// entry may be dropped only once the invitation is closed,
			// or the peer would be left holding a live game.
			if inv.State() == InvClosed {
				_, _ = c.RemoveInvitation(inv)
			}
		}
	}

	c.mu.Lock()
	c.log.Info().Str("user", c.player.Name()).Msg("logged out")
	c.player = nil
	c.mu.Unlock()
	return nil
}

// AddInvitation appends inv to the client's list and returns the local ID
// assigned to it. IDs are monotonic per client and never reused.
func (c *Client) AddInvitation(inv *Invitation) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.addLocked(inv)
}

// RemoveInvitation removes inv from the client's list, returning the local
// ID it was registered under.
func (c *Client) RemoveInvitation(inv *Invitation) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id, ok := c.removeLocked(inv)
	if !ok {
		return 0, ErrNotFound
	}
	return id, nil
}

func (c *Client) addLocked(inv *Invitation) int {
	id := c.nextID
	c.nextID++
	c.invites = append(c.invites, &inviteEntry{id: id, inv: inv})
	return id
}

func (c *Client) removeLocked(inv *Invitation) (int, bool) {
	for idx, e := range c.invites {
		if e.inv == inv {
			c.invites = append(c.invites[:idx], c.invites[idx+1:]...)
			return e.id, true
		}
	}
	return 0, false
}

func (c *Client) entryByIDLocked(id int) *inviteEntry {
	for _, e := range c.invites {
		if e.id == id {
			return e
		}
	}
	return nil
}

func (c *Client) entryForLocked(inv *Invitation) *inviteEntry {
	for _, e := range c.invites {
		if e.inv == inv {
			return e
		}
	}
	return nil
}

// invitationByID resolves a local ID to its invitation.
func (c *Client) invitationByID(id int) (*Invitation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.entryByIDLocked(id)
	if e == nil {
		return nil, ErrNotFound
	}
	return e.inv, nil
}

// MakeInvitation creates an open invitation from this client to target,
// enters it into both clients' lists, and notifies the target with an
// INVITED packet carrying the target's local ID, the target's role, and the
// inviter's username. The source's local ID is returned.
func (c *Client) MakeInvitation(target *Client, sourceRole, targetRole game.Role) (int, error) {
	inv, err := NewInvitation(c, target, sourceRole, targetRole)
	if err != nil {
		return 0, err
	}

	unlock := lockPair(c, target)
	defer unlock()

	if c.player == nil {
		return 0, ErrNotLoggedIn
	}
	if target.player == nil {
		// Target logged out between lookup and here.
		return 0, ErrNotFound
	}

	sourceID := c.addLocked(inv)
	targetID := target.addLocked(inv)

	target.notifyLocked(&proto.Header{
		Type: proto.InvitedPkt,
		ID:   uint8(targetID),
		Role: uint8(targetRole),
	}, []byte(c.player.Name()))

	return sourceID, nil
}

// RevokeInvitation closes an open invitation for which this client is the
// source, removes it from both lists, and sends REVOKED (with the target's
// local ID) to the target.
func (c *Client) RevokeInvitation(id int) error {
	inv, err := c.invitationByID(id)
	if err != nil {
		return err
	}
	if inv.Source() != c {
		return ErrBadState
	}
	if inv.State() != InvOpen {
		return ErrBadState
	}
	target := inv.Target()

	unlock := lockPair(c, target)
	defer unlock()

	if c.entryForLocked(inv) == nil || target.entryForLocked(inv) == nil {
		return ErrNotFound
	}
	if err := inv.Close(game.NoRole); err != nil {
		return err
	}
	c.removeLocked(inv)
	targetID, _ := target.removeLocked(inv)

	target.notifyLocked(&proto.Header{Type: proto.RevokedPkt, ID: uint8(targetID)}, nil)
	return nil
}

// DeclineInvitation closes an open invitation for which this client is the
// target, removes it from both lists, and sends DECLINED (with the source's
// local ID) to the source.
func (c *Client) DeclineInvitation(id int) error {
	inv, err := c.invitationByID(id)
	if err != nil {
		return err
	}
	if inv.Target() != c {
		return ErrBadState
	}
	if inv.State() != InvOpen {
		return ErrBadState
	}
	source := inv.Source()

	unlock := lockPair(c, source)
	defer unlock()

	if c.entryForLocked(inv) == nil || source.entryForLocked(inv) == nil {
		return ErrNotFound
	}
	if err := inv.Close(game.NoRole); err != nil {
		return err
	}
	c.removeLocked(inv)
	sourceID, _ := source.removeLocked(inv)

	source.notifyLocked(&proto.Header{Type: proto.DeclinedPkt, ID: uint8(sourceID)}, nil)
	return nil
}

// AcceptInvitation accepts an open invitation for which this client is the
// target, creating the game, and sends ACCEPTED to the source. Exactly the
// player in the FIRST role receives the initial board so it can move: if
// the source plays FIRST the board travels in the ACCEPTED payload, and the
// returned string is empty; otherwise the ACCEPTED payload is empty and the
// board is returned for inclusion in the ACK to this client.
func (c *Client) AcceptInvitation(id int) (string, error) {
	inv, err := c.invitationByID(id)
	if err != nil {
		return "", err
	}
	if inv.Target() != c {
		return "", ErrBadState
	}
	source := inv.Source()

	unlock := lockPair(c, source)
	defer unlock()

	if c.entryForLocked(inv) == nil {
		return "", ErrNotFound
	}
	sourceEntry := source.entryForLocked(inv)
	if sourceEntry == nil {
		return "", ErrNotFound
	}
	if err := inv.Accept(); err != nil {
		return "", err
	}

	board := inv.Game().UnparseState()
	hdr := &proto.Header{Type: proto.AcceptedPkt, ID: uint8(sourceEntry.id)}
	if inv.SourceRole() == game.First {
		source.notifyLocked(hdr, []byte(board))
		return "", nil
	}
	source.notifyLocked(hdr, nil)
	return board, nil
}

// ResignGame resigns the game under an accepted invitation, closing it and
// removing it from both lists. The opponent's rating gains from the resign
// via the Elo update, the opponent is notified with RESIGNED, and both
// participants receive ENDED carrying the winner's role code.
func (c *Client) ResignGame(id int) error {
	inv, err := c.invitationByID(id)
	if err != nil {
		return err
	}
	if inv.State() != InvAccepted {
		return ErrBadState
	}
	myRole := inv.roleOf(c)
	opponent := inv.peerOf(c)

	unlock := lockPair(c, opponent)
	defer unlock()

	if c.entryForLocked(inv) == nil || opponent.entryForLocked(inv) == nil {
		return ErrNotFound
	}
	if err := inv.Close(myRole); err != nil {
		return err
	}
	myID, _ := c.removeLocked(inv)
	opponentID, _ := opponent.removeLocked(inv)

	if c.player != nil && opponent.player != nil {
		player.PostResult(c.player, opponent.player, player.Player2Wins)
	}

	winner := inv.Game().Winner()
	opponent.notifyLocked(&proto.Header{Type: proto.ResignedPkt, ID: uint8(opponentID)}, nil)
	c.notifyLocked(&proto.Header{Type: proto.EndedPkt, ID: uint8(myID), Role: uint8(winner)}, nil)
	opponent.notifyLocked(&proto.Header{Type: proto.EndedPkt, ID: uint8(opponentID), Role: uint8(winner)}, nil)
	return nil
}

// MakeMove parses and applies a move in the game under an accepted
// invitation, then sends MOVED to the opponent with the rendered board
// (plus a "to move" line while the game continues). If the move ends the
// game, ratings are posted, the invitation is closed and removed from both
// lists, and both participants receive ENDED.
func (c *Client) MakeMove(id int, text string) error {
	inv, err := c.invitationByID(id)
	if err != nil {
		return err
	}
	if inv.State() != InvAccepted {
		return ErrBadState
	}
	myRole := inv.roleOf(c)
	opponent := inv.peerOf(c)

	unlock := lockPair(c, opponent)
	defer unlock()

	myEntry := c.entryForLocked(inv)
	opponentEntry := opponent.entryForLocked(inv)
	if myEntry == nil || opponentEntry == nil {
		return ErrNotFound
	}

	g := inv.Game()
	move, err := game.ParseMove(myRole, text)
	if err != nil {
		return err
	}
	if err := g.ApplyMove(move); err != nil {
		return err
	}

	payload := "\n" + g.UnparseState()
	if !g.Over() {
		payload += "\n" + string(g.Turn().Piece()) + " to move\n"
	}
	opponent.notifyLocked(&proto.Header{Type: proto.MovedPkt, ID: uint8(opponentEntry.id)}, []byte(payload))

	if !g.Over() {
		return nil
	}

	winner := g.Winner()
	if c.player != nil && opponent.player != nil {
		outcome := player.Draw
		switch winner {
		case myRole:
			outcome = player.Player1Wins
		case myRole.Other():
			outcome = player.Player2Wins
		}
		player.PostResult(c.player, opponent.player, outcome)
	}

	_ = inv.Close(winner)
	myID, _ := c.removeLocked(inv)
	opponentID, _ := opponent.removeLocked(inv)

	c.notifyLocked(&proto.Header{Type: proto.EndedPkt, ID: uint8(myID), Role: uint8(winner)}, nil)
	opponent.notifyLocked(&proto.Header{Type: proto.EndedPkt, ID: uint8(opponentID), Role: uint8(winner)}, nil)
	return nil
}

// SendAck sends an ACK with an optional payload.
func (c *Client) SendAck(payload []byte) error {
	return c.send(&proto.Header{Type: proto.AckPkt}, payload)
}

// SendAckID sends an ACK whose ID field echoes an invitation ID back to the
// requester, as the reply to INVITE does.
func (c *Client) SendAckID(id int, payload []byte) error {
	return c.send(&proto.Header{Type: proto.AckPkt, ID: uint8(id)}, payload)
}

// SendNack sends a NACK.
func (c *Client) SendNack() error {
	return c.send(&proto.Header{Type: proto.NackPkt}, nil)
}

// send transmits one packet under the client lock, so concurrent senders
// on the same connection cannot interleave header and payload bytes.
func (c *Client) send(hdr *proto.Header, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return proto.WritePacket(c.conn, hdr, payload)
}

// notifyLocked sends a packet to this client, whose lock must already be
// held. Delivery is best-effort: the invitation state change that prompted
// the notification has already happened, so a write failure (typically a
// peer that has gone away) is logged and otherwise ignored.
func (c *Client) notifyLocked(hdr *proto.Header, payload []byte) {
	if err := proto.WritePacket(c.conn, hdr, payload); err != nil {
		c.log.Warn().Err(err).Stringer("packet", hdr.Type).Msg("notification not delivered")
	}
}

// halfCloser is satisfied by *net.TCPConn.
type halfCloser interface {
	CloseRead() error
	CloseWrite() error
}

// Shutdown half-closes the connection so the session loop's pending read
// returns EOF. The session loop, not this method, unregisters the client.
func (c *Client) Shutdown() {
	if hc, ok := c.conn.(halfCloser); ok {
		_ = hc.CloseWrite()
		_ = hc.CloseRead()
		return
	}
	_ = c.conn.Close()
}
