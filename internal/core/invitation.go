package core

import (
	"sync"

	"github.com/DanielLaszczych/TicTacToe/internal/game"
)

// InvState is the lifecycle state of an invitation.
type InvState int

const (
	// InvOpen means the invitation has been sent but not yet answered.
	InvOpen InvState = iota
	// InvAccepted means a game is in progress under this invitation.
	InvAccepted
	// InvClosed is terminal: revoked, declined, resigned, or game ended.
	InvClosed
)

func (s InvState) String() string {
	switch s {
	case InvOpen:
		return "open"
	case InvAccepted:
		return "accepted"
	case InvClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Invitation binds two distinct clients into a prospective or running game.
// Exactly one Invitation value is shared by both endpoints; each endpoint's
// invitation list refers to it under that endpoint's own local ID.
//
// State transitions (Accept, Close) take only the invitation's own lock.
// Composing a transition with client list manipulation is the Client's job.
type Invitation struct {
	source     *Client
	target     *Client
	sourceRole game.Role
	targetRole game.Role

	mu    sync.Mutex
	state InvState
	g     *game.Game
}

// NewInvitation creates an open invitation from source to target. The two
// endpoints must be distinct and must play opposite roles.
func NewInvitation(source, target *Client, sourceRole, targetRole game.Role) (*Invitation, error) {
	if source == target {
		return nil, ErrBadState
	}
	if sourceRole == targetRole || sourceRole == game.NoRole || targetRole == game.NoRole {
		return nil, ErrBadState
	}
	return &Invitation{
		source:     source,
		target:     target,
		sourceRole: sourceRole,
		targetRole: targetRole,
		state:      InvOpen,
	}, nil
}

// Source returns the inviting client.
func (i *Invitation) Source() *Client { return i.source }

// Target returns the invited client.
func (i *Invitation) Target() *Client { return i.target }

// SourceRole returns the role the source will play.
func (i *Invitation) SourceRole() game.Role { return i.sourceRole }

// TargetRole returns the role the target will play.
func (i *Invitation) TargetRole() game.Role { return i.targetRole }

// State returns the current lifecycle state.
func (i *Invitation) State() InvState {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state
}

// Game returns the game created when the invitation was accepted, or nil.
func (i *Invitation) Game() *game.Game {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.g
}

// roleOf maps a participating client to the role it plays.
func (i *Invitation) roleOf(c *Client) game.Role {
	if c == i.source {
		return i.sourceRole
	}
	if c == i.target {
		return i.targetRole
	}
	return game.NoRole
}

// peerOf maps a participating client to its opponent.
func (i *Invitation) peerOf(c *Client) *Client {
	if c == i.source {
		return i.target
	}
	return i.source
}

// Accept moves the invitation from OPEN to ACCEPTED and creates the game.
func (i *Invitation) Accept() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.state != InvOpen {
		return ErrBadState
	}
	i.state = InvAccepted
	i.g = game.New()
	return nil
}

// Close moves the invitation to CLOSED from either OPEN or ACCEPTED.
// If a game is still in progress, role identifies the resigning player;
// passing game.NoRole in that situation is an error.
func (i *Invitation) Close(role game.Role) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.state == InvClosed {
		return ErrBadState
	}
	if i.g != nil && !i.g.Over() {
		if role == game.NoRole {
			return ErrBadState
		}
		if err := i.g.Resign(role); err != nil {
			return err
		}
	}
	i.state = InvClosed
	return nil
}
