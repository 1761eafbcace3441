package tcp

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/rs/zerolog"

	"github.com/DanielLaszczych/TicTacToe/internal/core"
	"github.com/DanielLaszczych/TicTacToe/internal/game"
	"github.com/DanielLaszczych/TicTacToe/internal/proto"
)

// session is the per-connection dispatcher. It reads frames, routes them to
// client operations, and answers each request with ACK or NACK. Until the
// client has logged in only LOGIN is honored; after login, LOGIN itself is
// refused.
type session struct {
	srv      *Server
	conn     net.Conn
	client   *core.Client
	log      zerolog.Logger
	loggedIn bool
}

func newSession(srv *Server, conn net.Conn, client *core.Client) *session {
	return &session{
		srv:    srv,
		conn:   conn,
		client: client,
		log:    srv.log.With().Stringer("remote", conn.RemoteAddr()).Logger(),
	}
}

func (s *session) run() {
	s.log.Debug().Msg("session started")
	defer func() {
		if s.loggedIn {
			if err := s.client.Logout(); err != nil {
				s.log.Warn().Err(err).Msg("logout on teardown failed")
			}
		}
		s.srv.clients.Unregister(s.client)
		_ = s.conn.Close()
		s.log.Debug().Msg("session ended")
	}()

	for {
		hdr, payload, err := proto.ReadPacket(s.conn, s.srv.cfg.MaxPayload)
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.log.Debug().Msg("connection closed by peer or shutdown")
			} else {
				s.log.Warn().Err(err).Msg("transport error")
			}
			return
		}
		s.dispatch(hdr, payload)
	}
}

func (s *session) dispatch(hdr proto.Header, payload []byte) {
	s.log.Debug().Stringer("packet", hdr.Type).Uint8("id", hdr.ID).Msg("packet received")

	if hdr.Type != proto.LoginPkt && !s.loggedIn {
		s.nack()
		return
	}

	var err error
	switch hdr.Type {
	case proto.LoginPkt:
		err = s.handleLogin(payload)
	case proto.UsersPkt:
		err = s.handleUsers()
	case proto.InvitePkt:
		err = s.handleInvite(hdr, payload)
	case proto.RevokePkt:
		err = s.client.RevokeInvitation(int(hdr.ID))
		if err == nil {
			err = s.ack(nil)
		}
	case proto.DeclinePkt:
		err = s.client.DeclineInvitation(int(hdr.ID))
		if err == nil {
			err = s.ack(nil)
		}
	case proto.AcceptPkt:
		var state string
		state, err = s.client.AcceptInvitation(int(hdr.ID))
		if err == nil {
			err = s.ack([]byte(state))
		}
	case proto.MovePkt:
		err = s.client.MakeMove(int(hdr.ID), string(payload))
		if err == nil {
			err = s.ack(nil)
		}
	case proto.ResignPkt:
		err = s.client.ResignGame(int(hdr.ID))
		if err == nil {
			err = s.ack(nil)
		}
	default:
		err = &core.CoreError{Code: core.ErrCodeProtocol, Message: "unknown packet type"}
	}

	if err != nil {
		var ce *core.CoreError
		if errors.As(err, &ce) {
			s.log.Debug().Str("code", ce.Code).Stringer("packet", hdr.Type).Msg("request refused")
		} else {
			s.log.Debug().Err(err).Stringer("packet", hdr.Type).Msg("request failed")
		}
		s.nack()
	}
}

func (s *session) handleLogin(payload []byte) error {
	if s.loggedIn {
		return core.ErrDuplicate
	}
	name := string(payload)
	if name == "" {
		return &core.CoreError{Code: core.ErrCodeProtocol, Message: "login requires a username payload"}
	}
	if s.srv.clients.Lookup(name) != nil {
		return core.ErrDuplicate
	}
	p := s.srv.players.Register(name)
	if err := s.srv.clients.Login(s.client, p); err != nil {
		return err
	}
	s.loggedIn = true
	s.log = s.log.With().Str("user", name).Logger()
	return s.ack(nil)
}

// handleUsers answers with one "name<TAB>rating<LF>" line per logged-in
// player.
func (s *session) handleUsers() error {
	var b strings.Builder
	for _, p := range s.srv.clients.Players() {
		fmt.Fprintf(&b, "%s\t%d\n", p.Name(), p.Rating())
	}
	return s.ack([]byte(b.String()))
}

func (s *session) handleInvite(hdr proto.Header, payload []byte) error {
	name := string(payload)
	if name == "" {
		return &core.CoreError{Code: core.ErrCodeProtocol, Message: "invite requires a target username payload"}
	}

	// The role field selects the role the *target* will play.
	var sourceRole, targetRole game.Role
	switch game.Role(hdr.Role) {
	case game.First:
		targetRole, sourceRole = game.First, game.Second
	case game.Second:
		targetRole, sourceRole = game.Second, game.First
	default:
		return &core.CoreError{Code: core.ErrCodeProtocol, Message: "invite requires a role of 1 or 2"}
	}

	target := s.srv.clients.Lookup(name)
	if target == nil {
		return core.ErrNotFound
	}
	id, err := s.client.MakeInvitation(target, sourceRole, targetRole)
	if err != nil {
		return err
	}
	// The ACK tells the inviter which local ID the invitation got.
	if err := s.client.SendAckID(id, nil); err != nil {
		s.log.Warn().Err(err).Msg("failed to send ACK")
	}
	return nil
}

func (s *session) ack(payload []byte) error {
	if err := s.client.SendAck(payload); err != nil {
		s.log.Warn().Err(err).Msg("failed to send ACK")
	}
	return nil
}

func (s *session) nack() {
	if err := s.client.SendNack(); err != nil {
		s.log.Warn().Err(err).Msg("failed to send NACK")
	}
}
