// Package tcp hosts the listener and the per-connection session loops that
// translate wire packets into operations on the core registries.
package tcp

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/rs/zerolog"

	"github.com/DanielLaszczych/TicTacToe/internal/config"
	"github.com/DanielLaszczych/TicTacToe/internal/core"
	"github.com/DanielLaszczych/TicTacToe/internal/player"
)

// Server accepts connections and runs one session goroutine per client.
type Server struct {
	cfg     config.Config
	log     zerolog.Logger
	clients *core.Registry
	players *player.Registry
	ln      net.Listener
}

// NewServer builds a server around the two registries.
func NewServer(cfg config.Config, logger *zerolog.Logger, clients *core.Registry, players *player.Registry) *Server {
	return &Server{
		cfg:     cfg,
		log:     logger.With().Str("component", "tcp").Logger(),
		clients: clients,
		players: players,
	}
}

// Listen binds the configured port. It is split from Run so callers (and
// tests, which bind port 0) can learn the bound address before serving.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.Port))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	s.ln = ln
	return nil
}

// Addr returns the bound listen address. Valid after Listen.
func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// Run accepts connections until ctx is cancelled, then performs the
// graceful shutdown sequence: stop accepting, half-close every client
// socket, wait for all sessions to drain, and finalize the player registry.
func (s *Server) Run(ctx context.Context) error {
	if s.ln == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}
	s.log.Info().Stringer("addr", s.ln.Addr()).Msg("listening")

	go func() {
		<-ctx.Done()
		_ = s.ln.Close()
	}()

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			s.log.Warn().Err(err).Msg("accept failed")
			continue
		}
		go s.serve(conn)
	}

	s.clients.ShutdownAll()
	s.log.Info().Msg("waiting for sessions to drain")
	s.clients.WaitForEmpty()
	s.players.Finalize()
	s.log.Info().Msg("server terminated")
	return nil
}

// serve registers the connection and hands it to the session loop. A full
// registry rejects the connection outright.
func (s *Server) serve(conn net.Conn) {
	client, err := s.clients.Register(conn)
	if err != nil {
		s.log.Warn().Err(err).Stringer("remote", conn.RemoteAddr()).Msg("rejecting connection")
		_ = conn.Close()
		return
	}
	newSession(s, conn, client).run()
}
